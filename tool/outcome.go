package tool

import (
	"fmt"

	"github.com/hupe1980/agentfactory/internal/util"
)

// State classifies an Outcome.
type State string

const (
	// StateSuccess means a real provider performed the action.
	StateSuccess State = "success"
	// StateSimulated means no provider was available and the action was simulated.
	StateSimulated State = "simulated"
	// StateFailed means the provider raised an error.
	StateFailed State = "failed"
)

// Status glyphs.
const (
	GlyphSuccess  = "✅"
	GlyphFailed   = "❌"
	GlyphEmail    = "📧"
	GlyphCalendar = "📅"
	GlyphTweet    = "🐦"
)

// Outcome is the result of executing a tool. Status is the human readable
// line spliced into agent output.
type Outcome struct {
	Tool       string `json:"tool"`
	State      State  `json:"state"`
	Status     string `json:"status"`
	ProviderID string `json:"provider_id,omitempty"`
	Link       string `json:"link,omitempty"`
	Error      string `json:"error,omitempty"`
}

// String returns the status line.
func (o Outcome) String() string { return o.Status }

// Simulated reports whether the outcome was fabricated.
func (o Outcome) Simulated() bool { return o.State == StateSimulated }

// Failed reports whether the provider failed.
func (o Outcome) Failed() bool { return o.State == StateFailed }

func failed(tool, format string, err error) Outcome {
	return Outcome{
		Tool:   tool,
		State:  StateFailed,
		Status: fmt.Sprintf("%s "+format, GlyphFailed, err),
		Error:  err.Error(),
	}
}

func emailSent(to, id string) Outcome {
	return Outcome{
		Tool:       toolEmail,
		State:      StateSuccess,
		Status:     fmt.Sprintf("%s Email sent successfully to %s (ID: %s)", GlyphSuccess, to, id),
		ProviderID: id,
	}
}

func emailSimulated(to, subject string) Outcome {
	return Outcome{
		Tool:   toolEmail,
		State:  StateSimulated,
		Status: fmt.Sprintf("%s [SIMULATED] Email sent to %s with subject: %s", GlyphEmail, to, subject),
	}
}

func eventCreated(title, date, tm string, r Receipt) Outcome {
	return Outcome{
		Tool:       toolCalendar,
		State:      StateSuccess,
		Status:     fmt.Sprintf("%s Event created: %s on %s at %s - %s", GlyphSuccess, title, date, tm, r.Link),
		ProviderID: r.ID,
		Link:       r.Link,
	}
}

func eventSimulated(title, date, tm string) Outcome {
	return Outcome{
		Tool:   toolCalendar,
		State:  StateSimulated,
		Status: fmt.Sprintf("%s [SIMULATED] Calendar event created: %s on %s at %s", GlyphCalendar, title, date, tm),
	}
}

func tweetPosted(id string) Outcome {
	link := tweetURL + id
	return Outcome{
		Tool:       toolTweet,
		State:      StateSuccess,
		Status:     fmt.Sprintf("%s Tweet posted: %s", GlyphSuccess, link),
		ProviderID: id,
		Link:       link,
	}
}

func tweetSimulated(text string) Outcome {
	return Outcome{
		Tool:   toolTweet,
		State:  StateSimulated,
		Status: fmt.Sprintf("%s [SIMULATED] Tweet posted: %s", GlyphTweet, util.Truncate(text, 100)),
	}
}

func tweetFreeTier(text string, err error) Outcome {
	return Outcome{
		Tool:   toolTweet,
		State:  StateSimulated,
		Status: fmt.Sprintf("%s [SIMULATED - Free Tier] Tweet: %s", GlyphTweet, util.Truncate(text, 100)),
		Error:  err.Error(),
	}
}

func unknownTool(name string) Outcome {
	return Outcome{
		Tool:   name,
		State:  StateFailed,
		Status: fmt.Sprintf("%s Unknown tool: %s", GlyphFailed, name),
		Error:  ErrUnknownTool.Error(),
	}
}
