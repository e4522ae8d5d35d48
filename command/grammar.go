package command

import (
	"strings"
)

// Kind enumerates the built-in tool command kinds.
type Kind int

const (
	// KindEmail is the SEND_EMAIL command.
	KindEmail Kind = iota
	// KindCalendar is the CREATE_EVENT command.
	KindCalendar
	// KindTweet is the POST_TWEET command.
	KindTweet
	// KindCall is the CALL_TOOL command dispatching to a named tool.
	KindCall
)

// Kinds lists every built-in tool kind in execution priority order.
var Kinds = []Kind{KindEmail, KindCalendar, KindTweet}

type form struct {
	keyword  string
	tool     string
	name     string
	params   []string
	trailing bool // last parameter runs to the next keyword line
}

var forms = map[Kind]form{
	KindEmail:    {keyword: "SEND_EMAIL", tool: "send_email", name: "email", params: []string{"to", "subject", "body"}, trailing: true},
	KindCalendar: {keyword: "CREATE_EVENT", tool: "create_calendar_event", name: "calendar", params: []string{"title", "date", "time"}},
	KindTweet:    {keyword: "POST_TWEET", tool: "post_tweet", name: "tweet", params: []string{"text"}, trailing: true},
	KindCall:     {keyword: "CALL_TOOL", name: "call", params: []string{"name", "args"}, trailing: true},
}

// String returns the short kind name ("email", "calendar", "tweet").
func (k Kind) String() string {
	if f, ok := forms[k]; ok {
		return f.name
	}
	return "unknown"
}

// Keyword returns the command keyword, e.g. SEND_EMAIL.
func (k Kind) Keyword() string { return forms[k].keyword }

// ToolName returns the registry name used for out-of-band dispatch. It is
// empty for KindCall, whose target is named by the command itself.
func (k Kind) ToolName() string { return forms[k].tool }

// Params returns the ordered parameter names of the command.
func (k Kind) Params() []string { return append([]string(nil), forms[k].params...) }

// KindForTool resolves a registry tool name to its Kind.
func KindForTool(name string) (Kind, bool) {
	for _, k := range Kinds {
		if forms[k].tool == name {
			return k, true
		}
	}
	return 0, false
}

// Command is one command recognized in a text.
type Command struct {
	Kind   Kind
	Params map[string]string
	// Span is the exact source text matched, Start/End its byte offsets.
	Span  string
	Start int
	End   int
}

// Scan returns all non-overlapping commands of kind k in text, left to right.
func Scan(text string, k Kind) []Command {
	f, ok := forms[k]
	if !ok {
		return nil
	}

	var out []Command

	pos := 0
	for pos < len(text) {
		idx := strings.Index(text[pos:], f.keyword)
		if idx < 0 {
			break
		}

		start := pos + idx
		if cmd, ok := f.match(text, start); ok {
			cmd.Kind = k
			out = append(out, cmd)
			pos = cmd.End
			continue
		}

		pos = start + 1
	}

	return out
}

// match tries to read a complete command of form f starting at start.
func (f form) match(text string, start int) (Command, bool) {
	if start > 0 && isKeywordByte(text[start-1]) {
		return Command{}, false
	}

	i := start + len(f.keyword)
	if i >= len(text) || text[i] != ':' {
		return Command{}, false
	}
	i++

	params := make(map[string]string, len(f.params))
	end := i

	for n, name := range f.params {
		i = skipBlank(text, i)
		if !strings.HasPrefix(text[i:], name) {
			return Command{}, false
		}
		i = skipBlank(text, i+len(name))
		if i >= len(text) || text[i] != '=' {
			return Command{}, false
		}
		i = skipBlank(text, i+1)

		last := n == len(f.params)-1

		var stop int
		switch {
		case last && f.trailing:
			stop = nextKeywordLine(text, i)
		default:
			stop = i + strings.IndexAny(text[i:]+"\n", "|\n")
		}

		value, valueEnd := trim(text, i, stop)
		if value == "" {
			return Command{}, false
		}
		params[name] = value
		end = valueEnd

		if !last {
			if stop >= len(text) || text[stop] != '|' {
				return Command{}, false
			}
			i = stop + 1
		}
	}

	return Command{Params: params, Span: text[start:end], Start: start, End: end}, true
}

// nextKeywordLine returns the offset of the newline that precedes the next
// keyword line after i, or len(text).
func nextKeywordLine(text string, i int) int {
	for {
		nl := strings.IndexByte(text[i:], '\n')
		if nl < 0 {
			return len(text)
		}

		at := i + nl
		if isKeywordLine(text[at+1:]) {
			return at
		}
		i = at + 1
	}
}

func isKeywordLine(s string) bool {
	n := 0
	for n < len(s) && isKeywordByte(s[n]) {
		n++
	}
	return n > 0 && n < len(s) && s[n] == ':'
}

func isKeywordByte(b byte) bool { return (b >= 'A' && b <= 'Z') || b == '_' }

func skipBlank(text string, i int) int {
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	return i
}

// trim returns text[from:to] without surrounding whitespace and the offset
// just past its last non-space byte.
func trim(text string, from, to int) (string, int) {
	raw := text[from:to]
	right := strings.TrimRight(raw, " \t\r\n")
	return strings.TrimLeft(right, " \t\r\n"), from + len(right)
}
