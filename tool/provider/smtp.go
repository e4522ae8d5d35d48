package provider

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/agentfactory/internal/util"
	"github.com/hupe1980/agentfactory/tool"
)

// SendMailFunc has the signature of smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPOptions configures SMTPEmail.
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// SendMail replaces smtp.SendMail, e.g. in tests.
	SendMail SendMailFunc
}

// SMTPEmail sends plain text email through an SMTP relay.
type SMTPEmail struct {
	opts SMTPOptions
}

// NewSMTPEmail creates an SMTPEmail.
func NewSMTPEmail(optFns ...func(o *SMTPOptions)) *SMTPEmail {
	opts := SMTPOptions{
		Port:     587,
		SendMail: smtp.SendMail,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &SMTPEmail{opts: opts}
}

// SendEmail implements tool.EmailSender.
func (s *SMTPEmail) SendEmail(ctx context.Context, msg tool.Email) (tool.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return tool.Receipt{}, err
	}

	if s.opts.Host == "" || s.opts.From == "" {
		return tool.Receipt{}, tool.ErrProviderUnavailable
	}

	recipients := splitRecipients(msg.To)
	if len(recipients) == 0 {
		return tool.Receipt{}, fmt.Errorf("no recipient")
	}

	id := util.NewID()
	domain := s.opts.Host
	if at := strings.LastIndex(s.opts.From, "@"); at >= 0 {
		domain = s.opts.From[at+1:]
	}
	messageID := fmt.Sprintf("<%s@%s>", id, domain)

	var auth smtp.Auth
	if s.opts.Username != "" {
		auth = smtp.PlainAuth("", s.opts.Username, s.opts.Password, s.opts.Host)
	}

	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	if err := s.opts.SendMail(addr, auth, s.opts.From, recipients, s.compose(msg, recipients, messageID)); err != nil {
		return tool.Receipt{}, fmt.Errorf("smtp send: %w", err)
	}

	return tool.Receipt{ID: id}, nil
}

func (s *SMTPEmail) compose(msg tool.Email, to []string, messageID string) []byte {
	var b strings.Builder

	header := func(k, v string) { b.WriteString(k + ": " + v + "\r\n") }

	header("From", s.opts.From)
	header("To", strings.Join(to, ", "))
	header("Subject", sanitizeHeader(msg.Subject))
	header("Date", time.Now().Format(time.RFC1123Z))
	header("Message-ID", messageID)
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))

	return []byte(b.String())
}

func splitRecipients(s string) []string {
	var out []string
	for _, r := range strings.FieldsFunc(s, func(c rune) bool { return c == ',' || c == ';' }) {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
