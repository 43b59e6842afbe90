// Package mailer delivers fully formed emails over SMTP, the Mailtrap
// HTTP API or Amazon SES. Callers pick one Service at startup.
package mailer

import "context"

type Service interface {
	Send(ctx context.Context, e Email) error
}

type Email struct {
	FromName string
	From     string

	To  []string
	Cc  []string
	Bcc []string

	Subject string

	TextBody string
	HTMLBody string

	Headers map[string]string
}

func (e Email) AllRecipients() []string {
	out := make([]string, 0, len(e.To)+len(e.Cc)+len(e.Bcc))
	out = append(out, e.To...)
	out = append(out, e.Cc...)
	out = append(out, e.Bcc...)
	return out
}

// Validate checks what every backend needs before it talks to anyone.
func (e Email) Validate() error {
	switch {
	case len(e.To) == 0:
		return ErrNoRecipient
	case e.From == "":
		return ErrNoSender
	case e.Subject == "":
		return ErrNoSubject
	case e.TextBody == "" && e.HTMLBody == "":
		return ErrNoBody
	}
	return nil
}
