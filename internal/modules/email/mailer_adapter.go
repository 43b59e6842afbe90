// Package email renders MicroShop's transactional emails and hands them
// to whichever mailer backend is configured.
package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/mailer"
)

// Sender delivers one HTML email. A failed delivery is returned to the
// caller so the triggering event is retried.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// MailerAdapter turns a mailer.Service into a Sender with a fixed
// from address.
type MailerAdapter struct {
	mailer   mailer.Service
	fromAddr string
	fromName string
}

func NewMailerAdapter(m mailer.Service, fromAddr, fromName string) *MailerAdapter {
	return &MailerAdapter{mailer: m, fromAddr: fromAddr, fromName: fromName}
}

func (a *MailerAdapter) Send(ctx context.Context, to, subject, html string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("email: empty recipient")
	}
	return a.mailer.Send(ctx, mailer.Email{
		From:     a.fromAddr,
		FromName: a.fromName,
		To:       []string{to},
		Subject:  subject,
		HTMLBody: html,
	})
}
