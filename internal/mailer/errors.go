package mailer

import "errors"

var (
	ErrNoRecipient   = errors.New("mailer: at least one recipient required")
	ErrNoSender      = errors.New("mailer: from address required")
	ErrNoSubject     = errors.New("mailer: subject required")
	ErrNoBody        = errors.New("mailer: text or html body required")
	ErrNotConfigured = errors.New("mailer: backend not configured")
)
