package mailer

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer writes emails to the log instead of delivering them.
type LogMailer struct{ log *zap.Logger }

func NewLogMailer(log *zap.Logger) *LogMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, e Email) error {
	if err := e.Validate(); err != nil {
		return err
	}
	m.log.Info("email (log backend)",
		zap.Strings("to", e.To),
		zap.String("subject", e.Subject),
		zap.Int("html_bytes", len(e.HTMLBody)),
		zap.String("text", e.TextBody),
	)
	return nil
}
