package email

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"go.uber.org/zap"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/config"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/mailer"
)

// NewMailer picks the delivery backend named by MAIL_BACKEND.
func NewMailer(ctx context.Context, cfg *config.Config, log *zap.Logger) (mailer.Service, error) {
	switch strings.ToLower(cfg.Mail.Backend) {
	case "", "smtp":
		if cfg.SMTP.Host == "" {
			return nil, fmt.Errorf("%w: SMTP_HOST is not set", mailer.ErrNotConfigured)
		}
		return mailer.NewSMTPMailer(cfg.SMTP), nil
	case "mailtrap":
		return mailer.NewMailtrapMailer(cfg.Mailtrap, &http.Client{Timeout: 10 * time.Second})
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("email: aws config: %w", err)
		}
		return mailer.NewSESMailer(sesv2.NewFromConfig(awsCfg), cfg.SES.ConfigurationSet), nil
	case "log":
		return mailer.NewLogMailer(log), nil
	default:
		return nil, fmt.Errorf("email: unknown MAIL_BACKEND %q", cfg.Mail.Backend)
	}
}

func NewSender(ctx context.Context, cfg *config.Config, log *zap.Logger) (Sender, error) {
	m, err := NewMailer(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return NewMailerAdapter(m, cfg.Mail.From, cfg.Mail.FromName), nil
}
