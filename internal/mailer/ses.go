package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESAPI is the slice of the SES v2 client the mailer uses.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESMailer struct {
	client           SESAPI
	configurationSet string
}

func NewSESMailer(client SESAPI, configurationSet string) *SESMailer {
	return &SESMailer{client: client, configurationSet: configurationSet}
}

func (m *SESMailer) Send(ctx context.Context, e Email) error {
	if err := e.Validate(); err != nil {
		return err
	}

	body := &types.Body{}
	if e.TextBody != "" {
		body.Text = &types.Content{Data: aws.String(e.TextBody), Charset: aws.String("UTF-8")}
	}
	if e.HTMLBody != "" {
		body.Html = &types.Content{Data: aws.String(e.HTMLBody), Charset: aws.String("UTF-8")}
	}

	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(formatAddress(e.FromName, e.From)),
		Destination: &types.Destination{
			ToAddresses:  e.To,
			CcAddresses:  e.Cc,
			BccAddresses: e.Bcc,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(e.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	}
	if m.configurationSet != "" {
		in.ConfigurationSetName = aws.String(m.configurationSet)
	}

	if _, err := m.client.SendEmail(ctx, in); err != nil {
		return fmt.Errorf("ses: send: %w", err)
	}
	return nil
}
