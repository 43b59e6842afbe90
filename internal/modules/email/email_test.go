package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/config"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/mailer"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/money"
)

func TestMailerAdapter_Send(t *testing.T) {
	m := &mailer.Mock{}
	s := NewMailerAdapter(m, "no-reply@microshop.local", "MicroShop")

	require.NoError(t, s.Send(context.Background(), " alice@example.com ", "Hi", "<p>hi</p>"))

	sent := m.Emails()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"alice@example.com"}, sent[0].To)
	assert.Equal(t, "no-reply@microshop.local", sent[0].From)
	assert.Equal(t, "MicroShop", sent[0].FromName)
	assert.Equal(t, "<p>hi</p>", sent[0].HTMLBody)
}

func TestMailerAdapter_EmptyRecipient(t *testing.T) {
	m := &mailer.Mock{}
	err := NewMailerAdapter(m, "a@b", "").Send(context.Background(), "  ", "Hi", "x")
	assert.Error(t, err)
	assert.Empty(t, m.Emails())
}

func TestVerificationHTML(t *testing.T) {
	html, err := VerificationHTML("https://shop.local/verify?token=a&b=1")
	require.NoError(t, err)
	assert.Contains(t, html, "Welcome to MicroShop")
	assert.Contains(t, html, `href="https://shop.local/verify?token=a&amp;b=1"`)
}

func TestVerificationHTML_RejectsScriptURL(t *testing.T) {
	html, err := VerificationHTML(`javascript:alert(1)`)
	require.NoError(t, err)
	assert.Contains(t, html, `href="#ZgotmplZ"`)
}

func TestPaymentConfirmedHTML(t *testing.T) {
	html, err := PaymentConfirmedHTML("42", money.MustParse("30"))
	require.NoError(t, err)
	assert.Contains(t, html, "Order <b>#42</b> is paid.")
	assert.Contains(t, html, "Total: <b>$30.00</b>")
}

func TestNewMailer_Backends(t *testing.T) {
	ctx := context.Background()
	base := func() *config.Config {
		return &config.Config{
			Mail: config.MailConfig{From: "no-reply@microshop.local"},
			SMTP: config.SMTPConfig{Host: "mailhog", Port: "1025"},
		}
	}

	cfg := base()
	m, err := NewMailer(ctx, cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &mailer.SMTPMailer{}, m)

	cfg = base()
	cfg.Mail.Backend = "log"
	m, err = NewMailer(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &mailer.LogMailer{}, m)

	cfg = base()
	cfg.Mail.Backend = "mailtrap"
	_, err = NewMailer(ctx, cfg, nil)
	assert.ErrorIs(t, err, mailer.ErrNotConfigured)

	cfg.Mailtrap = config.MailtrapConfig{APIURL: "https://sandbox.api.mailtrap.io/api/send/1", APIToken: "t"}
	m, err = NewMailer(ctx, cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &mailer.MailtrapMailer{}, m)

	cfg = base()
	cfg.SMTP.Host = ""
	_, err = NewMailer(ctx, cfg, nil)
	assert.ErrorIs(t, err, mailer.ErrNotConfigured)

	cfg = base()
	cfg.Mail.Backend = "pigeon"
	_, err = NewMailer(ctx, cfg, nil)
	assert.ErrorContains(t, err, "pigeon")
}

func TestNewSender_UsesConfiguredFrom(t *testing.T) {
	cfg := &config.Config{Mail: config.MailConfig{Backend: "log", From: "shop@x", FromName: "Shop"}}
	s, err := NewSender(context.Background(), cfg, nil)
	require.NoError(t, err)
	a, ok := s.(*MailerAdapter)
	require.True(t, ok)
	assert.Equal(t, "shop@x", a.fromAddr)
}
