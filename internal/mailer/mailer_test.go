package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/config"
)

func sample() Email {
	return Email{
		FromName: "MicroShop",
		From:     "no-reply@microshop.local",
		To:       []string{"alice@example.com"},
		Subject:  "Payment confirmed - MicroShop",
		TextBody: "Order #7 paid",
		HTMLBody: "<p>Order #7 paid</p>",
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		mut  func(*Email)
		want error
	}{
		"no recipient": {func(e *Email) { e.To = nil }, ErrNoRecipient},
		"no sender":    {func(e *Email) { e.From = "" }, ErrNoSender},
		"no subject":   {func(e *Email) { e.Subject = "" }, ErrNoSubject},
		"no body":      {func(e *Email) { e.TextBody, e.HTMLBody = "", "" }, ErrNoBody},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			e := sample()
			tc.mut(&e)
			assert.ErrorIs(t, e.Validate(), tc.want)
		})
	}
	assert.NoError(t, sample().Validate())
}

func TestBuildMIMEMessage_Alternative(t *testing.T) {
	e := sample()
	e.Cc = []string{"ops@example.com"}
	e.Headers = map[string]string{"X-Order-ID": "7"}

	raw, err := buildMIMEMessage(e, "microshop.local", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)

	assert.Contains(t, raw, "Date: Fri, 02 Jan 2026 03:04:05 +0000\r\n")
	assert.Contains(t, raw, "From: MicroShop <no-reply@microshop.local>\r\n")
	assert.Contains(t, raw, "To: alice@example.com\r\n")
	assert.Contains(t, raw, "Cc: ops@example.com\r\n")
	assert.Contains(t, raw, "X-Order-ID: 7\r\n")
	assert.Contains(t, raw, "@microshop.local>\r\n")
	assert.Contains(t, raw, "multipart/alternative")

	text := strings.Index(raw, "text/plain")
	html := strings.Index(raw, "text/html")
	require.Positive(t, text)
	assert.Greater(t, html, text)
	assert.True(t, strings.HasSuffix(raw, "--\r\n"))
}

func TestBuildMIMEMessage_SinglePart(t *testing.T) {
	e := sample()
	e.TextBody = ""
	raw, err := buildMIMEMessage(e, "x", time.Now())
	require.NoError(t, err)
	assert.NotContains(t, raw, "multipart")
	assert.Contains(t, raw, "Content-Type: text/html; charset=UTF-8\r\n")
}

func TestBuildMIMEMessage_EncodesNonASCIISubject(t *testing.T) {
	e := sample()
	e.Subject = "Zahlung bestätigt"
	raw, err := buildMIMEMessage(e, "x", time.Now())
	require.NoError(t, err)
	assert.Contains(t, raw, "Subject: =?utf-8?q?")
}

func TestMailtrap_Send(t *testing.T) {
	var (
		auth string
		got  mailtrapPayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"success":true}`)
	}))
	defer srv.Close()

	m, err := NewMailtrapMailer(config.MailtrapConfig{APIURL: srv.URL, APIToken: "secret"}, srv.Client())
	require.NoError(t, err)
	require.NoError(t, m.Send(context.Background(), sample()))

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "no-reply@microshop.local", got.From.Email)
	assert.Equal(t, "MicroShop", got.From.Name)
	require.Len(t, got.To, 1)
	assert.Equal(t, "alice@example.com", got.To[0].Email)
	assert.Equal(t, "<p>Order #7 paid</p>", got.HTML)
}

func TestMailtrap_ErrorStatusFailsLoudly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"errors":["Unauthorized"]}`)
	}))
	defer srv.Close()

	m, err := NewMailtrapMailer(config.MailtrapConfig{APIURL: srv.URL, APIToken: "bad"}, srv.Client())
	require.NoError(t, err)
	err = m.Send(context.Background(), sample())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestMailtrap_RequiresConfig(t *testing.T) {
	_, err := NewMailtrapMailer(config.MailtrapConfig{APIURL: "http://x"}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

type fakeSES struct {
	in  *sesv2.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestSES_Send(t *testing.T) {
	f := &fakeSES{}
	require.NoError(t, NewSESMailer(f, "microshop").Send(context.Background(), sample()))

	require.NotNil(t, f.in)
	assert.Equal(t, "MicroShop <no-reply@microshop.local>", aws.ToString(f.in.FromEmailAddress))
	assert.Equal(t, []string{"alice@example.com"}, f.in.Destination.ToAddresses)
	assert.Equal(t, "microshop", aws.ToString(f.in.ConfigurationSetName))
	assert.Equal(t, "Payment confirmed - MicroShop", aws.ToString(f.in.Content.Simple.Subject.Data))
	assert.Equal(t, "<p>Order #7 paid</p>", aws.ToString(f.in.Content.Simple.Body.Html.Data))
	assert.Equal(t, "Order #7 paid", aws.ToString(f.in.Content.Simple.Body.Text.Data))
}

func TestSES_NoConfigurationSet(t *testing.T) {
	f := &fakeSES{}
	require.NoError(t, NewSESMailer(f, "").Send(context.Background(), sample()))
	assert.Nil(t, f.in.ConfigurationSetName)
}

func TestSES_ErrorPropagates(t *testing.T) {
	f := &fakeSES{err: errors.New("MessageRejected")}
	err := NewSESMailer(f, "").Send(context.Background(), sample())
	assert.ErrorContains(t, err, "MessageRejected")
}

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	require.NoError(t, NewLogMailer(zap.New(core)).Send(context.Background(), sample()))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Payment confirmed - MicroShop", logs.All()[0].ContextMap()["subject"])

	assert.ErrorIs(t, NewLogMailer(nil).Send(context.Background(), Email{}), ErrNoRecipient)
}

func TestMock(t *testing.T) {
	m := &Mock{Err: errors.New("boom")}
	assert.Error(t, m.Send(context.Background(), sample()))
	assert.Len(t, m.Emails(), 1)
}
