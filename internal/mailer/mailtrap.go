package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/config"
)

// MailtrapMailer posts to the Mailtrap send API.
type MailtrapMailer struct {
	apiURL string
	token  string
	client *http.Client
}

func NewMailtrapMailer(cfg config.MailtrapConfig, client *http.Client) (*MailtrapMailer, error) {
	if cfg.APIURL == "" || cfg.APIToken == "" {
		return nil, fmt.Errorf("%w: MAILTRAP_API_URL and MAILTRAP_API_TOKEN required", ErrNotConfigured)
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &MailtrapMailer{apiURL: cfg.APIURL, token: cfg.APIToken, client: client}, nil
}

type mailtrapAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailtrapPayload struct {
	From     mailtrapAddress   `json:"from"`
	To       []mailtrapAddress `json:"to"`
	Cc       []mailtrapAddress `json:"cc,omitempty"`
	Bcc      []mailtrapAddress `json:"bcc,omitempty"`
	Subject  string            `json:"subject"`
	Text     string            `json:"text,omitempty"`
	HTML     string            `json:"html,omitempty"`
	Category string            `json:"category,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
}

func addresses(in []string) []mailtrapAddress {
	if len(in) == 0 {
		return nil
	}
	out := make([]mailtrapAddress, len(in))
	for i, a := range in {
		out[i] = mailtrapAddress{Email: a}
	}
	return out
}

func (m *MailtrapMailer) Send(ctx context.Context, e Email) error {
	if err := e.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(mailtrapPayload{
		From:     mailtrapAddress{Email: e.From, Name: e.FromName},
		To:       addresses(e.To),
		Cc:       addresses(e.Cc),
		Bcc:      addresses(e.Bcc),
		Subject:  e.Subject,
		Text:     e.TextBody,
		HTML:     e.HTMLBody,
		Category: "Transactional",
		Headers:  e.Headers,
	})
	if err != nil {
		return fmt.Errorf("mailtrap: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mailtrap: request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.token)
	req.Header.Set("Content-Type", "application/json")

	res, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mailtrap: send: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("mailtrap: status %d: %s", res.StatusCode, bytes.TrimSpace(snippet))
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}
