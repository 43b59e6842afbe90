package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/apperr"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/money"
)

// RemoteOrder is the part of the order service's view the saga needs.
type RemoteOrder struct {
	ID        uint64
	Status    string
	Total     money.Amount
	UserEmail string
}

// OrderClient talks to the order service on behalf of the caller.
type OrderClient interface {
	FetchOrder(ctx context.Context, orderID uint64, token string) (RemoteOrder, error)
	MarkPaid(ctx context.Context, orderID uint64, token string) error
}

type HTTPOrderClient struct {
	baseURL      string
	markPaidPath string
	client       *http.Client
	timeout      time.Duration
}

// NewHTTPOrderClient builds the client. markPaidPath may contain
// {order_id}; an empty path turns MarkPaid into a no-op.
func NewHTTPOrderClient(baseURL, markPaidPath string, timeout time.Duration, client *http.Client) *HTTPOrderClient {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPOrderClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		markPaidPath: markPaidPath,
		client:       client,
		timeout:      timeout,
	}
}

type remoteOrderBody struct {
	ID        uint64        `json:"id"`
	Status    *string       `json:"status"`
	Total     *money.Amount `json:"total"`
	UserEmail string        `json:"user_email"`
}

func (c *HTTPOrderClient) FetchOrder(ctx context.Context, orderID uint64, token string) (RemoteOrder, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/orders/%d", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return RemoteOrder{}, apperr.Wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	setBearer(req, token)

	resp, err := c.client.Do(req)
	if err != nil {
		return RemoteOrder{}, apperr.UpstreamUnavailableErr("Order service unavailable",
			fmt.Errorf("%w: %v", ErrOrderUnavailable, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return RemoteOrder{}, apperr.UnauthorizedErr("Unauthorized to access order").
			WithCause(fmt.Errorf("%w: status %d", ErrOrderUnauthorized, resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return RemoteOrder{}, apperr.NotFoundErr("Order not found").
			WithCause(fmt.Errorf("%w: status %d", ErrOrderNotFound, resp.StatusCode))
	}

	var body remoteOrderBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return RemoteOrder{}, apperr.BadUpstreamErr("Bad response from order service",
			fmt.Errorf("%w: %v", ErrBadOrderResponse, err))
	}
	if body.Status == nil || body.Total == nil {
		return RemoteOrder{}, apperr.BadUpstreamErr("Bad response from order service",
			fmt.Errorf("%w: missing status or total", ErrBadOrderResponse))
	}

	id := body.ID
	if id == 0 {
		id = orderID
	}
	return RemoteOrder{ID: id, Status: *body.Status, Total: *body.Total, UserEmail: body.UserEmail}, nil
}

// MarkPaid makes one attempt on the configured path and, when that path
// is not supported (404/405), one PATCH {"status":"PAID"}. No retries.
func (c *HTTPOrderClient) MarkPaid(ctx context.Context, orderID uint64, token string) error {
	if c.markPaidPath == "" {
		return ErrMarkPaidDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	path := strings.ReplaceAll(c.markPaidPath, "{order_id}", strconv.FormatUint(orderID, 10))
	status, err := c.send(ctx, http.MethodPost, c.baseURL+path, token, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound || status == http.StatusMethodNotAllowed {
		status, err = c.send(ctx, http.MethodPatch,
			fmt.Sprintf("%s/orders/%d", c.baseURL, orderID), token, []byte(`{"status":"PAID"}`))
		if err != nil {
			return err
		}
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("order service: mark paid %d: status %d", orderID, status)
	}
	return nil
}

func (c *HTTPOrderClient) send(ctx context.Context, method, url, token string, body []byte) (int, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	setBearer(req, token)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %v", ErrOrderUnavailable, method, url, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func setBearer(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
