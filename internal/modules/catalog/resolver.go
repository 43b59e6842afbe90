// Package catalog resolves current unit prices from the product service.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/apperr"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/money"
)

var (
	ErrProductNotAvailable = errors.New("product not available")
	ErrCatalogUnavailable  = errors.New("product service unavailable")
	ErrBadCatalogResponse  = errors.New("bad product service response")
)

// PriceResolver is what the order service depends on.
type PriceResolver interface {
	Resolve(ctx context.Context, productIDs []uint64) (map[uint64]money.Amount, error)
}

// HTTPResolver looks each product up with GET {base}/products/{id}.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	log     *zap.Logger
}

func NewHTTPResolver(baseURL string, timeout time.Duration, client *http.Client, log *zap.Logger) *HTTPResolver {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		timeout: timeout,
		log:     log,
	}
}

type productBody struct {
	Price *money.Amount `json:"price"`
}

// Resolve fetches every distinct id concurrently. The first failure
// cancels the remaining lookups and no partial map is returned.
func (r *HTTPResolver) Resolve(ctx context.Context, productIDs []uint64) (map[uint64]money.Amount, error) {
	var (
		mu     sync.Mutex
		prices = make(map[uint64]money.Amount, len(productIDs))
	)

	g, gctx := errgroup.WithContext(ctx)
	seen := make(map[uint64]bool, len(productIDs))
	for _, id := range productIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		id := id
		g.Go(func() error {
			p, err := r.lookup(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			prices[id] = p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return prices, nil
}

func (r *HTTPResolver) lookup(ctx context.Context, id uint64) (money.Amount, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/products/%d", r.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return money.Zero, apperr.Wrap(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Warn("price lookup failed", zap.Uint64("product_id", id), zap.Error(err))
		return money.Zero, apperr.UpstreamUnavailableErr("Product service unavailable",
			fmt.Errorf("%w: product %d: %v", ErrCatalogUnavailable, id, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return money.Zero, apperr.InvalidErr(fmt.Sprintf("Product %d not available", id), nil).
			WithCause(fmt.Errorf("%w: product %d: status %d", ErrProductNotAvailable, id, resp.StatusCode))
	}

	var body productBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return money.Zero, apperr.BadUpstreamErr("Bad response from product service",
			fmt.Errorf("%w: product %d: %v", ErrBadCatalogResponse, id, err))
	}
	if body.Price == nil || body.Price.IsNegative() {
		return money.Zero, apperr.BadUpstreamErr("Bad response from product service",
			fmt.Errorf("%w: product %d: missing price", ErrBadCatalogResponse, id))
	}
	return *body.Price, nil
}

// Static serves fixed prices. Local runs without a product service and
// tests use it.
type Static map[uint64]money.Amount

func (s Static) Resolve(_ context.Context, productIDs []uint64) (map[uint64]money.Amount, error) {
	out := make(map[uint64]money.Amount, len(productIDs))
	for _, id := range productIDs {
		p, ok := s[id]
		if !ok {
			return nil, apperr.InvalidErr(fmt.Sprintf("Product %d not available", id), nil).
				WithCause(fmt.Errorf("%w: product %d", ErrProductNotAvailable, id))
		}
		out[id] = p
	}
	return out, nil
}
