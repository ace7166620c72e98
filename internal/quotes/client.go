// Package quotes retrieves best bid/ask prices from the brokerage provider.
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sawpanic/pricewatch/internal/domain"
)

// ErrUnavailable marks transient provider failures (network errors, 5xx,
// open circuit). Callers treat it as a per-cycle skip, not a fatal fault.
var ErrUnavailable = errors.New("quote source unavailable")

// ClientConfig holds the REST quote client settings.
type ClientConfig struct {
	BaseURL string
	APIKey  string

	// RateLimit is requests per second against the provider; Burst allows
	// short spikes when many user groups are evaluated in one cycle.
	RateLimit float64
	Burst     int

	Timeout time.Duration
}

// Client is the HTTP quote source. Requests are rate limited and wrapped in
// a circuit breaker so a degraded provider sheds load fast instead of
// stalling every evaluation cycle on timeouts.
type Client struct {
	cfg     ClientConfig
	httpc   *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewClient builds a quote client with sane defaults for zero-valued config.
func NewClient(cfg ClientConfig) *Client {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "quotes",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		breaker: breaker,
	}
}

type quotePayload struct {
	Symbol string `json:"symbol"`
	Bid    string `json:"bid"`
	Ask    string `json:"ask"`
}

type quotesResponse struct {
	Quotes []quotePayload `json:"quotes"`
}

// GetLatestQuotes fetches best bid/ask for the symbol batch in one request.
// Symbols the provider does not know are absent from the result map.
func (c *Client) GetLatestQuotes(ctx context.Context, symbols []string) (map[string]domain.Quote, error) {
	if len(symbols) == 0 {
		return map[string]domain.Quote{}, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, symbols)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		return nil, err
	}
	return result.(map[string]domain.Quote), nil
}

func (c *Client) fetch(ctx context.Context, symbols []string) (map[string]domain.Quote, error) {
	endpoint := fmt.Sprintf("%s/v1/quotes?symbols=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.QueryEscape(strings.Join(symbols, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: provider returned %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("quote request failed with status %d", resp.StatusCode)
	}

	var payload quotesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}

	quotes := make(map[string]domain.Quote, len(payload.Quotes))
	for _, q := range payload.Quotes {
		bid, err := decimal.NewFromString(q.Bid)
		if err != nil {
			return nil, fmt.Errorf("quote %s: bad bid %q: %w", q.Symbol, q.Bid, err)
		}
		ask, err := decimal.NewFromString(q.Ask)
		if err != nil {
			return nil, fmt.Errorf("quote %s: bad ask %q: %w", q.Symbol, q.Ask, err)
		}
		quotes[q.Symbol] = domain.Quote{Symbol: q.Symbol, Bid: bid, Ask: ask}
	}
	return quotes, nil
}
