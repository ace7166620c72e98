package quotes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_GetLatestQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/quotes", r.URL.Path)
		assert.Equal(t, "AAPL,TSLA", r.URL.Query().Get("symbols"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"quotes":[
			{"symbol":"AAPL","bid":"150.50","ask":"150.60"},
			{"symbol":"TSLA","bid":"199.95","ask":"200.05"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "secret"})

	quotes, err := c.GetLatestQuotes(context.Background(), []string{"AAPL", "TSLA"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	aapl := quotes["AAPL"]
	assert.True(t, aapl.Bid.Equal(decimal.RequireFromString("150.50")))
	assert.True(t, aapl.Mid().Equal(decimal.RequireFromString("150.55")))
}

func TestClient_UnknownSymbolsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quotes":[{"symbol":"AAPL","bid":"150.50","ask":"150.60"}]}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})

	quotes, err := c.GetLatestQuotes(context.Background(), []string{"AAPL", "NOPE"})
	require.NoError(t, err)
	assert.Len(t, quotes, 1)
	_, ok := quotes["NOPE"]
	assert.False(t, ok)
}

func TestClient_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})

	_, err := c.GetLatestQuotes(context.Background(), []string{"AAPL"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable), "5xx should map to ErrUnavailable, got %v", err)
}

func TestClient_CircuitOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, RateLimit: 1000, Burst: 100})

	for i := 0; i < 5; i++ {
		_, err := c.GetLatestQuotes(context.Background(), []string{"AAPL"})
		require.Error(t, err)
	}

	// Breaker is now open: the request fails without reaching the server.
	_, err := c.GetLatestQuotes(context.Background(), []string{"AAPL"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestClient_EmptySymbolBatch(t *testing.T) {
	c := NewClient(ClientConfig{BaseURL: "http://unreachable.invalid"})

	quotes, err := c.GetLatestQuotes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestClient_BadDecimalRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quotes":[{"symbol":"AAPL","bid":"not-a-price","ask":"150.60"}]}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})

	_, err := c.GetLatestQuotes(context.Background(), []string{"AAPL"})
	require.Error(t, err)
}
