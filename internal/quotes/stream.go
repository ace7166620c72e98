package quotes

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/sawpanic/pricewatch/internal/alerts"
	"github.com/sawpanic/pricewatch/internal/domain"
)

// Stream maintains a live quote cache fed by the brokerage websocket feed.
// It serves GetLatestQuotes from memory and falls back to the REST source
// for symbols the feed has not delivered yet, which keeps evaluation cycles
// fast once the cache is warm without ever blocking on an empty cache.
type Stream struct {
	url      string
	fallback alerts.QuoteSource

	mu    sync.RWMutex
	cache map[string]domain.Quote
}

// NewStream builds a stream around a websocket URL and a REST fallback.
func NewStream(url string, fallback alerts.QuoteSource) *Stream {
	return &Stream{
		url:      url,
		fallback: fallback,
		cache:    make(map[string]domain.Quote),
	}
}

type streamMessage struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
	Bid    string `json:"bid"`
	Ask    string `json:"ask"`
}

// Run consumes the feed until ctx is cancelled, reconnecting with a flat
// backoff on any read or dial failure.
func (s *Stream) Run(ctx context.Context) {
	const backoff = 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.consume(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("url", s.url).Msg("quote stream disconnected, reconnecting")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

func (s *Stream) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// The watchdog must not outlive this connection, or a flapping feed
	// would pile up one blocked goroutine per reconnect.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	log.Info().Str("url", s.url).Msg("quote stream connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg streamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Msg("skipping malformed stream message")
			continue
		}
		s.apply(msg)
	}
}

// apply updates the cache from one feed message. Non-quote frames and
// unparsable prices are ignored.
func (s *Stream) apply(msg streamMessage) {
	if msg.Type != "quote" || msg.Symbol == "" {
		return
	}
	quote, err := parseQuote(msg)
	if err != nil {
		log.Debug().Err(err).Str("symbol", msg.Symbol).Msg("skipping unparsable quote frame")
		return
	}
	s.mu.Lock()
	s.cache[msg.Symbol] = quote
	s.mu.Unlock()
}

func parseQuote(msg streamMessage) (domain.Quote, error) {
	bid, err := decimal.NewFromString(msg.Bid)
	if err != nil {
		return domain.Quote{}, err
	}
	ask, err := decimal.NewFromString(msg.Ask)
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{Symbol: msg.Symbol, Bid: bid, Ask: ask}, nil
}

// GetLatestQuotes serves cached quotes and fetches only cache misses from
// the REST fallback. A fallback failure is only an error when the cache
// could not satisfy any of the requested symbols.
func (s *Stream) GetLatestQuotes(ctx context.Context, symbols []string) (map[string]domain.Quote, error) {
	out := make(map[string]domain.Quote, len(symbols))
	var missing []string

	s.mu.RLock()
	for _, sym := range symbols {
		if q, ok := s.cache[sym]; ok {
			out[sym] = q
		} else {
			missing = append(missing, sym)
		}
	}
	s.mu.RUnlock()

	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := s.fallback.GetLatestQuotes(ctx, missing)
	if err != nil {
		if len(out) > 0 {
			log.Warn().Err(err).Strs("symbols", missing).Msg("rest fallback failed, serving cached quotes only")
			return out, nil
		}
		return nil, err
	}
	for sym, q := range fetched {
		out[sym] = q
	}
	return out, nil
}
