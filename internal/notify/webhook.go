// Package notify delivers triggered-alert messages to users.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sawpanic/pricewatch/internal/domain"
)

// ErrDelivery marks notification failures. The engine logs these and moves
// on: delivery errors never abort an evaluation cycle or roll back the
// triggered mark.
var ErrDelivery = errors.New("notification delivery failed")

// Webhook posts triggered-alert events to the platform's push gateway,
// which fans out to the user's registered channels (email, mobile push).
type Webhook struct {
	endpoint string
	httpc    *http.Client
}

// NewWebhook builds a webhook notifier for the given gateway endpoint.
func NewWebhook(endpoint string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: timeout},
	}
}

type triggeredEvent struct {
	UserID      string `json:"user_id"`
	Symbol      string `json:"symbol"`
	Operator    string `json:"operator"`
	Threshold   string `json:"threshold"`
	Price       string `json:"price"`
	TriggeredAt string `json:"triggered_at"`
}

// SendAlertTriggered posts one triggered-alert event.
func (w *Webhook) SendAlertTriggered(ctx context.Context, userID, symbol string, op domain.Operator, threshold, price decimal.Decimal) error {
	event := triggeredEvent{
		UserID:      userID,
		Symbol:      symbol,
		Operator:    string(op),
		Threshold:   threshold.String(),
		Price:       price.String(),
		TriggeredAt: time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: encode event: %v", ErrDelivery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: gateway returned %d", ErrDelivery, resp.StatusCode)
	}
	return nil
}
