package notify

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/sawpanic/pricewatch/internal/alerts"
	"github.com/sawpanic/pricewatch/internal/domain"
)

// Multi fans one triggered-alert event out to several channels. Every
// channel is attempted; failures are joined so the caller sees them all.
type Multi struct {
	channels []alerts.Notifier
}

// NewMulti combines notifiers into one.
func NewMulti(channels ...alerts.Notifier) *Multi {
	return &Multi{channels: channels}
}

// SendAlertTriggered delivers to each channel in order.
func (m *Multi) SendAlertTriggered(ctx context.Context, userID, symbol string, op domain.Operator, threshold, price decimal.Decimal) error {
	var errs []error
	for _, ch := range m.channels {
		if err := ch.SendAlertTriggered(ctx, userID, symbol, op, threshold, price); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
