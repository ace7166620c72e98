// Package postgres persists alert definitions and trigger state.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/sawpanic/pricewatch/internal/domain"
)

// AlertsRepo is the sqlx-backed alert store. It implements the evaluation
// engine's AlertStore port plus the CRUD the platform API needs around it.
type AlertsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewAlertsRepo wraps an open database handle.
func NewAlertsRepo(db *sqlx.DB, timeout time.Duration) *AlertsRepo {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AlertsRepo{db: db, timeout: timeout}
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// GetActiveAlerts returns every alert with active = true.
func (r *AlertsRepo) GetActiveAlerts(ctx context.Context) ([]domain.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, user_id, symbol, operator, threshold, active, last_triggered_at, created_at
		FROM alerts
		WHERE active = true`

	alerts := []domain.Alert{}
	if err := r.db.SelectContext(ctx, &alerts, query); err != nil {
		return nil, fmt.Errorf("select active alerts: %w", err)
	}
	return alerts, nil
}

// MarkTriggered stamps last_triggered_at with the database clock.
func (r *AlertsRepo) MarkTriggered(ctx context.Context, alertID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `UPDATE alerts SET last_triggered_at = now() WHERE id = $1`, alertID)
	if err != nil {
		return fmt.Errorf("mark alert %s triggered: %w", alertID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mark alert %s triggered: %w", alertID, sql.ErrNoRows)
	}
	return nil
}

// Create inserts a validated alert definition.
func (r *AlertsRepo) Create(ctx context.Context, alert domain.Alert) error {
	if err := alert.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO alerts (id, user_id, symbol, operator, threshold, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`

	if _, err := r.db.ExecContext(ctx, query,
		alert.ID, alert.UserID, alert.Symbol, alert.Operator, alert.Threshold, alert.Active); err != nil {
		return fmt.Errorf("insert alert %s: %w", alert.ID, err)
	}
	return nil
}

// Deactivate flips an alert off without deleting its history.
func (r *AlertsRepo) Deactivate(ctx context.Context, alertID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `UPDATE alerts SET active = false WHERE id = $1`, alertID)
	if err != nil {
		return fmt.Errorf("deactivate alert %s: %w", alertID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("deactivate alert %s: %w", alertID, sql.ErrNoRows)
	}
	return nil
}

// ListByUser returns all of a user's alerts, newest first.
func (r *AlertsRepo) ListByUser(ctx context.Context, userID string) ([]domain.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, user_id, symbol, operator, threshold, active, last_triggered_at, created_at
		FROM alerts
		WHERE user_id = $1
		ORDER BY created_at DESC`

	alerts := []domain.Alert{}
	if err := r.db.SelectContext(ctx, &alerts, query, userID); err != nil {
		return nil, fmt.Errorf("list alerts for user %s: %w", userID, err)
	}
	return alerts, nil
}
