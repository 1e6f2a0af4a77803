package repository

import (
	"context"
	"database/sql"
	"errors"
)

// WebhookEventRepo remembers provider events that were fully processed so
// that redeliveries can be acknowledged without touching the domain
// tables again.
type WebhookEventRepo struct {
	db *sql.DB
}

func NewWebhookEventRepo(db *sql.DB) *WebhookEventRepo { return &WebhookEventRepo{db: db} }

// Processed reports whether the event was already recorded.
func (r *WebhookEventRepo) Processed(ctx context.Context, provider, eventID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM webhook_events WHERE provider = ? AND provider_event_id = ?", provider, eventID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// MarkProcessed records the event.  Recording an event twice is not an
// error.
func (r *WebhookEventRepo) MarkProcessed(ctx context.Context, provider, eventID, eventType string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO webhook_events (provider, provider_event_id, event_type) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE event_type = VALUES(event_type)`,
		provider, eventID, eventType)
	return err
}
