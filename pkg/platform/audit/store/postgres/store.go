package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	audit "contactlink/pkg/platform/audit"
	txcontext "contactlink/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events land in the outbox table, inside the caller's transaction when one
// is carried in the context, and the relay publishes them to Kafka.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka.
type outboxPayload struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
	ContactID int64  `json:"contact_id"`
	PrimaryID int64  `json:"primary_id"`
	RequestID string `json:"request_id,omitempty"`
}

// Append writes an audit event to the outbox for publishing. Joining the
// open transaction means a rolled-back merge leaves no outbox entry.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	payload, err := json.Marshal(outboxPayload{
		ID:        eventID.String(),
		Action:    string(event.Action),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		ContactID: event.ContactID,
		PrimaryID: event.PrimaryID,
		RequestID: event.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO outbox (id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query, eventID, string(event.Action), payload, event.Timestamp); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}
