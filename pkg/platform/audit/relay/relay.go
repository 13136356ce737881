// Package relay drains the audit outbox into Kafka. The outbox insert is
// part of each cluster-write transaction, so the relay can publish
// at-least-once without ever observing an aborted mutation.
package relay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

const defaultPollInterval = time.Second

// batchSize bounds one drain pass so a backlog cannot monopolize a tick.
const batchSize = 100

// Relay polls unpublished outbox rows and produces them to a Kafka topic.
type Relay struct {
	db       *sql.DB
	client   *kgo.Client
	topic    string
	logger   *slog.Logger
	interval time.Duration
}

// New constructs a relay. Brokers are dialed lazily by franz-go; EnsureTopic
// should be called once before Run.
func New(db *sql.DB, brokers []string, topic string, logger *slog.Logger) (*Relay, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Relay{
		db:       db,
		client:   client,
		topic:    topic,
		logger:   logger,
		interval: defaultPollInterval,
	}, nil
}

// EnsureTopic creates the audit topic when it does not exist yet.
func (r *Relay) EnsureTopic(ctx context.Context) error {
	adm := kadm.NewClient(r.client)
	resp, err := adm.CreateTopic(ctx, 1, 1, nil, r.topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create audit topic: %w", resp.Err)
	}
	return nil
}

// Run drains the outbox until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drainOnce(ctx); err != nil {
				// Publishing is at-least-once; unpublished rows are retried
				// on the next tick.
				if r.logger != nil {
					r.logger.WarnContext(ctx, "audit relay drain failed", "error", err.Error())
				}
			}
		}
	}
}

// Close flushes and releases the Kafka client.
func (r *Relay) Close() {
	r.client.Close()
}

type outboxRow struct {
	id      uuid.UUID
	payload []byte
}

func (r *Relay) drainOnce(ctx context.Context) error {
	rows, err := r.fetchUnpublished(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, &kgo.Record{
			Topic: r.topic,
			Key:   []byte(row.id.String()),
			Value: row.payload,
		})
	}
	if err := r.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit events: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.id)
	}
	return r.markPublished(ctx, ids)
}

func (r *Relay) fetchUnpublished(ctx context.Context) ([]outboxRow, error) {
	query := `
		SELECT id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, batchSize)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox entries: %w", err)
	}
	defer rows.Close()

	var out []outboxRow
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.id, &row.payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return out, nil
}

func (r *Relay) markPublished(ctx context.Context, ids []uuid.UUID) error {
	query := `
		UPDATE outbox
		SET published_at = $2
		WHERE id = ANY($1)
	`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids), time.Now()); err != nil {
		return fmt.Errorf("mark outbox entries published: %w", err)
	}
	return nil
}
