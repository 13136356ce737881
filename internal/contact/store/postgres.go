package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"contactlink/internal/contact/models"
	"contactlink/pkg/platform/sentinel"
)

// queryer is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// the same store code serves both the plain and the transaction-bound form.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists contacts in PostgreSQL.
type PostgresStore struct {
	q queryer
}

// NewPostgres constructs a PostgreSQL-backed contact store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{q: db}
}

// NewPostgresTx binds a store to an open transaction. Every mutation of one
// identify request runs through such a store so partial merges can never be
// committed.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{q: tx}
}

const contactColumns = `id, email, phone_number, linked_id, link_precedence, created_at, updated_at, deleted_at`

// FindByEmailOrPhone returns non-deleted contacts whose email or phone
// exactly matches a supplied identifier, ordered (created_at, id). NULL
// parameters fall out of the predicate because SQL equality with NULL is
// never true.
func (s *PostgresStore) FindByEmailOrPhone(ctx context.Context, email, phoneNumber *string) ([]*models.Contact, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE deleted_at IS NULL
		  AND (email = $1 OR phone_number = $2)
		ORDER BY created_at, id
	`
	rows, err := s.q.QueryContext(ctx, query, nullString(email), nullString(phoneNumber))
	if err != nil {
		return nil, fmt.Errorf("find contacts by identifier: %w", err)
	}
	defer rows.Close()
	return scanContacts(rows)
}

// FindByPrimaryIDs returns every non-deleted row whose id or linked_id is in
// the given primary-id set, ordered (created_at, id).
func (s *PostgresStore) FindByPrimaryIDs(ctx context.Context, primaryIDs []int64) ([]*models.Contact, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE deleted_at IS NULL
		  AND (id = ANY($1) OR linked_id = ANY($1))
		ORDER BY created_at, id
	`
	rows, err := s.q.QueryContext(ctx, query, pq.Array(primaryIDs))
	if err != nil {
		return nil, fmt.Errorf("find cluster members: %w", err)
	}
	defer rows.Close()
	return scanContacts(rows)
}

// Create inserts the contact and fills its id. The insert refuses a
// secondary whose linked_id is not an active primary, enforcing the
// one-level-of-indirection invariant in the store itself.
func (s *PostgresStore) Create(ctx context.Context, contact *models.Contact) error {
	if contact.Email == nil && contact.PhoneNumber == nil {
		return sentinel.ErrConflict
	}
	query := `
		INSERT INTO contacts (email, phone_number, linked_id, link_precedence, created_at, updated_at)
		SELECT $1, $2, $3, $4, $5, $5
		WHERE $3::bigint IS NULL
		   OR EXISTS (
			SELECT 1 FROM contacts
			WHERE id = $3 AND link_precedence = 'primary' AND deleted_at IS NULL
		   )
		RETURNING id
	`
	err := s.q.QueryRowContext(ctx, query,
		nullString(contact.Email),
		nullString(contact.PhoneNumber),
		nullInt64(contact.LinkedID),
		string(contact.LinkPrecedence),
		contact.CreatedAt,
	).Scan(&contact.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	contact.UpdatedAt = contact.CreatedAt
	return nil
}

// DemoteToSecondary turns a primary into a secondary of newPrimaryID.
func (s *PostgresStore) DemoteToSecondary(ctx context.Context, contactID, newPrimaryID int64, now time.Time) error {
	query := `
		UPDATE contacts
		SET link_precedence = 'secondary', linked_id = $2, updated_at = $3
		WHERE id = $1
		  AND deleted_at IS NULL
		  AND EXISTS (
			SELECT 1 FROM contacts target
			WHERE target.id = $2 AND target.link_precedence = 'primary' AND target.deleted_at IS NULL
		  )
	`
	res, err := s.q.ExecContext(ctx, query, contactID, newPrimaryID, now)
	if err != nil {
		return fmt.Errorf("demote contact %d: %w", contactID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("demote contact %d: %w", contactID, err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

// RelinkSecondaries re-points every dependent of oldPrimaryID directly at
// newPrimaryID so no chain survives a merge.
func (s *PostgresStore) RelinkSecondaries(ctx context.Context, oldPrimaryID, newPrimaryID int64, now time.Time) error {
	query := `
		UPDATE contacts
		SET linked_id = $2, updated_at = $3
		WHERE linked_id = $1 AND deleted_at IS NULL
	`
	if _, err := s.q.ExecContext(ctx, query, oldPrimaryID, newPrimaryID, now); err != nil {
		return fmt.Errorf("relink secondaries of %d: %w", oldPrimaryID, err)
	}
	return nil
}

// Ping runs a trivial query as the liveness probe.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if _, err := s.q.ExecContext(ctx, `SELECT 1`); err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func scanContacts(rows *sql.Rows) ([]*models.Contact, error) {
	var contacts []*models.Contact
	for rows.Next() {
		var (
			c          models.Contact
			email      sql.NullString
			phone      sql.NullString
			linkedID   sql.NullInt64
			precedence string
			deletedAt  sql.NullTime
		)
		err := rows.Scan(&c.ID, &email, &phone, &linkedID, &precedence, &c.CreatedAt, &c.UpdatedAt, &deletedAt)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		if email.Valid {
			c.Email = &email.String
		}
		if phone.Valid {
			c.PhoneNumber = &phone.String
		}
		if linkedID.Valid {
			c.LinkedID = &linkedID.Int64
		}
		if deletedAt.Valid {
			c.DeletedAt = &deletedAt.Time
		}
		c.LinkPrecedence = models.LinkPrecedence(precedence)
		contacts = append(contacts, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return contacts, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func nullInt64(value *int64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *value, Valid: true}
}
