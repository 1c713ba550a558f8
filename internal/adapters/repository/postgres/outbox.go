package postgres

import (
	"context"
	"database/sql"
	"sort"
	"time"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/port"

	"github.com/google/uuid"
)

const outboxColumns = `id, kind, aggregate_type, related_id, event_type, destination, payload, status, attempts,
	max_attempts, next_attempt_at, last_error, created_at, published_at, version`

type sqlOutboxRepository struct {
	db SQLQuerier
}

// NewSQLOutboxRepository creates a new sqlOutboxRepository
func NewSQLOutboxRepository(db SQLQuerier) port.OutboxRepository {
	return &sqlOutboxRepository{db: db}
}

func (s *sqlOutboxRepository) Create(ctx context.Context, entry domain.OutboxEntry) error {
	query := `
		INSERT INTO outbox (` + outboxColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 0)`

	_, err := s.db.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.Kind,
		entry.AggregateType,
		entry.RelatedID,
		entry.EventType,
		entry.Destination,
		string(entry.Payload),
		entry.Status,
		entry.Attempts,
		entry.MaxAttempts,
		entry.NextAttemptAt.UTC(),
		entry.LastError,
		entry.CreatedAt.UTC(),
		nullTime(entry.PublishedAt),
	)
	return err
}

// ClaimDue leases PENDING entries due at now, oldest first. The row locks taken by the inner
// select hold until the surrounding transaction ends, so a concurrent claim skips them.
func (s *sqlOutboxRepository) ClaimDue(ctx context.Context, now time.Time, leaseUntil time.Time, limit int) ([]domain.OutboxEntry, error) {
	query := `
		UPDATE outbox
		SET next_attempt_at = $2, version = version + 1
		WHERE id IN (
			SELECT id
			FROM outbox
			WHERE status = 'PENDING' AND next_attempt_at <= $1
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + outboxColumns
	entries, err := s.list(ctx, query, now.UTC(), leaseUntil.UTC(), limit)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

// Update writes the delivery state of an entry when its version is unchanged and bumps the version
func (s *sqlOutboxRepository) Update(ctx context.Context, entry *domain.OutboxEntry) error {
	query := `
		UPDATE outbox
		SET status = $1, attempts = $2, next_attempt_at = $3, last_error = $4, published_at = $5, version = version + 1
		WHERE id = $6 AND version = $7`

	err := versionedUpdate(ctx, s.db, "outbox", entry.ID, domain.ErrOutboxEntryNotFound, query,
		entry.Status,
		entry.Attempts,
		entry.NextAttemptAt.UTC(),
		entry.LastError,
		nullTime(entry.PublishedAt),
		entry.ID,
		entry.Version,
	)
	if err != nil {
		return err
	}
	entry.Version++
	return nil
}

func (s *sqlOutboxRepository) ListByRelatedID(ctx context.Context, relatedID uuid.UUID) ([]domain.OutboxEntry, error) {
	query := `SELECT ` + outboxColumns + ` FROM outbox WHERE related_id = $1 ORDER BY created_at`
	return s.list(ctx, query, relatedID)
}

func (s *sqlOutboxRepository) list(ctx context.Context, query string, args ...any) ([]domain.OutboxEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.OutboxEntry
	for rows.Next() {
		var row dbOutboxEntry
		if err := rows.Scan(
			&row.ID,
			&row.Kind,
			&row.AggregateType,
			&row.RelatedID,
			&row.EventType,
			&row.Destination,
			&row.Payload,
			&row.Status,
			&row.Attempts,
			&row.MaxAttempts,
			&row.NextAttemptAt,
			&row.LastError,
			&row.CreatedAt,
			&row.PublishedAt,
			&row.Version,
		); err != nil {
			return nil, err
		}
		entries = append(entries, row.ToDomain())
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

type dbOutboxEntry struct {
	ID            uuid.UUID    `db:"id"`
	Kind          string       `db:"kind"`
	AggregateType string       `db:"aggregate_type"`
	RelatedID     uuid.UUID    `db:"related_id"`
	EventType     string       `db:"event_type"`
	Destination   string       `db:"destination"`
	Payload       []byte       `db:"payload"`
	Status        string       `db:"status"`
	Attempts      int          `db:"attempts"`
	MaxAttempts   int          `db:"max_attempts"`
	NextAttemptAt time.Time    `db:"next_attempt_at"`
	LastError     string       `db:"last_error"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   sql.NullTime `db:"published_at"`
	Version       int64        `db:"version"`
}

// ToDomain converts db obj to domain
func (o *dbOutboxEntry) ToDomain() domain.OutboxEntry {
	entry := domain.OutboxEntry{
		ID:            o.ID,
		Kind:          domain.OutboxKind(o.Kind),
		AggregateType: domain.AggregateType(o.AggregateType),
		RelatedID:     o.RelatedID,
		EventType:     o.EventType,
		Destination:   o.Destination,
		Payload:       o.Payload,
		Status:        domain.OutboxStatus(o.Status),
		Attempts:      o.Attempts,
		MaxAttempts:   o.MaxAttempts,
		NextAttemptAt: o.NextAttemptAt,
		LastError:     o.LastError,
		CreatedAt:     o.CreatedAt,
		Version:       o.Version,
	}
	if o.PublishedAt.Valid {
		publishedAt := o.PublishedAt.Time
		entry.PublishedAt = &publishedAt
	}
	return entry
}
