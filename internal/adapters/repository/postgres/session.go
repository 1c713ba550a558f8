package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/port"

	"github.com/google/uuid"
)

const sessionColumns = `id, idempotency_key, kind, tenant_id, organization_id, user_id, bucket, object_key, file_name,
	declared_size, content_type, status, failure_reason, etag, total_parts, part_size, provider_upload_id,
	created_at, updated_at, expires_at, completed_at, version`

type sqlSessionRepository struct {
	db SQLQuerier
}

// NewSQLSessionRepository creates a new sqlSessionRepository
func NewSQLSessionRepository(db SQLQuerier) port.SessionRepository {
	return &sqlSessionRepository{db: db}
}

// Create inserts a session. A second session with the same tenant and idempotency key is
// domain.ErrIdempotencyKeyExists.
func (s *sqlSessionRepository) Create(ctx context.Context, session domain.TransferSession) error {
	query := `
		INSERT INTO upload_session (
			id, idempotency_key, kind, tenant_id, organization_id, user_id, bucket, object_key, file_name,
			declared_size, content_type, status, failure_reason, etag, total_parts, part_size, provider_upload_id,
			created_at, updated_at, expires_at, completed_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, 0)`

	row := fromSession(session)
	_, err := s.db.ExecContext(
		ctx,
		query,
		row.ID,
		row.IdempotencyKey,
		row.Kind,
		row.TenantID,
		row.OrganizationID,
		row.UserID,
		row.Bucket,
		row.ObjectKey,
		row.FileName,
		row.DeclaredSize,
		row.ContentType,
		row.Status,
		row.FailureReason,
		row.ETag,
		row.TotalParts,
		row.PartSize,
		row.ProviderUploadID,
		row.CreatedAt,
		row.UpdatedAt,
		row.ExpiresAt,
		row.CompletedAt,
	)
	if err != nil {
		code, constraint := pqCode(err)
		if code == codeUniqueViolation && constraint == "upload_session_idempotency_key_uq" {
			return domain.ErrIdempotencyKeyExists
		}
		if code == codeUniqueViolation {
			return fmt.Errorf("%w: session %s already exists", domain.ErrConflict, session.ID)
		}
		return err
	}
	return nil
}

func (s *sqlSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.TransferSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM upload_session WHERE id = $1`
	return s.findOne(ctx, query, id)
}

func (s *sqlSessionRepository) FindByIdempotencyKey(ctx context.Context, tenantID string, key string) (*domain.TransferSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM upload_session WHERE tenant_id = $1 AND idempotency_key = $2`
	return s.findOne(ctx, query, tenantID, key)
}

func (s *sqlSessionRepository) findOne(ctx context.Context, query string, args ...any) (*domain.TransferSession, error) {
	row, err := scanSession(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// Update writes the mutable fields of a session when its version is unchanged and bumps the version.
// Parts are stored through the part repository.
func (s *sqlSessionRepository) Update(ctx context.Context, session *domain.TransferSession) error {
	query := `
		UPDATE upload_session
		SET status = $1, failure_reason = $2, etag = $3, provider_upload_id = $4, updated_at = $5,
			completed_at = $6, version = version + 1
		WHERE id = $7 AND version = $8`

	row := fromSession(*session)
	err := versionedUpdate(ctx, s.db, "upload_session", session.ID, domain.ErrSessionNotFound, query,
		row.Status,
		row.FailureReason,
		row.ETag,
		row.ProviderUploadID,
		row.UpdatedAt,
		row.CompletedAt,
		row.ID,
		session.Version,
	)
	if err != nil {
		return err
	}
	session.Version++
	return nil
}

// List returns the sessions matching filter, newest first
func (s *sqlSessionRepository) List(ctx context.Context, filter domain.SessionFilter) ([]domain.TransferSession, error) {
	where, args := buildSessionFilter(filter)
	args = append(args, filter.EffectiveLimit(), filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM upload_session %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		sessionColumns, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.TransferSession
	for rows.Next() {
		row, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *row.ToDomain())
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (*dbSession, error) {
	var row dbSession
	err := r.Scan(
		&row.ID,
		&row.IdempotencyKey,
		&row.Kind,
		&row.TenantID,
		&row.OrganizationID,
		&row.UserID,
		&row.Bucket,
		&row.ObjectKey,
		&row.FileName,
		&row.DeclaredSize,
		&row.ContentType,
		&row.Status,
		&row.FailureReason,
		&row.ETag,
		&row.TotalParts,
		&row.PartSize,
		&row.ProviderUploadID,
		&row.CreatedAt,
		&row.UpdatedAt,
		&row.ExpiresAt,
		&row.CompletedAt,
		&row.Version,
	)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

type dbSession struct {
	ID               uuid.UUID      `db:"id"`
	IdempotencyKey   string         `db:"idempotency_key"`
	Kind             string         `db:"kind"`
	TenantID         string         `db:"tenant_id"`
	OrganizationID   string         `db:"organization_id"`
	UserID           string         `db:"user_id"`
	Bucket           string         `db:"bucket"`
	ObjectKey        string         `db:"object_key"`
	FileName         string         `db:"file_name"`
	DeclaredSize     int64          `db:"declared_size"`
	ContentType      string         `db:"content_type"`
	Status           string         `db:"status"`
	FailureReason    string         `db:"failure_reason"`
	ETag             string         `db:"etag"`
	TotalParts       sql.NullInt64  `db:"total_parts"`
	PartSize         sql.NullInt64  `db:"part_size"`
	ProviderUploadID sql.NullString `db:"provider_upload_id"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
	ExpiresAt        time.Time      `db:"expires_at"`
	CompletedAt      sql.NullTime   `db:"completed_at"`
	Version          int64          `db:"version"`
}

func fromSession(s domain.TransferSession) dbSession {
	row := dbSession{
		ID:             s.ID,
		IdempotencyKey: s.IdempotencyKey,
		Kind:           string(s.Kind),
		TenantID:       s.Owner.TenantID,
		OrganizationID: s.Owner.OrganizationID,
		UserID:         s.Owner.UserID,
		Bucket:         s.Bucket,
		ObjectKey:      s.ObjectKey,
		FileName:       s.FileName,
		DeclaredSize:   s.DeclaredSize,
		ContentType:    s.ContentType,
		Status:         string(s.Status),
		FailureReason:  s.FailureReason,
		ETag:           s.ETag,
		CreatedAt:      s.CreatedAt.UTC(),
		UpdatedAt:      s.UpdatedAt.UTC(),
		ExpiresAt:      s.ExpiresAt.UTC(),
		Version:        s.Version,
	}
	if s.Multipart != nil {
		row.TotalParts = sql.NullInt64{Int64: int64(s.Multipart.TotalParts), Valid: true}
		row.PartSize = sql.NullInt64{Int64: s.Multipart.PartSize, Valid: true}
		row.ProviderUploadID = sql.NullString{String: s.Multipart.ProviderUploadID, Valid: true}
	}
	if s.CompletedAt != nil {
		row.CompletedAt = sql.NullTime{Time: s.CompletedAt.UTC(), Valid: true}
	}
	return row
}

// ToDomain converts db obj to domain
func (s *dbSession) ToDomain() *domain.TransferSession {
	session := &domain.TransferSession{
		ID:             s.ID,
		IdempotencyKey: s.IdempotencyKey,
		Kind:           domain.SessionKind(s.Kind),
		Owner: domain.Owner{
			TenantID:       s.TenantID,
			OrganizationID: s.OrganizationID,
			UserID:         s.UserID,
		},
		Bucket:        s.Bucket,
		ObjectKey:     s.ObjectKey,
		FileName:      s.FileName,
		DeclaredSize:  s.DeclaredSize,
		ContentType:   s.ContentType,
		Status:        domain.SessionStatus(s.Status),
		FailureReason: s.FailureReason,
		ETag:          s.ETag,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		ExpiresAt:     s.ExpiresAt,
		Version:       s.Version,
	}
	if s.TotalParts.Valid {
		session.Multipart = &domain.MultipartUpload{
			TotalParts:       int(s.TotalParts.Int64),
			PartSize:         s.PartSize.Int64,
			ProviderUploadID: s.ProviderUploadID.String,
		}
	}
	if s.CompletedAt.Valid {
		completedAt := s.CompletedAt.Time
		session.CompletedAt = &completedAt
	}
	return session
}
