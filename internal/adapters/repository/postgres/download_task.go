package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/port"

	"github.com/google/uuid"
)

const downloadTaskColumns = `id, tenant_id, organization_id, user_id, source_url, bucket, object_key, callback_url, status,
	retry_count, max_retries, last_error, next_attempt_at, content_type, size, etag, created_at, updated_at, version`

type sqlDownloadTaskRepository struct {
	db SQLQuerier
}

// NewSQLDownloadTaskRepository creates a new sqlDownloadTaskRepository
func NewSQLDownloadTaskRepository(db SQLQuerier) port.DownloadTaskRepository {
	return &sqlDownloadTaskRepository{db: db}
}

func (s *sqlDownloadTaskRepository) Create(ctx context.Context, task domain.DownloadTask) error {
	query := `
		INSERT INTO download_task (` + downloadTaskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, 0)`

	_, err := s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.Owner.TenantID,
		task.Owner.OrganizationID,
		task.Owner.UserID,
		task.SourceURL,
		task.Bucket,
		task.ObjectKey,
		task.CallbackURL,
		task.Status,
		task.RetryCount,
		task.MaxRetries,
		task.LastError,
		task.NextAttemptAt.UTC(),
		task.ContentType,
		task.Size,
		task.ETag,
		task.CreatedAt.UTC(),
		task.UpdatedAt.UTC(),
	)
	return err
}

func (s *sqlDownloadTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.DownloadTask, error) {
	query := `SELECT ` + downloadTaskColumns + ` FROM download_task WHERE id = $1`

	row, err := scanDownloadTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDownloadTaskNotFound
		}
		return nil, err
	}
	task := row.ToDomain()
	return &task, nil
}

// Update writes the task when its version is unchanged and bumps the version
func (s *sqlDownloadTaskRepository) Update(ctx context.Context, task *domain.DownloadTask) error {
	query := `
		UPDATE download_task
		SET status = $1, retry_count = $2, last_error = $3, next_attempt_at = $4, content_type = $5,
			size = $6, etag = $7, updated_at = $8, version = version + 1
		WHERE id = $9 AND version = $10`

	err := versionedUpdate(ctx, s.db, "download_task", task.ID, domain.ErrDownloadTaskNotFound, query,
		task.Status,
		task.RetryCount,
		task.LastError,
		task.NextAttemptAt.UTC(),
		task.ContentType,
		task.Size,
		task.ETag,
		task.UpdatedAt.UTC(),
		task.ID,
		task.Version,
	)
	if err != nil {
		return err
	}
	task.Version++
	return nil
}

// FindRunnable returns QUEUED tasks due at now. It takes no locks: workers race on the versioned
// QUEUED to DOWNLOADING update and the losers see domain.ErrVersionConflict.
func (s *sqlDownloadTaskRepository) FindRunnable(ctx context.Context, now time.Time, limit int) ([]domain.DownloadTask, error) {
	query := `
		SELECT ` + downloadTaskColumns + `
		FROM download_task
		WHERE status = 'QUEUED' AND next_attempt_at <= $1
		ORDER BY next_attempt_at
		LIMIT $2`
	return s.list(ctx, query, now.UTC(), limit)
}

// FindStale returns DOWNLOADING tasks not touched since updatedBefore
func (s *sqlDownloadTaskRepository) FindStale(ctx context.Context, updatedBefore time.Time, limit int) ([]domain.DownloadTask, error) {
	query := `
		SELECT ` + downloadTaskColumns + `
		FROM download_task
		WHERE status = 'DOWNLOADING' AND updated_at < $1
		ORDER BY updated_at
		LIMIT $2`
	return s.list(ctx, query, updatedBefore.UTC(), limit)
}

func (s *sqlDownloadTaskRepository) list(ctx context.Context, query string, args ...any) ([]domain.DownloadTask, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.DownloadTask
	for rows.Next() {
		row, err := scanDownloadTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, row.ToDomain())
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

func scanDownloadTask(r rowScanner) (*dbDownloadTask, error) {
	var row dbDownloadTask
	err := r.Scan(
		&row.ID,
		&row.TenantID,
		&row.OrganizationID,
		&row.UserID,
		&row.SourceURL,
		&row.Bucket,
		&row.ObjectKey,
		&row.CallbackURL,
		&row.Status,
		&row.RetryCount,
		&row.MaxRetries,
		&row.LastError,
		&row.NextAttemptAt,
		&row.ContentType,
		&row.Size,
		&row.ETag,
		&row.CreatedAt,
		&row.UpdatedAt,
		&row.Version,
	)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

type dbDownloadTask struct {
	ID             uuid.UUID `db:"id"`
	TenantID       string    `db:"tenant_id"`
	OrganizationID string    `db:"organization_id"`
	UserID         string    `db:"user_id"`
	SourceURL      string    `db:"source_url"`
	Bucket         string    `db:"bucket"`
	ObjectKey      string    `db:"object_key"`
	CallbackURL    string    `db:"callback_url"`
	Status         string    `db:"status"`
	RetryCount     int       `db:"retry_count"`
	MaxRetries     int       `db:"max_retries"`
	LastError      string    `db:"last_error"`
	NextAttemptAt  time.Time `db:"next_attempt_at"`
	ContentType    string    `db:"content_type"`
	Size           int64     `db:"size"`
	ETag           string    `db:"etag"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
	Version        int64     `db:"version"`
}

// ToDomain converts db obj to domain
func (t *dbDownloadTask) ToDomain() domain.DownloadTask {
	return domain.DownloadTask{
		ID: t.ID,
		Owner: domain.Owner{
			TenantID:       t.TenantID,
			OrganizationID: t.OrganizationID,
			UserID:         t.UserID,
		},
		SourceURL:     t.SourceURL,
		Bucket:        t.Bucket,
		ObjectKey:     t.ObjectKey,
		CallbackURL:   t.CallbackURL,
		Status:        domain.DownloadStatus(t.Status),
		RetryCount:    t.RetryCount,
		MaxRetries:    t.MaxRetries,
		LastError:     t.LastError,
		NextAttemptAt: t.NextAttemptAt,
		ContentType:   t.ContentType,
		Size:          t.Size,
		ETag:          t.ETag,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		Version:       t.Version,
	}
}
