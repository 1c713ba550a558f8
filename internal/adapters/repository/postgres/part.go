package postgres

import (
	"context"
	"time"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/port"

	"github.com/google/uuid"
)

type sqlPartRepository struct {
	db SQLQuerier
}

// NewSQLPartRepository creates a new sqlPartRepository
func NewSQLPartRepository(db SQLQuerier) port.PartRepository {
	return &sqlPartRepository{db: db}
}

// Add records a part; an already recorded part number is domain.ErrDuplicatePart
func (s *sqlPartRepository) Add(ctx context.Context, sessionID uuid.UUID, part domain.CompletedPart) error {
	query := `
		INSERT INTO completed_part (session_id, part_number, etag, size, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id, part_number) DO NOTHING`

	result, err := s.db.ExecContext(ctx, query, sessionID, part.PartNumber, domain.NormalizeETag(part.ETag), part.Size, part.UploadedAt.UTC())
	if err != nil {
		if code, _ := pqCode(err); code == codeForeignKeyViolation {
			return domain.ErrSessionNotFound
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrDuplicatePart
	}
	return nil
}

func (s *sqlPartRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.CompletedPart, error) {
	query := `
		SELECT part_number, etag, size, uploaded_at
		FROM completed_part
		WHERE session_id = $1
		ORDER BY part_number`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []domain.CompletedPart
	for rows.Next() {
		var row dbCompletedPart
		if err := rows.Scan(&row.PartNumber, &row.ETag, &row.Size, &row.UploadedAt); err != nil {
			return nil, err
		}
		parts = append(parts, row.ToDomain())
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return parts, nil
}

type dbCompletedPart struct {
	PartNumber int       `db:"part_number"`
	ETag       string    `db:"etag"`
	Size       int64     `db:"size"`
	UploadedAt time.Time `db:"uploaded_at"`
}

// ToDomain converts db obj to domain
func (p dbCompletedPart) ToDomain() domain.CompletedPart {
	return domain.CompletedPart{
		PartNumber: p.PartNumber,
		ETag:       p.ETag,
		Size:       p.Size,
		UploadedAt: p.UploadedAt,
	}
}
