package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"motionportal/internal/domain"
)

const deliverableColumns = `id, project_id, name, status, version, file_url, thumbnail_url, created_at, updated_at`

type DeliverableRepository struct {
	db *sqlx.DB
}

func NewDeliverableRepository(db *sqlx.DB) *DeliverableRepository {
	return &DeliverableRepository{db: db}
}

// Create используется при заведении проекта и в тестах
func (r *DeliverableRepository) Create(ctx context.Context, q DBTX, d *domain.Deliverable) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = domain.DeliverableStatusDraft
	}

	query := `
        INSERT INTO deliverables (id, project_id, name, status, version, file_url, thumbnail_url)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at, updated_at`

	err := conn(q, r.db).QueryRowxContext(ctx, query,
		d.ID, d.ProjectID, d.Name, d.Status, d.Version, d.FileURL, d.ThumbnailURL,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	return mapError(err, "deliverable")
}

func (r *DeliverableRepository) GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*domain.Deliverable, error) {
	var d domain.Deliverable
	query := `SELECT ` + deliverableColumns + ` FROM deliverables WHERE id = $1`
	if err := conn(q, r.db).GetContext(ctx, &d, query, id); err != nil {
		return nil, mapError(err, "deliverable")
	}
	return &d, nil
}

// GetForUpdate блокирует строку до конца транзакции, q должен быть транзакцией
func (r *DeliverableRepository) GetForUpdate(ctx context.Context, q DBTX, id uuid.UUID) (*domain.Deliverable, error) {
	var d domain.Deliverable
	query := `SELECT ` + deliverableColumns + ` FROM deliverables WHERE id = $1 FOR UPDATE`
	if err := conn(q, r.db).GetContext(ctx, &d, query, id); err != nil {
		return nil, mapError(err, "deliverable")
	}
	return &d, nil
}

// UpdateCurrentFile переносит на deliverable номер и файлы новой версии
func (r *DeliverableRepository) UpdateCurrentFile(ctx context.Context, q DBTX, id uuid.UUID, version int, fileURL string, thumbnailURL *string) error {
	query := `
        UPDATE deliverables
        SET version = $2,
            file_url = $3,
            thumbnail_url = $4,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $1`

	res, err := conn(q, r.db).ExecContext(ctx, query, id, version, fileURL, thumbnailURL)
	if err != nil {
		return mapError(err, "deliverable")
	}
	return expectAffected(res, "deliverable")
}

func (r *DeliverableRepository) UpdateStatus(ctx context.Context, q DBTX, id uuid.UUID, status domain.DeliverableStatus) error {
	query := `UPDATE deliverables SET status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`

	res, err := conn(q, r.db).ExecContext(ctx, query, id, status)
	if err != nil {
		return mapError(err, "deliverable")
	}
	return expectAffected(res, "deliverable")
}
