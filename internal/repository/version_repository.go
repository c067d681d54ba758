package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"motionportal/internal/domain"
)

const versionColumns = `id, deliverable_id, version_number, file_url, thumbnail_url, notes, created_by, created_at`

type VersionRepository struct {
	db *sqlx.DB
}

func NewVersionRepository(db *sqlx.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// Create вставляет версию. Повтор номера дает domain.ErrConflict
func (r *VersionRepository) Create(ctx context.Context, q DBTX, v *domain.DeliverableVersion) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}

	query := `
        INSERT INTO deliverable_versions (id, deliverable_id, version_number, file_url, thumbnail_url, notes, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at`

	err := conn(q, r.db).QueryRowxContext(ctx, query,
		v.ID, v.DeliverableID, v.VersionNumber, v.FileURL, v.ThumbnailURL, v.Notes, v.CreatedBy,
	).Scan(&v.CreatedAt)
	return mapError(err, "version")
}

func (r *VersionRepository) MaxVersionNumber(ctx context.Context, q DBTX, deliverableID uuid.UUID) (int, error) {
	var max int
	query := `SELECT COALESCE(MAX(version_number), 0) FROM deliverable_versions WHERE deliverable_id = $1`
	if err := conn(q, r.db).GetContext(ctx, &max, query, deliverableID); err != nil {
		return 0, mapError(err, "version")
	}
	return max, nil
}

func (r *VersionRepository) GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*domain.DeliverableVersion, error) {
	var v domain.DeliverableVersion
	query := `SELECT ` + versionColumns + ` FROM deliverable_versions WHERE id = $1`
	if err := conn(q, r.db).GetContext(ctx, &v, query, id); err != nil {
		return nil, mapError(err, "version")
	}
	return &v, nil
}

// GetLatest последняя версия по номеру, NotFound если версий нет
func (r *VersionRepository) GetLatest(ctx context.Context, q DBTX, deliverableID uuid.UUID) (*domain.DeliverableVersion, error) {
	var v domain.DeliverableVersion
	query := `
        SELECT ` + versionColumns + `
        FROM deliverable_versions
        WHERE deliverable_id = $1
        ORDER BY version_number DESC
        LIMIT 1`
	if err := conn(q, r.db).GetContext(ctx, &v, query, deliverableID); err != nil {
		return nil, mapError(err, "version")
	}
	return &v, nil
}

func (r *VersionRepository) ListByDeliverable(ctx context.Context, q DBTX, deliverableID uuid.UUID) ([]domain.DeliverableVersion, error) {
	versions := []domain.DeliverableVersion{}
	query := `
        SELECT ` + versionColumns + `
        FROM deliverable_versions
        WHERE deliverable_id = $1
        ORDER BY version_number DESC`
	if err := conn(q, r.db).SelectContext(ctx, &versions, query, deliverableID); err != nil {
		return nil, mapError(err, "versions")
	}
	return versions, nil
}
