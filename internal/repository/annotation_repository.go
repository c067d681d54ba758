package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"motionportal/internal/domain"
)

const annotationColumns = `id, deliverable_id, type, coordinates, color, time_seconds, comment, author_id, created_at`

type AnnotationRepository struct {
	db *sqlx.DB
}

func NewAnnotationRepository(db *sqlx.DB) *AnnotationRepository {
	return &AnnotationRepository{db: db}
}

func (r *AnnotationRepository) Create(ctx context.Context, q DBTX, a *domain.Annotation) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	query := `
        INSERT INTO annotations (id, deliverable_id, type, coordinates, color, time_seconds, comment, author_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at`

	err := conn(q, r.db).QueryRowxContext(ctx, query,
		a.ID, a.DeliverableID, a.Type, a.Coordinates, a.Color, a.Timestamp, a.Comment, a.AuthorID,
	).Scan(&a.CreatedAt)
	return mapError(err, "annotation")
}

func (r *AnnotationRepository) GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*domain.Annotation, error) {
	var a domain.Annotation
	query := `SELECT ` + annotationColumns + ` FROM annotations WHERE id = $1`
	if err := conn(q, r.db).GetContext(ctx, &a, query, id); err != nil {
		return nil, mapError(err, "annotation")
	}
	return &a, nil
}

func (r *AnnotationRepository) ListByDeliverable(ctx context.Context, q DBTX, deliverableID uuid.UUID) ([]domain.Annotation, error) {
	annotations := []domain.Annotation{}
	query := `
        SELECT ` + annotationColumns + `
        FROM annotations
        WHERE deliverable_id = $1
        ORDER BY time_seconds ASC, created_at ASC`
	if err := conn(q, r.db).SelectContext(ctx, &annotations, query, deliverableID); err != nil {
		return nil, mapError(err, "annotations")
	}
	return annotations, nil
}

func (r *AnnotationRepository) Delete(ctx context.Context, q DBTX, id uuid.UUID) error {
	res, err := conn(q, r.db).ExecContext(ctx, `DELETE FROM annotations WHERE id = $1`, id)
	if err != nil {
		return mapDeleteError(err, "annotation")
	}
	return expectAffected(res, "annotation")
}
