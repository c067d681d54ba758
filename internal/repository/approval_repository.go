package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"motionportal/internal/domain"
)

type ApprovalRepository struct {
	db *sqlx.DB
}

func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

func (r *ApprovalRepository) Create(ctx context.Context, q DBTX, a *domain.Approval) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	query := `
        INSERT INTO approvals (id, deliverable_id, status, notes, version_id, approver_id, approver_type)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at`

	err := conn(q, r.db).QueryRowxContext(ctx, query,
		a.ID, a.DeliverableID, a.Status, a.Notes, a.VersionID, a.ApproverID, a.ApproverType,
	).Scan(&a.CreatedAt)
	return mapError(err, "approval")
}

// ListByDeliverable история решений, новые сверху
func (r *ApprovalRepository) ListByDeliverable(ctx context.Context, q DBTX, deliverableID uuid.UUID) ([]domain.Approval, error) {
	approvals := []domain.Approval{}
	query := `
        SELECT id, deliverable_id, status, notes, version_id, approver_id, approver_type, created_at
        FROM approvals
        WHERE deliverable_id = $1
        ORDER BY created_at DESC, id DESC`
	if err := conn(q, r.db).SelectContext(ctx, &approvals, query, deliverableID); err != nil {
		return nil, mapError(err, "approvals")
	}
	return approvals, nil
}
