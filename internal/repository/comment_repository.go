package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"motionportal/internal/domain"
)

const commentColumns = `id, deliverable_id, content, time_seconds, author_id, author_type, parent_id, resolved, created_at, updated_at`

type CommentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, q DBTX, c *domain.TimelineComment) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	query := `
        INSERT INTO timeline_comments (id, deliverable_id, content, time_seconds, author_id, author_type, parent_id, resolved)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at, updated_at`

	err := conn(q, r.db).QueryRowxContext(ctx, query,
		c.ID, c.DeliverableID, c.Content, c.Timestamp, c.AuthorID, c.AuthorType, c.ParentID, c.Resolved,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return mapError(err, "comment")
}

func (r *CommentRepository) GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*domain.TimelineComment, error) {
	var c domain.TimelineComment
	query := `SELECT ` + commentColumns + ` FROM timeline_comments WHERE id = $1`
	if err := conn(q, r.db).GetContext(ctx, &c, query, id); err != nil {
		return nil, mapError(err, "comment")
	}
	return &c, nil
}

// ListTopLevel комментарии верхнего уровня по времени на таймлайне
func (r *CommentRepository) ListTopLevel(ctx context.Context, q DBTX, deliverableID uuid.UUID) ([]domain.TimelineComment, error) {
	comments := []domain.TimelineComment{}
	query := `
        SELECT ` + commentColumns + `
        FROM timeline_comments
        WHERE deliverable_id = $1 AND parent_id IS NULL
        ORDER BY time_seconds ASC, created_at ASC`
	if err := conn(q, r.db).SelectContext(ctx, &comments, query, deliverableID); err != nil {
		return nil, mapError(err, "comments")
	}
	return comments, nil
}

// ListRepliesByDeliverable все ответы deliverable в порядке создания
func (r *CommentRepository) ListRepliesByDeliverable(ctx context.Context, q DBTX, deliverableID uuid.UUID) ([]domain.TimelineComment, error) {
	replies := []domain.TimelineComment{}
	query := `
        SELECT ` + commentColumns + `
        FROM timeline_comments
        WHERE deliverable_id = $1 AND parent_id IS NOT NULL
        ORDER BY created_at ASC`
	if err := conn(q, r.db).SelectContext(ctx, &replies, query, deliverableID); err != nil {
		return nil, mapError(err, "comments")
	}
	return replies, nil
}

func (r *CommentRepository) ListReplies(ctx context.Context, q DBTX, parentID uuid.UUID) ([]domain.TimelineComment, error) {
	replies := []domain.TimelineComment{}
	query := `
        SELECT ` + commentColumns + `
        FROM timeline_comments
        WHERE parent_id = $1
        ORDER BY created_at ASC`
	if err := conn(q, r.db).SelectContext(ctx, &replies, query, parentID); err != nil {
		return nil, mapError(err, "comments")
	}
	return replies, nil
}

// Update сохраняет изменяемые поля: content и resolved
func (r *CommentRepository) Update(ctx context.Context, q DBTX, c *domain.TimelineComment) error {
	query := `
        UPDATE timeline_comments
        SET content = $2,
            resolved = $3,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $1
        RETURNING updated_at`

	err := conn(q, r.db).QueryRowxContext(ctx, query, c.ID, c.Content, c.Resolved).Scan(&c.UpdatedAt)
	return mapError(err, "comment")
}

// DeleteReplies удаляет прямые ответы, вызывать до удаления родителя
func (r *CommentRepository) DeleteReplies(ctx context.Context, q DBTX, parentID uuid.UUID) (int64, error) {
	res, err := conn(q, r.db).ExecContext(ctx, `DELETE FROM timeline_comments WHERE parent_id = $1`, parentID)
	if err != nil {
		return 0, mapDeleteError(err, "comment replies")
	}
	return res.RowsAffected()
}

func (r *CommentRepository) Delete(ctx context.Context, q DBTX, id uuid.UUID) error {
	res, err := conn(q, r.db).ExecContext(ctx, `DELETE FROM timeline_comments WHERE id = $1`, id)
	if err != nil {
		return mapDeleteError(err, "comment")
	}
	return expectAffected(res, "comment")
}
