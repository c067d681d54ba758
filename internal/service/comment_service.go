package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"motionportal/internal/domain"
	"motionportal/internal/logger"
	"motionportal/internal/repository"
)

type CreateCommentInput struct {
	DeliverableID uuid.UUID
	Content       string
	Timestamp     *float64
	ParentID      *uuid.UUID
}

// UpdateCommentInput частичное обновление, nil поля не меняются
type UpdateCommentInput struct {
	DeliverableID uuid.UUID
	CommentID     uuid.UUID
	Resolved      *bool
	Content       *string
}

type CommentService struct {
	tx           TxRunner
	deliverables DeliverableStore
	comments     CommentStore
	events       EventPublisher
	log          *logger.Logger
}

func NewCommentService(tx TxRunner, deliverables DeliverableStore, comments CommentStore, events EventPublisher, log *logger.Logger) *CommentService {
	return &CommentService{
		tx:           tx,
		deliverables: deliverables,
		comments:     comments,
		events:       events,
		log:          log.With("component", "comments"),
	}
}

// Create автор и его вид берутся из сессии. Ответ на ответ запрещен
func (s *CommentService) Create(ctx context.Context, in CreateCommentInput, actor domain.Actor) (*domain.TimelineComment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, domain.ValidationError("content is required")
	}
	if err := validateTimestamp(in.Timestamp); err != nil {
		return nil, err
	}

	c := &domain.TimelineComment{
		ID:            uuid.New(),
		DeliverableID: in.DeliverableID,
		Content:       content,
		Timestamp:     *in.Timestamp,
		AuthorID:      actor.ID,
		AuthorType:    actor.Kind,
		ParentID:      in.ParentID,
		Replies:       []domain.TimelineComment{},
	}

	err := s.tx.InTx(ctx, func(q repository.DBTX) error {
		if _, err := s.deliverables.GetByID(ctx, q, in.DeliverableID); err != nil {
			return err
		}

		if in.ParentID != nil {
			parent, err := s.comments.GetByID(ctx, q, *in.ParentID)
			if err != nil {
				return err
			}
			if parent.DeliverableID != in.DeliverableID {
				return domain.NotFoundError("comment")
			}
			if parent.IsReply() {
				return domain.ValidationError("replies cannot be nested")
			}
		}

		return s.comments.Create(ctx, q, c)
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, s.log, domain.NewReviewEvent(domain.EventCommentCreated, c.DeliverableID, c.ID, actor))
	return c, nil
}

// List верхний уровень по времени на таймлайне, ответы по времени создания
func (s *CommentService) List(ctx context.Context, deliverableID uuid.UUID) ([]domain.TimelineComment, error) {
	top, err := s.comments.ListTopLevel(ctx, nil, deliverableID)
	if err != nil {
		return nil, err
	}
	replies, err := s.comments.ListRepliesByDeliverable(ctx, nil, deliverableID)
	if err != nil {
		return nil, err
	}

	byParent := make(map[uuid.UUID][]domain.TimelineComment, len(top))
	for _, r := range replies {
		r.Replies = []domain.TimelineComment{}
		byParent[*r.ParentID] = append(byParent[*r.ParentID], r)
	}

	for i := range top {
		top[i].Replies = byParent[top[i].ID]
		if top[i].Replies == nil {
			top[i].Replies = []domain.TimelineComment{}
		}
	}
	return top, nil
}

func (s *CommentService) Update(ctx context.Context, in UpdateCommentInput, actor domain.Actor) (*domain.TimelineComment, error) {
	if in.Content != nil && strings.TrimSpace(*in.Content) == "" {
		return nil, domain.ValidationError("content cannot be empty")
	}

	var (
		updated *domain.TimelineComment
		changed bool
	)
	err := s.tx.InTx(ctx, func(q repository.DBTX) error {
		c, err := s.comments.GetByID(ctx, q, in.CommentID)
		if err != nil {
			return err
		}
		if c.DeliverableID != in.DeliverableID {
			return domain.NotFoundError("comment")
		}

		if in.Content != nil {
			if content := strings.TrimSpace(*in.Content); content != c.Content {
				c.Content = content
				changed = true
			}
		}
		if in.Resolved != nil && *in.Resolved != c.Resolved {
			c.Resolved = *in.Resolved
			changed = true
		}
		if changed {
			if err := s.comments.Update(ctx, q, c); err != nil {
				return err
			}
		}

		replies, err := s.comments.ListReplies(ctx, q, c.ID)
		if err != nil {
			return err
		}
		for i := range replies {
			replies[i].Replies = []domain.TimelineComment{}
		}
		c.Replies = replies
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Пустой PATCH ничего не пишет и событий не порождает
	if changed {
		publish(ctx, s.events, s.log, domain.NewReviewEvent(domain.EventCommentUpdated, updated.DeliverableID, updated.ID, actor))
	}
	return updated, nil
}

// Delete удаляет ответы раньше родителя, иначе не даст внешний ключ
func (s *CommentService) Delete(ctx context.Context, deliverableID, commentID uuid.UUID, actor domain.Actor) error {
	var removedReplies int64
	err := s.tx.InTx(ctx, func(q repository.DBTX) error {
		c, err := s.comments.GetByID(ctx, q, commentID)
		if err != nil {
			return err
		}
		if c.DeliverableID != deliverableID {
			return domain.NotFoundError("comment")
		}

		removedReplies, err = s.comments.DeleteReplies(ctx, q, commentID)
		if err != nil {
			return err
		}
		return s.comments.Delete(ctx, q, commentID)
	})
	if err != nil {
		return err
	}

	s.log.Debug("comment deleted", "comment", commentID, "replies", removedReplies)
	publish(ctx, s.events, s.log, domain.NewReviewEvent(domain.EventCommentDeleted, deliverableID, commentID, actor))
	return nil
}
