package service

import (
	"context"

	"github.com/google/uuid"

	"motionportal/internal/domain"
	"motionportal/internal/logger"
	"motionportal/internal/repository"
)

// TxRunner выполняет fn в одной транзакции. Ошибка из fn откатывает все записи
type TxRunner interface {
	InTx(ctx context.Context, fn func(q repository.DBTX) error) error
}

// Во всех хранилищах q может быть nil, тогда запрос идет мимо транзакции

type DeliverableStore interface {
	GetByID(ctx context.Context, q repository.DBTX, id uuid.UUID) (*domain.Deliverable, error)
	GetForUpdate(ctx context.Context, q repository.DBTX, id uuid.UUID) (*domain.Deliverable, error)
	UpdateCurrentFile(ctx context.Context, q repository.DBTX, id uuid.UUID, version int, fileURL string, thumbnailURL *string) error
	UpdateStatus(ctx context.Context, q repository.DBTX, id uuid.UUID, status domain.DeliverableStatus) error
}

type VersionStore interface {
	Create(ctx context.Context, q repository.DBTX, v *domain.DeliverableVersion) error
	MaxVersionNumber(ctx context.Context, q repository.DBTX, deliverableID uuid.UUID) (int, error)
	GetByID(ctx context.Context, q repository.DBTX, id uuid.UUID) (*domain.DeliverableVersion, error)
	GetLatest(ctx context.Context, q repository.DBTX, deliverableID uuid.UUID) (*domain.DeliverableVersion, error)
	ListByDeliverable(ctx context.Context, q repository.DBTX, deliverableID uuid.UUID) ([]domain.DeliverableVersion, error)
}

type AnnotationStore interface {
	Create(ctx context.Context, q repository.DBTX, a *domain.Annotation) error
	GetByID(ctx context.Context, q repository.DBTX, id uuid.UUID) (*domain.Annotation, error)
	ListByDeliverable(ctx context.Context, q repository.DBTX, deliverableID uuid.UUID) ([]domain.Annotation, error)
	Delete(ctx context.Context, q repository.DBTX, id uuid.UUID) error
}

type CommentStore interface {
	Create(ctx context.Context, q repository.DBTX, c *domain.TimelineComment) error
	GetByID(ctx context.Context, q repository.DBTX, id uuid.UUID) (*domain.TimelineComment, error)
	ListTopLevel(ctx context.Context, q repository.DBTX, deliverableID uuid.UUID) ([]domain.TimelineComment, error)
	ListRepliesByDeliverable(ctx context.Context, q repository.DBTX, deliverableID uuid.UUID) ([]domain.TimelineComment, error)
	ListReplies(ctx context.Context, q repository.DBTX, parentID uuid.UUID) ([]domain.TimelineComment, error)
	Update(ctx context.Context, q repository.DBTX, c *domain.TimelineComment) error
	DeleteReplies(ctx context.Context, q repository.DBTX, parentID uuid.UUID) (int64, error)
	Delete(ctx context.Context, q repository.DBTX, id uuid.UUID) error
}

type ApprovalStore interface {
	Create(ctx context.Context, q repository.DBTX, a *domain.Approval) error
	ListByDeliverable(ctx context.Context, q repository.DBTX, deliverableID uuid.UUID) ([]domain.Approval, error)
}

// EventPublisher реализует notify.Notifier
type EventPublisher interface {
	Publish(ctx context.Context, event domain.ReviewEvent) error
}

// publish не роняет запрос: изменение уже закоммичено
func publish(ctx context.Context, events EventPublisher, log *logger.Logger, event domain.ReviewEvent) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, event); err != nil {
		log.Warn("failed to publish review event",
			"type", event.Type,
			"deliverable", event.DeliverableID,
			"error", err,
		)
	}
}
