package service

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"

	"motionportal/internal/domain"
	"motionportal/internal/logger"
	"motionportal/internal/repository"
)

// CreateAnnotationInput: Timestamp nil означает "не передан", ноль допустим
type CreateAnnotationInput struct {
	DeliverableID uuid.UUID
	Type          string
	Coordinates   domain.Coordinates
	Timestamp     *float64
	Color         *string
	Comment       *string
}

type AnnotationService struct {
	tx           TxRunner
	deliverables DeliverableStore
	annotations  AnnotationStore
	events       EventPublisher
	log          *logger.Logger
}

func NewAnnotationService(tx TxRunner, deliverables DeliverableStore, annotations AnnotationStore, events EventPublisher, log *logger.Logger) *AnnotationService {
	return &AnnotationService{
		tx:           tx,
		deliverables: deliverables,
		annotations:  annotations,
		events:       events,
		log:          log.With("component", "annotations"),
	}
}

func (s *AnnotationService) Create(ctx context.Context, in CreateAnnotationInput, actor domain.Actor) (*domain.Annotation, error) {
	markerType := strings.TrimSpace(in.Type)
	if markerType == "" {
		return nil, domain.ValidationError("type is required")
	}
	if in.Coordinates.IsZero() {
		return nil, domain.ValidationError("coordinates are required")
	}
	if err := validateTimestamp(in.Timestamp); err != nil {
		return nil, err
	}

	color := domain.DefaultAnnotationColor
	if c := nonEmpty(in.Color); c != nil {
		color = *c
	}
	comment := ""
	if in.Comment != nil {
		comment = *in.Comment
	}

	if _, err := s.deliverables.GetByID(ctx, nil, in.DeliverableID); err != nil {
		return nil, err
	}

	a := &domain.Annotation{
		ID:            uuid.New(),
		DeliverableID: in.DeliverableID,
		Type:          markerType,
		Coordinates:   in.Coordinates,
		Color:         color,
		Timestamp:     *in.Timestamp,
		Comment:       comment,
		AuthorID:      actor.ID,
	}
	if err := s.annotations.Create(ctx, nil, a); err != nil {
		return nil, err
	}

	publish(ctx, s.events, s.log, domain.NewReviewEvent(domain.EventAnnotationCreated, a.DeliverableID, a.ID, actor))
	return a, nil
}

func (s *AnnotationService) List(ctx context.Context, deliverableID uuid.UUID) ([]domain.Annotation, error) {
	return s.annotations.ListByDeliverable(ctx, nil, deliverableID)
}

// Delete сначала проверяет, что аннотация есть и принадлежит deliverable
func (s *AnnotationService) Delete(ctx context.Context, deliverableID, annotationID uuid.UUID, actor domain.Actor) error {
	err := s.tx.InTx(ctx, func(q repository.DBTX) error {
		a, err := s.annotations.GetByID(ctx, q, annotationID)
		if err != nil {
			return err
		}
		if a.DeliverableID != deliverableID {
			return domain.NotFoundError("annotation")
		}
		return s.annotations.Delete(ctx, q, annotationID)
	})
	if err != nil {
		return err
	}

	publish(ctx, s.events, s.log, domain.NewReviewEvent(domain.EventAnnotationDeleted, deliverableID, annotationID, actor))
	return nil
}

func validateTimestamp(ts *float64) error {
	if ts == nil {
		return domain.ValidationError("timestamp is required")
	}
	if math.IsNaN(*ts) || math.IsInf(*ts, 0) || *ts < 0 {
		return domain.ValidationError("timestamp must be a non-negative number of seconds")
	}
	return nil
}
