package service

import (
	"context"

	"github.com/google/uuid"

	"motionportal/internal/domain"
)

type DeliverableService struct {
	deliverables DeliverableStore
}

func NewDeliverableService(deliverables DeliverableStore) *DeliverableService {
	return &DeliverableService{deliverables: deliverables}
}

func (s *DeliverableService) Get(ctx context.Context, id uuid.UUID) (*domain.Deliverable, error) {
	return s.deliverables.GetByID(ctx, nil, id)
}
