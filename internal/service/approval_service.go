package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"motionportal/internal/domain"
	"motionportal/internal/logger"
	"motionportal/internal/repository"
)

type DecisionInput struct {
	DeliverableID uuid.UUID
	Notes         string
	VersionID     *uuid.UUID
}

type ApprovalService struct {
	tx           TxRunner
	deliverables DeliverableStore
	versions     VersionStore
	approvals    ApprovalStore
	events       EventPublisher
	log          *logger.Logger
}

func NewApprovalService(tx TxRunner, deliverables DeliverableStore, versions VersionStore, approvals ApprovalStore, events EventPublisher, log *logger.Logger) *ApprovalService {
	return &ApprovalService{
		tx:           tx,
		deliverables: deliverables,
		versions:     versions,
		approvals:    approvals,
		events:       events,
		log:          log.With("component", "approvals"),
	}
}

func (s *ApprovalService) Approve(ctx context.Context, in DecisionInput, actor domain.Actor) (*domain.ApprovalResult, error) {
	return s.decide(ctx, domain.ApprovalStatusApproved, in, actor)
}

func (s *ApprovalService) RequestChanges(ctx context.Context, in DecisionInput, actor domain.Actor) (*domain.ApprovalResult, error) {
	return s.decide(ctx, domain.ApprovalStatusChangesRequested, in, actor)
}

// decide пишет решение и новый статус deliverable в одной транзакции.
// Каждый вызов добавляет строку, даже если статус не меняется.
func (s *ApprovalService) decide(ctx context.Context, status domain.ApprovalStatus, in DecisionInput, actor domain.Actor) (*domain.ApprovalResult, error) {
	result := &domain.ApprovalResult{Status: status.ResultingStatus()}

	err := s.tx.InTx(ctx, func(q repository.DBTX) error {
		if _, err := s.deliverables.GetForUpdate(ctx, q, in.DeliverableID); err != nil {
			return err
		}

		versionID, err := s.judgedVersion(ctx, q, in)
		if err != nil {
			return err
		}

		approval := &domain.Approval{
			ID:            uuid.New(),
			DeliverableID: in.DeliverableID,
			Status:        status,
			Notes:         strings.TrimSpace(in.Notes),
			VersionID:     versionID,
			ApproverID:    actor.ID,
			ApproverType:  actor.Kind,
		}
		if err := s.approvals.Create(ctx, q, approval); err != nil {
			return err
		}

		if err := s.deliverables.UpdateStatus(ctx, q, in.DeliverableID, result.Status); err != nil {
			return err
		}

		result.Approval = approval
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("review decision recorded",
		"deliverable", in.DeliverableID,
		"decision", status,
		"approver", actor.ID,
		"approverType", actor.Kind,
	)

	eventType := domain.EventChangesRequested
	if status == domain.ApprovalStatusApproved {
		eventType = domain.EventApproved
	}
	publish(ctx, s.events, s.log, domain.NewReviewEvent(eventType, in.DeliverableID, result.Approval.ID, actor))
	return result, nil
}

// judgedVersion: переданная версия, иначе последняя, иначе nil
func (s *ApprovalService) judgedVersion(ctx context.Context, q repository.DBTX, in DecisionInput) (*uuid.UUID, error) {
	if in.VersionID != nil {
		v, err := s.versions.GetByID(ctx, q, *in.VersionID)
		if err != nil {
			return nil, err
		}
		if v.DeliverableID != in.DeliverableID {
			return nil, domain.NotFoundError("version")
		}
		return &v.ID, nil
	}

	latest, err := s.versions.GetLatest(ctx, q, in.DeliverableID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &latest.ID, nil
}

// History решения по deliverable, новые сверху
func (s *ApprovalService) History(ctx context.Context, deliverableID uuid.UUID) ([]domain.Approval, error) {
	if _, err := s.deliverables.GetByID(ctx, nil, deliverableID); err != nil {
		return nil, err
	}
	return s.approvals.ListByDeliverable(ctx, nil, deliverableID)
}
