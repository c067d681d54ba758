package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"motionportal/internal/domain"
	"motionportal/internal/logger"
	"motionportal/internal/repository"
)

// Сколько раз повторяем транзакцию при конфликте номера версии
const maxVersionAttempts = 3

type CreateVersionInput struct {
	DeliverableID uuid.UUID
	FileURL       string
	ThumbnailURL  *string
	Notes         *string
}

type VersionService struct {
	tx           TxRunner
	deliverables DeliverableStore
	versions     VersionStore
	events       EventPublisher
	log          *logger.Logger
}

func NewVersionService(tx TxRunner, deliverables DeliverableStore, versions VersionStore, events EventPublisher, log *logger.Logger) *VersionService {
	return &VersionService{
		tx:           tx,
		deliverables: deliverables,
		versions:     versions,
		events:       events,
		log:          log.With("component", "versions"),
	}
}

// CreateVersion добавляет версию и переносит ее файл на deliverable в одной транзакции.
// Строка deliverable блокируется, уникальный индекс (deliverable_id, version_number)
// страхует от гонки, конфликт повторяется до maxVersionAttempts раз.
func (s *VersionService) CreateVersion(ctx context.Context, in CreateVersionInput, actor domain.Actor) (*domain.DeliverableVersion, error) {
	in.FileURL = strings.TrimSpace(in.FileURL)
	if in.FileURL == "" {
		return nil, domain.ValidationError("fileUrl is required")
	}
	in.ThumbnailURL = nonEmpty(in.ThumbnailURL)
	in.Notes = nonEmpty(in.Notes)

	for attempt := 1; ; attempt++ {
		version, err := s.createVersionOnce(ctx, in, actor)
		if err == nil {
			s.log.Info("version created",
				"deliverable", in.DeliverableID,
				"version", version.VersionNumber,
				"actor", actor.ID,
			)
			publish(ctx, s.events, s.log, domain.NewReviewEvent(domain.EventVersionCreated, in.DeliverableID, version.ID, actor))
			return version, nil
		}
		if errors.Is(err, domain.ErrConflict) && attempt < maxVersionAttempts {
			s.log.Warn("version number conflict, retrying", "deliverable", in.DeliverableID, "attempt", attempt)
			continue
		}
		return nil, err
	}
}

func (s *VersionService) createVersionOnce(ctx context.Context, in CreateVersionInput, actor domain.Actor) (*domain.DeliverableVersion, error) {
	var version *domain.DeliverableVersion

	err := s.tx.InTx(ctx, func(q repository.DBTX) error {
		deliverable, err := s.deliverables.GetForUpdate(ctx, q, in.DeliverableID)
		if err != nil {
			return err
		}

		maxRecorded, err := s.versions.MaxVersionNumber(ctx, q, in.DeliverableID)
		if err != nil {
			return fmt.Errorf("failed to get max version number: %w", err)
		}

		v := &domain.DeliverableVersion{
			ID:            uuid.New(),
			DeliverableID: in.DeliverableID,
			VersionNumber: domain.NextVersionNumber(maxRecorded, deliverable.Version),
			FileURL:       in.FileURL,
			ThumbnailURL:  in.ThumbnailURL,
			Notes:         in.Notes,
			CreatedBy:     actor.ID,
		}
		if err := s.versions.Create(ctx, q, v); err != nil {
			return err
		}

		if err := s.deliverables.UpdateCurrentFile(ctx, q, in.DeliverableID, v.VersionNumber, v.FileURL, v.ThumbnailURL); err != nil {
			return err
		}

		version = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

// ListVersions от новой к старой, пустой список если версий нет
func (s *VersionService) ListVersions(ctx context.Context, deliverableID uuid.UUID) ([]domain.DeliverableVersion, error) {
	return s.versions.ListByDeliverable(ctx, nil, deliverableID)
}

// GetVersion находит версию только в пределах своего deliverable
func (s *VersionService) GetVersion(ctx context.Context, deliverableID, versionID uuid.UUID) (*domain.DeliverableVersion, error) {
	v, err := s.versions.GetByID(ctx, nil, versionID)
	if err != nil {
		return nil, err
	}
	if v.DeliverableID != deliverableID {
		return nil, domain.NotFoundError("version")
	}
	return v, nil
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
