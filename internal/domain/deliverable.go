package domain

import (
	"time"

	"github.com/google/uuid"
)

type DeliverableStatus string

const (
	DeliverableStatusDraft    DeliverableStatus = "DRAFT"
	DeliverableStatusInReview DeliverableStatus = "IN_REVIEW"
	DeliverableStatusApproved DeliverableStatus = "APPROVED"
	DeliverableStatusRejected DeliverableStatus = "REJECTED"
)

// Deliverable хранит денормализованные поля последней версии: version, file_url, thumbnail_url
type Deliverable struct {
	ID           uuid.UUID         `json:"id" db:"id"`
	ProjectID    uuid.UUID         `json:"projectId" db:"project_id"`
	Name         string            `json:"name" db:"name"`
	Status       DeliverableStatus `json:"status" db:"status"`
	Version      int               `json:"version" db:"version"`
	FileURL      *string           `json:"fileUrl" db:"file_url"`
	ThumbnailURL *string           `json:"thumbnailUrl" db:"thumbnail_url"`
	CreatedAt    time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time         `json:"updatedAt" db:"updated_at"`
}
