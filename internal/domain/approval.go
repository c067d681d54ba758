package domain

import (
	"time"

	"github.com/google/uuid"
)

type ApprovalStatus string

const (
	ApprovalStatusApproved         ApprovalStatus = "APPROVED"
	ApprovalStatusChangesRequested ApprovalStatus = "CHANGES_REQUESTED"
)

// ResultingStatus статус deliverable после решения
func (s ApprovalStatus) ResultingStatus() DeliverableStatus {
	switch s {
	case ApprovalStatusApproved:
		return DeliverableStatusApproved
	default:
		return DeliverableStatusInReview
	}
}

// Approval историческая запись, не изменяется и не удаляется
type Approval struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	DeliverableID uuid.UUID      `json:"deliverableId" db:"deliverable_id"`
	Status        ApprovalStatus `json:"status" db:"status"`
	Notes         string         `json:"notes" db:"notes"`
	VersionID     *uuid.UUID     `json:"versionId" db:"version_id"`
	ApproverID    string         `json:"approverId" db:"approver_id"`
	ApproverType  ActorKind      `json:"approverType" db:"approver_type"`
	CreatedAt     time.Time      `json:"createdAt" db:"created_at"`
}

// ApprovalResult ответ на approve / request-changes
type ApprovalResult struct {
	Approval *Approval         `json:"approval"`
	Status   DeliverableStatus `json:"status"`
}
