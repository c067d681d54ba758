package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReviewEventType string

const (
	EventVersionCreated    ReviewEventType = "version.created"
	EventAnnotationCreated ReviewEventType = "annotation.created"
	EventAnnotationDeleted ReviewEventType = "annotation.deleted"
	EventCommentCreated    ReviewEventType = "comment.created"
	EventCommentUpdated    ReviewEventType = "comment.updated"
	EventCommentDeleted    ReviewEventType = "comment.deleted"
	EventApproved          ReviewEventType = "deliverable.approved"
	EventChangesRequested  ReviewEventType = "deliverable.changes_requested"
)

// ReviewEvent уходит подписчикам после коммита изменения
type ReviewEvent struct {
	Type          ReviewEventType `json:"type"`
	DeliverableID uuid.UUID       `json:"deliverableId"`
	EntityID      uuid.UUID       `json:"entityId"`
	ActorID       string          `json:"actorId"`
	ActorKind     ActorKind       `json:"actorKind"`
	At            time.Time       `json:"at"`
}

func NewReviewEvent(t ReviewEventType, deliverableID, entityID uuid.UUID, actor Actor) ReviewEvent {
	return ReviewEvent{
		Type:          t,
		DeliverableID: deliverableID,
		EntityID:      entityID,
		ActorID:       actor.ID,
		ActorKind:     actor.Kind,
		At:            time.Now().UTC(),
	}
}
