package domain

import (
	"time"

	"github.com/google/uuid"
)

// TimelineComment поддерживает только один уровень ответов
type TimelineComment struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	DeliverableID uuid.UUID         `json:"deliverableId" db:"deliverable_id"`
	Content       string            `json:"content" db:"content"`
	Timestamp     float64           `json:"timestamp" db:"time_seconds"`
	AuthorID      string            `json:"authorId" db:"author_id"`
	AuthorType    ActorKind         `json:"authorType" db:"author_type"`
	ParentID      *uuid.UUID        `json:"parentId" db:"parent_id"`
	Resolved      bool              `json:"resolved" db:"resolved"`
	CreatedAt     time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time         `json:"updatedAt" db:"updated_at"`
	Replies       []TimelineComment `json:"replies" db:"-"`
}

func (c *TimelineComment) IsReply() bool {
	return c.ParentID != nil
}
