package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeliverableVersion неизменяема после создания
type DeliverableVersion struct {
	ID            uuid.UUID `json:"id" db:"id"`
	DeliverableID uuid.UUID `json:"deliverableId" db:"deliverable_id"`
	VersionNumber int       `json:"versionNumber" db:"version_number"`
	FileURL       string    `json:"fileUrl" db:"file_url"`
	ThumbnailURL  *string   `json:"thumbnailUrl" db:"thumbnail_url"`
	Notes         *string   `json:"notes" db:"notes"`
	CreatedBy     string    `json:"createdBy" db:"created_by"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// NextVersionNumber берет максимум из истории версий и счетчика на deliverable.
// Счетчик и таблица версий могут разойтись у старых записей.
func NextVersionNumber(maxRecorded, deliverableVersion int) int {
	if deliverableVersion > maxRecorded {
		return deliverableVersion + 1
	}
	return maxRecorded + 1
}

// DownloadLink ссылка на скачивание файла версии
type DownloadLink struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
