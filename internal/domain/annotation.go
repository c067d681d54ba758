package domain

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultAnnotationColor фирменный цвет студии
const DefaultAnnotationColor = "#FF5A1F"

// Coordinates произвольный JSON с геометрией маркера, форма не проверяется
type Coordinates []byte

func (c Coordinates) IsZero() bool {
	trimmed := bytes.TrimSpace(c)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (c Coordinates) MarshalJSON() ([]byte, error) {
	if c.IsZero() {
		return []byte("null"), nil
	}
	return c, nil
}

func (c *Coordinates) UnmarshalJSON(data []byte) error {
	*c = append((*c)[0:0], data...)
	return nil
}

func (c Coordinates) Value() (driver.Value, error) {
	if c.IsZero() {
		return nil, nil
	}
	return []byte(c), nil
}

func (c *Coordinates) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = nil
	case []byte:
		*c = append(Coordinates(nil), v...)
	case string:
		*c = Coordinates(v)
	default:
		return fmt.Errorf("unsupported coordinates type %T", src)
	}
	return nil
}

type Annotation struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	DeliverableID uuid.UUID   `json:"deliverableId" db:"deliverable_id"`
	Type          string      `json:"type" db:"type"`
	Coordinates   Coordinates `json:"coordinates" db:"coordinates"`
	Color         string      `json:"color" db:"color"`
	Timestamp     float64     `json:"timestamp" db:"time_seconds"`
	Comment       string      `json:"comment" db:"comment"`
	AuthorID      string      `json:"authorId" db:"author_id"`
	CreatedAt     time.Time   `json:"createdAt" db:"created_at"`
}
