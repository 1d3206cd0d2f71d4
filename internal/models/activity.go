package models

import (
	"time"

	"github.com/google/uuid"
)

// Activity is one append-only audit entry written around dealer transitions.
type Activity struct {
	ID        uuid.UUID              `json:"id"`
	Room      string                 `json:"room"`
	Seq       int64                  `json:"seq"`
	Player    string                 `json:"player,omitempty"`
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
