package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Activity is one audit-log row. Details holds the JSON encoding of a typed
// activity detail struct.
type Activity struct {
	ID        uuid.UUID       `json:"id"`
	ActorID   uuid.UUID       `json:"actor_id"`
	Action    string          `json:"action"`
	SubjectID uuid.UUID       `json:"subject_id"`
	Details   json.RawMessage `json:"details"`
	CreatedAt time.Time       `json:"created_at"`
}
