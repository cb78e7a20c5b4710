package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant is an anonymous visitor. While waiting for a match its row
// lives in the waiting pool; the row disappears the moment a pairing
// consumes it.
type Participant struct {
	ID         uuid.UUID `json:"id" db:"id"`
	EnqueuedAt time.Time `json:"enqueued_at" db:"enqueued_at"`
}

func NewParticipant() Participant {
	return Participant{
		ID:         uuid.New(),
		EnqueuedAt: time.Now().UTC(),
	}
}
