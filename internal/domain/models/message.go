package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is one chat line, durable in the data service. Immutable once
// inserted; the core never deletes it.
type Message struct {
	ID        int64     `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Body      string    `json:"body" db:"body"`
	Sender    uuid.UUID `json:"sender" db:"sender"`
	Receiver  uuid.UUID `json:"receiver" db:"receiver"`
}
