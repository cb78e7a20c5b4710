package events

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nanalive/randomchat/internal/domain/models"
)

// Envelope is the common frame for every websocket message, both
// directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client -> server intents.
const (
	TypeSendMessage = "send_message"
	TypeLeave       = "leave"
	TypeFindNewChat = "find_new_chat"
)

// Server -> client events.
const (
	TypeStatus  = "status"
	TypeMatched = "matched"
	TypeMessage = "message"
	TypeError   = "error"
)

// SendMessageEvent carries the body of an outgoing chat message.
type SendMessageEvent struct {
	Body string `json:"body"`
}

// StatusEvent announces a session state change.
type StatusEvent struct {
	Status models.ChatStatus `json:"status"`
}

// MatchedEvent tells a visitor who it has been paired with.
type MatchedEvent struct {
	SessionID string    `json:"session_id"`
	You       uuid.UUID `json:"you"`
	Stranger  uuid.UUID `json:"stranger"`
}

// MessageEvent delivers one chat line of the current session.
type MessageEvent struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	Sender    uuid.UUID `json:"sender"`
	CreatedAt string    `json:"created_at"`
}

// LeaveEvent is the payload broadcast on a session's leave channel.
type LeaveEvent struct {
	LeaverID uuid.UUID `json:"leaver_id"`
}

// New wraps a payload into an Envelope of the given type.
func New(typ string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s event: %w", typ, err)
	}

	return Envelope{Type: typ, Data: data}, nil
}
