package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nanalive/randomchat/internal/application/metric"
	"github.com/nanalive/randomchat/internal/domain/models"
	"github.com/nanalive/randomchat/internal/realtime"
)

// ErrEmptyMessage rejects blank and whitespace-only bodies before any
// store call.
var ErrEmptyMessage = errors.New("empty message body")

// ErrMessageTooLong rejects bodies that would not fit the notification
// payload of the change feed.
var ErrMessageTooLong = errors.New("message body too long")

// MaxMessageLen bounds the body in bytes. The change feed carries the
// whole row through a pg_notify payload capped at 8000 bytes, so the
// body must leave headroom for the JSON framing around it.
const MaxMessageLen = 2000

const relayBuffer = 32

// Relay writes chat messages as durable rows and turns the global
// message insert feed into a per-session stream.
type Relay interface {
	Send(ctx context.Context, pair models.Pair, senderID uuid.UUID, body string) error
	SubscribeSession(pair models.Pair) (<-chan models.Message, func())
}

type relay struct {
	store realtime.MessageStore
	feed  realtime.Feed
}

func NewRelay(store realtime.MessageStore, feed realtime.Feed) Relay {
	return &relay{
		store: store,
		feed:  feed,
	}
}

// Send inserts one message addressed to the other member of the pair.
func (r *relay) Send(ctx context.Context, pair models.Pair, senderID uuid.UUID, body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmptyMessage
	}

	if len(body) > MaxMessageLen {
		return ErrMessageTooLong
	}

	msg := models.Message{
		Body:     body,
		Sender:   senderID,
		Receiver: pair.Other(senderID),
	}

	if err := r.store.Insert(ctx, msg); err != nil {
		metric.IncrementMessageSendErrors()
		return fmt.Errorf("send message: %w", err)
	}

	metric.IncrementMessagesRelayed()

	return nil
}

// SubscribeSession filters the global insert feed down to the messages
// of the pair, in arrival order. The underlying stream is not scoped
// server-side, so every row is checked against the pair as it arrives
// and foreign rows are discarded silently.
func (r *relay) SubscribeSession(pair models.Pair) (<-chan models.Message, func()) {
	raw, cancel := r.feed.MessageInserts()
	out := make(chan models.Message, relayBuffer)

	go func() {
		defer close(out)

		for m := range raw {
			if !belongsToPair(pair, m) {
				continue
			}
			select {
			case out <- m:
			default:
			}
		}
	}()

	return out, cancel
}

func belongsToPair(pair models.Pair, m models.Message) bool {
	return (m.Sender == pair.A.ID && m.Receiver == pair.B.ID) ||
		(m.Sender == pair.B.ID && m.Receiver == pair.A.ID)
}
