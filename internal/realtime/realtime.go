// Package realtime declares the ports of the realtime data substrate the
// chat core coordinates through: durable row stores, insert feeds and
// ephemeral broadcast channels. The postgres adapter backs them with
// tables plus LISTEN/NOTIFY, the memory adapter keeps everything
// in-process.
package realtime

import (
	"context"

	"github.com/google/uuid"

	"github.com/nanalive/randomchat/internal/domain/models"
)

// TicketStore is the shared waiting pool.
type TicketStore interface {
	// Insert adds one waiting ticket. A second ticket for the same
	// participant id is rejected with an error.
	Insert(ctx context.Context, p models.Participant) error

	// SelectOldest returns up to limit tickets ordered by enqueued_at
	// ascending, ties broken by id, i.e. the front of the queue.
	SelectOldest(ctx context.Context, limit int) ([]models.Participant, error)

	// Delete removes the named tickets. Missing ids are not an error.
	Delete(ctx context.Context, ids []uuid.UUID) error
}

// MessageStore is the durable append-only message log.
type MessageStore interface {
	Insert(ctx context.Context, msg models.Message) error
}

// Feed exposes insert notifications for the shared tables. Each call
// returns a fresh stream plus a cancel func; after cancel the channel is
// closed and no further rows are delivered. Delivery is best-effort:
// a subscriber that falls behind loses notifications rather than
// blocking the feed.
type Feed interface {
	TicketInserts() (<-chan models.Participant, func())
	MessageInserts() (<-chan models.Message, func())
}

// Broadcaster carries ephemeral events on named channels. There is no
// durability: only subscribers connected at publish time receive the
// payload.
type Broadcaster interface {
	Publish(ctx context.Context, channel, event string, payload []byte) error
	Subscribe(channel, event string) (<-chan []byte, func())
}
