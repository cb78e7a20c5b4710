package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nanalive/randomchat/internal/application/constant"
	"github.com/nanalive/randomchat/internal/application/metric"
	"github.com/nanalive/randomchat/internal/domain/models"
	"github.com/nanalive/randomchat/internal/realtime"
)

// QueueUsecase manages a visitor's membership in the shared waiting
// pool.
type QueueUsecase interface {
	// Enqueue inserts the visitor's waiting ticket, stamped with the
	// current time so pool ordering reflects wait start. A rejected insert
	// (for example a duplicate id) is logged and otherwise ignored: the
	// subscription-driven matcher still observes the pool.
	Enqueue(ctx context.Context, p models.Participant)

	// SubscribeArrivals streams every ticket inserted into the pool,
	// not just the local visitor's, until the cancel func is called.
	SubscribeArrivals() (<-chan models.Participant, func())

	// DequeuePair removes the two tickets consumed by a pairing. Called
	// only by the dequeue owner; tickets already gone are a no-op.
	DequeuePair(ctx context.Context, first, second uuid.UUID)

	// Remove clears a single ticket, used when a visitor abandons the
	// waiting state before a match.
	Remove(ctx context.Context, id uuid.UUID)
}

type queueUsecase struct {
	tickets realtime.TicketStore
	feed    realtime.Feed
}

func NewQueueUsecase(tickets realtime.TicketStore, feed realtime.Feed) QueueUsecase {
	return &queueUsecase{
		tickets: tickets,
		feed:    feed,
	}
}

func (u *queueUsecase) Enqueue(ctx context.Context, p models.Participant) {
	// The ticket's position in the pool reflects when this wait began,
	// not when the visitor first connected. Matters on re-entry after a
	// previous session ended.
	p.EnqueuedAt = time.Now().UTC()

	if err := u.tickets.Insert(ctx, p); err != nil {
		slog.Warn(
			"enqueue waiting ticket",
			slog.Any(constant.Error, err),
			slog.Any(constant.ParticipantID, p.ID),
		)
		return
	}

	metric.IncrementEnqueues()
}

func (u *queueUsecase) SubscribeArrivals() (<-chan models.Participant, func()) {
	return u.feed.TicketInserts()
}

func (u *queueUsecase) DequeuePair(ctx context.Context, first, second uuid.UUID) {
	if err := u.tickets.Delete(ctx, []uuid.UUID{first, second}); err != nil {
		slog.Warn("dequeue matched tickets", slog.Any(constant.Error, err))
	}
}

func (u *queueUsecase) Remove(ctx context.Context, id uuid.UUID) {
	if err := u.tickets.Delete(ctx, []uuid.UUID{id}); err != nil {
		slog.Warn(
			"remove waiting ticket",
			slog.Any(constant.Error, err),
			slog.Any(constant.ParticipantID, id),
		)
	}
}
