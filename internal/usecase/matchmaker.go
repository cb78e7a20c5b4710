package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nanalive/randomchat/internal/domain/models"
	"github.com/nanalive/randomchat/internal/realtime"
)

// Matchmaker implements the optimistic pairing protocol. On every
// arrival notification each waiting client waits out the settle delay,
// reads the two oldest tickets, and commits a pairing only if its own
// ticket is one of them. The protocol is eventually consistent: there
// is no cross-client lock, duplicate checks and redundant deletes are
// harmless, and the client holding the earlier of the two tickets is
// the single dequeue owner.
type Matchmaker interface {
	CheckMatch(ctx context.Context, selfID uuid.UUID) (models.Pair, bool, error)
}

type matchmaker struct {
	tickets realtime.TicketStore
	settle  time.Duration
}

func NewMatchmaker(tickets realtime.TicketStore, settle time.Duration) Matchmaker {
	return &matchmaker{
		tickets: tickets,
		settle:  settle,
	}
}

// CheckMatch reports whether the local participant sits at the front of
// the waiting pool together with a partner. The returned pair preserves
// queue order: Pair.A holds the earlier ticket.
func (m *matchmaker) CheckMatch(ctx context.Context, selfID uuid.UUID) (models.Pair, bool, error) {
	// Let concurrent inserts land before reading, so both sides of a
	// pairing observe the same front of the queue.
	select {
	case <-ctx.Done():
		return models.Pair{}, false, ctx.Err()
	case <-time.After(m.settle):
	}

	front, err := m.tickets.SelectOldest(ctx, 2)
	if err != nil {
		return models.Pair{}, false, fmt.Errorf("read waiting pool: %w", err)
	}

	if len(front) < 2 {
		return models.Pair{}, false, nil
	}

	if front[0].ID != selfID && front[1].ID != selfID {
		return models.Pair{}, false, nil
	}

	return models.Pair{A: front[0], B: front[1]}, true, nil
}
