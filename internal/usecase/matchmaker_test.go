package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nanalive/randomchat/internal/domain/models"
	"github.com/nanalive/randomchat/internal/infra/adapters/memory"
)

const testSettle = time.Millisecond

func Test_CheckMatch_Empty_Pool_Does_Not_Match(t *testing.T) {
	req := require.New(t)

	rt := memory.NewRealtime()
	mm := NewMatchmaker(rt.Tickets(), testSettle)

	_, matched, err := mm.CheckMatch(context.Background(), models.NewParticipant().ID)
	req.NoError(err)
	req.False(matched)
}

func Test_CheckMatch_Single_Ticket_Does_Not_Match(t *testing.T) {
	req := require.New(t)

	rt := memory.NewRealtime()
	self := models.NewParticipant()
	req.NoError(rt.Tickets().Insert(context.Background(), self))

	mm := NewMatchmaker(rt.Tickets(), testSettle)

	_, matched, err := mm.CheckMatch(context.Background(), self.ID)
	req.NoError(err)
	req.False(matched)
}

func Test_CheckMatch_Commits_For_Both_Front_Tickets(t *testing.T) {
	req := require.New(t)

	rt := memory.NewRealtime()
	now := time.Now().UTC()

	first := models.Participant{ID: models.NewParticipant().ID, EnqueuedAt: now}
	second := models.Participant{ID: models.NewParticipant().ID, EnqueuedAt: now.Add(time.Second)}

	// Insert out of queue order; the read must still return the oldest
	// ticket first.
	req.NoError(rt.Tickets().Insert(context.Background(), second))
	req.NoError(rt.Tickets().Insert(context.Background(), first))

	mm := NewMatchmaker(rt.Tickets(), testSettle)

	for _, self := range []models.Participant{first, second} {
		pair, matched, err := mm.CheckMatch(context.Background(), self.ID)
		req.NoError(err)
		req.True(matched)
		req.Equal(first.ID, pair.A.ID)
		req.Equal(second.ID, pair.B.ID)
	}
}

func Test_CheckMatch_Bystander_Behind_The_Front_Does_Not_Match(t *testing.T) {
	req := require.New(t)

	rt := memory.NewRealtime()
	now := time.Now().UTC()

	for i := 0; i < 2; i++ {
		p := models.Participant{ID: models.NewParticipant().ID, EnqueuedAt: now.Add(time.Duration(i) * time.Second)}
		req.NoError(rt.Tickets().Insert(context.Background(), p))
	}

	third := models.Participant{ID: models.NewParticipant().ID, EnqueuedAt: now.Add(2 * time.Second)}
	req.NoError(rt.Tickets().Insert(context.Background(), third))

	mm := NewMatchmaker(rt.Tickets(), testSettle)

	_, matched, err := mm.CheckMatch(context.Background(), third.ID)
	req.NoError(err)
	req.False(matched)
}

func Test_CheckMatch_Canceled_Context_Aborts_The_Settle_Wait(t *testing.T) {
	req := require.New(t)

	rt := memory.NewRealtime()
	mm := NewMatchmaker(rt.Tickets(), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, matched, err := mm.CheckMatch(ctx, models.NewParticipant().ID)
	req.Error(err)
	req.False(matched)
}
