package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nanalive/randomchat/internal/domain/models"
)

func ticket(enqueuedAt time.Time) models.Participant {
	return models.Participant{ID: uuid.New(), EnqueuedAt: enqueuedAt}
}

func Test_Insert_Rejects_Duplicate_Ticket_Ids(t *testing.T) {
	req := require.New(t)

	rt := NewRealtime()
	p := ticket(time.Now().UTC())

	req.NoError(rt.Tickets().Insert(context.Background(), p))
	req.Error(rt.Tickets().Insert(context.Background(), p))

	front, err := rt.Tickets().SelectOldest(context.Background(), 10)
	req.NoError(err)
	req.Len(front, 1)
}

func Test_SelectOldest_Orders_By_EnqueuedAt_Then_Id(t *testing.T) {
	req := require.New(t)

	rt := NewRealtime()
	now := time.Now().UTC()

	newest := ticket(now.Add(2 * time.Second))
	oldest := ticket(now)

	tieA := models.Participant{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), EnqueuedAt: now.Add(time.Second)}
	tieB := models.Participant{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), EnqueuedAt: now.Add(time.Second)}

	for _, p := range []models.Participant{newest, tieB, oldest, tieA} {
		req.NoError(rt.Tickets().Insert(context.Background(), p))
	}

	front, err := rt.Tickets().SelectOldest(context.Background(), 3)
	req.NoError(err)
	req.Len(front, 3)
	req.Equal(oldest.ID, front[0].ID)
	req.Equal(tieA.ID, front[1].ID)
	req.Equal(tieB.ID, front[2].ID)
}

func Test_Delete_Is_Idempotent(t *testing.T) {
	req := require.New(t)

	rt := NewRealtime()
	p := ticket(time.Now().UTC())
	req.NoError(rt.Tickets().Insert(context.Background(), p))

	ids := []uuid.UUID{p.ID, uuid.New()}

	req.NoError(rt.Tickets().Delete(context.Background(), ids))
	req.NoError(rt.Tickets().Delete(context.Background(), ids))

	front, err := rt.Tickets().SelectOldest(context.Background(), 10)
	req.NoError(err)
	req.Empty(front)
}

func Test_TicketInserts_Streams_Arrivals_Until_Cancel(t *testing.T) {
	req := require.New(t)

	rt := NewRealtime()

	arrivals, cancel := rt.TicketInserts()

	p := ticket(time.Now().UTC())
	req.NoError(rt.Tickets().Insert(context.Background(), p))

	select {
	case got := <-arrivals:
		req.Equal(p.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("arrival was not delivered")
	}

	cancel()

	req.NoError(rt.Tickets().Insert(context.Background(), ticket(time.Now().UTC())))

	_, ok := <-arrivals
	req.False(ok, "canceled stream must be closed")
}

func Test_InsertMessage_Assigns_Sequence_And_Notifies(t *testing.T) {
	req := require.New(t)

	rt := NewRealtime()

	msgs, cancel := rt.MessageInserts()
	defer cancel()

	for i, body := range []string{"one", "two"} {
		err := rt.Messages().Insert(context.Background(), models.Message{
			Body:     body,
			Sender:   uuid.New(),
			Receiver: uuid.New(),
		})
		req.NoError(err)

		select {
		case got := <-msgs:
			req.Equal(int64(i+1), got.ID)
			req.Equal(body, got.Body)
			req.False(got.CreatedAt.IsZero())
		case <-time.After(time.Second):
			t.Fatal("message was not delivered")
		}
	}
}

func Test_Broadcast_Reaches_Only_Matching_Subscribers(t *testing.T) {
	req := require.New(t)

	rt := NewRealtime()

	match, cancelMatch := rt.Subscribe("leave-abc", "leave")
	defer cancelMatch()

	otherChannel, cancelOther := rt.Subscribe("leave-xyz", "leave")
	defer cancelOther()

	otherEvent, cancelEvent := rt.Subscribe("leave-abc", "typing")
	defer cancelEvent()

	req.NoError(rt.Publish(context.Background(), "leave-abc", "leave", []byte(`{"leaver_id":"x"}`)))

	select {
	case payload := <-match:
		req.JSONEq(`{"leaver_id":"x"}`, string(payload))
	case <-time.After(time.Second):
		t.Fatal("broadcast was not delivered")
	}

	select {
	case <-otherChannel:
		t.Fatal("broadcast leaked to another channel")
	case <-otherEvent:
		t.Fatal("broadcast leaked to another event")
	case <-time.After(50 * time.Millisecond):
	}
}

func Test_Broadcast_Unsubscribe_Stops_Delivery(t *testing.T) {
	req := require.New(t)

	rt := NewRealtime()

	ch, cancel := rt.Subscribe("leave-abc", "leave")
	cancel()

	req.NoError(rt.Publish(context.Background(), "leave-abc", "leave", []byte(`{}`)))

	_, ok := <-ch
	req.False(ok, "canceled subscription must be closed")
}
