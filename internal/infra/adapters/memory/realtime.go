package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nanalive/randomchat/internal/domain/models"
	"github.com/nanalive/randomchat/internal/realtime"
)

const subBuffer = 32

// Realtime is an in-process realtime substrate: waiting pool, message
// log, insert feeds and broadcast channels behind the same ports the
// postgres adapter implements. Used with REALTIME_DRIVER=memory and as
// the harness for tests.
type Realtime struct {
	mu sync.Mutex

	tickets   []models.Participant
	messages  []models.Message
	nextMsgID int64

	nextSubID     int
	ticketSubs    map[int]chan models.Participant
	messageSubs   map[int]chan models.Message
	broadcastSubs map[int]*broadcastSub
}

type broadcastSub struct {
	channel string
	event   string
	ch      chan []byte
}

func NewRealtime() *Realtime {
	return &Realtime{
		ticketSubs:    make(map[int]chan models.Participant),
		messageSubs:   make(map[int]chan models.Message),
		broadcastSubs: make(map[int]*broadcastSub),
	}
}

// Tickets returns the waiting pool view of the substrate.
func (r *Realtime) Tickets() realtime.TicketStore {
	return ticketStore{r}
}

// Messages returns the message log view of the substrate.
func (r *Realtime) Messages() realtime.MessageStore {
	return messageStore{r}
}

type ticketStore struct {
	r *Realtime
}

func (s ticketStore) Insert(_ context.Context, p models.Participant) error {
	r := s.r

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tickets {
		if t.ID == p.ID {
			return fmt.Errorf("insert waiting ticket: duplicate id %s", p.ID)
		}
	}

	if p.EnqueuedAt.IsZero() {
		p.EnqueuedAt = time.Now().UTC()
	}

	r.tickets = append(r.tickets, p)

	for _, ch := range r.ticketSubs {
		select {
		case ch <- p:
		default:
		}
	}

	return nil
}

func (s ticketStore) SelectOldest(_ context.Context, limit int) ([]models.Participant, error) {
	r := s.r

	r.mu.Lock()
	defer r.mu.Unlock()

	front := make([]models.Participant, len(r.tickets))
	copy(front, r.tickets)

	sort.Slice(front, func(i, j int) bool {
		if !front[i].EnqueuedAt.Equal(front[j].EnqueuedAt) {
			return front[i].EnqueuedAt.Before(front[j].EnqueuedAt)
		}
		return front[i].ID.String() < front[j].ID.String()
	})

	if len(front) > limit {
		front = front[:limit]
	}

	return front, nil
}

// Delete removes the named tickets. Ids that are already gone are
// ignored.
func (s ticketStore) Delete(_ context.Context, ids []uuid.UUID) error {
	r := s.r

	r.mu.Lock()
	defer r.mu.Unlock()

	drop := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	kept := r.tickets[:0]
	for _, t := range r.tickets {
		if _, ok := drop[t.ID]; !ok {
			kept = append(kept, t)
		}
	}
	r.tickets = kept

	return nil
}

type messageStore struct {
	r *Realtime
}

func (s messageStore) Insert(_ context.Context, msg models.Message) error {
	r := s.r

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextMsgID++
	msg.ID = r.nextMsgID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	r.messages = append(r.messages, msg)

	for _, ch := range r.messageSubs {
		select {
		case ch <- msg:
		default:
		}
	}

	return nil
}

func (r *Realtime) TicketInserts() (<-chan models.Participant, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextSubID++
	id := r.nextSubID
	ch := make(chan models.Participant, subBuffer)
	r.ticketSubs[id] = ch

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		if sub, ok := r.ticketSubs[id]; ok {
			delete(r.ticketSubs, id)
			close(sub)
		}
	}
}

func (r *Realtime) MessageInserts() (<-chan models.Message, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextSubID++
	id := r.nextSubID
	ch := make(chan models.Message, subBuffer)
	r.messageSubs[id] = ch

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		if sub, ok := r.messageSubs[id]; ok {
			delete(r.messageSubs, id)
			close(sub)
		}
	}
}

// Publish delivers the payload to every subscriber of the channel/event
// pair that is connected right now. Nothing is retained.
func (r *Realtime) Publish(_ context.Context, channel, event string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range r.broadcastSubs {
		if sub.channel != channel || sub.event != event {
			continue
		}
		select {
		case sub.ch <- payload:
		default:
		}
	}

	return nil
}

func (r *Realtime) Subscribe(channel, event string) (<-chan []byte, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextSubID++
	id := r.nextSubID
	sub := &broadcastSub{channel: channel, event: event, ch: make(chan []byte, subBuffer)}
	r.broadcastSubs[id] = sub

	return sub.ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		if s, ok := r.broadcastSubs[id]; ok {
			delete(r.broadcastSubs, id)
			close(s.ch)
		}
	}
}
