package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"

	"github.com/nanalive/randomchat/internal/application/constant"
	"github.com/nanalive/randomchat/internal/domain/models"
)

// Notification channels raised by the insert triggers (see migrations)
// and by Publish.
const (
	ticketChannel    = "waiting_user_inserts"
	messageChannel   = "message_inserts"
	broadcastChannel = "broadcast"
)

const subBuffer = 32

// Listener turns postgres LISTEN/NOTIFY into the realtime feed and
// broadcast ports. It holds one dedicated connection for LISTEN and fans
// every notification out to in-process subscribers. Delivery is
// best-effort: a subscriber that falls behind loses notifications.
type Listener struct {
	url string
	db  *sqlx.DB

	mu            sync.Mutex
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

// broadcastFrame is the wire form of one broadcast publication. All
// broadcast traffic shares a single NOTIFY channel; subscribers filter
// by the ephemeral channel key client-side.
type broadcastFrame struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func NewListener(url string, db *sqlx.DB) *Listener {
	return &Listener{
		url:           url,
		db:            db,
		ticketSubs:    make(map[int]chan models.Participant),
		messageSubs:   make(map[int]chan models.Message),
		broadcastSubs: make(map[int]*broadcastSub),
	}
}

// Run listens for notifications until the context is canceled,
// reconnecting with a small backoff after connection failures.
func (l *Listener) Run(ctx context.Context) error {
	for {
		if err := l.listen(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			slog.Error("postgres listener", slog.Any(constant.Error, err))

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.url)
	if err != nil {
		return fmt.Errorf("connect listener: %w", err)
	}
	defer conn.Close(context.Background())

	for _, ch := range []string{ticketChannel, messageChannel, broadcastChannel} {
		if _, err := conn.Exec(ctx, "LISTEN "+ch); err != nil {
			return fmt.Errorf("listen %s: %w", ch, err)
		}
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		l.dispatch(n.Channel, []byte(n.Payload))
	}
}

func (l *Listener) dispatch(channel string, payload []byte) {
	switch channel {
	case ticketChannel:
		var p models.Participant
		if err := json.Unmarshal(payload, &p); err != nil {
			slog.Error("decode waiting ticket notification", slog.Any(constant.Error, err))
			return
		}
		l.fanOutTicket(p)

	case messageChannel:
		var m models.Message
		if err := json.Unmarshal(payload, &m); err != nil {
			slog.Error("decode message notification", slog.Any(constant.Error, err))
			return
		}
		l.fanOutMessage(m)

	case broadcastChannel:
		var f broadcastFrame
		if err := json.Unmarshal(payload, &f); err != nil {
			slog.Error("decode broadcast frame", slog.Any(constant.Error, err))
			return
		}
		l.fanOutBroadcast(f)
	}
}

func (l *Listener) fanOutTicket(p models.Participant) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, ch := range l.ticketSubs {
		select {
		case ch <- p:
		default:
		}
	}
}

func (l *Listener) fanOutMessage(m models.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, ch := range l.messageSubs {
		select {
		case ch <- m:
		default:
		}
	}
}

func (l *Listener) fanOutBroadcast(f broadcastFrame) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, sub := range l.broadcastSubs {
		if sub.channel != f.Channel || sub.event != f.Event {
			continue
		}
		select {
		case sub.ch <- []byte(f.Payload):
		default:
		}
	}
}

func (l *Listener) TicketInserts() (<-chan models.Participant, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextSubID++
	id := l.nextSubID
	ch := make(chan models.Participant, subBuffer)
	l.ticketSubs[id] = ch

	return ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		if sub, ok := l.ticketSubs[id]; ok {
			delete(l.ticketSubs, id)
			close(sub)
		}
	}
}

func (l *Listener) MessageInserts() (<-chan models.Message, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextSubID++
	id := l.nextSubID
	ch := make(chan models.Message, subBuffer)
	l.messageSubs[id] = ch

	return ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		if sub, ok := l.messageSubs[id]; ok {
			delete(l.messageSubs, id)
			close(sub)
		}
	}
}

// Publish sends an ephemeral broadcast through pg_notify. Only
// listeners connected at this moment receive it.
func (l *Listener) Publish(ctx context.Context, channel, event string, payload []byte) error {
	frame, err := json.Marshal(broadcastFrame{
		Channel: channel,
		Event:   event,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("marshal broadcast frame: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", broadcastChannel, string(frame)); err != nil {
		return fmt.Errorf("publish broadcast: %w", err)
	}

	return nil
}

func (l *Listener) Subscribe(channel, event string) (<-chan []byte, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextSubID++
	id := l.nextSubID
	sub := &broadcastSub{channel: channel, event: event, ch: make(chan []byte, subBuffer)}
	l.broadcastSubs[id] = sub

	return sub.ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		if s, ok := l.broadcastSubs[id]; ok {
			delete(l.broadcastSubs, id)
			close(s.ch)
		}
	}
}
