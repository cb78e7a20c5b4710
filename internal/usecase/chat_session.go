package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nanalive/randomchat/internal/application/constant"
	"github.com/nanalive/randomchat/internal/application/metric"
	"github.com/nanalive/randomchat/internal/domain/events"
	"github.com/nanalive/randomchat/internal/domain/models"
	"github.com/nanalive/randomchat/internal/realtime"
)

const (
	leaveEvent         = "leave"
	leaveChannelPrefix = "leave-"

	intentBuffer    = 16
	teardownTimeout = 5 * time.Second
)

// Sink receives the events a session emits toward the presentation
// layer (the websocket connection, in production).
type Sink interface {
	Send(evt events.Envelope)
}

// ChatUsecase creates per-visitor chat sessions wired to the shared
// realtime substrate.
type ChatUsecase interface {
	NewSession(self models.Participant, sink Sink) *ChatSession
}

type chatUsecase struct {
	queue      QueueUsecase
	matchmaker Matchmaker
	relay      Relay
	broadcast  realtime.Broadcaster
}

func NewChatUsecase(
	queue QueueUsecase,
	matchmaker Matchmaker,
	relay Relay,
	broadcast realtime.Broadcaster,
) ChatUsecase {
	return &chatUsecase{
		queue:      queue,
		matchmaker: matchmaker,
		relay:      relay,
		broadcast:  broadcast,
	}
}

func (u *chatUsecase) NewSession(self models.Participant, sink Sink) *ChatSession {
	return &ChatSession{
		self:       self,
		sink:       sink,
		queue:      u.queue,
		matchmaker: u.matchmaker,
		relay:      u.relay,
		broadcast:  u.broadcast,
		status:     models.StatusWaiting,
		intents:    make(chan events.Envelope, intentBuffer),
	}
}

// ChatSession owns one visitor's chat lifecycle:
//
//	Waiting -> Matched -> Ended -> Waiting (find new chat)
//
// All state transitions happen on the single goroutine running Run. The
// connection reader only pushes intents through Dispatch; every
// subscription a state needs is taken when the state is entered and
// released when it is left.
type ChatSession struct {
	self models.Participant
	sink Sink

	queue      QueueUsecase
	matchmaker Matchmaker
	relay      Relay
	broadcast  realtime.Broadcaster

	intents chan events.Envelope

	mu         sync.Mutex
	status     models.ChatStatus
	pair       *models.Pair
	transcript []models.Message
}

func (s *ChatSession) Participant() models.Participant {
	return s.self
}

func (s *ChatSession) Status() models.ChatStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

func (s *ChatSession) Pair() (models.Pair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pair == nil {
		return models.Pair{}, false
	}
	return *s.pair, true
}

// Transcript returns the messages visible in the current session, in
// arrival order.
func (s *ChatSession) Transcript() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Dispatch hands a client intent to the session loop. Safe to call from
// the connection reader goroutine; a full queue drops the intent rather
// than blocking the reader.
func (s *ChatSession) Dispatch(evt events.Envelope) {
	select {
	case s.intents <- evt:
	default:
		slog.Warn(
			"drop client intent",
			slog.String("type", evt.Type),
			slog.Any(constant.ParticipantID, s.self.ID),
		)
	}
}

// Run drives the session until the context is canceled. It must be
// called exactly once.
func (s *ChatSession) Run(ctx context.Context) {
	for ctx.Err() == nil {
		switch s.Status() {
		case models.StatusWaiting:
			s.runWaiting(ctx)
		case models.StatusMatched:
			s.runMatched(ctx)
		case models.StatusEnded:
			s.runEnded(ctx)
		}
	}
}

// runWaiting enqueues the visitor and reacts to arrival notifications
// until a pairing is committed or the visitor goes away.
func (s *ChatSession) runWaiting(ctx context.Context) {
	arrivals, cancel := s.queue.SubscribeArrivals()
	defer cancel()

	s.queue.Enqueue(ctx, s.self)
	s.emitStatus(models.StatusWaiting)

	for {
		select {
		case <-ctx.Done():
			s.removeOwnTicket()
			return

		case evt := <-s.intents:
			// The only meaningful intent before a match is leaving;
			// no session exists yet, so nothing is broadcast.
			if evt.Type == events.TypeLeave {
				s.removeOwnTicket()
				s.setStatus(models.StatusEnded)
				s.emitStatus(models.StatusEnded)
				return
			}

		case _, ok := <-arrivals:
			if !ok {
				return
			}

			pair, matched, err := s.matchmaker.CheckMatch(ctx, s.self.ID)
			if err != nil {
				if ctx.Err() != nil {
					s.removeOwnTicket()
					return
				}
				// Transient read failure: the next arrival triggers
				// another check.
				slog.Error("matchmaking check", slog.Any(constant.Error, err))
				continue
			}
			if !matched {
				continue
			}

			s.setMatched(pair)
			metric.IncrementMatches()

			// No further pairing attempts once matched.
			cancel()

			// Duplicate-delete tie-break: only the holder of the
			// earlier ticket cleans up the pair.
			if pair.A.ID == s.self.ID {
				s.queue.DequeuePair(ctx, pair.A.ID, pair.B.ID)
			}

			return
		}
	}
}

// runMatched relays messages and watches the session's leave channel
// until either side departs.
func (s *ChatSession) runMatched(ctx context.Context) {
	pair, ok := s.Pair()
	if !ok {
		s.setStatus(models.StatusEnded)
		return
	}

	sessionID := pair.SessionID()

	leaveCh, cancelLeave := s.broadcast.Subscribe(leaveChannelPrefix+sessionID, leaveEvent)
	defer cancelLeave()

	msgs, cancelMsgs := s.relay.SubscribeSession(pair)
	defer cancelMsgs()

	// The visible history of a session starts empty; nothing is
	// replayed from before the pairing.
	s.resetTranscript()
	s.emitMatched(pair, sessionID)

	for {
		select {
		case <-ctx.Done():
			// The visitor dropped mid-session. Let the other side know
			// instead of leaving it talking to nobody.
			s.publishLeave(sessionID)
			s.setStatus(models.StatusEnded)
			return

		case payload, ok := <-leaveCh:
			if !ok {
				return
			}

			var ev events.LeaveEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				slog.Error("decode leave event", slog.Any(constant.Error, err))
				continue
			}

			// Our own leave echoes back on the channel; only the
			// partner's departure ends the session here.
			if ev.LeaverID == s.self.ID {
				continue
			}

			s.setStatus(models.StatusEnded)
			s.emitStatus(models.StatusEnded)
			return

		case m, ok := <-msgs:
			if !ok {
				return
			}

			s.appendTranscript(m)
			s.emitMessage(m)

		case evt := <-s.intents:
			switch evt.Type {
			case events.TypeSendMessage:
				s.handleSend(ctx, pair, evt)

			case events.TypeLeave:
				s.publishLeave(sessionID)
				s.setStatus(models.StatusEnded)
				s.emitStatus(models.StatusEnded)
				return
			}
		}
	}
}

// runEnded idles until the visitor asks for a new chat.
func (s *ChatSession) runEnded(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case evt := <-s.intents:
			if evt.Type == events.TypeFindNewChat {
				s.reset()
				return
			}
		}
	}
}

func (s *ChatSession) handleSend(ctx context.Context, pair models.Pair, evt events.Envelope) {
	var send events.SendMessageEvent
	if err := json.Unmarshal(evt.Data, &send); err != nil {
		slog.Error("decode send_message intent", slog.Any(constant.Error, err))
		return
	}

	err := s.relay.Send(ctx, pair, s.self.ID, send.Body)
	switch {
	case err == nil:
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrMessageTooLong):
		// Rejected locally before any store call; nothing to report.
	default:
		// Transient store failure: the message is dropped for this
		// attempt, the user retries by sending again.
		slog.Error(
			"relay message",
			slog.Any(constant.Error, err),
			slog.Any(constant.ParticipantID, s.self.ID),
		)
	}
}

func (s *ChatSession) publishLeave(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	payload, err := json.Marshal(events.LeaveEvent{LeaverID: s.self.ID})
	if err != nil {
		slog.Error("marshal leave event", slog.Any(constant.Error, err))
		return
	}

	if err := s.broadcast.Publish(ctx, leaveChannelPrefix+sessionID, leaveEvent, payload); err != nil {
		slog.Error(
			"publish leave event",
			slog.Any(constant.Error, err),
			slog.Any(constant.SessionID, sessionID),
		)
	}
}

// removeOwnTicket clears the visitor's waiting ticket when it abandons
// the pool before a match. Uses its own context: the connection context
// is usually already gone by now.
func (s *ChatSession) removeOwnTicket() {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	s.queue.Remove(ctx, s.self.ID)
}

func (s *ChatSession) setStatus(status models.ChatStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
}

func (s *ChatSession) setMatched(pair models.Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = models.StatusMatched
	s.pair = &pair
}

func (s *ChatSession) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = models.StatusWaiting
	s.pair = nil
	s.transcript = nil
}

func (s *ChatSession) resetTranscript() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transcript = nil
}

func (s *ChatSession) appendTranscript(m models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transcript = append(s.transcript, m)
}

func (s *ChatSession) emitStatus(status models.ChatStatus) {
	s.emit(events.TypeStatus, events.StatusEvent{Status: status})
}

func (s *ChatSession) emitMatched(pair models.Pair, sessionID string) {
	s.emit(events.TypeMatched, events.MatchedEvent{
		SessionID: sessionID,
		You:       s.self.ID,
		Stranger:  pair.Other(s.self.ID),
	})
}

func (s *ChatSession) emitMessage(m models.Message) {
	s.emit(events.TypeMessage, events.MessageEvent{
		ID:        m.ID,
		Body:      m.Body,
		Sender:    m.Sender,
		CreatedAt: m.CreatedAt.Format(time.RFC3339Nano),
	})
}

func (s *ChatSession) emit(typ string, payload any) {
	evt, err := events.New(typ, payload)
	if err != nil {
		slog.Error("build session event", slog.Any(constant.Error, err))
		return
	}

	s.sink.Send(evt)
}
