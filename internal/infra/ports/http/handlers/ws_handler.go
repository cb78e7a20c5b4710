package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/nanalive/randomchat/internal/application/config"
	"github.com/nanalive/randomchat/internal/application/constant"
	"github.com/nanalive/randomchat/internal/application/metric"
	"github.com/nanalive/randomchat/internal/domain/events"
	"github.com/nanalive/randomchat/internal/domain/models"
	"github.com/nanalive/randomchat/internal/infra/appctx"
	"github.com/nanalive/randomchat/internal/usecase"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

type WebSocketHandler struct {
	upgrader *websocket.Upgrader

	chatUsecase usecase.ChatUsecase
}

func NewWebSocketHandler(cfg *config.Config, chatUsecase usecase.ChatUsecase) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.Debug {
					return true
				}

				return r.Header.Get("Origin") == cfg.Domain
			},
		},
		chatUsecase: chatUsecase,
	}
}

// Handle upgrades the visitor's connection and bridges it to a chat
// session: inbound frames become intents, session events go back as
// JSON envelopes. Closing the connection cancels the session, which
// cleans up its ticket or notifies the chat partner.
func (h *WebSocketHandler) Handle(c echo.Context) error {
	participantID, ok := appctx.ParticipantID(c.Request().Context())
	if !ok {
		return fmt.Errorf("get participant id from context")
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"WebSocket upgrade error",
			slog.Any(constant.Error, err),
		)
		return err
	}
	defer ws.Close()

	metric.IncrementWSActiveConnections()
	defer metric.DecrementWSActiveConnections()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	conn := &wsConn{ws: ws}

	session := h.chatUsecase.NewSession(
		models.Participant{ID: participantID, EnqueuedAt: time.Now().UTC()},
		conn,
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		session.Run(ctx)
	}()

	// Every exit path drains the session before the deferred ws.Close:
	// the session goroutine writes through conn until its teardown
	// (ticket removal or leave broadcast) finishes.
	defer func() {
		cancel()
		<-done
	}()

	if err = ws.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return err
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.WritePing(); err != nil {
					slog.Error("ping failed", slog.Any(constant.Error, err))
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			h.handleWebsocketError(participantID, err)
			return nil
		}

		var evt events.Envelope
		if err = json.Unmarshal(msg, &evt); err != nil {
			slog.Error("unmarshal websocket message", slog.Any(constant.Error, err))
			continue
		}

		session.Dispatch(evt)
	}
}

func (h *WebSocketHandler) handleWebsocketError(participantID uuid.UUID, err error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway:
			slog.Info("visitor disconnected from websocket", slog.Any(constant.ParticipantID, participantID))
		default:
			slog.Error("websocket close error", slog.Any(constant.Error, err))
		}
	} else {
		slog.Error(
			"websocket read",
			slog.Any(constant.Error, err),
		)
	}
}

// wsConn serializes writes to one websocket connection. The session
// goroutine and the ping ticker both write through it.
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// Send implements usecase.Sink.
func (c *wsConn) Send(evt events.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ws.WriteJSON(evt); err != nil {
		slog.Error(
			"write to websocket",
			slog.Any(constant.Error, err),
			slog.String("type", evt.Type),
		)
	}
}

func (c *wsConn) WritePing() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ws.WriteMessage(websocket.PingMessage, nil)
}
