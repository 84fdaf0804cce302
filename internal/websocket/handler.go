package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type HandlerOptions struct {
	Logger *slog.Logger
	// AllowedOrigins restricts browser origins; empty or "*" accepts any.
	AllowedOrigins []string
}

// Handler joins websocket clients to alert rooms. Each room is fed by the
// subscriber channel of the same name, subscribed once on first join.
type Handler struct {
	hub        *Hub
	subscriber Subscriber
	upgrader   websocket.Upgrader
	logger     *slog.Logger
	ctx        context.Context
}

// NewHandler binds subscriptions to ctx so they stop with the server.
func NewHandler(ctx context.Context, hub *Hub, subscriber Subscriber, opts HandlerOptions) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		hub:        hub,
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
		logger: opts.Logger.With(slog.String("component", "ws_handler")),
		ctx:    ctx,
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	open := len(allowed) == 0
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			open = true
		}
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return open || origin == "" || set[origin]
	}
}

// CreateRoom registers roomID and starts its subscription if it is new.
func (h *Handler) CreateRoom(roomID string) error {
	if !h.hub.ensureRoom(roomID) {
		return nil
	}
	if h.subscriber == nil {
		return nil
	}
	msgs, err := h.subscriber.Subscribe(h.ctx, roomID)
	if err != nil {
		return err
	}
	go h.forward(roomID, msgs)
	return nil
}

func (h *Handler) forward(roomID string, msgs <-chan string) {
	h.logger.Info("subscribed to alert channel", slog.String("room", roomID))
	for payload := range msgs {
		h.hub.Publish(h.ctx, &WSMessage{
			Content:   payload,
			RoomID:    roomID,
			Timestamp: time.Now().Unix(),
		})
	}
	h.logger.Info("alert channel subscription ended", slog.String("room", roomID))
}

// JoinRoom upgrades the request and attaches the connection to roomID. An error
// means nothing was written yet; upgrade failures are answered by the upgrader.
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request, roomID string) error {
	if err := h.CreateRoom(roomID); err != nil {
		return fmt.Errorf("create room %s: %w", roomID, err)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return nil
	}

	cl := newClient(conn, uuid.NewString(), roomID, h.logger)
	select {
	case h.hub.Register <- cl:
	case <-h.hub.Done():
		conn.Close()
		return nil
	}

	go cl.keepAlive()
	go cl.writeMessage()
	go cl.readMessage(h.hub)
	return nil
}

func (h *Handler) GetRooms() []RoomRes {
	return h.hub.Rooms()
}
