package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	readLimit    = 4 * 1024
)

// WSClient is one feed subscriber. The feed is server push only; anything the
// client sends is read and dropped so close frames and pongs are still handled.
type WSClient struct {
	Conn    *websocket.Conn
	Message chan *WSMessage
	ID      string
	RoomID  string

	logger   *slog.Logger
	done     chan struct{}
	mu       sync.Mutex
	isClosed bool
}

func newClient(conn *websocket.Conn, id, roomID string, logger *slog.Logger) *WSClient {
	return &WSClient{
		Conn:    conn,
		Message: make(chan *WSMessage, 16),
		ID:      id,
		RoomID:  roomID,
		logger:  logger.With(slog.String("client_id", id), slog.String("room", roomID)),
		done:    make(chan struct{}),
	}
}

func (cl *WSClient) keepAlive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			cl.mu.Unlock()

			if err != nil {
				cl.logger.Debug("ping failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func (cl *WSClient) writeMessage() {
	defer cl.close()

	for {
		select {
		case <-cl.done:
			return
		case msg, ok := <-cl.Message:
			if !ok {
				cl.mu.Lock()
				if !cl.isClosed {
					cl.Conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				}
				cl.mu.Unlock()
				return
			}

			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			cl.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := cl.Conn.WriteJSON(msg)
			cl.mu.Unlock()

			if err != nil {
				cl.logger.Warn("write failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func (cl *WSClient) readMessage(hub *Hub) {
	defer func() {
		if r := recover(); r != nil {
			cl.logger.Error("recovered from panic in read loop", slog.Any("panic", r))
		}
		close(cl.done)

		select {
		case hub.Unregister <- cl:
		case <-hub.Done():
		}
		cl.close()
		cl.logger.Info("alert feed client disconnected")
	}()

	cl.Conn.SetReadLimit(readLimit)

	for {
		if _, _, err := cl.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				cl.logger.Warn("read failed", slog.String("error", err.Error()))
			}
			return
		}
	}
}

func (cl *WSClient) close() {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.isClosed {
		return
	}
	cl.isClosed = true
	cl.Conn.Close()
}
