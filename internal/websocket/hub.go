package websocket

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type HubOptions struct {
	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

// Hub owns the rooms. Membership changes and broadcasts are serialised through
// Run; the mutex only lets readers such as Rooms observe the map safely.
type Hub struct {
	Register   chan *WSClient
	Unregister chan *WSClient
	Broadcast  chan *WSMessage

	done    chan struct{}
	mu      sync.RWMutex
	rooms   map[string]*Room
	logger  *slog.Logger
	metrics *metrics
}

func NewHub(opts HubOptions) *Hub {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Hub{
		Register:   make(chan *WSClient),
		Unregister: make(chan *WSClient),
		Broadcast:  make(chan *WSMessage, 64),
		done:       make(chan struct{}),
		rooms:      make(map[string]*Room),
		logger:     opts.Logger.With(slog.String("component", "ws_hub")),
		metrics:    newMetrics(opts.Registerer),
	}
}

// ensureRoom creates the room if needed and reports whether it was created.
func (h *Hub) ensureRoom(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[id]; ok {
		return false
	}
	h.rooms[id] = &Room{ID: id, Clients: make(map[string]*WSClient)}
	h.metrics.setRooms(len(h.rooms))
	return true
}

func (h *Hub) Rooms() []RoomRes {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]RoomRes, 0, len(h.rooms))
	for _, room := range h.rooms {
		out = append(out, RoomRes{ID: room.ID, Clients: len(room.Clients)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (h *Hub) ClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[roomID]
	if !ok {
		return 0
	}
	return len(room.Clients)
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Publish queues message for its room. It gives up when the hub stops or ctx ends.
func (h *Hub) Publish(ctx context.Context, message *WSMessage) bool {
	select {
	case h.Broadcast <- message:
		return true
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.Register:
			h.mu.Lock()
			room, ok := h.rooms[client.RoomID]
			if !ok {
				h.mu.Unlock()
				h.logger.Warn("register for unknown room", slog.String("room", client.RoomID))
				close(client.Message)
				continue
			}
			room.Clients[client.ID] = client
			h.mu.Unlock()
			h.metrics.incConnections()

		case client := <-h.Unregister:
			h.mu.Lock()
			if room, ok := h.rooms[client.RoomID]; ok {
				if current, ok := room.Clients[client.ID]; ok && current == client {
					delete(room.Clients, client.ID)
					close(client.Message)
					h.metrics.decConnections()
				}
			}
			h.mu.Unlock()

		case message := <-h.Broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) deliver(message *WSMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[message.RoomID]
	if !ok {
		return
	}
	delivered := 0
	for id, client := range room.Clients {
		select {
		case client.Message <- message:
			delivered++
		default:
			// slow consumer
			close(client.Message)
			delete(room.Clients, id)
			h.metrics.decConnections()
		}
	}
	if delivered > 0 {
		h.metrics.addDelivered(delivered)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range h.rooms {
		for id, client := range room.Clients {
			close(client.Message)
			delete(room.Clients, id)
			h.metrics.decConnections()
		}
	}
}
