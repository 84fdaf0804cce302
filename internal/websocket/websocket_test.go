package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sales-routing-backend/internal/service/alerts"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeSubscriber struct {
	mu       sync.Mutex
	channels map[string]chan string
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{channels: make(map[string]chan string)}
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, channel string) (<-chan string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan string, 4)
	f.channels[channel] = ch
	return ch, nil
}

func (f *fakeSubscriber) send(t *testing.T, channel, payload string) {
	t.Helper()
	f.mu.Lock()
	ch, ok := f.channels[channel]
	f.mu.Unlock()
	if !ok {
		t.Fatalf("no subscription for %s", channel)
	}
	ch <- payload
}

func startFeed(t *testing.T) (*Hub, *fakeSubscriber, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	hub := NewHub(HubOptions{Registerer: prometheus.NewRegistry()})
	go hub.Run(ctx)

	sub := newFakeSubscriber()
	handler := NewHandler(ctx, hub, sub, HandlerOptions{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := handler.JoinRoom(w, r, AlertRoom(r.URL.Query().Get("sellerId"))); err != nil {
			t.Logf("join: %v", err)
		}
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, sub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, room string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount(room) != want {
		if time.Now().After(deadline) {
			t.Fatalf("room %s has %d clients, want %d", room, hub.ClientCount(room), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAlertRoom(t *testing.T) {
	if AlertRoom("SELLER001") != "alerts:SELLER001" {
		t.Fatalf("unexpected room %q", AlertRoom("SELLER001"))
	}
	if AlertRoom("  ") != AlertRoomAll {
		t.Fatalf("blank seller should map to the all room")
	}
}

func TestFeedDeliversSubscribedMessages(t *testing.T) {
	hub, sub, srv := startFeed(t)
	conn := dial(t, srv, "sellerId=SELLER001")
	waitForClients(t, hub, "alerts:SELLER001", 1)

	sub.send(t, "alerts:SELLER001", `{"id":"a1"}`)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.RoomID != "alerts:SELLER001" || msg.Content != `{"id":"a1"}` {
		t.Fatalf("unexpected message %+v", msg)
	}

	rooms := hub.Rooms()
	if len(rooms) != 1 || rooms[0].Clients != 1 {
		t.Fatalf("unexpected rooms %+v", rooms)
	}
}

func TestClientDisconnectUnregisters(t *testing.T) {
	hub, _, srv := startFeed(t)
	conn := dial(t, srv, "")
	waitForClients(t, hub, AlertRoomAll, 1)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	waitForClients(t, hub, AlertRoomAll, 0)
}

type publishCall struct {
	channel string
	message string
}

type fakeRedis struct {
	calls []publishCall
	fail  string
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.calls = append(f.calls, publishCall{channel: channel, message: message.(string)})
	if channel == f.fail {
		return redis.NewIntResult(0, errors.New("redis down"))
	}
	return redis.NewIntResult(1, nil)
}

func TestPublisherFansOutToSellerAndAllRooms(t *testing.T) {
	client := &fakeRedis{}
	pub := NewPublisher(client, nil, prometheus.NewRegistry())

	err := pub.PublishAlert(context.Background(), alerts.Alert{
		ID:       "a1",
		SellerID: "SELLER002",
		Reason:   alerts.ReasonOrderProblem,
		Priority: alerts.PriorityCritical,
		Status:   alerts.StatusSent,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(client.calls) != 2 || client.calls[0].channel != AlertRoomAll || client.calls[1].channel != "alerts:SELLER002" {
		t.Fatalf("unexpected calls %+v", client.calls)
	}

	var event AlertEvent
	if err := json.Unmarshal([]byte(client.calls[1].message), &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.ID != "a1" || event.Priority != "critical" || event.Reason != string(alerts.ReasonOrderProblem) {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestPublisherReportsFailures(t *testing.T) {
	client := &fakeRedis{fail: AlertRoomAll}
	pub := NewPublisher(client, nil, nil)

	err := pub.PublishAlert(context.Background(), alerts.Alert{ID: "a2", SellerID: "SELLER001"})
	if err == nil || !strings.Contains(err.Error(), AlertRoomAll) {
		t.Fatalf("expected publish error for %s, got %v", AlertRoomAll, err)
	}
	if len(client.calls) != 2 {
		t.Fatalf("seller room should still be attempted, calls=%+v", client.calls)
	}
}
