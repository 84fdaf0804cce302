package websocket

import (
	"strings"
	"time"
)

const (
	alertRoomPrefix = "alerts:"
	// AlertRoomAll receives every alert regardless of seller.
	AlertRoomAll = alertRoomPrefix + "all"
)

// AlertRoom is the room, and redis channel, carrying one seller's alerts.
func AlertRoom(sellerID string) string {
	sellerID = strings.TrimSpace(sellerID)
	if sellerID == "" {
		return AlertRoomAll
	}
	return alertRoomPrefix + sellerID
}

type Room struct {
	ID      string
	Clients map[string]*WSClient
}

type WSMessage struct {
	Content   string `json:"content"`
	RoomID    string `json:"roomId"`
	Timestamp int64  `json:"timestamp"`
}

type RoomRes struct {
	ID      string `json:"id"`
	Clients int    `json:"clients"`
}

// AlertEvent is the payload published for each recorded alert.
type AlertEvent struct {
	ID             string    `json:"id"`
	SellerID       string    `json:"sellerId,omitempty"`
	ConversationID string    `json:"conversationId,omitempty"`
	CustomerLabel  string    `json:"customerLabel,omitempty"`
	Reason         string    `json:"reason"`
	Priority       string    `json:"priority"`
	Status         string    `json:"status"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"createdAt"`
}
