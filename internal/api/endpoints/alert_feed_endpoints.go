package endpoints

import (
	"fmt"
	"net/http"

	"sales-routing-backend/internal/api/middleware"
	internaljwt "sales-routing-backend/internal/jwt"
	"sales-routing-backend/internal/websocket"
)

type AlertFeedEndpoints interface {
	Alerts(http.ResponseWriter, *http.Request) error
	Rooms(http.ResponseWriter, *http.Request) error
}

type alertFeedEndpoints struct {
	handler *websocket.Handler
	tokens  middleware.TokenParser
}

func NewAlertFeedEndpoints(handler *websocket.Handler, tokens middleware.TokenParser) AlertFeedEndpoints {
	return &alertFeedEndpoints{handler: handler, tokens: tokens}
}

func (h *alertFeedEndpoints) Alerts(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleJoin,
	})
}

func (h *alertFeedEndpoints) Rooms(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
			return WriteJSON(w, http.StatusOK, h.handler.GetRooms())
		},
	})
}

// handleJoin accepts the operator token as a query parameter because browsers
// cannot set headers on websocket requests.
func (h *alertFeedEndpoints) handleJoin(w http.ResponseWriter, r *http.Request) error {
	if token := r.URL.Query().Get("token"); token != "" && h.tokens != nil {
		op, err := h.tokens.ParseToken(token, internaljwt.RoleOperator)
		if err != nil {
			return &HTTPError{StatusCode: http.StatusUnauthorized, Message: "Unauthorized", ErrorLog: err}
		}
		r = r.WithContext(middleware.WithOperator(r.Context(), op))
	}
	if _, err := requireOperator(r, h.tokens); err != nil {
		return err
	}

	room := websocket.AlertRoom(r.URL.Query().Get("sellerId"))
	if err := h.handler.JoinRoom(w, r, room); err != nil {
		return &HTTPError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    "Alert feed unavailable",
			ErrorLog:   fmt.Errorf("join alert room %s: %w", room, err),
		}
	}
	return nil
}
