package router

import (
	"net/http"
	"strings"

	"sales-routing-backend/internal/api"
	"sales-routing-backend/internal/api/endpoints"
	"sales-routing-backend/internal/api/middleware"
	"sales-routing-backend/internal/websocket"
)

func AlertFeedRoutes(prefix string, handler *websocket.Handler, tokens middleware.TokenParser) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")
		feedEndpoints := endpoints.NewAlertFeedEndpoints(handler, tokens)

		mux.HandleFunc(base+"/alerts", s.MakeHTTPHandleFunc(feedEndpoints.Alerts))
		mux.HandleFunc(base+"/rooms", s.MakeHTTPHandleFunc(feedEndpoints.Rooms, middleware.ValidateOperatorJWT(tokens)))
	}
}
