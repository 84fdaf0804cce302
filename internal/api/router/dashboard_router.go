package router

import (
	"net/http"
	"strings"

	"sales-routing-backend/internal/api"
	"sales-routing-backend/internal/api/endpoints"
	"sales-routing-backend/internal/api/middleware"
)

func DashboardRoutes(prefix string, board endpoints.Dashboard, tokens middleware.TokenParser) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")
		dashEndpoints := endpoints.NewDashboardEndpoints(board)
		requireOperator := middleware.ValidateOperatorJWT(tokens)

		mux.HandleFunc(base+"/dashboard/snapshot", s.MakeHTTPHandleFunc(dashEndpoints.Snapshot, requireOperator))
		mux.HandleFunc(base+"/dashboard/workload", s.MakeHTTPHandleFunc(dashEndpoints.Workload, requireOperator))
		mux.HandleFunc(base+"/alerts", s.MakeHTTPHandleFunc(dashEndpoints.Alerts, requireOperator))
		mux.HandleFunc(base+"/alerts/stats", s.MakeHTTPHandleFunc(dashEndpoints.AlertStats, requireOperator))
	}
}

func TestingRoutes(prefix string, timers endpoints.DelayOverrider, tokens middleware.TokenParser) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		testingEndpoints := endpoints.NewTestingEndpoints(timers)
		mux.HandleFunc(strings.TrimRight(prefix, "/")+"/testing/timer-override",
			s.MakeHTTPHandleFunc(testingEndpoints.TimerOverride, middleware.ValidateOperatorJWT(tokens)))
	}
}
