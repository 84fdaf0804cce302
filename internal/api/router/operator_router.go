package router

import (
	"net/http"
	"strings"

	"sales-routing-backend/internal/api"
	"sales-routing-backend/internal/api/endpoints"
)

func OperatorRoutes(prefix string, service endpoints.OperatorService) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")
		opEndpoints := endpoints.NewOperatorEndpoints(service)

		mux.HandleFunc(base+"/operators/login", s.MakeHTTPHandleFunc(opEndpoints.Login))
		mux.HandleFunc(base+"/operators/refresh", s.MakeHTTPHandleFunc(opEndpoints.Refresh))
		mux.HandleFunc(base+"/operators/logout", s.MakeHTTPHandleFunc(opEndpoints.Logout))
	}
}
