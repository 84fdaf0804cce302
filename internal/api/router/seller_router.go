package router

import (
	"net/http"
	"strings"

	"sales-routing-backend/internal/api"
	"sales-routing-backend/internal/api/endpoints"
	"sales-routing-backend/internal/api/middleware"
)

func SellerRoutes(prefix string, dir endpoints.SellerDirectory, tokens middleware.TokenParser) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")
		sellerEndpoints := endpoints.NewSellerEndpoints(dir, tokens, base+"/sellers/")

		mux.HandleFunc(base+"/sellers", s.MakeHTTPHandleFunc(sellerEndpoints.Sellers))
		mux.HandleFunc(base+"/sellers/", s.MakeHTTPHandleFunc(sellerEndpoints.Seller))
	}
}
