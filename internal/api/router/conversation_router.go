package router

import (
	"net/http"
	"strings"

	"sales-routing-backend/internal/api"
	"sales-routing-backend/internal/api/endpoints"
	"sales-routing-backend/internal/api/middleware"
)

// ConversationRoutes is the bot integration surface. Only resolve needs an
// operator token, which the endpoint checks itself.
func ConversationRoutes(prefix string, policy endpoints.ConversationPolicy, timers endpoints.TimerLister, tokens middleware.TokenParser) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")
		convEndpoints := endpoints.NewConversationEndpoints(policy, timers, tokens, base+"/conversations/")

		mux.HandleFunc(base+"/conversations", s.MakeHTTPHandleFunc(convEndpoints.Conversations))
		mux.HandleFunc(base+"/conversations/", s.MakeHTTPHandleFunc(convEndpoints.Conversation))
	}
}

func WebhookRoutes(prefix string, replies endpoints.ReplyHandler, cfg endpoints.WebhookConfig) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		webhookEndpoints := endpoints.NewWebhookEndpoints(replies, cfg, s.Logger())
		mux.HandleFunc(strings.TrimRight(prefix, "/")+"/webhooks/whatsapp", s.MakeHTTPHandleFunc(webhookEndpoints.WhatsApp))
	}
}
