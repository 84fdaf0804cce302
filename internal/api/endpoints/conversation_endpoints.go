package endpoints

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"sales-routing-backend/internal/api/middleware"
	"sales-routing-backend/internal/dto"
	"sales-routing-backend/internal/service/escalation"
	"sales-routing-backend/internal/service/followup"
)

type ConversationPolicy interface {
	Start(ctx context.Context, req escalation.StartRequest) (escalation.Conversation, error)
	HandleReply(ctx context.Context, conversationID, text string) (escalation.ReplyResult, error)
	Resolve(ctx context.Context, conversationID, operator string) (escalation.Conversation, error)
	Status(ctx context.Context, conversationID string) (escalation.Conversation, error)
}

type TimerLister interface {
	ListActive(conversationID string) []followup.Timer
}

type ConversationEndpoints interface {
	Conversations(http.ResponseWriter, *http.Request) error
	Conversation(http.ResponseWriter, *http.Request) error
}

type conversationEndpoints struct {
	policy ConversationPolicy
	timers TimerLister
	tokens middleware.TokenParser
	prefix string
}

// NewConversationEndpoints serves the bot integration surface. prefix is the path
// under which single conversations live, for example "/api/conversations/".
func NewConversationEndpoints(policy ConversationPolicy, timers TimerLister, tokens middleware.TokenParser, prefix string) ConversationEndpoints {
	return &conversationEndpoints{
		policy: policy,
		timers: timers,
		tokens: tokens,
		prefix: strings.TrimRight(prefix, "/") + "/",
	}
}

func (h *conversationEndpoints) Conversations(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleStart,
	})
}

func (h *conversationEndpoints) Conversation(w http.ResponseWriter, r *http.Request) error {
	id, action, err := splitPath(r.URL.Path, h.prefix)
	if err != nil {
		return err
	}

	switch action {
	case "":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodGet: func(w http.ResponseWriter, r *http.Request) error { return h.handleStatus(w, r, id) },
		})
	case "replies":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) error { return h.handleReply(w, r, id) },
		})
	case "resolve":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) error { return h.handleResolve(w, r, id) },
		})
	case "timers":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodGet: func(w http.ResponseWriter, r *http.Request) error { return h.handleTimers(w, r, id) },
		})
	}

	return &HTTPError{
		StatusCode: http.StatusNotFound,
		Message:    "Not found",
		ErrorLog:   fmt.Errorf("unknown conversation action %q", action),
	}
}

func (h *conversationEndpoints) handleStart(w http.ResponseWriter, r *http.Request) error {
	var req dto.StartConversationRequest
	if err := decodeJSON(r, &req, "start conversation"); err != nil {
		return err
	}

	conv, err := h.policy.Start(r.Context(), escalation.StartRequest{
		ConversationID: req.ConversationID,
		Stage:          req.Stage,
		Specialty:      req.Specialty,
		CustomerLabel:  req.CustomerLabel,
		Keyword:        req.Keyword,
		NotifySeller:   req.NotifySeller,
	})
	if err != nil {
		return serviceError(err)
	}

	return WriteJSON(w, http.StatusCreated, toConversationResponse(conv))
}

func (h *conversationEndpoints) handleStatus(w http.ResponseWriter, r *http.Request, id string) error {
	conv, err := h.policy.Status(r.Context(), id)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, toConversationResponse(conv))
}

func (h *conversationEndpoints) handleReply(w http.ResponseWriter, r *http.Request, id string) error {
	var req dto.ReplyRequest
	if err := decodeJSON(r, &req, "reply"); err != nil {
		return err
	}

	result, err := h.policy.HandleReply(r.Context(), id, req.Text)
	if err != nil {
		return serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.ReplyResponse{
		Conversation: toConversationResponse(result.Conversation),
		Kind:         result.Kind.String(),
		Outcome:      string(result.Outcome),
	})
}

func (h *conversationEndpoints) handleResolve(w http.ResponseWriter, r *http.Request, id string) error {
	op, err := requireOperator(r, h.tokens)
	if err != nil {
		return err
	}

	conv, err := h.policy.Resolve(r.Context(), id, op.Email)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, toConversationResponse(conv))
}

func (h *conversationEndpoints) handleTimers(w http.ResponseWriter, r *http.Request, id string) error {
	if h.timers == nil {
		return WriteJSON(w, http.StatusOK, []dto.TimerResponse{})
	}
	return WriteJSON(w, http.StatusOK, toTimerResponses(h.timers.ListActive(id)))
}
