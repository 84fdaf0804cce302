package endpoints

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"sales-routing-backend/internal/dto"
	"sales-routing-backend/internal/service/escalation"
)

const (
	signatureHeader = "X-Hub-Signature-256"
	signaturePrefix = "sha256="
	maxWebhookBody  = 1 << 20
)

type ReplyHandler interface {
	HandleReply(ctx context.Context, conversationID, text string) (escalation.ReplyResult, error)
}

type WebhookConfig struct {
	// VerifyToken answers the subscription handshake. Empty disables it.
	VerifyToken string
	// AppSecret signs notification bodies. Empty skips signature checks.
	AppSecret string
}

type WebhookEndpoints interface {
	WhatsApp(http.ResponseWriter, *http.Request) error
}

type webhookEndpoints struct {
	replies ReplyHandler
	cfg     WebhookConfig
	logger  *slog.Logger
}

func NewWebhookEndpoints(replies ReplyHandler, cfg WebhookConfig, logger *slog.Logger) WebhookEndpoints {
	if logger == nil {
		logger = slog.Default()
	}
	return &webhookEndpoints{
		replies: replies,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "whatsapp_webhook")),
	}
}

func (h *webhookEndpoints) WhatsApp(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleVerify,
		http.MethodPost: h.handleNotification,
	})
}

func (h *webhookEndpoints) handleVerify(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()
	if h.cfg.VerifyToken == "" ||
		query.Get("hub.mode") != "subscribe" ||
		!hmac.Equal([]byte(query.Get("hub.verify_token")), []byte(h.cfg.VerifyToken)) {
		return &HTTPError{
			StatusCode: http.StatusForbidden,
			Message:    "Verification failed",
			ErrorLog:   fmt.Errorf("webhook verification rejected"),
		}
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, err := io.WriteString(w, query.Get("hub.challenge"))
	return err
}

func (h *webhookEndpoints) handleNotification(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: "Invalid request payload", ErrorLog: err}
	}

	if h.cfg.AppSecret != "" && !validSignature(body, r.Header.Get(signatureHeader), h.cfg.AppSecret) {
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Invalid signature",
			ErrorLog:   fmt.Errorf("webhook signature mismatch"),
		}
	}

	var payload dto.WhatsAppWebhook
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&payload); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode webhook: %w", err),
		}
	}

	var result dto.WebhookResult
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				text := messageText(msg)
				if msg.From == "" || text == "" {
					result.Ignored++
					continue
				}
				if h.deliver(r.Context(), msg.From, text) {
					result.Processed++
				} else {
					result.Ignored++
				}
			}
		}
	}

	return WriteJSON(w, http.StatusOK, result)
}

// deliver feeds one inbound message to the escalation policy. Messages for
// conversations the engine does not track are not an error for Meta.
func (h *webhookEndpoints) deliver(ctx context.Context, from, text string) bool {
	res, err := h.replies.HandleReply(ctx, from, text)
	if err != nil {
		var escErr *escalation.Error
		if errors.As(err, &escErr) && escErr.Code == escalation.ErrorCodeNotFound {
			return false
		}
		h.logger.Error("reply handling failed",
			slog.String("conversation_id", from),
			slog.String("error", err.Error()))
		return false
	}
	return res.Outcome != escalation.OutcomeIgnored
}

func messageText(msg dto.WhatsAppMessage) string {
	switch msg.Type {
	case "button":
		return strings.TrimSpace(msg.Button.Text)
	case "interactive":
		return strings.TrimSpace(msg.Interactive.ButtonReply.Title)
	}
	return strings.TrimSpace(msg.Text.Body)
}

func validSignature(body []byte, header, secret string) bool {
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
