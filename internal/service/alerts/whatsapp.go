package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultGraphBaseURL = "https://graph.facebook.com"
	defaultGraphVersion = "v20.0"
)

type WhatsAppConfig struct {
	// BaseURL defaults to the public Graph API host.
	BaseURL       string
	Version       string
	PhoneNumberID string
	AccessToken   string
	Timeout       time.Duration
}

// WhatsAppTransport sends text messages through the WhatsApp Cloud API.
type WhatsAppTransport struct {
	cfg    WhatsAppConfig
	client *http.Client
}

func NewWhatsAppTransport(cfg WhatsAppConfig) (*WhatsAppTransport, error) {
	cfg.AccessToken = strings.TrimSpace(cfg.AccessToken)
	cfg.PhoneNumberID = strings.TrimSpace(cfg.PhoneNumberID)
	if cfg.AccessToken == "" || cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("whatsapp access token and phone number id are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGraphBaseURL
	}
	if cfg.Version == "" {
		cfg.Version = defaultGraphVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &WhatsAppTransport{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (t *WhatsAppTransport) Deliver(ctx context.Context, msg Message) error {
	url := fmt.Sprintf("%s/%s/%s/messages", strings.TrimRight(t.cfg.BaseURL, "/"), t.cfg.Version, t.cfg.PhoneNumberID)

	reqBody := map[string]any{
		"messaging_product": "whatsapp",
		"to":                PhoneNumber(msg.To),
		"type":              "text",
		"text": map[string]any{
			"body": msg.Text,
		},
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encode whatsapp message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+t.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("whatsapp api error: status=%d body=%s", resp.StatusCode, string(body))
	}
	return nil
}
