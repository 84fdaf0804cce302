package dto

// WhatsAppWebhook is the subset of the Cloud API notification payload the webhook
// reads: inbound messages grouped by entry and change.
type WhatsAppWebhook struct {
	Object string                 `json:"object"`
	Entry  []WhatsAppWebhookEntry `json:"entry"`
}

type WhatsAppWebhookEntry struct {
	ID      string                  `json:"id"`
	Changes []WhatsAppWebhookChange `json:"changes"`
}

type WhatsAppWebhookChange struct {
	Field string              `json:"field"`
	Value WhatsAppChangeValue `json:"value"`
}

type WhatsAppChangeValue struct {
	MessagingProduct string            `json:"messaging_product"`
	Messages         []WhatsAppMessage `json:"messages"`
	Contacts         []WhatsAppContact `json:"contacts"`
}

type WhatsAppContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type WhatsAppMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text"`
	Button struct {
		Text string `json:"text"`
	} `json:"button"`
	Interactive struct {
		ButtonReply struct {
			Title string `json:"title"`
		} `json:"button_reply"`
	} `json:"interactive"`
}

type WebhookResult struct {
	Processed int `json:"processed"`
	Ignored   int `json:"ignored"`
}
