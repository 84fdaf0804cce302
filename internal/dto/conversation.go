package dto

type StartConversationRequest struct {
	ConversationID string `json:"conversationId"`
	Stage          string `json:"stage"`
	Specialty      string `json:"specialty,omitempty"`
	CustomerLabel  string `json:"customerLabel,omitempty"`
	Keyword        string `json:"keyword,omitempty"`
	NotifySeller   bool   `json:"notifySeller,omitempty"`
}

type ReplyRequest struct {
	Text string `json:"text"`
}

type ConversationResponse struct {
	ConversationID string `json:"conversationId"`
	State          string `json:"state"`
	Stage          string `json:"stage"`
	SellerID       string `json:"sellerId"`
	CustomerLabel  string `json:"customerLabel,omitempty"`
	Keyword        string `json:"keyword,omitempty"`
	Reprompts      int    `json:"reprompts"`
	Priority       string `json:"priority"`
	StartedAt      string `json:"startedAt,omitempty"`
	DueAt          string `json:"dueAt,omitempty"`
	FollowUpAt     string `json:"followUpAt,omitempty"`
	EscalatedAt    string `json:"escalatedAt,omitempty"`
	ClosedAt       string `json:"closedAt,omitempty"`
	ResolvedBy     string `json:"resolvedBy,omitempty"`
}

type ReplyResponse struct {
	Conversation ConversationResponse `json:"conversation"`
	Kind         string               `json:"kind"`
	Outcome      string               `json:"outcome"`
}

type TimerResponse struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	Stage          string `json:"stage"`
	DelaySeconds   int64  `json:"delaySeconds"`
	CreatedAt      string `json:"createdAt"`
	ScheduledFor   string `json:"scheduledFor"`
}

type TimerOverrideRequest struct {
	Delay string `json:"delay"`
}

type TimerOverrideResponse struct {
	Active       bool   `json:"active"`
	Delay        string `json:"delay,omitempty"`
	DelaySeconds int64  `json:"delaySeconds,omitempty"`
}
