package dto

type AlertResponse struct {
	ID             string            `json:"id"`
	SellerID       string            `json:"sellerId,omitempty"`
	ConversationID string            `json:"conversationId,omitempty"`
	CustomerLabel  string            `json:"customerLabel,omitempty"`
	Reason         string            `json:"reason"`
	Priority       string            `json:"priority"`
	Context        map[string]string `json:"context,omitempty"`
	Destination    string            `json:"destination,omitempty"`
	Note           string            `json:"note,omitempty"`
	Message        string            `json:"message"`
	Status         string            `json:"status"`
	Error          string            `json:"error,omitempty"`
	CreatedAt      string            `json:"createdAt"`
	SentAt         string            `json:"sentAt,omitempty"`
}

type AlertStatsResponse struct {
	Total     int            `json:"total"`
	Sent      int            `json:"sent"`
	Failed    int            `json:"failed"`
	Simulated int            `json:"simulated"`
	ByReason  map[string]int `json:"byReason"`
}

type TimerStatsResponse struct {
	Active    int `json:"active"`
	Scheduled int `json:"scheduled"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

type RoutingStatsResponse struct {
	TotalAssignments       int `json:"totalAssignments"`
	CompletedConversations int `json:"completedConversations"`
	ActiveConversations    int `json:"activeConversations"`
}

type SnapshotResponse struct {
	GeneratedAt  string               `json:"generatedAt"`
	Sellers      []WorkloadResponse   `json:"sellers"`
	SellerStats  SellerStatsResponse  `json:"sellerStats"`
	Routing      RoutingStatsResponse `json:"routing"`
	ActiveTimers int                  `json:"activeTimers"`
	TimerStats   TimerStatsResponse   `json:"timerStats"`
	RecentAlerts []AlertResponse      `json:"recentAlerts"`
	AlertStats   AlertStatsResponse   `json:"alertStats"`
}
