package escalation

import (
	"strconv"
	"time"

	"sales-routing-backend/internal/service/alerts"
)

type State string

const (
	StateActive          State = "active"
	StateFollowUpPending State = "followup_pending"
	StateResolved        State = "resolved"
	StateEscalated       State = "escalated"
)

const (
	flagPrefix      = "escalation."
	flagState       = flagPrefix + "state"
	flagStage       = flagPrefix + "stage"
	flagSeller      = flagPrefix + "seller"
	flagCustomer    = flagPrefix + "customer"
	flagKeyword     = flagPrefix + "keyword"
	flagReprompts   = flagPrefix + "reprompts"
	flagPriority    = flagPrefix + "priority"
	flagStartedAt   = flagPrefix + "started_at"
	flagDueAt       = flagPrefix + "due_at"
	flagFollowUpAt  = flagPrefix + "followup_at"
	flagEscalatedAt = flagPrefix + "escalated_at"
	flagClosedAt    = flagPrefix + "closed_at"
	flagResolvedBy  = flagPrefix + "resolved_by"
	flagTimerID     = flagPrefix + "timer_id"
)

// Conversation is the escalation view of one conversation.
type Conversation struct {
	ConversationID string
	State          State
	Stage          string
	SellerID       string
	CustomerLabel  string
	Keyword        string
	Reprompts      int
	Priority       alerts.Priority
	StartedAt      time.Time
	DueAt          time.Time
	FollowUpAt     time.Time
	EscalatedAt    time.Time
	ClosedAt       time.Time
	ResolvedBy     string
	// TimerID is the stage timer currently armed for an Active conversation.
	TimerID string
}

func (c Conversation) flags() map[string]string {
	return map[string]string{
		flagState:       string(c.State),
		flagStage:       c.Stage,
		flagSeller:      c.SellerID,
		flagCustomer:    c.CustomerLabel,
		flagKeyword:     c.Keyword,
		flagReprompts:   strconv.Itoa(c.Reprompts),
		flagPriority:    string(c.Priority),
		flagStartedAt:   formatTime(c.StartedAt),
		flagDueAt:       formatTime(c.DueAt),
		flagFollowUpAt:  formatTime(c.FollowUpAt),
		flagEscalatedAt: formatTime(c.EscalatedAt),
		flagClosedAt:    formatTime(c.ClosedAt),
		flagResolvedBy:  c.ResolvedBy,
		flagTimerID:     c.TimerID,
	}
}

// conversationFromFlags decodes the stored flags. ok is false when the conversation
// has never been started.
func conversationFromFlags(id string, flags map[string]string) (Conversation, bool) {
	state := State(flags[flagState])
	if state == "" {
		return Conversation{}, false
	}
	reprompts, _ := strconv.Atoi(flags[flagReprompts])
	return Conversation{
		ConversationID: id,
		State:          state,
		Stage:          flags[flagStage],
		SellerID:       flags[flagSeller],
		CustomerLabel:  flags[flagCustomer],
		Keyword:        flags[flagKeyword],
		Reprompts:      reprompts,
		Priority:       alerts.Priority(flags[flagPriority]),
		StartedAt:      parseTime(flags[flagStartedAt]),
		DueAt:          parseTime(flags[flagDueAt]),
		FollowUpAt:     parseTime(flags[flagFollowUpAt]),
		EscalatedAt:    parseTime(flags[flagEscalatedAt]),
		ClosedAt:       parseTime(flags[flagClosedAt]),
		ResolvedBy:     flags[flagResolvedBy],
		TimerID:        flags[flagTimerID],
	}, true
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
