package endpoints

import (
	"time"

	"sales-routing-backend/internal/dto"
	"sales-routing-backend/internal/model"
	"sales-routing-backend/internal/service/alerts"
	"sales-routing-backend/internal/service/dashboard"
	"sales-routing-backend/internal/service/directory"
	"sales-routing-backend/internal/service/escalation"
	"sales-routing-backend/internal/service/followup"
	"sales-routing-backend/internal/service/routing"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toConversationResponse(c escalation.Conversation) dto.ConversationResponse {
	return dto.ConversationResponse{
		ConversationID: c.ConversationID,
		State:          string(c.State),
		Stage:          c.Stage,
		SellerID:       c.SellerID,
		CustomerLabel:  c.CustomerLabel,
		Keyword:        c.Keyword,
		Reprompts:      c.Reprompts,
		Priority:       string(c.Priority),
		StartedAt:      formatTime(c.StartedAt),
		DueAt:          formatTime(c.DueAt),
		FollowUpAt:     formatTime(c.FollowUpAt),
		EscalatedAt:    formatTime(c.EscalatedAt),
		ClosedAt:       formatTime(c.ClosedAt),
		ResolvedBy:     c.ResolvedBy,
	}
}

func toTimerResponses(timers []followup.Timer) []dto.TimerResponse {
	out := make([]dto.TimerResponse, 0, len(timers))
	for _, t := range timers {
		out = append(out, dto.TimerResponse{
			ID:             t.ID,
			ConversationID: t.ConversationID,
			Stage:          t.Stage,
			DelaySeconds:   int64(t.Delay / time.Second),
			CreatedAt:      formatTime(t.CreatedAt),
			ScheduledFor:   formatTime(t.ScheduledFor),
		})
	}
	return out
}

func toSellerResponse(s model.SellerItem) dto.SellerResponse {
	resp := dto.SellerResponse{
		SellerID:                    s.SellerID,
		DisplayName:                 s.DisplayName,
		ContactHandle:               s.ContactHandle,
		Specialty:                   s.Specialty,
		Status:                      string(s.Status),
		Active:                      s.Active,
		MaxClients:                  s.MaxClients,
		CurrentClients:              s.CurrentClients,
		Rating:                      s.Rating,
		WorkStart:                   s.WorkStart,
		WorkEnd:                     s.WorkEnd,
		NotificationIntervalMinutes: s.NotificationIntervalMinutes,
		CreatedAt:                   s.CreatedAt,
		UpdatedAt:                   s.UpdatedAt,
	}
	for _, d := range s.DaysOff {
		resp.DaysOff = append(resp.DaysOff, dto.DayOff{Date: d.Date, Reason: d.Reason})
	}
	return resp
}

func toSellerResponses(sellers []model.SellerItem) []dto.SellerResponse {
	out := make([]dto.SellerResponse, 0, len(sellers))
	for _, s := range sellers {
		out = append(out, toSellerResponse(s))
	}
	return out
}

func toWorkloadResponses(rows []directory.Workload) []dto.WorkloadResponse {
	out := make([]dto.WorkloadResponse, 0, len(rows))
	for _, w := range rows {
		out = append(out, dto.WorkloadResponse{
			SellerID:       w.SellerID,
			DisplayName:    w.DisplayName,
			Specialty:      w.Specialty,
			Status:         string(w.Status),
			Active:         w.Active,
			CurrentClients: w.CurrentClients,
			MaxClients:     w.MaxClients,
			LoadPercent:    w.LoadPercent,
			Available:      w.Available,
		})
	}
	return out
}

func toSellerStatsResponse(s directory.Stats) dto.SellerStatsResponse {
	return dto.SellerStatsResponse{
		Total:         s.Total,
		Active:        s.Active,
		Online:        s.Online,
		TotalCapacity: s.TotalCapacity,
		TotalLoad:     s.TotalLoad,
	}
}

func toAlertResponse(a alerts.Alert) dto.AlertResponse {
	resp := dto.AlertResponse{
		ID:             a.ID,
		SellerID:       a.SellerID,
		ConversationID: a.ConversationID,
		CustomerLabel:  a.CustomerLabel,
		Reason:         string(a.Reason),
		Priority:       string(a.Priority),
		Destination:    a.Destination,
		Note:           a.Note,
		Message:        a.Message,
		Status:         string(a.Status),
		Error:          a.Error,
		CreatedAt:      formatTime(a.CreatedAt),
		SentAt:         formatTime(a.SentAt),
	}
	if a.Context != nil {
		resp.Context = a.Context.Fields()
	}
	return resp
}

func toAlertResponses(list []alerts.Alert) []dto.AlertResponse {
	out := make([]dto.AlertResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAlertResponse(a))
	}
	return out
}

func toAlertStatsResponse(s alerts.Stats) dto.AlertStatsResponse {
	byReason := make(map[string]int, len(s.ByReason))
	for reason, n := range s.ByReason {
		byReason[string(reason)] = n
	}
	return dto.AlertStatsResponse{
		Total:     s.Total,
		Sent:      s.Sent,
		Failed:    s.Failed,
		Simulated: s.Simulated,
		ByReason:  byReason,
	}
}

func toTimerStatsResponse(s followup.Stats) dto.TimerStatsResponse {
	return dto.TimerStatsResponse{
		Active:    s.Active,
		Scheduled: s.Scheduled,
		Completed: s.Completed,
		Failed:    s.Failed,
		Cancelled: s.Cancelled,
	}
}

func toRoutingStatsResponse(s routing.Stats) dto.RoutingStatsResponse {
	return dto.RoutingStatsResponse{
		TotalAssignments:       s.TotalAssignments,
		CompletedConversations: s.CompletedConversations,
		ActiveConversations:    s.ActiveConversations,
	}
}

func toSnapshotResponse(s dashboard.Snapshot) dto.SnapshotResponse {
	return dto.SnapshotResponse{
		GeneratedAt:  formatTime(s.GeneratedAt),
		Sellers:      toWorkloadResponses(s.Sellers),
		SellerStats:  toSellerStatsResponse(s.SellerStats),
		Routing:      toRoutingStatsResponse(s.Routing),
		ActiveTimers: s.ActiveTimers,
		TimerStats:   toTimerStatsResponse(s.TimerStats),
		RecentAlerts: toAlertResponses(s.RecentAlerts),
		AlertStats:   toAlertStatsResponse(s.AlertStats),
	}
}

func toOperatorResponse(op model.OperatorItem) dto.OperatorResponse {
	return dto.OperatorResponse{
		OperatorID: op.OperatorID,
		Email:      op.Email,
		Name:       op.Name,
		CreatedAt:  op.CreatedAt,
	}
}
