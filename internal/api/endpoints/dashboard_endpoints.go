package endpoints

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"sales-routing-backend/internal/service/alerts"
	"sales-routing-backend/internal/service/dashboard"
	"sales-routing-backend/internal/service/directory"
)

type Dashboard interface {
	Snapshot(ctx context.Context, recent int) (dashboard.Snapshot, error)
	Workload(ctx context.Context) ([]directory.Workload, error)
	Alerts(filter alerts.HistoryFilter) []alerts.Alert
	AlertStats() alerts.Stats
}

type DashboardEndpoints interface {
	Snapshot(http.ResponseWriter, *http.Request) error
	Workload(http.ResponseWriter, *http.Request) error
	Alerts(http.ResponseWriter, *http.Request) error
	AlertStats(http.ResponseWriter, *http.Request) error
}

type dashboardEndpoints struct {
	dashboard Dashboard
}

func NewDashboardEndpoints(d Dashboard) DashboardEndpoints {
	return &dashboardEndpoints{dashboard: d}
}

func (h *dashboardEndpoints) Snapshot(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleSnapshot,
	})
}

func (h *dashboardEndpoints) Workload(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleWorkload,
	})
}

func (h *dashboardEndpoints) Alerts(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleAlerts,
	})
}

func (h *dashboardEndpoints) AlertStats(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
			return WriteJSON(w, http.StatusOK, toAlertStatsResponse(h.dashboard.AlertStats()))
		},
	})
}

func (h *dashboardEndpoints) handleSnapshot(w http.ResponseWriter, r *http.Request) error {
	recent, err := queryInt(r, "recent", dashboard.DefaultRecentAlerts)
	if err != nil {
		return err
	}
	snap, err := h.dashboard.Snapshot(r.Context(), recent)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, toSnapshotResponse(snap))
}

func (h *dashboardEndpoints) handleWorkload(w http.ResponseWriter, r *http.Request) error {
	rows, err := h.dashboard.Workload(r.Context())
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, toWorkloadResponses(rows))
}

func (h *dashboardEndpoints) handleAlerts(w http.ResponseWriter, r *http.Request) error {
	limit, err := queryInt(r, "limit", alerts.DefaultHistoryLimit)
	if err != nil {
		return err
	}
	query := r.URL.Query()
	list := h.dashboard.Alerts(alerts.HistoryFilter{
		SellerID:       query.Get("sellerId"),
		ConversationID: query.Get("conversationId"),
		Reason:         alerts.Reason(query.Get("reason")),
		Status:         alerts.Status(query.Get("status")),
		Limit:          limit,
	})
	return WriteJSON(w, http.StatusOK, toAlertResponses(list))
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    fmt.Sprintf("%s must be a non-negative integer", key),
			ErrorLog:   fmt.Errorf("parse %s=%q", key, raw),
		}
	}
	return n, nil
}
