package dashboard

import (
	"context"
	"fmt"
	"time"

	"sales-routing-backend/internal/service/alerts"
	"sales-routing-backend/internal/service/directory"
	"sales-routing-backend/internal/service/followup"
	"sales-routing-backend/internal/service/routing"
)

const DefaultRecentAlerts = 10

type Sellers interface {
	Workload(ctx context.Context) ([]directory.Workload, error)
	Stats(ctx context.Context) (directory.Stats, error)
}

type Timers interface {
	ActiveCount() int
	Stats() followup.Stats
}

type Alerts interface {
	History(filter alerts.HistoryFilter) []alerts.Alert
	Stats() alerts.Stats
}

type Routing interface {
	Stats() routing.Stats
}

type Snapshot struct {
	GeneratedAt  time.Time
	Sellers      []directory.Workload
	SellerStats  directory.Stats
	Routing      routing.Stats
	ActiveTimers int
	TimerStats   followup.Stats
	RecentAlerts []alerts.Alert
	AlertStats   alerts.Stats
}

// Service assembles read-only views over the engine's components. It never
// mutates anything.
type Service struct {
	sellers Sellers
	timers  Timers
	alerts  Alerts
	routing Routing
	now     func() time.Time
}

func New(sellers Sellers, timers Timers, alertLog Alerts, router Routing, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		sellers: sellers,
		timers:  timers,
		alerts:  alertLog,
		routing: router,
		now:     now,
	}
}

// Snapshot returns the full dashboard with the recent latest alerts.
func (s *Service) Snapshot(ctx context.Context, recent int) (Snapshot, error) {
	if recent <= 0 {
		recent = DefaultRecentAlerts
	}
	workload, err := s.sellers.Workload(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("seller workload: %w", err)
	}
	sellerStats, err := s.sellers.Stats(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("seller stats: %w", err)
	}

	snap := Snapshot{
		GeneratedAt:  s.now(),
		Sellers:      workload,
		SellerStats:  sellerStats,
		ActiveTimers: s.timers.ActiveCount(),
		TimerStats:   s.timers.Stats(),
		RecentAlerts: s.alerts.History(alerts.HistoryFilter{Limit: recent}),
		AlertStats:   s.alerts.Stats(),
	}
	if s.routing != nil {
		snap.Routing = s.routing.Stats()
	}
	return snap, nil
}

func (s *Service) Workload(ctx context.Context) ([]directory.Workload, error) {
	return s.sellers.Workload(ctx)
}

func (s *Service) Alerts(filter alerts.HistoryFilter) []alerts.Alert {
	return s.alerts.History(filter)
}

func (s *Service) AlertStats() alerts.Stats {
	return s.alerts.Stats()
}
