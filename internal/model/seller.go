package model

import (
	"strings"
	"time"
)

type SellerStatus string

const (
	SellerStatusOnline  SellerStatus = "online"
	SellerStatusOffline SellerStatus = "offline"
	SellerStatusBusy    SellerStatus = "busy"
)

func (s SellerStatus) Valid() bool {
	switch s {
	case SellerStatusOnline, SellerStatusOffline, SellerStatusBusy:
		return true
	}
	return false
}

const (
	DefaultSpecialty            = "general"
	DefaultMaxClients           = 10
	DefaultNotificationInterval = 30
	MinNotificationInterval     = 5
	DefaultWorkStart            = "09:00"
	DefaultWorkEnd              = "18:00"
)

type DayOff struct {
	Date   string `dynamodbav:"date" json:"date"`
	Reason string `dynamodbav:"reason,omitempty" json:"reason,omitempty"`
}

type SellerItem struct {
	SellerID                    string       `dynamodbav:"sellerId"`
	DisplayName                 string       `dynamodbav:"displayName"`
	ContactHandle               string       `dynamodbav:"contactHandle"`
	Specialty                   string       `dynamodbav:"specialty"`
	Status                      SellerStatus `dynamodbav:"status"`
	Active                      bool         `dynamodbav:"active"`
	MaxClients                  int          `dynamodbav:"maxClients"`
	CurrentClients              int          `dynamodbav:"currentClients"`
	Rating                      float64      `dynamodbav:"rating"`
	WorkStart                   string       `dynamodbav:"workStart,omitempty"`
	WorkEnd                     string       `dynamodbav:"workEnd,omitempty"`
	DaysOff                     []DayOff     `dynamodbav:"daysOff,omitempty"`
	NotificationIntervalMinutes int          `dynamodbav:"notificationIntervalMinutes"`
	CreatedAt                   string       `dynamodbav:"createdAt"`
	UpdatedAt                   string       `dynamodbav:"updatedAt"`
}

func (s SellerItem) HasCapacity() bool {
	return s.CurrentClients < s.MaxClients
}

// LoadPercent is currentClients/maxClients*100, rounded to one decimal.
func (s SellerItem) LoadPercent() float64 {
	if s.MaxClients <= 0 {
		return 0
	}
	pct := float64(s.CurrentClients) / float64(s.MaxClients) * 100
	return float64(int(pct*10+0.5)) / 10
}

func (s SellerItem) MatchesSpecialty(specialty string) bool {
	return strings.EqualFold(strings.TrimSpace(s.Specialty), strings.TrimSpace(specialty))
}

func (s SellerItem) IsDayOff(at time.Time) bool {
	date := at.Format("2006-01-02")
	for _, d := range s.DaysOff {
		if d.Date == date {
			return true
		}
	}
	return false
}

// IsWorking reports whether at falls inside the work window on a working day.
// A seller without a window is always working.
func (s SellerItem) IsWorking(at time.Time) bool {
	if s.IsDayOff(at) {
		return false
	}
	if s.WorkStart == "" || s.WorkEnd == "" {
		return true
	}
	clock := at.Format("15:04")
	if s.WorkStart <= s.WorkEnd {
		return clock >= s.WorkStart && clock < s.WorkEnd
	}
	// overnight window, e.g. 22:00-06:00
	return clock >= s.WorkStart || clock < s.WorkEnd
}

// IsAvailable is the dashboard notion of availability, stricter than routing eligibility.
func (s SellerItem) IsAvailable(at time.Time) bool {
	return s.Active && s.Status == SellerStatusOnline && s.HasCapacity() && s.IsWorking(at)
}
