package directory

import (
	"context"
	"errors"
	"time"

	"sales-routing-backend/internal/model"
)

var (
	ErrNotFound               = errors.New("seller directory: not found")
	ErrAlreadyExists          = errors.New("seller directory: already exists")
	ErrAlreadyCompleted       = errors.New("seller directory: assignment already completed")
	ErrActiveAssignmentExists = errors.New("seller directory: conversation already has an active assignment")
	ErrCounterAtFloor         = errors.New("seller directory: client counter already at zero")
)

type Filter struct {
	ActiveOnly bool
	Specialty  string
	Status     model.SellerStatus
}

func (f Filter) match(s model.SellerItem) bool {
	if f.ActiveOnly && !s.Active {
		return false
	}
	if f.Specialty != "" && !s.MatchesSpecialty(f.Specialty) {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	return true
}

// SellerUpdate carries the fields to change; nil fields are left untouched.
type SellerUpdate struct {
	DisplayName                 *string
	ContactHandle               *string
	Specialty                   *string
	Status                      *model.SellerStatus
	Active                      *bool
	MaxClients                  *int
	CurrentClients              *int
	Rating                      *float64
	WorkStart                   *string
	WorkEnd                     *string
	DaysOff                     *[]model.DayOff
	NotificationIntervalMinutes *int
	UpdatedAt                   time.Time
}

func (u SellerUpdate) apply(s *model.SellerItem) {
	if u.DisplayName != nil {
		s.DisplayName = *u.DisplayName
	}
	if u.ContactHandle != nil {
		s.ContactHandle = *u.ContactHandle
	}
	if u.Specialty != nil {
		s.Specialty = *u.Specialty
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.Active != nil {
		s.Active = *u.Active
	}
	if u.MaxClients != nil {
		s.MaxClients = *u.MaxClients
	}
	if u.CurrentClients != nil {
		s.CurrentClients = *u.CurrentClients
	}
	if u.Rating != nil {
		s.Rating = *u.Rating
	}
	if u.WorkStart != nil {
		s.WorkStart = *u.WorkStart
	}
	if u.WorkEnd != nil {
		s.WorkEnd = *u.WorkEnd
	}
	if u.DaysOff != nil {
		s.DaysOff = append([]model.DayOff(nil), (*u.DaysOff)...)
	}
	if u.NotificationIntervalMinutes != nil {
		s.NotificationIntervalMinutes = *u.NotificationIntervalMinutes
	}
	if !u.UpdatedAt.IsZero() {
		s.UpdatedAt = u.UpdatedAt.UTC().Format(time.RFC3339)
	}
}

// Repository is the persisted seller registry together with the assignment ledger.
// IncrementClients and DecrementClients are single atomic operations. DecrementClients
// never drives the counter below zero: when it is already zero nothing changes and
// ErrCounterAtFloor is returned with a count of 0.
type Repository interface {
	GetSeller(ctx context.Context, sellerID string) (model.SellerItem, error)
	ListSellers(ctx context.Context, filter Filter) ([]model.SellerItem, error)
	CreateSeller(ctx context.Context, seller model.SellerItem) error
	UpdateSeller(ctx context.Context, sellerID string, update SellerUpdate) (model.SellerItem, error)
	DeleteSeller(ctx context.Context, sellerID string) error
	IncrementClients(ctx context.Context, sellerID string) (int, error)
	DecrementClients(ctx context.Context, sellerID string) (int, error)
	SaveAssignment(ctx context.Context, assignment model.AssignmentItem) error
	CompleteAssignment(ctx context.Context, conversationID string, completedAt time.Time) (model.AssignmentItem, error)
	FindActiveAssignments(ctx context.Context) ([]model.AssignmentItem, error)
}
