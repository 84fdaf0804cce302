package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"sales-routing-backend/internal/database"
	"sales-routing-backend/internal/model"
)

type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "validation_error"
	ErrorCodeNotFound   ErrorCode = "not_found"
	ErrorCodeConflict   ErrorCode = "conflict"
	ErrorCodeInternal   ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

const sellerIDFormat = "SELLER%03d"

type AddSellerParams struct {
	DisplayName                 string
	ContactHandle               string
	Specialty                   string
	MaxClients                  int
	NotificationIntervalMinutes int
	WorkStart                   string
	WorkEnd                     string
}

// UpdateSellerParams excludes the live client counter, which only the routing engine moves.
type UpdateSellerParams struct {
	DisplayName                 *string
	ContactHandle               *string
	Specialty                   *string
	MaxClients                  *int
	Rating                      *float64
	WorkStart                   *string
	WorkEnd                     *string
	NotificationIntervalMinutes *int
}

type Workload struct {
	SellerID       string
	DisplayName    string
	Specialty      string
	Status         model.SellerStatus
	Active         bool
	CurrentClients int
	MaxClients     int
	LoadPercent    float64
	Available      bool
}

type Stats struct {
	Total         int
	Active        int
	Online        int
	TotalCapacity int
	TotalLoad     int
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func New(db *database.Database) *Service {
	return &Service{
		repo: NewDynamoRepository(db),
		now:  time.Now,
	}
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo: repo,
		now:  now,
	}
}

// Repository exposes the underlying store so the routing engine can share it.
func (s *Service) Repository() Repository {
	return s.repo
}

func (s *Service) AddSeller(ctx context.Context, params AddSellerParams) (model.SellerItem, error) {
	name := strings.TrimSpace(params.DisplayName)
	contact := strings.TrimSpace(params.ContactHandle)
	if name == "" {
		return model.SellerItem{}, newError(ErrorCodeValidation, "seller name is required", nil)
	}
	if contact == "" {
		return model.SellerItem{}, newError(ErrorCodeValidation, "seller contact is required", nil)
	}
	if err := validateWindow(params.WorkStart, params.WorkEnd); err != nil {
		return model.SellerItem{}, err
	}

	existing, err := s.repo.ListSellers(ctx, Filter{})
	if err != nil {
		return model.SellerItem{}, newError(ErrorCodeInternal, "failed to list sellers", err)
	}

	now := s.now().UTC().Format(time.RFC3339)
	seller := model.SellerItem{
		SellerID:                    nextSellerID(existing),
		DisplayName:                 name,
		ContactHandle:               contact,
		Specialty:                   strings.TrimSpace(params.Specialty),
		Status:                      model.SellerStatusOnline,
		Active:                      true,
		MaxClients:                  params.MaxClients,
		NotificationIntervalMinutes: params.NotificationIntervalMinutes,
		WorkStart:                   params.WorkStart,
		WorkEnd:                     params.WorkEnd,
		CreatedAt:                   now,
		UpdatedAt:                   now,
	}
	if seller.Specialty == "" {
		seller.Specialty = model.DefaultSpecialty
	}
	if seller.MaxClients == 0 {
		seller.MaxClients = model.DefaultMaxClients
	}
	if seller.NotificationIntervalMinutes == 0 {
		seller.NotificationIntervalMinutes = model.DefaultNotificationInterval
	}
	seller.MaxClients = clampMaxClients(seller.MaxClients)
	seller.NotificationIntervalMinutes = clampInterval(seller.NotificationIntervalMinutes)
	if seller.WorkStart == "" && seller.WorkEnd == "" {
		seller.WorkStart = model.DefaultWorkStart
		seller.WorkEnd = model.DefaultWorkEnd
	}

	if err := s.repo.CreateSeller(ctx, seller); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return model.SellerItem{}, newError(ErrorCodeConflict, "seller id already taken", err)
		}
		return model.SellerItem{}, newError(ErrorCodeInternal, "failed to create seller", err)
	}
	return seller, nil
}

func (s *Service) GetSeller(ctx context.Context, sellerID string) (model.SellerItem, error) {
	seller, err := s.repo.GetSeller(ctx, sellerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.SellerItem{}, newError(ErrorCodeNotFound, "seller not found", err)
		}
		return model.SellerItem{}, newError(ErrorCodeInternal, "failed to get seller", err)
	}
	return seller, nil
}

func (s *Service) ListSellers(ctx context.Context, filter Filter) ([]model.SellerItem, error) {
	sellers, err := s.repo.ListSellers(ctx, filter)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list sellers", err)
	}
	return sellers, nil
}

func (s *Service) UpdateSeller(ctx context.Context, sellerID string, params UpdateSellerParams) (model.SellerItem, error) {
	update := SellerUpdate{
		DisplayName:   trimmed(params.DisplayName),
		ContactHandle: trimmed(params.ContactHandle),
		Specialty:     trimmed(params.Specialty),
		Rating:        params.Rating,
		WorkStart:     params.WorkStart,
		WorkEnd:       params.WorkEnd,
		UpdatedAt:     s.now(),
	}
	if update.DisplayName != nil && *update.DisplayName == "" {
		return model.SellerItem{}, newError(ErrorCodeValidation, "seller name cannot be empty", nil)
	}
	if update.Specialty != nil && *update.Specialty == "" {
		general := model.DefaultSpecialty
		update.Specialty = &general
	}
	if params.MaxClients != nil {
		v := clampMaxClients(*params.MaxClients)
		update.MaxClients = &v
	}
	if params.NotificationIntervalMinutes != nil {
		v := clampInterval(*params.NotificationIntervalMinutes)
		update.NotificationIntervalMinutes = &v
	}
	if params.WorkStart != nil || params.WorkEnd != nil {
		current, err := s.GetSeller(ctx, sellerID)
		if err != nil {
			return model.SellerItem{}, err
		}
		start, end := current.WorkStart, current.WorkEnd
		if params.WorkStart != nil {
			start = *params.WorkStart
		}
		if params.WorkEnd != nil {
			end = *params.WorkEnd
		}
		if err := validateWindow(start, end); err != nil {
			return model.SellerItem{}, err
		}
	}
	return s.update(ctx, sellerID, update)
}

func (s *Service) SetStatus(ctx context.Context, sellerID string, status model.SellerStatus) (model.SellerItem, error) {
	if !status.Valid() {
		return model.SellerItem{}, newError(ErrorCodeValidation, fmt.Sprintf("invalid seller status %q", status), nil)
	}
	return s.update(ctx, sellerID, SellerUpdate{Status: &status, UpdatedAt: s.now()})
}

func (s *Service) SetActive(ctx context.Context, sellerID string, active bool) (model.SellerItem, error) {
	return s.update(ctx, sellerID, SellerUpdate{Active: &active, UpdatedAt: s.now()})
}

func (s *Service) AddDayOff(ctx context.Context, sellerID, date, reason string) (model.SellerItem, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return model.SellerItem{}, newError(ErrorCodeValidation, "day off date must be YYYY-MM-DD", err)
	}
	seller, err := s.GetSeller(ctx, sellerID)
	if err != nil {
		return model.SellerItem{}, err
	}
	for _, d := range seller.DaysOff {
		if d.Date == date {
			return model.SellerItem{}, newError(ErrorCodeConflict, "day off already registered", nil)
		}
	}
	days := append(append([]model.DayOff(nil), seller.DaysOff...), model.DayOff{Date: date, Reason: strings.TrimSpace(reason)})
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return s.update(ctx, sellerID, SellerUpdate{DaysOff: &days, UpdatedAt: s.now()})
}

func (s *Service) RemoveDayOff(ctx context.Context, sellerID, date string) (model.SellerItem, error) {
	seller, err := s.GetSeller(ctx, sellerID)
	if err != nil {
		return model.SellerItem{}, err
	}
	days := make([]model.DayOff, 0, len(seller.DaysOff))
	for _, d := range seller.DaysOff {
		if d.Date != date {
			days = append(days, d)
		}
	}
	if len(days) == len(seller.DaysOff) {
		return model.SellerItem{}, newError(ErrorCodeNotFound, "day off not found", nil)
	}
	return s.update(ctx, sellerID, SellerUpdate{DaysOff: &days, UpdatedAt: s.now()})
}

func (s *Service) DeleteSeller(ctx context.Context, sellerID string) error {
	seller, err := s.GetSeller(ctx, sellerID)
	if err != nil {
		return err
	}
	if seller.CurrentClients > 0 {
		return newError(ErrorCodeConflict,
			fmt.Sprintf("seller %s still has %d active clients", sellerID, seller.CurrentClients), nil)
	}
	if err := s.repo.DeleteSeller(ctx, sellerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return newError(ErrorCodeNotFound, "seller not found", err)
		}
		return newError(ErrorCodeInternal, "failed to delete seller", err)
	}
	return nil
}

func (s *Service) Workload(ctx context.Context) ([]Workload, error) {
	sellers, err := s.ListSellers(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]Workload, 0, len(sellers))
	for _, seller := range sellers {
		out = append(out, Workload{
			SellerID:       seller.SellerID,
			DisplayName:    seller.DisplayName,
			Specialty:      seller.Specialty,
			Status:         seller.Status,
			Active:         seller.Active,
			CurrentClients: seller.CurrentClients,
			MaxClients:     seller.MaxClients,
			LoadPercent:    seller.LoadPercent(),
			Available:      seller.IsAvailable(now),
		})
	}
	return out, nil
}

func (s *Service) AvailableSellers(ctx context.Context, at time.Time) ([]model.SellerItem, error) {
	sellers, err := s.ListSellers(ctx, Filter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	out := make([]model.SellerItem, 0, len(sellers))
	for _, seller := range sellers {
		if seller.IsAvailable(at) {
			out = append(out, seller)
		}
	}
	return out, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	sellers, err := s.ListSellers(ctx, Filter{})
	if err != nil {
		return Stats{}, err
	}
	var stats Stats
	for _, seller := range sellers {
		stats.Total++
		if seller.Active {
			stats.Active++
			stats.TotalCapacity += seller.MaxClients
			stats.TotalLoad += seller.CurrentClients
		}
		if seller.Status == model.SellerStatusOnline {
			stats.Online++
		}
	}
	return stats, nil
}

func (s *Service) update(ctx context.Context, sellerID string, update SellerUpdate) (model.SellerItem, error) {
	seller, err := s.repo.UpdateSeller(ctx, sellerID, update)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.SellerItem{}, newError(ErrorCodeNotFound, "seller not found", err)
		}
		return model.SellerItem{}, newError(ErrorCodeInternal, "failed to update seller", err)
	}
	return seller, nil
}

func nextSellerID(existing []model.SellerItem) string {
	taken := make(map[string]bool, len(existing))
	for _, s := range existing {
		taken[s.SellerID] = true
	}
	for n := 1; ; n++ {
		id := fmt.Sprintf(sellerIDFormat, n)
		if !taken[id] {
			return id
		}
	}
}

func clampMaxClients(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

func clampInterval(v int) int {
	if v < model.MinNotificationInterval {
		return model.MinNotificationInterval
	}
	return v
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func validateWindow(start, end string) error {
	if start == "" && end == "" {
		return nil
	}
	for _, v := range []string{start, end} {
		if _, err := time.Parse("15:04", v); err != nil {
			return newError(ErrorCodeValidation, "work window must use HH:MM", err)
		}
	}
	return nil
}
