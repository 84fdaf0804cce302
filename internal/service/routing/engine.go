package routing

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"sales-routing-backend/internal/model"
	"sales-routing-backend/internal/service/directory"

	"github.com/prometheus/client_golang/prometheus"
)

// Directory is the slice of directory.Repository the engine relies on.
type Directory interface {
	GetSeller(ctx context.Context, sellerID string) (model.SellerItem, error)
	ListSellers(ctx context.Context, filter directory.Filter) ([]model.SellerItem, error)
	UpdateSeller(ctx context.Context, sellerID string, update directory.SellerUpdate) (model.SellerItem, error)
	IncrementClients(ctx context.Context, sellerID string) (int, error)
	DecrementClients(ctx context.Context, sellerID string) (int, error)
	SaveAssignment(ctx context.Context, assignment model.AssignmentItem) error
	CompleteAssignment(ctx context.Context, conversationID string, completedAt time.Time) (model.AssignmentItem, error)
	FindActiveAssignments(ctx context.Context) ([]model.AssignmentItem, error)
}

type Options struct {
	Now        func() time.Time
	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

type Stats struct {
	TotalAssignments       int
	CompletedConversations int
	ActiveConversations    int
}

// Engine binds conversations to sellers with a capacity-aware round-robin.
// A single mutex guards the assignment cache and the round-robin index, and is held
// across the directory calls of one Assign or Release so counters and assignments move
// together.
type Engine struct {
	mu          sync.Mutex
	dir         Directory
	now         func() time.Time
	logger      *slog.Logger
	metrics     *metrics
	next        int
	assignments map[string]model.AssignmentItem
	stats       Stats
}

func New(dir Directory, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		dir:         dir,
		now:         opts.Now,
		logger:      opts.Logger.With(slog.String("component", "routing")),
		metrics:     newMetrics(opts.Registerer),
		assignments: make(map[string]model.AssignmentItem),
	}
}

// Load rebuilds the assignment cache from the directory and repairs any seller whose
// persisted counter disagrees with its number of active assignments.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	active, err := e.dir.FindActiveAssignments(ctx)
	if err != nil {
		return newError(ErrorCodeInternal, "failed to load active assignments", err)
	}
	sellers, err := e.dir.ListSellers(ctx, directory.Filter{})
	if err != nil {
		return newError(ErrorCodeInternal, "failed to list sellers", err)
	}

	e.assignments = make(map[string]model.AssignmentItem, len(active))
	perSeller := make(map[string]int)
	for _, a := range active {
		e.assignments[a.ConversationID] = a
		perSeller[a.SellerID]++
	}

	for _, seller := range sellers {
		want := perSeller[seller.SellerID]
		if seller.CurrentClients == want {
			continue
		}
		e.logger.Warn("reconciling seller client counter",
			slog.String("seller_id", seller.SellerID),
			slog.Int("persisted", seller.CurrentClients),
			slog.Int("active_assignments", want))
		if _, err := e.dir.UpdateSeller(ctx, seller.SellerID, directory.SellerUpdate{CurrentClients: &want, UpdatedAt: e.now()}); err != nil {
			return newError(ErrorCodeInternal, "failed to reconcile seller counter", err)
		}
	}

	e.stats.ActiveConversations = len(e.assignments)
	e.metrics.setActive(len(e.assignments))
	e.logger.Info("assignments loaded", slog.Int("active", len(e.assignments)))
	return nil
}

// Assign returns the seller bound to conversationID, choosing one when the conversation
// has no live binding. An existing binding to an active seller is never switched.
func (e *Engine) Assign(ctx context.Context, conversationID, specialty string) (model.SellerItem, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return model.SellerItem{}, newError(ErrorCodeValidation, "conversation id is required", nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if current, ok := e.assignments[conversationID]; ok {
		seller, err := e.dir.GetSeller(ctx, current.SellerID)
		switch {
		case err == nil && seller.Active:
			e.metrics.assigned("existing")
			return seller, nil
		case err != nil && !errors.Is(err, directory.ErrNotFound):
			return model.SellerItem{}, newError(ErrorCodeInternal, "failed to load assigned seller", err)
		}
		e.logger.Info("retiring assignment to unavailable seller",
			slog.String("conversation_id", conversationID),
			slog.String("seller_id", current.SellerID))
		if err := e.releaseLocked(ctx, current); err != nil {
			return model.SellerItem{}, err
		}
	}

	sellers, err := e.dir.ListSellers(ctx, directory.Filter{ActiveOnly: true})
	if err != nil {
		return model.SellerItem{}, newError(ErrorCodeInternal, "failed to list sellers", err)
	}
	if len(sellers) == 0 {
		e.metrics.assigned("no_sellers")
		return model.SellerItem{}, newError(ErrorCodeNoSellersAvailable, "no sellers available", ErrNoSellersAvailable)
	}

	pool, overflow := candidatePool(sellers, specialty)
	seller := pool[e.next%len(pool)]

	count, err := e.dir.IncrementClients(ctx, seller.SellerID)
	if err != nil {
		e.metrics.assigned("failed")
		return model.SellerItem{}, newError(ErrorCodeInternal, "failed to increment seller clients", err)
	}

	assignment := model.AssignmentItem{
		ConversationID: conversationID,
		SellerID:       seller.SellerID,
		Status:         model.AssignmentStatusActive,
		AssignedAt:     e.now().UTC().Format(time.RFC3339),
	}
	if err := e.dir.SaveAssignment(ctx, assignment); err != nil {
		if _, rbErr := e.dir.DecrementClients(ctx, seller.SellerID); rbErr != nil && !errors.Is(rbErr, directory.ErrCounterAtFloor) {
			e.logger.Error("failed to roll back client counter",
				slog.String("seller_id", seller.SellerID),
				slog.String("error", rbErr.Error()))
		}
		e.metrics.assigned("failed")
		return model.SellerItem{}, newError(ErrorCodeInternal, "failed to save assignment", err)
	}

	e.next = (e.next + 1) % len(pool)
	e.assignments[conversationID] = assignment
	e.stats.TotalAssignments++
	e.stats.ActiveConversations = len(e.assignments)
	e.metrics.setActive(len(e.assignments))

	outcome := "assigned"
	if overflow {
		outcome = "overflow"
	}
	e.metrics.assigned(outcome)
	e.logger.Info("conversation assigned",
		slog.String("conversation_id", conversationID),
		slog.String("seller_id", seller.SellerID),
		slog.Int("current_clients", count),
		slog.Bool("overflow", overflow))

	seller.CurrentClients = count
	return seller, nil
}

// Release completes the conversation's active assignment. Without one it is a no-op.
func (e *Engine) Release(ctx context.Context, conversationID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	current, ok := e.assignments[conversationID]
	if !ok {
		return nil
	}
	if err := e.releaseLocked(ctx, current); err != nil {
		return err
	}
	e.metrics.released()
	e.logger.Info("conversation released",
		slog.String("conversation_id", conversationID),
		slog.String("seller_id", current.SellerID))
	return nil
}

// releaseLocked decrements the seller counter and completes the assignment. If the
// completion fails a decrement that actually happened is undone, so the counter keeps
// matching the number of persisted active assignments.
func (e *Engine) releaseLocked(ctx context.Context, current model.AssignmentItem) error {
	decremented := true
	if _, err := e.dir.DecrementClients(ctx, current.SellerID); err != nil {
		if !errors.Is(err, directory.ErrNotFound) && !errors.Is(err, directory.ErrCounterAtFloor) {
			return newError(ErrorCodeInternal, "failed to decrement seller clients", err)
		}
		decremented = false
	}

	_, err := e.dir.CompleteAssignment(ctx, current.ConversationID, e.now())
	if err != nil {
		if decremented {
			if _, rbErr := e.dir.IncrementClients(ctx, current.SellerID); rbErr != nil {
				e.logger.Error("failed to roll back client counter",
					slog.String("seller_id", current.SellerID),
					slog.String("error", rbErr.Error()))
			}
		}
		if !errors.Is(err, directory.ErrAlreadyCompleted) && !errors.Is(err, directory.ErrNotFound) {
			return newError(ErrorCodeInternal, "failed to complete assignment", err)
		}
		e.logger.Warn("assignment already retired in store",
			slog.String("conversation_id", current.ConversationID))
	}

	delete(e.assignments, current.ConversationID)
	e.stats.CompletedConversations++
	e.stats.ActiveConversations = len(e.assignments)
	e.metrics.setActive(len(e.assignments))
	return nil
}

// GetAssigned returns the seller currently bound to conversationID, if any.
func (e *Engine) GetAssigned(ctx context.Context, conversationID string) (model.SellerItem, bool, error) {
	e.mu.Lock()
	current, ok := e.assignments[conversationID]
	e.mu.Unlock()
	if !ok {
		return model.SellerItem{}, false, nil
	}

	seller, err := e.dir.GetSeller(ctx, current.SellerID)
	if errors.Is(err, directory.ErrNotFound) {
		return model.SellerItem{}, false, nil
	}
	if err != nil {
		return model.SellerItem{}, false, newError(ErrorCodeInternal, "failed to load assigned seller", err)
	}
	return seller, true, nil
}

func (e *Engine) Assignment(conversationID string) (model.AssignmentItem, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.assignments[conversationID]
	return a, ok
}

func (e *Engine) ActiveConversations() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.assignments))
	for id := range e.assignments {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// candidatePool narrows active sellers to those with spare capacity, preferring the
// requested specialty when anyone matches. When nobody has capacity it falls back to
// every active seller ordered by load, reporting overflow.
func candidatePool(active []model.SellerItem, specialty string) ([]model.SellerItem, bool) {
	pool := make([]model.SellerItem, 0, len(active))
	for _, s := range active {
		if s.HasCapacity() {
			pool = append(pool, s)
		}
	}

	if strings.TrimSpace(specialty) != "" {
		matching := make([]model.SellerItem, 0, len(pool))
		for _, s := range pool {
			if s.MatchesSpecialty(specialty) {
				matching = append(matching, s)
			}
		}
		if len(matching) > 0 {
			pool = matching
		}
	}

	if len(pool) > 0 {
		return pool, false
	}

	pool = append(pool, active...)
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].CurrentClients < pool[j].CurrentClients
	})
	return pool, true
}
