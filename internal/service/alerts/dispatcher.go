package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"sales-routing-backend/internal/model"
	"sales-routing-backend/internal/ring"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultHistorySize     = 500
	DefaultHistoryLimit    = 50
	defaultDeliveryTimeout = 15 * time.Second
)

var ErrNoDestination = errors.New("alert has no destination")

// Message is what a Transport delivers.
type Message struct {
	AlertID        string
	To             string
	Text           string
	SellerID       string
	ConversationID string
	Reason         Reason
	Priority       Priority
}

type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

type SellerLookup interface {
	GetSeller(ctx context.Context, sellerID string) (model.SellerItem, error)
}

// FeedPublisher mirrors recorded alerts to live subscribers.
type FeedPublisher interface {
	PublishAlert(ctx context.Context, a Alert) error
}

type Request struct {
	SellerID       string
	ConversationID string
	CustomerLabel  string
	Context        Context
	// Priority can only raise the reason's default.
	Priority Priority
	// Destination overrides the seller's contact handle.
	Destination string
	Note        string
}

type Alert struct {
	ID             string
	SellerID       string
	ConversationID string
	CustomerLabel  string
	Reason         Reason
	Priority       Priority
	Context        Context
	Destination    string
	Note           string
	Message        string
	Status         Status
	Error          string
	CreatedAt      time.Time
	SentAt         time.Time
}

type HistoryFilter struct {
	SellerID       string
	ConversationID string
	Reason         Reason
	Status         Status
	Limit          int
}

func (f HistoryFilter) match(a Alert) bool {
	if f.SellerID != "" && a.SellerID != f.SellerID {
		return false
	}
	if f.ConversationID != "" && a.ConversationID != f.ConversationID {
		return false
	}
	if f.Reason != "" && a.Reason != f.Reason {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

type Stats struct {
	Total     int
	Sent      int
	Failed    int
	Simulated int
	ByReason  map[Reason]int
}

type Options struct {
	// Transport may be nil, in which case alerts are recorded as simulated.
	Transport       Transport
	Sellers         SellerLookup
	Feed            FeedPublisher
	Logger          *slog.Logger
	Registerer      prometheus.Registerer
	HistorySize     int
	Now             func() time.Time
	DeliveryTimeout time.Duration
}

// Dispatcher renders and delivers alerts. Delivery is best effort: Send never
// returns an error, the outcome is carried on the returned Alert.
type Dispatcher struct {
	transport Transport
	sellers   SellerLookup
	feed      FeedPublisher
	logger    *slog.Logger
	metrics   *metrics
	now       func() time.Time
	timeout   time.Duration

	mu      sync.Mutex
	history *ring.Buffer[Alert]
	stats   Stats
}

func NewDispatcher(opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = defaultDeliveryTimeout
	}
	return &Dispatcher{
		transport: opts.Transport,
		sellers:   opts.Sellers,
		feed:      opts.Feed,
		logger:    opts.Logger.With(slog.String("component", "alerts")),
		metrics:   newMetrics(opts.Registerer),
		now:       opts.Now,
		timeout:   opts.DeliveryTimeout,
		history:   ring.New[Alert](opts.HistorySize),
		stats:     Stats{ByReason: make(map[Reason]int)},
	}
}

func (d *Dispatcher) Send(ctx context.Context, req Request) Alert {
	if req.Context == nil {
		req.Context = Generic{}
	}
	reason := req.Context.Reason()

	a := Alert{
		ID:             uuid.NewString(),
		SellerID:       req.SellerID,
		ConversationID: req.ConversationID,
		CustomerLabel:  strings.TrimSpace(req.CustomerLabel),
		Reason:         reason,
		Priority:       DefaultPriority(reason).Max(req.Priority),
		Context:        req.Context,
		Note:           req.Note,
		Status:         StatusPending,
		CreatedAt:      d.now(),
	}
	a.Message = Render(a)

	dest, err := d.destination(ctx, req)
	if err != nil {
		a.Status = StatusFailed
		a.Error = err.Error()
		d.logger.Warn("alert has no destination",
			slog.String("alert_id", a.ID),
			slog.String("seller_id", a.SellerID),
			slog.String("error", err.Error()))
		return d.record(ctx, a)
	}
	a.Destination = dest

	if d.transport == nil {
		a.Status = StatusSimulated
		d.logger.Info("alert simulated",
			slog.String("alert_id", a.ID),
			slog.String("to", dest),
			slog.String("reason", string(a.Reason)),
			slog.String("message", a.Message))
		return d.record(ctx, a)
	}

	if err := d.deliver(ctx, a); err != nil {
		a.Status = StatusFailed
		a.Error = err.Error()
		d.logger.Error("alert delivery failed",
			slog.String("alert_id", a.ID),
			slog.String("to", dest),
			slog.String("reason", string(a.Reason)),
			slog.String("error", err.Error()))
		return d.record(ctx, a)
	}

	a.Status = StatusSent
	a.SentAt = d.now()
	d.logger.Info("alert sent",
		slog.String("alert_id", a.ID),
		slog.String("to", dest),
		slog.String("reason", string(a.Reason)),
		slog.String("priority", string(a.Priority)))
	return d.record(ctx, a)
}

func (d *Dispatcher) destination(ctx context.Context, req Request) (string, error) {
	if dest := strings.TrimSpace(req.Destination); dest != "" {
		return dest, nil
	}
	if req.SellerID == "" || d.sellers == nil {
		return "", ErrNoDestination
	}
	seller, err := d.sellers.GetSeller(ctx, req.SellerID)
	if err != nil {
		return "", fmt.Errorf("resolve seller %s: %w", req.SellerID, err)
	}
	if strings.TrimSpace(seller.ContactHandle) == "" {
		return "", fmt.Errorf("seller %s: %w", req.SellerID, ErrNoDestination)
	}
	return seller.ContactHandle, nil
}

func (d *Dispatcher) deliver(ctx context.Context, a Alert) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport panic: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.transport.Deliver(ctx, Message{
		AlertID:        a.ID,
		To:             a.Destination,
		Text:           a.Message,
		SellerID:       a.SellerID,
		ConversationID: a.ConversationID,
		Reason:         a.Reason,
		Priority:       a.Priority,
	})
}

func (d *Dispatcher) record(ctx context.Context, a Alert) Alert {
	d.mu.Lock()
	d.history.Push(a)
	d.stats.Total++
	d.stats.ByReason[a.Reason]++
	switch a.Status {
	case StatusSent:
		d.stats.Sent++
	case StatusFailed:
		d.stats.Failed++
	case StatusSimulated:
		d.stats.Simulated++
	}
	d.mu.Unlock()

	d.metrics.observe(a)

	if d.feed != nil {
		if err := d.feed.PublishAlert(ctx, a); err != nil {
			d.logger.Warn("alert feed publish failed",
				slog.String("alert_id", a.ID),
				slog.String("error", err.Error()))
		}
	}
	return a
}

// History returns the most recent matching alerts, oldest first. A zero limit
// means DefaultHistoryLimit.
func (d *Dispatcher) History(filter HistoryFilter) []Alert {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	d.mu.Lock()
	all := d.history.Slice()
	d.mu.Unlock()

	out := make([]Alert, 0, len(all))
	for _, a := range all {
		if filter.match(a) {
			out = append(out, a)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.stats
	out.ByReason = make(map[Reason]int, len(d.stats.ByReason))
	for k, v := range d.stats.ByReason {
		out.ByReason[k] = v
	}
	return out
}

// Prune drops history entries created before cutoff. Stats are not affected.
func (d *Dispatcher) Prune(cutoff time.Time) int {
	d.mu.Lock()
	removed := d.history.Retain(func(a Alert) bool { return !a.CreatedAt.Before(cutoff) })
	d.mu.Unlock()
	if removed > 0 {
		d.logger.Info("alert history pruned", slog.Int("removed", removed))
	}
	return removed
}
