package followup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"sales-routing-backend/internal/ring"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const DefaultHistorySize = 200

var (
	ErrClosed       = errors.New("follow-up scheduler is closed")
	ErrInvalidTimer = errors.New("invalid follow-up timer")
)

// FireFunc runs when a timer expires. Its context is cancelled by Close.
type FireFunc func(ctx context.Context) error

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeError     Outcome = "error"
	OutcomeCancelled Outcome = "cancelled"
)

type Timer struct {
	ID             string
	ConversationID string
	Stage          string
	Delay          time.Duration
	CreatedAt      time.Time
	ScheduledFor   time.Time
}

type HistoryEntry struct {
	TimerID        string
	ConversationID string
	Stage          string
	Outcome        Outcome
	Error          string
	At             time.Time
}

type Stats struct {
	Active    int
	Scheduled int
	Completed int
	Failed    int
	Cancelled int
}

type Options struct {
	Clock       Clock
	Logger      *slog.Logger
	Registerer  prometheus.Registerer
	HistorySize int
}

type timerKey struct {
	conversationID string
	stage          string
}

type pending struct {
	Timer
	stop Stopper
}

// Scheduler keeps at most one pending timer per (conversation, stage). Re-scheduling
// a pair replaces its timer. A timer removed by Cancel or replacement never runs, even
// if its clock callback was already dispatched.
type Scheduler struct {
	mu       sync.Mutex
	clock    Clock
	logger   *slog.Logger
	metrics  *metrics
	override time.Duration
	timers   map[timerKey]*pending
	history  *ring.Buffer[HistoryEntry]
	stats    Stats
	closed   bool
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		clock:   opts.Clock,
		logger:  opts.Logger.With(slog.String("component", "followup")),
		metrics: newMetrics(opts.Registerer),
		timers:  make(map[timerKey]*pending),
		history: ring.New[HistoryEntry](opts.HistorySize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Schedule arms onFire after delay, or after the delay override when one is set.
func (s *Scheduler) Schedule(conversationID, stage string, delay time.Duration, onFire FireFunc) (string, error) {
	conversationID = strings.TrimSpace(conversationID)
	stage = strings.TrimSpace(stage)
	if conversationID == "" || stage == "" || onFire == nil {
		return "", fmt.Errorf("%w: conversation, stage and callback are required", ErrInvalidTimer)
	}
	if delay < 0 {
		return "", fmt.Errorf("%w: negative delay %s", ErrInvalidTimer, delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrClosed
	}

	k := timerKey{conversationID: conversationID, stage: stage}
	if prev, ok := s.timers[k]; ok {
		prev.stop.Stop()
		delete(s.timers, k)
		s.logger.Debug("replacing follow-up timer",
			slog.String("conversation_id", conversationID),
			slog.String("stage", stage),
			slog.String("timer_id", prev.ID))
	}

	if s.override > 0 {
		delay = s.override
	}

	now := s.clock.Now()
	t := Timer{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Stage:          stage,
		Delay:          delay,
		CreatedAt:      now,
		ScheduledFor:   now.Add(delay),
	}
	id := t.ID
	p := &pending{Timer: t}
	s.timers[k] = p
	p.stop = s.clock.AfterFunc(delay, func() { s.fire(k, id, onFire) })

	s.stats.Scheduled++
	s.metrics.armed(len(s.timers))
	s.logger.Info("follow-up timer armed",
		slog.String("conversation_id", conversationID),
		slog.String("stage", stage),
		slog.String("timer_id", id),
		slog.Duration("delay", delay))
	return id, nil
}

func (s *Scheduler) fire(k timerKey, id string, onFire FireFunc) {
	s.mu.Lock()
	p, ok := s.timers[k]
	if !ok || p.ID != id {
		s.mu.Unlock()
		s.logger.Debug("dropping stale timer fire", slog.String("timer_id", id))
		return
	}
	delete(s.timers, k)
	ctx := s.ctx
	s.mu.Unlock()

	err := run(ctx, onFire)

	entry := HistoryEntry{
		TimerID:        id,
		ConversationID: k.conversationID,
		Stage:          k.stage,
		Outcome:        OutcomeCompleted,
		At:             s.clock.Now(),
	}
	if err != nil {
		entry.Outcome = OutcomeError
		entry.Error = err.Error()
		s.logger.Error("follow-up timer failed",
			slog.String("conversation_id", k.conversationID),
			slog.String("stage", k.stage),
			slog.String("error", err.Error()))
	}

	s.mu.Lock()
	s.record(entry)
	s.mu.Unlock()
}

func run(ctx context.Context, onFire FireFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in follow-up callback: %v", r)
		}
	}()
	return onFire(ctx)
}

// record must be called with s.mu held.
func (s *Scheduler) record(entry HistoryEntry) {
	s.history.Push(entry)
	switch entry.Outcome {
	case OutcomeCompleted:
		s.stats.Completed++
	case OutcomeError:
		s.stats.Failed++
	case OutcomeCancelled:
		s.stats.Cancelled++
	}
	s.metrics.finished(entry.Outcome, len(s.timers))
}

// Cancel stops the timer for (conversationID, stage), or every timer of the
// conversation when stage is empty. It returns how many pending timers it removed.
func (s *Scheduler) Cancel(conversationID, stage string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	cancelled := 0
	for k, p := range s.timers {
		if k.conversationID != conversationID || (stage != "" && k.stage != stage) {
			continue
		}
		p.stop.Stop()
		delete(s.timers, k)
		s.record(HistoryEntry{
			TimerID:        p.ID,
			ConversationID: k.conversationID,
			Stage:          k.stage,
			Outcome:        OutcomeCancelled,
			At:             now,
		})
		cancelled++
	}
	if cancelled > 0 {
		s.logger.Info("follow-up timers cancelled",
			slog.String("conversation_id", conversationID),
			slog.String("stage", stage),
			slog.Int("count", cancelled))
	}
	return cancelled
}

func (s *Scheduler) ListActive(conversationID string) []Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Timer, 0)
	for k, p := range s.timers {
		if k.conversationID == conversationID {
			out = append(out, p.Timer)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out
}

func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// History returns up to limit most recent entries, oldest first. limit <= 0 returns all.
func (s *Scheduler) History(limit int) []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.history.Slice()
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries
}

// PruneHistory drops entries recorded before cutoff and returns how many were removed.
func (s *Scheduler) PruneHistory(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Retain(func(e HistoryEntry) bool { return !e.At.Before(cutoff) })
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := s.stats
	stats.Active = len(s.timers)
	return stats
}

// SetDelayOverride replaces the delay of every later Schedule call. Timers already
// armed keep their original delay.
func (s *Scheduler) SetDelayOverride(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: override must be positive", ErrInvalidTimer)
	}
	s.mu.Lock()
	s.override = d
	s.mu.Unlock()
	s.logger.Warn("follow-up delay override set", slog.Duration("delay", d))
	return nil
}

func (s *Scheduler) ClearDelayOverride() {
	s.mu.Lock()
	s.override = 0
	s.mu.Unlock()
	s.logger.Info("follow-up delay override cleared")
}

func (s *Scheduler) DelayOverride() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.override, s.override > 0
}

// Close stops every pending timer without recording it and rejects later Schedule calls.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for k, p := range s.timers {
		p.stop.Stop()
		delete(s.timers, k)
	}
	s.cancel()
	s.metrics.finished(OutcomeCancelled, 0)
}
