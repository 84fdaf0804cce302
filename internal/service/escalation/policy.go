package escalation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sales-routing-backend/internal/flowstore"
	"sales-routing-backend/internal/model"
	"sales-routing-backend/internal/service/alerts"
	"sales-routing-backend/internal/service/followup"
	"sales-routing-backend/internal/service/routing"

	"github.com/prometheus/client_golang/prometheus"
)

type ErrorCode string

const (
	ErrorCodeValidation         ErrorCode = "validation_error"
	ErrorCodeNotFound           ErrorCode = "not_found"
	ErrorCodeConflict           ErrorCode = "conflict"
	ErrorCodeNoSellersAvailable ErrorCode = "no_sellers_available"
	ErrorCodeInternal           ErrorCode = "internal_error"
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

type Router interface {
	Assign(ctx context.Context, conversationID, specialty string) (model.SellerItem, error)
	Release(ctx context.Context, conversationID string) error
}

type Scheduler interface {
	Schedule(conversationID, stage string, delay time.Duration, onFire followup.FireFunc) (string, error)
	Cancel(conversationID, stage string) int
	ListActive(conversationID string) []followup.Timer
}

type Alerter interface {
	Send(ctx context.Context, req alerts.Request) alerts.Alert
}

// Outcome tells the caller what a reply did to the conversation.
type Outcome string

const (
	OutcomeIgnored    Outcome = "ignored"
	OutcomeResolved   Outcome = "resolved"
	OutcomeAdvanced   Outcome = "advanced"
	OutcomeEscalated  Outcome = "escalated"
	OutcomeReprompted Outcome = "reprompted"
)

type StartRequest struct {
	ConversationID string
	Stage          string
	Specialty      string
	CustomerLabel  string
	Keyword        string
	// NotifySeller sends the stage's alert to the assigned seller right away.
	NotifySeller bool
}

type ReplyResult struct {
	Conversation Conversation
	Kind         ReplyKind
	Outcome      Outcome
}

type Options struct {
	Now        func() time.Time
	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

// Policy drives each conversation through Active, FollowUpPending and then Resolved
// or Escalated. Escalated only leaves through Resolve. Every transition for a
// conversation runs under that conversation's lock.
type Policy struct {
	router    Router
	scheduler Scheduler
	alerter   Alerter
	store     flowstore.Store
	cfg       Config
	now       func() time.Time
	logger    *slog.Logger
	metrics   *metrics
	locks     *keyedMutex
}

func New(router Router, scheduler Scheduler, alerter Alerter, store flowstore.Store, cfg Config, opts Options) (*Policy, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.RepromptText == "" {
		cfg.RepromptText = defaultRepromptText
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Policy{
		router:    router,
		scheduler: scheduler,
		alerter:   alerter,
		store:     store,
		cfg:       cfg,
		now:       opts.Now,
		logger:    opts.Logger.With(slog.String("component", "escalation")),
		metrics:   newMetrics(opts.Registerer),
		locks:     newKeyedMutex(),
	}, nil
}

func (p *Policy) Stages() map[string]StagePolicy {
	out := make(map[string]StagePolicy, len(p.cfg.Stages))
	for k, v := range p.cfg.Stages {
		out[k] = v
	}
	return out
}

// Start assigns a seller and arms the stage timer. Starting a conversation that is
// already Active or FollowUpPending moves it to the new stage.
func (p *Policy) Start(ctx context.Context, req StartRequest) (Conversation, error) {
	req.ConversationID = strings.TrimSpace(req.ConversationID)
	if req.ConversationID == "" {
		return Conversation{}, newError(ErrorCodeValidation, "conversation id is required", nil)
	}
	stage, ok := p.cfg.Stages[req.Stage]
	if !ok {
		return Conversation{}, newError(ErrorCodeValidation, fmt.Sprintf("unknown stage %q", req.Stage), nil)
	}

	unlock := p.locks.Lock(req.ConversationID)
	defer unlock()

	current, exists, err := p.load(ctx, req.ConversationID)
	if err != nil {
		return Conversation{}, err
	}
	if exists && current.State == StateEscalated {
		return current, newError(ErrorCodeConflict, "conversation is escalated and must be resolved by an operator", nil)
	}

	seller, err := p.router.Assign(ctx, req.ConversationID, req.Specialty)
	if err != nil {
		if errors.Is(err, routing.ErrNoSellersAvailable) {
			return Conversation{}, newError(ErrorCodeNoSellersAvailable, "no sellers available", err)
		}
		return Conversation{}, newError(ErrorCodeInternal, "failed to assign seller", err)
	}

	p.scheduler.Cancel(req.ConversationID, "")

	conv := Conversation{
		ConversationID: req.ConversationID,
		State:          StateActive,
		Stage:          req.Stage,
		SellerID:       seller.SellerID,
		CustomerLabel:  strings.TrimSpace(req.CustomerLabel),
		Keyword:        strings.TrimSpace(req.Keyword),
		Priority:       alerts.DefaultPriority(stage.EscalationReason),
		StartedAt:      p.now(),
	}
	if err := p.arm(ctx, &conv, stage); err != nil {
		if !exists || current.State == StateResolved {
			if relErr := p.router.Release(ctx, req.ConversationID); relErr != nil {
				p.logger.Error("failed to release seller after arming failed",
					slog.String("conversation_id", req.ConversationID),
					slog.String("error", relErr.Error()))
			}
		}
		return Conversation{}, err
	}

	if req.NotifySeller {
		p.alerter.Send(ctx, alerts.Request{
			SellerID:       conv.SellerID,
			ConversationID: conv.ConversationID,
			CustomerLabel:  conv.CustomerLabel,
			Context:        alerts.ContextFor(stage.EscalationReason, conv.Keyword),
		})
	}

	p.metrics.transition(conv.Stage, "started")
	p.logger.Info("follow-up started",
		slog.String("conversation_id", conv.ConversationID),
		slog.String("stage", conv.Stage),
		slog.String("seller_id", conv.SellerID))
	return conv, nil
}

// arm schedules the stage timer and persists conv as Active. Callers hold the lock.
func (p *Policy) arm(ctx context.Context, conv *Conversation, stage StagePolicy) error {
	return p.armAfter(ctx, conv, stage.Delay)
}

func (p *Policy) armAfter(ctx context.Context, conv *Conversation, delay time.Duration) error {
	armed := new(string)
	id, err := p.scheduler.Schedule(conv.ConversationID, conv.Stage, delay, p.onTimer(conv.ConversationID, conv.Stage, armed))
	if err != nil {
		return newError(ErrorCodeInternal, "failed to schedule follow-up", err)
	}
	// The callback reads armed only under the conversation lock, which the caller
	// still holds here.
	*armed = id

	conv.TimerID = id
	conv.State = StateActive
	conv.Reprompts = 0
	conv.FollowUpAt = time.Time{}
	conv.DueAt = p.now().Add(delay)
	for _, t := range p.scheduler.ListActive(conv.ConversationID) {
		if t.ID == id && !t.ScheduledFor.IsZero() {
			conv.DueAt = t.ScheduledFor
		}
	}

	if err := p.save(ctx, *conv); err != nil {
		p.scheduler.Cancel(conv.ConversationID, conv.Stage)
		return err
	}
	return nil
}

func (p *Policy) onTimer(conversationID, stage string, armed *string) followup.FireFunc {
	return func(ctx context.Context) error {
		return p.fire(ctx, conversationID, stage, armed)
	}
}

// fire sends the check-in question to the customer and waits for a reply. A fire
// whose timer was replaced after it was dispatched is dropped.
func (p *Policy) fire(ctx context.Context, conversationID, stageKey string, armed *string) error {
	unlock := p.locks.Lock(conversationID)
	defer unlock()
	timerID := *armed

	conv, exists, err := p.load(ctx, conversationID)
	if err != nil {
		return err
	}
	if !exists || conv.State != StateActive || conv.Stage != stageKey || conv.TimerID != timerID {
		p.logger.Debug("ignoring follow-up for conversation that moved on",
			slog.String("conversation_id", conversationID),
			slog.String("stage", stageKey),
			slog.String("timer_id", timerID))
		return nil
	}
	stage := p.cfg.Stages[stageKey]

	p.checkIn(ctx, conv, stage.Question, 1)

	conv.State = StateFollowUpPending
	conv.FollowUpAt = p.now()
	conv.DueAt = time.Time{}
	conv.TimerID = ""
	if err := p.save(ctx, conv); err != nil {
		return err
	}

	p.metrics.transition(conv.Stage, "followup_sent")
	return nil
}

func (p *Policy) checkIn(ctx context.Context, conv Conversation, question string, attempt int) alerts.Alert {
	return p.alerter.Send(ctx, alerts.Request{
		SellerID:       conv.SellerID,
		ConversationID: conv.ConversationID,
		CustomerLabel:  conv.CustomerLabel,
		Context:        alerts.CheckIn{Stage: conv.Stage, Question: question, Attempt: attempt},
		Destination:    conv.ConversationID,
	})
}

// HandleReply interprets a customer message. Replies only count while a check-in is
// pending; otherwise they are ignored.
func (p *Policy) HandleReply(ctx context.Context, conversationID, text string) (ReplyResult, error) {
	unlock := p.locks.Lock(conversationID)
	defer unlock()

	conv, exists, err := p.load(ctx, conversationID)
	if err != nil {
		return ReplyResult{}, err
	}
	if !exists {
		return ReplyResult{}, newError(ErrorCodeNotFound, "conversation not found", nil)
	}

	kind := ClassifyReply(text)
	result := ReplyResult{Conversation: conv, Kind: kind, Outcome: OutcomeIgnored}
	if conv.State != StateFollowUpPending {
		return result, nil
	}
	stage := p.cfg.Stages[conv.Stage]

	switch kind {
	case ReplyAffirmative:
		if stage.AffirmativeReason != "" {
			p.alerter.Send(ctx, alerts.Request{
				SellerID:       conv.SellerID,
				ConversationID: conv.ConversationID,
				CustomerLabel:  conv.CustomerLabel,
				Context:        alerts.ContextFor(stage.AffirmativeReason, conv.Keyword),
			})
		}
		if stage.Next != "" {
			conv.Stage = stage.Next
			if err := p.arm(ctx, &conv, p.cfg.Stages[stage.Next]); err != nil {
				return ReplyResult{}, err
			}
			result.Outcome = OutcomeAdvanced
			p.metrics.transition(conv.Stage, "advanced")
			break
		}
		if err := p.resolve(ctx, &conv, ""); err != nil {
			return ReplyResult{}, err
		}
		result.Outcome = OutcomeResolved

	case ReplyNegative:
		if err := p.escalate(ctx, &conv, stage, "El cliente indicó que aún no fue atendido."); err != nil {
			return ReplyResult{}, err
		}
		result.Outcome = OutcomeEscalated

	default:
		conv.Reprompts++
		if conv.Reprompts > p.cfg.MaxReprompts {
			note := fmt.Sprintf("Sin respuesta clara tras %d intentos.", conv.Reprompts)
			if err := p.escalate(ctx, &conv, stage, note); err != nil {
				return ReplyResult{}, err
			}
			result.Outcome = OutcomeEscalated
			break
		}
		p.checkIn(ctx, conv, p.cfg.RepromptText+"\n\n"+stage.Question, conv.Reprompts+1)
		if err := p.save(ctx, conv); err != nil {
			return ReplyResult{}, err
		}
		result.Outcome = OutcomeReprompted
		p.metrics.transition(conv.Stage, "reprompted")
	}

	result.Conversation = conv
	p.logger.Info("reply handled",
		slog.String("conversation_id", conv.ConversationID),
		slog.String("stage", conv.Stage),
		slog.String("kind", kind.String()),
		slog.String("outcome", string(result.Outcome)))
	return result, nil
}

// escalate is final until an operator resolves the conversation. The state is
// saved before any alert goes out so a failed alert cannot undo it.
func (p *Policy) escalate(ctx context.Context, conv *Conversation, stage StagePolicy, note string) error {
	p.scheduler.Cancel(conv.ConversationID, "")

	conv.State = StateEscalated
	conv.Priority = alerts.PriorityCritical
	conv.EscalatedAt = p.now()
	conv.DueAt = time.Time{}
	conv.TimerID = ""
	if err := p.save(ctx, *conv); err != nil {
		return err
	}

	reasonContext := alerts.ContextFor(stage.EscalationReason, conv.Keyword)
	p.alerter.Send(ctx, alerts.Request{
		SellerID:       conv.SellerID,
		ConversationID: conv.ConversationID,
		CustomerLabel:  conv.CustomerLabel,
		Context:        reasonContext,
		Priority:       alerts.PriorityCritical,
		Note:           note,
	})
	if p.cfg.SupervisorContact != "" {
		p.alerter.Send(ctx, alerts.Request{
			SellerID:       conv.SellerID,
			ConversationID: conv.ConversationID,
			CustomerLabel:  conv.CustomerLabel,
			Context:        reasonContext,
			Priority:       alerts.PriorityCritical,
			Destination:    p.cfg.SupervisorContact,
			Note:           fmt.Sprintf("Escalamiento de la conversación asignada a %s. %s", conv.SellerID, note),
		})
	}

	p.metrics.transition(conv.Stage, "escalated")
	p.logger.Warn("conversation escalated",
		slog.String("conversation_id", conv.ConversationID),
		slog.String("stage", conv.Stage),
		slog.String("seller_id", conv.SellerID))
	return nil
}

// resolve frees the seller, cancels timers and closes the conversation. A failed
// release leaves the conversation and its timers untouched.
func (p *Policy) resolve(ctx context.Context, conv *Conversation, operator string) error {
	if err := p.router.Release(ctx, conv.ConversationID); err != nil {
		return newError(ErrorCodeInternal, "failed to release seller", err)
	}
	p.scheduler.Cancel(conv.ConversationID, "")
	conv.State = StateResolved
	conv.ResolvedBy = operator
	conv.ClosedAt = p.now()
	conv.DueAt = time.Time{}
	conv.TimerID = ""
	if err := p.save(ctx, *conv); err != nil {
		return err
	}
	p.metrics.transition(conv.Stage, "resolved")
	return nil
}

// Resolve is the operator reset: it closes the conversation whatever its state,
// and is the only way out of Escalated.
func (p *Policy) Resolve(ctx context.Context, conversationID, operator string) (Conversation, error) {
	unlock := p.locks.Lock(conversationID)
	defer unlock()

	conv, exists, err := p.load(ctx, conversationID)
	if err != nil {
		return Conversation{}, err
	}
	if !exists {
		return Conversation{}, newError(ErrorCodeNotFound, "conversation not found", nil)
	}
	if conv.State == StateResolved {
		return conv, nil
	}
	if err := p.resolve(ctx, &conv, operator); err != nil {
		return Conversation{}, err
	}
	p.logger.Info("conversation resolved by operator",
		slog.String("conversation_id", conversationID),
		slog.String("operator", operator))
	return conv, nil
}

func (p *Policy) Status(ctx context.Context, conversationID string) (Conversation, error) {
	conv, exists, err := p.load(ctx, conversationID)
	if err != nil {
		return Conversation{}, err
	}
	if !exists {
		return Conversation{}, newError(ErrorCodeNotFound, "conversation not found", nil)
	}
	return conv, nil
}

// Recover re-arms timers for Active conversations after a restart, using the
// persisted due time. Overdue timers fire immediately. It returns how many timers
// were armed.
func (p *Policy) Recover(ctx context.Context, conversationIDs []string) (int, error) {
	armed := 0
	var errs []error
	for _, id := range conversationIDs {
		ok, err := p.recoverOne(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("recover %s: %w", id, err))
			continue
		}
		if ok {
			armed++
		}
	}
	if armed > 0 {
		p.logger.Info("follow-up timers recovered", slog.Int("armed", armed))
	}
	return armed, errors.Join(errs...)
}

func (p *Policy) recoverOne(ctx context.Context, conversationID string) (bool, error) {
	unlock := p.locks.Lock(conversationID)
	defer unlock()

	conv, exists, err := p.load(ctx, conversationID)
	if err != nil || !exists || conv.State != StateActive {
		return false, err
	}
	if _, ok := p.cfg.Stages[conv.Stage]; !ok {
		return false, fmt.Errorf("unknown stage %q", conv.Stage)
	}
	if len(p.scheduler.ListActive(conversationID)) > 0 {
		return false, nil
	}

	delay := conv.DueAt.Sub(p.now())
	if delay < 0 {
		delay = 0
	}
	if err := p.armAfter(ctx, &conv, delay); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Policy) load(ctx context.Context, conversationID string) (Conversation, bool, error) {
	flags, err := p.store.Get(ctx, conversationID)
	if err != nil {
		return Conversation{}, false, newError(ErrorCodeInternal, "failed to load conversation state", err)
	}
	conv, ok := conversationFromFlags(conversationID, flags)
	return conv, ok, nil
}

func (p *Policy) save(ctx context.Context, conv Conversation) error {
	if err := p.store.Set(ctx, conv.ConversationID, conv.flags()); err != nil {
		return newError(ErrorCodeInternal, "failed to save conversation state", err)
	}
	return nil
}
