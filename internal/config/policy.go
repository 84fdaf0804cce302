package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"sales-routing-backend/internal/flowstore"
	"sales-routing-backend/internal/service/alerts"
	"sales-routing-backend/internal/service/escalation"
	"sales-routing-backend/internal/service/followup"

	"gopkg.in/yaml.v3"
)

// Duration accepts Go duration strings such as "15m" or "90s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

type Stage struct {
	Delay             Duration `yaml:"delay,omitempty"`
	Question          string   `yaml:"question,omitempty"`
	EscalationReason  string   `yaml:"escalation_reason,omitempty"`
	AffirmativeReason string   `yaml:"affirmative_reason,omitempty"`
	Next              string   `yaml:"next,omitempty"`
}

type Policy struct {
	Stages            map[string]Stage `yaml:"stages"`
	MaxReprompts      *int             `yaml:"max_reprompts,omitempty"`
	RepromptText      string           `yaml:"reprompt_text,omitempty"`
	SupervisorContact string           `yaml:"supervisor_contact,omitempty"`

	TimerHistorySize     int      `yaml:"timer_history_size,omitempty"`
	AlertHistorySize     int      `yaml:"alert_history_size,omitempty"`
	AlertDeliveryTimeout Duration `yaml:"alert_delivery_timeout,omitempty"`
	AlertRetention       Duration `yaml:"alert_retention,omitempty"`
	FlowTTL              Duration `yaml:"flow_ttl,omitempty"`
}

const (
	DefaultAlertDeliveryTimeout = 10 * time.Second
	DefaultAlertRetention       = 7 * 24 * time.Hour
)

// Default mirrors escalation.DefaultConfig with the process-level sizes filled in.
func Default() Policy {
	base := escalation.DefaultConfig()
	stages := make(map[string]Stage, len(base.Stages))
	for key, s := range base.Stages {
		stages[key] = Stage{
			Delay:             Duration(s.Delay),
			Question:          s.Question,
			EscalationReason:  string(s.EscalationReason),
			AffirmativeReason: string(s.AffirmativeReason),
			Next:              s.Next,
		}
	}
	maxReprompts := base.MaxReprompts
	return Policy{
		Stages:               stages,
		MaxReprompts:         &maxReprompts,
		RepromptText:         base.RepromptText,
		TimerHistorySize:     followup.DefaultHistorySize,
		AlertHistorySize:     alerts.DefaultHistorySize,
		AlertDeliveryTimeout: Duration(DefaultAlertDeliveryTimeout),
		AlertRetention:       Duration(DefaultAlertRetention),
		FlowTTL:              Duration(flowstore.DefaultTTL),
	}
}

// Load reads the policy file at path over the defaults. An empty path returns
// the defaults.
func Load(path string) (Policy, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Policy{}, fmt.Errorf("open policy file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a policy document. Stage entries are merged field by field over
// the built-in stages; stage keys outside the known set are rejected.
func Parse(r io.Reader) (Policy, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}

	var file Policy
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
			return Policy{}, fmt.Errorf("decode policy: %w", err)
		}
	}

	p := Default()
	for key, override := range file.Stages {
		if !followup.IsKnownStage(key) {
			return Policy{}, fmt.Errorf("unknown stage %q", key)
		}
		p.Stages[key] = mergeStage(p.Stages[key], override)
	}
	if file.MaxReprompts != nil {
		p.MaxReprompts = file.MaxReprompts
	}
	if file.RepromptText != "" {
		p.RepromptText = file.RepromptText
	}
	if file.SupervisorContact != "" {
		p.SupervisorContact = file.SupervisorContact
	}
	if file.TimerHistorySize > 0 {
		p.TimerHistorySize = file.TimerHistorySize
	}
	if file.AlertHistorySize > 0 {
		p.AlertHistorySize = file.AlertHistorySize
	}
	if file.AlertDeliveryTimeout > 0 {
		p.AlertDeliveryTimeout = file.AlertDeliveryTimeout
	}
	if file.AlertRetention > 0 {
		p.AlertRetention = file.AlertRetention
	}
	if file.FlowTTL > 0 {
		p.FlowTTL = file.FlowTTL
	}

	if _, err := p.Escalation(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func mergeStage(base, override Stage) Stage {
	if override.Delay > 0 {
		base.Delay = override.Delay
	}
	if override.Question != "" {
		base.Question = override.Question
	}
	if override.EscalationReason != "" {
		base.EscalationReason = override.EscalationReason
	}
	if override.AffirmativeReason != "" {
		base.AffirmativeReason = override.AffirmativeReason
	}
	if override.Next != "" {
		base.Next = override.Next
	}
	return base
}

// Escalation converts the policy into the state machine configuration.
func (p Policy) Escalation() (escalation.Config, error) {
	cfg := escalation.Config{
		Stages:            make(map[string]escalation.StagePolicy, len(p.Stages)),
		MaxReprompts:      escalation.DefaultMaxReprompts,
		RepromptText:      p.RepromptText,
		SupervisorContact: p.SupervisorContact,
	}
	if p.MaxReprompts != nil {
		if *p.MaxReprompts < 0 {
			return escalation.Config{}, fmt.Errorf("max_reprompts must not be negative")
		}
		cfg.MaxReprompts = *p.MaxReprompts
	}
	for key, s := range p.Stages {
		escalationReason := alerts.Reason(s.EscalationReason)
		if !escalationReason.Valid() {
			return escalation.Config{}, fmt.Errorf("stage %s: unknown escalation_reason %q", key, s.EscalationReason)
		}
		affirmativeReason := alerts.Reason(s.AffirmativeReason)
		if s.AffirmativeReason != "" && !affirmativeReason.Valid() {
			return escalation.Config{}, fmt.Errorf("stage %s: unknown affirmative_reason %q", key, s.AffirmativeReason)
		}
		if s.Next != "" && !followup.IsKnownStage(s.Next) {
			return escalation.Config{}, fmt.Errorf("stage %s: unknown next stage %q", key, s.Next)
		}
		cfg.Stages[key] = escalation.StagePolicy{
			Delay:             time.Duration(s.Delay),
			Question:          s.Question,
			EscalationReason:  escalationReason,
			AffirmativeReason: affirmativeReason,
			Next:              s.Next,
		}
	}
	return cfg, nil
}
