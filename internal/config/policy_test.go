package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sales-routing-backend/internal/service/alerts"
	"sales-routing-backend/internal/service/followup"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	p, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(p.Stages) != 6 {
		t.Fatalf("expected six stages, got %d", len(p.Stages))
	}
	cfg, err := p.Escalation()
	if err != nil {
		t.Fatalf("escalation config: %v", err)
	}
	if cfg.MaxReprompts != 2 {
		t.Fatalf("expected default re-prompt cap 2, got %d", cfg.MaxReprompts)
	}
	if cfg.Stages[followup.StageAdvisor].Delay != 15*time.Minute {
		t.Fatalf("unexpected advisor delay %s", cfg.Stages[followup.StageAdvisor].Delay)
	}
	if time.Duration(p.AlertRetention) != 7*24*time.Hour {
		t.Fatalf("unexpected retention %s", time.Duration(p.AlertRetention))
	}
}

func TestParseMergesOverDefaults(t *testing.T) {
	doc := `
max_reprompts: 0
supervisor_contact: "+5491100000000"
alert_history_size: 100
stages:
  order-followup:
    delay: 45s
  catalog-followup:
    question: "¿Viste algo que te guste?"
`
	p, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, err := p.Escalation()
	if err != nil {
		t.Fatalf("escalation config: %v", err)
	}
	if cfg.MaxReprompts != 0 {
		t.Fatalf("explicit zero re-prompts must be kept, got %d", cfg.MaxReprompts)
	}
	if cfg.SupervisorContact != "+5491100000000" || p.AlertHistorySize != 100 {
		t.Fatalf("scalar overrides not applied: %+v", p)
	}

	order := cfg.Stages[followup.StageOrder]
	if order.Delay != 45*time.Second || order.EscalationReason != alerts.ReasonOrderInfo {
		t.Fatalf("order stage not merged: %+v", order)
	}
	catalog := cfg.Stages[followup.StageCatalog]
	if catalog.Question != "¿Viste algo que te guste?" || catalog.Next != followup.StageFinalConfirmation {
		t.Fatalf("catalog stage not merged: %+v", catalog)
	}
	if catalog.Delay != 20*time.Minute {
		t.Fatalf("catalog delay should keep its default, got %s", catalog.Delay)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown stage":  "stages:\n  birthday-followup:\n    delay: 1m\n",
		"bad duration":   "stages:\n  order-followup:\n    delay: soon\n",
		"unknown reason": "stages:\n  order-followup:\n    escalation_reason: angry\n",
		"unknown field":  "retries: 3\n",
		"negative cap":   "max_reprompts: -1\n",
	}
	for name, doc := range cases {
		if _, err := Parse(strings.NewReader(doc)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("reprompt_text: \"Responde SI o NO\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.RepromptText != "Responde SI o NO" {
		t.Fatalf("unexpected reprompt text %q", p.RepromptText)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for a missing file")
	}
}
