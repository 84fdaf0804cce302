package escalation

import (
	"fmt"
	"time"

	"sales-routing-backend/internal/service/alerts"
	"sales-routing-backend/internal/service/followup"
)

const (
	DefaultMaxReprompts = 2
	defaultRepromptText = "Por favor responde *SI* o *NO*:"
)

// StagePolicy describes one follow-up checkpoint.
type StagePolicy struct {
	Delay    time.Duration
	Question string
	// EscalationReason is the alert sent to the seller on a negative reply.
	EscalationReason alerts.Reason
	// AffirmativeReason, when set, notifies the seller of a positive reply.
	AffirmativeReason alerts.Reason
	// Next is armed instead of resolving after a positive reply.
	Next string
}

type Config struct {
	Stages       map[string]StagePolicy
	MaxReprompts int
	RepromptText string
	// SupervisorContact receives a copy of every escalation when set.
	SupervisorContact string
}

func DefaultConfig() Config {
	return Config{
		MaxReprompts: DefaultMaxReprompts,
		RepromptText: defaultRepromptText,
		Stages: map[string]StagePolicy{
			followup.StageAdvisor: {
				Delay:            15 * time.Minute,
				Question:         "💗 Hola de nuevo\n\n¿Cómo te fue? ¿Ya te atendieron?",
				EscalationReason: alerts.ReasonNotAttended,
			},
			followup.StageProblem: {
				Delay:            15 * time.Minute,
				Question:         "💗 Hola de nuevo\n\n¿Ya se resolvió el problema con tu pedido?",
				EscalationReason: alerts.ReasonOrderProblem,
			},
			followup.StageOrder: {
				Delay:            20 * time.Minute,
				Question:         "💗 Hola de nuevo\n\n¿Cómo te fue? ¿Ya obtuviste la info de tu pedido?",
				EscalationReason: alerts.ReasonOrderInfo,
			},
			followup.StageCatalog: {
				Delay:             20 * time.Minute,
				Question:          "💗 ¡Hola de nuevo!\n\n¿Encontraste algo que te enamorara? 💎",
				EscalationReason:  alerts.ReasonCatalogNotInterested,
				AffirmativeReason: alerts.ReasonCatalogInterested,
				Next:              followup.StageFinalConfirmation,
			},
			followup.StageKeyword: {
				Delay:            20 * time.Minute,
				Question:         "💗 ¿Ya fuiste atendid@?",
				EscalationReason: alerts.ReasonProductKeyword,
			},
			followup.StageFinalConfirmation: {
				Delay:            20 * time.Minute,
				Question:         "💗 ¿Te atendieron?",
				EscalationReason: alerts.ReasonNotAttended,
			},
		},
	}
}

func (c Config) validate() error {
	if len(c.Stages) == 0 {
		return fmt.Errorf("escalation config has no stages")
	}
	if c.MaxReprompts < 0 {
		return fmt.Errorf("max reprompts must not be negative")
	}
	for key, stage := range c.Stages {
		if stage.Delay <= 0 {
			return fmt.Errorf("stage %s: delay must be positive", key)
		}
		if stage.Question == "" {
			return fmt.Errorf("stage %s: question is required", key)
		}
		if !stage.EscalationReason.Valid() {
			return fmt.Errorf("stage %s: unknown escalation reason %q", key, stage.EscalationReason)
		}
		if stage.AffirmativeReason != "" && !stage.AffirmativeReason.Valid() {
			return fmt.Errorf("stage %s: unknown affirmative reason %q", key, stage.AffirmativeReason)
		}
		if stage.Next != "" {
			if _, ok := c.Stages[stage.Next]; !ok {
				return fmt.Errorf("stage %s: next stage %s is not configured", key, stage.Next)
			}
			if stage.Next == key {
				return fmt.Errorf("stage %s: cannot chain to itself", key)
			}
		}
	}
	return nil
}
