package alerts

type Reason string

const (
	ReasonNotAttended          Reason = "no_atendido"
	ReasonCatalogInterested    Reason = "catalogo_interesado"
	ReasonCatalogNotInterested Reason = "catalogo_no_interesado"
	ReasonOrderInfo            Reason = "info_pedido"
	ReasonOrderProblem         Reason = "problema_pedido"
	ReasonProductKeyword       Reason = "keyword_producto"
	ReasonCheckIn              Reason = "seguimiento"
	ReasonGeneric              Reason = "general"
)

var reasons = map[Reason]bool{
	ReasonNotAttended:          true,
	ReasonCatalogInterested:    true,
	ReasonCatalogNotInterested: true,
	ReasonOrderInfo:            true,
	ReasonOrderProblem:         true,
	ReasonProductKeyword:       true,
	ReasonCheckIn:              true,
	ReasonGeneric:              true,
}

func (r Reason) Valid() bool {
	return reasons[r]
}

type Priority string

const (
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityCritical:
		return 2
	}
	return 0
}

// Max returns the more urgent of p and other.
func (p Priority) Max(other Priority) Priority {
	if other.rank() > p.rank() {
		return other
	}
	if p == "" {
		return PriorityNormal
	}
	return p
}

// DefaultPriority is the priority a reason carries unless the request raises it.
func DefaultPriority(r Reason) Priority {
	if r == ReasonOrderProblem {
		return PriorityHigh
	}
	return PriorityNormal
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusSimulated Status = "simulated"
	StatusFailed    Status = "failed"
)
