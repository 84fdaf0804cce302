package alerts

import "strconv"

// Context is the reason-specific payload of an alert. The reason of an alert is
// derived from the concrete context type, so a payload can never disagree with it.
type Context interface {
	Reason() Reason
	// Fields flattens the payload for history views and the live feed.
	Fields() map[string]string
	sealed()
}

type NotAttended struct{}

func (NotAttended) Reason() Reason            { return ReasonNotAttended }
func (NotAttended) Fields() map[string]string { return nil }
func (NotAttended) sealed()                   {}

// CatalogInterest reports whether the customer liked what they saw in the catalog.
type CatalogInterest struct {
	Interested bool
}

func (c CatalogInterest) Reason() Reason {
	if c.Interested {
		return ReasonCatalogInterested
	}
	return ReasonCatalogNotInterested
}

func (c CatalogInterest) Fields() map[string]string {
	return map[string]string{"interested": strconv.FormatBool(c.Interested)}
}

func (CatalogInterest) sealed() {}

type OrderInfo struct{}

func (OrderInfo) Reason() Reason            { return ReasonOrderInfo }
func (OrderInfo) Fields() map[string]string { return nil }
func (OrderInfo) sealed()                   {}

type OrderProblem struct{}

func (OrderProblem) Reason() Reason            { return ReasonOrderProblem }
func (OrderProblem) Fields() map[string]string { return nil }
func (OrderProblem) sealed()                   {}

type ProductKeyword struct {
	Keyword string
}

func (ProductKeyword) Reason() Reason { return ReasonProductKeyword }

func (p ProductKeyword) Fields() map[string]string {
	return map[string]string{"keyword": p.Keyword}
}

func (ProductKeyword) sealed() {}

// CheckIn is the customer-facing follow-up question sent when a stage timer fires.
type CheckIn struct {
	Stage    string
	Question string
	Attempt  int
}

func (CheckIn) Reason() Reason { return ReasonCheckIn }

func (c CheckIn) Fields() map[string]string {
	return map[string]string{
		"stage":    c.Stage,
		"question": c.Question,
		"attempt":  strconv.Itoa(c.Attempt),
	}
}

func (CheckIn) sealed() {}

type Generic struct {
	Note string
}

func (Generic) Reason() Reason { return ReasonGeneric }

func (g Generic) Fields() map[string]string {
	if g.Note == "" {
		return nil
	}
	return map[string]string{"note": g.Note}
}

func (Generic) sealed() {}

// ContextFor builds the payload for a reason name, as received over HTTP or from
// policy configuration. Unknown reasons fall back to Generic.
func ContextFor(reason Reason, keyword string) Context {
	switch reason {
	case ReasonNotAttended:
		return NotAttended{}
	case ReasonCatalogInterested:
		return CatalogInterest{Interested: true}
	case ReasonCatalogNotInterested:
		return CatalogInterest{Interested: false}
	case ReasonOrderInfo:
		return OrderInfo{}
	case ReasonOrderProblem:
		return OrderProblem{}
	case ReasonProductKeyword:
		return ProductKeyword{Keyword: keyword}
	}
	return Generic{}
}
