package escalation

import (
	"strings"
	"unicode"
)

type ReplyKind int

const (
	ReplyUnrecognized ReplyKind = iota
	ReplyAffirmative
	ReplyNegative
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyAffirmative:
		return "affirmative"
	case ReplyNegative:
		return "negative"
	}
	return "unrecognized"
}

var negativeTokens = map[string]bool{
	"no":      true,
	"nop":     true,
	"nada":    true,
	"todavia": true,
	"todavía": true,
	"aun":     true,
	"aún":     true,
	"nunca":   true,
	"not":     true,
}

var affirmativeTokens = map[string]bool{
	"si":       true,
	"sí":       true,
	"ya":       true,
	"yes":      true,
	"listo":    true,
	"claro":    true,
	"resuelto": true,
	"resolved": true,
	"helped":   true,
	"ok":       true,
}

// ClassifyReply reads a customer's answer to a check-in. Any negative token wins,
// so "ya no" and "sí, pero todavía no" both count as negative.
func ClassifyReply(text string) ReplyKind {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return ReplyUnrecognized
	}
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	affirmative := false
	for _, tok := range tokens {
		if negativeTokens[tok] {
			return ReplyNegative
		}
		if affirmativeTokens[tok] {
			affirmative = true
		}
	}
	if affirmative || strings.Contains(lower, "me gust") {
		return ReplyAffirmative
	}
	return ReplyUnrecognized
}
