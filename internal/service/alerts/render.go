package alerts

import (
	"fmt"
	"strings"
)

const (
	HighPriorityMarker     = "🔴 *PRIORIDAD ALTA*"
	CriticalPriorityMarker = "🚨 *PRIORIDAD CRÍTICA - ESCALAMIENTO*"
	defaultCustomerLabel   = "Cliente"
	whatsAppSuffix         = "@s.whatsapp.net"
)

// Render produces the text delivered for a. Check-ins go to the customer and carry
// only the question; every other reason renders the seller-facing alert card.
// problema_pedido always carries the high marker, also under the critical one.
func Render(a Alert) string {
	if c, ok := a.Context.(CheckIn); ok {
		return c.Question
	}

	var b strings.Builder
	if a.Priority == PriorityCritical {
		b.WriteString(CriticalPriorityMarker + "\n")
	}
	// A reason that is high by default keeps its marker when escalated.
	if a.Priority == PriorityHigh || (a.Priority == PriorityCritical && DefaultPriority(a.Reason) == PriorityHigh) {
		b.WriteString(HighPriorityMarker + "\n")
	}

	label := a.CustomerLabel
	if label == "" {
		label = defaultCustomerLabel
	}

	b.WriteString("🚨 *ALERTA DE ATENCIÓN AL CLIENTE*\n\n")
	fmt.Fprintf(&b, "👤 *Cliente:* %s\n", label)
	fmt.Fprintf(&b, "📱 *Teléfono:* %s\n", PhoneNumber(a.ConversationID))
	fmt.Fprintf(&b, "⚠️ *Razón:* %s\n\n", a.Reason)

	switch c := a.Context.(type) {
	case NotAttended:
		b.WriteString("El cliente indicó que NO fue atendido.\n")
		b.WriteString("Por favor, contacta de inmediato.\n")
	case CatalogInterest:
		if c.Interested {
			b.WriteString("El cliente mostró interés en el catálogo.\n")
			b.WriteString("Está listo para ser contactado.\n")
		} else {
			b.WriteString("El cliente revisó el catálogo pero no encontró algo de su interés.\n")
			b.WriteString("Puede necesitar asesoría personalizada.\n")
		}
	case OrderInfo:
		b.WriteString("El cliente necesita información sobre su pedido.\n")
	case OrderProblem:
		b.WriteString("⚠️ El cliente reporta un PROBLEMA con su pedido.\n")
		b.WriteString("*ATENCIÓN PRIORITARIA REQUERIDA*\n")
	case ProductKeyword:
		keyword := c.Keyword
		if keyword == "" {
			keyword = "producto"
		}
		fmt.Fprintf(&b, "El cliente preguntó por: *%s*\n", keyword)
		b.WriteString("Tiene dudas adicionales.\n")
	case Generic:
		b.WriteString("El cliente requiere atención.\n")
		if c.Note != "" {
			fmt.Fprintf(&b, "%s\n", c.Note)
		}
	default:
		b.WriteString("El cliente requiere atención.\n")
	}

	if a.Note != "" {
		fmt.Fprintf(&b, "\n📝 *Nota:* %s\n", a.Note)
	}

	b.WriteString("\n💬 *Acción:* Contacta al cliente lo antes posible.\n")
	b.WriteString("\n_Alerta generada automáticamente por el bot de ventas_ 🤖")
	return b.String()
}

// PhoneNumber strips the WhatsApp JID suffix and a leading plus sign.
func PhoneNumber(id string) string {
	id = strings.TrimSuffix(strings.TrimSpace(id), whatsAppSuffix)
	return strings.TrimPrefix(id, "+")
}
