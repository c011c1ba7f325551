package services

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/abrezinsky/zoolo/internal/catalog"
	"github.com/abrezinsky/zoolo/internal/models"
	"github.com/abrezinsky/zoolo/internal/schedule"
)

const receiptRule = "------------------------"

// ReceiptBuilder renders the shareable text receipt of a sale
type ReceiptBuilder struct {
	Brand     string
	Market    string
	AltMarket string
	Currency  string
	ValidDays int
	ShareBase string
}

// DefaultReceiptBuilder returns the builder used when no brand is configured
func DefaultReceiptBuilder() ReceiptBuilder {
	return ReceiptBuilder{
		Brand:     "ZOOLO",
		Market:    "PERU",
		AltMarket: "VZLA",
		Currency:  "S/",
		ValidDays: 3,
		ShareBase: "https://wa.me/?text=",
	}
}

// Build renders the receipt for bundle sold by agencyName. Wagers are
// grouped per draw in schedule order; tripletas are listed last.
func (r ReceiptBuilder) Build(policy *schedule.Policy, agencyName string, b models.TicketBundle) string {
	lines := []string{
		"*" + agencyName + "*",
		fmt.Sprintf("*TICKET:* #%d", b.Ticket.ID),
		"*SERIAL:* " + b.Ticket.Serial,
		b.Ticket.CreatedAt.In(policy.Location).Format("02/01/2006 03:04 PM"),
		receiptRule,
		"",
	}

	bySlot := make(map[string][]string)
	for _, w := range b.Wagers {
		bySlot[w.Slot] = append(bySlot[w.Slot], r.item(w))
	}
	for _, slot := range policy.Slots {
		items, ok := bySlot[slot.Label]
		if !ok {
			continue
		}
		lines = append(lines,
			fmt.Sprintf("*%s.%s/%s...%s/%s*", r.Brand, r.Market, CompactLabel(slot.Label), r.AltMarket, CompactLabel(slot.AltLabel)),
			strings.Join(items, " "),
			"",
		)
	}

	if len(b.Tripletas) > 0 {
		lines = append(lines, fmt.Sprintf("*TRIPLETAS (Paga x%s)*", catalog.TripletaMultiplier))
		for _, t := range b.Tripletas {
			names := make([]string, 0, 3)
			for _, code := range t.Animals {
				names = append(names, shortName(code))
			}
			lines = append(lines, fmt.Sprintf("%s x%s %s%s", strings.Join(names, "-"), catalog.TripletaMultiplier, r.Currency, money(t.Amount)))
		}
		lines = append(lines, "")
	}

	lines = append(lines,
		receiptRule,
		fmt.Sprintf("*TOTAL: %s%s*", r.Currency, money(b.Ticket.Total)),
		"",
		"Buena Suerte! 🍀",
		fmt.Sprintf("El ticket vence a los %d dias", r.ValidDays),
	)
	return strings.Join(lines, "\n")
}

// ShareURL returns a link that opens the receipt in a messaging app
func (r ReceiptBuilder) ShareURL(text string) string {
	return r.ShareBase + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

func (r ReceiptBuilder) item(w models.Wager) string {
	if w.Kind == models.KindAnimal {
		return fmt.Sprintf("%s%sx%s", shortName(w.Selection), w.Selection, money(w.Amount))
	}
	sel := w.Selection
	if len(sel) > 3 {
		sel = sel[:3]
	}
	return fmt.Sprintf("%sx%s", sel, money(w.Amount))
}

// CompactLabel shortens "08:00 AM" to "8am" and "12:30 PM" to "12:30pm"
func CompactLabel(label string) string {
	s := strings.ToLower(strings.ReplaceAll(label, " ", ""))
	s = strings.Replace(s, ":00", "", 1)
	return strings.TrimLeft(s, "0")
}

func shortName(code string) string {
	name := []rune(strings.ToUpper(catalog.Name(code)))
	if len(name) > 3 {
		name = name[:3]
	}
	return string(name)
}

func money(d decimal.Decimal) string {
	return d.String()
}
