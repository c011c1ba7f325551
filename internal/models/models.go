package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Agency is a retail point of sale, or the operator when Admin is set
type Agency struct {
	ID             int64           `json:"id"`
	Username       string          `json:"username"`
	PasswordHash   string          `json:"-"`
	Name           string          `json:"name"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Admin          bool            `json:"admin"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Actor identifies the caller of a service operation
type Actor struct {
	AgencyID int64  `json:"agency_id"`
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
}

// Owns reports whether the actor may act on a record belonging to agencyID
func (a Actor) Owns(agencyID int64) bool {
	return a.Admin || a.AgencyID == agencyID
}

// BetKind is the kind of a wager line
type BetKind string

const (
	KindAnimal   BetKind = "animal"
	KindSpecial  BetKind = "special"
	KindTripleta BetKind = "tripleta"
)

// Ticket is the header of a sale. Total is frozen at creation.
type Ticket struct {
	ID        int64           `json:"id"`
	Serial    string          `json:"serial"`
	AgencyID  int64           `json:"agency_id"`
	SaleDate  string          `json:"sale_date"` // business date, YYYY-MM-DD
	CreatedAt time.Time       `json:"created_at"`
	Total     decimal.Decimal `json:"total"`
	Paid      bool            `json:"paid"`
	Voided    bool            `json:"voided"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	VoidedAt  *time.Time      `json:"voided_at,omitempty"`
}

// Wager is a single-draw line of a ticket
type Wager struct {
	ID        int64           `json:"id"`
	TicketID  int64           `json:"ticket_id"`
	Slot      string          `json:"slot"`
	Kind      BetKind         `json:"kind"` // animal or special
	Selection string          `json:"selection"`
	Amount    decimal.Decimal `json:"amount"`
}

// Tripleta is a whole-day bet on three distinct animals
type Tripleta struct {
	ID       int64           `json:"id"`
	TicketID int64           `json:"ticket_id"`
	Animals  [3]string       `json:"animals"`
	Amount   decimal.Decimal `json:"amount"`
	DrawDate string          `json:"draw_date"`
}

// DrawResult is the animal drawn for one slot of one day
type DrawResult struct {
	Date     string    `json:"date"`
	Slot     string    `json:"slot"`
	Code     string    `json:"code"`
	PostedAt time.Time `json:"posted_at"`
}

// TicketBundle is a ticket with all its lines
type TicketBundle struct {
	Ticket    Ticket     `json:"ticket"`
	Wagers    []Wager    `json:"wagers"`
	Tripletas []Tripleta `json:"tripletas"`
}

// LineTotal sums every line amount of the bundle
func (b TicketBundle) LineTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, w := range b.Wagers {
		sum = sum.Add(w.Amount)
	}
	for _, t := range b.Tripletas {
		sum = sum.Add(t.Amount)
	}
	return sum
}

// Slots returns the distinct draw slots referenced by the wagers
func (b TicketBundle) Slots() []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range b.Wagers {
		if !seen[w.Slot] {
			seen[w.Slot] = true
			out = append(out, w.Slot)
		}
	}
	return out
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
