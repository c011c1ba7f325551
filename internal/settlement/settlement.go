// Package settlement computes what a ticket has won against the posted
// draw results. It performs no I/O and keeps no state, so results are
// always recomputed from the current store contents.
package settlement

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/abrezinsky/zoolo/internal/catalog"
	"github.com/abrezinsky/zoolo/internal/models"
)

// Status is the state of a single line
type Status string

const (
	Pending Status = "pending"
	Won     Status = "won"
	Lost    Status = "lost"
)

// Results maps slot label to the drawn code for one day
type Results map[string]string

// WagerOutcome is the evaluation of one single-draw wager
type WagerOutcome struct {
	WagerID   int64           `json:"wager_id"`
	Slot      string          `json:"slot"`
	Kind      models.BetKind  `json:"kind"`
	Selection string          `json:"selection"`
	Amount    decimal.Decimal `json:"amount"`
	Result    string          `json:"result,omitempty"`
	Status    Status          `json:"status"`
	Prize     decimal.Decimal `json:"prize"`
}

// TripletaOutcome is the evaluation of one tripleta
type TripletaOutcome struct {
	TripletaID int64           `json:"tripleta_id"`
	Animals    [3]string       `json:"animals"`
	Amount     decimal.Decimal `json:"amount"`
	Hits       []string        `json:"hits"`
	Status     Status          `json:"status"`
	Prize      decimal.Decimal `json:"prize"`
}

// Settlement is the full evaluation of a ticket
type Settlement struct {
	Wagers    []WagerOutcome    `json:"wagers"`
	Tripletas []TripletaOutcome `json:"tripletas"`
	Total     decimal.Decimal   `json:"total"`
}

// Status summarizes the ticket: won when anything pays, pending while any
// line is undecided, lost otherwise.
func (s Settlement) Status() Status {
	if s.Total.IsPositive() {
		return Won
	}
	for _, w := range s.Wagers {
		if w.Status == Pending {
			return Pending
		}
	}
	for _, t := range s.Tripletas {
		if t.Status == Pending {
			return Pending
		}
	}
	return Lost
}

// Calculator settles tickets for a schedule. When Slots is set, a
// tripleta that has not hit all three animals once every slot of the day
// has a result is reported as lost instead of pending. That status is
// advisory: a corrected result can still turn it into a win, and prizes
// are always recomputed from the current results.
type Calculator struct {
	Slots []string
}

// NewCalculator returns a Calculator aware of the given day schedule
func NewCalculator(slots []string) Calculator {
	return Calculator{Slots: slots}
}

// Settle evaluates wagers and tripletas against results without knowing
// the schedule.
func Settle(wagers []models.Wager, tripletas []models.Tripleta, results Results) Settlement {
	return Calculator{}.Settle(wagers, tripletas, results)
}

// Settle evaluates every line of a ticket
func (c Calculator) Settle(wagers []models.Wager, tripletas []models.Tripleta, results Results) Settlement {
	s := Settlement{
		Wagers:    make([]WagerOutcome, 0, len(wagers)),
		Tripletas: make([]TripletaOutcome, 0, len(tripletas)),
		Total:     decimal.Zero,
	}
	for _, w := range wagers {
		o := SettleWager(w, results)
		s.Total = s.Total.Add(o.Prize)
		s.Wagers = append(s.Wagers, o)
	}
	complete := c.dayComplete(results)
	for _, t := range tripletas {
		o := SettleTripleta(t, results)
		if o.Status == Pending && complete {
			o.Status = Lost
		}
		s.Total = s.Total.Add(o.Prize)
		s.Tripletas = append(s.Tripletas, o)
	}
	return s
}

func (c Calculator) dayComplete(results Results) bool {
	if len(c.Slots) == 0 {
		return false
	}
	for _, slot := range c.Slots {
		if _, ok := results[slot]; !ok {
			return false
		}
	}
	return true
}

// SettleWager evaluates a single-draw wager
func SettleWager(w models.Wager, results Results) WagerOutcome {
	o := WagerOutcome{
		WagerID:   w.ID,
		Slot:      w.Slot,
		Kind:      w.Kind,
		Selection: w.Selection,
		Amount:    w.Amount,
		Status:    Pending,
		Prize:     decimal.Zero,
	}
	result, ok := results[w.Slot]
	if !ok {
		return o
	}
	o.Result = result

	var won bool
	var mult decimal.Decimal
	switch w.Kind {
	case models.KindAnimal:
		won = result == w.Selection
		mult = catalog.AnimalPayout(w.Selection)
	case models.KindSpecial:
		won = SpecialWins(w.Selection, result)
		mult = catalog.SpecialMultiplier
	}

	if won {
		o.Status = Won
		o.Prize = w.Amount.Mul(mult)
	} else {
		o.Status = Lost
	}
	return o
}

// SpecialWins reports whether a special category wins on result.
// Excluded codes lose for every category.
func SpecialWins(token, result string) bool {
	if catalog.IsExcluded(result) || !catalog.Valid(result) {
		return false
	}
	switch token {
	case catalog.SpecialRed:
		return catalog.IsRed(result)
	case catalog.SpecialBlack:
		return !catalog.IsRed(result)
	case catalog.SpecialEven, catalog.SpecialOdd:
		n, err := strconv.Atoi(result)
		if err != nil {
			return false
		}
		if token == catalog.SpecialEven {
			return n%2 == 0
		}
		return n%2 == 1
	}
	return false
}

// SettleTripleta evaluates a tripleta against all results of its day.
// Hits are listed in the order the animals were chosen.
func SettleTripleta(t models.Tripleta, results Results) TripletaOutcome {
	drawn := make(map[string]bool, len(results))
	for _, code := range results {
		drawn[code] = true
	}

	hits := []string{}
	for _, a := range t.Animals {
		if drawn[a] {
			hits = append(hits, a)
		}
	}

	o := TripletaOutcome{
		TripletaID: t.ID,
		Animals:    t.Animals,
		Amount:     t.Amount,
		Hits:       hits,
		Status:     Pending,
		Prize:      decimal.Zero,
	}
	if len(hits) == 3 {
		o.Status = Won
		o.Prize = t.Amount.Mul(catalog.TripletaMultiplier)
	}
	return o
}
