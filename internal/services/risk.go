package services

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/abrezinsky/zoolo/internal/catalog"
	"github.com/abrezinsky/zoolo/internal/errors"
	"github.com/abrezinsky/zoolo/internal/logger"
	"github.com/abrezinsky/zoolo/internal/models"
	"github.com/abrezinsky/zoolo/internal/repository"
	"github.com/abrezinsky/zoolo/internal/schedule"
)

var hundred = decimal.NewFromInt(100)

// RiskService reports the operator's exposure per draw
type RiskService struct {
	log    logger.Logger
	repo   repository.TicketRepository
	policy *schedule.Policy
}

// NewRiskService creates a new RiskService
func NewRiskService(log logger.Logger, repo repository.TicketRepository, policy *schedule.Policy) *RiskService {
	return &RiskService{log: log, repo: repo, policy: policy}
}

// RiskEntry is the exposure on one animal
type RiskEntry struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Bets     int             `json:"bets"`
	Staked   decimal.Decimal `json:"staked"`
	WouldPay decimal.Decimal `json:"would_pay"`
	Share    decimal.Decimal `json:"share"`
	IsOwl    bool            `json:"is_owl"`
}

// Risk is the exposure report of one draw
type Risk struct {
	Date        string          `json:"date"`
	Slot        string          `json:"slot"`
	Entries     []RiskEntry     `json:"entries"`
	TotalStaked decimal.Decimal `json:"total_staked"`
	MaxPayout   decimal.Decimal `json:"max_payout"`
}

// RiskForSlot groups the animal stakes on slot by code, largest first
func (s *RiskService) RiskForSlot(ctx context.Context, actor models.Actor, slot, date string) (*Risk, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	resolved, err := resolveSlot(s.policy, slot)
	if err != nil {
		return nil, err
	}
	date, err = s.policy.ParseDate(date)
	if err != nil {
		return nil, err
	}

	wagers, err := s.repo.ListSlotWagers(ctx, date, resolved.Label, models.KindAnimal)
	if err != nil {
		return nil, errors.Internal(err)
	}

	byCode := make(map[string]*RiskEntry)
	total := decimal.Zero
	for _, w := range wagers {
		e, ok := byCode[w.Selection]
		if !ok {
			e = &RiskEntry{
				Code:   w.Selection,
				Name:   catalog.Name(w.Selection),
				Staked: decimal.Zero,
				IsOwl:  catalog.IsOwl(w.Selection),
			}
			byCode[w.Selection] = e
		}
		e.Bets++
		e.Staked = e.Staked.Add(w.Amount)
		total = total.Add(w.Amount)
	}

	risk := &Risk{
		Date:        date,
		Slot:        resolved.Label,
		Entries:     make([]RiskEntry, 0, len(byCode)),
		TotalStaked: total,
		MaxPayout:   decimal.Zero,
	}
	for _, e := range byCode {
		e.WouldPay = e.Staked.Mul(catalog.AnimalPayout(e.Code))
		e.Share = decimal.Zero
		if total.IsPositive() {
			e.Share = e.Staked.Div(total).Mul(hundred).Round(1)
		}
		if e.WouldPay.GreaterThan(risk.MaxPayout) {
			risk.MaxPayout = e.WouldPay
		}
		risk.Entries = append(risk.Entries, *e)
	}
	sort.Slice(risk.Entries, func(i, j int) bool {
		a, b := risk.Entries[i], risk.Entries[j]
		if !a.Staked.Equal(b.Staked) {
			return a.Staked.GreaterThan(b.Staked)
		}
		return a.Code < b.Code
	})
	return risk, nil
}

// CurrentRisk reports on the draw the operator is most exposed to now
func (s *RiskService) CurrentRisk(ctx context.Context, actor models.Actor) (*Risk, error) {
	now := s.policy.Now()
	slot := s.policy.TargetSlot(now)
	if slot == "" {
		return nil, errors.NotFound("no draws scheduled")
	}
	return s.RiskForSlot(ctx, actor, slot, s.policy.Date(now))
}
