package services

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/abrezinsky/zoolo/internal/errors"
	"github.com/abrezinsky/zoolo/internal/logger"
	"github.com/abrezinsky/zoolo/internal/models"
	"github.com/abrezinsky/zoolo/internal/repository"
	"github.com/abrezinsky/zoolo/internal/schedule"
	"github.com/abrezinsky/zoolo/internal/settlement"
)

// reportWorkers bounds concurrent per-agency computations in AgencyReport
const reportWorkers = 4

// CashService reconciles agency cash
type CashService struct {
	log    logger.Logger
	repo   TicketServiceRepository
	policy *schedule.Policy
	calc   settlement.Calculator
}

// NewCashService creates a new CashService
func NewCashService(log logger.Logger, repo TicketServiceRepository, policy *schedule.Policy) *CashService {
	return &CashService{log: log, repo: repo, policy: policy, calc: calculatorFor(policy)}
}

// Caja is the cash position of an agency over a day or a range.
// Prizes count toward PrizesPaid only once the ticket is paid.
type Caja struct {
	Date           string          `json:"date,omitempty"`
	Tickets        int             `json:"tickets"`
	Sales          decimal.Decimal `json:"sales"`
	PrizesPaid     decimal.Decimal `json:"prizes_paid"`
	Commission     decimal.Decimal `json:"commission"`
	Balance        decimal.Decimal `json:"balance"`
	PendingTickets int             `json:"pending_tickets"`
	PendingPrizes  decimal.Decimal `json:"pending_prizes"`
}

func newCaja(date string) *Caja {
	return &Caja{
		Date:          date,
		Sales:         decimal.Zero,
		PrizesPaid:    decimal.Zero,
		Commission:    decimal.Zero,
		Balance:       decimal.Zero,
		PendingPrizes: decimal.Zero,
	}
}

func (c *Caja) add(o *Caja) {
	c.Tickets += o.Tickets
	c.Sales = c.Sales.Add(o.Sales)
	c.PrizesPaid = c.PrizesPaid.Add(o.PrizesPaid)
	c.Commission = c.Commission.Add(o.Commission)
	c.Balance = c.Balance.Add(o.Balance)
	c.PendingTickets += o.PendingTickets
	c.PendingPrizes = c.PendingPrizes.Add(o.PendingPrizes)
}

// close derives commission and balance from sales and prizes
func (c *Caja) close(rate decimal.Decimal) {
	c.Commission = c.Sales.Mul(rate).Round(2)
	c.Balance = c.Sales.Sub(c.PrizesPaid).Sub(c.Commission)
}

// CajaReport is a per-day breakdown over a range
type CajaReport struct {
	AgencyID       int64           `json:"agency_id"`
	AgencyName     string          `json:"agency_name"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	From           string          `json:"from"`
	To             string          `json:"to"`
	Days           []Caja          `json:"days"`
	Total          Caja            `json:"total"`
}

// AgencyReport is the operator view of every agency over a range
type AgencyReport struct {
	From     string       `json:"from"`
	To       string       `json:"to"`
	Agencies []CajaReport `json:"agencies"`
	Total    Caja         `json:"total"`
}

// DailyCaja returns the cash position of an agency on date
func (s *CashService) DailyCaja(ctx context.Context, actor models.Actor, agencyID int64, date string) (*Caja, error) {
	date, err := s.policy.ParseDate(date)
	if err != nil {
		return nil, err
	}
	report, err := s.CajaRange(ctx, actor, agencyID, date, date)
	if err != nil {
		return nil, err
	}
	if len(report.Days) == 0 {
		return newCaja(date), nil
	}
	return &report.Days[0], nil
}

// CajaRange returns one row per day with sales between from and to
func (s *CashService) CajaRange(ctx context.Context, actor models.Actor, agencyID int64, from, to string) (*CajaReport, error) {
	agencyID, err := s.targetAgency(actor, agencyID)
	if err != nil {
		return nil, err
	}
	from, to, err = s.parseRange(from, to)
	if err != nil {
		return nil, err
	}
	agency, err := s.repo.GetAgency(ctx, agencyID)
	if err != nil {
		return nil, notFound(err, ErrAgencyNotFound)
	}
	return s.agencyRange(ctx, agency, from, to)
}

// AgencyReport computes the caja of every agency over a range
func (s *CashService) AgencyReport(ctx context.Context, actor models.Actor, from, to string) (*AgencyReport, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	from, to, err := s.parseRange(from, to)
	if err != nil {
		return nil, err
	}
	agencies, err := s.repo.ListAgencies(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}

	var sellers []models.Agency
	for _, a := range agencies {
		if !a.Admin {
			sellers = append(sellers, a)
		}
	}

	rows := make([]CajaReport, len(sellers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reportWorkers)
	for i := range sellers {
		i := i
		agency := sellers[i]
		g.Go(func() error {
			r, err := s.agencyRange(gctx, &agency, from, to)
			if err != nil {
				return err
			}
			rows[i] = *r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &AgencyReport{From: from, To: to, Agencies: rows, Total: *newCaja("")}
	for i := range rows {
		report.Total.add(&rows[i].Total)
	}
	return report, nil
}

func (s *CashService) agencyRange(ctx context.Context, agency *models.Agency, from, to string) (*CajaReport, error) {
	bundles, err := s.repo.ListTicketBundles(ctx, repository.TicketFilter{
		AgencyID: agency.ID,
		From:     from,
		To:       to,
	})
	if err != nil {
		return nil, errors.Internal(err)
	}
	results, err := loadResultsBetween(ctx, s.repo, from, to)
	if err != nil {
		return nil, err
	}

	days := make(map[string]*Caja)
	for _, b := range bundles {
		if b.Ticket.Voided {
			continue
		}
		day, ok := days[b.Ticket.SaleDate]
		if !ok {
			day = newCaja(b.Ticket.SaleDate)
			days[b.Ticket.SaleDate] = day
		}
		prize := s.calc.Settle(b.Wagers, b.Tripletas, results[b.Ticket.SaleDate]).Total
		day.Tickets++
		day.Sales = day.Sales.Add(b.Ticket.Total)
		switch {
		case b.Ticket.Paid:
			day.PrizesPaid = day.PrizesPaid.Add(prize)
		case prize.IsPositive():
			day.PendingTickets++
			day.PendingPrizes = day.PendingPrizes.Add(prize)
		}
	}

	report := &CajaReport{
		AgencyID:       agency.ID,
		AgencyName:     agency.Name,
		CommissionRate: agency.CommissionRate,
		From:           from,
		To:             to,
		Days:           make([]Caja, 0, len(days)),
		Total:          *newCaja(""),
	}
	for _, day := range days {
		day.close(agency.CommissionRate)
		report.Days = append(report.Days, *day)
	}
	sort.Slice(report.Days, func(i, j int) bool { return report.Days[i].Date < report.Days[j].Date })
	for i := range report.Days {
		report.Total.add(&report.Days[i])
	}
	// commission over the range comes from total sales, not rounded days
	report.Total.close(agency.CommissionRate)
	return report, nil
}

// targetAgency resolves whose caja is requested. Agencies always get
// their own; admins must name one.
func (s *CashService) targetAgency(actor models.Actor, agencyID int64) (int64, error) {
	if !actor.Admin {
		if agencyID != 0 && agencyID != actor.AgencyID {
			return 0, ErrNotOwner
		}
		return actor.AgencyID, nil
	}
	if agencyID == 0 {
		return 0, errors.Validation("agency_id is required")
	}
	return agencyID, nil
}

func (s *CashService) parseRange(from, to string) (string, string, error) {
	from, err := s.policy.ParseDate(from)
	if err != nil {
		return "", "", err
	}
	if to == "" {
		to = from
	}
	to, err = s.policy.ParseDate(to)
	if err != nil {
		return "", "", err
	}
	if to < from {
		return "", "", errors.Validation("from must not be after to")
	}
	return from, to, nil
}
