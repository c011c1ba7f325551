package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/zoolo/internal/catalog"
	"github.com/abrezinsky/zoolo/internal/errors"
	"github.com/abrezinsky/zoolo/internal/logger"
	"github.com/abrezinsky/zoolo/internal/models"
	"github.com/abrezinsky/zoolo/internal/repository"
	"github.com/abrezinsky/zoolo/internal/schedule"
	"github.com/abrezinsky/zoolo/internal/settlement"
)

const maxSerialAttempts = 3

// TicketServiceRepository defines the repository methods needed by TicketService
type TicketServiceRepository interface {
	repository.AgencyRepository
	repository.TicketRepository
	repository.ResultRepository
}

// TicketService sells, voids, verifies and pays tickets
type TicketService struct {
	log          logger.Logger
	repo         TicketServiceRepository
	policy       *schedule.Policy
	serials      SerialGenerator
	calc         settlement.Calculator
	receipts     ReceiptBuilder
	strictPayout bool
	broadcaster  Broadcaster
	notifier     Notifier
	metrics      Recorder
}

// NewTicketService creates a new TicketService
func NewTicketService(log logger.Logger, repo TicketServiceRepository, policy *schedule.Policy, serials SerialGenerator) *TicketService {
	return &TicketService{
		log:         log,
		repo:        repo,
		policy:      policy,
		serials:     serials,
		calc:        calculatorFor(policy),
		receipts:    DefaultReceiptBuilder(),
		broadcaster: noopBroadcaster{},
		notifier:    noopNotifier{},
		metrics:     noopRecorder{},
	}
}

// SetStrictPayout makes MarkPaid refuse tickets without a prize
func (s *TicketService) SetStrictPayout(strict bool) {
	s.strictPayout = strict
}

// SetBrand sets the heading used on receipts
func (s *TicketService) SetBrand(brand string) {
	if brand != "" {
		s.receipts.Brand = brand
	}
}

// SetBroadcaster sets the event broadcaster
func (s *TicketService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetNotifier sets the operator notifier
func (s *TicketService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetRecorder sets the metrics recorder
func (s *TicketService) SetRecorder(r Recorder) {
	s.metrics = r
}

func calculatorFor(policy *schedule.Policy) settlement.Calculator {
	labels := make([]string, 0, len(policy.Slots))
	for _, slot := range policy.Slots {
		labels = append(labels, slot.Label)
	}
	return settlement.NewCalculator(labels)
}

// SaleLine is one line of a sale request. Tripletas take their three
// animals from Animals, or from a comma separated Selection.
type SaleLine struct {
	Kind      models.BetKind  `json:"kind"`
	Slot      string          `json:"slot,omitempty"`
	Selection string          `json:"selection,omitempty"`
	Animals   []string        `json:"animals,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
}

// SaleReceipt is returned by Sell
type SaleReceipt struct {
	Ticket   models.TicketBundle `json:"ticket"`
	Receipt  string              `json:"receipt"`
	ShareURL string              `json:"share_url"`
}

// Verification is the pre-payment check of a ticket
type Verification struct {
	TicketID int64             `json:"ticket_id"`
	Serial   string            `json:"serial"`
	Status   settlement.Status `json:"status"`
	Prize    decimal.Decimal   `json:"prize"`
}

// Payment is returned by MarkPaid
type Payment struct {
	TicketID int64           `json:"ticket_id"`
	Serial   string          `json:"serial"`
	Prize    decimal.Decimal `json:"prize"`
}

// TicketDetail is a ticket with its lines and current settlement
type TicketDetail struct {
	models.TicketBundle
	Settlement settlement.Settlement `json:"settlement"`
	Status     settlement.Status     `json:"status"`
	Results    settlement.Results    `json:"results"`
}

// TicketQuery filters ListTickets. AgencyID is honored for admins only.
type TicketQuery struct {
	AgencyID int64
	From     string
	To       string
	Limit    int
}

// TicketSummary is a ticket header with its computed outcome
type TicketSummary struct {
	models.Ticket
	Prize  decimal.Decimal   `json:"prize"`
	Status settlement.Status `json:"status"`
}

// TripletaReport lists every tripleta sold on a date
type TripletaReport struct {
	Date        string          `json:"date"`
	Tripletas   []TripletaEntry `json:"tripletas"`
	Count       int             `json:"count"`
	Winners     int             `json:"winners"`
	TotalPrizes decimal.Decimal `json:"total_prizes"`
}

// TripletaEntry is one row of a TripletaReport
type TripletaEntry struct {
	TripletaID int64             `json:"tripleta_id"`
	Serial     string            `json:"serial"`
	AgencyID   int64             `json:"agency_id"`
	Animals    [3]string         `json:"animals"`
	Names      [3]string         `json:"names"`
	Amount     decimal.Decimal   `json:"amount"`
	Hits       []string          `json:"hits"`
	Status     settlement.Status `json:"status"`
	Prize      decimal.Decimal   `json:"prize"`
	Paid       bool              `json:"paid"`
}

// Sell validates lines and records them as one ticket for the actor's agency
func (s *TicketService) Sell(ctx context.Context, actor models.Actor, lines []SaleLine) (*SaleReceipt, error) {
	receipt, err := s.sell(ctx, actor, lines)
	if err != nil {
		s.metrics.SaleRejected(errors.KindOf(err).String())
		return nil, err
	}
	return receipt, nil
}

func (s *TicketService) sell(ctx context.Context, actor models.Actor, lines []SaleLine) (*SaleReceipt, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyTicket
	}
	if actor.Admin {
		return nil, ErrAdminCannotSell
	}

	agency, err := s.repo.GetAgency(ctx, actor.AgencyID)
	if err != nil {
		return nil, notFound(err, ErrAgencyNotFound)
	}
	if !agency.Active {
		return nil, ErrAgencyDisabled
	}

	now := s.policy.Now()
	date := s.policy.Date(now)
	bundle := models.TicketBundle{
		Ticket: models.Ticket{
			AgencyID:  agency.ID,
			SaleDate:  date,
			CreatedAt: now,
		},
	}
	for i, line := range lines {
		if err := s.addLine(&bundle, line, now, date); err != nil {
			return nil, errors.Wrap(err, errors.KindOf(err), fmt.Sprintf("line %d", i+1))
		}
	}
	bundle.Ticket.Total = bundle.LineTotal()

	for attempt := 1; ; attempt++ {
		bundle.Ticket.Serial = s.serials.Next()
		err = s.repo.CreateTicket(ctx, &bundle)
		if err == nil {
			break
		}
		if !stderrors.Is(err, repository.ErrDuplicate) || attempt == maxSerialAttempts {
			return nil, errors.Internal(err)
		}
		s.log.Warn("Serial collision, retrying", "serial", bundle.Ticket.Serial, "attempt", attempt)
	}

	s.log.Info("Ticket sold",
		"serial", bundle.Ticket.Serial,
		"agency_id", agency.ID,
		"lines", len(lines),
		"total", bundle.Ticket.Total.String())
	s.metrics.TicketSold(len(lines), bundle.Ticket.Total)
	s.broadcaster.BroadcastMessage("ticket_sold", map[string]interface{}{
		"serial":    bundle.Ticket.Serial,
		"agency_id": agency.ID,
		"total":     bundle.Ticket.Total,
	})

	text := s.receipts.Build(s.policy, agency.Name, bundle)
	return &SaleReceipt{
		Ticket:   bundle,
		Receipt:  text,
		ShareURL: s.receipts.ShareURL(text),
	}, nil
}

// addLine validates one sale line and appends it to bundle. Errors are
// fresh values so the caller may prefix the line number.
func (s *TicketService) addLine(bundle *models.TicketBundle, line SaleLine, now time.Time, date string) error {
	if !line.Amount.IsPositive() {
		return errors.Validation("amount must be greater than zero")
	}

	if line.Kind == models.KindTripleta {
		animals, err := parseTripleta(line)
		if err != nil {
			return err
		}
		bundle.Tripletas = append(bundle.Tripletas, models.Tripleta{
			Animals:  animals,
			Amount:   line.Amount,
			DrawDate: date,
		})
		return nil
	}

	selection := strings.TrimSpace(line.Selection)
	switch line.Kind {
	case models.KindAnimal:
		if !catalog.Valid(selection) {
			return errors.Validationf("invalid animal %q", selection)
		}
	case models.KindSpecial:
		selection = strings.ToUpper(selection)
		if !catalog.ValidSpecial(selection) {
			return errors.Validationf("invalid special bet %q", line.Selection)
		}
	default:
		return errors.Validationf("unknown bet kind %q", line.Kind)
	}

	slot, err := s.resolveSlot(line.Slot)
	if err != nil {
		return err
	}
	if !s.policy.IsSellable(slot.Label, now) {
		return errors.WindowClosedf("draw %s is already closed", slot.Label)
	}

	bundle.Wagers = append(bundle.Wagers, models.Wager{
		Slot:      slot.Label,
		Kind:      line.Kind,
		Selection: selection,
		Amount:    line.Amount,
	})
	return nil
}

// resolveSlot maps a requested label onto the schedule's canonical label
func (s *TicketService) resolveSlot(label string) (schedule.Slot, error) {
	return resolveSlot(s.policy, label)
}

func resolveSlot(policy *schedule.Policy, label string) (schedule.Slot, error) {
	label = strings.TrimSpace(label)
	if slot, ok := policy.Lookup(label); ok {
		return slot, nil
	}
	minutes, err := schedule.SlotMinutes(label)
	if err != nil {
		return schedule.Slot{}, errors.Validationf("invalid draw time %q", label)
	}
	for _, slot := range policy.Slots {
		if slot.Minutes == minutes {
			return slot, nil
		}
	}
	return schedule.Slot{}, errors.Validationf("no draw at %s", label)
}

func parseTripleta(line SaleLine) ([3]string, error) {
	var out [3]string
	codes := line.Animals
	if len(codes) == 0 && line.Selection != "" {
		codes = strings.Split(line.Selection, ",")
	}
	if len(codes) != 3 {
		return out, errors.Validation("a tripleta needs exactly three animals")
	}
	seen := make(map[string]bool, 3)
	for i, c := range codes {
		c = strings.TrimSpace(c)
		if !catalog.Valid(c) {
			return out, errors.Validationf("invalid animal %q", c)
		}
		if seen[c] {
			return out, errors.Validationf("animal %s repeated in tripleta", c)
		}
		seen[c] = true
		out[i] = c
	}
	return out, nil
}

// Void cancels a ticket. Agencies may void their own tickets within the
// grace period and while every draw on the ticket is still open; admins
// may void any unpaid ticket at any time.
func (s *TicketService) Void(ctx context.Context, actor models.Actor, serial string) error {
	serial = strings.TrimSpace(serial)
	ticket, err := s.repo.GetTicketBySerial(ctx, serial)
	if err != nil {
		return notFound(err, ErrTicketNotFound)
	}
	if !actor.Owns(ticket.AgencyID) {
		return ErrNotOwner
	}
	if ticket.Paid {
		return ErrAlreadyPaid
	}
	if ticket.Voided {
		return ErrAlreadyVoided
	}

	now := s.policy.Now()
	if !actor.Admin {
		bundle, err := s.repo.GetTicketBundle(ctx, ticket.ID)
		if err != nil {
			return notFound(err, ErrTicketNotFound)
		}
		if err := s.policy.CanVoid(ticket.CreatedAt, bundle.Slots(), now); err != nil {
			return err
		}
	}

	ok, err := s.repo.MarkTicketVoided(ctx, ticket.ID, now)
	if err != nil {
		return errors.Internal(err)
	}
	if !ok {
		return s.lostRace(ctx, ticket.ID)
	}

	s.log.Info("Ticket voided", "serial", serial, "agency_id", ticket.AgencyID, "by", actor.Username)
	s.metrics.TicketVoided()
	s.broadcaster.BroadcastMessage("ticket_voided", map[string]interface{}{
		"serial":    serial,
		"agency_id": ticket.AgencyID,
	})
	return nil
}

// MarkPaid records the payout of a ticket
func (s *TicketService) MarkPaid(ctx context.Context, actor models.Actor, ticketID int64) (*Payment, error) {
	bundle, err := s.loadBundle(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	ticket := bundle.Ticket
	if !actor.Owns(ticket.AgencyID) {
		return nil, ErrNotOwner
	}
	if ticket.Voided {
		return nil, ErrTicketVoided
	}
	if ticket.Paid {
		return nil, ErrAlreadyPaid
	}

	result, err := s.settle(ctx, bundle)
	if err != nil {
		return nil, err
	}
	if s.strictPayout && !result.Total.IsPositive() {
		return nil, ErrNoPrize
	}

	ok, err := s.repo.MarkTicketPaid(ctx, ticket.ID, s.policy.Now())
	if err != nil {
		return nil, errors.Internal(err)
	}
	if !ok {
		return nil, s.lostRace(ctx, ticket.ID)
	}

	s.log.Info("Ticket paid", "serial", ticket.Serial, "agency_id", ticket.AgencyID, "prize", result.Total.String())
	s.metrics.TicketPaid(result.Total)
	return &Payment{TicketID: ticket.ID, Serial: ticket.Serial, Prize: result.Total}, nil
}

// lostRace explains why a compare-and-set update matched no row
func (s *TicketService) lostRace(ctx context.Context, id int64) error {
	current, err := s.repo.GetTicket(ctx, id)
	if err != nil {
		return notFound(err, ErrTicketNotFound)
	}
	if current.Voided {
		return ErrTicketVoided
	}
	return ErrAlreadyPaid
}

// Verify reports the current prize of a ticket before payment
func (s *TicketService) Verify(ctx context.Context, actor models.Actor, serial string) (*Verification, error) {
	ticket, err := s.repo.GetTicketBySerial(ctx, strings.TrimSpace(serial))
	if err != nil {
		return nil, notFound(err, ErrTicketNotFound)
	}
	if !actor.Owns(ticket.AgencyID) {
		return nil, ErrNotOwner
	}
	if ticket.Voided {
		return nil, ErrTicketVoided
	}
	if ticket.Paid {
		return nil, ErrAlreadyPaid
	}

	bundle, err := s.loadBundle(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	result, err := s.settle(ctx, bundle)
	if err != nil {
		return nil, err
	}
	return &Verification{
		TicketID: ticket.ID,
		Serial:   ticket.Serial,
		Status:   result.Status(),
		Prize:    result.Total,
	}, nil
}

// GetTicket returns a ticket with its lines and settlement breakdown
func (s *TicketService) GetTicket(ctx context.Context, actor models.Actor, serial string) (*TicketDetail, error) {
	ticket, err := s.repo.GetTicketBySerial(ctx, strings.TrimSpace(serial))
	if err != nil {
		return nil, notFound(err, ErrTicketNotFound)
	}
	if !actor.Owns(ticket.AgencyID) {
		return nil, ErrNotOwner
	}
	bundle, err := s.loadBundle(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	results, err := s.resultsFor(ctx, bundle.Ticket.SaleDate)
	if err != nil {
		return nil, err
	}
	outcome := s.calc.Settle(bundle.Wagers, bundle.Tripletas, results)
	return &TicketDetail{
		TicketBundle: *bundle,
		Settlement:   outcome,
		Status:       outcome.Status(),
		Results:      results,
	}, nil
}

// ListTickets returns tickets with their computed prize, newest first.
// Agencies always see their own tickets only.
func (s *TicketService) ListTickets(ctx context.Context, actor models.Actor, query TicketQuery) ([]TicketSummary, error) {
	from, err := s.policy.ParseDate(query.From)
	if err != nil {
		return nil, err
	}
	to := from
	if query.To != "" {
		if to, err = s.policy.ParseDate(query.To); err != nil {
			return nil, err
		}
	}
	if to < from {
		return nil, errors.Validation("from must not be after to")
	}

	filter := repository.TicketFilter{
		AgencyID:      actor.AgencyID,
		From:          from,
		To:            to,
		IncludeVoided: true,
		Limit:         query.Limit,
	}
	if actor.Admin {
		filter.AgencyID = query.AgencyID
	}

	bundles, err := s.repo.ListTicketBundles(ctx, filter)
	if err != nil {
		return nil, errors.Internal(err)
	}
	byDate, err := s.resultsBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]TicketSummary, 0, len(bundles))
	for _, b := range bundles {
		outcome := s.calc.Settle(b.Wagers, b.Tripletas, byDate[b.Ticket.SaleDate])
		out = append(out, TicketSummary{
			Ticket: b.Ticket,
			Prize:  outcome.Total,
			Status: outcome.Status(),
		})
	}
	return out, nil
}

// TripletasForDate lists every tripleta sold on date with its progress
func (s *TicketService) TripletasForDate(ctx context.Context, actor models.Actor, date string) (*TripletaReport, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	date, err := s.policy.ParseDate(date)
	if err != nil {
		return nil, err
	}

	sales, err := s.repo.ListTripletaSales(ctx, date)
	if err != nil {
		return nil, errors.Internal(err)
	}
	results, err := s.resultsFor(ctx, date)
	if err != nil {
		return nil, err
	}

	report := &TripletaReport{
		Date:        date,
		Tripletas:   make([]TripletaEntry, 0, len(sales)),
		TotalPrizes: decimal.Zero,
	}
	for _, sale := range sales {
		outcome := s.calc.Settle(nil, []models.Tripleta{sale.Tripleta}, results)
		o := outcome.Tripletas[0]
		entry := TripletaEntry{
			TripletaID: sale.ID,
			Serial:     sale.Serial,
			AgencyID:   sale.AgencyID,
			Animals:    sale.Animals,
			Amount:     sale.Amount,
			Hits:       o.Hits,
			Status:     o.Status,
			Prize:      o.Prize,
			Paid:       sale.Paid,
		}
		for i, code := range sale.Animals {
			entry.Names[i] = catalog.Name(code)
		}
		if o.Status == settlement.Won {
			report.Winners++
			report.TotalPrizes = report.TotalPrizes.Add(o.Prize)
		}
		report.Tripletas = append(report.Tripletas, entry)
	}
	report.Count = len(report.Tripletas)
	return report, nil
}

// QRCode renders the ticket serial as a PNG
func (s *TicketService) QRCode(ctx context.Context, actor models.Actor, serial string, size int) ([]byte, error) {
	ticket, err := s.repo.GetTicketBySerial(ctx, strings.TrimSpace(serial))
	if err != nil {
		return nil, notFound(err, ErrTicketNotFound)
	}
	if !actor.Owns(ticket.AgencyID) {
		return nil, ErrNotOwner
	}
	if size <= 0 || size > 1024 {
		size = 256
	}
	png, err := qrcode.Encode(ticket.Serial, qrcode.Medium, size)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return png, nil
}

// loadBundle fetches a ticket with its lines and checks the total invariant
func (s *TicketService) loadBundle(ctx context.Context, id int64) (*models.TicketBundle, error) {
	bundle, err := s.repo.GetTicketBundle(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTicketNotFound)
	}
	if !bundle.LineTotal().Equal(bundle.Ticket.Total) {
		s.log.Error("Ticket total mismatch",
			"serial", bundle.Ticket.Serial,
			"total", bundle.Ticket.Total.String(),
			"lines", bundle.LineTotal().String())
		return nil, errors.Internalf("ticket %s total does not match its lines", bundle.Ticket.Serial)
	}
	return bundle, nil
}

func (s *TicketService) settle(ctx context.Context, bundle *models.TicketBundle) (settlement.Settlement, error) {
	results, err := s.resultsFor(ctx, bundle.Ticket.SaleDate)
	if err != nil {
		return settlement.Settlement{}, err
	}
	return s.calc.Settle(bundle.Wagers, bundle.Tripletas, results), nil
}

func (s *TicketService) resultsFor(ctx context.Context, date string) (settlement.Results, error) {
	rows, err := s.repo.ListResults(ctx, date)
	if err != nil {
		return nil, errors.Internal(err)
	}
	results := make(settlement.Results, len(rows))
	for _, r := range rows {
		results[r.Slot] = r.Code
	}
	return results, nil
}

func (s *TicketService) resultsBetween(ctx context.Context, from, to string) (map[string]settlement.Results, error) {
	return loadResultsBetween(ctx, s.repo, from, to)
}

func loadResultsBetween(ctx context.Context, repo repository.ResultRepository, from, to string) (map[string]settlement.Results, error) {
	rows, err := repo.ListResultsBetween(ctx, from, to)
	if err != nil {
		return nil, errors.Internal(err)
	}
	byDate := make(map[string]settlement.Results)
	for _, r := range rows {
		if byDate[r.Date] == nil {
			byDate[r.Date] = make(settlement.Results)
		}
		byDate[r.Date][r.Slot] = r.Code
	}
	return byDate, nil
}
