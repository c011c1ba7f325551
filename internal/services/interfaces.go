package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/abrezinsky/zoolo/internal/models"
)

// AgencyServicer defines the interface for agency operations
type AgencyServicer interface {
	Authenticate(ctx context.Context, username, password string) (*models.Actor, error)
	EnsureAdmin(ctx context.Context, username, password string) (bool, error)
	Create(ctx context.Context, actor models.Actor, input NewAgency) (*models.Agency, error)
	List(ctx context.Context, actor models.Actor) ([]models.Agency, error)
	Get(ctx context.Context, actor models.Actor, id int64) (*models.Agency, error)
	Update(ctx context.Context, actor models.Actor, id int64, input AgencyUpdate) (*models.Agency, error)
}

// TicketServicer defines the interface for ticket ledger operations
type TicketServicer interface {
	Sell(ctx context.Context, actor models.Actor, lines []SaleLine) (*SaleReceipt, error)
	Void(ctx context.Context, actor models.Actor, serial string) error
	MarkPaid(ctx context.Context, actor models.Actor, ticketID int64) (*Payment, error)
	Verify(ctx context.Context, actor models.Actor, serial string) (*Verification, error)
	GetTicket(ctx context.Context, actor models.Actor, serial string) (*TicketDetail, error)
	ListTickets(ctx context.Context, actor models.Actor, query TicketQuery) ([]TicketSummary, error)
	TripletasForDate(ctx context.Context, actor models.Actor, date string) (*TripletaReport, error)
	QRCode(ctx context.Context, actor models.Actor, serial string, size int) ([]byte, error)
}

// ResultServicer defines the interface for draw result operations
type ResultServicer interface {
	Post(ctx context.Context, actor models.Actor, date, slot, code string) (*models.DrawResult, error)
	Get(ctx context.Context, date string) (*DayResults, error)
}

// CashServicer defines the interface for cash reconciliation
type CashServicer interface {
	DailyCaja(ctx context.Context, actor models.Actor, agencyID int64, date string) (*Caja, error)
	CajaRange(ctx context.Context, actor models.Actor, agencyID int64, from, to string) (*CajaReport, error)
	AgencyReport(ctx context.Context, actor models.Actor, from, to string) (*AgencyReport, error)
}

// RiskServicer defines the interface for exposure reporting
type RiskServicer interface {
	RiskForSlot(ctx context.Context, actor models.Actor, slot, date string) (*Risk, error)
	CurrentRisk(ctx context.Context, actor models.Actor) (*Risk, error)
}

// SerialGenerator issues unique ticket serials
type SerialGenerator interface {
	Next() string
}

// Broadcaster pushes events to connected terminals
type Broadcaster interface {
	BroadcastMessage(msgType string, payload interface{})
}

// Notifier delivers short operator alerts
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Recorder receives business counters
type Recorder interface {
	TicketSold(lines int, total decimal.Decimal)
	TicketVoided()
	TicketPaid(prize decimal.Decimal)
	ResultPosted()
	SaleRejected(reason string)
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastMessage(string, interface{}) {}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string) {}

type noopRecorder struct{}

func (noopRecorder) TicketSold(int, decimal.Decimal) {}
func (noopRecorder) TicketVoided()                   {}
func (noopRecorder) TicketPaid(decimal.Decimal)      {}
func (noopRecorder) ResultPosted()                   {}
func (noopRecorder) SaleRejected(string)             {}

// requireAdmin rejects callers without operator rights
func requireAdmin(actor models.Actor) error {
	if !actor.Admin {
		return ErrAdminOnly
	}
	return nil
}
