package repository

import (
	"context"
	"time"

	"github.com/abrezinsky/zoolo/internal/models"
)

// TicketFilter selects tickets by agency and business date range.
// Zero values mean "any".
type TicketFilter struct {
	AgencyID      int64
	From          string
	To            string
	IncludeVoided bool
	Limit         int
}

// TripletaSale is a tripleta joined with its ticket header
type TripletaSale struct {
	models.Tripleta
	Serial   string `json:"serial"`
	AgencyID int64  `json:"agency_id"`
	Paid     bool   `json:"paid"`
}

// AgencyRepository defines agency data operations
type AgencyRepository interface {
	CreateAgency(ctx context.Context, agency *models.Agency) (int64, error)
	GetAgency(ctx context.Context, id int64) (*models.Agency, error)
	GetAgencyByUsername(ctx context.Context, username string) (*models.Agency, error)
	ListAgencies(ctx context.Context) ([]models.Agency, error)
	UpdateAgency(ctx context.Context, agency *models.Agency) error
}

// TicketRepository defines ticket ledger data operations
type TicketRepository interface {
	CreateTicket(ctx context.Context, bundle *models.TicketBundle) error
	GetTicket(ctx context.Context, id int64) (*models.Ticket, error)
	GetTicketBySerial(ctx context.Context, serial string) (*models.Ticket, error)
	GetTicketBundle(ctx context.Context, id int64) (*models.TicketBundle, error)
	ListTickets(ctx context.Context, filter TicketFilter) ([]models.Ticket, error)
	ListTicketBundles(ctx context.Context, filter TicketFilter) ([]models.TicketBundle, error)
	MarkTicketPaid(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkTicketVoided(ctx context.Context, id int64, at time.Time) (bool, error)
	ListSlotWagers(ctx context.Context, date, slot string, kind models.BetKind) ([]models.Wager, error)
	ListTripletaSales(ctx context.Context, date string) ([]TripletaSale, error)
}

// ResultRepository defines draw result data operations
type ResultRepository interface {
	UpsertResult(ctx context.Context, result models.DrawResult) error
	GetResult(ctx context.Context, date, slot string) (*models.DrawResult, error)
	ListResults(ctx context.Context, date string) ([]models.DrawResult, error)
	ListResultsBetween(ctx context.Context, from, to string) ([]models.DrawResult, error)
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	AgencyRepository
	TicketRepository
	ResultRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
