package mock

import (
	"context"
	"time"

	"github.com/abrezinsky/zoolo/internal/models"
	"github.com/abrezinsky/zoolo/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.CreateTicketError = errors.New("database error")
//	svc := services.NewTicketService(log, mockRepo, policy, serials)
//	_, err := svc.Sell(ctx, actor, lines)
//	// err will now contain the injected error
type Repository struct {
	repository.FullRepository

	// ===== Agency Errors =====
	CreateAgencyError        error
	GetAgencyError           error
	GetAgencyByUsernameError error
	ListAgenciesError        error
	UpdateAgencyError        error

	// ===== Ticket Errors =====
	CreateTicketError      error
	GetTicketBySerialError error
	GetTicketBundleError   error
	ListTicketBundlesError error
	MarkTicketPaidError    error
	MarkTicketVoidedError  error
	ListSlotWagersError    error
	ListTripletaSalesError error

	// ===== Result Errors =====
	UpsertResultError       error
	ListResultsError        error
	ListResultsBetweenError error

	// BeforeMarkTicket runs inside MarkTicketPaid/MarkTicketVoided before the
	// real update. Tests use it to interleave a competing state change.
	BeforeMarkTicket func(ticketID int64)
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

// ===== Agency Methods =====

func (m *Repository) CreateAgency(ctx context.Context, agency *models.Agency) (int64, error) {
	if m.CreateAgencyError != nil {
		return 0, m.CreateAgencyError
	}
	return m.FullRepository.CreateAgency(ctx, agency)
}

func (m *Repository) GetAgency(ctx context.Context, id int64) (*models.Agency, error) {
	if m.GetAgencyError != nil {
		return nil, m.GetAgencyError
	}
	return m.FullRepository.GetAgency(ctx, id)
}

func (m *Repository) GetAgencyByUsername(ctx context.Context, username string) (*models.Agency, error) {
	if m.GetAgencyByUsernameError != nil {
		return nil, m.GetAgencyByUsernameError
	}
	return m.FullRepository.GetAgencyByUsername(ctx, username)
}

func (m *Repository) ListAgencies(ctx context.Context) ([]models.Agency, error) {
	if m.ListAgenciesError != nil {
		return nil, m.ListAgenciesError
	}
	return m.FullRepository.ListAgencies(ctx)
}

func (m *Repository) UpdateAgency(ctx context.Context, agency *models.Agency) error {
	if m.UpdateAgencyError != nil {
		return m.UpdateAgencyError
	}
	return m.FullRepository.UpdateAgency(ctx, agency)
}

// ===== Ticket Methods =====

func (m *Repository) CreateTicket(ctx context.Context, bundle *models.TicketBundle) error {
	if m.CreateTicketError != nil {
		return m.CreateTicketError
	}
	return m.FullRepository.CreateTicket(ctx, bundle)
}

func (m *Repository) GetTicketBySerial(ctx context.Context, serial string) (*models.Ticket, error) {
	if m.GetTicketBySerialError != nil {
		return nil, m.GetTicketBySerialError
	}
	return m.FullRepository.GetTicketBySerial(ctx, serial)
}

func (m *Repository) GetTicketBundle(ctx context.Context, id int64) (*models.TicketBundle, error) {
	if m.GetTicketBundleError != nil {
		return nil, m.GetTicketBundleError
	}
	return m.FullRepository.GetTicketBundle(ctx, id)
}

func (m *Repository) ListTicketBundles(ctx context.Context, filter repository.TicketFilter) ([]models.TicketBundle, error) {
	if m.ListTicketBundlesError != nil {
		return nil, m.ListTicketBundlesError
	}
	return m.FullRepository.ListTicketBundles(ctx, filter)
}

func (m *Repository) MarkTicketPaid(ctx context.Context, id int64, at time.Time) (bool, error) {
	if m.MarkTicketPaidError != nil {
		return false, m.MarkTicketPaidError
	}
	if m.BeforeMarkTicket != nil {
		m.BeforeMarkTicket(id)
	}
	return m.FullRepository.MarkTicketPaid(ctx, id, at)
}

func (m *Repository) MarkTicketVoided(ctx context.Context, id int64, at time.Time) (bool, error) {
	if m.MarkTicketVoidedError != nil {
		return false, m.MarkTicketVoidedError
	}
	if m.BeforeMarkTicket != nil {
		m.BeforeMarkTicket(id)
	}
	return m.FullRepository.MarkTicketVoided(ctx, id, at)
}

func (m *Repository) ListSlotWagers(ctx context.Context, date, slot string, kind models.BetKind) ([]models.Wager, error) {
	if m.ListSlotWagersError != nil {
		return nil, m.ListSlotWagersError
	}
	return m.FullRepository.ListSlotWagers(ctx, date, slot, kind)
}

func (m *Repository) ListTripletaSales(ctx context.Context, date string) ([]repository.TripletaSale, error) {
	if m.ListTripletaSalesError != nil {
		return nil, m.ListTripletaSalesError
	}
	return m.FullRepository.ListTripletaSales(ctx, date)
}

// ===== Result Methods =====

func (m *Repository) UpsertResult(ctx context.Context, result models.DrawResult) error {
	if m.UpsertResultError != nil {
		return m.UpsertResultError
	}
	return m.FullRepository.UpsertResult(ctx, result)
}

func (m *Repository) ListResults(ctx context.Context, date string) ([]models.DrawResult, error) {
	if m.ListResultsError != nil {
		return nil, m.ListResultsError
	}
	return m.FullRepository.ListResults(ctx, date)
}

func (m *Repository) ListResultsBetween(ctx context.Context, from, to string) ([]models.DrawResult, error) {
	if m.ListResultsBetweenError != nil {
		return nil, m.ListResultsBetweenError
	}
	return m.FullRepository.ListResultsBetween(ctx, from, to)
}
