package services

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/abrezinsky/zoolo/internal/errors"
	"github.com/abrezinsky/zoolo/internal/logger"
	"github.com/abrezinsky/zoolo/internal/models"
	"github.com/abrezinsky/zoolo/internal/repository"
)

const minPasswordLength = 4

// DefaultCommission is the agency commission rate when none is configured
var DefaultCommission = decimal.RequireFromString("0.15")

// AgencyService manages agency accounts and credentials
type AgencyService struct {
	log               logger.Logger
	repo              repository.AgencyRepository
	defaultCommission decimal.Decimal
	hashCost          int
}

// NewAgencyService creates a new AgencyService
func NewAgencyService(log logger.Logger, repo repository.AgencyRepository) *AgencyService {
	return &AgencyService{
		log:               log,
		repo:              repo,
		defaultCommission: DefaultCommission,
		hashCost:          bcrypt.DefaultCost,
	}
}

// SetDefaultCommission sets the rate applied when Create gets none
func (s *AgencyService) SetDefaultCommission(rate decimal.Decimal) {
	s.defaultCommission = rate
}

// SetHashCost sets the bcrypt cost for new passwords
func (s *AgencyService) SetHashCost(cost int) {
	s.hashCost = cost
}

// NewAgency is the input of Create
type NewAgency struct {
	Username       string           `json:"username"`
	Password       string           `json:"password"`
	Name           string           `json:"name"`
	CommissionRate *decimal.Decimal `json:"commission_rate,omitempty"`
}

// AgencyUpdate holds the fields Update may change. Nil fields are kept.
type AgencyUpdate struct {
	Name           *string          `json:"name,omitempty"`
	Password       *string          `json:"password,omitempty"`
	CommissionRate *decimal.Decimal `json:"commission_rate,omitempty"`
	Active         *bool            `json:"active,omitempty"`
}

// Authenticate checks credentials and returns the caller identity
func (s *AgencyService) Authenticate(ctx context.Context, username, password string) (*models.Actor, error) {
	agency, err := s.repo.GetAgencyByUsername(ctx, normalizeUsername(username))
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Internal(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(agency.PasswordHash), []byte(password)) != nil {
		s.log.Warn("Failed login", "username", agency.Username)
		return nil, ErrInvalidCredentials
	}
	if !agency.Active {
		return nil, ErrAgencyDisabled
	}
	return &models.Actor{AgencyID: agency.ID, Username: agency.Username, Admin: agency.Admin}, nil
}

// EnsureAdmin creates the operator account when it does not exist yet.
// It reports whether an account was created.
func (s *AgencyService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	username = normalizeUsername(username)
	existing, err := s.repo.GetAgencyByUsername(ctx, username)
	if err == nil {
		if !existing.Admin {
			return false, errors.Conflictf("username %s belongs to an agency", username)
		}
		return false, nil
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return false, errors.Internal(err)
	}

	hash, err := s.hash(password)
	if err != nil {
		return false, err
	}
	admin := &models.Agency{
		Username:       username,
		PasswordHash:   hash,
		Name:           "Administrador",
		CommissionRate: decimal.Zero,
		Admin:          true,
		Active:         true,
	}
	if _, err := s.repo.CreateAgency(ctx, admin); err != nil {
		return false, errors.Internal(err)
	}
	s.log.Info("Operator account created", "username", username)
	return true, nil
}

// Create registers a new selling agency
func (s *AgencyService) Create(ctx context.Context, actor models.Actor, input NewAgency) (*models.Agency, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	username := normalizeUsername(input.Username)
	name := strings.TrimSpace(input.Name)
	switch {
	case username == "":
		return nil, errors.Validation("username is required")
	case strings.ContainsAny(username, " \t"):
		return nil, errors.Validation("username must not contain spaces")
	case name == "":
		return nil, errors.Validation("name is required")
	}

	rate := s.defaultCommission
	if input.CommissionRate != nil {
		rate = *input.CommissionRate
	}
	if err := validateRate(rate); err != nil {
		return nil, err
	}
	hash, err := s.hash(input.Password)
	if err != nil {
		return nil, err
	}

	agency := &models.Agency{
		Username:       username,
		PasswordHash:   hash,
		Name:           name,
		CommissionRate: rate,
		Active:         true,
	}
	if _, err := s.repo.CreateAgency(ctx, agency); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, errors.Internal(err)
	}
	s.log.Info("Agency created", "id", agency.ID, "username", username, "commission", rate.String())
	return agency, nil
}

// List returns every account, operators included
func (s *AgencyService) List(ctx context.Context, actor models.Actor) ([]models.Agency, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	agencies, err := s.repo.ListAgencies(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return agencies, nil
}

// Get returns one agency. Agencies may read their own record.
func (s *AgencyService) Get(ctx context.Context, actor models.Actor, id int64) (*models.Agency, error) {
	if !actor.Owns(id) {
		return nil, ErrNotOwner
	}
	agency, err := s.repo.GetAgency(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrAgencyNotFound)
	}
	return agency, nil
}

// Update changes an agency's name, password, commission or status.
// Operator accounts cannot be edited here.
func (s *AgencyService) Update(ctx context.Context, actor models.Actor, id int64, input AgencyUpdate) (*models.Agency, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	agency, err := s.repo.GetAgency(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrAgencyNotFound)
	}
	if agency.Admin {
		return nil, errors.Validation("operator accounts cannot be edited")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, errors.Validation("name is required")
		}
		agency.Name = name
	}
	if input.CommissionRate != nil {
		if err := validateRate(*input.CommissionRate); err != nil {
			return nil, err
		}
		agency.CommissionRate = *input.CommissionRate
	}
	if input.Password != nil {
		hash, err := s.hash(*input.Password)
		if err != nil {
			return nil, err
		}
		agency.PasswordHash = hash
	}
	if input.Active != nil {
		agency.Active = *input.Active
	}

	if err := s.repo.UpdateAgency(ctx, agency); err != nil {
		return nil, notFound(err, ErrAgencyNotFound)
	}
	s.log.Info("Agency updated", "id", agency.ID, "active", agency.Active, "commission", agency.CommissionRate.String())
	return agency, nil
}

func (s *AgencyService) hash(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", errors.Validationf("password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", errors.Internal(err)
	}
	return string(hash), nil
}

func validateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return errors.Validation("commission rate must be between 0 and 1")
	}
	return nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
