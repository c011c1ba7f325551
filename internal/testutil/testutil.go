package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/abrezinsky/zoolo/internal/models"
	"github.com/abrezinsky/zoolo/internal/repository"
	"github.com/abrezinsky/zoolo/internal/schedule"
)

// Lima is a fixed UTC-5 zone so tests do not depend on the host tz database
var Lima = time.FixedZone("UTC-5", -5*60*60)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// At returns 2026-03-14 at hour:minute in Lima
func At(hour, minute int) time.Time {
	return time.Date(2026, 3, 14, hour, minute, 0, 0, Lima)
}

// TestDate is the business date of At
const TestDate = "2026-03-14"

// MutableClock is a schedule.Clock tests can move forward
type MutableClock struct {
	T time.Time
}

func (c *MutableClock) Now() time.Time { return c.T }

// Advance moves the clock forward by d
func (c *MutableClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// NewPolicy returns a default schedule policy driven by clock
func NewPolicy(clock schedule.Clock) *schedule.Policy {
	return schedule.NewPolicy(Lima, schedule.WithClock(clock))
}

// Dec parses a decimal literal and panics on bad input
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// CreateAgency inserts an active agency directly through the repository
func CreateAgency(t *testing.T, repo repository.AgencyRepository, username string, rate string) *models.Agency {
	t.Helper()
	a := &models.Agency{
		Username:       username,
		PasswordHash:   "unused",
		Name:           "Agencia " + username,
		CommissionRate: Dec(rate),
		Active:         true,
	}
	if _, err := repo.CreateAgency(context.Background(), a); err != nil {
		t.Fatalf("failed to create agency %s: %v", username, err)
	}
	return a
}
