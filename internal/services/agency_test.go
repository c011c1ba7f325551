package services_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/abrezinsky/zoolo/internal/errors"
	"github.com/abrezinsky/zoolo/internal/logger"
	"github.com/abrezinsky/zoolo/internal/models"
	"github.com/abrezinsky/zoolo/internal/repository/mock"
	"github.com/abrezinsky/zoolo/internal/services"
	"github.com/abrezinsky/zoolo/internal/testutil"
)

var operator = models.Actor{Username: "admin", Admin: true}

func newAgencyService(t *testing.T) *services.AgencyService {
	t.Helper()
	svc := services.NewAgencyService(logger.NewNop(), testutil.NewTestRepository(t))
	svc.SetHashCost(bcrypt.MinCost)
	return svc
}

func TestCreateAgency_AndAuthenticate(t *testing.T) {
	svc := newAgencyService(t)
	ctx := context.Background()

	agency, err := svc.Create(ctx, operator, services.NewAgency{Username: " Norte ", Password: "secret", Name: "Agencia Norte"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if agency.Username != "norte" {
		t.Errorf("expected lowercased username, got %q", agency.Username)
	}
	expectDec(t, "commission", agency.CommissionRate, "0.15")
	if !agency.Active || agency.Admin {
		t.Errorf("expected active selling agency, got %+v", agency)
	}

	actor, err := svc.Authenticate(ctx, "NORTE", "secret")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if actor.AgencyID != agency.ID || actor.Admin {
		t.Errorf("unexpected actor %+v", actor)
	}

	_, err = svc.Authenticate(ctx, "norte", "wrong")
	if !stderrors.Is(err, services.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	_, err = svc.Authenticate(ctx, "nobody", "secret")
	if !stderrors.Is(err, services.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	_, err = svc.Create(ctx, operator, services.NewAgency{Username: "norte", Password: "other", Name: "Dup"})
	if !stderrors.Is(err, services.ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestCreateAgency_Validation(t *testing.T) {
	svc := newAgencyService(t)
	ctx := context.Background()
	high := decimal.RequireFromString("1.5")
	negative := decimal.RequireFromString("-0.1")

	tests := []struct {
		name  string
		input services.NewAgency
	}{
		{"missing username", services.NewAgency{Password: "secret", Name: "A"}},
		{"username with spaces", services.NewAgency{Username: "la norte", Password: "secret", Name: "A"}},
		{"missing name", services.NewAgency{Username: "norte", Password: "secret"}},
		{"short password", services.NewAgency{Username: "norte", Password: "abc", Name: "A"}},
		{"commission above one", services.NewAgency{Username: "norte", Password: "secret", Name: "A", CommissionRate: &high}},
		{"negative commission", services.NewAgency{Username: "norte", Password: "secret", Name: "A", CommissionRate: &negative}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, operator, tt.input)
			expectKind(t, err, errors.ErrValidation)
		})
	}

	_, err := svc.Create(ctx, models.Actor{AgencyID: 1}, services.NewAgency{Username: "x", Password: "secret", Name: "X"})
	expectKind(t, err, errors.ErrUnauthorized)
}

func TestCreateAgency_DefaultCommission(t *testing.T) {
	svc := newAgencyService(t)
	svc.SetDefaultCommission(decimal.RequireFromString("0.2"))

	agency, err := svc.Create(context.Background(), operator, services.NewAgency{Username: "sur", Password: "secret", Name: "Sur"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	expectDec(t, "commission", agency.CommissionRate, "0.2")
}

func TestUpdateAgency(t *testing.T) {
	svc := newAgencyService(t)
	ctx := context.Background()
	agency, err := svc.Create(ctx, operator, services.NewAgency{Username: "norte", Password: "secret", Name: "Norte"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	rate := decimal.RequireFromString("0.12")
	password := "nueva"
	updated, err := svc.Update(ctx, operator, agency.ID, services.AgencyUpdate{CommissionRate: &rate, Password: &password})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	expectDec(t, "commission", updated.CommissionRate, "0.12")
	if _, err := svc.Authenticate(ctx, "norte", "nueva"); err != nil {
		t.Errorf("expected new password to work, got %v", err)
	}

	inactive := false
	if _, err := svc.Update(ctx, operator, agency.ID, services.AgencyUpdate{Active: &inactive}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	_, err = svc.Authenticate(ctx, "norte", "nueva")
	if !stderrors.Is(err, services.ErrAgencyDisabled) {
		t.Errorf("expected ErrAgencyDisabled, got %v", err)
	}

	blank := " "
	_, err = svc.Update(ctx, operator, agency.ID, services.AgencyUpdate{Name: &blank})
	expectKind(t, err, errors.ErrValidation)

	_, err = svc.Update(ctx, operator, 999, services.AgencyUpdate{})
	expectKind(t, err, errors.ErrNotFound)

	_, err = svc.Update(ctx, models.Actor{AgencyID: agency.ID}, agency.ID, services.AgencyUpdate{})
	expectKind(t, err, errors.ErrUnauthorized)
}

func TestEnsureAdmin(t *testing.T) {
	svc := newAgencyService(t)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "Admin", "clave")
	if err != nil {
		t.Fatalf("EnsureAdmin failed: %v", err)
	}
	if !created {
		t.Error("expected operator account to be created")
	}
	created, err = svc.EnsureAdmin(ctx, "admin", "other")
	if err != nil || created {
		t.Errorf("expected existing operator to be kept, got created=%v err=%v", created, err)
	}

	actor, err := svc.Authenticate(ctx, "admin", "clave")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if !actor.Admin {
		t.Error("expected operator actor")
	}

	_, err = svc.Update(ctx, operator, actor.AgencyID, services.AgencyUpdate{})
	expectKind(t, err, errors.ErrValidation)

	if _, err := svc.Create(ctx, operator, services.NewAgency{Username: "norte", Password: "secret", Name: "Norte"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err = svc.EnsureAdmin(ctx, "norte", "secret")
	expectKind(t, err, errors.ErrConflict)
}

func TestListAndGetAgency(t *testing.T) {
	svc := newAgencyService(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, operator, services.NewAgency{Username: "norte", Password: "secret", Name: "Norte"})
	b, _ := svc.Create(ctx, operator, services.NewAgency{Username: "sur", Password: "secret", Name: "Sur"})

	list, err := svc.List(ctx, operator)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 agencies, got %d", len(list))
	}
	_, err = svc.List(ctx, models.Actor{AgencyID: a.ID})
	expectKind(t, err, errors.ErrUnauthorized)

	own, err := svc.Get(ctx, models.Actor{AgencyID: a.ID}, a.ID)
	if err != nil || own.Username != "norte" {
		t.Errorf("expected own agency, got %+v, %v", own, err)
	}
	_, err = svc.Get(ctx, models.Actor{AgencyID: a.ID}, b.ID)
	expectKind(t, err, errors.ErrUnauthorized)
}

func TestAgencyService_StoreFailures(t *testing.T) {
	repo := mock.NewRepository(testutil.NewTestRepository(t))
	svc := services.NewAgencyService(logger.NewNop(), repo)
	svc.SetHashCost(bcrypt.MinCost)
	ctx := context.Background()

	repo.GetAgencyByUsernameError = stderrors.New("io")
	_, err := svc.Authenticate(ctx, "norte", "secret")
	expectKind(t, err, errors.ErrInternal)
	_, err = svc.EnsureAdmin(ctx, "admin", "secret")
	expectKind(t, err, errors.ErrInternal)

	repo.CreateAgencyError = stderrors.New("io")
	_, err = svc.Create(ctx, operator, services.NewAgency{Username: "norte", Password: "secret", Name: "Norte"})
	expectKind(t, err, errors.ErrInternal)
}
