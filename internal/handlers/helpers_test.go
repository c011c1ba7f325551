package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/abrezinsky/zoolo/internal/auth"
	"github.com/abrezinsky/zoolo/internal/handlers"
	"github.com/abrezinsky/zoolo/internal/logger"
	"github.com/abrezinsky/zoolo/internal/models"
	"github.com/abrezinsky/zoolo/internal/repository"
	"github.com/abrezinsky/zoolo/internal/serial"
	"github.com/abrezinsky/zoolo/internal/services"
	"github.com/abrezinsky/zoolo/internal/testutil"
)

// testServer wires the handlers over real services, an in-memory store
// and a clock that starts at 08:50 on the test date.
type testServer struct {
	t      *testing.T
	h      *handlers.Handlers
	router http.Handler
	repo   *repository.Repository
	clock  *testutil.MutableClock
	agency *models.Agency
	seller string
	admin  string
}

func newTestServer(t *testing.T, opts ...func(*handlers.Handlers)) *testServer {
	t.Helper()
	log := logger.NewNop()
	repo := testutil.NewTestRepository(t)
	clock := &testutil.MutableClock{T: testutil.At(8, 50)}
	policy := testutil.NewPolicy(clock)

	gen, err := serial.New(1)
	if err != nil {
		t.Fatalf("serial.New failed: %v", err)
	}
	agencies := services.NewAgencyService(log, repo)
	agencies.SetHashCost(bcrypt.MinCost)

	h := handlers.New(
		agencies,
		services.NewTicketService(log, repo, policy, gen),
		services.NewResultService(log, repo, policy),
		services.NewCashService(log, repo, policy),
		services.NewRiskService(log, repo, policy),
		policy,
		auth.New(),
		log,
	)
	for _, opt := range opts {
		opt(h)
	}

	ctx := context.Background()
	if _, err := agencies.EnsureAdmin(ctx, "admin", "admin-pass"); err != nil {
		t.Fatalf("EnsureAdmin failed: %v", err)
	}
	adminActor, err := agencies.Authenticate(ctx, "admin", "admin-pass")
	if err != nil {
		t.Fatalf("admin Authenticate failed: %v", err)
	}
	agency, err := agencies.Create(ctx, *adminActor, services.NewAgency{
		Username: "norte",
		Password: "norte-pass",
		Name:     "Agencia Norte",
	})
	if err != nil {
		t.Fatalf("Create agency failed: %v", err)
	}
	sellerActor := models.Actor{AgencyID: agency.ID, Username: agency.Username}

	return &testServer{
		t:      t,
		h:      h,
		router: h.Router(),
		repo:   repo,
		clock:  clock,
		agency: agency,
		seller: h.Auth.Start(sellerActor),
		admin:  h.Auth.Start(*adminActor),
	}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// sell sells one animal line and returns the stored ticket
func (s *testServer) sell(slot, code, amount string) models.Ticket {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/tickets", s.seller, map[string]interface{}{
		"lines": []map[string]interface{}{
			{"kind": "animal", "slot": slot, "selection": code, "amount": amount},
		},
	})
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("sell: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var receipt struct {
		Ticket models.TicketBundle `json:"ticket"`
	}
	decode(s.t, rec, &receipt)
	return receipt.Ticket.Ticket
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	if code == "" {
		return
	}
	var apiErr handlers.APIError
	decode(t, rec, &apiErr)
	if apiErr.Code != code {
		t.Errorf("expected code %s, got %s (%s)", code, apiErr.Code, apiErr.Message)
	}
}
