package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/abrezinsky/zoolo/internal/errors"
	"github.com/abrezinsky/zoolo/internal/logger"
	"github.com/abrezinsky/zoolo/internal/models"
	"github.com/abrezinsky/zoolo/internal/repository"
	"github.com/abrezinsky/zoolo/internal/schedule"
	"github.com/abrezinsky/zoolo/internal/serial"
	"github.com/abrezinsky/zoolo/internal/services"
	"github.com/abrezinsky/zoolo/internal/testutil"
)

// fixture wires every service over one in-memory store and a clock that
// starts at 08:50 on the test date.
type fixture struct {
	repo    *repository.Repository
	clock   *testutil.MutableClock
	policy  *schedule.Policy
	tickets *services.TicketService
	results *services.ResultService
	cash    *services.CashService
	risk    *services.RiskService
	agency  *models.Agency
	seller  models.Actor
	admin   models.Actor
	events  *recordingBroadcaster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	return newFixtureWithRepo(t, repo, repo)
}

// newFixtureWithRepo builds the services over svcRepo, which may wrap real
func newFixtureWithRepo(t *testing.T, real *repository.Repository, svcRepo repository.FullRepository) *fixture {
	t.Helper()
	log := logger.NewNop()
	clock := &testutil.MutableClock{T: testutil.At(8, 50)}
	policy := testutil.NewPolicy(clock)

	gen, err := serial.New(1)
	if err != nil {
		t.Fatalf("serial.New failed: %v", err)
	}

	f := &fixture{
		repo:    real,
		clock:   clock,
		policy:  policy,
		tickets: services.NewTicketService(log, svcRepo, policy, gen),
		results: services.NewResultService(log, svcRepo, policy),
		cash:    services.NewCashService(log, svcRepo, policy),
		risk:    services.NewRiskService(log, svcRepo, policy),
		admin:   models.Actor{Username: "admin", Admin: true},
		events:  &recordingBroadcaster{},
	}
	f.tickets.SetBroadcaster(f.events)
	f.results.SetBroadcaster(f.events)

	f.agency = testutil.CreateAgency(t, real, "norte", "0.15")
	f.seller = actorFor(f.agency)
	return f
}

func actorFor(a *models.Agency) models.Actor {
	return models.Actor{AgencyID: a.ID, Username: a.Username, Admin: a.Admin}
}

func (f *fixture) sell(t *testing.T, actor models.Actor, lines ...services.SaleLine) *services.SaleReceipt {
	t.Helper()
	receipt, err := f.tickets.Sell(context.Background(), actor, lines)
	if err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
	return receipt
}

func (f *fixture) post(t *testing.T, slot, code string) {
	t.Helper()
	if _, err := f.results.Post(context.Background(), f.admin, testutil.TestDate, slot, code); err != nil {
		t.Fatalf("Post(%s, %s) failed: %v", slot, code, err)
	}
}

func animal(slot, code, amount string) services.SaleLine {
	return services.SaleLine{Kind: models.KindAnimal, Slot: slot, Selection: code, Amount: testutil.Dec(amount)}
}

func special(slot, token, amount string) services.SaleLine {
	return services.SaleLine{Kind: models.KindSpecial, Slot: slot, Selection: token, Amount: testutil.Dec(amount)}
}

func tripleta(amount string, codes ...string) services.SaleLine {
	return services.SaleLine{Kind: models.KindTripleta, Animals: codes, Amount: testutil.Dec(amount)}
}

func expectKind(t *testing.T, err error, kind errors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := errors.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

func expectDec(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(testutil.Dec(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

// recordingBroadcaster keeps every broadcast for inspection
type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []models.WSMessage
}

func (b *recordingBroadcaster) BroadcastMessage(msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, models.WSMessage{Type: msgType, Payload: payload})
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.messages))
	for _, m := range b.messages {
		out = append(out, m.Type)
	}
	return out
}

// recordingNotifier keeps every notification text
type recordingNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (n *recordingNotifier) Notify(_ context.Context, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
}

// fixedSerials hands out serials from a list, repeating the last one
type fixedSerials struct {
	mu      sync.Mutex
	serials []string
}

func (g *fixedSerials) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.serials[0]
	if len(g.serials) > 1 {
		g.serials = g.serials[1:]
	}
	return s
}
