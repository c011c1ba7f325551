package handlers

import (
	"context"
	"net/http"

	"github.com/abrezinsky/zoolo/internal/auth"
	"github.com/abrezinsky/zoolo/internal/logger"
	"github.com/abrezinsky/zoolo/internal/schedule"
	"github.com/abrezinsky/zoolo/internal/services"
)

// WSServer upgrades terminal connections to the push channel
type WSServer interface {
	ServeWs(w http.ResponseWriter, r *http.Request)
}

// MetricsExporter instruments requests and exposes the scrape endpoint
type MetricsExporter interface {
	Handler() http.Handler
	Middleware(next http.Handler) http.Handler
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Agencies services.AgencyServicer
	Tickets  services.TicketServicer
	Results  services.ResultServicer
	Cash     services.CashServicer
	Risk     services.RiskServicer
	Policy   *schedule.Policy
	Auth     *auth.Auth
	Log      logger.Logger

	hub     WSServer
	metrics MetricsExporter
	ping    func(ctx context.Context) error
}

// New creates a new Handlers instance with all dependencies
func New(
	agencies services.AgencyServicer,
	tickets services.TicketServicer,
	results services.ResultServicer,
	cash services.CashServicer,
	risk services.RiskServicer,
	policy *schedule.Policy,
	sessions *auth.Auth,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Agencies: agencies,
		Tickets:  tickets,
		Results:  results,
		Cash:     cash,
		Risk:     risk,
		Policy:   policy,
		Auth:     sessions,
		Log:      log,
	}
}

// SetHub mounts the websocket endpoint at /ws
func (h *Handlers) SetHub(hub WSServer) {
	h.hub = hub
}

// SetMetrics enables request instrumentation and /metrics
func (h *Handlers) SetMetrics(m MetricsExporter) {
	h.metrics = m
}

// SetHealthCheck sets the probe used by /healthz
func (h *Handlers) SetHealthCheck(ping func(ctx context.Context) error) {
	h.ping = ping
}
