package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abrezinsky/zoolo/internal/auth"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	if h.metrics != nil {
		r.Use(h.metrics.Middleware)
	}

	// Infrastructure
	r.Get("/healthz", h.handleHealth)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler())
	}
	if h.hub != nil {
		r.Get("/ws", h.hub.ServeWs)
	}

	// Sessions (public)
	r.Post("/api/login", h.handleLogin)
	r.Post("/api/logout", h.handleLogout)

	// Agency API (any logged-in caller)
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireAuthAPI)
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/api/me", h.handleMe)
		r.Get("/api/schedule", h.handleSchedule)
		r.Get("/api/results", h.handleGetResults)

		// Tickets
		r.Post("/api/tickets", h.handleSell)
		r.Get("/api/tickets", h.handleListTickets)
		r.Get("/api/tickets/{ticket}", h.handleGetTicket)
		r.Get("/api/tickets/{ticket}/qr", h.handleTicketQR)
		r.Post("/api/tickets/{ticket}/verify", h.handleVerify)
		r.Post("/api/tickets/{ticket}/void", h.handleVoid)
		r.Post("/api/tickets/{ticket}/pay", h.handlePay)

		// Cash
		r.Get("/api/caja", h.handleCaja)
		r.Get("/api/caja/range", h.handleCajaRange)
	})

	// Operator API
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireAuthAPI)
		r.Use(auth.RequireAdmin)
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post("/api/admin/results", h.handlePostResult)
		r.Get("/api/admin/risk", h.handleRisk)
		r.Get("/api/admin/tripletas", h.handleTripletas)
		r.Get("/api/admin/report", h.handleReport)

		// Agencies
		r.Get("/api/admin/agencies", h.handleListAgencies)
		r.Post("/api/admin/agencies", h.handleCreateAgency)
		r.Get("/api/admin/agencies/{id}", h.handleGetAgency)
		r.Put("/api/admin/agencies/{id}", h.handleUpdateAgency)
	})

	return r
}
