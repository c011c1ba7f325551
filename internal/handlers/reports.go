package handlers

import (
	"net/http"

	"github.com/abrezinsky/zoolo/internal/errors"
)

// handleHealth reports whether the store is reachable
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			h.Log.Error("Health check failed", "error", err)
			respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
			return
		}
	}
	respondOK(w, HealthResponse{Status: "ok"})
}

// handleSchedule returns the draw schedule and the current sales window
func (h *Handlers) handleSchedule(w http.ResponseWriter, r *http.Request) {
	now := h.Policy.Now()
	respondOK(w, ScheduleResponse{
		Now:             now,
		Date:            h.Policy.Date(now),
		Timezone:        h.Policy.Location.String(),
		BlackoutMinutes: int(h.Policy.Blackout.Minutes()),
		Slots:           h.Policy.Slots,
		Closed:          h.Policy.ClosedSlots(now),
		Target:          h.Policy.TargetSlot(now),
	})
}

// handleGetResults returns every slot of a date with its posted result
func (h *Handlers) handleGetResults(w http.ResponseWriter, r *http.Request) {
	day, err := h.Results.Get(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, day)
}

// handleCaja returns the daily cash summary of the caller's agency, or of
// agency_id for the operator
func (h *Handlers) handleCaja(w http.ResponseWriter, r *http.Request) {
	agencyID, err := parseIntQuery(r, "agency_id", 0)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	caja, err := h.Cash.DailyCaja(r.Context(), actor(r), int64(agencyID), r.URL.Query().Get("date"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, caja)
}

// handleCajaRange returns one cash row per day of a range
func (h *Handlers) handleCajaRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("from") == "" {
		h.respondError(w, r, errors.Validation("from is required"))
		return
	}
	agencyID, err := parseIntQuery(r, "agency_id", 0)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	report, err := h.Cash.CajaRange(r.Context(), actor(r), int64(agencyID), q.Get("from"), q.Get("to"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, report)
}
