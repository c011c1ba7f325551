package handlers

import (
	"net/http"

	"github.com/abrezinsky/zoolo/internal/services"
)

// handlePostResult records the animal drawn for a slot
func (h *Handlers) handlePostResult(w http.ResponseWriter, r *http.Request) {
	var req ResultPostRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.Results.Post(r.Context(), actor(r), req.Date, req.Slot, req.Code)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, result)
}

// handleRisk returns the exposure of a slot. Without a slot it reports the
// draw the operator is most exposed to right now.
func (h *Handlers) handleRisk(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		risk *services.Risk
		err  error
	)
	if q.Get("slot") == "" {
		risk, err = h.Risk.CurrentRisk(r.Context(), actor(r))
	} else {
		risk, err = h.Risk.RiskForSlot(r.Context(), actor(r), q.Get("slot"), q.Get("date"))
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, risk)
}

// handleTripletas lists the tripletas of a date with their progress
func (h *Handlers) handleTripletas(w http.ResponseWriter, r *http.Request) {
	report, err := h.Tickets.TripletasForDate(r.Context(), actor(r), r.URL.Query().Get("date"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, report)
}

// handleReport returns the cash summary of every agency over a range
func (h *Handlers) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := h.Cash.AgencyReport(r.Context(), actor(r), q.Get("from"), q.Get("to"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, report)
}

func (h *Handlers) handleListAgencies(w http.ResponseWriter, r *http.Request) {
	agencies, err := h.Agencies.List(r.Context(), actor(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, agencies)
}

func (h *Handlers) handleCreateAgency(w http.ResponseWriter, r *http.Request) {
	var req services.NewAgency
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	agency, err := h.Agencies.Create(r.Context(), actor(r), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondCreated(w, agency)
}

func (h *Handlers) handleGetAgency(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	agency, err := h.Agencies.Get(r.Context(), actor(r), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, agency)
}

// handleUpdateAgency changes an agency. Disabling it or changing its
// password ends its open sessions.
func (h *Handlers) handleUpdateAgency(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req services.AgencyUpdate
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	agency, err := h.Agencies.Update(r.Context(), actor(r), id, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if !agency.Active || req.Password != nil {
		h.Auth.LogoutAgency(agency.ID)
	}
	respondOK(w, agency)
}
