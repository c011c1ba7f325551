package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/zoolo/internal/services"
)

// handleSell validates and stores a new ticket
func (h *Handlers) handleSell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	receipt, err := h.Tickets.Sell(r.Context(), actor(r), req.Lines)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondCreated(w, receipt)
}

// handleListTickets lists tickets of a date range with their outcome
func (h *Handlers) handleListTickets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseIntQuery(r, "limit", 0)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	agencyID, err := parseIntQuery(r, "agency_id", 0)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	tickets, err := h.Tickets.ListTickets(r.Context(), actor(r), services.TicketQuery{
		AgencyID: int64(agencyID),
		From:     q.Get("from"),
		To:       q.Get("to"),
		Limit:    limit,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, tickets)
}

// handleGetTicket returns a ticket with its lines and settlement
func (h *Handlers) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Tickets.GetTicket(r.Context(), actor(r), chi.URLParam(r, "ticket"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, detail)
}

// handleTicketQR renders the ticket serial as a PNG QR code
func (h *Handlers) handleTicketQR(w http.ResponseWriter, r *http.Request) {
	size, err := parseIntQuery(r, "size", 0)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	png, err := h.Tickets.QRCode(r.Context(), actor(r), chi.URLParam(r, "ticket"), size)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Write(png)
}

// handleVerify reports the status and prize of a ticket by serial
func (h *Handlers) handleVerify(w http.ResponseWriter, r *http.Request) {
	v, err := h.Tickets.Verify(r.Context(), actor(r), chi.URLParam(r, "ticket"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, v)
}

// handleVoid cancels a ticket inside the void window
func (h *Handlers) handleVoid(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "ticket")
	if err := h.Tickets.Void(r.Context(), actor(r), serial); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondSuccess(w, "ticket "+serial+" voided")
}

// handlePay marks a ticket as paid and returns the prize handed out
func (h *Handlers) handlePay(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "ticket")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	payment, err := h.Tickets.MarkPaid(r.Context(), actor(r), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, payment)
}
