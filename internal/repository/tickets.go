package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/abrezinsky/zoolo/internal/models"
)

// ==================== Ticket Methods ====================

const ticketColumns = `t.id, t.serial, t.agency_id, t.sale_date, t.created_at, t.total, t.paid, t.voided, t.paid_at, t.voided_at`

func scanTicket(row rowScanner) (*models.Ticket, error) {
	var tk models.Ticket
	var paidAt, voidedAt sql.NullTime
	err := row.Scan(&tk.ID, &tk.Serial, &tk.AgencyID, &tk.SaleDate, &tk.CreatedAt, &tk.Total, &tk.Paid, &tk.Voided, &paidAt, &voidedAt)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		tk.PaidAt = &paidAt.Time
	}
	if voidedAt.Valid {
		tk.VoidedAt = &voidedAt.Time
	}
	return &tk, nil
}

// where renders the filter as a SQL condition over the tickets alias t
func (f TicketFilter) where() (string, []any) {
	clauses := []string{"1 = 1"}
	var args []any
	if f.AgencyID != 0 {
		clauses = append(clauses, "t.agency_id = ?")
		args = append(args, f.AgencyID)
	}
	if f.From != "" {
		clauses = append(clauses, "t.sale_date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		clauses = append(clauses, "t.sale_date <= ?")
		args = append(args, f.To)
	}
	if !f.IncludeVoided {
		clauses = append(clauses, "t.voided = 0")
	}
	return strings.Join(clauses, " AND "), args
}

// idQuery returns a sub-select of the ticket IDs matched by the filter
func (f TicketFilter) idQuery() (string, []any) {
	where, args := f.where()
	q := `SELECT t.id FROM tickets t WHERE ` + where + ` ORDER BY t.id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	return q, args
}

// CreateTicket persists a ticket header and all of its lines in one
// transaction. IDs are written back into the bundle.
func (r *Repository) CreateTicket(ctx context.Context, bundle *models.TicketBundle) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tk := &bundle.Ticket
	result, err := tx.ExecContext(ctx, `
		INSERT INTO tickets (serial, agency_id, sale_date, created_at, total)
		VALUES (?, ?, ?, ?, ?)
	`, tk.Serial, tk.AgencyID, tk.SaleDate, tk.CreatedAt, tk.Total)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	tk.ID, err = result.LastInsertId()
	if err != nil {
		return err
	}

	for i := range bundle.Wagers {
		w := &bundle.Wagers[i]
		w.TicketID = tk.ID
		res, err := tx.ExecContext(ctx, `
			INSERT INTO wagers (ticket_id, slot, kind, selection, amount)
			VALUES (?, ?, ?, ?, ?)
		`, w.TicketID, w.Slot, string(w.Kind), w.Selection, w.Amount)
		if err != nil {
			return err
		}
		if w.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}

	for i := range bundle.Tripletas {
		tr := &bundle.Tripletas[i]
		tr.TicketID = tk.ID
		res, err := tx.ExecContext(ctx, `
			INSERT INTO tripletas (ticket_id, animal1, animal2, animal3, amount, draw_date)
			VALUES (?, ?, ?, ?, ?, ?)
		`, tr.TicketID, tr.Animals[0], tr.Animals[1], tr.Animals[2], tr.Amount, tr.DrawDate)
		if err != nil {
			return err
		}
		if tr.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetTicket retrieves a ticket header by ID
func (r *Repository) GetTicket(ctx context.Context, id int64) (*models.Ticket, error) {
	tk, err := scanTicket(r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return tk, err
}

// GetTicketBySerial retrieves a ticket header by its printed serial
func (r *Repository) GetTicketBySerial(ctx context.Context, serial string) (*models.Ticket, error) {
	tk, err := scanTicket(r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.serial = ?`, serial))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return tk, err
}

// GetTicketBundle loads a ticket with all its lines
func (r *Repository) GetTicketBundle(ctx context.Context, id int64) (*models.TicketBundle, error) {
	tk, err := r.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	wagers, err := r.queryWagers(ctx, `SELECT w.id, w.ticket_id, w.slot, w.kind, w.selection, w.amount FROM wagers w WHERE w.ticket_id = ? ORDER BY w.id`, id)
	if err != nil {
		return nil, err
	}
	tripletas, err := r.queryTripletas(ctx, `SELECT tr.id, tr.ticket_id, tr.animal1, tr.animal2, tr.animal3, tr.amount, tr.draw_date FROM tripletas tr WHERE tr.ticket_id = ? ORDER BY tr.id`, id)
	if err != nil {
		return nil, err
	}
	return &models.TicketBundle{Ticket: *tk, Wagers: wagers, Tripletas: tripletas}, nil
}

// ListTickets returns ticket headers matched by filter, newest first
func (r *Repository) ListTickets(ctx context.Context, filter TicketFilter) ([]models.Ticket, error) {
	where, args := filter.where()
	q := `SELECT ` + ticketColumns + ` FROM tickets t WHERE ` + where + ` ORDER BY t.id DESC`
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := []models.Ticket{}
	for rows.Next() {
		tk, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *tk)
	}
	return tickets, rows.Err()
}

// ListTicketBundles returns tickets matched by filter with their lines,
// loading all lines in two queries.
func (r *Repository) ListTicketBundles(ctx context.Context, filter TicketFilter) ([]models.TicketBundle, error) {
	tickets, err := r.ListTickets(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return []models.TicketBundle{}, nil
	}

	ids, args := filter.idQuery()
	wagers, err := r.queryWagers(ctx, `
		SELECT w.id, w.ticket_id, w.slot, w.kind, w.selection, w.amount FROM wagers w
		WHERE w.ticket_id IN (`+ids+`) ORDER BY w.id`, args...)
	if err != nil {
		return nil, err
	}
	tripletas, err := r.queryTripletas(ctx, `
		SELECT tr.id, tr.ticket_id, tr.animal1, tr.animal2, tr.animal3, tr.amount, tr.draw_date FROM tripletas tr
		WHERE tr.ticket_id IN (`+ids+`) ORDER BY tr.id`, args...)
	if err != nil {
		return nil, err
	}

	bundles := make([]models.TicketBundle, len(tickets))
	pos := make(map[int64]int, len(tickets))
	for i, tk := range tickets {
		bundles[i] = models.TicketBundle{Ticket: tk, Wagers: []models.Wager{}, Tripletas: []models.Tripleta{}}
		pos[tk.ID] = i
	}
	for _, w := range wagers {
		if i, ok := pos[w.TicketID]; ok {
			bundles[i].Wagers = append(bundles[i].Wagers, w)
		}
	}
	for _, tr := range tripletas {
		if i, ok := pos[tr.TicketID]; ok {
			bundles[i].Tripletas = append(bundles[i].Tripletas, tr)
		}
	}
	return bundles, nil
}

// MarkTicketPaid flips the paid flag if the ticket is neither paid nor
// voided. It reports whether the row changed.
func (r *Repository) MarkTicketPaid(ctx context.Context, id int64, at time.Time) (bool, error) {
	return r.compareAndSet(ctx, `UPDATE tickets SET paid = 1, paid_at = ? WHERE id = ? AND paid = 0 AND voided = 0`, at, id)
}

// MarkTicketVoided flips the voided flag if the ticket is neither paid nor
// voided. It reports whether the row changed.
func (r *Repository) MarkTicketVoided(ctx context.Context, id int64, at time.Time) (bool, error) {
	return r.compareAndSet(ctx, `UPDATE tickets SET voided = 1, voided_at = ? WHERE id = ? AND paid = 0 AND voided = 0`, at, id)
}

func (r *Repository) compareAndSet(ctx context.Context, query string, args ...any) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListSlotWagers returns the wagers of one kind placed on a slot by
// non-voided tickets sold on date
func (r *Repository) ListSlotWagers(ctx context.Context, date, slot string, kind models.BetKind) ([]models.Wager, error) {
	return r.queryWagers(ctx, `
		SELECT w.id, w.ticket_id, w.slot, w.kind, w.selection, w.amount
		FROM wagers w JOIN tickets t ON t.id = w.ticket_id
		WHERE t.sale_date = ? AND t.voided = 0 AND w.slot = ? AND w.kind = ?
		ORDER BY w.id
	`, date, slot, string(kind))
}

// ListTripletaSales returns the tripletas of non-voided tickets for a draw date
func (r *Repository) ListTripletaSales(ctx context.Context, date string) ([]TripletaSale, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tr.id, tr.ticket_id, tr.animal1, tr.animal2, tr.animal3, tr.amount, tr.draw_date,
			t.serial, t.agency_id, t.paid
		FROM tripletas tr JOIN tickets t ON t.id = tr.ticket_id
		WHERE tr.draw_date = ? AND t.voided = 0
		ORDER BY tr.id
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := []TripletaSale{}
	for rows.Next() {
		var s TripletaSale
		err := rows.Scan(&s.ID, &s.TicketID, &s.Animals[0], &s.Animals[1], &s.Animals[2], &s.Amount, &s.DrawDate,
			&s.Serial, &s.AgencyID, &s.Paid)
		if err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

func (r *Repository) queryWagers(ctx context.Context, query string, args ...any) ([]models.Wager, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wagers := []models.Wager{}
	for rows.Next() {
		var w models.Wager
		var kind string
		if err := rows.Scan(&w.ID, &w.TicketID, &w.Slot, &kind, &w.Selection, &w.Amount); err != nil {
			return nil, err
		}
		w.Kind = models.BetKind(kind)
		wagers = append(wagers, w)
	}
	return wagers, rows.Err()
}

func (r *Repository) queryTripletas(ctx context.Context, query string, args ...any) ([]models.Tripleta, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tripletas := []models.Tripleta{}
	for rows.Next() {
		var tr models.Tripleta
		if err := rows.Scan(&tr.ID, &tr.TicketID, &tr.Animals[0], &tr.Animals[1], &tr.Animals[2], &tr.Amount, &tr.DrawDate); err != nil {
			return nil, err
		}
		tripletas = append(tripletas, tr)
	}
	return tripletas, rows.Err()
}
