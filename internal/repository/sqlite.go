package repository

import (
	"context"
	"database/sql"

	"github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/zoolo/internal/models"
)

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	// Run migrations
	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// NewWithDB wraps an existing connection without running migrations.
// Used with sqlmock in tests.
func NewWithDB(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// DB returns the underlying database connection (for transactions)
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Version reports the linked sqlite library version
func Version() string {
	v, _, _ := sqlite3.Version()
	return v
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS agencies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			name TEXT NOT NULL,
			commission_rate TEXT NOT NULL DEFAULT '0.15',
			admin BOOLEAN NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS tickets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			serial TEXT UNIQUE NOT NULL,
			agency_id INTEGER NOT NULL,
			sale_date TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			total TEXT NOT NULL,
			paid BOOLEAN NOT NULL DEFAULT 0,
			voided BOOLEAN NOT NULL DEFAULT 0,
			paid_at DATETIME,
			voided_at DATETIME,
			FOREIGN KEY (agency_id) REFERENCES agencies(id),
			CHECK (NOT (paid = 1 AND voided = 1))
		)`,
		`CREATE TABLE IF NOT EXISTS wagers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticket_id INTEGER NOT NULL,
			slot TEXT NOT NULL,
			kind TEXT NOT NULL,
			selection TEXT NOT NULL,
			amount TEXT NOT NULL,
			FOREIGN KEY (ticket_id) REFERENCES tickets(id)
		)`,
		`CREATE TABLE IF NOT EXISTS tripletas (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticket_id INTEGER NOT NULL,
			animal1 TEXT NOT NULL,
			animal2 TEXT NOT NULL,
			animal3 TEXT NOT NULL,
			amount TEXT NOT NULL,
			draw_date TEXT NOT NULL,
			FOREIGN KEY (ticket_id) REFERENCES tickets(id)
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			draw_date TEXT NOT NULL,
			slot TEXT NOT NULL,
			code TEXT NOT NULL,
			posted_at DATETIME NOT NULL,
			UNIQUE(draw_date, slot)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_agency_date ON tickets(agency_id, sale_date)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_date ON tickets(sale_date)`,
		`CREATE INDEX IF NOT EXISTS idx_wagers_ticket ON wagers(ticket_id)`,
		`CREATE INDEX IF NOT EXISTS idx_wagers_slot ON wagers(slot, kind)`,
		`CREATE INDEX IF NOT EXISTS idx_tripletas_ticket ON tripletas(ticket_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tripletas_date ON tripletas(draw_date)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

// ==================== Agency Methods ====================

const agencyColumns = `id, username, password_hash, name, commission_rate, admin, active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgency(row rowScanner) (*models.Agency, error) {
	var a models.Agency
	var createdAt sql.NullTime
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Name, &a.CommissionRate, &a.Admin, &a.Active, &createdAt)
	if err != nil {
		return nil, err
	}
	if createdAt.Valid {
		a.CreatedAt = createdAt.Time
	}
	return &a, nil
}

// CreateAgency inserts an agency and returns its ID
func (r *Repository) CreateAgency(ctx context.Context, agency *models.Agency) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO agencies (username, password_hash, name, commission_rate, admin, active)
		VALUES (?, ?, ?, ?, ?, ?)
	`, agency.Username, agency.PasswordHash, agency.Name, agency.CommissionRate, agency.Admin, agency.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	agency.ID = id
	return id, nil
}

// GetAgency retrieves an agency by ID
func (r *Repository) GetAgency(ctx context.Context, id int64) (*models.Agency, error) {
	a, err := scanAgency(r.db.QueryRowContext(ctx, `SELECT `+agencyColumns+` FROM agencies WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return a, err
}

// GetAgencyByUsername retrieves an agency by its login name
func (r *Repository) GetAgencyByUsername(ctx context.Context, username string) (*models.Agency, error) {
	a, err := scanAgency(r.db.QueryRowContext(ctx, `SELECT `+agencyColumns+` FROM agencies WHERE username = ?`, username))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return a, err
}

// ListAgencies returns every agency, operators first
func (r *Repository) ListAgencies(ctx context.Context) ([]models.Agency, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+agencyColumns+` FROM agencies ORDER BY admin DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agencies := []models.Agency{}
	for rows.Next() {
		a, err := scanAgency(rows)
		if err != nil {
			return nil, err
		}
		agencies = append(agencies, *a)
	}
	return agencies, rows.Err()
}

// UpdateAgency saves the mutable fields of an agency
func (r *Repository) UpdateAgency(ctx context.Context, agency *models.Agency) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE agencies SET password_hash = ?, name = ?, commission_rate = ?, active = ?
		WHERE id = ?
	`, agency.PasswordHash, agency.Name, agency.CommissionRate, agency.Active, agency.ID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==================== Result Methods ====================

// UpsertResult records the drawn animal for a slot, replacing any earlier post
func (r *Repository) UpsertResult(ctx context.Context, result models.DrawResult) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO results (draw_date, slot, code, posted_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(draw_date, slot) DO UPDATE SET code = excluded.code, posted_at = excluded.posted_at
	`, result.Date, result.Slot, result.Code, result.PostedAt)
	return err
}

// GetResult returns the result of one slot
func (r *Repository) GetResult(ctx context.Context, date, slot string) (*models.DrawResult, error) {
	var res models.DrawResult
	err := r.db.QueryRowContext(ctx, `
		SELECT draw_date, slot, code, posted_at FROM results WHERE draw_date = ? AND slot = ?
	`, date, slot).Scan(&res.Date, &res.Slot, &res.Code, &res.PostedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListResults returns every posted result of a day
func (r *Repository) ListResults(ctx context.Context, date string) ([]models.DrawResult, error) {
	return r.ListResultsBetween(ctx, date, date)
}

// ListResultsBetween returns posted results for an inclusive date range
func (r *Repository) ListResultsBetween(ctx context.Context, from, to string) ([]models.DrawResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT draw_date, slot, code, posted_at FROM results
		WHERE draw_date >= ? AND draw_date <= ?
		ORDER BY draw_date, id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []models.DrawResult{}
	for rows.Next() {
		var res models.DrawResult
		if err := rows.Scan(&res.Date, &res.Slot, &res.Code, &res.PostedAt); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
