/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements booking.Store and booking.TxStore using SQLite, plus the
  back-office record types that never reach the core (content pages).

INTERFACES IMPLEMENTED:
  booking.Store:   Agencies, slots, appointments, tokens
  booking.TxStore: Atomic multi-record writes for reserve/rebind

KEY TABLES:
  agencies:     Where appointments take place
  slots:        Bookable time windows with a maintained open/held status
  appointments: Bookings with owner identity and lifecycle status
  tokens:       Capability tokens; at most one active per appointment
                (enforced by a partial unique index)
  pages:        Admin-editable content pages (boundary only)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole transaction; the tx-scoped store issues lock-free queries against
  the open sql.Tx so nothing re-enters the mutex.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency
  and crash recovery. Foreign keys are enabled.

USAGE:
  store, err := sqlite.New("./data/booking.db")  // or ":memory:"
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - booking/store.go: Interface definitions
  - booking/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/osengo/booking-engine/booking"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to :memory: gets its own database, so the
	// pool must stay on a single connection there.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Agencies
	CREATE TABLE IF NOT EXISTS agencies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		city TEXT,
		description TEXT,
		created_at TEXT NOT NULL
	);

	-- Slots (status is maintained by the ledger, never recomputed)
	CREATE TABLE IF NOT EXISTS slots (
		id TEXT PRIMARY KEY,
		agency_id TEXT NOT NULL REFERENCES agencies(id),
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open'
	);

	CREATE INDEX IF NOT EXISTS idx_slots_agency_status
		ON slots(agency_id, status, start_at);

	-- Appointments
	CREATE TABLE IF NOT EXISTS appointments (
		id TEXT PRIMARY KEY,
		slot_id TEXT NOT NULL,
		name TEXT NOT NULL,
		surname TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL,
		city TEXT,
		postal_code TEXT,
		project_stage TEXT,
		sector TEXT,
		description TEXT,
		needs TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_appointments_slot
		ON appointments(slot_id);
	CREATE INDEX IF NOT EXISTS idx_appointments_status
		ON appointments(status);
	CREATE INDEX IF NOT EXISTS idx_appointments_created
		ON appointments(created_at);

	-- Tokens (capability strings for self-service cancel/reschedule)
	CREATE TABLE IF NOT EXISTS tokens (
		value TEXT PRIMARY KEY,
		appointment_id TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		revoked_at TEXT
	);

	-- CRITICAL: at most one active token per appointment
	CREATE UNIQUE INDEX IF NOT EXISTS idx_tokens_one_active
		ON tokens(appointment_id) WHERE active;

	-- Content pages (back-office only, never touch the core)
	CREATE TABLE IF NOT EXISTS pages (
		id TEXT PRIMARY KEY,
		slug TEXT UNIQUE NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// AGENCIES (booking.Store interface)
// =============================================================================

func (s *Store) SaveAgency(ctx context.Context, a booking.Agency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveAgency(ctx, s.db, a)
}

func (s *Store) saveAgency(ctx context.Context, db dbtx, a booking.Agency) error {
	query := `
		INSERT INTO agencies (id, name, city, description, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			city = excluded.city,
			description = excluded.description
	`
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, query,
		a.ID, a.Name, a.City, a.Description, createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save agency: %w", err)
	}
	return nil
}

func (s *Store) GetAgency(ctx context.Context, id booking.AgencyID) (*booking.Agency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getAgency(ctx, s.db, id)
}

func (s *Store) getAgency(ctx context.Context, db dbtx, id booking.AgencyID) (*booking.Agency, error) {
	var a booking.Agency
	var createdAt string
	err := db.QueryRowContext(ctx,
		"SELECT id, name, city, description, created_at FROM agencies WHERE id = ?", id,
	).Scan(&a.ID, &a.Name, &a.City, &a.Description, &createdAt)
	if err == sql.ErrNoRows {
		return nil, booking.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agency: %w", err)
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

func (s *Store) ListAgencies(ctx context.Context) ([]booking.Agency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, city, description, created_at FROM agencies ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list agencies: %w", err)
	}
	defer rows.Close()

	var agencies []booking.Agency
	for rows.Next() {
		var a booking.Agency
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Name, &a.City, &a.Description, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		agencies = append(agencies, a)
	}
	return agencies, rows.Err()
}

// DeleteAgency removes an agency and its slots. Fails with ErrSlotInUse if
// any slot is currently held by a live appointment.
func (s *Store) DeleteAgency(ctx context.Context, id booking.AgencyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var held int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM slots WHERE agency_id = ? AND status = 'held'", id,
	).Scan(&held)
	if err != nil {
		return fmt.Errorf("failed to check agency slots: %w", err)
	}
	if held > 0 {
		return booking.ErrSlotInUse
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM slots WHERE agency_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete agency slots: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM agencies WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete agency: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return booking.ErrNotFound
	}
	return tx.Commit()
}

// =============================================================================
// SLOTS (booking.Store interface)
// =============================================================================

func (s *Store) SaveSlot(ctx context.Context, slot booking.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveSlot(ctx, s.db, slot)
}

func (s *Store) saveSlot(ctx context.Context, db dbtx, slot booking.Slot) error {
	query := `
		INSERT INTO slots (id, agency_id, start_at, end_at, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_at = excluded.start_at,
			end_at = excluded.end_at
	`
	_, err := db.ExecContext(ctx, query,
		slot.ID, slot.AgencyID,
		slot.Start.UTC().Format(time.RFC3339),
		slot.End.UTC().Format(time.RFC3339),
		slot.Status)
	if err != nil {
		return fmt.Errorf("failed to save slot: %w", err)
	}
	return nil
}

func (s *Store) GetSlot(ctx context.Context, id booking.SlotID) (*booking.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSlot(ctx, s.db, id)
}

func (s *Store) getSlot(ctx context.Context, db dbtx, id booking.SlotID) (*booking.Slot, error) {
	var slot booking.Slot
	var start, end string
	err := db.QueryRowContext(ctx,
		"SELECT id, agency_id, start_at, end_at, status FROM slots WHERE id = ?", id,
	).Scan(&slot.ID, &slot.AgencyID, &start, &end, &slot.Status)
	if err == sql.ErrNoRows {
		return nil, booking.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	slot.Start, _ = time.Parse(time.RFC3339, start)
	slot.End, _ = time.Parse(time.RFC3339, end)
	return &slot, nil
}

func (s *Store) ListSlots(ctx context.Context, agencyID booking.AgencyID, onlyOpen bool) ([]booking.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listSlots(ctx, s.db, agencyID, onlyOpen)
}

func (s *Store) listSlots(ctx context.Context, db dbtx, agencyID booking.AgencyID, onlyOpen bool) ([]booking.Slot, error) {
	query := "SELECT id, agency_id, start_at, end_at, status FROM slots WHERE agency_id = ?"
	args := []any{agencyID}
	if onlyOpen {
		query += " AND status = 'open'"
	}
	query += " ORDER BY start_at ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	var slots []booking.Slot
	for rows.Next() {
		var slot booking.Slot
		var start, end string
		if err := rows.Scan(&slot.ID, &slot.AgencyID, &start, &end, &slot.Status); err != nil {
			return nil, err
		}
		slot.Start, _ = time.Parse(time.RFC3339, start)
		slot.End, _ = time.Parse(time.RFC3339, end)
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// UpdateSlotStatus applies the transition only if the slot currently has
// status `from`; a guarded UPDATE keeps the check-and-set atomic.
func (s *Store) UpdateSlotStatus(ctx context.Context, id booking.SlotID, from, to booking.SlotStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateSlotStatus(ctx, s.db, id, from, to)
}

func (s *Store) updateSlotStatus(ctx context.Context, db dbtx, id booking.SlotID, from, to booking.SlotStatus) error {
	res, err := db.ExecContext(ctx,
		"UPDATE slots SET status = ? WHERE id = ? AND status = ?", to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update slot status: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	// Distinguish missing from already-transitioned.
	var exists int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM slots WHERE id = ?", id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check slot: %w", err)
	}
	if exists == 0 {
		return booking.ErrNotFound
	}
	return booking.ErrInvalidTransition
}

func (s *Store) DeleteSlot(ctx context.Context, id booking.SlotID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM slots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return booking.ErrNotFound
	}
	return nil
}

// =============================================================================
// APPOINTMENTS (booking.Store interface)
// =============================================================================

const appointmentColumns = `id, slot_id, name, surname, email, phone, city, postal_code,
	project_stage, sector, description, needs, status, created_at`

func (s *Store) SaveAppointment(ctx context.Context, a booking.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveAppointment(ctx, s.db, a)
}

func (s *Store) saveAppointment(ctx context.Context, db dbtx, a booking.Appointment) error {
	query := `
		INSERT INTO appointments
		(id, slot_id, name, surname, email, phone, city, postal_code,
		 project_stage, sector, description, needs, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			slot_id = excluded.slot_id,
			status = excluded.status
	`
	_, err := db.ExecContext(ctx, query,
		a.ID, a.SlotID,
		a.Owner.Name, a.Owner.Surname, a.Owner.Email, a.Owner.Phone,
		a.Owner.City, a.Owner.PostalCode, a.Owner.ProjectStage, a.Owner.Sector,
		a.Owner.Description, a.Owner.Needs,
		a.Status, a.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save appointment: %w", err)
	}
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id booking.AppointmentID) (*booking.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getAppointment(ctx, s.db, id)
}

func (s *Store) getAppointment(ctx context.Context, db dbtx, id booking.AppointmentID) (*booking.Appointment, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+appointmentColumns+" FROM appointments WHERE id = ?", id)
	appt, err := scanAppointment(row)
	if err == sql.ErrNoRows {
		return nil, booking.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return appt, nil
}

func (s *Store) ListAppointments(ctx context.Context, filter booking.AppointmentFilter) ([]booking.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var conditions []string
	var args []any
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.AgencyID != "" {
		conditions = append(conditions, "slot_id IN (SELECT id FROM slots WHERE agency_id = ?)")
		args = append(args, filter.AgencyID)
	}

	query := "SELECT " + appointmentColumns + " FROM appointments"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	// Creation ascending is the stable enumeration order for exports.
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	var appts []booking.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *appt)
	}
	return appts, rows.Err()
}

func (s *Store) GetLiveAppointmentBySlot(ctx context.Context, slotID booking.SlotID) (*booking.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLiveAppointmentBySlot(ctx, s.db, slotID)
}

func (s *Store) getLiveAppointmentBySlot(ctx context.Context, db dbtx, slotID booking.SlotID) (*booking.Appointment, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+appointmentColumns+" FROM appointments WHERE slot_id = ? AND status IN (?, ?) LIMIT 1",
		slotID, booking.StatusPendingReview, booking.StatusConfirmed)
	appt, err := scanAppointment(row)
	if err == sql.ErrNoRows {
		return nil, booking.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get live appointment for slot: %w", err)
	}
	return appt, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row scanner) (*booking.Appointment, error) {
	var a booking.Appointment
	var city, postalCode, projectStage, sector, description, needs sql.NullString
	var createdAt string

	err := row.Scan(
		&a.ID, &a.SlotID,
		&a.Owner.Name, &a.Owner.Surname, &a.Owner.Email, &a.Owner.Phone,
		&city, &postalCode, &projectStage, &sector, &description, &needs,
		&a.Status, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	a.Owner.City = city.String
	a.Owner.PostalCode = postalCode.String
	a.Owner.ProjectStage = projectStage.String
	a.Owner.Sector = sector.String
	a.Owner.Description = description.String
	a.Owner.Needs = needs.String
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

// =============================================================================
// TOKENS (booking.Store interface)
// =============================================================================

func (s *Store) SaveToken(ctx context.Context, t booking.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveToken(ctx, s.db, t)
}

func (s *Store) saveToken(ctx context.Context, db dbtx, t booking.Token) error {
	var revokedAt *string
	if t.RevokedAt != nil {
		v := t.RevokedAt.UTC().Format(time.RFC3339)
		revokedAt = &v
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO tokens (value, appointment_id, active, created_at, revoked_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.Value, t.AppointmentID, t.Active,
		t.CreatedAt.UTC().Format(time.RFC3339), revokedAt)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (s *Store) GetActiveToken(ctx context.Context, value string) (*booking.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getActiveToken(ctx, s.db, value)
}

func (s *Store) getActiveToken(ctx context.Context, db dbtx, value string) (*booking.Token, error) {
	var t booking.Token
	var createdAt string
	var revokedAt sql.NullString
	err := db.QueryRowContext(ctx,
		"SELECT value, appointment_id, active, created_at, revoked_at FROM tokens WHERE value = ? AND active", value,
	).Scan(&t.Value, &t.AppointmentID, &t.Active, &createdAt, &revokedAt)
	if err == sql.ErrNoRows {
		return nil, booking.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &t, nil
}

func (s *Store) RevokeActiveToken(ctx context.Context, id booking.AppointmentID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revokeActiveToken(ctx, s.db, id, at)
}

func (s *Store) revokeActiveToken(ctx context.Context, db dbtx, id booking.AppointmentID, at time.Time) error {
	_, err := db.ExecContext(ctx,
		"UPDATE tokens SET active = FALSE, revoked_at = ? WHERE appointment_id = ? AND active",
		at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE (booking.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. The passed store
// routes every statement through the open sql.Tx without re-entering the
// store mutex, which this method holds for the duration.
func (s *Store) WithTx(ctx context.Context, fn func(store booking.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) SaveAgency(ctx context.Context, a booking.Agency) error {
	return ts.parent.saveAgency(ctx, ts.tx, a)
}

func (ts *txStore) GetAgency(ctx context.Context, id booking.AgencyID) (*booking.Agency, error) {
	return ts.parent.getAgency(ctx, ts.tx, id)
}

func (ts *txStore) ListAgencies(ctx context.Context) ([]booking.Agency, error) {
	return nil, fmt.Errorf("sqlite: ListAgencies not supported inside a transaction")
}

func (ts *txStore) DeleteAgency(ctx context.Context, id booking.AgencyID) error {
	return fmt.Errorf("sqlite: DeleteAgency not supported inside a transaction")
}

func (ts *txStore) SaveSlot(ctx context.Context, slot booking.Slot) error {
	return ts.parent.saveSlot(ctx, ts.tx, slot)
}

func (ts *txStore) GetSlot(ctx context.Context, id booking.SlotID) (*booking.Slot, error) {
	return ts.parent.getSlot(ctx, ts.tx, id)
}

func (ts *txStore) ListSlots(ctx context.Context, agencyID booking.AgencyID, onlyOpen bool) ([]booking.Slot, error) {
	return ts.parent.listSlots(ctx, ts.tx, agencyID, onlyOpen)
}

func (ts *txStore) UpdateSlotStatus(ctx context.Context, id booking.SlotID, from, to booking.SlotStatus) error {
	return ts.parent.updateSlotStatus(ctx, ts.tx, id, from, to)
}

func (ts *txStore) DeleteSlot(ctx context.Context, id booking.SlotID) error {
	return fmt.Errorf("sqlite: DeleteSlot not supported inside a transaction")
}

func (ts *txStore) SaveAppointment(ctx context.Context, a booking.Appointment) error {
	return ts.parent.saveAppointment(ctx, ts.tx, a)
}

func (ts *txStore) GetAppointment(ctx context.Context, id booking.AppointmentID) (*booking.Appointment, error) {
	return ts.parent.getAppointment(ctx, ts.tx, id)
}

func (ts *txStore) ListAppointments(ctx context.Context, filter booking.AppointmentFilter) ([]booking.Appointment, error) {
	return nil, fmt.Errorf("sqlite: ListAppointments not supported inside a transaction")
}

func (ts *txStore) GetLiveAppointmentBySlot(ctx context.Context, slotID booking.SlotID) (*booking.Appointment, error) {
	return ts.parent.getLiveAppointmentBySlot(ctx, ts.tx, slotID)
}

func (ts *txStore) SaveToken(ctx context.Context, t booking.Token) error {
	return ts.parent.saveToken(ctx, ts.tx, t)
}

func (ts *txStore) GetActiveToken(ctx context.Context, value string) (*booking.Token, error) {
	return ts.parent.getActiveToken(ctx, ts.tx, value)
}

func (ts *txStore) RevokeActiveToken(ctx context.Context, id booking.AppointmentID, at time.Time) error {
	return ts.parent.revokeActiveToken(ctx, ts.tx, id, at)
}

// =============================================================================
// CONTENT PAGES - Back-office records, never reach the core
// =============================================================================

// Page is an admin-editable content page (about, team, news).
type Page struct {
	ID      string
	Slug    string
	Title   string
	Content string
}

// SavePage inserts or updates a page.
func (s *Store) SavePage(ctx context.Context, p Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO pages (id, slug, title, content)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			slug = excluded.slug,
			title = excluded.title,
			content = excluded.content
	`
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Slug, p.Title, p.Content)
	if err != nil {
		return fmt.Errorf("failed to save page: %w", err)
	}
	return nil
}

// GetPageBySlug retrieves a page by its slug.
func (s *Store) GetPageBySlug(ctx context.Context, slug string) (*Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p Page
	err := s.db.QueryRowContext(ctx,
		"SELECT id, slug, title, content FROM pages WHERE slug = ?", slug,
	).Scan(&p.ID, &p.Slug, &p.Title, &p.Content)
	if err == sql.ErrNoRows {
		return nil, booking.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return &p, nil
}

// ListPages returns all pages ordered by slug.
func (s *Store) ListPages(ctx context.Context) ([]Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, slug, title, content FROM pages ORDER BY slug")
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.ID, &p.Slug, &p.Title, &p.Content); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// DeletePage removes a page.
func (s *Store) DeletePage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM pages WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return booking.ErrNotFound
	}
	return nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"tokens", "appointments", "slots", "agencies", "pages"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
