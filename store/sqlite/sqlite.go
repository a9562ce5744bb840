/*
Package sqlite provides a SQLite-backed implementation of payroll.Store.

PURPOSE:
  Persists every record family the comparison, retroactive-correction and
  prediction engines consume: employees, payslips, balances, time entries,
  calendar writes, increase definitions, extra payments and stored
  predictions. In production the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

KEY TABLES:
  employees:      master records with category history
  pay_periods:    one row per (employee, label) payslip, lines as JSON
  balances:       entitlement/consumed/pending tallies per type and year
  time_entries:   actual recorded time
  calendar_days:  append-only calendar writes (overlap resolved in memory)
  increases:      salary-increase definitions with validity windows
  extra_payments: annual extra payslips
  predictions:    stored forecasts with their scenario payload

UPSERT SEMANTICS:
  Payslips are keyed by (employee, label); re-importing the same period
  replaces the whole record, which keeps imports idempotent. Calendar
  writes are append-only: every write survives, and the snapshot's
  overlap policy picks the effective one.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - payroll/storage.go: Interface definition
  - payroll/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/payroll-engine/payroll"
)

// Store implements payroll.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
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
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		number TEXT,
		name TEXT NOT NULL,
		cost_center TEXT,
		hire_date TEXT NOT NULL,
		categories_json TEXT,
		created_at TEXT NOT NULL
	);

	-- One payslip per (employee, label). Re-import replaces the record.
	CREATE TABLE IF NOT EXISTS pay_periods (
		employee_id TEXT NOT NULL,
		label TEXT NOT NULL,
		issue_date TEXT,
		gross_total TEXT NOT NULL,
		net_total TEXT NOT NULL,
		lines_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, label)
	);

	CREATE INDEX IF NOT EXISTS idx_pay_periods_employee
		ON pay_periods(employee_id, label);

	CREATE TABLE IF NOT EXISTS balances (
		employee_id TEXT NOT NULL,
		balance_type TEXT NOT NULL,
		year INTEGER NOT NULL,
		evaluated_at TEXT NOT NULL,
		entitlement TEXT NOT NULL,
		consumed TEXT NOT NULL,
		pending TEXT NOT NULL,
		unit TEXT,
		overdraft_ok BOOLEAN DEFAULT FALSE,
		PRIMARY KEY (employee_id, balance_type, year)
	);

	CREATE TABLE IF NOT EXISTS time_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		category TEXT NOT NULL,
		hours TEXT NOT NULL,
		recalculation BOOLEAN DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_time_entries_employee_date
		ON time_entries(employee_id, date);

	-- Append-only calendar writes; the snapshot resolves overlaps.
	CREATE TABLE IF NOT EXISTS calendar_days (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		day_type TEXT NOT NULL,
		shift TEXT,
		theoretical_hours TEXT NOT NULL,
		source INTEGER NOT NULL,
		written_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calendar_days_employee_date
		ON calendar_days(employee_id, date);

	CREATE TABLE IF NOT EXISTS increases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		concept TEXT NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT,
		percent TEXT NOT NULL,
		retroactive BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS extra_payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		payment_type TEXT NOT NULL,
		date TEXT NOT NULL,
		gross TEXT NOT NULL,
		net TEXT NOT NULL,
		lines_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_extra_payments_employee
		ON extra_payments(employee_id, date);

	CREATE TABLE IF NOT EXISTS predictions (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		target_label TEXT NOT NULL,
		created_at TEXT NOT NULL,
		from_defaults BOOLEAN DEFAULT FALSE,
		payload_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_predictions_employee
		ON predictions(employee_id, target_label);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (s *Store) SaveEmployee(ctx context.Context, e payroll.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	categoriesJSON, err := json.Marshal(e.Categories)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}

	query := `
		INSERT INTO employees (id, number, name, cost_center, hire_date, categories_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			number = excluded.number,
			name = excluded.name,
			cost_center = excluded.cost_center,
			hire_date = excluded.hire_date,
			categories_json = excluded.categories_json
	`
	_, err = s.db.ExecContext(ctx, query,
		string(e.ID), e.Number, e.Name, e.CostCenter,
		e.HireDate.String(), string(categoriesJSON),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) Employee(ctx context.Context, id payroll.EmployeeID) (payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		e              payroll.Employee
		empID          string
		hireDate       string
		categoriesJSON sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, number, name, cost_center, hire_date, categories_json FROM employees WHERE id = ?",
		string(id),
	).Scan(&empID, &e.Number, &e.Name, &e.CostCenter, &hireDate, &categoriesJSON)
	if err == sql.ErrNoRows {
		return payroll.Employee{}, fmt.Errorf("employee %s: %w", id, payroll.ErrEmployeeNotFound)
	}
	if err != nil {
		return payroll.Employee{}, fmt.Errorf("failed to load employee: %w", err)
	}

	e.ID = payroll.EmployeeID(empID)
	if e.HireDate, err = payroll.ParseDate(hireDate); err != nil {
		return payroll.Employee{}, err
	}
	if categoriesJSON.Valid && categoriesJSON.String != "" {
		if err := json.Unmarshal([]byte(categoriesJSON.String), &e.Categories); err != nil {
			return payroll.Employee{}, fmt.Errorf("failed to decode categories: %w", err)
		}
	}
	return e, nil
}

func (s *Store) Employees(ctx context.Context) ([]payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, number, name, cost_center, hire_date, categories_json FROM employees ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.Employee
	for rows.Next() {
		var (
			e              payroll.Employee
			empID          string
			hireDate       string
			categoriesJSON sql.NullString
		)
		if err := rows.Scan(&empID, &e.Number, &e.Name, &e.CostCenter, &hireDate, &categoriesJSON); err != nil {
			return nil, err
		}
		e.ID = payroll.EmployeeID(empID)
		if e.HireDate, err = payroll.ParseDate(hireDate); err != nil {
			return nil, err
		}
		if categoriesJSON.Valid && categoriesJSON.String != "" {
			if err := json.Unmarshal([]byte(categoriesJSON.String), &e.Categories); err != nil {
				return nil, fmt.Errorf("failed to decode categories: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// PAY PERIODS
// =============================================================================

func (s *Store) SavePeriod(ctx context.Context, p payroll.PayPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	linesJSON, err := json.Marshal(p.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode lines: %w", err)
	}

	query := `
		INSERT INTO pay_periods (employee_id, label, issue_date, gross_total, net_total, lines_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, label) DO UPDATE SET
			issue_date = excluded.issue_date,
			gross_total = excluded.gross_total,
			net_total = excluded.net_total,
			lines_json = excluded.lines_json
	`
	_, err = s.db.ExecContext(ctx, query,
		string(p.EmployeeID), string(p.Label), p.IssueDate.String(),
		p.GrossTotal.Value.String(), p.NetTotal.Value.String(),
		string(linesJSON),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) Period(ctx context.Context, id payroll.EmployeeID, label payroll.PeriodLabel) (payroll.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT employee_id, label, issue_date, gross_total, net_total, lines_json FROM pay_periods WHERE employee_id = ? AND label = ?",
		string(id), string(label),
	)
	p, err := scanPeriod(row)
	if err == sql.ErrNoRows {
		return payroll.PayPeriod{}, fmt.Errorf("period %s/%s: %w", id, label, payroll.ErrPeriodNotFound)
	}
	return p, err
}

func (s *Store) Periods(ctx context.Context, id payroll.EmployeeID) ([]payroll.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT employee_id, label, issue_date, gross_total, net_total, lines_json FROM pay_periods WHERE employee_id = ? ORDER BY label ASC",
		string(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.PayPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeriod(row rowScanner) (payroll.PayPeriod, error) {
	var (
		p          payroll.PayPeriod
		empID      string
		label      string
		issueDate  sql.NullString
		gross, net string
		linesJSON  string
	)
	if err := row.Scan(&empID, &label, &issueDate, &gross, &net, &linesJSON); err != nil {
		return payroll.PayPeriod{}, err
	}

	p.EmployeeID = payroll.EmployeeID(empID)
	p.Label = payroll.PeriodLabel(label)
	if issueDate.Valid && issueDate.String != "" {
		if d, err := payroll.ParseDate(issueDate.String); err == nil {
			p.IssueDate = d
		}
	}
	p.GrossTotal = payroll.MustParseMoney(gross)
	p.NetTotal = payroll.MustParseMoney(net)
	if err := json.Unmarshal([]byte(linesJSON), &p.Lines); err != nil {
		return payroll.PayPeriod{}, fmt.Errorf("failed to decode lines: %w", err)
	}
	return p, nil
}

// =============================================================================
// BALANCES
// =============================================================================

func (s *Store) SaveBalances(ctx context.Context, id payroll.EmployeeID, balances []payroll.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM balances WHERE employee_id = ?", string(id)); err != nil {
		return err
	}
	query := `
		INSERT INTO balances (employee_id, balance_type, year, evaluated_at, entitlement, consumed, pending, unit, overdraft_ok)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, b := range balances {
		if _, err := tx.ExecContext(ctx, query,
			string(id), string(b.Type), b.Year, b.EvaluatedAt.String(),
			b.Entitlement.String(), b.Consumed.String(), b.Pending.String(),
			b.Unit, b.OverdraftOK,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) Balances(ctx context.Context, id payroll.EmployeeID) ([]payroll.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT balance_type, year, evaluated_at, entitlement, consumed, pending, unit, overdraft_ok FROM balances WHERE employee_id = ? ORDER BY balance_type, year",
		string(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.Balance
	for rows.Next() {
		var (
			b                              payroll.Balance
			typ, evaluated                 string
			entitlement, consumed, pending string
		)
		if err := rows.Scan(&typ, &b.Year, &evaluated, &entitlement, &consumed, &pending, &b.Unit, &b.OverdraftOK); err != nil {
			return nil, err
		}
		b.EmployeeID = id
		b.Type = payroll.BalanceType(typ)
		if b.EvaluatedAt, err = payroll.ParseDate(evaluated); err != nil {
			return nil, err
		}
		b.Entitlement = payroll.MustParseMoney(entitlement).Value
		b.Consumed = payroll.MustParseMoney(consumed).Value
		b.Pending = payroll.MustParseMoney(pending).Value
		out = append(out, b)
	}
	return out, rows.Err()
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

func (s *Store) SaveTimeEntries(ctx context.Context, entries []payroll.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO time_entries (employee_id, date, category, hours, recalculation)
		VALUES (?, ?, ?, ?, ?)
	`
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, query,
			string(e.EmployeeID), e.Date.String(), string(e.Category),
			e.Hours.Value.String(), e.Recalculation,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) TimeEntries(ctx context.Context, id payroll.EmployeeID, period payroll.Period) ([]payroll.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT employee_id, date, category, hours, recalculation FROM time_entries WHERE employee_id = ? AND date >= ? AND date <= ? ORDER BY date ASC",
		string(id), period.Start.String(), period.End.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.TimeEntry
	for rows.Next() {
		var (
			e           payroll.TimeEntry
			empID       string
			date, hours string
			category    string
		)
		if err := rows.Scan(&empID, &date, &category, &hours, &e.Recalculation); err != nil {
			return nil, err
		}
		e.EmployeeID = payroll.EmployeeID(empID)
		e.Category = payroll.TimeCategory(category)
		if e.Date, err = payroll.ParseDate(date); err != nil {
			return nil, err
		}
		e.Hours = payroll.HourCount{Value: payroll.MustParseMoney(hours).Value}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// CALENDAR
// =============================================================================

func (s *Store) SaveCalendarDays(ctx context.Context, days []payroll.CalendarDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO calendar_days (employee_id, date, day_type, shift, theoretical_hours, source, written_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for _, d := range days {
		if _, err := tx.ExecContext(ctx, query,
			string(d.EmployeeID), d.Date.String(), string(d.Type), string(d.Shift),
			d.TheoreticalHours.String(), int(d.Source), d.WrittenAt.String(),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) CalendarDays(ctx context.Context, id payroll.EmployeeID) ([]payroll.CalendarDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryCalendarDays(ctx,
		"SELECT employee_id, date, day_type, shift, theoretical_hours, source, written_at FROM calendar_days WHERE employee_id = ? ORDER BY date ASC",
		string(id),
	)
}

func (s *Store) CalendarSnapshot(ctx context.Context) (*payroll.CalendarSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days, err := s.queryCalendarDays(ctx,
		"SELECT employee_id, date, day_type, shift, theoretical_hours, source, written_at FROM calendar_days",
	)
	if err != nil {
		return nil, err
	}
	return payroll.NewCalendarSnapshot(days), nil
}

func (s *Store) queryCalendarDays(ctx context.Context, query string, args ...any) ([]payroll.CalendarDay, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.CalendarDay
	for rows.Next() {
		var (
			d                payroll.CalendarDay
			empID            string
			date, written    string
			dayType, shift   string
			theoreticalHours string
			source           int
		)
		if err := rows.Scan(&empID, &date, &dayType, &shift, &theoreticalHours, &source, &written); err != nil {
			return nil, err
		}
		d.EmployeeID = payroll.EmployeeID(empID)
		d.Type = payroll.DayType(dayType)
		d.Shift = payroll.Shift(shift)
		d.Source = payroll.CalendarSource(source)
		d.TheoreticalHours = payroll.MustParseMoney(theoreticalHours).Value
		if d.Date, err = payroll.ParseDate(date); err != nil {
			return nil, err
		}
		if d.WrittenAt, err = payroll.ParseDate(written); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// =============================================================================
// INCREASES
// =============================================================================

func (s *Store) SaveIncrease(ctx context.Context, inc payroll.SalaryIncrease) error {
	if err := payroll.ValidateIncrease(inc); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var validTo *string
	if inc.To != nil {
		t := inc.To.String()
		validTo = &t
	}

	query := `
		INSERT INTO increases (concept, valid_from, valid_to, percent, retroactive, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		string(inc.Concept), inc.From.String(), validTo,
		inc.Percent.String(), inc.Retroactive,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) Increases(ctx context.Context) ([]payroll.SalaryIncrease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT concept, valid_from, valid_to, percent, retroactive FROM increases ORDER BY valid_from ASC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.SalaryIncrease
	for rows.Next() {
		var (
			inc           payroll.SalaryIncrease
			concept, from string
			validTo       sql.NullString
			percent       string
		)
		if err := rows.Scan(&concept, &from, &validTo, &percent, &inc.Retroactive); err != nil {
			return nil, err
		}
		inc.Concept = payroll.ConceptID(concept)
		if inc.From, err = payroll.ParseDate(from); err != nil {
			return nil, err
		}
		if validTo.Valid {
			to, err := payroll.ParseDate(validTo.String)
			if err != nil {
				return nil, err
			}
			inc.To = &to
		}
		inc.Percent = payroll.MustParseMoney(percent).Value
		out = append(out, inc)
	}
	return out, rows.Err()
}

// =============================================================================
// EXTRA PAYMENTS
// =============================================================================

func (s *Store) SaveExtraPayment(ctx context.Context, ep payroll.ExtraPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	linesJSON, err := json.Marshal(ep.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode lines: %w", err)
	}

	query := `
		INSERT INTO extra_payments (employee_id, payment_type, date, gross, net, lines_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		string(ep.EmployeeID), string(ep.Type), ep.Date.String(),
		ep.Gross.Value.String(), ep.Net.Value.String(), string(linesJSON),
	)
	return err
}

func (s *Store) ExtraPayments(ctx context.Context, id payroll.EmployeeID) ([]payroll.ExtraPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT employee_id, payment_type, date, gross, net, lines_json FROM extra_payments WHERE employee_id = ? ORDER BY date ASC",
		string(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.ExtraPayment
	for rows.Next() {
		var (
			ep                payroll.ExtraPayment
			empID, typ, date  string
			gross, net, lines string
		)
		if err := rows.Scan(&empID, &typ, &date, &gross, &net, &lines); err != nil {
			return nil, err
		}
		ep.EmployeeID = payroll.EmployeeID(empID)
		ep.Type = payroll.ExtraPaymentType(typ)
		if ep.Date, err = payroll.ParseDate(date); err != nil {
			return nil, err
		}
		ep.Gross = payroll.MustParseMoney(gross)
		ep.Net = payroll.MustParseMoney(net)
		if err := json.Unmarshal([]byte(lines), &ep.Lines); err != nil {
			return nil, fmt.Errorf("failed to decode lines: %w", err)
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

// =============================================================================
// PREDICTIONS
// =============================================================================

func (s *Store) SavePrediction(ctx context.Context, p payroll.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode prediction: %w", err)
	}

	query := `
		INSERT INTO predictions (id, employee_id, target_label, created_at, from_defaults, payload_json)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload_json = excluded.payload_json,
			from_defaults = excluded.from_defaults
	`
	_, err = s.db.ExecContext(ctx, query,
		p.ID, string(p.EmployeeID), string(p.TargetLabel),
		p.CreatedAt.String(), p.FromDefaults, string(payload),
	)
	return err
}

func (s *Store) Predictions(ctx context.Context, id payroll.EmployeeID) ([]payroll.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT payload_json FROM predictions WHERE employee_id = ? ORDER BY target_label ASC",
		string(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.Prediction
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var p payroll.Prediction
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("failed to decode prediction: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"employees", "pay_periods", "balances", "time_entries",
		"calendar_days", "increases", "extra_payments", "predictions",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

var _ payroll.Store = (*Store)(nil)
