/*
storage.go - Persistence interface for payroll records

PURPOSE:
  Defines the interface between the engine and the database. The engine
  itself only consumes snapshots; the Store assembles them.

SNAPSHOT CONTRACT:
  Engine inputs are read-only snapshots: reads return copies, never
  aliases of store-internal slices. Historical payslips are never updated
  in place; a re-import of the same (employee, label) replaces the whole
  record, which keeps imports idempotent.

IMPLEMENTATIONS:
  - payroll/store/memory.go: in-memory, for tests and dev
  - store/sqlite/sqlite.go:  production SQLite

SEE ALSO:
  - types.go: the records being persisted
*/
package payroll

import "context"

// Store persists every record family the engine consumes or produces.
type Store interface {
	SaveEmployee(ctx context.Context, e Employee) error
	// Employee returns ErrEmployeeNotFound for unknown ids.
	Employee(ctx context.Context, id EmployeeID) (Employee, error)
	Employees(ctx context.Context) ([]Employee, error)

	// SavePeriod upserts one payslip keyed by (employee, label).
	SavePeriod(ctx context.Context, p PayPeriod) error
	// Period returns ErrPeriodNotFound when no payslip exists for the label.
	Period(ctx context.Context, id EmployeeID, label PeriodLabel) (PayPeriod, error)
	// Periods returns all payslips for the employee ordered by label.
	Periods(ctx context.Context, id EmployeeID) ([]PayPeriod, error)

	SaveBalances(ctx context.Context, id EmployeeID, balances []Balance) error
	Balances(ctx context.Context, id EmployeeID) ([]Balance, error)

	SaveTimeEntries(ctx context.Context, entries []TimeEntry) error
	// TimeEntries returns the employee's entries inside the period, ordered
	// by date.
	TimeEntries(ctx context.Context, id EmployeeID, period Period) ([]TimeEntry, error)

	// SaveCalendarDays appends calendar writes; duplicate (employee, date)
	// writes are kept and resolved by the snapshot's overlap policy.
	SaveCalendarDays(ctx context.Context, days []CalendarDay) error
	CalendarDays(ctx context.Context, id EmployeeID) ([]CalendarDay, error)
	// CalendarSnapshot freezes every stored calendar write into the
	// read-only view the engines consume.
	CalendarSnapshot(ctx context.Context) (*CalendarSnapshot, error)

	SaveIncrease(ctx context.Context, inc SalaryIncrease) error
	Increases(ctx context.Context) ([]SalaryIncrease, error)

	SaveExtraPayment(ctx context.Context, ep ExtraPayment) error
	ExtraPayments(ctx context.Context, id EmployeeID) ([]ExtraPayment, error)

	SavePrediction(ctx context.Context, p Prediction) error
	Predictions(ctx context.Context, id EmployeeID) ([]Prediction, error)
}
