// Package store provides payroll.Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	employees map[payroll.EmployeeID]payroll.Employee
	periods   map[periodKey]payroll.PayPeriod
	balances  map[payroll.EmployeeID][]payroll.Balance
	entries   map[payroll.EmployeeID][]payroll.TimeEntry
	calendar  []payroll.CalendarDay
	increases []payroll.SalaryIncrease
	extras    map[payroll.EmployeeID][]payroll.ExtraPayment
	preds     map[payroll.EmployeeID][]payroll.Prediction
}

type periodKey struct {
	Employee payroll.EmployeeID
	Label    payroll.PeriodLabel
}

func NewMemory() *Memory {
	return &Memory{
		employees: make(map[payroll.EmployeeID]payroll.Employee),
		periods:   make(map[periodKey]payroll.PayPeriod),
		balances:  make(map[payroll.EmployeeID][]payroll.Balance),
		entries:   make(map[payroll.EmployeeID][]payroll.TimeEntry),
		extras:    make(map[payroll.EmployeeID][]payroll.ExtraPayment),
		preds:     make(map[payroll.EmployeeID][]payroll.Prediction),
	}
}

func (m *Memory) SaveEmployee(_ context.Context, e payroll.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
	return nil
}

func (m *Memory) Employee(_ context.Context, id payroll.EmployeeID) (payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return payroll.Employee{}, fmt.Errorf("employee %s: %w", id, payroll.ErrEmployeeNotFound)
	}
	return e, nil
}

func (m *Memory) Employees(_ context.Context) ([]payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]payroll.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SavePeriod upserts by (employee, label); re-imports replace the record.
func (m *Memory) SavePeriod(_ context.Context, p payroll.PayPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.periods[periodKey{p.EmployeeID, p.Label}] = clonePeriod(p)
	return nil
}

func (m *Memory) Period(_ context.Context, id payroll.EmployeeID, label payroll.PeriodLabel) (payroll.PayPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.periods[periodKey{id, label}]
	if !ok {
		return payroll.PayPeriod{}, fmt.Errorf("period %s/%s: %w", id, label, payroll.ErrPeriodNotFound)
	}
	return clonePeriod(p), nil
}

func (m *Memory) Periods(_ context.Context, id payroll.EmployeeID) ([]payroll.PayPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []payroll.PayPeriod
	for k, p := range m.periods {
		if k.Employee == id {
			out = append(out, clonePeriod(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (m *Memory) SaveBalances(_ context.Context, id payroll.EmployeeID, balances []payroll.Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[id] = append([]payroll.Balance{}, balances...)
	return nil
}

func (m *Memory) Balances(_ context.Context, id payroll.EmployeeID) ([]payroll.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]payroll.Balance{}, m.balances[id]...), nil
}

func (m *Memory) SaveTimeEntries(_ context.Context, entries []payroll.TimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.entries[e.EmployeeID] = append(m.entries[e.EmployeeID], e)
	}
	return nil
}

func (m *Memory) TimeEntries(_ context.Context, id payroll.EmployeeID, period payroll.Period) ([]payroll.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []payroll.TimeEntry
	for _, e := range m.entries[id] {
		if period.Contains(e.Date) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.BeforeDay(out[j].Date) })
	return out, nil
}

func (m *Memory) SaveCalendarDays(_ context.Context, days []payroll.CalendarDay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calendar = append(m.calendar, days...)
	return nil
}

func (m *Memory) CalendarDays(_ context.Context, id payroll.EmployeeID) ([]payroll.CalendarDay, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []payroll.CalendarDay
	for _, d := range m.calendar {
		if d.EmployeeID == id {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.BeforeDay(out[j].Date) })
	return out, nil
}

func (m *Memory) CalendarSnapshot(_ context.Context) (*payroll.CalendarSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return payroll.NewCalendarSnapshot(m.calendar), nil
}

func (m *Memory) SaveIncrease(_ context.Context, inc payroll.SalaryIncrease) error {
	if err := payroll.ValidateIncrease(inc); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.increases = append(m.increases, inc)
	return nil
}

func (m *Memory) Increases(_ context.Context) ([]payroll.SalaryIncrease, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]payroll.SalaryIncrease{}, m.increases...), nil
}

func (m *Memory) SaveExtraPayment(_ context.Context, ep payroll.ExtraPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extras[ep.EmployeeID] = append(m.extras[ep.EmployeeID], ep)
	return nil
}

func (m *Memory) ExtraPayments(_ context.Context, id payroll.EmployeeID) ([]payroll.ExtraPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]payroll.ExtraPayment{}, m.extras[id]...), nil
}

func (m *Memory) SavePrediction(_ context.Context, p payroll.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preds[p.EmployeeID] = append(m.preds[p.EmployeeID], p)
	return nil
}

func (m *Memory) Predictions(_ context.Context, id payroll.EmployeeID) ([]payroll.Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]payroll.Prediction{}, m.preds[id]...), nil
}

// Reset clears all data (for testing/demo).
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees = make(map[payroll.EmployeeID]payroll.Employee)
	m.periods = make(map[periodKey]payroll.PayPeriod)
	m.balances = make(map[payroll.EmployeeID][]payroll.Balance)
	m.entries = make(map[payroll.EmployeeID][]payroll.TimeEntry)
	m.calendar = nil
	m.increases = nil
	m.extras = make(map[payroll.EmployeeID][]payroll.ExtraPayment)
	m.preds = make(map[payroll.EmployeeID][]payroll.Prediction)
	return nil
}

// clonePeriod deep-copies the line slice so callers never alias store state.
func clonePeriod(p payroll.PayPeriod) payroll.PayPeriod {
	out := p
	out.Lines = append([]payroll.ConceptLine{}, p.Lines...)
	return out
}

var _ payroll.Store = (*Memory)(nil)
