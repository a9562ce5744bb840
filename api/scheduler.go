/*
scheduler.go - Automated prediction refresher

PURPOSE:
  Periodically recomputes next-month forecasts for every employee and
  stores them, so clients always find a reasonably fresh prediction
  without triggering one explicitly.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Forecasts the month after the current one for each employee
  - A missing baseline is not a failure: the from-defaults forecast is
    stored like any other
  - Employees run concurrently through the engine's batch runner

CONFIGURATION:
  - Interval: How often to refresh (default: 6 hours)
  - Enabled:  Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewPredictionScheduler(handler, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: CreatePrediction endpoint (manual forecasting)
  - payroll/batch.go: concurrent batch runner
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/payroll-engine/payroll"
)

// PredictionScheduler refreshes stored forecasts in the background.
type PredictionScheduler struct {
	Handler  *Handler
	Interval time.Duration
	Enabled  bool

	log    *slog.Logger
	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPredictionScheduler creates a new scheduler.
func NewPredictionScheduler(handler *Handler, log *slog.Logger) *PredictionScheduler {
	return &PredictionScheduler{
		Handler:  handler,
		Interval: 6 * time.Hour,
		Enabled:  true,
		log:      log,
		stop:     make(chan bool),
	}
}

// Start begins the scheduler.
func (ps *PredictionScheduler) Start() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !ps.Enabled {
		ps.log.Info("prediction scheduler disabled, not starting")
		return
	}

	ps.ticker = time.NewTicker(ps.Interval)
	ps.wg.Add(1)
	go ps.run()

	ps.log.Info("prediction scheduler started", "interval", ps.Interval.String())
}

// Stop halts the scheduler and waits for any in-flight refresh.
func (ps *PredictionScheduler) Stop() {
	ps.mu.Lock()
	if ps.ticker != nil {
		ps.ticker.Stop()
	}
	ps.mu.Unlock()

	close(ps.stop)
	ps.wg.Wait()
	ps.log.Info("prediction scheduler stopped")
}

func (ps *PredictionScheduler) run() {
	defer ps.wg.Done()

	// One refresh right away, then on every tick.
	ps.RefreshAll(context.Background())

	for {
		select {
		case <-ps.stop:
			return
		case <-ps.ticker.C:
			ps.RefreshAll(context.Background())
		}
	}
}

// RefreshAll forecasts the upcoming month for every employee and stores
// the results. Per-employee failures are logged and skipped.
func (ps *PredictionScheduler) RefreshAll(ctx context.Context) {
	h := ps.Handler

	employees, err := h.Store.Employees(ctx)
	if err != nil {
		ps.log.Error("prediction refresh: failed to list employees", "error", err)
		return
	}
	if len(employees) == 0 {
		return
	}

	target := nextMonthLabel(payroll.Today())

	inputs := make([]payroll.PredictInput, 0, len(employees))
	for _, emp := range employees {
		input, err := ps.assembleInput(ctx, emp, target)
		if err != nil {
			ps.log.Error("prediction refresh: failed to assemble input",
				"employee", string(emp.ID), "error", err)
			continue
		}
		inputs = append(inputs, input)
	}

	results, err := payroll.PredictBatch(ctx, 0, inputs)
	if err != nil {
		ps.log.Error("prediction refresh: batch canceled", "error", err)
		return
	}

	stored := 0
	for _, res := range results {
		if res.Err != nil && !payroll.IsRecoverable(res.Err) {
			ps.log.Error("prediction refresh: forecast failed",
				"employee", string(inputs[res.Index].Employee.ID), "error", res.Err)
			continue
		}
		if err := h.Store.SavePrediction(ctx, res.Value); err != nil {
			ps.log.Error("prediction refresh: failed to store forecast",
				"employee", string(res.Value.EmployeeID), "error", err)
			continue
		}
		stored++
	}
	ps.log.Info("prediction refresh complete",
		"target", string(target), "employees", len(employees), "stored", stored)
}

func (ps *PredictionScheduler) assembleInput(ctx context.Context, emp payroll.Employee, target payroll.PeriodLabel) (payroll.PredictInput, error) {
	h := ps.Handler

	historical, err := h.Store.Periods(ctx, emp.ID)
	if err != nil {
		return payroll.PredictInput{}, err
	}
	snapshot, err := h.Store.CalendarSnapshot(ctx)
	if err != nil {
		return payroll.PredictInput{}, err
	}
	increases, err := h.Store.Increases(ctx)
	if err != nil {
		return payroll.PredictInput{}, err
	}
	extras, err := h.Store.ExtraPayments(ctx, emp.ID)
	if err != nil {
		return payroll.PredictInput{}, err
	}
	extras = h.mergeScheduledExtras(extras, emp.ID, target)

	return payroll.PredictInput{
		Employee:      emp,
		TargetLabel:   target,
		Historical:    historical,
		Calendar:      snapshot,
		Increases:     increases,
		ExtraPayments: extras,
		Scenario:      h.config().ScenarioDefaults,
	}, nil
}

func nextMonthLabel(today payroll.Date) payroll.PeriodLabel {
	next := payroll.StartOfMonth(today.Year(), today.Month()).AddMonths(1)
	return payroll.LabelFor(next)
}
