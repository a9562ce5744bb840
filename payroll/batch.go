/*
batch.go - Concurrent batch runner

PURPOSE:
  Runs independent per-employee work items (reconciliations, forecasts)
  concurrently over a shared read-only snapshot. Errors are scoped to the
  item that produced them: one employee's bad data never aborts the batch,
  only context cancellation does.
*/
package payroll

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// BatchResult carries one item's outcome in input order.
type BatchResult[T any] struct {
	Index int
	Value T
	Err   error
}

// RunBatch executes fn for each of n items with at most limit in flight
// (limit <= 0 uses GOMAXPROCS). Item errors land in their BatchResult; the
// returned error is non-nil only when the context was cancelled.
func RunBatch[T any](ctx context.Context, limit, n int, fn func(ctx context.Context, i int) (T, error)) ([]BatchResult[T], error) {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]BatchResult[T], n)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			value, err := fn(ctx, i)
			results[i] = BatchResult[T]{Index: i, Value: value, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// PredictBatch forecasts one target label for many employees under a shared
// calendar snapshot and scenario.
func PredictBatch(ctx context.Context, limit int, inputs []PredictInput) ([]BatchResult[Prediction], error) {
	return RunBatch(ctx, limit, len(inputs), func(_ context.Context, i int) (Prediction, error) {
		return Predict(inputs[i])
	})
}

// DecomposeBatch computes the hourly-rate decomposition for many payslips.
type DecomposeItem struct {
	Period  PayPeriod
	Entries []TimeEntry
}

func DecomposeBatch(ctx context.Context, limit int, calendar *CalendarSnapshot, items []DecomposeItem, cfg RateConfig) ([]BatchResult[Decomposition], error) {
	return RunBatch(ctx, limit, len(items), func(_ context.Context, i int) (Decomposition, error) {
		return Decompose(items[i].Period, calendar, items[i].Entries, cfg)
	})
}
