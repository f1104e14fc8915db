package optimization

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/aristath/frontier/internal/modules/statistics"
)

// RunParallel evaluates opts.NumTrials portfolios split into fixed-size batches. Batch b
// draws from NewBatchSource(seed, b) and writes into its own slice of trial slots, so the
// report depends only on seed and batch size, never on the number of workers or on
// scheduling. Cancelling ctx stops the run between batches.
func (o *MonteCarloOptimizer) RunParallel(ctx context.Context, stats *statistics.ReturnStatistics, opts Options, seed uint64, workers int) (*Report, error) {
	opts = opts.withDefaults()
	if err := validateRun(stats, opts); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}

	numBatches := (opts.NumTrials + opts.BatchSize - 1) / opts.BatchSize
	if workers > numBatches {
		workers = numBatches
	}

	o.log.Info().
		Int("num_assets", stats.N()).
		Int("num_trials", opts.NumTrials).
		Int("batches", numBatches).
		Int("workers", workers).
		Uint64("seed", seed).
		Msg("Starting parallel Monte Carlo run")

	eval := newEvaluator(stats, opts)
	trials := make([]TrialResult, opts.NumTrials)
	var completed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for b := 0; b < numBatches; b++ {
		if gctx.Err() != nil {
			break
		}
		batch := b
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := batch * opts.BatchSize
			end := min(start+opts.BatchSize, opts.NumTrials)

			if err := o.runBatch(eval, trials[start:end], start, NewBatchSource(seed, batch), stats.N(), opts.MaxSampleAttempts); err != nil {
				return fmt.Errorf("batch %d: %w", batch, err)
			}

			done := completed.Add(int64(end - start))
			if opts.Progress != nil {
				opts.Progress(int(done), opts.NumTrials)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("monte carlo run cancelled: %w", err)
	}

	report := newReport(stats.Assets(), trials)
	o.logReport(report)
	return report, nil
}

// runBatch fills slots with trials numbered from offset.
func (o *MonteCarloOptimizer) runBatch(eval *evaluator, slots []TrialResult, offset int, src RandomSource, n, maxAttempts int) error {
	for i := range slots {
		weights, attempts, err := sampleWeights(src, n, maxAttempts)
		if err != nil {
			return fmt.Errorf("trial %d: %w", offset+i, err)
		}
		if attempts > 1 {
			o.log.Debug().Int("trial", offset+i).Int("attempts", attempts).Msg("Resampled degenerate weights")
		}
		slots[i] = eval.evaluate(offset+i, weights)
	}
	return nil
}
