package optimization

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/aristath/frontier/internal/domain"
)

// SharpeSummary describes the distribution of defined Sharpe ratios across a run.
// Percentiles use the nearest-rank method.
// The distribution fields are zero when no trial has a defined Sharpe ratio.
type SharpeSummary struct {
	Defined   int     `json:"defined" msgpack:"defined"`
	Undefined int     `json:"undefined" msgpack:"undefined"`
	Mean      float64 `json:"mean" msgpack:"mean"`
	Median    float64 `json:"median" msgpack:"median"`
	P5        float64 `json:"p5" msgpack:"p5"`
	P95       float64 `json:"p95" msgpack:"p95"`
	Max       float64 `json:"max" msgpack:"max"`
}

// Summarize computes the Sharpe distribution of a report.
func Summarize(report *Report) (SharpeSummary, error) {
	if report == nil {
		return SharpeSummary{}, fmt.Errorf("%w: report is required", domain.ErrInvalidInput)
	}

	values := make(stats.Float64Data, 0, len(report.Trials))
	for _, t := range report.Trials {
		if t.Sharpe != nil {
			values = append(values, *t.Sharpe)
		}
	}

	summary := SharpeSummary{
		Defined:   len(values),
		Undefined: len(report.Trials) - len(values),
	}
	if len(values) == 0 {
		return summary, nil
	}

	var err error
	if summary.Mean, err = values.Mean(); err != nil {
		return SharpeSummary{}, fmt.Errorf("sharpe mean: %w", err)
	}
	if summary.Median, err = values.Median(); err != nil {
		return SharpeSummary{}, fmt.Errorf("sharpe median: %w", err)
	}
	if summary.P5, err = values.PercentileNearestRank(5); err != nil {
		return SharpeSummary{}, fmt.Errorf("sharpe 5th percentile: %w", err)
	}
	if summary.P95, err = values.PercentileNearestRank(95); err != nil {
		return SharpeSummary{}, fmt.Errorf("sharpe 95th percentile: %w", err)
	}
	if summary.Max, err = values.Max(); err != nil {
		return SharpeSummary{}, fmt.Errorf("sharpe max: %w", err)
	}

	return summary, nil
}
