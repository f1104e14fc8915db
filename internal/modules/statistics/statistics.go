// Package statistics derives the per-period summary statistics (mean return vector and
// sample covariance matrix) that the Monte Carlo optimizer evaluates portfolios against.
package statistics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/frontier/internal/domain"
)

// ReturnStatistics holds the mean per-period return of each asset and the unbiased
// sample covariance of per-period returns. It is immutable once computed; every
// accessor hands out a copy.
type ReturnStatistics struct {
	assets       []string
	mean         *mat.VecDense
	cov          *mat.SymDense
	observations int
}

// CorrelationPair is a pair of assets with their return correlation.
type CorrelationPair struct {
	Asset1      string  `json:"asset1"`
	Asset2      string  `json:"asset2"`
	Correlation float64 `json:"correlation"`
}

// Compute derives ReturnStatistics from a return series.
// The series must hold at least 2 observations of N finite values each.
func Compute(series domain.ReturnSeries) (*ReturnStatistics, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}

	n := len(series.Assets)
	columns := make([][]float64, n)
	for j := 0; j < n; j++ {
		columns[j] = series.Column(j)
	}

	mean := mat.NewVecDense(n, nil)
	for j, col := range columns {
		mean.SetVec(j, stat.Mean(col, nil))
	}

	// Sample covariance (N-1 denominator); the upper triangle is mirrored so the
	// matrix is symmetric by construction.
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c := stat.Covariance(columns[i], columns[j], nil)
			if i == j && c < 0 {
				// Rounding can leave a constant series with a -0-ish variance
				c = 0
			}
			cov.SetSym(i, j, c)
		}
	}

	for i := 0; i < n; i++ {
		if math.IsNaN(mean.AtVec(i)) || math.IsNaN(cov.At(i, i)) {
			return nil, fmt.Errorf("%w: statistics for %s are not finite", domain.ErrInvalidInput, series.Assets[i])
		}
	}

	return &ReturnStatistics{
		assets:       append([]string(nil), series.Assets...),
		mean:         mean,
		cov:          cov,
		observations: series.Len(),
	}, nil
}

// Assets returns the asset universe in index order.
func (s *ReturnStatistics) Assets() []string {
	return append([]string(nil), s.assets...)
}

// N returns the number of assets.
func (s *ReturnStatistics) N() int {
	return len(s.assets)
}

// Observations returns the number of return observations the statistics were derived from.
func (s *ReturnStatistics) Observations() int {
	return s.observations
}

// MeanReturn returns the per-period mean return of each asset.
func (s *ReturnStatistics) MeanReturn() []float64 {
	out := make([]float64, s.mean.Len())
	for i := range out {
		out[i] = s.mean.AtVec(i)
	}
	return out
}

// Covariance returns the per-period covariance matrix as a dense N×N slice.
func (s *ReturnStatistics) Covariance() [][]float64 {
	n := s.cov.SymmetricDim()
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			out[i][j] = s.cov.At(i, j)
		}
	}
	return out
}

// CovarianceMatrix returns a copy of the covariance as a gonum symmetric matrix.
func (s *ReturnStatistics) CovarianceMatrix() *mat.SymDense {
	out := mat.NewSymDense(s.cov.SymmetricDim(), nil)
	out.CopySym(s.cov)
	return out
}

// MeanVector returns a copy of the mean returns as a gonum vector.
func (s *ReturnStatistics) MeanVector() *mat.VecDense {
	out := mat.NewVecDense(s.mean.Len(), nil)
	out.CopyVec(s.mean)
	return out
}

// HighCorrelations lists asset pairs whose absolute return correlation is at least threshold.
// Assets with zero variance have no defined correlation and are skipped.
func (s *ReturnStatistics) HighCorrelations(threshold float64) []CorrelationPair {
	n := len(s.assets)
	pairs := make([]CorrelationPair, 0)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			vi, vj := s.cov.At(i, i), s.cov.At(j, j)
			if vi <= 0 || vj <= 0 {
				continue
			}
			corr := s.cov.At(i, j) / math.Sqrt(vi*vj)
			if math.Abs(corr) >= threshold {
				pairs = append(pairs, CorrelationPair{
					Asset1:      s.assets[i],
					Asset2:      s.assets[j],
					Correlation: corr,
				})
			}
		}
	}

	return pairs
}
