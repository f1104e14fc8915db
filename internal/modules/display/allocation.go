// Package display renders optimization reports for people and for downstream tools.
package display

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aristath/frontier/internal/modules/optimization"
)

const rule = "----------------------------------------"

var (
	hundred = decimal.NewFromInt(100)
	cent    = decimal.New(1, -2)
)

// AllocationLine is one asset's share of a portfolio, rounded for display.
type AllocationLine struct {
	Asset   string
	Percent decimal.Decimal
}

// Allocation converts weights to percentages with two decimals. Rounding uses the
// largest-remainder method so the displayed percentages add up to exactly 100.00.
func Allocation(assets []string, weights []float64) []AllocationLine {
	lines := make([]AllocationLine, len(assets))
	remainders := make([]decimal.Decimal, len(assets))
	total := decimal.Zero

	for i, asset := range assets {
		exact := decimal.NewFromFloat(weights[i]).Mul(hundred)
		floor := exact.Truncate(2)
		lines[i] = AllocationLine{Asset: asset, Percent: floor}
		remainders[i] = exact.Sub(floor)
		total = total.Add(floor)
	}

	missing := int(hundred.Sub(total).Div(cent).Round(0).IntPart())
	if missing <= 0 {
		return lines
	}
	if missing > len(lines) {
		missing = len(lines)
	}

	order := make([]int, len(lines))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].GreaterThan(remainders[order[b]])
	})
	for _, i := range order[:missing] {
		lines[i].Percent = lines[i].Percent.Add(cent)
	}

	return lines
}

func percent(v float64) string {
	return decimal.NewFromFloat(v).Mul(hundred).StringFixed(2) + "%"
}

// WriteAllocationSummary prints the maximum-Sharpe allocation of a report.
func WriteAllocationSummary(w io.Writer, report *optimization.Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Simulation Complete for Portfolio: [%s]\n", strings.Join(report.Assets, ", "))
	fmt.Fprintln(&b, rule)

	best, ok := report.Optimum()
	if !ok {
		fmt.Fprintf(&b, "No portfolio with a defined Sharpe ratio in %d trials\n", len(report.Trials))
		fmt.Fprintln(&b, rule)
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintln(&b, "OPTIMAL ASSET ALLOCATION (Max Sharpe Ratio)")
	fmt.Fprintln(&b, rule)
	for _, line := range Allocation(report.Assets, best.Weights) {
		fmt.Fprintf(&b, "%-8s: %s%%\n", line.Asset, line.Percent.StringFixed(2))
	}
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Expected Annual Return: %s\n", percent(best.ExpectedReturn))
	fmt.Fprintf(&b, "Annual Volatility:    %s\n", percent(best.Volatility))
	fmt.Fprintf(&b, "Sharpe Ratio:         %s\n", decimal.NewFromFloat(*best.Sharpe).StringFixed(2))
	fmt.Fprintln(&b, rule)

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteSharpeSummary prints the distribution of Sharpe ratios across a run.
func WriteSharpeSummary(w io.Writer, summary optimization.SharpeSummary) error {
	_, err := fmt.Fprintf(w,
		"Sharpe distribution: %d defined, %d undefined\n"+
			"  mean %s  median %s  p5 %s  p95 %s  max %s\n",
		summary.Defined, summary.Undefined,
		decimal.NewFromFloat(summary.Mean).StringFixed(2),
		decimal.NewFromFloat(summary.Median).StringFixed(2),
		decimal.NewFromFloat(summary.P5).StringFixed(2),
		decimal.NewFromFloat(summary.P95).StringFixed(2),
		decimal.NewFromFloat(summary.Max).StringFixed(2),
	)
	return err
}
