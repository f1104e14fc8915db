package display

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/frontier/internal/modules/optimization"
)

// Format selects an encoding for machine-readable output.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
	FormatCSV     Format = "csv"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatText, FormatJSON, FormatMsgpack, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q", name)
	}
}

// ContentType returns the MIME type for a format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatMsgpack:
		return "application/msgpack"
	case FormatCSV:
		return "text/csv"
	default:
		return "text/plain; charset=utf-8"
	}
}

// EncodeJSON writes v as indented JSON.
func EncodeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// EncodeMsgpack writes v as MessagePack using the struct's msgpack tags.
func EncodeMsgpack(w io.Writer, v interface{}) error {
	if err := msgpack.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("failed to encode msgpack: %w", err)
	}
	return nil
}

// trialRow is the flat CSV form of a trial, one row per sampled portfolio.
type trialRow struct {
	Index          int    `csv:"index"`
	ExpectedReturn string `csv:"expected_return"`
	Volatility     string `csv:"volatility"`
	Sharpe         string `csv:"sharpe"`
	Weights        string `csv:"weights"`
}

// EncodeTrialsCSV writes every trial as CSV for scatter plots of the sampled frontier.
// Weights are semicolon-separated in asset order; an undefined Sharpe ratio is left empty.
func EncodeTrialsCSV(w io.Writer, report *optimization.Report) error {
	rows := make([]trialRow, len(report.Trials))
	for i, t := range report.Trials {
		weights := make([]string, len(t.Weights))
		for j, v := range t.Weights {
			weights[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		row := trialRow{
			Index:          t.Index,
			ExpectedReturn: strconv.FormatFloat(t.ExpectedReturn, 'g', -1, 64),
			Volatility:     strconv.FormatFloat(t.Volatility, 'g', -1, 64),
			Weights:        strings.Join(weights, ";"),
		}
		if t.Sharpe != nil {
			row.Sharpe = strconv.FormatFloat(*t.Sharpe, 'g', -1, 64)
		}
		rows[i] = row
	}

	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to encode CSV: %w", err)
	}
	return nil
}

// Write renders report in the given format. Text output includes the Sharpe summary.
func Write(w io.Writer, format Format, report *optimization.Report) error {
	switch format {
	case FormatJSON:
		return EncodeJSON(w, report)
	case FormatMsgpack:
		return EncodeMsgpack(w, report)
	case FormatCSV:
		return EncodeTrialsCSV(w, report)
	default:
		if err := WriteAllocationSummary(w, report); err != nil {
			return err
		}
		summary, err := optimization.Summarize(report)
		if err != nil {
			return err
		}
		return WriteSharpeSummary(w, summary)
	}
}
