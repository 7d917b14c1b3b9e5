// Package output provides utilities for formatting and displaying estimate results.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/iwvelando/steel-estimate/internal/estimate"
	"github.com/iwvelando/steel-estimate/internal/scenario"
	"github.com/iwvelando/steel-estimate/pkg/constants"
	"github.com/iwvelando/steel-estimate/pkg/format"
)

// PrettyFormat outputs a human-readable rather than machine-readable report.
func PrettyFormat(est *estimate.Estimate) {
	_ = WritePretty(os.Stdout, est)
}

// CsvFormat outputs the scenario table in comma-separated value format.
func CsvFormat(est *estimate.Estimate) {
	_ = WriteCSV(os.Stdout, est)
}

// JSONFormat outputs the full estimate as indented JSON.
func JSONFormat(est *estimate.Estimate) {
	_ = WriteJSON(os.Stdout, est)
}

// Write renders est in the named format.
func Write(w io.Writer, outputFormat string, est *estimate.Estimate) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		return WritePretty(w, est)
	case constants.OutputFormatCSV:
		return WriteCSV(w, est)
	case constants.OutputFormatJSON:
		return WriteJSON(w, est)
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}
}

// WritePretty renders the default assignment, the ranked scenarios and the
// boost outcome.
func WritePretty(w io.Writer, est *estimate.Estimate) error {
	p := message.NewPrinter(language.English)
	out := &errWriter{w: w}

	name := est.Project.Name
	if name == "" {
		name = "project"
	}
	out.printf(p, "--- Estimate for %s", name)
	if state := est.Project.StateCode(); state != "" {
		out.printf(p, " (%s)", state)
	}
	out.printf(p, " ---\n")
	out.printf(p, "Deck %.3f t | Joists %.3f t\n\n", est.Project.DeckTons(), est.Project.JoistTons)

	out.printf(p, "Default assignment\n")
	out.printf(p, "Line | Vendor | Tons | $/ton | Extended | Outcome\n")
	out.printf(p, "____ | ______ | ____ | _____ | ________ | _______\n")
	for _, a := range est.Assignment.DeckAssignments {
		out.printf(p, "%s | %s | %.3f | $%.2f | $%.2f | %s\n", a.LineID, a.Vendor, a.Tons, a.PricePerTon, a.ExtendedTotal, describe(a.Outcome.Reason, a.ErrorMessage))
	}
	if est.Assignment.JoistVendor != "" {
		j := est.Assignment.Joist
		out.printf(p, "joists | %s | %.3f | $%.2f | $%.2f | %s\n", j.Vendor, j.Tons, j.PricePerTon, j.Total, describe(j.Outcome.Reason, j.ErrorMessage))
	}

	out.printf(p, "\nScenarios\n")
	out.printf(p, "# | Scenario | Cost | Margin | Subtotal | Detailing | Final | Lead time\n")
	out.printf(p, "_ | ________ | ____ | ______ | ________ | _________ | _____ | _________\n")
	for i, s := range est.Scenarios {
		out.printf(p, "%d | %s%s | $%.2f | $%.2f | $%.2f | $%.2f | $%.2f | %s\n",
			i+1, s.Label, markers(s), s.CostSubtotal, s.MarginTotal, s.Subtotal, s.DetailingAmount, s.FinalTotal, s.LeadTime)
	}
	if len(est.Scenarios) == 0 {
		out.printf(p, "no feasible scenario\n")
	}

	out.printf(p, "\nBoost: ")
	plan := est.Plan
	switch {
	case !plan.OK:
		out.printf(p, "%s\n", plan.Reason)
	default:
		state := "available"
		if est.Boosted {
			state = "applied"
		}
		out.printf(p, "%s on %s, %s margin %s -> %s, target %s (benchmark %s, cap %s)",
			state, plan.BoostedLabel, plan.PremiumSupplier,
			format.Percent(plan.BoostedOriginalMarginPercent), format.Percent(plan.BoostedMarginPercent),
			format.Currency(plan.FinalTarget), format.Currency(plan.BenchmarkSubtotal), format.Currency(plan.CapTarget))
		if plan.Clamped {
			out.printf(p, " (clamped)")
		}
		out.printf(p, "\n")
	}

	if len(est.Warnings) > 0 {
		out.printf(p, "\nWarnings\n")
		for _, warning := range est.Warnings {
			out.printf(p, "- %s\n", warning)
		}
	}
	return out.err
}

var csvHeader = []string{
	"rank", "id", "label", "deck_vendors", "joist_vendor", "tons",
	"cost_subtotal", "margin_total", "accessories", "subtotal",
	"detailing", "final_total", "lead_time", "applied", "boosted",
}

// WriteCSV renders one row per scenario.
func WriteCSV(w io.Writer, est *estimate.Estimate) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for i, s := range est.Scenarios {
		record := []string{
			strconv.Itoa(i + 1),
			s.ID,
			s.Label,
			strings.Join(s.DeckVendors(), "+"),
			s.JoistVendor,
			money(s.Tons, 3),
			money(s.CostSubtotal, 2),
			money(s.MarginTotal, 2),
			money(s.AccessoriesCost, 2),
			money(s.Subtotal, 2),
			money(s.DetailingAmount, 2),
			money(s.FinalTotal, 2),
			s.LeadTime.String(),
			strconv.FormatBool(s.Applied),
			strconv.FormatBool(s.Boosted),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteJSON renders the full estimate.
func WriteJSON(w io.Writer, est *estimate.Estimate) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(est)
}

func money(value float64, precision int) string {
	return strconv.FormatFloat(value, 'f', precision, 64)
}

func describe(reason, errorMessage string) string {
	if errorMessage != "" {
		return "error: " + errorMessage
	}
	return reason
}

func markers(s scenario.Scenario) string {
	var tags []string
	if s.Applied {
		tags = append(tags, "applied")
	}
	if s.Boosted {
		tags = append(tags, "boosted")
	}
	if len(tags) == 0 {
		return ""
	}
	return " [" + strings.Join(tags, ", ") + "]"
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(p *message.Printer, format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = p.Fprintf(e.w, format, args...)
}
