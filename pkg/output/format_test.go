package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/iwvelando/steel-estimate/internal/config"
	"github.com/iwvelando/steel-estimate/internal/estimate"
	"github.com/iwvelando/steel-estimate/internal/project"
	"github.com/iwvelando/steel-estimate/pkg/testutil"
)

func runEstimate(t *testing.T, p project.Project, opts estimate.Options) *estimate.Estimate {
	t.Helper()
	engine, err := estimate.NewEngine(zap.NewNop(), config.Default(), nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	est, err := engine.Estimate(p, opts)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	return est
}

func TestPrettyFormat(t *testing.T) {
	est := runEstimate(t, testutil.Warehouse(), estimate.Options{})

	// Capture stdout
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	PrettyFormat(est)

	_ = w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	output := buf.String()

	expected := []string{
		"--- Estimate for Warehouse (TX) ---",
		"Deck 20.000 t | Joists 30.000 t",
		"Line | Vendor | Tons | $/ton | Extended | Outcome",
		"L1 | TROJAN | 12.000 | $3,900.00 | $46,800.00 |",
		"joists | CSC | 30.000 | $4,700.00 | $141,000.00 |",
		"# | Scenario | Cost | Margin | Subtotal | Detailing | Final | Lead time",
		"Boost: Already above target",
		"Warnings",
		"built-in rules",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("PrettyFormat output missing %q", want)
		}
	}
	if strings.Count(output, " wk\n") != len(est.Scenarios) {
		t.Errorf("expected one row per scenario with a lead time")
	}
}

func TestWritePrettyBoosted(t *testing.T) {
	est := runEstimate(t, testutil.SmallJob(), estimate.Options{Boost: true})

	var buf bytes.Buffer
	if err := WritePretty(&buf, est); err != nil {
		t.Fatalf("WritePretty() error = %v", err)
	}
	output := buf.String()
	for _, want := range []string{"--- Estimate for Canopy (TX) ---", "[boosted]", "Boost: applied on", "TROJAN margin"} {
		if !strings.Contains(output, want) {
			t.Errorf("WritePretty output missing %q\n%s", want, output)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	est := runEstimate(t, testutil.Warehouse(), estimate.Options{})

	var buf bytes.Buffer
	if err := WriteCSV(&buf, est); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != len(est.Scenarios)+1 {
		t.Fatalf("expected %d rows, got %d", len(est.Scenarios)+1, len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("unexpected header %v", records[0])
	}

	first := records[1]
	if first[0] != "1" || first[1] != est.Scenarios[0].ID || first[2] != est.Scenarios[0].Label {
		t.Errorf("unexpected first row %v", first)
	}
	final, err := strconv.ParseFloat(first[11], 64)
	if err != nil {
		t.Fatalf("final total %q is not numeric", first[11])
	}
	if math.Abs(final-est.Scenarios[0].FinalTotal) > 0.005 {
		t.Errorf("final total = %v, expected %v", final, est.Scenarios[0].FinalTotal)
	}
	for _, record := range records[1:] {
		if record[13] != "false" || record[14] != "false" {
			t.Errorf("no scenario should be applied or boosted: %v", record)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	est := runEstimate(t, testutil.Warehouse(), estimate.Options{})

	var buf bytes.Buffer
	if err := Write(&buf, "json", est); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var decoded struct {
		Scenarios []map[string]interface{} `json:"scenarios"`
		Plan      map[string]interface{}   `json:"plan"`
		Warnings  []string                 `json:"warnings"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Scenarios) != len(est.Scenarios) {
		t.Errorf("expected %d scenarios, got %d", len(est.Scenarios), len(decoded.Scenarios))
	}
	if decoded.Plan["reason"] != "Already above target" {
		t.Errorf("unexpected plan %v", decoded.Plan)
	}
	if _, ok := decoded.Plan["capTarget"]; !ok {
		t.Errorf("plan should always carry capTarget")
	}
	if len(decoded.Warnings) == 0 {
		t.Errorf("expected warnings in JSON output")
	}
}

func TestWriteUnsupportedFormat(t *testing.T) {
	est := runEstimate(t, testutil.SmallJob(), estimate.Options{})
	if err := Write(io.Discard, "xml", est); err == nil {
		t.Errorf("expected error for unsupported format")
	}
	for _, format := range []string{"pretty", "csv", "json"} {
		if err := Write(io.Discard, format, est); err != nil {
			t.Errorf("Write(%s) error = %v", format, err)
		}
	}
}
