package integration

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/iwvelando/steel-estimate/internal/config"
	"github.com/iwvelando/steel-estimate/internal/estimate"
	"github.com/iwvelando/steel-estimate/internal/project"
	"github.com/iwvelando/steel-estimate/pkg/constants"
	"github.com/iwvelando/steel-estimate/pkg/output"
	"github.com/iwvelando/steel-estimate/pkg/testutil"
)

const (
	exampleConfig  = "../../" + constants.ExampleConfigFile
	exampleProject = "../../project.yaml.example"
	rulesFixture   = "../../internal/config/testdata/rules.csv"
)

// loadExample loads the shipped example configuration and project exactly as
// the command line tool does.
func loadExample(t *testing.T) (*config.Configuration, *project.Project) {
	t.Helper()
	conf, err := config.LoadConfiguration(exampleConfig)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	p, err := config.LoadProject(exampleProject)
	if err != nil {
		t.Fatalf("LoadProject() error = %v", err)
	}
	return conf, p
}

func runEstimate(t *testing.T, conf *config.Configuration, p project.Project, opts estimate.Options) *estimate.Estimate {
	t.Helper()
	engine, err := estimate.NewEngine(zap.NewNop(), conf, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	est, err := engine.Estimate(p, opts)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	return est
}

// TestExampleEndToEnd runs the example project through the full pipeline.
func TestExampleEndToEnd(t *testing.T) {
	conf, p := loadExample(t)
	est := runEstimate(t, conf, *p, estimate.Options{})

	if est.Project.StateCode() != "TX" {
		t.Errorf("expected state derived from the address, got %q", est.Project.StateCode())
	}
	if len(est.Assignment.DeckAssignments) != 2 {
		t.Fatalf("expected 2 deck assignments, got %d", len(est.Assignment.DeckAssignments))
	}
	if len(est.Scenarios) == 0 {
		t.Fatal("expected scenarios but got none")
	}

	for i, s := range est.Scenarios {
		if math.Abs(s.FinalTotal-(s.Subtotal+s.DetailingAmount)) > constants.CurrencyTolerance {
			t.Errorf("scenario %s: final total %v != subtotal %v + detailing %v", s.Label, s.FinalTotal, s.Subtotal, s.DetailingAmount)
		}
		if s.AccessoriesCost != 2500 {
			t.Errorf("scenario %s: accessories = %v, expected 2500", s.Label, s.AccessoriesCost)
		}
		if i > 0 && est.Scenarios[i-1].FinalTotal > s.FinalTotal {
			t.Errorf("scenarios out of order at %d", i)
		}
	}

	recommended, ok := est.Recommended()
	if !ok || recommended.ID != est.Scenarios[0].ID {
		t.Errorf("recommended scenario should be the first one")
	}
}

// TestExampleIsDeterministic checks that repeated runs give identical results.
func TestExampleIsDeterministic(t *testing.T) {
	conf, p := loadExample(t)
	first := runEstimate(t, conf, *p, estimate.Options{})
	second := runEstimate(t, conf, *p, estimate.Options{})

	if !reflect.DeepEqual(first.Scenarios, second.Scenarios) {
		t.Error("scenario lists differ between runs")
	}
	if !reflect.DeepEqual(first.Plan, second.Plan) {
		t.Error("boost plans differ between runs")
	}
}

func TestOutputFormats(t *testing.T) {
	conf, p := loadExample(t)
	est := runEstimate(t, conf, *p, estimate.Options{})

	tests := []struct {
		format string
		check  func(t *testing.T, out string)
	}{
		{
			format: constants.OutputFormatPretty,
			check: func(t *testing.T, out string) {
				if !strings.Contains(out, "--- Estimate for Distribution Center (TX) ---") {
					t.Errorf("missing header in:\n%s", out)
				}
				if !strings.Contains(out, "roof-a") || !strings.Contains(out, "Boost: ") {
					t.Errorf("missing assignment or boost line in:\n%s", out)
				}
			},
		},
		{
			format: constants.OutputFormatCSV,
			check: func(t *testing.T, out string) {
				records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
				if err != nil {
					t.Fatalf("failed to parse CSV: %v", err)
				}
				if len(records) != len(est.Scenarios)+1 {
					t.Errorf("expected %d CSV rows, got %d", len(est.Scenarios)+1, len(records))
				}
				if records[1][1] != est.Scenarios[0].ID {
					t.Errorf("first CSV row is %s, expected %s", records[1][1], est.Scenarios[0].ID)
				}
			},
		},
		{
			format: constants.OutputFormatJSON,
			check: func(t *testing.T, out string) {
				var decoded struct {
					Scenarios []struct {
						ID string `json:"id"`
					} `json:"scenarios"`
				}
				if err := json.Unmarshal([]byte(out), &decoded); err != nil {
					t.Fatalf("failed to decode JSON: %v", err)
				}
				if len(decoded.Scenarios) != len(est.Scenarios) {
					t.Errorf("expected %d scenarios, got %d", len(est.Scenarios), len(decoded.Scenarios))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := output.Write(&buf, tt.format, est); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			tt.check(t, buf.String())
		})
	}
}

// TestRulesFileOverride mirrors the -rules flag: only suppliers in the table
// may appear in scenarios.
func TestRulesFileOverride(t *testing.T) {
	conf, p := loadExample(t)
	if err := conf.OverrideSupplierRulesFile(rulesFixture); err != nil {
		t.Fatalf("OverrideSupplierRulesFile() error = %v", err)
	}

	est := runEstimate(t, conf, *p, estimate.Options{})
	allowed := map[string]bool{"TROJAN": true, "CSC": true}
	for _, s := range est.Scenarios {
		for _, vendor := range s.DeckVendors() {
			if !allowed[vendor] {
				t.Errorf("scenario %s uses %s, which is not in the rule table", s.Label, vendor)
			}
		}
		if s.JoistVendor != "CSC" {
			t.Errorf("scenario %s joist vendor = %s, expected CSC", s.Label, s.JoistVendor)
		}
	}
	for _, warning := range est.Warnings {
		if strings.Contains(warning, "built-in rules") {
			t.Errorf("rule table should replace the built-in rules: %v", est.Warnings)
		}
	}
}

// TestBoostEndToEnd applies and reverts a boost through the engine facade.
func TestBoostEndToEnd(t *testing.T) {
	engine, err := estimate.NewEngine(zap.NewNop(), config.Default(), nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	plain, err := engine.Estimate(testutil.SmallJob(), estimate.Options{})
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	boosted, err := engine.Estimate(testutil.SmallJob(), estimate.Options{Boost: true})
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if !boosted.Plan.OK || !boosted.Boosted || boosted.Snapshot == nil {
		t.Fatalf("expected an applied boost, got %+v", boosted.Plan)
	}

	reverted := engine.Revert(boosted.Scenarios, boosted.Snapshot)
	if !reflect.DeepEqual(reverted, plain.Scenarios) {
		t.Error("reverting the boost did not restore the plain scenarios")
	}
}

func TestEmptyProjectRejected(t *testing.T) {
	conf, _ := loadExample(t)
	engine, err := estimate.NewEngine(zap.NewNop(), conf, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if _, err := engine.Estimate(project.Project{Name: "empty"}, estimate.Options{}); err == nil {
		t.Error("expected an error for an empty project")
	}
}
