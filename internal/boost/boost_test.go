package boost

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/iwvelando/steel-estimate/internal/assign"
	"github.com/iwvelando/steel-estimate/internal/catalog"
	"github.com/iwvelando/steel-estimate/internal/margin"
	"github.com/iwvelando/steel-estimate/internal/project"
	"github.com/iwvelando/steel-estimate/internal/rates"
	"github.com/iwvelando/steel-estimate/internal/scenario"
	"github.com/iwvelando/steel-estimate/pkg/constants"
)

type part struct {
	supplier string
	category string
	cost     float64
	percent  float64
}

func build(id, deckVendor, joistVendor string, parts ...part) scenario.Scenario {
	s := scenario.Scenario{
		ID:              id,
		Signature:       id,
		Label:           id,
		DeckAssignments: []assign.Assignment{{LineID: "L1", Vendor: deckVendor}},
		JoistVendor:     joistVendor,
		LeadTime:        scenario.LeadTime{MinWeeks: 4, MaxWeeks: 6},
	}
	for _, p := range parts {
		s.Participants = append(s.Participants, margin.Participant{
			Supplier:      p.supplier,
			Category:      p.category,
			SubtotalCost:  p.cost,
			MarginPercent: p.percent,
			MarginAmount:  p.cost * p.percent / 100,
		})
	}
	s.Retotal(nil)
	return s
}

// flat builds a single-participant scenario whose subtotal equals cost.
func flat(id, vendor string, subtotal float64) scenario.Scenario {
	return build(id, vendor, vendor, part{vendor, constants.CategoryDeckOther, subtotal, 0})
}

func trojanScenario() scenario.Scenario {
	return build("trojan", "TROJAN", "CSC",
		part{"TROJAN", constants.CategoryDeckPreferred, 200000, 10},
		part{"CSC", constants.CategoryJoists, 100000, 6},
	)
}

func exampleScenarios() []scenario.Scenario {
	return []scenario.Scenario{
		flat("csc-high", "CSC", 433004.65),
		flat("csc-low", "CSC", 420000),
		flat("canam", "CANAM", 410000),
		trojanScenario(),
	}
}

func TestBuildOptimizationBoostPlanExample(t *testing.T) {
	plan := BuildOptimizationBoostPlan(exampleScenarios(), DefaultSettings())

	if !plan.OK {
		t.Fatalf("expected a plan, got reason %q", plan.Reason)
	}
	if plan.BenchmarkID != "csc-high" || plan.BenchmarkSubtotal != 433004.65 {
		t.Errorf("benchmark = %s %v", plan.BenchmarkID, plan.BenchmarkSubtotal)
	}
	if math.Abs(plan.DesiredTarget-370218.97575) > 1e-6 {
		t.Errorf("desired target = %v, expected 370218.97575", plan.DesiredTarget)
	}
	if plan.NextCheapestID != "canam" || plan.CapTarget != 409000 {
		t.Errorf("cap = %s %v, expected canam 409000", plan.NextCheapestID, plan.CapTarget)
	}
	if plan.FinalTarget != plan.DesiredTarget {
		t.Errorf("final target = %v, expected the desired target", plan.FinalTarget)
	}
	if plan.BoostedOptionID != "trojan" || plan.BoostedOriginalMarginPercent != 10 {
		t.Errorf("boosted = %s at %v%%", plan.BoostedOptionID, plan.BoostedOriginalMarginPercent)
	}
	if math.Abs(plan.OtherPartsSubtotal-106000) > 1e-6 {
		t.Errorf("other parts = %v, expected 106000", plan.OtherPartsSubtotal)
	}
	if math.Abs(plan.BoostedMarginPercent-32.109487875) > 1e-6 {
		t.Errorf("boosted margin = %v, expected 32.109487875", plan.BoostedMarginPercent)
	}
	if plan.Clamped {
		t.Errorf("plan should not be clamped")
	}

	summary := plan.Summary()
	if !summary.Reached || math.Abs(summary.Achieved-plan.FinalTarget) > constants.CurrencyTolerance {
		t.Errorf("summary = %+v", summary)
	}
}

func TestBuildOptimizationBoostPlanFailures(t *testing.T) {
	tests := []struct {
		name      string
		scenarios []scenario.Scenario
		reason    string
	}{
		{
			name:      "No commodity benchmark",
			scenarios: []scenario.Scenario{flat("canam", "CANAM", 400000), trojanScenario()},
			reason:    "No CSC-only benchmark found",
		},
		{
			name:      "No premium option",
			scenarios: []scenario.Scenario{flat("csc", "CSC", 400000), flat("canam", "CANAM", 410000)},
			reason:    "No Trojan manufacturing option found",
		},
		{
			name:      "Already above target",
			scenarios: []scenario.Scenario{flat("csc", "CSC", 300000), trojanScenario()},
			reason:    ReasonAlreadyAboveTarget,
		},
		{
			name:      "Margin above ceiling",
			scenarios: []scenario.Scenario{flat("csc", "CSC", 20000), richTrojanScenario()},
			reason:    ReasonAtMaxMargin,
		},
		{
			name:      "Empty list",
			scenarios: nil,
			reason:    "No CSC-only benchmark found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := BuildOptimizationBoostPlan(tt.scenarios, DefaultSettings())
			if plan.OK {
				t.Fatalf("expected failure")
			}
			if plan.Reason != tt.reason {
				t.Errorf("reason = %q, expected %q", plan.Reason, tt.reason)
			}
		})
	}
}

// richTrojanScenario carries a premium margin of about 102.56%, above any
// valid boost ceiling.
func richTrojanScenario() scenario.Scenario {
	return build("trojan-rich", "TROJAN", "TROJAN",
		part{"TROJAN", constants.CategoryDeckPreferred, 3900, 4000.0 / 3900 * 100},
	)
}

func TestBoostNeverLowersMargin(t *testing.T) {
	scenarios := []scenario.Scenario{flat("csc", "CSC", 20000), richTrojanScenario()}
	if math.Abs(scenarios[1].Subtotal-7900) > constants.CurrencyTolerance {
		t.Fatalf("premium scenario subtotal = %v, expected 7900", scenarios[1].Subtotal)
	}

	for _, ceiling := range []float64{15, constants.DefaultMaxMarginPercent, 100} {
		settings := DefaultSettings()
		settings.MaxMarginPercent = ceiling
		plan := BuildOptimizationBoostPlan(scenarios, settings)
		if plan.OK {
			t.Fatalf("ceiling %v: expected failure, got margin %v", ceiling, plan.BoostedMarginPercent)
		}
		if plan.Reason != ReasonAtMaxMargin {
			t.Errorf("ceiling %v: reason = %q, expected %q", ceiling, plan.Reason, ReasonAtMaxMargin)
		}
		if plan.BoostedMarginPercent != plan.BoostedOriginalMarginPercent {
			t.Errorf("ceiling %v: boosted margin %v moved from %v", ceiling, plan.BoostedMarginPercent, plan.BoostedOriginalMarginPercent)
		}

		out, snapshot, err := Apply(scenarios, plan, nil)
		if !errors.Is(err, ErrPlanNotOK) || out != nil || snapshot != nil {
			t.Errorf("ceiling %v: apply = %v %v %v, expected ErrPlanNotOK", ceiling, out, snapshot, err)
		}
	}
}

func TestBoostBound(t *testing.T) {
	scenarios := []scenario.Scenario{
		flat("csc", "CSC", 433004.65),
		flat("canam", "CANAM", 350000),
		trojanScenario(),
	}

	plan := BuildOptimizationBoostPlan(scenarios, DefaultSettings())
	if !plan.OK {
		t.Fatalf("expected a plan, got %q", plan.Reason)
	}
	if plan.FinalTarget > plan.NextCheapestSubtotal-constants.DefaultBoostUndercutBuffer {
		t.Errorf("final target %v exceeds cap %v", plan.FinalTarget, plan.NextCheapestSubtotal-constants.DefaultBoostUndercutBuffer)
	}
	if plan.FinalTarget != 349000 {
		t.Errorf("final target = %v, expected 349000", plan.FinalTarget)
	}

	settings := DefaultSettings()
	settings.MaxMarginPercent = 15
	clamped := BuildOptimizationBoostPlan(scenarios, settings)
	if !clamped.OK || clamped.BoostedMarginPercent != 15 || !clamped.Clamped {
		t.Errorf("expected clamp at 15, got %+v", clamped)
	}
	if clamped.Summary().Reached {
		t.Errorf("clamped plan cannot reach its target")
	}
}

func TestApplyAndRevertIsolation(t *testing.T) {
	original := exampleScenarios()
	pristine := make([]scenario.Scenario, len(original))
	for i := range original {
		pristine[i] = original[i].Clone()
	}

	plan := BuildOptimizationBoostPlan(original, DefaultSettings())
	boosted, snapshot, err := Apply(original, plan, nil)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if !reflect.DeepEqual(original, pristine) {
		t.Fatalf("Apply must not modify its input")
	}
	for i := range boosted {
		if boosted[i].ID == plan.BoostedOptionID {
			continue
		}
		if !reflect.DeepEqual(boosted[i], pristine[i]) {
			t.Errorf("scenario %s changed", boosted[i].ID)
		}
	}

	idx, _ := scenario.Find(boosted, plan.BoostedOptionID)
	target := boosted[idx]
	if !target.Boosted {
		t.Errorf("boosted flag not set")
	}
	if math.Abs(target.Subtotal-plan.FinalTarget) > constants.CurrencyTolerance {
		t.Errorf("boosted subtotal = %v, expected %v", target.Subtotal, plan.FinalTarget)
	}
	if !reflect.DeepEqual(target.Participants[1], pristine[idx].Participants[1]) {
		t.Errorf("non-premium participant changed: %+v", target.Participants[1])
	}
	if target.LeadTime != pristine[idx].LeadTime {
		t.Errorf("lead time changed")
	}

	reverted := Revert(boosted, snapshot)
	if !reflect.DeepEqual(reverted, pristine) {
		t.Errorf("Revert did not restore the original scenarios")
	}
}

func TestApplyRejectsFailedPlan(t *testing.T) {
	_, _, err := Apply(exampleScenarios(), Plan{Reason: ReasonAlreadyAboveTarget}, nil)
	if !errors.Is(err, ErrPlanNotOK) {
		t.Errorf("expected ErrPlanNotOK, got %v", err)
	}

	plan := BuildOptimizationBoostPlan(exampleScenarios(), DefaultSettings())
	_, _, err = Apply(exampleScenarios()[:3], plan, nil)
	if !errors.Is(err, ErrScenarioNotFound) {
		t.Errorf("expected ErrScenarioNotFound, got %v", err)
	}

	if got := Revert(exampleScenarios(), nil); len(got) != 4 {
		t.Errorf("Revert with nil snapshot should return scenarios unchanged")
	}
}

func TestPlanJSONEncodesUnboundedCap(t *testing.T) {
	plan := BuildOptimizationBoostPlan(nil, DefaultSettings())
	if !math.IsInf(plan.CapTarget, 1) {
		t.Fatalf("expected an unbounded cap, got %v", plan.CapTarget)
	}
	encoded, err := json.Marshal(plan)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(encoded), `"capTarget":null`) {
		t.Errorf("unexpected encoding %s", encoded)
	}

	bounded, err := json.Marshal(BuildOptimizationBoostPlan(exampleScenarios(), DefaultSettings()))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(bounded), `"capTarget":409000`) {
		t.Errorf("unexpected encoding %s", bounded)
	}
}

func TestPlanAgainstEnumeratedScenarios(t *testing.T) {
	in := scenario.Input{
		Project: project.Project{
			State:     "TX",
			JoistTons: 30,
			Lines: []project.LineItem{
				{ID: "L1", Specs: project.Specs{Depth: 1.5, Profile: "B Deck"}, Tons: 12},
				{ID: "L2", Specs: project.Specs{Depth: 2.0, Profile: "B Deck"}, Tons: 8},
			},
		},
		Catalog:  catalog.Build(nil),
		Pricer:   rates.NewPricer(rates.DefaultBook(), nil),
		Settings: assign.DefaultSettings(),
		Policy:   margin.DefaultPolicy(),
	}
	scenarios := scenario.BuildScenarioList(in, scenario.Options{})

	plan := BuildOptimizationBoostPlan(scenarios, DefaultSettings())
	if plan.Reason != ReasonAlreadyAboveTarget {
		t.Fatalf("reason = %q, expected %q", plan.Reason, ReasonAlreadyAboveTarget)
	}
	if !plan.HasNextCheapest() || plan.CapTarget != plan.NextCheapestSubtotal-constants.DefaultBoostUndercutBuffer {
		t.Errorf("cap = %v, next = %v", plan.CapTarget, plan.NextCheapestSubtotal)
	}
	if plan.FinalTarget > plan.CapTarget {
		t.Errorf("final target %v above cap %v", plan.FinalTarget, plan.CapTarget)
	}
}

func TestSettingsNormalizeAndValidate(t *testing.T) {
	s := Settings{PremiumSupplier: "trojan", TargetPct: math.NaN(), UndercutBuffer: -5}
	s.Normalize()
	if s.PremiumSupplier != "TROJAN" || s.CommoditySupplier != "CSC" {
		t.Errorf("unexpected suppliers %+v", s)
	}
	if s.TargetPct != 0.855 || s.UndercutBuffer != 1000 || s.MaxMarginPercent != 50 {
		t.Errorf("unexpected defaults %+v", s)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	s.TargetPct = 1.5
	if err := s.Validate(); err == nil {
		t.Errorf("expected error for target above 1")
	}
}
