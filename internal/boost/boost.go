// Package boost solves for the premium supplier margin that prices one
// scenario just under a commodity benchmark, and applies or reverts it.
package boost

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/iwvelando/steel-estimate/internal/catalog"
	"github.com/iwvelando/steel-estimate/internal/scenario"
	"github.com/iwvelando/steel-estimate/pkg/constants"
	"github.com/iwvelando/steel-estimate/pkg/mathutil"
	"github.com/iwvelando/steel-estimate/pkg/optimization"
	"github.com/iwvelando/steel-estimate/pkg/pricing"
)

// ReasonAlreadyAboveTarget is reported when the boosted scenario already
// prices at or above the final target.
const ReasonAlreadyAboveTarget = "Already above target"

// ReasonAtMaxMargin is reported when the premium margin already sits at or
// above the boost ceiling, so boosting could only lower it.
const ReasonAtMaxMargin = "Already at max margin"

var (
	// ErrPlanNotOK is returned when applying a failed plan.
	ErrPlanNotOK = errors.New("boost plan is not applicable")
	// ErrScenarioNotFound is returned when the boosted scenario is missing.
	ErrScenarioNotFound = errors.New("boosted scenario not found")
)

// Settings are the boost solver parameters.
type Settings struct {
	PremiumSupplier   string  `yaml:"premiumSupplier" mapstructure:"premiumSupplier" json:"premiumSupplier"`
	CommoditySupplier string  `yaml:"commoditySupplier" mapstructure:"commoditySupplier" json:"commoditySupplier"`
	TargetPct         float64 `yaml:"targetPct" mapstructure:"targetPct" json:"targetPct"`
	UndercutBuffer    float64 `yaml:"undercutBuffer" mapstructure:"undercutBuffer" json:"undercutBuffer"`
	MaxMarginPercent  float64 `yaml:"maxMarginPercent" mapstructure:"maxMarginPercent" json:"maxMarginPercent"`
}

// DefaultSettings returns the built-in boost parameters.
func DefaultSettings() Settings {
	return Settings{
		PremiumSupplier:   constants.SupplierTrojan,
		CommoditySupplier: constants.SupplierCSC,
		TargetPct:         constants.DefaultBoostTargetPct,
		UndercutBuffer:    constants.DefaultBoostUndercutBuffer,
		MaxMarginPercent:  constants.DefaultMaxMarginPercent,
	}
}

// Normalize fills unset values from the defaults.
func (s *Settings) Normalize() {
	defaults := DefaultSettings()
	s.PremiumSupplier = catalog.CanonicalSupplier(s.PremiumSupplier)
	if s.PremiumSupplier == "" {
		s.PremiumSupplier = defaults.PremiumSupplier
	}
	s.CommoditySupplier = catalog.CanonicalSupplier(s.CommoditySupplier)
	if s.CommoditySupplier == "" {
		s.CommoditySupplier = defaults.CommoditySupplier
	}
	if s.TargetPct <= 0 || math.IsNaN(s.TargetPct) {
		s.TargetPct = defaults.TargetPct
	}
	if s.UndercutBuffer < 0 || math.IsNaN(s.UndercutBuffer) {
		s.UndercutBuffer = defaults.UndercutBuffer
	}
	if s.MaxMarginPercent <= 0 || math.IsNaN(s.MaxMarginPercent) {
		s.MaxMarginPercent = defaults.MaxMarginPercent
	}
}

// Validate rejects settings the solver cannot use.
func (s Settings) Validate() error {
	if s.TargetPct <= 0 || s.TargetPct > 1 {
		return fmt.Errorf("boost target percentage must be in (0, 1], got %.4f", s.TargetPct)
	}
	if s.UndercutBuffer < 0 {
		return fmt.Errorf("boost undercut buffer cannot be negative")
	}
	if s.MaxMarginPercent <= 0 || s.MaxMarginPercent > 100 {
		return fmt.Errorf("max boost margin percent must be in (0, 100], got %.2f", s.MaxMarginPercent)
	}
	if s.PremiumSupplier == s.CommoditySupplier {
		return fmt.Errorf("premium and commodity supplier must differ")
	}
	return nil
}

// Plan is the solver result. Callers must check OK before using the target
// and margin fields.
type Plan struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`

	PremiumSupplier string `json:"premiumSupplier"`

	BenchmarkID       string  `json:"benchmarkId,omitempty"`
	BenchmarkSubtotal float64 `json:"benchmarkSubtotal"`

	NextCheapestID       string  `json:"nextCheapestId,omitempty"`
	NextCheapestSubtotal float64 `json:"nextCheapestSubtotal"`

	DesiredTarget float64 `json:"desiredTarget"`
	// CapTarget is +Inf when there is no alternative to undercut.
	CapTarget   float64 `json:"-"`
	FinalTarget float64 `json:"finalTarget"`

	BoostedOptionID              string  `json:"boostedOptionId,omitempty"`
	BoostedLabel                 string  `json:"boostedLabel,omitempty"`
	CurrentSubtotal              float64 `json:"currentSubtotal"`
	PremiumBaseSubtotal          float64 `json:"premiumBaseSubtotal"`
	OtherPartsSubtotal           float64 `json:"otherPartsSubtotal"`
	BoostedOriginalMarginPercent float64 `json:"boostedOriginalMarginPercent"`
	BoostedMarginPercent         float64 `json:"boostedMarginPercent"`
	Clamped                      bool    `json:"clamped"`
}

// HasNextCheapest reports whether a cap alternative exists.
func (p Plan) HasNextCheapest() bool {
	return p.NextCheapestID != ""
}

// MarshalJSON encodes an unbounded cap as null.
func (p Plan) MarshalJSON() ([]byte, error) {
	type plan Plan
	var capTarget *float64
	if !math.IsInf(p.CapTarget, 0) && !math.IsNaN(p.CapTarget) {
		capTarget = &p.CapTarget
	}
	return json.Marshal(struct {
		plan
		CapTarget *float64 `json:"capTarget"`
	}{plan(p), capTarget})
}

// BoostedSubtotal is the subtotal the boosted scenario reaches once applied.
func (p Plan) BoostedSubtotal() float64 {
	return pricing.RoundCents(p.OtherPartsSubtotal + p.PremiumBaseSubtotal*(1+p.BoostedMarginPercent/constants.PercentageMultiplier))
}

// Summary describes the plan as a margin adjustment.
func (p Plan) Summary() optimization.Summary {
	summary := optimization.Summary{
		Scope:      "scenario",
		TargetName: p.BoostedLabel,
		Supplier:   p.PremiumSupplier,
		Field:      "marginPercent",
		Original:   p.BoostedOriginalMarginPercent,
		Value:      p.BoostedOriginalMarginPercent,
		Target:     p.FinalTarget,
		Achieved:   p.CurrentSubtotal,
	}
	if !p.OK {
		summary.Notes = []string{p.Reason}
		return summary
	}
	summary.Value = p.BoostedMarginPercent
	summary.Achieved = p.BoostedSubtotal()
	summary.Clamped = p.Clamped
	summary.Reached = mathutil.WithinTolerance(summary.Achieved, p.FinalTarget, constants.CurrencyTolerance)
	return summary
}

// BuildOptimizationBoostPlan picks the cheapest scenario carrying the premium
// supplier on deck and solves for the premium margin percent that prices it
// at the final target.
func BuildOptimizationBoostPlan(scenarios []scenario.Scenario, settings Settings) Plan {
	settings.Normalize()
	plan := Plan{PremiumSupplier: settings.PremiumSupplier, CapTarget: math.Inf(1)}

	benchmark := -1
	for i, s := range scenarios {
		if !s.UsesOnly(settings.CommoditySupplier) {
			continue
		}
		if benchmark < 0 || s.Subtotal > scenarios[benchmark].Subtotal {
			benchmark = i
		}
	}
	if benchmark < 0 {
		plan.Reason = fmt.Sprintf("No %s-only benchmark found", settings.CommoditySupplier)
		return plan
	}
	plan.BenchmarkID = scenarios[benchmark].ID
	plan.BenchmarkSubtotal = scenarios[benchmark].Subtotal

	boosted := -1
	for i, s := range scenarios {
		idx, ok := s.DeckParticipant(settings.PremiumSupplier)
		if !ok || s.Participants[idx].SubtotalCost <= 0 {
			continue
		}
		if boosted < 0 || cheaper(s, scenarios[boosted]) {
			boosted = i
		}
	}
	if boosted < 0 {
		plan.Reason = fmt.Sprintf("No %s manufacturing option found", cases.Title(language.English).String(settings.PremiumSupplier))
		return plan
	}
	target := scenarios[boosted]
	premium, _ := target.DeckParticipant(settings.PremiumSupplier)
	plan.BoostedOptionID = target.ID
	plan.BoostedLabel = target.Label
	plan.CurrentSubtotal = target.Subtotal
	plan.PremiumBaseSubtotal = target.Participants[premium].SubtotalCost
	plan.BoostedOriginalMarginPercent = target.Participants[premium].MarginPercent
	plan.BoostedMarginPercent = plan.BoostedOriginalMarginPercent

	next := -1
	for i, s := range scenarios {
		if i == boosted || s.ID == target.ID {
			continue
		}
		if next < 0 || cheaper(s, scenarios[next]) {
			next = i
		}
	}
	if next >= 0 {
		plan.NextCheapestID = scenarios[next].ID
		plan.NextCheapestSubtotal = scenarios[next].Subtotal
		plan.CapTarget = plan.NextCheapestSubtotal - settings.UndercutBuffer
	}

	plan.DesiredTarget = plan.BenchmarkSubtotal * settings.TargetPct
	plan.FinalTarget = math.Min(plan.DesiredTarget, plan.CapTarget)

	if plan.CurrentSubtotal >= plan.FinalTarget {
		plan.Reason = ReasonAlreadyAboveTarget
		return plan
	}

	base := plan.PremiumBaseSubtotal
	plan.OtherPartsSubtotal = plan.CurrentSubtotal - base*(1+plan.BoostedOriginalMarginPercent/constants.PercentageMultiplier)
	solved := ((plan.FinalTarget-plan.OtherPartsSubtotal)/base - 1) * constants.PercentageMultiplier
	boostedPercent := mathutil.Clamp(solved, 0, settings.MaxMarginPercent)
	if boostedPercent <= plan.BoostedOriginalMarginPercent {
		plan.Reason = ReasonAtMaxMargin
		return plan
	}
	plan.BoostedMarginPercent = boostedPercent
	plan.Clamped = boostedPercent != solved
	plan.OK = true
	return plan
}

func cheaper(a, b scenario.Scenario) bool {
	if a.Subtotal != b.Subtotal {
		return a.Subtotal < b.Subtotal
	}
	return a.ID < b.ID
}

// Snapshot holds the pre-boost state of the boosted scenario.
type Snapshot struct {
	ScenarioID string            `json:"scenarioId"`
	Original   scenario.Scenario `json:"original"`
}

// Apply returns a copy of scenarios with the plan applied to the boosted
// scenario only, plus the snapshot Revert needs. fee recomputes the
// detailing amount of the boosted scenario.
func Apply(scenarios []scenario.Scenario, plan Plan, fee scenario.FeeFunc) ([]scenario.Scenario, *Snapshot, error) {
	if !plan.OK {
		return nil, nil, fmt.Errorf("%w: %s", ErrPlanNotOK, plan.Reason)
	}
	idx, ok := scenario.Find(scenarios, plan.BoostedOptionID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrScenarioNotFound, plan.BoostedOptionID)
	}

	out := append([]scenario.Scenario(nil), scenarios...)
	boosted := scenarios[idx].Clone()
	premium, ok := boosted.DeckParticipant(plan.PremiumSupplier)
	if !ok {
		return nil, nil, fmt.Errorf("scenario %s has no %s deck participant: %w", plan.BoostedOptionID, plan.PremiumSupplier, ErrScenarioNotFound)
	}

	participant := &boosted.Participants[premium]
	participant.MarginPercent = plan.BoostedMarginPercent
	participant.MarginAmount = mathutil.ApplyPercentage(participant.SubtotalCost, plan.BoostedMarginPercent)
	boosted.Retotal(fee)
	boosted.Boosted = true
	out[idx] = boosted

	return out, &Snapshot{ScenarioID: plan.BoostedOptionID, Original: scenarios[idx].Clone()}, nil
}

// Revert restores the snapshotted scenario exactly. Scenarios are returned
// unchanged when the snapshot is nil or its scenario is gone.
func Revert(scenarios []scenario.Scenario, snapshot *Snapshot) []scenario.Scenario {
	out := append([]scenario.Scenario(nil), scenarios...)
	if snapshot == nil {
		return out
	}
	if idx, ok := scenario.Find(out, snapshot.ScenarioID); ok {
		out[idx] = snapshot.Original.Clone()
	}
	return out
}
