package scenario

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iwvelando/steel-estimate/internal/assign"
	"github.com/iwvelando/steel-estimate/internal/catalog"
	"github.com/iwvelando/steel-estimate/internal/margin"
	"github.com/iwvelando/steel-estimate/internal/project"
	"github.com/iwvelando/steel-estimate/internal/rates"
	"github.com/iwvelando/steel-estimate/pkg/constants"
)

// Input bundles everything the enumerator prices against.
type Input struct {
	Project  project.Project
	Catalog  catalog.Catalog
	Pricer   *rates.Pricer
	Settings assign.Settings
	Policy   margin.Policy
}

func (in Input) normalized() Input {
	in.Project = in.Project.Sanitized()
	in.Settings.Normalize()
	in.Policy.Normalize()
	return in
}

// Options tune scenario construction. Zero values use the defaults.
type Options struct {
	Detailing FeeFunc
	LeadTimes LeadTimes
	// AppliedID overrides Project.AppliedScenarioID when set.
	AppliedID string
}

// DeckCandidate is one way of assigning every deck line.
type DeckCandidate struct {
	Kind         string            `json:"kind"`
	VendorByLine map[string]string `json:"vendorByLine"`
	DeckCost     float64           `json:"deckCost"`
}

// Candidate kinds.
const (
	KindSingle   = "single"
	KindSplit    = "split"
	KindSelected = "selected"
)

// EnumerateFeasibleDeckAssignments lists the single-vendor candidates, the
// premium/rest split candidates and the selector's own choice. Candidates
// that price to zero or carry a pricing error are dropped; duplicates by
// signature keep the first occurrence.
func EnumerateFeasibleDeckAssignments(in Input) []DeckCandidate {
	in = in.normalized()
	p := in.Project
	if len(p.Lines) == 0 {
		return []DeckCandidate{{Kind: KindSelected, VendorByLine: map[string]string{}}}
	}

	var raw []DeckCandidate
	for _, vendor := range in.Catalog.EligibleForAllLines(p.Lines, p.Flags) {
		raw = append(raw, DeckCandidate{Kind: KindSingle, VendorByLine: uniform(p.Lines, vendor)})
	}

	var premiumLines, otherLines []project.LineItem
	for _, line := range p.Lines {
		if in.Settings.PremiumEligible(line, p.Flags, in.Catalog) {
			premiumLines = append(premiumLines, line)
		} else {
			otherLines = append(otherLines, line)
		}
	}
	if len(premiumLines) > 0 && len(otherLines) > 0 {
		premiumVendors := in.Catalog.EligibleForAllLines(premiumLines, p.Flags)
		otherVendors := in.Catalog.EligibleForAllLines(otherLines, p.Flags)
		for _, a := range premiumVendors {
			for _, b := range otherVendors {
				if a == b {
					continue
				}
				vendorByLine := uniform(premiumLines, a)
				for _, line := range otherLines {
					vendorByLine[line.ID] = b
				}
				raw = append(raw, DeckCandidate{Kind: KindSplit, VendorByLine: vendorByLine})
			}
		}
	}

	selected := assign.SelectVendorsForProject(p, in.Catalog, in.Pricer, in.Settings)
	if !hasFallback(selected) {
		vendorByLine := make(map[string]string, len(selected.DeckAssignments))
		for _, a := range selected.DeckAssignments {
			vendorByLine[a.LineID] = a.Vendor
		}
		raw = append(raw, DeckCandidate{Kind: KindSelected, VendorByLine: vendorByLine})
	}

	seen := make(map[string]bool, len(raw))
	candidates := make([]DeckCandidate, 0, len(raw))
	for _, c := range raw {
		sig := Signature(c.VendorByLine, "")
		if seen[sig] {
			continue
		}
		seen[sig] = true

		priced := assign.Assign(p, in.Catalog, in.Pricer, in.Settings, c.VendorByLine, "")
		if priced.DeckCost <= 0 || len(priced.Errors()) > 0 {
			continue
		}
		c.DeckCost = priced.DeckCost
		candidates = append(candidates, c)
	}
	return candidates
}

// EnumerateFeasibleJoistSuppliers lists joist-eligible suppliers with a
// positive rate, best first. Without joist scope it returns [""].
func EnumerateFeasibleJoistSuppliers(in Input) []string {
	in = in.normalized()
	p := in.Project
	if !p.HasJoists() {
		return []string{""}
	}
	var suppliers []string
	for _, rule := range in.Catalog.JoistEligible(p.Flags, p.StateCode()) {
		rate, err := in.Pricer.RatePerTon(rates.ScopeJoists, rule.Supplier, p.JoistTons)
		if err != nil || rate <= 0 {
			continue
		}
		suppliers = append(suppliers, rule.Supplier)
	}
	return suppliers
}

// BuildScenarioList prices every deck candidate against every joist
// supplier, enforces the minimum project margin, adds accessories, detailing
// and lead time, and returns the unique scenarios ranked by Sort.
func BuildScenarioList(in Input, opts Options) []Scenario {
	in = in.normalized()
	p := in.Project

	fee := opts.Detailing
	if fee == nil {
		fee = DefaultDetailingSchedule().Fee
	}
	leadTimes := opts.LeadTimes
	if leadTimes == nil {
		leadTimes = DefaultLeadTimes()
	}
	leadTimes = leadTimes.Normalize()

	deckCandidates := EnumerateFeasibleDeckAssignments(in)
	joistSuppliers := EnumerateFeasibleJoistSuppliers(in)

	seen := make(map[string]bool)
	var scenarios []Scenario
	for _, candidate := range deckCandidates {
		for _, joistVendor := range joistSuppliers {
			sig := Signature(candidate.VendorByLine, joistVendor)
			if seen[sig] {
				continue
			}

			result := assign.Assign(p, in.Catalog, in.Pricer, in.Settings, candidate.VendorByLine, joistVendor)
			if p.HasJoists() && result.JoistCost <= 0 {
				continue
			}
			if len(result.Errors()) > 0 || result.TotalCost() <= 0 {
				continue
			}
			seen[sig] = true

			s := Scenario{
				ID:              IDFor(sig),
				Signature:       sig,
				DeckAssignments: result.DeckAssignments,
				JoistVendor:     result.JoistVendor,
				Joist:           result.Joist,
				Tons:            p.TotalTons(),
				ComplexityTier:  p.ComplexityTier,
				AccessoriesCost: p.AccessoriesCost,
			}
			s.Participants = buildParticipants(result, in.Policy, in.Settings.PremiumSupplier, p.MarginOverrides)
			s.Retotal(fee)
			s.TopUp = enforceFloor(&s, in.Policy, fee)
			s.Label = label(s)
			s.LeadTime = leadTimes.Combine(append(s.DeckVendors(), s.JoistVendor)...)
			scenarios = append(scenarios, s)
		}
	}

	appliedID := opts.AppliedID
	if appliedID == "" {
		appliedID = p.AppliedScenarioID
	}
	Sort(scenarios, appliedID)
	return scenarios
}

// JoistOverrideKey is the MarginOverrides key for the joist participant.
const JoistOverrideKey = constants.CategoryJoists

func buildParticipants(result assign.Result, policy margin.Policy, premium string, overrides map[string]float64) []margin.Participant {
	lookup := make(map[string]float64, len(overrides))
	for key, percent := range overrides {
		lookup[catalog.CanonicalSupplier(key)] = percent
	}
	overrideFor := func(key string) *float64 {
		if percent, ok := lookup[catalog.CanonicalSupplier(key)]; ok {
			return &percent
		}
		return nil
	}

	participants := make([]margin.Participant, 0, len(result.Rollups)+1)
	for _, rollup := range result.Rollups {
		category := margin.CategoryFor(rollup.Vendor, premium, false)
		participants = append(participants, participant(policy, rollup.Vendor, category, rollup.Cost, overrideFor(rollup.Vendor)))
	}
	if result.JoistVendor != "" {
		participants = append(participants, participant(policy, result.JoistVendor, constants.CategoryJoists, result.JoistCost, overrideFor(JoistOverrideKey)))
	}
	return participants
}

func participant(policy margin.Policy, supplier, category string, cost float64, override *float64) margin.Participant {
	applied := policy.ApplyPricingMargin(cost, category, override)
	return margin.Participant{
		Supplier:      supplier,
		Category:      category,
		SubtotalCost:  cost,
		MarginPercent: applied.MarginPercent,
		MarginAmount:  applied.MarginAmount,
		Locked:        override != nil,
	}
}

// enforceFloor tops up the scenario margin and retotals the scenario from
// the participant that absorbed the shortfall. Sync hooks are cleared
// before returning.
func enforceFloor(s *Scenario, policy margin.Policy, fee FeeFunc) margin.TopUp {
	ptrs := make([]*margin.Participant, len(s.Participants))
	for i := range s.Participants {
		ptrs[i] = &s.Participants[i]
		ptrs[i].Sync = func(float64) { s.Retotal(fee) }
	}
	topUp := margin.EnforceMinProjectMarginByPriority(ptrs, policy.MinProjectMargin, policy.TopUpPriority)
	for _, p := range ptrs {
		p.Sync = nil
	}
	return topUp
}

func label(s Scenario) string {
	deck := strings.Join(s.DeckVendors(), " + ")
	if deck == "" {
		deck = "no deck"
	}
	if s.JoistVendor == "" {
		return deck
	}
	return fmt.Sprintf("%s / joists %s", deck, s.JoistVendor)
}

func uniform(lines []project.LineItem, vendor string) map[string]string {
	vendorByLine := make(map[string]string, len(lines))
	for _, line := range lines {
		vendorByLine[line.ID] = vendor
	}
	return vendorByLine
}

func hasFallback(result assign.Result) bool {
	for _, a := range result.DeckAssignments {
		if a.Outcome.IsFallback() {
			return true
		}
	}
	return false
}

// Vendors lists every supplier appearing in the scenarios, sorted.
func Vendors(scenarios []Scenario) []string {
	seen := make(map[string]bool)
	var vendors []string
	for _, s := range scenarios {
		for _, p := range s.Participants {
			if !seen[p.Supplier] {
				seen[p.Supplier] = true
				vendors = append(vendors, p.Supplier)
			}
		}
	}
	sort.Strings(vendors)
	return vendors
}
