package catalog

import (
	"math"
	"sort"
	"strings"

	"github.com/iwvelando/steel-estimate/internal/project"
	"github.com/iwvelando/steel-estimate/pkg/constants"
)

// MeetsFlags reports whether the supplier's capabilities satisfy every flag
// the project requires. A flag the project does not require never excludes.
func (r SupplierRule) MeetsFlags(flags project.Flags) bool {
	if flags.AmericanSteelRequired && !r.AmericanSteel {
		return false
	}
	if flags.AmericanManufacturing && !r.AmericanManufacturing {
		return false
	}
	if flags.SDIManufacturer && !r.SDIManufacturing {
		return false
	}
	return true
}

// SupportsDepth reports whether the supplier fabricates the given depth.
func (r SupplierRule) SupportsDepth(depth float64) bool {
	for _, d := range r.Depths {
		if math.Abs(d-depth) <= constants.DepthTolerance {
			return true
		}
	}
	return false
}

// SupportsProfile reports whether a profile is available. Profiles without a
// stated restriction are assumed available.
func (r SupplierRule) SupportsProfile(profile string) bool {
	key := NormalizeProfile(profile)
	if key == "" {
		return true
	}
	available, stated := r.ProfileAvailability[key]
	return !stated || available
}

// EligibleForLine is the hard deck eligibility predicate.
func (r SupplierRule) EligibleForLine(line project.LineItem, flags project.Flags) bool {
	return r.DealsInDeck &&
		r.MeetsFlags(flags) &&
		r.SupportsDepth(line.Specs.Depth) &&
		r.SupportsProfile(line.Specs.Profile)
}

// EligibleForJoists is the hard joist eligibility predicate.
func (r SupplierRule) EligibleForJoists(flags project.Flags) bool {
	return r.DealsInJoists && r.MeetsFlags(flags)
}

// EligibleForLine returns every rule eligible for the line, best first.
func (c Catalog) EligibleForLine(line project.LineItem, flags project.Flags, state string) []SupplierRule {
	var eligible []SupplierRule
	for _, rule := range c.Rules() {
		if rule.EligibleForLine(line, flags) {
			eligible = append(eligible, rule)
		}
	}
	RankRules(eligible, state, deckLocation)
	return eligible
}

// EligibleForAllLines returns the suppliers eligible for every line, in
// Vendors order. An empty line set yields no suppliers.
func (c Catalog) EligibleForAllLines(lines []project.LineItem, flags project.Flags) []string {
	if len(lines) == 0 {
		return nil
	}
	var vendors []string
	for _, rule := range c.Rules() {
		ok := true
		for _, line := range lines {
			if !rule.EligibleForLine(line, flags) {
				ok = false
				break
			}
		}
		if ok {
			vendors = append(vendors, rule.Supplier)
		}
	}
	return vendors
}

// JoistEligible returns every joist-eligible rule, best first.
func (c Catalog) JoistEligible(flags project.Flags, state string) []SupplierRule {
	var eligible []SupplierRule
	for _, rule := range c.Rules() {
		if rule.EligibleForJoists(flags) {
			eligible = append(eligible, rule)
		}
	}
	RankRules(eligible, state, joistLocation)
	return eligible
}

func deckLocation(r SupplierRule) string  { return r.DeckLocation }
func joistLocation(r SupplierRule) string { return r.JoistLocation }

// RankRules sorts rules by priority, then by whether location matches the
// project state, then by supplier name.
func RankRules(rules []SupplierRule, state string, location func(SupplierRule) string) {
	state = strings.ToUpper(strings.TrimSpace(state))
	local := func(r SupplierRule) bool {
		return state != "" && location(r) == state
	}
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if la, lb := local(a), local(b); la != lb {
			return la
		}
		return a.Supplier < b.Supplier
	})
}
