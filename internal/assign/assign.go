// Package assign picks a supplier for every deck line and one supplier for
// the aggregate joist tonnage, then prices the result.
package assign

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/iwvelando/steel-estimate/internal/catalog"
	"github.com/iwvelando/steel-estimate/internal/project"
	"github.com/iwvelando/steel-estimate/internal/rates"
	"github.com/iwvelando/steel-estimate/pkg/constants"
	"github.com/iwvelando/steel-estimate/pkg/mathutil"
)

// OutcomeKind tags how a vendor was chosen.
type OutcomeKind string

const (
	// Matched means an eligibility rule selected the vendor.
	Matched OutcomeKind = "matched"
	// Fallback means no rule matched and a default vendor was used.
	Fallback OutcomeKind = "fallback"
)

// Outcome explains a vendor choice.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Reason string      `json:"reason"`
}

// IsFallback reports whether the outcome came from the default list.
func (o Outcome) IsFallback() bool {
	return o.Kind == Fallback
}

func matched(format string, args ...interface{}) Outcome {
	return Outcome{Kind: Matched, Reason: fmt.Sprintf(format, args...)}
}

func fallback(format string, args ...interface{}) Outcome {
	return Outcome{Kind: Fallback, Reason: fmt.Sprintf(format, args...)}
}

// Assignment is one deck line's supplier and price.
type Assignment struct {
	LineID        string  `json:"lineId"`
	Vendor        string  `json:"vendor"`
	Tons          float64 `json:"tons"`
	PricePerTon   float64 `json:"pricePerTon"`
	ExtendedTotal float64 `json:"extendedTotal"`
	Outcome       Outcome `json:"outcome"`
	ErrorMessage  string  `json:"errorMessage,omitempty"`
}

// JoistAssignment is the aggregate joist supplier and price.
type JoistAssignment struct {
	Vendor       string  `json:"vendor"`
	Tons         float64 `json:"tons"`
	PricePerTon  float64 `json:"pricePerTon"`
	Surcharge    float64 `json:"surcharge"`
	Total        float64 `json:"total"`
	Outcome      Outcome `json:"outcome"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
}

// Rollup totals one vendor's deck scope.
type Rollup struct {
	Vendor string  `json:"vendor"`
	Lines  int     `json:"lines"`
	Tons   float64 `json:"tons"`
	Cost   float64 `json:"cost"`
}

// Result is a fully priced assignment.
type Result struct {
	DeckAssignments []Assignment    `json:"deckAssignments"`
	JoistVendor     string          `json:"joistVendor"`
	Joist           JoistAssignment `json:"joist"`
	Rollups         []Rollup        `json:"rollups"`
	DeckCost        float64         `json:"deckCost"`
	JoistCost       float64         `json:"joistCost"`
}

// TotalCost is deck plus joist cost.
func (r Result) TotalCost() float64 {
	return r.DeckCost + r.JoistCost
}

// Errors returns every pricing error message in line order.
func (r Result) Errors() []string {
	var errs []string
	for _, a := range r.DeckAssignments {
		if a.ErrorMessage != "" {
			errs = append(errs, a.ErrorMessage)
		}
	}
	if r.Joist.ErrorMessage != "" {
		errs = append(errs, r.Joist.ErrorMessage)
	}
	return errs
}

// Settings carries the hardcoded preferences of the selector.
type Settings struct {
	PremiumSupplier string    `yaml:"premiumSupplier" mapstructure:"premiumSupplier" json:"premiumSupplier"`
	PremiumDepths   []float64 `yaml:"premiumDepths" mapstructure:"premiumDepths" json:"premiumDepths"`
	// JoistFallback is used for unmatched deck lines when joists are in scope
	// and for the joist vendor when no joist rule matches.
	JoistFallback []string `yaml:"joistFallback" mapstructure:"joistFallback" json:"joistFallback"`
	// LocalFallback is used for unmatched deck lines when joists are out of scope.
	LocalFallback []string `yaml:"localFallback" mapstructure:"localFallback" json:"localFallback"`
}

// DefaultSettings returns the built-in selector preferences.
func DefaultSettings() Settings {
	return Settings{
		PremiumSupplier: constants.SupplierTrojan,
		PremiumDepths:   []float64{1.5, 3.0},
		JoistFallback:   []string{constants.SupplierCSC, constants.SupplierCanam},
		LocalFallback:   []string{constants.SupplierCordeck, constants.SupplierVerco},
	}
}

// Normalize fills empty settings from the defaults and canonicalizes names.
func (s *Settings) Normalize() {
	defaults := DefaultSettings()
	if strings.TrimSpace(s.PremiumSupplier) == "" {
		s.PremiumSupplier = defaults.PremiumSupplier
	}
	if len(s.PremiumDepths) == 0 {
		s.PremiumDepths = defaults.PremiumDepths
	}
	s.PremiumDepths = append([]float64(nil), s.PremiumDepths...)
	if len(s.JoistFallback) == 0 {
		s.JoistFallback = defaults.JoistFallback
	}
	if len(s.LocalFallback) == 0 {
		s.LocalFallback = defaults.LocalFallback
	}
	s.PremiumSupplier = catalog.CanonicalSupplier(s.PremiumSupplier)
	s.JoistFallback = canonicalList(s.JoistFallback)
	s.LocalFallback = canonicalList(s.LocalFallback)
}

// IsPremiumDepth reports whether depth is one of the premium depths.
func (s Settings) IsPremiumDepth(depth float64) bool {
	for _, d := range s.PremiumDepths {
		if math.Abs(d-depth) <= constants.DepthTolerance {
			return true
		}
	}
	return false
}

// PremiumEligible reports whether a line should go to the premium supplier
// under the hardcoded preference: premium depth, no SDI requirement and the
// premium supplier's rule accepts the line.
func (s Settings) PremiumEligible(line project.LineItem, flags project.Flags, cat catalog.Catalog) bool {
	if flags.SDIManufacturer || !s.IsPremiumDepth(line.Specs.Depth) {
		return false
	}
	rule, ok := cat.Rule(s.PremiumSupplier)
	return ok && rule.EligibleForLine(line, flags)
}

func canonicalList(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if c := catalog.CanonicalSupplier(name); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// SelectVendorsForProject assigns and prices every line of the project.
func SelectVendorsForProject(p project.Project, cat catalog.Catalog, pricer *rates.Pricer, settings Settings) Result {
	settings.Normalize()
	p = p.Sanitized()
	state := p.StateCode()

	assignments := make([]Assignment, len(p.Lines))
	for i, line := range p.Lines {
		vendor, outcome := chooseDeckVendor(line, p, cat, state, settings)
		assignments[i] = Assignment{LineID: line.ID, Vendor: vendor, Tons: line.Tons, Outcome: outcome}
	}

	joistVendor, joistOutcome := chooseJoistVendor(p, cat, state, assignments, settings)
	return price(p, assignments, joistVendor, joistOutcome, pricer)
}

// Assign prices a caller-chosen vendor per line (by line ID) and joist
// vendor. Lines missing from vendorByLine fall back to the selector.
func Assign(p project.Project, cat catalog.Catalog, pricer *rates.Pricer, settings Settings, vendorByLine map[string]string, joistVendor string) Result {
	settings.Normalize()
	p = p.Sanitized()
	state := p.StateCode()

	assignments := make([]Assignment, len(p.Lines))
	for i, line := range p.Lines {
		vendor, ok := vendorByLine[line.ID]
		outcome := matched("chosen by scenario")
		if !ok || vendor == "" {
			vendor, outcome = chooseDeckVendor(line, p, cat, state, settings)
		}
		assignments[i] = Assignment{LineID: line.ID, Vendor: catalog.CanonicalSupplier(vendor), Tons: line.Tons, Outcome: outcome}
	}

	joistOutcome := matched("chosen by scenario")
	if !p.HasJoists() {
		joistVendor = ""
	}
	return price(p, assignments, catalog.CanonicalSupplier(joistVendor), joistOutcome, pricer)
}

func chooseDeckVendor(line project.LineItem, p project.Project, cat catalog.Catalog, state string, settings Settings) (string, Outcome) {
	eligible := cat.EligibleForLine(line, p.Flags, state)

	vendor := ""
	var outcome Outcome
	if settings.PremiumEligible(line, p.Flags, cat) {
		vendor = settings.PremiumSupplier
		outcome = matched("premium depth %.2f preferred for %s", line.Specs.Depth, vendor)
	}

	if p.Flags.SpecifiedManufacturer && strings.TrimSpace(line.Specs.Profile) != "" {
		if rule, ok := specifiedMatch(eligible, p.Flags.SpecifiedManufacturerName); ok {
			return rule.Supplier, matched("specified manufacturer %s", rule.Supplier)
		}
	}

	if vendor != "" {
		return vendor, outcome
	}

	if len(eligible) > 0 {
		best := eligible[0]
		return best.Supplier, matched("rule priority %d", best.Priority)
	}

	list := settings.LocalFallback
	if p.HasJoists() {
		list = settings.JoistFallback
	}
	if len(list) == 0 {
		return "", fallback("no eligible supplier for line %s and no fallback configured", line.ID)
	}
	return list[0], fallback("no eligible supplier for line %s (depth %.2f, profile %q); defaulted to %s",
		line.ID, line.Specs.Depth, line.Specs.Profile, list[0])
}

func specifiedMatch(eligible []catalog.SupplierRule, name string) (catalog.SupplierRule, bool) {
	wanted := catalog.CanonicalSupplier(name)
	if wanted == "" {
		return catalog.SupplierRule{}, false
	}
	for _, rule := range eligible {
		if rule.Supplier == wanted {
			return rule, true
		}
	}
	for _, rule := range eligible {
		if strings.Contains(wanted, rule.Supplier) || strings.Contains(rule.Supplier, wanted) {
			return rule, true
		}
	}
	return catalog.SupplierRule{}, false
}

func chooseJoistVendor(p project.Project, cat catalog.Catalog, state string, deck []Assignment, settings Settings) (string, Outcome) {
	if !p.HasJoists() {
		return "", Outcome{}
	}

	eligible := cat.JoistEligible(p.Flags, state)
	used := make(map[string]bool, len(deck))
	for _, a := range deck {
		used[a.Vendor] = true
	}
	for _, rule := range eligible {
		if used[rule.Supplier] {
			return rule.Supplier, matched("joist supplier also supplies deck")
		}
	}
	if len(eligible) > 0 {
		return eligible[0].Supplier, matched("joist rule priority %d", eligible[0].Priority)
	}
	if len(settings.JoistFallback) == 0 {
		return "", fallback("no eligible joist supplier and no fallback configured")
	}
	return settings.JoistFallback[0], fallback("no eligible joist supplier; defaulted to %s", settings.JoistFallback[0])
}

// price fills rates on deck assignments and joists. Deck buckets are looked
// up with each vendor's aggregate tonnage.
func price(p project.Project, assignments []Assignment, joistVendor string, joistOutcome Outcome, pricer *rates.Pricer) Result {
	vendorTons := make(map[string]float64)
	for _, a := range assignments {
		vendorTons[a.Vendor] += a.Tons
	}

	rollups := make(map[string]*Rollup)
	result := Result{DeckAssignments: assignments, JoistVendor: joistVendor}
	for i := range assignments {
		a := &assignments[i]
		rate, err := pricer.RatePerTon(rates.ScopeDeck, a.Vendor, vendorTons[a.Vendor])
		if err != nil {
			a.ErrorMessage = fmt.Sprintf("line %s: %v", a.LineID, err)
			rate = 0
		}
		a.PricePerTon = mathutil.NonNegative(rate)
		a.ExtendedTotal = a.Tons * a.PricePerTon
		result.DeckCost += a.ExtendedTotal

		r, ok := rollups[a.Vendor]
		if !ok {
			r = &Rollup{Vendor: a.Vendor}
			rollups[a.Vendor] = r
		}
		r.Lines++
		r.Tons += a.Tons
		r.Cost += a.ExtendedTotal
	}

	for _, r := range rollups {
		result.Rollups = append(result.Rollups, *r)
	}
	sort.Slice(result.Rollups, func(i, j int) bool {
		return result.Rollups[i].Vendor < result.Rollups[j].Vendor
	})

	if p.HasJoists() {
		joist := JoistAssignment{Vendor: joistVendor, Tons: p.JoistTons, Outcome: joistOutcome}
		rate, err := pricer.RatePerTon(rates.ScopeJoists, joistVendor, p.JoistTons)
		if err != nil {
			joist.ErrorMessage = fmt.Sprintf("joists: %v", err)
			rate = 0
		}
		joist.PricePerTon = mathutil.NonNegative(rate)
		if joist.PricePerTon > 0 {
			joist.Surcharge = pricer.Surcharge(rates.ScopeJoists, joistVendor, p.JoistTons)
		}
		joist.Total = joist.Tons*joist.PricePerTon + joist.Surcharge
		result.Joist = joist
		result.JoistCost = joist.Total
	}

	return result
}
