// Package rates holds per-supplier pricing models and turns them into a
// cost per ton for a given quantity.
package rates

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/iwvelando/steel-estimate/pkg/constants"
	"github.com/iwvelando/steel-estimate/pkg/mathutil"
	"github.com/iwvelando/steel-estimate/pkg/pricing"
)

// ErrNoPricing reports that an otherwise eligible supplier has no usable
// pricing for the requested scope.
var ErrNoPricing = errors.New("no pricing configured")

// Kind selects how a Model computes its rate.
type Kind string

const (
	// KindLinear sums per-pound components and multiplies by pounds per ton.
	KindLinear Kind = "linear"
	// KindBucket looks up a tiered $/ton table by whole tons.
	KindBucket Kind = "bucket"
	// KindFactor multiplies another supplier's rate in the same scope.
	KindFactor Kind = "factor"
)

// Scope separates deck pricing from joist pricing.
type Scope string

const (
	ScopeDeck   Scope = "deck"
	ScopeJoists Scope = "joists"
)

// maxFactorDepth bounds factor-of-factor chains.
const maxFactorDepth = 4

// Model is one supplier's pricing for one scope.
type Model struct {
	Kind Kind `yaml:"kind" mapstructure:"kind" json:"kind"`

	// Linear components, all $/lb.
	PerPound           float64 `yaml:"perPound,omitempty" mapstructure:"perPound" json:"perPound,omitempty"`
	CoilRate           float64 `yaml:"coilRate,omitempty" mapstructure:"coilRate" json:"coilRate,omitempty"`
	InboundFreightRate float64 `yaml:"inboundFreightRate,omitempty" mapstructure:"inboundFreightRate" json:"inboundFreightRate,omitempty"`
	LaborRate          float64 `yaml:"laborRate,omitempty" mapstructure:"laborRate" json:"laborRate,omitempty"`

	Buckets []pricing.Bucket `yaml:"buckets,omitempty" mapstructure:"buckets" json:"buckets,omitempty"`

	Base   string  `yaml:"base,omitempty" mapstructure:"base" json:"base,omitempty"`
	Factor float64 `yaml:"factor,omitempty" mapstructure:"factor" json:"factor,omitempty"`

	// LowVolumeSurcharge is a flat amount added when the quantity is below
	// LowVolumeBelowTons.
	LowVolumeSurcharge float64 `yaml:"lowVolumeSurcharge,omitempty" mapstructure:"lowVolumeSurcharge" json:"lowVolumeSurcharge,omitempty"`
	LowVolumeBelowTons float64 `yaml:"lowVolumeBelowTons,omitempty" mapstructure:"lowVolumeBelowTons" json:"lowVolumeBelowTons,omitempty"`
}

// Book is the full pricing configuration, keyed by canonical supplier name.
type Book struct {
	Deck   map[string]Model `yaml:"deck" mapstructure:"deck" json:"deck"`
	Joists map[string]Model `yaml:"joists" mapstructure:"joists" json:"joists"`
}

// Normalize uppercases supplier keys and factor bases and sorts bucket
// tables.
func (b *Book) Normalize() {
	b.Deck = normalizeModels(b.Deck)
	b.Joists = normalizeModels(b.Joists)
}

func normalizeModels(models map[string]Model) map[string]Model {
	out := make(map[string]Model, len(models))
	for supplier, model := range models {
		model.Kind = Kind(strings.ToLower(strings.TrimSpace(string(model.Kind))))
		model.Base = canonical(model.Base)
		model.Buckets = pricing.SortBuckets(model.Buckets)
		out[canonical(supplier)] = model
	}
	return out
}

// Validate rejects models that can never produce a rate.
func (b Book) Validate() error {
	for _, scope := range []Scope{ScopeDeck, ScopeJoists} {
		models := b.models(scope)
		for _, supplier := range sortedKeys(models) {
			model := models[supplier]
			switch model.Kind {
			case KindLinear:
				if model.linearPerPound() < 0 {
					return fmt.Errorf("%s pricing for %s has a negative rate", scope, supplier)
				}
			case KindBucket:
				if len(model.Buckets) == 0 {
					return fmt.Errorf("%s pricing for %s has no buckets", scope, supplier)
				}
				for _, bucket := range model.Buckets {
					if bucket.End < bucket.Start {
						return fmt.Errorf("%s pricing for %s has bucket %.0f-%.0f with end before start", scope, supplier, bucket.Start, bucket.End)
					}
				}
			case KindFactor:
				if model.Base == "" {
					return fmt.Errorf("%s pricing for %s is a factor without a base supplier", scope, supplier)
				}
				if _, ok := models[model.Base]; !ok {
					return fmt.Errorf("%s pricing for %s references unknown base supplier %s", scope, supplier, model.Base)
				}
				if model.Factor <= 0 {
					return fmt.Errorf("%s pricing for %s requires a positive factor", scope, supplier)
				}
			default:
				return fmt.Errorf("%s pricing for %s has unsupported kind %q", scope, supplier, model.Kind)
			}
		}
	}
	return nil
}

// Warnings lists suspicious but usable settings.
func (b Book) Warnings() []string {
	var warnings []string
	for supplier, model := range b.Deck {
		if model.Kind == KindFactor && (model.Factor < 1 || model.Factor > 1.08) {
			warnings = append(warnings, fmt.Sprintf("deck factor for %s is %.3f, outside the usual 1.00-1.08 range", supplier, model.Factor))
		}
	}
	sort.Strings(warnings)
	return warnings
}

// Has reports whether the book has a model for the supplier in scope.
func (b Book) Has(scope Scope, supplier string) bool {
	_, ok := b.models(scope)[canonical(supplier)]
	return ok
}

// RatePerTon returns the $/ton for the supplier at the given quantity.
func (b Book) RatePerTon(scope Scope, supplier string, tons float64) (float64, error) {
	return b.rate(scope, canonical(supplier), mathutil.NonNegative(tons), 0)
}

func (b Book) rate(scope Scope, supplier string, tons float64, depth int) (float64, error) {
	if depth > maxFactorDepth {
		return 0, fmt.Errorf("%s pricing for %s: factor chain too deep: %w", scope, supplier, ErrNoPricing)
	}
	model, ok := b.models(scope)[supplier]
	if !ok {
		return 0, fmt.Errorf("%s pricing for %s: %w", scope, supplier, ErrNoPricing)
	}

	switch model.Kind {
	case KindLinear:
		rate := pricing.SumPerPound(model.PerPound, model.CoilRate, model.InboundFreightRate, model.LaborRate)
		if rate <= 0 {
			return 0, fmt.Errorf("%s pricing for %s has a zero rate: %w", scope, supplier, ErrNoPricing)
		}
		return rate, nil
	case KindBucket:
		rate, _, ok := pricing.BucketRate(model.Buckets, tons)
		if !ok || rate <= 0 {
			return 0, fmt.Errorf("%s pricing for %s has no bucket rate: %w", scope, supplier, ErrNoPricing)
		}
		return rate, nil
	case KindFactor:
		base, err := b.rate(scope, model.Base, tons, depth+1)
		if err != nil {
			return 0, err
		}
		return base * mathutil.NonNegative(model.Factor), nil
	default:
		return 0, fmt.Errorf("%s pricing for %s has kind %q: %w", scope, supplier, model.Kind, ErrNoPricing)
	}
}

// Surcharge returns the flat low-volume surcharge for the quantity, if any.
func (b Book) Surcharge(scope Scope, supplier string, tons float64) float64 {
	model, ok := b.models(scope)[canonical(supplier)]
	if !ok || model.LowVolumeSurcharge <= 0 {
		return 0
	}
	if tons > 0 && tons < model.LowVolumeBelowTons {
		return model.LowVolumeSurcharge
	}
	return 0
}

func (b Book) models(scope Scope) map[string]Model {
	if scope == ScopeJoists {
		return b.Joists
	}
	return b.Deck
}

func (m Model) linearPerPound() float64 {
	return m.PerPound + m.CoilRate + m.InboundFreightRate + m.LaborRate
}

func canonical(supplier string) string {
	return strings.Join(strings.Fields(strings.ToUpper(supplier)), " ")
}

func sortedKeys(models map[string]Model) []string {
	keys := make([]string, 0, len(models))
	for k := range models {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultBook is the built-in pricing used when no pricing is configured.
func DefaultBook() Book {
	return Book{
		Deck: map[string]Model{
			constants.SupplierTrojan: {
				Kind:               KindLinear,
				CoilRate:           1.45,
				InboundFreightRate: 0.08,
				LaborRate:          0.42,
			},
			constants.SupplierCSC: {
				Kind: KindBucket,
				Buckets: []pricing.Bucket{
					{Start: 0, End: 9, CostPerTon: 6000},
					{Start: 10, End: 24, CostPerTon: 4500},
					{Start: 25, End: 49, CostPerTon: 4000},
					{Start: 50, End: 99, CostPerTon: 3800},
					{Start: 100, End: 100000, CostPerTon: 3650},
				},
			},
			constants.SupplierCanam:   {Kind: KindLinear, PerPound: 2.10},
			constants.SupplierCordeck: {Kind: KindFactor, Base: constants.SupplierCSC, Factor: 1.05},
			constants.SupplierVerco:   {Kind: KindFactor, Base: constants.SupplierCSC, Factor: 1.08},
		},
		Joists: map[string]Model{
			constants.SupplierCSC: {
				Kind: KindBucket,
				Buckets: []pricing.Bucket{
					{Start: 0, End: 19, CostPerTon: 5200},
					{Start: 20, End: 49, CostPerTon: 4700},
					{Start: 50, End: 100000, CostPerTon: 4300},
				},
				LowVolumeSurcharge: 1500,
				LowVolumeBelowTons: 10,
			},
			constants.SupplierCanam: {Kind: KindLinear, PerPound: 2.35},
		},
	}
}
