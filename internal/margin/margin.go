// Package margin applies category margins to supplier cost bases and tops up
// the project margin to a configured dollar floor.
package margin

import (
	"fmt"
	"strings"

	"github.com/iwvelando/steel-estimate/pkg/constants"
	"github.com/iwvelando/steel-estimate/pkg/mathutil"
)

const defaultMaxPercent = 100.0

// Policy is the margin configuration.
type Policy struct {
	// Percents maps a category (see constants.Category*) to a base margin percent.
	Percents map[string]float64 `yaml:"percents" mapstructure:"percents" json:"percents"`
	// MinProjectMargin is the dollar floor on total project margin.
	MinProjectMargin float64 `yaml:"minProjectMargin" mapstructure:"minProjectMargin" json:"minProjectMargin"`
	// TopUpPriority is the supplier order used to absorb a shortfall. It is
	// only used for redistribution, never for assignment.
	TopUpPriority []string `yaml:"topUpPriority" mapstructure:"topUpPriority" json:"topUpPriority"`
	// MaxPercent bounds configured and override percents.
	MaxPercent float64 `yaml:"maxPercent,omitempty" mapstructure:"maxPercent" json:"maxPercent,omitempty"`
}

// DefaultPolicy returns the built-in margin policy.
func DefaultPolicy() Policy {
	return Policy{
		Percents: map[string]float64{
			constants.CategoryDeckPreferred: 12,
			constants.CategoryDeckOther:     8,
			constants.CategoryJoists:        6,
		},
		MinProjectMargin: 4000,
		TopUpPriority: []string{
			constants.SupplierTrojan,
			constants.SupplierCSC,
			constants.SupplierCanam,
			constants.SupplierCordeck,
			constants.SupplierVerco,
		},
		MaxPercent: defaultMaxPercent,
	}
}

// Normalize fills defaults and canonicalizes supplier names into a fresh
// priority slice; the caller's slice is left untouched.
func (p *Policy) Normalize() {
	if p.Percents == nil {
		p.Percents = DefaultPolicy().Percents
	}
	if p.MaxPercent <= 0 {
		p.MaxPercent = defaultMaxPercent
	}
	priority := p.TopUpPriority
	if len(priority) == 0 {
		priority = DefaultPolicy().TopUpPriority
	}
	p.TopUpPriority = make([]string, len(priority))
	for i, supplier := range priority {
		p.TopUpPriority[i] = strings.Join(strings.Fields(strings.ToUpper(supplier)), " ")
	}
	p.MinProjectMargin = mathutil.NonNegative(p.MinProjectMargin)
}

// Validate rejects percents outside [0, MaxPercent].
func (p Policy) Validate() error {
	for category, percent := range p.Percents {
		if percent < 0 || percent > p.MaxPercent {
			return fmt.Errorf("margin percent for %s must be between 0 and %.0f, got %.2f", category, p.MaxPercent, percent)
		}
	}
	if p.MinProjectMargin < 0 {
		return fmt.Errorf("minimum project margin cannot be negative")
	}
	return nil
}

// Applied is the outcome of applying a margin percent to a cost basis.
type Applied struct {
	MarginPercent   float64 `json:"marginPercent"`
	MarginAmount    float64 `json:"marginAmount"`
	TotalWithMargin float64 `json:"totalWithMargin"`
}

// ApplyPricingMargin multiplies subtotal by the category percent, or by
// override when given. Nothing returned is ever negative.
func (p Policy) ApplyPricingMargin(subtotal float64, category string, override *float64) Applied {
	maxPercent := p.MaxPercent
	if maxPercent <= 0 {
		maxPercent = defaultMaxPercent
	}
	percent := p.Percents[category]
	if override != nil {
		percent = *override
	}
	percent = mathutil.Clamp(percent, 0, maxPercent)
	subtotal = mathutil.NonNegative(subtotal)
	amount := mathutil.ApplyPercentage(subtotal, percent)
	return Applied{
		MarginPercent:   percent,
		MarginAmount:    amount,
		TotalWithMargin: subtotal + amount,
	}
}

// CategoryFor returns the margin category of a participant.
func CategoryFor(supplier, premium string, joists bool) string {
	switch {
	case joists:
		return constants.CategoryJoists
	case strings.EqualFold(supplier, premium):
		return constants.CategoryDeckPreferred
	default:
		return constants.CategoryDeckOther
	}
}
