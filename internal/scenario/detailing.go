package scenario

import (
	"sort"
	"strings"

	"github.com/iwvelando/steel-estimate/pkg/mathutil"
)

// FeeFunc computes the detailing fee for a scenario subtotal.
type FeeFunc func(subtotal, tons float64, tier string) float64

// DetailingBand applies Percent to projects up to UpToTons. A zero UpToTons
// is the open-ended top band.
type DetailingBand struct {
	UpToTons float64 `yaml:"upToTons" mapstructure:"upToTons" json:"upToTons"`
	Percent  float64 `yaml:"percent" mapstructure:"percent" json:"percent"`
}

// DetailingSchedule is the tiered detailing fee table.
type DetailingSchedule struct {
	Tiers       map[string][]DetailingBand `yaml:"tiers" mapstructure:"tiers" json:"tiers"`
	DefaultTier string                     `yaml:"defaultTier" mapstructure:"defaultTier" json:"defaultTier"`
	// Floor is the minimum fee whenever the subtotal is positive.
	Floor float64 `yaml:"floor" mapstructure:"floor" json:"floor"`
}

// DefaultDetailingSchedule returns the built-in fee table.
func DefaultDetailingSchedule() DetailingSchedule {
	return DetailingSchedule{
		Tiers: map[string][]DetailingBand{
			"simple":   {{UpToTons: 50, Percent: 3}, {UpToTons: 150, Percent: 2.25}, {Percent: 1.75}},
			"standard": {{UpToTons: 50, Percent: 4}, {UpToTons: 150, Percent: 3}, {Percent: 2.5}},
			"complex":  {{UpToTons: 50, Percent: 6}, {UpToTons: 150, Percent: 4.5}, {Percent: 3.5}},
		},
		DefaultTier: "standard",
		Floor:       1500,
	}
}

// Normalize lowercases tier names and orders bands by tonnage with the
// open-ended band last.
func (d *DetailingSchedule) Normalize() {
	if len(d.Tiers) == 0 {
		*d = DefaultDetailingSchedule()
		return
	}
	tiers := make(map[string][]DetailingBand, len(d.Tiers))
	for name, bands := range d.Tiers {
		sorted := append([]DetailingBand(nil), bands...)
		sort.SliceStable(sorted, func(i, j int) bool {
			a, b := sorted[i].UpToTons, sorted[j].UpToTons
			if a == 0 || b == 0 {
				return b == 0 && a != 0
			}
			return a < b
		})
		tiers[tierKey(name)] = sorted
	}
	d.Tiers = tiers
	d.DefaultTier = tierKey(d.DefaultTier)
	if d.DefaultTier == "" {
		d.DefaultTier = DefaultDetailingSchedule().DefaultTier
	}
	d.Floor = mathutil.NonNegative(d.Floor)
}

// Percent returns the band percent for tons in the tier, falling back to the
// default tier for unknown names.
func (d DetailingSchedule) Percent(tons float64, tier string) float64 {
	bands, ok := d.Tiers[tierKey(tier)]
	if !ok {
		bands = d.Tiers[d.DefaultTier]
	}
	if len(bands) == 0 {
		return 0
	}
	for _, band := range bands {
		if band.UpToTons == 0 || tons <= band.UpToTons {
			return mathutil.NonNegative(band.Percent)
		}
	}
	return mathutil.NonNegative(bands[len(bands)-1].Percent)
}

// Fee is the band percent of subtotal, never below Floor. A non-positive
// subtotal has no fee.
func (d DetailingSchedule) Fee(subtotal, tons float64, tier string) float64 {
	subtotal = mathutil.NonNegative(subtotal)
	if subtotal == 0 {
		return 0
	}
	fee := mathutil.ApplyPercentage(subtotal, d.Percent(mathutil.NonNegative(tons), tier))
	if fee < d.Floor {
		return d.Floor
	}
	return fee
}

func tierKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
