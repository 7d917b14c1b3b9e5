package scenario

import (
	"fmt"

	"github.com/iwvelando/steel-estimate/internal/catalog"
	"github.com/iwvelando/steel-estimate/pkg/constants"
)

// LeadTime is a delivery window in weeks.
type LeadTime struct {
	MinWeeks int `yaml:"minWeeks" mapstructure:"minWeeks" json:"minWeeks"`
	MaxWeeks int `yaml:"maxWeeks" mapstructure:"maxWeeks" json:"maxWeeks"`
}

// Known reports whether the window has been set.
func (l LeadTime) Known() bool {
	return l.MaxWeeks > 0
}

func (l LeadTime) String() string {
	if !l.Known() {
		return "n/a"
	}
	if l.MinWeeks == l.MaxWeeks {
		return fmt.Sprintf("%d wk", l.MaxWeeks)
	}
	return fmt.Sprintf("%d-%d wk", l.MinWeeks, l.MaxWeeks)
}

// LeadTimes maps a canonical supplier name to its delivery window.
type LeadTimes map[string]LeadTime

// DefaultLeadTimes returns the built-in supplier windows.
func DefaultLeadTimes() LeadTimes {
	return LeadTimes{
		constants.SupplierTrojan:  {MinWeeks: 3, MaxWeeks: 5},
		constants.SupplierCSC:     {MinWeeks: 4, MaxWeeks: 6},
		constants.SupplierCanam:   {MinWeeks: 6, MaxWeeks: 8},
		constants.SupplierCordeck: {MinWeeks: 5, MaxWeeks: 7},
		constants.SupplierVerco:   {MinWeeks: 5, MaxWeeks: 7},
	}
}

// Normalize canonicalizes supplier keys and repairs inverted windows.
func (l LeadTimes) Normalize() LeadTimes {
	out := make(LeadTimes, len(l))
	for supplier, window := range l {
		if window.MinWeeks < 0 {
			window.MinWeeks = 0
		}
		if window.MaxWeeks < window.MinWeeks {
			window.MaxWeeks = window.MinWeeks
		}
		out[catalog.CanonicalSupplier(supplier)] = window
	}
	return out
}

// Combine returns the window covering every supplier: the latest minimum and
// the latest maximum. Unknown suppliers are ignored.
func (l LeadTimes) Combine(suppliers ...string) LeadTime {
	var combined LeadTime
	for _, supplier := range suppliers {
		window, ok := l[catalog.CanonicalSupplier(supplier)]
		if !ok {
			continue
		}
		if window.MinWeeks > combined.MinWeeks {
			combined.MinWeeks = window.MinWeeks
		}
		if window.MaxWeeks > combined.MaxWeeks {
			combined.MaxWeeks = window.MaxWeeks
		}
	}
	return combined
}
