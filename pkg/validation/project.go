package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iwvelando/steel-estimate/internal/project"
	"github.com/iwvelando/steel-estimate/pkg/mathutil"
)

// ProjectValidator checks an estimate request for data the engine accepts
// but that usually points at a bad takeoff.
type ProjectValidator struct {
	// Tiers are the known detailing complexity tiers.
	Tiers []string
	// MaxMarginPercent bounds margin overrides.
	MaxMarginPercent float64
}

// ValidateLines reports deck lines with no tonnage or depth and repeated IDs.
func ValidateLines(lines []project.LineItem) []string {
	var warnings []string
	seen := make(map[string]bool, len(lines))
	for _, line := range lines {
		if !mathutil.IsPositive(line.Tons) {
			warnings = append(warnings, fmt.Sprintf("Line '%s' has no tonnage and will not be priced", line.ID))
		}
		if line.Specs.Depth <= 0 {
			warnings = append(warnings, fmt.Sprintf("Line '%s' has no deck depth; no supplier rule can match it", line.ID))
		}
		if seen[line.ID] {
			warnings = append(warnings, fmt.Sprintf("Line ID '%s' is used more than once", line.ID))
		}
		seen[line.ID] = true
	}
	return warnings
}

// ValidateMarginOverrides reports override percents outside [0, max].
func ValidateMarginOverrides(overrides map[string]float64, maxPercent float64) []string {
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var warnings []string
	for _, key := range keys {
		percent := overrides[key]
		if percent < 0 || (maxPercent > 0 && percent > maxPercent) {
			warnings = append(warnings, fmt.Sprintf("Margin override for '%s' is %.2f%%, outside 0-%.0f%% and will be clamped", key, percent, maxPercent))
		}
	}
	return warnings
}

// ValidateAll validates the entire request and returns warnings.
func (pv *ProjectValidator) ValidateAll(p project.Project) []string {
	var warnings []string

	if len(p.Lines) == 0 && !p.HasJoists() {
		warnings = append(warnings, "Project has no deck lines and no joist tonnage")
	}
	if p.StateCode() == "" {
		warnings = append(warnings, "Project has no state code; suppliers are ranked without locality")
	}
	if p.Flags.SpecifiedManufacturer && strings.TrimSpace(p.Flags.SpecifiedManufacturerName) == "" {
		warnings = append(warnings, "Specified manufacturer is required but no manufacturer name is given")
	}
	if tier := strings.ToLower(strings.TrimSpace(p.ComplexityTier)); tier != "" && len(pv.Tiers) > 0 {
		known := false
		for _, t := range pv.Tiers {
			if strings.EqualFold(t, tier) {
				known = true
				break
			}
		}
		if !known {
			warnings = append(warnings, fmt.Sprintf("Complexity tier '%s' is unknown; the default tier is used", p.ComplexityTier))
		}
	}

	warnings = append(warnings, ValidateLines(p.Lines)...)
	warnings = append(warnings, ValidateMarginOverrides(p.MarginOverrides, pv.MaxMarginPercent)...)
	return warnings
}
