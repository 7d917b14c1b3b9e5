// Package project defines the estimate request handed to the engine: deck
// line items with their specs and tonnage, joist scope and hard eligibility
// flags.
package project

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/iwvelando/steel-estimate/pkg/mathutil"
)

// Specs are the physical deck specs of a line item.
type Specs struct {
	Depth   float64 `yaml:"depth" mapstructure:"depth" json:"depth"`
	Profile string  `yaml:"profile,omitempty" mapstructure:"profile" json:"profile,omitempty"`
	Gage    string  `yaml:"gage,omitempty" mapstructure:"gage" json:"gage,omitempty"`
	Finish  string  `yaml:"finish,omitempty" mapstructure:"finish" json:"finish,omitempty"`
	Grade   string  `yaml:"grade,omitempty" mapstructure:"grade" json:"grade,omitempty"`
}

// LineItem is one deck line from the takeoff.
type LineItem struct {
	ID    string  `yaml:"id" mapstructure:"id" json:"id"`
	Specs Specs   `yaml:"specs" mapstructure:"specs" json:"specs"`
	Tons  float64 `yaml:"tons" mapstructure:"tons" json:"tons"`
	Sqs   float64 `yaml:"sqs" mapstructure:"sqs" json:"sqs"`
}

// Flags are the project's hard eligibility requirements.
type Flags struct {
	AmericanSteelRequired     bool   `yaml:"americanSteelRequired" mapstructure:"americanSteelRequired" json:"americanSteelRequired"`
	AmericanManufacturing     bool   `yaml:"americanManufacturing" mapstructure:"americanManufacturing" json:"americanManufacturing"`
	SDIManufacturer           bool   `yaml:"sdiManufacturer" mapstructure:"sdiManufacturer" json:"sdiManufacturer"`
	SpecifiedManufacturer     bool   `yaml:"specifiedManufacturer" mapstructure:"specifiedManufacturer" json:"specifiedManufacturer"`
	SpecifiedManufacturerName string `yaml:"specifiedManufacturerName,omitempty" mapstructure:"specifiedManufacturerName" json:"specifiedManufacturerName,omitempty"`
}

// Project is a complete estimate request.
type Project struct {
	Name  string     `yaml:"name" mapstructure:"name" json:"name"`
	Lines []LineItem `yaml:"lines" mapstructure:"lines" json:"lines"`
	// JoistTons is the aggregate joist tonnage; zero means joists are out of scope.
	JoistTons float64 `yaml:"joistTons" mapstructure:"joistTons" json:"joistTons"`
	Flags     Flags   `yaml:"flags" mapstructure:"flags" json:"flags"`
	// Address is free text; only the trailing state code is used.
	Address string `yaml:"address,omitempty" mapstructure:"address" json:"address,omitempty"`
	State   string `yaml:"state,omitempty" mapstructure:"state" json:"state,omitempty"`
	// ComplexityTier selects the detailing fee schedule.
	ComplexityTier  string  `yaml:"complexityTier,omitempty" mapstructure:"complexityTier" json:"complexityTier,omitempty"`
	AccessoriesCost float64 `yaml:"accessoriesCost,omitempty" mapstructure:"accessoriesCost" json:"accessoriesCost,omitempty"`
	// MarginOverrides are user-entered margin percents keyed by deck supplier,
	// or by "joists" for the joist supplier. Overridden participants are
	// locked during minimum-margin enforcement.
	MarginOverrides map[string]float64 `yaml:"marginOverrides,omitempty" mapstructure:"marginOverrides" json:"marginOverrides,omitempty"`
	// AppliedScenarioID pins a previously applied scenario to the front.
	AppliedScenarioID string `yaml:"appliedScenarioId,omitempty" mapstructure:"appliedScenarioId" json:"appliedScenarioId,omitempty"`
}

// HasJoists reports whether joists are in scope.
func (p Project) HasJoists() bool {
	return mathutil.NonNegative(p.JoistTons) > 0
}

// DeckTons sums the tonnage of all deck lines.
func (p Project) DeckTons() float64 {
	total := 0.0
	for _, line := range p.Lines {
		total += mathutil.NonNegative(line.Tons)
	}
	return total
}

// TotalTons is deck plus joist tonnage.
func (p Project) TotalTons() float64 {
	return p.DeckTons() + mathutil.NonNegative(p.JoistTons)
}

// StateCode returns the explicit State when set, else the code parsed from
// Address.
func (p Project) StateCode() string {
	if code := strings.ToUpper(strings.TrimSpace(p.State)); len(code) == 2 {
		return code
	}
	return ParseStateCode(p.Address)
}

// Sanitized returns a copy with negative or NaN quantities coerced to zero and
// line IDs filled in where missing.
func (p Project) Sanitized() Project {
	out := p
	out.JoistTons = mathutil.NonNegative(p.JoistTons)
	out.AccessoriesCost = mathutil.NonNegative(p.AccessoriesCost)
	out.Lines = make([]LineItem, len(p.Lines))
	for i, line := range p.Lines {
		line.Tons = mathutil.NonNegative(line.Tons)
		line.Sqs = mathutil.NonNegative(line.Sqs)
		line.Specs.Depth = mathutil.NonNegative(line.Specs.Depth)
		if strings.TrimSpace(line.ID) == "" {
			line.ID = defaultLineID(i)
		}
		out.Lines[i] = line
	}
	return out
}

func defaultLineID(index int) string {
	return fmt.Sprintf("line-%d", index+1)
}

var zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// ParseStateCode extracts a trailing two-letter state code from an address
// such as "1200 Main St, Houston, TX 77002". A bare street line like
// "1200 Main St" has no state. Returns "" when none is found.
func ParseStateCode(address string) string {
	cleaned := strings.TrimRight(strings.TrimSpace(strings.ToUpper(address)), ". ,")
	for _, suffix := range []string{"USA", "US"} {
		cleaned = strings.TrimRight(strings.TrimSuffix(cleaned, ", "+suffix), ". ,")
	}
	segments := strings.Split(cleaned, ",")
	fields := strings.Fields(segments[len(segments)-1])
	hadZip := false
	if n := len(fields); n > 0 && zipPattern.MatchString(fields[n-1]) {
		fields = fields[:n-1]
		hadZip = true
	}
	if len(fields) == 0 {
		return ""
	}
	code := fields[len(fields)-1]
	if len(code) != 2 || !isLetters(code) {
		return ""
	}
	if len(segments) == 1 && !hadZip && len(fields) > 1 {
		return ""
	}
	return code
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
