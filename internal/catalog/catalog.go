// Package catalog normalizes raw supplier-rule rows into typed eligibility
// rules and answers which suppliers may fabricate a given deck line.
package catalog

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/iwvelando/steel-estimate/pkg/constants"
)

// Unranked is the priority given to suppliers without a usable PRIORITY cell.
const Unranked = math.MaxInt32

// Known supplier-rule columns. Any other column holding boolean values is a
// profile-availability column.
const (
	ColumnSupplier              = "SUPPLIER"
	ColumnDeck                  = "DECK"
	ColumnDepth                 = "DEPTH"
	ColumnJoists                = "JOISTS"
	ColumnAmericanSteelRequired = "AMERICAN STEEL REQUIRED"
	ColumnAmericanManufacturing = "AMERICAN MANUFACTURING"
	ColumnSDIManufacturing      = "SDI MANUFACTURING"
	ColumnPriority              = "PRIORITY"
	ColumnJoistLocation         = "JOIST LOCATION"
	ColumnDeckLocation          = "DECK LOCATION"
)

var knownColumns = map[string]bool{
	ColumnSupplier:              true,
	ColumnDeck:                  true,
	ColumnDepth:                 true,
	ColumnJoists:                true,
	ColumnAmericanSteelRequired: true,
	ColumnAmericanManufacturing: true,
	ColumnSDIManufacturing:      true,
	ColumnPriority:              true,
	ColumnJoistLocation:         true,
	ColumnDeckLocation:          true,
}

// Row is one raw supplier-rule row keyed by column header.
type Row map[string]string

// ProfileKey is a normalized deck profile identifier.
type ProfileKey string

// SupplierRule describes what a supplier is and can do. The boolean
// capability flags are matched against what a project requires.
type SupplierRule struct {
	Supplier              string              `json:"supplier"`
	DealsInDeck           bool                `json:"dealsInDeck"`
	DealsInJoists         bool                `json:"dealsInJoists"`
	Depths                []float64           `json:"depths"`
	AmericanSteel         bool                `json:"americanSteel"`
	AmericanManufacturing bool                `json:"americanManufacturing"`
	SDIManufacturing      bool                `json:"sdiManufacturing"`
	Priority              int                 `json:"priority"`
	DeckLocation          string              `json:"deckLocation,omitempty"`
	JoistLocation         string              `json:"joistLocation,omitempty"`
	ProfileAvailability   map[ProfileKey]bool `json:"profileAvailability,omitempty"`
}

// Ranked reports whether the rule carries a usable priority.
func (r SupplierRule) Ranked() bool {
	return r.Priority != Unranked
}

// Usable reports whether the rule can drive deck assignment on its own.
func (r SupplierRule) Usable() bool {
	return r.DealsInDeck && len(r.Depths) > 0 && r.Ranked()
}

// Catalog is the normalized, indexed rule set.
type Catalog struct {
	RulesBySupplier map[string]SupplierRule
	// Vendors lists every supplier ordered by priority then name.
	Vendors      []string
	UsedFallback bool
}

// Rule returns the rule for a supplier name in any case.
func (c Catalog) Rule(supplier string) (SupplierRule, bool) {
	rule, ok := c.RulesBySupplier[CanonicalSupplier(supplier)]
	return rule, ok
}

// Rules returns the rules in Vendors order.
func (c Catalog) Rules() []SupplierRule {
	rules := make([]SupplierRule, 0, len(c.Vendors))
	for _, vendor := range c.Vendors {
		rules = append(rules, c.RulesBySupplier[vendor])
	}
	return rules
}

// Build normalizes rows and falls back to DefaultRows when the table holds no
// usable deck rule.
func Build(rows []Row) Catalog {
	cat := Normalize(rows)
	for _, rule := range cat.RulesBySupplier {
		if rule.Usable() {
			return cat
		}
	}
	fallback := Normalize(DefaultRows())
	fallback.UsedFallback = true
	return fallback
}

// Normalize converts raw rows into a Catalog. Rows without a supplier name are
// dropped; a later row for the same supplier replaces an earlier one.
func Normalize(rows []Row) Catalog {
	cat := Catalog{RulesBySupplier: make(map[string]SupplierRule)}
	for _, row := range rows {
		rule, ok := normalizeRow(row)
		if !ok {
			continue
		}
		cat.RulesBySupplier[rule.Supplier] = rule
	}

	for supplier := range cat.RulesBySupplier {
		cat.Vendors = append(cat.Vendors, supplier)
	}
	sort.SliceStable(cat.Vendors, func(i, j int) bool {
		a := cat.RulesBySupplier[cat.Vendors[i]]
		b := cat.RulesBySupplier[cat.Vendors[j]]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.Supplier < b.Supplier
	})
	return cat
}

func normalizeRow(row Row) (SupplierRule, bool) {
	cells := make(map[string]string, len(row))
	for header, value := range row {
		cells[canonicalHeader(header)] = strings.TrimSpace(value)
	}

	supplier := CanonicalSupplier(cells[ColumnSupplier])
	if supplier == "" {
		return SupplierRule{}, false
	}

	rule := SupplierRule{
		Supplier:              supplier,
		DealsInDeck:           parseBool(cells[ColumnDeck]),
		DealsInJoists:         parseBool(cells[ColumnJoists]),
		Depths:                ParseDepths(cells[ColumnDepth]),
		AmericanSteel:         parseBool(cells[ColumnAmericanSteelRequired]),
		AmericanManufacturing: parseBool(cells[ColumnAmericanManufacturing]),
		SDIManufacturing:      parseBool(cells[ColumnSDIManufacturing]),
		Priority:              parsePriority(cells[ColumnPriority]),
		DeckLocation:          strings.ToUpper(cells[ColumnDeckLocation]),
		JoistLocation:         strings.ToUpper(cells[ColumnJoistLocation]),
	}

	for header, value := range cells {
		if knownColumns[header] {
			continue
		}
		available, ok := lookupBool(value)
		if !ok {
			continue
		}
		key := NormalizeProfile(header)
		if key == "" {
			continue
		}
		if rule.ProfileAvailability == nil {
			rule.ProfileAvailability = make(map[ProfileKey]bool)
		}
		rule.ProfileAvailability[key] = available
	}

	return rule, true
}

// CanonicalSupplier returns the uppercase, space-collapsed supplier name.
func CanonicalSupplier(name string) string {
	return strings.Join(strings.Fields(strings.ToUpper(name)), " ")
}

func canonicalHeader(header string) string {
	return strings.Join(strings.Fields(strings.ToUpper(strings.ReplaceAll(header, "_", " "))), " ")
}

// NormalizeProfile maps a profile label such as "B-Deck 36/4" to the key
// "B DECK 36 4". Labels that differ only in punctuation or case share a key.
func NormalizeProfile(label string) ProfileKey {
	var b strings.Builder
	for _, r := range strings.ToUpper(label) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return ProfileKey(strings.Join(strings.Fields(b.String()), " "))
}

// ParseDepths parses a depth list such as `1.5, 3"` or "1.5;2;3". Invalid
// or non-positive entries are skipped and the result is sorted.
func ParseDepths(raw string) []float64 {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	var depths []float64
	for _, field := range fields {
		cleaned := strings.TrimSpace(strings.Trim(strings.TrimSpace(field), `"'`))
		cleaned = strings.TrimSuffix(strings.ToLower(cleaned), "in")
		value, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
		if err != nil || math.IsNaN(value) || value <= 0 {
			continue
		}
		if !containsDepth(depths, value) {
			depths = append(depths, value)
		}
	}
	sort.Float64s(depths)
	return depths
}

func parsePriority(raw string) int {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return Unranked
	}
	return int(value)
}

func parseBool(raw string) bool {
	value, _ := lookupBool(raw)
	return value
}

func lookupBool(raw string) (bool, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "TRUE", "YES", "Y", "1", "X":
		return true, true
	case "FALSE", "NO", "N", "0":
		return false, true
	default:
		return false, false
	}
}

func containsDepth(depths []float64, depth float64) bool {
	for _, d := range depths {
		if math.Abs(d-depth) <= constants.DepthTolerance {
			return true
		}
	}
	return false
}
