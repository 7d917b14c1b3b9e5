// Package pricing provides the numeric primitives shared by the rate book,
// margin and scenario packages: tiered bucket lookup, per-pound to per-ton
// conversion and forgiving currency/percentage parsing.
package pricing

import (
	"sort"
	"strings"

	"github.com/iwvelando/steel-estimate/pkg/constants"
	"github.com/iwvelando/steel-estimate/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// Bucket is one contiguous tonnage range of a tiered price table. Start and
// End are inclusive and compared against whole tons.
type Bucket struct {
	Start      float64 `yaml:"start" mapstructure:"start" json:"start"`
	End        float64 `yaml:"end" mapstructure:"end" json:"end"`
	CostPerTon float64 `yaml:"costPerTon" mapstructure:"costPerTon" json:"costPerTon"`
}

// Contains reports whether a whole-ton quantity falls inside the bucket.
func (b Bucket) Contains(wholeTons float64) bool {
	return wholeTons >= b.Start && wholeTons <= b.End
}

// BucketRate returns the cost per ton for the given tonnage. The quantity is
// rounded up to the next whole ton before matching; when no bucket contains
// it the bucket with the highest start wins. ok is false only for an empty
// table.
func BucketRate(buckets []Bucket, tons float64) (rate float64, matched Bucket, ok bool) {
	if len(buckets) == 0 {
		return 0, Bucket{}, false
	}

	quantity := mathutil.CeilTons(tons)
	for _, b := range buckets {
		if b.Contains(quantity) {
			return mathutil.NonNegative(b.CostPerTon), b, true
		}
	}

	highest := buckets[0]
	for _, b := range buckets[1:] {
		if b.Start > highest.Start {
			highest = b
		}
	}
	return mathutil.NonNegative(highest.CostPerTon), highest, true
}

// SortBuckets orders buckets by start so tables read naturally in output.
func SortBuckets(buckets []Bucket) []Bucket {
	sorted := append([]Bucket(nil), buckets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})
	return sorted
}

// PerPoundToPerTon converts a $/lb rate into $/ton.
func PerPoundToPerTon(perPound float64) float64 {
	return mathutil.NonNegative(perPound) * constants.PoundsPerTon
}

// SumPerPound adds rate components (coil, freight, labor...) and converts the
// sum to $/ton. Negative components are ignored.
func SumPerPound(components ...float64) float64 {
	total := 0.0
	for _, c := range components {
		total += mathutil.NonNegative(c)
	}
	return PerPoundToPerTon(total)
}

// ParseAmount parses user-entered numbers such as "$1,234.50", " 12 " or
// "(500)". Anything unparseable, negative or empty yields 0.
func ParseAmount(raw string) float64 {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return 0
	}
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		return 0
	}
	cleaned = strings.NewReplacer("$", "", ",", "", " ", "", "%", "").Replace(cleaned)
	value, err := decimal.NewFromString(cleaned)
	if err != nil || value.IsNegative() {
		return 0
	}
	return value.InexactFloat64()
}

// ParseCurrency parses a dollar amount and rounds it to cents.
func ParseCurrency(raw string) float64 {
	return RoundCents(ParseAmount(raw))
}

// ParsePercent parses "12.5", "12.5%" and clamps the result to [0, max].
func ParsePercent(raw string, max float64) float64 {
	return mathutil.Clamp(ParseAmount(raw), 0, max)
}

// RoundCents rounds a currency value to cents using decimal arithmetic so
// half-cent values round away from zero consistently.
func RoundCents(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}
