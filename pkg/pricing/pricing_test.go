package pricing

import (
	"math"
	"testing"
)

var deckBuckets = []Bucket{
	{Start: 0, End: 9, CostPerTon: 6000},
	{Start: 10, End: 24, CostPerTon: 4500},
	{Start: 25, End: 49, CostPerTon: 4000},
}

func TestBucketRate(t *testing.T) {
	tests := []struct {
		name      string
		tons      float64
		wantRate  float64
		wantStart float64
	}{
		{"Twelve tons lands in second tier", 12, 4500, 10},
		{"Fractional tons round up into next tier", 9.2, 4500, 10},
		{"Exact upper edge", 9, 6000, 0},
		{"Zero tons uses first tier", 0, 6000, 0},
		{"Beyond table uses highest bucket", 80, 4000, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, bucket, ok := BucketRate(deckBuckets, tt.tons)
			if !ok {
				t.Fatalf("expected a bucket match")
			}
			if rate != tt.wantRate {
				t.Errorf("rate = %v, expected %v", rate, tt.wantRate)
			}
			if bucket.Start != tt.wantStart {
				t.Errorf("bucket start = %v, expected %v", bucket.Start, tt.wantStart)
			}
		})
	}
}

func TestBucketRateExampleCost(t *testing.T) {
	rate, _, _ := BucketRate(deckBuckets, 12)
	if cost := 12 * rate; cost != 54000 {
		t.Fatalf("expected $54,000 for 12 tons, got %.2f", cost)
	}
}

func TestBucketRateEmptyTable(t *testing.T) {
	if _, _, ok := BucketRate(nil, 5); ok {
		t.Fatalf("expected no match for empty table")
	}
}

func TestSortBuckets(t *testing.T) {
	sorted := SortBuckets([]Bucket{deckBuckets[2], deckBuckets[0], deckBuckets[1]})
	for i := range sorted {
		if sorted[i] != deckBuckets[i] {
			t.Fatalf("unexpected order at %d: %+v", i, sorted[i])
		}
	}
}

func TestPerPoundConversions(t *testing.T) {
	if got := PerPoundToPerTon(0.55); math.Abs(got-1100) > 1e-9 {
		t.Errorf("PerPoundToPerTon(0.55) = %v", got)
	}
	if got := SumPerPound(0.62, 0.04, 0.09); math.Abs(got-1500) > 1e-9 {
		t.Errorf("SumPerPound = %v, expected 1500", got)
	}
	if got := SumPerPound(0.5, -0.2); math.Abs(got-1000) > 1e-9 {
		t.Errorf("negative component should be ignored, got %v", got)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"$1,234.50", 1234.5},
		{" 12 ", 12},
		{"", 0},
		{"abc", 0},
		{"-40", 0},
		{"(500)", 0},
		{"NaN", 0},
		{"7.5%", 7.5},
	}

	for _, tt := range tests {
		if got := ParseAmount(tt.input); got != tt.expected {
			t.Errorf("ParseAmount(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestParseCurrencyAndPercent(t *testing.T) {
	if got := ParseCurrency("$4,000.129"); got != 4000.13 {
		t.Errorf("ParseCurrency = %v", got)
	}
	if got := ParsePercent("85%", 50); got != 50 {
		t.Errorf("ParsePercent should clamp to max, got %v", got)
	}
	if got := ParsePercent("bad", 50); got != 0 {
		t.Errorf("ParsePercent should default to 0, got %v", got)
	}
	if got := RoundCents(370218.9758); got != 370218.98 {
		t.Errorf("RoundCents = %v", got)
	}
}
