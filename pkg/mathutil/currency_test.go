package mathutil

import (
	"math"
	"testing"
)

func TestIsPositive(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		positive bool
	}{
		{"Exactly zero", 0.0, false},
		{"Sub-cent positive", 0.001, false},
		{"Exactly tolerance", 0.01, false},
		{"Just above tolerance", 0.011, true},
		{"Negative", -5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPositive(tt.input); got != tt.positive {
				t.Errorf("IsPositive(%v) = %v, expected %v", tt.input, got, tt.positive)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected float64
	}{
		{"Inside", 12.5, 12.5},
		{"Below", -3, 0},
		{"Above", 75, 50},
		{"NaN", math.NaN(), 0},
		{"Upper bound", 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.value, 0, 50); got != tt.expected {
				t.Errorf("Clamp(%v) = %v, expected %v", tt.value, got, tt.expected)
			}
		})
	}
}

func TestNonNegative(t *testing.T) {
	inputs := map[float64]float64{
		-1:          0,
		0:           0,
		4.5:         4.5,
		math.Inf(1): 0,
	}
	for in, want := range inputs {
		if got := NonNegative(in); got != want {
			t.Errorf("NonNegative(%v) = %v, expected %v", in, got, want)
		}
	}
	if got := NonNegative(math.NaN()); got != 0 {
		t.Errorf("NonNegative(NaN) = %v, expected 0", got)
	}
}

func TestCeilTons(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{12, 12},
		{12.0000000001, 12},
		{12.2, 13},
		{0, 0},
		{0.3, 1},
		{-4, 0},
	}

	for _, tt := range tests {
		if got := CeilTons(tt.input); got != tt.expected {
			t.Errorf("CeilTons(%v) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestApplyPercentage(t *testing.T) {
	tests := []struct {
		name       string
		value      float64
		percentage float64
		expected   float64
	}{
		{"Ten percent", 54000, 10, 5400},
		{"Zero percent", 54000, 0, 0},
		{"Fractional percent", 1000, 12.5, 125},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ApplyPercentage(tt.value, tt.percentage)
			if !WithinTolerance(result, tt.expected, 1e-9) {
				t.Errorf("ApplyPercentage(%v, %v) = %v, expected %v", tt.value, tt.percentage, result, tt.expected)
			}
		})
	}
}

func TestCalculatePercentage(t *testing.T) {
	if got := CalculatePercentage(3500, 25000); !WithinTolerance(got, 14, 1e-9) {
		t.Errorf("CalculatePercentage(3500, 25000) = %v, expected 14", got)
	}
	if got := CalculatePercentage(10, 0); got != 0 {
		t.Errorf("CalculatePercentage with zero total = %v, expected 0", got)
	}
}
