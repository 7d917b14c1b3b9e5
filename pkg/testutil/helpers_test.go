package testutil

import (
	"testing"

	"github.com/iwvelando/steel-estimate/internal/scenario"
)

func TestFindScenario(t *testing.T) {
	results := []scenario.Scenario{
		{ID: "a", Label: "CSC / joists CSC", Subtotal: 1000},
		{ID: "b", Label: "TROJAN + CSC / joists CSC", Subtotal: 2000},
		{ID: "c", Label: "CANAM / joists CANAM", Subtotal: 3000},
	}

	tests := []struct {
		name             string
		label            string
		expectFound      bool
		expectedSubtotal float64
	}{
		{
			name:             "Find single-vendor scenario",
			label:            "CSC / joists CSC",
			expectFound:      true,
			expectedSubtotal: 1000,
		},
		{
			name:             "Find split scenario",
			label:            "TROJAN + CSC / joists CSC",
			expectFound:      true,
			expectedSubtotal: 2000,
		},
		{
			name:        "Search for non-existent scenario",
			label:       "VERCO / joists CSC",
			expectFound: false,
		},
		{
			name:        "Empty label",
			label:       "",
			expectFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindScenario(results, tt.label)
			if !tt.expectFound {
				if result != nil {
					t.Errorf("FindScenario() expected nil, got %+v", result)
				}
				return
			}
			if result == nil {
				t.Fatalf("FindScenario() returned nil for %q", tt.label)
			}
			if result.Subtotal != tt.expectedSubtotal {
				t.Errorf("FindScenario() subtotal = %v, expected %v", result.Subtotal, tt.expectedSubtotal)
			}
		})
	}

	if FindScenario(nil, "anything") != nil {
		t.Errorf("FindScenario() on nil slice should return nil")
	}
}

func TestFindScenarioReturnsPointerIntoSlice(t *testing.T) {
	results := []scenario.Scenario{{Label: "x"}}
	FindScenario(results, "x").Boosted = true
	if !results[0].Boosted {
		t.Errorf("FindScenario() should return a pointer into the slice")
	}
}

func TestFixtures(t *testing.T) {
	if p := Warehouse(); p.StateCode() != "TX" || p.DeckTons() != 20 || !p.HasJoists() {
		t.Errorf("unexpected warehouse fixture %+v", p)
	}
	if p := SmallJob(); p.HasJoists() || len(p.Lines) != 1 {
		t.Errorf("unexpected small job fixture %+v", p)
	}
}
