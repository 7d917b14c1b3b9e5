// Package testutil provides common utility functions and fixtures for testing.
package testutil

import (
	"github.com/iwvelando/steel-estimate/internal/project"
	"github.com/iwvelando/steel-estimate/internal/scenario"
)

// FindScenario finds a scenario by label in the results slice.
// Returns a pointer to the scenario if found, nil otherwise.
func FindScenario(results []scenario.Scenario, label string) *scenario.Scenario {
	for i := range results {
		if results[i].Label == label {
			return &results[i]
		}
	}
	return nil
}

// Warehouse is a two-line Texas project with joists: one premium-depth line
// and one standard line.
func Warehouse() project.Project {
	return project.Project{
		Name:    "Warehouse",
		Address: "1200 Main St, Houston, TX 77002",
		Lines: []project.LineItem{
			{ID: "L1", Specs: project.Specs{Depth: 1.5, Profile: "B Deck"}, Tons: 12},
			{ID: "L2", Specs: project.Specs{Depth: 2.0, Profile: "B Deck"}, Tons: 8},
		},
		JoistTons: 30,
	}
}

// SmallJob is a single premium-depth line small enough to trigger the
// margin floor.
func SmallJob() project.Project {
	return project.Project{
		Name:  "Canopy",
		State: "TX",
		Lines: []project.LineItem{
			{ID: "roof", Specs: project.Specs{Depth: 1.5, Profile: "B Deck"}, Tons: 5},
		},
	}
}
