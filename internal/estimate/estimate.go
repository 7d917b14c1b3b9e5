// Package estimate ties the catalog, assignment, scenario and boost engines
// together behind a single entry point driven by the loaded configuration.
package estimate

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/iwvelando/steel-estimate/internal/assign"
	"github.com/iwvelando/steel-estimate/internal/boost"
	"github.com/iwvelando/steel-estimate/internal/catalog"
	"github.com/iwvelando/steel-estimate/internal/config"
	"github.com/iwvelando/steel-estimate/internal/project"
	"github.com/iwvelando/steel-estimate/internal/rates"
	"github.com/iwvelando/steel-estimate/internal/scenario"
	"github.com/iwvelando/steel-estimate/pkg/optimization"
	"github.com/iwvelando/steel-estimate/pkg/validation"
)

// ErrEmptyProject is returned for a request with neither deck lines nor joists.
var ErrEmptyProject = errors.New("project has no deck lines or joists")

// Engine prices projects against one configuration snapshot. It is not safe
// for concurrent use because its rate cache is unsynchronized.
type Engine struct {
	logger  *zap.Logger
	conf    *config.Configuration
	catalog catalog.Catalog
	pricer  *rates.Pricer
}

// Options control a single Estimate call.
type Options struct {
	// Boost applies the boost plan when it is feasible.
	Boost bool
	// AppliedID pins a scenario to the front, overriding the project's own.
	AppliedID string
}

// Estimate is the complete result for one project.
type Estimate struct {
	Project    project.Project        `json:"project"`
	Assignment assign.Result          `json:"assignment"`
	Scenarios  []scenario.Scenario    `json:"scenarios"`
	Plan       boost.Plan             `json:"plan"`
	Boosted    bool                   `json:"boosted"`
	Snapshot   *boost.Snapshot        `json:"snapshot,omitempty"`
	Summaries  []optimization.Summary `json:"summaries,omitempty"`
	Warnings   []string               `json:"warnings,omitempty"`
}

// Recommended returns the first scenario, which is the applied one when
// pinned and the cheapest otherwise.
func (e *Estimate) Recommended() (scenario.Scenario, bool) {
	if e == nil || len(e.Scenarios) == 0 {
		return scenario.Scenario{}, false
	}
	return e.Scenarios[0], true
}

// NewEngine builds the catalog from the configured rule table. A nil cache
// gets a fresh one.
func NewEngine(logger *zap.Logger, conf *config.Configuration, cache *rates.Cache) (*Engine, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = rates.NewCache()
	}

	cat, err := conf.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to build supplier catalog: %w", err)
	}
	if cat.UsedFallback {
		logger.Warn("supplier rule table has no usable deck rule; using built-in rules",
			zap.String("op", "estimate.NewEngine"),
		)
	}

	return &Engine{
		logger:  logger,
		conf:    conf,
		catalog: cat,
		pricer:  rates.NewPricer(conf.Pricing, cache),
	}, nil
}

// Catalog returns the normalized supplier catalog.
func (e *Engine) Catalog() catalog.Catalog {
	return e.catalog
}

// Warnings combines configuration warnings with catalog suppliers that can
// never be priced.
func (e *Engine) Warnings() []string {
	warnings := e.conf.ValidateConfiguration()
	if e.catalog.UsedFallback {
		warnings = append(warnings, "supplier rule table has no usable deck rule; built-in rules are in use")
	}
	for _, rule := range e.catalog.Rules() {
		if rule.DealsInDeck && !e.pricer.Has(rates.ScopeDeck, rule.Supplier) {
			warnings = append(warnings, fmt.Sprintf("deck supplier %s has no deck pricing", rule.Supplier))
		}
		if rule.DealsInJoists && !e.pricer.Has(rates.ScopeJoists, rule.Supplier) {
			warnings = append(warnings, fmt.Sprintf("joist supplier %s has no joist pricing", rule.Supplier))
		}
	}
	sort.Strings(warnings)
	return warnings
}

func (e *Engine) validator() *validation.ProjectValidator {
	tiers := make([]string, 0, len(e.conf.Detailing.Tiers))
	for tier := range e.conf.Detailing.Tiers {
		tiers = append(tiers, tier)
	}
	sort.Strings(tiers)
	return &validation.ProjectValidator{Tiers: tiers, MaxMarginPercent: e.conf.Margin.MaxPercent}
}

// Input bundles a sanitized project with the engine state.
func (e *Engine) Input(p project.Project) scenario.Input {
	return scenario.Input{
		Project:  p.Sanitized(),
		Catalog:  e.catalog,
		Pricer:   e.pricer,
		Settings: e.conf.Assignment,
		Policy:   e.conf.Margin,
	}
}

// Assign runs the default vendor selector for the project.
func (e *Engine) Assign(p project.Project) assign.Result {
	p = p.Sanitized()
	result := assign.SelectVendorsForProject(p, e.catalog, e.pricer, e.conf.Assignment)

	for _, a := range result.DeckAssignments {
		if a.Outcome.IsFallback() {
			e.logger.Info("deck line assigned from fallback list",
				zap.String("op", "estimate.Assign"),
				zap.String("line", a.LineID),
				zap.String("vendor", a.Vendor),
				zap.String("reason", a.Outcome.Reason),
			)
		}
	}
	if result.Joist.Outcome.IsFallback() {
		e.logger.Info("joists assigned from fallback list",
			zap.String("op", "estimate.Assign"),
			zap.String("vendor", result.JoistVendor),
			zap.String("reason", result.Joist.Outcome.Reason),
		)
	}
	for _, msg := range result.Errors() {
		e.logger.Warn("pricing error",
			zap.String("op", "estimate.Assign"),
			zap.String("error", msg),
		)
	}
	return result
}

// Scenarios enumerates and ranks every feasible supplier combination.
func (e *Engine) Scenarios(p project.Project, appliedID string) []scenario.Scenario {
	scenarios := scenario.BuildScenarioList(e.Input(p), scenario.Options{
		Detailing: e.conf.Detailing.Fee,
		LeadTimes: e.conf.LeadTimes,
		AppliedID: appliedID,
	})

	for _, s := range scenarios {
		if s.TopUp.Applied {
			e.logger.Debug("project margin topped up",
				zap.String("op", "estimate.Scenarios"),
				zap.String("scenario", s.Label),
				zap.String("supplier", s.TopUp.Supplier),
				zap.Float64("shortfall", s.TopUp.Shortfall),
			)
		}
	}
	e.logger.Debug("scenarios enumerated",
		zap.String("op", "estimate.Scenarios"),
		zap.Int("count", len(scenarios)),
		zap.Strings("vendors", scenario.Vendors(scenarios)),
	)
	return scenarios
}

// BoostPlan solves the boost plan for a scenario list.
func (e *Engine) BoostPlan(scenarios []scenario.Scenario) boost.Plan {
	plan := boost.BuildOptimizationBoostPlan(scenarios, e.conf.Boost)
	if !plan.OK {
		e.logger.Debug("boost not available",
			zap.String("op", "estimate.BoostPlan"),
			zap.String("reason", plan.Reason),
		)
	}
	return plan
}

// Boost applies a feasible plan to a copy of scenarios.
func (e *Engine) Boost(scenarios []scenario.Scenario, plan boost.Plan) ([]scenario.Scenario, *boost.Snapshot, error) {
	boosted, snapshot, err := boost.Apply(scenarios, plan, e.conf.Detailing.Fee)
	if err != nil {
		return nil, nil, err
	}
	summary := plan.Summary()
	e.logger.Info("boost adjusted premium margin",
		zap.String("op", "estimate.Boost"),
		zap.String("scenario", plan.BoostedLabel),
		zap.String("supplier", plan.PremiumSupplier),
		zap.Float64("originalPercent", summary.Original),
		zap.Float64("boostedPercent", summary.Value),
		zap.Float64("target", summary.Target),
		zap.Float64("achieved", summary.Achieved),
		zap.Bool("clamped", summary.Clamped),
	)
	return boosted, snapshot, nil
}

// Revert undoes a boost.
func (e *Engine) Revert(scenarios []scenario.Scenario, snapshot *boost.Snapshot) []scenario.Scenario {
	if snapshot != nil {
		e.logger.Info("boost reverted",
			zap.String("op", "estimate.Revert"),
			zap.String("scenario", snapshot.ScenarioID),
		)
	}
	return boost.Revert(scenarios, snapshot)
}

// Estimate runs the full pipeline for one project.
func (e *Engine) Estimate(p project.Project, opts Options) (*Estimate, error) {
	p = p.Sanitized()
	if len(p.Lines) == 0 && !p.HasJoists() {
		return nil, ErrEmptyProject
	}

	appliedID := opts.AppliedID
	if appliedID == "" {
		appliedID = p.AppliedScenarioID
	}

	result := &Estimate{
		Project:    p,
		Assignment: e.Assign(p),
		Scenarios:  e.Scenarios(p, appliedID),
		Warnings:   append(e.Warnings(), e.validator().ValidateAll(p)...),
	}
	if len(result.Scenarios) == 0 {
		e.logger.Warn("no feasible scenario",
			zap.String("op", "estimate.Estimate"),
			zap.String("project", p.Name),
		)
	}

	result.Plan = e.BoostPlan(result.Scenarios)
	result.Summaries = append(result.Summaries, result.Plan.Summary())

	if opts.Boost && result.Plan.OK {
		boosted, snapshot, err := e.Boost(result.Scenarios, result.Plan)
		if err != nil {
			return nil, fmt.Errorf("failed to apply boost: %w", err)
		}
		result.Scenarios = boosted
		result.Snapshot = snapshot
		result.Boosted = true
	}

	return result, nil
}
