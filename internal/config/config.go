// Package config defines the data structures related to configuration and
// includes functions for loading and normalizing the config and project
// requests.
package config

import (
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/iwvelando/steel-estimate/internal/assign"
	"github.com/iwvelando/steel-estimate/internal/boost"
	"github.com/iwvelando/steel-estimate/internal/catalog"
	"github.com/iwvelando/steel-estimate/internal/margin"
	"github.com/iwvelando/steel-estimate/internal/project"
	"github.com/iwvelando/steel-estimate/internal/rates"
	"github.com/iwvelando/steel-estimate/internal/scenario"
	"github.com/iwvelando/steel-estimate/pkg/constants"
	"github.com/iwvelando/steel-estimate/pkg/pricing"
	"github.com/iwvelando/steel-estimate/pkg/ruletable"
)

// Configuration holds all configuration for steel-estimate.
type Configuration struct {
	Logging LoggingConfig `yaml:"logging,omitempty" mapstructure:"logging"`
	Output  OutputConfig  `yaml:"output,omitempty" mapstructure:"output"`

	// SupplierRulesFile is a CSV or XLSX rule table. Relative paths resolve
	// against the configuration file's directory.
	SupplierRulesFile string `yaml:"supplierRulesFile,omitempty" mapstructure:"supplierRulesFile"`
	// SupplierRules are inline rule rows used when no file is given.
	SupplierRules []map[string]string `yaml:"supplierRules,omitempty" mapstructure:"supplierRules"`

	Pricing    rates.Book                 `yaml:"pricing" mapstructure:"pricing"`
	Margin     margin.Policy              `yaml:"margin" mapstructure:"margin"`
	Assignment assign.Settings            `yaml:"assignment" mapstructure:"assignment"`
	Boost      boost.Settings             `yaml:"boost" mapstructure:"boost"`
	Detailing  scenario.DetailingSchedule `yaml:"detailing" mapstructure:"detailing"`
	LeadTimes  scenario.LeadTimes         `yaml:"leadTimes,omitempty" mapstructure:"leadTimes"`

	baseDir      string
	marginLoaded bool
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" mapstructure:"format"` // pretty, csv, json
}

// Default returns a normalized configuration built only from defaults.
func Default() *Configuration {
	conf := &Configuration{}
	conf.Normalize()
	return conf
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Keys can be overridden with STEEL_-prefixed
// environment variables.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %w", err)
	}

	conf, err := decode(v)
	if err != nil {
		return nil, err
	}
	conf.baseDir = filepath.Dir(configPath)
	return conf, nil
}

// LoadConfigurationFromReader loads a YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	v.SetConfigType("yml")
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	configuration.marginLoaded = v.IsSet("margin")
	configuration.Normalize()
	if err := configuration.Validate(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

// Normalize applies defaults to every unset section.
func (c *Configuration) Normalize() {
	if len(c.Pricing.Deck) == 0 && len(c.Pricing.Joists) == 0 {
		c.Pricing = rates.DefaultBook()
	}
	c.Pricing.Normalize()

	if !c.marginLoaded && c.Margin.Percents == nil && c.Margin.MinProjectMargin == 0 && len(c.Margin.TopUpPriority) == 0 {
		c.Margin = margin.DefaultPolicy()
	}
	c.Margin.Normalize()

	c.Assignment.Normalize()
	c.Boost.Normalize()
	c.Detailing.Normalize()

	if len(c.LeadTimes) == 0 {
		c.LeadTimes = scenario.DefaultLeadTimes()
	}
	c.LeadTimes = c.LeadTimes.Normalize()
}

// Validate returns an error for settings the engine cannot use.
func (c *Configuration) Validate() error {
	if err := c.Pricing.Validate(); err != nil {
		return fmt.Errorf("invalid pricing: %w", err)
	}
	if err := c.Margin.Validate(); err != nil {
		return fmt.Errorf("invalid margin policy: %w", err)
	}
	if err := c.Boost.Validate(); err != nil {
		return fmt.Errorf("invalid boost settings: %w", err)
	}
	for tier, bands := range c.Detailing.Tiers {
		for _, band := range bands {
			if band.Percent < 0 || band.UpToTons < 0 {
				return fmt.Errorf("invalid detailing tier %s: negative band", tier)
			}
		}
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings for suspicious but usable settings.
func (c *Configuration) ValidateConfiguration() []string {
	warnings := c.Pricing.Warnings()

	for _, supplier := range c.Margin.TopUpPriority {
		if !c.Pricing.Has(rates.ScopeDeck, supplier) && !c.Pricing.Has(rates.ScopeJoists, supplier) {
			warnings = append(warnings, fmt.Sprintf("top-up supplier %s has no pricing", supplier))
		}
	}
	if !c.Pricing.Has(rates.ScopeDeck, c.Boost.PremiumSupplier) {
		warnings = append(warnings, fmt.Sprintf("boost premium supplier %s has no deck pricing", c.Boost.PremiumSupplier))
	}
	if c.Margin.MinProjectMargin == 0 {
		warnings = append(warnings, "minimum project margin is zero; no top-up will occur")
	}
	if c.Detailing.Floor == 0 {
		warnings = append(warnings, "detailing fee floor is zero")
	}
	if _, ok := c.Detailing.Tiers[c.Detailing.DefaultTier]; !ok {
		warnings = append(warnings, fmt.Sprintf("default detailing tier %q is not defined", c.Detailing.DefaultTier))
	}
	if c.SupplierRulesFile != "" && len(c.SupplierRules) > 0 {
		warnings = append(warnings, "both supplierRulesFile and inline supplierRules are set; the file wins")
	}

	sort.Strings(warnings)
	return warnings
}

// RulesPath resolves SupplierRulesFile against the configuration directory.
func (c *Configuration) RulesPath() string {
	if c.SupplierRulesFile == "" || filepath.IsAbs(c.SupplierRulesFile) || c.baseDir == "" {
		return c.SupplierRulesFile
	}
	return filepath.Join(c.baseDir, c.SupplierRulesFile)
}

// OverrideSupplierRulesFile points the configuration at a rules file given
// on the command line. Relative paths resolve against the working directory,
// not the configuration directory.
func (c *Configuration) OverrideSupplierRulesFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve supplier rules path %s: %w", path, err)
	}
	c.SupplierRulesFile = abs
	return nil
}

// LoadSupplierRules returns the raw rule rows from the rules file, else the
// inline rows. An empty result makes the catalog use its built-in rules.
func (c *Configuration) LoadSupplierRules() ([]catalog.Row, error) {
	var records []map[string]string
	if path := c.RulesPath(); path != "" {
		loaded, err := ruletable.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load supplier rules: %w", err)
		}
		records = loaded
	} else {
		records = c.SupplierRules
	}

	rows := make([]catalog.Row, 0, len(records))
	for _, record := range records {
		rows = append(rows, catalog.Row(record))
	}
	return rows, nil
}

// Catalog builds the eligibility catalog from the configured rules.
func (c *Configuration) Catalog() (catalog.Catalog, error) {
	rows, err := c.LoadSupplierRules()
	if err != nil {
		return catalog.Catalog{}, err
	}
	return catalog.Build(rows), nil
}

// LoadProject reads a YAML or JSON project request.
func LoadProject(path string) (*project.Project, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(projectFormat(path))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading project file, %w", err)
	}
	return decodeProject(v)
}

// LoadProjectFromReader reads a project request in the given format
// ("yaml" or "json").
func LoadProjectFromReader(r io.Reader, format string) (*project.Project, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading project data, %w", err)
	}
	return decodeProject(v)
}

// projectFormat infers the encoding from the extension, ignoring a trailing
// ".example". Anything but JSON is read as YAML.
func projectFormat(path string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSuffix(path, ".example")))
	if ext == ".json" {
		return "json"
	}
	return "yaml"
}

// lenientAmounts decodes string values bound for float fields with
// pricing.ParseAmount, so "$1,200" is 1200 and malformed input is 0.
func lenientAmounts(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Float64 {
		return data, nil
	}
	return pricing.ParseAmount(reflect.ValueOf(data).String()), nil
}

func decodeProject(v *viper.Viper) (*project.Project, error) {
	var p project.Project
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		lenientAmounts,
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&p, hook); err != nil {
		return nil, fmt.Errorf("unable to decode project, %w", err)
	}
	sanitized := p.Sanitized()
	return &sanitized, nil
}
