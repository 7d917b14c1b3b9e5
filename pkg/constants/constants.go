// Package constants provides shared constants for the steel-estimate application.
package constants

// Unit constants
const (
	// PoundsPerTon converts per-pound rates into per-ton rates (short ton).
	PoundsPerTon = 2000.0

	// DepthTolerance is the tolerance used when matching deck depths in inches.
	DepthTolerance = 1e-4
)

// Supplier names used by the hardcoded preferences and fallbacks.
const (
	// SupplierTrojan is the premium manufacturing supplier.
	SupplierTrojan = "TROJAN"

	// SupplierCSC is the commodity supplier priced from bucket tables.
	SupplierCSC = "CSC"

	// SupplierCanam is the per-pound linear supplier.
	SupplierCanam = "CANAM"

	// SupplierCordeck and SupplierVerco are local regional suppliers priced as
	// a factor of the commodity supplier's rate.
	SupplierCordeck = "CORDECK"
	SupplierVerco   = "VERCO"
)

// Margin category keys.
const (
	CategoryDeckPreferred = "deck_preferred"
	CategoryDeckOther     = "deck_other"
	CategoryJoists        = "joists"
)

// Boost defaults
const (
	// DefaultBoostTargetPct is the fraction of the benchmark subtotal the boosted
	// option should land on.
	DefaultBoostTargetPct = 0.855

	// DefaultBoostUndercutBuffer keeps the boosted option this many dollars
	// below the next cheapest alternative.
	DefaultBoostUndercutBuffer = 1000.0

	// DefaultMaxMarginPercent caps the solved boost margin.
	DefaultMaxMarginPercent = 50.0
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is the prefix for environment overrides of config keys.
	EnvPrefix = "STEEL"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum request body size (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)

// Validation constants
const (
	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)
