// Package constants provides shared constants for the financing-simulator application.
package constants

// DateTimeLayout is the format expected in config files for schedule start
// dates and is also the output date format.
const DateTimeLayout = "2006-01"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// CurrencyDecimalPlaces is the number of decimal places shown for currency
	CurrencyDecimalPlaces = 2

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// RelativeTolerance is the relative tolerance used for conservation checks
	RelativeTolerance = 1e-6
)

// Transaction tax policy. The defaults model an embedded financial-operations
// tax made of a daily accrual, capped at MaxTaxDays, plus a flat charge.
const (
	// DefaultDailyTaxRatePercent is the per-day accrual rate, in percent
	DefaultDailyTaxRatePercent = 0.0082

	// DefaultFlatTaxRatePercent is the flat rate charged once, in percent
	DefaultFlatTaxRatePercent = 0.38

	// DefaultMaxTaxDays caps the number of days accruing the daily rate
	DefaultMaxTaxDays = 365

	// DefaultDaysPerPeriod converts term periods into tax days
	DefaultDaysPerPeriod = 30
)

// MaxTermPeriods is the longest term accepted for a simulation (50 years)
const MaxTermPeriods = 600

// Effective rate solver defaults. Rates are fractions per period.
const (
	// SolverLowerRate is the lower bound of the bisection bracket (0.1%)
	SolverLowerRate = 0.001

	// SolverUpperRate is the upper bound of the bisection bracket (20%)
	SolverUpperRate = 0.20

	// SolverMaxIterations is the iteration budget for the bisection
	SolverMaxIterations = 100

	// SolverTolerance is the absolute NPV tolerance in currency units
	SolverTolerance = 1e-4
)

// Method names accepted in configuration files and API requests.
const (
	// MethodPrice selects the fixed installment (French/Price) convention
	MethodPrice = "price"

	// MethodSAC selects the constant amortization convention
	MethodSAC = "sac"
)

// Rate basis values accepted in configuration files.
const (
	// RateBasisMonthly means the configured rate is already periodic
	RateBasisMonthly = "monthly"

	// RateBasisAnnual means the configured rate is an annual effective rate
	RateBasisAnnual = "annual"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// DefaultRateLimitCapacity is the number of requests a client may make per window
	DefaultRateLimitCapacity = 60

	// DefaultRateLimitWindow is the rate limiter refill window
	DefaultRateLimitWindow = "1m"

	// DefaultCacheTTL is how long cached simulation results stay valid
	DefaultCacheTTL = "10m"
)
