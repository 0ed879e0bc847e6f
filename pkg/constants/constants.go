// Package constants provides shared constants for the drone-power application.
package constants

// Power model constants
const (
	// VelocityEpsilon is the velocity at or below which the power model is
	// treated as outside its domain.
	VelocityEpsilon = 1e-9

	// DomainSentinel is returned by the stationarity functions outside the
	// valid velocity domain.
	DomainSentinel = 1e12

	// StationaryDerivativeThreshold is the magnitude below which a Newton step
	// is refused.
	StationaryDerivativeThreshold = 1e-10
)

// Analysis defaults
const (
	// DefaultDifferentiationStep is the step h used for the centered difference.
	DefaultDifferentiationStep = 0.01

	// DefaultRombergLevels is the depth of the Romberg table.
	DefaultRombergLevels = 6

	// MaxRombergLevels bounds the table depth; 2^(levels-1) subintervals are
	// evaluated at the finest level.
	MaxRombergLevels = 24

	// DefaultManeuverDuration is the maneuver length T in seconds.
	DefaultManeuverDuration = 10.0

	// DefaultStartVelocity is the velocity at t=0 of the maneuver in m/s.
	DefaultStartVelocity = 1.0

	// DefaultProfileSamples is the number of points in a sampled profile.
	DefaultProfileSamples = 200
)

// Generator defaults
const (
	// DefaultGenerateCount is the number of synthetic cases generated.
	DefaultGenerateCount = 15

	// DefaultTolerance is the Newton-Raphson tolerance of generated cases.
	DefaultTolerance = 1e-6

	// DefaultMaxIterations is the Newton-Raphson budget of generated cases.
	DefaultMaxIterations = 100

	MinC1 = 0.05
	MaxC1 = 0.5
	MinC2 = 100.0
	MaxC2 = 500.0
	MinV0 = 1.0
	MaxV0 = 15.0
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"

	// OutputPrecision is the number of fractional digits printed for results.
	OutputPrecision = 6
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultInputFile is the default case file name
	DefaultInputFile = "synthetic_data.txt"

	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "DRONE_POWER"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for case files (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)
