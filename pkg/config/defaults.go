package config

const (
	configName = ".esmstat"
	envPrefix  = "ESMSTAT"
)

// Analysis defaults.
const (
	DefaultInput              = "results.json"
	DefaultFormat             = "text"
	DefaultWorkers            = 1
	DefaultLegacyPackageAlias = false
	DefaultLenient            = false
	DefaultValidateSchema     = false
)

// Logging defaults.
const (
	DefaultLogLevel = "warn"
	LogFormatText   = "text"
	LogFormatJSON   = "json"
)
