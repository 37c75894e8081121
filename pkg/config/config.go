// Package config provides configuration loading and validation for esmstat.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrEmptyInput      = errors.New("input path must not be empty")
	ErrInvalidWorkers  = errors.New("workers must not be negative")
	ErrInvalidLogLevel = errors.New("invalid logging level")
	ErrInvalidLogFmt   = errors.New("logging format must be text or json")
)

// Config holds all configuration for esmstat.
type Config struct {
	Input              string          `mapstructure:"input"`
	Format             string          `mapstructure:"format"`
	MetricsTextfile    string          `mapstructure:"metrics_textfile"`
	Logging            LoggingConfig   `mapstructure:"logging"`
	Telemetry          TelemetryConfig `mapstructure:"telemetry"`
	Workers            int             `mapstructure:"workers"`
	LegacyPackageAlias bool            `mapstructure:"legacy_package_alias"`
	Lenient            bool            `mapstructure:"lenient"`
	ValidateSchema     bool            `mapstructure:"validate_schema"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Environment  string `mapstructure:"environment"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
}

// SlogLevel returns the configured level. Call after validation.
func (l LoggingConfig) SlogLevel() slog.Level {
	level, _ := parseLevel(l.Level)

	return level
}

// JSON reports whether logs should be JSON formatted.
func (l LoggingConfig) JSON() bool {
	return strings.EqualFold(l.Format, LogFormatJSON)
}

// LoadConfig loads configuration from file and environment variables. An empty
// configPath searches for .esmstat.yaml in the usual places and tolerates its absence.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	// Set defaults.
	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME/.config/esmstat")
	}

	// Read environment variables.
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := Validate(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("input", DefaultInput)
	viperCfg.SetDefault("format", DefaultFormat)
	viperCfg.SetDefault("workers", DefaultWorkers)
	viperCfg.SetDefault("legacy_package_alias", DefaultLegacyPackageAlias)
	viperCfg.SetDefault("lenient", DefaultLenient)
	viperCfg.SetDefault("validate_schema", DefaultValidateSchema)
	viperCfg.SetDefault("metrics_textfile", "")

	// Logging defaults.
	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", LogFormatText)

	// Telemetry defaults.
	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.environment", "")
}

// Validate checks the configuration.
func Validate(config *Config) error {
	if strings.TrimSpace(config.Input) == "" {
		return ErrEmptyInput
	}

	if config.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, config.Workers)
	}

	_, err := parseLevel(config.Logging.Level)
	if err != nil {
		return err
	}

	if !strings.EqualFold(config.Logging.Format, LogFormatText) && !config.Logging.JSON() {
		return fmt.Errorf("%w: %q", ErrInvalidLogFmt, config.Logging.Format)
	}

	return nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(raw))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, raw)
	}

	return level, nil
}
