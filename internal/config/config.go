// Package config loads blamethrower configuration from a YAML file and
// BLAMETHROWER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/blamethrower/pkg/observability"
	"github.com/Sumatoshi-tech/blamethrower/pkg/report"
)

// Sentinel validation errors.
var (
	ErrInvalidLogLevel    = errors.New("invalid logging level")
	ErrInvalidFormat      = errors.New("invalid output format")
	ErrInvalidMaxAuthors  = errors.New("output max authors must not be negative")
	ErrInvalidSampleRatio = errors.New("telemetry sample ratio must be within [0, 1]")
)

const (
	configName = ".blamethrower"
	envPrefix  = "BLAMETHROWER"

	defaultMaxAuthors = 20
)

// Config holds all configuration for a blamethrower invocation.
type Config struct {
	Analyzer  SourceConfig    `mapstructure:"analyzer"`
	Repo      SourceConfig    `mapstructure:"repo"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Filter    FilterConfig    `mapstructure:"filter"`
	Validate  bool            `mapstructure:"validate"`
}

// SourceConfig selects a registered collaborator and its options.
type SourceConfig struct {
	Options map[string]string `mapstructure:"options"`
	Name    string            `mapstructure:"name"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format     string `mapstructure:"format"`
	MaxAuthors int    `mapstructure:"max_authors"`
	NoColor    bool   `mapstructure:"no_color"`
}

// FilterConfig controls record filtering after the merge.
type FilterConfig struct {
	SkipVendored bool `mapstructure:"skip_vendored"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// LoadConfig loads configuration from defaults, the config file and
// environment variables, in increasing precedence. An empty configPath
// searches for .blamethrower.yaml in the working directory and $HOME.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Check()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or environment is present.
func Default() *Config {
	return &Config{
		Validate: true,
		Output:   OutputConfig{Format: string(report.FormatText), MaxAuthors: defaultMaxAuthors},
		Logging:  LoggingConfig{Level: "info"},
	}
}

func setDefaults(viperCfg *viper.Viper) {
	def := Default()

	viperCfg.SetDefault("analyzer.name", "")
	viperCfg.SetDefault("repo.name", "")
	viperCfg.SetDefault("validate", def.Validate)

	viperCfg.SetDefault("output.format", def.Output.Format)
	viperCfg.SetDefault("output.max_authors", def.Output.MaxAuthors)
	viperCfg.SetDefault("output.no_color", false)

	viperCfg.SetDefault("filter.skip_vendored", false)

	viperCfg.SetDefault("logging.level", def.Logging.Level)
	viperCfg.SetDefault("logging.json", false)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)
}

// Check validates the configuration.
func (c *Config) Check() error {
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}

	if _, err := report.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Output.Format)
	}

	if c.Output.MaxAuthors < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxAuthors, c.Output.MaxAuthors)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRatio, c.Telemetry.SampleRatio)
	}

	return nil
}

// Observability maps the logging and telemetry sections onto an
// observability configuration for the given mode.
func (c *Config) Observability(mode observability.AppMode, version string) observability.Config {
	obs := observability.DefaultConfig()
	obs.Mode = mode
	obs.ServiceVersion = version
	obs.LogJSON = c.Logging.JSON
	obs.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	obs.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	obs.OTLPInsecure = c.Telemetry.OTLPInsecure
	obs.SampleRatio = c.Telemetry.SampleRatio

	if level, err := parseLevel(c.Logging.Level); err == nil {
		obs.LogLevel = level
	}

	return obs
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(name))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, name)
	}

	return level, nil
}
