package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// MetricConfig defines a single metric polled inside a category
type MetricConfig struct {
	Name           string            `toml:"Name"`
	Alias          string            `toml:"Alias"`
	Conversion     string            `toml:"Conversion"`
	MonotonicValue bool              `toml:"MonotonicValue"`
	Tags           map[string]string `toml:"Tags"`
}

// CategoryConfig defines a polling group: one telemetry source polled on its
// own schedule. TimeoutInSeconds set to 0 disables staleness checking for
// every series of the category.
type CategoryConfig struct {
	Namespace           string         `toml:"Namespace"`
	SourceURL           string         `toml:"SourceURL"`
	PollPeriodInSeconds uint32         `toml:"PollPeriodInSeconds"`
	TimeoutInSeconds    uint32         `toml:"TimeoutInSeconds"`
	Size                int            `toml:"Size"`
	Parallelism         int            `toml:"Parallelism"`
	Dimensions          []string       `toml:"Dimensions"`
	Query               string         `toml:"Query"`
	Metrics             []MetricConfig `toml:"Metrics"`
}

// GeneralConfig holds the service-wide settings
type GeneralConfig struct {
	Name             string `toml:"Name"`
	ListenAddress    string `toml:"ListenAddress"`
	DatabasePath     string `toml:"DatabasePath"`
	RetentionSeconds int    `toml:"RetentionSeconds"`
}

// Config maps to the config.toml file for the monitor service
type Config struct {
	General    GeneralConfig    `toml:"General"`
	Categories []CategoryConfig `toml:"Categories"`
}

// LoadConfig parses a TOML file into the Config struct
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filepath, err)
	}

	var cfg Config
	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	err = cfg.validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (cfg *Config) validate() error {
	if len(cfg.Categories) == 0 {
		return errors.New("at least one category is required")
	}

	for i := range cfg.Categories {
		cat := &cfg.Categories[i]
		if len(cat.Namespace) == 0 {
			return fmt.Errorf("category %d: empty namespace", i)
		}
		if len(cat.SourceURL) == 0 {
			return fmt.Errorf("category '%s': empty source URL", cat.Namespace)
		}
		if cat.PollPeriodInSeconds == 0 {
			return fmt.Errorf("category '%s': poll period must be positive", cat.Namespace)
		}
		if cat.Parallelism <= 0 {
			cat.Parallelism = 1
		}
	}

	return nil
}
