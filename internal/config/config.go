package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"
)

// Config holds the lookup endpoints and network settings for a report run.
type Config struct {
	PublicIPURL string        `yaml:"public_ip_url" validate:"required,url"`
	LocationURL string        `yaml:"location_url" validate:"required,url"`
	ProbeTarget string        `yaml:"probe_target" validate:"required"`
	Fetch       FetchConfig   `yaml:"fetch"`
	Location    CacheConfig   `yaml:"location_cache"`
	Webhook     WebhookConfig `yaml:"webhook"`
}

type FetchConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" validate:"min=1,max=10"`
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
	InitialDelay time.Duration `yaml:"initial_delay" validate:"gte=0"`
}

// CacheConfig controls the per public IP location cache. A zero TTL disables it.
type CacheConfig struct {
	Size int           `yaml:"size" validate:"gte=0"`
	TTL  time.Duration `yaml:"ttl" validate:"gte=0"`
}

type WebhookConfig struct {
	URL     string        `yaml:"url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// Default returns the built-in configuration used when no config file is given.
func Default() *Config {
	return &Config{
		PublicIPURL: "https://api.ipify.org?format=text",
		LocationURL: "https://ipinfo.io/json",
		ProbeTarget: "8.8.8.8:1",
		Fetch: FetchConfig{
			MaxAttempts:  3,
			Timeout:      5 * time.Second,
			InitialDelay: 1 * time.Second,
		},
		Location: CacheConfig{
			Size: 64,
			TTL:  1 * time.Hour,
		},
		Webhook: WebhookConfig{
			Timeout: 3 * time.Second,
		},
	}
}

// LoadConfig reads a YAML config file on top of the defaults. An empty path
// returns the defaults.
func LoadConfig(file string) (*Config, error) {
	config := Default()

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", file, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validation error: %s", err)
	}
	return nil
}
