package tiercache

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// LayerConfig names one layer adapter and its adapter-specific options.
type LayerConfig struct {
	Name    string         `yaml:"adapter_name"`
	Options map[string]any `yaml:"adapter_options"`
}

// Config describes a layer stack. Layers are ordered fastest first.
//
//	namespace: user
//	encoder: json
//	layers:
//	  - adapter_name: array
//	    adapter_options: {}
//	  - adapter_name: redis
//	    adapter_options: {host: 127.0.0.1, port: 6379}
type Config struct {
	Namespace string        `yaml:"namespace"`
	Encoder   string        `yaml:"encoder"`
	Layers    []LayerConfig `yaml:"layers"`
}

// Validate reports every missing required parameter at once.
// Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	var errs error
	if len(c.Layers) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: missing required cache configuration parameter: layers", ErrInvalidConfig))
	}
	for i, l := range c.Layers {
		if l.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("%w: layers[%d]: missing required configuration option: adapter_name", ErrInvalidConfig, i))
		}
		if l.Options == nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: layers[%d]: missing required configuration option: adapter_options", ErrInvalidConfig, i))
		}
	}
	return errs
}

// ParseConfig decodes a YAML document and validates it.
func ParseConfig(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses the YAML file at path.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("tiercache: read config: %w", err)
	}
	return ParseConfig(b)
}
