package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds download defaults read from the YAML config file. Command
// line flags override individual fields.
type Config struct {
	Retries          int               `yaml:"retries"`
	Parallel         int               `yaml:"parallel"`
	Timeout          time.Duration     `yaml:"timeout"`
	KeepAliveTimeout time.Duration     `yaml:"keep_alive_timeout"`
	UserAgent        string            `yaml:"user_agent"`
	Headers          map[string]string `yaml:"headers"`
	BackoffBase      time.Duration     `yaml:"backoff_base"`
	BackoffMax       time.Duration     `yaml:"backoff_max"`
}

func DefaultConfig() Config {
	return Config{
		Retries:          DefaultRetries,
		Parallel:         DefaultParallel,
		Timeout:          DefaultTimeout,
		KeepAliveTimeout: DefaultKeepAliveTimeout,
		UserAgent:        ToolUserAgent,
		Headers:          map[string]string{},
		BackoffBase:      DefaultBackoffBase,
		BackoffMax:       DefaultBackoffMax,
	}
}

func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "chunkr", "config.yaml")
}

// LoadConfig reads path over the defaults. An empty path means the default
// location; a missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
		if path == "" {
			return cfg, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Retries < 0 {
		errs = append(errs, fmt.Errorf("retries must be >= 0, got %d", c.Retries))
	}
	if c.Parallel < 1 {
		errs = append(errs, fmt.Errorf("parallel must be >= 1, got %d", c.Parallel))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.KeepAliveTimeout <= 0 {
		errs = append(errs, fmt.Errorf("keep_alive_timeout must be positive, got %s", c.KeepAliveTimeout))
	}
	if c.BackoffBase <= 0 {
		errs = append(errs, fmt.Errorf("backoff_base must be positive, got %s", c.BackoffBase))
	}
	if c.BackoffMax < c.BackoffBase {
		errs = append(errs, fmt.Errorf("backoff_max (%s) must not be below backoff_base (%s)", c.BackoffMax, c.BackoffBase))
	}
	return errors.Join(errs...)
}
