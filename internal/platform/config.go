package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/tack/pkg/autosave"
	"github.com/aretw0/tack/pkg/core"
)

// EnvPrefix prefixes every environment variable, e.g. TACK_DEBOUNCE.
const EnvPrefix = "TACK"

// ConfigFile is the optional settings file inside the data directory.
const ConfigFile = "config.yaml"

// Config holds the tunable settings. Values are layered: defaults, then
// config.yaml, then TACK_* variables, then options.
type Config struct {
	// DataDir is only taken from the environment; config.yaml lives inside it.
	DataDir string `yaml:"-" envconfig:"DATA_DIR"`

	Autosave   bool          `yaml:"autosave" envconfig:"AUTOSAVE"`
	Debounce   time.Duration `yaml:"debounce" envconfig:"DEBOUNCE"`
	MaxDelay   time.Duration `yaml:"max_delay" envconfig:"MAX_DELAY"`
	RetryDelay time.Duration `yaml:"retry_delay" envconfig:"RETRY_DELAY"`

	Watch         bool          `yaml:"watch" envconfig:"WATCH"`
	WatchDebounce time.Duration `yaml:"watch_debounce" envconfig:"WATCH_DEBOUNCE"`

	ReadOnly       bool        `yaml:"read_only" envconfig:"READ_ONLY"`
	RecoverCorrupt bool        `yaml:"recover_corrupt" envconfig:"RECOVER_CORRUPT"`
	Screen         core.Screen `yaml:"screen" envconfig:"SCREEN"`

	LogLevel  string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" envconfig:"LOG_FORMAT"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Autosave:      true,
		Debounce:      autosave.DefaultDelay,
		MaxDelay:      autosave.DefaultMaxDelay,
		RetryDelay:    autosave.DefaultRetryDelay,
		WatchDebounce: 100 * time.Millisecond,
		Screen:        core.DefaultScreen,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// EnvDataDir returns TACK_DATA_DIR, if set.
func EnvDataDir() (string, error) {
	var env struct {
		DataDir string `envconfig:"DATA_DIR"`
	}
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return "", fmt.Errorf("failed to read environment: %w", err)
	}
	return env.DataDir, nil
}

// LoadConfig reads dir/config.yaml, if present, over the defaults and then
// applies the environment.
func LoadConfig(dir string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", ConfigFile, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("failed to read %s: %w", ConfigFile, err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.DataDir = dir
	return cfg, nil
}

// Validate rejects settings the scheduler cannot work with.
func (c Config) Validate() error {
	if c.Debounce < 0 || c.MaxDelay < 0 || c.RetryDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if c.MaxDelay > 0 && c.MaxDelay < c.Debounce {
		return fmt.Errorf("max_delay (%s) is shorter than debounce (%s)", c.MaxDelay, c.Debounce)
	}
	if c.Screen.Width < 0 || c.Screen.Height < 0 {
		return fmt.Errorf("screen size must not be negative")
	}
	return nil
}
