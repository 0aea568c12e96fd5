package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete bot configuration.
type Config struct {
	DataDir  string         `json:"data_dir" yaml:"data_dir"`
	Ledger   LedgerConfig   `json:"ledger" yaml:"ledger"`
	Output   OutputConfig   `json:"output" yaml:"output"`
	Engine   EngineConfig   `json:"engine" yaml:"engine"`
	Periodic PeriodicConfig `json:"periodic" yaml:"periodic"`
	Rates    RatesConfig    `json:"rates" yaml:"rates"`
	Notify   NotifyConfig   `json:"notify" yaml:"notify"`

	// RealModeEnabled gates analysis of the live account. When false,
	// real-mode requests fail fast instead of reading account state.
	RealModeEnabled bool `json:"real_mode_enabled" yaml:"real_mode_enabled"`

	LogLevel string `json:"log_level" yaml:"log_level"`
}

// LedgerConfig selects the balance/transaction store backend.
type LedgerConfig struct {
	Type   string `json:"type" yaml:"type"` // "json" or "sqlite"
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// OutputConfig holds the mode-segregated result roots. Real and simulated
// results must never share a root: downstream consumers key their trust
// level off the directory, not the file contents.
type OutputConfig struct {
	RealDir string `json:"real_dir" yaml:"real_dir"`
	SimDir  string `json:"sim_dir" yaml:"sim_dir"`
}

// EngineConfig locates and bounds the external analysis engine.
type EngineConfig struct {
	Path    string   `json:"path" yaml:"path"`
	Timeout Duration `json:"timeout" yaml:"timeout"`
	Grace   Duration `json:"grace" yaml:"grace"`
}

// PeriodicConfig controls the background inference trigger.
type PeriodicConfig struct {
	Enabled  bool     `json:"enabled" yaml:"enabled"`
	Interval Duration `json:"interval" yaml:"interval"`
	Mode     string   `json:"mode" yaml:"mode"` // "real" or "simulated"
}

// RatesConfig configures the exchange-rate API client.
type RatesConfig struct {
	APIURL   string   `json:"api_url" yaml:"api_url"`
	APIKey   string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	CacheTTL Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// NotifyConfig configures the messaging webhook.
type NotifyConfig struct {
	WebhookURL string `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty"`
	Channel    string `json:"channel,omitempty" yaml:"channel,omitempty"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		DataDir: "./data",
		Ledger: LedgerConfig{
			Type: "json",
		},
		Output: OutputConfig{
			RealDir: "./output/real",
			SimDir:  "./output/sim",
		},
		Engine: EngineConfig{
			Path:    "./engine/run_inference",
			Timeout: Duration(5 * time.Minute),
			Grace:   Duration(30 * time.Second),
		},
		Periodic: PeriodicConfig{
			Enabled:  true,
			Interval: Duration(time.Hour),
			Mode:     "real",
		},
		Rates: RatesConfig{
			CacheTTL: Duration(5 * time.Minute),
		},
		RealModeEnabled: true,
		LogLevel:        "info",
	}
}

// LoadFromFile loads configuration from a file (YAML or JSON based on
// content) on top of the defaults, then applies environment overrides.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadEnv reads a .env file if present, then returns defaults with
// environment overrides applied. Used when no config file is given.
func LoadEnv(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	} else {
		// Best effort: a missing ./.env is not an error.
		_ = godotenv.Load()
	}

	cfg := Default()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides secrets and deployment paths from the environment so
// they never have to live in the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("RATE_API_URL"); v != "" {
		c.Rates.APIURL = v
	}
	if v := os.Getenv("RATE_API_KEY"); v != "" {
		c.Rates.APIKey = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		c.Notify.WebhookURL = v
	}
	if v := os.Getenv("ENGINE_PATH"); v != "" {
		c.Engine.Path = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// BalanceFile returns the path of the JSON balance file.
func (c *Config) BalanceFile() string {
	return filepath.Join(c.DataDir, "balance.json")
}

// TransactionFile returns the path of the JSON transaction log.
func (c *Config) TransactionFile() string {
	return filepath.Join(c.DataDir, "transaction_log.json")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Ledger.Type != "json" && c.Ledger.Type != "sqlite" {
		return fmt.Errorf("ledger.type must be 'json' or 'sqlite'")
	}
	if c.Ledger.Type == "sqlite" && c.Ledger.DBPath == "" {
		return fmt.Errorf("ledger.db_path required for sqlite type")
	}
	if c.Output.RealDir == "" || c.Output.SimDir == "" {
		return fmt.Errorf("output.real_dir and output.sim_dir are required")
	}
	realAbs, err := filepath.Abs(c.Output.RealDir)
	if err != nil {
		return fmt.Errorf("output.real_dir: %w", err)
	}
	simAbs, err := filepath.Abs(c.Output.SimDir)
	if err != nil {
		return fmt.Errorf("output.sim_dir: %w", err)
	}
	if pathsOverlap(realAbs, simAbs) {
		return fmt.Errorf("output.real_dir and output.sim_dir must be disjoint")
	}
	if c.Engine.Path == "" {
		return fmt.Errorf("engine.path is required")
	}
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("engine.timeout must be positive")
	}
	if c.Engine.Grace < 0 {
		return fmt.Errorf("engine.grace must not be negative")
	}
	if c.Periodic.Enabled {
		if c.Periodic.Interval <= 0 {
			return fmt.Errorf("periodic.interval must be positive")
		}
		if c.Periodic.Mode != "real" && c.Periodic.Mode != "simulated" {
			return fmt.Errorf("periodic.mode must be 'real' or 'simulated'")
		}
	}
	if c.Rates.CacheTTL < 0 {
		return fmt.Errorf("rates.cache_ttl must not be negative")
	}
	return nil
}

// pathsOverlap reports whether either absolute path equals or contains the
// other. Nested output roots would break mode segregation, not just equal
// ones.
func pathsOverlap(a, b string) bool {
	return containsPath(a, b) || containsPath(b, a)
}

func containsPath(dir, child string) bool {
	rel, err := filepath.Rel(dir, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// EnsureDirectories creates the data and output directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, c.Output.RealDir, c.Output.SimDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
