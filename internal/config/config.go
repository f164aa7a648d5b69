package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

const (
	defaultRPCURL       = "http://127.0.0.1:8545"
	defaultLogLevel     = "info"
	defaultABICacheSize = 64

	// EnvDir overrides the config directory when --config is not given.
	EnvDir = "W3WIZARD_CONFIG_DIR"

	configFile    = "config.json"
	accountsFile  = "accounts.json"
	contractsFile = "contracts.json"
)

// Load reads config from dir (or creates defaults). dir defaults to ~/.w3wizard.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = os.Getenv(EnvDir)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".w3wizard")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.configDir = dir
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	if _, err := c.Multiplier(); err != nil {
		result = multierror.Append(result, err)
	}
	if c.GasRounding != "nearest" && c.GasRounding != "floor" {
		result = multierror.Append(result, fmt.Errorf("gas_rounding must be nearest or floor, got %q", c.GasRounding))
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		result = multierror.Append(result, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	if c.ABICacheSize < 0 {
		result = multierror.Append(result, fmt.Errorf("abi_cache_size must not be negative"))
	}
	return result.ErrorOrNil()
}

// Multiplier parses the gas safety multiplier.
func (c *Config) Multiplier() (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(c.GasMultiplier)
	if !ok {
		return nil, fmt.Errorf("gas_multiplier %q is not a decimal number", c.GasMultiplier)
	}
	if r.Cmp(big.NewRat(1, 1)) < 0 {
		return nil, fmt.Errorf("gas_multiplier %s must be at least 1", c.GasMultiplier)
	}
	return r, nil
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// LoadAccounts reads accounts.json.
func (c *Config) LoadAccounts() (*AccountsFile, error) {
	return loadJSON[AccountsFile](filepath.Join(c.configDir, accountsFile))
}

// SaveAccounts writes accounts.json.
func (c *Config) SaveAccounts(af *AccountsFile) error {
	return saveJSON(filepath.Join(c.configDir, accountsFile), af)
}

// LoadContracts reads contracts.json.
func (c *Config) LoadContracts() (*ContractsFile, error) {
	return loadJSON[ContractsFile](filepath.Join(c.configDir, contractsFile))
}

// SaveContracts writes contracts.json.
func (c *Config) SaveContracts(cf *ContractsFile) error {
	return saveJSON(filepath.Join(c.configDir, contractsFile), cf)
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		RPCURL:           defaultRPCURL,
		GasMultiplier:    DefaultGasMultiplier,
		GasRounding:      DefaultGasRounding,
		MaxGasEstimation: DefaultMaxGasEstimation,
		LogLevel:         defaultLogLevel,
		ABICacheSize:     defaultABICacheSize,
		configDir:        dir,
	}
}

// fillDefaults restores defaults for keys a hand-edited file left empty.
func (c *Config) fillDefaults() {
	if c.RPCURL == "" {
		c.RPCURL = defaultRPCURL
	}
	if c.GasMultiplier == "" {
		c.GasMultiplier = DefaultGasMultiplier
	}
	if c.GasRounding == "" {
		c.GasRounding = DefaultGasRounding
	}
	if c.MaxGasEstimation == 0 {
		c.MaxGasEstimation = DefaultMaxGasEstimation
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.ABICacheSize == 0 {
		c.ABICacheSize = defaultABICacheSize
	}
}

func loadJSON[T any](path string) (*T, error) {
	var zero T
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &zero, nil
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return &v, nil
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
