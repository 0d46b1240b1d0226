package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"tastefun/native/params"
	"tastefun/storage"
)

type Config struct {
	RPCAddress  string `toml:"RPCAddress" yaml:"rpc_address"`
	DataDir     string `toml:"DataDir" yaml:"data_dir"`
	Backend     string `toml:"Backend" yaml:"backend"`
	Environment string `toml:"Environment" yaml:"environment"`

	OracleAddress   string `toml:"OracleAddress" yaml:"oracle_address"`
	TreasuryAddress string `toml:"TreasuryAddress" yaml:"treasury_address"`
	DustSinkAddress string `toml:"DustSinkAddress" yaml:"dust_sink_address"`
	AdminAddress    string `toml:"AdminAddress" yaml:"admin_address"`
	// DevFaucet lets the admin credit base currency through the API.
	DevFaucet bool `toml:"DevFaucet" yaml:"dev_faucet"`

	Protocol  params.Params `toml:"Protocol" yaml:"protocol"`
	Auth      Auth          `toml:"Auth" yaml:"auth"`
	RateLimit RateLimit     `toml:"RateLimit" yaml:"rate_limit"`
	Journal   Journal       `toml:"Journal" yaml:"journal"`
	Logging   Logging       `toml:"Logging" yaml:"logging"`
	Telemetry Telemetry     `toml:"Telemetry" yaml:"telemetry"`
}

// Default returns a configuration with every optional field populated.
func Default() *Config {
	return &Config{
		RPCAddress:  ":8080",
		DataDir:     "./taste-data",
		Backend:     storage.BackendBolt,
		Environment: "local",
		Protocol:    params.Default(),
		Auth: Auth{
			Issuer:          "tastefund",
			Audience:        "tastefun-api",
			TokenTTLSeconds: 3600,
		},
		RateLimit: RateLimit{RequestsPerSecond: 20, Burst: 40},
		Journal:   Journal{Driver: JournalSQLite},
		Logging: Logging{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load loads the configuration from the given path, writing a default file
// when none exists. YAML is used for .yaml/.yml paths and TOML otherwise.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := Default()
	if isYAML(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config: unknown key %q in %s", undecoded[0].String(), path)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Backend) == "" {
		c.Backend = storage.BackendBolt
	}
	if strings.TrimSpace(c.Journal.Driver) == "" {
		c.Journal.Driver = JournalSQLite
	}
	if c.Journal.Driver == JournalSQLite && strings.TrimSpace(c.Journal.DSN) == "" {
		c.Journal.DSN = filepath.Join(c.DataDir, "journal.db")
	}
	if strings.TrimSpace(c.DustSinkAddress) == "" {
		c.DustSinkAddress = c.TreasuryAddress
	}
}

// StoragePath is the location of the configured storage backend.
func (c *Config) StoragePath() string {
	switch c.Backend {
	case storage.BackendBolt:
		return filepath.Join(c.DataDir, "state.bolt")
	case storage.BackendLevelDB:
		return filepath.Join(c.DataDir, "state.ldb")
	default:
		return ""
	}
}

// createDefault creates and saves a default configuration file. The HMAC
// secret is random and the operator addresses are left for the operator to
// fill in, so the returned configuration does not yet validate.
func createDefault(path string) (*Config, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	cfg := Default()
	cfg.Auth.HMACSecret = hex.EncodeToString(secret)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		defer enc.Close()
		return enc.Encode(cfg)
	}
	return toml.NewEncoder(f).Encode(cfg)
}
