// Package config resolves walletd's configuration from defaults, an optional
// YAML file and the process environment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fyltr/walletd/internal/logging"
)

// Environment variable names.
const (
	EnvConnectionProfile = "LEDGER_CONNECTION_PROFILE"
	EnvBusinessNetwork   = "LEDGER_BUSINESS_NETWORK"
	EnvUserID            = "LEDGER_USER_ID"
	EnvUserSecret        = "LEDGER_USER_SECRET"
	EnvProfileDir        = "LEDGER_PROFILE_DIR"
	EnvWalletContainer   = "WALLET_CONTAINER"
	EnvWalletType        = "WALLET_TYPE"
	EnvWalletPath        = "WALLET_PATH"
	EnvServicePattern    = "WALLET_SERVICE_PATTERN"
	EnvServices          = "VCAP_SERVICES"
	EnvApplication       = "VCAP_APPLICATION"
	EnvPort              = "PORT"
)

// Wallet backend types.
const (
	WalletObjectStore = "objectstore"
	WalletMemory      = "memory"
	WalletFile        = "file"
)

// DefaultWalletPath is the file used by the file wallet.
const DefaultWalletPath = "wallet.yaml"

// DefaultServicePattern matches the object-storage service binding name.
const DefaultServicePattern = "Object-Storage"

// Config is the resolved process configuration.
type Config struct {
	Ledger  LedgerConfig  `yaml:"ledger"`
	Wallet  WalletConfig  `yaml:"wallet"`
	Server  ServerConfig  `yaml:"server"`
	Metrics MetricsConfig `yaml:"metrics"`

	// RequestTimeout bounds every outbound HTTP call. It must stay below
	// Server.WriteTimeout so a slow ping still gets its error response out.
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`

	// Services holds the parsed VCAP_SERVICES bindings. Never read from YAML.
	Services ServiceBindings `yaml:"-"`
}

// LedgerConfig identifies the business network and the user connecting to it.
type LedgerConfig struct {
	ConnectionProfile string         `yaml:"connection_profile"`
	BusinessNetwork   string         `yaml:"business_network"`
	UserID            string         `yaml:"user_id"`
	UserSecret        logging.Secret `yaml:"user_secret,omitempty"`
	ProfileDir        string         `yaml:"profile_dir,omitempty"`
}

// WalletConfig selects and configures the credential store.
type WalletConfig struct {
	Type           string `yaml:"type,omitempty"` // objectstore | memory | file
	Container      string `yaml:"container"`
	ServicePattern string `yaml:"service_pattern,omitempty"`
	Path           string `yaml:"path,omitempty"` // file wallet only
}

// ServerConfig holds HTTP server timeouts.
type ServerConfig struct {
	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// Default returns a Config with every optional field populated.
func Default() *Config {
	return &Config{
		Ledger: LedgerConfig{
			ProfileDir: "profiles",
		},
		Wallet: WalletConfig{
			Type:           WalletObjectStore,
			ServicePattern: DefaultServicePattern,
			Path:           DefaultWalletPath,
		},
		Server: ServerConfig{
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 45 * time.Second,
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
		RequestTimeout: 30 * time.Second,
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty or the file does not exist) and the environment, in that
// order of precedence. It does not validate the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("reading %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)

	services, err := ParseServiceBindings(os.Getenv(EnvServices))
	if err != nil {
		return nil, err
	}
	cfg.Services = services
	return cfg, nil
}

// applyEnv overrides cfg with every environment variable that is set.
func applyEnv(cfg *Config) {
	setString(&cfg.Ledger.ConnectionProfile, EnvConnectionProfile)
	setString(&cfg.Ledger.BusinessNetwork, EnvBusinessNetwork)
	setString(&cfg.Ledger.UserID, EnvUserID)
	setString(&cfg.Ledger.ProfileDir, EnvProfileDir)
	setString(&cfg.Wallet.Container, EnvWalletContainer)
	setString(&cfg.Wallet.Type, EnvWalletType)
	setString(&cfg.Wallet.ServicePattern, EnvServicePattern)
	setString(&cfg.Wallet.Path, EnvWalletPath)
	if v := os.Getenv(EnvUserSecret); v != "" {
		cfg.Ledger.UserSecret = logging.Secret(v)
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
