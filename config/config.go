// Package config loads the signer client configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/blockberries/mina-signer-go/types"
)

// Backend names.
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendKeychain = "keychain"
	BackendIAVL     = "iavl"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// DefaultKeychainService is the keychain service name used when none is set.
const DefaultKeychainService = "mina-signer"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the top-level client configuration.
type Config struct {
	// Network is "mainnet" or "testnet". It is required.
	Network  string         `yaml:"network"`
	Logging  LoggingConfig  `yaml:"logging"`
	Keystore KeystoreConfig `yaml:"keystore"`
	Journal  JournalConfig  `yaml:"journal"`
	Hasher   HasherConfig   `yaml:"hasher"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// KeystoreConfig selects where named keys live.
type KeystoreConfig struct {
	// Backend is none, memory, file or keychain.
	Backend string `yaml:"backend"`
	// Dir holds encrypted key files for the file backend.
	Dir string `yaml:"dir"`
	// PasswordEnv names the environment variable holding the file backend
	// password.
	PasswordEnv string `yaml:"password_env"`
	// Service is the keychain service name.
	Service string `yaml:"service"`
	// CacheSize enables an LRU cache in front of the backend when positive.
	CacheSize int `yaml:"cache_size"`
}

// JournalConfig selects where signed commands are recorded.
type JournalConfig struct {
	// Backend is none, memory or iavl.
	Backend string `yaml:"backend"`
	// Dir persists the IAVL journal in a goleveldb database. Empty keeps it
	// in memory.
	Dir string `yaml:"dir"`
	// CacheSize is the IAVL node cache size.
	CacheSize int `yaml:"cache_size"`
}

// HasherConfig selects the Poseidon constant table.
type HasherConfig struct {
	// ParamsFile holds the published legacy Fp table in JSON or YAML. Empty
	// selects the built-in derived table, whose signatures Mina nodes reject.
	ParamsFile string `yaml:"params_file"`
}

// Default returns a mainnet configuration with no keystore and no journal.
func Default() Config {
	return Config{
		Network: types.Mainnet.String(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: FormatText,
		},
		Keystore: KeystoreConfig{
			Backend: BackendNone,
			Service: DefaultKeychainService,
		},
		Journal: JournalConfig{
			Backend:   BackendNone,
			CacheSize: 1000,
		},
	}
}

// Load reads path over Default(). Unknown keys are rejected.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Decode(file)
}

// Decode reads YAML from r over Default() and validates the result.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NetworkID parses Network.
func (c *Config) NetworkID() (types.NetworkID, error) {
	return types.ParseNetworkID(c.Network)
}

// Validate checks every section.
func (c *Config) Validate() error {
	if _, err := c.NetworkID(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Logging.level(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "", FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalidConfig, c.Logging.Format)
	}

	switch c.Keystore.Backend {
	case "", BackendNone, BackendMemory, BackendKeychain:
	case BackendFile:
		if c.Keystore.Dir == "" {
			return fmt.Errorf("%w: keystore.dir is required for the file backend", ErrInvalidConfig)
		}
		if c.Keystore.PasswordEnv == "" {
			return fmt.Errorf("%w: keystore.password_env is required for the file backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: keystore.backend %q", ErrInvalidConfig, c.Keystore.Backend)
	}
	if c.Keystore.CacheSize < 0 {
		return fmt.Errorf("%w: keystore.cache_size must not be negative", ErrInvalidConfig)
	}

	switch c.Journal.Backend {
	case "", BackendNone, BackendMemory, BackendIAVL:
	default:
		return fmt.Errorf("%w: journal.backend %q", ErrInvalidConfig, c.Journal.Backend)
	}
	if c.Journal.CacheSize < 0 {
		return fmt.Errorf("%w: journal.cache_size must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (l LoggingConfig) level() (zerolog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "":
		return zerolog.InfoLevel, nil
	case "disabled", "off":
		return zerolog.Disabled, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(l.Level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("%w: logging.level %q", ErrInvalidConfig, l.Level)
	}
	return lvl, nil
}

// NewLogger builds a logger writing to w.
func (l LoggingConfig) NewLogger(w io.Writer) (log.Logger, error) {
	lvl, err := l.level()
	if err != nil {
		return nil, err
	}
	if lvl == zerolog.Disabled {
		return log.NewNopLogger(), nil
	}
	if l.Format != FormatJSON {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.Kitchen}
	}
	zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return log.NewCustomLogger(zl), nil
}
