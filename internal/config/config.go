// Package config loads service configuration from an optional YAML file and
// SUIAGENT_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultPath is read when Load is given an empty path.
const DefaultPath = "config.yaml"

const envPrefix = "SUIAGENT_"

// ErrMissingSecret is returned when the seal salt or secret is not set.
// The service must not start without them.
var ErrMissingSecret = errors.New("config: seal.secret and seal.salt are required")

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	OpenAI    OpenAIConfig    `koanf:"openai"`
	Sui       SuiConfig       `koanf:"sui"`
	Seal      SealConfig      `koanf:"seal"`
	Blob      BlobConfig      `koanf:"blob"`
	Storage   StorageConfig   `koanf:"storage"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port           int            `koanf:"port"`
	RequestTimeout time.Duration  `koanf:"request_timeout"`
	APIKeys        []APIKeyConfig `koanf:"api_keys"` // Empty disables authentication
	// DenyPrivateEgress stops outbound calls from reaching internal addresses.
	DenyPrivateEgress bool `koanf:"deny_private_egress"`
}

type APIKeyConfig struct {
	KeyHash     string `koanf:"key_hash"` // hex sha256 of the key
	Description string `koanf:"description"`
}

type OpenAIConfig struct {
	APIKey           string        `koanf:"api_key"`
	BaseURL          string        `koanf:"base_url"`
	Model            string        `koanf:"model"`
	Timeout          time.Duration `koanf:"timeout"`
	MaxMessageTokens int           `koanf:"max_message_tokens"` // 0 disables the guard
}

type SuiConfig struct {
	RPCURL       string `koanf:"rpc_url"`
	Network      string `koanf:"network"`
	USDCCoinType string `koanf:"usdc_coin_type"`
	GasUnits     uint64 `koanf:"gas_units"`
	GasBudget    uint64 `koanf:"gas_budget"`
	// AddressBookTarget is the Move call that creates an on-chain address book.
	AddressBookTarget string `koanf:"address_book_target"`
}

// SealConfig is the process-wide key derivation material. It is read once
// and never changes while the process runs.
type SealConfig struct {
	Secret       string `koanf:"secret"`
	Salt         string `koanf:"salt"`
	Iterations   int    `koanf:"iterations"`
	RequireProof bool   `koanf:"require_proof"`
}

type BlobConfig struct {
	Backend string       `koanf:"backend"` // memory, walrus, s3
	Walrus  WalrusConfig `koanf:"walrus"`
	S3      S3Config     `koanf:"s3"`
}

type WalrusConfig struct {
	PublisherURL  string `koanf:"publisher_url"`
	AggregatorURL string `koanf:"aggregator_url"`
	Epochs        int    `koanf:"epochs"`
}

type S3Config struct {
	Bucket   string `koanf:"bucket"`
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"`
	Prefix   string `koanf:"prefix"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // memory, sqlite
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type TelemetryConfig struct {
	Enabled     bool `koanf:"enabled"`
	PrettyPrint bool `koanf:"pretty_print"`
}

var defaults = map[string]any{
	"server.port":                8080,
	"server.request_timeout":     "60s",
	"openai.model":               "gpt-4o-mini",
	"openai.timeout":             "30s",
	"openai.max_message_tokens":  4096,
	"sui.rpc_url":                "https://fullnode.testnet.sui.io:443",
	"sui.network":                "testnet",
	"seal.iterations":            100_000,
	"seal.require_proof":         true,
	"blob.backend":               "memory",
	"blob.walrus.publisher_url":  "https://publisher.walrus-testnet.walrus.space",
	"blob.walrus.aggregator_url": "https://aggregator.walrus-testnet.walrus.space",
	"blob.walrus.epochs":         5,
	"storage.type":               "memory",
	"storage.sqlite.path":        "sui-agent.db",
	"telemetry.enabled":          true,
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path (DefaultPath when empty) if it exists, overlays the
// environment, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// A missing file is fine; everything can come from the environment.
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	// Environment overrides the file. SUIAGENT_SEAL__SECRET -> seal.secret
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	for key, v := range defaults {
		if !k.Exists(key) {
			k.Set(key, v)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.OpenAI.APIKey = substituteEnvVars(cfg.OpenAI.APIKey)
	cfg.Seal.Secret = substituteEnvVars(cfg.Seal.Secret)
	cfg.Seal.Salt = substituteEnvVars(cfg.Seal.Salt)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Seal.Secret == "" || c.Seal.Salt == "" {
		return ErrMissingSecret
	}
	switch c.Blob.Backend {
	case "memory":
	case "walrus":
		if c.Blob.Walrus.PublisherURL == "" || c.Blob.Walrus.AggregatorURL == "" {
			return errors.New("config: walrus publisher_url and aggregator_url are required")
		}
	case "s3":
		if c.Blob.S3.Bucket == "" {
			return errors.New("config: blob.s3.bucket is required")
		}
	default:
		return fmt.Errorf("config: unknown blob backend %q", c.Blob.Backend)
	}
	switch c.Storage.Type {
	case "memory":
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return errors.New("config: storage.sqlite.path is required")
		}
	default:
		return fmt.Errorf("config: unknown storage type %q", c.Storage.Type)
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
