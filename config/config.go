package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// Server
	ServerPort string `yaml:"server_port"`
	LogLevel   string `yaml:"log_level"`

	// Chain
	RPCEndpoint     string `yaml:"rpc_endpoint"`
	PrivateKey      string `yaml:"private_key"`
	ContractAddress string `yaml:"contract_address"`

	// Generation model
	OpenAIKey   string `yaml:"openai_key"`
	OpenAIModel string `yaml:"openai_model"`

	// Durable storage
	ArweaveWalletPath string `yaml:"arweave_wallet_path"`
	ArweaveGateway    string `yaml:"arweave_gateway"`

	// History ledger
	HistoryDriver string `yaml:"history_driver"` // "file" or "postgres"
	HistoryFile   string `yaml:"history_file"`
	HistoryDSN    string `yaml:"history_dsn"`

	// Marketplace
	MarketplaceProbeLimit uint64 `yaml:"marketplace_probe_limit"`
}

// Load layers configuration: defaults, then the optional YAML file named by
// CONFIG_FILE, then environment variables. A .env file is read first if
// present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:            "8080",
		LogLevel:              "info",
		OpenAIModel:           "",
		ArweaveGateway:        "https://arweave.net",
		HistoryDriver:         "file",
		HistoryFile:           "data/history.jsonl",
		MarketplaceProbeLimit: 256,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, xerrors.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, xerrors.Errorf("parse config file %s: %w", path, err)
		}
	}

	overrideString(&cfg.ServerPort, "SERVER_PORT")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")
	overrideString(&cfg.RPCEndpoint, "RPC_ENDPOINT")
	overrideString(&cfg.PrivateKey, "PRIVATE_KEY")
	overrideString(&cfg.ContractAddress, "CONTRACT_ADDRESS")
	overrideString(&cfg.OpenAIKey, "OPENAI_API_KEY")
	overrideString(&cfg.OpenAIModel, "OPENAI_MODEL")
	overrideString(&cfg.ArweaveWalletPath, "ARWEAVE_WALLET_PATH")
	overrideString(&cfg.ArweaveGateway, "ARWEAVE_GATEWAY")
	overrideString(&cfg.HistoryDriver, "HISTORY_DRIVER")
	overrideString(&cfg.HistoryFile, "HISTORY_FILE")
	overrideString(&cfg.HistoryDSN, "HISTORY_DSN")
	overrideUint(&cfg.MarketplaceProbeLimit, "MARKETPLACE_PROBE_LIMIT")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.RPCEndpoint == "" {
		missing = append(missing, "RPC_ENDPOINT")
	}
	if c.PrivateKey == "" {
		missing = append(missing, "PRIVATE_KEY")
	}
	if c.ContractAddress == "" {
		missing = append(missing, "CONTRACT_ADDRESS")
	}
	if c.OpenAIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.ArweaveWalletPath == "" {
		missing = append(missing, "ARWEAVE_WALLET_PATH")
	}
	if len(missing) > 0 {
		return xerrors.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.HistoryDriver == "postgres" && c.HistoryDSN == "" {
		return xerrors.New("HISTORY_DSN is required when HISTORY_DRIVER=postgres")
	}
	if c.HistoryDriver != "file" && c.HistoryDriver != "postgres" {
		return xerrors.Errorf("unknown history driver %q", c.HistoryDriver)
	}
	return nil
}

func overrideString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func overrideUint(target *uint64, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseUint(value, 10, 64); err == nil {
			*target = parsed
		}
	}
}
