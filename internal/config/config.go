package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Chains   ChainsConfig   `yaml:"chains"`
	Resolver ResolverConfig `yaml:"resolver"`
	Relayer  RelayerConfig  `yaml:"relayer"`
	CORS     CORSConfig     `yaml:"cors"`
	Admin    AdminConfig    `yaml:"admin"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// NATSConfig optional event telemetry bus. Order discovery stays polling;
// NATS only mirrors audit events for operators.
type NATSConfig struct {
	URL           string `yaml:"url"`
	Timeout       int    `yaml:"timeout"`        // seconds
	ReconnectWait int    `yaml:"reconnect_wait"` // seconds
	MaxReconnects int    `yaml:"max_reconnects"`
	SubjectPrefix string `yaml:"subjectPrefix"` // default "swap.orders"
}

// ChainsConfig per-chain adapter configuration
type ChainsConfig struct {
	Networks map[string]NetworkConfig `yaml:"networks"` // keyed by chain name, e.g. "sepolia", "starknet"
}

// NetworkConfig configuration for one chain adapter instance
type NetworkConfig struct {
	Family             string `yaml:"family"` // "evm" or "starkgate"
	ChainID            int64  `yaml:"chainId"`
	RPCEndpoint        string `yaml:"rpcEndpoint"`
	FactoryContract    string `yaml:"factoryContract"`
	PrivateKey         string `yaml:"privateKey"` // hex, no 0x prefix (evm only)
	GasLimit           uint64 `yaml:"gasLimit"`
	ConfirmationBlocks uint64 `yaml:"confirmationBlocks"`

	// starkgate family: sidecar gateway carrying Cairo signing
	GatewayURL     string `yaml:"gatewayUrl"`
	GatewayTimeout int    `yaml:"gatewayTimeout"` // seconds
	AccountAddress string `yaml:"accountAddress"`

	Enabled bool `yaml:"enabled"`
}

// ResolverConfig resolver orchestrator configuration
type ResolverConfig struct {
	RelayerURL       string `yaml:"relayerUrl"`
	ResolverAddress  string `yaml:"resolverAddress"`
	PendingInterval  int    `yaml:"pendingInterval"`  // seconds, default 30
	RevealedInterval int    `yaml:"revealedInterval"` // seconds, default 30
	HTTPTimeout      int    `yaml:"httpTimeout"`      // seconds, default 30
}

// RelayerConfig order book service configuration
type RelayerConfig struct {
	EventLimit           int `yaml:"eventLimit"`           // events returned per order detail, default 10
	StallMonitorInterval int `yaml:"stallMonitorInterval"` // seconds, 0 disables
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
	MaxAge           int      `yaml:"maxAge"`
}

// AdminConfig operator surface access control
type AdminConfig struct {
	JWTSecret  string   `yaml:"jwtSecret"`
	AllowedIPs []string `yaml:"allowedIPs"`
}

var AppConfig *Config

// LoadConfig loads the configuration file, preferring config.local.yaml
// when present, then applies environment overrides.
func LoadConfig(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
			log.Printf("🔧 Using local configuration file: config.local.yaml")
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)
	applyEnvOverrides(&config)

	AppConfig = &config
	log.Printf("✅ Configuration loaded from %s", configPath)
	return nil
}

func applyDefaults(config *Config) {
	if config.Server.Port == 0 {
		config.Server.Port = 3000
	}
	if config.Resolver.PendingInterval <= 0 {
		config.Resolver.PendingInterval = 30
	}
	if config.Resolver.RevealedInterval <= 0 {
		config.Resolver.RevealedInterval = 30
	}
	if config.Resolver.HTTPTimeout <= 0 {
		config.Resolver.HTTPTimeout = 30
	}
	if config.Relayer.EventLimit <= 0 {
		config.Relayer.EventLimit = 10
	}
	if config.NATS.SubjectPrefix == "" {
		config.NATS.SubjectPrefix = "swap.orders"
	}
}

func applyEnvOverrides(config *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		config.Database.DSN = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		} else {
			log.Printf("⚠️ Invalid SERVER_PORT %q, keeping %d", v, config.Server.Port)
		}
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		config.NATS.URL = v
	}
	if v := os.Getenv("RELAYER_API_URL"); v != "" {
		config.Resolver.RelayerURL = v
	}
	if v := os.Getenv("RESOLVER_ADDRESS"); v != "" {
		config.Resolver.ResolverAddress = v
	}
	if v := os.Getenv("ADMIN_JWT_SECRET"); v != "" {
		config.Admin.JWTSecret = v
	}
}

// Network returns the configuration for a chain by name.
func (c *Config) Network(name string) (*NetworkConfig, error) {
	network, ok := c.Chains.Networks[name]
	if !ok {
		return nil, fmt.Errorf("chain %q is not configured", name)
	}
	if !network.Enabled {
		return nil, fmt.Errorf("chain %q is disabled", name)
	}
	return &network, nil
}
