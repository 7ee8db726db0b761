package config

import (
	"errors"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr           string   `yaml:"addr" env:"SERVER_ADDR"`
		AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
	} `yaml:"server"`
	DB struct {
		Driver      string `yaml:"driver" env:"DB_DRIVER"`
		DSN         string `yaml:"dsn" env:"DB_DSN"`
		AutoMigrate bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE"`
	} `yaml:"db"`
	Log struct {
		Level    string `yaml:"level" env:"LOG_LEVEL"`
		Format   string `yaml:"format" env:"LOG_FORMAT"`
		File     string `yaml:"file" env:"LOG_FILE"`
		MaxKB    int64  `yaml:"max_kb"`
		MaxRolls int    `yaml:"max_rolls"`
	} `yaml:"log"`
	Auth struct {
		VerifyURL       string            `yaml:"verify_url" env:"AUTH_VERIFY_URL"`
		AppID           string            `yaml:"app_id" env:"AUTH_APP_ID"`
		AppSecret       string            `yaml:"app_secret" env:"AUTH_APP_SECRET"`
		TimeoutSeconds  int               `yaml:"timeout_seconds"`
		CacheSize       int               `yaml:"cache_size"`
		CacheTTLSeconds int               `yaml:"cache_ttl_seconds"`
		StaticTokens    map[string]string `yaml:"static_tokens"`
	} `yaml:"auth"`
	Pricing struct {
		ProtocolFeeRate float64 `yaml:"protocol_fee_rate" env:"PROTOCOL_FEE_RATE"`
	} `yaml:"pricing"`
	Orders struct {
		DefaultChainID  int64  `yaml:"default_chain_id" env:"DEFAULT_CHAIN_ID"`
		DefaultCurrency string `yaml:"default_currency"`
		TTLMinutes      int    `yaml:"ttl_minutes" env:"ORDER_TTL_MINUTES"`
	} `yaml:"orders"`
	Chains struct {
		SlowThresholdMs int            `yaml:"slow_threshold_ms"`
		Networks        []ChainNetwork `yaml:"networks"`
	} `yaml:"chains"`
	Proxy struct {
		BaseURL        string `yaml:"base_url" env:"ZKP2P_API_URL"`
		APIKey         string `yaml:"api_key" env:"ZKP2P_API_KEY"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"proxy"`
	Kafka struct {
		Brokers    []string `yaml:"brokers" env:"KAFKA_BROKERS"`
		OrderTopic string   `yaml:"order_topic" env:"KAFKA_ORDER_TOPIC"`
	} `yaml:"kafka"`
	ZKTLS struct {
		Installed           bool   `yaml:"installed" env:"ZKTLS_INSTALLED"`
		Seed                string `yaml:"seed" env:"ZKTLS_SEED"`
		ConnectDelayMs      int    `yaml:"connect_delay_ms"`
		AuthenticateDelayMs int    `yaml:"authenticate_delay_ms"`
		MetadataDelayMs     int    `yaml:"metadata_delay_ms"`
		ProofDelayMs        int    `yaml:"proof_delay_ms"`
		MaxUsers            int    `yaml:"max_users"`
	} `yaml:"zktls"`
	Proofs struct {
		S3 struct {
			Bucket          string `yaml:"bucket" env:"PROOFS_S3_BUCKET"`
			Prefix          string `yaml:"prefix"`
			Region          string `yaml:"region" env:"PROOFS_S3_REGION"`
			Endpoint        string `yaml:"endpoint" env:"PROOFS_S3_ENDPOINT"`
			AccessKeyID     string `yaml:"access_key_id" env:"PROOFS_S3_ACCESS_KEY_ID"`
			SecretAccessKey string `yaml:"secret_access_key" env:"PROOFS_S3_SECRET_ACCESS_KEY"`
		} `yaml:"s3"`
	} `yaml:"proofs"`
	Worker struct {
		SweepIntervalSeconds  int    `yaml:"sweep_interval_seconds"`
		HealthIntervalSeconds int    `yaml:"health_interval_seconds"`
		MetricsAddr           string `yaml:"metrics_addr" env:"WORKER_METRICS_ADDR"`
	} `yaml:"worker"`
	Dev struct {
		SeedDeposits bool `yaml:"seed_deposits" env:"DEV_SEED_DEPOSITS"`
	} `yaml:"dev"`
}

type ChainNetwork struct {
	ChainID      int64    `yaml:"chain_id"`
	Name         string   `yaml:"name"`
	RPCEndpoints []string `yaml:"rpc_endpoints"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and defaults, then validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	// set before decoding so an explicit zero in the file survives
	cfg.Pricing.ProtocolFeeRate = 0.001
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if cfg.Server.Addr == "" {
		return nil, errors.New("server.addr is required")
	}
	switch cfg.DB.Driver {
	case DriverPostgres:
		if cfg.DB.DSN == "" {
			return nil, errors.New("db.dsn is required")
		}
	case DriverMemory:
	default:
		return nil, errors.New("db.driver must be postgres or memory")
	}
	if cfg.Pricing.ProtocolFeeRate < 0 || cfg.Pricing.ProtocolFeeRate >= 1 {
		return nil, errors.New("pricing.protocol_fee_rate must be in [0,1)")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = DriverPostgres
	}
	cfg.DB.Driver = strings.ToLower(cfg.DB.Driver)
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.MaxKB <= 0 {
		cfg.Log.MaxKB = 10 * 1024
	}
	if cfg.Log.MaxRolls <= 0 {
		cfg.Log.MaxRolls = 3
	}
	if cfg.Auth.TimeoutSeconds <= 0 {
		cfg.Auth.TimeoutSeconds = 10
	}
	if cfg.Auth.CacheSize <= 0 {
		cfg.Auth.CacheSize = 1024
	}
	if cfg.Auth.CacheTTLSeconds <= 0 {
		cfg.Auth.CacheTTLSeconds = 60
	}
	if cfg.Orders.DefaultChainID == 0 {
		cfg.Orders.DefaultChainID = 8453
	}
	if cfg.Orders.DefaultCurrency == "" {
		cfg.Orders.DefaultCurrency = "USD"
	}
	if cfg.Chains.SlowThresholdMs <= 0 {
		cfg.Chains.SlowThresholdMs = 1500
	}
	if cfg.Proxy.BaseURL == "" {
		cfg.Proxy.BaseURL = "https://api.zkp2p.xyz"
	}
	if cfg.Proxy.TimeoutSeconds <= 0 {
		cfg.Proxy.TimeoutSeconds = 30
	}
	if cfg.Kafka.OrderTopic == "" {
		cfg.Kafka.OrderTopic = "order-events"
	}
	if cfg.ZKTLS.MaxUsers <= 0 {
		cfg.ZKTLS.MaxUsers = 10000
	}
	if cfg.Proofs.S3.Prefix == "" {
		cfg.Proofs.S3.Prefix = "proofs"
	}
	if cfg.Proofs.S3.Region == "" {
		cfg.Proofs.S3.Region = "auto"
	}
	if cfg.Worker.SweepIntervalSeconds <= 0 {
		cfg.Worker.SweepIntervalSeconds = 60
	}
	if cfg.Worker.HealthIntervalSeconds <= 0 {
		cfg.Worker.HealthIntervalSeconds = 30
	}
}
