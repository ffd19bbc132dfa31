package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Mongo  MongoConfig  `mapstructure:"mongo"`
	Redis  RedisConfig  `mapstructure:"redis"`
	JWT    JWTConfig    `mapstructure:"jwt"`
	PayPal PayPalConfig `mapstructure:"paypal"`
	Refund RefundConfig `mapstructure:"refund"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	FailuresTTL    time.Duration `mapstructure:"failures_ttl"` // webhook failure record retention
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig describes the tokens minted by the external identity provider.
// The engine only validates them; issuance lives outside this module.
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type PayPalConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	ClientID  string        `mapstructure:"client_id"`
	Secret    string        `mapstructure:"secret"`
	WebhookID string        `mapstructure:"webhook_id"` // webhook config id used by signature verification
	Timeout   time.Duration `mapstructure:"timeout"`
	RateRPS   float64       `mapstructure:"rate_rps"` // outbound call budget
	RateBurst int           `mapstructure:"rate_burst"`
}

type RefundConfig struct {
	ReaperInterval time.Duration `mapstructure:"reaper_interval"`
	StaleAfter     time.Duration `mapstructure:"stale_after"` // RESERVING older than this is reaped
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // trace, debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CP_ (Church Payments).
// Nested keys use underscore: CP_MONGO_URI, CP_PAYPAL_CLIENT_ID, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "church_payments")
	v.SetDefault("mongo.connect_timeout", "10s")
	v.SetDefault("mongo.failures_ttl", "720h")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "church-identity")
	v.SetDefault("paypal.base_url", "https://api-m.sandbox.paypal.com")
	v.SetDefault("paypal.client_id", "")
	v.SetDefault("paypal.secret", "")
	v.SetDefault("paypal.webhook_id", "")
	v.SetDefault("paypal.timeout", "15s")
	v.SetDefault("paypal.rate_rps", 5.0)
	v.SetDefault("paypal.rate_burst", 10)
	v.SetDefault("refund.reaper_interval", "1m")
	v.SetDefault("refund.stale_after", "10m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CP_MONGO_URI -> mongo.uri
	v.SetEnvPrefix("CP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
