// Package config loads the application configuration from YAML files and
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// JWTConfig represents token signing configuration
type JWTConfig struct {
	Secret string        `mapstructure:"secret" validate:"required,min=32"`
	Issuer string        `mapstructure:"issuer" validate:"required"`
	Expiry time.Duration `mapstructure:"expiry" validate:"gt=0"`
}

// CoinGeckoConfig represents the upstream market-data API configuration
type CoinGeckoConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout" validate:"gt=0"`
	// Currencies lists the vs_currency codes requested from the markets
	// endpoint. The first entry is the base currency; every further entry
	// is fetched separately and merged in by coin id.
	Currencies []string `mapstructure:"currencies" validate:"min=1,dive,required"`
}

// APIConfig represents pagination defaults for the served endpoints
type APIConfig struct {
	DefaultPerPage int `mapstructure:"default_per_page" validate:"gte=1,lte=250"`
	MaxPerPage     int `mapstructure:"max_per_page" validate:"gte=1,lte=250"`
}

// SeedUserConfig represents the fixed in-memory credential set
type SeedUserConfig struct {
	Username string `mapstructure:"username" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
}

// Config represents the application configuration
type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	Server    ServerConfig    `mapstructure:"server"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	CoinGecko CoinGeckoConfig `mapstructure:"coingecko"`
	API       APIConfig       `mapstructure:"api"`
	SeedUser  SeedUserConfig  `mapstructure:"seed_user"`
}

// Load reads configuration from ./config.yaml (optional) and COINMARKET_*
// environment variables, applies defaults and validates the result.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	v.SetEnvPrefix("COINMARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No file is fine: defaults plus environment variables apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("jwt.secret", "dev-secret-key-change-in-production-min-32-chars-long")
	v.SetDefault("jwt.issuer", "coinmarket-api")
	v.SetDefault("jwt.expiry", 30*time.Minute)

	v.SetDefault("coingecko.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("coingecko.request_timeout", 30*time.Second)
	v.SetDefault("coingecko.probe_timeout", 5*time.Second)
	v.SetDefault("coingecko.currencies", []string{"inr", "cad"})

	v.SetDefault("api.default_per_page", 10)
	v.SetDefault("api.max_per_page", 250)

	v.SetDefault("seed_user.username", "testuser")
	v.SetDefault("seed_user.password", "testpass")
}
