package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App App `mapstructure:"app"`

	Server Server `mapstructure:"server"`

	// Redis backs the key-value slot the link set persists into.
	Redis Redis `mapstructure:"redis"`

	// NATS carries the click-event stream.
	NATS NATS `mapstructure:"nats"`

	Prometheus Prometheus `mapstructure:"prometheus"`
}

type App struct {
	// BaseDomain is embedded into every short URL shown to users.
	BaseDomain string `mapstructure:"base_domain"`
	// CreateDelayMS is the cosmetic pause before create completes; 0
	// disables it.
	CreateDelayMS int `mapstructure:"create_delay_ms"`
	// InterstitialSeconds > 0 serves a countdown page on resolution
	// instead of an immediate redirect.
	InterstitialSeconds int `mapstructure:"interstitial_seconds"`
}

type Server struct {
	Port int `mapstructure:"port"`
}

type Redis struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATS struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type Prometheus struct {
	Port int `mapstructure:"port"`
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("app.base_domain", "evanlinks.com")
	v.SetDefault("app.create_delay_ms", 0)
	v.SetDefault("app.interstitial_seconds", 0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("redis.port", 6379)
	v.SetDefault("nats.port", 4222)
	v.SetDefault("prometheus.port", 9090)

	// Allow environment variables to override YAML entries.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.base_domain", "BASE_DOMAIN")
	v.BindEnv("server.port", "PORT")

	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")

	v.BindEnv("prometheus.port", "PROM_PORT")
}
