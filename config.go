package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config application settings. Values come from defaults, then an optional
// config file, then PG_* environment variables (a .env file is loaded first).
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Billing   BillingConfig   `mapstructure:"billing"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Redis     RedisConfig     `mapstructure:"redis"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Uploads   UploadsConfig   `mapstructure:"uploads"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port        string   `mapstructure:"port"`
	Mode        string   `mapstructure:"mode"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	AdminUsername  string        `mapstructure:"admin_username"`
	AdminPassword  string        `mapstructure:"admin_password"`
	LoginPerMinute float64       `mapstructure:"login_per_minute"`
	LoginBurst     int           `mapstructure:"login_burst"`
}

type BillingConfig struct {
	DefaultRent       float64 `mapstructure:"default_rent"`
	NotifyConcurrency int     `mapstructure:"notify_concurrency"`
	Timezone          string  `mapstructure:"timezone"`
}

type PaymentConfig struct {
	KeyID     string `mapstructure:"key_id"`
	KeySecret string `mapstructure:"key_secret"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SMTPConfig struct {
	Host      string  `mapstructure:"host"`
	Port      int     `mapstructure:"port"`
	Username  string  `mapstructure:"username"`
	Password  string  `mapstructure:"password"`
	From      string  `mapstructure:"from"`
	PerSecond float64 `mapstructure:"per_second"`
}

type UploadsConfig struct {
	Dir      string `mapstructure:"dir"`
	BaseURL  string `mapstructure:"base_url"`
	MaxBytes int64  `mapstructure:"max_bytes"`
}

type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8099")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./pg.db")

	v.SetDefault("auth.jwt_secret", "pg-hostel-dev-secret")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.admin_username", "admin")
	v.SetDefault("auth.admin_password", "admin123")
	v.SetDefault("auth.login_per_minute", 10)
	v.SetDefault("auth.login_burst", 5)

	v.SetDefault("billing.default_rent", 1500)
	v.SetDefault("billing.notify_concurrency", 4)
	v.SetDefault("billing.timezone", "Asia/Kolkata")

	v.SetDefault("payment.key_id", "")
	v.SetDefault("payment.key_secret", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.per_second", 2)

	v.SetDefault("uploads.dir", "./uploads")
	v.SetDefault("uploads.base_url", "/uploads")
	v.SetDefault("uploads.max_bytes", 5<<20)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
}

// LoadConfig reads configuration. configPath may be empty, in which case
// ./config.yaml is used when present.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks values that have no usable fallback.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Billing.DefaultRent <= 0 {
		return errors.New("billing.default_rent must be positive")
	}
	if (c.Payment.KeyID == "") != (c.Payment.KeySecret == "") {
		return errors.New("payment.key_id and payment.key_secret must be set together")
	}
	if _, err := time.LoadLocation(c.Billing.Timezone); err != nil {
		return fmt.Errorf("billing.timezone: %w", err)
	}
	return nil
}

// Location returns the billing time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Billing.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
