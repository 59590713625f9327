package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	KV        KVConfig        `mapstructure:"kv"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Admin     AdminConfig     `mapstructure:"admin"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// KVConfig selects and configures the key-value backend.
type KVConfig struct {
	Driver   string         `mapstructure:"driver"` // memory, sqlite, redis, postgres
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type SQLiteConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type PostgresConfig struct {
	URL   string `mapstructure:"url"`
	Table string `mapstructure:"table"`
}

type DispatchConfig struct {
	Mode              string        `mapstructure:"mode"` // background, sync
	BackgroundTimeout time.Duration `mapstructure:"background_timeout"`
	FlushTimeout      time.Duration `mapstructure:"flush_timeout"`
}

type ProvidersConfig struct {
	HTTPTimeout         time.Duration `mapstructure:"http_timeout"`
	SubscriberCacheSize int           `mapstructure:"subscriber_cache_size"`
	SubscriberCacheTTL  time.Duration `mapstructure:"subscriber_cache_ttl"`
}

type AdminConfig struct {
	PasswordHash   string        `mapstructure:"password_hash"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`

	// LoginAttemptsPerMinute limits POST /api/v1/admin/login per client IP.
	LoginAttemptsPerMinute int `mapstructure:"login_attempts_per_minute"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 20*time.Second)
	v.SetDefault("server.max_body_bytes", 256*1024)

	v.SetDefault("kv.driver", "sqlite")
	v.SetDefault("kv.sqlite.path", "data/passrelay.db")
	v.SetDefault("kv.sqlite.max_connections", 1)
	v.SetDefault("kv.redis.addr", "localhost:6379")
	v.SetDefault("kv.redis.key_prefix", "passrelay:")
	v.SetDefault("kv.postgres.table", "kv_store")

	v.SetDefault("dispatch.mode", "background")
	v.SetDefault("dispatch.background_timeout", 30*time.Second)
	v.SetDefault("dispatch.flush_timeout", 10*time.Second)

	v.SetDefault("providers.http_timeout", 30*time.Second)
	v.SetDefault("providers.subscriber_cache_size", 1024)
	v.SetDefault("providers.subscriber_cache_ttl", 10*time.Minute)

	v.SetDefault("admin.access_token_ttl", 12*time.Hour)
	v.SetDefault("admin.login_attempts_per_minute", 10)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization"})
	v.SetDefault("cors.max_age", 86400)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Load reads the YAML file at path (optional) and overlays environment
// variables such as SERVER_PORT or KV_DRIVER.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	switch c.Dispatch.Mode {
	case "background", "sync":
	default:
		return fmt.Errorf("dispatch.mode must be background or sync, got %q", c.Dispatch.Mode)
	}
	return nil
}

// Background reports whether inbound events are acknowledged before dispatch.
func (c DispatchConfig) Background() bool {
	return c.Mode == "background"
}
