package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Session slot backends
const (
	SessionBackendFile   = "file"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	APIURL         string        `mapstructure:"api_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	Session SessionConfig `mapstructure:"session"`

	RedisURL string `mapstructure:"redis_url"`
	DataDir  string `mapstructure:"data_dir"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // json or console

	// Stub API
	Port      string        `mapstructure:"port"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTTTL    time.Duration `mapstructure:"jwt_ttl"`
	SeedDemo  bool          `mapstructure:"seed_demo"`

	// ReconcileInterval enables the stub API reconcile worker when positive
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`

	// ConfigFile is the config file that was read, if any
	ConfigFile string `mapstructure:"-"`
}

type SessionConfig struct {
	Backend   string `mapstructure:"backend"`
	Namespace string `mapstructure:"namespace"`
}

// App holds the global config instance
var App Config

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) error {
	// Auto-load .env file if present; a missing file is fine
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("request_timeout", "15s")
	v.SetDefault("session.backend", SessionBackendFile)
	v.SetDefault("session.namespace", "rentdesk")
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")
	v.SetDefault("port", "8080")
	v.SetDefault("jwt_ttl", "12h")
	v.SetDefault("seed_demo", true)
	v.SetDefault("reconcile_interval", "0s")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".rentdesk"))
		}
		v.SetConfigName("rentdesk")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("rentdesk")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = v.BindEnv("api_url", "RENTDESK_API_URL")
	_ = v.BindEnv("request_timeout", "RENTDESK_REQUEST_TIMEOUT")
	_ = v.BindEnv("session.backend", "RENTDESK_SESSION_BACKEND")
	_ = v.BindEnv("session.namespace", "RENTDESK_SESSION_NAMESPACE")
	_ = v.BindEnv("data_dir", "RENTDESK_DATA_DIR")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("log_level", "RENTDESK_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log_format", "RENTDESK_LOG_FORMAT", "LOG_FORMAT")
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("jwt_secret", "RENTDESK_JWT_SECRET")
	_ = v.BindEnv("jwt_ttl", "RENTDESK_JWT_TTL")
	_ = v.BindEnv("seed_demo", "RENTDESK_SEED_DEMO")
	_ = v.BindEnv("reconcile_interval", "RENTDESK_RECONCILE_INTERVAL")

	v.AutomaticEnv()

	// 1. Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 2. Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	// 3. Validate
	if err := cfg.Validate(); err != nil {
		return err
	}

	App = cfg
	return nil
}

// Validate rejects settings the components cannot start with
func (c Config) Validate() error {
	switch c.Session.Backend {
	case SessionBackendFile, SessionBackendMemory:
	case SessionBackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("session backend %q requires REDIS_URL", c.Session.Backend)
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	return nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "rentdesk")
	}
	return "./data"
}
