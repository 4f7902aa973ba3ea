package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// JWTConfig holds the signing material for access tokens.
type JWTConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
}

// PasswordConfig selects the hashing algorithm for new password hashes.
type PasswordConfig struct {
	Algorithm  string `mapstructure:"algorithm"`
	BcryptCost int    `mapstructure:"bcrypt_cost"`
	Argon2     struct {
		Memory      uint32 `mapstructure:"memory"`
		Time        uint32 `mapstructure:"time"`
		Parallelism uint8  `mapstructure:"parallelism"`
	} `mapstructure:"argon2"`
}

type Config struct {
	Database struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"database"`
	Redis struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Server struct {
		Port            string        `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	JWT        JWTConfig      `mapstructure:"jwt"`
	Password   PasswordConfig `mapstructure:"password"`
	TokenStore struct {
		Driver string `mapstructure:"driver"`
	} `mapstructure:"token_store"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

const (
	TokenStorePostgres = "postgres"
	TokenStoreRedis    = "redis"
)

// ConfigurationError reports a required setting that is missing or invalid.
// It is only ever produced at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration error: %s is required", e.Field)
	}
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

var AppConfig Config

// Load reads config.yml from path, applies defaults and environment overrides
// (DATABASE_HOST, JWT_SECRET_KEY, ...) and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig loads the configuration into AppConfig.
func LoadConfig(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	AppConfig = *cfg
	return nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	if err := c.JWT.Validate(); err != nil {
		return err
	}
	switch c.TokenStore.Driver {
	case TokenStorePostgres, TokenStoreRedis:
	default:
		return &ConfigurationError{Field: "token_store.driver", Reason: "must be postgres or redis"}
	}
	switch c.Password.Algorithm {
	case "bcrypt", "argon2id":
	default:
		return &ConfigurationError{Field: "password.algorithm", Reason: "must be bcrypt or argon2id"}
	}
	return nil
}

// Validate reports the first missing JWT setting.
func (j JWTConfig) Validate() error {
	switch {
	case strings.TrimSpace(j.SecretKey) == "":
		return &ConfigurationError{Field: "jwt.secret_key"}
	case strings.TrimSpace(j.Issuer) == "":
		return &ConfigurationError{Field: "jwt.issuer"}
	case strings.TrimSpace(j.Audience) == "":
		return &ConfigurationError{Field: "jwt.audience"}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("password.algorithm", "argon2id")
	v.SetDefault("password.bcrypt_cost", 12)
	v.SetDefault("password.argon2.memory", 64*1024)
	v.SetDefault("password.argon2.time", 3)
	v.SetDefault("password.argon2.parallelism", 2)

	v.SetDefault("token_store.driver", TokenStorePostgres)
	v.SetDefault("log.level", "info")

	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.audience", "")
}
