package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: "9090"
  shutdown_timeout: 3s
database:
  host: db
  user: cocity
  password: secret
  name: cocity
jwt:
  secret_key: a-very-long-signing-secret-value
  issuer: cocity-api
  audience: cocity-clients
token_store:
  driver: redis
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o600))
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeConfig(t, sampleConfig)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "cocity-api", cfg.JWT.Issuer)
	assert.Equal(t, TokenStoreRedis, cfg.TokenStore.Driver)
	assert.Equal(t, "argon2id", cfg.Password.Algorithm)
	assert.Equal(t, 12, cfg.Password.BcryptCost)
	assert.Equal(t, uint32(64*1024), cfg.Password.Argon2.Memory)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := writeConfig(t, sampleConfig)
	t.Setenv("JWT_ISSUER", "from-env")
	t.Setenv("DATABASE_HOST", "env-db")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Issuer)
	assert.Equal(t, "env-db", cfg.Database.Host)
}

func TestLoad_MissingJWTSettings(t *testing.T) {
	dir := writeConfig(t, `
jwt:
  issuer: cocity-api
  audience: cocity-clients
`)

	_, err := Load(dir)
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "jwt.secret_key", cfgErr.Field)
}

func TestJWTConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   JWTConfig
		field string
	}{
		{"complete", JWTConfig{SecretKey: "k", Issuer: "i", Audience: "a"}, ""},
		{"no secret", JWTConfig{Issuer: "i", Audience: "a"}, "jwt.secret_key"},
		{"blank issuer", JWTConfig{SecretKey: "k", Issuer: "  ", Audience: "a"}, "jwt.issuer"},
		{"no audience", JWTConfig{SecretKey: "k", Issuer: "i"}, "jwt.audience"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConfig_ValidateDriver(t *testing.T) {
	cfg := Config{JWT: JWTConfig{SecretKey: "k", Issuer: "i", Audience: "a"}}
	cfg.Password.Algorithm = "bcrypt"
	cfg.TokenStore.Driver = "memcached"

	err := cfg.Validate()
	assert.EqualError(t, err, "configuration error: token_store.driver must be postgres or redis")
}
