package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"STORAGE_DRIVER", "IDENTITY_CACHE_TTL", "RABBITMQ_ENROLLMENT_QUEUE", "ELASTICSEARCH_ADDRS", "EVENTS_ENABLED"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, 5*time.Minute, cfg.IdentityCacheTTL)
	assert.Equal(t, "enrollment_events", cfg.RabbitMQEnrollmentQueue)
	assert.True(t, cfg.EventsEnabled)
	assert.Empty(t, cfg.ESAddrs())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("IDENTITY_CACHE_TTL", "30s")
	t.Setenv("EVENTS_ENABLED", "false")
	t.Setenv("DB_MAX_CONNS", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 30*time.Second, cfg.IdentityCacheTTL)
	assert.False(t, cfg.EventsEnabled)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins())
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "5432", DBName: "courses", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/courses?sslmode=disable", cfg.PostgresDSN())
}

func TestValidate_JWTSecret(t *testing.T) {
	cases := []struct {
		name   string
		env    string
		secret string
		ok     bool
	}{
		{"development default", "development", DefaultJWTAccessSecret, true},
		{"production default", "production", DefaultJWTAccessSecret, false},
		{"staging empty", "staging", "", false},
		{"production custom", "production", "s3cr3t-from-vault", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Env: tc.env, JWTAccessSecret: tc.secret}
			if tc.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.ErrorIs(t, cfg.Validate(), ErrInsecureJWTSecret)
			}
		})
	}
}

func TestLoad_DefaultSecretFailsOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_ACCESS_SECRET", "")

	assert.ErrorIs(t, Load().Validate(), ErrInsecureJWTSecret)
}
