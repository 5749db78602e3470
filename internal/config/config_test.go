package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                      "production",
		DBSSLMode:                "require",
		JWTSecret:                "secure-secret-at-least-32-chars-long",
		DBPassword:               "secure-password",
		Port:                     "8080",
		ImageMaxUploadSizeMB:     10,
		DBConnMaxLifetimeMinutes: 1,
		RedisURL:                 "redis://localhost:6379",
		TracingSampleRatio:       1,
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with disable SSL mode", "prod", "disable", true},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateProductionSecrets(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"default secret", func(c *Config) { c.JWTSecret = defaultJWTSecret }},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }},
		{"default db password", func(c *Config) { c.DBPassword = "password" }},
		{"missing redis", func(c *Config) { c.RedisURL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestConfig_ValidateGoogleTriplet(t *testing.T) {
	c := validConfig()
	c.Env = "development"
	c.GoogleClientID = "client"
	assert.Error(t, c.Validate())

	c.GoogleClientSecret = "secret"
	c.GoogleRedirectURL = "http://localhost:8080/api/auth/google/callback"
	assert.NoError(t, c.Validate())
	assert.True(t, c.GoogleOAuthEnabled())
}

func TestConfig_SessionTTL(t *testing.T) {
	c := &Config{}
	assert.Equal(t, 7*24*time.Hour, c.SessionTTL())

	c.SessionTTLHours = 2
	assert.Equal(t, 2*time.Hour, c.SessionTTL())
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", " Development ")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("FRONTEND_URL", "http://localhost:3000/")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "development", c.Env)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "http://localhost:3000", c.FrontendURL)
	assert.Equal(t, "gb_session", c.SessionCookieName)
	assert.Equal(t, "ai_assist=on", c.FeatureFlags)
}
