package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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
		{"Prod with empty SSL mode", "prod", "", true},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Env:                      tt.env,
				DBSSLMode:                tt.sslMode,
				JWTSecret:                "secure-secret-at-least-32-chars-long",
				DBPassword:               "secure-password",
				Port:                     "8080",
				DBConnMaxLifetimeMinutes: 1,
				RedisURL:                 "redis://localhost:6379",
			}

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
	base := Config{
		Env:        "production",
		DBSSLMode:  "require",
		DBPassword: "secure-password",
		Port:       "8080",
		RedisURL:   "redis://localhost:6379",
	}

	c := base
	c.JWTSecret = defaultJWTSecret
	assert.Error(t, c.Validate())

	c = base
	c.JWTSecret = "short"
	assert.Error(t, c.Validate())

	c = base
	c.JWTSecret = "secure-secret-at-least-32-chars-long"
	c.DevBootstrapAdmin = true
	assert.Error(t, c.Validate())
}

func TestConfig_Helpers(t *testing.T) {
	c := &Config{}
	assert.Equal(t, 5*time.Second, c.StatusPollInterval())
	assert.Equal(t, 7*24*time.Hour, c.TokenTTL())
	assert.False(t, c.ChatProxyConfigured())

	c.StatusPollIntervalSeconds = 2
	c.JWTTTLHours = 1
	c.ChatServiceURL = "http://chat.local"
	assert.False(t, c.ChatProxyConfigured(), "key is still missing")
	c.ChatServiceKey = "k"

	assert.Equal(t, 2*time.Second, c.StatusPollInterval())
	assert.Equal(t, time.Hour, c.TokenTTL())
	assert.True(t, c.ChatProxyConfigured())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	defer viper.Reset()
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("CHAT_SERVICE_URL", " http://chat.internal ")
	t.Setenv("STATUS_POLL_INTERVAL_SECONDS", "3")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "http://chat.internal", c.ChatServiceURL)
	assert.Equal(t, 3*time.Second, c.StatusPollInterval())
	assert.Equal(t, "8375", c.Port)
}
