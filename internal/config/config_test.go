package config_test

import (
	"testing"
	"time"

	"github.com/Team-SSOK/ssok-auth-client/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := config.Defaults()

	require.Equal(t, "SSOK", c.GetAppName())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "http://localhost:8080", c.GetAPIBaseURL())
	require.Equal(t, 30*time.Second, c.GetReauthThreshold())
	require.Equal(t, 5, c.GetMaxPinAttempts())
	require.False(t, c.GetAlwaysReauth())
	require.Equal(t, []string{"/api/notifications/fcm"}, c.GetSoftEndpoints())
	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "ssok", c.GetTokenKeyPrefix())
}

func TestNewReadsEnvironment(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com/")
	t.Setenv("REAUTH_THRESHOLD", "45s")
	t.Setenv("ALWAYS_REAUTH", "true")
	t.Setenv("MAX_PIN_ATTEMPTS", "3")
	t.Setenv("SOFT_ENDPOINTS", "/api/a,/api/b")
	t.Setenv("ENV", "prod")

	c, err := config.New()
	require.NoError(t, err)

	require.Equal(t, "https://api.example.com", c.GetAPIBaseURL())
	require.Equal(t, 45*time.Second, c.GetReauthThreshold())
	require.True(t, c.GetAlwaysReauth())
	require.Equal(t, 3, c.GetMaxPinAttempts())
	require.Equal(t, []string{"/api/a", "/api/b"}, c.GetSoftEndpoints())
	require.Equal(t, "PROD", c.GetEnv())
}

func TestMaxPinAttemptsNeverNegative(t *testing.T) {
	require.Equal(t, 0, config.Security{MaxPinAttempts: -2}.GetMaxPinAttempts())
}
