package config

import (
	"fmt"
	"strings"
	"time"
)

type EnvVars struct {
	AppName  string `env:"APP_NAME" env-default:"SSOK"`
	Env      string `env:"ENV" env-default:"DEV"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.Env)
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

type API struct {
	BaseURL        string        `env:"API_BASE_URL" env-default:"http://localhost:8080"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" env-default:"10s"`
	RefreshTimeout time.Duration `env:"REFRESH_TIMEOUT" env-default:"10s"`
	// Calls whose refresh failure must not block the login flow (push-token registration).
	SoftEndpoints []string `env:"SOFT_ENDPOINTS" env-separator:"," env-default:"/api/notifications/fcm"`
}

var _ APIConfig = API{}

func (a API) GetAPIBaseURL() string {
	return strings.TrimRight(a.BaseURL, "/")
}

func (a API) GetRequestTimeout() time.Duration {
	return a.RequestTimeout
}

func (a API) GetRefreshTimeout() time.Duration {
	return a.RefreshTimeout
}

func (a API) GetSoftEndpoints() []string {
	return a.SoftEndpoints
}

type Storage struct {
	DataFolder     string `env:"DATA_FOLDER" env-default:"./data"`
	VaultSecret    string `env:"VAULT_SECRET"`
	TokenKeyPrefix string `env:"TOKEN_KEY_PREFIX" env-default:"ssok"`
}

var _ StorageConfig = Storage{}

func (s Storage) GetDataFolder() string {
	return s.DataFolder
}

func (s Storage) GetVaultSecret() string {
	return s.VaultSecret
}

func (s Storage) GetTokenKeyPrefix() string {
	return s.TokenKeyPrefix
}

type MockServer struct {
	Port            string        `env:"PORT" env-default:"8080"`
	JWTAlgorithm    string        `env:"JWT_ALGORITHM" env-default:"HS256"`
	JWTSecret       string        `env:"JWT_SECRET" env-default:"dev-only-secret"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	SeedPhone       string        `env:"MOCK_SEED_PHONE"`
	SeedPin         string        `env:"MOCK_SEED_PIN"`
}

var _ MockServerConfig = MockServer{}

func (m MockServer) GetPort() string {
	port := m.Port
	if port == "" || port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (m MockServer) GetJWTAlgorithm() string {
	return m.JWTAlgorithm
}

func (m MockServer) GetJWTSecret() string {
	return m.JWTSecret
}

func (m MockServer) GetAccessTokenTTL() time.Duration {
	return m.AccessTokenTTL
}

func (m MockServer) GetRefreshTokenTTL() time.Duration {
	return m.RefreshTokenTTL
}

// GetSeedUser returns the demo account created at start-up, empty when unset.
func (m MockServer) GetSeedUser() (phone, pin string) {
	return m.SeedPhone, m.SeedPin
}
