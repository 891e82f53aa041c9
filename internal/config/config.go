package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	APIConfig
	SecurityConfig
	StorageConfig
	MockServerConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type APIConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetRefreshTimeout() time.Duration
	GetSoftEndpoints() []string
}

type StorageConfig interface {
	GetDataFolder() string
	GetVaultSecret() string
	GetTokenKeyPrefix() string
}

type MockServerConfig interface {
	GetPort() string
	GetJWTAlgorithm() string
	GetJWTSecret() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetSeedUser() (phone, pin string)
}

type mainConfig struct {
	EnvVars
	API
	Security
	Storage
	MockServer
}

// New loads an optional .env file and then reads the process environment.
func New() (Config, error) {
	_ = godotenv.Load()

	var c mainConfig
	if err := cleanenv.ReadEnv(&c); err != nil {
		return nil, fmt.Errorf("[config.New] read env: %w", err)
	}
	return c, nil
}

// Defaults reads the process environment without a .env file. Unset values take their env-default.
func Defaults() Config {
	var c mainConfig
	_ = cleanenv.ReadEnv(&c)
	return c
}
