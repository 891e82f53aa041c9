package config

import "time"

type SecurityConfig interface {
	GetReauthThreshold() time.Duration
	GetAlwaysReauth() bool
	GetMaxPinAttempts() int
	GetLocalPinCheck() bool
}

type Security struct {
	ReauthThreshold time.Duration `env:"REAUTH_THRESHOLD" env-default:"30s"`
	AlwaysReauth    bool          `env:"ALWAYS_REAUTH" env-default:"false"`
	MaxPinAttempts  int           `env:"MAX_PIN_ATTEMPTS" env-default:"5"`
	LocalPinCheck   bool          `env:"LOCAL_PIN_CHECK" env-default:"false"`
}

var _ SecurityConfig = Security{}

// GetReauthThreshold is how long the app may stay in the background before a PIN is required again.
func (s Security) GetReauthThreshold() time.Duration {
	return s.ReauthThreshold
}

func (s Security) GetAlwaysReauth() bool {
	return s.AlwaysReauth
}

// GetMaxPinAttempts returns the number of wrong PINs tolerated during reauthentication; 0 disables the lockout.
func (s Security) GetMaxPinAttempts() int {
	if s.MaxPinAttempts < 0 {
		return 0
	}
	return s.MaxPinAttempts
}

func (s Security) GetLocalPinCheck() bool {
	return s.LocalPinCheck
}
