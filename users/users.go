package users

import (
	"time"

	apperrors "github.com/Team-SSOK/ssok-auth-client/internal/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const PinLength = 6

type RegistrationStatus string

const (
	StatusUnregistered RegistrationStatus = "unregistered" // Nothing registered on this device
	StatusRegistered   RegistrationStatus = "registered"   // Signed up, PIN login available
)

// AuthUser is the identity cached on the device between launches.
type AuthUser struct {
	ID                 string             `json:"id"`                     // Backend user id, sent with every PIN login
	PhoneNumber        string             `json:"phoneNumber"`            // Phone number used at sign up
	Username           string             `json:"username,omitempty"`     // Display name
	PinHash            string             `json:"pinHash,omitempty"`      // bcrypt hash of the last accepted PIN
	RegistrationStatus RegistrationStatus `json:"registrationStatus"`     // Whether onboarding completed on this device
	DeviceID           string             `json:"deviceId"`               // Stable id generated at first sign up
	RegisteredAt       time.Time          `json:"registeredAt,omitempty"` // When sign up succeeded
	LastLoginAt        time.Time          `json:"lastLoginAt,omitempty"`  // Last successful PIN login
}

// Registered reports whether the user may log in with a PIN.
func (u *AuthUser) Registered() bool {
	return u != nil && u.ID != "" && u.RegistrationStatus == StatusRegistered
}

// Clone returns a copy safe to hand to observers.
func (u *AuthUser) Clone() *AuthUser {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// ValidatePin checks that pin is exactly PinLength ASCII digits.
func ValidatePin(pin string) error {
	if len(pin) != PinLength {
		return apperrors.New(apperrors.KindAuthValidation, "PIN must be 6 digits.", apperrors.ErrInvalidPin)
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return apperrors.New(apperrors.KindAuthValidation, "PIN must be 6 digits.", apperrors.ErrInvalidPin)
		}
	}
	return nil
}

// ValidatePinConfirmation validates pin and checks the confirmation entry matches it.
func ValidatePinConfirmation(pin, confirm string) error {
	if err := ValidatePin(pin); err != nil {
		return err
	}
	if pin != confirm {
		return apperrors.New(apperrors.KindAuthValidation, "PINs do not match.", apperrors.ErrPinMismatch)
	}
	return nil
}

func HashPin(pin string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPinHash(pin, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
	return err == nil
}

// CheckPin compares pin with the cached hash. A user without a hash never matches.
func (u *AuthUser) CheckPin(pin string) bool {
	if u == nil || u.PinHash == "" {
		return false
	}
	return CheckPinHash(pin, u.PinHash)
}

// NewDeviceID returns a random device identifier.
func NewDeviceID() string {
	return uuid.NewString()
}
