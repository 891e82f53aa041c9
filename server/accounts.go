package server

import (
	"errors"
	"sync"
	"time"

	"github.com/Team-SSOK/ssok-auth-client/users"
	"github.com/google/uuid"
)

var errDuplicatePhone = errors.New("phone number already registered")

type account struct {
	ID        string
	Username  string
	Phone     string
	PinHash   string
	DeviceID  string
	PushToken string
	CreatedAt time.Time
}

// accounts is the in-memory user table of the mock backend.
type accounts struct {
	mu      sync.RWMutex
	byID    map[string]*account
	byPhone map[string]string
}

func newAccounts() *accounts {
	return &accounts{
		byID:    make(map[string]*account),
		byPhone: make(map[string]string),
	}
}

func (a *accounts) create(phone, username, pin, deviceID string) (account, error) {
	hash, err := users.HashPin(pin)
	if err != nil {
		return account{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.byPhone[phone]; ok {
		return account{}, errDuplicatePhone
	}
	acc := &account{
		ID:        uuid.NewString(),
		Username:  username,
		Phone:     phone,
		PinHash:   hash,
		DeviceID:  deviceID,
		CreatedAt: time.Now().UTC(),
	}
	a.byID[acc.ID] = acc
	a.byPhone[phone] = acc.ID
	return *acc, nil
}

func (a *accounts) get(id string) (account, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	acc, ok := a.byID[id]
	if !ok {
		return account{}, false
	}
	return *acc, true
}

func (a *accounts) update(id string, fn func(*account)) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	acc, ok := a.byID[id]
	if !ok {
		return false
	}
	fn(acc)
	return true
}

func (a *accounts) remove(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	acc, ok := a.byID[id]
	if !ok {
		return false
	}
	delete(a.byPhone, acc.Phone)
	delete(a.byID, id)
	return true
}
