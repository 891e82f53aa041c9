package vaultfake

import (
	"context"
	"sync"

	"github.com/Team-SSOK/ssok-auth-client/token/vault"
)

var _ vault.Vault = (*Vault)(nil)

// Vault is an in-memory vault with per-key fault injection.
type Vault struct {
	values    map[string][]byte
	getErrs   map[string]error
	putErrs   map[string]error
	deleteErr map[string]error
	puts      int
	lock      sync.RWMutex
}

func New() *Vault {
	return &Vault{
		values:    make(map[string][]byte),
		getErrs:   make(map[string]error),
		putErrs:   make(map[string]error),
		deleteErr: make(map[string]error),
	}
}

func (v *Vault) Get(_ context.Context, key string) ([]byte, error) {
	v.lock.RLock()
	defer v.lock.RUnlock()

	if err := v.getErrs[key]; err != nil {
		return nil, err
	}
	value, ok := v.values[key]
	if !ok {
		return nil, vault.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (v *Vault) Put(_ context.Context, key string, value []byte) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	v.puts++
	if err := v.putErrs[key]; err != nil {
		return err
	}
	v.values[key] = append([]byte(nil), value...)
	return nil
}

func (v *Vault) Delete(_ context.Context, key string) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	if err := v.deleteErr[key]; err != nil {
		return err
	}
	delete(v.values, key)
	return nil
}

// FailGet makes Get on key return err until cleared with a nil err.
func (v *Vault) FailGet(key string, err error) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.getErrs[key] = err
}

// FailPut makes Put on key return err until cleared with a nil err.
func (v *Vault) FailPut(key string, err error) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.putErrs[key] = err
}

// FailDelete makes Delete on key return err until cleared with a nil err.
func (v *Vault) FailDelete(key string, err error) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.deleteErr[key] = err
}

// Set writes a raw value, bypassing fault injection.
func (v *Vault) Set(key, value string) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.values[key] = []byte(value)
}

// Has reports whether key currently holds a value.
func (v *Vault) Has(key string) bool {
	v.lock.RLock()
	defer v.lock.RUnlock()
	_, ok := v.values[key]
	return ok
}

// Puts returns the number of Put calls, failed ones included.
func (v *Vault) Puts() int {
	v.lock.RLock()
	defer v.lock.RUnlock()
	return v.puts
}
