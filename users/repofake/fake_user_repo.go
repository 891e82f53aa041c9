package repofake

import (
	"context"
	"sync"

	apperrors "github.com/Team-SSOK/ssok-auth-client/internal/errors"
	"github.com/Team-SSOK/ssok-auth-client/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	user     *users.AuthUser
	saveErr  error
	clearErr error
	clears   int
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{}
}

// WithUser seeds the repo with a registered user.
func (ur *FakeUserRepo) WithUser(u *users.AuthUser) *FakeUserRepo {
	ur.lock.Lock()
	defer ur.lock.Unlock()
	ur.user = u.Clone()
	return ur
}

func (ur *FakeUserRepo) FailSave(err error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()
	ur.saveErr = err
}

func (ur *FakeUserRepo) FailClear(err error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()
	ur.clearErr = err
}

func (ur *FakeUserRepo) Get(_ context.Context) (*users.AuthUser, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	if ur.user == nil {
		return nil, apperrors.ErrNotRegistered
	}
	return ur.user.Clone(), nil
}

func (ur *FakeUserRepo) Save(_ context.Context, user *users.AuthUser) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()
	if ur.saveErr != nil {
		return apperrors.Storage("save profile", ur.saveErr)
	}
	ur.user = user.Clone()
	return nil
}

func (ur *FakeUserRepo) Clear(_ context.Context) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()
	if ur.clearErr != nil {
		return apperrors.Storage("clear profile", ur.clearErr)
	}
	ur.user = nil
	ur.clears++
	return nil
}

// Clears returns how many times Clear succeeded.
func (ur *FakeUserRepo) Clears() int {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return ur.clears
}
