package issuer

import "sync"

var _ RefreshRepo = (*InMemoryRefreshRepo)(nil)

// InMemoryRefreshRepo is an in-memory implementation of RefreshRepo
type InMemoryRefreshRepo struct {
	mu      sync.RWMutex
	tokens  map[string]StoredRefreshToken
	userIDs map[string]string // user ID to token
}

func NewInMemoryRefreshRepo() *InMemoryRefreshRepo {
	return &InMemoryRefreshRepo{
		tokens:  make(map[string]StoredRefreshToken),
		userIDs: make(map[string]string),
	}
}

func (r *InMemoryRefreshRepo) Upsert(refreshToken *StoredRefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to avoid external modifications
	r.tokens[refreshToken.Token] = *refreshToken
	r.userIDs[refreshToken.UserID] = refreshToken.Token
	return nil
}

func (r *InMemoryRefreshRepo) Delete(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.tokens[token]
	if !ok {
		return ErrRefreshTokenNotFound
	}
	if r.userIDs[rt.UserID] == token {
		delete(r.userIDs, rt.UserID)
	}
	delete(r.tokens, token)
	return nil
}

func (r *InMemoryRefreshRepo) Get(token string) (*StoredRefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.tokens[token]
	if !ok {
		return nil, ErrRefreshTokenNotFound
	}
	return &rt, nil
}

func (r *InMemoryRefreshRepo) GetByUserID(userID string) (*StoredRefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.userIDs[userID]
	if !ok {
		return nil, ErrRefreshTokenNotFound
	}
	rt := r.tokens[token]
	return &rt, nil
}

// Len returns the number of live refresh tokens.
func (r *InMemoryRefreshRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}
