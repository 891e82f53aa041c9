// Package server is a development backend implementing the SSOK auth and user
// endpoints the client consumes. It keeps all state in memory.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/Team-SSOK/ssok-auth-client/internal/config"
	"github.com/Team-SSOK/ssok-auth-client/server/issuer"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config is the subset of the application configuration the server reads.
type Config interface {
	config.EnvConfig
	config.MockServerConfig
}

type Server struct {
	env      string
	router   chi.Router
	access   *issuer.AccessIssuer
	refresh  *issuer.RefreshManager
	accounts *accounts
	registry *prometheus.Registry
	log      zerolog.Logger

	refreshRepo issuer.RefreshRepo

	callsMu sync.Mutex
	calls   map[string]int
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithRefreshRepo replaces the in-memory refresh token store.
func WithRefreshRepo(repo issuer.RefreshRepo) Option {
	return func(s *Server) {
		s.refreshRepo = repo
	}
}

// WithRegistry exposes the registry on GET /metrics.
func WithRegistry(r *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = r
	}
}

func New(cfg Config, options ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[server.New] config is required")
	}
	signer, err := issuer.NewSigner(cfg.GetJWTAlgorithm(), cfg.GetJWTSecret())
	if err != nil {
		return nil, fmt.Errorf("[server.New] %w", err)
	}

	s := &Server{
		env:      cfg.GetEnv(),
		router:   chi.NewRouter(),
		accounts: newAccounts(),
		calls:    make(map[string]int),
		log:      log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.refreshRepo == nil {
		s.refreshRepo = issuer.NewInMemoryRefreshRepo()
	}

	s.access = issuer.NewAccessIssuer(signer, cfg.GetAccessTokenTTL())
	s.refresh = issuer.NewRefreshManager(s.refreshRepo, cfg.GetRefreshTokenTTL())

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	_ = chi.Walk(s.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		s.log.Info().Msgf("[%s] %s", colourMethod(method), route)
		return nil
	})
}

// SeedUser registers an account directly, bypassing the signup endpoint.
func (s *Server) SeedUser(phone, username, pin string) (string, error) {
	acc, err := s.accounts.create(phone, username, pin, "")
	if err != nil {
		return "", err
	}
	return acc.ID, nil
}

// DeleteUser removes the account and its refresh token. Tokens already
// issued still verify, so the next user scoped call reports 4040.
func (s *Server) DeleteUser(userID string) bool {
	if err := s.refresh.Revoke(userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to revoke refresh token")
	}
	return s.accounts.remove(userID)
}

func (s *Server) RevokeRefreshTokens(userID string) error {
	return s.refresh.Revoke(userID)
}

// ExpireAccessTokens invalidates every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.access.ExpireAll()
}

// Calls returns how many requests reached the handler registered for path.
func (s *Server) Calls(path string) int {
	s.callsMu.Lock()
	defer s.callsMu.Unlock()
	return s.calls[path]
}

// PushToken returns the push token registered for the user.
func (s *Server) PushToken(userID string) string {
	acc, _ := s.accounts.get(userID)
	return acc.PushToken
}

func (s *Server) countCall(path string) {
	s.callsMu.Lock()
	s.calls[path]++
	s.callsMu.Unlock()
}
