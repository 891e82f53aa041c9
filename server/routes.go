package server

import (
	"github.com/Team-SSOK/ssok-auth-client/apimodel"
	"github.com/Team-SSOK/ssok-auth-client/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) initRoutes() {
	r := s.router
	r.Use(
		middleware.RequestID,
		s.requestLogger,
		middleware.Recoverer,
		s.countCalls,
	)

	r.Post(apimodel.RouteLogin, s.handleLogin)
	r.Post(apimodel.RouteRefresh, s.handleRefresh)
	r.Post(apimodel.RouteSignup, s.handleSignup)
	r.Patch(apimodel.RoutePinReset, s.handlePinReset)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get(apimodel.RouteUserInfo, s.handleUserInfo)
		r.Post(apimodel.RoutePushRegister, s.handlePushRegister)
	})

	if s.registry != nil {
		r.Method("GET", "/metrics", metrics.Handler(s.registry))
	}
}
