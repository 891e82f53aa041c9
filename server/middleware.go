package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Team-SSOK/ssok-auth-client/apimodel"
	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const contextKeyUserID contextKey = "user_id"

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyUserID).(string)
	return id
}

// requireAuth validates the bearer access token and stores its subject in the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, prefix) {
			writeFail(w, http.StatusUnauthorized, apimodel.CodeUnauthorized, "Missing access token.")
			return
		}

		userID, err := s.access.Verify(strings.TrimSpace(header[len(prefix):]))
		if err != nil {
			s.log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected access token")
			writeFail(w, http.StatusUnauthorized, apimodel.CodeUnauthorized, "Access token expired or invalid.")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyUserID, userID)))
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		evt := s.log.Info()
		if ww.Status() >= http.StatusInternalServerError {
			evt = s.log.Error()
		}
		method := r.Method
		if s.env == "DEV" {
			method = colourMethod(r.Method)
		}
		evt.Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("http")
	})
}

func (s *Server) countCalls(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.countCall(r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
