package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/Team-SSOK/ssok-auth-client/internal/errors"
	"github.com/Team-SSOK/ssok-auth-client/internal/metrics"
	"github.com/Team-SSOK/ssok-auth-client/token"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

// Refresher mints a new pair after the backend rejected staleAccess.
type Refresher interface {
	Refresh(ctx context.Context, staleAccess string) (token.Pair, error)
}

// AuthFailureHandler is told when a refresh failure means the session is over.
// staleAccess is the access token the rejected request carried.
type AuthFailureHandler func(ctx context.Context, staleAccess string, err error)

// authTransport attaches the bearer token and performs one refresh-and-retry per request on 401.
type authTransport struct {
	base          http.RoundTripper
	store         token.Store
	refresher     Refresher
	softPaths     []string
	onAuthFailure AuthFailureHandler
	log           zerolog.Logger
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if skipAuth(ctx) {
		return t.base.RoundTrip(withRequestID(req.Clone(ctx)))
	}

	body, err := snapshotBody(req)
	if err != nil {
		return nil, err
	}

	pair, err := t.store.Tokens(ctx)
	if err != nil {
		// Unreadable storage is treated as no token; the call may be unauthenticated.
		t.log.Warn().Err(err).Str("path", req.URL.Path).Msg("Sending request without token")
		pair = token.Pair{}
	}

	resp, err := t.send(ctx, req, body, pair.AccessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || isRetried(ctx) {
		return resp, nil
	}

	drain(resp)
	ctx = withRetried(ctx)

	fresh, err := t.refresher.Refresh(ctx, pair.AccessToken)
	if err != nil {
		return nil, t.refreshFailed(ctx, req, pair.AccessToken, err)
	}

	resp, err = t.send(ctx, req, body, fresh.AccessToken)
	if err != nil {
		metrics.UnauthorizedRetry.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, err
	}
	metrics.UnauthorizedRetry.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return resp, nil
}

func (t *authTransport) send(ctx context.Context, orig *http.Request, body []byte, accessToken string) (*http.Response, error) {
	req := orig.Clone(ctx)
	if body != nil {
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		req.ContentLength = int64(len(body))
	}
	if accessToken != "" {
		token.Pair{AccessToken: accessToken}.OAuth2().SetAuthHeader(req)
	} else {
		req.Header.Del("Authorization")
	}
	return t.base.RoundTrip(withRequestID(req))
}

func (t *authTransport) refreshFailed(ctx context.Context, req *http.Request, staleAccess string, cause error) error {
	if t.isSoft(req.URL.Path) {
		metrics.UnauthorizedRetry.WithLabelValues(metrics.OutcomeSoft).Inc()
		t.log.Info().Err(cause).Str("path", req.URL.Path).Msg("Refresh failed on non-critical call, continuing")
		return apperrors.New(apperrors.KindSoftNoRefresh, "", fmt.Errorf("%w: %w", apperrors.ErrNoRefreshToken, cause))
	}

	metrics.UnauthorizedRetry.WithLabelValues(metrics.OutcomeFailure).Inc()
	t.log.Warn().Err(cause).Str("path", req.URL.Path).Msg("Refresh failed, session is no longer valid")
	err := apperrors.New(apperrors.KindTokenRefresh, "Your session has expired. Please sign in again.",
		fmt.Errorf("%w: %w", apperrors.ErrTokenRefreshFailed, cause))

	// Storage failures do not prove the session is dead.
	if t.onAuthFailure != nil && !apperrors.IsKind(cause, apperrors.KindStorage) {
		t.onAuthFailure(context.WithoutCancel(ctx), staleAccess, err)
	}
	return err
}

func (t *authTransport) isSoft(path string) bool {
	for _, p := range t.softPaths {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func withRequestID(req *http.Request) *http.Request {
	if req.Header.Get(requestIDHeader) == "" {
		req.Header.Set(requestIDHeader, uuid.NewString())
	}
	return req
}

// snapshotBody buffers the request body so the request can be replayed after a refresh.
func snapshotBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	b, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("[authTransport] read request body: %w", err)
	}
	return b, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
