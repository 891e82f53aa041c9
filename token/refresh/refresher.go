package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Team-SSOK/ssok-auth-client/apimodel"
	apperrors "github.com/Team-SSOK/ssok-auth-client/internal/errors"
	"github.com/Team-SSOK/ssok-auth-client/internal/metrics"
	"github.com/Team-SSOK/ssok-auth-client/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout = 10 * time.Second
	flightKey      = "refresh"
)

// Refresher exchanges the stored refresh token for a new pair.
// Concurrent callers share one in-flight exchange.
type Refresher struct {
	endpoint string
	client   *http.Client
	store    token.Store
	timeout  time.Duration
	group    singleflight.Group
	log      zerolog.Logger
}

type Option func(*Refresher)

// WithHTTPClient sets the client used for the refresh call. It must not carry the auth interceptor.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Refresher) {
		r.client = c
	}
}

func WithTimeout(d time.Duration) Option {
	return func(r *Refresher) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Refresher) {
		r.log = l
	}
}

func New(baseURL string, store token.Store, options ...Option) *Refresher {
	r := &Refresher{
		endpoint: baseURL + apimodel.RouteRefresh,
		client:   http.DefaultClient,
		store:    store,
		timeout:  defaultTimeout,
		log:      log.Logger,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Refresh returns a fresh pair. staleAccess is the access token the caller
// was rejected with; if the store already holds a different one another
// caller has refreshed in the meantime and that pair is returned as is.
func (r *Refresher) Refresh(ctx context.Context, staleAccess string) (token.Pair, error) {
	v, err, shared := r.group.Do(flightKey, func() (any, error) {
		// Detached so one caller giving up does not fail everybody waiting on the flight.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.refresh(fctx, staleAccess)
	})
	if err != nil {
		metrics.TokenRefresh.WithLabelValues(metrics.OutcomeFailure).Inc()
		return token.Pair{}, err
	}
	if shared {
		metrics.TokenRefresh.WithLabelValues(metrics.OutcomeShared).Inc()
	}
	return v.(token.Pair), nil
}

func (r *Refresher) refresh(ctx context.Context, staleAccess string) (token.Pair, error) {
	current, err := r.store.Tokens(ctx)
	if err != nil {
		return token.Pair{}, err
	}
	if current.RefreshToken == "" {
		return token.Pair{}, apperrors.ErrNoRefreshToken
	}
	if current.Complete() && staleAccess != "" && current.AccessToken != staleAccess {
		r.log.Debug().Str("access_fp", current.Fingerprint()).Msg("Token already refreshed by another request")
		return current, nil
	}

	pair, err := r.exchange(ctx, current.RefreshToken)
	if err != nil {
		r.log.Warn().Err(err).Msg("Token refresh failed")
		return token.Pair{}, err
	}

	if err := r.store.Save(ctx, pair); err != nil {
		return token.Pair{}, err
	}
	metrics.TokenRefresh.WithLabelValues(metrics.OutcomeSuccess).Inc()
	r.log.Info().Str("access_fp", pair.Fingerprint()).Msg("Tokens refreshed")
	return pair, nil
}

func (r *Refresher) exchange(ctx context.Context, refreshToken string) (token.Pair, error) {
	body, err := json.Marshal(apimodel.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return token.Pair{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return token.Pair{}, fmt.Errorf("[Refresher.exchange] build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return token.Pair{}, fmt.Errorf("%w: %w", apperrors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return token.Pair{}, fmt.Errorf("%w: read body: %w", apperrors.ErrNetwork, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return token.Pair{}, fmt.Errorf("%w: status %d", apperrors.ErrRefreshUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return token.Pair{}, fmt.Errorf("%w: status %d", apperrors.ErrTokenRefreshFailed, resp.StatusCode)
	}

	var env apimodel.Envelope[apimodel.TokenResult]
	if err := json.Unmarshal(raw, &env); err != nil {
		return token.Pair{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidResponse, err)
	}
	if env.Result == nil {
		return token.Pair{}, fmt.Errorf("%w: %s", apperrors.ErrTokenRefreshFailed, env.Message)
	}

	pair := token.Pair{AccessToken: env.Result.AccessToken, RefreshToken: env.Result.RefreshToken}
	if pair.AccessToken == "" {
		return token.Pair{}, fmt.Errorf("%w: empty access token", apperrors.ErrInvalidResponse)
	}
	// Servers that do not rotate refresh tokens omit it.
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	return pair, nil
}
