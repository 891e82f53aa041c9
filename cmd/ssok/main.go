// Command ssok is a headless host for the session client. It reads commands
// from stdin and drives the same packages a mobile shell would.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/Team-SSOK/ssok-auth-client/api"
	"github.com/Team-SSOK/ssok-auth-client/httpclient"
	"github.com/Team-SSOK/ssok-auth-client/internal/config"
	"github.com/Team-SSOK/ssok-auth-client/internal/logging"
	"github.com/Team-SSOK/ssok-auth-client/lifecycle"
	"github.com/Team-SSOK/ssok-auth-client/navigation"
	"github.com/Team-SSOK/ssok-auth-client/reauth"
	"github.com/Team-SSOK/ssok-auth-client/sessions"
	"github.com/Team-SSOK/ssok-auth-client/token"
	"github.com/Team-SSOK/ssok-auth-client/token/refresh"
	"github.com/Team-SSOK/ssok-auth-client/token/vault"
	"github.com/Team-SSOK/ssok-auth-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const devVaultSecret = "ssok-dev-vault-secret"

func main() {
	dataDir := flag.String("data", "", "data folder, overrides DATA_FOLDER")
	flag.Parse()

	if err := run(*dataDir, os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("ssok stopped")
	}
}

// app holds the wired client.
type app struct {
	manager     *sessions.Manager
	api         *api.Client
	monitor     *lifecycle.Monitor
	coordinator *reauth.Coordinator
	flow        *reauth.Flow
	nav         *navigation.Stack
	clock       *offsetClock
	out         io.Writer
}

func run(dataDir string, in io.Reader, out io.Writer) error {
	c, err := config.New()
	if err != nil {
		return err
	}
	log.Logger = logging.New(c.GetLogLevel(), c.GetAppName(), c.GetEnv())
	if dataDir == "" {
		dataDir = c.GetDataFolder()
	}

	a, err := wire(c, dataDir, out, log.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := a.manager.Initialize(ctx); err != nil {
		log.Warn().Err(err).Msg("Starting without a restored session")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.coordinator.Run(gctx, a.monitor.Signals())
	})
	g.Go(func() error {
		return a.coordinator.Watch(gctx, a.manager)
	})
	g.Go(func() error {
		return navigation.NewGuard(a.nav, a.manager).Run(gctx)
	})
	g.Go(func() error {
		defer stop()
		return a.repl(gctx, in)
	})

	err = g.Wait()
	a.manager.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func wire(c config.Config, dataDir string, out io.Writer, logger zerolog.Logger) (*app, error) {
	secret := c.GetVaultSecret()
	if secret == "" {
		if c.GetEnv() != "DEV" {
			return nil, errors.New("VAULT_SECRET is required outside DEV")
		}
		secret = devVaultSecret
	}
	v, err := vault.NewFileVault(filepath.Join(dataDir, "vault"), []byte(secret))
	if err != nil {
		return nil, err
	}
	store := token.NewSecureStore(v, token.WithKeyPrefix(c.GetTokenKeyPrefix()), token.WithStoreLogger(logger))

	refresher := refresh.New(c.GetAPIBaseURL(), store,
		refresh.WithTimeout(c.GetRefreshTimeout()),
		refresh.WithLogger(logger))
	hc := httpclient.New(c.GetAPIBaseURL(), store, refresher,
		httpclient.WithSoftPaths(c.GetSoftEndpoints()...),
		httpclient.WithTimeout(c.GetRequestTimeout()),
		httpclient.WithLogger(logger))
	client, err := api.New(hc)
	if err != nil {
		return nil, err
	}

	repo, err := users.NewFileRepo(dataDir)
	if err != nil {
		return nil, err
	}

	manager, err := sessions.NewManager(sessions.Deps{Tokens: store, Users: repo, API: client},
		sessions.WithLogger(logger),
		sessions.WithLocalPinCheck(c.GetLocalPinCheck()),
		sessions.WithNotifier(sessions.NotifierFunc(func(_ context.Context, msg string) {
			fmt.Fprintf(out, "! %s\n", msg)
		})),
		sessions.WithPushTokenSource(func(context.Context) (string, error) {
			return "cli-" + users.NewDeviceID(), nil
		}))
	if err != nil {
		return nil, err
	}
	hc.OnAuthFailure(manager.ForceLogout)

	clock := &offsetClock{}
	monitor := lifecycle.NewMonitor(
		lifecycle.WithThreshold(c.GetReauthThreshold()),
		lifecycle.WithAlwaysReauth(c.GetAlwaysReauth()),
		lifecycle.WithNowTime(clock.Now),
		lifecycle.WithLogger(logger))

	nav := navigation.NewStack(navigation.RouteSignIn)
	coordinator := reauth.NewCoordinator(manager, monitor, nav, reauth.WithCoordinatorLogger(logger))
	flow := reauth.NewFlow(coordinator,
		reauth.WithMaxAttempts(c.GetMaxPinAttempts()),
		reauth.WithFlowLogger(logger),
		reauth.WithDialog(reauth.DialogFunc(func(_ context.Context, msg string) {
			fmt.Fprintf(out, "! %s\n", msg)
		})))

	return &app{
		manager:     manager,
		api:         client,
		monitor:     monitor,
		coordinator: coordinator,
		flow:        flow,
		nav:         nav,
		clock:       clock,
		out:         out,
	}, nil
}

// offsetClock lets the background command jump forward in time.
type offsetClock struct {
	mu     sync.Mutex
	offset time.Duration
}

func (c *offsetClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset)
}

func (c *offsetClock) advance(d time.Duration) {
	c.mu.Lock()
	c.offset += d
	c.mu.Unlock()
}
