// Command mockapi serves the SSOK auth and user endpoints from memory for local development.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/Team-SSOK/ssok-auth-client/internal/config"
	"github.com/Team-SSOK/ssok-auth-client/internal/logging"
	"github.com/Team-SSOK/ssok-auth-client/internal/metrics"
	"github.com/Team-SSOK/ssok-auth-client/server"
	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	log.Logger = logging.New(c.GetLogLevel(), c.GetAppName(), c.GetEnv())
	displayAppname(c.GetAppName())

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics.Register(registry)

	handler, err := server.New(c, server.WithLogger(log.Logger), server.WithRegistry(registry))
	if err != nil {
		return err
	}
	if err := seedDemoUser(handler, c); err != nil {
		return err
	}

	srv := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(srv)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func seedDemoUser(s *server.Server, c config.MockServerConfig) error {
	phone, pin := c.GetSeedUser()
	if phone == "" || pin == "" {
		return nil
	}
	id, err := s.SeedUser(phone, "demo", pin)
	if err != nil {
		return fmt.Errorf("seed demo user: %w", err)
	}
	log.Info().Str("user_id", id).Str("phone", logging.MaskPhone(phone)).Msg("Seeded demo user")
	return nil
}

func listenAndServe(srv *http.Server) error {
	log.Info().Str("addr", srv.Addr).Msg("Server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
