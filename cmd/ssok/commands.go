package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	apperrors "github.com/Team-SSOK/ssok-auth-client/internal/errors"
	"github.com/Team-SSOK/ssok-auth-client/internal/logging"
	"github.com/Team-SSOK/ssok-auth-client/internal/utils"
	"github.com/Team-SSOK/ssok-auth-client/lifecycle"
	"github.com/Team-SSOK/ssok-auth-client/navigation"
)

const usage = `commands:
  register <phone> <username> <pin> <confirm>
  login <pin>                 sign in, or answer the reauth prompt
  info                        fetch the profile
  reset-pin <pin> <confirm>
  logout
  background <duration>       leave the app for a while, e.g. background 45s
  status
  quit`

func (a *app) repl(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(a.out, usage)
	a.printStatus()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Fprint(a.out, "> ")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			args := strings.Fields(line)
			if len(args) == 0 {
				continue
			}
			if args[0] == "quit" || args[0] == "exit" {
				return nil
			}
			if err := a.exec(ctx, args[0], args[1:]); err != nil {
				fmt.Fprintf(a.out, "error: %s\n", describe(err))
			}
			a.printStatus()
		}
	}
}

func (a *app) exec(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		fmt.Fprintln(a.out, usage)
		return nil

	case "register":
		if len(args) != 4 {
			return fmt.Errorf("usage: register <phone> <username> <pin> <confirm>")
		}
		user, err := a.manager.Register(ctx, args[0], args[1], args[2], args[3])
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "registered %s (%s)\n", user.ID, logging.MaskPhone(user.PhoneNumber))
		a.nav.Replace(navigation.RouteSignIn)
		return nil

	case "login":
		if len(args) != 1 {
			return fmt.Errorf("usage: login <pin>")
		}
		if a.nav.CurrentRoute() == navigation.RouteReauth {
			outcome, err := a.flow.Submit(ctx, args[0])
			if outcome.Message != "" {
				fmt.Fprintf(a.out, "%s: %s\n", outcome.Result, outcome.Message)
			}
			return err
		}
		if err := a.manager.LoginWithPin(ctx, args[0]); err != nil {
			return err
		}
		a.nav.Replace(navigation.RouteHome)
		return nil

	case "info":
		info, err := a.api.UserInfo(ctx)
		if err != nil {
			if apperrors.IsKind(err, apperrors.KindUserNotFound) {
				return a.manager.HandleUserNotFound(ctx)
			}
			return err
		}
		fmt.Fprintf(a.out, "%s %s %s %s\n", info.UserID, info.Username, logging.MaskPhone(info.PhoneNumber), utils.Value(info.ProfileURL))
		return nil

	case "reset-pin":
		if len(args) != 2 {
			return fmt.Errorf("usage: reset-pin <pin> <confirm>")
		}
		return a.manager.ResetPin(ctx, "", args[0], args[1])

	case "logout":
		return a.manager.Logout(ctx)

	case "background":
		if len(args) != 1 {
			return fmt.Errorf("usage: background <duration>")
		}
		d, err := time.ParseDuration(args[0])
		if err != nil {
			return err
		}
		a.monitor.HandleTransition(lifecycle.StateBackground)
		a.clock.advance(d)
		if a.monitor.HandleTransition(lifecycle.StateActive) {
			a.coordinator.Prompt()
		}
		return nil

	case "status":
		return nil

	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
}

func (a *app) printStatus() {
	snap := a.manager.Snapshot()
	fmt.Fprintf(a.out, "[%s] route=%s reason=%s", snap.State, a.nav.CurrentRoute(), snap.ResetReason)
	if snap.Error != "" {
		fmt.Fprintf(a.out, " error=%q", snap.Error)
	}
	fmt.Fprintln(a.out)
}

// describe prefers the user facing message of typed errors.
func describe(err error) string {
	if apperrors.KindOf(err) != "" {
		return apperrors.UserMessage(err)
	}
	return err.Error()
}
