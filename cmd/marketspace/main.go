// Package main is a command line client for the marketplace API that keeps a
// signed-in session between invocations.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-marketspace-session/internal/config"
	"github.com/jrsteele09/go-marketspace-session/internal/logging"
	"github.com/jrsteele09/go-marketspace-session/session"
	"github.com/jrsteele09/go-marketspace-session/transport"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const usage = `usage: marketspace [flags] <command>

commands:
  signin <email> <password>   create a session
  signout                     end the session
  whoami                      print the signed-in user
  get <path>                  GET an API path with the session bearer
`

func main() {
	var banner bool
	var metricsFile string
	flag.BoolVar(&banner, "banner", false, "print the app banner")
	flag.StringVar(&metricsFile, "metrics-file", "", "write session metrics to this file in text exposition format")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	c := config.New()
	logging.Init(c.GetLogLevel(), c.GetEnv())
	if banner {
		displayAppname(c.GetAppName())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, c, flag.Args(), os.Stdout, metricsFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c config.Config, args []string, out io.Writer, metricsFile string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	if len(args) == 0 {
		return errors.New("no command given, see -h")
	}
	if err := c.Validate(); err != nil {
		return errors.Wrap(err, "config")
	}

	store, closeStore, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer closeStore()

	apiURL, _ := c.GetAPIURL()
	client, err := transport.New(apiURL,
		transport.WithTimeout(c.GetTimeout()),
		transport.WithSessionPath(c.GetSessionPath()),
	)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := session.NewMetrics(reg)
	if err != nil {
		return errors.Wrap(err, "metrics")
	}

	manager, err := session.New(store, client, session.WithMetrics(metrics))
	if err != nil {
		return err
	}
	defer manager.Close()

	manager.Restore(ctx)
	err = dispatch(ctx, manager, client, args, out)

	if metricsFile != "" {
		if werr := prometheus.WriteToTextfile(metricsFile, reg); werr != nil {
			log.Warn().Err(werr).Str("path", metricsFile).Msg("writing metrics failed")
		}
	}
	return err
}

func dispatch(ctx context.Context, manager *session.Manager, client *transport.Client, args []string, out io.Writer) error {
	switch cmd := args[0]; cmd {
	case "signin":
		if len(args) != 3 {
			return errors.New("usage: signin <email> <password>")
		}
		if err := manager.SignIn(ctx, args[1], args[2]); err != nil {
			return err
		}
		fmt.Fprintf(out, "signed in as %s\n", displayName(manager))
		return nil

	case "signout":
		manager.SignOut(ctx)
		fmt.Fprintln(out, "signed out")
		return nil

	case "whoami":
		if manager.State() != session.StatePresent {
			return session.ErrNoSession
		}
		return writeJSON(out, manager.CurrentUser())

	case "get":
		if len(args) != 2 {
			return errors.New("usage: get <path>")
		}
		var body json.RawMessage
		if err := client.GetJSON(ctx, args[1], &body); err != nil {
			return err
		}
		return writeJSON(out, body)

	default:
		return errors.Errorf("unknown command %q", cmd)
	}
}

func displayName(manager *session.Manager) string {
	u := manager.CurrentUser()
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
