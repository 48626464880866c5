// Command sorsoctl is the terminal front end of Sorso Club: guests can list
// nights and book tables, staff can manage nights, inventory and
// reservations.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"

	"sorso/internal/client"
	"sorso/internal/shared/config"
	"sorso/pkg/eventbus"
	"sorso/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// userError is printed as-is and ends the process with status 1
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }

func (e *userError) Unwrap() error { return e.err }

func fail(msg string, err error) error {
	return &userError{msg: msg, err: err}
}

type app struct {
	cfg     *config.ClientConfig
	log     *logger.Logger
	bus     *eventbus.Bus
	api     *client.Client
	session *sessionFile
	out     io.Writer
	errOut  io.Writer
}

func newApp(cfg *config.ClientConfig, out, errOut io.Writer) *app {
	log := logger.NewWithWriter(errOut, cfg.LogLevel)
	bus := eventbus.New(eventbus.WithLogger(log))

	a := &app{
		cfg:     cfg,
		log:     log,
		bus:     bus,
		session: newSessionFile(cfg.SessionFile),
		out:     out,
		errOut:  errOut,
	}
	a.api = client.New(client.Options{
		BaseURL:    cfg.APIURL,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		Bus:        bus,
		Log:        log,
	})

	// keep the session file in step with the client
	bus.On(eventbus.SessionChanged, func(payload interface{}) {
		change, ok := payload.(eventbus.SessionChange)
		if !ok {
			return
		}
		if change.Active {
			if err := a.session.Save(a.api.Session()); err != nil {
				log.Warn("could not save session", "error", err.Error())
			}
			return
		}
		if err := a.session.Remove(); err != nil {
			log.Warn("could not remove session", "error", err.Error())
		}
	})
	return a
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "sorsoctl",
		Short:         "Sorso Club table reservations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(
		newEventsCmd(a),
		newPackagesCmd(a),
		newBookCmd(a),
		newStaffCmd(a),
	)
	return root
}

func run(ctx context.Context, cfg *config.ClientConfig, args []string, out, errOut io.Writer) int {
	a := newApp(cfg, out, errOut)
	root := newRootCmd(a)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		var ue *userError
		if errors.As(err, &ue) {
			fmt.Fprintln(errOut, ue.msg)
			if ue.err != nil {
				a.log.Debug("command failed", "error", ue.err.Error())
			}
		} else {
			fmt.Fprintln(errOut, err.Error())
		}
		return 1
	}
	return 0
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, config.LoadClient(), os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
