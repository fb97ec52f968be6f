// Package cli parses the command line and runs registry commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"supatodo/internal/commands"
	"supatodo/internal/config"
	"supatodo/internal/exitcode"
	"supatodo/internal/logging"
	"supatodo/internal/service"
	"supatodo/internal/session"
)

// DefaultCommand runs when no command is given.
const DefaultCommand = "serve"

// BackendFactory creates the backend from config.
// Used to inject the backend during dispatch.
type BackendFactory func(ctx context.Context, cfg *config.Config) (service.Backend, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  BackendFactory
}

// NewDispatcher creates a new dispatcher with the given registry and backend factory.
func NewDispatcher(registry *commands.Registry, factory BackendFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// globalFlags are accepted by every command.
type globalFlags struct {
	configDir string
	quiet     bool
	debug     bool
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		args = []string{DefaultCommand}
	}

	// Flags require a command.
	name := args[0]
	if strings.HasPrefix(name, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", name)
		return exitcode.UserError
	}

	cmd, ok := d.registry.Find(name)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", name)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args[1:], out, errOut)
}

// dispatchCommand parses flags for cmd with a single-use cobra command.
func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	var g globalFlags
	code := exitcode.Success

	cc := &cobra.Command{
		Use:           cmd.Name(),
		Short:         cmd.Synopsis(),
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, positional []string) error {
			code = d.execute(ctx, cmd, g, positional, out, errOut)
			return nil
		},
	}
	cc.SetArgs(args)
	cc.SetOut(out)
	cc.SetErr(errOut)
	cc.SetHelpFunc(func(*cobra.Command, []string) {
		fmt.Fprintf(out, "Usage:\n  %s\n\n%s\n", cmd.Usage(), cmd.Synopsis())
	})

	fs := cc.Flags()
	fs.StringVar(&g.configDir, "config", "", "")
	fs.BoolVarP(&g.quiet, "quiet", "q", false, "")
	fs.BoolVar(&g.debug, "debug", false, "")
	cmd.RegisterFlags(fs)

	if err := cc.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	return code
}

const notLoggedIn = "error: not logged in (run: supatodo login)"

func (d *Dispatcher) execute(ctx context.Context, cmd commands.Command, g globalFlags, args []string, out, errOut io.Writer) int {
	cfg, err := config.Load(g.configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.AuthError
	}
	cfg.Quiet = g.quiet
	cfg.Debug = g.debug

	log, err := d.logger(cfg, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	env := &commands.Env{Log: log}

	if !cmd.NeedsBackend() && !cmd.NeedsAuth() {
		return cmd.Run(ctx, cfg, env, args, out, errOut)
	}

	if d.factory == nil {
		fmt.Fprintln(errOut, "error: no backend available")
		return exitcode.BackendError
	}
	env.Backend, err = d.factory(ctx, cfg)
	if err != nil {
		if errors.Is(err, config.ErrBackendNotConfigured) {
			fmt.Fprintf(errOut, "error: %s\n", err)
			return exitcode.AuthError
		}
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		return exitcode.BackendError
	}

	if !cmd.NeedsAuth() {
		return cmd.Run(ctx, cfg, env, args, out, errOut)
	}

	tok, err := cfg.LoadToken()
	if err != nil {
		log.Debug("no stored session", "err", err)
		fmt.Fprintln(errOut, notLoggedIn)
		return exitcode.AuthError
	}
	sess, err := env.Backend.RestoreSession(tok)
	if err != nil {
		log.Debug("stored session rejected", "err", err)
		fmt.Fprintln(errOut, notLoggedIn)
		return exitcode.AuthError
	}

	guard := session.NewGuard(env.Backend, nil, session.WithGuardLogger(log))
	defer guard.Deactivate()
	user, ok := guard.Activate(ctx, sess)
	if !ok {
		fmt.Fprintln(errOut, notLoggedIn)
		return exitcode.AuthError
	}
	env.Session, env.User = sess, user

	code := cmd.Run(ctx, cfg, env, args, out, errOut)

	// Keep a refreshed token for the next run.
	if now := sess.Token(); now != nil && now.AccessToken != tok.AccessToken && cfg.HasToken() {
		if err := cfg.SaveToken(now); err != nil {
			log.Warn("failed to save refreshed token", "err", err)
		}
	}
	return code
}

func (d *Dispatcher) logger(cfg *config.Config, errOut io.Writer) (*slog.Logger, error) {
	level := cfg.Log.Level
	if cfg.Debug {
		level = "debug"
	}
	return logging.New(errOut, level, cfg.Log.Format)
}
