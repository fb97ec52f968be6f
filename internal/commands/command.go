// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"supatodo/internal/config"
	"supatodo/internal/service"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsBackend returns true if the command talks to the backend.
	NeedsBackend() bool

	// NeedsAuth returns true if the command requires a signed-in session.
	// Commands needing auth also need the backend.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *pflag.FlagSet)

	// Run executes the command.
	// cfg is always provided.
	// env.Backend is nil unless NeedsBackend or NeedsAuth returns true;
	// env.Session and env.User are set only when NeedsAuth returns true.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int
}

// Env carries the collaborators a command runs against.
type Env struct {
	Backend service.Backend
	Session *service.Session
	User    service.User
	Log     *slog.Logger
}

// noFlags is embedded by commands without flags of their own.
type noFlags struct{}

func (noFlags) RegisterFlags(fs *pflag.FlagSet) {}
