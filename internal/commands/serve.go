package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"supatodo/internal/config"
	"supatodo/internal/exitcode"
	"supatodo/internal/web"
)

func init() {
	Register(&ServeCmd{})
}

// ServeCmd implements the serve command.
type ServeCmd struct {
	listen string
}

func (c *ServeCmd) Name() string       { return "serve" }
func (c *ServeCmd) Aliases() []string  { return []string{"web"} }
func (c *ServeCmd) Synopsis() string   { return "Serve the web client" }
func (c *ServeCmd) Usage() string      { return "supatodo serve [common flags] [--listen <addr>]" }
func (c *ServeCmd) NeedsBackend() bool { return true }
func (c *ServeCmd) NeedsAuth() bool    { return false }

func (c *ServeCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.listen, "listen", "l", "", "")
}

func (c *ServeCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	addr := cfg.Server.Listen
	if c.listen != "" {
		addr = c.listen
	}

	srv, err := web.New(env.Backend, cfg, web.WithLogger(env.Log))
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "serving on %s\n", addr)
	}
	if err := srv.Run(ctx, addr); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
