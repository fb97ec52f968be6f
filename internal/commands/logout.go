package commands

import (
	"context"
	"fmt"
	"io"

	"supatodo/internal/config"
	"supatodo/internal/exitcode"
	"supatodo/internal/logging"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command. The remote sign-out is best
// effort; the stored token is removed either way.
type LogoutCmd struct{ noFlags }

func (c *LogoutCmd) Name() string       { return "logout" }
func (c *LogoutCmd) Aliases() []string  { return nil }
func (c *LogoutCmd) Synopsis() string   { return "Sign out and remove stored credentials" }
func (c *LogoutCmd) Usage() string      { return "supatodo logout [common flags]" }
func (c *LogoutCmd) NeedsBackend() bool { return true }
func (c *LogoutCmd) NeedsAuth() bool    { return false }

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if !cfg.HasToken() {
		if !cfg.Quiet {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success
	}

	log := env.Log
	if log == nil {
		log = logging.Discard()
	}
	if tok, err := cfg.LoadToken(); err == nil {
		if sess, err := env.Backend.RestoreSession(tok); err == nil {
			if err := env.Backend.SignOut(ctx, sess); err != nil {
				log.Warn("remote sign-out failed", "err", err)
			}
		}
	}

	if err := cfg.RemoveToken(); err != nil {
		fmt.Fprintf(errOut, "error: failed to remove token: %v\n", err)
		return exitcode.AuthError
	}
	return printOK(cfg, out)
}
