package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"supatodo/internal/config"
	"supatodo/internal/exitcode"
	"supatodo/internal/service"
)

func init() {
	Register(&LoginCmd{})
	Register(&SignupCmd{})
}

// credentialFlags are shared by login and signup.
type credentialFlags struct {
	email string
	in    io.Reader
}

// SetInput sets where credentials are read from (for testing).
func (c *credentialFlags) SetInput(r io.Reader) {
	c.in = r
}

func (c *credentialFlags) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.email, "email", "e", "", "")
}

func (c *credentialFlags) read(errOut io.Writer) (email, password string, code int) {
	email, password, err := newPrompter(c.in, errOut).credentials(c.email)
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to read credentials: %v\n", err)
		return "", "", exitcode.UserError
	}
	if email == "" || password == "" {
		fmt.Fprintln(errOut, "error: email and password are required")
		return "", "", exitcode.UserError
	}
	return email, password, exitcode.Success
}

// LoginCmd implements the login command.
type LoginCmd struct{ credentialFlags }

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Sign in with email and password" }
func (c *LoginCmd) Usage() string      { return "supatodo login [common flags] [--email <email>]" }
func (c *LoginCmd) NeedsBackend() bool { return true }
func (c *LoginCmd) NeedsAuth() bool    { return false }

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if storedSessionValid(ctx, cfg, env.Backend) {
		if !cfg.Quiet {
			fmt.Fprintln(out, "already logged in")
		}
		return exitcode.Success
	}

	email, password, code := c.read(errOut)
	if code != exitcode.Success {
		return code
	}

	sess, err := env.Backend.SignIn(ctx, email, password)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}
	if err := cfg.SaveToken(sess.Token()); err != nil {
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}
	return printOK(cfg, out)
}

// storedSessionValid reports whether token.json holds a session the
// provider still recognises.
func storedSessionValid(ctx context.Context, cfg *config.Config, backend service.IdentityProvider) bool {
	tok, err := cfg.LoadToken()
	if err != nil {
		return false
	}
	sess, err := backend.RestoreSession(tok)
	if err != nil {
		return false
	}
	_, err = backend.CurrentUser(ctx, sess)
	return err == nil
}

// SignupCmd implements the signup command.
type SignupCmd struct{ credentialFlags }

func (c *SignupCmd) Name() string       { return "signup" }
func (c *SignupCmd) Aliases() []string  { return []string{"register"} }
func (c *SignupCmd) Synopsis() string   { return "Create an account" }
func (c *SignupCmd) Usage() string      { return "supatodo signup [common flags] [--email <email>]" }
func (c *SignupCmd) NeedsBackend() bool { return true }
func (c *SignupCmd) NeedsAuth() bool    { return false }

func (c *SignupCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	email, password, code := c.read(errOut)
	if code != exitcode.Success {
		return code
	}

	sess, err := env.Backend.SignUp(ctx, email, password)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	msg := "Signup successful 🎉"
	if sess == nil {
		msg += " Check your email to confirm the account, then run: supatodo login"
	} else if err := cfg.SaveToken(sess.Token()); err != nil {
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, msg)
	}
	return exitcode.Success
}
