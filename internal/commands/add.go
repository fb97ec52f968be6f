package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"supatodo/internal/config"
	"supatodo/internal/exitcode"
	"supatodo/internal/tasks"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct{ noFlags }

func (c *AddCmd) Name() string       { return "add" }
func (c *AddCmd) Aliases() []string  { return []string{"create"} }
func (c *AddCmd) Synopsis() string   { return "Create a task" }
func (c *AddCmd) Usage() string      { return "supatodo add <title...>" }
func (c *AddCmd) NeedsBackend() bool { return true }
func (c *AddCmd) NeedsAuth() bool    { return true }

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	title := strings.Join(args, " ")
	if strings.TrimSpace(title) == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	if _, err := store(ctx, cfg, env).Create(ctx, env.User.ID, title); err != nil {
		if errors.Is(err, tasks.ErrBlankTitle) {
			fmt.Fprintln(errOut, "error: title required")
			return exitcode.UserError
		}
		return backendFailure(errOut, err)
	}
	return printOK(cfg, out)
}
