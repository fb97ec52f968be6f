package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"supatodo/internal/config"
	"supatodo/internal/exitcode"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command.
type EditCmd struct{ noFlags }

func (c *EditCmd) Name() string       { return "edit" }
func (c *EditCmd) Aliases() []string  { return []string{"rename"} }
func (c *EditCmd) Synopsis() string   { return "Replace a task's title" }
func (c *EditCmd) Usage() string      { return "supatodo edit <n> <title...>" }
func (c *EditCmd) NeedsBackend() bool { return true }
func (c *EditCmd) NeedsAuth() bool    { return true }

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	num, err := ParseTaskRef(args)
	if err != nil {
		return refFailure(errOut, err)
	}
	title := strings.TrimSpace(strings.Join(args[1:], " "))
	if title == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	st := store(ctx, cfg, env)
	task, err := findTask(ctx, st, env.User.ID, num)
	if err != nil {
		return backendFailure(errOut, err)
	}
	if err := st.UpdateTitle(ctx, env.User.ID, task.ID, title); err != nil {
		return backendFailure(errOut, err)
	}
	return printOK(cfg, out)
}
