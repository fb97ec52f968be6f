package commands

import (
	"context"
	"fmt"
	"io"

	"supatodo/internal/config"
	"supatodo/internal/exitcode"
	"supatodo/internal/tasks"
)

func init() {
	Register(&ToggleCmd{})
}

// ToggleCmd implements the toggle command. It prints the new status label.
type ToggleCmd struct{ noFlags }

func (c *ToggleCmd) Name() string       { return "toggle" }
func (c *ToggleCmd) Aliases() []string  { return []string{"done"} }
func (c *ToggleCmd) Synopsis() string   { return "Flip a task between Pending and Completed" }
func (c *ToggleCmd) Usage() string      { return "supatodo toggle <n>" }
func (c *ToggleCmd) NeedsBackend() bool { return true }
func (c *ToggleCmd) NeedsAuth() bool    { return true }

func (c *ToggleCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	num, err := ParseTaskRef(args)
	if err != nil {
		return refFailure(errOut, err)
	}

	st := store(ctx, cfg, env)
	task, err := findTask(ctx, st, env.User.ID, num)
	if err != nil {
		return backendFailure(errOut, err)
	}
	next, err := st.ToggleCompletion(ctx, env.User.ID, task.ID, task.Completed)
	if err != nil {
		return backendFailure(errOut, err)
	}

	if !cfg.Quiet {
		task.Completed = next
		fmt.Fprintln(out, tasks.Status(task))
	}
	return exitcode.Success
}
