package commands

import (
	"context"
	"io"

	"supatodo/internal/config"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{ noFlags }

func (c *RmCmd) Name() string       { return "rm" }
func (c *RmCmd) Aliases() []string  { return []string{"delete"} }
func (c *RmCmd) Synopsis() string   { return "Delete a task" }
func (c *RmCmd) Usage() string      { return "supatodo rm <n>" }
func (c *RmCmd) NeedsBackend() bool { return true }
func (c *RmCmd) NeedsAuth() bool    { return true }

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	num, err := ParseTaskRef(args)
	if err != nil {
		return refFailure(errOut, err)
	}

	st := store(ctx, cfg, env)
	task, err := findTask(ctx, st, env.User.ID, num)
	if err != nil {
		return backendFailure(errOut, err)
	}
	if err := st.Delete(ctx, env.User.ID, task.ID); err != nil {
		return backendFailure(errOut, err)
	}
	return printOK(cfg, out)
}
