package commands

import (
	"context"
	"fmt"
	"io"

	"supatodo/internal/config"
	"supatodo/internal/exitcode"
	"supatodo/internal/output"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
type ListCmd struct{ noFlags }

func (c *ListCmd) Name() string       { return "list" }
func (c *ListCmd) Aliases() []string  { return []string{"ls"} }
func (c *ListCmd) Synopsis() string   { return "List tasks, newest first" }
func (c *ListCmd) Usage() string      { return "supatodo list" }
func (c *ListCmd) NeedsBackend() bool { return true }
func (c *ListCmd) NeedsAuth() bool    { return true }

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	list, err := store(ctx, cfg, env).List(ctx, env.User.ID)
	if err != nil {
		return backendFailure(errOut, err)
	}

	if len(list) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, output.EmptyList)
		}
		return exitcode.Success
	}
	output.FormatTasks(out, list)
	return exitcode.Success
}
