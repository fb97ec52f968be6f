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
	Register(&MoveCmd{})
}

// MoveCmd implements the move command. Only meaningful with persisted order:
// an ephemeral order would be gone before the next list.
type MoveCmd struct{ noFlags }

func (c *MoveCmd) Name() string       { return "move" }
func (c *MoveCmd) Aliases() []string  { return []string{"mv"} }
func (c *MoveCmd) Synopsis() string   { return "Move a task to another task's slot" }
func (c *MoveCmd) Usage() string      { return "supatodo move <n> <to>" }
func (c *MoveCmd) NeedsBackend() bool { return true }
func (c *MoveCmd) NeedsAuth() bool    { return true }

func (c *MoveCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if !cfg.Tasks.PersistOrder() {
		fmt.Fprintf(errOut, "error: task order is not persisted (set tasks.order: %s)\n", config.OrderPersisted)
		return exitcode.UserError
	}
	from, err := ParseTaskRef(args)
	if err != nil {
		return refFailure(errOut, err)
	}
	if len(args) < 2 {
		fmt.Fprintln(errOut, "error: target task reference required")
		return exitcode.UserError
	}
	to, err := ParseTaskRef(args[1:])
	if err != nil {
		return refFailure(errOut, err)
	}

	view := tasks.NewView(store(ctx, cfg, env), env.User.ID,
		tasks.WithFailurePolicy(tasks.RollbackOnFailure),
		tasks.WithLogger(env.Log),
	)
	if err := view.Load(ctx); err != nil {
		return backendFailure(errOut, err)
	}
	list := view.Tasks()
	for _, n := range []int{from, to} {
		if n > len(list) {
			return backendFailure(errOut, errOutOfRange(n))
		}
	}

	if err := view.Reorder(ctx, list[from-1].ID, list[to-1].ID); err != nil {
		return backendFailure(errOut, err)
	}
	return printOK(cfg, out)
}
