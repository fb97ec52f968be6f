package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"supatodo/internal/config"
	"supatodo/internal/exitcode"
	"supatodo/internal/service"
	"supatodo/internal/tasks"
)

// store opens the task store for the signed-in session.
func store(ctx context.Context, cfg *config.Config, env *Env) *tasks.Store {
	return tasks.NewStore(env.Backend.Tables(ctx, env.Session),
		tasks.WithTable(cfg.Tasks.Table),
		tasks.WithPersistedOrder(cfg.Tasks.PersistOrder()),
	)
}

// backendFailure prints err and maps it to an exit code.
func backendFailure(errOut io.Writer, err error) int {
	var oor errOutOfRange
	switch {
	case errors.As(err, &oor):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrNoUser):
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
		return exitcode.AuthError
	}
	fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	return exitcode.BackendError
}

// refFailure prints a task reference parse error.
func refFailure(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %v\n", err)
	return exitcode.UserError
}

func printOK(cfg *config.Config, out io.Writer) int {
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
