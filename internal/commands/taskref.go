package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"supatodo/internal/tasks"
)

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses the 1-based task number printed by list.
func ParseTaskRef(args []string) (int, error) {
	if len(args) == 0 {
		return 0, ErrTaskRefRequired
	}
	if !isAllDigits(args[0]) {
		return 0, fmt.Errorf("invalid task reference: %s", args[0])
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("task number out of range: %s", args[0])
	}
	return n, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// errOutOfRange reports a task number past the end of the list.
type errOutOfRange int

func (e errOutOfRange) Error() string {
	return fmt.Sprintf("task number out of range: %d", int(e))
}

// findTask returns the num-th task (1-based) in list order.
func findTask(ctx context.Context, store *tasks.Store, owner string, num int) (tasks.Task, error) {
	list, err := store.List(ctx, owner)
	if err != nil {
		return tasks.Task{}, err
	}
	if num < 1 || num > len(list) {
		return tasks.Task{}, errOutOfRange(num)
	}
	return list[num-1], nil
}
