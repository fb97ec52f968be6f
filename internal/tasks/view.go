package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"supatodo/internal/logging"
)

// FailurePolicy decides what happens to an optimistic local change when the
// matching store call fails. Either way the failure is kept as the view's
// error until dismissed.
type FailurePolicy int

const (
	// KeepOnFailure leaves the local change in place; the list may diverge
	// from the table until the next Load.
	KeepOnFailure FailurePolicy = iota

	// RollbackOnFailure reverts the local change.
	RollbackOnFailure
)

// OpError records a failed store call.
type OpError struct {
	Op     string
	TaskID ID
	Err    error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("could not %s task: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Row is one rendered task.
type Row struct {
	Task    Task
	Status  string
	Editing bool
	Draft   string
}

// State is a render snapshot of a View.
type State struct {
	Rows   []Row
	Input  string
	Err    error
	Loaded bool
}

// Empty reports whether there is nothing to list.
func (s State) Empty() bool { return len(s.Rows) == 0 }

// View is the session's ordered in-memory task list. Mutations update the
// list immediately and then call the store; Add is the exception and only
// prepends what the store returned.
type View struct {
	mu     sync.Mutex
	store  *Store
	owner  string
	policy FailurePolicy
	log    *slog.Logger

	tasks  []Task
	loaded bool
	input  string
	editID ID
	draft  string
	err    error
}

// ViewOption configures a View.
type ViewOption func(*View)

// WithFailurePolicy sets the failure policy.
func WithFailurePolicy(p FailurePolicy) ViewOption {
	return func(v *View) { v.policy = p }
}

// WithLogger sets the logger for store failures.
func WithLogger(l *slog.Logger) ViewOption {
	return func(v *View) {
		if l != nil {
			v.log = l
		}
	}
}

// NewView creates an empty view of owner's tasks. Call Load to fill it.
func NewView(store *Store, owner string, opts ...ViewOption) *View {
	v := &View{store: store, owner: owner, log: logging.Discard()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Owner returns the owner identifier the view is scoped to.
func (v *View) Owner() string { return v.owner }

func (v *View) index(id ID) int {
	for i, t := range v.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (v *View) fail(op string, id ID, err error) {
	v.err = &OpError{Op: op, TaskID: id, Err: err}
	v.log.Warn("task store call failed", "op", op, "task", string(id), "owner", v.owner, "err", err)
}

// Load replaces the list with the store's. On failure the previous list is kept.
func (v *View) Load(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	list, err := v.store.List(ctx, v.owner)
	if err != nil {
		v.fail("load", "", err)
		return err
	}
	v.tasks = list
	v.loaded = true
	if v.editID != "" && v.index(v.editID) < 0 {
		v.editID, v.draft = "", ""
	}
	return nil
}

// Add creates a task and puts the stored record at the front of the list.
// Blank titles are rejected without calling the store.
func (v *View) Add(ctx context.Context, title string) (Task, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if strings.TrimSpace(title) == "" {
		return Task{}, ErrBlankTitle
	}
	v.input = title

	created, err := v.store.Create(ctx, v.owner, title)
	if err != nil {
		v.fail("add", "", err)
		return Task{}, err
	}
	v.tasks = append([]Task{created}, v.tasks...)
	v.input = ""
	return created, nil
}

// Toggle flips the completion flag locally and writes the flipped value.
func (v *View) Toggle(ctx context.Context, id ID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	i := v.index(id)
	if i < 0 {
		return ErrUnknownTask
	}
	current := v.tasks[i].Completed
	v.tasks[i].Completed = !current

	if _, err := v.store.ToggleCompletion(ctx, v.owner, id, current); err != nil {
		if v.policy == RollbackOnFailure {
			if j := v.index(id); j >= 0 && v.tasks[j].Completed == !current {
				v.tasks[j].Completed = current
			}
		}
		v.fail("update", id, err)
		return err
	}
	return nil
}

// StartEdit enters edit mode for id with its title as the draft.
func (v *View) StartEdit(id ID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	i := v.index(id)
	if i < 0 {
		return ErrUnknownTask
	}
	v.editID = id
	v.draft = v.tasks[i].Title
	return nil
}

// CancelEdit leaves edit mode without saving.
func (v *View) CancelEdit() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.editID, v.draft = "", ""
}

// SaveEdit replaces the title of id, which must be the task in edit mode,
// with draft and leaves edit mode. A blank draft is rejected and edit mode is
// kept. Saving any other task is ErrNotEditing and changes nothing.
func (v *View) SaveEdit(ctx context.Context, id ID, draft string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.editID == "" || id != v.editID {
		return ErrNotEditing
	}
	if strings.TrimSpace(draft) == "" {
		v.draft = draft
		return ErrBlankTitle
	}

	v.editID, v.draft = "", ""
	i := v.index(id)
	if i < 0 {
		return ErrUnknownTask
	}

	title := strings.TrimSpace(draft)
	previous := v.tasks[i].Title
	v.tasks[i].Title = title

	if err := v.store.UpdateTitle(ctx, v.owner, id, title); err != nil {
		if v.policy == RollbackOnFailure {
			if j := v.index(id); j >= 0 && v.tasks[j].Title == title {
				v.tasks[j].Title = previous
			}
		}
		v.fail("rename", id, err)
		return err
	}
	return nil
}

// Delete removes id from the list and the store. Unknown ids are a no-op.
func (v *View) Delete(ctx context.Context, id ID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	i := v.index(id)
	if i < 0 {
		return nil
	}
	removed := v.tasks[i]
	v.tasks = append(v.tasks[:i:i], v.tasks[i+1:]...)
	if v.editID == id {
		v.editID, v.draft = "", ""
	}

	if err := v.store.Delete(ctx, v.owner, id); err != nil {
		if v.policy == RollbackOnFailure && v.index(id) < 0 {
			at := min(i, len(v.tasks))
			v.tasks = append(v.tasks[:at:at], append([]Task{removed}, v.tasks[at:]...)...)
		}
		v.fail("delete", id, err)
		return err
	}
	return nil
}

// Reorder moves the dragged task to the slot of the drop target, both
// resolved by identity on the current list. Unknown ids or dragID == dropID
// are a no-op. Positions are written only when the store persists order.
func (v *View) Reorder(ctx context.Context, dragID, dropID ID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	from, to := v.index(dragID), v.index(dropID)
	if from < 0 || to < 0 || from == to {
		return nil
	}

	previous := append([]Task(nil), v.tasks...)
	v.tasks = move(v.tasks, from, to)

	if !v.store.PersistsOrder() {
		return nil
	}
	if err := v.store.SavePositions(ctx, v.owner, v.tasks); err != nil {
		if v.policy == RollbackOnFailure {
			v.tasks = previous
		}
		v.fail("reorder", dragID, err)
		return err
	}
	for i := range v.tasks {
		pos := i
		v.tasks[i].Position = &pos
	}
	return nil
}

// move removes list[from] and reinserts it at index to of the shortened list.
func move(list []Task, from, to int) []Task {
	moved := list[from]
	out := make([]Task, 0, len(list))
	out = append(out, list[:from]...)
	out = append(out, list[from+1:]...)
	out = append(out[:to], append([]Task{moved}, out[to:]...)...)
	return out
}

// Tasks returns a copy of the list in display order.
func (v *View) Tasks() []Task {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Task(nil), v.tasks...)
}

// Err returns the last store failure, or nil.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// DismissError clears the error state.
func (v *View) DismissError() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.err = nil
}

// Snapshot returns the state to render.
func (v *View) Snapshot() State {
	v.mu.Lock()
	defer v.mu.Unlock()

	rows := make([]Row, len(v.tasks))
	for i, t := range v.tasks {
		rows[i] = Row{Task: t, Status: Status(t)}
		if t.ID == v.editID {
			rows[i].Editing = true
			rows[i].Draft = v.draft
		}
	}
	return State{Rows: rows, Input: v.input, Err: v.err, Loaded: v.loaded}
}
