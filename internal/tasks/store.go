package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"supatodo/internal/service"
)

// DefaultTable is the data table holding tasks.
const DefaultTable = "todos"

var (
	// ErrBlankTitle is returned for empty or whitespace-only titles.
	ErrBlankTitle = errors.New("title required")

	// ErrNoOwner is returned when no owner identifier is supplied.
	ErrNoOwner = errors.New("owner required")

	// ErrUnknownTask is returned when a task is not in the list.
	ErrUnknownTask = errors.New("task not found")

	// ErrNotEditing is returned when saving without an edit in progress.
	ErrNotEditing = errors.New("no task is being edited")
)

// Store performs task operations against the data table.
// Every operation is scoped to the caller-supplied owner.
// Writes carry no concurrency token: the last writer wins.
type Store struct {
	db           service.DataTable
	table        string
	persistOrder bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTable sets the table name.
func WithTable(name string) StoreOption {
	return func(s *Store) {
		if name != "" {
			s.table = name
		}
	}
}

// WithPersistedOrder makes List honour saved positions and enables SavePositions.
func WithPersistedOrder(enabled bool) StoreOption {
	return func(s *Store) { s.persistOrder = enabled }
}

// NewStore creates a Store over db.
func NewStore(db service.DataTable, opts ...StoreOption) *Store {
	s := &Store{db: db, table: DefaultTable}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PersistsOrder reports whether list order is written to the table.
func (s *Store) PersistsOrder() bool {
	return s.persistOrder
}

func ownerFilters(owner string, id ID) []service.Filter {
	return []service.Filter{service.Eq("id", id), service.Eq("user_id", owner)}
}

// List returns the owner's tasks, newest first. With persisted order,
// positioned tasks follow unpositioned (newly added) ones.
func (s *Store) List(ctx context.Context, owner string) ([]Task, error) {
	if owner == "" {
		return nil, ErrNoOwner
	}

	q := service.Query{
		Filters: []service.Filter{service.Eq("user_id", owner)},
		Order:   []service.Order{{Column: "created_at", Descending: true}},
	}
	if s.persistOrder {
		q.Order = append([]service.Order{{Column: "position", NullsFirst: true}}, q.Order...)
	}

	var rows []Task
	if err := s.db.Select(ctx, s.table, q, &rows); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if rows == nil {
		rows = []Task{}
	}
	return rows, nil
}

// Create inserts an open task and returns the stored record.
func (s *Store) Create(ctx context.Context, owner, title string) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, ErrBlankTitle
	}
	if owner == "" {
		return Task{}, ErrNoOwner
	}

	var created Task
	row := newTask{Title: title, OwnerID: owner, Completed: false}
	if err := s.db.Insert(ctx, s.table, row, &created); err != nil {
		return Task{}, fmt.Errorf("create task: %w", err)
	}
	return created, nil
}

// UpdateTitle replaces the title of one task.
func (s *Store) UpdateTitle(ctx context.Context, owner string, id ID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrBlankTitle
	}
	if owner == "" {
		return ErrNoOwner
	}
	if err := s.db.Update(ctx, s.table, ownerFilters(owner, id), map[string]any{"title": title}); err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}
	return nil
}

// ToggleCompletion writes the negation of current, the caller's last known
// value, without re-reading the row. Returns the value written.
func (s *Store) ToggleCompletion(ctx context.Context, owner string, id ID, current bool) (bool, error) {
	if owner == "" {
		return current, ErrNoOwner
	}
	next := !current
	if err := s.db.Update(ctx, s.table, ownerFilters(owner, id), map[string]any{"is_completed": next}); err != nil {
		return current, fmt.Errorf("toggle task %s: %w", id, err)
	}
	return next, nil
}

// Delete removes one task.
func (s *Store) Delete(ctx context.Context, owner string, id ID) error {
	if owner == "" {
		return ErrNoOwner
	}
	if err := s.db.Delete(ctx, s.table, ownerFilters(owner, id)); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// SavePositions writes each task's index as its position, skipping tasks
// whose stored position already matches. It stops at the first failure.
func (s *Store) SavePositions(ctx context.Context, owner string, list []Task) error {
	if owner == "" {
		return ErrNoOwner
	}
	for i, t := range list {
		if t.Position != nil && *t.Position == i {
			continue
		}
		if err := s.db.Update(ctx, s.table, ownerFilters(owner, t.ID), map[string]any{"position": i}); err != nil {
			return fmt.Errorf("save position of task %s: %w", t.ID, err)
		}
	}
	return nil
}
