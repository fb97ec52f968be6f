package tasks_test

import (
	"context"
	"errors"
	"testing"

	"supatodo/internal/tasks"
	"supatodo/internal/testutil"
)

var errBoom = errors.New("boom")

// newView seeds "Pay rent" then "Buy milk" so the view lists Buy milk first.
func newView(t *testing.T, storeOpts []tasks.StoreOption, viewOpts ...tasks.ViewOption) (*tasks.View, *testutil.FakeBackend) {
	t.Helper()
	store, fb, owner := newStore(t, storeOpts...)
	fb.SeedTask(owner, "Pay rent", false)
	fb.SeedTask(owner, "Buy milk", false)

	v := tasks.NewView(store, owner, viewOpts...)
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return v, fb
}

func TestViewAddPrepends(t *testing.T) {
	v, _ := newView(t, nil)

	created, err := v.Add(context.Background(), "Call mom")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if created.Title != "Call mom" || created.Completed {
		t.Errorf("unexpected task %+v", created)
	}
	if got, want := titles(v.Tasks()), []string{"Call mom", "Buy milk", "Pay rent"}; !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if s := v.Snapshot(); s.Input != "" {
		t.Errorf("expected input cleared, got %q", s.Input)
	}
}

func TestViewAddBlankIsNoop(t *testing.T) {
	v, fb := newView(t, nil)

	if _, err := v.Add(context.Background(), "   "); !errors.Is(err, tasks.ErrBlankTitle) {
		t.Errorf("expected ErrBlankTitle, got %v", err)
	}
	if n := fb.Calls("insert"); n != 0 {
		t.Errorf("expected no insert, got %d", n)
	}
	if len(v.Tasks()) != 2 {
		t.Errorf("list changed: %v", titles(v.Tasks()))
	}
	if v.Err() != nil {
		t.Errorf("blank title should not set the error state, got %v", v.Err())
	}
}

func TestViewAddFailureKeepsInput(t *testing.T) {
	v, fb := newView(t, nil)
	fb.InsertErr = errBoom

	if _, err := v.Add(context.Background(), "Call mom"); !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	s := v.Snapshot()
	if s.Input != "Call mom" {
		t.Errorf("expected input kept, got %q", s.Input)
	}
	if len(s.Rows) != 2 {
		t.Errorf("list changed: %d rows", len(s.Rows))
	}
	var opErr *tasks.OpError
	if !errors.As(s.Err, &opErr) || opErr.Op != "add" {
		t.Errorf("expected add OpError, got %v", s.Err)
	}
}

func TestViewToggleInvolutive(t *testing.T) {
	v, _ := newView(t, nil)
	ctx := context.Background()
	id := v.Tasks()[0].ID

	if err := v.Toggle(ctx, id); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	s := v.Snapshot()
	if s.Rows[0].Status != tasks.StatusCompleted {
		t.Errorf("expected Completed, got %s", s.Rows[0].Status)
	}
	if s.Rows[1].Status != tasks.StatusPending {
		t.Errorf("other task changed: %s", s.Rows[1].Status)
	}

	if err := v.Toggle(ctx, id); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if v.Tasks()[0].Completed {
		t.Error("expected task back to pending")
	}

	// The table matches the view.
	if err := v.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v.Tasks()[0].Completed {
		t.Error("stored flag should be pending")
	}
}

func TestViewToggleUnknown(t *testing.T) {
	v, fb := newView(t, nil)

	if err := v.Toggle(context.Background(), "missing"); !errors.Is(err, tasks.ErrUnknownTask) {
		t.Errorf("expected ErrUnknownTask, got %v", err)
	}
	if n := fb.Calls("update"); n != 0 {
		t.Errorf("expected no update, got %d", n)
	}
}

func TestViewFailurePolicy(t *testing.T) {
	tests := []struct {
		name      string
		policy    tasks.FailurePolicy
		completed bool
	}{
		{"keep", tasks.KeepOnFailure, true},
		{"rollback", tasks.RollbackOnFailure, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, fb := newView(t, nil, tasks.WithFailurePolicy(tt.policy))
			fb.UpdateErr = errBoom
			id := v.Tasks()[0].ID

			if err := v.Toggle(context.Background(), id); !errors.Is(err, errBoom) {
				t.Fatalf("expected errBoom, got %v", err)
			}
			if got := v.Tasks()[0].Completed; got != tt.completed {
				t.Errorf("expected completed=%v, got %v", tt.completed, got)
			}
			if v.Err() == nil {
				t.Error("expected error state")
			}

			v.DismissError()
			if v.Err() != nil {
				t.Error("expected error dismissed")
			}
		})
	}
}

func TestViewEdit(t *testing.T) {
	v, _ := newView(t, nil)
	ctx := context.Background()
	target := v.Tasks()[1]

	if err := v.StartEdit(target.ID); err != nil {
		t.Fatalf("StartEdit failed: %v", err)
	}
	s := v.Snapshot()
	if !s.Rows[1].Editing || s.Rows[1].Draft != "Pay rent" {
		t.Errorf("expected edit mode with draft, got %+v", s.Rows[1])
	}
	if s.Rows[0].Editing {
		t.Error("only one row should be in edit mode")
	}

	if err := v.SaveEdit(ctx, target.ID, "  Pay rent today "); err != nil {
		t.Fatalf("SaveEdit failed: %v", err)
	}
	got := v.Tasks()[1]
	if got.Title != "Pay rent today" {
		t.Errorf("expected new title, got %q", got.Title)
	}
	if got.ID != target.ID || got.Completed != target.Completed || !got.CreatedAt.Equal(target.CreatedAt) {
		t.Errorf("only the title should change: before %+v, after %+v", target, got)
	}
	if v.Snapshot().Rows[1].Editing {
		t.Error("expected edit mode left")
	}
}

func TestViewSaveEditBlankKeepsEditing(t *testing.T) {
	v, fb := newView(t, nil)
	id := v.Tasks()[0].ID
	_ = v.StartEdit(id)

	if err := v.SaveEdit(context.Background(), id, "  "); !errors.Is(err, tasks.ErrBlankTitle) {
		t.Fatalf("expected ErrBlankTitle, got %v", err)
	}
	if n := fb.Calls("update"); n != 0 {
		t.Errorf("expected no update, got %d", n)
	}
	row := v.Snapshot().Rows[0]
	if !row.Editing {
		t.Error("expected still editing")
	}
	if row.Task.Title != "Buy milk" {
		t.Errorf("title changed to %q", row.Task.Title)
	}
}

func TestViewSaveEditNotEditing(t *testing.T) {
	v, _ := newView(t, nil)

	if err := v.SaveEdit(context.Background(), v.Tasks()[0].ID, "x"); !errors.Is(err, tasks.ErrNotEditing) {
		t.Errorf("expected ErrNotEditing, got %v", err)
	}
}

func TestViewSaveEditOtherTask(t *testing.T) {
	v, fb := newView(t, nil)
	milk, rent := v.Tasks()[0], v.Tasks()[1]
	_ = v.StartEdit(milk.ID)
	_ = v.StartEdit(rent.ID)

	if err := v.SaveEdit(context.Background(), milk.ID, "Buy oat milk"); !errors.Is(err, tasks.ErrNotEditing) {
		t.Fatalf("expected ErrNotEditing, got %v", err)
	}
	if n := fb.Calls("update"); n != 0 {
		t.Errorf("expected no update, got %d", n)
	}
	if got, want := titles(v.Tasks()), []string{"Buy milk", "Pay rent"}; !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if row := v.Snapshot().Rows[1]; !row.Editing || row.Draft != "Pay rent" {
		t.Errorf("expected Pay rent still in edit mode, got %+v", row)
	}
}

func TestViewCancelEdit(t *testing.T) {
	v, fb := newView(t, nil)
	_ = v.StartEdit(v.Tasks()[0].ID)
	v.CancelEdit()

	for _, r := range v.Snapshot().Rows {
		if r.Editing {
			t.Errorf("row %q still editing", r.Task.Title)
		}
	}
	if n := fb.Calls("update"); n != 0 {
		t.Errorf("expected no update, got %d", n)
	}
}

func TestViewSaveEditRollback(t *testing.T) {
	v, fb := newView(t, nil, tasks.WithFailurePolicy(tasks.RollbackOnFailure))
	fb.UpdateErr = errBoom
	id := v.Tasks()[0].ID
	_ = v.StartEdit(id)

	if err := v.SaveEdit(context.Background(), id, "Buy bread"); !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if got := v.Tasks()[0].Title; got != "Buy milk" {
		t.Errorf("expected rollback to Buy milk, got %q", got)
	}
}

func TestViewDelete(t *testing.T) {
	v, fb := newView(t, nil)
	ctx := context.Background()
	id := v.Tasks()[0].ID

	if err := v.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, want := titles(v.Tasks()), []string{"Pay rent"}; !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if n := len(fb.Rows(testutil.TasksTable)); n != 1 {
		t.Errorf("expected 1 stored row, got %d", n)
	}

	// Unknown ids are a no-op.
	if err := v.Delete(ctx, "missing"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if n := fb.Calls("delete"); n != 1 {
		t.Errorf("expected 1 delete call, got %d", n)
	}
}

func TestViewDeleteRollbackRestoresPosition(t *testing.T) {
	v, fb := newView(t, nil, tasks.WithFailurePolicy(tasks.RollbackOnFailure))
	ctx := context.Background()
	_, _ = v.Add(ctx, "Call mom")
	fb.DeleteErr = errBoom

	if err := v.Delete(ctx, v.Tasks()[1].ID); !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if got, want := titles(v.Tasks()), []string{"Call mom", "Buy milk", "Pay rent"}; !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestViewReorder(t *testing.T) {
	v, fb := newView(t, nil)
	ctx := context.Background()
	_, _ = v.Add(ctx, "Call mom")
	list := v.Tasks() // Call mom, Buy milk, Pay rent

	if err := v.Reorder(ctx, list[0].ID, list[2].ID); err != nil {
		t.Fatalf("Reorder failed: %v", err)
	}
	if got, want := titles(v.Tasks()), []string{"Buy milk", "Pay rent", "Call mom"}; !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	// Ids are resolved against the current list, not the original one.
	if err := v.Reorder(ctx, list[1].ID, list[0].ID); err != nil {
		t.Fatalf("Reorder failed: %v", err)
	}
	if got, want := titles(v.Tasks()), []string{"Pay rent", "Call mom", "Buy milk"}; !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if err := v.Reorder(ctx, list[2].ID, list[0].ID); err != nil {
		t.Fatalf("Reorder failed: %v", err)
	}
	if got, want := titles(v.Tasks()), []string{"Call mom", "Pay rent", "Buy milk"}; !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	// Ephemeral order writes nothing.
	if n := fb.Calls("update"); n != 0 {
		t.Errorf("expected no update, got %d", n)
	}
	if err := v.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got, want := titles(v.Tasks()), []string{"Call mom", "Buy milk", "Pay rent"}; !equal(got, want) {
		t.Errorf("expected stored order %v after reload, got %v", want, got)
	}
}

func TestViewReorderNoop(t *testing.T) {
	v, _ := newView(t, nil)
	ctx := context.Background()
	before := titles(v.Tasks())
	id := v.Tasks()[0].ID

	for _, pair := range [][2]tasks.ID{{id, id}, {"missing", id}, {id, "missing"}} {
		if err := v.Reorder(ctx, pair[0], pair[1]); err != nil {
			t.Errorf("Reorder(%q, %q): %v", pair[0], pair[1], err)
		}
	}
	if got := titles(v.Tasks()); !equal(got, before) {
		t.Errorf("expected %v, got %v", before, got)
	}
}

func TestViewReorderPersisted(t *testing.T) {
	v, _ := newView(t, []tasks.StoreOption{tasks.WithPersistedOrder(true)})
	ctx := context.Background()
	list := v.Tasks() // Buy milk, Pay rent

	if err := v.Reorder(ctx, list[1].ID, list[0].ID); err != nil {
		t.Fatalf("Reorder failed: %v", err)
	}
	if err := v.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got, want := titles(v.Tasks()), []string{"Pay rent", "Buy milk"}; !equal(got, want) {
		t.Errorf("expected %v after reload, got %v", want, got)
	}
}

func TestViewLoadFailureKeepsList(t *testing.T) {
	v, fb := newView(t, nil)
	fb.SelectErr = errBoom

	if err := v.Load(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	s := v.Snapshot()
	if len(s.Rows) != 2 {
		t.Errorf("expected previous rows kept, got %d", len(s.Rows))
	}
	if s.Err == nil {
		t.Error("expected error state")
	}
}

func TestViewEmptyState(t *testing.T) {
	store, _, owner := newStore(t)
	v := tasks.NewView(store, owner)
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	s := v.Snapshot()
	if !s.Loaded || !s.Empty() {
		t.Errorf("expected loaded empty state, got %+v", s)
	}
}
