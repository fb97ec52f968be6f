package commands_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"supatodo/internal/commands"
	"supatodo/internal/config"
	"supatodo/internal/exitcode"
	"supatodo/internal/service"
	"supatodo/internal/testutil"
)

// fixture is a signed-in user against a FakeBackend.
type fixture struct {
	fb   *testutil.FakeBackend
	cfg  *config.Config
	env  *commands.Env
	user service.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatalf("config.New failed: %v", err)
	}
	fb := testutil.NewFakeBackend()
	user := fb.AddUser("a@b.com", "secret123")
	sess := fb.NewSession(user)
	return &fixture{
		fb:   fb,
		cfg:  cfg,
		env:  &commands.Env{Backend: fb, Session: sess, User: user},
		user: user,
	}
}

// runCommand is a helper to run a command against the fixture.
func (f *fixture) runCommand(t *testing.T, cmd commands.Command, args ...string) (stdout, stderr string, code int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer
	code = cmd.Run(context.Background(), f.cfg, f.env, args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func (f *fixture) titles() []string {
	var out []string
	for _, r := range f.fb.Rows(testutil.TasksTable) {
		out = append(out, r["title"].(string))
	}
	return out
}

// Tests for version command
func TestVersionCommand(t *testing.T) {
	f := newFixture(t)

	stdout, stderr, code := f.runCommand(t, &commands.VersionCmd{})
	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "supatodo 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

// Tests for help command
func TestHelpCommand(t *testing.T) {
	f := newFixture(t)

	var outBuf bytes.Buffer
	code := (&commands.HelpCmd{}).Run(context.Background(), f.cfg, f.env, nil, &outBuf, &bytes.Buffer{})
	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.Contains(outBuf.String(), "Usage:") {
		t.Error("help output should contain 'Usage:'")
	}

	testutil.GoldenString(t, "help", commands.HelpText(commands.DefaultRegistry))
}

// Tests for list command
func TestListCommand_WithTasks(t *testing.T) {
	f := newFixture(t)
	f.fb.SeedTask(f.user.ID, "Pay rent", true)
	f.fb.SeedTask(f.user.ID, "Buy milk", false)
	f.fb.SeedTask("someone-else", "Not mine", false)

	stdout, stderr, code := f.runCommand(t, &commands.ListCmd{})
	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	testutil.GoldenString(t, "list_with_tasks", stdout)
}

func TestListCommand_Empty(t *testing.T) {
	f := newFixture(t)

	stdout, _, code := f.runCommand(t, &commands.ListCmd{})
	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "No tasks yet 👀\n" {
		t.Errorf("expected empty message, got %q", stdout)
	}
}

func TestListCommand_EmptyQuiet(t *testing.T) {
	f := newFixture(t)
	f.cfg.Quiet = true

	stdout, _, code := f.runCommand(t, &commands.ListCmd{})
	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no output in quiet mode, got %q", stdout)
	}
}

func TestListCommand_BackendError(t *testing.T) {
	f := newFixture(t)
	f.fb.SelectErr = service.ErrTimeout

	_, stderr, code := f.runCommand(t, &commands.ListCmd{})
	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if !strings.HasPrefix(stderr, "error: backend error:") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestListCommand_Unauthorized(t *testing.T) {
	f := newFixture(t)
	f.fb.SelectErr = service.ErrUnauthorized

	_, _, code := f.runCommand(t, &commands.ListCmd{})
	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
}

// Tests for add command
func TestAddCommand_Success(t *testing.T) {
	f := newFixture(t)

	stdout, stderr, code := f.runCommand(t, &commands.AddCmd{}, "Buy", "milk")
	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok', got %q", stdout)
	}

	rows := f.fb.Rows(testutil.TasksTable)
	if len(rows) != 1 {
		t.Fatalf("expected 1 task, got %d", len(rows))
	}
	if rows[0]["title"] != "Buy milk" || rows[0]["is_completed"] != false || rows[0]["user_id"] != f.user.ID {
		t.Errorf("unexpected row %v", rows[0])
	}
}

func TestAddCommand_Quiet(t *testing.T) {
	f := newFixture(t)
	f.cfg.Quiet = true

	stdout, _, code := f.runCommand(t, &commands.AddCmd{}, "Buy milk")
	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no output in quiet mode, got %q", stdout)
	}
}

func TestAddCommand_NoTitle(t *testing.T) {
	f := newFixture(t)

	for _, args := range [][]string{nil, {"  "}} {
		_, stderr, code := f.runCommand(t, &commands.AddCmd{}, args...)
		if code != exitcode.UserError {
			t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
		}
		if stderr != "error: title required\n" {
			t.Errorf("expected title required error, got %q", stderr)
		}
	}
	if n := f.fb.Calls("insert"); n != 0 {
		t.Errorf("expected no insert, got %d", n)
	}
}

// Tests for toggle command
func TestToggleCommand_Involutive(t *testing.T) {
	f := newFixture(t)
	f.fb.SeedTask(f.user.ID, "Buy milk", false)

	stdout, _, code := f.runCommand(t, &commands.ToggleCmd{}, "1")
	if code != exitcode.Success || stdout != "Completed\n" {
		t.Fatalf("first toggle: code %d, output %q", code, stdout)
	}
	stdout, _, code = f.runCommand(t, &commands.ToggleCmd{}, "1")
	if code != exitcode.Success || stdout != "Pending\n" {
		t.Fatalf("second toggle: code %d, output %q", code, stdout)
	}
}

func TestToggleCommand_NoRef(t *testing.T) {
	f := newFixture(t)

	_, stderr, code := f.runCommand(t, &commands.ToggleCmd{})
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task reference required\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestToggleCommand_OutOfRange(t *testing.T) {
	f := newFixture(t)
	f.fb.SeedTask(f.user.ID, "Buy milk", false)

	_, stderr, code := f.runCommand(t, &commands.ToggleCmd{}, "5")
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task number out of range: 5\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for edit command
func TestEditCommand_Success(t *testing.T) {
	f := newFixture(t)
	f.fb.SeedTask(f.user.ID, "Pay rent", true)
	f.fb.SeedTask(f.user.ID, "Buy milk", false)

	_, _, code := f.runCommand(t, &commands.EditCmd{}, "2", "Pay", "rent", "today")
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	got := f.titles()
	if got[0] != "Pay rent today" || got[1] != "Buy milk" {
		t.Errorf("unexpected titles %v", got)
	}
	if f.fb.Rows(testutil.TasksTable)[0]["is_completed"] != true {
		t.Error("completion flag should be unchanged")
	}
}

func TestEditCommand_BlankTitle(t *testing.T) {
	f := newFixture(t)
	f.fb.SeedTask(f.user.ID, "Buy milk", false)

	_, stderr, code := f.runCommand(t, &commands.EditCmd{}, "1", " ")
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: title required\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if f.titles()[0] != "Buy milk" {
		t.Error("title should be unchanged")
	}
}

// Tests for rm command
func TestRmCommand_Success(t *testing.T) {
	f := newFixture(t)
	f.fb.SeedTask(f.user.ID, "Pay rent", false)
	f.fb.SeedTask(f.user.ID, "Buy milk", false)

	stdout, _, code := f.runCommand(t, &commands.RmCmd{}, "1")
	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok', got %q", stdout)
	}
	if got := f.titles(); len(got) != 1 || got[0] != "Pay rent" {
		t.Errorf("expected only Pay rent left, got %v", got)
	}
}

func TestRmCommand_InvalidRef(t *testing.T) {
	f := newFixture(t)

	_, stderr, code := f.runCommand(t, &commands.RmCmd{}, "a1")
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: invalid task reference: a1\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for move command
func TestMoveCommand_RequiresPersistedOrder(t *testing.T) {
	f := newFixture(t)

	_, stderr, code := f.runCommand(t, &commands.MoveCmd{}, "1", "2")
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.Contains(stderr, "not persisted") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestMoveCommand_Persisted(t *testing.T) {
	f := newFixture(t)
	f.cfg.Tasks.Order = config.OrderPersisted
	f.fb.SeedTask(f.user.ID, "Pay rent", false)
	f.fb.SeedTask(f.user.ID, "Buy milk", false)
	f.fb.SeedTask(f.user.ID, "Call mom", false)

	if _, stderr, code := f.runCommand(t, &commands.MoveCmd{}, "1", "3"); code != exitcode.Success {
		t.Fatalf("move failed: %d %s", code, stderr)
	}

	stdout, _, _ := f.runCommand(t, &commands.ListCmd{})
	want := "   1  Pending    Buy milk\n   2  Pending    Pay rent\n   3  Pending    Call mom\n"
	if stdout != want {
		t.Errorf("expected %q, got %q", want, stdout)
	}
}

// Tests for config command
func TestConfigCommand_ShowMasksSecrets(t *testing.T) {
	f := newFixture(t)
	f.cfg.Supabase.URL = "https://example.supabase.co"
	f.cfg.Supabase.AnonKey = "eyJhbGciOiJIUzI1NiJ9.secret"

	stdout, _, code := f.runCommand(t, &commands.ConfigCmd{}, "show")
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if strings.Contains(stdout, "secret") {
		t.Errorf("anon key leaked:\n%s", stdout)
	}
	for _, want := range []string{"url: https://example.supabase.co", "anon_key: eyJh****", "timeout: 10s", "order: ephemeral"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in:\n%s", want, stdout)
		}
	}
}

func TestConfigCommand_Path(t *testing.T) {
	f := newFixture(t)

	stdout, _, code := f.runCommand(t, &commands.ConfigCmd{}, "path")
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if strings.TrimSpace(stdout) != f.cfg.ConfigFilePath() {
		t.Errorf("expected %s, got %q", f.cfg.ConfigFilePath(), stdout)
	}
}

func TestConfigCommand_Unknown(t *testing.T) {
	f := newFixture(t)

	_, _, code := f.runCommand(t, &commands.ConfigCmd{}, "edit")
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
}
