package web

import (
	"context"
	"strings"
	"testing"
	"time"

	"supatodo/internal/session"
	"supatodo/internal/testutil"
)

func TestRegistrySweep(t *testing.T) {
	fb := testutil.NewFakeBackend()
	user := fb.AddUser("a@b.com", "secret123")
	reg := newRegistry()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	mountFor := func() *mounted {
		m := &mounted{id: reg.newID(), sess: fb.NewSession(user)}
		m.guard = session.NewGuard(fb, nil)
		if _, ok := m.guard.Activate(context.Background(), m.sess); !ok {
			t.Fatal("guard refused")
		}
		reg.add(m)
		return m
	}

	idle := mountFor()
	now = now.Add(20 * time.Minute)
	fresh := mountFor()
	now = now.Add(15 * time.Minute)

	if n := reg.sweep(30 * time.Minute); n != 1 {
		t.Fatalf("expected 1 swept view, got %d", n)
	}
	if _, ok := reg.get(idle.id); ok {
		t.Error("idle view should be gone")
	}
	if _, ok := reg.get(fresh.id); !ok {
		t.Error("fresh view should remain")
	}
	if n := fb.Subscribers(); n != 1 {
		t.Errorf("expected swept guard unsubscribed, have %d subscribers", n)
	}

	// Signed-out views are swept regardless of age.
	_ = fb.SignOut(context.Background(), fresh.sess)
	if n := reg.sweep(time.Hour); n != 1 {
		t.Errorf("expected redirected view swept, got %d", n)
	}
	if reg.len() != 0 {
		t.Errorf("expected empty registry, have %d", reg.len())
	}
}

func TestSweepInterval(t *testing.T) {
	tests := []struct {
		idle time.Duration
		want time.Duration
	}{
		{0, time.Minute},
		{30 * time.Minute, 7*time.Minute + 30*time.Second},
		{20 * time.Second, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := sweepInterval(tt.idle); got != tt.want {
			t.Errorf("sweepInterval(%v) = %v, want %v", tt.idle, got, tt.want)
		}
	}
}

func TestSessionKeys(t *testing.T) {
	raw := "test-session-key-0123456789abcdef"
	hashKey, blockKey, err := sessionKeys(raw)
	if err != nil {
		t.Fatalf("sessionKeys failed: %v", err)
	}
	if string(hashKey) != raw || len(blockKey) != 32 {
		t.Errorf("unexpected keys: hash %d bytes, block %d bytes", len(hashKey), len(blockKey))
	}

	// 64 hex digits decode to 32 bytes.
	hexKey := strings.Repeat("0123456789abcdef", 4)
	hashKey, _, err = sessionKeys(hexKey)
	if err != nil {
		t.Fatalf("sessionKeys(hex) failed: %v", err)
	}
	if len(hashKey) != 32 {
		t.Errorf("expected hex key to decode to 32 bytes, got %d", len(hashKey))
	}

	if _, _, err := sessionKeys("short"); err == nil {
		t.Error("expected error for a short key")
	}

	a, _, _ := sessionKeys("")
	b, _, _ := sessionKeys("")
	if len(a) != 64 || string(a) == string(b) {
		t.Error("empty key should yield fresh random keys")
	}
}
