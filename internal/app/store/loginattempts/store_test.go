package loginattempts

import (
	"testing"
	"time"

	"github.com/bloomcycle/bloom/internal/testutil"
)

func TestStore_LockoutAfterMaxFailures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	s := New(db, Policy{MaxFailures: 3, Window: 10 * time.Minute, Lockout: 5 * time.Minute})
	s.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if s.Fail(ctx, "Rose@Example.com") {
			t.Fatalf("Fail() #%d locked early", i+1)
		}
	}
	if locked, _ := s.Locked(ctx, "rose@example.com"); locked {
		t.Fatal("Locked() = true before the limit")
	}
	if !s.Fail(ctx, "rose@example.com") {
		t.Fatal("Fail() at the limit did not lock")
	}

	locked, until := s.Locked(ctx, "ROSE@example.com")
	if !locked || !until.Equal(now.Add(5*time.Minute)) {
		t.Errorf("Locked() = %v, %v", locked, until)
	}

	now = now.Add(6 * time.Minute)
	if locked, _ := s.Locked(ctx, "rose@example.com"); locked {
		t.Error("Locked() = true after the lockout expired")
	}
}

func TestStore_WindowResets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	s := New(db, Policy{MaxFailures: 2, Window: time.Minute, Lockout: time.Hour})
	s.now = func() time.Time { return now }

	s.Fail(ctx, "ivy")
	now = now.Add(2 * time.Minute)
	if s.Fail(ctx, "ivy") {
		t.Error("Fail() locked although the first failure left the window")
	}
}

func TestStore_Clear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	s := New(db, Policy{MaxFailures: 1, Window: time.Minute, Lockout: time.Hour})
	s.Fail(ctx, "fern")
	if locked, _ := s.Locked(ctx, "fern"); !locked {
		t.Fatal("Locked() = false after lockout")
	}
	if err := s.Clear(ctx, "fern"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if locked, _ := s.Locked(ctx, "fern"); locked {
		t.Error("Locked() = true after Clear()")
	}
}
