package checkinstore

import (
	"errors"
	"testing"

	"github.com/bloomcycle/bloom/internal/domain/models"
	"github.com/bloomcycle/bloom/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_GetOrCreatePending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	uid := primitive.NewObjectID()

	first, err := store.GetOrCreatePending(ctx, uid, "2024-03-04", "How are you?")
	if err != nil {
		t.Fatalf("GetOrCreatePending() error = %v", err)
	}
	if first.Status != models.CheckInPending || first.PromptText != "How are you?" || first.ID.IsZero() {
		t.Errorf("GetOrCreatePending() = %+v", first)
	}

	again, err := store.GetOrCreatePending(ctx, uid, "2024-03-04", "Something else?")
	if err != nil {
		t.Fatalf("GetOrCreatePending() second error = %v", err)
	}
	if again.ID != first.ID || again.PromptText != "How are you?" {
		t.Errorf("second call changed the record: %+v", again)
	}
}

func TestStore_DismissAndComplete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	uid := primitive.NewObjectID()

	if err := store.Dismiss(ctx, uid, "2024-03-04"); !errors.Is(err, ErrNotActionable) {
		t.Errorf("Dismiss(missing) error = %v, want ErrNotActionable", err)
	}

	_, _ = store.GetOrCreatePending(ctx, uid, "2024-03-04", "p")
	if err := store.Complete(ctx, uid, "2024-03-04", "good"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if err := store.Complete(ctx, uid, "2024-03-04", "again"); !errors.Is(err, ErrNotActionable) {
		t.Errorf("Complete(resolved) error = %v, want ErrNotActionable", err)
	}
	if err := store.Dismiss(ctx, uid, "2024-03-04"); !errors.Is(err, ErrNotActionable) {
		t.Errorf("Dismiss(resolved) error = %v, want ErrNotActionable", err)
	}

	got, err := store.Get(ctx, uid, "2024-03-04")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != models.CheckInCompleted || got.ResponseText != "good" {
		t.Errorf("Get() = %+v", got)
	}

	_, _ = store.GetOrCreatePending(ctx, uid, "2024-03-05", "p")
	if err := store.Dismiss(ctx, uid, "2024-03-05"); err != nil {
		t.Fatalf("Dismiss() error = %v", err)
	}
	got, _ = store.Get(ctx, uid, "2024-03-05")
	if got.Status != models.CheckInDismissed {
		t.Errorf("Dismiss() status = %q", got.Status)
	}
}

func TestStore_RefreshPrompt(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	uid := primitive.NewObjectID()

	pick := func(current string) string { return current + "!" }

	if _, err := store.RefreshPrompt(ctx, uid, "2024-03-04", pick); !errors.Is(err, ErrNotActionable) {
		t.Errorf("RefreshPrompt(missing) error = %v, want ErrNotActionable", err)
	}

	_, _ = store.GetOrCreatePending(ctx, uid, "2024-03-04", "p")
	next, err := store.RefreshPrompt(ctx, uid, "2024-03-04", pick)
	if err != nil {
		t.Fatalf("RefreshPrompt() error = %v", err)
	}
	if next != "p!" {
		t.Errorf("RefreshPrompt() = %q, want %q", next, "p!")
	}
	got, _ := store.Get(ctx, uid, "2024-03-04")
	if got.PromptText != "p!" {
		t.Errorf("stored prompt = %q", got.PromptText)
	}

	_ = store.Dismiss(ctx, uid, "2024-03-04")
	if _, err := store.RefreshPrompt(ctx, uid, "2024-03-04", pick); !errors.Is(err, ErrNotActionable) {
		t.Errorf("RefreshPrompt(dismissed) error = %v, want ErrNotActionable", err)
	}
}

func TestStore_SaveEntryAndListRange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	uid := primitive.NewObjectID()

	if _, err := store.SaveEntry(ctx, uid, "2024-03-04", Entry{Mood: "calm", Notes: "slow morning"}); err != nil {
		t.Fatalf("SaveEntry() error = %v", err)
	}
	if _, err := store.SaveEntry(ctx, uid, "2024-03-10", Entry{Energy: "low"}); err != nil {
		t.Fatalf("SaveEntry(no mood) error = %v", err)
	}
	_, _ = store.GetOrCreatePending(ctx, uid, "2024-03-12", "p")
	_, _ = store.SaveEntry(ctx, uid, "2024-04-01", Entry{Mood: "sad"})

	list, err := store.ListRange(ctx, uid, "2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("ListRange() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("ListRange() len = %d, want 3", len(list))
	}
	if list[0].Date != "2024-03-04" || list[0].Mood != "calm" || list[0].Notes != "slow morning" {
		t.Errorf("ListRange()[0] = %+v", list[0])
	}

	cal := CalendarCheckIns(list)
	if len(cal) != 2 {
		t.Fatalf("CalendarCheckIns() len = %d, want 2 (pending prompt excluded)", len(cal))
	}
	if cal["2024-03-04"].Mood != "calm" {
		t.Errorf("CalendarCheckIns()[2024-03-04] = %+v", cal["2024-03-04"])
	}
	if _, ok := cal["2024-03-10"]; !ok {
		t.Error("CalendarCheckIns() dropped a completed entry without mood")
	}
}

func TestStore_DismissStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	uid := primitive.NewObjectID()

	_, _ = store.GetOrCreatePending(ctx, uid, "2024-03-01", "p")
	_, _ = store.GetOrCreatePending(ctx, uid, "2024-03-02", "p")
	_, _ = store.GetOrCreatePending(ctx, uid, "2024-03-03", "p")

	n, err := store.DismissStale(ctx, "2024-03-03")
	if err != nil {
		t.Fatalf("DismissStale() error = %v", err)
	}
	if n != 2 {
		t.Errorf("DismissStale() = %d, want 2", n)
	}
	today, _ := store.Get(ctx, uid, "2024-03-03")
	if !today.IsActionable() {
		t.Error("DismissStale() touched today's prompt")
	}

	if _, err := store.Get(ctx, uid, "2024-02-01"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("Get(missing) error = %v, want ErrNoDocuments", err)
	}
}
