package promptstore

import (
	"errors"
	"testing"

	"github.com/bloomcycle/bloom/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_AddListActive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, p := range []string{"one?", "two?", "one?"} {
		if err := store.Add(ctx, p); err != nil {
			t.Fatalf("Add(%q) error = %v", p, err)
		}
	}

	got, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(got) != 2 || got[0] != "one?" || got[1] != "two?" {
		t.Errorf("ListActive() = %v", got)
	}

	if ok, _ := store.Exists(ctx, "two?"); !ok {
		t.Error("Exists(two?) = false")
	}
	if err := store.SetActive(ctx, "two?", false); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	got, _ = store.ListActive(ctx)
	if len(got) != 1 {
		t.Errorf("ListActive() after retire = %v", got)
	}
	if err := store.SetActive(ctx, "missing", true); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("SetActive(missing) error = %v, want ErrNoDocuments", err)
	}
}
