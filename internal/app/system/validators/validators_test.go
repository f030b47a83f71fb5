package validators

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/bloomcycle/bloom/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Twice: the second run must find everything in place.
	for i := 0; i < 2; i++ {
		if err := EnsureAll(ctx, db); err != nil {
			t.Fatalf("EnsureAll() run %d error = %v", i+1, err)
		}
	}

	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		t.Fatalf("ListCollectionNames() error = %v", err)
	}
	for _, want := range []string{"users", "cycles", "checkins", "login_attempts", "prompts"} {
		if !slices.Contains(names, want) {
			t.Errorf("collection %s missing after EnsureAll", want)
		}
	}
}

func TestEnsureCollection_ExistingIsNoop(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := ensureCollection(ctx, db, "scratch", false); err != nil {
		t.Fatalf("create error = %v", err)
	}
	// Stale "missing" view, as when another instance created it first.
	if err := ensureCollection(ctx, db, "scratch", false); err != nil {
		t.Errorf("racing create error = %v, want nil", err)
	}
	if err := ensureCollection(ctx, db, "scratch", true); err != nil {
		t.Errorf("existing error = %v", err)
	}
}

func TestHasCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("namespace exists"), false},
		{"matching code", mongo.CommandError{Code: codeNamespaceExists}, true},
		{"wrapped", fmt.Errorf("users: %w", mongo.CommandError{Code: codeNotImplemented}), true},
		{"other code", mongo.CommandError{Code: 13}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasCode(tt.err, codeNamespaceExists, codeNotImplemented); got != tt.want {
				t.Errorf("hasCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUsersSchema_RoleEnum(t *testing.T) {
	props := usersSchema()["$jsonSchema"].(bson.M)["properties"].(bson.M)
	roles := props["role"].(bson.M)["enum"].(bson.A)
	if len(roles) != 2 || roles[0] != "user" || roles[1] != "admin" {
		t.Errorf("role enum = %v", roles)
	}
}

func TestCheckInsSchema_Enforced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll() error = %v", err)
	}

	c := db.Collection("checkins")
	good := bson.M{"user_id": primitive.NewObjectID(), "date": "2024-03-01", "status": "pending"}
	if _, err := c.InsertOne(ctx, good); err != nil {
		t.Fatalf("InsertOne(valid) error = %v", err)
	}

	for name, doc := range map[string]bson.M{
		"bad status": {"user_id": primitive.NewObjectID(), "date": "2024-03-02", "status": "skipped"},
		"bad date":   {"user_id": primitive.NewObjectID(), "date": "March 2", "status": "pending"},
		"bad mood":   {"user_id": primitive.NewObjectID(), "date": "2024-03-03", "status": "completed", "mood": "grumpy"},
	} {
		if _, err := c.InsertOne(ctx, doc); err == nil {
			t.Errorf("InsertOne(%s) error = nil, want validation failure", name)
		}
	}
}
