// Package testutil holds the fixtures shared by Bloom's package tests: a
// throwaway MongoDB database per test, template boot, session and CSRF
// helpers.
package testutil

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bloomcycle/bloom/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultTestURI is used unless BLOOM_TEST_MONGO_URI is set.
	DefaultTestURI = "mongodb://localhost:27017"
	dbPrefix       = "bloom_test_"
	maxDBName      = 63
)

var (
	clientOnce sync.Once
	client     *mongo.Client
	clientErr  error
)

func testURI() string {
	if uri := os.Getenv("BLOOM_TEST_MONGO_URI"); uri != "" {
		return uri
	}
	return DefaultTestURI
}

// sharedClient connects once per test binary.
func sharedClient() (*mongo.Client, error) {
	clientOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		opts := options.Client().
			ApplyURI(testURI()).
			SetMaxPoolSize(200).
			SetMinPoolSize(10).
			SetMaxConnIdleTime(30 * time.Second).
			SetServerSelectionTimeout(10 * time.Second)
		client, clientErr = mongo.Connect(ctx, opts)
		if clientErr == nil {
			clientErr = client.Ping(ctx, nil)
		}
	})
	return client, clientErr
}

// SetupTestDB returns an empty database named after the test, with the
// production indexes, dropped again on cleanup. Tests are
// skipped when no MongoDB is reachable and BLOOM_TEST_REQUIRE_MONGO is unset.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	c, err := sharedClient()
	if err != nil {
		if os.Getenv("BLOOM_TEST_REQUIRE_MONGO") != "" {
			t.Fatalf("failed to connect to test MongoDB: %v", err)
		}
		t.Skipf("MongoDB unavailable at %s: %v", testURI(), err)
	}

	db := c.Database(dbName(t.Name()))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Drop(ctx); err != nil {
		t.Fatalf("failed to drop test database: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("failed to create indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("warning: failed to drop test database on cleanup: %v", err)
		}
	})
	return db
}

// dbName maps a test name onto a valid MongoDB database name.
func dbName(testName string) string {
	suffix := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, testName)
	if max := maxDBName - len(dbPrefix); len(suffix) > max {
		suffix = suffix[:max]
	}
	return dbPrefix + suffix
}

// TestContext returns a context with a reasonable timeout for test operations.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
