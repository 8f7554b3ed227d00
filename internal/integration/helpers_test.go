//go:build integration

package integration

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	testDB  *sql.DB
	testRDB *redis.Client
)

// resetTestData clears all conversion records and cached rate tables so each
// test starts from a clean slate.
func resetTestData(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := testDB.ExecContext(ctx, "TRUNCATE TABLE conversions"); err != nil {
		t.Fatalf("truncate conversions: %v", err)
	}
	if err := testRDB.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
