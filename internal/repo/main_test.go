package repo_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/pkordes/fln-schedule/testutil"
)

// TestMain migrates the shared test database once for the package.
// Without TEST_DATABASE_URL every test skips itself via testutil.
func TestMain(m *testing.M) {
	if dsn := os.Getenv(testutil.DSNEnv); dsn != "" {
		if err := testutil.MigrateUp(context.Background(), dsn); err != nil {
			log.Fatalf("TestMain: %v", err)
		}
	}
	os.Exit(m.Run())
}
