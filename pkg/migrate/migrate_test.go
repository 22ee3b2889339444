package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"go.uber.org/multierr"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := ValidateEmbedded(); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
}

func TestValidateFSReportsEveryProblem(t *testing.T) {
	fsys := fstest.MapFS{
		"20260101000000_ok.sql":      {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"20260101000000_dup.sql":     {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"bad-name.sql":               {Data: []byte("")},
		"20260102000000_no_down.sql": {Data: []byte("-- +goose Up\n")},
		"README.md":                  {Data: []byte("ignored")},
	}
	err := ValidateFS(fsys)
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	if n := len(multierr.Errors(err)); n != 3 {
		t.Fatalf("expected 3 problems, got %d: %v", n, err)
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	path, err := CreateSQLMigration(dir, "  Add Chat Rooms! ", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20261015093000_add_chat_rooms.sql" {
		t.Fatalf("unexpected file name %s", filepath.Base(path))
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(body), "-- +goose Up") || !strings.Contains(string(body), "-- +goose Down") {
		t.Fatalf("template missing goose markers")
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}

	if _, err := CreateSQLMigration(dir, "add chat rooms", now); err == nil {
		t.Fatalf("expected duplicate file to be rejected")
	}
	if _, err := CreateSQLMigration(dir, "!!!", now); err == nil {
		t.Fatalf("expected empty sanitized name to be rejected")
	}
}
