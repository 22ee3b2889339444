package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where create and validate look for migrations on disk.
const DefaultDir = "pkg/migrate/migrations"

const embeddedDir = "migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Run executes a goose command such as up, down or status. An empty dir runs
// the migrations compiled into the binary.
func Run(ctx context.Context, db *sql.DB, dir string, command string, args ...string) error {
	dir, done, err := prepare(db, dir)
	if err != nil {
		return err
	}
	defer done()

	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion walks the schema up or down until it sits at version.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, version string) error {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil || target < 0 {
		return fmt.Errorf("version %q is not a YYYYMMDDHHMMSS timestamp", version)
	}
	dir, done, err := prepare(db, dir)
	if err != nil {
		return err
	}
	defer done()

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	step, direction := goose.UpToContext, "up-to"
	switch {
	case current == target:
		return nil
	case current > target:
		step, direction = goose.DownToContext, "down-to"
	}
	if err := step(ctx, db, dir, target); err != nil {
		return fmt.Errorf("goose %s %d: %w", direction, target, err)
	}
	return nil
}

// prepare selects the postgres dialect and the migration source. An empty
// dir means the embedded set; done restores goose to the OS filesystem.
func prepare(db *sql.DB, dir string) (string, func(), error) {
	if db == nil {
		return "", nil, errors.New("migrate: nil database handle")
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return "", nil, fmt.Errorf("goose dialect: %w", err)
	}
	if dir != "" {
		goose.SetBaseFS(nil)
		return dir, func() {}, nil
	}
	goose.SetBaseFS(embedded)
	return embeddedDir, func() { goose.SetBaseFS(nil) }, nil
}
