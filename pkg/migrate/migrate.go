// Package migrate drives goose over the SQL files in DefaultDir and keeps
// the gorm models in step for sqlite.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// Dialect maps the configured db driver onto a goose dialect name.
// Anything that is not sqlite is treated as postgres.
func Dialect(driver string) string {
	if d := strings.ToLower(strings.TrimSpace(driver)); d == "sqlite" || d == "sqlite3" {
		return "sqlite3"
	}
	return "postgres"
}

func prepare(db *sql.DB, driver, dir string) error {
	if db == nil {
		return errors.New("db is required")
	}
	if dir == "" {
		return errors.New("migrations dir is required")
	}
	if err := goose.SetDialect(Dialect(driver)); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// Run executes one goose command such as up, down, redo or status.
// goose writes its own progress to stdout.
func Run(ctx context.Context, db *sql.DB, driver, dir, command string, args ...string) error {
	if err := prepare(db, driver, dir); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// ParseVersion reads a YYYYMMDDHHMMSS migration version.
func ParseVersion(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) != len(versionLayout) {
		return 0, fmt.Errorf("invalid version %q: expected %d digits", raw, len(versionLayout))
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", raw, err)
	}
	return v, nil
}

// MigrateToVersion moves the schema up or down until the database reports
// targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, driver, dir, targetVersion string) error {
	target, err := ParseVersion(targetVersion)
	if err != nil {
		return err
	}
	if err := prepare(db, driver, dir); err != nil {
		return err
	}
	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	step, op := goose.UpToContext, "up-to"
	switch {
	case current == target:
		return nil
	case current > target:
		step, op = goose.DownToContext, "down-to"
	}
	if err := step(ctx, db, dir, target); err != nil {
		return fmt.Errorf("goose %s %d: %w", op, target, err)
	}
	return nil
}
