// Package testutil provisions throwaway Postgres schemas for integration
// tests.
package testutil

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"broadside/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const initMigration = "000001_init.up.sql"

// PostgresDSN creates a fresh schema with the init migration applied and
// returns a DSN scoped to it. The schema is dropped when the test ends.
// Tests are skipped when TEST_POSTGRES_DSN is unset.
func PostgresDSN(t *testing.T) string {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("skip test db: %v", err)
	}
	ctx := context.Background()
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	createSQL, err := schemaDDL("CREATE SCHEMA %s", schema)
	if err != nil {
		t.Fatalf("invalid schema name: %v", err)
	}

	base, err := pgxpool.New(ctx, cfg.TestPostgresDSN)
	if err != nil {
		t.Fatalf("open base db: %v", err)
	}
	if _, err := base.Exec(ctx, createSQL); err != nil {
		base.Close()
		t.Fatalf("create schema: %v", err)
	}
	base.Close()

	t.Cleanup(func() {
		base, err := pgxpool.New(context.Background(), cfg.TestPostgresDSN)
		if err != nil {
			return
		}
		defer base.Close()
		if dropSQL, err := schemaDDL("DROP SCHEMA %s CASCADE", schema); err == nil {
			_, _ = base.Exec(context.Background(), dropSQL)
		}
	})

	dsn := withSearchPath(cfg.TestPostgresDSN, schema)
	if err := applyMigration(ctx, dsn, cfg.MigrationsDir); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return dsn
}

func applyMigration(ctx context.Context, dsn, dir string) error {
	path, err := findMigration(dir)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, string(b))
	return err
}

// findMigration walks up from the working directory, since go test runs
// each package from its own folder.
func findMigration(dir string) (string, error) {
	if filepath.IsAbs(dir) {
		p := filepath.Join(dir, initMigration)
		if _, err := os.Stat(p); err != nil {
			return "", err
		}
		return p, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		p := filepath.Join(cwd, dir, initMigration)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return "", fmt.Errorf("%s not found under %s", initMigration, dir)
}

func withSearchPath(dsn, schema string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "search_path=" + url.QueryEscape(schema)
}

func schemaDDL(format, schema string) (string, error) {
	if !schemaNamePattern.MatchString(schema) {
		return "", fmt.Errorf("schema %q does not match required pattern", schema)
	}
	return fmt.Sprintf(format, pgx.Identifier{schema}.Sanitize()), nil
}
