package testutil

import "testing"

func TestWithSearchPath(t *testing.T) {
	if got := withSearchPath("postgres://x/db", "test_1"); got != "postgres://x/db?search_path=test_1" {
		t.Fatalf("got %q", got)
	}
	if got := withSearchPath("postgres://x/db?sslmode=disable", "test_1"); got != "postgres://x/db?sslmode=disable&search_path=test_1" {
		t.Fatalf("got %q", got)
	}
}

func TestSchemaDDLRejectsUnsafeNames(t *testing.T) {
	if _, err := schemaDDL("DROP SCHEMA %s", "x; drop table matches"); err == nil {
		t.Fatal("expected error for unsafe schema name")
	}
	got, err := schemaDDL("CREATE SCHEMA %s", "test_42")
	if err != nil {
		t.Fatalf("schemaDDL: %v", err)
	}
	if got != `CREATE SCHEMA "test_42"` {
		t.Fatalf("got %q", got)
	}
}

func TestFindMigrationFromPackageDir(t *testing.T) {
	p, err := findMigration("migrations")
	if err != nil {
		t.Fatalf("findMigration: %v", err)
	}
	if p == "" {
		t.Fatal("empty path")
	}
}
