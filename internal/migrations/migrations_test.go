package migrations

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadMigrationsSortsAndPairsUpDown(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/000002_chat_audit.up.sql":   {Data: []byte("CREATE TABLE chat_audit ();")},
		"sql/000002_chat_audit.down.sql": {Data: []byte("DROP TABLE chat_audit;")},
		"sql/000001_library.up.sql":      {Data: []byte("CREATE TABLE library_user ();")},
		"sql/000001_library.down.sql":    {Data: []byte("DROP TABLE library_user;")},
	}

	items, err := loadMigrations(fsys)
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d", len(items))
	}
	if items[0].Version != 1 || items[1].Version != 2 {
		t.Fatalf("unexpected migration order: %+v", items)
	}
}

func TestLoadMigrationsErrorsWhenDownMissing(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/000001_library.up.sql": {Data: []byte("CREATE TABLE library_user ();")},
	}
	_, err := loadMigrations(fsys)
	if err == nil {
		t.Fatal("expected error for missing down migration")
	}
	if !strings.Contains(err.Error(), "missing down SQL") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadMigrationsIgnoresUnrelatedFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/000001_library.up.sql":   {Data: []byte("CREATE TABLE library_user ();")},
		"sql/000001_library.down.sql": {Data: []byte("DROP TABLE library_user;")},
		"sql/README.txt":              {Data: []byte("not a migration")},
	}

	items, err := loadMigrations(fsys)
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d", len(items))
	}
}
