package migrations

import (
	"strings"
	"testing"
)

func TestLibraryMigrationContainsRequiredTablesAndIndexes(t *testing.T) {
	body, err := embeddedFS.ReadFile("sql/000001_library.up.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	sql := string(body)
	requiredSnippets := []string{
		"CREATE TABLE library_user",
		"CREATE TABLE book",
		"CREATE TABLE fine",
		"CREATE TABLE chat_audit",
		"email TEXT NOT NULL UNIQUE",
		"CHECK (amount > 0)",
		"available BOOLEAN NOT NULL DEFAULT TRUE",
		"paid BOOLEAN NOT NULL DEFAULT FALSE",
		"CREATE INDEX idx_fine_user_paid",
		"CREATE INDEX idx_chat_audit_created_at",
	}

	for _, snippet := range requiredSnippets {
		if !strings.Contains(sql, snippet) {
			t.Fatalf("migration missing required snippet: %s", snippet)
		}
	}
}
