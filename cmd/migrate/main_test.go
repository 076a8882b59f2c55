package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion int
		wantName    string
		wantOK      bool
	}{
		{"0001_init_learning_tables.sql", 1, "init_learning_tables", true},
		{"0012_add_trend_column.sql", 12, "add_trend_column", true},
		{"001_too_short.sql", 0, "", false},
		{"0001_missing_extension", 0, "", false},
		{"0001.sql", 0, "", false},
		{"notes.txt", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("parseMigrationFilename(%q) ok = %v, want %v", tt.filename, ok, tt.wantOK)
			}
			if version != tt.wantVersion || name != tt.wantName {
				t.Errorf("parseMigrationFilename(%q) = %d, %q; want %d, %q",
					tt.filename, version, name, tt.wantVersion, tt.wantName)
			}
		})
	}
}

func TestChecksumOf(t *testing.T) {
	a := checksumOf([]byte("CREATE TABLE a (id INT64);"))
	b := checksumOf([]byte("CREATE TABLE a (id INT64);"))
	c := checksumOf([]byte("CREATE TABLE b (id INT64);"))

	if a != b {
		t.Error("Expected identical content to produce identical checksums")
	}
	if a == c {
		t.Error("Expected different content to produce different checksums")
	}
}

func TestReadMigrationsSubstitutesPlaceholders(t *testing.T) {
	dir := t.TempDir()
	sql := "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.learned_patterns` (pattern_id STRING)"
	if err := os.WriteFile(filepath.Join(dir, "0001_init.sql"), []byte(sql), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	// Non-matching files are skipped, not errors.
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	migrations, err := readMigrations(dir, "my-project", "statement_learning")
	if err != nil {
		t.Fatalf("readMigrations failed: %v", err)
	}
	if len(migrations) != 1 {
		t.Fatalf("Expected 1 migration, got %d", len(migrations))
	}

	m := migrations[0]
	if m.Version != 1 || m.Name != "init" {
		t.Errorf("Unexpected migration identity: %+v", m)
	}
	want := "CREATE TABLE `my-project.statement_learning.learned_patterns` (pattern_id STRING)"
	if m.SQL != want {
		t.Errorf("Expected placeholders substituted, got %q", m.SQL)
	}
	if m.Checksum != checksumOf([]byte(sql)) {
		t.Error("Expected checksum computed over the raw file content")
	}
}

func TestReadMigrationsOrdering(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0003_third.sql", "0001_first.sql", "0002_second.sql"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1"), 0o644); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}
	}

	migrations, err := readMigrations(dir, "p", "d")
	if err != nil {
		t.Fatalf("readMigrations failed: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("Expected 3 migrations, got %d", len(migrations))
	}
	for i, want := range []int{1, 2, 3} {
		if migrations[i].Version != want {
			t.Errorf("Expected version %d at position %d, got %d", want, i, migrations[i].Version)
		}
	}
}
