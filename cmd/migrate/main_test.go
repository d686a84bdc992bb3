package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_create_notifications.sql", true, "0001", "create_notifications"},
		{"0005_create_subscriptions.sql", true, "0005", "create_subscriptions"},
		{"001_invalid.sql", false, "", ""},
		{"0001_test", false, "", ""},
		{"0001.sql", false, "", ""},
		{"invalid_0001_test.sql", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			matches := migrationFilePattern.FindStringSubmatch(tt.filename)
			if tt.valid {
				if matches == nil {
					t.Fatalf("%s should match", tt.filename)
				}
				if matches[1] != tt.version || matches[2] != tt.name {
					t.Errorf("got version=%q name=%q, want %q %q", matches[1], matches[2], tt.version, tt.name)
				}
			} else if matches != nil {
				t.Errorf("%s should not match", tt.filename)
			}
		})
	}
}

func TestReadMigrationsSortsAndSubstitutes(t *testing.T) {
	dir := t.TempDir()
	write := func(name, sql string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("0002_second.sql", "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.b` (id INT64)")
	write("0001_first.sql", "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.a` (id INT64)")
	write("README.md", "not a migration")

	*projectID = "test-project"
	*datasetID = "expense"

	migrations, err := readMigrations(dir)
	if err != nil {
		t.Fatalf("readMigrations: %v", err)
	}

	if len(migrations) != 2 {
		t.Fatalf("got %d migrations, want 2", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("migrations not sorted by version: %d, %d", migrations[0].Version, migrations[1].Version)
	}
	want := "CREATE TABLE `test-project.expense.a` (id INT64)"
	if migrations[0].SQL != want {
		t.Errorf("SQL = %q, want %q", migrations[0].SQL, want)
	}
	if migrations[0].Checksum == "" || migrations[0].Checksum == migrations[1].Checksum {
		t.Error("expected distinct non-empty checksums")
	}
}

func TestReadMigrationsChecksumIgnoresPlaceholderValues(t *testing.T) {
	dir := t.TempDir()
	sql := "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.t` (id INT64)"
	if err := os.WriteFile(filepath.Join(dir, "0001_t.sql"), []byte(sql), 0o644); err != nil {
		t.Fatal(err)
	}

	*projectID = "proj-a"
	*datasetID = "expense"
	first, err := readMigrations(dir)
	if err != nil {
		t.Fatal(err)
	}

	*projectID = "proj-b"
	second, err := readMigrations(dir)
	if err != nil {
		t.Fatal(err)
	}

	if first[0].Checksum != second[0].Checksum {
		t.Error("checksum should not depend on placeholder substitution")
	}
	if first[0].SQL == second[0].SQL {
		t.Error("substituted SQL should differ between projects")
	}
}
