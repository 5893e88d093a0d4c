package database

import (
	"testing"
)

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantOK      bool
	}{
		{
			name:        "valid up migration",
			filename:    "20260301_120000_reading_history.up.sql",
			wantVersion: "20260301_120000",
			wantOK:      true,
		},
		{
			name:     "down migration skipped",
			filename: "20260301_120000_reading_history.down.sql",
			wantOK:   false,
		},
		{
			name:     "non-sql file",
			filename: "README.md",
			wantOK:   false,
		},
		{
			name:     "plain sql without direction",
			filename: "20260301_120000_reading_history.sql",
			wantOK:   false,
		},
		{
			name:     "missing version parts",
			filename: "initial.up.sql",
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && version != tt.wantVersion {
				t.Errorf("version = %q, want %q", version, tt.wantVersion)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20260301_120000_reading_history.up.sql", "reading_history"},
		{"20260301_120000_add_index.up.sql", "add_index"},
		{"oddname.up.sql", "oddname"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := extractMigrationName(tt.filename); got != tt.want {
				t.Errorf("extractMigrationName(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}
