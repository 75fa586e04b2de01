package db

import (
	"path/filepath"
	"testing"
	"time"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	// Verify tables exist by counting rows in each one.
	tables := []string{"ocr_configs", "audit_entries", "extraction_runs"}

	for _, table := range tables {
		var count int
		err := d.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	// Running migrate again should not fail.
	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate() error: %v", err)
	}
}

func TestConfigKeyUnique(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	insert := `INSERT INTO ocr_configs (id, module_code, consignor_code, transporter_code) VALUES (?, ?, ?, ?)`
	if _, err := d.Exec(insert, "1", "INV", nil, nil); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	// A second module-level row must collide even though both codes are NULL.
	if _, err := d.Exec(insert, "2", "INV", nil, nil); err == nil {
		t.Fatal("expected unique violation for duplicate module-level key")
	}
	if _, err := d.Exec(insert, "3", "INV", "C1", nil); err != nil {
		t.Fatalf("consignor-level insert: %v", err)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ocrstudio.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer d.Close()

	if d.Path() != path {
		t.Errorf("Path() = %q, want %q", d.Path(), path)
	}
}

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 3, 15, 14, 32, 0, 0, time.UTC)
	for _, ts := range []string{"2024-03-15 14:32:00", "2024-03-15T14:32:00Z", "2024-03-15 14:32:00.000000"} {
		if got := ParseTime(ts); !got.Equal(want) {
			t.Errorf("ParseTime(%q) = %v, want %v", ts, got, want)
		}
	}
	if got := ParseTime("garbage"); !got.IsZero() {
		t.Errorf("ParseTime(garbage) = %v, want zero", got)
	}
}

func TestFormatTimeRoundTrip(t *testing.T) {
	in := time.Date(2024, 3, 15, 14, 32, 0, 123456000, time.FixedZone("X", 3600))
	got := ParseTime(FormatTime(in))
	if !got.Equal(in) {
		t.Errorf("round trip = %v, want %v", got, in)
	}
}
