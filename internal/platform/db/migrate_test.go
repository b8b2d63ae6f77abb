package db

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadMigrations(t *testing.T) {
	files := fstest.MapFS{
		"002_add_alerts.sql": {Data: []byte("CREATE TABLE risk_alerts (id INT);")},
		"001_init.sql":       {Data: []byte("CREATE TABLE users (id INT);")},
		"README.md":          {Data: []byte("not a migration")},
		"notes.sql":          {Data: []byte("no version prefix")},
		"abc_bad.sql":        {Data: []byte("non numeric prefix")},
	}

	migrations, err := NewMigrator(nil, files).LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("expected versions 1,2 got %d,%d", migrations[0].Version, migrations[1].Version)
	}
	if !strings.Contains(migrations[1].SQL, "risk_alerts") {
		t.Errorf("unexpected SQL %q", migrations[1].SQL)
	}
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	files := fstest.MapFS{
		"001_init.sql": {Data: []byte("SELECT 1;")},
		"1_again.sql":  {Data: []byte("SELECT 2;")},
	}
	if _, err := NewMigrator(nil, files).LoadMigrations(); err == nil {
		t.Fatal("expected duplicate version error")
	}
}

func TestLoadMigrations_Embedded(t *testing.T) {
	migrations, err := NewMigrator(nil, Migrations).LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migrations) == 0 || migrations[0].Version != 1 {
		t.Fatalf("expected embedded migrations starting at 1, got %+v", migrations)
	}
	for _, table := range []string{"users", "psychologists", "patients", "appointments", "requests", "risk_alerts"} {
		if !strings.Contains(migrations[0].SQL, "CREATE TABLE IF NOT EXISTS "+table+" ") {
			t.Errorf("expected initial migration to create %s", table)
		}
	}
}
