package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"budgetboard/internal/config"
	"budgetboard/internal/log"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{DataBackend: "sqlite", SQLiteDBPath: "/tmp/x.db", LedgerCSVPath: "ledger.csv"}
	bc, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bc.Type != SQLiteBackend || bc.SQLiteDBPath != "/tmp/x.db" || bc.CSVPath != "ledger.csv" {
		t.Fatalf("unexpected backend config: %+v", bc)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"csv ok", Config{Type: CSVBackend, CSVPath: "a.csv"}, false},
		{"csv missing path", Config{Type: CSVBackend}, true},
		{"sqlite missing path", Config{Type: SQLiteBackend}, true},
		{"sheets missing credentials", Config{Type: SheetsBackend, GoogleSpreadsheetID: "id", GoogleSheetName: "s"}, true},
		{"sheets ok", Config{Type: SheetsBackend, GoogleSpreadsheetID: "id", GoogleSheetName: "s", GoogleServiceAccountJSON: "{}"}, false},
		{"memory ok", Config{Type: MemoryBackend}, false},
		{"unknown", Config{Type: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != 4 || got[0] != "csv" {
		t.Fatalf("unexpected types: %v", got)
	}
}

func TestCreateBackend(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "ledger.csv")
	if err := os.WriteFile(csvPath, []byte("date,amount,category,payer\n2024-01-01,10,Food,Alice\n"), 0644); err != nil {
		t.Fatal(err)
	}
	f := NewFactory(log.Discard())
	ctx := context.Background()

	t.Run("csv is read-only", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: CSVBackend, CSVPath: csvPath})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Writer != nil || res.Importer != nil {
			t.Fatal("csv backend must not be writable")
		}
		recs, err := res.Source.Snapshot(ctx)
		if err != nil || len(recs) != 1 {
			t.Fatalf("snapshot: %v %v", recs, err)
		}
	})

	t.Run("memory seeded from csv", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend, CSVPath: csvPath})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		recs, _ := res.Source.Snapshot(ctx)
		if len(recs) != 1 || res.Writer == nil {
			t.Fatalf("unexpected memory backend: %d records, writer %v", len(recs), res.Writer)
		}
	})

	t.Run("memory without seed file", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend, CSVPath: filepath.Join(dir, "missing.csv")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		recs, _ := res.Source.Snapshot(ctx)
		if len(recs) != 0 {
			t.Fatalf("expected empty ledger, got %d", len(recs))
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "db", "ledger.db")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer res.Close()
		if res.Writer == nil || res.Importer == nil || res.Cleanup == nil {
			t.Fatal("sqlite backend must be writable and closable")
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		if _, err := f.CreateBackend(ctx, Config{Type: SheetsBackend}); err == nil {
			t.Fatal("expected validation error")
		}
	})
}
