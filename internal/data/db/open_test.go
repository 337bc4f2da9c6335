package db

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/finsights-backend/internal/config"
	"github.com/yungbote/finsights-backend/internal/domain/documents"
	"github.com/yungbote/finsights-backend/internal/platform/logger"
)

func TestSQLiteDSN(t *testing.T) {
	dsn, err := SQLiteDSN(filepath.Join(t.TempDir(), "x.sqlite"), 1500*time.Millisecond)
	if err != nil {
		t.Fatalf("SQLiteDSN: %v", err)
	}
	for _, want := range []string{"_busy_timeout=1500", "_txlock=immediate", "_journal_mode=WAL"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn %q missing %q", dsn, want)
		}
	}
	if _, err := SQLiteDSN("  ", time.Second); err == nil {
		t.Fatalf("empty path: want error")
	}
}

func TestOpenSQLiteMigrates(t *testing.T) {
	cfg := config.DBConfig{
		Driver:      DialectSQLite,
		Path:        filepath.Join(t.TempDir(), "finsights.sqlite"),
		LockTimeout: config.Duration{Duration: time.Second},
		AutoMigrate: true,
	}
	gdb, err := Open(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if Dialect(gdb) != DialectSQLite {
		t.Fatalf("dialect: want=sqlite got=%s", Dialect(gdb))
	}
	m := gdb.Migrator()
	if !m.HasTable(&documents.Document{}) || !m.HasTable(&documents.DocumentTransition{}) {
		t.Fatalf("tables not migrated")
	}
	if !m.HasIndex(&documents.Document{}, "idx_documents_pdf_url_sha256") {
		t.Fatalf("unique hash index missing")
	}

	// The CHECK constraint rejects statuses that bypass the Go type.
	err = gdb.Exec(`INSERT INTO documents (transcript_uuid, company_name, script_code, pdf_url, pdf_url_sha256, json_text, created_at, announcement_date, updated_at, processing_status)
		VALUES ('x', 'c', 's', 'http://x', 'h', '{}', 'now', 'now', 'now', 'downloading')`).Error
	if err == nil {
		t.Fatalf("insert with unknown status: want check violation")
	}
}
