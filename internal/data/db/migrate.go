package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/finsights-backend/internal/domain/documents"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&documents.Document{},
		&documents.DocumentTransition{},
	); err != nil {
		return err
	}
	return EnsureDocumentConstraints(db)
}

// EnsureDocumentConstraints backfills constraints onto tables created
// before they were part of the model. SQLite cannot add constraints to an
// existing table, so it relies on CREATE TABLE having carried them.
func EnsureDocumentConstraints(db *gorm.DB) error {
	if Dialect(db) != DialectPostgres {
		return nil
	}
	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_pdf_url_sha256 ON documents (pdf_url_sha256);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_status_announced ON documents (processing_status, announcement_date DESC);`,
		`DO $$ BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'chk_documents_processing_status'
			) THEN
				ALTER TABLE documents ADD CONSTRAINT chk_documents_processing_status CHECK (` + documents.StatusCheckExpr + `);
			END IF;
		END $$;`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure documents constraints: %w", err)
		}
	}
	return nil
}
