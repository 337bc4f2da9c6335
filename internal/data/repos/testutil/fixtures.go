package testutil

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/gorm"

	types "github.com/yungbote/finsights-backend/internal/domain/documents"
)

// NewDocumentInput returns a valid creation payload keyed by n.
func NewDocumentInput(n int) types.NewDocument {
	url := fmt.Sprintf("https://example.com/transcripts/%d.pdf", n)
	return types.NewDocument{
		TranscriptUUID:   fmt.Sprintf("test-uuid-%03d", n),
		CompanyName:      fmt.Sprintf("Test Corp %d", n),
		ScriptCode:       fmt.Sprintf("TC%d", n),
		PDFURL:           url,
		PDFURLSHA256:     types.HashPDFURL(url),
		JSONText:         `{"test": "data", "nested": {"value": 123}}`,
		AnnouncementDate: fmt.Sprintf("2025-01-%02dT00:00:00", 1+n%28),
	}
}

// SeedDocument writes a record directly, bypassing the store's validation.
func SeedDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, n int, mutate func(*types.Document)) *types.Document {
	tb.Helper()
	doc := NewDocumentInput(n).Build("2025-01-01T00:00:00")
	if mutate != nil {
		mutate(doc)
	}
	if err := tx.WithContext(ctx).Create(doc).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return doc
}
