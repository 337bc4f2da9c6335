package artifacts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/finsights-backend/internal/config"
	types "github.com/yungbote/finsights-backend/internal/domain/documents"
)

func TestRefsFor(t *testing.T) {
	pdf, text := "1.pdf", " 1.txt "
	refs := RefsFor(&types.Document{PDFFileName: &pdf, TextFileName: &text})
	if len(refs) != 2 {
		t.Fatalf("refs: want=2 got=%d", len(refs))
	}
	if refs[0] != (Ref{Kind: KindPDF, Name: "1.pdf"}) || refs[1] != (Ref{Kind: KindText, Name: "1.txt"}) {
		t.Fatalf("unexpected refs: %+v", refs)
	}
	if RefsFor(nil) != nil {
		t.Fatalf("nil document should have no refs")
	}
}

func TestLocalStoreDelete(t *testing.T) {
	root := t.TempDir()
	cfg := config.ArtifactsConfig{
		PDFDir:      filepath.Join(root, "pdf"),
		TextDir:     filepath.Join(root, "text"),
		InsightsDir: filepath.Join(root, "insights"),
	}
	if err := os.MkdirAll(cfg.PDFDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(cfg.PDFDir, "1.pdf")
	if err := os.WriteFile(path, []byte("%PDF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := NewLocalStore(cfg, nil)
	ctx := context.Background()
	if err := s.Delete(ctx, Ref{Kind: KindPDF, Name: "1.pdf"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file should be gone, stat err=%v", err)
	}
	if err := s.Delete(ctx, Ref{Kind: KindPDF, Name: "1.pdf"}); err != nil {
		t.Fatalf("deleting a missing artifact should succeed: %v", err)
	}
	if err := s.Delete(ctx, Ref{Kind: KindText, Name: "../pdf/2.pdf"}); err == nil {
		t.Fatalf("expected error for path traversal")
	}
}

func TestObjectKey(t *testing.T) {
	key, err := objectKey(Ref{Kind: KindInsights, Name: "1.json"})
	if err != nil || key != "insights/1.json" {
		t.Fatalf("object key: key=%q err=%v", key, err)
	}
	if _, err := objectKey(Ref{Kind: Kind("video"), Name: "1.mp4"}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
