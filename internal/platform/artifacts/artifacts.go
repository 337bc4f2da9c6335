package artifacts

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/finsights-backend/internal/config"
	types "github.com/yungbote/finsights-backend/internal/domain/documents"
	"github.com/yungbote/finsights-backend/internal/platform/logger"
)

// Kind names the pipeline stage that produced an artifact.
type Kind string

const (
	KindPDF      Kind = "pdf"
	KindText     Kind = "text"
	KindInsights Kind = "insights"
)

// Ref locates one artifact file.
type Ref struct {
	Kind Kind
	Name string
}

func (r Ref) String() string { return string(r.Kind) + "/" + r.Name }

// Store removes artifacts written by the download, parse and insight stages.
// Deleting a missing artifact is not an error.
type Store interface {
	Delete(ctx context.Context, ref Ref) error
	Close() error
}

// RefsFor lists the artifacts a record points at.
func RefsFor(doc *types.Document) []Ref {
	if doc == nil {
		return nil
	}
	var out []Ref
	add := func(kind Kind, name *string) {
		if name == nil || strings.TrimSpace(*name) == "" {
			return
		}
		out = append(out, Ref{Kind: kind, Name: strings.TrimSpace(*name)})
	}
	add(KindPDF, doc.PDFFileName)
	add(KindText, doc.TextFileName)
	add(KindInsights, doc.InsightsFileName)
	return out
}

// cleanName keeps artifact names inside their directory or prefix.
func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return name, nil
}

// New picks GCS when a bucket is configured and the local directories otherwise.
func New(ctx context.Context, cfg config.ArtifactsConfig, log *logger.Logger) (Store, error) {
	if strings.TrimSpace(cfg.GCSBucket) != "" {
		return NewGCSStore(ctx, cfg, log)
	}
	return NewLocalStore(cfg, log), nil
}
