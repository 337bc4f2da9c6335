package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yungbote/finsights-backend/internal/config"
	"github.com/yungbote/finsights-backend/internal/platform/logger"
)

type localStore struct {
	log  *logger.Logger
	dirs map[Kind]string
}

// NewLocalStore deletes artifacts from the pdf, text and insights directories.
func NewLocalStore(cfg config.ArtifactsConfig, log *logger.Logger) Store {
	if log == nil {
		log = logger.Nop()
	}
	return &localStore{
		log: log.With("service", "LocalArtifactStore"),
		dirs: map[Kind]string{
			KindPDF:      cfg.PDFDir,
			KindText:     cfg.TextDir,
			KindInsights: cfg.InsightsDir,
		},
	}
}

func (s *localStore) Delete(ctx context.Context, ref Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, ok := s.dirs[ref.Kind]
	if !ok || dir == "" {
		return fmt.Errorf("no directory configured for %s artifacts", ref.Kind)
	}
	name, err := cleanName(ref.Name)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, name)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("artifact already gone", "path", path)
			return nil
		}
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func (s *localStore) Close() error { return nil }
