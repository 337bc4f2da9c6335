package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/finsights-backend/internal/domain/documents"
	"github.com/yungbote/finsights-backend/internal/observability"
	"github.com/yungbote/finsights-backend/internal/platform/artifacts"
	"github.com/yungbote/finsights-backend/internal/platform/logger"
)

type RetentionOptions struct {
	// Days is the age in days past which records are removed.
	Days int
	// Limit caps the number of records handled in one run. Zero means no cap.
	Limit  int
	DryRun bool
}

type RetentionReport struct {
	Cutoff           string
	Matched          int
	Deleted          int64
	ArtifactsDeleted int
	// Kept lists records whose artifacts could not be removed; they stay
	// in the store so the next run retries them.
	Kept []string
}

// RetentionService removes records older than a cutoff together with the
// pdf, text and insight files they point at.
type RetentionService interface {
	Run(ctx context.Context, opts RetentionOptions) (*RetentionReport, error)
}

type RetentionServiceDeps struct {
	Store       types.Store
	Artifacts   artifacts.Store
	Clock       *types.Clock
	Log         *logger.Logger
	BatchSize   int
	Concurrency int
}

type retentionService struct {
	store       types.Store
	artifacts   artifacts.Store
	clock       *types.Clock
	log         *logger.Logger
	batchSize   int
	concurrency int
}

func NewRetentionService(deps RetentionServiceDeps) RetentionService {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = types.SystemClock()
	}
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &retentionService{
		store:       deps.Store,
		artifacts:   deps.Artifacts,
		clock:       clock,
		log:         log.With("service", "RetentionService"),
		batchSize:   types.ClampPageSize(deps.BatchSize),
		concurrency: concurrency,
	}
}

func (s *retentionService) Run(ctx context.Context, opts RetentionOptions) (report *RetentionReport, err error) {
	if opts.Days < 0 {
		return nil, fmt.Errorf("retention days must not be negative")
	}
	ctx, span := observability.StartSpan(ctx, "documents.retention")
	defer func() { observability.EndSpan(span, err) }()

	report = &RetentionReport{Cutoff: s.clock.StampBefore(time.Duration(opts.Days) * 24 * time.Hour)}
	kept := map[string]bool{}
	for {
		batch := s.batchSize
		if opts.Limit > 0 {
			remaining := opts.Limit - report.Matched
			if remaining <= 0 {
				break
			}
			batch = min(batch, remaining)
		}
		// kept records reappear in every listing, so over-fetch by their count
		docs, err := s.store.ListCreatedBefore(ctx, report.Cutoff, batch+len(kept))
		if err != nil {
			return report, err
		}
		docs = skipKept(docs, kept, batch)
		if len(docs) == 0 {
			break
		}
		report.Matched += len(docs)

		if opts.DryRun {
			for _, doc := range docs {
				s.log.Info("retention dry run", "transcript_uuid", doc.TranscriptUUID, "created_at", doc.CreatedAt, "artifacts", len(artifacts.RefsFor(doc)))
			}
			// listing is not consumed without deletes; one page is the whole answer
			break
		}

		removable, removed := s.deleteArtifacts(ctx, docs)
		report.ArtifactsDeleted += removed
		for _, doc := range docs {
			if !removable[doc.TranscriptUUID] {
				kept[doc.TranscriptUUID] = true
				report.Kept = append(report.Kept, doc.TranscriptUUID)
			}
		}
		ids := make([]string, 0, len(removable))
		for _, doc := range docs {
			if removable[doc.TranscriptUUID] {
				ids = append(ids, doc.TranscriptUUID)
			}
		}
		if len(ids) > 0 {
			n, err := s.store.Delete(ctx, ids)
			if err != nil {
				return report, err
			}
			report.Deleted += n
		}
		if len(docs) < batch {
			break
		}
	}

	s.log.Info("retention finished",
		"cutoff", report.Cutoff,
		"matched", report.Matched,
		"deleted", report.Deleted,
		"artifacts_deleted", report.ArtifactsDeleted,
		"kept", len(report.Kept),
		"dry_run", opts.DryRun,
	)
	return report, nil
}

// deleteArtifacts removes every artifact of docs with bounded parallelism
// and reports which records lost all of their files.
func (s *retentionService) deleteArtifacts(ctx context.Context, docs []*types.Document) (map[string]bool, int) {
	var (
		mu      sync.Mutex
		failed  = map[string]bool{}
		removed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, doc := range docs {
		if s.artifacts == nil {
			break
		}
		for _, ref := range artifacts.RefsFor(doc) {
			id, ref := doc.TranscriptUUID, ref
			g.Go(func() error {
				err := s.artifacts.Delete(gctx, ref)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failed[id] = true
					s.log.Warn("artifact delete failed", "transcript_uuid", id, "artifact", ref.String(), "error", err)
					return nil
				}
				removed++
				return nil
			})
		}
	}
	_ = g.Wait()

	ok := make(map[string]bool, len(docs))
	for _, doc := range docs {
		if !failed[doc.TranscriptUUID] {
			ok[doc.TranscriptUUID] = true
		}
	}
	return ok, removed
}

func skipKept(docs []*types.Document, kept map[string]bool, limit int) []*types.Document {
	out := docs[:0]
	for _, doc := range docs {
		if kept[doc.TranscriptUUID] {
			continue
		}
		out = append(out, doc)
		if len(out) == limit {
			break
		}
	}
	return out
}
