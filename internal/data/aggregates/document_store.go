package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	repos "github.com/yungbote/finsights-backend/internal/data/repos/documents"
	types "github.com/yungbote/finsights-backend/internal/domain/documents"
	"github.com/yungbote/finsights-backend/internal/platform/dbctx"
)

type DocumentStoreDeps struct {
	Base BaseDeps

	Documents   repos.DocumentRepo
	Transitions repos.DocumentTransitionRepo
	Clock       *types.Clock
}

type documentStore struct {
	deps DocumentStoreDeps
	cas  CASGuard
}

// NewDocumentStore returns the SQL-backed record store. Every write runs in
// one transaction: lock the row, plan the change, compare-and-swap it in and
// append the audit row.
func NewDocumentStore(deps DocumentStoreDeps) types.Store {
	deps.Base = deps.Base.withDefaults()
	if deps.Clock == nil {
		deps.Clock = types.SystemClock()
	}
	if deps.Documents == nil {
		deps.Documents = repos.NewDocumentRepo(deps.Base.DB, deps.Base.Log)
	}
	if deps.Transitions == nil {
		deps.Transitions = repos.NewDocumentTransitionRepo(deps.Base.DB, deps.Base.Log)
	}
	return &documentStore{deps: deps, cas: NewCASGuard(deps.Documents)}
}

func (s *documentStore) Create(ctx context.Context, in types.NewDocument) (*types.Document, error) {
	const op = "documents.create"
	if err := in.Validate(); err != nil {
		return nil, err
	}
	doc := in.Build(s.deps.Clock.Stamp())
	err := executeWrite(ctx, s.deps.Base, op, func(dbc dbctx.Context) error {
		existing, err := s.deps.Documents.GetByPDFURLHash(dbc, doc.PDFURLSHA256)
		switch {
		case err == nil:
			return types.Duplicatef(op, "pdf_url_sha256 %s already tracked by %s", doc.PDFURLSHA256, existing.TranscriptUUID)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		if err := s.deps.Documents.Create(dbc, doc); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return types.DuplicateError(op, "transcript_uuid or pdf_url_sha256 already exists", err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *documentStore) CreateIfAbsent(ctx context.Context, in types.NewDocument) (*types.Document, bool, error) {
	const op = "documents.create_if_absent"
	if err := in.Validate(); err != nil {
		return nil, false, err
	}
	doc := in.Build(s.deps.Clock.Stamp())
	var (
		out      *types.Document
		inserted bool
	)
	err := executeWrite(ctx, s.deps.Base, op, func(dbc dbctx.Context) error {
		ok, err := s.deps.Documents.InsertOrIgnore(dbc, doc)
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return types.DuplicateError(op, "transcript_uuid already exists", err)
			}
			return err
		}
		if ok {
			out, inserted = doc, true
			return nil
		}
		out, err = s.deps.Documents.GetByPDFURLHash(dbc, doc.PDFURLSHA256)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return out, inserted, nil
}

func (s *documentStore) Get(ctx context.Context, transcriptUUID string) (*types.Document, error) {
	doc, err := s.deps.Documents.GetByTranscriptUUID(dbctx.New(ctx), transcriptUUID)
	if err != nil {
		return nil, MapError("documents.get", err)
	}
	return doc, nil
}

func (s *documentStore) FindByHash(ctx context.Context, pdfURLSHA256 string) (*types.Document, error) {
	doc, err := s.deps.Documents.GetByPDFURLHash(dbctx.New(ctx), pdfURLSHA256)
	if err != nil {
		return nil, MapError("documents.find_by_hash", err)
	}
	return doc, nil
}

func (s *documentStore) Transition(ctx context.Context, transcriptUUID string, to types.ProcessingStatus, fields types.TransitionFields) (*types.TransitionResult, error) {
	const op = "documents.transition"
	if !to.Valid() {
		return nil, types.Errorf(types.CodeInvalidStatus, op, "unknown processing_status %q", string(to))
	}
	return s.apply(ctx, op, transcriptUUID, func(cur *types.Document) (*types.Transition, error) {
		return types.Plan(cur, to, fields)
	})
}

func (s *documentStore) RecordInsights(ctx context.Context, transcriptUUID, fileName, createdAt string) (*types.TransitionResult, error) {
	return s.apply(ctx, "documents.record_insights", transcriptUUID, func(cur *types.Document) (*types.Transition, error) {
		return types.PlanInsights(cur, fileName, createdAt)
	})
}

func (s *documentStore) apply(ctx context.Context, op, transcriptUUID string, plan func(*types.Document) (*types.Transition, error)) (*types.TransitionResult, error) {
	transcriptUUID = strings.TrimSpace(transcriptUUID)
	if transcriptUUID == "" {
		return nil, types.Errorf(types.CodeNotFound, op, "transcript_uuid is required")
	}
	var out *types.TransitionResult
	err := executeWrite(ctx, s.deps.Base, op, func(dbc dbctx.Context) error {
		cur, err := s.deps.Documents.LockByTranscriptUUID(dbc, transcriptUUID)
		if err != nil {
			return err
		}
		tr, err := plan(cur)
		if err != nil {
			return err
		}
		tr.Next.UpdatedAt = s.deps.Clock.Next(cur.UpdatedAt)
		if err := s.cas.Apply(dbc, cur, tr); err != nil {
			return err
		}
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		if err := s.deps.Transitions.Create(dbc, []*types.DocumentTransition{types.NewTransitionRecord(id.String(), tr)}); err != nil {
			return err
		}
		out = &types.TransitionResult{Document: tr.Next, From: tr.From, To: tr.To, Kind: tr.Kind}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.deps.Base.Log.Debug("document transitioned",
		"op", op,
		"transcript_uuid", transcriptUUID,
		"from", out.From,
		"to", out.To,
		"kind", out.Kind,
	)
	return out, nil
}

func (s *documentStore) ListByStatusPage(ctx context.Context, status types.ProcessingStatus, after *types.PageCursor, limit int) ([]*types.Document, error) {
	if !status.Valid() {
		return nil, types.Errorf(types.CodeInvalidStatus, "documents.list_by_status", "unknown processing_status %q", string(status))
	}
	out, err := s.deps.Documents.ListByStatusPage(dbctx.New(ctx), status, after, types.ClampPageSize(limit))
	if err != nil {
		return nil, MapError("documents.list_by_status", err)
	}
	return out, nil
}

func (s *documentStore) CountByStatus(ctx context.Context) (map[types.ProcessingStatus]int64, error) {
	out, err := s.deps.Documents.CountByStatus(dbctx.New(ctx))
	if err != nil {
		return nil, MapError("documents.count_by_status", err)
	}
	return out, nil
}

func (s *documentStore) History(ctx context.Context, transcriptUUID string, limit int) ([]*types.DocumentTransition, error) {
	dbc := dbctx.New(ctx)
	if _, err := s.deps.Documents.GetByTranscriptUUID(dbc, transcriptUUID); err != nil {
		return nil, MapError("documents.history", err)
	}
	out, err := s.deps.Transitions.ListByTranscriptUUID(dbc, transcriptUUID, types.ClampPageSize(limit))
	if err != nil {
		return nil, MapError("documents.history", err)
	}
	return out, nil
}

func (s *documentStore) ListCreatedBefore(ctx context.Context, cutoff string, limit int) ([]*types.Document, error) {
	out, err := s.deps.Documents.ListCreatedBefore(dbctx.New(ctx), cutoff, types.ClampPageSize(limit))
	if err != nil {
		return nil, MapError("documents.list_created_before", err)
	}
	return out, nil
}

func (s *documentStore) Delete(ctx context.Context, transcriptUUIDs []string) (int64, error) {
	var n int64
	err := executeWrite(ctx, s.deps.Base, "documents.delete", func(dbc dbctx.Context) error {
		if _, err := s.deps.Transitions.DeleteByTranscriptUUIDs(dbc, transcriptUUIDs); err != nil {
			return err
		}
		var err error
		n, err = s.deps.Documents.DeleteByTranscriptUUIDs(dbc, transcriptUUIDs)
		return err
	})
	return n, err
}
