package services

import (
	"context"
	"iter"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/finsights-backend/internal/domain/documents"
	"github.com/yungbote/finsights-backend/internal/observability"
	"github.com/yungbote/finsights-backend/internal/platform/ctxutil"
	"github.com/yungbote/finsights-backend/internal/platform/logger"
	"github.com/yungbote/finsights-backend/internal/realtime/bus"
)

// DocumentService is the record store contract exposed to collaborators
// and the HTTP surface.
type DocumentService interface {
	Create(ctx context.Context, in types.NewDocument) (*types.Document, error)
	CreateIfAbsent(ctx context.Context, in types.NewDocument) (*types.Document, bool, error)
	Get(ctx context.Context, transcriptUUID string) (*types.Document, error)
	FindByHash(ctx context.Context, pdfURLSHA256 string) (*types.Document, error)
	Transition(ctx context.Context, transcriptUUID string, to types.ProcessingStatus, fields types.TransitionFields) (*types.TransitionResult, error)
	RecordInsights(ctx context.Context, transcriptUUID, fileName, createdAt string) (*types.TransitionResult, error)
	// ListByStatus lazily pages through every record in status. Each range
	// over the sequence queries afresh.
	ListByStatus(ctx context.Context, status types.ProcessingStatus) iter.Seq2[*types.Document, error]
	ListByStatusLimit(ctx context.Context, status types.ProcessingStatus, limit int) ([]*types.Document, error)
	ListPage(ctx context.Context, status types.ProcessingStatus, after *types.PageCursor, limit int) ([]*types.Document, *types.PageCursor, error)
	StatusCounts(ctx context.Context) (map[types.ProcessingStatus]int64, error)
	History(ctx context.Context, transcriptUUID string, limit int) ([]*types.DocumentTransition, error)
}

type DocumentServiceDeps struct {
	Store   types.Store
	Events  bus.Bus
	Metrics *observability.Metrics
	Log     *logger.Logger
	// PageSize is the batch ListByStatus fetches per query.
	PageSize int
}

type documentService struct {
	store    types.Store
	events   bus.Bus
	metrics  *observability.Metrics
	log      *logger.Logger
	pageSize int
}

func NewDocumentService(deps DocumentServiceDeps) DocumentService {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	events := deps.Events
	if events == nil {
		events = bus.NewNoopBus()
	}
	return &documentService{
		store:    deps.Store,
		events:   events,
		metrics:  deps.Metrics,
		log:      log.With("service", "DocumentService"),
		pageSize: types.ClampPageSize(deps.PageSize),
	}
}

func (s *documentService) Create(ctx context.Context, in types.NewDocument) (doc *types.Document, err error) {
	ctx, span := observability.StartSpan(ctx, "documents.create", attribute.String("pdf_url_sha256", in.PDFURLSHA256))
	defer func() { observability.EndSpan(span, err) }()

	doc, err = s.store.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.log.Info("document created", append(ctxutil.LogFields(ctx), "transcript_uuid", doc.TranscriptUUID, "company_name", doc.CompanyName)...)
	return doc, nil
}

func (s *documentService) CreateIfAbsent(ctx context.Context, in types.NewDocument) (doc *types.Document, inserted bool, err error) {
	ctx, span := observability.StartSpan(ctx, "documents.create_if_absent", attribute.String("pdf_url_sha256", in.PDFURLSHA256))
	defer func() { observability.EndSpan(span, err) }()

	doc, inserted, err = s.store.CreateIfAbsent(ctx, in)
	if err != nil {
		return nil, false, err
	}
	span.SetAttributes(attribute.Bool("inserted", inserted))
	if inserted {
		s.log.Info("document created", append(ctxutil.LogFields(ctx), "transcript_uuid", doc.TranscriptUUID, "company_name", doc.CompanyName)...)
	} else {
		s.log.Debug("duplicate document ignored", append(ctxutil.LogFields(ctx), "transcript_uuid", doc.TranscriptUUID)...)
	}
	return doc, inserted, nil
}

func (s *documentService) Get(ctx context.Context, transcriptUUID string) (*types.Document, error) {
	return s.store.Get(ctx, strings.TrimSpace(transcriptUUID))
}

func (s *documentService) FindByHash(ctx context.Context, pdfURLSHA256 string) (*types.Document, error) {
	return s.store.FindByHash(ctx, strings.TrimSpace(pdfURLSHA256))
}

func (s *documentService) Transition(ctx context.Context, transcriptUUID string, to types.ProcessingStatus, fields types.TransitionFields) (res *types.TransitionResult, err error) {
	ctx, span := observability.StartSpan(ctx, "documents.transition",
		attribute.String("transcript_uuid", transcriptUUID),
		attribute.String("to_status", string(to)),
	)
	defer func() { observability.EndSpan(span, err) }()

	res, err = s.store.Transition(ctx, strings.TrimSpace(transcriptUUID), to, fields)
	if err != nil {
		s.log.Debug("transition rejected", append(ctxutil.LogFields(ctx), "transcript_uuid", transcriptUUID, "to", to, "code", types.CodeOf(err))...)
		return nil, err
	}
	s.afterTransition(ctx, res)
	return res, nil
}

func (s *documentService) RecordInsights(ctx context.Context, transcriptUUID, fileName, createdAt string) (res *types.TransitionResult, err error) {
	ctx, span := observability.StartSpan(ctx, "documents.record_insights", attribute.String("transcript_uuid", transcriptUUID))
	defer func() { observability.EndSpan(span, err) }()

	res, err = s.store.RecordInsights(ctx, strings.TrimSpace(transcriptUUID), fileName, createdAt)
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, res)
	return res, nil
}

// afterTransition runs once the change is committed. Publish failures are
// logged and never undo the transition.
func (s *documentService) afterTransition(ctx context.Context, res *types.TransitionResult) {
	s.metrics.IncTransition(string(res.From), string(res.To), string(res.Kind))
	ev := bus.EventFromResult(res)
	s.log.Info("document transitioned", append(ctxutil.LogFields(ctx),
		"transcript_uuid", ev.TranscriptUUID,
		"from", ev.From,
		"to", ev.To,
		"kind", ev.Kind,
	)...)
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("publish status event failed", append(ctxutil.LogFields(ctx), "transcript_uuid", ev.TranscriptUUID, "error", err)...)
	}
}

func (s *documentService) ListByStatus(ctx context.Context, status types.ProcessingStatus) iter.Seq2[*types.Document, error] {
	return func(yield func(*types.Document, error) bool) {
		var after *types.PageCursor
		for {
			page, err := s.store.ListByStatusPage(ctx, status, after, s.pageSize)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, doc := range page {
				if !yield(doc, nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			after = types.CursorAfter(page[len(page)-1])
		}
	}
}

func (s *documentService) ListByStatusLimit(ctx context.Context, status types.ProcessingStatus, limit int) ([]*types.Document, error) {
	page, _, err := s.ListPage(ctx, status, nil, limit)
	return page, err
}

func (s *documentService) ListPage(ctx context.Context, status types.ProcessingStatus, after *types.PageCursor, limit int) ([]*types.Document, *types.PageCursor, error) {
	limit = types.ClampPageSize(limit)
	page, err := s.store.ListByStatusPage(ctx, status, after, limit)
	if err != nil {
		return nil, nil, err
	}
	var next *types.PageCursor
	if len(page) == limit {
		next = types.CursorAfter(page[len(page)-1])
	}
	return page, next, nil
}

func (s *documentService) StatusCounts(ctx context.Context) (map[types.ProcessingStatus]int64, error) {
	return s.store.CountByStatus(ctx)
}

func (s *documentService) History(ctx context.Context, transcriptUUID string, limit int) ([]*types.DocumentTransition, error) {
	return s.store.History(ctx, strings.TrimSpace(transcriptUUID), limit)
}
