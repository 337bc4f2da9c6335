// Package memstore is an in-process documents.Store for tests and local
// tooling. It applies the same planning rules as the SQL store.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	types "github.com/yungbote/finsights-backend/internal/domain/documents"
)

type Store struct {
	mu      sync.RWMutex
	clock   *types.Clock
	byUUID  map[string]*types.Document
	byHash  map[string]string
	history map[string][]*types.DocumentTransition
}

var _ types.Store = (*Store)(nil)

func New(clock *types.Clock) *Store {
	if clock == nil {
		clock = types.SystemClock()
	}
	return &Store{
		clock:   clock,
		byUUID:  map[string]*types.Document{},
		byHash:  map[string]string{},
		history: map[string][]*types.DocumentTransition{},
	}
}

func (s *Store) Create(ctx context.Context, in types.NewDocument) (*types.Document, error) {
	const op = "documents.create"
	if err := in.Validate(); err != nil {
		return nil, err
	}
	doc := in.Build(s.clock.Stamp())

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byHash[doc.PDFURLSHA256]; ok {
		return nil, types.Duplicatef(op, "pdf_url_sha256 %s already tracked by %s", doc.PDFURLSHA256, existing)
	}
	if _, ok := s.byUUID[doc.TranscriptUUID]; ok {
		return nil, types.Duplicatef(op, "transcript_uuid %s already exists", doc.TranscriptUUID)
	}
	s.insertLocked(doc)
	return doc.Clone(), nil
}

func (s *Store) CreateIfAbsent(ctx context.Context, in types.NewDocument) (*types.Document, bool, error) {
	const op = "documents.create_if_absent"
	if err := in.Validate(); err != nil {
		return nil, false, err
	}
	doc := in.Build(s.clock.Stamp())

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byHash[doc.PDFURLSHA256]; ok {
		return s.byUUID[existing].Clone(), false, nil
	}
	if _, ok := s.byUUID[doc.TranscriptUUID]; ok {
		return nil, false, types.Duplicatef(op, "transcript_uuid %s already exists", doc.TranscriptUUID)
	}
	s.insertLocked(doc)
	return doc.Clone(), true, nil
}

func (s *Store) insertLocked(doc *types.Document) {
	s.byUUID[doc.TranscriptUUID] = doc
	s.byHash[doc.PDFURLSHA256] = doc.TranscriptUUID
}

func (s *Store) Get(ctx context.Context, transcriptUUID string) (*types.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.byUUID[strings.TrimSpace(transcriptUUID)]
	if !ok {
		return nil, types.Errorf(types.CodeNotFound, "documents.get", "document %s not found", transcriptUUID)
	}
	return doc.Clone(), nil
}

func (s *Store) FindByHash(ctx context.Context, pdfURLSHA256 string) (*types.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHash[strings.TrimSpace(pdfURLSHA256)]
	if !ok {
		return nil, types.Errorf(types.CodeNotFound, "documents.find_by_hash", "no document with pdf_url_sha256 %s", pdfURLSHA256)
	}
	return s.byUUID[id].Clone(), nil
}

func (s *Store) Transition(ctx context.Context, transcriptUUID string, to types.ProcessingStatus, fields types.TransitionFields) (*types.TransitionResult, error) {
	if !to.Valid() {
		return nil, types.Errorf(types.CodeInvalidStatus, "documents.transition", "unknown processing_status %q", string(to))
	}
	return s.apply("documents.transition", transcriptUUID, func(cur *types.Document) (*types.Transition, error) {
		return types.Plan(cur, to, fields)
	})
}

func (s *Store) RecordInsights(ctx context.Context, transcriptUUID, fileName, createdAt string) (*types.TransitionResult, error) {
	return s.apply("documents.record_insights", transcriptUUID, func(cur *types.Document) (*types.Transition, error) {
		return types.PlanInsights(cur, fileName, createdAt)
	})
}

// apply holds the write lock across plan and swap, which is the in-memory
// equivalent of the SQL store's locked read-modify-write.
func (s *Store) apply(op, transcriptUUID string, plan func(*types.Document) (*types.Transition, error)) (*types.TransitionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byUUID[strings.TrimSpace(transcriptUUID)]
	if !ok {
		return nil, types.Errorf(types.CodeNotFound, op, "document %s not found", transcriptUUID)
	}
	tr, err := plan(cur)
	if err != nil {
		return nil, err
	}
	tr.Next.UpdatedAt = s.clock.Next(cur.UpdatedAt)
	id, err := uuid.NewV7()
	if err != nil {
		return nil, types.Wrap(types.CodeInternal, op, err)
	}
	s.byUUID[cur.TranscriptUUID] = tr.Next
	s.history[cur.TranscriptUUID] = append(s.history[cur.TranscriptUUID], types.NewTransitionRecord(id.String(), tr))
	return &types.TransitionResult{Document: tr.Next.Clone(), From: tr.From, To: tr.To, Kind: tr.Kind}, nil
}

func (s *Store) ListByStatusPage(ctx context.Context, status types.ProcessingStatus, after *types.PageCursor, limit int) ([]*types.Document, error) {
	if !status.Valid() {
		return nil, types.Errorf(types.CodeInvalidStatus, "documents.list_by_status", "unknown processing_status %q", string(status))
	}
	limit = types.ClampPageSize(limit)

	s.mu.RLock()
	var matched []*types.Document
	for _, doc := range s.byUUID {
		if doc.ProcessingStatus == status && after.Before(doc) {
			matched = append(matched, doc.Clone())
		}
	}
	s.mu.RUnlock()

	sortListOrder(matched)
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func sortListOrder(docs []*types.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].AnnouncementDate != docs[j].AnnouncementDate {
			return docs[i].AnnouncementDate > docs[j].AnnouncementDate
		}
		return docs[i].TranscriptUUID > docs[j].TranscriptUUID
	})
}

func (s *Store) CountByStatus(ctx context.Context) (map[types.ProcessingStatus]int64, error) {
	out := map[types.ProcessingStatus]int64{}
	for _, st := range types.Statuses() {
		out[st] = 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.byUUID {
		out[doc.ProcessingStatus]++
	}
	return out, nil
}

func (s *Store) History(ctx context.Context, transcriptUUID string, limit int) ([]*types.DocumentTransition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.byUUID[transcriptUUID]; !ok {
		return nil, types.Errorf(types.CodeNotFound, "documents.history", "document %s not found", transcriptUUID)
	}
	rows := s.history[transcriptUUID]
	if limit = types.ClampPageSize(limit); len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]*types.DocumentTransition, 0, len(rows))
	for _, row := range rows {
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) ListCreatedBefore(ctx context.Context, cutoff string, limit int) ([]*types.Document, error) {
	s.mu.RLock()
	var out []*types.Document
	for _, doc := range s.byUUID {
		if doc.CreatedAt < cutoff {
			out = append(out, doc.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].TranscriptUUID < out[j].TranscriptUUID
	})
	if limit = types.ClampPageSize(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, transcriptUUIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range transcriptUUIDs {
		doc, ok := s.byUUID[id]
		if !ok {
			continue
		}
		delete(s.byHash, doc.PDFURLSHA256)
		delete(s.byUUID, id)
		delete(s.history, id)
		n++
	}
	return n, nil
}
