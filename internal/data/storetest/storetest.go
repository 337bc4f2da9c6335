// Package storetest holds behavior tests every documents.Store must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	types "github.com/yungbote/finsights-backend/internal/domain/documents"
)

// Factory returns an empty store using clock for store-owned timestamps.
type Factory func(t *testing.T, clock *types.Clock) types.Store

// FixedClock starts at 2025-01-01T00:00:00 UTC and only moves when advanced.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixedClock() (*FixedClock, *types.Clock) {
	fc := &FixedClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	return fc, &types.Clock{Now: fc.Now, Location: time.UTC, Layout: types.DefaultTimestampLayout, Resolution: time.Second}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func str(s string) *string { return &s }

// Input returns a valid creation payload keyed by n.
func Input(n int) types.NewDocument {
	url := fmt.Sprintf("https://www.bseindia.com/xml-data/corpfiling/AttachLive/%d.pdf", n)
	return types.NewDocument{
		TranscriptUUID:   fmt.Sprintf("doc-%03d", n),
		CompanyName:      fmt.Sprintf("Company %d", n),
		ScriptCode:       fmt.Sprintf("5%05d", n),
		PDFURL:           url,
		PDFURLSHA256:     types.HashPDFURL(url),
		JSONText:         fmt.Sprintf(`{"NEWSID":"%d"}`, n),
		AnnouncementDate: fmt.Sprintf("2025-01-%02dT10:00:00", 1+n%28),
	}
}

func Downloaded() types.TransitionFields {
	return types.TransitionFields{PDFFileName: str("1.pdf"), PDFCreatedAt: str("2024-01-01T00:00:00Z")}
}

func Parsed() types.TransitionFields {
	return types.TransitionFields{TextFileName: str("1.txt"), TextFileCreatedAt: str("2024-01-01T00:05:00Z")}
}

func Failed(msg string) types.TransitionFields {
	return types.TransitionFields{ErrorMessage: str(msg)}
}

// Run executes the shared behavior suite against newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateThenDuplicateHash", func(t *testing.T) { testCreateDuplicateHash(t, newStore) })
	t.Run("CreateValidation", func(t *testing.T) { testCreateValidation(t, newStore) })
	t.Run("CreateDuplicateUUID", func(t *testing.T) { testCreateDuplicateUUID(t, newStore) })
	t.Run("CreateIfAbsent", func(t *testing.T) { testCreateIfAbsent(t, newStore) })
	t.Run("GetAndFindByHash", func(t *testing.T) { testGetAndFind(t, newStore) })
	t.Run("TransitionDownload", func(t *testing.T) { testTransitionDownload(t, newStore) })
	t.Run("InvalidStatus", func(t *testing.T) { testInvalidStatus(t, newStore) })
	t.Run("IllegalTransitionLeavesRecord", func(t *testing.T) { testIllegalTransition(t, newStore) })
	t.Run("FailureRoundTrip", func(t *testing.T) { testFailureRoundTrip(t, newStore) })
	t.Run("Idempotence", func(t *testing.T) { testIdempotence(t, newStore) })
	t.Run("RetryToDiscoveredClearsFiles", func(t *testing.T) { testRetryClears(t, newStore) })
	t.Run("Insights", func(t *testing.T) { testInsights(t, newStore) })
	t.Run("MissingFields", func(t *testing.T) { testMissingFields(t, newStore) })
	t.Run("TransitionNotFound", func(t *testing.T) { testTransitionNotFound(t, newStore) })
	t.Run("ListByStatusPages", func(t *testing.T) { testListByStatus(t, newStore) })
	t.Run("CountByStatus", func(t *testing.T) { testCountByStatus(t, newStore) })
	t.Run("History", func(t *testing.T) { testHistory(t, newStore) })
	t.Run("RetentionDelete", func(t *testing.T) { testRetentionDelete(t, newStore) })
	t.Run("ConcurrentTransitions", func(t *testing.T) { testConcurrentTransitions(t, newStore) })
}

func mustCreate(t *testing.T, s types.Store, in types.NewDocument) *types.Document {
	t.Helper()
	doc, err := s.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create %s: %v", in.TranscriptUUID, err)
	}
	return doc
}

func mustTransition(t *testing.T, s types.Store, id string, to types.ProcessingStatus, f types.TransitionFields) *types.TransitionResult {
	t.Helper()
	res, err := s.Transition(context.Background(), id, to, f)
	if err != nil {
		t.Fatalf("transition %s -> %s: %v", id, to, err)
	}
	return res
}

func mustGet(t *testing.T, s types.Store, id string) *types.Document {
	t.Helper()
	doc, err := s.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return doc
}

func wantCode(t *testing.T, err error, code types.ErrorCode) {
	t.Helper()
	if !types.IsCode(err, code) {
		t.Fatalf("error code: want=%s got=%q (%v)", code, types.CodeOf(err), err)
	}
}

func testCreateDuplicateHash(t *testing.T, newStore Factory) {
	_, clock := NewFixedClock()
	s := newStore(t, clock)
	ctx := context.Background()

	in := types.NewDocument{
		TranscriptUUID:   "t1",
		CompanyName:      "Acme",
		ScriptCode:       "500001",
		PDFURL:           "http://x/1.pdf",
		PDFURLSHA256:     "abc123",
		JSONText:         `{}`,
		AnnouncementDate: "2025-01-01T09:00:00",
	}
	doc, err := s.Create(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if doc.ProcessingStatus != types.StatusDiscovered {
		t.Fatalf("status: want=discovered got=%s", doc.ProcessingStatus)
	}
	if doc.PDFFileName != nil || doc.ErrorMessage != nil || doc.InsightsFileName != nil {
		t.Fatalf("optional fields should be null: %+v", doc)
	}
	if doc.CreatedAt != "2025-01-01T00:00:00" || doc.UpdatedAt != doc.CreatedAt {
		t.Fatalf("timestamps: created=%s updated=%s", doc.CreatedAt, doc.UpdatedAt)
	}

	dup := in
	dup.TranscriptUUID = "t2"
	dup.CompanyName = "Other"
	_, err = s.Create(ctx, dup)
	wantCode(t, err, types.CodeConstraintViolation)
	if !types.IsDuplicate(err) {
		t.Fatalf("duplicate hash should be marked duplicate: %v", err)
	}

	got := mustGet(t, s, "t1")
	if got.CompanyName != "Acme" {
		t.Fatalf("existing record changed: %+v", got)
	}
	if _, err := s.Get(ctx, "t2"); !types.IsCode(err, types.CodeNotFound) {
		t.Fatalf("duplicate should not persist: %v", err)
	}
}

func testCreateValidation(t *testing.T, newStore Factory) {
	_, clock := NewFixedClock()
	s := newStore(t, clock)

	cases := map[string]func(*types.NewDocument){
		"company":      func(in *types.NewDocument) { in.CompanyName = " " },
		"script":       func(in *types.NewDocument) { in.ScriptCode = "" },
		"url":          func(in *types.NewDocument) { in.PDFURL = "" },
		"relative url": func(in *types.NewDocument) { in.PDFURL = "/1.pdf" },
		"hash":         func(in *types.NewDocument) { in.PDFURLSHA256 = "" },
		"json":         func(in *types.NewDocument) { in.JSONText = "{not json" },
		"announcement": func(in *types.NewDocument) { in.AnnouncementDate = "yesterday" },
		"blank uuid":   func(in *types.NewDocument) { in.TranscriptUUID = "   " },
	}
	for name, mutate := range cases {
		in := Input(1)
		mutate(&in)
		_, err := s.Create(context.Background(), in)
		if !types.IsCode(err, types.CodeConstraintViolation) {
			t.Fatalf("%s: want constraint_violation got=%v", name, err)
		}
		if types.IsDuplicate(err) {
			t.Fatalf("%s: validation failure marked duplicate: %v", name, err)
		}
	}

	in := Input(2)
	in.TranscriptUUID = ""
	doc := mustCreate(t, s, in)
	if doc.TranscriptUUID == "" {
		t.Fatalf("expected generated transcript_uuid")
	}
	mustGet(t, s, doc.TranscriptUUID)
}

func testCreateDuplicateUUID(t *testing.T, newStore Factory) {
	_, clock := NewFixedClock()
	s := newStore(t, clock)
	mustCreate(t, s, Input(1))

	in := Input(2)
	in.TranscriptUUID = Input(1).TranscriptUUID
	_, err := s.Create(context.Background(), in)
	wantCode(t, err, types.CodeConstraintViolation)
	if !types.IsDuplicate(err) {
		t.Fatalf("duplicate transcript_uuid should be marked duplicate: %v", err)
	}
}

func testCreateIfAbsent(t *testing.T, newStore Factory) {
	_, clock := NewFixedClock()
	s := newStore(t, clock)
	ctx := context.Background()

	first, inserted, err := s.CreateIfAbsent(ctx, Input(1))
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}
	again := Input(1)
	again.TranscriptUUID = "doc-other"
	got, inserted, err := s.CreateIfAbsent(ctx, again)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Fatalf("second insert should be ignored")
	}
	if got.TranscriptUUID != first.TranscriptUUID {
		t.Fatalf("existing record: want=%s got=%s", first.TranscriptUUID, got.TranscriptUUID)
	}
	if _, err := s.Get(ctx, "doc-other"); !types.IsCode(err, types.CodeNotFound) {
		t.Fatalf("ignored insert should not persist: %v", err)
	}
}

func testGetAndFind(t *testing.T, newStore Factory) {
	_, clock := NewFixedClock()
	s := newStore(t, clock)
	ctx := context.Background()
	in := Input(3)
	mustCreate(t, s, in)

	doc, err := s.FindByHash(ctx, in.PDFURLSHA256)
	if err != nil {
		t.Fatalf("find by hash: %v", err)
	}
	if doc.TranscriptUUID != in.TranscriptUUID {
		t.Fatalf("find by hash: want=%s got=%s", in.TranscriptUUID, doc.TranscriptUUID)
	}
	if doc.JSONText != in.JSONText || doc.AnnouncementDate != in.AnnouncementDate {
		t.Fatalf("round trip mismatch: %+v", doc)
	}
	_, err = s.FindByHash(ctx, "missing")
	wantCode(t, err, types.CodeNotFound)
	_, err = s.Get(ctx, "missing")
	wantCode(t, err, types.CodeNotFound)
}

func testTransitionDownload(t *testing.T, newStore Factory) {
	fc, clock := NewFixedClock()
	s := newStore(t, clock)
	created := mustCreate(t, s, Input(1))

	fc.Advance(time.Minute)
	res := mustTransition(t, s, created.TranscriptUUID, types.StatusDownloaded, Downloaded())
	if res.From != types.StatusDiscovered || res.To != types.StatusDownloaded || res.Kind != types.KindAdvance {
		t.Fatalf("result: %+v", res)
	}
	doc := mustGet(t, s, created.TranscriptUUID)
	if doc.ProcessingStatus != types.StatusDownloaded {
		t.Fatalf("status: want=downloaded got=%s", doc.ProcessingStatus)
	}
	if doc.UpdatedAt == created.UpdatedAt {
		t.Fatalf("updated_at should change, still %s", doc.UpdatedAt)
	}
	if doc.UpdatedAt != "2025-01-01T00:01:00" {
		t.Fatalf("updated_at: want=2025-01-01T00:01:00 got=%s", doc.UpdatedAt)
	}
	if doc.PDFFileName == nil || *doc.PDFFileName != "1.pdf" {
		t.Fatalf("pdf_file_name: %v", doc.PDFFileName)
	}
	if doc.CreatedAt != created.CreatedAt {
		t.Fatalf("created_at changed: %s -> %s", created.CreatedAt, doc.CreatedAt)
	}
}

func testInvalidStatus(t *testing.T, newStore Factory) {
	_, clock := NewFixedClock()
	s := newStore(t, clock)
	created := mustCreate(t, s, Input(1))

	_, err := s.Transition(context.Background(), created.TranscriptUUID, types.ProcessingStatus("done"), types.TransitionFields{})
	wantCode(t, err, types.CodeInvalidStatus)
	// Status is checked before the record lookup.
	_, err = s.Transition(context.Background(), "missing-transcript", types.ProcessingStatus("bogus"), types.TransitionFields{})
	wantCode(t, err, types.CodeInvalidStatus)
	_, err = s.ListByStatusPage(context.Background(), types.ProcessingStatus("DOWNLOADED"), nil, 10)
	wantCode(t, err, types.CodeInvalidStatus)
}

func testIllegalTransition(t *testing.T, newStore Factory) {
	_, clock := NewFixedClock()
	s := newStore(t, clock)
	created := mustCreate(t, s, Input(1))

	_, err := s.Transition(context.Background(), created.TranscriptUUID, types.StatusParsed, Parsed())
	wantCode(t, err, types.CodeIllegalTransition)
	doc := mustGet(t, s, created.TranscriptUUID)
	if doc.ProcessingStatus != types.StatusDiscovered || doc.UpdatedAt != created.UpdatedAt {
		t.Fatalf("record changed after rejected transition: %+v", doc)
	}

	mustTransition(t, s, created.TranscriptUUID, types.StatusDownloaded, Downloaded())
	mustTransition(t, s, created.TranscriptUUID, types.StatusParsed, Parsed())
	_, err = s.Transition(context.Background(), created.TranscriptUUID, types.StatusDownloaded, Downloaded())
	wantCode(t, err, types.CodeIllegalTransition)
}

func testFailureRoundTrip(t *testing.T, newStore Factory) {
	_, clock := NewFixedClock()
	s := newStore(t, clock)
	created := mustCreate(t, s, Input(1))

	res := mustTransition(t, s, created.TranscriptUUID, types.StatusFailed, Failed("timeout"))
	if res.Kind != types.KindFail {
		t.Fatalf("kind: want=fail got=%s", res.Kind)
	}
	doc := mustGet(t, s, created.TranscriptUUID)
	if doc.ErrorMessage == nil || *doc.ErrorMessage != "timeout" {
		t.Fatalf("error_message: %v", doc.ErrorMessage)
	}

	res = mustTransition(t, s, created.TranscriptUUID, types.StatusDownloaded, Downloaded())
	if res.Kind != types.KindRetry {
		t.Fatalf("kind: want=retry got=%s", res.Kind)
	}
	doc = mustGet(t, s, created.TranscriptUUID)
	if doc.ErrorMessage != nil {
		t.Fatalf("error_message should be cleared, got %q", *doc.ErrorMessage)
	}
	if doc.ProcessingStatus != types.StatusDownloaded {
		t.Fatalf("status: want=downloaded got=%s", doc.ProcessingStatus)
	}
}

func testIdempotence(t *testing.T, newStore Factory) {
	_, clock := NewFixedClock()
	s := newStore(t, clock)
	created := mustCreate(t, s, Input(1))

	mustTransition(t, s, created.TranscriptUUID, types.StatusDownloaded, Downloaded())
	first := mustGet(t, s, created.TranscriptUUID)

	res := mustTransition(t, s, created.TranscriptUUID, types.StatusDownloaded, Downloaded())
	if res.Kind != types.KindRepeat {
		t.Fatalf("kind: want=repeat got=%s", res.Kind)
	}
	second := mustGet(t, s, created.TranscriptUUID)
	if second.UpdatedAt <= first.UpdatedAt {
		t.Fatalf("updated_at should advance: %s -> %s", first.UpdatedAt, second.UpdatedAt)
	}
	a, b := first.Clone(), second.Clone()
	a.UpdatedAt, b.UpdatedAt = "", ""
	if fmt.Sprintf("%+v", derefAll(a)) != fmt.Sprintf("%+v", derefAll(b)) {
		t.Fatalf("data changed on repeat:\nfirst=%+v\nsecond=%+v", derefAll(a), derefAll(b))
	}

	other := types.TransitionFields{PDFFileName: str("2.pdf"), PDFCreatedAt: str("2024-01-02T00:00:00Z")}
	_, err := s.Transition(context.Background(), created.TranscriptUUID, types.StatusDownloaded, other)
	wantCode(t, err, types.CodeIllegalTransition)
}

func testRetryClears(t *testing.T, newStore Factory) {
	_, clock := NewFixedClock()
	s := newStore(t, clock)
	id := mustCreate(t, s, Input(1)).TranscriptUUID

	mustTransition(t, s, id, types.StatusDownloaded, Downloaded())
	mustTransition(t, s, id, types.StatusParsed, Parsed())
	mustTransition(t, s, id, types.StatusFailed, Failed("parser crashed"))
	doc := mustGet(t, s, id)
	if doc.TextFileName == nil || doc.PDFFileName == nil {
		t.Fatalf("failed should keep earlier files: %+v", doc)
	}

	mustTransition(t, s, id, types.StatusDiscovered, types.TransitionFields{})
	doc = mustGet(t, s, id)
	if doc.PDFFileName != nil || doc.PDFCreatedAt != nil || doc.TextFileName != nil || doc.TextFileCreatedAt != nil || doc.ErrorMessage != nil {
		t.Fatalf("retry to discovered should clear files and error: %+v", doc)
	}
}

func testInsights(t *testing.T, newStore Factory) {
	_, clock := NewFixedClock()
	s := newStore(t, clock)
	ctx := context.Background()
	id := mustCreate(t, s, Input(1)).TranscriptUUID

	_, err := s.RecordInsights(ctx, id, "1.json", "2024-01-01T01:00:00Z")
	wantCode(t, err, types.CodeIllegalTransition)

	mustTransition(t, s, id, types.StatusDownloaded, Downloaded())
	mustTransition(t, s, id, types.StatusParsed, Parsed())
	res, err := s.RecordInsights(ctx, id, "1.json", "2024-01-01T01:00:00Z")
	if err != nil {
		t.Fatalf("record insights: %v", err)
	}
	if res.Kind != types.KindInsights || res.To != types.StatusParsed {
		t.Fatalf("result: %+v", res)
	}
	doc := mustGet(t, s, id)
	if doc.InsightsFileName == nil || *doc.InsightsFileName != "1.json" || doc.ProcessingStatus != types.StatusParsed {
		t.Fatalf("insights not recorded: %+v", doc)
	}

	_, err = s.RecordInsights(ctx, id, "", "2024-01-01T01:00:00Z")
	wantCode(t, err, types.CodeConstraintViolation)
}

func testMissingFields(t *testing.T, newStore Factory) {
	_, clock := NewFixedClock()
	s := newStore(t, clock)
	ctx := context.Background()
	id := mustCreate(t, s, Input(1)).TranscriptUUID

	_, err := s.Transition(ctx, id, types.StatusDownloaded, types.TransitionFields{PDFFileName: str("1.pdf")})
	wantCode(t, err, types.CodeConstraintViolation)
	_, err = s.Transition(ctx, id, types.StatusFailed, types.TransitionFields{})
	wantCode(t, err, types.CodeConstraintViolation)
	_, err = s.Transition(ctx, id, types.StatusDownloaded, types.TransitionFields{PDFFileName: str("1.pdf"), PDFCreatedAt: str("soon")})
	wantCode(t, err, types.CodeConstraintViolation)

	doc := mustGet(t, s, id)
	if doc.ProcessingStatus != types.StatusDiscovered {
		t.Fatalf("status changed: %s", doc.ProcessingStatus)
	}
}

func testTransitionNotFound(t *testing.T, newStore Factory) {
	_, clock := NewFixedClock()
	s := newStore(t, clock)
	_, err := s.Transition(context.Background(), "missing", types.StatusDownloaded, Downloaded())
	wantCode(t, err, types.CodeNotFound)
	_, err = s.History(context.Background(), "missing", 10)
	wantCode(t, err, types.CodeNotFound)
}

func testListByStatus(t *testing.T, newStore Factory) {
	_, clock := NewFixedClock()
	s := newStore(t, clock)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		mustCreate(t, s, Input(i))
	}
	mustTransition(t, s, Input(3).TranscriptUUID, types.StatusDownloaded, Downloaded())

	var (
		seen  []string
		after *types.PageCursor
	)
	for {
		page, err := s.ListByStatusPage(ctx, types.StatusDiscovered, after, 2)
		if err != nil {
			t.Fatalf("list page: %v", err)
		}
		if len(page) == 0 {
			break
		}
		if len(page) > 2 {
			t.Fatalf("page size: want<=2 got=%d", len(page))
		}
		for _, d := range page {
			if d.ProcessingStatus != types.StatusDiscovered {
				t.Fatalf("listed %s with status %s", d.TranscriptUUID, d.ProcessingStatus)
			}
			seen = append(seen, d.TranscriptUUID)
		}
		after = types.CursorAfter(page[len(page)-1])
	}
	want := []string{"doc-006", "doc-005", "doc-004", "doc-002", "doc-001", "doc-000"}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Fatalf("order: want=%v got=%v", want, seen)
	}

	page, err := s.ListByStatusPage(ctx, types.StatusDownloaded, nil, 10)
	if err != nil {
		t.Fatalf("list downloaded: %v", err)
	}
	if len(page) != 1 || page[0].TranscriptUUID != "doc-003" {
		t.Fatalf("downloaded page: %+v", page)
	}
}

func testCountByStatus(t *testing.T, newStore Factory) {
	_, clock := NewFixedClock()
	s := newStore(t, clock)
	for i := 0; i < 3; i++ {
		mustCreate(t, s, Input(i))
	}
	mustTransition(t, s, Input(0).TranscriptUUID, types.StatusFailed, Failed("timeout"))

	counts, err := s.CountByStatus(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[types.StatusDiscovered] != 2 || counts[types.StatusFailed] != 1 {
		t.Fatalf("counts: %+v", counts)
	}
	if _, ok := counts[types.StatusParsed]; !ok {
		t.Fatalf("counts should include every status: %+v", counts)
	}
}

func testHistory(t *testing.T, newStore Factory) {
	_, clock := NewFixedClock()
	s := newStore(t, clock)
	id := mustCreate(t, s, Input(1)).TranscriptUUID
	mustTransition(t, s, id, types.StatusFailed, Failed("timeout"))
	mustTransition(t, s, id, types.StatusDownloaded, Downloaded())

	hist, err := s.History(context.Background(), id, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("history length: want=2 got=%d", len(hist))
	}
	if hist[0].ToStatus != types.StatusFailed || hist[0].Kind != types.KindFail {
		t.Fatalf("first entry: %+v", hist[0])
	}
	if hist[0].ErrorMessage == nil || *hist[0].ErrorMessage != "timeout" {
		t.Fatalf("first entry error_message: %v", hist[0].ErrorMessage)
	}
	if hist[1].FromStatus != types.StatusFailed || hist[1].ToStatus != types.StatusDownloaded || hist[1].Kind != types.KindRetry {
		t.Fatalf("second entry: %+v", hist[1])
	}
	if hist[1].CreatedAt <= hist[0].CreatedAt {
		t.Fatalf("history should be ordered: %s then %s", hist[0].CreatedAt, hist[1].CreatedAt)
	}
}

func testRetentionDelete(t *testing.T, newStore Factory) {
	fc, clock := NewFixedClock()
	s := newStore(t, clock)
	ctx := context.Background()
	old := mustCreate(t, s, Input(1))
	mustTransition(t, s, old.TranscriptUUID, types.StatusFailed, Failed("timeout"))
	fc.Advance(48 * time.Hour)
	fresh := mustCreate(t, s, Input(2))

	cutoff := "2025-01-02T00:00:00"
	stale, err := s.ListCreatedBefore(ctx, cutoff, 10)
	if err != nil {
		t.Fatalf("list created before: %v", err)
	}
	if len(stale) != 1 || stale[0].TranscriptUUID != old.TranscriptUUID {
		t.Fatalf("stale: %+v", stale)
	}
	n, err := s.Delete(ctx, []string{old.TranscriptUUID})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted: want=1 got=%d", n)
	}
	_, err = s.Get(ctx, old.TranscriptUUID)
	wantCode(t, err, types.CodeNotFound)
	mustGet(t, s, fresh.TranscriptUUID)

	// the hash is free again once the record is gone
	if _, inserted, err := s.CreateIfAbsent(ctx, Input(1)); err != nil || !inserted {
		t.Fatalf("recreate: inserted=%v err=%v", inserted, err)
	}
}

func testConcurrentTransitions(t *testing.T, newStore Factory) {
	_, clock := NewFixedClock()
	s := newStore(t, clock)
	id := mustCreate(t, s, Input(1)).TranscriptUUID

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		advanced int
		errs     []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f := types.TransitionFields{PDFFileName: str(fmt.Sprintf("%d.pdf", i)), PDFCreatedAt: str("2024-01-01T00:00:00Z")}
			res, err := s.Transition(context.Background(), id, types.StatusDownloaded, f)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if res.Kind == types.KindAdvance {
				advanced++
			}
		}(i)
	}
	wg.Wait()

	if advanced != 1 {
		t.Fatalf("advances: want=1 got=%d (errs=%v)", advanced, errs)
	}
	for _, err := range errs {
		switch types.CodeOf(err) {
		case types.CodeIllegalTransition, types.CodeConflict, types.CodeBusy:
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	hist, err := s.History(context.Background(), id, 100)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 1 {
		t.Fatalf("history length: want=1 got=%d", len(hist))
	}
}

func derefAll(d *types.Document) map[string]string {
	out := map[string]string{
		"uuid":    d.TranscriptUUID,
		"status":  string(d.ProcessingStatus),
		"created": d.CreatedAt,
		"updated": d.UpdatedAt,
	}
	for name, p := range map[string]*string{
		"pdf": d.PDFFileName, "pdf_at": d.PDFCreatedAt,
		"text": d.TextFileName, "text_at": d.TextFileCreatedAt,
		"insights": d.InsightsFileName, "insights_at": d.InsightsCreatedAt,
		"error": d.ErrorMessage,
	} {
		if p != nil {
			out[name] = *p
		}
	}
	return out
}
