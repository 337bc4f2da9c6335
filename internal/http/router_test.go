package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/finsights-backend/internal/data/memstore"
	"github.com/yungbote/finsights-backend/internal/data/storetest"
	types "github.com/yungbote/finsights-backend/internal/domain/documents"
	apphttp "github.com/yungbote/finsights-backend/internal/http"
	httpH "github.com/yungbote/finsights-backend/internal/http/handlers"
	"github.com/yungbote/finsights-backend/internal/http/response"
	"github.com/yungbote/finsights-backend/internal/observability"
	"github.com/yungbote/finsights-backend/internal/platform/logger"
	"github.com/yungbote/finsights-backend/internal/services"
)

func newTestRouter(t *testing.T) (*gin.Engine, *observability.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	_, clock := storetest.NewFixedClock()
	metrics := observability.NewMetrics()
	svc := services.NewDocumentService(services.DocumentServiceDeps{
		Store:   memstore.New(clock),
		Metrics: metrics,
		Log:     logger.Nop(),
	})
	r := apphttp.NewRouter(apphttp.RouterConfig{
		Log:             logger.Nop(),
		Metrics:         metrics,
		MaxRequestBytes: 1 << 16,
		DocumentHandler: httpH.NewDocumentHandler(svc),
		HealthHandler:   httpH.NewHealthHandler(nil),
	})
	return r, metrics
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

type documentBody struct {
	Document *types.Document `json:"document"`
	Inserted *bool           `json:"inserted"`
}

func TestCreateAndGetDocument(t *testing.T) {
	r, _ := newTestRouter(t)
	in := storetest.Input(1)

	rec := do(t, r, http.MethodPost, "/api/documents", in)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: want=%d got=%d body=%s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	created := decode[documentBody](t, rec)
	if created.Document.ProcessingStatus != types.StatusDiscovered {
		t.Fatalf("status: want=%q got=%q", types.StatusDiscovered, created.Document.ProcessingStatus)
	}

	rec = do(t, r, http.MethodGet, "/api/documents/"+in.TranscriptUUID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: want=%d got=%d", http.StatusOK, rec.Code)
	}
	if got := decode[documentBody](t, rec).Document.PDFURL; got != in.PDFURL {
		t.Fatalf("pdf_url: want=%q got=%q", in.PDFURL, got)
	}

	rec = do(t, r, http.MethodGet, "/api/documents/by-hash/"+in.PDFURLSHA256, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("by-hash: want=%d got=%d", http.StatusOK, rec.Code)
	}
}

func TestCreateDuplicateHashIsConflict(t *testing.T) {
	r, _ := newTestRouter(t)
	in := storetest.Input(1)
	if rec := do(t, r, http.MethodPost, "/api/documents", in); rec.Code != http.StatusCreated {
		t.Fatalf("first create: want=%d got=%d", http.StatusCreated, rec.Code)
	}
	dup := in
	dup.TranscriptUUID = "doc-other"
	rec := do(t, r, http.MethodPost, "/api/documents", dup)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: want=%d got=%d", http.StatusConflict, rec.Code)
	}
	env := decode[response.ErrorEnvelope](t, rec)
	if env.Error.Code != string(types.CodeConstraintViolation) {
		t.Fatalf("code: want=%q got=%q", types.CodeConstraintViolation, env.Error.Code)
	}
}

func TestCreateIfAbsentReportsInserted(t *testing.T) {
	r, _ := newTestRouter(t)
	in := storetest.Input(2)

	rec := do(t, r, http.MethodPost, "/api/documents?if_absent=true", in)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first: want=%d got=%d", http.StatusCreated, rec.Code)
	}
	if body := decode[documentBody](t, rec); body.Inserted == nil || !*body.Inserted {
		t.Fatalf("first inserted: want=true got=%v", body.Inserted)
	}

	rec = do(t, r, http.MethodPost, "/api/documents?if_absent=true", in)
	if rec.Code != http.StatusOK {
		t.Fatalf("second: want=%d got=%d", http.StatusOK, rec.Code)
	}
	if body := decode[documentBody](t, rec); body.Inserted == nil || *body.Inserted {
		t.Fatalf("second inserted: want=false got=%v", body.Inserted)
	}
}

func TestCreateMissingFieldIsUnprocessable(t *testing.T) {
	r, _ := newTestRouter(t)
	in := storetest.Input(3)
	in.CompanyName = ""
	rec := do(t, r, http.MethodPost, "/api/documents", in)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("want=%d got=%d", http.StatusUnprocessableEntity, rec.Code)
	}
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := do(t, r, http.MethodPost, "/api/documents", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want=%d got=%d", http.StatusBadRequest, rec.Code)
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := do(t, r, http.MethodGet, "/api/documents/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("want=%d got=%d", http.StatusNotFound, rec.Code)
	}
	if env := decode[response.ErrorEnvelope](t, rec); env.Error.Code != string(types.CodeNotFound) {
		t.Fatalf("code: want=%q got=%q", types.CodeNotFound, env.Error.Code)
	}
}

func TestTransitionEndpoints(t *testing.T) {
	r, metrics := newTestRouter(t)
	in := storetest.Input(4)
	do(t, r, http.MethodPost, "/api/documents", in)
	base := "/api/documents/" + in.TranscriptUUID

	rec := do(t, r, http.MethodPost, base+"/transition", map[string]any{"status": "archived"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown status: want=%d got=%d", http.StatusBadRequest, rec.Code)
	}

	rec = do(t, r, http.MethodPost, base+"/transition", map[string]any{"status": "parsed", "fields": storetest.Parsed()})
	if rec.Code != http.StatusConflict {
		t.Fatalf("skip stage: want=%d got=%d", http.StatusConflict, rec.Code)
	}
	if env := decode[response.ErrorEnvelope](t, rec); env.Error.Code != string(types.CodeIllegalTransition) {
		t.Fatalf("code: want=%q got=%q", types.CodeIllegalTransition, env.Error.Code)
	}

	rec = do(t, r, http.MethodPost, base+"/transition", map[string]any{"status": "downloaded", "fields": storetest.Downloaded()})
	if rec.Code != http.StatusOK {
		t.Fatalf("download: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	rec = do(t, r, http.MethodPost, base+"/transition", map[string]any{"status": "parsed", "fields": storetest.Parsed()})
	if rec.Code != http.StatusOK {
		t.Fatalf("parse: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	rec = do(t, r, http.MethodPost, base+"/insights", map[string]any{
		"insights_file_name":  "1.json",
		"insights_created_at": "2024-01-01T00:10:00Z",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("insights: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	doc := decode[documentBody](t, rec).Document
	if doc.InsightsFileName == nil || *doc.InsightsFileName != "1.json" {
		t.Fatalf("insights_file_name: want=1.json got=%v", doc.InsightsFileName)
	}

	rec = do(t, r, http.MethodGet, base+"/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: want=%d got=%d", http.StatusOK, rec.Code)
	}
	hist := decode[struct {
		Transitions []types.DocumentTransition `json:"transitions"`
	}](t, rec)
	if len(hist.Transitions) != 3 {
		t.Fatalf("history length: want=3 got=%d", len(hist.Transitions))
	}

	if got := metrics.TransitionCount("discovered", "downloaded", "advance"); got != 1 {
		t.Fatalf("transition metric: want=1 got=%v", got)
	}
}

func TestListDocumentsPaginates(t *testing.T) {
	r, _ := newTestRouter(t)
	for i := 1; i <= 5; i++ {
		do(t, r, http.MethodPost, "/api/documents", storetest.Input(i))
	}

	type page struct {
		Documents  []*types.Document `json:"documents"`
		NextCursor string            `json:"next_cursor"`
	}
	seen := map[string]bool{}
	path := "/api/documents?status=discovered&limit=2"
	for pages := 0; ; pages++ {
		if pages > 5 {
			t.Fatalf("pagination did not terminate")
		}
		rec := do(t, r, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("list: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
		}
		p := decode[page](t, rec)
		for _, d := range p.Documents {
			if seen[d.TranscriptUUID] {
				t.Fatalf("document %s returned twice", d.TranscriptUUID)
			}
			seen[d.TranscriptUUID] = true
		}
		if p.NextCursor == "" {
			break
		}
		path = "/api/documents?status=discovered&limit=2&cursor=" + p.NextCursor
	}
	if len(seen) != 5 {
		t.Fatalf("listed: want=5 got=%d", len(seen))
	}

	if rec := do(t, r, http.MethodGet, "/api/documents?status=bogus", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad status: want=%d got=%d", http.StatusBadRequest, rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/api/documents?status=discovered&cursor=@@@@", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad cursor: want=%d got=%d", http.StatusBadRequest, rec.Code)
	}
}

func TestStatsAndMetricsEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)
	do(t, r, http.MethodPost, "/api/documents", storetest.Input(1))
	do(t, r, http.MethodPost, "/api/documents", storetest.Input(2))

	rec := do(t, r, http.MethodGet, "/api/documents/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: want=%d got=%d", http.StatusOK, rec.Code)
	}
	stats := decode[struct {
		Counts map[string]int64 `json:"counts"`
	}](t, rec)
	if stats.Counts["discovered"] != 2 {
		t.Fatalf("discovered count: want=2 got=%d", stats.Counts["discovered"])
	}

	rec = do(t, r, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: want=%d got=%d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "# TYPE") {
		t.Fatalf("metrics body missing exposition header: %q", rec.Body.String())
	}

	if rec := do(t, r, http.MethodGet, "/healthcheck", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthcheck: want=%d got=%d", http.StatusOK, rec.Code)
	}
}
