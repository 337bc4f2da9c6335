package documents

import (
	"errors"
	"testing"
)

func strp(s string) *string { return &s }

func discoveredDoc() *Document {
	return NewDocument{
		TranscriptUUID:   "t1",
		CompanyName:      "Acme",
		ScriptCode:       "ACME",
		PDFURL:           "http://x/1.pdf",
		PDFURLSHA256:     "abc123",
		JSONText:         `{"test": "data"}`,
		AnnouncementDate: "2025-01-01T00:00:00",
	}.Build("2025-01-02T10:00:00")
}

func mustPlan(t *testing.T, cur *Document, to ProcessingStatus, f TransitionFields) *Document {
	t.Helper()
	tr, err := Plan(cur, to, f)
	if err != nil {
		t.Fatalf("Plan(%s -> %s): %v", cur.ProcessingStatus, to, err)
	}
	return tr.Next
}

func downloadFields() TransitionFields {
	return TransitionFields{PDFFileName: strp("1.pdf"), PDFCreatedAt: strp("2024-01-01T00:00:00Z")}
}

func parseFields() TransitionFields {
	return TransitionFields{TextFileName: strp("1.txt"), TextFileCreatedAt: strp("2024-01-01T00:05:00Z")}
}

func TestPlanHappyPath(t *testing.T) {
	doc := discoveredDoc()
	doc = mustPlan(t, doc, StatusDownloaded, downloadFields())
	if doc.ProcessingStatus != StatusDownloaded || doc.PDFFileName == nil || *doc.PDFFileName != "1.pdf" {
		t.Fatalf("downloaded: got status=%s pdf=%v", doc.ProcessingStatus, doc.PDFFileName)
	}
	doc = mustPlan(t, doc, StatusParsed, parseFields())
	if doc.ProcessingStatus != StatusParsed || doc.TextFileName == nil {
		t.Fatalf("parsed: got status=%s text=%v", doc.ProcessingStatus, doc.TextFileName)
	}
	tr, err := PlanInsights(doc, "1.json", "2024-01-01T00:10:00Z")
	if err != nil {
		t.Fatalf("PlanInsights: %v", err)
	}
	if tr.Kind != KindInsights || tr.Next.ProcessingStatus != StatusParsed {
		t.Fatalf("insights: want kind=insights status=parsed got kind=%s status=%s", tr.Kind, tr.Next.ProcessingStatus)
	}
	if tr.Next.InsightsFileName == nil || *tr.Next.InsightsFileName != "1.json" {
		t.Fatalf("insights_file_name: got=%v", tr.Next.InsightsFileName)
	}
}

func TestPlanRejectsIllegalTransitions(t *testing.T) {
	cases := []struct {
		name string
		doc  func() *Document
		to   ProcessingStatus
		f    TransitionFields
	}{
		{"discovered to parsed", discoveredDoc, StatusParsed, parseFields()},
		{"parsed to downloaded", func() *Document {
			d := mustPlan(t, discoveredDoc(), StatusDownloaded, downloadFields())
			return mustPlan(t, d, StatusParsed, parseFields())
		}, StatusDownloaded, downloadFields()},
		{"downloaded to discovered", func() *Document {
			return mustPlan(t, discoveredDoc(), StatusDownloaded, downloadFields())
		}, StatusDiscovered, TransitionFields{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cur := tc.doc()
			_, err := Plan(cur, tc.to, tc.f)
			if !errors.Is(err, ErrIllegalTransition) {
				t.Fatalf("want IllegalTransition got=%v", err)
			}
		})
	}
}

func TestPlanInvalidStatus(t *testing.T) {
	_, err := Plan(discoveredDoc(), ProcessingStatus("downloading"), TransitionFields{})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("want InvalidStatus got=%v", err)
	}
}

func TestPlanRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		to   ProcessingStatus
		f    TransitionFields
	}{
		{"download without pdf_created_at", StatusDownloaded, TransitionFields{PDFFileName: strp("1.pdf")}},
		{"download with blank name", StatusDownloaded, TransitionFields{PDFFileName: strp(" "), PDFCreatedAt: strp("2024-01-01T00:00:00Z")}},
		{"download with bad timestamp", StatusDownloaded, TransitionFields{PDFFileName: strp("1.pdf"), PDFCreatedAt: strp("yesterday")}},
		{"download with text fields", StatusDownloaded, TransitionFields{PDFFileName: strp("1.pdf"), PDFCreatedAt: strp("2024-01-01T00:00:00Z"), TextFileName: strp("1.txt")}},
		{"fail without message", StatusFailed, TransitionFields{}},
		{"fail with file fields", StatusFailed, TransitionFields{ErrorMessage: strp("boom"), PDFFileName: strp("1.pdf")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Plan(discoveredDoc(), tc.to, tc.f)
			if !errors.Is(err, ErrConstraintViolation) {
				t.Fatalf("want ConstraintViolation got=%v", err)
			}
		})
	}
}

func TestPlanFailureRoundTrip(t *testing.T) {
	doc := mustPlan(t, discoveredDoc(), StatusFailed, TransitionFields{ErrorMessage: strp("timeout")})
	if doc.ErrorMessage == nil || *doc.ErrorMessage != "timeout" {
		t.Fatalf("error_message: want=timeout got=%v", doc.ErrorMessage)
	}
	doc = mustPlan(t, doc, StatusDownloaded, downloadFields())
	if doc.ErrorMessage != nil {
		t.Fatalf("error_message: want=nil got=%q", *doc.ErrorMessage)
	}
	if doc.ProcessingStatus != StatusDownloaded {
		t.Fatalf("status: want=downloaded got=%s", doc.ProcessingStatus)
	}
}

func TestPlanRetryClearsLaterStages(t *testing.T) {
	doc := mustPlan(t, discoveredDoc(), StatusDownloaded, downloadFields())
	doc = mustPlan(t, doc, StatusParsed, parseFields())
	doc = mustPlan(t, doc, StatusFailed, TransitionFields{ErrorMessage: strp("insights crashed")})
	if doc.TextFileName == nil {
		t.Fatalf("failed should keep text_file_name")
	}
	again := mustPlan(t, doc, StatusDiscovered, TransitionFields{})
	if again.PDFFileName != nil || again.TextFileName != nil || again.ErrorMessage != nil {
		t.Fatalf("retry to discovered should clear optional fields: %+v", again)
	}
	reparsed := mustPlan(t, doc, StatusParsed, parseFields())
	if reparsed.PDFFileName == nil || reparsed.ErrorMessage != nil {
		t.Fatalf("retry to parsed: pdf=%v err=%v", reparsed.PDFFileName, reparsed.ErrorMessage)
	}
}

func TestPlanRetryToParsedNeedsDownload(t *testing.T) {
	doc := mustPlan(t, discoveredDoc(), StatusFailed, TransitionFields{ErrorMessage: strp("404")})
	_, err := Plan(doc, StatusParsed, parseFields())
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("want ConstraintViolation got=%v", err)
	}
	f := parseFields()
	f.PDFFileName, f.PDFCreatedAt = strp("1.pdf"), strp("2024-01-01T00:00:00Z")
	if _, err := Plan(doc, StatusParsed, f); err != nil {
		t.Fatalf("retry to parsed with pdf fields: %v", err)
	}
}

func TestPlanRepeatIsIdempotent(t *testing.T) {
	doc := mustPlan(t, discoveredDoc(), StatusDownloaded, downloadFields())
	tr, err := Plan(doc, StatusDownloaded, downloadFields())
	if err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if tr.Kind != KindRepeat || *tr.Next.PDFFileName != "1.pdf" {
		t.Fatalf("repeat: kind=%s pdf=%v", tr.Kind, tr.Next.PDFFileName)
	}
	_, err = Plan(doc, StatusDownloaded, TransitionFields{PDFFileName: strp("2.pdf"), PDFCreatedAt: strp("2024-01-01T00:00:00Z")})
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("repeat with different fields: want IllegalTransition got=%v", err)
	}
}

func TestPlanInsightsRequiresParsed(t *testing.T) {
	_, err := PlanInsights(discoveredDoc(), "1.json", "2024-01-01T00:00:00Z")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("want IllegalTransition got=%v", err)
	}
}

func TestPlanDoesNotMutateInput(t *testing.T) {
	doc := discoveredDoc()
	_ = mustPlan(t, doc, StatusDownloaded, downloadFields())
	if doc.ProcessingStatus != StatusDiscovered || doc.PDFFileName != nil {
		t.Fatalf("input mutated: %+v", doc)
	}
}
