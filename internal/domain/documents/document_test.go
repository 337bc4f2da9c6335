package documents

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func validInput() NewDocument {
	return NewDocument{
		TranscriptUUID:   "test-uuid-123",
		CompanyName:      "Test Corp",
		ScriptCode:       "TC",
		PDFURL:           "https://example.com/test.pdf",
		PDFURLSHA256:     "abc123def456",
		JSONText:         `{"test": "data", "nested": {"value": 123}}`,
		AnnouncementDate: "2025-01-01T00:00:00",
	}
}

func TestNewDocumentValidate(t *testing.T) {
	if err := validInput().Validate(); err != nil {
		t.Fatalf("valid input: %v", err)
	}
	cases := map[string]func(*NewDocument){
		"missing company":   func(in *NewDocument) { in.CompanyName = "" },
		"blank script":      func(in *NewDocument) { in.ScriptCode = "   " },
		"missing hash":      func(in *NewDocument) { in.PDFURLSHA256 = "" },
		"relative url":      func(in *NewDocument) { in.PDFURL = "/files/1.pdf" },
		"invalid json":      func(in *NewDocument) { in.JSONText = "{not json" },
		"bad announcement":  func(in *NewDocument) { in.AnnouncementDate = "soon" },
		"whitespace uuid":   func(in *NewDocument) { in.TranscriptUUID = "  " },
		"missing json_text": func(in *NewDocument) { in.JSONText = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			if err := in.Validate(); !errors.Is(err, ErrConstraintViolation) {
				t.Fatalf("want ConstraintViolation got=%v", err)
			}
		})
	}
}

func TestNewDocumentBuild(t *testing.T) {
	doc := validInput().Build("2025-01-02T10:00:00")
	if doc.ProcessingStatus != StatusDiscovered {
		t.Fatalf("status: want=discovered got=%s", doc.ProcessingStatus)
	}
	if doc.CreatedAt != doc.UpdatedAt || doc.CreatedAt != "2025-01-02T10:00:00" {
		t.Fatalf("timestamps: created=%s updated=%s", doc.CreatedAt, doc.UpdatedAt)
	}
	if doc.PDFFileName != nil || doc.ErrorMessage != nil {
		t.Fatalf("optional fields should be nil")
	}

	in := validInput()
	in.TranscriptUUID = ""
	if generated := in.Build("2025-01-02T10:00:00"); len(generated.TranscriptUUID) != 36 {
		t.Fatalf("generated uuid: got=%q", generated.TranscriptUUID)
	}
}

func TestHashPDFURL(t *testing.T) {
	got := HashPDFURL("https://example.com/test.pdf")
	if len(got) != 64 {
		t.Fatalf("len: want=64 got=%d", len(got))
	}
	if got != HashPDFURL("https://example.com/test.pdf") {
		t.Fatalf("hash not deterministic")
	}
	if got == HashPDFURL("https://example.com/other.pdf") {
		t.Fatalf("distinct urls collided")
	}
}

func TestProcessingStatusScan(t *testing.T) {
	var s ProcessingStatus
	if err := s.Scan([]byte("parsed")); err != nil || s != StatusParsed {
		t.Fatalf("scan parsed: status=%s err=%v", s, err)
	}
	if err := s.Scan("downloading"); err == nil {
		t.Fatalf("scan downloading: want error")
	}
	if _, err := ProcessingStatus("").Value(); err == nil {
		t.Fatalf("value of empty status: want error")
	}
	if _, err := ParseProcessingStatus("Parsed"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("parse Parsed: want InvalidStatus got=%v", err)
	}
}

func TestProcessingStatusJSON(t *testing.T) {
	var body struct {
		Status ProcessingStatus `json:"status"`
	}
	if err := json.Unmarshal([]byte(`{"status":"failed"}`), &body); err != nil || body.Status != StatusFailed {
		t.Fatalf("unmarshal failed: status=%s err=%v", body.Status, err)
	}
	err := json.Unmarshal([]byte(`{"status":"done"}`), &body)
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("unmarshal done: want InvalidStatus got=%v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	doc := validInput().Build("2025-01-02T10:00:00")
	doc.PDFFileName = strp("1.pdf")
	c := doc.Clone()
	*c.PDFFileName = "2.pdf"
	if *doc.PDFFileName != "1.pdf" {
		t.Fatalf("clone shares pointers")
	}
}

func TestErrorsIs(t *testing.T) {
	err := Errorf(CodeBusy, "transition", "row locked")
	if !errors.Is(err, ErrBusy) || errors.Is(err, ErrConflict) {
		t.Fatalf("errors.Is mismatch for %v", err)
	}
	if CodeOf(Wrap(CodeInternal, "op", err)) != CodeBusy {
		t.Fatalf("Wrap should keep the existing code")
	}
}

func TestIsDuplicate(t *testing.T) {
	dup := Duplicatef("create", "pdf_url_sha256 %s exists", "abc")
	if !IsDuplicate(dup) || CodeOf(dup) != CodeConstraintViolation {
		t.Fatalf("Duplicatef: want duplicate constraint_violation got=%v", dup)
	}
	if !errors.Is(dup, ErrConstraintViolation) {
		t.Fatalf("duplicate should still match ErrConstraintViolation")
	}
	if !IsDuplicate(fmt.Errorf("wrapped: %w", dup)) {
		t.Fatalf("IsDuplicate should see through wrapping")
	}
	// The message alone never decides.
	if IsDuplicate(Errorf(CodeConstraintViolation, "create", "company_name already required")) {
		t.Fatalf("plain constraint violation should not be duplicate")
	}
	if IsDuplicate(&Error{Code: CodeBusy, Duplicate: true}) {
		t.Fatalf("only constraint violations can be duplicates")
	}
}
