package documents

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Document is one tracked transcript. Column names and the TEXT encoding of
// timestamps match the existing documents table.
type Document struct {
	TranscriptUUID    string           `gorm:"column:transcript_uuid;type:text;primaryKey" json:"transcript_uuid"`
	CompanyName       string           `gorm:"column:company_name;type:text;not null" json:"company_name"`
	ScriptCode        string           `gorm:"column:script_code;type:text;not null" json:"script_code"`
	PDFURL            string           `gorm:"column:pdf_url;type:text;not null" json:"pdf_url"`
	PDFURLSHA256      string           `gorm:"column:pdf_url_sha256;type:text;not null;uniqueIndex:idx_documents_pdf_url_sha256" json:"pdf_url_sha256"`
	JSONText          string           `gorm:"column:json_text;type:text;not null" json:"json_text"`
	CreatedAt         string           `gorm:"column:created_at;type:text;not null;index:idx_documents_created_at" json:"created_at"`
	AnnouncementDate  string           `gorm:"column:announcement_date;type:text;not null;index:idx_documents_status_announced,priority:2" json:"announcement_date"`
	UpdatedAt         string           `gorm:"column:updated_at;type:text;not null" json:"updated_at"`
	ProcessingStatus  ProcessingStatus `gorm:"column:processing_status;type:text;not null;default:discovered;index:idx_documents_status_announced,priority:1;check:chk_documents_processing_status,processing_status IN ('discovered','downloaded','parsed','failed')" json:"processing_status"`
	PDFFileName       *string          `gorm:"column:pdf_file_name;type:text" json:"pdf_file_name"`
	PDFCreatedAt      *string          `gorm:"column:pdf_created_at;type:text" json:"pdf_created_at"`
	TextFileName      *string          `gorm:"column:text_file_name;type:text" json:"text_file_name"`
	TextFileCreatedAt *string          `gorm:"column:text_file_created_at;type:text" json:"text_file_created_at"`
	InsightsFileName  *string          `gorm:"column:insights_file_name;type:text" json:"insights_file_name"`
	InsightsCreatedAt *string          `gorm:"column:insights_created_at;type:text" json:"insights_created_at"`
	ErrorMessage      *string          `gorm:"column:error_message;type:text" json:"error_message"`
}

func (Document) TableName() string { return "documents" }

// Clone returns a deep copy so callers can mutate optional fields freely.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.PDFFileName = cloneStr(d.PDFFileName)
	out.PDFCreatedAt = cloneStr(d.PDFCreatedAt)
	out.TextFileName = cloneStr(d.TextFileName)
	out.TextFileCreatedAt = cloneStr(d.TextFileCreatedAt)
	out.InsightsFileName = cloneStr(d.InsightsFileName)
	out.InsightsCreatedAt = cloneStr(d.InsightsCreatedAt)
	out.ErrorMessage = cloneStr(d.ErrorMessage)
	return &out
}

// MutableColumns maps every column a transition may write to its value.
func (d *Document) MutableColumns() map[string]interface{} {
	return map[string]interface{}{
		"processing_status":    d.ProcessingStatus,
		"updated_at":           d.UpdatedAt,
		"pdf_file_name":        d.PDFFileName,
		"pdf_created_at":       d.PDFCreatedAt,
		"text_file_name":       d.TextFileName,
		"text_file_created_at": d.TextFileCreatedAt,
		"insights_file_name":   d.InsightsFileName,
		"insights_created_at":  d.InsightsCreatedAt,
		"error_message":        d.ErrorMessage,
	}
}

// DocumentTransition is the append-only audit trail of status changes.
type DocumentTransition struct {
	ID             string           `gorm:"column:id;type:text;primaryKey" json:"id"`
	TranscriptUUID string           `gorm:"column:transcript_uuid;type:text;not null;index:idx_document_transition_uuid" json:"transcript_uuid"`
	FromStatus     ProcessingStatus `gorm:"column:from_status;type:text;not null" json:"from_status"`
	ToStatus       ProcessingStatus `gorm:"column:to_status;type:text;not null" json:"to_status"`
	Kind           TransitionKind   `gorm:"column:kind;type:text;not null" json:"kind"`
	Fields         datatypes.JSON   `gorm:"column:fields" json:"fields"`
	ErrorMessage   *string          `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	CreatedAt      string           `gorm:"column:created_at;type:text;not null" json:"created_at"`
}

func (DocumentTransition) TableName() string { return "document_transition" }

// NewDocument carries the fields a discovery collaborator supplies.
// Status, timestamps owned by the store and optional fields are not
// settable at creation.
type NewDocument struct {
	TranscriptUUID   string `json:"transcript_uuid"`
	CompanyName      string `json:"company_name"`
	ScriptCode       string `json:"script_code"`
	PDFURL           string `json:"pdf_url"`
	PDFURLSHA256     string `json:"pdf_url_sha256"`
	JSONText         string `json:"json_text"`
	AnnouncementDate string `json:"announcement_date"`
}

func (in NewDocument) Validate() error {
	const op = "create"
	required := []struct {
		name, value string
	}{
		{"company_name", in.CompanyName},
		{"script_code", in.ScriptCode},
		{"pdf_url", in.PDFURL},
		{"pdf_url_sha256", in.PDFURLSHA256},
		{"json_text", in.JSONText},
		{"announcement_date", in.AnnouncementDate},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return Errorf(CodeConstraintViolation, op, "%s is required", f.name)
		}
	}
	if in.TranscriptUUID != "" && strings.TrimSpace(in.TranscriptUUID) == "" {
		return Errorf(CodeConstraintViolation, op, "transcript_uuid must not be blank")
	}
	u, err := url.Parse(strings.TrimSpace(in.PDFURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Errorf(CodeConstraintViolation, op, "pdf_url %q is not an absolute URL", in.PDFURL)
	}
	if !json.Valid([]byte(in.JSONText)) {
		return Errorf(CodeConstraintViolation, op, "json_text is not valid JSON")
	}
	if _, ok := ParseTimestamp(in.AnnouncementDate); !ok {
		return Errorf(CodeConstraintViolation, op, "announcement_date %q is not a timestamp", in.AnnouncementDate)
	}
	return nil
}

// Build materializes a discovered record. Validate must pass first.
func (in NewDocument) Build(now string) *Document {
	id := strings.TrimSpace(in.TranscriptUUID)
	if id == "" {
		id = uuid.New().String()
	}
	return &Document{
		TranscriptUUID:   id,
		CompanyName:      strings.TrimSpace(in.CompanyName),
		ScriptCode:       strings.TrimSpace(in.ScriptCode),
		PDFURL:           strings.TrimSpace(in.PDFURL),
		PDFURLSHA256:     strings.TrimSpace(in.PDFURLSHA256),
		JSONText:         in.JSONText,
		CreatedAt:        now,
		AnnouncementDate: strings.TrimSpace(in.AnnouncementDate),
		UpdatedAt:        now,
		ProcessingStatus: StatusDiscovered,
	}
}

// HashPDFURL is the dedup key discovery uses: hex(sha256(url)).
func HashPDFURL(pdfURL string) string {
	sum := sha256.Sum256([]byte(pdfURL))
	return hex.EncodeToString(sum[:])
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
