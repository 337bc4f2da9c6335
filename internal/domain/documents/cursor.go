package documents

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// PageCursor is a keyset position in list order:
// announcement_date DESC, transcript_uuid DESC.
type PageCursor struct {
	AnnouncementDate string `json:"a"`
	TranscriptUUID   string `json:"t"`
}

func CursorAfter(doc *Document) *PageCursor {
	if doc == nil {
		return nil
	}
	return &PageCursor{AnnouncementDate: doc.AnnouncementDate, TranscriptUUID: doc.TranscriptUUID}
}

// Before reports whether doc sorts strictly after the cursor position.
func (c *PageCursor) Before(doc *Document) bool {
	if c == nil {
		return true
	}
	if doc.AnnouncementDate != c.AnnouncementDate {
		return doc.AnnouncementDate < c.AnnouncementDate
	}
	return doc.TranscriptUUID < c.TranscriptUUID
}

// Encode returns an opaque token for HTTP clients.
func (c *PageCursor) Encode() string {
	if c == nil {
		return ""
	}
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeCursor(token string) (*PageCursor, error) {
	if token == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var c PageCursor
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	if c.TranscriptUUID == "" {
		return nil, fmt.Errorf("invalid cursor: missing position")
	}
	return &c, nil
}

// ClampPageSize applies the default and upper bound to a requested limit.
func ClampPageSize(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	default:
		return limit
	}
}
