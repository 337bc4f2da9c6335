package documents

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// ProcessingStatus is the pipeline stage a record occupies. Only the four
// constants below are representable; Scan and Value reject anything else.
type ProcessingStatus string

const (
	StatusDiscovered ProcessingStatus = "discovered"
	StatusDownloaded ProcessingStatus = "downloaded"
	StatusParsed     ProcessingStatus = "parsed"
	StatusFailed     ProcessingStatus = "failed"
)

// Statuses lists every status in pipeline order.
func Statuses() []ProcessingStatus {
	return []ProcessingStatus{StatusDiscovered, StatusDownloaded, StatusParsed, StatusFailed}
}

func (s ProcessingStatus) Valid() bool {
	switch s {
	case StatusDiscovered, StatusDownloaded, StatusParsed, StatusFailed:
		return true
	default:
		return false
	}
}

func (s ProcessingStatus) String() string { return string(s) }

// ParseProcessingStatus is strict: no trimming, no case folding.
func ParseProcessingStatus(raw string) (ProcessingStatus, error) {
	s := ProcessingStatus(raw)
	if !s.Valid() {
		return "", Errorf(CodeInvalidStatus, "parse_status", "unknown processing_status %q", raw)
	}
	return s, nil
}

// UnmarshalText lets JSON payloads carry the status verbatim while still
// rejecting values outside the enumeration.
func (s *ProcessingStatus) UnmarshalText(b []byte) error {
	parsed, err := ParseProcessingStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s *ProcessingStatus) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		return fmt.Errorf("processing_status: unexpected NULL")
	default:
		return fmt.Errorf("processing_status: unsupported type %T", src)
	}
	parsed, err := ParseProcessingStatus(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s ProcessingStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, Errorf(CodeInvalidStatus, "status_value", "unknown processing_status %q", string(s))
	}
	return string(s), nil
}

// StatusCheckExpr is the SQL CHECK expression mirrored in the schema.
const StatusCheckExpr = "processing_status IN ('discovered','downloaded','parsed','failed')"
