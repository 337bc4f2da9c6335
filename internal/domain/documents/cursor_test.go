package documents

import "testing"

func TestCursorRoundTrip(t *testing.T) {
	c := &PageCursor{AnnouncementDate: "2025-01-01T00:00:00", TranscriptUUID: "t1"}
	got, err := DecodeCursor(c.Encode())
	if err != nil || *got != *c {
		t.Fatalf("DecodeCursor: got=%v err=%v", got, err)
	}
	if _, err := DecodeCursor("%%%"); err == nil {
		t.Fatalf("DecodeCursor garbage: want error")
	}
	if got, err := DecodeCursor(""); got != nil || err != nil {
		t.Fatalf("DecodeCursor empty: got=%v err=%v", got, err)
	}
}

func TestCursorBefore(t *testing.T) {
	c := &PageCursor{AnnouncementDate: "2025-01-02T00:00:00", TranscriptUUID: "m"}
	cases := []struct {
		doc  Document
		want bool
	}{
		{Document{AnnouncementDate: "2025-01-01T00:00:00", TranscriptUUID: "z"}, true},
		{Document{AnnouncementDate: "2025-01-03T00:00:00", TranscriptUUID: "a"}, false},
		{Document{AnnouncementDate: "2025-01-02T00:00:00", TranscriptUUID: "a"}, true},
		{Document{AnnouncementDate: "2025-01-02T00:00:00", TranscriptUUID: "m"}, false},
	}
	for _, tc := range cases {
		if got := c.Before(&tc.doc); got != tc.want {
			t.Fatalf("Before(%s,%s): want=%v got=%v", tc.doc.AnnouncementDate, tc.doc.TranscriptUUID, tc.want, got)
		}
	}
}

func TestClampPageSize(t *testing.T) {
	if ClampPageSize(0) != DefaultPageSize || ClampPageSize(5000) != MaxPageSize || ClampPageSize(7) != 7 {
		t.Fatalf("ClampPageSize bounds")
	}
}
