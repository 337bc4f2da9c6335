package documents

import (
	"strings"
	"sync"
	"time"
)

const (
	DefaultTimestampLayout = "2006-01-02T15:04:05"
	DefaultTimezone        = "Asia/Kolkata"
)

var acceptedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	DefaultTimestampLayout,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the string encodings found in existing rows.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Clock produces store-owned timestamps (created_at, updated_at).
type Clock struct {
	Now        func() time.Time
	Location   *time.Location
	Layout     string
	Resolution time.Duration

	mu sync.Mutex
}

func NewClock(layout, timezone string) (*Clock, error) {
	if strings.TrimSpace(layout) == "" {
		layout = DefaultTimestampLayout
	}
	if strings.TrimSpace(timezone) == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &Clock{Now: time.Now, Location: loc, Layout: layout, Resolution: resolutionOf(layout)}, nil
}

// SystemClock is the fallback when no clock is configured: the default layout in UTC.
func SystemClock() *Clock {
	return &Clock{Now: time.Now, Location: time.UTC, Layout: DefaultTimestampLayout, Resolution: time.Second}
}

func (c *Clock) now() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	t := now()
	if c.Location != nil {
		t = t.In(c.Location)
	}
	return t
}

func (c *Clock) layout() string {
	if c.Layout == "" {
		return DefaultTimestampLayout
	}
	return c.Layout
}

func (c *Clock) resolution() time.Duration {
	if c.Resolution <= 0 {
		return time.Second
	}
	return c.Resolution
}

func (c *Clock) Stamp() string {
	return c.now().Format(c.layout())
}

// StampBefore formats the instant d before now, for created_at cutoffs.
func (c *Clock) StampBefore(d time.Duration) string {
	return c.now().Add(-d).Format(c.layout())
}

// Next returns a timestamp strictly later than prev at the layout's
// resolution, so updated_at advances on every mutation even when two
// writes land within the same second.
func (c *Clock) Next(prev string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().Truncate(c.resolution())
	if p, ok := c.parse(prev); ok && !t.After(p) {
		t = p.Add(c.resolution())
	}
	return t.Format(c.layout())
}

// parse reads prev in the clock's zone; zone-less encodings are wall time in Location.
func (c *Clock) parse(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range append([]string{c.layout()}, acceptedLayouts...) {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func resolutionOf(layout string) time.Duration {
	idx := strings.Index(layout, "05.")
	if idx < 0 {
		return time.Second
	}
	digits := 0
	for _, r := range layout[idx+3:] {
		if r != '0' && r != '9' {
			break
		}
		digits++
	}
	d := time.Second
	for i := 0; i < digits && d > time.Nanosecond; i++ {
		d /= 10
	}
	return d
}
