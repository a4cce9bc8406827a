package common

import (
	"testing"
	"time"
)

func TestParseRelativeDate(t *testing.T) {
	// A fixed "now", mid-afternoon so the midnight truncation is visible.
	now := time.Date(2023, 9, 12, 14, 35, 0, 0, time.Local)

	expectDate(t, now, "2023-09-01", time.Date(2023, 9, 1, 0, 0, 0, 0, time.Local))
	expectDate(t, now, "0d", time.Date(2023, 9, 12, 0, 0, 0, 0, time.Local))
	expectDate(t, now, "3d", time.Date(2023, 9, 9, 0, 0, 0, 0, time.Local))
	expectDate(t, now, "2w", time.Date(2023, 8, 29, 0, 0, 0, 0, time.Local))

	for _, bad := range []string{"", "yesterday", "3x", "2023-9-1", "d3"} {
		if _, err := ParseRelativeDate(now, bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func expectDate(t *testing.T, now time.Time, s string, want time.Time) {
	got, err := ParseRelativeDate(now, s)
	if err != nil {
		t.Fatalf("%q: %v", s, err)
	}
	if !got.Equal(want) {
		t.Errorf("%q: expected %v, got %v", s, want, got)
	}
}
