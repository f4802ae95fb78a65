package normalize

import (
	"testing"
	"time"
)

func TestParseDateAt(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
	}{
		{"slash day first", "15/03/2024"},
		{"dash day first", "15-03-2024"},
		{"iso", "2024-03-15"},
		{"slash year first", "2024/03/15"},
		{"dotted", "15.03.2024"},
		{"single digit day and month", "2024-3-15"},
		{"surrounding whitespace", "  15/03/2024 "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDateAt(tt.input, now)
			if got.Status != StatusOK {
				t.Fatalf("ParseDateAt(%q) status = %s (%s), want ok", tt.input, got.Status, got.Reason)
			}
			if !got.Value.Equal(want) {
				t.Errorf("ParseDateAt(%q) = %v, want %v", tt.input, got.Value, want)
			}
		})
	}
}

func TestParseDateAtTextualLayouts(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	got := ParseDateAt("Mar 15, 2024", now)
	if got.Status != StatusOK {
		t.Fatalf("status = %s, want ok", got.Status)
	}
	if got.Value.Day() != 15 || got.Value.Month() != time.March {
		t.Errorf("ParseDateAt() = %v", got.Value)
	}
}

func TestParseDateAtFallback(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{"empty", "", ReasonEmptyValue},
		{"garbage", "pas une date", ReasonUnparseableDate},
		{"rollover day", "31/02/2024", ReasonUnparseableDate},
		{"month out of range", "15/13/2024", ReasonUnparseableDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDateAt(tt.input, now)
			if got.Status != StatusFallback {
				t.Fatalf("ParseDateAt(%q) status = %s, want fallback", tt.input, got.Status)
			}
			if !got.Value.Equal(now) {
				t.Errorf("ParseDateAt(%q) fallback value = %v, want now", tt.input, got.Value)
			}
			if got.Reason != tt.reason {
				t.Errorf("ParseDateAt(%q) reason = %q, want %q", tt.input, got.Reason, tt.reason)
			}
		})
	}
}

func TestParseDateAmbiguityIsDayFirst(t *testing.T) {
	// 04/03 is the 4th of March, not April 3rd.
	got := ParseDateAt("04/03/2024", time.Now())
	if got.Status != StatusOK {
		t.Fatalf("status = %s", got.Status)
	}
	if got.Value.Month() != time.March || got.Value.Day() != 4 {
		t.Errorf("ParseDateAt(04/03/2024) = %v, want March 4", got.Value)
	}
}
