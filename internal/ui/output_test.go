package ui

import (
	"strings"
	"testing"
)

func TestCenter(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		width    int
		expected string
	}{
		{
			name:     "pads to the middle",
			text:     "Treasury",
			width:    20,
			expected: "      Treasury",
		},
		{
			name:     "exact width unchanged",
			text:     "Import",
			width:    6,
			expected: "Import",
		},
		{
			name:     "wider than width unchanged",
			text:     "Reconciliation Candidates",
			width:    10,
			expected: "Reconciliation Candidates",
		},
		{
			name:     "odd remainder rounds down",
			text:     "Go",
			width:    7,
			expected: "  Go",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := center(tt.text, tt.width); got != tt.expected {
				t.Errorf("center(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.expected)
			}
		})
	}
}

func TestHeaderBand(t *testing.T) {
	centered := center("Importing Bank Statements", headerWidth)
	if !strings.HasSuffix(centered, "Importing Bank Statements") {
		t.Errorf("center() = %q, want original text preserved", centered)
	}
	if len(centered) >= headerWidth {
		t.Errorf("centered text length %d should leave right-side room within %d", len(centered), headerWidth)
	}
}

// The output helpers write to stderr; the tests only assert they are
// callable with typical CLI strings.
func TestOutputHelpers(t *testing.T) {
	Header("Treasury API")
	Step(1, 3, "Parsing statements")
	Success("Validation passed")
	Info("42 transactions parsed")
	Warning("3 rows skipped")
	Error("import failed")
	BlueText("treasury.db")
	YellowText("dry run")
}
