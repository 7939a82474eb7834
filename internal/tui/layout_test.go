package tui

import (
	"strings"
	"testing"

	xansi "github.com/charmbracelet/x/ansi"
)

func TestNormalizePane_PadsAndCuts(t *testing.T) {
	out := normalizePane("abc\nlonger than ten cols", 10, 3)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, ln := range lines {
		if w := xansi.StringWidth(ln); w != 10 {
			t.Fatalf("line %d: expected width 10, got %d (%q)", i, w, ln)
		}
	}
	if !strings.HasSuffix(lines[1], "…") {
		t.Fatalf("expected cut line to end with an ellipsis: %q", lines[1])
	}
}

func TestTruncateText(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"Anna", 10, "Anna"},
		{"Anna Petrova", 5, "Anna…"},
		{"Anna", 1, "A"},
		{"Anna", 0, ""},
	}
	for _, tc := range cases {
		if got := truncateText(tc.in, tc.width); got != tc.want {
			t.Fatalf("truncateText(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestColumnWidth_HasFloor(t *testing.T) {
	if got := columnWidth(120, 4); got != 28 {
		t.Fatalf("expected 28, got %d", got)
	}
	if got := columnWidth(20, 4); got != minColumnW {
		t.Fatalf("expected floor %d, got %d", minColumnW, got)
	}
}
