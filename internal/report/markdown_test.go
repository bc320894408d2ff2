package report

import (
	"bytes"
	"strings"
	"testing"
)

// TestMarkdownWriter tests the markdown report format.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("renders header, summary, and topic tables", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		n, err := w.Write(testResult())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n == 0 {
			t.Error("expected a nonzero byte count")
		}

		out := buf.String()
		for _, want := range []string{
			"# Tagquorum Consensus Report",
			"## Summary",
			"## Consensus Ranges",
			"### T1 (ns)",
			"### T2 (ns)",
			"`" + testTaskUUID + "`",
			"answer without highlights",
			"```mermaid",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("dropped annotations produce an alert", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.Write(testResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "[!IMPORTANT]") {
			t.Errorf("missing redundancy alert:\n%s", buf.String())
		}
	})

	t.Run("empty result skips the chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		result := testResult()
		result.Rows = nil
		result.DroppedCount = 0
		if _, err := w.Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		if strings.Contains(out, "mermaid") {
			t.Errorf("chart rendered for empty result:\n%s", out)
		}
		if !strings.Contains(out, "[!NOTE]") {
			t.Errorf("missing empty-result note:\n%s", out)
		}
	})

	t.Run("error result renders a caution", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		result := testResult()
		result.ErrorMessage = "data integrity violation"
		if _, err := w.Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "[!CAUTION]") {
			t.Errorf("missing caution alert:\n%s", out)
		}
		if !strings.Contains(out, "data integrity violation") {
			t.Errorf("missing error detail:\n%s", out)
		}
	})
}

// TestTruncateString tests text truncation for table cells.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{name: "short string untouched", input: "hello", max: 10, want: "hello"},
		{name: "exact length untouched", input: "hello", max: 5, want: "hello"},
		{name: "long string gets ellipsis", input: "hello world", max: 8, want: "hello..."},
		{name: "tiny max truncates hard", input: "hello", max: 2, want: "he"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := truncateString(tt.input, tt.max); got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
			}
		})
	}
}
