package segmenter

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"page footer removed", "Intro text Page 3 of 12 more text", "Intro text more text"},
		{"multiple footers", "Page 1 of 2 hello Page 2 of 2", "hello"},
		{"whitespace collapsed", "too   many    spaces", "too many spaces"},
		{"tabs collapsed", "a\t\tb", "a b"},
		{"paragraph break preserved", "first para\n\n\nsecond para", "first para\n\nsecond para"},
		{"leading and trailing trimmed", "  padded  ", "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Clean(tt.input)
			if result != tt.expected {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSegmenter_Split_ShortText(t *testing.T) {
	s := New(400, 100)

	parts := s.Split("short text")
	if len(parts) != 1 || parts[0] != "short text" {
		t.Errorf("Split() = %v, want single part", parts)
	}

	if parts := s.Split(""); parts != nil {
		t.Errorf("Split(\"\") = %v, want nil", parts)
	}
}

func TestSegmenter_Split_SizeBound(t *testing.T) {
	s := New(400, 100)

	long := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 50)
	parts := s.Split(strings.TrimSpace(long))

	if len(parts) < 2 {
		t.Fatalf("Split() produced %d parts, want several", len(parts))
	}
	for i, part := range parts {
		if n := utf8.RuneCountInString(part); n > 400 {
			t.Errorf("part %d has %d runes, exceeds chunk size", i, n)
		}
	}
}

func TestSegmenter_Split_PrefersSentenceBoundary(t *testing.T) {
	s := New(100, 20)

	text := "First sentence here. " + strings.Repeat("word ", 40)
	parts := s.Split(strings.TrimSpace(text))

	if len(parts) < 2 {
		t.Fatalf("Split() produced %d parts, want at least 2", len(parts))
	}
	if !strings.HasSuffix(parts[0], ".") {
		t.Errorf("first part = %q, want split at sentence boundary", parts[0])
	}
}

func TestSegmenter_Split_Overlap(t *testing.T) {
	s := New(100, 30)

	text := strings.TrimSpace(strings.Repeat("alpha beta gamma delta epsilon. ", 20))
	parts := s.Split(text)

	if len(parts) < 2 {
		t.Fatalf("Split() produced %d parts, want at least 2", len(parts))
	}
	// With overlap, adjacent parts share text: the second part must start
	// before the first one ended in the source.
	secondStart := strings.Index(text, parts[1])
	firstEnd := strings.Index(text, parts[0]) + len(parts[0])
	if secondStart < 0 {
		t.Fatal("second part not found in source text")
	}
	if secondStart >= firstEnd {
		t.Errorf("no overlap: second part starts at %d, first ends at %d", secondStart, firstEnd)
	}
}

func TestSegmenter_Split_Coverage(t *testing.T) {
	// Re-splitting cleaned output must cover the same text modulo overlap:
	// every word from the source appears in some chunk.
	s := New(120, 30)

	text := Clean(strings.Repeat("Warranty terms apply to all purchases made after January. ", 15))
	parts := s.Split(text)

	joined := strings.Join(parts, " ")
	for _, word := range strings.Fields(text) {
		if !strings.Contains(joined, word) {
			t.Errorf("word %q missing from chunk coverage", word)
		}
	}
}

func TestSegmenter_SegmentPages(t *testing.T) {
	s := New(400, 100)

	pages := []Page{
		{Number: 1, Text: "The warranty period is 24 months from purchase date."},
		{Number: 2, Text: ""},
		{Number: 3, Text: "   "},
		{Number: 4, Text: "Contact support for extensions. Page 4 of 4"},
	}

	chunks := s.SegmentPages(7, "manual.pdf", pages)

	if len(chunks) != 2 {
		t.Fatalf("SegmentPages() produced %d chunks, want 2 (empty pages skipped)", len(chunks))
	}
	if chunks[0].PageNumber != 1 || chunks[1].PageNumber != 4 {
		t.Errorf("chunk pages = %d, %d, want 1, 4", chunks[0].PageNumber, chunks[1].PageNumber)
	}
	for _, c := range chunks {
		if c.DocumentID != 7 || c.DocumentName != "manual.pdf" {
			t.Errorf("chunk tagging = (%d, %q), want (7, manual.pdf)", c.DocumentID, c.DocumentName)
		}
	}
	if strings.Contains(chunks[1].Text, "Page 4 of 4") {
		t.Errorf("footer not stripped: %q", chunks[1].Text)
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(0, -1)
	if s.chunkSize != DefaultChunkSize {
		t.Errorf("chunkSize = %d, want %d", s.chunkSize, DefaultChunkSize)
	}
	if s.overlap != DefaultOverlap {
		t.Errorf("overlap = %d, want %d", s.overlap, DefaultOverlap)
	}
}
