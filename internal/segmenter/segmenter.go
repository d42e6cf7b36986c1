package segmenter

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize targets ~400 characters per chunk, matching the
	// embedding context the retrieval layer is tuned for.
	DefaultChunkSize = 400
	// DefaultOverlap carries ~100 characters between adjacent chunks so
	// sentences straddling a boundary stay retrievable.
	DefaultOverlap = 100
)

var (
	pageFooterRe = regexp.MustCompile(`Page \d+ of \d+`)
	whitespaceRe = regexp.MustCompile(`\s{2,}`)
)

// Chunk is a bounded span of a document page used as a retrieval unit.
type Chunk struct {
	Text         string
	DocumentID   int64
	DocumentName string
	PageNumber   int
}

// Page is one page of extracted document text.
type Page struct {
	Number int
	Text   string
}

// Segmenter splits cleaned page text into overlapping chunks.
type Segmenter struct {
	chunkSize int
	overlap   int
}

// New creates a Segmenter with the given chunk size and overlap, in runes.
// Non-positive values fall back to the defaults.
func New(chunkSize, overlap int) *Segmenter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 4
		}
	}
	return &Segmenter{chunkSize: chunkSize, overlap: overlap}
}

// Clean strips page-footer boilerplate and collapses whitespace runs.
// Paragraph breaks survive cleaning: runs that contain two or more
// newlines collapse to a blank line rather than a single space, so the
// citation layer can still split on paragraphs.
func Clean(text string) string {
	text = pageFooterRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllStringFunc(text, func(run string) string {
		if strings.Count(run, "\n") >= 2 {
			return "\n\n"
		}
		return " "
	})
	return strings.TrimSpace(text)
}

// SegmentPages cleans and splits every page of a document into chunks
// tagged with the document id, name and page number. Pages that are empty
// after extraction contribute no chunks.
func (s *Segmenter) SegmentPages(docID int64, docName string, pages []Page) []Chunk {
	var chunks []Chunk
	for _, page := range pages {
		cleaned := Clean(page.Text)
		if cleaned == "" {
			continue
		}
		for _, part := range s.Split(cleaned) {
			chunks = append(chunks, Chunk{
				Text:         part,
				DocumentID:   docID,
				DocumentName: docName,
				PageNumber:   page.Number,
			})
		}
	}
	return chunks
}

// Split divides text into overlapping pieces of at most chunkSize runes.
// Split points prefer paragraph breaks, then line breaks, then sentence
// ends, falling back to a hard cut. Sizes are measured in runes so
// multi-byte text does not get cut mid-character.
func (s *Segmenter) Split(text string) []string {
	if utf8.RuneCountInString(text) <= s.chunkSize {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	runes := []rune(text)
	var parts []string
	start := 0

	for start < len(runes) {
		end := start + s.chunkSize
		if end >= len(runes) {
			part := strings.TrimSpace(string(runes[start:]))
			if part != "" {
				parts = append(parts, part)
			}
			break
		}

		window := string(runes[start:end])
		cut := end
		if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
			cut = start + utf8.RuneCountInString(window[:idx]) + 2
		} else if idx := strings.LastIndex(window, "\n"); idx > 0 {
			cut = start + utf8.RuneCountInString(window[:idx]) + 1
		} else if idx := strings.LastIndex(window, ". "); idx > 0 {
			cut = start + utf8.RuneCountInString(window[:idx]) + 2
		}

		part := strings.TrimSpace(string(runes[start:cut]))
		if part != "" {
			parts = append(parts, part)
		}

		next := cut - s.overlap
		if next <= start {
			next = cut
		}
		start = next
	}

	return parts
}
