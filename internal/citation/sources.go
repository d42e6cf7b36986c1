package citation

import (
	"strings"
	"unicode/utf8"

	"pdfchat-ai/internal/segmenter"
)

const (
	// maxSources caps the number of sources attached to one answer.
	maxSources = 4
	// minChunkLength is the minimum chunk size for a source to qualify.
	minChunkLength = 50
	// minSubstantialSpan is the span length a source must exceed at least
	// once to count as a substantial quote rather than a stray fragment.
	minSubstantialSpan = 40
	// highlightPreview is the highlight length used when no spans were
	// found and the raw chunk text stands in.
	highlightPreview = 200
)

// Source is a citation linking an answer to a document page, with the
// highlighted spans and the key phrases for bidirectional UI highlighting.
type Source struct {
	DocumentID int64    `json:"document_id"`
	File       string   `json:"file"`
	Page       int      `json:"page"`
	Highlight  string   `json:"highlight"`
	Spans      []string `json:"highlights"`
	Content    string   `json:"content"`
	KeyPhrases []string `json:"key_phrases"`
}

// BuildSources computes the citation set for a generated answer from the
// chunks the generator drew on, in retrieval order. Chunks are
// deduplicated by (document, page), first occurrence winning. Weak
// candidates are dropped: a source needs at least one span, a chunk of
// minChunkLength or more, and one span longer than minSubstantialSpan.
// At most maxSources survive. If everything is filtered out but chunks
// were retrieved, a single fallback source is built from the top chunk so
// the UI always has something to anchor. The result is never nil: zero
// chunks yield an empty list, which keeps the serialized sources field a
// JSON array in every reply shape.
func BuildSources(answer string, chunks []segmenter.Chunk) []Source {
	if len(chunks) == 0 {
		return []Source{}
	}

	plain := PlainText(answer)
	keyPhrases := ExtractKeyPhrases(plain)

	var sources []Source
	type docPage struct {
		doc  int64
		page int
	}
	seen := make(map[docPage]bool)

	for _, chunk := range chunks {
		key := docPage{chunk.DocumentID, chunk.PageNumber}
		if seen[key] {
			continue
		}
		seen[key] = true

		spans := ExtractRelevantSpans(plain, chunk.Text)
		if !isHighQuality(chunk.Text, spans) {
			continue
		}

		highlight := strings.Join(spans, "\n\n")

		// Bidirectional matching: phrases of the answer found in the
		// supporting spans, plus answer phrases found anywhere in the
		// chunk, deduplicated.
		var matched []string
		matchedSeen := make(map[string]bool)
		chunkLower := strings.ToLower(chunk.Text)
		for _, span := range spans {
			spanLower := strings.ToLower(span)
			for _, phrase := range keyPhrases {
				if strings.Contains(spanLower, strings.ToLower(phrase)) && !matchedSeen[strings.ToLower(phrase)] {
					matchedSeen[strings.ToLower(phrase)] = true
					matched = append(matched, phrase)
				}
			}
		}
		for _, phrase := range keyPhrases {
			if strings.Contains(chunkLower, strings.ToLower(phrase)) && !matchedSeen[strings.ToLower(phrase)] {
				matchedSeen[strings.ToLower(phrase)] = true
				matched = append(matched, phrase)
			}
		}

		sources = append(sources, Source{
			DocumentID: chunk.DocumentID,
			File:       chunk.DocumentName,
			Page:       chunk.PageNumber,
			Highlight:  highlight,
			Spans:      spans,
			Content:    highlight,
			KeyPhrases: matched,
		})

		if len(sources) == maxSources {
			break
		}
	}

	if len(sources) == 0 {
		sources = append(sources, fallbackSource(chunks[0], keyPhrases))
	}

	return sources
}

// isHighQuality reports whether a candidate source carries a substantial
// quote rather than noise.
func isHighQuality(chunkText string, spans []string) bool {
	if len(spans) == 0 || utf8.RuneCountInString(chunkText) < minChunkLength {
		return false
	}
	for _, span := range spans {
		if utf8.RuneCountInString(span) > minSubstantialSpan {
			return true
		}
	}
	return false
}

// fallbackSource builds the single guaranteed source from the top
// retrieved chunk when quality filtering rejected everything.
func fallbackSource(chunk segmenter.Chunk, keyPhrases []string) Source {
	highlight := truncate(chunk.Text, highlightPreview)

	var matched []string
	chunkLower := strings.ToLower(chunk.Text)
	for _, phrase := range keyPhrases {
		if strings.Contains(chunkLower, strings.ToLower(phrase)) {
			matched = append(matched, phrase)
		}
	}

	return Source{
		DocumentID: chunk.DocumentID,
		File:       chunk.DocumentName,
		Page:       chunk.PageNumber,
		Highlight:  highlight,
		Spans:      []string{highlight},
		Content:    highlight,
		KeyPhrases: matched,
	}
}

func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit]) + "..."
}
