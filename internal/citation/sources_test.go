package citation

import (
	"strings"
	"testing"
	"unicode/utf8"

	"pdfchat-ai/internal/segmenter"
)

func testChunk(docID int64, page int, text string) segmenter.Chunk {
	return segmenter.Chunk{Text: text, DocumentID: docID, DocumentName: "manual.pdf", PageNumber: page}
}

func TestBuildSources_NoChunks(t *testing.T) {
	sources := BuildSources("any answer", nil)
	if sources == nil {
		t.Fatal("BuildSources() = nil, want an empty list for no chunks")
	}
	if len(sources) != 0 {
		t.Errorf("BuildSources() = %v, want no sources", sources)
	}
}

func TestBuildSources_WarrantyScenario(t *testing.T) {
	chunkText := "The warranty period is 24 months from purchase date. Contact support for extensions."
	answer := "The warranty period is 24 months from the purchase date."

	sources := BuildSources(answer, []segmenter.Chunk{testChunk(1, 1, chunkText)})

	if len(sources) != 1 {
		t.Fatalf("BuildSources() returned %d sources, want 1", len(sources))
	}
	src := sources[0]
	if src.Page != 1 || src.DocumentID != 1 {
		t.Errorf("source = doc %d page %d, want doc 1 page 1", src.DocumentID, src.Page)
	}
	if !strings.Contains(src.Highlight, "warranty period is 24 months") {
		t.Errorf("highlight = %q, want it to contain the warranty quote", src.Highlight)
	}
	phraseFound := false
	for _, p := range src.KeyPhrases {
		if strings.Contains(strings.ToLower(p), "24 months") {
			phraseFound = true
		}
	}
	if !phraseFound {
		t.Errorf("key phrases %v contain nothing overlapping \"24 months\"", src.KeyPhrases)
	}
}

func TestBuildSources_DeduplicatesByDocumentPage(t *testing.T) {
	text := "The warranty period is 24 months from purchase date, as stated in the contract."
	answer := "The warranty period is 24 months."
	chunks := []segmenter.Chunk{
		testChunk(1, 1, text),
		testChunk(1, 1, text+" Duplicate on same page."),
		testChunk(2, 1, text),
	}

	sources := BuildSources(answer, chunks)

	if len(sources) != 2 {
		t.Fatalf("BuildSources() returned %d sources, want 2 (same doc+page deduplicated)", len(sources))
	}
	if sources[0].DocumentID != 1 || sources[1].DocumentID != 2 {
		t.Errorf("source docs = %d, %d, want 1, 2 (first occurrence wins)", sources[0].DocumentID, sources[1].DocumentID)
	}
}

func TestBuildSources_CappedAtFour(t *testing.T) {
	answer := "The warranty period is 24 months for every product tier we offer."
	var chunks []segmenter.Chunk
	for page := 1; page <= 8; page++ {
		chunks = append(chunks, testChunk(1, page,
			"The warranty period is 24 months for every product tier, including refurbished units."))
	}

	sources := BuildSources(answer, chunks)

	if len(sources) > 4 {
		t.Errorf("BuildSources() returned %d sources, want at most 4", len(sources))
	}
}

func TestBuildSources_QualityFilter(t *testing.T) {
	// Chunk shorter than 50 chars must be rejected even when it matches.
	answer := "The fee is ten euros total."
	sources := BuildSources(answer, []segmenter.Chunk{testChunk(1, 1, "The fee is ten euros total.")})

	if len(sources) != 1 {
		t.Fatalf("BuildSources() returned %d sources, want exactly the fallback", len(sources))
	}
	// The only source is the guaranteed fallback from the top chunk.
	if sources[0].Highlight != "The fee is ten euros total." {
		t.Errorf("fallback highlight = %q", sources[0].Highlight)
	}
}

func TestBuildSources_FallbackTruncatesHighlight(t *testing.T) {
	// No span matches at all: fallback source carries the first 200 chars.
	longText := strings.Repeat("Unrelated filler about completely different topics here. ", 10)
	answer := "Nothing matching whatsoever appears."

	sources := BuildSources(answer, []segmenter.Chunk{testChunk(3, 9, longText)})

	if len(sources) != 1 {
		t.Fatalf("BuildSources() returned %d sources, want 1 fallback", len(sources))
	}
	src := sources[0]
	if src.DocumentID != 3 || src.Page != 9 {
		t.Errorf("fallback source = doc %d page %d, want doc 3 page 9", src.DocumentID, src.Page)
	}
	if !strings.HasSuffix(src.Highlight, "...") {
		t.Errorf("fallback highlight not truncated: %q", src.Highlight)
	}
	if utf8.RuneCountInString(src.Highlight) != 203 {
		t.Errorf("fallback highlight length = %d runes, want 200 + ellipsis", utf8.RuneCountInString(src.Highlight))
	}
}

func TestBuildSources_FilterProperty(t *testing.T) {
	// Every produced source has a non-empty highlight, and a substantial
	// span unless it is the single guaranteed fallback.
	answer := "The warranty period is 24 months from purchase date according to the agreement."
	chunks := []segmenter.Chunk{
		testChunk(1, 1, "The warranty period is 24 months from purchase date. More terms follow below."),
		testChunk(1, 2, "Unrelated appendix content about office locations and parking."),
	}

	sources := BuildSources(answer, chunks)
	for _, src := range sources {
		if len(src.Highlight) == 0 {
			t.Error("source with empty highlight")
		}
		substantial := false
		for _, span := range src.Spans {
			if utf8.RuneCountInString(span) > 40 {
				substantial = true
			}
		}
		if !substantial && len(sources) != 1 {
			t.Errorf("source doc %d page %d has no substantial span", src.DocumentID, src.Page)
		}
	}
}

func TestBuildSources_MarkdownAnswerMatches(t *testing.T) {
	// Markdown structure in the answer must not defeat phrase matching.
	chunkText := "The warranty period is 24 months from purchase date. Extensions are available on request."
	answer := "## Warranty\n\nThe **warranty period** is *24 months* from purchase date."

	sources := BuildSources(answer, []segmenter.Chunk{testChunk(1, 1, chunkText)})

	if len(sources) != 1 {
		t.Fatalf("BuildSources() returned %d sources, want 1", len(sources))
	}
	if !strings.Contains(sources[0].Highlight, "warranty period is 24 months") {
		t.Errorf("highlight = %q, markdown answer failed to match source", sources[0].Highlight)
	}
}
