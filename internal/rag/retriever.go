package rag

import (
	"pdfchat-ai/internal/segmenter"
	"pdfchat-ai/internal/vectorindex"
)

// Retrieval parameters. MMR fetches a wide candidate set and selects a
// diversified subset; when that yields nothing the retriever falls back
// to plain similarity search with a smaller k.
const (
	mmrK      = 10
	mmrFetchK = 20
	mmrLambda = 0.5
	simK      = 5
)

// Retrieve returns the grounding chunks for a query vector. It prefers
// maximal-marginal-relevance search for diversity across documents and
// pages, falling back to similarity-only search if MMR returns nothing.
func Retrieve(ix *vectorindex.Index, query []float32) []segmenter.Chunk {
	chunks := ix.MMRSearch(query, mmrK, mmrFetchK, mmrLambda)
	if len(chunks) == 0 {
		chunks = ix.Search(query, simK)
	}
	return chunks
}
