package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"

	"pdfchat-ai/internal/contextutil"
	"pdfchat-ai/internal/segmenter"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks pdfchat-ai/internal/vectorindex Embedder

// Embedder produces embedding vectors for texts.
type Embedder interface {
	// EmbedTexts generates one embedding vector per input text.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is an ephemeral in-memory vector index over a set of chunks.
// It lives for a single conversation turn and is never persisted.
type Index struct {
	chunks  []segmenter.Chunk
	vectors [][]float32
}

// Build embeds every chunk and returns an index over them.
// Zero chunks yield an empty index, not an error: the caller must treat
// an empty index as "no evidence available".
func Build(ctx context.Context, embedder Embedder, chunks []segmenter.Chunk) (*Index, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(chunks) == 0 {
		return &Index{}, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(vectors))
	}

	logger.InfoContext(ctx, "vector index built", "chunks", len(chunks))
	return &Index{chunks: chunks, vectors: vectors}, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	return len(ix.chunks)
}

// Search returns the k chunks nearest to the query vector by cosine
// similarity, best first.
func (ix *Index) Search(query []float32, k int) []segmenter.Chunk {
	if ix.Len() == 0 || k <= 0 {
		return nil
	}

	order := ix.rankBySimilarity(query)
	if k > len(order) {
		k = len(order)
	}

	results := make([]segmenter.Chunk, 0, k)
	for _, idx := range order[:k] {
		results = append(results, ix.chunks[idx])
	}
	return results
}

// MMRSearch performs maximal-marginal-relevance search: from the fetchK
// most similar candidates it greedily selects k chunks, each maximizing
// lambda*sim(query, chunk) - (1-lambda)*max sim(chunk, selected).
// lambda=0.5 balances relevance against novelty. Results never contain
// duplicates and never exceed k.
func (ix *Index) MMRSearch(query []float32, k, fetchK int, lambda float32) []segmenter.Chunk {
	if ix.Len() == 0 || k <= 0 {
		return nil
	}
	if fetchK < k {
		fetchK = k
	}

	order := ix.rankBySimilarity(query)
	if fetchK > len(order) {
		fetchK = len(order)
	}
	candidates := order[:fetchK]

	queryScores := make(map[int]float32, len(candidates))
	for _, idx := range candidates {
		queryScores[idx] = cosineSimilarity(query, ix.vectors[idx])
	}

	selected := make([]int, 0, k)
	remaining := append([]int(nil), candidates...)

	for len(selected) < k && len(remaining) > 0 {
		bestPos := -1
		bestScore := float32(math.Inf(-1))

		for pos, idx := range remaining {
			redundancy := float32(0)
			for _, sel := range selected {
				if sim := cosineSimilarity(ix.vectors[idx], ix.vectors[sel]); sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*queryScores[idx] - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				bestPos = pos
			}
		}

		selected = append(selected, remaining[bestPos])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	results := make([]segmenter.Chunk, 0, len(selected))
	for _, idx := range selected {
		results = append(results, ix.chunks[idx])
	}
	return results
}

// rankBySimilarity returns chunk indices ordered by descending cosine
// similarity to the query. The sort is stable so equal scores keep
// insertion order, which keeps retrieval deterministic.
func (ix *Index) rankBySimilarity(query []float32) []int {
	scores := make([]float32, len(ix.vectors))
	for i, vec := range ix.vectors {
		scores[i] = cosineSimilarity(query, vec)
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	return order
}

func cosineSimilarity(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
