package citation

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// minSpanParagraph is the minimum paragraph length considered in the
	// exact-phrase pass.
	minSpanParagraph = 10
	// minFallbackParagraph is the minimum paragraph length considered in
	// the word-overlap fallback pass.
	minFallbackParagraph = 20
	// overlapThreshold is the word-overlap ratio above which a paragraph
	// is kept by the fallback pass.
	overlapThreshold = 0.3

	// phraseWindowMin and phraseWindowMax bound key-phrase word windows.
	phraseWindowMin = 3
	phraseWindowMax = 5
	// minPhraseLength is the minimum key-phrase length in characters.
	minPhraseLength = 4
	// maxKeyPhrases caps the number of key phrases extracted per answer.
	maxKeyPhrases = 15
	// minSentenceLength discards trivially short sentences before
	// phrase enumeration.
	minSentenceLength = 10
)

var (
	paragraphRe = regexp.MustCompile(`\n{2,}`)
	sentenceRe  = regexp.MustCompile(`[.!?]`)
)

// ExtractRelevantSpans returns the paragraphs of chunkText that support
// the answer. The first pass keeps any paragraph with a 3-word window
// occurring verbatim (case-insensitive) in the answer. Only if that finds
// nothing, a fallback pass keeps paragraphs whose long-word overlap with
// the answer exceeds overlapThreshold, or that are literal substrings of
// the answer. The answer is expected to be plain text (see PlainText).
func ExtractRelevantSpans(answer, chunkText string) []string {
	answerLower := strings.ToLower(answer)

	var paragraphs []string
	for _, para := range paragraphRe.Split(chunkText, -1) {
		if p := strings.TrimSpace(para); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	var spans []string
	seen := make(map[string]bool)

	for _, para := range paragraphs {
		paraClean := strings.Join(strings.Fields(para), " ")
		if utf8.RuneCountInString(paraClean) < minSpanParagraph {
			continue
		}

		words := strings.Fields(strings.ToLower(paraClean))
		if len(words) < phraseWindowMin {
			continue
		}
		for i := 0; i+phraseWindowMin <= len(words); i++ {
			phrase := strings.Join(words[i:i+phraseWindowMin], " ")
			if strings.Contains(answerLower, phrase) {
				if !seen[para] {
					seen[para] = true
					spans = append(spans, para)
				}
				break
			}
		}
	}

	if len(spans) > 0 {
		return spans
	}

	// Fallback: loose word-overlap matching.
	for _, para := range paragraphs {
		paraClean := strings.Join(strings.Fields(para), " ")
		if utf8.RuneCountInString(paraClean) < minFallbackParagraph {
			continue
		}

		words := strings.Fields(paraClean)
		matches := 0
		for _, word := range words {
			if len(word) > 3 && strings.Contains(answerLower, strings.ToLower(word)) {
				matches++
			}
		}
		ratio := float64(matches) / float64(max(1, len(words)))

		if ratio > overlapThreshold || strings.Contains(answerLower, strings.ToLower(paraClean)) {
			if !seen[para] {
				seen[para] = true
				spans = append(spans, para)
			}
		}
	}

	return spans
}

// ExtractKeyPhrases extracts up to maxKeyPhrases distinct word windows of
// 3 to 5 words from the answer's sentences, longest first. Ties keep
// first-occurrence order (stable sort), so repeated identical answers
// always produce the same phrase set.
func ExtractKeyPhrases(text string) []string {
	var phrases []string
	seen := make(map[string]bool)

	for _, sentence := range sentenceRe.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if utf8.RuneCountInString(sentence) <= minSentenceLength {
			continue
		}

		words := strings.Fields(sentence)
		if len(words) < phraseWindowMin {
			continue
		}
		for i := 0; i+phraseWindowMin <= len(words); i++ {
			for n := phraseWindowMin; n <= phraseWindowMax && i+n <= len(words); n++ {
				phrase := strings.Join(words[i:i+n], " ")
				if utf8.RuneCountInString(phrase) < minPhraseLength {
					continue
				}
				key := strings.ToLower(phrase)
				if seen[key] {
					continue
				}
				seen[key] = true
				phrases = append(phrases, phrase)
			}
		}
	}

	if len(phrases) > maxKeyPhrases {
		phrases = phrases[:maxKeyPhrases]
	}
	sort.SliceStable(phrases, func(a, b int) bool {
		return len(phrases[a]) > len(phrases[b])
	})
	return phrases
}
