package chunking

import (
	"strings"
	"unicode"

	"github.com/poiesic/libris/core"
)

// SentenceSplitter accumulates whole sentences into chunks up to a size
// limit and prefixes every chunk with a title marker so the embedding
// captures document identity. A chunk boundary never falls inside a
// sentence; a single sentence longer than the limit becomes its own
// chunk.
type SentenceSplitter struct {
	sizeLimit int
}

var _ Strategy = (*SentenceSplitter)(nil)

// Name returns the strategy's configuration name.
func (s *SentenceSplitter) Name() string {
	return StrategySentenceSplitter
}

// Split chunks each page at sentence boundaries in reading order.
func (s *SentenceSplitter) Split(title string, pages []core.Page) ([]Piece, error) {
	marker := titleMarker(title)
	var pieces []Piece

	for _, page := range pages {
		sentences := splitSentences(page.Text)
		if len(sentences) == 0 {
			continue
		}

		var current strings.Builder
		currentRunes := 0
		flush := func() {
			if current.Len() == 0 {
				return
			}
			pieces = append(pieces, Piece{Page: page.Number, Text: marker + current.String()})
			current.Reset()
			currentRunes = 0
		}

		for _, sentence := range sentences {
			sentenceRunes := len([]rune(sentence))
			if currentRunes > 0 && currentRunes+1+sentenceRunes > s.sizeLimit {
				flush()
			}
			if currentRunes > 0 {
				current.WriteByte(' ')
				currentRunes++
			}
			current.WriteString(sentence)
			currentRunes += sentenceRunes
			// An oversized single sentence is emitted on its own.
			if currentRunes >= s.sizeLimit {
				flush()
			}
		}
		flush()
	}

	return pieces, nil
}

// titleMarker builds the ##<title>## prefix for sentence chunks.
func titleMarker(title string) string {
	if title == "" {
		return ""
	}
	return "##" + title + "## "
}

// splitSentences splits text into sentences, keeping terminators
// attached. A sentence ends at a run of '.', '!', or '?' followed by
// whitespace or end of text.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isSentenceTerminator(runes[i]) {
			continue
		}
		// Absorb terminator runs like "?!" or "...".
		for i+1 < len(runes) && isSentenceTerminator(runes[i+1]) {
			i++
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if sentence := strings.TrimSpace(string(runes[start : i+1])); sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}

	return sentences
}

func isSentenceTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
