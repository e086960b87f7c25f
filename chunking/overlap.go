package chunking

import (
	"strings"

	"github.com/poiesic/libris/core"
)

// WordOverlap slides a fixed-size word window over each page, advancing
// by window-size minus overlap so consecutive chunks share exactly the
// configured number of words. No title prefix is added; the last window
// on a page may be shorter than the nominal size.
type WordOverlap struct {
	window  int
	overlap int
}

var _ Strategy = (*WordOverlap)(nil)

// Name returns the strategy's configuration name.
func (w *WordOverlap) Name() string {
	return StrategyWordOverlap
}

// Split chunks each page into overlapping word windows in reading order.
func (w *WordOverlap) Split(title string, pages []core.Page) ([]Piece, error) {
	step := w.window - w.overlap
	var pieces []Piece

	for _, page := range pages {
		words := strings.Fields(page.Text)
		for start := 0; start < len(words); start += step {
			end := min(start+w.window, len(words))
			pieces = append(pieces, Piece{
				Page: page.Number,
				Text: strings.Join(words[start:end], " "),
			})
			if end == len(words) {
				break
			}
		}
	}

	return pieces, nil
}
