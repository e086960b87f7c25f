package chunking

import (
	"strings"
	"testing"

	"github.com/poiesic/libris/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSentenceSplitter(t *testing.T, sizeLimit int) Strategy {
	t.Helper()
	strategy, err := New(NewConfig(WithStrategy(StrategySentenceSplitter), WithSizeLimit(sizeLimit)))
	require.NoError(t, err)
	return strategy
}

func TestSentenceSplitterTitleMarker(t *testing.T) {
	strategy := newSentenceSplitter(t, 100)

	pieces, err := strategy.Split("Moby Dick", []core.Page{
		{Number: 1, Text: "Call me Ishmael. Some years ago I went to sea."},
	})
	require.NoError(t, err)
	require.NotEmpty(t, pieces)

	for _, piece := range pieces {
		assert.True(t, strings.HasPrefix(piece.Text, "##Moby Dick## "), piece.Text)
	}
}

func TestSentenceSplitterNeverSplitsInsideSentence(t *testing.T) {
	strategy := newSentenceSplitter(t, 40)

	text := "The ship sailed at dawn. The crew was restless and tired. " +
		"A storm rose in the east! Would they survive it? Nobody knew. " +
		"The captain held the wheel."
	pieces, err := strategy.Split("Log", []core.Page{{Number: 1, Text: text}})
	require.NoError(t, err)
	require.NotEmpty(t, pieces)

	// Every chunk ends at a sentence terminator.
	for _, piece := range pieces {
		body := strings.TrimPrefix(piece.Text, "##Log## ")
		last := body[len(body)-1]
		assert.Contains(t, []byte{'.', '!', '?'}, last, body)
	}

	// Reading order is preserved: rejoining the bodies restores the text.
	var bodies []string
	for _, piece := range pieces {
		bodies = append(bodies, strings.TrimPrefix(piece.Text, "##Log## "))
	}
	assert.Equal(t, text, strings.Join(bodies, " "))
}

func TestSentenceSplitterOversizedSentence(t *testing.T) {
	strategy := newSentenceSplitter(t, 20)

	long := "This single sentence is far longer than the limit allows."
	pieces, err := strategy.Split("", []core.Page{
		{Number: 1, Text: "Short one. " + long + " Tail."},
	})
	require.NoError(t, err)
	require.Len(t, pieces, 3)
	assert.Equal(t, "Short one.", pieces[0].Text)
	assert.Equal(t, long, pieces[1].Text)
	assert.Equal(t, "Tail.", pieces[2].Text)
}

func TestSentenceSplitterPageAttribution(t *testing.T) {
	strategy := newSentenceSplitter(t, 1000)

	pieces, err := strategy.Split("T", []core.Page{
		{Number: 1, Text: "Page one text."},
		{Number: 2, Text: "Page two text."},
	})
	require.NoError(t, err)
	require.Len(t, pieces, 2)
	assert.Equal(t, 1, pieces[0].Page)
	assert.Equal(t, 2, pieces[1].Page)
}

func TestSentenceSplitterDeterministic(t *testing.T) {
	strategy := newSentenceSplitter(t, 50)
	pages := []core.Page{{Number: 1, Text: "One. Two. Three. Four. Five. Six. Seven."}}

	first, err := strategy.Split("T", pages)
	require.NoError(t, err)
	second, err := strategy.Split("T", pages)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSentenceSplitterNonEmptyOutput(t *testing.T) {
	strategy := newSentenceSplitter(t, 10)

	pieces, err := strategy.Split("T", []core.Page{{Number: 1, Text: "Words without any terminator"}})
	require.NoError(t, err)
	assert.NotEmpty(t, pieces)
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "plain sentences",
			text: "First. Second! Third?",
			want: []string{"First.", "Second!", "Third?"},
		},
		{
			name: "terminator run",
			text: "Really?! Yes... maybe.",
			want: []string{"Really?!", "Yes... maybe."},
		},
		{
			name: "abbreviation-like dot without space",
			text: "Version 1.2 shipped. Done.",
			want: []string{"Version 1.2 shipped.", "Done."},
		},
		{
			name: "no terminator",
			text: "trailing fragment",
			want: []string{"trailing fragment"},
		},
		{
			name: "empty",
			text: "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitSentences(tt.text))
		})
	}
}
