// Package chunking splits page-indexed raw text into the chunks that
// receive embedding vectors.
//
// Two strategies form a closed set, selected by configuration name:
// sentence_splitter (the default) accumulates whole sentences up to a
// size limit and prefixes chunks with a ##<title>## marker, while
// word_overlap slides a fixed word window with a configurable overlap.
// Strategy selection is validated at construction; an unknown name is a
// configuration error, never a silent default.
package chunking
