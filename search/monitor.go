package search

import (
	"github.com/poiesic/libris/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterQueryEmbedding(vector []float32)
	AfterSimilaritySearch(hits []*core.ChunkHit)
	AfterGrouping(results []*core.AggregatedResult)
	Finish(results []*core.AggregatedResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                             {}
func (n *noopMonitor) AfterQueryEmbedding(_ []float32)            {}
func (n *noopMonitor) AfterSimilaritySearch(_ []*core.ChunkHit)   {}
func (n *noopMonitor) AfterGrouping(_ []*core.AggregatedResult)   {}
func (n *noopMonitor) Finish(_ []*core.AggregatedResult)          {}
