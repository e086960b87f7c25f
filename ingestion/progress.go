package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports batch ingestion progress, tallying each
// book's terminal state as it completes.
type ProgressTracker struct {
	writer         io.Writer
	total          int
	current        int
	reportInterval int
	lastReported   int
	summary        BatchSummary
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a progress tracker.
// writer: where to write progress output (typically os.Stderr)
// total: total number of books in the batch
// reportInterval: report progress every N books
func NewProgressTracker(writer io.Writer, total, reportInterval int) *ProgressTracker {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressTracker{
		writer:         writer,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.current = 0
	p.lastReported = 0
	p.summary = BatchSummary{}
}

// Observe records one book's terminal state and advances progress.
func (p *ProgressTracker) Observe(state State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	switch state {
	case StateDone:
		p.summary.Done++
	case StateSkipped:
		p.summary.Skipped++
	case StateFailed:
		p.summary.Failed++
	}

	p.current++
	if p.current > p.total {
		p.current = p.total
	}

	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// Summary returns the counts observed so far.
func (p *ProgressTracker) Summary() BatchSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summary
}

// Finish prints the final progress line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rIngesting: %d/%d (%.1f%%) done=%d skipped=%d failed=%d",
		p.current, p.total, percentage,
		p.summary.Done, p.summary.Skipped, p.summary.Failed)
}
