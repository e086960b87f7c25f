// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
)

// RunBatch processes a list of book URLs sequentially. One book's
// failure never halts the batch; every URL produces an Outcome. A
// canceled context stops the batch after the current book.
func (p *Pipeline) RunBatch(ctx context.Context, urls []string) []*Outcome {
	return p.RunBatchWithProgress(ctx, urls, nil)
}

// RunBatchWithProgress is RunBatch with per-book progress reporting.
// A nil tracker disables reporting.
func (p *Pipeline) RunBatchWithProgress(ctx context.Context, urls []string, tracker *ProgressTracker) []*Outcome {
	if tracker != nil {
		tracker.Start()
	}

	outcomes := make([]*Outcome, 0, len(urls))
	for _, url := range urls {
		if ctx.Err() != nil {
			break
		}

		outcome := p.Run(ctx, url)
		outcomes = append(outcomes, outcome)

		if tracker != nil {
			tracker.Observe(outcome.State)
		}
	}

	if tracker != nil {
		tracker.Finish()
	}
	return outcomes
}

// RetryFailed re-runs exactly the URLs currently in the failed set.
// A successful re-run removes the record; a renewed failure increments
// its attempt count. The error return covers only listing the records.
func (p *Pipeline) RetryFailed(ctx context.Context) ([]*Outcome, error) {
	records, err := p.failed.List(ctx)
	if err != nil {
		return nil, err
	}

	urls := make([]string, len(records))
	for i, record := range records {
		urls[i] = record.URL
	}

	return p.RunBatch(ctx, urls), nil
}

// BatchSummary tallies the terminal states of a batch.
type BatchSummary struct {
	Done    int
	Skipped int
	Failed  int
}

// Summarize aggregates outcomes into a BatchSummary.
func Summarize(outcomes []*Outcome) BatchSummary {
	var summary BatchSummary
	for _, outcome := range outcomes {
		switch outcome.State {
		case StateDone:
			summary.Done++
		case StateSkipped:
			summary.Skipped++
		case StateFailed:
			summary.Failed++
		}
	}
	return summary
}
