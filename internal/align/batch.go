// ABOUTME: Concurrent execution of many alignment requests over one engine.
// ABOUTME: Bounds parallelism with errgroup and keeps results in request order.
package align

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency is used when RunBatch receives a non-positive limit.
const DefaultBatchConcurrency = 4

// BatchItem is the outcome of one request in a batch.
type BatchItem struct {
	Request Request `json:"request"`
	Report  *Report `json:"report,omitempty"`
	Error   string  `json:"error,omitempty"`

	err error
}

// Err returns the error the request failed with, if any.
func (b BatchItem) Err() error {
	return b.err
}

// RunBatch runs every request with at most concurrency in flight. A failing
// request does not stop the others; only cancellation of ctx does.
func (e *Engine) RunBatch(ctx context.Context, reqs []Request, concurrency int) ([]BatchItem, error) {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	items := make([]BatchItem, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i].Request = req
			report, err := e.Run(gctx, req)
			if err != nil {
				items[i].err = err
				items[i].Error = err.Error()
				e.logger.Warn("batch request failed", "index", i, "source", req.SourceName, "target", req.TargetName, "error", err)
				return nil
			}
			items[i].Report = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return items, err
	}
	return items, nil
}
