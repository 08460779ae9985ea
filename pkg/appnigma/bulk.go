package appnigma

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// BulkMetrics tracks the outcome counts of a bulk proxy run.
type BulkMetrics struct {
	succeeded int
	failed    int
	mu        sync.Mutex
}

// AddSuccess increments the succeeded count
func (m *BulkMetrics) AddSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.succeeded++
}

// AddFailure increments the failed count
func (m *BulkMetrics) AddFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
}

// Succeeded returns the number of items that completed successfully
func (m *BulkMetrics) Succeeded() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.succeeded
}

// Failed returns the number of items that failed
func (m *BulkMetrics) Failed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed
}

// BulkItem is the outcome of a single request within a bulk run. Exactly
// one of Payload and Err is set.
type BulkItem struct {
	Index   int
	Request ProxyRequest
	Payload json.RawMessage
	Err     error
}

// BulkResult collects every per-item outcome of a bulk run. Partial failure
// is a first-class outcome: the batch never aborts on an item failure.
type BulkResult struct {
	Items   []BulkItem
	Metrics *BulkMetrics
}

// Failures returns the items that failed.
func (r *BulkResult) Failures() []BulkItem {
	var failures []BulkItem
	for _, item := range r.Items {
		if item.Err != nil {
			failures = append(failures, item)
		}
	}
	return failures
}

// BulkOptions configures a bulk proxy run.
type BulkOptions struct {
	// MaxConcurrency bounds the number of in-flight calls. Defaults to 10.
	MaxConcurrency int
	// Retry, when set, wraps each item in a caller-level retry loop.
	Retry *RetryPolicy
}

// ProxyBulk issues many proxy calls against one connection concurrently and
// collects both successes and per-item failures. Items are independent:
// no ordering is guaranteed between in-flight calls, and one item failing
// never aborts the rest. Only context cancellation or a closed session fail
// the call as a whole; on cancellation the partial result is still returned
// alongside the context error once all workers have drained.
func (c *Client) ProxyBulk(ctx context.Context, connectionID string, requests []ProxyRequest, opts BulkOptions, callOpts ...CallOption) (*BulkResult, error) {
	if err := c.preflight(connectionID); err != nil {
		return nil, err
	}

	maxGoroutines := opts.MaxConcurrency
	if maxGoroutines <= 0 {
		maxGoroutines = 10
	}

	result := &BulkResult{
		Items:   make([]BulkItem, len(requests)),
		Metrics: &BulkMetrics{},
	}

	workerPool := pool.New().WithMaxGoroutines(maxGoroutines)
	for i, request := range requests {
		workerPool.Go(func() {
			op := func(ctx context.Context) (json.RawMessage, error) {
				return c.Proxy(ctx, connectionID, request, callOpts...)
			}

			var payload json.RawMessage
			var err error
			if opts.Retry != nil {
				payload, err = Retry(ctx, *opts.Retry, op)
			} else {
				payload, err = op(ctx)
			}

			// Each goroutine writes only its own index.
			result.Items[i] = BulkItem{
				Index:   i,
				Request: request,
				Payload: payload,
				Err:     err,
			}

			if err != nil {
				result.Metrics.AddFailure()
				c.logger.Warn("Bulk proxy item failed",
					zap.String("connection_id", connectionID),
					zap.Int("index", i),
					zap.String("upstream_method", request.Method),
					zap.String("upstream_path", request.Path),
					zap.Error(err))
				return
			}
			result.Metrics.AddSuccess()
		})
	}
	workerPool.Wait()

	c.logger.Info("Bulk proxy run completed",
		zap.String("connection_id", connectionID),
		zap.Int("total", len(requests)),
		zap.Int("succeeded", result.Metrics.Succeeded()),
		zap.Int("failed", result.Metrics.Failed()))

	if err := ctx.Err(); err != nil {
		return result, err
	}

	return result, nil
}
