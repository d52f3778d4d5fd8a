package llm

import (
	"context"
	"sync"
)

// BatchRequest is one item of a CompleteBatch call, pairing a task type
// with its completion request.
type BatchRequest struct {
	TaskType TaskType
	Request  Request
}

// CompleteBatch runs requests concurrently, bounded by maxConcurrent
// (defaulting to 10), preserving input-to-output index
// correspondence. A per-request failure is reported as an error-shaped
// Response at that index rather than aborting the batch.
func (r *Router) CompleteBatch(ctx context.Context, requests []BatchRequest, maxConcurrent int) []Response {
	if len(requests) == 0 {
		return nil
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}

	results := make([]Response, len(requests))
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for i, req := range requests {
		wg.Add(1)
		go func(i int, req BatchRequest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			resp, err := r.Complete(ctx, req.TaskType, req.Request)
			if err != nil {
				results[i] = Response{
					Model: "error",
				}
				return
			}
			results[i] = resp
		}(i, req)
	}

	wg.Wait()
	return results
}
