package pipeline

import (
	"context"
	"fmt"

	"pagetransform/internal/config"
	"pagetransform/internal/source"

	"golang.org/x/sync/errgroup"
)

// Job is one page of a batch.
type Job struct {
	Request config.Request
	Page    *source.Page
}

// Batch transforms jobs with at most concurrency pages in flight and
// returns one Result per job, in job order. A failing page never stops
// the others: its error is kept in Result.Err.
func (o *Orchestrator) Batch(ctx context.Context, jobs []Job, concurrency int) []Result {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			res, err := o.transformIsolated(ctx, job)
			if err != nil && res.Err == nil {
				res.Err = err
			}
			if res.Status == "" {
				res.Status = StatusFailed
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// transformIsolated keeps a panic outside the stages from taking down
// the batch.
func (o *Orchestrator) transformIsolated(ctx context.Context, job Job) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{PageID: job.Request.PageID, Status: StatusFailed}
			err = fmt.Errorf("page %s: %w", job.Request.PageID, &panicError{value: p})
		}
	}()
	return o.Transform(ctx, job.Request, job.Page)
}

// Summary counts batch results by status.
func Summary(results []Result) map[Status]int {
	out := map[Status]int{}
	for _, r := range results {
		out[r.Status]++
	}
	return out
}
