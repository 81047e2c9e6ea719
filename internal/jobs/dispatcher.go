package jobs

import "context"

// InlineDispatcher runs material processing on the in-process pool.
// Used when no queue is configured (single-binary deployments, tests).
type InlineDispatcher struct {
	pool    *Pool
	process func(ctx context.Context, materialID string) error
}

func NewInlineDispatcher(pool *Pool, process func(ctx context.Context, materialID string) error) *InlineDispatcher {
	return &InlineDispatcher{pool: pool, process: process}
}

// Dispatch submits the job detached from the request context: the
// upload response returns immediately while processing continues.
func (d *InlineDispatcher) Dispatch(ctx context.Context, materialID string) error {
	bgCtx := context.WithoutCancel(ctx)
	_, err := d.pool.Submit(bgCtx, "process_material", func(ctx context.Context) error {
		return d.process(ctx, materialID)
	})
	return err
}
