package jobs

import (
	"context"

	"github.com/panjf2000/ants/v2"

	"github.com/suPer8Hu/tutor-platform/internal/logger"
)

// Handle lets a caller observe a fire-and-forget task without blocking
// on it: Done closes when the task finishes, Err is valid after that.
type Handle struct {
	name string
	done chan struct{}
	err  error
}

func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the task's result. Only meaningful after Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Pool is a bounded worker pool for background tasks. Submission never
// blocks the caller on the task itself; failures surface through the
// Handle and the log.
type Pool struct {
	inner *ants.Pool
	log   *logger.Logger
}

func NewPool(size int, log *logger.Logger) (*Pool, error) {
	if size <= 0 {
		size = 2
	}
	inner, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	return &Pool{inner: inner, log: log}, nil
}

func (p *Pool) Submit(ctx context.Context, name string, task func(ctx context.Context) error) (*Handle, error) {
	h := &Handle{name: name, done: make(chan struct{})}
	err := p.inner.Submit(func() {
		defer close(h.done)
		if err := task(ctx); err != nil {
			h.err = err
			p.log.Error("background task failed", "task", name, "err", err)
			return
		}
		p.log.Debug("background task finished", "task", name)
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (p *Pool) Release() {
	p.inner.Release()
}
