package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrPoolStopped is returned for work submitted to, or pending in, a stopped pool.
var ErrPoolStopped = errors.New("render pool stopped")

// RenderPoolConfig contains configuration for the render pool.
type RenderPoolConfig struct {
	Workers   int // Number of render goroutines (default GOMAXPROCS)
	QueueSize int // Pending renders before Do blocks (default 256)
}

type renderJob struct {
	ctx  context.Context
	fn   func() ([]byte, error)
	done chan renderResult
}

type renderResult struct {
	data []byte
	err  error
}

// RenderPool runs CPU-bound tile renders on a fixed set of goroutines so the
// number of concurrent renders never exceeds the worker count.
type RenderPool struct {
	cfg       RenderPoolConfig
	queue     chan renderJob
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
}

// NewRenderPool creates a render pool. Call Start before submitting work.
func NewRenderPool(cfg RenderPoolConfig) *RenderPool {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	return &RenderPool{
		cfg:    cfg,
		queue:  make(chan renderJob, cfg.QueueSize),
		stopCh: make(chan struct{}),
	}
}

// Workers returns the number of render goroutines.
func (p *RenderPool) Workers() int {
	return p.cfg.Workers
}

// Start starts the worker goroutines.
func (p *RenderPool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.cfg.Workers; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

// Stop stops all workers and waits for running renders to finish. Callers still
// waiting get ErrPoolStopped.
func (p *RenderPool) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.wg.Wait()
	})
}

// Do runs fn on a worker and waits for its result. If ctx ends first, Do
// returns ctx.Err(); a render that already started still runs to completion.
func (p *RenderPool) Do(ctx context.Context, fn func() ([]byte, error)) ([]byte, error) {
	select {
	case <-p.stopCh:
		return nil, ErrPoolStopped
	default:
	}

	job := renderJob{ctx: ctx, fn: fn, done: make(chan renderResult, 1)}
	select {
	case p.queue <- job:
	case <-p.stopCh:
		return nil, ErrPoolStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-job.done:
		return res.data, res.err
	case <-p.stopCh:
		return nil, ErrPoolStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *RenderPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case job := <-p.queue:
			if job.ctx.Err() != nil {
				// Caller already gave up.
				continue
			}
			job.done <- p.run(job.fn)
		}
	}
}

func (p *RenderPool) run(fn func() ([]byte, error)) (res renderResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Render panicked")
			res = renderResult{err: fmt.Errorf("render panicked: %v", r)}
		}
	}()
	data, err := fn()
	return renderResult{data: data, err: err}
}
