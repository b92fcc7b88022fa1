package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestPool(t *testing.T, workers int) *RenderPool {
	t.Helper()

	p := NewRenderPool(RenderPoolConfig{Workers: workers, QueueSize: 16})
	p.Start()
	t.Cleanup(p.Stop)
	return p
}

func TestRenderPool_Do(t *testing.T) {
	p := newTestPool(t, 2)

	data, err := p.Do(context.Background(), func() ([]byte, error) {
		return []byte("tile"), nil
	})
	if err != nil || string(data) != "tile" {
		t.Fatalf("Do = %q, %v", data, err)
	}

	wantErr := errors.New("boom")
	if _, err := p.Do(context.Background(), func() ([]byte, error) { return nil, wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("expected render error, got %v", err)
	}
}

func TestRenderPool_DefaultWorkers(t *testing.T) {
	p := NewRenderPool(RenderPoolConfig{})
	if p.Workers() < 1 {
		t.Fatalf("expected at least one worker, got %d", p.Workers())
	}
}

func TestRenderPool_BoundsConcurrency(t *testing.T) {
	const workers = 3
	p := newTestPool(t, workers)

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Do(context.Background(), func() ([]byte, error) {
				n := atomic.AddInt32(&active, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil, nil
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
		}()
	}
	wg.Wait()

	if peak > workers {
		t.Fatalf("expected at most %d concurrent renders, saw %d", workers, peak)
	}
}

func TestRenderPool_RecoversPanic(t *testing.T) {
	p := newTestPool(t, 1)

	_, err := p.Do(context.Background(), func() ([]byte, error) {
		panic("corrupt grid")
	})
	if err == nil || !strings.Contains(err.Error(), "corrupt grid") {
		t.Fatalf("expected panic to surface as error, got %v", err)
	}

	// The worker survives and keeps serving.
	data, err := p.Do(context.Background(), func() ([]byte, error) { return []byte("ok"), nil })
	if err != nil || string(data) != "ok" {
		t.Fatalf("pool unusable after panic: %q, %v", data, err)
	}
}

func TestRenderPool_ContextCancelled(t *testing.T) {
	p := newTestPool(t, 1)

	release := make(chan struct{})
	started := make(chan struct{})
	go p.Do(context.Background(), func() ([]byte, error) {
		close(started)
		<-release
		return nil, nil
	})
	<-started
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var ran atomic.Bool
	_, err := p.Do(ctx, func() ([]byte, error) {
		ran.Store(true)
		return nil, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if ran.Load() {
		t.Fatal("render should not run while the only worker is busy")
	}
}

func TestRenderPool_Stopped(t *testing.T) {
	p := NewRenderPool(RenderPoolConfig{Workers: 1})
	p.Start()
	p.Stop()
	p.Stop()

	if _, err := p.Do(context.Background(), func() ([]byte, error) { return nil, nil }); !errors.Is(err, ErrPoolStopped) {
		t.Fatalf("expected ErrPoolStopped, got %v", err)
	}
}
