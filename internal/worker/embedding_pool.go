package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/facecheck/internal/pkg/face"
)

// ErrPoolStopped is returned for jobs submitted to a pool that is not running.
var ErrPoolStopped = errors.New("embedding pool is not running")

// ErrEmbedTimeout is returned when a single embedding exceeds the configured timeout.
var ErrEmbedTimeout = errors.New("embedding timed out")

type embedJob struct {
	ctx    context.Context
	image  []byte
	result chan embedResult
}

type embedResult struct {
	embedding face.Embedding
	err       error
}

// EmbeddingPool offloads embedding computation to a fixed set of workers with a per-call timeout.
// It implements face.Provider.
type EmbeddingPool struct {
	provider face.Provider
	workers  int
	timeout  time.Duration
	logger   *slog.Logger

	jobs    chan embedJob
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	mu      sync.RWMutex
	running bool
}

// NewEmbeddingPool constructs a pool in front of provider.
func NewEmbeddingPool(provider face.Provider, workers int, timeout time.Duration, logger *slog.Logger) *EmbeddingPool {
	if workers <= 0 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &EmbeddingPool{
		provider: provider,
		workers:  workers,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start launches the workers. Calling Start on a running pool is a no-op.
func (p *EmbeddingPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.jobs = make(chan embedJob, p.workers*2)
	p.running = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx)
	}
}

// Stop rejects new jobs, lets queued ones finish and waits for all workers.
func (p *EmbeddingPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.jobs)
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	p.wg.Wait()
	cancel()
}

// Embed queues image and waits for its embedding, the timeout, or ctx.
func (p *EmbeddingPool) Embed(ctx context.Context, image []byte) (face.Embedding, error) {
	job := embedJob{ctx: ctx, image: image, result: make(chan embedResult, 1)}

	p.mu.RLock()
	if !p.running {
		p.mu.RUnlock()
		return nil, ErrPoolStopped
	}
	select {
	case p.jobs <- job:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return nil, ctx.Err()
	}

	select {
	case res := <-job.result:
		return res.embedding, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *EmbeddingPool) worker(ctx context.Context) {
	defer p.wg.Done()
	for job := range p.jobs {
		if job.ctx.Err() != nil {
			job.result <- embedResult{err: job.ctx.Err()}
			continue
		}
		job.result <- p.handle(ctx, job)
	}
}

func (p *EmbeddingPool) handle(ctx context.Context, job embedJob) embedResult {
	callCtx, cancel := context.WithTimeout(job.ctx, p.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	start := time.Now()
	embedding, err := p.provider.Embed(callCtx, job.image)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && job.ctx.Err() == nil {
			p.logger.Warn("embedding timed out", slog.Duration("timeout", p.timeout))
			return embedResult{err: fmt.Errorf("%w after %s", ErrEmbedTimeout, p.timeout)}
		}
		if !errors.Is(err, face.ErrNoFace) {
			p.logger.Error("embedding failed", slog.Duration("elapsed", elapsed), slog.String("error", err.Error()))
		}
		return embedResult{err: err}
	}

	p.logger.Debug("embedding computed", slog.Duration("elapsed", elapsed), slog.Int("dims", len(embedding)))
	return embedResult{embedding: embedding}
}
