package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Prism/internal/domain/models"
	domrepo "Prism/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, cone *models.PercentileCone) error
}

// ConePipeline sits between the forecast poller and the scene processor.
// It validates, throttles per asset/horizon and keeps the newest failed cone
// of each key for a retry while the downstream is failing. A cone older than
// the last one applied for its key is never forwarded.
type ConePipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	window   time.Duration
	bufSize  int
	wake     chan struct{}
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	fwdMu    sync.Mutex
	lastSeen map[string]time.Time
	pending  map[string]*models.PercentileCone
	applied  map[string]time.Time
	backoff  time.Duration
	now      func() time.Time
}

type PipelineOption func(*ConePipeline)

// WithThrottleWindow sets the minimum spacing between two accepted cones of
// the same key. Zero disables throttling.
func WithThrottleWindow(d time.Duration) PipelineOption {
	return func(p *ConePipeline) {
		if d >= 0 {
			p.window = d
		}
	}
}

// WithBufferSize caps the number of keys waiting for a retry.
func WithBufferSize(n int) PipelineOption {
	return func(p *ConePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithRetryBackoff sets the initial delay before a buffered cone is retried.
func WithRetryBackoff(d time.Duration) PipelineOption {
	return func(p *ConePipeline) {
		if d > 0 {
			p.backoff = d
		}
	}
}

func NewConePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *ConePipeline {
	p := &ConePipeline{
		proc:     proc,
		metrics:  metrics,
		window:   5 * time.Second,
		bufSize:  64,
		wake:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
		pending:  make(map[string]*models.PercentileCone),
		applied:  make(map[string]time.Time),
		backoff:  50 * time.Millisecond,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches background flushing of buffered cones.
func (p *ConePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.flush(ctx)
}

func (p *ConePipeline) flush(ctx context.Context) {
	backoff := p.backoff
	for {
		c := p.takePending()
		if c == nil {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case <-p.wake:
			}
			continue
		}

		skipped, err := p.forward(ctx, c)
		if skipped {
			continue
		}
		if err != nil {
			p.metrics.RecordError("pipeline_flush")
			p.enqueue(c)
			if backoff < 2*time.Second {
				backoff *= 2
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			}
			continue
		}
		backoff = p.backoff
	}
}

// Stop stops the background flushing.
func (p *ConePipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.started = false
	close(p.stopCh)
}

// Buffered is the number of keys waiting for a retry.
func (p *ConePipeline) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Process validates, throttles and forwards a cone, buffering it when the
// downstream fails. Throttled and stale cones are dropped without error.
func (p *ConePipeline) Process(ctx context.Context, c *models.PercentileCone) error {
	start := time.Now()
	if err := validateCone(c); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(c.Key(), p.now()) {
		p.metrics.RecordDropped("pipeline_throttle")
		return nil
	}

	skipped, err := p.forward(ctx, c)
	if skipped {
		return nil
	}
	if err != nil {
		p.metrics.RecordError("pipeline_process")
		p.enqueue(c)
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

// forward hands c to the processor unless a newer cone of its key was
// applied first. Forwards are serialized so the staleness check and the
// apply cannot interleave with another cone of the same key.
func (p *ConePipeline) forward(ctx context.Context, c *models.PercentileCone) (skipped bool, err error) {
	p.fwdMu.Lock()
	defer p.fwdMu.Unlock()
	if p.stale(c) {
		p.metrics.RecordDropped("pipeline_stale")
		return true, nil
	}
	if err := p.proc.Process(ctx, c); err != nil {
		return false, err
	}
	p.markApplied(c)
	return false, nil
}

// enqueue keeps c as the retry candidate of its key unless a newer cone is
// already waiting. A new key is dropped when the buffer is full.
func (p *ConePipeline) enqueue(c *models.PercentileCone) {
	p.mu.Lock()
	key := c.Key()
	if cur, ok := p.pending[key]; ok {
		if !c.FetchedAt.Before(cur.FetchedAt) {
			p.pending[key] = c
		}
	} else if len(p.pending) >= p.bufSize {
		p.mu.Unlock()
		p.metrics.RecordDropped("pipeline_buffer_full")
		return
	} else {
		p.pending[key] = c
	}
	depth := len(p.pending)
	p.mu.Unlock()

	p.metrics.SetPipelineBuffered(depth)
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *ConePipeline) takePending() *models.PercentileCone {
	p.mu.Lock()
	var c *models.PercentileCone
	for key, v := range p.pending {
		c = v
		delete(p.pending, key)
		break
	}
	depth := len(p.pending)
	p.mu.Unlock()

	if c != nil {
		p.metrics.SetPipelineBuffered(depth)
	}
	return c
}

// stale reports whether a newer cone of the same key was already applied.
func (p *ConePipeline) stale(c *models.PercentileCone) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.applied[c.Key()]
	return ok && c.FetchedAt.Before(last)
}

// markApplied records c as the newest applied cone of its key and discards a
// waiting retry that is not newer.
func (p *ConePipeline) markApplied(c *models.PercentileCone) {
	p.mu.Lock()
	key := c.Key()
	if last, ok := p.applied[key]; !ok || c.FetchedAt.After(last) {
		p.applied[key] = c.FetchedAt
	}
	removed := false
	if cur, ok := p.pending[key]; ok && !cur.FetchedAt.After(c.FetchedAt) {
		delete(p.pending, key)
		removed = true
	}
	depth := len(p.pending)
	p.mu.Unlock()

	if removed {
		p.metrics.SetPipelineBuffered(depth)
	}
}

var errEmptyAsset = errors.New("cone asset empty")

// validateCone rejects cones the scene builder cannot even key or order.
// Too few points or odd prices are left to the builder, which renders them
// as an empty surface.
func validateCone(c *models.PercentileCone) error {
	if c == nil {
		return fmt.Errorf("cone nil")
	}
	if c.Asset == "" {
		return errEmptyAsset
	}
	if !c.Horizon.Valid() {
		return fmt.Errorf("cone %s: %w", c.Asset, models.ErrUnknownHorizon)
	}
	for i := 1; i < len(c.Points); i++ {
		if c.Points[i].SecondsAhead <= c.Points[i-1].SecondsAhead {
			return fmt.Errorf("cone %s point %d: %w", c.Key(), i, models.ErrUnorderedCone)
		}
	}
	return nil
}

func (p *ConePipeline) allow(key string, now time.Time) bool {
	if p.window <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.lastSeen[key]
	if ok && now.Sub(last) < p.window {
		return false
	}
	p.lastSeen[key] = now
	return true
}
