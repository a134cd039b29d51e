package usecase

import (
	"context"
	"sync"
	"time"

	"Prism/internal/domain/models"
	drepo "Prism/internal/domain/repository"
	mid "Prism/internal/middleware"
	"Prism/internal/service/synth"
	applogger "Prism/pkg/logger"
)

// Target is one asset/horizon pair kept fresh by the collector.
type Target struct {
	Asset   string
	Horizon models.Horizon
}

// Targets expands the catalog into every supported asset/horizon pair.
func Targets(cat drepo.ConeCatalog) []Target {
	var out []Target
	for _, a := range cat.Assets() {
		for _, tag := range cat.HorizonsFor(a) {
			h, err := models.ParseHorizon(tag)
			if err != nil {
				continue
			}
			out = append(out, Target{Asset: a, Horizon: h})
		}
	}
	return out
}

// ConeCollector polls the forecast provider on an interval and feeds every
// cone through the pipeline.
type ConeCollector struct {
	source     drepo.ConeSource
	pipe       *mid.ConePipeline
	targets    []Target
	interval   time.Duration
	conePoints int
	metrics    drepo.Metrics
	l          *applogger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr map[string]error
}

func NewConeCollector(source drepo.ConeSource, pipe *mid.ConePipeline, targets []Target, interval time.Duration, conePoints int, metrics drepo.Metrics, l *applogger.Logger) *ConeCollector {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ConeCollector{
		source:     source,
		pipe:       pipe,
		targets:    targets,
		interval:   interval,
		conePoints: conePoints,
		metrics:    metrics,
		l:          l,
		lastErr:    make(map[string]error),
	}
}

// Start polls once immediately, then on every interval, until Shutdown.
func (c *ConeCollector) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return nil
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.pipe.Start(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		t := time.NewTicker(c.interval)
		defer t.Stop()
		c.Poll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Poll(ctx)
			}
		}
	}()
	c.l.Info("cone collector started",
		applogger.Int("targets", len(c.targets)),
		applogger.Duration("interval_ms", c.interval),
	)
	return nil
}

// Poll fetches every target once and returns how many cones were accepted
// by the pipeline.
func (c *ConeCollector) Poll(ctx context.Context) int {
	ok := 0
	for _, t := range c.targets {
		if ctx.Err() != nil {
			return ok
		}
		key := models.SceneKey(t.Asset, t.Horizon)
		cone, err := c.source.FetchCone(ctx, t.Asset, t.Horizon)
		if err != nil {
			c.metrics.RecordError("collect")
			c.logOnce(key, err)
			continue
		}
		cone = synth.SampleCone(cone, c.conePoints)
		if err := c.pipe.Process(ctx, &cone); err != nil {
			c.logOnce(key, err)
			continue
		}
		c.clearErr(key)
		ok++
	}
	return ok
}

// logOnce logs a failure when it first appears for a key, not on every poll.
func (c *ConeCollector) logOnce(key string, err error) {
	c.mu.Lock()
	prev, seen := c.lastErr[key]
	c.lastErr[key] = err
	c.mu.Unlock()
	if seen && prev.Error() == err.Error() {
		return
	}
	c.l.Warn("cone collection failed", applogger.String("key", key), applogger.Error(err))
}

func (c *ConeCollector) clearErr(key string) {
	c.mu.Lock()
	_, had := c.lastErr[key]
	delete(c.lastErr, key)
	c.mu.Unlock()
	if had {
		c.l.Info("cone collection recovered", applogger.String("key", key))
	}
}

// Shutdown stops polling and the pipeline.
func (c *ConeCollector) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	c.pipe.Stop()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
