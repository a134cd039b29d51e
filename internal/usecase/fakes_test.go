package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"Prism/internal/domain/models"
)

var zScores = [9]float64{-2.576, -1.645, -0.8416, -0.3853, 0, 0.3853, 0.8416, 1.645, 2.576}

// lognormalCone builds a cone whose percentiles follow a log-normal spread
// with annual volatility vol.
func lognormalCone(asset string, h models.Horizon, spot, vol float64, n int) models.PercentileCone {
	c := models.PercentileCone{Asset: asset, Horizon: h, CurrentPrice: spot}
	for i := 0; i < n; i++ {
		sec := int64(math.Round(float64(i) * float64(h.Seconds()) / float64(n-1)))
		t := float64(sec) / (365.25 * 86400)
		var p models.Percentiles
		for k, z := range zScores {
			p[k] = spot * math.Exp(z*vol*math.Sqrt(t))
		}
		c.Points = append(c.Points, models.ConePoint{SecondsAhead: sec, Prices: p})
	}
	return c
}

type fakeMetrics struct {
	mu         sync.Mutex
	processed  int
	degenerate int
	frames     int
	opened     int
	closed     int
	errors     map[string]int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{errors: map[string]int{}} }

func (m *fakeMetrics) RecordConeProcessed(string, models.Horizon) {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordDegenerate(string, models.Horizon) {
	m.mu.Lock()
	m.degenerate++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordLastPrice(string, float64) {}
func (m *fakeMetrics) RecordLatency(string, float64)   {}
func (m *fakeMetrics) SetPipelineBuffered(int)         {}

func (m *fakeMetrics) RecordDropped(reason string) {
	m.mu.Lock()
	m.errors["dropped_"+reason]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordFrames(_ string, n int) {
	m.mu.Lock()
	m.frames += n
	m.mu.Unlock()
}

func (m *fakeMetrics) StreamOpened() {
	m.mu.Lock()
	m.opened++
	m.mu.Unlock()
}

func (m *fakeMetrics) StreamClosed() {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()
}

type counts struct{ processed, degenerate, frames, opened, closed int }

func (m *fakeMetrics) snapshot() counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return counts{m.processed, m.degenerate, m.frames, m.opened, m.closed}
}

type fakeCatalog struct {
	mu      sync.Mutex
	assets  []string
	cones   map[string]models.PercentileCone
	fail    map[string]error
	fetches int
}

func newFakeCatalog(cones ...models.PercentileCone) *fakeCatalog {
	f := &fakeCatalog{cones: map[string]models.PercentileCone{}, fail: map[string]error{}}
	seen := map[string]bool{}
	for _, c := range cones {
		f.cones[c.Key()] = c
		if !seen[c.Asset] {
			seen[c.Asset] = true
			f.assets = append(f.assets, c.Asset)
		}
	}
	return f
}

func (f *fakeCatalog) Assets() []string { return f.assets }

func (f *fakeCatalog) HorizonsFor(asset string) []string {
	var out []string
	for _, h := range []models.Horizon{models.Horizon1h, models.Horizon24h} {
		if _, ok := f.cones[models.SceneKey(asset, h)]; ok {
			out = append(out, string(h))
		}
	}
	return out
}

func (f *fakeCatalog) Supports(asset string, h models.Horizon) error {
	if _, ok := f.cones[models.SceneKey(asset, h)]; !ok {
		return fmt.Errorf("unsupported %s %s", asset, h)
	}
	return nil
}

func (f *fakeCatalog) FetchCone(_ context.Context, asset string, h models.Horizon) (models.PercentileCone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	key := models.SceneKey(asset, h)
	if err := f.fail[key]; err != nil {
		return models.PercentileCone{}, err
	}
	c, ok := f.cones[key]
	if !ok {
		return models.PercentileCone{}, errors.New("no cone")
	}
	return c, nil
}

type fakeRisk struct {
	levels models.RiskLevels
	err    error
	got    models.PositionRequest
}

func (r *fakeRisk) Levels(_ context.Context, req models.PositionRequest) (models.RiskLevels, error) {
	r.got = req
	return r.levels, r.err
}

type fakePublisher struct {
	mu    sync.Mutex
	cones []models.PercentileCone
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, c models.PercentileCone) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.cones = append(p.cones, c)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeStore struct {
	mu      sync.Mutex
	records []models.ConeRecord
	err     error
}

func (s *fakeStore) Init(context.Context) error { return nil }

func (s *fakeStore) Store(_ context.Context, rec models.ConeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *fakeStore) Recent(context.Context, string, models.Horizon, int) ([]models.ConeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ConeRecord(nil), s.records...), nil
}

func (s *fakeStore) Health(context.Context) error { return nil }
func (s *fakeStore) Close() error                 { return nil }
