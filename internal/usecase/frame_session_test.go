package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Prism/internal/domain/models"
	applogger "Prism/pkg/logger"
)

const frameVertices = models.GridStepsX * models.GridStepsZ

func TestFrameSessionTick(t *testing.T) {
	hub := NewSceneHub(4)
	b := NewSceneBuilder(nil, nil)
	s := NewFrameSession(hub, "BTC", models.Horizon24h, 60, newFakeMetrics(), applogger.Nop())
	defer s.sub.Close()
	assert.NotEmpty(t, s.ID())

	_, ok := s.Tick(16 * time.Millisecond)
	assert.False(t, ok, "nothing to draw before the first scene")

	first := b.Build(lognormalCone("BTC", models.Horizon24h, 100, 0.6, 50))
	hub.Broadcast(first)
	f, ok := s.Tick(16 * time.Millisecond)
	require.True(t, ok)
	assert.True(t, f.Hard)
	assert.Equal(t, 1.0, f.Progress)
	assert.Equal(t, uint64(1), f.Seq)
	assert.Len(t, f.Positions, frameVertices*3)
	assert.Len(t, f.Normals, frameVertices*3)
	assert.Len(t, f.UVs, frameVertices*2)
	assert.NotEmpty(t, f.Indices)
	assert.Equal(t, float32(first.Grid.Positions[5]), f.Positions[5])

	_, ok = s.Tick(16 * time.Millisecond)
	assert.False(t, ok, "static surface emits nothing")

	second := b.Build(lognormalCone("BTC", models.Horizon24h, 100, 0.9, 50))
	hub.Broadcast(second)
	f, ok = s.Tick(16 * time.Millisecond)
	require.True(t, ok)
	assert.False(t, f.Hard)
	assert.InDelta(t, 0.04, f.Progress, 1e-9)
	assert.Nil(t, f.Indices)
	assert.Equal(t, second.Render, *f.Render)

	f, ok = s.Tick(400 * time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, 1.0, f.Progress)
	for k, v := range second.Grid.Positions {
		if float32(v) != f.Positions[k] {
			t.Fatalf("position %d: got %v want %v", k, f.Positions[k], float32(v))
		}
	}

	_, ok = s.Tick(16 * time.Millisecond)
	assert.False(t, ok)
}

func TestFrameSessionEmptyScene(t *testing.T) {
	hub := NewSceneHub(1)
	s := NewFrameSession(hub, "SPY", models.Horizon24h, 60, newFakeMetrics(), applogger.Nop())
	defer s.sub.Close()

	hub.Broadcast(NewSceneBuilder(nil, nil).Build(models.PercentileCone{Asset: "SPY", Horizon: models.Horizon24h}))
	f, ok := s.Tick(time.Millisecond)
	require.True(t, ok)
	assert.True(t, f.Empty)
	assert.True(t, f.Hard)
	assert.Empty(t, f.Positions)
}

func TestFrameCodec(t *testing.T) {
	f := &models.Frame{
		Seq: 7, Asset: "ETH", Horizon: models.Horizon1h, Progress: 0.5,
		StepsX: 2, StepsZ: 2,
		Render:    &models.ConeRenderData{MinPrice: 1, MaxPrice: 2, CurrentPrice: 1.5},
		Positions: []float32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
		Normals:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1},
	}
	b, err := EncodeFrame(f)
	require.NoError(t, err)

	got, err := DecodeFrame(b)
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

type frameSink struct {
	mu     sync.Mutex
	frames []*models.Frame
}

func (s *frameSink) send(b []byte) error {
	f, err := DecodeFrame(b)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.frames = append(s.frames, f)
	s.mu.Unlock()
	return nil
}

func (s *frameSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func TestFrameSessionRun(t *testing.T) {
	hub := NewSceneHub(1)
	m := newFakeMetrics()
	hub.Broadcast(NewSceneBuilder(nil, nil).Build(lognormalCone("BTC", models.Horizon1h, 100, 0.6, 20)))

	s := NewFrameSession(hub, "BTC", models.Horizon1h, 200, m, applogger.Nop())
	sink := &frameSink{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, sink.send) }()

	require.Eventually(t, func() bool { return sink.len() >= 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.True(t, sink.frames[0].Hard)
	assert.Equal(t, "BTC", sink.frames[0].Asset)
	got := m.snapshot()
	assert.Equal(t, 1, got.opened)
	assert.Equal(t, 1, got.closed)
	assert.Equal(t, sink.len(), got.frames)
	assert.Equal(t, 0, hub.Subscribers("BTC:1h"))
}

func TestFrameSessionEndsWhenHubCloses(t *testing.T) {
	hub := NewSceneHub(1)
	s := NewFrameSession(hub, "BTC", models.Horizon24h, 200, newFakeMetrics(), applogger.Nop())
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), func([]byte) error { return nil }) }()

	hub.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
}
