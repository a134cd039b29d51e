package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"Prism/internal/domain/models"
	drepo "Prism/internal/domain/repository"
	"Prism/internal/services/morph"
	applogger "Prism/pkg/logger"
)

// FrameSession drives one animated surface for one stream client. A session
// is owned by a single goroutine; the hub is its only input.
type FrameSession struct {
	id       string
	asset    string
	horizon  models.Horizon
	sub      *Subscription
	anim     *morph.Animator
	render   models.ConeRenderData
	interval time.Duration
	seq      uint64
	done     bool

	positions []float32
	normals   []float32

	metrics drepo.Metrics
	l       *applogger.Logger
}

func NewFrameSession(hub *SceneHub, asset string, h models.Horizon, frameRate int, metrics drepo.Metrics, l *applogger.Logger) *FrameSession {
	if frameRate <= 0 {
		frameRate = 60
	}
	id := uuid.NewString()
	return &FrameSession{
		id:       id,
		asset:    asset,
		horizon:  h,
		sub:      hub.Subscribe(models.SceneKey(asset, h)),
		anim:     morph.NewAnimator(),
		interval: time.Second / time.Duration(frameRate),
		metrics:  metrics,
		l:        l.With(applogger.String("session", id), applogger.String("key", models.SceneKey(asset, h))),
	}
}

func (s *FrameSession) ID() string { return s.id }

// Done reports whether the hub closed the subscription.
func (s *FrameSession) Done() bool { return s.done }

// Tick applies the newest pending scene, if any, then advances the morph by
// elapsed. It returns a frame only when something visible changed.
func (s *FrameSession) Tick(elapsed time.Duration) (*models.Frame, bool) {
	hard := false
	if sc, ok := s.drain(); ok {
		s.render = sc.Render
		hard = s.anim.SetTarget(sc.Grid)
	}
	moved := s.anim.Advance(elapsed)
	if !hard && !moved {
		return nil, false
	}
	return s.frame(hard), true
}

// drain keeps only the most recent scene queued for this session.
func (s *FrameSession) drain() (models.Scene, bool) {
	var (
		latest models.Scene
		got    bool
	)
	for {
		select {
		case sc, ok := <-s.sub.C():
			if !ok {
				s.done = true
				return latest, got
			}
			latest, got = sc, true
		default:
			return latest, got
		}
	}
}

func (s *FrameSession) frame(hard bool) *models.Frame {
	s.seq++
	nx, nz := s.anim.Shape()
	render := s.render
	f := &models.Frame{
		Seq:      s.seq,
		Asset:    s.asset,
		Horizon:  s.horizon,
		Progress: s.anim.Progress(),
		Hard:     hard,
		Empty:    s.anim.Empty(),
		StepsX:   nx,
		StepsZ:   nz,
		Render:   &render,
	}
	s.positions = toFloat32(s.positions, s.anim.Current())
	s.normals = toFloat32(s.normals, s.anim.Normals())
	f.Positions, f.Normals = s.positions, s.normals
	if hard {
		f.Indices = s.anim.Indices()
		f.UVs = s.anim.UVs()
	}
	return f
}

func toFloat32(dst []float32, src []float64) []float32 {
	if cap(dst) < len(src) {
		dst = make([]float32, len(src))
	}
	dst = dst[:len(src)]
	for i, v := range src {
		dst[i] = float32(v)
	}
	return dst
}

// Run ticks at the session frame rate and hands encoded frames to send until
// ctx ends, send fails or the hub closes.
func (s *FrameSession) Run(ctx context.Context, send func([]byte) error) error {
	s.metrics.StreamOpened()
	defer s.metrics.StreamClosed()
	defer s.sub.Close()

	s.l.Info("stream session started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var sent int
	defer func() {
		s.l.Info("stream session ended", applogger.Int("frames", sent))
	}()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now

			f, ok := s.Tick(elapsed)
			if s.done {
				return nil
			}
			if !ok {
				continue
			}
			b, err := EncodeFrame(f)
			if err != nil {
				return err
			}
			if err := send(b); err != nil {
				return fmt.Errorf("send frame: %w", err)
			}
			sent++
			s.metrics.RecordFrames(s.asset, 1)
		}
	}
}
