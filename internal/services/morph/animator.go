package morph

import (
	"math"
	"time"

	"Prism/internal/domain/models"
	"Prism/internal/services/mesh"
)

// Rate is the progress gained per second; a full transition takes 0.4s.
const Rate = 2.5

// Ease is the quintic smootherstep t^3 (t (6t - 15) + 10).
func Ease(t float64) float64 {
	return t * t * t * (t*(6*t-15) + 10)
}

// Animator interpolates the rendered surface toward the latest target grid.
// It is owned by a single goroutine; none of its methods are safe for
// concurrent use.
type Animator struct {
	stepsX, stepsZ int

	current []float64
	target  []float64
	normals []float64

	progress float64
	topo     *mesh.Topology
}

func NewAnimator() *Animator {
	return &Animator{progress: 1}
}

// SetTarget installs a new target grid. The grid must not be modified by the
// caller afterwards. Returns true when the grid was hard-installed (first grid
// or a change of shape) instead of queued for a morph.
func (a *Animator) SetTarget(grid models.DensityGrid) bool {
	if a.current == nil || !a.matches(grid) {
		a.install(grid)
		return true
	}
	a.target = grid.Positions
	a.progress = 0
	return false
}

func (a *Animator) matches(grid models.DensityGrid) bool {
	return !grid.IsEmpty() && grid.StepsX == a.stepsX && grid.StepsZ == a.stepsZ && len(grid.Positions) == len(a.current)
}

func (a *Animator) install(grid models.DensityGrid) {
	a.stepsX, a.stepsZ = grid.StepsX, grid.StepsZ
	a.target = grid.Positions
	a.progress = 1
	if grid.IsEmpty() {
		a.current, a.normals, a.topo = []float64{}, nil, nil
		return
	}
	a.current = append(make([]float64, 0, len(grid.Positions)), grid.Positions...)
	a.normals = make([]float64, len(grid.Positions))
	a.topo = mesh.For(grid.StepsX, grid.StepsZ)
	a.recomputeNormals()
}

// Advance steps the morph by elapsed wall time. It reports whether the
// current buffer changed; once progress is 1 it does nothing.
func (a *Animator) Advance(elapsed time.Duration) bool {
	if a.progress >= 1 || a.current == nil {
		return false
	}
	dt := math.Max(0, elapsed.Seconds())
	a.progress = math.Min(1, a.progress+dt*Rate)

	if a.progress >= 1 {
		copy(a.current, a.target)
	} else {
		e := Ease(a.progress)
		for k, v := range a.target {
			a.current[k] += (v - a.current[k]) * e
		}
	}
	a.recomputeNormals()
	return true
}

func (a *Animator) recomputeNormals() {
	if a.topo == nil {
		return
	}
	a.topo.Normals(a.current, a.normals)
}

// Current is the buffer the renderer reads. It must be treated as read-only.
func (a *Animator) Current() []float64 { return a.current }

func (a *Animator) Normals() []float64 { return a.normals }

// UVs and Indices come from the shared topology and are nil for an empty grid.
func (a *Animator) UVs() []float32 {
	if a.topo == nil {
		return nil
	}
	return a.topo.UVs
}

func (a *Animator) Indices() []uint32 {
	if a.topo == nil {
		return nil
	}
	return a.topo.Indices
}

func (a *Animator) Progress() float64 { return a.progress }

func (a *Animator) Animating() bool { return a.progress < 1 }

func (a *Animator) Shape() (int, int) { return a.stepsX, a.stepsZ }

// Empty reports whether there is no surface to draw.
func (a *Animator) Empty() bool { return len(a.current) == 0 }
