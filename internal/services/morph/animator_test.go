package morph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Prism/internal/domain/models"
	"Prism/internal/services/mesh"
)

func gridOf(nx, nz int, z float64) models.DensityGrid {
	g := models.DensityGrid{StepsX: nx, StepsZ: nz, Positions: make([]float64, nx*nz*3), Elevations: make([]float64, nx*nz)}
	for i := 0; i < nx; i++ {
		for j := 0; j < nz; j++ {
			k := i*nz + j
			g.Positions[3*k] = float64(i)
			g.Positions[3*k+1] = float64(j)
			g.Positions[3*k+2] = z + float64(i*j)*0.01
			g.Elevations[k] = g.Positions[3*k+2]
		}
	}
	return g
}

func TestEase(t *testing.T) {
	assert.Equal(t, 0.0, Ease(0))
	assert.Equal(t, 1.0, Ease(1))
	assert.InDelta(t, 0.5, Ease(0.5), 1e-12)
}

func TestFirstInstallIsImmediate(t *testing.T) {
	a := NewAnimator()
	g := gridOf(4, 5, 1)

	assert.True(t, a.SetTarget(g))
	assert.Equal(t, 1.0, a.Progress())
	assert.False(t, a.Animating())
	assert.Equal(t, g.Positions, a.Current())
	assert.Len(t, a.Normals(), len(g.Positions))
	assert.Len(t, a.UVs(), 4*5*2)
	assert.False(t, a.Advance(time.Second))

	// the animator owns a copy
	a.Current()[0] = 42
	assert.Equal(t, 0.0, g.Positions[0])
}

func TestMorphReachesTargetExactly(t *testing.T) {
	a := NewAnimator()
	a.SetTarget(gridOf(6, 7, 0))
	target := gridOf(6, 7, 2)

	assert.False(t, a.SetTarget(target))
	assert.Equal(t, 0.0, a.Progress())

	steps := 0
	for a.Advance(16 * time.Millisecond) {
		steps++
		require.Less(t, steps, 100)
	}
	assert.Equal(t, 1.0, a.Progress())
	assert.Equal(t, target.Positions, a.Current())
	assert.GreaterOrEqual(t, steps, 25)
	assert.LessOrEqual(t, steps, 26)
}

func TestSingleLongFrameCompletes(t *testing.T) {
	a := NewAnimator()
	a.SetTarget(gridOf(3, 3, 0))
	target := gridOf(3, 3, 5)
	a.SetTarget(target)

	assert.True(t, a.Advance(400*time.Millisecond))
	assert.Equal(t, 1.0, a.Progress())
	assert.Equal(t, target.Positions, a.Current())
	assert.False(t, a.Advance(time.Millisecond))
}

func TestRetargetKeepsCurrent(t *testing.T) {
	a := NewAnimator()
	a.SetTarget(gridOf(5, 5, 0))
	a.SetTarget(gridOf(5, 5, 3))
	a.Advance(100 * time.Millisecond)
	require.True(t, a.Animating())

	before := append([]float64(nil), a.Current()...)
	a.SetTarget(gridOf(5, 5, -1))
	assert.Equal(t, before, a.Current())
	assert.Equal(t, 0.0, a.Progress())
}

func TestShapeChangeHardReplaces(t *testing.T) {
	a := NewAnimator()
	a.SetTarget(gridOf(4, 4, 0))
	a.SetTarget(gridOf(4, 4, 1))
	a.Advance(50 * time.Millisecond)

	next := gridOf(6, 3, 9)
	assert.True(t, a.SetTarget(next))
	assert.Equal(t, 1.0, a.Progress())
	assert.Equal(t, next.Positions, a.Current())
	x, z := a.Shape()
	assert.Equal(t, 6, x)
	assert.Equal(t, 3, z)
}

func TestEmptyGrid(t *testing.T) {
	a := NewAnimator()
	assert.True(t, a.SetTarget(models.EmptyGrid()))
	assert.True(t, a.Empty())
	assert.Nil(t, a.UVs())
	assert.False(t, a.Advance(time.Second))

	assert.True(t, a.SetTarget(gridOf(3, 3, 1)))
	assert.False(t, a.Empty())
	assert.True(t, a.SetTarget(models.EmptyGrid()))
	assert.True(t, a.Empty())
}

func TestTargetNotMutated(t *testing.T) {
	a := NewAnimator()
	a.SetTarget(gridOf(3, 3, 0))
	target := gridOf(3, 3, 1)
	snapshot := append([]float64(nil), target.Positions...)
	a.SetTarget(target)
	for a.Advance(10 * time.Millisecond) {
	}
	assert.Equal(t, snapshot, target.Positions)
}

func TestNormalsFollowEachStep(t *testing.T) {
	a := NewAnimator()
	a.SetTarget(gridOf(6, 7, 0))

	steep := gridOf(6, 7, 0)
	for k := 2; k < len(steep.Positions); k += 3 {
		steep.Positions[k] *= 20
	}
	a.SetTarget(steep)

	topo := mesh.For(6, 7)
	want := make([]float64, len(a.Current()))
	for step := 0; step < 3; step++ {
		before := append([]float64(nil), a.Normals()...)
		require.True(t, a.Advance(50*time.Millisecond))
		assert.NotEqual(t, before, a.Normals())

		topo.Normals(a.Current(), want)
		assert.InDeltaSlice(t, want, a.Normals(), 1e-12)
	}

	for a.Advance(time.Second) {
	}
	topo.Normals(steep.Positions, want)
	assert.InDeltaSlice(t, want, a.Normals(), 1e-12)
}
