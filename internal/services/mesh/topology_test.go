package mesh

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatGrid(nx, nz int, z func(i, j int) float64) []float64 {
	pos := make([]float64, 0, nx*nz*3)
	for i := 0; i < nx; i++ {
		for j := 0; j < nz; j++ {
			pos = append(pos, float64(i), float64(j), z(i, j))
		}
	}
	return pos
}

func TestForIsShared(t *testing.T) {
	a := For(80, 160)
	b := For(80, 160)
	require.NotNil(t, a)
	assert.Same(t, a, b)
	assert.NotSame(t, a, For(4, 4))
	assert.Nil(t, For(0, 0))
	assert.Nil(t, For(1, 10))
}

func TestTopologyLayout(t *testing.T) {
	top := For(3, 4)
	assert.Len(t, top.Indices, 2*3*6)
	assert.Len(t, top.UVs, 3*4*2)

	assert.Equal(t, []uint32{0, 4, 1, 4, 5, 1}, top.Indices[:6])
	assert.Equal(t, float32(0), top.UVs[0])
	assert.Equal(t, float32(1), top.UVs[len(top.UVs)-2])
	assert.Equal(t, float32(1), top.UVs[len(top.UVs)-1])
}

func TestNormalsFlatPointUp(t *testing.T) {
	top := For(5, 6)
	pos := flatGrid(5, 6, func(int, int) float64 { return 0 })
	out := make([]float64, len(pos))
	top.Normals(pos, out)

	for k := 0; k < len(out); k += 3 {
		assert.InDelta(t, 0, out[k], 1e-12)
		assert.InDelta(t, 0, out[k+1], 1e-12)
		assert.InDelta(t, 1, out[k+2], 1e-12)
	}
}

func TestNormalsSlope(t *testing.T) {
	top := For(5, 5)
	pos := flatGrid(5, 5, func(i, _ int) float64 { return float64(i) })
	out := make([]float64, len(pos))
	top.Normals(pos, out)

	// plane z = x has normal (-1, 0, 1)/sqrt2
	want := 1 / math.Sqrt2
	for k := 0; k < len(out); k += 3 {
		assert.InDelta(t, -want, out[k], 1e-9)
		assert.InDelta(t, 0, out[k+1], 1e-9)
		assert.InDelta(t, want, out[k+2], 1e-9)
	}
}
