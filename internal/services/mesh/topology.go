package mesh

import (
	"math"
	"sync"
)

// Topology is the fixed triangle and UV layout of a stepsX x stepsZ grid.
// It depends only on the dimensions, so one value is shared by every grid of
// that shape and never mutated after construction.
type Topology struct {
	StepsX  int
	StepsZ  int
	Indices []uint32
	UVs     []float32
}

type dims struct{ x, z int }

var (
	arenaMu sync.Mutex
	arena   = map[dims]*Topology{}
)

// For returns the shared topology for the given dimensions, building it on
// first use. It returns nil for grids that have no triangles.
func For(stepsX, stepsZ int) *Topology {
	if stepsX < 2 || stepsZ < 2 {
		return nil
	}
	key := dims{stepsX, stepsZ}
	arenaMu.Lock()
	defer arenaMu.Unlock()
	if t, ok := arena[key]; ok {
		return t
	}
	t := build(stepsX, stepsZ)
	arena[key] = t
	return t
}

func build(nx, nz int) *Topology {
	t := &Topology{
		StepsX:  nx,
		StepsZ:  nz,
		Indices: make([]uint32, 0, (nx-1)*(nz-1)*6),
		UVs:     make([]float32, 0, nx*nz*2),
	}
	for i := 0; i < nx; i++ {
		for j := 0; j < nz; j++ {
			t.UVs = append(t.UVs, float32(i)/float32(nx-1), float32(j)/float32(nz-1))
		}
	}
	for i := 0; i < nx-1; i++ {
		for j := 0; j < nz-1; j++ {
			a := uint32(i*nz + j)
			b := a + uint32(nz)
			c := b + 1
			d := a + 1
			t.Indices = append(t.Indices, a, b, d, b, c, d)
		}
	}
	return t
}

func (t *Topology) VertexCount() int { return t.StepsX * t.StepsZ }

// Normals writes area-weighted vertex normals for positions (x,y,z
// interleaved) into out, which must have the same length as positions.
func (t *Topology) Normals(positions, out []float64) {
	for k := range out {
		out[k] = 0
	}
	for f := 0; f+2 < len(t.Indices); f += 3 {
		a, b, c := int(t.Indices[f])*3, int(t.Indices[f+1])*3, int(t.Indices[f+2])*3

		e1x, e1y, e1z := positions[b]-positions[a], positions[b+1]-positions[a+1], positions[b+2]-positions[a+2]
		e2x, e2y, e2z := positions[c]-positions[a], positions[c+1]-positions[a+1], positions[c+2]-positions[a+2]

		nx := e1y*e2z - e1z*e2y
		ny := e1z*e2x - e1x*e2z
		nz := e1x*e2y - e1y*e2x
		for _, v := range [3]int{a, b, c} {
			out[v] += nx
			out[v+1] += ny
			out[v+2] += nz
		}
	}
	for k := 0; k+2 < len(out); k += 3 {
		l := math.Sqrt(out[k]*out[k] + out[k+1]*out[k+1] + out[k+2]*out[k+2])
		if l == 0 {
			out[k], out[k+1], out[k+2] = 0, 0, 1
			continue
		}
		out[k] /= l
		out[k+1] /= l
		out[k+2] /= l
	}
}
