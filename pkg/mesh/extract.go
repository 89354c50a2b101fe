// Package mesh extracts a triangulated iso-surface from a volume and
// writes it out as a binary STL model.
package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"dicomto3d/internal/models"
)

// Extractor computes an iso-surface from a volume at a fixed scalar
// threshold. The volume's axis order is transposed from (slice, row,
// col) to (col, row, slice) before extraction so that emitted vertex
// coordinates are (x, y, z); this is a coordinate-convention adapter,
// not a semantic transform.
//
// The extraction walks the grid in cubes of `step` voxels, splits each
// cube into six tetrahedra and emits the threshold crossings. Degenerate
// triangles are emitted rather than rejected, and vertices are not
// deduplicated.
type Extractor struct {
	data       []float64
	nx, ny, nz int
	threshold  float64
	step       int
	scale      models.VoxelSize
}

// NewExtractor creates an extractor for the volume at the given
// threshold. The vertex scale defaults to the volume's voxel size.
func NewExtractor(v *models.Volume, threshold float64) *Extractor {
	e := &Extractor{
		data:      make([]float64, len(v.Data)),
		nx:        v.Width,
		ny:        v.Height,
		nz:        v.Depth,
		threshold: threshold,
		step:      1,
		scale:     v.VoxelSize,
	}
	// Transpose to x-major order.
	for x := 0; x < v.Width; x++ {
		for y := 0; y < v.Height; y++ {
			for z := 0; z < v.Depth; z++ {
				e.data[(x*e.ny+y)*e.nz+z] = float64(v.At(x, y, z))
			}
		}
	}
	return e
}

// SetStep sets the grid stride controlling extraction coarseness.
func (e *Extractor) SetStep(step int) {
	if step > 0 {
		e.step = step
	}
}

// SetScale overrides the physical scale applied to vertex coordinates.
func (e *Extractor) SetScale(x, y, z float64) {
	e.scale = models.VoxelSize{X: x, Y: y, Z: z}
}

// at reads the transposed grid at integer coordinates.
func (e *Extractor) at(x, y, z int) float64 {
	return e.data[(x*e.ny+y)*e.nz+z]
}

// Six tetrahedra spanning a cube, each sharing the main diagonal between
// cube corners 0 and 7. Corner bit layout: bit0 -> x, bit1 -> y, bit2 -> z.
var cubeTetrahedra = [6][4]int{
	{0, 1, 3, 7},
	{0, 3, 2, 7},
	{0, 2, 6, 7},
	{0, 6, 4, 7},
	{0, 4, 5, 7},
	{0, 5, 1, 7},
}

// Extract walks the grid and returns the extracted surface mesh.
func (e *Extractor) Extract() (*models.Mesh, error) {
	if e.nx < 2 || e.ny < 2 || e.nz < 2 {
		return nil, fmt.Errorf("volume %dx%dx%d is too small for surface extraction", e.nx, e.ny, e.nz)
	}

	m := &models.Mesh{}
	s := e.step

	var corners [8]r3.Vec
	var values [8]float64

	for x := 0; x+s < e.nx; x += s {
		for y := 0; y+s < e.ny; y += s {
			for z := 0; z+s < e.nz; z += s {
				for k := 0; k < 8; k++ {
					cx := x + s*(k&1)
					cy := y + s*((k>>1)&1)
					cz := z + s*((k>>2)&1)
					corners[k] = r3.Vec{X: float64(cx), Y: float64(cy), Z: float64(cz)}
					values[k] = e.at(cx, cy, cz)
				}
				for _, tet := range cubeTetrahedra {
					e.emitTetrahedron(m, &corners, &values, tet)
				}
			}
		}
	}

	// Apply the physical scale once, after extraction.
	for i, v := range m.Vertices {
		m.Vertices[i] = r3.Vec{X: v.X * e.scale.X, Y: v.Y * e.scale.Y, Z: v.Z * e.scale.Z}
	}

	return m, nil
}

// emitTetrahedron classifies one tetrahedron against the threshold and
// appends zero, one or two triangles to the mesh.
func (e *Extractor) emitTetrahedron(m *models.Mesh, corners *[8]r3.Vec, values *[8]float64, tet [4]int) {
	var inside, outside []int
	for _, c := range tet {
		if values[c] > e.threshold {
			inside = append(inside, c)
		} else {
			outside = append(outside, c)
		}
	}

	switch len(inside) {
	case 0, 4:
		return
	case 1:
		i := inside[0]
		e.emitTriangle(m, corners, values, inside, outside,
			[2]int{i, outside[0]}, [2]int{i, outside[1]}, [2]int{i, outside[2]})
	case 3:
		o := outside[0]
		e.emitTriangle(m, corners, values, inside, outside,
			[2]int{inside[0], o}, [2]int{inside[1], o}, [2]int{inside[2], o})
	case 2:
		i0, i1 := inside[0], inside[1]
		o0, o1 := outside[0], outside[1]
		a := e.edgePoint(corners, values, i0, o0)
		b := e.edgePoint(corners, values, i0, o1)
		c := e.edgePoint(corners, values, i1, o1)
		d := e.edgePoint(corners, values, i1, o0)
		e.appendOriented(m, corners, inside, outside, a, b, c)
		e.appendOriented(m, corners, inside, outside, a, c, d)
	}
}

// emitTriangle interpolates the three crossing edges and appends the
// oriented triangle.
func (e *Extractor) emitTriangle(m *models.Mesh, corners *[8]r3.Vec, values *[8]float64, inside, outside []int, edges ...[2]int) {
	a := e.edgePoint(corners, values, edges[0][0], edges[0][1])
	b := e.edgePoint(corners, values, edges[1][0], edges[1][1])
	c := e.edgePoint(corners, values, edges[2][0], edges[2][1])
	e.appendOriented(m, corners, inside, outside, a, b, c)
}

// edgePoint linearly interpolates the threshold crossing on a cube edge.
// Equal endpoint values place the point at the edge midpoint, which can
// produce a degenerate triangle; those are explicitly permitted.
func (e *Extractor) edgePoint(corners *[8]r3.Vec, values *[8]float64, a, b int) r3.Vec {
	va, vb := values[a], values[b]
	t := 0.5
	if vb != va {
		t = (e.threshold - va) / (vb - va)
	}
	pa, pb := corners[a], corners[b]
	return r3.Vec{
		X: pa.X + t*(pb.X-pa.X),
		Y: pa.Y + t*(pb.Y-pa.Y),
		Z: pa.Z + t*(pb.Z-pa.Z),
	}
}

// appendOriented appends a triangle with its winding flipped if needed so
// the face normal points from the inside corners toward the outside ones.
func (e *Extractor) appendOriented(m *models.Mesh, corners *[8]r3.Vec, inside, outside []int, a, b, c r3.Vec) {
	out := centroid(corners, outside)
	in := centroid(corners, inside)
	want := r3.Sub(out, in)
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	if r3.Dot(n, want) < 0 {
		b, c = c, b
	}

	base := len(m.Vertices)
	m.Vertices = append(m.Vertices, a, b, c)
	m.Faces = append(m.Faces, [3]int{base, base + 1, base + 2})
}

func centroid(corners *[8]r3.Vec, idx []int) r3.Vec {
	var sum r3.Vec
	for _, i := range idx {
		sum = r3.Add(sum, corners[i])
	}
	return r3.Scale(1/float64(len(idx)), sum)
}
