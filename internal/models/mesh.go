package models

import "gonum.org/v1/gonum/spatial/r3"

// Mesh is a triangulated surface produced by iso-surface extraction.
// Faces index into Vertices; no topology guarantees are made and
// degenerate triangles may be present.
type Mesh struct {
	Vertices []r3.Vec
	Faces    [][3]int
}

// Bounds returns the axis-aligned bounding extent of the mesh vertices.
// A mesh with no vertices reports a zero extent.
func (m *Mesh) Bounds() (min, max r3.Vec) {
	if len(m.Vertices) == 0 {
		return r3.Vec{}, r3.Vec{}
	}
	min, max = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		if v.X < min.X {
			min.X = v.X
		}
		if v.Y < min.Y {
			min.Y = v.Y
		}
		if v.Z < min.Z {
			min.Z = v.Z
		}
		if v.X > max.X {
			max.X = v.X
		}
		if v.Y > max.Y {
			max.Y = v.Y
		}
		if v.Z > max.Z {
			max.Z = v.Z
		}
	}
	return min, max
}
