package mesh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/spatial/r3"

	"dicomto3d/internal/models"
)

// stlHeader is the fixed 80-byte binary STL preamble.
var stlHeader = [80]byte{'d', 'i', 'c', 'o', 'm', 't', 'o', '3', 'd'}

// SaveSTL writes the mesh to a binary STL file. Face normals are
// computed from the vertex winding; degenerate faces get a zero normal.
func SaveSTL(path string, m *models.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create STL file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.Write(stlHeader[:]); err != nil {
		return fmt.Errorf("failed to write STL header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.Faces))); err != nil {
		return fmt.Errorf("failed to write triangle count: %w", err)
	}

	for _, face := range m.Faces {
		a := m.Vertices[face[0]]
		b := m.Vertices[face[1]]
		c := m.Vertices[face[2]]

		record := [12]float32{}
		n := faceNormal(a, b, c)
		record[0], record[1], record[2] = float32(n.X), float32(n.Y), float32(n.Z)
		record[3], record[4], record[5] = float32(a.X), float32(a.Y), float32(a.Z)
		record[6], record[7], record[8] = float32(b.X), float32(b.Y), float32(b.Z)
		record[9], record[10], record[11] = float32(c.X), float32(c.Y), float32(c.Z)

		if err := binary.Write(w, binary.LittleEndian, record); err != nil {
			return fmt.Errorf("failed to write triangle: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(0)); err != nil {
			return fmt.Errorf("failed to write attribute bytes: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush STL file: %w", err)
	}
	return nil
}

// faceNormal returns the unit normal of a triangle, or the zero vector
// for a degenerate triangle.
func faceNormal(a, b, c r3.Vec) r3.Vec {
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	norm := r3.Norm(n)
	if norm == 0 || math.IsNaN(norm) {
		return r3.Vec{}
	}
	return r3.Scale(1/norm, n)
}
