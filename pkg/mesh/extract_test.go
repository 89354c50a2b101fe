package mesh

import (
	"math"
	"testing"

	"dicomto3d/internal/models"
)

// sphereVolume builds a volume containing a single solid sphere of the
// given radius centered in the grid, with inside value 1000 and outside
// value -1000.
func sphereVolume(size int, radius float64) *models.Volume {
	v := models.NewVolume(size, size, size, models.VoxelSize{X: 1, Y: 1, Z: 1})
	center := float64(size-1) / 2
	for z := 0; z < size; z++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				dx := float64(x) - center
				dy := float64(y) - center
				dz := float64(z) - center
				if math.Sqrt(dx*dx+dy*dy+dz*dz) < radius {
					v.Set(x, y, z, 1000)
				} else {
					v.Set(x, y, z, -1000)
				}
			}
		}
	}
	return v
}

// TestExtractSphere verifies extraction on a synthetic sphere: the mesh
// is non-empty and every vertex lies within the volume's coordinate
// bounds.
func TestExtractSphere(t *testing.T) {
	size := 20
	v := sphereVolume(size, 5)

	m, err := NewExtractor(v, 0).Extract()
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(m.Vertices) == 0 {
		t.Fatal("expected a non-empty vertex list for the sphere")
	}
	if len(m.Faces) == 0 {
		t.Fatal("expected a non-empty face list for the sphere")
	}

	limit := float64(size - 1)
	for i, vert := range m.Vertices {
		if vert.X < 0 || vert.X > limit ||
			vert.Y < 0 || vert.Y > limit ||
			vert.Z < 0 || vert.Z > limit {
			t.Fatalf("vertex %d = %+v lies outside the volume bounds [0, %v]", i, vert, limit)
		}
	}
}

// TestExtractFaceIndices verifies that every face references a valid
// vertex.
func TestExtractFaceIndices(t *testing.T) {
	m, err := NewExtractor(sphereVolume(12, 3), 0).Extract()
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(m.Vertices) {
				t.Fatalf("face %d references vertex %d, have %d vertices", i, idx, len(m.Vertices))
			}
		}
	}
}

// TestExtractVertexRadius verifies that the extracted surface sits near
// the sphere boundary.
func TestExtractVertexRadius(t *testing.T) {
	size := 24
	radius := 7.0
	v := sphereVolume(size, radius)

	m, err := NewExtractor(v, 0).Extract()
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	center := float64(size-1) / 2
	for i, vert := range m.Vertices {
		dx := vert.X - center
		dy := vert.Y - center
		dz := vert.Z - center
		r := math.Sqrt(dx*dx + dy*dy + dz*dz)
		if math.Abs(r-radius) > 1.5 {
			t.Fatalf("vertex %d at radius %.2f, want within 1.5 of %.2f", i, r, radius)
		}
	}
}

// TestExtractStepCoarsens verifies that a larger step yields a coarser
// mesh.
func TestExtractStepCoarsens(t *testing.T) {
	v := sphereVolume(20, 6)

	fine, err := NewExtractor(v, 0).Extract()
	if err != nil {
		t.Fatalf("Extract with step 1 failed: %v", err)
	}

	coarse := NewExtractor(v, 0)
	coarse.SetStep(2)
	cm, err := coarse.Extract()
	if err != nil {
		t.Fatalf("Extract with step 2 failed: %v", err)
	}

	if len(cm.Faces) == 0 {
		t.Fatal("coarse extraction produced no faces")
	}
	if len(cm.Faces) >= len(fine.Faces) {
		t.Errorf("step 2 produced %d faces, expected fewer than step 1's %d", len(cm.Faces), len(fine.Faces))
	}
}

// TestExtractThresholdOutsideRange verifies an empty mesh when the
// threshold never crosses the data.
func TestExtractThresholdOutsideRange(t *testing.T) {
	m, err := NewExtractor(sphereVolume(10, 3), 5000).Extract()
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(m.Faces) != 0 {
		t.Errorf("expected no faces above the data range, got %d", len(m.Faces))
	}
}

// TestExtractScale verifies that the voxel size scales vertex
// coordinates.
func TestExtractScale(t *testing.T) {
	v := sphereVolume(12, 3)
	v.VoxelSize = models.VoxelSize{X: 2, Y: 1, Z: 0.5}

	m, err := NewExtractor(v, 0).Extract()
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	_, max := m.Bounds()
	if max.X <= max.Y {
		t.Errorf("x extent %.2f should exceed y extent %.2f under anisotropic scale", max.X, max.Y)
	}
	if max.Z >= max.Y {
		t.Errorf("z extent %.2f should be below y extent %.2f under anisotropic scale", max.Z, max.Y)
	}
}

// TestExtractTooSmall verifies the error for a degenerate grid.
func TestExtractTooSmall(t *testing.T) {
	v := models.NewVolume(1, 5, 5, models.VoxelSize{X: 1, Y: 1, Z: 1})
	if _, err := NewExtractor(v, 0).Extract(); err == nil {
		t.Error("expected an error for a single-voxel-wide volume")
	}
}
