package snapshot

import (
	"os"
	"testing"

	"dicomto3d/internal/models"
)

// TestSaveLoadRoundtrip verifies that a volume survives the snapshot.
func TestSaveLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()

	v := models.NewVolume(6, 5, 4, models.VoxelSize{X: 0.7, Y: 0.7, Z: 2.5})
	for i := range v.Data {
		v.Data[i] = int16(i*37 - 2000)
	}

	path, err := Save(dir, 7, v)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if path != Path(dir, 7) {
		t.Errorf("Save returned %s, want %s", path, Path(dir, 7))
	}
	if !Exists(dir, 7) {
		t.Error("Exists = false after Save")
	}

	got, err := Load(dir, 7)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got.Width != v.Width || got.Height != v.Height || got.Depth != v.Depth {
		t.Errorf("shape = %dx%dx%d, want %dx%dx%d",
			got.Width, got.Height, got.Depth, v.Width, v.Height, v.Depth)
	}
	if got.VoxelSize != v.VoxelSize {
		t.Errorf("voxel size = %+v, want %+v", got.VoxelSize, v.VoxelSize)
	}
	for i := range v.Data {
		if got.Data[i] != v.Data[i] {
			t.Fatalf("voxel %d = %d, want %d", i, got.Data[i], v.Data[i])
		}
	}
}

// TestExistsMissing verifies Exists for an id without a snapshot.
func TestExistsMissing(t *testing.T) {
	if Exists(t.TempDir(), 999) {
		t.Error("Exists = true for a missing snapshot")
	}
}

// TestLoadRejectsForeignFile verifies the magic check.
func TestLoadRejectsForeignFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(Path(dir, 1), []byte("definitely not a snapshot"), 0644); err != nil {
		t.Fatalf("failed to plant foreign file: %v", err)
	}

	if _, err := Load(dir, 1); err == nil {
		t.Error("expected an error for a foreign file")
	}
}
