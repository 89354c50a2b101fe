// Package snapshot caches the calibrated volume on disk between pipeline
// stages, keyed by a patient id. This is a caching shortcut, not a
// durability guarantee.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/golang/snappy"
	"github.com/sirupsen/logrus"

	"dicomto3d/internal/models"
)

var magic = [4]byte{'D', '3', 'S', 'N'}

const fileVersion = 1

// header precedes the snappy-compressed int16 payload.
type header struct {
	Magic                [4]byte
	Version              uint32
	Width, Height, Depth uint32
	SizeX, SizeY, SizeZ  float64
}

// Path returns the snapshot filename for a patient id.
func Path(dir string, id int) string {
	return filepath.Join(dir, fmt.Sprintf("volume_%d.snap", id))
}

// Exists reports whether a snapshot for the patient id is present.
func Exists(dir string, id int) bool {
	_, err := os.Stat(Path(dir, id))
	return err == nil
}

// Save writes the volume to the snapshot file for the patient id and
// returns the path written.
func Save(dir string, id int, v *models.Volume) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	payload := make([]byte, 2*len(v.Data))
	for i, val := range v.Data {
		binary.LittleEndian.PutUint16(payload[2*i:], uint16(val))
	}

	var buf bytes.Buffer
	h := header{
		Magic:   magic,
		Version: fileVersion,
		Width:   uint32(v.Width),
		Height:  uint32(v.Height),
		Depth:   uint32(v.Depth),
		SizeX:   v.VoxelSize.X,
		SizeY:   v.VoxelSize.Y,
		SizeZ:   v.VoxelSize.Z,
	}
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return "", fmt.Errorf("failed to encode snapshot header: %w", err)
	}
	buf.Write(snappy.Encode(nil, payload))

	path := Path(dir, id)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"component": "snapshot",
		"path":      path,
		"size":      humanize.Bytes(uint64(buf.Len())),
	}).Info("snapshot written")

	return path, nil
}

// Load reads the snapshot for the patient id back into a volume.
func Load(dir string, id int) (*models.Volume, error) {
	raw, err := os.ReadFile(Path(dir, id))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var h header
	r := bytes.NewReader(raw)
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot header: %w", err)
	}
	if h.Magic != magic {
		return nil, fmt.Errorf("not a snapshot file")
	}
	if h.Version != fileVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", h.Version)
	}

	compressed := raw[len(raw)-r.Len():]
	payload, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}

	n := int(h.Width) * int(h.Height) * int(h.Depth)
	if len(payload) != 2*n {
		return nil, fmt.Errorf("snapshot payload is %d bytes, want %d", len(payload), 2*n)
	}

	v := models.NewVolume(int(h.Width), int(h.Height), int(h.Depth), models.VoxelSize{
		X: h.SizeX, Y: h.SizeY, Z: h.SizeZ,
	})
	for i := range v.Data {
		v.Data[i] = int16(binary.LittleEndian.Uint16(payload[2*i:]))
	}
	return v, nil
}
