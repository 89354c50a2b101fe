// Package resample reinterpolates a volume onto a uniform physical grid
// spacing using trilinear interpolation.
package resample

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"dicomto3d/internal/models"
)

// Isotropic is the default 1x1x1 mm target spacing.
var Isotropic = models.VoxelSize{X: 1, Y: 1, Z: 1}

// Resample reinterpolates the volume onto the target spacing.
//
// The target shape is rounded to whole voxels first and the resize ratio
// is then re-derived from the rounded shape, so the spacing carried by
// the returned volume is self-consistent with the array actually
// produced rather than the requested target.
func Resample(v *models.Volume, target models.VoxelSize) (*models.Volume, error) {
	if v.Width <= 0 || v.Height <= 0 || v.Depth <= 0 {
		return nil, fmt.Errorf("volume has empty dimensions %dx%dx%d", v.Width, v.Height, v.Depth)
	}
	if target.X <= 0 || target.Y <= 0 || target.Z <= 0 {
		return nil, fmt.Errorf("target spacing must be positive, got %+v", target)
	}
	if v.VoxelSize.X <= 0 || v.VoxelSize.Y <= 0 || v.VoxelSize.Z <= 0 {
		return nil, fmt.Errorf("volume spacing must be positive, got %+v", v.VoxelSize)
	}

	newWidth := roundedShape(v.Width, v.VoxelSize.X/target.X)
	newHeight := roundedShape(v.Height, v.VoxelSize.Y/target.Y)
	newDepth := roundedShape(v.Depth, v.VoxelSize.Z/target.Z)

	// Actual ratios, back-derived from the rounded shape.
	rx := float64(newWidth) / float64(v.Width)
	ry := float64(newHeight) / float64(v.Height)
	rz := float64(newDepth) / float64(v.Depth)

	out := models.NewVolume(newWidth, newHeight, newDepth, models.VoxelSize{
		X: v.VoxelSize.X / rx,
		Y: v.VoxelSize.Y / ry,
		Z: v.VoxelSize.Z / rz,
	})

	for z := 0; z < newDepth; z++ {
		sz := float64(z) / rz
		for y := 0; y < newHeight; y++ {
			sy := float64(y) / ry
			for x := 0; x < newWidth; x++ {
				sx := float64(x) / rx
				out.Set(x, y, z, roundToInt16(trilinear(v, sx, sy, sz)))
			}
		}
	}

	logrus.WithFields(logrus.Fields{
		"component": "resample",
		"shape":     fmt.Sprintf("%dx%dx%d", newWidth, newHeight, newDepth),
		"spacing":   fmt.Sprintf("%.4fx%.4fx%.4f", out.VoxelSize.X, out.VoxelSize.Y, out.VoxelSize.Z),
	}).Info("resampled volume")

	return out, nil
}

// roundedShape computes the target axis length: current length scaled by
// the resize ratio, rounded to the nearest whole voxel, at least 1.
func roundedShape(length int, ratio float64) int {
	n := int(math.Round(float64(length) * ratio))
	if n < 1 {
		n = 1
	}
	return n
}

// trilinear samples the volume at a fractional source coordinate.
// Coordinates are clamped to the grid, so edge voxels extend outward.
func trilinear(v *models.Volume, x, y, z float64) float64 {
	x0, fx := splitCoord(x, v.Width)
	y0, fy := splitCoord(y, v.Height)
	z0, fz := splitCoord(z, v.Depth)

	x1 := clampIndex(x0+1, v.Width)
	y1 := clampIndex(y0+1, v.Height)
	z1 := clampIndex(z0+1, v.Depth)

	c000 := float64(v.At(x0, y0, z0))
	c100 := float64(v.At(x1, y0, z0))
	c010 := float64(v.At(x0, y1, z0))
	c110 := float64(v.At(x1, y1, z0))
	c001 := float64(v.At(x0, y0, z1))
	c101 := float64(v.At(x1, y0, z1))
	c011 := float64(v.At(x0, y1, z1))
	c111 := float64(v.At(x1, y1, z1))

	c00 := c000*(1-fx) + c100*fx
	c10 := c010*(1-fx) + c110*fx
	c01 := c001*(1-fx) + c101*fx
	c11 := c011*(1-fx) + c111*fx

	c0 := c00*(1-fy) + c10*fy
	c1 := c01*(1-fy) + c11*fy

	return c0*(1-fz) + c1*fz
}

// splitCoord clamps a fractional coordinate to the grid and splits it
// into a base index and interpolation weight.
func splitCoord(c float64, length int) (int, float64) {
	if c <= 0 {
		return 0, 0
	}
	max := float64(length - 1)
	if c >= max {
		return length - 1, 0
	}
	base := math.Floor(c)
	return int(base), c - base
}

func clampIndex(i, length int) int {
	if i > length-1 {
		return length - 1
	}
	return i
}

func roundToInt16(f float64) int16 {
	r := math.Round(f)
	if r > math.MaxInt16 {
		return math.MaxInt16
	}
	if r < math.MinInt16 {
		return math.MinInt16
	}
	return int16(r)
}
