// Package hounsfield stacks an ordered slice series into a single volume
// of calibrated Hounsfield unit values.
package hounsfield

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"dicomto3d/internal/models"
)

// SentinelOutOfScan is the raw value scanners store for samples outside
// the circular reconstruction field. It corresponds to air and is
// replaced with 0 before calibration.
const SentinelOutOfScan = -2000

// calibrationTolerance bounds how much slope/intercept may differ
// between slices before the series is rejected as non-uniform.
const calibrationTolerance = 1e-9

// Normalize stacks the slice grids in order and applies the linear
// rescale hu = slope*raw + intercept, truncating to the int16 range.
//
// The series must be uniformly calibrated: every slice carries the same
// slope and intercept. This is validated once up front rather than
// silently assumed from the first slice.
func Normalize(slices []*models.Slice) (*models.Volume, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("no slices to normalize")
	}

	first := slices[0]
	if err := validateUniform(slices); err != nil {
		return nil, err
	}

	vol := models.NewVolume(first.Cols, first.Rows, len(slices), models.VoxelSize{
		X: first.PixelSpacing[1],
		Y: first.PixelSpacing[0],
		Z: first.Thickness,
	})

	slope, intercept := first.Slope, first.Intercept
	size := first.Rows * first.Cols
	for z, s := range slices {
		for i, raw := range s.Data {
			if raw == SentinelOutOfScan {
				raw = 0
			}
			vol.Data[z*size+i] = calibrate(raw, slope, intercept)
		}
	}

	logrus.WithFields(logrus.Fields{
		"component": "hounsfield",
		"slope":     slope,
		"intercept": intercept,
		"depth":     vol.Depth,
	}).Info("calibrated volume")

	return vol, nil
}

// validateUniform checks the explicit preconditions for stacking: every
// slice has the first slice's grid shape and calibration coefficients.
func validateUniform(slices []*models.Slice) error {
	first := slices[0]
	for _, s := range slices[1:] {
		if s.Rows != first.Rows || s.Cols != first.Cols {
			return fmt.Errorf("slice %d has shape %dx%d, want %dx%d",
				s.Index, s.Rows, s.Cols, first.Rows, first.Cols)
		}
		if math.Abs(s.Slope-first.Slope) > calibrationTolerance ||
			math.Abs(s.Intercept-first.Intercept) > calibrationTolerance {
			return fmt.Errorf("slice %d calibration (%g, %g) differs from series calibration (%g, %g)",
				s.Index, s.Slope, s.Intercept, first.Slope, first.Intercept)
		}
	}
	return nil
}

// calibrate maps one raw sample to Hounsfield units. The slope product is
// truncated toward zero before the intercept is added, then the result is
// clamped to the int16 range.
func calibrate(raw int16, slope, intercept float64) int16 {
	hu := int64(slope*float64(raw)) + int64(intercept)
	if hu > math.MaxInt16 {
		return math.MaxInt16
	}
	if hu < math.MinInt16 {
		return math.MinInt16
	}
	return int16(hu)
}
