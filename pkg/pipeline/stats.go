package pipeline

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"dicomto3d/internal/models"
)

// VolumeStats summarizes the value distribution of a volume in
// Hounsfield units.
type VolumeStats struct {
	Min     float64
	Max     float64
	Mean    float64
	StdDev  float64
	Entropy float64
}

// statsBins is the histogram resolution used for the entropy estimate.
const statsBins = 256

// ComputeStats computes summary statistics over every voxel.
func ComputeStats(v *models.Volume) VolumeStats {
	if len(v.Data) == 0 {
		return VolumeStats{}
	}

	data := make([]float64, len(v.Data))
	for i, val := range v.Data {
		data[i] = float64(val)
	}

	return VolumeStats{
		Min:     floats.Min(data),
		Max:     floats.Max(data),
		Mean:    stat.Mean(data, nil),
		StdDev:  stat.StdDev(data, nil),
		Entropy: shannonEntropy(data),
	}
}

// shannonEntropy estimates the Shannon entropy of the value distribution
// over a fixed-resolution histogram.
func shannonEntropy(data []float64) float64 {
	min, max := floats.Min(data), floats.Max(data)
	if max <= min {
		return 0
	}

	hist := make([]float64, statsBins)
	binWidth := (max - min) / float64(statsBins)
	for _, v := range data {
		bin := int((v - min) / binWidth)
		if bin >= statsBins {
			bin = statsBins - 1
		} else if bin < 0 {
			bin = 0
		}
		hist[bin]++
	}

	entropy := 0.0
	n := float64(len(data))
	for _, count := range hist {
		if count > 0 {
			p := count / n
			entropy -= p * math.Log2(p)
		}
	}
	return entropy
}
