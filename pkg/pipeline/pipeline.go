// Package pipeline runs the DICOM-to-mesh conversion: load, calibrate,
// resample, extract and render, strictly in sequence.
package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"dicomto3d/internal/models"
	"dicomto3d/pkg/dicomload"
	"dicomto3d/pkg/hounsfield"
	"dicomto3d/pkg/mesh"
	"dicomto3d/pkg/render"
	"dicomto3d/pkg/resample"
	"dicomto3d/pkg/snapshot"
)

// Params holds the pipeline configuration. Every knob is an explicit
// parameter; there is no shared module state.
type Params struct {
	// InputDir is the directory containing the DICOM slice files.
	InputDir string

	// PatientID keys the intermediate snapshot filename.
	PatientID int

	// OutputSTL is the path the extracted mesh is written to.
	OutputSTL string

	// StaticPNG and InteractiveHTML are optional render outputs,
	// skipped when empty.
	StaticPNG       string
	InteractiveHTML string

	// TargetSpacing is the uniform grid spacing to resample to, mm.
	TargetSpacing models.VoxelSize

	// Threshold is the iso-surface level in Hounsfield units.
	Threshold float64

	// Step is the surface extraction stride in voxels.
	Step int

	// SnapshotDir holds the intermediate calibrated-volume snapshot.
	// UseSnapshot enables writing it and reusing an existing one.
	SnapshotDir string
	UseSnapshot bool
}

// Pipeline executes the conversion stages over one patient series.
type Pipeline struct {
	params *Params

	slices     []*models.Slice
	calibrated *models.Volume
	resampled  *models.Volume
	surface    *models.Mesh

	calibratedStats VolumeStats
	resampledStats  VolumeStats

	log *logrus.Entry
}

// New creates a pipeline with the given parameters.
func New(params *Params) *Pipeline {
	return &Pipeline{
		params: params,
		log:    logrus.WithField("component", "pipeline"),
	}
}

// Process runs the complete pipeline start to finish.
func (p *Pipeline) Process() error {
	if err := p.prepareVolume(); err != nil {
		return err
	}
	return p.processVolume(p.calibrated)
}

// prepareVolume produces the calibrated volume, either by reusing the
// patient's snapshot or by loading and normalizing the slice series.
func (p *Pipeline) prepareVolume() error {
	if p.params.UseSnapshot && snapshot.Exists(p.params.SnapshotDir, p.params.PatientID) {
		p.log.WithField("id", p.params.PatientID).Info("reusing calibrated volume snapshot")
		vol, err := snapshot.Load(p.params.SnapshotDir, p.params.PatientID)
		if err != nil {
			return fmt.Errorf("failed to load snapshot: %w", err)
		}
		p.calibrated = vol
		return nil
	}

	p.log.Info("stage 1: loading slice series")
	slices, err := dicomload.NewLoader(p.params.InputDir).Load()
	if err != nil {
		return fmt.Errorf("failed to load slices: %w", err)
	}
	p.slices = slices

	p.log.Info("stage 2: calibrating to Hounsfield units")
	vol, err := hounsfield.Normalize(slices)
	if err != nil {
		return fmt.Errorf("failed to normalize slices: %w", err)
	}
	p.calibrated = vol

	if p.params.UseSnapshot {
		if _, err := snapshot.Save(p.params.SnapshotDir, p.params.PatientID, vol); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
	}
	return nil
}

// processVolume runs the stages downstream of calibration: resampling,
// surface extraction and the output writers.
func (p *Pipeline) processVolume(vol *models.Volume) error {
	p.calibratedStats = ComputeStats(vol)
	p.logStats("calibrated", p.calibratedStats)

	p.log.Info("stage 3: resampling to uniform spacing")
	resampled, err := resample.Resample(vol, p.params.TargetSpacing)
	if err != nil {
		return fmt.Errorf("failed to resample volume: %w", err)
	}
	p.resampled = resampled
	p.resampledStats = ComputeStats(resampled)
	p.logStats("resampled", p.resampledStats)

	p.log.WithFields(logrus.Fields{
		"threshold": p.params.Threshold,
		"step":      p.params.Step,
	}).Info("stage 4: extracting iso-surface")
	extractor := mesh.NewExtractor(resampled, p.params.Threshold)
	extractor.SetStep(p.params.Step)
	surface, err := extractor.Extract()
	if err != nil {
		return fmt.Errorf("failed to extract surface: %w", err)
	}
	p.surface = surface
	p.log.WithFields(logrus.Fields{
		"vertices": len(surface.Vertices),
		"faces":    len(surface.Faces),
	}).Info("surface extracted")

	p.log.Info("stage 5: writing outputs")
	if err := mesh.SaveSTL(p.params.OutputSTL, surface); err != nil {
		return fmt.Errorf("failed to save STL: %w", err)
	}
	if p.params.StaticPNG != "" {
		if err := render.SaveStatic(p.params.StaticPNG, surface); err != nil {
			return fmt.Errorf("failed to save static render: %w", err)
		}
	}
	if p.params.InteractiveHTML != "" {
		if err := render.SaveInteractive(p.params.InteractiveHTML, surface); err != nil {
			return fmt.Errorf("failed to save interactive render: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) logStats(stage string, s VolumeStats) {
	p.log.WithFields(logrus.Fields{
		"stage":   stage,
		"min":     s.Min,
		"max":     s.Max,
		"mean":    fmt.Sprintf("%.2f", s.Mean),
		"stddev":  fmt.Sprintf("%.2f", s.StdDev),
		"entropy": fmt.Sprintf("%.3f", s.Entropy),
	}).Info("volume statistics")
}

// Volume returns the calibrated volume.
func (p *Pipeline) Volume() *models.Volume { return p.calibrated }

// Resampled returns the resampled volume.
func (p *Pipeline) Resampled() *models.Volume { return p.resampled }

// Mesh returns the extracted surface mesh.
func (p *Pipeline) Mesh() *models.Mesh { return p.surface }

// Stats returns the statistics of the calibrated and resampled volumes.
func (p *Pipeline) Stats() (calibrated, resampled VolumeStats) {
	return p.calibratedStats, p.resampledStats
}
