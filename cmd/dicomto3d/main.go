package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"dicomto3d/internal/models"
	"dicomto3d/pkg/config"
	"dicomto3d/pkg/pipeline"
	"dicomto3d/pkg/visualization"
)

// applyFlagOverrides copies explicitly passed flag values over the
// config. Flags left untouched do not override the file, so an explicit
// -threshold 0 is honored while an absent flag keeps the config value.
func applyFlagOverrides(cfg *config.Config, fs *flag.FlagSet, threshold *float64, step *int) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "threshold":
			cfg.Processing.Threshold = *threshold
		case "step":
			cfg.Processing.Step = *step
		}
	})
}

func main() {
	// Parse command line arguments
	inputDir := flag.String("input", "", "Directory containing the DICOM slice files")
	patientID := flag.Int("id", 0, "Patient id keying the intermediate snapshot")
	outputName := flag.String("output", "output.stl", "Output STL filename")
	staticPNG := flag.String("static", "", "Optional static render PNG filename")
	interactiveHTML := flag.String("html", "", "Optional interactive render HTML filename")
	configPath := flag.String("config", "dicomto3d.yaml", "YAML configuration file")
	threshold := flag.Float64("threshold", 0, "Iso-surface threshold in Hounsfield units (overrides config)")
	step := flag.Int("step", 1, "Surface extraction stride in voxels (overrides config)")
	noCache := flag.Bool("no-cache", false, "Disable the calibrated volume snapshot cache")
	extractSlices := flag.Bool("extract-slices", false, "Extract and save calibrated slices along all axes")
	slicesDir := flag.String("slices-dir", "volume_slices", "Directory to save extracted slices")
	flag.Parse()

	// Validate inputs
	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlagOverrides(cfg, flag.CommandLine, threshold, step)
	if *noCache {
		cfg.Snapshot.Enabled = false
	}

	if cfg.Output.Verbose {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}

	fmt.Println("================================")
	fmt.Println("DICOM SERIES TO 3D SURFACE MESH")
	fmt.Println("================================")

	params := &pipeline.Params{
		InputDir:        *inputDir,
		PatientID:       *patientID,
		OutputSTL:       *outputName,
		StaticPNG:       *staticPNG,
		InteractiveHTML: *interactiveHTML,
		TargetSpacing: models.VoxelSize{
			X: cfg.Processing.TargetSpacing.X,
			Y: cfg.Processing.TargetSpacing.Y,
			Z: cfg.Processing.TargetSpacing.Z,
		},
		Threshold:   cfg.Processing.Threshold,
		Step:        cfg.Processing.Step,
		SnapshotDir: cfg.Snapshot.Dir,
		UseSnapshot: cfg.Snapshot.Enabled,
	}

	p := pipeline.New(params)

	fmt.Println("Starting the conversion pipeline...")
	startTime := time.Now()
	if err := p.Process(); err != nil {
		log.Fatalf("Conversion failed: %v", err)
	}
	processingTime := time.Since(startTime)

	calStats, resStats := p.Stats()
	resampled := p.Resampled()
	surface := p.Mesh()

	fmt.Printf("\nConversion completed successfully in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Output 3D model saved to: %s\n\n", *outputName)

	fmt.Printf("Volume summary:\n")
	fmt.Printf("===============\n")
	fmt.Printf("Resampled shape: %dx%dx%d voxels\n", resampled.Width, resampled.Height, resampled.Depth)
	fmt.Printf("Achieved spacing: %.4f x %.4f x %.4f mm\n",
		resampled.VoxelSize.X, resampled.VoxelSize.Y, resampled.VoxelSize.Z)
	fmt.Printf("Calibrated HU range: [%.0f, %.0f], mean %.1f, entropy %.3f\n",
		calStats.Min, calStats.Max, calStats.Mean, calStats.Entropy)
	fmt.Printf("Resampled HU range: [%.0f, %.0f], mean %.1f, entropy %.3f\n",
		resStats.Min, resStats.Max, resStats.Mean, resStats.Entropy)
	fmt.Printf("Surface: %d vertices, %d faces at threshold %.0f HU\n",
		len(surface.Vertices), len(surface.Faces), cfg.Processing.Threshold)

	if *staticPNG != "" {
		fmt.Printf("Static render saved to: %s\n", *staticPNG)
	}
	if *interactiveHTML != "" {
		fmt.Printf("Interactive render saved to: %s\n", *interactiveHTML)
	}

	// Extract and save slice sheets if requested
	if *extractSlices {
		fmt.Println("\nExtracting calibrated slices along all axes...")

		viewer := visualization.NewViewer(p.Volume())
		viewer.SetWindow(cfg.Viewer.WindowCenter, cfg.Viewer.WindowWidth)

		for _, axis := range []string{"x", "y", "z"} {
			axisDir := filepath.Join(*slicesDir, axis)
			fmt.Printf("Saving %s-axis slices to: %s\n", axis, axisDir)

			if err := viewer.SaveSliceSequence(axis, axisDir); err != nil {
				log.Printf("Warning: Failed to save %s-axis slices: %v", axis, err)
			}
		}

		fmt.Println("Slice extraction completed!")
	}
}
