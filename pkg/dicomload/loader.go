// Package dicomload reads a directory of DICOM slice files and produces
// an ordered, thickness-annotated slice series ready for stacking.
package dicomload

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"dicomto3d/internal/models"
)

// ErrAttributeMissing tags failures caused by an absent DICOM attribute.
// Callers use it to distinguish "attribute not present" from parse faults,
// so the SliceLocation fallback fires only for the former.
var ErrAttributeMissing = errors.New("attribute not present")

// Loader reads one patient series from a directory of DICOM files.
type Loader struct {
	dir string
	log *logrus.Entry
}

// NewLoader creates a loader for the given input directory.
func NewLoader(dir string) *Loader {
	return &Loader{
		dir: dir,
		log: logrus.WithField("component", "dicomload"),
	}
}

// Load reads every DICOM file in the directory, sorts the slices by
// instance number, computes the inter-slice thickness and writes it back
// onto every slice.
//
// Ordering note: the sort is stable, so files with equal instance numbers
// keep their directory-listing order. Directory listing order itself is
// not guaranteed by the OS; a well-formed series has distinct instance
// numbers.
func (l *Loader) Load() ([]*models.Slice, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var slices []*models.Slice
	for _, entry := range entries {
		if entry.IsDir() || !isDICOMFile(entry.Name()) {
			continue
		}
		path := filepath.Join(l.dir, entry.Name())
		s, err := readSlice(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read slice %s: %w", entry.Name(), err)
		}
		slices = append(slices, s)
	}

	if len(slices) == 0 {
		return nil, fmt.Errorf("no DICOM files found in %s", l.dir)
	}

	if err := orderSeries(slices); err != nil {
		return nil, err
	}

	l.log.WithFields(logrus.Fields{
		"slices":    len(slices),
		"rows":      slices[0].Rows,
		"cols":      slices[0].Cols,
		"thickness": slices[0].Thickness,
	}).Info("loaded slice series")

	return slices, nil
}

// orderSeries sorts the slices by instance number in place, computes the
// inter-slice thickness and writes it back onto every slice. The sort is
// stable, so equal instance numbers keep their incoming order.
func orderSeries(slices []*models.Slice) error {
	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].Index < slices[j].Index
	})

	thickness, err := seriesThickness(slices)
	if err != nil {
		return err
	}
	for _, s := range slices {
		s.Thickness = thickness
	}
	return nil
}

// seriesThickness computes the inter-slice distance from the first two
// slices. ImagePositionPatient is the primary attribute; when it is
// absent the SliceLocation attribute is used instead. Any other fault
// propagates unchanged.
func seriesThickness(slices []*models.Slice) (float64, error) {
	if len(slices) < 2 {
		return 0, fmt.Errorf("need at least 2 slices to compute thickness, have %d", len(slices))
	}

	t, err := positionDistance(slices[0], slices[1])
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrAttributeMissing) {
		return 0, err
	}

	// Primary attribute absent on at least one slice; fall back to
	// SliceLocation for the same pair.
	t, ferr := locationDistance(slices[0], slices[1])
	if ferr != nil {
		return 0, fmt.Errorf("thickness: %v; fallback: %w", err, ferr)
	}
	return t, nil
}

// positionDistance returns |Position(a) - Position(b)| from the primary
// ImagePositionPatient attribute.
func positionDistance(a, b *models.Slice) (float64, error) {
	if !a.PositionOK || !b.PositionOK {
		return 0, fmt.Errorf("image position patient: %w", ErrAttributeMissing)
	}
	return math.Abs(a.Position - b.Position), nil
}

// locationDistance returns |Location(a) - Location(b)| from the
// SliceLocation fallback attribute.
func locationDistance(a, b *models.Slice) (float64, error) {
	if !a.LocationOK || !b.LocationOK {
		return 0, fmt.Errorf("slice location: %w", ErrAttributeMissing)
	}
	return math.Abs(a.Location - b.Location), nil
}

// isDICOMFile reports whether a filename looks like a DICOM slice file.
func isDICOMFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".dcm", ".dicom", ".ima":
		return true
	}
	return false
}

// readSlice parses a single DICOM file into a Slice.
func readSlice(path string) (*models.Slice, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("parse failed: %w", err)
	}

	s := &models.Slice{
		Filename:     filepath.Base(path),
		Slope:        1,
		Intercept:    0,
		PixelSpacing: [2]float64{1, 1},
	}

	index, err := intAttribute(&ds, tag.InstanceNumber)
	if err != nil {
		return nil, fmt.Errorf("instance number: %w", err)
	}
	s.Index = index

	if pos, err := floatAttributes(&ds, tag.ImagePositionPatient); err == nil {
		if len(pos) != 3 {
			return nil, fmt.Errorf("image position patient has %d components, want 3", len(pos))
		}
		s.Position = pos[2]
		s.PositionOK = true
	} else if !errors.Is(err, ErrAttributeMissing) {
		return nil, fmt.Errorf("image position patient: %w", err)
	}

	if loc, err := floatAttribute(&ds, tag.SliceLocation); err == nil {
		s.Location = loc
		s.LocationOK = true
	} else if !errors.Is(err, ErrAttributeMissing) {
		return nil, fmt.Errorf("slice location: %w", err)
	}

	if slope, err := floatAttribute(&ds, tag.RescaleSlope); err == nil {
		s.Slope = slope
	} else if !errors.Is(err, ErrAttributeMissing) {
		return nil, fmt.Errorf("rescale slope: %w", err)
	}
	if intercept, err := floatAttribute(&ds, tag.RescaleIntercept); err == nil {
		s.Intercept = intercept
	} else if !errors.Is(err, ErrAttributeMissing) {
		return nil, fmt.Errorf("rescale intercept: %w", err)
	}

	if spacing, err := floatAttributes(&ds, tag.PixelSpacing); err == nil {
		if len(spacing) != 2 {
			return nil, fmt.Errorf("pixel spacing has %d components, want 2", len(spacing))
		}
		s.PixelSpacing = [2]float64{spacing[0], spacing[1]}
	} else if !errors.Is(err, ErrAttributeMissing) {
		return nil, fmt.Errorf("pixel spacing: %w", err)
	}

	signed := false
	if rep, err := intAttribute(&ds, tag.PixelRepresentation); err == nil {
		signed = rep == 1
	} else if !errors.Is(err, ErrAttributeMissing) {
		return nil, fmt.Errorf("pixel representation: %w", err)
	}

	if err := readPixels(&ds, s, signed); err != nil {
		return nil, err
	}

	return s, nil
}

// readPixels extracts the first frame of native pixel data into the slice.
func readPixels(ds *dicom.Dataset, s *models.Slice, signed bool) error {
	el, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return fmt.Errorf("pixel data: %w", mapNotFound(err))
	}
	info := dicom.MustGetPixelDataInfo(el.Value)
	if info.IsEncapsulated {
		return fmt.Errorf("encapsulated pixel data is not supported")
	}
	if len(info.Frames) == 0 {
		return fmt.Errorf("pixel data contains no frames")
	}

	fr := info.Frames[0]
	native, err := fr.GetNativeFrame()
	if err != nil {
		return fmt.Errorf("native frame: %w", err)
	}

	s.Rows = native.Rows
	s.Cols = native.Cols
	s.Data = make([]int16, len(native.Data))
	for i, samples := range native.Data {
		if len(samples) == 0 {
			return fmt.Errorf("pixel %d has no samples", i)
		}
		s.Data[i] = storedValue(samples[0], signed)
	}
	if len(s.Data) != s.Rows*s.Cols {
		return fmt.Errorf("pixel count %d does not match %dx%d grid", len(s.Data), s.Rows, s.Cols)
	}
	return nil
}

// storedValue converts a raw sample to its stored int16 value. Signed
// data arrives as the unsigned reinterpretation of a two's complement
// 16-bit word and must be folded back.
func storedValue(raw int, signed bool) int16 {
	if signed {
		return int16(uint16(raw))
	}
	if raw > math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(raw)
}

// floatAttribute reads a single decimal-string attribute.
func floatAttribute(ds *dicom.Dataset, t tag.Tag) (float64, error) {
	vals, err := floatAttributes(ds, t)
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, ErrAttributeMissing
	}
	return vals[0], nil
}

// floatAttributes reads a multi-valued decimal-string attribute.
func floatAttributes(ds *dicom.Dataset, t tag.Tag) ([]float64, error) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return parseDecimalStrings(el.Value.GetValue())
}

// intAttribute reads a single integer attribute, accepting both the
// integer-string and binary integer representations.
func intAttribute(ds *dicom.Dataset, t tag.Tag) (int, error) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return 0, mapNotFound(err)
	}
	switch v := el.Value.GetValue().(type) {
	case []int:
		if len(v) == 0 {
			return 0, ErrAttributeMissing
		}
		return v[0], nil
	case []string:
		if len(v) == 0 {
			return 0, ErrAttributeMissing
		}
		n, err := strconv.Atoi(strings.TrimSpace(v[0]))
		if err != nil {
			return 0, fmt.Errorf("malformed integer string %q: %w", v[0], err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected value type %T", v)
	}
}

// parseDecimalStrings converts a DICOM decimal-string value into floats.
func parseDecimalStrings(value interface{}) ([]float64, error) {
	strs, ok := value.([]string)
	if !ok {
		return nil, fmt.Errorf("unexpected value type %T", value)
	}
	out := make([]float64, 0, len(strs))
	for _, str := range strs {
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed decimal string %q: %w", str, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// mapNotFound translates the parser's not-found error into the tagged
// sentinel so callers can test it with errors.Is.
func mapNotFound(err error) error {
	if errors.Is(err, dicom.ErrorElementNotFound) {
		return ErrAttributeMissing
	}
	return err
}
