package dicomload

import (
	"errors"
	"math"
	"testing"

	"dicomto3d/internal/models"
)

// positionedSlice builds a slice with the primary position attribute set.
func positionedSlice(index int, position float64) *models.Slice {
	return &models.Slice{
		Index:      index,
		Position:   position,
		PositionOK: true,
	}
}

// TestOrderSeries verifies that a shuffled series comes out sorted by
// instance number with the inter-slice thickness written onto every
// slice.
func TestOrderSeries(t *testing.T) {
	slices := []*models.Slice{
		positionedSlice(3, -115.0),
		positionedSlice(1, -120.0),
		positionedSlice(4, -112.5),
		positionedSlice(2, -117.5),
	}

	if err := orderSeries(slices); err != nil {
		t.Fatalf("orderSeries failed: %v", err)
	}

	for i, s := range slices {
		if s.Index != i+1 {
			t.Errorf("slices[%d].Index = %d, want %d", i, s.Index, i+1)
		}
	}
	for i := 1; i < len(slices); i++ {
		if slices[i].Index < slices[i-1].Index {
			t.Fatalf("ordering is not monotonic at %d: %d after %d",
				i, slices[i].Index, slices[i-1].Index)
		}
	}
	// Thickness derives from the first sorted pair: |-120 - -117.5|.
	for i, s := range slices {
		if math.Abs(s.Thickness-2.5) > 1e-12 {
			t.Errorf("slices[%d].Thickness = %v, want 2.5", i, s.Thickness)
		}
	}
}

// TestOrderSeriesStableTies verifies that slices with equal instance
// numbers keep their incoming order.
func TestOrderSeriesStableTies(t *testing.T) {
	first := positionedSlice(2, 10.0)
	first.Filename = "a.dcm"
	second := positionedSlice(2, 12.0)
	second.Filename = "b.dcm"
	leading := positionedSlice(1, 8.0)
	leading.Filename = "c.dcm"

	slices := []*models.Slice{first, second, leading}
	if err := orderSeries(slices); err != nil {
		t.Fatalf("orderSeries failed: %v", err)
	}

	want := []string{"c.dcm", "a.dcm", "b.dcm"}
	for i, s := range slices {
		if s.Filename != want[i] {
			t.Errorf("slices[%d] = %s, want %s", i, s.Filename, want[i])
		}
	}
}

// TestOrderSeriesFallbackThickness verifies that ordering succeeds when
// only the SliceLocation attribute is present.
func TestOrderSeriesFallbackThickness(t *testing.T) {
	slices := []*models.Slice{
		{Index: 2, Location: 13.0, LocationOK: true},
		{Index: 1, Location: 10.0, LocationOK: true},
	}

	if err := orderSeries(slices); err != nil {
		t.Fatalf("orderSeries failed: %v", err)
	}
	if slices[0].Index != 1 || slices[1].Index != 2 {
		t.Errorf("series not sorted: got indices %d, %d", slices[0].Index, slices[1].Index)
	}
	for i, s := range slices {
		if math.Abs(s.Thickness-3.0) > 1e-12 {
			t.Errorf("slices[%d].Thickness = %v, want 3", i, s.Thickness)
		}
	}
}

// TestSeriesThicknessPrimary verifies the thickness computation from the
// primary position attribute.
func TestSeriesThicknessPrimary(t *testing.T) {
	cases := []struct {
		name string
		a, b float64
		want float64
	}{
		{"ascending", -120.0, -117.5, 2.5},
		{"descending", 40.0, 37.0, 3.0},
		{"coincident", 5.0, 5.0, 0.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slices := []*models.Slice{positionedSlice(1, tc.a), positionedSlice(2, tc.b)}
			got, err := seriesThickness(slices)
			if err != nil {
				t.Fatalf("seriesThickness failed: %v", err)
			}
			if math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("thickness = %v, want %v", got, tc.want)
			}
			if got < 0 {
				t.Errorf("thickness must be non-negative, got %v", got)
			}
		})
	}
}

// TestSeriesThicknessFallback verifies that the SliceLocation fallback is
// used only when the primary attribute is absent.
func TestSeriesThicknessFallback(t *testing.T) {
	slices := []*models.Slice{
		{Index: 1, Location: 10.0, LocationOK: true},
		{Index: 2, Location: 12.5, LocationOK: true},
	}

	got, err := seriesThickness(slices)
	if err != nil {
		t.Fatalf("seriesThickness failed: %v", err)
	}
	if math.Abs(got-2.5) > 1e-12 {
		t.Errorf("fallback thickness = %v, want 2.5", got)
	}
}

// TestSeriesThicknessBothMissing verifies the error when neither position
// attribute is available.
func TestSeriesThicknessBothMissing(t *testing.T) {
	slices := []*models.Slice{{Index: 1}, {Index: 2}}

	_, err := seriesThickness(slices)
	if err == nil {
		t.Fatal("expected an error when both position attributes are missing")
	}
	if !errors.Is(err, ErrAttributeMissing) {
		t.Errorf("error should carry ErrAttributeMissing, got %v", err)
	}
}

// TestSeriesThicknessTooFewSlices verifies the error for a single slice.
func TestSeriesThicknessTooFewSlices(t *testing.T) {
	if _, err := seriesThickness([]*models.Slice{positionedSlice(1, 0)}); err == nil {
		t.Error("expected an error for a single slice")
	}
}

// TestPositionDistanceTagsMissing verifies that an absent primary
// attribute is reported with the tagged sentinel rather than a generic
// failure.
func TestPositionDistanceTagsMissing(t *testing.T) {
	a := positionedSlice(1, 0)
	b := &models.Slice{Index: 2}

	_, err := positionDistance(a, b)
	if !errors.Is(err, ErrAttributeMissing) {
		t.Errorf("expected ErrAttributeMissing, got %v", err)
	}
}

// TestStoredValue verifies the raw sample conversions, including the
// signed two's complement fold.
func TestStoredValue(t *testing.T) {
	cases := []struct {
		name   string
		raw    int
		signed bool
		want   int16
	}{
		{"unsigned small", 1024, false, 1024},
		{"unsigned clamp", 70000, false, math.MaxInt16},
		{"signed positive", 1024, true, 1024},
		{"signed sentinel", 0xF830, true, -2000},
		{"signed minus one", 0xFFFF, true, -1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := storedValue(tc.raw, tc.signed); got != tc.want {
				t.Errorf("storedValue(%#x, %v) = %d, want %d", tc.raw, tc.signed, got, tc.want)
			}
		})
	}
}

// TestParseDecimalStrings verifies the DICOM decimal-string conversion.
func TestParseDecimalStrings(t *testing.T) {
	got, err := parseDecimalStrings([]string{" 0.703125", "0.703125 "})
	if err != nil {
		t.Fatalf("parseDecimalStrings failed: %v", err)
	}
	if len(got) != 2 || got[0] != 0.703125 || got[1] != 0.703125 {
		t.Errorf("parseDecimalStrings = %v, want [0.703125 0.703125]", got)
	}

	if _, err := parseDecimalStrings([]string{"not-a-number"}); err == nil {
		t.Error("expected an error for a malformed decimal string")
	}
	if _, err := parseDecimalStrings(42); err == nil {
		t.Error("expected an error for a non-string value")
	}
}

// TestIsDICOMFile verifies the filename filter.
func TestIsDICOMFile(t *testing.T) {
	for _, name := range []string{"0001.dcm", "scan.DCM", "a.dicom", "b.IMA"} {
		if !isDICOMFile(name) {
			t.Errorf("isDICOMFile(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"notes.txt", "image.jpg", "series"} {
		if isDICOMFile(name) {
			t.Errorf("isDICOMFile(%q) = true, want false", name)
		}
	}
}
