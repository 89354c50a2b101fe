package models

// Slice represents a single DICOM image slice with the metadata needed
// for calibration and stacking.
type Slice struct {
	// Data holds the raw stored pixel values in row-major order.
	Data []int16

	// Rows and Cols are the grid dimensions of the slice.
	Rows, Cols int

	// Index is the ordinal position of this slice in the series
	// (DICOM InstanceNumber). Slices are sorted by this value.
	Index int

	// Filename is the source file this slice was read from.
	Filename string

	// Position is the z component of ImagePositionPatient in mm.
	// PositionOK reports whether the attribute was present.
	Position   float64
	PositionOK bool

	// Location is the SliceLocation attribute in mm, used as a fallback
	// when ImagePositionPatient is absent.
	Location   float64
	LocationOK bool

	// Thickness is the physical distance between consecutive slices in mm.
	// It is computed once per series and written back onto every slice.
	Thickness float64

	// Slope and Intercept are the linear rescale coefficients mapping
	// stored values to Hounsfield units.
	Slope, Intercept float64

	// PixelSpacing is the in-plane sample spacing in mm: [row, col].
	PixelSpacing [2]float64
}

// VoxelSize is the physical size of a voxel along each axis in mm.
type VoxelSize struct {
	X, Y, Z float64
}

// Volume is a dense 3D scalar grid stacked from a slice series.
type Volume struct {
	// Data is the volume as a 1D array in row-major order,
	// indexed z*Width*Height + y*Width + x.
	Data []int16

	// Width is the number of columns (x), Height the number of
	// rows (y), and Depth the number of slices (z).
	Width  int
	Height int
	Depth  int

	// VoxelSize is the physical spacing of the grid.
	VoxelSize VoxelSize
}

// At returns the value at voxel (x, y, z). No bounds checking.
func (v *Volume) At(x, y, z int) int16 {
	return v.Data[z*v.Width*v.Height+y*v.Width+x]
}

// Set stores a value at voxel (x, y, z). No bounds checking.
func (v *Volume) Set(x, y, z int, value int16) {
	v.Data[z*v.Width*v.Height+y*v.Width+x] = value
}

// NewVolume allocates a zeroed volume with the given dimensions.
func NewVolume(width, height, depth int, size VoxelSize) *Volume {
	return &Volume{
		Data:      make([]int16, width*height*depth),
		Width:     width,
		Height:    height,
		Depth:     depth,
		VoxelSize: size,
	}
}
