// Package render draws an extracted surface mesh: a static faceted PNG
// render and an interactive HTML render. Both paths are purely
// presentational and perform no data transformation.
package render

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"dicomto3d/internal/models"
)

// Fixed oblique view used by the static render.
const (
	viewAzimuth   = -60.0 * math.Pi / 180.0
	viewElevation = 30.0 * math.Pi / 180.0
)

// Base facet color of the static render.
var facetColor = color.RGBA{R: 69, G: 139, B: 116, A: 255}

// SaveStatic writes a faceted orthographic render of the mesh to a PNG
// file. The viewing box is fixed to the mesh's bounding extent and faces
// are drawn back to front.
func SaveStatic(path string, m *models.Mesh) error {
	if len(m.Faces) == 0 {
		return fmt.Errorf("mesh has no faces to render")
	}

	dir, right, up := viewBasis(viewAzimuth, viewElevation)

	type facet struct {
		poly  plotter.XYs
		depth float64
		shade float64
	}
	facets := make([]facet, 0, len(m.Faces))
	for _, face := range m.Faces {
		a := m.Vertices[face[0]]
		b := m.Vertices[face[1]]
		c := m.Vertices[face[2]]

		poly := plotter.XYs{
			{X: r3.Dot(a, right), Y: r3.Dot(a, up)},
			{X: r3.Dot(b, right), Y: r3.Dot(b, up)},
			{X: r3.Dot(c, right), Y: r3.Dot(c, up)},
		}
		depth := (r3.Dot(a, dir) + r3.Dot(b, dir) + r3.Dot(c, dir)) / 3

		facets = append(facets, facet{poly: poly, depth: depth, shade: lambert(a, b, c, dir)})
	}

	// Painter's algorithm: far facets first.
	sort.Slice(facets, func(i, j int) bool { return facets[i].depth < facets[j].depth })

	p := plot.New()
	p.HideAxes()

	// Fix the viewing box to the projected bounding extent.
	min, max := m.Bounds()
	p.X.Min, p.X.Max, p.Y.Min, p.Y.Max = projectedBox(min, max, right, up)

	for _, f := range facets {
		poly, err := plotter.NewPolygon(f.poly)
		if err != nil {
			return fmt.Errorf("failed to build polygon: %w", err)
		}
		poly.Color = shadeColor(facetColor, f.shade)
		poly.LineStyle.Width = 0
		p.Add(poly)
	}

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save static render: %w", err)
	}
	return nil
}

// viewBasis returns the orthonormal camera basis for an azimuth and
// elevation: viewing direction, screen right and screen up.
func viewBasis(az, el float64) (dir, right, up r3.Vec) {
	dir = r3.Vec{X: math.Cos(el) * math.Cos(az), Y: math.Cos(el) * math.Sin(az), Z: math.Sin(el)}
	right = r3.Vec{X: -math.Sin(az), Y: math.Cos(az), Z: 0}
	up = r3.Vec{X: -math.Sin(el) * math.Cos(az), Y: -math.Sin(el) * math.Sin(az), Z: math.Cos(el)}
	return dir, right, up
}

// projectedBox projects the eight corners of a bounding box onto the
// screen axes and returns the enclosing 2D ranges.
func projectedBox(min, max, right, up r3.Vec) (xmin, xmax, ymin, ymax float64) {
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	for i := 0; i < 8; i++ {
		corner := r3.Vec{X: pick(i&1 == 0, min.X, max.X), Y: pick(i&2 == 0, min.Y, max.Y), Z: pick(i&4 == 0, min.Z, max.Z)}
		u, v := r3.Dot(corner, right), r3.Dot(corner, up)
		xmin, xmax = math.Min(xmin, u), math.Max(xmax, u)
		ymin, ymax = math.Min(ymin, v), math.Max(ymax, v)
	}
	return xmin, xmax, ymin, ymax
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}

// lambert returns a diffuse shading factor in [0.2, 1] for a triangle
// lit along the viewing direction.
func lambert(a, b, c, light r3.Vec) float64 {
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	norm := r3.Norm(n)
	if norm == 0 {
		return 0.2
	}
	l := math.Abs(r3.Dot(n, light)) / norm
	return 0.2 + 0.8*l
}

// shadeColor scales a base color by a shading factor.
func shadeColor(base color.RGBA, shade float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(base.R) * shade),
		G: uint8(float64(base.G) * shade),
		B: uint8(float64(base.B) * shade),
		A: base.A,
	}
}
