// Package geom provides the small geometry values shared by the
// segmentation, overlay, and host packages. Coordinates are viewport
// coordinates; a terminal host uses cell units, a GUI host uses pixels.
package geom

// Point is a location in viewport coordinates.
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned rectangle in viewport coordinates.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.Left + r.Width/2, Y: r.Top + r.Height/2}
}

// Degenerate reports whether the rectangle has zero width and zero height,
// which layout backends produce transiently while reflowing.
func (r Rect) Degenerate() bool {
	return r.Width == 0 && r.Height == 0
}
