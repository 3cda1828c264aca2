// Package geom provides the pure geometry behind the board: points, hexagon
// corners, row layout and containment tests. Nothing here holds state.
package geom

import (
	"math"

	"github.com/shopspring/decimal"
)

// Precision is the number of decimal places every generated vertex is rounded to.
const Precision = 2

// Epsilon is the positional tolerance for vertex identity.
// Vertices sit on a 0.01 grid, so two points closer than half a step on both
// axes are the same corner.
const Epsilon = 0.005

// Point is a surface-local coordinate. Y grows downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is a shorthand constructor for Point.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

// Distance returns the Euclidean distance from p to q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Round returns p with both coordinates rounded to Precision places.
func (p Point) Round() Point {
	return Point{Round2(p.X), Round2(p.Y)}
}

// Round2 rounds v to Precision decimal places, half away from zero.
func Round2(v float64) float64 {
	r, _ := decimal.NewFromFloat(v).Round(Precision).Float64()
	return r
}

// MidPoint returns the midpoint between p and q.
func MidPoint(p, q Point) Point {
	return Point{(p.X + q.X) / 2, (p.Y + q.Y) / 2}
}

// Key is a vertex position quantized to the rounding grid.
// Rounded vertices that are Same always share a Key.
type Key struct {
	X int64
	Y int64
}

// KeyOf quantizes p onto the 0.01 grid.
func KeyOf(p Point) Key {
	return Key{
		X: int64(math.Round(p.X * 100)),
		Y: int64(math.Round(p.Y * 100)),
	}
}

// Same reports whether a and b denote the same vertex.
func Same(a, b Point) bool {
	return math.Abs(a.X-b.X) < Epsilon && math.Abs(a.Y-b.Y) < Epsilon
}
