package geom

import "math"

// Angle is the step between consecutive hexagon corners (60 degrees).
const Angle = 2 * math.Pi / 6

// Margin is the fixed offset added to every tile anchor. It is baked into
// vertex coordinates and must not vary between tiles of one board.
const Margin = 10.0

// HexVertices returns the six corners of a pointy-top hexagon around anchor.
// Corner i is anchor + radius*(sin(i*60°), cos(i*60°)), rounded to Precision
// so that corners shared by neighbouring tiles compare equal by value.
func HexVertices(anchor Point, radius float64) [6]Point {
	var v [6]Point
	for i := 0; i < 6; i++ {
		a := Angle * float64(i)
		v[i] = Point{
			X: anchor.X + radius*math.Sin(a),
			Y: anchor.Y + radius*math.Cos(a),
		}.Round()
	}
	return v
}

// Center returns the label anchor of a hexagon: the midpoint of corners 0 and 3.
func Center(v [6]Point) Point {
	return MidPoint(v[0], v[3])
}

// RowPitch is the distance from a tile's anchor to its flat side.
func RowPitch(radius float64) float64 {
	return radius * math.Sin(Angle)
}
