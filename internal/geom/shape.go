package geom

// Polygon is a closed polygon defined by its vertices in order.
type Polygon []Point

// Contains returns true if pt is inside the polygon using even-odd ray casting.
func (poly Polygon) Contains(pt Point) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		vi := poly[i]
		vj := poly[j]
		if (vi.Y > pt.Y) != (vj.Y > pt.Y) &&
			pt.X < (vj.X-vi.X)*(pt.Y-vi.Y)/(vj.Y-vi.Y)+vi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// BoundingBox returns the axis-aligned bounds as (min, max).
func (poly Polygon) BoundingBox() (Point, Point) {
	if len(poly) == 0 {
		return Point{}, Point{}
	}
	minP, maxP := poly[0], poly[0]
	for _, v := range poly[1:] {
		if v.X < minP.X {
			minP.X = v.X
		}
		if v.Y < minP.Y {
			minP.Y = v.Y
		}
		if v.X > maxP.X {
			maxP.X = v.X
		}
		if v.Y > maxP.Y {
			maxP.Y = v.Y
		}
	}
	return minP, maxP
}

// Circle is a proximity zone.
type Circle struct {
	Center Point
	Radius float64
}

// Contains returns true if pt lies within the circle (boundary included).
func (c Circle) Contains(pt Point) bool {
	return c.Center.Distance(pt) <= c.Radius
}
