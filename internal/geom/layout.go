package geom

// Layout describes the silhouette of a board: row widths grow from MinRowWidth
// to MaxRowWidth and shrink back, e.g. 3,4,5,6,5,4,3.
type Layout struct {
	MinRowWidth int
	MaxRowWidth int
	Radius      float64
}

// Rows returns the total number of rows.
func (l Layout) Rows() int {
	return 2*(l.MaxRowWidth-l.MinRowWidth) + 1
}

// RowWidths returns the tile count of every row.
func (l Layout) RowWidths() []int {
	widths := make([]int, 0, l.Rows())
	l.walk(func(row, width, _ int) {
		widths = append(widths, width)
	})
	return widths
}

// Anchor returns the nominal anchor of tile j in row i, or false when the
// position is outside the silhouette.
func (l Layout) Anchor(i, j int) (Point, bool) {
	var (
		p     Point
		found bool
	)
	l.walk(func(row, width, factor int) {
		if row != i || j < 0 || j >= width {
			return
		}
		p = l.anchor(i, j, factor)
		found = true
	})
	return p, found
}

// Anchors returns every tile anchor in row-major order.
func (l Layout) Anchors() [][]Point {
	out := make([][]Point, 0, l.Rows())
	l.walk(func(row, width, factor int) {
		rowPts := make([]Point, width)
		for j := 0; j < width; j++ {
			rowPts[j] = l.anchor(row, j, factor)
		}
		out = append(out, rowPts)
	})
	return out
}

func (l Layout) anchor(i, j, factor int) Point {
	pitch := RowPitch(l.Radius)
	return Point{
		X: float64(factor)*pitch + float64(j)*2*pitch + l.Radius + Margin,
		Y: (l.Radius/2)*float64(i) + l.Radius*float64(1+i) + Margin,
	}
}

// walk visits rows in order with their width and x position factor.
// Both change once per row: width grows and the factor shrinks until the
// middle row, then the other way round.
func (l Layout) walk(fn func(row, width, factor int)) {
	rows := l.Rows()
	width := l.MinRowWidth
	factor := l.MaxRowWidth - l.MinRowWidth
	for i := 0; i < rows; i++ {
		fn(i, width, factor)
		if float64(i+1) > float64(rows)/2 {
			width--
			factor++
		} else {
			width++
			factor--
		}
	}
}
