package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/talgya/hexboard/internal/geom"
	"github.com/talgya/hexboard/internal/world"
)

// Image is a Surface backed by an RGBA image.
type Image struct {
	img        *image.RGBA
	background color.Color
}

// NewImage creates a white raster surface of the given size.
func NewImage(w, h int) *Image {
	im := &Image{
		img:        image.NewRGBA(image.Rect(0, 0, w, h)),
		background: color.White,
	}
	im.Clear()
	return im
}

// RGBA returns the underlying image.
func (im *Image) RGBA() *image.RGBA {
	return im.img
}

// Clear fills the surface with the background color.
func (im *Image) Clear() {
	draw.Draw(im.img, im.img.Bounds(), image.NewUniform(im.background), image.Point{}, draw.Src)
}

// FillPolygon rasterizes a closed polygon.
func (im *Image) FillPolygon(pts []geom.Point, col string) {
	if len(pts) < 3 {
		return
	}
	b := im.img.Bounds()
	r := vector.NewRasterizer(b.Dx(), b.Dy())
	r.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		r.LineTo(float32(p.X), float32(p.Y))
	}
	r.ClosePath()
	r.Draw(im.img, b, image.NewUniform(ParseColor(col)), image.Point{})
}

// DrawText draws a label centered on center.
func (im *Image) DrawText(text string, center geom.Point, col string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  im.img,
		Src:  image.NewUniform(ParseColor(col)),
		Face: face,
	}
	width := d.MeasureString(text)
	m := face.Metrics()
	d.Dot = fixed.Point26_6{
		X: fixed.Int26_6(center.X*64) - width/2,
		Y: fixed.Int26_6(center.Y*64) + (m.Ascent-m.Descent)/2,
	}
	d.DrawString(text)
}

// EncodePNG writes the surface as PNG.
func (im *Image) EncodePNG(w io.Writer) error {
	return png.Encode(w, im.img)
}

// RenderPNG draws the board on a fresh image and writes it as PNG.
func RenderPNG(w io.Writer, b *world.Board) error {
	width, height := Size(b)
	im := NewImage(width, height)
	Draw(im, b)
	if err := im.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// ParseColor understands SVG color names, #rgb, #rrggbb and rgb(r, g, b).
// Unknown values fall back to gray.
func ParseColor(s string) color.RGBA {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := colornames.Map[s]; ok {
		return c
	}
	if strings.HasPrefix(s, "#") {
		if c, ok := parseHex(s[1:]); ok {
			return c
		}
	}
	if strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")") {
		parts := strings.Split(s[4:len(s)-1], ",")
		if len(parts) == 3 {
			var v [3]uint8
			ok := true
			for i, p := range parts {
				n, err := strconv.Atoi(strings.TrimSpace(p))
				if err != nil || n < 0 || n > 255 {
					ok = false
					break
				}
				v[i] = uint8(n)
			}
			if ok {
				return color.RGBA{v[0], v[1], v[2], 0xff}
			}
		}
	}
	return colornames.Gray
}

func parseHex(h string) (color.RGBA, bool) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, false
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{uint8(n >> 16), uint8(n >> 8), uint8(n), 0xff}, true
}
