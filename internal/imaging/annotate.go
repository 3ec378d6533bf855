package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
)

// StrokeWidth is the outline thickness in pixels.
const StrokeWidth = 3

var outlineColor = color.RGBA{R: 255, A: 255}

// Annotate returns a copy of img with every block outlined in red and labelled with its text.
func Annotate(img image.Image, blocks []domain.TextBlock) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	src := image.NewUniform(outlineColor)
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	for _, block := range blocks {
		if len(block.Polygon) < 2 {
			continue
		}
		z.Reset(b.Dx(), b.Dy())
		strokePolygon(z, block.Polygon, StrokeWidth)
		z.Draw(dst, dst.Bounds(), src, image.Point{})
		label(dst, block)
	}
	return dst
}

// strokePolygon adds one rectangle per closed edge. All rectangles share an orientation so
// coverage at overlapping corners adds up instead of cancelling.
func strokePolygon(z *vector.Rasterizer, poly []image.Point, width float32) {
	half := width / 2
	for i := range poly {
		p0, p1 := poly[i], poly[(i+1)%len(poly)]
		x0, y0 := float32(p0.X)+0.5, float32(p0.Y)+0.5
		x1, y1 := float32(p1.X)+0.5, float32(p1.Y)+0.5

		dx, dy := x1-x0, y1-y0
		length := float32(math.Hypot(float64(dx), float64(dy)))
		if length == 0 {
			continue
		}
		ux, uy := dx/length*half, dy/length*half
		nx, ny := -uy, ux

		// extend both ends so neighbouring edges meet at the corners
		x0, y0 = x0-ux, y0-uy
		x1, y1 = x1+ux, y1+uy

		z.MoveTo(x0+nx, y0+ny)
		z.LineTo(x1+nx, y1+ny)
		z.LineTo(x1-nx, y1-ny)
		z.LineTo(x0-nx, y0-ny)
		z.ClosePath()
	}
}

func label(dst *image.RGBA, block domain.TextBlock) {
	x, y := block.Left(), block.Top()-StrokeWidth-2
	if y < basicfont.Face7x13.Ascent {
		y = block.Top() + basicfont.Face7x13.Ascent + StrokeWidth + 2
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(outlineColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(max(x, 0), y),
	}
	d.DrawString(block.Text)
}
