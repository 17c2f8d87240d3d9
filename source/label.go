package source

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const labelPadding = 4

// Label draws text in white on a translucent black strip along the bottom of
// img. Text wider than the image is clipped.
func Label(img *image.RGBA, text string) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	b := img.Bounds()
	metrics := face.Metrics()
	stripH := metrics.Height.Ceil() + 2*labelPadding

	strip := image.Rect(b.Min.X, b.Max.Y-stripH, b.Max.X, b.Max.Y).Intersect(b)
	draw.Draw(img, strip, image.NewUniform(color.NRGBA{A: 0x99}), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(b.Min.X+labelPadding, b.Max.Y-labelPadding-metrics.Descent.Ceil()),
	}
	d.DrawString(text)
}
