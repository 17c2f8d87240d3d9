package yuv

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var allLayouts = []Layout{YV12, NV21, YUY2, YUV440P}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, 255
	}
	return img
}

func TestPixelConversion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		r, g, b uint8
		y, u, v uint8
	}{
		{name: "black", y: 16, u: 128, v: 128},
		{name: "white", r: 255, g: 255, b: 255, y: 235, u: 128, v: 128},
		{name: "red", r: 255, y: 81, u: 90, v: 240},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.y, Luma(tt.r, tt.g, tt.b))
			assert.Equal(t, tt.u, ChromaU(tt.r, tt.g, tt.b))
			assert.Equal(t, tt.v, ChromaV(tt.r, tt.g, tt.b))
		})
	}
}

func TestSolidImagesEveryLayout(t *testing.T) {
	t.Parallel()

	for _, layout := range allLayouts {
		t.Run(layout.String(), func(t *testing.T) {
			t.Parallel()
			black := Convert(solid(8, 6, color.RGBA{}), layout)
			white := Convert(solid(8, 6, color.RGBA{R: 255, G: 255, B: 255}), layout)
			for y := range 6 {
				for x := range 8 {
					assert.Equal(t, uint8(16), black.Y(x, y))
					assert.Equal(t, uint8(128), black.U(x, y))
					assert.Equal(t, uint8(128), black.V(x, y))
					assert.Equal(t, uint8(235), white.Y(x, y))
					assert.Equal(t, uint8(128), white.U(x, y))
					assert.Equal(t, uint8(128), white.V(x, y))
				}
			}
		})
	}
}

func TestPropertyLumaIsExactPerPixel(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		w := rapid.IntRange(1, 9).Draw(t, "w")
		h := rapid.IntRange(1, 9).Draw(t, "h")
		layout := rapid.SampledFrom(allLayouts).Draw(t, "layout")
		pix := rapid.SliceOfN(rapid.Byte(), w*h*4, w*h*4).Draw(t, "pix")

		img := image.NewRGBA(image.Rect(0, 0, w, h))
		copy(img.Pix, pix)
		m := Convert(img, layout)

		for y := range h {
			for x := range w {
				c := img.RGBAAt(x, y)
				if got, want := m.Y(x, y), Luma(c.R, c.G, c.B); got != want {
					t.Fatalf("%v: Y(%d,%d) = %d, want %d", layout, x, y, got, want)
				}
				// Chroma lookups must stay in bounds for any size.
				_ = m.U(x, y)
				_ = m.V(x, y)
			}
		}
	})
}

// quad builds a 2x2 image with distinct colors so every chroma average is visible.
func quad() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	img.SetRGBA(1, 0, color.RGBA{G: 255, A: 255})
	img.SetRGBA(0, 1, color.RGBA{B: 255, A: 255})
	img.SetRGBA(1, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	return img
}

func TestChromaSubsampling(t *testing.T) {
	t.Parallel()

	u := func(x, y int) uint8 { c := quad().RGBAAt(x, y); return ChromaU(c.R, c.G, c.B) }
	v := func(x, y int) uint8 { c := quad().RGBAAt(x, y); return ChromaV(c.R, c.G, c.B) }
	u4 := uint8((int(u(0, 0)) + int(u(1, 0)) + int(u(0, 1)) + int(u(1, 1))) / 4)
	v4 := uint8((int(v(0, 0)) + int(v(1, 0)) + int(v(0, 1)) + int(v(1, 1))) / 4)

	t.Run("YV12", func(t *testing.T) {
		t.Parallel()
		m := Convert(quad(), YV12)
		for y := range 2 {
			for x := range 2 {
				assert.Equal(t, u4, m.U(x, y))
				assert.Equal(t, v4, m.V(x, y))
			}
		}
		assert.Equal(t, []byte{u4, v4}, m.Bytes()[4:])
	})

	t.Run("NV21", func(t *testing.T) {
		t.Parallel()
		m := Convert(quad(), NV21)
		// V comes first in each interleaved pair.
		assert.Equal(t, []byte{v4, u4}, m.Bytes()[4:])
		assert.Equal(t, u4, m.U(0, 1))
		assert.Equal(t, v4, m.V(1, 0))
	})

	t.Run("YUY2", func(t *testing.T) {
		t.Parallel()
		m := Convert(quad(), YUY2)
		for y := range 2 {
			uu := uint8((int(u(0, y)) + int(u(1, y))) / 2)
			vv := uint8((int(v(0, y)) + int(v(1, y))) / 2)
			assert.Equal(t, uu, m.U(0, y))
			assert.Equal(t, uu, m.U(1, y))
			assert.Equal(t, vv, m.V(0, y))
			assert.Equal(t, vv, m.V(1, y))
		}
	})

	t.Run("YUV440P", func(t *testing.T) {
		t.Parallel()
		m := Convert(quad(), YUV440P)
		for x := range 2 {
			uu := uint8((int(u(x, 0)) + int(u(x, 1))) / 2)
			vv := uint8((int(v(x, 0)) + int(v(x, 1))) / 2)
			assert.Equal(t, uu, m.U(x, 0))
			assert.Equal(t, uu, m.U(x, 1))
			assert.Equal(t, vv, m.V(x, 0))
			assert.Equal(t, vv, m.V(x, 1))
		}
	})
}

func TestOddSizeEdgesRepeatLastPixel(t *testing.T) {
	t.Parallel()

	img := solid(3, 3, color.RGBA{R: 40, G: 80, B: 120})
	img.SetRGBA(2, 2, color.RGBA{R: 250, G: 10, B: 10, A: 255})

	m := Convert(img, YV12)
	want := ChromaV(250, 10, 10)
	assert.Equal(t, want, m.V(2, 2), "lone corner block averages the clamped pixel with itself")
	assert.Equal(t, ChromaU(250, 10, 10), m.U(2, 2))
	assert.Equal(t, ChromaV(40, 80, 120), m.V(0, 0))
}

func TestConvertHonoursBoundsOffset(t *testing.T) {
	t.Parallel()

	full := solid(4, 4, color.RGBA{})
	full.SetRGBA(2, 2, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	sub, ok := full.SubImage(image.Rect(2, 2, 4, 4)).(*image.RGBA)
	require.True(t, ok)

	m := Convert(sub, YUV440P)
	assert.Equal(t, 2, m.Width())
	assert.Equal(t, uint8(235), m.Y(0, 0))
	assert.Equal(t, uint8(16), m.Y(1, 1))
}

func TestLayoutString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "NV21", NV21.String())
	assert.Equal(t, "Layout(9)", Layout(9).String())
}
