// Package yuv converts RGB images into the subsampled YUV byte layouts used by the
// Robot and PD families.
package yuv

import (
	"fmt"
	"image"
	"math"
)

// Layout selects how luma and chroma bytes are arranged.
type Layout int

const (
	// YV12 is planar 4:2:0: a Y plane, then U and V planes of (w/2)x(h/2).
	YV12 Layout = iota
	// NV21 is semi-planar 4:2:0: a Y plane, then one V,U byte pair per 2x2 block.
	NV21
	// YUY2 is packed 4:2:2: Y0 U Y1 V for each horizontal pixel pair.
	YUY2
	// YUV440P is planar 4:4:0: chroma is averaged over vertical pixel pairs only.
	YUV440P
)

func (l Layout) String() string {
	switch l {
	case YV12:
		return "YV12"
	case NV21:
		return "NV21"
	case YUY2:
		return "YUY2"
	case YUV440P:
		return "YUV440P"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// Image is an immutable YUV view of an RGB image.
type Image struct {
	layout Layout
	width  int
	height int
	// stride is the width rounded up to even, so odd widths still have whole chroma pairs.
	stride int
	data   []byte
}

func clamp(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Luma returns the Y component for one RGB pixel.
func Luma(r, g, b uint8) uint8 {
	return clamp(16 + (0.003906*(65.738*float64(r)+129.057*float64(g)+25.064*float64(b))))
}

// ChromaU returns the U (Cb) component for one RGB pixel.
func ChromaU(r, g, b uint8) uint8 {
	return clamp(128 + (0.003906*(-37.945*float64(r)-74.494*float64(g)+112.439*float64(b))))
}

// ChromaV returns the V (Cr) component for one RGB pixel.
func ChromaV(r, g, b uint8) uint8 {
	return clamp(128 + (0.003906*(112.439*float64(r)-94.154*float64(g)-18.285*float64(b))))
}

type rgbSource struct {
	img  *image.RGBA
	w, h int
}

func (s rgbSource) at(x, y int) (r, g, b uint8) {
	x = min(x, s.w-1)
	y = min(y, s.h-1)
	b0 := s.img.Bounds().Min
	i := s.img.PixOffset(b0.X+x, b0.Y+y)
	p := s.img.Pix[i : i+3 : i+3]
	return p[0], p[1], p[2]
}

func (s rgbSource) y(x, y int) uint8 { return Luma(s.at(x, y)) }
func (s rgbSource) u(x, y int) uint8 { return ChromaU(s.at(x, y)) }
func (s rgbSource) v(x, y int) uint8 { return ChromaV(s.at(x, y)) }

// avg2 and avg4 truncate.
func avg2(a, b uint8) uint8       { return uint8((int(a) + int(b)) / 2) }
func avg4(a, b, c, d uint8) uint8 { return uint8((int(a) + int(b) + int(c) + int(d)) / 4) }

// block averages a chroma function over the 2x2 block whose top-left corner is (x, y).
func block(f func(x, y int) uint8, x, y int) uint8 {
	return avg4(f(x, y), f(x+1, y), f(x, y+1), f(x+1, y+1))
}

// Convert builds a YUV view of src in the requested layout. Pixels past the right or
// bottom edge are treated as copies of the last column or row.
func Convert(src *image.RGBA, layout Layout) *Image {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	m := &Image{layout: layout, width: w, height: h, stride: (w + 1) &^ 1}
	if w == 0 || h == 0 {
		return m
	}
	s := rgbSource{img: src, w: w, h: h}

	switch layout {
	case YV12:
		m.convertYV12(s)
	case NV21:
		m.convertNV21(s)
	case YUY2:
		m.convertYUY2(s)
	case YUV440P:
		m.convert440(s)
	default:
		panic(fmt.Sprintf("yuv: unknown layout %d", int(layout)))
	}
	return m
}

func (m *Image) lumaPlane(s rgbSource) {
	for y := range m.height {
		row := m.data[y*m.width : (y+1)*m.width]
		for x := range row {
			row[x] = s.y(x, y)
		}
	}
}

func (m *Image) convertYV12(s rgbSource) {
	cw, ch := m.stride/2, (m.height+1)/2
	m.data = make([]byte, m.width*m.height+2*cw*ch)
	m.lumaPlane(s)
	uPlane := m.data[m.width*m.height:]
	vPlane := uPlane[cw*ch:]
	for y := 0; y < m.height; y += 2 {
		for x := 0; x < m.width; x += 2 {
			i := cw*(y/2) + x/2
			uPlane[i] = block(s.u, x, y)
			vPlane[i] = block(s.v, x, y)
		}
	}
}

func (m *Image) convertNV21(s rgbSource) {
	ch := (m.height + 1) / 2
	m.data = make([]byte, m.width*m.height+m.stride*ch)
	m.lumaPlane(s)
	chroma := m.data[m.width*m.height:]
	for y := 0; y < m.height; y += 2 {
		for x := 0; x < m.width; x += 2 {
			i := m.stride*(y/2) + x
			chroma[i] = block(s.v, x, y)
			chroma[i+1] = block(s.u, x, y)
		}
	}
}

func (m *Image) convertYUY2(s rgbSource) {
	m.data = make([]byte, 2*m.stride*m.height)
	for y := range m.height {
		row := m.data[2*m.stride*y:]
		for x := 0; x < m.width; x += 2 {
			row[2*x] = s.y(x, y)
			row[2*x+1] = avg2(s.u(x, y), s.u(x+1, y))
			row[2*x+2] = s.y(min(x+1, m.width-1), y)
			row[2*x+3] = avg2(s.v(x, y), s.v(x+1, y))
		}
	}
}

func (m *Image) convert440(s rgbSource) {
	ch := (m.height + 1) / 2
	m.data = make([]byte, m.width*m.height+2*m.width*ch)
	m.lumaPlane(s)
	uPlane := m.data[m.width*m.height:]
	vPlane := uPlane[m.width*ch:]
	for y := 0; y < m.height; y += 2 {
		for x := range m.width {
			i := m.width*(y/2) + x
			uPlane[i] = avg2(s.u(x, y), s.u(x, y+1))
			vPlane[i] = avg2(s.v(x, y), s.v(x, y+1))
		}
	}
}

func (m *Image) Layout() Layout { return m.layout }
func (m *Image) Width() int     { return m.width }
func (m *Image) Height() int    { return m.height }

// Bytes exposes the underlying buffer. Callers must not modify it.
func (m *Image) Bytes() []byte { return m.data }

// Y returns the luma byte for (x, y).
func (m *Image) Y(x, y int) uint8 {
	if m.layout == YUY2 {
		return m.data[2*m.stride*y+2*x]
	}
	return m.data[m.width*y+x]
}

// U returns the chroma-blue byte covering (x, y).
func (m *Image) U(x, y int) uint8 {
	switch m.layout {
	case YV12:
		cw := m.stride / 2
		return m.data[m.width*m.height+cw*(y/2)+x/2]
	case NV21:
		return m.data[m.width*m.height+m.stride*(y>>1)+(x|1)]
	case YUY2:
		return m.data[2*m.stride*y+(x&^1)*2+1]
	default:
		return m.data[m.width*m.height+m.width*(y>>1)+x]
	}
}

// V returns the chroma-red byte covering (x, y).
func (m *Image) V(x, y int) uint8 {
	switch m.layout {
	case YV12:
		cw, ch := m.stride/2, (m.height+1)/2
		return m.data[m.width*m.height+cw*ch+cw*(y/2)+x/2]
	case NV21:
		return m.data[m.width*m.height+m.stride*(y>>1)+(x&^1)]
	case YUY2:
		return m.data[2*m.stride*y+(x&^1)*2+3]
	default:
		ch := (m.height + 1) / 2
		return m.data[m.width*m.height+m.width*ch+m.width*(y>>1)+x]
	}
}
