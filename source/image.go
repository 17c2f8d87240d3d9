// Package source produces the images that get encoded: files on disk, a webcam
// snapshot, or a test card, scaled into a protocol's native frame.
package source

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var extensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// IsImage reports whether path has an extension Load can decode.
func IsImage(path string) bool {
	return extensions[strings.ToLower(filepath.Ext(path))]
}

// Load decodes the image at path.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// Fit scales src to fill as much of a w×h frame as its aspect ratio allows and
// centers it on black.
func Fit(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	sb := src.Bounds()
	iw, ih := sb.Dx(), sb.Dy()
	if iw == 0 || ih == 0 {
		return dst
	}
	draw.CatmullRom.Scale(dst, fitRect(iw, ih, w, h), src, sb, draw.Over, nil)
	return dst
}

// fitRect is the largest iw:ih rectangle that fits w×h, centered.
func fitRect(iw, ih, w, h int) image.Rectangle {
	if iw*h < w*ih {
		sw := iw * h / ih
		x := (w - sw) / 2
		return image.Rect(x, 0, x+sw, h)
	}
	sh := ih * w / iw
	y := (h - sh) / 2
	return image.Rect(0, y, w, y+sh)
}
