package source

import "image"

// Seven vertical bars at 75% level, left to right.
var barColors = [7][3]uint8{
	{192, 192, 192}, // Gray
	{192, 192, 0},   // Yellow
	{0, 192, 192},   // Cyan
	{0, 192, 0},     // Green
	{192, 0, 192},   // Magenta
	{192, 0, 0},     // Red
	{0, 0, 192},     // Blue
}

// ColorBars returns a w×h color bar test card.
func ColorBars(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	barWidth := max(w/7, 1)
	for y := range h {
		for x := range w {
			barIdx := min(x/barWidth, 6)
			i := img.PixOffset(x, y)
			img.Pix[i] = barColors[barIdx][0]
			img.Pix[i+1] = barColors[barIdx][1]
			img.Pix[i+2] = barColors[barIdx][2]
			img.Pix[i+3] = 0xff
		}
	}
	return img
}
