package ocr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

func luminance(img image.Image, x, y int) int {
	r, g, b, _ := img.At(x, y).RGBA()
	return int((r + g + b) / 3 >> 8)
}

// binarize applies a global threshold: carton print is dark on light paper,
// so everything at or below the threshold goes black.
func binarize(img image.Image, threshold int) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := uint8(255)
			if luminance(img, x, y) <= threshold {
				v = 0
			}
			out.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}

// adaptiveThreshold thresholds each pixel against the mean of its window,
// which survives the uneven lighting of a phone photo better than a global
// cut. Uses a summed-area table so the window mean is O(1) per pixel.
func adaptiveThreshold(img image.Image, window, bias int) *image.NRGBA {
	if window < 3 {
		window = 3
	}
	if window%2 == 0 {
		window++
	}
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	half := window / 2

	sums := make([]int, w*h)
	for y := 0; y < h; y++ {
		rowSum := 0
		for x := 0; x < w; x++ {
			rowSum += luminance(img, x, y)
			idx := y*w + x
			sums[idx] = rowSum
			if y > 0 {
				sums[idx] += sums[(y-1)*w+x]
			}
		}
	}
	window2 := func(x0, y0, x1, y1 int) int {
		if x0 < 0 {
			x0 = 0
		}
		if y0 < 0 {
			y0 = 0
		}
		if x1 >= w {
			x1 = w - 1
		}
		if y1 >= h {
			y1 = h - 1
		}
		total := sums[y1*w+x1] - sums[y0*w+x1] - sums[y1*w+x0] + sums[y0*w+x0]
		return total / ((x1 - x0 + 1) * (y1 - y0 + 1))
	}

	out := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			th := window2(x-half, y-half, x+half, y+half) - bias
			if th < 0 {
				th = 0
			}
			if luminance(img, x, y) < th {
				out.Set(x, y, color.NRGBA{0, 0, 0, 255})
			}
		}
	}
	return out
}

// dilate thickens black strokes with a 4-neighborhood pass, radius times.
// Thin carton digits otherwise break apart after thresholding.
func dilate(img *image.NRGBA, radius int) *image.NRGBA {
	neighbors := [][2]int{{0, 0}, {1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	cur := img
	for r := 0; r < radius; r++ {
		next := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				for _, d := range neighbors {
					x2, y2 := x+d[0], y+d[1]
					if x2 < 0 || y2 < 0 || x2 >= w || y2 >= h {
						continue
					}
					if rv, gv, bv, _ := cur.At(x2, y2).RGBA(); rv+gv+bv == 0 {
						next.Set(x, y, color.NRGBA{0, 0, 0, 255})
						break
					}
				}
			}
		}
		cur = next
	}
	return cur
}
