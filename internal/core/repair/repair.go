// Package repair rebuilds degraded 2D-code scans into a clean black/white raster
// that a barcode reader has a better chance of decoding.
package repair

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// Options tunes the repair pipeline. DefaultOptions matches the values the
// decoder uses in production.
type Options struct {
	ContrastGain   float64
	ContrastOffset float64

	BilateralDiameter int
	SigmaColor        float64
	SigmaSpace        float64

	AdaptiveBlock int
	AdaptiveC     float64

	// Gray fill: a pixel with MinGray < v < MaxGray that is still white in the
	// binary image turns black when at least FillNeighbors of its 8 neighbours are black.
	MinGray, MaxGray uint8
	FillNeighbors    int
}

func DefaultOptions() Options {
	return Options{
		ContrastGain:      1.2,
		ContrastOffset:    -5,
		BilateralDiameter: 9,
		SigmaColor:        75,
		SigmaSpace:        75,
		AdaptiveBlock:     15,
		AdaptiveC:         3,
		MinGray:           80,
		MaxGray:           180,
		FillNeighbors:     3,
	}
}

// Repair runs the default pipeline. It never fails: a nil or empty input
// yields a 1x1 blank image.
func Repair(img image.Image) *image.Gray {
	return RepairWith(img, DefaultOptions())
}

func RepairWith(img image.Image, o Options) *image.Gray {
	if img == nil || img.Bounds().Empty() {
		return image.NewGray(image.Rect(0, 0, 1, 1))
	}

	gray := Grayscale(img)
	contrast := adjustContrast(gray, o.ContrastGain, o.ContrastOffset)
	filtered := bilateral(contrast, o.BilateralDiameter, o.SigmaColor, o.SigmaSpace)

	otsu := threshold(filtered, otsuLevel(filtered))
	adaptive := adaptiveGaussian(filtered, o.AdaptiveBlock, o.AdaptiveC)
	combined := and(otsu, adaptive)

	filled := fillGray(filtered, combined, o)

	square := rect(2, 2)
	cross := ellipse3()
	out := closing(filled, square)
	out = dilate(out, cross)
	out = erode(out, cross)
	out = opening(out, square)
	return out
}

// Grayscale converts img to an 8-bit gray raster anchored at the origin.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if g, ok := img.(*image.Gray); ok {
		draw.Draw(dst, dst.Bounds(), g, b.Min, draw.Src)
		return dst
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Pix[y*dst.Stride+x] = color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
		}
	}
	return dst
}

func clamp(v float64) uint8 {
	v = math.Round(v)
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

func adjustContrast(src *image.Gray, gain, offset float64) *image.Gray {
	dst := image.NewGray(src.Rect)
	for i, v := range src.Pix {
		dst.Pix[i] = clamp(float64(v)*gain + offset)
	}
	return dst
}

// reflect101 maps an out-of-range coordinate back into [0,n) mirroring around the edge pixel.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

func replicate(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// bilateral smooths src while keeping strong edges; the window is the disc of diameter d.
func bilateral(src *image.Gray, d int, sigmaColor, sigmaSpace float64) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	radius := d / 2
	if radius < 1 {
		radius = 1
	}

	type tap struct {
		dx, dy int
		w      float64
	}
	var taps []tap
	spaceCoeff := -0.5 / (sigmaSpace * sigmaSpace)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			r := math.Sqrt(float64(dx*dx + dy*dy))
			if r > float64(radius) {
				continue
			}
			taps = append(taps, tap{dx, dy, math.Exp(r * r * spaceCoeff)})
		}
	}
	var colorWeight [256]float64
	colorCoeff := -0.5 / (sigmaColor * sigmaColor)
	for i := range colorWeight {
		colorWeight[i] = math.Exp(float64(i*i) * colorCoeff)
	}

	dst := image.NewGray(src.Rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			center := int(src.Pix[y*src.Stride+x])
			var sum, norm float64
			for _, t := range taps {
				v := int(src.Pix[reflect101(y+t.dy, h)*src.Stride+reflect101(x+t.dx, w)])
				diff := v - center
				if diff < 0 {
					diff = -diff
				}
				wt := t.w * colorWeight[diff]
				sum += wt * float64(v)
				norm += wt
			}
			dst.Pix[y*dst.Stride+x] = clamp(sum / norm)
		}
	}
	return dst
}

// otsuLevel picks the global threshold that maximises between-class variance.
func otsuLevel(src *image.Gray) uint8 {
	var hist [256]float64
	for _, v := range src.Pix {
		hist[v]++
	}
	total := float64(len(src.Pix))
	var sumAll float64
	for i, c := range hist {
		sumAll += float64(i) * c
	}

	var (
		best    uint8
		bestVar = -1.0
		wB, sB  float64
	)
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sB += float64(t) * hist[t]
		mB := sB / wB
		mF := (sumAll - sB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar = between
			best = uint8(t)
		}
	}
	return best
}

func threshold(src *image.Gray, level uint8) *image.Gray {
	dst := image.NewGray(src.Rect)
	for i, v := range src.Pix {
		if v > level {
			dst.Pix[i] = 255
		}
	}
	return dst
}

func gaussianKernel(size int) []float64 {
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	k := make([]float64, size)
	var sum float64
	half := size / 2
	for i := range k {
		x := float64(i - half)
		k[i] = math.Exp(-(x * x) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// adaptiveGaussian marks a pixel white when it is brighter than its
// Gaussian-weighted neighbourhood mean minus c.
func adaptiveGaussian(src *image.Gray, block int, c float64) *image.Gray {
	if block%2 == 0 {
		block++
	}
	w, h := src.Rect.Dx(), src.Rect.Dy()
	k := gaussianKernel(block)
	half := block / 2

	rows := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var s float64
			for i, kv := range k {
				s += kv * float64(src.Pix[y*src.Stride+replicate(x+i-half, w)])
			}
			rows[y*w+x] = s
		}
	}

	dst := image.NewGray(src.Rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var mean float64
			for i, kv := range k {
				mean += kv * rows[replicate(y+i-half, h)*w+x]
			}
			if float64(src.Pix[y*src.Stride+x]) > math.Round(mean)-c {
				dst.Pix[y*dst.Stride+x] = 255
			}
		}
	}
	return dst
}

// and keeps a pixel white only where both inputs are white.
func and(a, b *image.Gray) *image.Gray {
	dst := image.NewGray(a.Rect)
	for i := range a.Pix {
		dst.Pix[i] = a.Pix[i] & b.Pix[i]
	}
	return dst
}

// fillGray darkens mid-gray pixels that the binarisation left white but that
// sit next to enough black neighbours. Neighbour counts read the unmodified binary image.
func fillGray(gray, binary *image.Gray, o Options) *image.Gray {
	w, h := binary.Rect.Dx(), binary.Rect.Dy()
	dst := image.NewGray(binary.Rect)
	copy(dst.Pix, binary.Pix)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			idx := y*binary.Stride + x
			g := gray.Pix[y*gray.Stride+x]
			if binary.Pix[idx] <= 20 || g <= o.MinGray || g >= o.MaxGray {
				continue
			}
			black := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if (dx != 0 || dy != 0) && binary.Pix[(y+dy)*binary.Stride+x+dx] < 127 {
						black++
					}
				}
			}
			if black >= o.FillNeighbors {
				dst.Pix[idx] = 0
			}
		}
	}
	return dst
}
