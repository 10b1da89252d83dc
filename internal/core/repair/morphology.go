package repair

import "image"

// element is a structuring element given as offsets from its anchor.
type element []image.Point

// rect builds a w x h rectangle anchored at (w/2, h/2).
func rect(w, h int) element {
	var e element
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			e = append(e, image.Pt(x-w/2, y-h/2))
		}
	}
	return e
}

// ellipse3 is the 3x3 elliptical element, which degenerates to a cross.
func ellipse3() element {
	return element{{0, -1}, {-1, 0}, {0, 0}, {1, 0}, {0, 1}}
}

// dilate grows white regions. Out-of-bounds samples are ignored.
func dilate(src *image.Gray, e element) *image.Gray {
	return morph(src, e, -1, func(a, b uint8) bool { return b > a }, 0)
}

// erode shrinks white regions. Out-of-bounds samples are ignored.
func erode(src *image.Gray, e element) *image.Gray {
	return morph(src, e, 1, func(a, b uint8) bool { return b < a }, 255)
}

// morph applies a min or max filter. sign reflects the element so that
// erode(dilate(x)) does not shift the image for asymmetric elements.
func morph(src *image.Gray, e element, sign int, better func(cur, cand uint8) bool, init uint8) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(src.Rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := init
			for _, p := range e {
				sx, sy := x+sign*p.X, y+sign*p.Y
				if sx < 0 || sy < 0 || sx >= w || sy >= h {
					continue
				}
				if c := src.Pix[sy*src.Stride+sx]; better(v, c) {
					v = c
				}
			}
			dst.Pix[y*dst.Stride+x] = v
		}
	}
	return dst
}

func closing(src *image.Gray, e element) *image.Gray {
	return erode(dilate(src, e), e)
}

func opening(src *image.Gray, e element) *image.Gray {
	return dilate(erode(src, e), e)
}
