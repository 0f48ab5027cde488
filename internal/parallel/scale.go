package parallel

import (
	"image"

	"golang.org/x/image/draw"
)

// MinBandRows is the smallest band height worth handing to a worker.
const MinBandRows = 32

// Scale scales all of src onto all of dst, splitting dst into horizontal
// bands scaled concurrently on p. Every band maps through the full
// destination rectangle, so the result matches a single Scale call.
// A nil pool scales on the calling goroutine.
func Scale(p *Pool, s draw.Scaler, dst *image.RGBA, src image.Image) {
	dr, sr := dst.Bounds(), src.Bounds()
	bands := Bands(dr, p)
	if len(bands) <= 1 {
		s.Scale(dst, dr, src, sr, draw.Src, nil)
		return
	}
	work := make([]func(), len(bands))
	for i, band := range bands {
		sub := dst.SubImage(band).(*image.RGBA)
		work[i] = func() {
			s.Scale(sub, dr, src, sr, draw.Src, nil)
		}
	}
	p.Run(work)
}

// Bands splits r into at most one band per worker, each at least
// MinBandRows tall except possibly the last.
func Bands(r image.Rectangle, p *Pool) []image.Rectangle {
	n := 1
	if p != nil && p.Running() {
		n = min(p.Workers(), r.Dy()/MinBandRows)
	}
	if n <= 1 {
		return []image.Rectangle{r}
	}
	rows := (r.Dy() + n - 1) / n
	out := make([]image.Rectangle, 0, n)
	for y := r.Min.Y; y < r.Max.Y; y += rows {
		out = append(out, image.Rect(r.Min.X, y, r.Max.X, min(y+rows, r.Max.Y)))
	}
	return out
}
