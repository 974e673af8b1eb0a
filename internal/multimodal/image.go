package multimodal

import (
	"bytes"
	"image"
	"image/jpeg"

	// Decoders registered for image.Decode.
	_ "image/gif"
	_ "image/png"

	"github.com/cockroachdb/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MediaTypeJPEG is the media type of every normalized image.
const MediaTypeJPEG = "image/jpeg"

// Normalize decodes an image, flattens any transparency onto white, scales
// it down so neither side exceeds maxDim and re-encodes it as JPEG.
// Images already within bounds are not upscaled.
func Normalize(data []byte, maxDim, quality int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decoding image")
	}

	b := src.Bounds()
	w, h := fit(b.Dx(), b.Dy(), maxDim)
	if w == 0 || h == 0 {
		return nil, errors.New("image has no pixels")
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, errors.Wrap(err, "encoding jpeg")
	}
	return buf.Bytes(), nil
}

// fit returns w,h scaled so that the larger side is at most maxDim,
// preserving the aspect ratio.
func fit(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	if w >= h {
		nh := h * maxDim / w
		if nh < 1 {
			nh = 1
		}
		return maxDim, nh
	}
	nw := w * maxDim / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxDim
}
