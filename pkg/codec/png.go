// Package codec bridges pkg/pixel's tiling-friendly, padded buffers to a
// concrete file format so the CLI and job runner are runnable end to end.
// Demuxing/muxing and video codecs are out of scope (spec's Non-goals), but
// a still-image format is the narrow exception needed to read a file in and
// write a file out; PNG via the standard library's image/png is used rather
// than a hand-rolled format, since none of the example repos import a
// third-party image codec and image/png is the idiomatic default even in
// production Go code reaching for lossless still images.
package codec

import (
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/cvpg/imageproc/pkg/pixel"
	"github.com/cvpg/imageproc/pkg/pperr"
)

// DecodePNG reads a PNG and returns an unpadded pixel.Image, gray or RGB
// depending on the source's color model.
func DecodePNG(r io.Reader) (*pixel.Image, error) {
	src, err := png.Decode(r)
	if err != nil {
		return nil, pperr.Wrap(pperr.DecodeError, err, "decode png")
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if isGray(src) {
		out := pixel.NewGray8(w, h, 0)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r16, _, _, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				out.Set(0, x, y, byte(r16>>8))
			}
		}
		return out, nil
	}

	out := pixel.NewRGB8(w, h, 0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r16, g16, b16, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			out.Set(0, x, y, byte(r16>>8))
			out.Set(1, x, y, byte(g16>>8))
			out.Set(2, x, y, byte(b16>>8))
		}
	}
	return out, nil
}

func isGray(img image.Image) bool {
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return true
	default:
		return false
	}
}

// EncodePNG writes img as a PNG, ignoring any padding.
func EncodePNG(w io.Writer, img *pixel.Image) error {
	switch img.Format {
	case pixel.Gray8:
		dst := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				dst.SetGray(x, y, color.Gray{Y: img.At(0, x, y)})
			}
		}
		if err := png.Encode(w, dst); err != nil {
			return pperr.Wrap(pperr.EncodeError, err, "encode png")
		}
		return nil
	case pixel.Rgb8:
		dst := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				dst.SetRGBA(x, y, color.RGBA{R: img.At(0, x, y), G: img.At(1, x, y), B: img.At(2, x, y), A: 0xff})
			}
		}
		if err := png.Encode(w, dst); err != nil {
			return pperr.Wrap(pperr.EncodeError, err, "encode png")
		}
		return nil
	default:
		return pperr.New(pperr.UnsupportedFormat, "unsupported pixel format %v", img.Format)
	}
}
