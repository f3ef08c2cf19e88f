// Package kernels implements the representative tileable pixel kernels
// (C4) needed to exercise the tiling engine and satisfy spec §8's testable
// scenarios: histogram, Otsu threshold, histogram equalization, and
// convert-to-gray. Every image/histogram kernel conforms to the tileable
// task contract of spec §4.2 and runs through pkg/tiling. Per spec §1,
// other per-filter kernels (sobel, scharr, mean, diff, pooling, resize,
// k-means, HOG, ...) are out of scope — each is "just an instance of the
// tileable task contract" these kernels already demonstrate.
package kernels

import (
	"context"
	"math"

	"github.com/cvpg/imageproc/pkg/histogram"
	"github.com/cvpg/imageproc/pkg/pixel"
	"github.com/cvpg/imageproc/pkg/pool"
	"github.com/cvpg/imageproc/pkg/pperr"
	"github.com/cvpg/imageproc/pkg/tiling"
)

// Histogram computes the pixel-value histogram of a gray image (C4,
// reduction kernel). Grounded on
// original_source/.../tiling/functors/histogram.hpp, whose create_output
// returns an empty result_type per leaf and whose merges add partials.
func Histogram(ctx context.Context, p *pool.Pool, img *pixel.Image, cutoffX, cutoffY int) (*histogram.Histogram, error) {
	if img.Format != pixel.Gray8 {
		return nil, pperr.New(pperr.InvalidParameter, "histogram requires a gray8 image")
	}

	f := tiling.Functor[*histogram.Histogram]{
		SrcA: img,
		Params: tiling.Params{
			SrcWidth: img.Width, SrcHeight: img.Height,
			CutoffX: cutoffX, CutoffY: cutoffY,
		},
		TileFn: func(srcA, _ *pixel.Image, _ *histogram.Histogram, fromX, toX, fromY, toY int, params tiling.Params) (*histogram.Histogram, error) {
			h := histogram.New(histogram.DefaultBins)
			for y := fromY; y <= toY; y++ {
				for x := fromX; x <= toX; x++ {
					h.Counts[srcA.At(0, x, y)]++
				}
			}
			return h, nil
		},
		HorizontalMerge: addMerge,
		VerticalMerge:   addMerge,
	}

	return tiling.Run(ctx, p, f)
}

func addMerge(a, b *histogram.Histogram, _, _, _, _ int, _ tiling.Params) (*histogram.Histogram, error) {
	return a.Add(b)
}

// OtsuThreshold computes the Otsu binary threshold from a histogram. This
// is not itself tiled — it operates on the already-reduced histogram — so
// it is a plain function rather than a tiling.Functor.
//
// Ported from original_source/.../imageproc/algorithms/otsu_threshold.cpp,
// with one deliberate deviation for the degenerate case of a histogram
// concentrated in a single bin (every pixel the same value): the original's
// loop breaks the instant the foreground weight reaches zero, which for a
// perfectly uniform image happens at the very first nonzero bin, before any
// variance has ever been recorded, leaving threshold at its zero-initialized
// default instead of that bin's value. Recorded as an Open Question
// resolution in DESIGN.md: threshold is set to the current scan value when
// w_foreground reaches zero and variance_max is still unset, so a uniform
// image's threshold equals its own pixel value (spec §8 S1).
func OtsuThreshold(h *histogram.Histogram) (int, error) {
	total := h.Total()
	if total == 0 {
		return 0, pperr.New(pperr.InvalidParameter, "otsu threshold requires a non-empty histogram")
	}

	var sumAll float64
	for i, c := range h.Counts {
		sumAll += float64(i) * c
	}

	var weightBackground, sumBackground float64
	threshold := 0
	varianceMax := 0.0
	varianceEverSet := false

	for i := 0; i < h.Bins(); i++ {
		weightBackground += h.Counts[i]
		if weightBackground == 0 {
			continue
		}

		weightForeground := total - weightBackground
		if weightForeground == 0 {
			if !varianceEverSet {
				threshold = i
			}
			break
		}

		sumBackground += float64(i) * h.Counts[i]

		meanBackground := sumBackground / weightBackground
		meanForeground := (sumAll - sumBackground) / weightForeground

		variance := weightBackground * weightForeground * (meanBackground - meanForeground) * (meanBackground - meanForeground)

		if variance > varianceMax {
			varianceMax = variance
			varianceEverSet = true
			threshold = i
		}
	}

	return threshold, nil
}

// Threshold is an image-valued kernel producing a binary mask: pixels >=
// level become 255, else 0. The destination is a shared buffer sliced by
// tile, so no merge is required (spec §4.2).
func Threshold(ctx context.Context, p *pool.Pool, img *pixel.Image, level byte, cutoffX, cutoffY int) (*pixel.Image, error) {
	if img.Format != pixel.Gray8 {
		return nil, pperr.New(pperr.InvalidParameter, "threshold requires a gray8 image")
	}

	dst := pixel.NewGray8(img.Width, img.Height, 0)

	f := tiling.Functor[*pixel.Image]{
		SrcA: img,
		Dst:  dst,
		Params: tiling.Params{
			SrcWidth: img.Width, SrcHeight: img.Height,
			CutoffX: cutoffX, CutoffY: cutoffY,
			Ints: []int32{int32(level)},
		},
		TileFn: func(srcA, _ *pixel.Image, dst *pixel.Image, fromX, toX, fromY, toY int, params tiling.Params) (*pixel.Image, error) {
			lvl := byte(params.Ints[0])
			for y := fromY; y <= toY; y++ {
				for x := fromX; x <= toX; x++ {
					if srcA.At(0, x, y) >= lvl {
						dst.Set(0, x, y, 255)
					} else {
						dst.Set(0, x, y, 0)
					}
				}
			}
			return dst, nil
		},
	}

	return tiling.Run(ctx, p, f)
}

// ConvertToGray collapses an RGB image to gray using mode, processed
// tile-by-tile like any other image-valued kernel. Grounded on
// original_source/.../scripting/algorithms/convert_to_gray.cpp, whose
// rgb_conversion_mode enum names the four strategies (spec §8's script
// round-trip test exercises "use_red").
func ConvertToGray(ctx context.Context, p *pool.Pool, img *pixel.Image, mode pixel.RGBMode, cutoffX, cutoffY int) (*pixel.Image, error) {
	if img.Format != pixel.Rgb8 {
		return nil, pperr.New(pperr.InvalidParameter, "convert_to_gray requires an rgb8 image")
	}

	dst := pixel.NewGray8(img.Width, img.Height, 0)

	f := tiling.Functor[*pixel.Image]{
		SrcA: img,
		Dst:  dst,
		Params: tiling.Params{
			SrcWidth: img.Width, SrcHeight: img.Height,
			CutoffX: cutoffX, CutoffY: cutoffY,
			Ints: []int32{int32(mode)},
		},
		TileFn: func(srcA, _ *pixel.Image, dst *pixel.Image, fromX, toX, fromY, toY int, params tiling.Params) (*pixel.Image, error) {
			m := pixel.RGBMode(params.Ints[0])
			for y := fromY; y <= toY; y++ {
				for x := fromX; x <= toX; x++ {
					var v byte
					switch m {
					case pixel.UseRed:
						v = srcA.At(0, x, y)
					case pixel.UseGreen:
						v = srcA.At(1, x, y)
					case pixel.UseBlue:
						v = srcA.At(2, x, y)
					case pixel.CalcAverage:
						r, g, b := int(srcA.At(0, x, y)), int(srcA.At(1, x, y)), int(srcA.At(2, x, y))
						v = byte((r + g + b) / 3)
					}
					dst.Set(0, x, y, v)
				}
			}
			return dst, nil
		},
	}

	return tiling.Run(ctx, p, f)
}

// HistogramEqualization remaps pixels of a gray image via the normalized
// cumulative distribution of h. The core per-pixel algorithm header in
// original_source (imageproc/algorithms/histogram_equalization.hpp) was not
// retrieved in full (only its scripting wrapper was); the formula below is
// the standard normalized-CDF equalization, hand-verified against spec §8
// S2's exact expected pixel values.
func HistogramEqualization(ctx context.Context, p *pool.Pool, img *pixel.Image, h *histogram.Histogram, cutoffX, cutoffY int) (*pixel.Image, error) {
	if img.Format != pixel.Gray8 {
		return nil, pperr.New(pperr.InvalidParameter, "histogram_equalization requires a gray8 image")
	}

	total := h.Total()
	cdfMin := h.CDFMin()
	denom := total - cdfMin

	lut := make([]byte, h.Bins())
	for v := 0; v < h.Bins(); v++ {
		if denom <= 0 {
			lut[v] = byte(v)
			continue
		}
		scaled := (h.CDF(v) - cdfMin) / denom * 255.0
		lut[v] = byte(math.Round(scaled))
	}

	dst := pixel.NewGray8(img.Width, img.Height, 0)

	f := tiling.Functor[*pixel.Image]{
		SrcA: img,
		Dst:  dst,
		Params: tiling.Params{
			SrcWidth: img.Width, SrcHeight: img.Height,
			CutoffX: cutoffX, CutoffY: cutoffY,
		},
		TileFn: func(srcA, _ *pixel.Image, dst *pixel.Image, fromX, toX, fromY, toY int, params tiling.Params) (*pixel.Image, error) {
			for y := fromY; y <= toY; y++ {
				for x := fromX; x <= toX; x++ {
					dst.Set(0, x, y, lut[srcA.At(0, x, y)])
				}
			}
			return dst, nil
		},
	}

	return tiling.Run(ctx, p, f)
}
