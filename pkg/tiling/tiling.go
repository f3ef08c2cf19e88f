// Package tiling implements the generic divide-and-conquer tiling engine
// (C3): given a tileable functor and image geometry, it recursively splits
// the working rectangle along the longer axis until each tile falls below
// the configured cutoffs, dispatches the leaf kernel on the worker pool,
// and merges partial results when the output isn't a shared image buffer.
//
// Grounded on original_source/src/libcvpg/imageproc/algorithms/tiling/functors/
// {image,histogram}.hpp, which show the same functor shape (inputs, a
// tile_algorithm_task leaf invocation, horizontal_merge_task/vertical_merge_task)
// driving boost::asynchronous continuations; here the split/join glue runs on
// plain goroutines (so it never occupies a worker pool slot, per spec §5's
// "container node ... never blocks a worker") and only leaf tile_fn calls are
// dispatched through pkg/pool.
package tiling

import (
	"context"

	"github.com/cvpg/imageproc/pkg/pixel"
	"github.com/cvpg/imageproc/pkg/pool"
	"github.com/cvpg/imageproc/pkg/pperr"
)

// Params bundles the geometry and free parameter vectors every tile_fn
// receives, matching spec §4.2.
type Params struct {
	SrcWidth, SrcHeight int
	DstWidth, DstHeight int
	CutoffX, CutoffY    int
	Reals               []float64
	Ints                []int32
}

// DefaultCutoff matches spec §4.3's default of 512 in both axes.
const DefaultCutoff = 512

// TileFn processes one inclusive tile rectangle. For image-valued kernels
// dst is the single shared destination image, reused across every leaf
// call, and the tile writes its own disjoint slice of it (the returned
// value may simply be dst itself). For reduction kernels (histogram) dst is
// ignored and each call builds and returns its own partial result, later
// combined by Merge/VerticalMerge.
type TileFn[O any] func(srcA, srcB *pixel.Image, dst O, fromX, toX, fromY, toY int, params Params) (O, error)

// MergeFn combines two adjacent partial results covering the same
// rectangle union.
type MergeFn[O any] func(a, b O, fromX, toX, fromY, toY int, params Params) (O, error)

// Functor bundles everything the tiling engine needs to process one region.
type Functor[O any] struct {
	SrcA, SrcB      *pixel.Image // SrcB may be nil for single-input kernels
	Dst             O            // shared destination for image-valued kernels; ignored otherwise
	TileFn          TileFn[O]
	HorizontalMerge MergeFn[O] // optional; nil means "discard, dst already holds the result"
	VerticalMerge   MergeFn[O] // optional
	Params          Params
}

// Run executes f over the full source rectangle [0,W-1] x [0,H-1].
func Run[O any](ctx context.Context, p *pool.Pool, f Functor[O]) (O, error) {
	var zero O
	if f.Params.SrcWidth <= 0 || f.Params.SrcHeight <= 0 {
		return zero, pperr.New(pperr.InvalidParameter, "tiling region must be non-empty, got %dx%d", f.Params.SrcWidth, f.Params.SrcHeight)
	}

	cutoffX, cutoffY := f.Params.CutoffX, f.Params.CutoffY
	if cutoffX <= 0 {
		cutoffX = DefaultCutoff
	}
	if cutoffY <= 0 {
		cutoffY = DefaultCutoff
	}
	f.Params.CutoffX, f.Params.CutoffY = cutoffX, cutoffY

	return runRegion(ctx, p, f, 0, f.Params.SrcWidth-1, 0, f.Params.SrcHeight-1)
}

type regionResult[O any] struct {
	v   O
	err error
}

func runRegion[O any](ctx context.Context, p *pool.Pool, f Functor[O], fromX, toX, fromY, toY int) (O, error) {
	var zero O

	if err := ctx.Err(); err != nil {
		return zero, pperr.New(pperr.Cancelled, "tiling cancelled")
	}

	width := toX - fromX + 1
	height := toY - fromY + 1

	if width > f.Params.CutoffX {
		mid := fromX + width/2 - 1

		leftCh := make(chan regionResult[O], 1)
		rightCh := make(chan regionResult[O], 1)

		go func() {
			v, err := runRegion(ctx, p, f, fromX, mid, fromY, toY)
			leftCh <- regionResult[O]{v, err}
		}()
		go func() {
			v, err := runRegion(ctx, p, f, mid+1, toX, fromY, toY)
			rightCh <- regionResult[O]{v, err}
		}()

		left, right := <-leftCh, <-rightCh
		if left.err != nil {
			return zero, left.err
		}
		if right.err != nil {
			return zero, right.err
		}

		if f.HorizontalMerge != nil {
			return f.HorizontalMerge(left.v, right.v, fromX, toX, fromY, toY, f.Params)
		}
		return right.v, nil
	}

	if height > f.Params.CutoffY {
		mid := fromY + height/2 - 1

		topCh := make(chan regionResult[O], 1)
		bottomCh := make(chan regionResult[O], 1)

		go func() {
			v, err := runRegion(ctx, p, f, fromX, toX, fromY, mid)
			topCh <- regionResult[O]{v, err}
		}()
		go func() {
			v, err := runRegion(ctx, p, f, fromX, toX, mid+1, toY)
			bottomCh <- regionResult[O]{v, err}
		}()

		top, bottom := <-topCh, <-bottomCh
		if top.err != nil {
			return zero, top.err
		}
		if bottom.err != nil {
			return zero, bottom.err
		}

		if f.VerticalMerge != nil {
			return f.VerticalMerge(top.v, bottom.v, fromX, toX, fromY, toY, f.Params)
		}
		return bottom.v, nil
	}

	fut := pool.Submit(p, ctx, func(ctx context.Context) (O, error) {
		return f.TileFn(f.SrcA, f.SrcB, f.Dst, fromX, toX, fromY, toY, f.Params)
	})
	return fut.Wait(ctx)
}
