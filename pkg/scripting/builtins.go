// Built-in operation registrations: input, convert_to_gray, histogram,
// otsu_threshold, threshold, histogram_equalization. Each Compile closure
// runs the matching pkg/kernels function through the tiling engine and
// stores the result into the processing context, per spec §4.5 step 4.
//
// Grounded on original_source/.../scripting/algorithms/{convert_to_gray,
// histogram_equalization}.cpp for the operation shape (fetch args, load
// inputs, dispatch kernel, store result) and on the teacher's
// pkg/operators/builtin/{scale,trim}.go for the "one operation, one
// registration, full validation" idiom.
package scripting

import (
	"context"
	"time"

	"github.com/cvpg/imageproc/pkg/kernels"
	"github.com/cvpg/imageproc/pkg/pixel"
	"github.com/cvpg/imageproc/pkg/pool"
	"github.com/cvpg/imageproc/pkg/pperr"
)

// cutoffsFrom reads cutoff_x/cutoff_y from the context's parameters (set by
// the image processor from its global parameters, spec §4.6), defaulting to
// spec §4.3's 512.
func cutoffsFrom(pctx *Context) (int, int) {
	cx, cy := 512, 512
	if v, ok := pctx.Parameter("cutoff_x"); ok {
		if n, ok := v.(int); ok {
			cx = n
		}
	}
	if v, ok := pctx.Parameter("cutoff_y"); ok {
		if n, ok := v.(int); ok {
			cy = n
		}
	}
	return cx, cy
}

func timed(pctx *Context, id uint32, v Value, start time.Time) {
	pctx.Store(id, v, time.Since(start))
}

// RegisterBuiltins installs every built-in operation into registry.
func RegisterBuiltins(registry *Registry) {
	registerInput(registry)
	registerConvertToGray(registry)
	registerHistogram(registry)
	registerOtsuThreshold(registry)
	registerThreshold(registry)
	registerHistogramEqualization(registry)
}

func registerInput(registry *Registry) {
	registry.Register(&Descriptor{
		Name:     "input",
		Category: "source",
		MinArgs:  2,
		MaxArgs:  2,
		Parameters: []ParamDescriptor{
			{Name: "channel_kind", LiteralType: StringType, EnumValues: []string{"gray", "rgb"}},
			{Name: "bit_depth", LiteralType: IntType},
		},
		ResultType: func(args []Arg, argTypes []ItemType) (ItemType, error) {
			bitDepth := args[1].Literal.Int
			if bitDepth != 8 {
				return Invalid, pperr.New(pperr.InvalidParameter, "input: only 8-bit depth is supported, got %d", bitDepth)
			}
			if args[0].Literal.Str == "rgb" {
				return Rgb8Type, nil
			}
			return Gray8Type, nil
		},
		Compile: func(item Item) (Handler, error) {
			return func(ctx context.Context, pctx *Context, p *pool.Pool) error {
				// The image processor injects the externally supplied
				// image under this item's id before running the plan
				// (spec §4.7 evaluate: "inject image under the input item
				// id"); the input operation itself performs no work.
				v := pctx.Load(item.ID)
				if v.Type == Invalid {
					return pperr.New(pperr.Internal, "input item %d was not supplied before evaluation", item.ID)
				}
				return nil
			}, nil
		},
	})
}

func registerConvertToGray(registry *Registry) {
	registry.Register(&Descriptor{
		Name:     "convert_to_gray",
		Category: "conversion",
		MinArgs:  2,
		MaxArgs:  2,
		Parameters: []ParamDescriptor{
			{Name: "image", AdmissibleRef: []ItemType{Gray8Type, Rgb8Type}},
			{Name: "mode", LiteralType: StringType, EnumValues: []string{"use_red", "use_green", "use_blue", "calc_average"}},
		},
		ResultType: func(args []Arg, argTypes []ItemType) (ItemType, error) {
			return Gray8Type, nil
		},
		Compile: func(item Item) (Handler, error) {
			modeStr := item.Arguments[1].Literal.Str
			mode, err := pixel.ParseRGBMode(modeStr)
			if err != nil {
				return nil, err
			}
			srcID := item.Arguments[0].Ref

			return func(ctx context.Context, pctx *Context, p *pool.Pool) error {
				start := time.Now()
				in := pctx.Load(srcID)
				if in.Image == nil {
					return pperr.New(pperr.Internal, "convert_to_gray: input item %d has no image", srcID)
				}

				if in.Type == Gray8Type {
					timed(pctx, item.ID, Value{Type: Gray8Type, Image: in.Image}, start)
					return nil
				}

				cx, cy := cutoffsFrom(pctx)
				out, err := kernels.ConvertToGray(ctx, p, in.Image, mode, cx, cy)
				if err != nil {
					return err
				}
				timed(pctx, item.ID, Value{Type: Gray8Type, Image: out}, start)
				return nil
			}, nil
		},
	})
}

func registerHistogram(registry *Registry) {
	registry.Register(&Descriptor{
		Name:     "histogram",
		Category: "reduction",
		MinArgs:  1,
		MaxArgs:  1,
		Parameters: []ParamDescriptor{
			{Name: "image", AdmissibleRef: []ItemType{Gray8Type}},
		},
		ResultType: func(args []Arg, argTypes []ItemType) (ItemType, error) {
			return HistogramType, nil
		},
		Compile: func(item Item) (Handler, error) {
			srcID := item.Arguments[0].Ref

			return func(ctx context.Context, pctx *Context, p *pool.Pool) error {
				start := time.Now()
				in := pctx.Load(srcID)
				if in.Image == nil {
					return pperr.New(pperr.Internal, "histogram: input item %d has no image", srcID)
				}

				cx, cy := cutoffsFrom(pctx)
				h, err := kernels.Histogram(ctx, p, in.Image, cx, cy)
				if err != nil {
					return err
				}
				timed(pctx, item.ID, Value{Type: HistogramType, Hist: h}, start)
				return nil
			}, nil
		},
	})
}

func registerOtsuThreshold(registry *Registry) {
	registry.Register(&Descriptor{
		Name:     "otsu_threshold",
		Category: "analysis",
		MinArgs:  1,
		MaxArgs:  1,
		Parameters: []ParamDescriptor{
			{Name: "histogram", AdmissibleRef: []ItemType{HistogramType}},
		},
		ResultType: func(args []Arg, argTypes []ItemType) (ItemType, error) {
			return IntType, nil
		},
		Compile: func(item Item) (Handler, error) {
			srcID := item.Arguments[0].Ref

			return func(ctx context.Context, pctx *Context, p *pool.Pool) error {
				start := time.Now()
				in := pctx.Load(srcID)
				if in.Hist == nil {
					return pperr.New(pperr.Internal, "otsu_threshold: input item %d has no histogram", srcID)
				}

				t, err := kernels.OtsuThreshold(in.Hist)
				if err != nil {
					return err
				}
				timed(pctx, item.ID, Value{Type: IntType, Int: int64(t)}, start)
				return nil
			}, nil
		},
	})
}

func registerThreshold(registry *Registry) {
	registry.Register(&Descriptor{
		Name:     "threshold",
		Category: "filter",
		MinArgs:  2,
		MaxArgs:  2,
		Parameters: []ParamDescriptor{
			{Name: "image", AdmissibleRef: []ItemType{Gray8Type}},
			{Name: "level", LiteralType: IntType, MinInt: int64Ptr(0), MaxInt: int64Ptr(255)},
		},
		ResultType: func(args []Arg, argTypes []ItemType) (ItemType, error) {
			return MaskType, nil
		},
		Compile: func(item Item) (Handler, error) {
			srcID := item.Arguments[0].Ref
			level := byte(item.Arguments[1].Literal.Int)

			return func(ctx context.Context, pctx *Context, p *pool.Pool) error {
				start := time.Now()
				in := pctx.Load(srcID)
				if in.Image == nil {
					return pperr.New(pperr.Internal, "threshold: input item %d has no image", srcID)
				}

				cx, cy := cutoffsFrom(pctx)
				out, err := kernels.Threshold(ctx, p, in.Image, level, cx, cy)
				if err != nil {
					return err
				}
				timed(pctx, item.ID, Value{Type: MaskType, Image: out}, start)
				return nil
			}, nil
		},
	})
}

func registerHistogramEqualization(registry *Registry) {
	registry.Register(&Descriptor{
		Name:     "histogram_equalization",
		Category: "filter",
		MinArgs:  2,
		MaxArgs:  2,
		Parameters: []ParamDescriptor{
			{Name: "image", AdmissibleRef: []ItemType{Gray8Type}},
			{Name: "histogram", AdmissibleRef: []ItemType{HistogramType}},
		},
		ResultType: func(args []Arg, argTypes []ItemType) (ItemType, error) {
			return Gray8Type, nil
		},
		Compile: func(item Item) (Handler, error) {
			imgID := item.Arguments[0].Ref
			histID := item.Arguments[1].Ref

			return func(ctx context.Context, pctx *Context, p *pool.Pool) error {
				start := time.Now()
				in := pctx.Load(imgID)
				if in.Image == nil {
					return pperr.New(pperr.Internal, "histogram_equalization: input item %d has no image", imgID)
				}
				hv := pctx.Load(histID)
				if hv.Hist == nil {
					return pperr.New(pperr.Internal, "histogram_equalization: input item %d has no histogram", histID)
				}

				cx, cy := cutoffsFrom(pctx)
				out, err := kernels.HistogramEqualization(ctx, p, in.Image, hv.Hist, cx, cy)
				if err != nil {
					return err
				}
				timed(pctx, item.ID, Value{Type: Gray8Type, Image: out}, start)
				return nil
			}, nil
		},
	})
}

func int64Ptr(v int64) *int64 { return &v }
