package scripting

import (
	"context"
	"testing"

	"github.com/cvpg/imageproc/pkg/pixel"
	"github.com/cvpg/imageproc/pkg/pool"
)

func newTestProcessor() (*Processor, *pool.Pool) {
	registry := newTestRegistry()
	p := pool.New(2)
	return NewProcessor(registry, p), p
}

func TestProcessor_CompileIsCachedByScriptHash(t *testing.T) {
	proc, p := newTestProcessor()
	defer p.Close()

	script := `var input = input("gray", 8); var t = threshold(input, 100);`

	id1, err := proc.Compile(context.Background(), script)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id2, err := proc.Compile(context.Background(), script)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected identical scripts to compile to the same id")
	}
}

func TestProcessor_Evaluate_SingleInput(t *testing.T) {
	proc, p := newTestProcessor()
	defer p.Close()

	script := `var input = input("gray", 8); var t = threshold(input, 100);`
	id, err := proc.Compile(context.Background(), script)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	img := pixel.NewGray8(2, 2, 0)
	img.Set(0, 0, 0, 200)

	var result Value
	var evalErr error
	proc.Evaluate(context.Background(), id, img, func(v Value, err error) {
		result, evalErr = v, err
	})
	if evalErr != nil {
		t.Fatalf("unexpected evaluate error: %v", evalErr)
	}
	if result.Image == nil {
		t.Fatal("expected a result image")
	}
	if result.Image.At(0, 0, 0) != 255 {
		t.Fatalf("expected 255, got %d", result.Image.At(0, 0, 0))
	}
}

func TestProcessor_Evaluate_WrongInputCount(t *testing.T) {
	proc, p := newTestProcessor()
	defer p.Close()

	script := `var input = input("gray", 8); var t = threshold(input, 100);`
	id, err := proc.Compile(context.Background(), script)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	img1 := pixel.NewGray8(2, 2, 0)
	img2 := pixel.NewGray8(2, 2, 0)

	var evalErr error
	proc.Evaluate2(context.Background(), id, img1, img2, func(v Value, err error) {
		evalErr = err
	})
	if evalErr == nil {
		t.Fatal("expected error when a single-input script is given two inputs")
	}
}

func TestProcessor_AddParam_AffectsEvaluation(t *testing.T) {
	proc, p := newTestProcessor()
	defer p.Close()
	proc.AddParam("cutoff_x", 2)
	proc.AddParam("cutoff_y", 2)

	params := proc.Parameters()
	if params["cutoff_x"] != 2 || params["cutoff_y"] != 2 {
		t.Fatalf("expected stored parameters to round-trip, got %v", params)
	}

	script := `var input = input("gray", 8); var h = histogram(input);`
	id, err := proc.Compile(context.Background(), script)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	img := pixel.NewGray8(4, 4, 0)
	var result Value
	var evalErr error
	proc.Evaluate(context.Background(), id, img, func(v Value, err error) {
		result, evalErr = v, err
	})
	if evalErr != nil {
		t.Fatalf("unexpected error: %v", evalErr)
	}
	if result.Hist == nil {
		t.Fatal("expected a histogram result")
	}
	if result.Hist.Total() != 16 {
		t.Fatalf("expected total 16, got %v", result.Hist.Total())
	}
}

func TestProcessor_EvaluateConvertIf_ConvertsBackToInputTag(t *testing.T) {
	proc, p := newTestProcessor()
	defer p.Close()

	script := `var input = input("rgb", 8); var g = convert_to_gray(input, "use_red");`
	id, err := proc.Compile(context.Background(), script)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	img := pixel.NewRGB8(2, 2, 0)
	img.Set(0, 0, 0, 77)

	var result Value
	var evalErr error
	proc.EvaluateConvertIf(context.Background(), id, img, func(v Value, err error) {
		result, evalErr = v, err
	})
	if evalErr != nil {
		t.Fatalf("unexpected error: %v", evalErr)
	}
	if result.Type != Rgb8Type {
		t.Fatalf("expected the result to be converted back to rgb8, got %v", result.Type)
	}
	if result.Image.At(0, 0, 0) != 77 {
		t.Fatalf("expected channel 0 to retain the gray value, got %d", result.Image.At(0, 0, 0))
	}
}

func TestProcessor_UnknownCompileID(t *testing.T) {
	proc, p := newTestProcessor()
	defer p.Close()

	img := pixel.NewGray8(1, 1, 0)
	var evalErr error
	proc.Evaluate(context.Background(), CompileID("bogus"), img, func(v Value, err error) {
		evalErr = err
	})
	if evalErr == nil {
		t.Fatal("expected error for an unknown compile id")
	}
}
