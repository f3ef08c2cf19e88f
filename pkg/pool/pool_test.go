package pool

import (
	"context"
	"testing"
	"time"

	"github.com/cvpg/imageproc/pkg/pperr"
)

func TestSubmit_ReturnsValue(t *testing.T) {
	p := New(2)
	defer p.Close()

	fut := Submit(p, context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})

	v, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestSubmit_PropagatesError(t *testing.T) {
	p := New(1)
	defer p.Close()

	want := pperr.New(pperr.Internal, "boom")
	fut := Submit(p, context.Background(), func(ctx context.Context) (int, error) {
		return 0, want
	})

	_, err := fut.Wait(context.Background())
	if err != want {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestSubmit_CancelledBeforeStart(t *testing.T) {
	p := New(1)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fut := Submit(p, ctx, func(ctx context.Context) (int, error) {
		t.Fatal("task body should not run when ctx is already cancelled")
		return 0, nil
	})

	_, err := fut.Wait(context.Background())
	if pperr.CodeOf(err) != pperr.Cancelled {
		t.Fatalf("expected Cancelled, got %v", err)
	}
}

func TestFuture_WaitRespectsCallerContext(t *testing.T) {
	p := New(1)
	defer p.Close()

	block := make(chan struct{})
	fut := Submit(p, context.Background(), func(ctx context.Context) (int, error) {
		<-block
		return 1, nil
	})
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := fut.Wait(ctx)
	if pperr.CodeOf(err) != pperr.Cancelled {
		t.Fatalf("expected Cancelled on caller timeout, got %v", err)
	}
}

func TestCreateContinuation_FiresAfterAllDone(t *testing.T) {
	p := New(3)
	defer p.Close()

	var futs []*Future[int]
	for i := 0; i < 3; i++ {
		i := i
		futs = append(futs, Submit(p, context.Background(), func(ctx context.Context) (int, error) {
			return i, nil
		}))
	}

	var got []Result[int]
	CreateContinuation(context.Background(), futs, func(results []Result[int]) {
		got = results
	})

	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	if FirstError(got) != nil {
		t.Fatalf("expected no error, got %v", FirstError(got))
	}
}

func TestFirstError_ReturnsEarliest(t *testing.T) {
	boom := pperr.New(pperr.Internal, "boom")
	results := []Result[int]{{Value: 1}, {Err: boom}, {Err: pperr.New(pperr.Internal, "second")}}
	if FirstError(results) != boom {
		t.Fatalf("expected first error to win")
	}
}
