// Package jobrunner drives one script job end to end: fetch each input
// through the appropriate storage.Storage backend, decode it, compile and
// evaluate the script via pkg/scripting, encode the result, and upload it to
// the output destination. Grounded on pkg/executor/storage_manager.go's
// backend-dispatch-by-scheme pattern, adapted from downloading/uploading
// files for an external FFmpeg process to downloading/uploading in-memory
// images for the in-process scripting engine — there is no subprocess and no
// temp directory, since decode/evaluate/encode never touch disk.
package jobrunner

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/cvpg/imageproc/pkg/codec"
	"github.com/cvpg/imageproc/pkg/logging"
	"github.com/cvpg/imageproc/pkg/pixel"
	"github.com/cvpg/imageproc/pkg/pperr"
	"github.com/cvpg/imageproc/pkg/schemas"
	"github.com/cvpg/imageproc/pkg/scripting"
	"github.com/cvpg/imageproc/pkg/storage"
)

// StorageResolver returns the storage backend for a URI's scheme.
type StorageResolver func(scheme string) (storage.Storage, error)

// Runner executes JobSpecs against a compiled scripting.Processor.
type Runner struct {
	Processor *scripting.Processor
	Resolve   StorageResolver
}

// New creates a Runner bound to processor and resolve.
func New(processor *scripting.Processor, resolve StorageResolver) *Runner {
	return &Runner{Processor: processor, Resolve: resolve}
}

// Result describes the outcome of one evaluation.
type Result struct {
	OutputSize int64
}

// Run compiles spec.Expression (cache hit if already compiled), fetches and
// decodes every input, evaluates the script, and uploads the encoded result.
func (r *Runner) Run(ctx context.Context, spec *schemas.JobSpec) (*Result, error) {
	logging.Infof("job %s: compiling expression", spec.JobID)
	id, err := r.Processor.Compile(ctx, spec.Expression)
	if err != nil {
		logging.Errorf("job %s: compile failed: %v", spec.JobID, err)
		return nil, err
	}

	images := make([]*pixel.Image, len(spec.Inputs))
	for i, in := range spec.Inputs {
		img, err := r.fetchImage(ctx, in.Source)
		if err != nil {
			logging.Errorf("job %s: fetch input %s failed: %v", spec.JobID, in.ID, err)
			return nil, pperr.Wrap(pperr.IoError, err, "fetch input %s", in.ID)
		}
		images[i] = img
	}
	logging.Infof("job %s: fetched %d input(s), evaluating", spec.JobID, len(images))

	var (
		result scripting.Value
		evalErr error
	)
	done := func(v scripting.Value, err error) {
		result, evalErr = v, err
	}

	switch len(images) {
	case 1:
		r.Processor.Evaluate(ctx, id, images[0], done)
	case 2:
		r.Processor.Evaluate2(ctx, id, images[0], images[1], done)
	default:
		return nil, pperr.New(pperr.InvalidParameter, "expected 1 or 2 inputs, got %d", len(images))
	}
	if evalErr != nil {
		logging.Errorf("job %s: evaluation failed: %v", spec.JobID, evalErr)
		return nil, evalErr
	}
	if result.Image == nil {
		return nil, pperr.New(pperr.Internal, "script produced a non-image result")
	}

	var buf bytes.Buffer
	if err := codec.EncodePNG(&buf, result.Image); err != nil {
		return nil, err
	}

	if err := r.uploadBytes(ctx, spec.Output.Destination, buf.Bytes()); err != nil {
		logging.Errorf("job %s: upload failed: %v", spec.JobID, err)
		return nil, pperr.Wrap(pperr.IoError, err, "upload output")
	}

	logging.Infof("job %s: wrote %d bytes", spec.JobID, buf.Len())
	return &Result{OutputSize: int64(buf.Len())}, nil
}

func (r *Runner) fetchImage(ctx context.Context, uri string) (*pixel.Image, error) {
	scheme, _, err := storage.ParseURI(uri)
	if err != nil {
		return nil, err
	}

	stor, err := r.Resolve(scheme)
	if err != nil {
		return nil, err
	}

	reader, err := stor.Get(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", uri, err)
	}
	defer reader.Close()

	return codec.DecodePNG(reader)
}

func (r *Runner) uploadBytes(ctx context.Context, uri string, data []byte) error {
	scheme, _, err := storage.ParseURI(uri)
	if err != nil {
		return err
	}

	stor, err := r.Resolve(scheme)
	if err != nil {
		return err
	}

	return stor.Put(ctx, uri, io.NopCloser(bytes.NewReader(data)))
}
