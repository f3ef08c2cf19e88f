package validator

import (
	"fmt"

	"github.com/cvpg/imageproc/pkg/schemas"
	"github.com/cvpg/imageproc/pkg/storage"
)

// Validator validates a script job's structural and security properties
// (source/destination URIs) ahead of compilation. Script syntax and
// operation typing are checked separately, by pkg/scripting's parser.
type Validator struct{}

// New creates a new Validator.
func New() *Validator {
	return &Validator{}
}

// Validate checks if a JobSpec is valid.
func (v *Validator) Validate(spec *schemas.JobSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	for i, input := range spec.Inputs {
		scheme, _, err := storage.ParseURI(input.Source)
		if err != nil {
			return fmt.Errorf("input %d (%s): invalid URI: %w", i, input.ID, err)
		}

		if !storage.IsAllowedScheme(scheme) {
			return fmt.Errorf("input %d (%s): scheme '%s' not allowed", i, input.ID, scheme)
		}

		if scheme == "http" || scheme == "https" {
			if err := ValidateHTTPURI(input.Source); err != nil {
				return fmt.Errorf("input %d (%s): security check failed: %w", i, input.ID, err)
			}
		}
	}

	scheme, _, err := storage.ParseURI(spec.Output.Destination)
	if err != nil {
		return fmt.Errorf("output: invalid URI: %w", err)
	}
	if !storage.IsAllowedScheme(scheme) {
		return fmt.Errorf("output: scheme '%s' not allowed", scheme)
	}

	return nil
}
