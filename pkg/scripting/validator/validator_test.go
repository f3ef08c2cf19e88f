package validator

import (
	"testing"

	"github.com/cvpg/imageproc/pkg/schemas"
	"github.com/stretchr/testify/assert"
)

func TestValidator_Validate_ValidSpec(t *testing.T) {
	spec := &schemas.JobSpec{
		Inputs: []schemas.Input{
			{ID: "input1", Source: "https://example.com/image.png"},
		},
		Expression: `var input = input("gray", 8); var g = convert_to_gray(input, "calc_average");`,
		Output:     schemas.Output{Destination: "file:///tmp/output.png"},
	}

	validator := New()
	err := validator.Validate(spec)
	assert.NoError(t, err)
}

func TestValidator_Validate_EmptyInputs(t *testing.T) {
	spec := &schemas.JobSpec{
		Inputs:     []schemas.Input{},
		Expression: `var input = input("gray", 8); var g = convert_to_gray(input, "calc_average");`,
		Output:     schemas.Output{Destination: "file:///tmp/output.png"},
	}

	validator := New()
	err := validator.Validate(spec)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at least one input")
}

func TestValidator_Validate_MissingExpression(t *testing.T) {
	spec := &schemas.JobSpec{
		Inputs: []schemas.Input{
			{ID: "input1", Source: "https://example.com/image.png"},
		},
		Output: schemas.Output{Destination: "file:///tmp/output.png"},
	}

	validator := New()
	err := validator.Validate(spec)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "script expression")
}

func TestValidator_Validate_InvalidScheme(t *testing.T) {
	spec := &schemas.JobSpec{
		Inputs: []schemas.Input{
			{ID: "input1", Source: "ftp://example.com/image.png"}, // ftp not allowed
		},
		Expression: `var input = input("gray", 8); var g = convert_to_gray(input, "calc_average");`,
		Output:     schemas.Output{Destination: "file:///tmp/output.png"},
	}

	validator := New()
	err := validator.Validate(spec)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "scheme 'ftp' not allowed")
}

func TestValidator_Validate_SSRF_Protection(t *testing.T) {
	spec := &schemas.JobSpec{
		Inputs: []schemas.Input{
			{ID: "input1", Source: "http://127.0.0.1/internal.png"},
		},
		Expression: `var input = input("gray", 8); var g = convert_to_gray(input, "calc_average");`,
		Output:     schemas.Output{Destination: "file:///tmp/output.png"},
	}

	validator := New()
	err := validator.Validate(spec)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "localhost")
}
