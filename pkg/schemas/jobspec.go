package schemas

import (
	"fmt"
	"time"
)

// JobSpec is the user-submitted script job specification.
type JobSpec struct {
	// Metadata
	JobID     string            `json:"job_id,omitempty"`
	CreatedAt time.Time         `json:"created_at,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`

	// Configuration
	Debug    bool      `json:"debug,omitempty"`
	Priority int       `json:"priority,omitempty"`
	Timeout  *Duration `json:"timeout,omitempty"`

	// Expression is the script text compiled by the scripting package
	// (one statement per line or ';'-separated, e.g.
	// "var input = input(\"gray\", 8); var g = convert_to_gray(input, \"calc_average\");").
	Expression string `json:"expression"`

	// Inputs supplies one or two source images; the script's "input"
	// operations are bound to these in declaration order. Video streams
	// are not accepted here.
	Inputs []Input `json:"inputs"`

	// Output is where the final result is written.
	Output Output `json:"output"`

	// Parameters are global script parameters such as cutoff_x/cutoff_y
	// (spec's tile cutoff parameters). Nothing in this module copies them
	// into an evaluation's processing context.
	Parameters map[string]interface{} `json:"parameters,omitempty"`

	// Resource Limits
	Limits *ResourceLimits `json:"limits,omitempty"`

	// Webhook
	WebhookURL string `json:"webhook_url,omitempty"`
}

// Kind identifies whether an input/output is a still image or a video
// stream. Nothing in this module reads Kind: the job runner decodes every
// input as PNG, and KindVideo is not routed to the video pipeline stages.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Input represents an input source.
type Input struct {
	ID       string            `json:"id"`
	Source   string            `json:"source"`
	Kind     Kind              `json:"kind,omitempty"`
	Format   string            `json:"format,omitempty"` // "gray8" or "rgb8"
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Output represents the output destination.
type Output struct {
	Destination string            `json:"destination"`
	Format      string            `json:"format,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ResourceLimits specifies resource constraints.
type ResourceLimits struct {
	MaxDuration   *Duration `json:"max_duration,omitempty"`
	MaxOutputSize int64     `json:"max_output_size,omitempty"`
	MaxMemory     int64     `json:"max_memory,omitempty"`
}

// Validate checks structural requirements that the scripting package's
// parser does not itself enforce: presence of inputs, an expression, and
// an output. Per-operation argument and type checking happens at compile
// time in pkg/scripting.
func (s *JobSpec) Validate() error {
	if len(s.Inputs) == 0 {
		return fmt.Errorf("job spec must have at least one input")
	}
	if len(s.Inputs) > 2 {
		return fmt.Errorf("job spec supports at most two inputs, got %d", len(s.Inputs))
	}
	if s.Expression == "" {
		return fmt.Errorf("job spec must have a script expression")
	}
	if s.Output.Destination == "" {
		return fmt.Errorf("job spec must have an output destination")
	}

	seen := make(map[string]bool, len(s.Inputs))
	for i, in := range s.Inputs {
		if in.ID == "" {
			return fmt.Errorf("input %d: id is required", i)
		}
		if seen[in.ID] {
			return fmt.Errorf("input %d: duplicate id %q", i, in.ID)
		}
		seen[in.ID] = true
		if in.Source == "" {
			return fmt.Errorf("input %d (%s): source is required", i, in.ID)
		}
	}

	return nil
}
