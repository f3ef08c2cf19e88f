// Operation descriptors and the operation registry. Adapted from the
// teacher's pkg/operators/{operator,parameters,registry}.go — the same
// "name, category, descriptor, parameter set" shape spec §4.4 asks for, with
// OperatorDescriptor/ParameterDescriptor renamed onto script operations
// instead of ffmpeg filter operators.
package scripting

import (
	"sync"

	"github.com/cvpg/imageproc/pkg/pperr"
)

// ParamDescriptor documents and constrains one operation argument, mirroring
// pkg/operators/parameters.go's ParameterDescriptor.
type ParamDescriptor struct {
	Name          string
	Description   string
	AdmissibleRef []ItemType    // item types a reference argument may carry; empty means "must be a literal"
	LiteralType   ItemType      // expected literal type when AdmissibleRef is empty
	EnumValues    []string      // for string literals with a fixed value set (e.g. rgb conversion modes)
	MinInt        *int64
	MaxInt        *int64
}

// Descriptor is the registered specification of one script operation: name,
// category, parameter set, and the functions that realize spec §4.4's
// on_parse / §4.5's on_compile contract.
type Descriptor struct {
	Name       string
	Category   string
	MinArgs    int
	MaxArgs    int
	Parameters []ParamDescriptor

	// ResultType computes the item tag this operation produces, given the
	// resolved argument types/values. Runs during parsing (on_parse).
	ResultType func(args []Arg, argTypes []ItemType) (ItemType, error)

	// Compile builds the leaf handler for one instantiation of this
	// operation (on_compile, spec §4.5 step 4).
	Compile func(item Item) (Handler, error)
}

// Registry holds every registered operation, keyed by name.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]*Descriptor)}
}

// Register adds or replaces an operation specification.
func (r *Registry) Register(d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[d.Name] = d
}

// Get looks up an operation by name.
func (r *Registry) Get(name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.ops[name]
	if !ok {
		return nil, pperr.New(pperr.InvalidParameter, "unknown operation %q", name)
	}
	return d, nil
}

// List returns every registered operation's descriptor, for the CLI's
// --filters introspection flag (spec §6).
func (r *Registry) List() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, 0, len(r.ops))
	for _, d := range r.ops {
		out = append(out, d)
	}
	return out
}

// validateArgCount checks the argument count against a descriptor's
// MinArgs/MaxArgs, mirroring pkg/operators/validator.go's standard checks.
func validateArgCount(d *Descriptor, n int) error {
	if n < d.MinArgs || (d.MaxArgs >= 0 && n > d.MaxArgs) {
		return pperr.New(pperr.InvalidParameter, "%s expects %d-%d arguments, got %d", d.Name, d.MinArgs, d.MaxArgs, n)
	}
	return nil
}
