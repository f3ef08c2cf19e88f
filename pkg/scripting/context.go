// Context is the per-evaluation store (C7): item-id -> tagged value plus
// execution duration, and a string -> any parameter map. Grounded on
// original_source/.../scripting/processing_context.{hpp,cpp}: store/load,
// load-last-stored, and a durations map for diagnostics.
package scripting

import (
	"sync"
	"time"

	"github.com/cvpg/imageproc/pkg/pperr"
)

// Context holds one evaluation's intermediate results. Per spec §4.6,
// concurrent writers touch distinct ids (one per leaf), so a coarse lock
// around the maps is correct and cheap; reads only begin once a producing
// leaf's task has returned, which is already serialized by the plan
// compiler's Seq/Par execution.
type Context struct {
	mu         sync.Mutex
	items      map[uint32]Value
	durations  map[uint32]time.Duration
	lastStored uint32
	hasLast    bool
	parameters map[string]interface{}
}

// NewContext creates an empty evaluation context.
func NewContext() *Context {
	return &Context{
		items:      make(map[uint32]Value),
		durations:  make(map[uint32]time.Duration),
		parameters: make(map[string]interface{}),
	}
}

// Store records value under id along with the duration the producing
// filter took, and updates last_stored (spec §4.6).
func (c *Context) Store(id uint32, value Value, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[id] = value
	c.durations[id] = duration
	c.lastStored = id
	c.hasLast = true
}

// Load returns the value stored under id, or an Invalid-tagged value if
// absent.
func (c *Context) Load(id uint32) Value {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.items[id]; ok {
		return v
	}
	return Value{Type: Invalid}
}

// LoadLast returns the most recently stored item.
func (c *Context) LoadLast() (Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasLast {
		return Value{}, pperr.New(pperr.Internal, "context has no stored items")
	}
	return c.items[c.lastStored], nil
}

// Duration returns the recorded execution duration for id.
func (c *Context) Duration(id uint32) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.durations[id]
}

// SetParameter sets a named global parameter (e.g. cutoff_x, cutoff_y).
func (c *Context) SetParameter(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parameters[key] = value
}

// Parameter reads a named parameter.
func (c *Context) Parameter(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.parameters[key]
	return v, ok
}

// Parameters returns a snapshot copy of every set parameter.
func (c *Context) Parameters() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]interface{}, len(c.parameters))
	for k, v := range c.parameters {
		out[k] = v
	}
	return out
}
