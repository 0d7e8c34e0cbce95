// Package registry provides the node-definition registry for RuleForge.
// It loads the catalog of available event/condition/action/value kinds and
// their typed parameter signatures from an external manifest, and answers
// lookup and search queries for the editor, validator, and emitter.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ruleforge/ruleforge/core"
)

// ErrUnknownDefinition is returned by Lookup for an unregistered identifier.
var ErrUnknownDefinition = errors.New("unknown definition")

// Intrinsic marks definitions whose emission the emitter special-cases.
const (
	// IntrinsicConstant renders the node's single parameter verbatim
	// instead of call syntax, e.g. a number constant emits "5".
	IntrinsicConstant = "constant"

	// IntrinsicCompare renders infix comparison syntax "a op b".
	IntrinsicCompare = "compare"
)

// ParamSpec describes one input-parameter slot of a node definition.
type ParamSpec struct {
	Name    string         `json:"name"`
	Type    core.ValueType `json:"type"`
	Default *core.Literal  `json:"default,omitempty"`
}

// NodeDefinition describes a node kind available to graphs. Definitions
// are immutable after load and shared by every instance referencing them.
type NodeDefinition struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Category  core.Category  `json:"category"`
	Params    []ParamSpec    `json:"params,omitempty"`
	Output    core.ValueType `json:"output,omitempty"` // value definitions only
	Intrinsic string         `json:"-"`                // built-ins only, never from a manifest
}

// Param returns the parameter spec with the given name.
func (d *NodeDefinition) Param(name string) (ParamSpec, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Registry holds all known node definitions. It is read-only after load
// and safe to share across any number of concurrent graph editors.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]*NodeDefinition
	order []string // preserves registration order
	types map[core.ValueType]bool
}

func newRegistry() *Registry {
	r := &Registry{
		defs:  make(map[string]*NodeDefinition),
		types: make(map[core.ValueType]bool),
	}
	for _, t := range []core.ValueType{
		core.TypeNumber, core.TypeString, core.TypeBoolean, core.TypeVector,
		core.TypePlayer, core.TypeTeam, core.TypeHero, core.TypeComparison,
		core.TypeAny,
	} {
		r.types[t] = true
	}
	return r
}

// register adds a definition. Load performs duplicate and type checking
// before calling this, so registration itself cannot fail.
func (r *Registry) register(def *NodeDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.ID]; !exists {
		r.order = append(r.order, def.ID)
	}
	r.defs[def.ID] = def
}

// Lookup returns the definition registered under the given identifier.
func (r *Registry) Lookup(id string) (*NodeDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDefinition, id)
	}
	return def, nil
}

// Has reports whether the identifier is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[id]
	return ok
}

// KnownType reports whether the value type is built in or declared by the
// loaded manifest. Array spellings are known when their element type is.
func (r *Registry) KnownType(t core.ValueType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.knownTypeLocked(t)
}

func (r *Registry) knownTypeLocked(t core.ValueType) bool {
	if elem, ok := t.Elem(); ok {
		return r.types[elem]
	}
	return r.types[t]
}

// All returns every definition in registration order.
func (r *Registry) All() []*NodeDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*NodeDefinition, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.defs[id])
	}
	return result
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// Search returns definitions matching the query, case-insensitively.
// Prefix matches on the display name rank before substring matches on
// name or category. Within a rank band, registration order is kept, so
// results are deterministic. An empty category matches all categories.
func (r *Registry) Search(query string, cat core.Category) []*NodeDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(query)
	type ranked struct {
		def  *NodeDefinition
		rank int
		pos  int
	}
	var hits []ranked

	for pos, id := range r.order {
		def := r.defs[id]
		if cat != "" && def.Category != cat {
			continue
		}
		name := strings.ToLower(def.Name)
		switch {
		case q == "" || strings.HasPrefix(name, q):
			hits = append(hits, ranked{def, 0, pos})
		case strings.Contains(name, q) || strings.Contains(string(def.Category), q):
			hits = append(hits, ranked{def, 1, pos})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].rank != hits[j].rank {
			return hits[i].rank < hits[j].rank
		}
		return hits[i].pos < hits[j].pos
	})

	result := make([]*NodeDefinition, len(hits))
	for i, h := range hits {
		result[i] = h.def
	}
	return result
}
