// Package ruleforge assembles Overwatch Workshop scripts from typed node
// graphs. The user wires node instances together instead of writing
// textual rules; RuleForge checks the graph against the workshop's type
// rules and, when it is well-formed, linearizes it into the dialect's
// rule syntax.
//
// The heavy lifting lives in the subpackages:
//
//	import "github.com/ruleforge/ruleforge/core"     // value types and literals
//	import "github.com/ruleforge/ruleforge/registry" // manifest-driven definitions
//	import "github.com/ruleforge/ruleforge/graph"    // the mutable graph and validation
//	import "github.com/ruleforge/ruleforge/emit"     // rule linearization and emission
//
// This package provides the Editor, the surface a presentation layer
// (canvas UI, terminal UI, CLI) drives, and a fluent RuleBuilder for
// constructing rules programmatically.
package ruleforge

import (
	"github.com/ruleforge/ruleforge/core"
	"github.com/ruleforge/ruleforge/emit"
	"github.com/ruleforge/ruleforge/graph"
	"github.com/ruleforge/ruleforge/registry"
)

// Editor owns one graph being edited against a shared, immutable
// registry. All mutations and compiles run on one logical thread of
// control, driven synchronously by the presentation layer; the registry
// may be shared by any number of editors without synchronization.
type Editor struct {
	reg *registry.Registry
	g   *graph.Graph
}

// NewEditor creates an editor over an empty graph.
func NewEditor(reg *registry.Registry) *Editor {
	return &Editor{reg: reg, g: graph.New()}
}

// OpenEditor creates an editor over a previously serialized graph,
// re-resolving definitions against the registry.
func OpenEditor(reg *registry.Registry, gd *graph.GraphDefinition) (*Editor, error) {
	g, err := gd.Hydrate(reg)
	if err != nil {
		return nil, err
	}
	return &Editor{reg: reg, g: g}, nil
}

// Registry returns the shared definition registry.
func (e *Editor) Registry() *registry.Registry { return e.reg }

// Graph returns the graph under edit.
func (e *Editor) Graph() *graph.Graph { return e.g }

// AddNode instantiates the definition with the given identifier.
func (e *Editor) AddNode(defID string) (*graph.NodeInstance, error) {
	def, err := e.reg.Lookup(defID)
	if err != nil {
		return nil, err
	}
	return e.g.AddNode(def), nil
}

// RemoveNode removes an instance and severs every connection touching
// it. Unknown IDs are a no-op.
func (e *Editor) RemoveNode(id string) { e.g.RemoveNode(id) }

// Connect wires a value node's output into an input slot.
func (e *Editor) Connect(sourceID, sinkID, slot string) (*graph.Connection, error) {
	return e.g.Connect(sourceID, sinkID, slot)
}

// Disconnect removes one connection, restoring the slot's prior literal.
func (e *Editor) Disconnect(connID string) error { return e.g.Disconnect(connID) }

// SetLiteral sets a slot's literal value.
func (e *Editor) SetLiteral(id, slot string, lit core.Literal) error {
	return e.g.SetLiteral(id, slot, lit)
}

// Search queries the registry, prefix matches first.
func (e *Editor) Search(query string, cat core.Category) []*registry.NodeDefinition {
	return e.reg.Search(query, cat)
}

// Lookup resolves a definition identifier.
func (e *Editor) Lookup(defID string) (*registry.NodeDefinition, error) {
	return e.reg.Lookup(defID)
}

// Validate checks the graph and reports every problem at once. It never
// mutates the graph.
func (e *Editor) Validate() graph.Report {
	return graph.Validate(e.g)
}

// Compile validates the graph and, if it is free of errors, emits the
// workshop script. The returned report carries all diagnostics from the
// attempt; text is empty whenever the report has errors. Warnings never
// block emission.
func (e *Editor) Compile() (string, graph.Report) {
	report := graph.Validate(e.g)
	if report.HasErrors() {
		return "", report
	}
	text, diags := emit.Emit(e.g)
	if len(diags) > 0 {
		report.Diagnostics = append(report.Diagnostics, diags...)
		return "", report
	}
	return text, report
}

// Snapshot serializes the graph for persistence.
func (e *Editor) Snapshot() *graph.GraphDefinition {
	return graph.Snapshot(e.g)
}
