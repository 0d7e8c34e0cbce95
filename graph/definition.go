package graph

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/ruleforge/ruleforge/core"
	"github.com/ruleforge/ruleforge/registry"
)

// ErrCorruptSnapshot is returned when a serialized graph is structurally
// inconsistent (dangling references, doubly-connected slots).
var ErrCorruptSnapshot = errors.New("corrupt graph snapshot")

// GraphDefinition is the serializable form of a Graph: a direct
// structural dump of instances and connections, referencing definitions
// by identifier. It is re-resolved against a Registry on load. Type
// problems in stored literals or connections are deliberately deferred to
// Validate so a stale file still loads and reports diagnostics.
type GraphDefinition struct {
	Nodes       []NodeSnapshot       `json:"nodes"`
	Connections []ConnectionSnapshot `json:"connections,omitempty"`
	Rules       []RuleSnapshot       `json:"rules,omitempty"`
}

// NodeSnapshot is a serialized node instance.
type NodeSnapshot struct {
	ID         string                  `json:"id"`
	Definition string                  `json:"definition"`
	Label      string                  `json:"label,omitempty"`
	Literals   map[string]core.Literal `json:"literals,omitempty"`
}

// ConnectionSnapshot is a serialized connection.
type ConnectionSnapshot struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Sink   string `json:"sink"`
	Slot   string `json:"slot"`
}

// RuleSnapshot is a serialized event node's ordered attachments.
type RuleSnapshot struct {
	Event      string   `json:"event"`
	Conditions []string `json:"conditions,omitempty"`
	Actions    []string `json:"actions,omitempty"`
}

// Snapshot serializes the graph's full structure. Literals shadowed by a
// connection are included so a later Disconnect restores them.
func Snapshot(g *Graph) *GraphDefinition {
	gd := &GraphDefinition{}

	for _, n := range g.Nodes() {
		ns := NodeSnapshot{
			ID:         n.id,
			Definition: n.def.ID,
			Label:      n.label,
		}
		for _, p := range n.def.Params {
			s := n.slots[p.Name]
			if s.literal != nil {
				if ns.Literals == nil {
					ns.Literals = make(map[string]core.Literal)
				}
				ns.Literals[p.Name] = *s.literal
			}
		}
		gd.Nodes = append(gd.Nodes, ns)

		if n.def.Category == core.CategoryEvent && (len(n.conditions) > 0 || len(n.actions) > 0) {
			gd.Rules = append(gd.Rules, RuleSnapshot{
				Event:      n.id,
				Conditions: append([]string(nil), n.conditions...),
				Actions:    append([]string(nil), n.actions...),
			})
		}
	}

	for _, c := range g.Connections() {
		gd.Connections = append(gd.Connections, ConnectionSnapshot{
			ID:     c.id,
			Source: c.source,
			Sink:   c.sink,
			Slot:   c.slot,
		})
	}

	return gd
}

// Encode renders the definition as indented JSON.
func (gd *GraphDefinition) Encode() ([]byte, error) {
	return json.MarshalIndent(gd, "", "  ")
}

// ParseDefinition decodes a serialized graph document.
func ParseDefinition(data []byte) (*GraphDefinition, error) {
	var gd GraphDefinition
	if err := json.Unmarshal(data, &gd); err != nil {
		return nil, fmt.Errorf("parsing graph definition: %w", err)
	}
	return &gd, nil
}

// Hydrate rebuilds a live Graph from the snapshot, re-resolving
// definition identifiers against the registry. Structural inconsistencies
// fail with ErrCorruptSnapshot; unknown definitions surface the registry
// error. Stored literals are applied without type checking — Validate
// reports them, matching the rule that only edits are pre-checked.
func (gd *GraphDefinition) Hydrate(reg *registry.Registry) (*Graph, error) {
	g := New()

	for _, ns := range gd.Nodes {
		def, err := reg.Lookup(ns.Definition)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", ns.ID, err)
		}
		if _, exists := g.nodes[ns.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate node ID %s", ErrCorruptSnapshot, ns.ID)
		}
		n := g.addNode(def, ns.ID)
		if ns.Label != "" {
			n.label = ns.Label
		}

		// Replace seeded defaults with the stored slot states.
		for _, p := range def.Params {
			if lit, ok := ns.Literals[p.Name]; ok {
				stored := lit
				n.slots[p.Name].literal = &stored
			} else {
				n.slots[p.Name].literal = nil
			}
		}
	}

	for _, cs := range gd.Connections {
		src, ok := g.nodes[cs.Source]
		if !ok {
			return nil, fmt.Errorf("%w: connection %s references missing source %s", ErrCorruptSnapshot, cs.ID, cs.Source)
		}
		if src.def.Category != core.CategoryValue {
			return nil, fmt.Errorf("%w: connection %s source %s has no output port", ErrCorruptSnapshot, cs.ID, cs.Source)
		}
		sink, ok := g.nodes[cs.Sink]
		if !ok {
			return nil, fmt.Errorf("%w: connection %s references missing sink %s", ErrCorruptSnapshot, cs.ID, cs.Sink)
		}
		s, ok := sink.slots[cs.Slot]
		if !ok {
			return nil, fmt.Errorf("%w: connection %s references unknown slot %q on %s", ErrCorruptSnapshot, cs.ID, cs.Slot, cs.Sink)
		}
		if s.conn != "" {
			return nil, fmt.Errorf("%w: slot %q on %s has two incoming connections", ErrCorruptSnapshot, cs.Slot, cs.Sink)
		}
		c := &Connection{id: cs.ID, source: cs.Source, sink: cs.Sink, slot: cs.Slot}
		g.conns[c.id] = c
		g.connOrder = append(g.connOrder, c.id)
		s.conn = c.id
	}

	for _, rs := range gd.Rules {
		for _, id := range rs.Conditions {
			if err := g.AttachCondition(rs.Event, id); err != nil {
				return nil, fmt.Errorf("%w: rule %s: %v", ErrCorruptSnapshot, rs.Event, err)
			}
		}
		for _, id := range rs.Actions {
			if err := g.AttachAction(rs.Event, id); err != nil {
				return nil, fmt.Errorf("%w: rule %s: %v", ErrCorruptSnapshot, rs.Event, err)
			}
		}
	}

	return g, nil
}
