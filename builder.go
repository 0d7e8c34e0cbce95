package ruleforge

import (
	"errors"
	"fmt"

	"github.com/ruleforge/ruleforge/core"
	"github.com/ruleforge/ruleforge/graph"
)

// RuleBuilder provides a fluent API for assembling one rule: an event,
// its conditions, and its actions, in placement order. It tracks the
// current condition/action so slot wiring can chain. Errors accumulate
// and surface at Build; after the first error the remaining calls are
// no-ops.
//
// Example usage:
//
//	ev, err := ed.NewRule(registry.EventEachPlayer, "Speed Boost").
//	    Action("set_move_speed").
//	    Wire("player", "event_player").
//	    Lit("percent", core.NumberLit(150)).
//	    Build()
type RuleBuilder struct {
	ed      *Editor
	event   *graph.NodeInstance
	current *graph.NodeInstance
	errs    []error
}

// NewRule starts a rule builder on a fresh event node with the given
// rule name.
func (e *Editor) NewRule(eventDefID, name string) *RuleBuilder {
	b := &RuleBuilder{ed: e}
	ev, err := e.AddNode(eventDefID)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	if name != "" {
		if err := e.g.SetLabel(ev.ID(), name); err != nil {
			b.errs = append(b.errs, err)
		}
	}
	b.event = ev
	return b
}

func (b *RuleBuilder) failed() bool { return len(b.errs) > 0 }

// Condition adds a condition node, attaches it to the rule, and makes it
// current for wiring.
func (b *RuleBuilder) Condition(defID string) *RuleBuilder {
	return b.attach(defID, true)
}

// Action adds an action node, attaches it at the end of the rule's
// action list, and makes it current for wiring.
func (b *RuleBuilder) Action(defID string) *RuleBuilder {
	return b.attach(defID, false)
}

func (b *RuleBuilder) attach(defID string, condition bool) *RuleBuilder {
	if b.failed() {
		return b
	}
	n, err := b.ed.AddNode(defID)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	if condition {
		err = b.ed.g.AttachCondition(b.event.ID(), n.ID())
	} else {
		err = b.ed.g.AttachAction(b.event.ID(), n.ID())
	}
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.current = n
	return b
}

// Wire instantiates a value definition and connects its output into the
// named slot of the current node.
func (b *RuleBuilder) Wire(slot, valueDefID string) *RuleBuilder {
	if b.failed() {
		return b
	}
	if b.current == nil {
		b.errs = append(b.errs, fmt.Errorf("wire %q: no current condition or action", slot))
		return b
	}
	v, err := b.ed.AddNode(valueDefID)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	if _, err := b.ed.Connect(v.ID(), b.current.ID(), slot); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// WireNode connects an existing value node into the named slot of the
// current node. Use it to fan one value out to several consumers.
func (b *RuleBuilder) WireNode(slot, nodeID string) *RuleBuilder {
	if b.failed() {
		return b
	}
	if b.current == nil {
		b.errs = append(b.errs, fmt.Errorf("wire %q: no current condition or action", slot))
		return b
	}
	if _, err := b.ed.Connect(nodeID, b.current.ID(), slot); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Lit sets a literal on the named slot of the current node.
func (b *RuleBuilder) Lit(slot string, lit core.Literal) *RuleBuilder {
	if b.failed() {
		return b
	}
	if b.current == nil {
		b.errs = append(b.errs, fmt.Errorf("literal %q: no current condition or action", slot))
		return b
	}
	if err := b.ed.SetLiteral(b.current.ID(), slot, lit); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Current returns the node most recently added by Condition or Action.
func (b *RuleBuilder) Current() *graph.NodeInstance { return b.current }

// Build returns the rule's event node, or the accumulated errors.
func (b *RuleBuilder) Build() (*graph.NodeInstance, error) {
	if b.failed() {
		return nil, errors.Join(b.errs...)
	}
	return b.event, nil
}
