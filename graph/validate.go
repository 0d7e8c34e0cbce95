package graph

import (
	"fmt"
	"strings"

	"github.com/ruleforge/ruleforge/core"
)

// Validate walks the graph and produces a report of every problem at
// once. The checks are independent and never short-circuit, so a single
// compile attempt surfaces all diagnostics. Validation is a pure query:
// it never mutates the graph, and repeated calls with no edits in between
// produce identical reports.
func Validate(g *Graph) Report {
	var report Report
	report.Diagnostics = append(report.Diagnostics, checkUnsetInputs(g)...)
	report.Diagnostics = append(report.Diagnostics, checkTypes(g)...)
	report.Diagnostics = append(report.Diagnostics, checkValueCycles(g)...)
	report.Diagnostics = append(report.Diagnostics, checkUnreachable(g)...)
	return report
}

// checkUnsetInputs flags input slots with no literal, no connection, and
// no declared default.
func checkUnsetInputs(g *Graph) []Diagnostic {
	var diags []Diagnostic
	for _, n := range g.Nodes() {
		for _, p := range n.def.Params {
			s := n.slots[p.Name]
			if s.conn == "" && s.literal == nil {
				diags = append(diags, Diagnostic{
					Code:     CodeUnsetInput,
					Severity: SeverityError,
					Message:  fmt.Sprintf("%s: input %q has no value and no default", n.label, p.Name),
					Node:     n.id,
					Slot:     p.Name,
				})
			}
		}
	}
	return diags
}

// checkTypes re-checks every connection and literal against the
// compatibility relation. Edit operations already guard these, but
// literals and connections may arrive through deserialization.
func checkTypes(g *Graph) []Diagnostic {
	var diags []Diagnostic
	for _, c := range g.Connections() {
		src, ok := g.nodes[c.source]
		if !ok {
			continue
		}
		sink, ok := g.nodes[c.sink]
		if !ok {
			continue
		}
		spec, ok := sink.def.Param(c.slot)
		if !ok {
			continue
		}
		if !core.Compatible(src.def.Output, spec.Type) {
			diags = append(diags, Diagnostic{
				Code:     CodeTypeMismatch,
				Severity: SeverityError,
				Message: fmt.Sprintf("%s: connection from %s (%s) does not fit slot %q (%s)",
					sink.label, src.label, src.def.Output, c.slot, spec.Type),
				Node: c.sink,
				Slot: c.slot,
			})
		}
	}
	for _, n := range g.Nodes() {
		for _, p := range n.def.Params {
			s := n.slots[p.Name]
			if s.conn != "" || s.literal == nil {
				continue
			}
			if !core.Compatible(s.literal.Type, p.Type) {
				diags = append(diags, Diagnostic{
					Code:     CodeTypeMismatch,
					Severity: SeverityError,
					Message: fmt.Sprintf("%s: literal of type %s does not fit slot %q (%s)",
						n.label, s.literal.Type, p.Name, p.Type),
					Node: n.id,
					Slot: p.Name,
				})
			}
		}
	}
	return diags
}

// checkValueCycles runs a depth-first search over output->input edges
// among value nodes and reports every distinct cycle, naming the
// participating instances in traversal order.
func checkValueCycles(g *Graph) []Diagnostic {
	// Adjacency: producing value node -> consuming value nodes, in
	// connection-creation order for deterministic traversal.
	successors := make(map[string][]string)
	for _, c := range g.Connections() {
		src, ok := g.nodes[c.source]
		if !ok || src.def.Category != core.CategoryValue {
			continue
		}
		sink, ok := g.nodes[c.sink]
		if !ok || sink.def.Category != core.CategoryValue {
			continue
		}
		successors[c.source] = append(successors[c.source], c.sink)
	}

	const (
		unvisited = 0
		onStack   = 1
		done      = 2
	)
	state := make(map[string]int)
	var stack []string
	var diags []Diagnostic

	var visit func(id string)
	visit = func(id string) {
		state[id] = onStack
		stack = append(stack, id)
		for _, succ := range successors[id] {
			switch state[succ] {
			case unvisited:
				visit(succ)
			case onStack:
				diags = append(diags, cycleDiagnostic(g, stack, succ))
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
	}

	for _, id := range g.nodeOrder {
		n := g.nodes[id]
		if n.def.Category == core.CategoryValue && state[id] == unvisited {
			visit(id)
		}
	}
	return diags
}

// cycleDiagnostic names the cycle members from the point the search
// re-entered the stack, in traversal order.
func cycleDiagnostic(g *Graph, stack []string, reentry string) Diagnostic {
	start := indexOf(stack, reentry)
	members := append(append([]string(nil), stack[start:]...), reentry)

	names := make([]string, len(members))
	for i, id := range members {
		names[i] = g.nodes[id].label
	}
	return Diagnostic{
		Code:     CodeValueCycle,
		Severity: SeverityError,
		Message:  "value cycle: " + strings.Join(names, " -> "),
		Node:     reentry,
	}
}

// checkUnreachable warns about condition and action nodes attached to no
// event: dead code, never emitted, not fatal.
func checkUnreachable(g *Graph) []Diagnostic {
	var diags []Diagnostic
	for _, n := range g.Nodes() {
		switch n.def.Category {
		case core.CategoryCondition, core.CategoryAction:
			if n.event == "" {
				diags = append(diags, Diagnostic{
					Code:     CodeUnreachable,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("%s: %s node is not attached to any rule", n.label, n.def.Category),
					Node:     n.id,
				})
			}
		}
	}
	return diags
}
