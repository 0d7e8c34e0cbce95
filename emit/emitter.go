// Package emit linearizes a validated graph into the workshop dialect's
// rule syntax and renders it to text.
//
// The emitter assumes the graph has already passed validation: it is a
// back-end, not a second validator. Re-detecting a value cycle here is a
// defect in the caller, not a user error, and panics accordingly. The one
// resource bound it enforces itself is the maximum inlining depth, which
// surfaces as an EM-001 diagnostic for that compile attempt.
package emit

import (
	"fmt"
	"strings"

	"github.com/ruleforge/ruleforge/graph"
	"github.com/ruleforge/ruleforge/registry"
)

// MaxInlineDepth bounds expression inlining. Graphs nesting value
// expressions deeper than this fail the compile attempt with EM-001
// rather than growing the stack without bound.
const MaxInlineDepth = 256

// Emit renders the graph as workshop rules, one per event node in
// insertion order. Emission is deterministic: the same graph always
// produces byte-identical text. A non-empty diagnostics slice means the
// compile attempt failed and the text is empty.
func Emit(g *graph.Graph) (string, []graph.Diagnostic) {
	var b strings.Builder
	for i, ev := range g.Events() {
		if i > 0 {
			b.WriteString("\n")
		}
		if diag := emitRule(&b, g, ev); diag != nil {
			return "", []graph.Diagnostic{*diag}
		}
	}
	return b.String(), nil
}

// ruleEmitter carries per-rule state: the memoization cache, so a value
// expression fanned out to several consumers is only walked once, and the
// inlining stack for depth and re-entry accounting.
type ruleEmitter struct {
	g        *graph.Graph
	memo     map[string]string
	visiting map[string]bool
	depth    int
	tooDeep  *graph.Diagnostic
}

func emitRule(b *strings.Builder, g *graph.Graph, ev *graph.NodeInstance) *graph.Diagnostic {
	e := &ruleEmitter{
		g:        g,
		memo:     make(map[string]string),
		visiting: make(map[string]bool),
	}

	fmt.Fprintf(b, "rule(%q)\n", ev.Label())
	b.WriteString("{\n")

	b.WriteString("\tevent\n\t{\n")
	b.WriteString("\t\t" + ev.Definition().Name + ";\n")
	for _, p := range ev.Definition().Params {
		b.WriteString("\t\t" + e.resolve(ev, p.Name) + ";\n")
	}
	b.WriteString("\t}\n\n")

	b.WriteString("\tconditions\n\t{\n")
	for _, id := range ev.Conditions() {
		cond, _ := g.NodeByID(id)
		b.WriteString("\t\t" + e.condition(cond) + ";\n")
	}
	b.WriteString("\t}\n\n")

	b.WriteString("\tactions\n\t{\n")
	for _, id := range ev.Actions() {
		act, _ := g.NodeByID(id)
		b.WriteString("\t\t" + e.call(act) + ";\n")
	}
	b.WriteString("\t}\n")

	b.WriteString("}\n")
	return e.tooDeep
}

// condition renders one condition node. The built-in compare condition
// uses the dialect's infix form; everything else uses call syntax.
func (e *ruleEmitter) condition(n *graph.NodeInstance) string {
	if n.Definition().Intrinsic == registry.IntrinsicCompare {
		return e.resolve(n, "a") + " " + e.resolve(n, "comparison") + " " + e.resolve(n, "b")
	}
	return e.call(n)
}

// call renders a node in call syntax: Name(arg, arg), or the bare name
// when the definition takes no parameters.
func (e *ruleEmitter) call(n *graph.NodeInstance) string {
	def := n.Definition()
	if len(def.Params) == 0 {
		return def.Name
	}
	args := make([]string, len(def.Params))
	for i, p := range def.Params {
		args[i] = e.resolve(n, p.Name)
	}
	return def.Name + "(" + strings.Join(args, ", ") + ")"
}

// resolve renders the value feeding a slot: the inlined upstream
// expression when connected, the slot's literal otherwise.
func (e *ruleEmitter) resolve(n *graph.NodeInstance, slot string) string {
	if connID := n.Incoming(slot); connID != "" {
		conn, _ := e.g.ConnectionByID(connID)
		src, _ := e.g.NodeByID(conn.Source())
		return e.inline(src)
	}
	lit := n.Literal(slot)
	if lit == nil {
		// Validation guarantees every required slot is set before the
		// graph reaches the emitter.
		panic(fmt.Sprintf("emit: unset slot %q on validated node %s", slot, n.ID()))
	}
	return lit.Render()
}

// inline renders a value node's expression, memoized per rule.
func (e *ruleEmitter) inline(n *graph.NodeInstance) string {
	if text, ok := e.memo[n.ID()]; ok {
		return text
	}
	if e.visiting[n.ID()] {
		// Invariant (a) says value edges are acyclic; validation enforces
		// it before emission. Reaching a node already on the inlining
		// stack is a caller defect, not a user error.
		panic(fmt.Sprintf("emit: value cycle through %s reached the emitter", n.ID()))
	}

	e.depth++
	if e.depth > MaxInlineDepth {
		if e.tooDeep == nil {
			e.tooDeep = &graph.Diagnostic{
				Code:     graph.CodeRecursionLimit,
				Severity: graph.SeverityError,
				Message:  fmt.Sprintf("expression nesting exceeds %d levels at %s", MaxInlineDepth, n.Label()),
				Node:     n.ID(),
			}
		}
		e.depth--
		return ""
	}

	e.visiting[n.ID()] = true
	var text string
	if n.Definition().Intrinsic == registry.IntrinsicConstant {
		// Constant wrappers emit their single parameter verbatim: a
		// number constant holding 5 renders as the numeral 5.
		text = e.resolve(n, n.Definition().Params[0].Name)
	} else {
		text = e.call(n)
	}
	delete(e.visiting, n.ID())
	e.depth--

	e.memo[n.ID()] = text
	return text
}
