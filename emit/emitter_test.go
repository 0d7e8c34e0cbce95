package emit

import (
	"strings"
	"testing"

	"github.com/ruleforge/ruleforge/core"
	"github.com/ruleforge/ruleforge/graph"
	"github.com/ruleforge/ruleforge/registry"
)

const testManifest = `{
  "definitions": [
    {"id": "wait", "name": "Wait", "category": "action",
     "params": [{"name": "seconds", "type": "Number"}]},
    {"id": "abort", "name": "Abort", "category": "action"},
    {"id": "heal_over_time", "name": "Heal Over Time", "category": "action",
     "params": [
       {"name": "amount", "type": "Number"},
       {"name": "duration", "type": "Number"}
     ]},
    {"id": "event_player", "name": "Event Player", "category": "value", "output": "Player"},
    {"id": "add", "name": "Add", "category": "value", "output": "Number",
     "params": [{"name": "a", "type": "Number"}, {"name": "b", "type": "Number"}]}
  ]
}`

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.LoadBytes([]byte(testManifest))
	if err != nil {
		t.Fatalf("loading test manifest: %v", err)
	}
	return reg
}

func mustLookup(t *testing.T, reg *registry.Registry, id string) *registry.NodeDefinition {
	t.Helper()
	def, err := reg.Lookup(id)
	if err != nil {
		t.Fatalf("Lookup(%s): %v", id, err)
	}
	return def
}

func TestEmit_SingleRuleEndToEnd(t *testing.T) {
	reg := testRegistry(t)
	g := graph.New()

	ev := g.AddNode(mustLookup(t, reg, registry.EventGlobal))
	act := g.AddNode(mustLookup(t, reg, "wait"))
	five := g.AddNode(mustLookup(t, reg, registry.ConstNumber))

	if err := g.SetLiteral(five.ID(), "value", core.NumberLit(5)); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Connect(five.ID(), act.ID(), "seconds"); err != nil {
		t.Fatal(err)
	}
	if err := g.AttachAction(ev.ID(), act.ID()); err != nil {
		t.Fatal(err)
	}

	if report := graph.Validate(g); report.HasErrors() {
		t.Fatalf("graph should validate cleanly: %+v", report.Errors())
	}

	text, diags := Emit(g)
	if len(diags) != 0 {
		t.Fatalf("diagnostics: %+v", diags)
	}

	want := "rule(\"Ongoing - Global\")\n" +
		"{\n" +
		"\tevent\n" +
		"\t{\n" +
		"\t\tOngoing - Global;\n" +
		"\t}\n" +
		"\n" +
		"\tconditions\n" +
		"\t{\n" +
		"\t}\n" +
		"\n" +
		"\tactions\n" +
		"\t{\n" +
		"\t\tWait(5);\n" +
		"\t}\n" +
		"}\n"
	if text != want {
		t.Errorf("emitted text:\n%s\nwant:\n%s", text, want)
	}
}

func TestEmit_ScopedEventAndCompareCondition(t *testing.T) {
	reg := testRegistry(t)
	g := graph.New()

	ev := g.AddNode(mustLookup(t, reg, registry.EventEachPlayer))
	if err := g.SetLabel(ev.ID(), "Low Gravity Check"); err != nil {
		t.Fatal(err)
	}

	cond := g.AddNode(mustLookup(t, reg, registry.CompareID))
	left := g.AddNode(mustLookup(t, reg, "add"))
	if err := g.SetLiteral(left.ID(), "a", core.NumberLit(1)); err != nil {
		t.Fatal(err)
	}
	if err := g.SetLiteral(left.ID(), "b", core.NumberLit(2)); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Connect(left.ID(), cond.ID(), "a"); err != nil {
		t.Fatal(err)
	}
	if err := g.SetLiteral(cond.ID(), "comparison", core.ConstantLit(core.TypeComparison, "<")); err != nil {
		t.Fatal(err)
	}
	if err := g.SetLiteral(cond.ID(), "b", core.NumberLit(10)); err != nil {
		t.Fatal(err)
	}

	act := g.AddNode(mustLookup(t, reg, "abort"))
	if err := g.AttachCondition(ev.ID(), cond.ID()); err != nil {
		t.Fatal(err)
	}
	if err := g.AttachAction(ev.ID(), act.ID()); err != nil {
		t.Fatal(err)
	}

	text, diags := Emit(g)
	if len(diags) != 0 {
		t.Fatalf("diagnostics: %+v", diags)
	}

	for _, fragment := range []string{
		"rule(\"Low Gravity Check\")",
		"\t\tOngoing - Each Player;\n\t\tAll;\n\t\tAll;\n",
		"\t\tAdd(1, 2) < 10;\n",
		"\t\tAbort;\n",
	} {
		if !strings.Contains(text, fragment) {
			t.Errorf("emitted text missing %q:\n%s", fragment, text)
		}
	}
}

func TestEmit_ActionOrderIsPlacementOrder(t *testing.T) {
	reg := testRegistry(t)
	g := graph.New()

	ev := g.AddNode(mustLookup(t, reg, registry.EventGlobal))
	first := g.AddNode(mustLookup(t, reg, "abort"))
	second := g.AddNode(mustLookup(t, reg, "wait"))
	if err := g.SetLiteral(second.ID(), "seconds", core.NumberLit(1)); err != nil {
		t.Fatal(err)
	}

	if err := g.AttachAction(ev.ID(), second.ID()); err != nil {
		t.Fatal(err)
	}
	if err := g.AttachAction(ev.ID(), first.ID()); err != nil {
		t.Fatal(err)
	}
	if err := g.MoveAction(ev.ID(), first.ID(), 0); err != nil {
		t.Fatal(err)
	}

	text, _ := Emit(g)
	abortAt := strings.Index(text, "Abort;")
	waitAt := strings.Index(text, "Wait(1);")
	if abortAt < 0 || waitAt < 0 || abortAt > waitAt {
		t.Errorf("actions not in placement order:\n%s", text)
	}
}

func TestEmit_FanOutSubstitutesAtEverySite(t *testing.T) {
	reg := testRegistry(t)
	g := graph.New()

	ev := g.AddNode(mustLookup(t, reg, registry.EventGlobal))
	act := g.AddNode(mustLookup(t, reg, "heal_over_time"))
	sum := g.AddNode(mustLookup(t, reg, "add"))
	if err := g.SetLiteral(sum.ID(), "a", core.NumberLit(3)); err != nil {
		t.Fatal(err)
	}
	if err := g.SetLiteral(sum.ID(), "b", core.NumberLit(4)); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Connect(sum.ID(), act.ID(), "amount"); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Connect(sum.ID(), act.ID(), "duration"); err != nil {
		t.Fatal(err)
	}
	if err := g.AttachAction(ev.ID(), act.ID()); err != nil {
		t.Fatal(err)
	}

	text, diags := Emit(g)
	if len(diags) != 0 {
		t.Fatalf("diagnostics: %+v", diags)
	}
	if !strings.Contains(text, "Heal Over Time(Add(3, 4), Add(3, 4));") {
		t.Errorf("fanned-out expression must appear at both sites:\n%s", text)
	}
}

func TestEmit_Deterministic(t *testing.T) {
	reg := testRegistry(t)
	g := graph.New()

	ev := g.AddNode(mustLookup(t, reg, registry.EventDeath))
	act := g.AddNode(mustLookup(t, reg, "wait"))
	if err := g.SetLiteral(act.ID(), "seconds", core.NumberLit(2.5)); err != nil {
		t.Fatal(err)
	}
	if err := g.AttachAction(ev.ID(), act.ID()); err != nil {
		t.Fatal(err)
	}

	first, _ := Emit(g)
	second, _ := Emit(g)
	if first != second {
		t.Error("compiling an unchanged graph twice must emit byte-identical text")
	}
}

func TestEmit_RecursionLimit(t *testing.T) {
	reg := testRegistry(t)
	g := graph.New()

	ev := g.AddNode(mustLookup(t, reg, registry.EventGlobal))
	act := g.AddNode(mustLookup(t, reg, "wait"))

	// A straight chain deeper than the inline budget: acyclic, so it
	// passes validation, but the emitter must refuse to inline it.
	addDef := mustLookup(t, reg, "add")
	var prev *graph.NodeInstance
	for i := 0; i < MaxInlineDepth+10; i++ {
		n := g.AddNode(addDef)
		if err := g.SetLiteral(n.ID(), "b", core.NumberLit(1)); err != nil {
			t.Fatal(err)
		}
		if prev == nil {
			if err := g.SetLiteral(n.ID(), "a", core.NumberLit(1)); err != nil {
				t.Fatal(err)
			}
		} else {
			if _, err := g.Connect(prev.ID(), n.ID(), "a"); err != nil {
				t.Fatal(err)
			}
		}
		prev = n
	}
	if _, err := g.Connect(prev.ID(), act.ID(), "seconds"); err != nil {
		t.Fatal(err)
	}
	if err := g.AttachAction(ev.ID(), act.ID()); err != nil {
		t.Fatal(err)
	}

	if report := graph.Validate(g); report.HasErrors() {
		t.Fatalf("chain should validate cleanly: %+v", report.Errors())
	}

	text, diags := Emit(g)
	if text != "" {
		t.Error("a failed compile attempt must not return partial text")
	}
	if len(diags) != 1 || diags[0].Code != graph.CodeRecursionLimit {
		t.Fatalf("diagnostics = %+v, want one EM-001", diags)
	}
	if diags[0].Severity != graph.SeverityError {
		t.Errorf("severity = %s, want error", diags[0].Severity)
	}
}

func TestEmit_PanicsOnUnvalidatedCycle(t *testing.T) {
	reg := testRegistry(t)
	g := graph.New()

	ev := g.AddNode(mustLookup(t, reg, registry.EventGlobal))
	act := g.AddNode(mustLookup(t, reg, "wait"))
	a := g.AddNode(mustLookup(t, reg, "add"))
	b := g.AddNode(mustLookup(t, reg, "add"))

	if err := g.SetLiteral(a.ID(), "b", core.NumberLit(1)); err != nil {
		t.Fatal(err)
	}
	if err := g.SetLiteral(b.ID(), "b", core.NumberLit(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Connect(a.ID(), b.ID(), "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Connect(b.ID(), a.ID(), "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Connect(a.ID(), act.ID(), "seconds"); err != nil {
		t.Fatal(err)
	}
	if err := g.AttachAction(ev.ID(), act.ID()); err != nil {
		t.Fatal(err)
	}

	defer func() {
		if recover() == nil {
			t.Error("skipping validation on a cyclic graph must panic in the emitter")
		}
	}()
	Emit(g)
}
