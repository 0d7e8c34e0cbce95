package registry

import "github.com/ruleforge/ruleforge/core"

// Event definition identifiers. The workshop's rule events are fixed
// dialect structure, so they are built in rather than manifest entries.
const (
	EventGlobal      = "event.global"
	EventEachPlayer  = "event.each_player"
	EventElimination = "event.elimination"
	EventFinalBlow   = "event.final_blow"
	EventDamageDealt = "event.damage_dealt"
	EventDamageTaken = "event.damage_taken"
	EventDeath       = "event.death"
)

// CompareID is the built-in infix comparison condition.
const CompareID = "compare"

// Constant value definition identifiers.
const (
	ConstNumber  = "const.number"
	ConstString  = "const.string"
	ConstBoolean = "const.boolean"
	ConstVector  = "const.vector"
	ConstTeam    = "const.team"
)

// registerBuiltins registers the fixed dialect structure: the seven rule
// events, the compare condition, and the constant value wrappers.
// Called by every manifest load before manifest entries.
func registerBuiltins(r *Registry) {
	teamAll := core.ConstantLit(core.TypeTeam, "All")
	playerAll := core.ConstantLit(core.TypePlayer, "All")
	scoped := []ParamSpec{
		{Name: "team", Type: core.TypeTeam, Default: &teamAll},
		{Name: "player", Type: core.TypePlayer, Default: &playerAll},
	}

	r.register(&NodeDefinition{
		ID:       EventGlobal,
		Name:     "Ongoing - Global",
		Category: core.CategoryEvent,
	})

	// Per-player events carry the team and player scope parameters.
	events := []struct {
		id, name string
	}{
		{EventEachPlayer, "Ongoing - Each Player"},
		{EventElimination, "Player Earned Elimination"},
		{EventFinalBlow, "Player Dealt Final Blow"},
		{EventDamageDealt, "Player Dealt Damage"},
		{EventDamageTaken, "Player Took Damage"},
		{EventDeath, "Player Died"},
	}
	for _, ev := range events {
		r.register(&NodeDefinition{
			ID:       ev.id,
			Name:     ev.name,
			Category: core.CategoryEvent,
			Params:   scoped,
		})
	}

	eq := core.ConstantLit(core.TypeComparison, "==")
	r.register(&NodeDefinition{
		ID:       CompareID,
		Name:     "Compare",
		Category: core.CategoryCondition,
		Params: []ParamSpec{
			{Name: "a", Type: core.TypeAny},
			{Name: "comparison", Type: core.TypeComparison, Default: &eq},
			{Name: "b", Type: core.TypeAny},
		},
		Intrinsic: IntrinsicCompare,
	})

	zero := core.NumberLit(0)
	empty := core.StringLit("")
	no := core.BoolLit(false)
	origin := core.VectorLit(0, 0, 0)

	constants := []struct {
		id, name string
		out      core.ValueType
		def      *core.Literal
	}{
		{ConstNumber, "Number Constant", core.TypeNumber, &zero},
		{ConstString, "String Constant", core.TypeString, &empty},
		{ConstBoolean, "Boolean Constant", core.TypeBoolean, &no},
		{ConstVector, "Vector Constant", core.TypeVector, &origin},
		{ConstTeam, "Team Constant", core.TypeTeam, &teamAll},
	}
	for _, c := range constants {
		r.register(&NodeDefinition{
			ID:       c.id,
			Name:     c.name,
			Category: core.CategoryValue,
			Params: []ParamSpec{
				{Name: "value", Type: c.out, Default: c.def},
			},
			Output:    c.out,
			Intrinsic: IntrinsicConstant,
		})
	}
}
