// Package core provides the foundational types for RuleForge graphs.
//
// This package contains:
//   - ValueType: the closed set of workshop value types plus Array<T> forms
//   - Compatible: the single type-compatibility relation
//   - Category: the four node categories (event, condition, action, value)
//   - Literal: typed literal values and their dialect textual forms
package core

import "strings"

// ValueType identifies the type of a value flowing between nodes.
// Scalar types are plain tags; array types use the Array<T> spelling.
// Manifests may introduce further scalar tags for enumerated constants.
type ValueType string

const (
	TypeNumber     ValueType = "Number"
	TypeString     ValueType = "String"
	TypeBoolean    ValueType = "Boolean"
	TypeVector     ValueType = "Vector"
	TypePlayer     ValueType = "Player"
	TypeTeam       ValueType = "Team"
	TypeHero       ValueType = "Hero"
	TypeComparison ValueType = "Comparison"
	TypeAny        ValueType = "Any"
)

// TypeNone marks the absence of a type, e.g. the output of an action node.
const TypeNone ValueType = ""

// String returns the string representation of the ValueType.
func (t ValueType) String() string {
	return string(t)
}

// ArrayOf returns the array type with the given element type.
func ArrayOf(elem ValueType) ValueType {
	return ValueType("Array<" + string(elem) + ">")
}

// IsArray reports whether the type uses the Array<T> spelling.
func (t ValueType) IsArray() bool {
	return strings.HasPrefix(string(t), "Array<") && strings.HasSuffix(string(t), ">")
}

// Elem returns the element type of an array type.
// The second return is false if the type is not an array.
func (t ValueType) Elem() (ValueType, bool) {
	if !t.IsArray() {
		return TypeNone, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(string(t), "Array<"), ">")
	return ValueType(inner), true
}

// Compatible reports whether a value of type source may flow into a slot
// of type sink. It is the single authority consulted by both edit-time
// connection checks and whole-graph validation.
//
// The relation is deliberately conservative: identity, Any in either
// position, and Array<T> into Array<Any>. There are no implicit
// coercions (no Number -> String stringification).
func Compatible(source, sink ValueType) bool {
	if source == sink {
		return true
	}
	if sink == TypeAny || source == TypeAny {
		return true
	}
	if source.IsArray() && sink.IsArray() {
		// No covariance: Array<T> -> Array<U> only for T == U,
		// except that any array flows into Array<Any>.
		sinkElem, _ := sink.Elem()
		return sinkElem == TypeAny
	}
	return false
}

// Category identifies the role of a node definition.
type Category string

const (
	CategoryEvent     Category = "event"
	CategoryCondition Category = "condition"
	CategoryAction    Category = "action"
	CategoryValue     Category = "value"
)

// String returns the string representation of the Category.
func (c Category) String() string {
	return string(c)
}

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryEvent, CategoryCondition, CategoryAction, CategoryValue:
		return true
	}
	return false
}
