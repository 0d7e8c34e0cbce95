package core

import (
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// Literal is a typed literal value held by an input slot.
// The zero Literal is not meaningful; use the constructors.
type Literal struct {
	Type ValueType

	num  float64
	str  string
	flag bool
	vec  [3]float64
}

// NumberLit creates a Number literal.
func NumberLit(v float64) Literal {
	return Literal{Type: TypeNumber, num: v}
}

// StringLit creates a String literal.
func StringLit(s string) Literal {
	return Literal{Type: TypeString, str: s}
}

// BoolLit creates a Boolean literal.
func BoolLit(b bool) Literal {
	return Literal{Type: TypeBoolean, flag: b}
}

// VectorLit creates a Vector literal.
func VectorLit(x, y, z float64) Literal {
	return Literal{Type: TypeVector, vec: [3]float64{x, y, z}}
}

// ConstantLit creates a literal holding an enumerated constant of the
// given type. The name renders verbatim, e.g. Team "All" or the
// Comparison "==".
func ConstantLit(t ValueType, name string) Literal {
	return Literal{Type: t, str: name}
}

// Number returns the numeric value of a Number literal.
func (l Literal) Number() float64 { return l.num }

// Text returns the string payload of a String or constant literal.
func (l Literal) Text() string { return l.str }

// Bool returns the value of a Boolean literal.
func (l Literal) Bool() bool { return l.flag }

// Vector returns the components of a Vector literal.
func (l Literal) Vector() (x, y, z float64) { return l.vec[0], l.vec[1], l.vec[2] }

// Render returns the literal's textual form in the workshop dialect:
// numeric literal, quoted string, True/False, vector tuple, or the
// enumerated constant name verbatim.
func (l Literal) Render() string {
	switch l.Type {
	case TypeNumber:
		return FormatNumber(l.num)
	case TypeString:
		return strconv.Quote(l.str)
	case TypeBoolean:
		if l.flag {
			return "True"
		}
		return "False"
	case TypeVector:
		return fmt.Sprintf("Vector(%s, %s, %s)",
			FormatNumber(l.vec[0]), FormatNumber(l.vec[1]), FormatNumber(l.vec[2]))
	default:
		return l.str
	}
}

// FormatNumber renders a float the way the workshop writes numerals:
// no exponent, no trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// literalWire is the serialized form of a Literal.
type literalWire struct {
	Type  ValueType `json:"type"`
	Value any       `json:"value"`
}

// MarshalJSON serializes the literal as {"type": ..., "value": ...}.
func (l Literal) MarshalJSON() ([]byte, error) {
	w := literalWire{Type: l.Type}
	switch l.Type {
	case TypeNumber:
		w.Value = l.num
	case TypeBoolean:
		w.Value = l.flag
	case TypeVector:
		w.Value = l.vec[:]
	default:
		w.Value = l.str
	}
	return json.Marshal(w)
}

// UnmarshalJSON restores a literal from its serialized form.
func (l *Literal) UnmarshalJSON(data []byte) error {
	var w literalWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := ParseLiteral(w.Type, w.Value)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLiteral builds a Literal of the given type from a decoded JSON or
// YAML value. Numbers accept any numeric representation; vectors accept a
// three-element numeric sequence; every other type takes a string.
func ParseLiteral(t ValueType, value any) (Literal, error) {
	switch t {
	case TypeNumber:
		n, ok := toFloat(value)
		if !ok {
			return Literal{}, fmt.Errorf("literal of type %s requires a number, got %T", t, value)
		}
		return NumberLit(n), nil
	case TypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return Literal{}, fmt.Errorf("literal of type %s requires a bool, got %T", t, value)
		}
		return BoolLit(b), nil
	case TypeVector:
		seq, ok := value.([]any)
		if !ok || len(seq) != 3 {
			return Literal{}, fmt.Errorf("literal of type %s requires a three-element vector", t)
		}
		var comps [3]float64
		for i, raw := range seq {
			n, ok := toFloat(raw)
			if !ok {
				return Literal{}, fmt.Errorf("vector component %d is not a number", i)
			}
			comps[i] = n
		}
		return VectorLit(comps[0], comps[1], comps[2]), nil
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return Literal{}, fmt.Errorf("literal of type %s requires a string, got %T", t, value)
		}
		return StringLit(s), nil
	default:
		s, ok := value.(string)
		if !ok {
			return Literal{}, fmt.Errorf("constant literal of type %s requires a string, got %T", t, value)
		}
		return ConstantLit(t, s), nil
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
