// Package table holds the typed, column-ordered snapshot model passed between pipeline stages.
package table

import (
	"fmt"
	"math"
	"strconv"

	"github.com/churnlab/churnprep/internal/schema"
)

// Kind is the physical type of a column.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Numeric reports whether values of k take part in finiteness checks and scaling.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "string":
		return KindString, nil
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	case "bool":
		return KindBool, nil
	}
	return 0, fmt.Errorf("unknown column kind %q", s)
}

// KindOf maps a semantic schema type to its column kind.
func KindOf(t schema.SemanticType) Kind {
	switch t {
	case schema.TypeInteger:
		return KindInt
	case schema.TypeFloat:
		return KindFloat
	case schema.TypeBoolean:
		return KindBool
	default:
		return KindString
	}
}

// Value is a nullable cell. The zero Value is invalid; use the constructors.
type Value struct {
	kind Kind
	null bool
	s    string
	i    int64
	f    float64
	b    bool
}

// Str returns a non-null string value.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// Int returns a non-null integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a non-null float value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool returns a non-null boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Null returns a missing value of the given kind.
func Null(kind Kind) Value { return Value{kind: kind, null: true} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.null }

func (v Value) Str() string { return v.s }

func (v Value) Int() int64 { return v.i }

func (v Value) Float() float64 { return v.f }

func (v Value) Bool() bool { return v.b }

// Number returns a numeric view of int and float values.
func (v Value) Number() (float64, bool) {
	if v.null {
		return 0, false
	}
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// Finite reports whether a non-null numeric value is neither NaN nor infinite.
func (v Value) Finite() bool {
	n, ok := v.Number()
	return ok && !math.IsNaN(n) && !math.IsInf(n, 0)
}

// Equal compares kind, nullness and payload. NaN equals NaN so snapshots compare stably.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.null != o.null {
		return false
	}
	if v.null {
		return true
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindBool:
		return v.b == o.b
	}
	return false
}

// String renders the value for evidence samples and logs.
func (v Value) String() string {
	if v.null {
		return "<null>"
	}
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	return "<invalid>"
}
