// Package schema declares the raw-to-canonical field registry used by ingestion.
package schema

import (
	"fmt"
	"slices"
)

// SemanticType is the target type of a canonical column.
type SemanticType string

const (
	TypeString  SemanticType = "string"
	TypeInteger SemanticType = "integer"
	TypeFloat   SemanticType = "float"
	TypeBoolean SemanticType = "boolean"
)

// CoercionRule selects how failures of a field are treated.
type CoercionRule string

const (
	// RuleCast never fails.
	RuleCast CoercionRule = "cast"
	// RuleStrict aborts the run on any unparseable token.
	RuleStrict CoercionRule = "strict"
	// RuleTolerant coerces unparseable tokens to missing and reports them.
	RuleTolerant CoercionRule = "tolerant"
)

// DefaultRule returns the coercion rule a semantic type uses unless overridden.
func (t SemanticType) DefaultRule() CoercionRule {
	switch t {
	case TypeInteger, TypeBoolean:
		return RuleStrict
	case TypeFloat:
		return RuleTolerant
	default:
		return RuleCast
	}
}

// Valid reports whether t is a known semantic type.
func (t SemanticType) Valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeFloat, TypeBoolean:
		return true
	}
	return false
}

// FieldSpec maps one raw source field to its canonical column.
type FieldSpec struct {
	SourceName    string
	CanonicalName string
	Type          SemanticType
	Rule          CoercionRule
}

// Field builds a FieldSpec with the default rule for typ.
func Field(source, canonical string, typ SemanticType) FieldSpec {
	return FieldSpec{
		SourceName:    source,
		CanonicalName: canonical,
		Type:          typ,
		Rule:          typ.DefaultRule(),
	}
}

// Registry is an ordered, immutable set of FieldSpecs.
type Registry struct {
	fields   []FieldSpec
	bySource map[string]int
}

// NewRegistry validates specs and returns a registry preserving their order.
// Source names and canonical names must each be unique.
func NewRegistry(specs ...FieldSpec) (*Registry, error) {
	r := &Registry{
		fields:   make([]FieldSpec, 0, len(specs)),
		bySource: make(map[string]int, len(specs)),
	}
	canonical := make(map[string]string, len(specs))

	for _, spec := range specs {
		if spec.SourceName == "" || spec.CanonicalName == "" {
			return nil, fmt.Errorf("field spec %+v: source and canonical names are required", spec)
		}
		if !spec.Type.Valid() {
			return nil, fmt.Errorf("field %s: unknown semantic type %q", spec.SourceName, spec.Type)
		}
		if spec.Rule == "" {
			spec.Rule = spec.Type.DefaultRule()
		}
		if _, dup := r.bySource[spec.SourceName]; dup {
			return nil, fmt.Errorf("field %s: duplicate source name", spec.SourceName)
		}
		if other, dup := canonical[spec.CanonicalName]; dup {
			return nil, fmt.Errorf("fields %s and %s: duplicate canonical name %s", other, spec.SourceName, spec.CanonicalName)
		}

		canonical[spec.CanonicalName] = spec.SourceName
		r.bySource[spec.SourceName] = len(r.fields)
		r.fields = append(r.fields, spec)
	}

	return r, nil
}

// MustRegistry is NewRegistry for package-level declarations.
func MustRegistry(specs ...FieldSpec) *Registry {
	r, err := NewRegistry(specs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Fields returns the specs in declaration order.
func (r *Registry) Fields() []FieldSpec {
	return slices.Clone(r.fields)
}

// Lookup returns the spec for a raw source name.
func (r *Registry) Lookup(source string) (FieldSpec, bool) {
	i, ok := r.bySource[source]
	if !ok {
		return FieldSpec{}, false
	}
	return r.fields[i], true
}

// Canonical returns the spec whose canonical name is name.
func (r *Registry) Canonical(name string) (FieldSpec, bool) {
	for _, f := range r.fields {
		if f.CanonicalName == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Len returns the number of fields.
func (r *Registry) Len() int {
	return len(r.fields)
}
