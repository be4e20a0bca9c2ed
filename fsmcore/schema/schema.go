/*
   Copyright 2025 The DIRPX Authors

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package schema implements per-type field schemas and the flexible argument
// resolver shared by every transition model constructor.
//
// Transition models accept a single loosely typed argument that may be a
// callable reference (a string, a function, or an ordered pair naming an
// invocation target) or a field map (named constructor fields keyed by
// canonical camelCase name or snake_case alias). The resolver decides which
// interpretation applies BEFORE any field is populated, and returns a tagged
// Result so that model constructors never branch on accidental argument
// shape inside field-assignment code.
//
// The decision procedure, applied to a lone array-shaped argument:
//
//  1. An empty array (or nil): callable-eligible schemas treat it as an
//     empty callable reference, permitted and simply unusable at call
//     time. All other schemas fail with a shape error.
//
//  2. An ordered list: callable-eligible schemas assign the whole list to
//     the callable field and default every other field. Other schemas fail
//     with a shape error ("cannot use callable arrays" for exactly two
//     elements, "requires an associative array" otherwise).
//
//  3. A map whose keys are exactly "0" and "1", shaped like an invocation
//     pair (a class-or-object target and a string method name): recognized
//     as a callable reference on callable-eligible schemas ahead of field
//     matching. Callable-eligible schemas MUST NOT declare fields literally
//     named "0" or "1"; New panics on such declarations to keep this
//     disambiguation sound.
//
//  4. A map with at least one key matching a declared field (canonical or
//     alias): a field map. Unmatched keys, including stray numeric keys,
//     are silently ignored.
//
//  5. A map with keys but no declared matches: a shape error enumerating
//     the declared field names.
//
// Field maps then flow through Apply, the strict construction path shared
// with the external request-validation surface: keys are normalized once,
// required fields are checked in declaration order, and defaults fill absent
// optional fields without ever overwriting explicitly supplied values; an
// explicit "", 0, or false is preserved verbatim.
package schema

import (
	"fmt"
	"strings"

	"dirpx.dev/dxfsm/fsmcore/errors"
	"dirpx.dev/dxfsm/fsmcore/fieldmap"
)

// Shape-failure clauses emitted by Resolve. The wording is part of the
// construction contract consumed by request-validation collaborators.
const (
	reasonEmptyArray    = "array-based construction requires a non-empty array"
	reasonCallableArray = "array-based construction cannot use callable arrays"
	reasonAssociative   = "array-based construction requires an associative array"
	reasonNoDeclaredKey = "array parameter must be either a callable array or an associative array with declared field keys"
)

// Field describes one declared field of a transition model.
//
// Name is the canonical camelCase field name; the snake_case alias is derived
// by the fieldmap package and never stored. Default is the value applied when
// the field is absent (or explicitly nil) in a field map; a nil Default means
// the field simply stays unset and the typed getters return their zero
// values. Check is an optional per-field predicate run against explicitly
// supplied values, surfaced through Rules to external validators as well.
// Values lists the accepted canonical strings of enum-kinded fields.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Default  any
	Check    func(any) error
	Values   []string
}

// Schema is the ordered field declaration of one transition model type,
// built once per type with New and shared by all of its construction paths.
//
// A Schema is immutable after New and safe for concurrent use.
type Schema struct {
	typeName string
	fields   []Field
	index    map[string]int
	callable bool
}

// New builds a Schema for the named type from its ordered field declarations.
//
// New panics on declaration mistakes, since a malformed schema is a
// programming error that no runtime caller can correct:
//
//   - empty type name or no fields,
//   - a field name that is not canonical camelCase (normalizing it changes it),
//   - duplicate field names,
//   - a callable-kinded field anywhere but the leading position, or more
//     than one of them,
//   - a callable-eligible schema declaring a field literally named "0" or
//     "1", which would break pair disambiguation.
func New(typeName string, fields ...Field) *Schema {
	if typeName == "" {
		panic("schema: type name must not be empty")
	}
	if len(fields) == 0 {
		panic("schema: " + typeName + " declares no fields")
	}

	s := &Schema{
		typeName: typeName,
		fields:   fields,
		index:    make(map[string]int, len(fields)),
	}

	for i, f := range fields {
		if f.Name == "" {
			panic(fmt.Sprintf("schema: %s field %d has no name", typeName, i))
		}
		if fieldmap.CamelKey(f.Name) != f.Name {
			panic(fmt.Sprintf("schema: %s field %q is not canonical camelCase", typeName, f.Name))
		}
		if _, dup := s.index[f.Name]; dup {
			panic(fmt.Sprintf("schema: %s declares field %q twice", typeName, f.Name))
		}
		if f.Kind == KindCallable {
			if i != 0 {
				panic(fmt.Sprintf("schema: %s callable field %q must be declared first", typeName, f.Name))
			}
			s.callable = true
		}
		s.index[f.Name] = i
	}

	if s.callable {
		for _, reserved := range []string{"0", "1"} {
			if _, ok := s.index[reserved]; ok {
				panic(fmt.Sprintf("schema: callable-eligible %s must not declare field %q", typeName, reserved))
			}
		}
	}

	return s
}

// TypeName returns the logical name of the declared type, as used in error
// messages.
func (s *Schema) TypeName() string {
	return s.typeName
}

// CallableEligible reports whether the schema's leading field is
// callable-kinded, making a lone list-shaped argument a callable reference
// rather than a shape error.
func (s *Schema) CallableEligible() bool {
	return s.callable
}

// FieldNames returns the canonical field names in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Path tags which interpretation Resolve chose for an argument.
type Path int

const (
	// PathFieldMap marks a field-map interpretation; Result.Fields carries
	// the resolved values.
	PathFieldMap Path = iota

	// PathCallable marks a callable-reference interpretation; Result.Callable
	// carries the raw callable value.
	PathCallable
)

// Result is the tagged outcome of Resolve.
//
// Exactly one of Callable and Fields is meaningful, selected by Path. The
// Callable value is raw (a string, function, list, or nil) and is converted
// into a concrete callable reference by the owning model, never by the
// resolver.
type Result struct {
	Path     Path
	Callable any
	Fields   *Resolved
}

// Resolve applies the decision procedure to a lone constructor argument and
// returns the tagged interpretation.
//
// Accepted argument shapes are nil, ordered lists ([]any), field maps
// (fieldmap.Map or map[string]any), and, for callable-eligible schemas
// only, bare callable values such as a string or a function, which resolve
// directly to PathCallable. Everything else fails with a type error.
//
// Field-map interpretations run through Apply, so required-field validation
// and defaulting happen before Resolve returns; a Result with PathFieldMap
// always carries fully validated, defaulted values.
func (s *Schema) Resolve(arg any) (Result, error) {
	switch v := arg.(type) {
	case nil:
		return s.resolveList(nil)
	case []any:
		return s.resolveList(v)
	case fieldmap.Map:
		return s.resolveMap(v)
	case map[string]any:
		return s.resolveMap(fieldmap.Map(v))
	default:
		if s.callable {
			return Result{Path: PathCallable, Callable: arg}, nil
		}
		return Result{}, &errors.TypeError{
			Type: s.typeName,
			Want: "map",
			Got:  fmt.Sprintf("%T", arg),
		}
	}
}

func (s *Schema) resolveList(v []any) (Result, error) {
	if len(v) == 0 {
		if s.callable {
			return Result{Path: PathCallable, Callable: []any{}}, nil
		}
		return Result{}, &errors.ShapeError{Type: s.typeName, Reason: reasonEmptyArray}
	}

	if s.callable {
		// The whole list becomes the callable field, verbatim.
		return Result{Path: PathCallable, Callable: v}, nil
	}

	if len(v) == 2 {
		return Result{}, &errors.ShapeError{Type: s.typeName, Reason: reasonCallableArray}
	}
	return Result{}, &errors.ShapeError{Type: s.typeName, Reason: reasonAssociative}
}

func (s *Schema) resolveMap(m fieldmap.Map) (Result, error) {
	if len(m) == 0 {
		if s.callable {
			return Result{Path: PathCallable, Callable: []any{}}, nil
		}
		return Result{}, &errors.ShapeError{Type: s.typeName, Reason: reasonEmptyArray}
	}

	// Pair-shaped maps are recognized ahead of field matching.
	if s.callable {
		if pair, ok := indexPair(m); ok {
			return Result{Path: PathCallable, Callable: pair}, nil
		}
	}

	if s.matches(m) {
		fields, err := s.Apply(m)
		if err != nil {
			return Result{}, err
		}
		return Result{Path: PathFieldMap, Fields: fields}, nil
	}

	return Result{}, &errors.ShapeError{
		Type:         s.typeName,
		Reason:       reasonNoDeclaredKey,
		DeclaredKeys: s.FieldNames(),
	}
}

// indexPair recognizes a map holding exactly the keys "0" and "1" whose
// values are shaped like an invocation pair: a class-or-object target and a
// string method name. The pair is returned in index order.
func indexPair(m fieldmap.Map) ([]any, bool) {
	if len(m) != 2 {
		return nil, false
	}
	target, ok0 := m["0"]
	method, ok1 := m["1"]
	if !ok0 || !ok1 {
		return nil, false
	}
	if _, isString := method.(string); !isString {
		return nil, false
	}
	switch target.(type) {
	case nil, []any, fieldmap.Map, map[string]any:
		return nil, false
	}
	return []any{target, method}, true
}

// matches reports whether at least one key of the map, after normalization,
// names a declared field.
func (s *Schema) matches(m fieldmap.Map) bool {
	for k := range m {
		if _, ok := s.index[fieldmap.CamelKey(k)]; ok {
			return true
		}
	}
	return false
}

// Apply is the strict field-map construction path: no ambiguity resolution,
// exactly one key normalization, required-field validation in declaration
// order, then defaulting of absent optional fields.
//
// A field counts as missing when its key is absent, when its value is nil,
// or, for string-kinded fields, when its value is an empty or whitespace-only
// string; the first missing required field in declaration order fails the
// whole construction. Explicitly supplied values are never overwritten by
// defaults, including falsy ones: "", 0, and false are preserved verbatim.
// Unknown keys are silently dropped. Per-field Check predicates run against
// explicitly supplied values only.
//
// An empty map is valid input here: schemas without required fields resolve
// to a fully defaulted object, while the first required field in declaration
// order fails otherwise. The non-empty-array shape rule belongs to Resolve,
// the ambiguous path, not to this one.
func (s *Schema) Apply(m fieldmap.Map) (*Resolved, error) {
	n := m.Normalize()

	values := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		v, ok := n[f.Name]

		if f.Required && missing(v, ok, f.Kind) {
			return nil, &errors.RequiredError{
				Type:     s.typeName,
				Field:    f.Name,
				Stringly: f.Kind == KindString,
			}
		}

		if !ok || v == nil {
			if f.Default != nil {
				values[f.Name] = f.Default
			}
			continue
		}

		if f.Check != nil {
			if err := f.Check(v); err != nil {
				return nil, &errors.ValidationError{
					Type:   s.typeName,
					Field:  f.Name,
					Reason: err.Error(),
					Value:  v,
				}
			}
		}

		values[f.Name] = v
	}

	return &Resolved{schema: s, values: values}, nil
}

func missing(v any, ok bool, kind Kind) bool {
	if !ok || v == nil {
		return true
	}
	if kind == KindString {
		if str, isString := v.(string); isString && strings.TrimSpace(str) == "" {
			return true
		}
	}
	return false
}
