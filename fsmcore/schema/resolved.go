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

package schema

import (
	"fmt"
	"time"

	"dirpx.dev/dxfsm/fsmcore/errors"
	"dirpx.dev/dxfsm/fsmcore/fieldmap"
)

// Resolved holds the normalized, validated, defaulted field values produced
// by Apply, keyed by canonical field name.
//
// The typed getters coerce minimally and explicitly: whole-valued floats
// become ints (tolerating JSON number decoding), RFC3339 strings become
// timestamps, and nothing else is converted. A value that cannot be
// interpreted as the requested kind yields a TypeError naming the field.
//
// Getters for absent fields return zero values without error; required
// fields are always present by the time a Resolved exists.
type Resolved struct {
	schema *Schema
	values map[string]any
}

// Has reports whether the field carries a value (supplied or defaulted).
func (r *Resolved) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Value returns the field's raw value, or nil when absent.
func (r *Resolved) Value(name string) any {
	return r.values[name]
}

// String returns the field as a string. Absent fields yield "".
func (r *Resolved) String(name string) (string, error) {
	v, ok := r.values[name]
	if !ok {
		return "", nil
	}
	s, isString := v.(string)
	if !isString {
		return "", r.typeError(name, "string", v)
	}
	return s, nil
}

// Bool returns the field as a bool. Absent fields yield false.
func (r *Resolved) Bool(name string) (bool, error) {
	v, ok := r.values[name]
	if !ok {
		return false, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, r.typeError(name, "bool", v)
	}
	return b, nil
}

// Int returns the field as an int. Absent fields yield 0. Whole-valued
// float64 input is accepted because JSON decoding produces float64 for
// every number; fractional values are a kind mismatch, not a rounding
// opportunity.
func (r *Resolved) Int(name string) (int, error) {
	v, ok := r.values[name]
	if !ok {
		return 0, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, r.typeError(name, "integer", v)
		}
		return int(n), nil
	default:
		return 0, r.typeError(name, "integer", v)
	}
}

// Time returns the field as a timestamp. Absent fields yield the zero
// time.Time. String input must be RFC3339.
func (r *Resolved) Time(name string) (time.Time, error) {
	v, ok := r.values[name]
	if !ok {
		return time.Time{}, nil
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, r.typeError(name, "RFC3339 timestamp", v)
		}
		return parsed, nil
	default:
		return time.Time{}, r.typeError(name, "RFC3339 timestamp", v)
	}
}

// List returns the field as an ordered collection. The result is always
// non-nil: absent fields materialize as empty collections, and a supplied
// []any is used as-is without rewrapping. Any other supplied kind is a
// type error; scalars never auto-wrap.
func (r *Resolved) List(name string) ([]any, error) {
	v, ok := r.values[name]
	if !ok {
		return []any{}, nil
	}
	l, isList := v.([]any)
	if !isList {
		return nil, r.typeError(name, "list", v)
	}
	if l == nil {
		return []any{}, nil
	}
	return l, nil
}

// Map returns the field as a nested field map. The result is always
// non-nil: absent fields materialize as empty maps.
func (r *Resolved) Map(name string) (fieldmap.Map, error) {
	v, ok := r.values[name]
	if !ok {
		return fieldmap.Map{}, nil
	}
	switch m := v.(type) {
	case fieldmap.Map:
		if m == nil {
			return fieldmap.Map{}, nil
		}
		return m, nil
	case map[string]any:
		if m == nil {
			return fieldmap.Map{}, nil
		}
		return fieldmap.Map(m), nil
	default:
		return nil, r.typeError(name, "map", v)
	}
}

func (r *Resolved) typeError(name, want string, got any) error {
	return &errors.TypeError{
		Type:  r.schema.typeName,
		Field: name,
		Want:  want,
		Got:   fmt.Sprintf("%T", got),
	}
}
