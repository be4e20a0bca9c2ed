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

// Kind declares the expected kind of a field's value.
//
// Kinds drive three behaviors: the required-field message variant (string
// kinds use the "cannot be an empty string" phrasing), the coercions applied
// by Resolved's typed getters, and the constraint tag emitted by Rules for
// external validation collaborators.
//
// Kind is a schema-declaration vocabulary, not a wire value; it is never
// serialized and needs no parse or marshal surface.
type Kind int

const (
	// KindAny accepts any value without kind checking. Used for fields
	// whose payload is interpreted elsewhere, such as rehydratable context
	// descriptors.
	KindAny Kind = iota

	// KindString expects a string. Required string fields additionally
	// reject empty and whitespace-only values.
	KindString

	// KindBool expects a boolean.
	KindBool

	// KindInt expects an integer. Whole-valued floats are accepted to
	// tolerate JSON decoding, which produces float64 for all numbers.
	KindInt

	// KindTime expects a timestamp: either a time.Time value or an RFC3339
	// string.
	KindTime

	// KindEnum expects one of the field's declared Values strings, or an
	// already-parsed enum value handled by the owning model.
	KindEnum

	// KindList expects an ordered collection ([]any). List-kinded fields
	// always materialize as non-nil collections, even when omitted.
	KindList

	// KindMap expects a nested string-keyed mapping.
	KindMap

	// KindCallable marks the single leading field, if any, that makes a
	// schema eligible for callable-reference disambiguation of a lone
	// array-shaped argument.
	KindCallable
)

// String returns a short lowercase name for the Kind, for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindTime:
		return "time"
	case KindEnum:
		return "enum"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindCallable:
		return "callable"
	default:
		return "unknown"
	}
}

// tag returns the constraint tag Rules emits for the Kind, or "" when the
// kind has no external-validator vocabulary (any, callable).
func (k Kind) tag() string {
	switch k {
	case KindString, KindEnum:
		return "string"
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindTime:
		return "date"
	case KindList, KindMap:
		return "array"
	default:
		return ""
	}
}
