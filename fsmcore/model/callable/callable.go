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

// Package callable defines the Callable value object: a deferred invocation
// target carried by guards, actions and callbacks.
//
// A Callable holds exactly one of four forms:
//
//   - a reference string such as "PaymentService@authorize", naming a
//     service and a method separated by the first "@" (a string without
//     "@" names an invokable service on its own);
//   - an ordered pair, a target plus a method name, preserved exactly as
//     the raw list it was supplied as;
//   - a function value of the package's canonical Func signature;
//   - nothing at all (the zero form).
//
// Construction never judges callability. An empty Callable and a malformed
// pair are both permitted holding states; whether a Callable can actually be
// invoked is a call-time concern answered by Invokable. This separation lets
// transition definitions be loaded, validated, serialized and inspected
// without requiring the referenced services to exist yet.
//
// Ref and pair forms serialize to JSON and YAML (a string and a sequence,
// respectively); the zero form serializes as an empty sequence. Function
// values have no serialized form and fail marshaling with a MarshalError.
package callable

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"dirpx.dev/dxfsm/fsmcore/errors"
	"dirpx.dev/dxfsm/fsmcore/model"
	"gopkg.in/yaml.v3"
)

// RefSeparator splits a reference string into its service and method parts.
// Only the first occurrence separates; method names containing "@" are not a
// thing, but service identifiers are treated as opaque.
const RefSeparator = "@"

// Func is the canonical signature for in-process invocation targets.
//
// The context carries cancellation and deadlines from the surrounding
// operation. The args slice is the parameter list configured on the owning
// guard, action or callback, in declaration order. The returned value is
// interpreted by the caller (guards read it as a verdict, actions and
// callbacks usually discard it).
type Func func(ctx context.Context, args []any) (any, error)

// Kind discriminates the form a Callable holds.
type Kind int

const (
	// CallableZero is the empty form: no invocation target at all.
	// Permitted everywhere a Callable is accepted, and unusable at call
	// time.
	CallableZero Kind = iota

	// CallableRef is a reference string, "Service@method" or a bare
	// invokable service name.
	CallableRef

	// CallablePair is an ordered (target, method) pair kept verbatim as
	// the raw list it arrived as, whatever its length or contents.
	CallablePair

	// CallableFunc is an in-process function value of the canonical Func
	// signature.
	CallableFunc
)

// String returns a short lowercase name for the Kind, for diagnostics.
func (k Kind) String() string {
	switch k {
	case CallableZero:
		return "zero"
	case CallableRef:
		return "ref"
	case CallablePair:
		return "pair"
	case CallableFunc:
		return "func"
	default:
		return "unknown"
	}
}

// Callable is a deferred invocation target in one of four forms: empty,
// reference string, ordered pair, or function value.
//
// This type implements the model.Model interface, providing validation,
// serialization to JSON and YAML, safe logging, type identification, and
// zero-value detection.
//
// The zero value Callable{} is the empty form: valid, serializable (as an
// empty sequence), and unusable at call time. Malformed pairs are likewise
// valid holding states; Invokable answers whether a Callable could actually
// be dispatched.
//
// Callable values are immutable after construction and safe for concurrent
// reads. The pair form shares its backing list with the value it was
// constructed from; callers MUST NOT mutate a list after handing it to
// FromValue or NewPair.
type Callable struct {
	kind Kind
	ref  string
	pair []any
	fn   Func
}

// Compile-time check that Callable implements model.Model
var _ model.Model = (*Callable)(nil)

// NewRef returns a Callable holding a reference string. The string is kept
// verbatim; "" produces a ref-form Callable that is not invokable.
func NewRef(ref string) Callable {
	return Callable{kind: CallableRef, ref: ref}
}

// NewPair returns a Callable holding an ordered pair, preserved exactly as
// supplied. An empty or nil list is the zero form, not a pair.
func NewPair(pair []any) Callable {
	if len(pair) == 0 {
		return Callable{}
	}
	return Callable{kind: CallablePair, pair: pair}
}

// NewFunc returns a Callable holding an in-process function value. A nil
// function is the zero form.
func NewFunc(fn Func) Callable {
	if fn == nil {
		return Callable{}
	}
	return Callable{kind: CallableFunc, fn: fn}
}

// FromValue converts a raw constructor value into a Callable.
//
// Accepted shapes:
//
//   - nil and empty lists produce the zero form;
//   - strings produce the ref form, verbatim;
//   - Func values (or raw functions of the identical signature) produce
//     the func form;
//   - any other non-empty []any produces the pair form, stored VERBATIM
//     whatever its length or element types; a malformed pair is permitted
//     and simply not invokable;
//   - an existing Callable passes through unchanged.
//
// Maps and unrecognized scalars fail with a TypeError: they are field-map
// material, never invocation targets, and accepting them here would blur the
// construction paths.
func FromValue(v any) (Callable, error) {
	switch val := v.(type) {
	case nil:
		return Callable{}, nil
	case Callable:
		return val, nil
	case string:
		return NewRef(val), nil
	case Func:
		return NewFunc(val), nil
	case func(ctx context.Context, args []any) (any, error):
		return NewFunc(val), nil
	case []any:
		if len(val) == 0 {
			return Callable{}, nil
		}
		return NewPair(val), nil
	default:
		return Callable{}, &errors.TypeError{
			Type: "Callable",
			Want: "callable reference",
			Got:  fmt.Sprintf("%T", v),
		}
	}
}

// Kind returns the form this Callable holds.
func (c Callable) Kind() Kind {
	return c.kind
}

// Ref returns the raw reference string, or "" for non-ref forms.
func (c Callable) Ref() string {
	return c.ref
}

// Split returns the service and method parts of a ref-form Callable,
// splitting on the first RefSeparator. A ref without a separator is a bare
// invokable service: the whole string is the service and the method is "".
// Non-ref forms return two empty strings.
func (c Callable) Split() (service, method string) {
	if c.kind != CallableRef {
		return "", ""
	}
	if idx := strings.Index(c.ref, RefSeparator); idx >= 0 {
		return c.ref[:idx], c.ref[idx+len(RefSeparator):]
	}
	return c.ref, ""
}

// Pair returns the raw ordered pair exactly as supplied, or nil for non-pair
// forms. The returned list is the held backing list; callers MUST NOT mutate
// it.
func (c Callable) Pair() []any {
	if c.kind != CallablePair {
		return nil
	}
	return c.pair
}

// Func returns the held function value, or nil for non-func forms.
func (c Callable) Func() Func {
	if c.kind != CallableFunc {
		return nil
	}
	return c.fn
}

// Value returns the raw constructor form of the Callable: an empty list for
// the zero form, the ref string, the verbatim pair list, or the func value.
// FromValue(c.Value()) reproduces c, which is what field-map round-trips
// rely on.
func (c Callable) Value() any {
	switch c.kind {
	case CallableRef:
		return c.ref
	case CallablePair:
		return c.pair
	case CallableFunc:
		return c.fn
	default:
		return []any{}
	}
}

// Invokable reports whether this Callable names a dispatchable target.
//
// The zero form is never invokable. A ref is invokable when non-empty. A
// pair is invokable when it has exactly two elements, a non-nil target and a
// non-empty string method. A func is always invokable.
//
// Invokable checks shape only; it does not verify that the named service or
// method actually exists.
func (c Callable) Invokable() bool {
	switch c.kind {
	case CallableRef:
		return c.ref != ""
	case CallableFunc:
		return true
	case CallablePair:
		if len(c.pair) != 2 || c.pair[0] == nil {
			return false
		}
		method, ok := c.pair[1].(string)
		return ok && method != ""
	default:
		return false
	}
}

// String returns the human-readable representation of the Callable.
//
// Format varies by form:
//
//	Callable{}                      // zero
//	Callable{Ref:Service@method}    // ref
//	Callable{Pair:[Service method]} // pair
//	Callable{Func}                  // func
func (c Callable) String() string {
	switch c.kind {
	case CallableRef:
		return "Callable{Ref:" + c.ref + "}"
	case CallablePair:
		return fmt.Sprintf("Callable{Pair:%v}", c.pair)
	case CallableFunc:
		return "Callable{Func}"
	default:
		return "Callable{}"
	}
}

// Redacted returns a safe representation for production logging.
//
// Service and method identifiers are code identity, not PII, so ref forms are
// shown in full. Pair targets, however, can be arbitrary objects carrying
// user data: non-string targets are reduced to their Go type.
func (c Callable) Redacted() string {
	if c.kind != CallablePair {
		return c.String()
	}
	parts := make([]string, len(c.pair))
	for i, el := range c.pair {
		if s, ok := el.(string); ok {
			parts[i] = s
		} else {
			parts[i] = fmt.Sprintf("%T", el)
		}
	}
	return "Callable{Pair:[" + strings.Join(parts, " ") + "]}"
}

// TypeName returns the name of this type for error messages and debugging.
//
// This method implements the model.Identifiable contract.
func (c Callable) TypeName() string {
	return "Callable"
}

// IsZero reports whether this Callable is the empty form.
//
// This method implements the model.ZeroCheckable contract. Unlike most model
// types, a zero Callable is fully valid; IsZero here distinguishes "no
// target configured" from "some target configured", not valid from invalid.
func (c Callable) IsZero() bool {
	return c.kind == CallableZero
}

// Equal reports whether this Callable holds the same target as another.
//
// Refs compare by string equality, pairs by deep element equality, and func
// forms by function identity (two distinct closures with identical behavior
// are not equal). Forms never equal other forms, even when a ref and a pair
// would dispatch to the same place.
func (c Callable) Equal(other Callable) bool {
	if c.kind != other.kind {
		return false
	}
	switch c.kind {
	case CallableRef:
		return c.ref == other.ref
	case CallablePair:
		return reflect.DeepEqual(c.pair, other.pair)
	case CallableFunc:
		return reflect.ValueOf(c.fn).Pointer() == reflect.ValueOf(other.fn).Pointer()
	default:
		return true
	}
}

// Validate checks whether this Callable satisfies all model contracts.
//
// Every form is a valid holding state, including the empty form and
// malformed pairs: construction stores what it was given, and usability is
// the call-time question answered by Invokable. Validate therefore always
// returns nil. It exists to satisfy the model.Validatable contract and to
// keep Callable usable with the generic model helpers.
func (c Callable) Validate() error {
	return nil
}

// MarshalJSON implements json.Marshaler. This method satisfies part of the
// model.Serializable interface requirement.
//
// Serialized forms:
//
//	zero  -> []
//	ref   -> "Service@method"
//	pair  -> ["Service","method"] (elements verbatim)
//	func  -> error
//
// Function values have no serialized form; marshaling a func-form Callable
// fails with a MarshalError so that in-process closures never silently leak
// into persisted definitions.
func (c Callable) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case CallableZero:
		return []byte("[]"), nil
	case CallableRef:
		return json.Marshal(c.ref)
	case CallablePair:
		return json.Marshal(c.pair)
	default:
		return nil, &errors.MarshalError{Type: c.TypeName(), Value: int(c.kind)}
	}
}

// UnmarshalJSON implements json.Unmarshaler. This method satisfies part of
// the model.Serializable interface requirement.
//
// Accepted inputs mirror MarshalJSON: a JSON string becomes a ref, a JSON
// array becomes a pair (or the zero form when empty), and null becomes the
// zero form. Objects and other scalars fail with an UnmarshalError.
func (c *Callable) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))

	if trimmed == "null" {
		*c = Callable{}
		return nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var ref string
		if err := json.Unmarshal(data, &ref); err != nil {
			return &errors.UnmarshalError{
				Type:   c.TypeName(),
				Data:   data,
				Reason: err.Error(),
			}
		}
		*c = NewRef(ref)
		return nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var pair []any
		if err := json.Unmarshal(data, &pair); err != nil {
			return &errors.UnmarshalError{
				Type:   c.TypeName(),
				Data:   data,
				Reason: err.Error(),
			}
		}
		*c = NewPair(pair)
		return nil
	}

	return &errors.UnmarshalError{
		Type:   c.TypeName(),
		Data:   data,
		Reason: "must be a string or a sequence",
	}
}

// MarshalYAML implements yaml.Marshaler. This method satisfies part of the
// model.Serializable interface requirement.
//
// The YAML forms mirror the JSON ones: a scalar string for refs, a sequence
// for pairs, an empty sequence for the zero form, and a MarshalError for
// func forms.
func (c Callable) MarshalYAML() (interface{}, error) {
	switch c.kind {
	case CallableZero:
		return []any{}, nil
	case CallableRef:
		return c.ref, nil
	case CallablePair:
		return c.pair, nil
	default:
		return nil, &errors.MarshalError{Type: c.TypeName(), Value: int(c.kind)}
	}
}

// UnmarshalYAML implements yaml.Unmarshaler. This method satisfies part of
// the model.Serializable interface requirement.
//
// A scalar string node becomes a ref, a sequence node becomes a pair (or the
// zero form when empty), and a null node becomes the zero form. Mapping
// nodes fail with an UnmarshalError.
func (c *Callable) UnmarshalYAML(node *yaml.Node) error {
	switch {
	case node.Tag == "!!null":
		*c = Callable{}
		return nil

	case node.Kind == yaml.ScalarNode:
		var ref string
		if err := node.Decode(&ref); err != nil {
			return &errors.UnmarshalError{
				Type:   c.TypeName(),
				Reason: err.Error(),
			}
		}
		*c = NewRef(ref)
		return nil

	case node.Kind == yaml.SequenceNode:
		var pair []any
		if err := node.Decode(&pair); err != nil {
			return &errors.UnmarshalError{
				Type:   c.TypeName(),
				Reason: err.Error(),
			}
		}
		*c = NewPair(pair)
		return nil

	default:
		return &errors.UnmarshalError{
			Type:   c.TypeName(),
			Reason: "must be a string or a sequence",
		}
	}
}
