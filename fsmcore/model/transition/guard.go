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

package transition

import (
	"encoding/json"
	"fmt"
	"reflect"

	"dirpx.dev/dxfsm/fsmcore/errors"
	"dirpx.dev/dxfsm/fsmcore/fieldmap"
	"dirpx.dev/dxfsm/fsmcore/model"
	"dirpx.dev/dxfsm/fsmcore/model/callable"
	"dirpx.dev/dxfsm/fsmcore/schema"
	"gopkg.in/yaml.v3"
)

var guardSchema = schema.New("TransitionGuard",
	schema.Field{Name: "callable", Kind: schema.KindCallable},
	schema.Field{Name: "parameters", Kind: schema.KindList, Default: []any{}},
)

// GuardSchema returns the field schema shared by every Guard construction
// path. Rules() on the result yields the external field-rules declaration.
func GuardSchema() *schema.Schema {
	return guardSchema
}

// Guard is the declaration of a transition precondition: a callable that is
// consulted before a transition runs, with the extra parameters it should
// receive.
//
// A Guard only names the check; evaluating it is the transition engine's
// business. The empty Guard is permitted (it declares no check and is
// unusable at call time), so the zero value is valid.
type Guard struct {
	// Callable names the check to consult. Any callable form is accepted,
	// including the empty one.
	Callable callable.Callable `json:"callable" yaml:"callable"`

	// Parameters are the extra arguments passed to the callable after the
	// transition payload. Constructed Guards always carry a non-nil list.
	Parameters []any `json:"parameters" yaml:"parameters"`
}

// Compile-time check that Guard implements model.Model
var _ model.Model = (*Guard)(nil)

// NewGuard creates a Guard from its typed components. The parameters list
// is copied; nil materializes as an empty list.
func NewGuard(c callable.Callable, parameters []any) Guard {
	return Guard{Callable: c, Parameters: copyList(parameters)}
}

// GuardFromArgs constructs a Guard from a single loosely-typed argument,
// applying the argument disambiguation procedure.
//
// Accepted shapes:
//
//   - nil or an empty list: the empty Guard.
//   - a list: the whole list becomes the callable pair, verbatim, and
//     parameters default to empty (["AuditService", "check"] is the common
//     case).
//   - a string, function, or prebuilt callable value: the callable field.
//   - a field map: the strict field-map path, same as GuardFromFieldMap.
//
// Anything else fails with a type error.
func GuardFromArgs(arg any) (Guard, error) {
	res, err := guardSchema.Resolve(arg)
	if err != nil {
		return Guard{}, err
	}
	if res.Path == schema.PathCallable {
		c, err := callable.FromValue(res.Callable)
		if err != nil {
			return Guard{}, err
		}
		return Guard{Callable: c, Parameters: []any{}}, nil
	}
	return guardFromResolved(res.Fields)
}

// GuardFromFieldMap constructs a Guard from a field map, with key
// normalization, defaulting, and required-field validation but no argument
// disambiguation. An empty map yields the fully-defaulted (empty) Guard.
func GuardFromFieldMap(m fieldmap.Map) (Guard, error) {
	r, err := guardSchema.Apply(m)
	if err != nil {
		return Guard{}, err
	}
	return guardFromResolved(r)
}

func guardFromResolved(r *schema.Resolved) (Guard, error) {
	c, params, err := callableParameters(r)
	if err != nil {
		return Guard{}, err
	}
	return Guard{Callable: c, Parameters: params}, nil
}

// callableParameters extracts the callable/parameters field pair shared by
// Guard, Action, and Callback. The parameters list is copied so that the
// constructed value owns its collection.
func callableParameters(r *schema.Resolved) (callable.Callable, []any, error) {
	c, err := callable.FromValue(r.Value("callable"))
	if err != nil {
		return callable.Callable{}, nil, err
	}
	params, err := r.List("parameters")
	if err != nil {
		return callable.Callable{}, nil, err
	}
	return c, copyList(params), nil
}

// copyList returns an owned copy of a parameter list, materializing nil as
// an empty list.
func copyList(v []any) []any {
	out := make([]any, len(v))
	copy(out, v)
	return out
}

// FieldMap returns the Guard's fields as a field map suitable for storage
// and reconstruction: GuardFromFieldMap(g.FieldMap()) reproduces g.
//
// The callable travels in its raw form (ref string, pair list, func value,
// or an empty list for the empty callable); parameters are copied.
func (g Guard) FieldMap() fieldmap.Map {
	return fieldmap.Map{
		"callable":   g.Callable.Value(),
		"parameters": copyList(g.Parameters),
	}
}

// String returns the human-readable representation of the Guard, including
// the full callable and parameter values for debugging visibility.
//
// Format: "TransitionGuard{Callable:<callable>, Parameters:<values>}"
func (g Guard) String() string {
	return fmt.Sprintf("TransitionGuard{Callable:%s, Parameters:%v}", g.Callable, g.Parameters)
}

// Redacted returns a safe representation of the Guard for production logs.
//
// Parameter values routinely carry business payloads (order amounts,
// customer identifiers), so only their count is shown; the callable is
// redacted through its own Redacted form, which masks object targets.
func (g Guard) Redacted() string {
	return fmt.Sprintf("TransitionGuard{Callable:%s, Parameters:[%d values]}", g.Callable.Redacted(), len(g.Parameters))
}

// TypeName returns the name of this type for error messages and debugging.
func (g Guard) TypeName() string {
	return "TransitionGuard"
}

// IsZero reports whether this Guard is the zero value: an empty callable
// and no parameters. The zero Guard is valid but declares no check.
func (g Guard) IsZero() bool {
	return g.Callable.IsZero() && len(g.Parameters) == 0
}

// Equal reports whether this Guard is structurally equal to another Guard:
// same callable form and deeply equal parameter lists.
func (g Guard) Equal(other Guard) bool {
	return g.Callable.Equal(other.Callable) &&
		reflect.DeepEqual(g.Parameters, other.Parameters)
}

// Validate checks whether this Guard satisfies the model contract.
//
// Every Guard state is permitted, including the empty one: a guard that
// cannot be dispatched is a call-time concern, not a construction error.
// Validate therefore always returns nil; it exists so Guards compose with
// the generic model helpers and batch validation.
func (g Guard) Validate() error {
	return nil
}

// MarshalJSON implements json.Marshaler, serializing the Guard as an object
// with its callable in raw form and its parameter list, which is always
// emitted non-nil:
//
//	{"callable": "AuditService@check", "parameters": []}
//
// Marshaling fails when the callable holds an in-process function value,
// which has no serialized form.
func (g Guard) MarshalJSON() ([]byte, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", g.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type guard Guard
	gg := guard(g)
	if gg.Parameters == nil {
		gg.Parameters = []any{}
	}
	return json.Marshal(gg)
}

// UnmarshalJSON implements json.Unmarshaler. The callable field accepts a
// string ref or a pair sequence; a missing or null parameters field
// materializes as an empty list. The result is validated before being
// stored in the receiver.
func (g *Guard) UnmarshalJSON(data []byte) error {
	type guard Guard
	if err := json.Unmarshal(data, (*guard)(g)); err != nil {
		return &errors.UnmarshalError{
			Type:   g.TypeName(),
			Data:   data,
			Reason: err.Error(),
		}
	}
	if g.Parameters == nil {
		g.Parameters = []any{}
	}

	if err := g.Validate(); err != nil {
		return &errors.UnmarshalError{
			Type:   g.TypeName(),
			Data:   data,
			Reason: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return nil
}

// MarshalYAML implements yaml.Marshaler, mirroring the JSON object form.
func (g Guard) MarshalYAML() (any, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", g.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type guard Guard
	gg := guard(g)
	if gg.Parameters == nil {
		gg.Parameters = []any{}
	}
	return gg, nil
}

// UnmarshalYAML implements yaml.Unmarshaler, mirroring the JSON behavior.
func (g *Guard) UnmarshalYAML(node *yaml.Node) error {
	type guard Guard
	if err := node.Decode((*guard)(g)); err != nil {
		return &errors.UnmarshalError{
			Type:   g.TypeName(),
			Data:   []byte(node.Value),
			Reason: err.Error(),
		}
	}
	if g.Parameters == nil {
		g.Parameters = []any{}
	}

	if err := g.Validate(); err != nil {
		return &errors.UnmarshalError{
			Type:   g.TypeName(),
			Data:   []byte(node.Value),
			Reason: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return nil
}
