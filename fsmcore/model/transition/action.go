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

var actionSchema = schema.New("TransitionAction",
	schema.Field{Name: "callable", Kind: schema.KindCallable},
	schema.Field{Name: "parameters", Kind: schema.KindList, Default: []any{}},
	schema.Field{Name: "queued", Kind: schema.KindBool, Default: false},
)

// ActionSchema returns the field schema shared by every Action construction
// path.
func ActionSchema() *schema.Schema {
	return actionSchema
}

// Action is the declaration of a transition side effect: a callable run
// after a transition applies, with its extra parameters and a flag for
// queued (asynchronous) execution.
//
// Like Guard, an Action only names the effect; running it is the engine's
// business, and the empty Action is a permitted holding state.
type Action struct {
	// Callable names the effect to run. Any callable form is accepted,
	// including the empty one.
	Callable callable.Callable `json:"callable" yaml:"callable"`

	// Parameters are the extra arguments passed to the callable.
	// Constructed Actions always carry a non-nil list.
	Parameters []any `json:"parameters" yaml:"parameters"`

	// Queued marks the action for asynchronous dispatch instead of inline
	// execution. Defaults to false.
	Queued bool `json:"queued" yaml:"queued"`
}

// Compile-time check that Action implements model.Model
var _ model.Model = (*Action)(nil)

// NewAction creates an Action from its typed components. The parameters
// list is copied; nil materializes as an empty list.
func NewAction(c callable.Callable, parameters []any, queued bool) Action {
	return Action{Callable: c, Parameters: copyList(parameters), Queued: queued}
}

// ActionFromArgs constructs an Action from a single loosely-typed argument,
// applying the same argument disambiguation as GuardFromArgs: lists and
// bare callable values populate the callable field with everything else at
// its default, field maps take the strict path.
func ActionFromArgs(arg any) (Action, error) {
	res, err := actionSchema.Resolve(arg)
	if err != nil {
		return Action{}, err
	}
	if res.Path == schema.PathCallable {
		c, err := callable.FromValue(res.Callable)
		if err != nil {
			return Action{}, err
		}
		return Action{Callable: c, Parameters: []any{}}, nil
	}
	return actionFromResolved(res.Fields)
}

// ActionFromFieldMap constructs an Action from a field map without argument
// disambiguation. An empty map yields the fully-defaulted (empty) Action.
func ActionFromFieldMap(m fieldmap.Map) (Action, error) {
	r, err := actionSchema.Apply(m)
	if err != nil {
		return Action{}, err
	}
	return actionFromResolved(r)
}

func actionFromResolved(r *schema.Resolved) (Action, error) {
	c, params, err := callableParameters(r)
	if err != nil {
		return Action{}, err
	}
	queued, err := r.Bool("queued")
	if err != nil {
		return Action{}, err
	}
	return Action{Callable: c, Parameters: params, Queued: queued}, nil
}

// FieldMap returns the Action's fields as a field map suitable for storage
// and reconstruction: ActionFromFieldMap(a.FieldMap()) reproduces a.
func (a Action) FieldMap() fieldmap.Map {
	return fieldmap.Map{
		"callable":   a.Callable.Value(),
		"parameters": copyList(a.Parameters),
		"queued":     a.Queued,
	}
}

// String returns the human-readable representation of the Action.
//
// Format: "TransitionAction{Callable:<callable>, Parameters:<values>, Queued:<bool>}"
func (a Action) String() string {
	return fmt.Sprintf("TransitionAction{Callable:%s, Parameters:%v, Queued:%t}", a.Callable, a.Parameters, a.Queued)
}

// Redacted returns a safe representation of the Action for production
// logs, masking parameter values the same way Guard does.
func (a Action) Redacted() string {
	return fmt.Sprintf("TransitionAction{Callable:%s, Parameters:[%d values], Queued:%t}", a.Callable.Redacted(), len(a.Parameters), a.Queued)
}

// TypeName returns the name of this type for error messages and debugging.
func (a Action) TypeName() string {
	return "TransitionAction"
}

// IsZero reports whether this Action is the zero value: an empty callable,
// no parameters, and inline execution.
func (a Action) IsZero() bool {
	return a.Callable.IsZero() && len(a.Parameters) == 0 && !a.Queued
}

// Equal reports whether this Action is structurally equal to another
// Action.
func (a Action) Equal(other Action) bool {
	return a.Callable.Equal(other.Callable) &&
		reflect.DeepEqual(a.Parameters, other.Parameters) &&
		a.Queued == other.Queued
}

// Validate checks whether this Action satisfies the model contract. Every
// Action state is permitted; see Guard.Validate for the reasoning.
func (a Action) Validate() error {
	return nil
}

// MarshalJSON implements json.Marshaler, serializing the Action as an
// object with its callable in raw form, a non-nil parameter list, and the
// queued flag. Marshaling fails when the callable holds a function value.
func (a Action) MarshalJSON() ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", a.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type action Action
	aa := action(a)
	if aa.Parameters == nil {
		aa.Parameters = []any{}
	}
	return json.Marshal(aa)
}

// UnmarshalJSON implements json.Unmarshaler, mirroring Guard's behavior.
func (a *Action) UnmarshalJSON(data []byte) error {
	type action Action
	if err := json.Unmarshal(data, (*action)(a)); err != nil {
		return &errors.UnmarshalError{
			Type:   a.TypeName(),
			Data:   data,
			Reason: err.Error(),
		}
	}
	if a.Parameters == nil {
		a.Parameters = []any{}
	}

	if err := a.Validate(); err != nil {
		return &errors.UnmarshalError{
			Type:   a.TypeName(),
			Data:   data,
			Reason: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return nil
}

// MarshalYAML implements yaml.Marshaler, mirroring the JSON object form.
func (a Action) MarshalYAML() (any, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", a.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type action Action
	aa := action(a)
	if aa.Parameters == nil {
		aa.Parameters = []any{}
	}
	return aa, nil
}

// UnmarshalYAML implements yaml.Unmarshaler, mirroring the JSON behavior.
func (a *Action) UnmarshalYAML(node *yaml.Node) error {
	type action Action
	if err := node.Decode((*action)(a)); err != nil {
		return &errors.UnmarshalError{
			Type:   a.TypeName(),
			Data:   []byte(node.Value),
			Reason: err.Error(),
		}
	}
	if a.Parameters == nil {
		a.Parameters = []any{}
	}

	if err := a.Validate(); err != nil {
		return &errors.UnmarshalError{
			Type:   a.TypeName(),
			Data:   []byte(node.Value),
			Reason: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return nil
}
