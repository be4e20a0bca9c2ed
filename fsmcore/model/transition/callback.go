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

var callbackSchema = schema.New("TransitionCallback",
	schema.Field{Name: "callable", Kind: schema.KindCallable},
	schema.Field{Name: "parameters", Kind: schema.KindList, Default: []any{}},
	schema.Field{Name: "stage", Kind: schema.KindEnum, Values: []string{StageBeforeStr, StageAfterStr}, Default: StageAfterStr},
)

// CallbackSchema returns the field schema shared by every Callback
// construction path.
func CallbackSchema() *schema.Schema {
	return callbackSchema
}

// Callback is the declaration of a transition observer: a callable run at a
// declared stage of the transition, with its extra parameters.
//
// Callbacks observe; they cannot veto (guards do that) and they are not
// queued (actions do that). The empty Callback is a permitted holding
// state, defaulting to the after stage.
type Callback struct {
	// Callable names the observer to run. Any callable form is accepted,
	// including the empty one.
	Callable callable.Callable `json:"callable" yaml:"callable"`

	// Parameters are the extra arguments passed to the callable.
	// Constructed Callbacks always carry a non-nil list.
	Parameters []any `json:"parameters" yaml:"parameters"`

	// Stage declares when the callback runs. Defaults to StageAfter.
	Stage Stage `json:"stage" yaml:"stage"`
}

// Compile-time check that Callback implements model.Model
var _ model.Model = (*Callback)(nil)

// NewCallback creates a Callback from its typed components. The parameters
// list is copied; nil materializes as an empty list. Stage validity is
// enforced by Validate and the marshal methods, not here.
func NewCallback(c callable.Callable, parameters []any, stage Stage) Callback {
	return Callback{Callable: c, Parameters: copyList(parameters), Stage: stage}
}

// CallbackFromArgs constructs a Callback from a single loosely-typed
// argument, applying the same argument disambiguation as GuardFromArgs.
func CallbackFromArgs(arg any) (Callback, error) {
	res, err := callbackSchema.Resolve(arg)
	if err != nil {
		return Callback{}, err
	}
	if res.Path == schema.PathCallable {
		c, err := callable.FromValue(res.Callable)
		if err != nil {
			return Callback{}, err
		}
		return Callback{Callable: c, Parameters: []any{}, Stage: StageAfter}, nil
	}
	return callbackFromResolved(res.Fields)
}

// CallbackFromFieldMap constructs a Callback from a field map without
// argument disambiguation. An empty map yields the fully-defaulted (empty,
// after-stage) Callback.
func CallbackFromFieldMap(m fieldmap.Map) (Callback, error) {
	r, err := callbackSchema.Apply(m)
	if err != nil {
		return Callback{}, err
	}
	return callbackFromResolved(r)
}

func callbackFromResolved(r *schema.Resolved) (Callback, error) {
	c, params, err := callableParameters(r)
	if err != nil {
		return Callback{}, err
	}
	st, err := stageValue(r.Value("stage"))
	if err != nil {
		return Callback{}, err
	}
	return Callback{Callable: c, Parameters: params, Stage: st}, nil
}

// stageValue interprets the raw stage field: a Stage value is taken as-is
// when valid, a string is parsed, anything else is a kind mismatch.
func stageValue(raw any) (Stage, error) {
	switch v := raw.(type) {
	case nil:
		return StageAfter, nil
	case Stage:
		if !v.Valid() {
			return StageAfter, &errors.ValidationError{
				Type:   "TransitionCallback",
				Field:  "stage",
				Reason: `must be "before" or "after"`,
				Value:  v,
			}
		}
		return v, nil
	case string:
		return ParseStage(v)
	default:
		return StageAfter, &errors.TypeError{
			Type:  "TransitionCallback",
			Field: "stage",
			Want:  "string",
			Got:   fmt.Sprintf("%T", v),
		}
	}
}

// FieldMap returns the Callback's fields as a field map suitable for
// storage and reconstruction: CallbackFromFieldMap(cb.FieldMap())
// reproduces cb. The stage travels as its canonical string.
func (cb Callback) FieldMap() fieldmap.Map {
	return fieldmap.Map{
		"callable":   cb.Callable.Value(),
		"parameters": copyList(cb.Parameters),
		"stage":      cb.Stage.String(),
	}
}

// String returns the human-readable representation of the Callback.
//
// Format: "TransitionCallback{Callable:<callable>, Parameters:<values>, Stage:<stage>}"
func (cb Callback) String() string {
	return fmt.Sprintf("TransitionCallback{Callable:%s, Parameters:%v, Stage:%s}", cb.Callable, cb.Parameters, cb.Stage)
}

// Redacted returns a safe representation of the Callback for production
// logs, masking parameter values the same way Guard does.
func (cb Callback) Redacted() string {
	return fmt.Sprintf("TransitionCallback{Callable:%s, Parameters:[%d values], Stage:%s}", cb.Callable.Redacted(), len(cb.Parameters), cb.Stage)
}

// TypeName returns the name of this type for error messages and debugging.
func (cb Callback) TypeName() string {
	return "TransitionCallback"
}

// IsZero reports whether this Callback is the zero value: an empty
// callable, no parameters, and the default after stage.
func (cb Callback) IsZero() bool {
	return cb.Callable.IsZero() && len(cb.Parameters) == 0 && cb.Stage == StageAfter
}

// Equal reports whether this Callback is structurally equal to another
// Callback.
func (cb Callback) Equal(other Callback) bool {
	return cb.Callable.Equal(other.Callable) &&
		reflect.DeepEqual(cb.Parameters, other.Parameters) &&
		cb.Stage == other.Stage
}

// Validate checks whether this Callback satisfies the model contract.
//
// The callable and parameters are unconstrained, like Guard's; the stage
// MUST be one of the declared constants.
func (cb Callback) Validate() error {
	if !cb.Stage.Valid() {
		return &errors.ValidationError{
			Type:   cb.TypeName(),
			Field:  "stage",
			Reason: `must be "before" or "after"`,
			Value:  cb.Stage,
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler, serializing the Callback as an
// object with its callable in raw form, a non-nil parameter list, and the
// stage as its canonical string. An invalid stage fails marshaling.
func (cb Callback) MarshalJSON() ([]byte, error) {
	if err := cb.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", cb.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type callback Callback
	cc := callback(cb)
	if cc.Parameters == nil {
		cc.Parameters = []any{}
	}
	return json.Marshal(cc)
}

// UnmarshalJSON implements json.Unmarshaler, mirroring Guard's behavior.
// The stage field accepts the canonical strings and their case variants.
func (cb *Callback) UnmarshalJSON(data []byte) error {
	type callback Callback
	if err := json.Unmarshal(data, (*callback)(cb)); err != nil {
		return &errors.UnmarshalError{
			Type:   cb.TypeName(),
			Data:   data,
			Reason: err.Error(),
		}
	}
	if cb.Parameters == nil {
		cb.Parameters = []any{}
	}

	if err := cb.Validate(); err != nil {
		return &errors.UnmarshalError{
			Type:   cb.TypeName(),
			Data:   data,
			Reason: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return nil
}

// MarshalYAML implements yaml.Marshaler, mirroring the JSON object form.
func (cb Callback) MarshalYAML() (any, error) {
	if err := cb.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", cb.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type callback Callback
	cc := callback(cb)
	if cc.Parameters == nil {
		cc.Parameters = []any{}
	}
	return cc, nil
}

// UnmarshalYAML implements yaml.Unmarshaler, mirroring the JSON behavior.
func (cb *Callback) UnmarshalYAML(node *yaml.Node) error {
	type callback Callback
	if err := node.Decode((*callback)(cb)); err != nil {
		return &errors.UnmarshalError{
			Type:   cb.TypeName(),
			Data:   []byte(node.Value),
			Reason: err.Error(),
		}
	}
	if cb.Parameters == nil {
		cb.Parameters = []any{}
	}

	if err := cb.Validate(); err != nil {
		return &errors.UnmarshalError{
			Type:   cb.TypeName(),
			Data:   []byte(node.Value),
			Reason: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return nil
}
