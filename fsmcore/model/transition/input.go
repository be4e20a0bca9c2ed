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
	"strings"

	"dirpx.dev/dxfsm/fsmcore/errors"
	"dirpx.dev/dxfsm/fsmcore/fieldmap"
	"dirpx.dev/dxfsm/fsmcore/hydrate"
	"dirpx.dev/dxfsm/fsmcore/model"
	"dirpx.dev/dxfsm/fsmcore/schema"
	"gopkg.in/yaml.v3"
)

var inputSchema = schema.New("TransitionInput",
	schema.Field{Name: "modelClass", Kind: schema.KindString, Required: true},
	schema.Field{Name: "modelId", Kind: schema.KindString, Required: true},
	schema.Field{Name: "columnName", Kind: schema.KindString, Required: true},
	schema.Field{Name: "from", Kind: schema.KindString},
	schema.Field{Name: "to", Kind: schema.KindString, Required: true},
	schema.Field{Name: "context", Kind: schema.KindAny},
)

// InputSchema returns the field schema shared by every Input construction
// path.
func InputSchema() *schema.Schema {
	return inputSchema
}

// Input is the runtime request to perform a state transition on one record:
// which model type, which record, which state column, the states involved,
// and an optional caller-supplied context value.
//
// ModelClass, ModelID, ColumnName, and To are required; From MAY be empty
// when the caller wants the current state resolved at execution time.
//
// Context is opaque to this package except for one convention: when the
// loose construction paths receive a stored context descriptor (a map
// carrying a non-empty "class" string and an optional "payload" map), the
// value is rehydrated through the process-wide hydrate registry before it is
// stored, and any value implementing hydrate.Dehydratable is dehydrated back
// to its descriptor on the way out through FieldMap and marshaling. Every
// other context value travels verbatim.
type Input struct {
	// ModelClass identifies the model type the transition applies to.
	ModelClass string `json:"modelClass" yaml:"modelClass"`

	// ModelID identifies the record within ModelClass.
	ModelID string `json:"modelId" yaml:"modelId"`

	// ColumnName is the state column being transitioned.
	ColumnName string `json:"columnName" yaml:"columnName"`

	// From is the expected source state. Empty means resolve at execution.
	From string `json:"from" yaml:"from"`

	// To is the target state.
	To string `json:"to" yaml:"to"`

	// Context is the caller-supplied context value, if any.
	Context any `json:"context,omitempty" yaml:"context,omitempty"`
}

// Compile-time check that Input implements model.Model
var _ model.Model = (*Input)(nil)

// NewInput creates an Input from its typed components, validating the result
// before returning. The context value is stored as given; callers holding a
// descriptor map SHOULD construct through InputFromFieldMap instead so it
// rehydrates.
func NewInput(modelClass, modelID, columnName, from, to string, context any) (Input, error) {
	in := Input{
		ModelClass: modelClass,
		ModelID:    modelID,
		ColumnName: columnName,
		From:       from,
		To:         to,
		Context:    context,
	}

	if err := in.Validate(); err != nil {
		return Input{}, err
	}

	return in, nil
}

// InputFromArgs constructs an Input from a single loosely-typed argument.
// Input is not callable-eligible, so the argument must be a field map;
// lists and bare scalars fail with the corresponding shape or type error.
func InputFromArgs(arg any) (Input, error) {
	res, err := inputSchema.Resolve(arg)
	if err != nil {
		return Input{}, err
	}
	return inputFromResolved(res.Fields)
}

// InputFromFieldMap constructs an Input from a field map. Keys are
// normalized (model_class, model_id, and column_name are accepted),
// modelClass/modelId/columnName/to are required, and a context descriptor is
// rehydrated through the process-wide registry. Hydration failures and
// factory errors propagate unchanged.
func InputFromFieldMap(m fieldmap.Map) (Input, error) {
	r, err := inputSchema.Apply(m)
	if err != nil {
		return Input{}, err
	}
	return inputFromResolved(r)
}

func inputFromResolved(r *schema.Resolved) (Input, error) {
	modelClass, err := r.String("modelClass")
	if err != nil {
		return Input{}, err
	}
	modelID, err := r.String("modelId")
	if err != nil {
		return Input{}, err
	}
	columnName, err := r.String("columnName")
	if err != nil {
		return Input{}, err
	}
	from, err := r.String("from")
	if err != nil {
		return Input{}, err
	}
	to, err := r.String("to")
	if err != nil {
		return Input{}, err
	}

	ctx, err := hydrate.Hydrate(r.Value("context"))
	if err != nil {
		return Input{}, err
	}

	return Input{
		ModelClass: modelClass,
		ModelID:    modelID,
		ColumnName: columnName,
		From:       from,
		To:         to,
		Context:    ctx,
	}, nil
}

// FieldMap returns the Input's fields as a field map suitable for storage
// and reconstruction. A context implementing hydrate.Dehydratable emits its
// descriptor; a nil context emits no key at all; anything else travels
// verbatim.
func (in Input) FieldMap() fieldmap.Map {
	m := fieldmap.Map{
		"modelClass": in.ModelClass,
		"modelId":    in.ModelID,
		"columnName": in.ColumnName,
		"from":       in.From,
		"to":         in.To,
	}

	switch c := in.Context.(type) {
	case nil:
	case hydrate.Dehydratable:
		m["context"] = map[string]any(c.Dehydrate().FieldMap())
	default:
		m["context"] = in.Context
	}

	return m
}

// String returns the human-readable representation of the Input, including
// the record identifier and the raw context.
func (in Input) String() string {
	return fmt.Sprintf("TransitionInput{ModelClass:%s, ModelID:%s, ColumnName:%s, From:%s, To:%s, Context:%v}",
		in.ModelClass, in.ModelID, in.ColumnName, in.From, in.To, in.Context)
}

// Redacted returns a safe representation of the Input for production logs.
// The record identifier is masked to its first character and the context is
// reduced to its redacted form (model.Loggable values) or its type.
func (in Input) Redacted() string {
	return fmt.Sprintf("TransitionInput{ModelClass:%s, ModelID:%s, ColumnName:%s, From:%s, To:%s, Context:%s}",
		in.ModelClass, redactID(in.ModelID), in.ColumnName, in.From, in.To, redactContext(in.Context))
}

// redactID masks a record identifier for logging, keeping only the first
// character.
func redactID(id string) string {
	if id == "" {
		return "[empty]"
	}
	return string(id[0]) + "***"
}

// redactContext reduces an arbitrary context value to a log-safe string.
func redactContext(v any) string {
	switch c := v.(type) {
	case nil:
		return "<nil>"
	case model.Loggable:
		return c.Redacted()
	default:
		return fmt.Sprintf("[%T]", v)
	}
}

// TypeName returns the name of this type for error messages and debugging.
func (in Input) TypeName() string {
	return "TransitionInput"
}

// IsZero reports whether this Input is the zero value with no fields set.
func (in Input) IsZero() bool {
	return in.ModelClass == "" && in.ModelID == "" && in.ColumnName == "" &&
		in.From == "" && in.To == "" && in.Context == nil
}

// Equal reports whether this Input equals another Input. Context values are
// compared structurally.
func (in Input) Equal(other Input) bool {
	return in.ModelClass == other.ModelClass &&
		in.ModelID == other.ModelID &&
		in.ColumnName == other.ColumnName &&
		in.From == other.From &&
		in.To == other.To &&
		reflect.DeepEqual(in.Context, other.Context)
}

// Validate checks whether this Input satisfies all model contracts.
//
// ModelClass, ModelID, ColumnName, and To MUST be non-empty (whitespace-only
// counts as empty, matching required-field validation at construction). From
// and Context are unconstrained.
func (in Input) Validate() error {
	if strings.TrimSpace(in.ModelClass) == "" {
		return &errors.RequiredError{Type: in.TypeName(), Field: "modelClass", Stringly: true}
	}
	if strings.TrimSpace(in.ModelID) == "" {
		return &errors.RequiredError{Type: in.TypeName(), Field: "modelId", Stringly: true}
	}
	if strings.TrimSpace(in.ColumnName) == "" {
		return &errors.RequiredError{Type: in.TypeName(), Field: "columnName", Stringly: true}
	}
	if strings.TrimSpace(in.To) == "" {
		return &errors.RequiredError{Type: in.TypeName(), Field: "to", Stringly: true}
	}
	return nil
}

// MarshalJSON implements json.Marshaler. A context implementing
// hydrate.Dehydratable serializes as its descriptor so the stored form
// rehydrates on the way back in.
func (in Input) MarshalJSON() ([]byte, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", in.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type input Input
	ii := input(in)
	if c, ok := ii.Context.(hydrate.Dehydratable); ok {
		ii.Context = map[string]any(c.Dehydrate().FieldMap())
	}
	return json.Marshal(ii)
}

// UnmarshalJSON implements json.Unmarshaler, deserializing a JSON object
// into an Input, rehydrating a context descriptor through the process-wide
// registry, and validating the result. Hydration failures propagate
// unchanged; decode and validation failures are reported as unmarshal
// errors.
func (in *Input) UnmarshalJSON(data []byte) error {
	type input Input
	if err := json.Unmarshal(data, (*input)(in)); err != nil {
		return &errors.UnmarshalError{
			Type:   in.TypeName(),
			Data:   data,
			Reason: err.Error(),
		}
	}

	ctx, err := hydrate.Hydrate(in.Context)
	if err != nil {
		return err
	}
	in.Context = ctx

	if err := in.Validate(); err != nil {
		return &errors.UnmarshalError{
			Type:   in.TypeName(),
			Data:   data,
			Reason: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return nil
}

// MarshalYAML implements yaml.Marshaler, mirroring the JSON behavior.
func (in Input) MarshalYAML() (any, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", in.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type input Input
	ii := input(in)
	if c, ok := ii.Context.(hydrate.Dehydratable); ok {
		ii.Context = map[string]any(c.Dehydrate().FieldMap())
	}
	return ii, nil
}

// UnmarshalYAML implements yaml.Unmarshaler, mirroring the JSON behavior.
func (in *Input) UnmarshalYAML(node *yaml.Node) error {
	type input Input
	if err := node.Decode((*input)(in)); err != nil {
		return &errors.UnmarshalError{
			Type:   in.TypeName(),
			Data:   []byte(node.Value),
			Reason: err.Error(),
		}
	}

	ctx, err := hydrate.Hydrate(in.Context)
	if err != nil {
		return err
	}
	in.Context = ctx

	if err := in.Validate(); err != nil {
		return &errors.UnmarshalError{
			Type:   in.TypeName(),
			Data:   []byte(node.Value),
			Reason: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return nil
}
