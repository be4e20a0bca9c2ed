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

// Package transition defines the transition value objects of dxfsm: the
// static declaration of a state transition (Definition with its guards,
// actions, and callbacks) and the runtime request to perform one (Input).
//
// Every type constructs four ways: a typed constructor, FromArgs (a single
// loosely-typed argument run through the schema package's disambiguation
// procedure), FromFieldMap (the strict field-map path), and validating
// JSON/YAML unmarshaling. Constructed values are treated as immutable:
// populated once, never mutated by this package, with collection fields
// always materialized non-nil and equality structural.
package transition

import (
	"encoding/json"
	"fmt"
	"strings"

	"dirpx.dev/dxfsm/fsmcore/errors"
	"dirpx.dev/dxfsm/fsmcore/fieldmap"
	"dirpx.dev/dxfsm/fsmcore/model"
	"dirpx.dev/dxfsm/fsmcore/schema"
	"gopkg.in/yaml.v3"
)

var definitionSchema = schema.New("TransitionDefinition",
	schema.Field{Name: "name", Kind: schema.KindString},
	schema.Field{Name: "from", Kind: schema.KindString, Required: true},
	schema.Field{Name: "to", Kind: schema.KindString, Required: true},
	schema.Field{Name: "guards", Kind: schema.KindList, Default: []any{}},
	schema.Field{Name: "actions", Kind: schema.KindList, Default: []any{}},
	schema.Field{Name: "callbacks", Kind: schema.KindList, Default: []any{}},
)

// DefinitionSchema returns the field schema shared by every Definition
// construction path.
func DefinitionSchema() *schema.Schema {
	return definitionSchema
}

// Definition is the static declaration of one state transition: the source
// and target states, an optional name, and the guards, actions, and
// callbacks attached to it.
//
// Definitions come from configuration (YAML files, seeded databases) and
// from code. The collection fields accept heterogeneous input at
// construction time (prebuilt values, field maps, and bare callables are
// all wrapped into their value-object form) and are always materialized as
// non-nil slices.
type Definition struct {
	// Name is an optional human-readable identifier for the transition.
	// Empty means unnamed. DefinitionsFromYAML fills it from the document
	// key when the body leaves it empty.
	Name string `json:"name" yaml:"name"`

	// From is the source state. Required.
	From string `json:"from" yaml:"from"`

	// To is the target state. Required.
	To string `json:"to" yaml:"to"`

	// Guards are the preconditions consulted before the transition runs.
	Guards []Guard `json:"guards" yaml:"guards"`

	// Actions are the side effects run after the transition applies.
	Actions []Action `json:"actions" yaml:"actions"`

	// Callbacks are the observers run at their declared stages.
	Callbacks []Callback `json:"callbacks" yaml:"callbacks"`
}

// Compile-time check that Definition implements model.Model
var _ model.Model = (*Definition)(nil)

// NewDefinition creates a Definition from its typed components, validating
// the result before returning. The collection slices are copied; nil
// materializes as empty.
func NewDefinition(name, from, to string, guards []Guard, actions []Action, callbacks []Callback) (Definition, error) {
	d := Definition{
		Name:      name,
		From:      from,
		To:        to,
		Guards:    append(make([]Guard, 0, len(guards)), guards...),
		Actions:   append(make([]Action, 0, len(actions)), actions...),
		Callbacks: append(make([]Callback, 0, len(callbacks)), callbacks...),
	}

	if err := d.Validate(); err != nil {
		return Definition{}, err
	}

	return d, nil
}

// DefinitionFromArgs constructs a Definition from a single loosely-typed
// argument. Definition is not callable-eligible, so the argument must be a
// field map; lists and bare scalars fail with the corresponding shape or
// type error.
func DefinitionFromArgs(arg any) (Definition, error) {
	res, err := definitionSchema.Resolve(arg)
	if err != nil {
		return Definition{}, err
	}
	return definitionFromResolved(res.Fields)
}

// DefinitionFromFieldMap constructs a Definition from a field map: keys are
// normalized, from/to are required, and the three collection fields are
// auto-wrapped element by element.
//
// Collection elements may be prebuilt values (Guard, Action, Callback),
// field maps, or bare callables (["AuditService", "check"], a ref string, a
// function); incompatible scalars fail with a type error naming the
// offending index.
func DefinitionFromFieldMap(m fieldmap.Map) (Definition, error) {
	r, err := definitionSchema.Apply(m)
	if err != nil {
		return Definition{}, err
	}
	return definitionFromResolved(r)
}

func definitionFromResolved(r *schema.Resolved) (Definition, error) {
	name, err := r.String("name")
	if err != nil {
		return Definition{}, err
	}
	from, err := r.String("from")
	if err != nil {
		return Definition{}, err
	}
	to, err := r.String("to")
	if err != nil {
		return Definition{}, err
	}

	guards, err := guardsValue(r.Value("guards"))
	if err != nil {
		return Definition{}, err
	}
	actions, err := actionsValue(r.Value("actions"))
	if err != nil {
		return Definition{}, err
	}
	callbacks, err := callbacksValue(r.Value("callbacks"))
	if err != nil {
		return Definition{}, err
	}

	return Definition{
		Name:      name,
		From:      from,
		To:        to,
		Guards:    guards,
		Actions:   actions,
		Callbacks: callbacks,
	}, nil
}

// guardsValue wraps the raw guards field into a non-nil []Guard. A nil or
// absent value materializes as empty, an already-typed slice is copied
// as-is, and a loose list is converted element by element.
func guardsValue(raw any) ([]Guard, error) {
	switch v := raw.(type) {
	case nil:
		return []Guard{}, nil
	case []Guard:
		return append(make([]Guard, 0, len(v)), v...), nil
	case []any:
		out := make([]Guard, 0, len(v))
		for i, item := range v {
			g, err := guardItem(item)
			if err != nil {
				return nil, fmt.Errorf("guards[%d]: %w", i, err)
			}
			out = append(out, g)
		}
		return out, nil
	default:
		return nil, &errors.TypeError{
			Type:  "TransitionDefinition",
			Field: "guards",
			Want:  "list",
			Got:   fmt.Sprintf("%T", raw),
		}
	}
}

func guardItem(item any) (Guard, error) {
	if g, ok := item.(Guard); ok {
		return g, nil
	}
	return GuardFromArgs(item)
}

func actionsValue(raw any) ([]Action, error) {
	switch v := raw.(type) {
	case nil:
		return []Action{}, nil
	case []Action:
		return append(make([]Action, 0, len(v)), v...), nil
	case []any:
		out := make([]Action, 0, len(v))
		for i, item := range v {
			a, err := actionItem(item)
			if err != nil {
				return nil, fmt.Errorf("actions[%d]: %w", i, err)
			}
			out = append(out, a)
		}
		return out, nil
	default:
		return nil, &errors.TypeError{
			Type:  "TransitionDefinition",
			Field: "actions",
			Want:  "list",
			Got:   fmt.Sprintf("%T", raw),
		}
	}
}

func actionItem(item any) (Action, error) {
	if a, ok := item.(Action); ok {
		return a, nil
	}
	return ActionFromArgs(item)
}

func callbacksValue(raw any) ([]Callback, error) {
	switch v := raw.(type) {
	case nil:
		return []Callback{}, nil
	case []Callback:
		return append(make([]Callback, 0, len(v)), v...), nil
	case []any:
		out := make([]Callback, 0, len(v))
		for i, item := range v {
			cb, err := callbackItem(item)
			if err != nil {
				return nil, fmt.Errorf("callbacks[%d]: %w", i, err)
			}
			out = append(out, cb)
		}
		return out, nil
	default:
		return nil, &errors.TypeError{
			Type:  "TransitionDefinition",
			Field: "callbacks",
			Want:  "list",
			Got:   fmt.Sprintf("%T", raw),
		}
	}
}

func callbackItem(item any) (Callback, error) {
	if cb, ok := item.(Callback); ok {
		return cb, nil
	}
	return CallbackFromArgs(item)
}

// FieldMap returns the Definition's fields as a field map suitable for
// storage and reconstruction. Collection fields emit their elements' field
// maps, the canonical form DefinitionFromFieldMap wraps back.
func (d Definition) FieldMap() fieldmap.Map {
	guards := make([]any, 0, len(d.Guards))
	for _, g := range d.Guards {
		guards = append(guards, g.FieldMap())
	}
	actions := make([]any, 0, len(d.Actions))
	for _, a := range d.Actions {
		actions = append(actions, a.FieldMap())
	}
	callbacks := make([]any, 0, len(d.Callbacks))
	for _, cb := range d.Callbacks {
		callbacks = append(callbacks, cb.FieldMap())
	}

	return fieldmap.Map{
		"name":      d.Name,
		"from":      d.From,
		"to":        d.To,
		"guards":    guards,
		"actions":   actions,
		"callbacks": callbacks,
	}
}

// String returns the human-readable representation of the Definition with
// its full nested collections, for debugging visibility.
func (d Definition) String() string {
	return fmt.Sprintf("TransitionDefinition{Name:%s, From:%s, To:%s, Guards:%v, Actions:%v, Callbacks:%v}",
		d.Name, d.From, d.To, d.Guards, d.Actions, d.Callbacks)
}

// Redacted returns a safe representation of the Definition for production
// logs. State names and the transition name are configuration, not data;
// the collections are reduced to counts because their parameters can carry
// business payloads.
func (d Definition) Redacted() string {
	return fmt.Sprintf("TransitionDefinition{Name:%s, From:%s, To:%s, Guards:[%d], Actions:[%d], Callbacks:[%d]}",
		d.Name, d.From, d.To, len(d.Guards), len(d.Actions), len(d.Callbacks))
}

// TypeName returns the name of this type for error messages and debugging.
func (d Definition) TypeName() string {
	return "TransitionDefinition"
}

// IsZero reports whether this Definition is the zero value: every scalar
// empty and every collection empty.
func (d Definition) IsZero() bool {
	return d.Name == "" && d.From == "" && d.To == "" &&
		len(d.Guards) == 0 && len(d.Actions) == 0 && len(d.Callbacks) == 0
}

// Equal reports whether this Definition is structurally equal to another
// Definition: same scalars and element-wise equal collections.
func (d Definition) Equal(other Definition) bool {
	if d.Name != other.Name || d.From != other.From || d.To != other.To {
		return false
	}
	if len(d.Guards) != len(other.Guards) ||
		len(d.Actions) != len(other.Actions) ||
		len(d.Callbacks) != len(other.Callbacks) {
		return false
	}
	for i := range d.Guards {
		if !d.Guards[i].Equal(other.Guards[i]) {
			return false
		}
	}
	for i := range d.Actions {
		if !d.Actions[i].Equal(other.Actions[i]) {
			return false
		}
	}
	for i := range d.Callbacks {
		if !d.Callbacks[i].Equal(other.Callbacks[i]) {
			return false
		}
	}
	return true
}

// Validate checks whether this Definition satisfies all model contracts.
//
// From and To MUST be non-empty (whitespace-only counts as empty, matching
// required-field validation at construction). Nested guards, actions, and
// callbacks are validated in order; the first failure is returned with its
// collection index.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.From) == "" {
		return &errors.RequiredError{Type: d.TypeName(), Field: "from", Stringly: true}
	}
	if strings.TrimSpace(d.To) == "" {
		return &errors.RequiredError{Type: d.TypeName(), Field: "to", Stringly: true}
	}

	for i, g := range d.Guards {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("guards[%d]: %w", i, err)
		}
	}
	for i, a := range d.Actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("actions[%d]: %w", i, err)
		}
	}
	for i, cb := range d.Callbacks {
		if err := cb.Validate(); err != nil {
			return fmt.Errorf("callbacks[%d]: %w", i, err)
		}
	}

	return nil
}

// MarshalJSON implements json.Marshaler, serializing the Definition as an
// object with non-nil collection fields. Marshaling validates first, so a
// Definition without from/to does not serialize.
func (d Definition) MarshalJSON() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", d.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type definition Definition
	dd := definition(d)
	if dd.Guards == nil {
		dd.Guards = []Guard{}
	}
	if dd.Actions == nil {
		dd.Actions = []Action{}
	}
	if dd.Callbacks == nil {
		dd.Callbacks = []Callback{}
	}
	return json.Marshal(dd)
}

// UnmarshalJSON implements json.Unmarshaler, deserializing a JSON object
// into a Definition and validating the result. Missing or null collection
// fields materialize as empty slices.
func (d *Definition) UnmarshalJSON(data []byte) error {
	type definition Definition
	if err := json.Unmarshal(data, (*definition)(d)); err != nil {
		return &errors.UnmarshalError{
			Type:   d.TypeName(),
			Data:   data,
			Reason: err.Error(),
		}
	}
	d.materialize()

	if err := d.Validate(); err != nil {
		return &errors.UnmarshalError{
			Type:   d.TypeName(),
			Data:   data,
			Reason: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return nil
}

// MarshalYAML implements yaml.Marshaler, mirroring the JSON object form.
func (d Definition) MarshalYAML() (any, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", d.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type definition Definition
	dd := definition(d)
	if dd.Guards == nil {
		dd.Guards = []Guard{}
	}
	if dd.Actions == nil {
		dd.Actions = []Action{}
	}
	if dd.Callbacks == nil {
		dd.Callbacks = []Callback{}
	}
	return dd, nil
}

// UnmarshalYAML implements yaml.Unmarshaler, mirroring the JSON behavior.
func (d *Definition) UnmarshalYAML(node *yaml.Node) error {
	type definition Definition
	if err := node.Decode((*definition)(d)); err != nil {
		return &errors.UnmarshalError{
			Type:   d.TypeName(),
			Data:   []byte(node.Value),
			Reason: err.Error(),
		}
	}
	d.materialize()

	if err := d.Validate(); err != nil {
		return &errors.UnmarshalError{
			Type:   d.TypeName(),
			Data:   []byte(node.Value),
			Reason: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return nil
}

// materialize replaces nil collection fields with empty slices after
// decoding.
func (d *Definition) materialize() {
	if d.Guards == nil {
		d.Guards = []Guard{}
	}
	if d.Actions == nil {
		d.Actions = []Action{}
	}
	if d.Callbacks == nil {
		d.Callbacks = []Callback{}
	}
}

// DefinitionsFromYAML loads a named map of transition definitions from a
// YAML document. This is the configuration-file surface:
//
//	submit:
//	  from: draft
//	  to: review
//	  guards:
//	    - callable: ReviewPolicy@canSubmit
//	publish:
//	  name: publish-reviewed
//	  from: review
//	  to: published
//	  actions:
//	    - callable: Notifier@send
//	      queued: true
//
// Each definition validates on decode. A definition that leaves its name
// empty inherits the document key ("submit" above). An empty document
// yields an empty, non-nil map.
func DefinitionsFromYAML(data []byte) (map[string]Definition, error) {
	var defs map[string]Definition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("cannot unmarshal transition definitions: %w", err)
	}

	if defs == nil {
		return map[string]Definition{}, nil
	}
	for key, d := range defs {
		if d.Name == "" {
			d.Name = key
			defs[key] = d
		}
	}
	return defs, nil
}
