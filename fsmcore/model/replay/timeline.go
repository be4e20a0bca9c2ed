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

// Package replay defines the request and response value objects of the
// dxfsm history-replay surface: reconstructing a record's state timeline
// from its stored transitions, aggregating per-state statistics over that
// timeline, and validating a stored history against the declared transition
// graph.
//
// The types here are pure data carriers. They do not load history and they
// do not run validation passes; they describe what a replay collaborator is
// asked to do and what it answers with, under the same construction
// contract as the transition models: loose arguments resolve through a
// per-type schema, snake_case keys are accepted everywhere, required fields
// fail in declaration order, and defaults never overwrite an explicitly
// supplied value. TimelineEntry additionally registers with the hydrate
// registry so stored timelines round-trip through context descriptors.
package replay

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dirpx.dev/dxfsm/fsmcore/errors"
	"dirpx.dev/dxfsm/fsmcore/fieldmap"
	"dirpx.dev/dxfsm/fsmcore/hydrate"
	"dirpx.dev/dxfsm/fsmcore/model"
	"dirpx.dev/dxfsm/fsmcore/schema"
	"gopkg.in/yaml.v3"
)

// TimelineEntryClass is the descriptor class under which TimelineEntry is
// registered with the hydrate registry. Stored timelines reference entries
// by this class name, so it MUST stay stable across releases.
const TimelineEntryClass = "dxfsm.TimelineEntry"

func init() {
	hydrate.Register(TimelineEntryClass, hydrate.Spec{New: timelineEntryPayload})
}

var timelineEntrySchema = schema.New("TimelineEntry",
	schema.Field{Name: "state", Kind: schema.KindString, Required: true},
	schema.Field{Name: "enteredAt", Kind: schema.KindTime, Required: true},
	schema.Field{Name: "exitedAt", Kind: schema.KindTime},
	schema.Field{Name: "responsible", Kind: schema.KindString},
)

// TimelineEntrySchema returns the field schema shared by every
// TimelineEntry construction path.
func TimelineEntrySchema() *schema.Schema {
	return timelineEntrySchema
}

// TimelineEntry is one interval of a reconstructed state timeline: which
// state the record held, when it entered that state, when it left it, and
// who moved it there.
//
// State and EnteredAt are required. A zero ExitedAt means the record still
// holds the state, which is the normal shape of a timeline's final entry.
// Responsible is the identifier of whoever caused the entry and MAY be
// empty when the stored transition carries no actor.
//
// A TimelineEntry deliberately does not judge its interval: an ExitedAt
// before EnteredAt constructs fine, because replay validation exists to
// load broken histories and report on them.
type TimelineEntry struct {
	// State is the state the record held during this interval.
	State string `json:"state" yaml:"state"`

	// EnteredAt is when the record entered State.
	EnteredAt time.Time `json:"enteredAt" yaml:"enteredAt"`

	// ExitedAt is when the record left State. Zero means still current.
	ExitedAt time.Time `json:"exitedAt" yaml:"exitedAt"`

	// Responsible identifies who caused the entry, if known.
	Responsible string `json:"responsible" yaml:"responsible"`
}

// Compile-time check that TimelineEntry implements model.Model
var _ model.Model = (*TimelineEntry)(nil)

// Compile-time check that TimelineEntry dehydrates to a descriptor
var _ hydrate.Dehydratable = TimelineEntry{}

// NewTimelineEntry creates a TimelineEntry from its typed components,
// validating the result before returning. Pass a zero exitedAt for an
// interval that is still current.
func NewTimelineEntry(state string, enteredAt, exitedAt time.Time, responsible string) (TimelineEntry, error) {
	e := TimelineEntry{
		State:       state,
		EnteredAt:   enteredAt,
		ExitedAt:    exitedAt,
		Responsible: responsible,
	}

	if err := e.Validate(); err != nil {
		return TimelineEntry{}, err
	}

	return e, nil
}

// TimelineEntryFromArgs constructs a TimelineEntry from a single
// loosely-typed argument. TimelineEntry is not callable-eligible, so the
// argument must be a field map; lists and bare scalars fail with the
// corresponding shape or type error.
func TimelineEntryFromArgs(arg any) (TimelineEntry, error) {
	res, err := timelineEntrySchema.Resolve(arg)
	if err != nil {
		return TimelineEntry{}, err
	}
	return timelineEntryFromResolved(res.Fields)
}

// TimelineEntryFromFieldMap constructs a TimelineEntry from a field map.
// Keys are normalized (entered_at, exited_at are accepted), state and
// enteredAt are required, and timestamps MAY be supplied as time.Time
// values or RFC3339 strings.
func TimelineEntryFromFieldMap(m fieldmap.Map) (TimelineEntry, error) {
	r, err := timelineEntrySchema.Apply(m)
	if err != nil {
		return TimelineEntry{}, err
	}
	return timelineEntryFromResolved(r)
}

// timelineEntryPayload adapts TimelineEntryFromFieldMap to the hydrate
// factory signature.
func timelineEntryPayload(payload fieldmap.Map) (any, error) {
	e, err := TimelineEntryFromFieldMap(payload)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func timelineEntryFromResolved(r *schema.Resolved) (TimelineEntry, error) {
	state, err := r.String("state")
	if err != nil {
		return TimelineEntry{}, err
	}
	enteredAt, err := r.Time("enteredAt")
	if err != nil {
		return TimelineEntry{}, err
	}
	exitedAt, err := r.Time("exitedAt")
	if err != nil {
		return TimelineEntry{}, err
	}
	responsible, err := r.String("responsible")
	if err != nil {
		return TimelineEntry{}, err
	}

	e := TimelineEntry{
		State:       state,
		EnteredAt:   enteredAt,
		ExitedAt:    exitedAt,
		Responsible: responsible,
	}

	// The schema checks presence, not instants: an explicitly supplied
	// zero timestamp still fails the required contract here.
	if err := e.Validate(); err != nil {
		return TimelineEntry{}, err
	}

	return e, nil
}

// Duration returns how long the record held the state, or 0 while the
// interval is still current.
func (e TimelineEntry) Duration() time.Duration {
	if e.ExitedAt.IsZero() {
		return 0
	}
	return e.ExitedAt.Sub(e.EnteredAt)
}

// Current reports whether the record still holds the state, meaning the
// interval has no exit instant yet.
func (e TimelineEntry) Current() bool {
	return e.ExitedAt.IsZero()
}

// FieldMap returns the entry's fields as a field map suitable for storage
// and reconstruction. Timestamps are emitted as RFC3339 strings so the map
// survives JSON transport; a zero ExitedAt and an empty Responsible emit no
// key at all.
func (e TimelineEntry) FieldMap() fieldmap.Map {
	m := fieldmap.Map{
		"state":     e.State,
		"enteredAt": e.EnteredAt.Format(time.RFC3339Nano),
	}
	if !e.ExitedAt.IsZero() {
		m["exitedAt"] = e.ExitedAt.Format(time.RFC3339Nano)
	}
	if e.Responsible != "" {
		m["responsible"] = e.Responsible
	}
	return m
}

// Dehydrate returns the descriptor form of the entry for storage alongside
// other context values.
func (e TimelineEntry) Dehydrate() hydrate.Descriptor {
	return hydrate.NewDescriptor(TimelineEntryClass, e.FieldMap())
}

// String returns the human-readable representation of the entry. A still
// current interval prints its exit instant as "current".
func (e TimelineEntry) String() string {
	exited := "current"
	if !e.ExitedAt.IsZero() {
		exited = e.ExitedAt.Format(time.RFC3339)
	}
	return fmt.Sprintf("TimelineEntry{State:%s, EnteredAt:%s, ExitedAt:%s, Responsible:%s}",
		e.State, e.EnteredAt.Format(time.RFC3339), exited, e.Responsible)
}

// Redacted returns a safe representation of the entry for production logs.
// The responsible identifier is masked to its first character.
func (e TimelineEntry) Redacted() string {
	exited := "current"
	if !e.ExitedAt.IsZero() {
		exited = e.ExitedAt.Format(time.RFC3339)
	}
	return fmt.Sprintf("TimelineEntry{State:%s, EnteredAt:%s, ExitedAt:%s, Responsible:%s}",
		e.State, e.EnteredAt.Format(time.RFC3339), exited, redactIdentifier(e.Responsible))
}

// redactIdentifier masks an actor or record identifier for logging, keeping
// only the first character.
func redactIdentifier(id string) string {
	if id == "" {
		return "[empty]"
	}
	return string(id[0]) + "***"
}

// TypeName returns the name of this type for error messages and debugging.
func (e TimelineEntry) TypeName() string {
	return "TimelineEntry"
}

// IsZero reports whether this entry is the zero value with no fields set.
func (e TimelineEntry) IsZero() bool {
	return e.State == "" && e.EnteredAt.IsZero() && e.ExitedAt.IsZero() &&
		e.Responsible == ""
}

// Equal reports whether this entry equals another entry. Timestamps compare
// as instants, so the same moment in different locations is equal.
func (e TimelineEntry) Equal(other TimelineEntry) bool {
	return e.State == other.State &&
		e.EnteredAt.Equal(other.EnteredAt) &&
		e.ExitedAt.Equal(other.ExitedAt) &&
		e.Responsible == other.Responsible
}

// Validate checks whether this entry satisfies all model contracts.
//
// State MUST be non-empty (whitespace-only counts as empty) and EnteredAt
// MUST be a real instant. ExitedAt and Responsible are unconstrained;
// interval ordering is a replay validator's finding, not a construction
// failure.
func (e TimelineEntry) Validate() error {
	if strings.TrimSpace(e.State) == "" {
		return &errors.RequiredError{Type: e.TypeName(), Field: "state", Stringly: true}
	}
	if e.EnteredAt.IsZero() {
		return &errors.RequiredError{Type: e.TypeName(), Field: "enteredAt"}
	}
	return nil
}

// MarshalJSON implements json.Marshaler, refusing to serialize an invalid
// entry.
func (e TimelineEntry) MarshalJSON() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", e.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type timelineEntry TimelineEntry
	return json.Marshal(timelineEntry(e))
}

// UnmarshalJSON implements json.Unmarshaler, deserializing a JSON object
// into a TimelineEntry and validating the result.
func (e *TimelineEntry) UnmarshalJSON(data []byte) error {
	type timelineEntry TimelineEntry
	if err := json.Unmarshal(data, (*timelineEntry)(e)); err != nil {
		return &errors.UnmarshalError{
			Type:   e.TypeName(),
			Data:   data,
			Reason: err.Error(),
		}
	}

	if err := e.Validate(); err != nil {
		return &errors.UnmarshalError{
			Type:   e.TypeName(),
			Data:   data,
			Reason: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return nil
}

// MarshalYAML implements yaml.Marshaler, mirroring the JSON behavior.
func (e TimelineEntry) MarshalYAML() (any, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", e.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type timelineEntry TimelineEntry
	return timelineEntry(e), nil
}

// UnmarshalYAML implements yaml.Unmarshaler, mirroring the JSON behavior.
func (e *TimelineEntry) UnmarshalYAML(node *yaml.Node) error {
	type timelineEntry TimelineEntry
	if err := node.Decode((*timelineEntry)(e)); err != nil {
		return &errors.UnmarshalError{
			Type:   e.TypeName(),
			Data:   []byte(node.Value),
			Reason: err.Error(),
		}
	}

	if err := e.Validate(); err != nil {
		return &errors.UnmarshalError{
			Type:   e.TypeName(),
			Data:   []byte(node.Value),
			Reason: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return nil
}
