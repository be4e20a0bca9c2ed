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

	"dirpx.dev/dxfsm/fsmcore/errors"
	"dirpx.dev/dxfsm/fsmcore/model"
	"gopkg.in/yaml.v3"
)

// Stage identifies when a transition callback runs relative to the state
// change it is attached to.
//
// A state transition has two observable moments: just before the state
// column is updated, while the model still holds the old state, and just
// after, once the new state is in place. Callbacks declare which moment they
// want with a Stage. Guards always run before (they can veto) and actions
// always run after (they react), so Stage exists only on Callback.
type Stage int

const (
	// StageAfter runs the callback after the transition has been applied
	// and the model already carries the target state.
	//
	// This is the zero value and the default for callbacks that do not
	// declare a stage, matching the common case of side effects that react
	// to a completed transition (notifications, projections, audit trails).
	StageAfter Stage = iota

	// StageBefore runs the callback before the transition is applied,
	// while the model still carries the source state.
	//
	// Before-stage callbacks observe the transition but cannot veto it;
	// vetoing is what guards are for.
	StageBefore
)

// Compile-time check that Stage implements model.Model interface.
var _ model.Model = (*Stage)(nil)

// String constants for Stage values used in serialization, parsing, and
// human-facing output.
//
// These constants define the canonical external representation of Stage and
// MAY be used in configuration files and JSON/YAML payloads. Changing any of
// these strings is a breaking change for consumers that rely on textual
// configuration.
const (
	StageAfterStr  = "after"
	StageBeforeStr = "before"
)

// String returns the canonical string representation of the Stage value.
//
// The returned string is always lowercase and is suitable for use in
// configuration files, logs, and API responses. The mapping is:
//
//	StageAfter  -> "after"
//	StageBefore -> "before"
//
// If the Stage value is not one of the defined constants, String returns
// "unknown". Callers that require only valid Stage values SHOULD either
// check Valid before calling String or treat "unknown" as an indicator of a
// configuration or programming error.
func (s Stage) String() string {
	switch s {
	case StageAfter:
		return StageAfterStr
	case StageBefore:
		return StageBeforeStr
	default:
		return "unknown"
	}
}

// ParseStage converts a textual representation into a Stage value.
//
// The function accepts a small set of case variants and maps them to the
// corresponding constants, keeping configuration forgiving while preserving
// a single canonical output form via String().
//
// Examples of accepted inputs:
//
//	"after",  "After",  "AFTER"  -> StageAfter
//	"before", "Before", "BEFORE" -> StageBefore
//
// If the input string does not match any known Stage value, ParseStage
// returns a non-nil *ParseError. In that case the returned Stage MUST NOT
// be used; only the error is meaningful.
func ParseStage(str string) (Stage, error) {
	switch str {
	case StageAfterStr, "After", "AFTER":
		return StageAfter, nil
	case StageBeforeStr, "Before", "BEFORE":
		return StageBefore, nil
	default:
		return StageAfter, &errors.ParseError{Type: "Stage", Value: str}
	}
}

// Valid reports whether the Stage value is one of the defined constants.
//
// This method is primarily useful when Stage values may have been created
// via deserialization, numeric casts, or other untrusted input.
func (s Stage) Valid() bool {
	return s == StageAfter || s == StageBefore
}

// MarshalJSON implements json.Marshaler for Stage.
//
// A valid Stage is serialized as its canonical string representation (for
// example, "after"). If the value is not valid, MarshalJSON returns a
// *MarshalError and does not produce JSON output, preventing invalid Stage
// values from silently leaking into payloads.
func (s Stage) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, &errors.MarshalError{Type: "Stage", Value: int(s)}
	}
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Stage.
//
// The method accepts both string and numeric JSON representations.
//
//   - String: "after", "before" and their accepted variants, resolved via
//     ParseStage.
//
//   - Number: 0 (StageAfter), 1 (StageBefore), corresponding to the enum
//     constants in their declaration order.
//
// String input is the preferred, stable representation. Numeric input is
// accepted for compatibility with payloads that store enum-like values as
// integers. If the input cannot be parsed as either string or number, or if
// it resolves to an invalid Stage, UnmarshalJSON returns an
// *UnmarshalError.
func (s *Stage) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return &errors.UnmarshalError{Type: "Stage", Data: data, Reason: "empty data"}
	}

	// Try string format first.
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return &errors.UnmarshalError{Type: "Stage", Data: data, Reason: err.Error()}
		}
		parsed, err := ParseStage(str)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}

	// Fallback to numeric format.
	var i int
	if err := json.Unmarshal(data, &i); err != nil {
		return &errors.UnmarshalError{Type: "Stage", Data: data, Reason: err.Error()}
	}
	*s = Stage(i)
	if !s.Valid() {
		return &errors.UnmarshalError{Type: "Stage", Data: data, Reason: "invalid numeric value"}
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler for Stage.
//
// The textual form is the same lowercase string returned by String(). This
// encoding is commonly used by text-based configuration formats. If the
// Stage value is invalid, MarshalText returns a *MarshalError.
func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, &errors.MarshalError{Type: "Stage", Value: int(s)}
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for Stage.
//
// The method accepts the same textual vocabulary as ParseStage, using it as
// the single source of truth for mapping strings to Stage values. On
// failure, UnmarshalText returns the underlying *ParseError.
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// TypeName returns "Stage", the name of the type for logging and debugging.
func (s Stage) TypeName() string {
	return "Stage"
}

// Redacted returns the same string representation as String().
//
// Stage values contain no sensitive information (they are simply enum
// constants), so the redacted form is identical to the regular string form.
func (s Stage) Redacted() string {
	return s.String()
}

// IsZero reports whether the Stage has its zero value.
//
// For Stage the zero value is StageAfter (constant 0), which is also the
// declared default for callbacks, so IsZero returning true does not
// indicate an error condition.
func (s Stage) IsZero() bool {
	return s == StageAfter
}

// Equal reports whether this Stage is equal to another value.
//
// The method accepts any type for other and uses type assertion to check if
// it is a Stage or *Stage. Two Stage values are equal if they represent the
// same enum constant.
func (s Stage) Equal(other any) bool {
	switch v := other.(type) {
	case Stage:
		return s == v
	case *Stage:
		if v == nil {
			return false
		}
		return s == *v
	default:
		return false
	}
}

// Validate checks whether the Stage value is one of the defined constants.
//
// This method returns nil if the Stage is valid (StageAfter or StageBefore),
// and returns an error if the value is outside the valid range. It is
// typically called after deserialization or numeric casts.
func (s Stage) Validate() error {
	if !s.Valid() {
		return &errors.MarshalError{
			Type:  "Stage",
			Value: int(s),
		}
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler for Stage.
//
// A valid Stage is serialized as its canonical string representation. If
// the value is not valid, MarshalYAML returns a *MarshalError.
func (s Stage) MarshalYAML() (any, error) {
	if !s.Valid() {
		return nil, &errors.MarshalError{Type: "Stage", Value: int(s)}
	}
	return s.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler for Stage.
//
// The method accepts string representations of Stage values (for example,
// "before", "after") and resolves them via ParseStage. On failure, it
// returns the underlying *ParseError.
func (s *Stage) UnmarshalYAML(node *yaml.Node) error {
	var str string
	if err := node.Decode(&str); err != nil {
		return &errors.UnmarshalError{Type: "Stage", Data: []byte(node.Value), Reason: err.Error()}
	}
	parsed, err := ParseStage(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
