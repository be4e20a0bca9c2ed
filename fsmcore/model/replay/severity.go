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

package replay

import (
	"encoding/json"

	"dirpx.dev/dxfsm/fsmcore/errors"
	"dirpx.dev/dxfsm/fsmcore/model"
	"gopkg.in/yaml.v3"
)

// Severity grades a validation finding: whether the examined history is
// genuinely broken or merely suspicious.
//
// Findings default to SeverityError because a replay validator only speaks
// up when something contradicts the declared transition graph; warnings are
// reserved for strict-mode observations (gaps, overlapping intervals) that
// the history could still tolerate.
type Severity int

const (
	// SeverityError marks a finding that invalidates the history: a
	// transition that the definitions do not permit, a timeline that runs
	// backwards. This is the zero value and the default for findings that
	// do not declare a severity.
	SeverityError Severity = iota

	// SeverityWarning marks a strict-mode observation the history survives:
	// a gap between intervals, a missing responsible actor.
	SeverityWarning
)

// Compile-time check that Severity implements model.Model interface.
var _ model.Model = (*Severity)(nil)

// String constants for Severity values used in serialization, parsing, and
// human-facing output.
//
// These constants define the canonical external representation of Severity
// and MAY be persisted in stored findings and API responses. Changing any of
// these strings is a breaking change for consumers of stored validation
// reports.
const (
	SeverityErrorStr   = "error"
	SeverityWarningStr = "warning"
)

// String returns the canonical string representation of the Severity value.
//
// The returned string is always lowercase. The mapping is:
//
//	SeverityError   -> "error"
//	SeverityWarning -> "warning"
//
// If the Severity value is not one of the defined constants, String returns
// "unknown".
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return SeverityErrorStr
	case SeverityWarning:
		return SeverityWarningStr
	default:
		return "unknown"
	}
}

// ParseSeverity converts a textual representation into a Severity value.
//
// The function accepts a small set of case variants and maps them to the
// corresponding constants:
//
//	"error",   "Error",   "ERROR"   -> SeverityError
//	"warning", "Warning", "WARNING" -> SeverityWarning
//
// If the input string does not match any known Severity value, ParseSeverity
// returns a non-nil *ParseError. In that case the returned Severity MUST NOT
// be used; only the error is meaningful.
func ParseSeverity(str string) (Severity, error) {
	switch str {
	case SeverityErrorStr, "Error", "ERROR":
		return SeverityError, nil
	case SeverityWarningStr, "Warning", "WARNING":
		return SeverityWarning, nil
	default:
		return SeverityError, &errors.ParseError{Type: "Severity", Value: str}
	}
}

// Valid reports whether the Severity value is one of the defined constants.
func (s Severity) Valid() bool {
	return s == SeverityError || s == SeverityWarning
}

// MarshalJSON implements json.Marshaler for Severity.
//
// A valid Severity is serialized as its canonical string representation. If
// the value is not valid, MarshalJSON returns a *MarshalError and does not
// produce JSON output.
func (s Severity) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, &errors.MarshalError{Type: "Severity", Value: int(s)}
	}
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Severity.
//
// The method accepts both string and numeric JSON representations.
//
//   - String: "error", "warning" and their accepted variants, resolved via
//     ParseSeverity.
//
//   - Number: 0 (SeverityError), 1 (SeverityWarning), corresponding to the
//     enum constants in their declaration order.
//
// If the input cannot be parsed as either form, or if it resolves to an
// invalid Severity, UnmarshalJSON returns an *UnmarshalError.
func (s *Severity) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return &errors.UnmarshalError{Type: "Severity", Data: data, Reason: "empty data"}
	}

	// Try string format first.
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return &errors.UnmarshalError{Type: "Severity", Data: data, Reason: err.Error()}
		}
		parsed, err := ParseSeverity(str)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}

	// Fallback to numeric format.
	var i int
	if err := json.Unmarshal(data, &i); err != nil {
		return &errors.UnmarshalError{Type: "Severity", Data: data, Reason: err.Error()}
	}
	*s = Severity(i)
	if !s.Valid() {
		return &errors.UnmarshalError{Type: "Severity", Data: data, Reason: "invalid numeric value"}
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler for Severity. If the value
// is invalid, MarshalText returns a *MarshalError.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, &errors.MarshalError{Type: "Severity", Value: int(s)}
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for Severity, accepting
// the same vocabulary as ParseSeverity.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// TypeName returns "Severity", the name of the type for logging and
// debugging.
func (s Severity) TypeName() string {
	return "Severity"
}

// Redacted returns the same string representation as String(). Severity
// values contain no sensitive information.
func (s Severity) Redacted() string {
	return s.String()
}

// IsZero reports whether the Severity has its zero value.
//
// For Severity the zero value is SeverityError (constant 0), which is also
// the declared default for findings, so IsZero returning true does not
// indicate an error condition.
func (s Severity) IsZero() bool {
	return s == SeverityError
}

// Equal reports whether this Severity is equal to another value. The method
// accepts any type for other and uses type assertion to check if it is a
// Severity or *Severity.
func (s Severity) Equal(other any) bool {
	switch v := other.(type) {
	case Severity:
		return s == v
	case *Severity:
		if v == nil {
			return false
		}
		return s == *v
	default:
		return false
	}
}

// Validate checks whether the Severity value is one of the defined
// constants. It is typically called after deserialization or numeric casts.
func (s Severity) Validate() error {
	if !s.Valid() {
		return &errors.MarshalError{
			Type:  "Severity",
			Value: int(s),
		}
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler for Severity. A valid Severity is
// serialized as its canonical string representation.
func (s Severity) MarshalYAML() (any, error) {
	if !s.Valid() {
		return nil, &errors.MarshalError{Type: "Severity", Value: int(s)}
	}
	return s.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler for Severity, resolving scalar
// string nodes via ParseSeverity.
func (s *Severity) UnmarshalYAML(node *yaml.Node) error {
	var str string
	if err := node.Decode(&str); err != nil {
		return &errors.UnmarshalError{
			Type:   "Severity",
			Data:   []byte(node.Value),
			Reason: err.Error(),
		}
	}

	parsed, err := ParseSeverity(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
