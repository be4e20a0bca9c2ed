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
	"fmt"
	"strings"

	"dirpx.dev/dxfsm/fsmcore/errors"
	"dirpx.dev/dxfsm/fsmcore/fieldmap"
	"dirpx.dev/dxfsm/fsmcore/model"
	"dirpx.dev/dxfsm/fsmcore/schema"
	"gopkg.in/yaml.v3"
)

var findingSchema = schema.New("ReplayFinding",
	schema.Field{Name: "message", Kind: schema.KindString, Required: true},
	schema.Field{Name: "severity", Kind: schema.KindEnum, Values: []string{SeverityErrorStr, SeverityWarningStr}, Default: SeverityErrorStr},
	schema.Field{Name: "index", Kind: schema.KindInt},
)

// FindingSchema returns the field schema shared by every Finding
// construction path.
func FindingSchema() *schema.Schema {
	return findingSchema
}

// Finding is one observation produced by validating a stored history: what
// is wrong, how bad it is, and where in the history it was seen.
//
// Message is required. Severity defaults to SeverityError; Index defaults
// to 0 and names the position of the offending transition in the examined
// history, counted from the oldest one.
type Finding struct {
	// Message describes the observation in human-readable form.
	Message string `json:"message" yaml:"message"`

	// Severity grades the observation. Defaults to SeverityError.
	Severity Severity `json:"severity" yaml:"severity"`

	// Index is the position of the offending transition, oldest first.
	Index int `json:"index" yaml:"index"`
}

// Compile-time check that Finding implements model.Model
var _ model.Model = (*Finding)(nil)

// NewFinding creates a Finding from its typed components, validating the
// result before returning.
func NewFinding(message string, severity Severity, index int) (Finding, error) {
	f := Finding{Message: message, Severity: severity, Index: index}

	if err := f.Validate(); err != nil {
		return Finding{}, err
	}

	return f, nil
}

// FindingFromArgs constructs a Finding from a single loosely-typed
// argument. Finding is not callable-eligible, so the argument must be a
// field map; lists and bare scalars fail with the corresponding shape or
// type error.
func FindingFromArgs(arg any) (Finding, error) {
	res, err := findingSchema.Resolve(arg)
	if err != nil {
		return Finding{}, err
	}
	return findingFromResolved(res.Fields)
}

// FindingFromFieldMap constructs a Finding from a field map. The severity
// MAY be supplied as a Severity value or as one of the canonical strings
// and their case variants; absent it defaults to SeverityError.
func FindingFromFieldMap(m fieldmap.Map) (Finding, error) {
	r, err := findingSchema.Apply(m)
	if err != nil {
		return Finding{}, err
	}
	return findingFromResolved(r)
}

func findingFromResolved(r *schema.Resolved) (Finding, error) {
	message, err := r.String("message")
	if err != nil {
		return Finding{}, err
	}
	sev, err := severityValue(r.Value("severity"))
	if err != nil {
		return Finding{}, err
	}
	index, err := r.Int("index")
	if err != nil {
		return Finding{}, err
	}
	return Finding{Message: message, Severity: sev, Index: index}, nil
}

// severityValue interprets the raw severity field: a Severity value is
// taken as-is when valid, a string is parsed, anything else is a kind
// mismatch.
func severityValue(raw any) (Severity, error) {
	switch v := raw.(type) {
	case nil:
		return SeverityError, nil
	case Severity:
		if !v.Valid() {
			return SeverityError, &errors.ValidationError{
				Type:   "ReplayFinding",
				Field:  "severity",
				Reason: `must be "error" or "warning"`,
				Value:  v,
			}
		}
		return v, nil
	case string:
		return ParseSeverity(v)
	default:
		return SeverityError, &errors.TypeError{
			Type:  "ReplayFinding",
			Field: "severity",
			Want:  "string",
			Got:   fmt.Sprintf("%T", v),
		}
	}
}

// FieldMap returns the Finding's fields as a field map suitable for storage
// and reconstruction. The severity travels as its canonical string.
func (f Finding) FieldMap() fieldmap.Map {
	return fieldmap.Map{
		"message":  f.Message,
		"severity": f.Severity.String(),
		"index":    f.Index,
	}
}

// String returns the human-readable representation of the Finding.
//
// Format: "ReplayFinding{Message:<message>, Severity:<severity>, Index:<index>}"
func (f Finding) String() string {
	return fmt.Sprintf("ReplayFinding{Message:%s, Severity:%s, Index:%d}", f.Message, f.Severity, f.Index)
}

// Redacted returns the same representation as String. Finding messages are
// produced by the replay validators themselves and name states and
// positions, never record data.
func (f Finding) Redacted() string {
	return f.String()
}

// TypeName returns the name of this type for error messages and debugging.
func (f Finding) TypeName() string {
	return "ReplayFinding"
}

// IsZero reports whether this Finding is the zero value: no message, the
// default error severity, and position zero.
func (f Finding) IsZero() bool {
	return f.Message == "" && f.Severity == SeverityError && f.Index == 0
}

// Equal reports whether this Finding equals another Finding.
func (f Finding) Equal(other Finding) bool {
	return f.Message == other.Message &&
		f.Severity == other.Severity &&
		f.Index == other.Index
}

// Validate checks whether this Finding satisfies all model contracts.
//
// Message MUST be non-empty (whitespace-only counts as empty) and the
// severity MUST be one of the declared constants.
func (f Finding) Validate() error {
	if strings.TrimSpace(f.Message) == "" {
		return &errors.RequiredError{Type: f.TypeName(), Field: "message", Stringly: true}
	}
	if !f.Severity.Valid() {
		return &errors.ValidationError{
			Type:   f.TypeName(),
			Field:  "severity",
			Reason: `must be "error" or "warning"`,
			Value:  f.Severity,
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler, serializing the Finding with its
// severity as the canonical string. An invalid Finding fails marshaling.
func (f Finding) MarshalJSON() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", f.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type finding Finding
	return json.Marshal(finding(f))
}

// UnmarshalJSON implements json.Unmarshaler. The severity field accepts the
// canonical strings, their case variants, and the numeric constants; absent
// it defaults to SeverityError.
func (f *Finding) UnmarshalJSON(data []byte) error {
	type finding Finding
	if err := json.Unmarshal(data, (*finding)(f)); err != nil {
		return &errors.UnmarshalError{
			Type:   f.TypeName(),
			Data:   data,
			Reason: err.Error(),
		}
	}

	if err := f.Validate(); err != nil {
		return &errors.UnmarshalError{
			Type:   f.TypeName(),
			Data:   data,
			Reason: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return nil
}

// MarshalYAML implements yaml.Marshaler, mirroring the JSON behavior.
func (f Finding) MarshalYAML() (any, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", f.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type finding Finding
	return finding(f), nil
}

// UnmarshalYAML implements yaml.Unmarshaler, mirroring the JSON behavior.
func (f *Finding) UnmarshalYAML(node *yaml.Node) error {
	type finding Finding
	if err := node.Decode((*finding)(f)); err != nil {
		return &errors.UnmarshalError{
			Type:   f.TypeName(),
			Data:   []byte(node.Value),
			Reason: err.Error(),
		}
	}

	if err := f.Validate(); err != nil {
		return &errors.UnmarshalError{
			Type:   f.TypeName(),
			Data:   []byte(node.Value),
			Reason: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return nil
}
