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

	"dirpx.dev/dxfsm/fsmcore/errors"
	"dirpx.dev/dxfsm/fsmcore/fieldmap"
	"dirpx.dev/dxfsm/fsmcore/model"
	"dirpx.dev/dxfsm/fsmcore/schema"
	"gopkg.in/yaml.v3"
)

var validateResponseSchema = schema.New("ReplayValidateResponse",
	schema.Field{Name: "valid", Kind: schema.KindBool, Required: true},
	schema.Field{Name: "findings", Kind: schema.KindList, Default: []any{}},
	schema.Field{Name: "checked", Kind: schema.KindInt},
)

// ValidateResponseSchema returns the field schema shared by every
// ValidateResponse construction path.
func ValidateResponseSchema() *schema.Schema {
	return validateResponseSchema
}

// ValidateResponse is the verdict answer to a ValidateRequest: whether the
// stored history holds up, what the validator observed, and how many
// transitions it examined.
//
// Valid is required as a presence, not as a truth: an explicit false
// satisfies construction, an absent verdict does not. Constructed responses
// always carry a non-nil findings list.
type ValidateResponse struct {
	// Valid reports whether the history survives validation. Warnings do
	// not invalidate; error findings do.
	Valid bool `json:"valid" yaml:"valid"`

	// Findings lists what the validator observed, oldest position first.
	Findings []Finding `json:"findings" yaml:"findings"`

	// Checked counts the transitions the validator examined.
	Checked int `json:"checked" yaml:"checked"`
}

// Compile-time check that ValidateResponse implements model.Model
var _ model.Model = (*ValidateResponse)(nil)

// NewValidateResponse creates a ValidateResponse from its typed components,
// validating the result before returning. The findings list is copied; nil
// materializes as an empty list.
func NewValidateResponse(valid bool, findings []Finding, checked int) (ValidateResponse, error) {
	resp := ValidateResponse{
		Valid:    valid,
		Findings: append(make([]Finding, 0, len(findings)), findings...),
		Checked:  checked,
	}

	if err := resp.Validate(); err != nil {
		return ValidateResponse{}, err
	}

	return resp, nil
}

// ValidateResponseFromArgs constructs a ValidateResponse from a single
// loosely-typed argument. ValidateResponse is not callable-eligible, so the
// argument must be a field map; lists and bare scalars fail with the
// corresponding shape or type error.
func ValidateResponseFromArgs(arg any) (ValidateResponse, error) {
	res, err := validateResponseSchema.Resolve(arg)
	if err != nil {
		return ValidateResponse{}, err
	}
	return validateResponseFromResolved(res.Fields)
}

// ValidateResponseFromFieldMap constructs a ValidateResponse from a field
// map. The verdict must be present, explicitly false included; findings
// auto-wrap, each element a Finding value or a field map.
func ValidateResponseFromFieldMap(m fieldmap.Map) (ValidateResponse, error) {
	r, err := validateResponseSchema.Apply(m)
	if err != nil {
		return ValidateResponse{}, err
	}
	return validateResponseFromResolved(r)
}

func validateResponseFromResolved(r *schema.Resolved) (ValidateResponse, error) {
	valid, err := r.Bool("valid")
	if err != nil {
		return ValidateResponse{}, err
	}
	findings, err := findingsValue(r.Value("findings"))
	if err != nil {
		return ValidateResponse{}, err
	}
	checked, err := r.Int("checked")
	if err != nil {
		return ValidateResponse{}, err
	}

	resp := ValidateResponse{
		Valid:    valid,
		Findings: findings,
		Checked:  checked,
	}

	// Verdict coherence is a contract the schema cannot see.
	if err := resp.Validate(); err != nil {
		return ValidateResponse{}, err
	}

	return resp, nil
}

// findingsValue interprets the raw findings collection, wrapping each loose
// element through findingItem. A typed slice is copied; a scalar is a kind
// mismatch.
func findingsValue(raw any) ([]Finding, error) {
	switch v := raw.(type) {
	case nil:
		return []Finding{}, nil
	case []Finding:
		return append(make([]Finding, 0, len(v)), v...), nil
	case []any:
		out := make([]Finding, 0, len(v))
		for i, item := range v {
			f, err := findingItem(item)
			if err != nil {
				return nil, fmt.Errorf("findings[%d]: %w", i, err)
			}
			out = append(out, f)
		}
		return out, nil
	default:
		return nil, &errors.TypeError{
			Type:  "ReplayValidateResponse",
			Field: "findings",
			Want:  "list",
			Got:   fmt.Sprintf("%T", raw),
		}
	}
}

// findingItem converts one loose finding element.
func findingItem(item any) (Finding, error) {
	if f, ok := item.(Finding); ok {
		return f, nil
	}
	return FindingFromArgs(item)
}

// FieldMap returns the response's fields as a field map suitable for
// storage and reconstruction. Findings travel as nested field maps.
func (resp ValidateResponse) FieldMap() fieldmap.Map {
	findings := make([]any, 0, len(resp.Findings))
	for _, f := range resp.Findings {
		findings = append(findings, f.FieldMap())
	}

	return fieldmap.Map{
		"valid":    resp.Valid,
		"findings": findings,
		"checked":  resp.Checked,
	}
}

// String returns the human-readable representation of the response with the
// full findings list.
func (resp ValidateResponse) String() string {
	return fmt.Sprintf("ReplayValidateResponse{Valid:%t, Findings:%v, Checked:%d}",
		resp.Valid, resp.Findings, resp.Checked)
}

// Redacted returns a compact representation of the response for production
// logs, reducing the findings list to its size.
func (resp ValidateResponse) Redacted() string {
	return fmt.Sprintf("ReplayValidateResponse{Valid:%t, Findings:[%d], Checked:%d}",
		resp.Valid, len(resp.Findings), resp.Checked)
}

// TypeName returns the name of this type for error messages and debugging.
func (resp ValidateResponse) TypeName() string {
	return "ReplayValidateResponse"
}

// IsZero reports whether this response is the zero value with no fields
// set.
func (resp ValidateResponse) IsZero() bool {
	return !resp.Valid && len(resp.Findings) == 0 && resp.Checked == 0
}

// Equal reports whether this response equals another ValidateResponse,
// comparing findings element by element.
func (resp ValidateResponse) Equal(other ValidateResponse) bool {
	if resp.Valid != other.Valid || resp.Checked != other.Checked {
		return false
	}
	if len(resp.Findings) != len(other.Findings) {
		return false
	}
	for i := range resp.Findings {
		if !resp.Findings[i].Equal(other.Findings[i]) {
			return false
		}
	}
	return true
}

// Validate checks whether this response satisfies all model contracts.
//
// Every finding MUST validate, the examined count MUST NOT be negative, and
// the verdict MUST cohere with the findings: a response claiming validity
// cannot carry error-severity findings. The reverse direction stays open,
// since strict-mode warnings alone never decide a verdict.
func (resp ValidateResponse) Validate() error {
	for i, f := range resp.Findings {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("findings[%d]: %w", i, err)
		}
	}
	if resp.Checked < 0 {
		return &errors.ValidationError{
			Type:   resp.TypeName(),
			Field:  "checked",
			Reason: "must not be negative",
			Value:  resp.Checked,
		}
	}
	if resp.Valid {
		for _, f := range resp.Findings {
			if f.Severity == SeverityError {
				return &errors.ValidationError{
					Type:   resp.TypeName(),
					Field:  "valid",
					Reason: "must not be true when findings contain errors",
					Value:  resp.Valid,
				}
			}
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler, serializing the response with a
// non-nil findings list. An invalid response fails marshaling.
func (resp ValidateResponse) MarshalJSON() ([]byte, error) {
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", resp.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type validateResponse ValidateResponse
	rr := validateResponse(resp)
	if rr.Findings == nil {
		rr.Findings = []Finding{}
	}
	return json.Marshal(rr)
}

// UnmarshalJSON implements json.Unmarshaler, deserializing a JSON object
// into a ValidateResponse and validating the result.
func (resp *ValidateResponse) UnmarshalJSON(data []byte) error {
	type validateResponse ValidateResponse
	if err := json.Unmarshal(data, (*validateResponse)(resp)); err != nil {
		return &errors.UnmarshalError{
			Type:   resp.TypeName(),
			Data:   data,
			Reason: err.Error(),
		}
	}
	if resp.Findings == nil {
		resp.Findings = []Finding{}
	}

	if err := resp.Validate(); err != nil {
		return &errors.UnmarshalError{
			Type:   resp.TypeName(),
			Data:   data,
			Reason: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return nil
}

// MarshalYAML implements yaml.Marshaler, mirroring the JSON behavior.
func (resp ValidateResponse) MarshalYAML() (any, error) {
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", resp.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type validateResponse ValidateResponse
	rr := validateResponse(resp)
	if rr.Findings == nil {
		rr.Findings = []Finding{}
	}
	return rr, nil
}

// UnmarshalYAML implements yaml.Unmarshaler, mirroring the JSON behavior.
func (resp *ValidateResponse) UnmarshalYAML(node *yaml.Node) error {
	type validateResponse ValidateResponse
	if err := node.Decode((*validateResponse)(resp)); err != nil {
		return &errors.UnmarshalError{
			Type:   resp.TypeName(),
			Data:   []byte(node.Value),
			Reason: err.Error(),
		}
	}
	if resp.Findings == nil {
		resp.Findings = []Finding{}
	}

	if err := resp.Validate(); err != nil {
		return &errors.UnmarshalError{
			Type:   resp.TypeName(),
			Data:   []byte(node.Value),
			Reason: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return nil
}
