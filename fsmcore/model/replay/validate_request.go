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

var validateRequestSchema = schema.New("ReplayValidateRequest",
	schema.Field{Name: "modelClass", Kind: schema.KindString, Required: true},
	schema.Field{Name: "modelId", Kind: schema.KindString, Required: true},
	schema.Field{Name: "columnName", Kind: schema.KindString, Required: true},
	schema.Field{Name: "strict", Kind: schema.KindBool},
)

// ValidateRequestSchema returns the field schema shared by every
// ValidateRequest construction path.
func ValidateRequestSchema() *schema.Schema {
	return validateRequestSchema
}

// ValidateRequest asks a replay collaborator to check one record's stored
// history against the declared transition graph.
//
// ModelClass, ModelID, and ColumnName are required. Strict defaults to
// false; when set, the validator also reports the observations a history
// can tolerate, such as gaps between intervals, as warnings.
type ValidateRequest struct {
	// ModelClass identifies the model type whose history is checked.
	ModelClass string `json:"modelClass" yaml:"modelClass"`

	// ModelID identifies the record within ModelClass.
	ModelID string `json:"modelId" yaml:"modelId"`

	// ColumnName is the state column whose history is checked.
	ColumnName string `json:"columnName" yaml:"columnName"`

	// Strict asks for tolerable observations as warnings too.
	Strict bool `json:"strict" yaml:"strict"`
}

// Compile-time check that ValidateRequest implements model.Model
var _ model.Model = (*ValidateRequest)(nil)

// NewValidateRequest creates a ValidateRequest from its typed components,
// validating the result before returning.
func NewValidateRequest(modelClass, modelID, columnName string, strict bool) (ValidateRequest, error) {
	req := ValidateRequest{
		ModelClass: modelClass,
		ModelID:    modelID,
		ColumnName: columnName,
		Strict:     strict,
	}

	if err := req.Validate(); err != nil {
		return ValidateRequest{}, err
	}

	return req, nil
}

// ValidateRequestFromArgs constructs a ValidateRequest from a single
// loosely-typed argument. ValidateRequest is not callable-eligible, so the
// argument must be a field map; lists and bare scalars fail with the
// corresponding shape or type error.
func ValidateRequestFromArgs(arg any) (ValidateRequest, error) {
	res, err := validateRequestSchema.Resolve(arg)
	if err != nil {
		return ValidateRequest{}, err
	}
	return validateRequestFromResolved(res.Fields)
}

// ValidateRequestFromFieldMap constructs a ValidateRequest from a field
// map. Keys are normalized (model_class, model_id, and column_name are
// accepted) and strict defaults to false.
func ValidateRequestFromFieldMap(m fieldmap.Map) (ValidateRequest, error) {
	r, err := validateRequestSchema.Apply(m)
	if err != nil {
		return ValidateRequest{}, err
	}
	return validateRequestFromResolved(r)
}

func validateRequestFromResolved(r *schema.Resolved) (ValidateRequest, error) {
	modelClass, err := r.String("modelClass")
	if err != nil {
		return ValidateRequest{}, err
	}
	modelID, err := r.String("modelId")
	if err != nil {
		return ValidateRequest{}, err
	}
	columnName, err := r.String("columnName")
	if err != nil {
		return ValidateRequest{}, err
	}
	strict, err := r.Bool("strict")
	if err != nil {
		return ValidateRequest{}, err
	}

	return ValidateRequest{
		ModelClass: modelClass,
		ModelID:    modelID,
		ColumnName: columnName,
		Strict:     strict,
	}, nil
}

// FieldMap returns the request's fields as a field map suitable for storage
// and reconstruction.
func (req ValidateRequest) FieldMap() fieldmap.Map {
	return fieldmap.Map{
		"modelClass": req.ModelClass,
		"modelId":    req.ModelID,
		"columnName": req.ColumnName,
		"strict":     req.Strict,
	}
}

// String returns the human-readable representation of the request.
func (req ValidateRequest) String() string {
	return fmt.Sprintf("ReplayValidateRequest{ModelClass:%s, ModelID:%s, ColumnName:%s, Strict:%t}",
		req.ModelClass, req.ModelID, req.ColumnName, req.Strict)
}

// Redacted returns a safe representation of the request for production
// logs, masking the record identifier to its first character.
func (req ValidateRequest) Redacted() string {
	return fmt.Sprintf("ReplayValidateRequest{ModelClass:%s, ModelID:%s, ColumnName:%s, Strict:%t}",
		req.ModelClass, redactIdentifier(req.ModelID), req.ColumnName, req.Strict)
}

// TypeName returns the name of this type for error messages and debugging.
func (req ValidateRequest) TypeName() string {
	return "ReplayValidateRequest"
}

// IsZero reports whether this request is the zero value with no fields set.
func (req ValidateRequest) IsZero() bool {
	return req.ModelClass == "" && req.ModelID == "" && req.ColumnName == "" &&
		!req.Strict
}

// Equal reports whether this request equals another ValidateRequest.
func (req ValidateRequest) Equal(other ValidateRequest) bool {
	return req.ModelClass == other.ModelClass &&
		req.ModelID == other.ModelID &&
		req.ColumnName == other.ColumnName &&
		req.Strict == other.Strict
}

// Validate checks whether this request satisfies all model contracts. The
// scoping fields MUST be non-empty (whitespace-only counts as empty).
func (req ValidateRequest) Validate() error {
	if strings.TrimSpace(req.ModelClass) == "" {
		return &errors.RequiredError{Type: req.TypeName(), Field: "modelClass", Stringly: true}
	}
	if strings.TrimSpace(req.ModelID) == "" {
		return &errors.RequiredError{Type: req.TypeName(), Field: "modelId", Stringly: true}
	}
	if strings.TrimSpace(req.ColumnName) == "" {
		return &errors.RequiredError{Type: req.TypeName(), Field: "columnName", Stringly: true}
	}
	return nil
}

// MarshalJSON implements json.Marshaler, refusing to serialize an invalid
// request.
func (req ValidateRequest) MarshalJSON() ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", req.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type validateRequest ValidateRequest
	return json.Marshal(validateRequest(req))
}

// UnmarshalJSON implements json.Unmarshaler, deserializing a JSON object
// into a ValidateRequest and validating the result.
func (req *ValidateRequest) UnmarshalJSON(data []byte) error {
	type validateRequest ValidateRequest
	if err := json.Unmarshal(data, (*validateRequest)(req)); err != nil {
		return &errors.UnmarshalError{
			Type:   req.TypeName(),
			Data:   data,
			Reason: err.Error(),
		}
	}

	if err := req.Validate(); err != nil {
		return &errors.UnmarshalError{
			Type:   req.TypeName(),
			Data:   data,
			Reason: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return nil
}

// MarshalYAML implements yaml.Marshaler, mirroring the JSON behavior.
func (req ValidateRequest) MarshalYAML() (any, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", req.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type validateRequest ValidateRequest
	return validateRequest(req), nil
}

// UnmarshalYAML implements yaml.Unmarshaler, mirroring the JSON behavior.
func (req *ValidateRequest) UnmarshalYAML(node *yaml.Node) error {
	type validateRequest ValidateRequest
	if err := node.Decode((*validateRequest)(req)); err != nil {
		return &errors.UnmarshalError{
			Type:   req.TypeName(),
			Data:   []byte(node.Value),
			Reason: err.Error(),
		}
	}

	if err := req.Validate(); err != nil {
		return &errors.UnmarshalError{
			Type:   req.TypeName(),
			Data:   []byte(node.Value),
			Reason: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return nil
}
