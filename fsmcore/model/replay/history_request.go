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

var historyRequestSchema = schema.New("ReplayHistoryRequest",
	schema.Field{Name: "modelClass", Kind: schema.KindString, Required: true},
	schema.Field{Name: "modelId", Kind: schema.KindString, Required: true},
	schema.Field{Name: "columnName", Kind: schema.KindString, Required: true},
)

// HistoryRequestSchema returns the field schema shared by every
// HistoryRequest construction path.
func HistoryRequestSchema() *schema.Schema {
	return historyRequestSchema
}

// HistoryRequest asks a replay collaborator for the stored transition
// history of one state column on one record. All three fields are required:
// a history is always scoped to a single record and column.
type HistoryRequest struct {
	// ModelClass identifies the model type whose history is requested.
	ModelClass string `json:"modelClass" yaml:"modelClass"`

	// ModelID identifies the record within ModelClass.
	ModelID string `json:"modelId" yaml:"modelId"`

	// ColumnName is the state column whose history is requested.
	ColumnName string `json:"columnName" yaml:"columnName"`
}

// Compile-time check that HistoryRequest implements model.Model
var _ model.Model = (*HistoryRequest)(nil)

// NewHistoryRequest creates a HistoryRequest from its typed components,
// validating the result before returning.
func NewHistoryRequest(modelClass, modelID, columnName string) (HistoryRequest, error) {
	req := HistoryRequest{
		ModelClass: modelClass,
		ModelID:    modelID,
		ColumnName: columnName,
	}

	if err := req.Validate(); err != nil {
		return HistoryRequest{}, err
	}

	return req, nil
}

// HistoryRequestFromArgs constructs a HistoryRequest from a single
// loosely-typed argument. HistoryRequest is not callable-eligible, so the
// argument must be a field map; lists and bare scalars fail with the
// corresponding shape or type error.
func HistoryRequestFromArgs(arg any) (HistoryRequest, error) {
	res, err := historyRequestSchema.Resolve(arg)
	if err != nil {
		return HistoryRequest{}, err
	}
	return historyRequestFromResolved(res.Fields)
}

// HistoryRequestFromFieldMap constructs a HistoryRequest from a field map.
// Keys are normalized (model_class, model_id, and column_name are
// accepted) and every field is required.
func HistoryRequestFromFieldMap(m fieldmap.Map) (HistoryRequest, error) {
	r, err := historyRequestSchema.Apply(m)
	if err != nil {
		return HistoryRequest{}, err
	}
	return historyRequestFromResolved(r)
}

func historyRequestFromResolved(r *schema.Resolved) (HistoryRequest, error) {
	modelClass, err := r.String("modelClass")
	if err != nil {
		return HistoryRequest{}, err
	}
	modelID, err := r.String("modelId")
	if err != nil {
		return HistoryRequest{}, err
	}
	columnName, err := r.String("columnName")
	if err != nil {
		return HistoryRequest{}, err
	}

	return HistoryRequest{
		ModelClass: modelClass,
		ModelID:    modelID,
		ColumnName: columnName,
	}, nil
}

// FieldMap returns the request's fields as a field map suitable for storage
// and reconstruction.
func (req HistoryRequest) FieldMap() fieldmap.Map {
	return fieldmap.Map{
		"modelClass": req.ModelClass,
		"modelId":    req.ModelID,
		"columnName": req.ColumnName,
	}
}

// String returns the human-readable representation of the request.
func (req HistoryRequest) String() string {
	return fmt.Sprintf("ReplayHistoryRequest{ModelClass:%s, ModelID:%s, ColumnName:%s}",
		req.ModelClass, req.ModelID, req.ColumnName)
}

// Redacted returns a safe representation of the request for production
// logs, masking the record identifier to its first character.
func (req HistoryRequest) Redacted() string {
	return fmt.Sprintf("ReplayHistoryRequest{ModelClass:%s, ModelID:%s, ColumnName:%s}",
		req.ModelClass, redactIdentifier(req.ModelID), req.ColumnName)
}

// TypeName returns the name of this type for error messages and debugging.
func (req HistoryRequest) TypeName() string {
	return "ReplayHistoryRequest"
}

// IsZero reports whether this request is the zero value with no fields set.
func (req HistoryRequest) IsZero() bool {
	return req.ModelClass == "" && req.ModelID == "" && req.ColumnName == ""
}

// Equal reports whether this request equals another HistoryRequest.
func (req HistoryRequest) Equal(other HistoryRequest) bool {
	return req.ModelClass == other.ModelClass &&
		req.ModelID == other.ModelID &&
		req.ColumnName == other.ColumnName
}

// Validate checks whether this request satisfies all model contracts. Every
// field MUST be non-empty (whitespace-only counts as empty).
func (req HistoryRequest) Validate() error {
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
func (req HistoryRequest) MarshalJSON() ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", req.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type historyRequest HistoryRequest
	return json.Marshal(historyRequest(req))
}

// UnmarshalJSON implements json.Unmarshaler, deserializing a JSON object
// into a HistoryRequest and validating the result.
func (req *HistoryRequest) UnmarshalJSON(data []byte) error {
	type historyRequest HistoryRequest
	if err := json.Unmarshal(data, (*historyRequest)(req)); err != nil {
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
func (req HistoryRequest) MarshalYAML() (any, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", req.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type historyRequest HistoryRequest
	return historyRequest(req), nil
}

// UnmarshalYAML implements yaml.Unmarshaler, mirroring the JSON behavior.
func (req *HistoryRequest) UnmarshalYAML(node *yaml.Node) error {
	type historyRequest HistoryRequest
	if err := node.Decode((*historyRequest)(req)); err != nil {
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
