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
	"time"

	"dirpx.dev/dxfsm/fsmcore/errors"
	"dirpx.dev/dxfsm/fsmcore/fieldmap"
	"dirpx.dev/dxfsm/fsmcore/model"
	"dirpx.dev/dxfsm/fsmcore/schema"
	"gopkg.in/yaml.v3"
)

var statisticsRequestSchema = schema.New("ReplayStatisticsRequest",
	schema.Field{Name: "modelClass", Kind: schema.KindString, Required: true},
	schema.Field{Name: "modelId", Kind: schema.KindString},
	schema.Field{Name: "columnName", Kind: schema.KindString, Required: true},
	schema.Field{Name: "since", Kind: schema.KindTime},
	schema.Field{Name: "until", Kind: schema.KindTime},
	schema.Field{Name: "includeDurations", Kind: schema.KindBool},
)

// StatisticsRequestSchema returns the field schema shared by every
// StatisticsRequest construction path.
func StatisticsRequestSchema() *schema.Schema {
	return statisticsRequestSchema
}

// StatisticsRequest asks a replay collaborator to aggregate transition
// statistics for one state column.
//
// ModelClass and ColumnName are required. ModelID MAY be empty to aggregate
// across every record of the class. Since and Until bound the examined
// window; either MAY be zero to leave that end unbounded. IncludeDurations
// asks for per-state average holding times in addition to counts, which
// costs a timeline reconstruction per record.
type StatisticsRequest struct {
	// ModelClass identifies the model type to aggregate over.
	ModelClass string `json:"modelClass" yaml:"modelClass"`

	// ModelID narrows the aggregation to one record. Empty means all
	// records of ModelClass.
	ModelID string `json:"modelId" yaml:"modelId"`

	// ColumnName is the state column to aggregate.
	ColumnName string `json:"columnName" yaml:"columnName"`

	// Since excludes transitions before this instant. Zero means
	// unbounded.
	Since time.Time `json:"since" yaml:"since"`

	// Until excludes transitions after this instant. Zero means
	// unbounded.
	Until time.Time `json:"until" yaml:"until"`

	// IncludeDurations asks for per-state average holding times.
	IncludeDurations bool `json:"includeDurations" yaml:"includeDurations"`
}

// Compile-time check that StatisticsRequest implements model.Model
var _ model.Model = (*StatisticsRequest)(nil)

// NewStatisticsRequest creates a StatisticsRequest from its typed
// components, validating the result before returning. Pass zero times to
// leave the window unbounded.
func NewStatisticsRequest(modelClass, modelID, columnName string, since, until time.Time, includeDurations bool) (StatisticsRequest, error) {
	req := StatisticsRequest{
		ModelClass:       modelClass,
		ModelID:          modelID,
		ColumnName:       columnName,
		Since:            since,
		Until:            until,
		IncludeDurations: includeDurations,
	}

	if err := req.Validate(); err != nil {
		return StatisticsRequest{}, err
	}

	return req, nil
}

// StatisticsRequestFromArgs constructs a StatisticsRequest from a single
// loosely-typed argument. StatisticsRequest is not callable-eligible, so
// the argument must be a field map; lists and bare scalars fail with the
// corresponding shape or type error.
func StatisticsRequestFromArgs(arg any) (StatisticsRequest, error) {
	res, err := statisticsRequestSchema.Resolve(arg)
	if err != nil {
		return StatisticsRequest{}, err
	}
	return statisticsRequestFromResolved(res.Fields)
}

// StatisticsRequestFromFieldMap constructs a StatisticsRequest from a field
// map. Keys are normalized (model_class, include_durations, and the rest
// are accepted), modelClass and columnName are required, and window bounds
// MAY be time.Time values or RFC3339 strings.
func StatisticsRequestFromFieldMap(m fieldmap.Map) (StatisticsRequest, error) {
	r, err := statisticsRequestSchema.Apply(m)
	if err != nil {
		return StatisticsRequest{}, err
	}
	return statisticsRequestFromResolved(r)
}

func statisticsRequestFromResolved(r *schema.Resolved) (StatisticsRequest, error) {
	modelClass, err := r.String("modelClass")
	if err != nil {
		return StatisticsRequest{}, err
	}
	modelID, err := r.String("modelId")
	if err != nil {
		return StatisticsRequest{}, err
	}
	columnName, err := r.String("columnName")
	if err != nil {
		return StatisticsRequest{}, err
	}
	since, err := r.Time("since")
	if err != nil {
		return StatisticsRequest{}, err
	}
	until, err := r.Time("until")
	if err != nil {
		return StatisticsRequest{}, err
	}
	includeDurations, err := r.Bool("includeDurations")
	if err != nil {
		return StatisticsRequest{}, err
	}

	req := StatisticsRequest{
		ModelClass:       modelClass,
		ModelID:          modelID,
		ColumnName:       columnName,
		Since:            since,
		Until:            until,
		IncludeDurations: includeDurations,
	}

	// Window ordering is a contract the schema cannot see.
	if err := req.Validate(); err != nil {
		return StatisticsRequest{}, err
	}

	return req, nil
}

// Bounded reports whether the examined window is bounded on either end.
func (req StatisticsRequest) Bounded() bool {
	return !req.Since.IsZero() || !req.Until.IsZero()
}

// FieldMap returns the request's fields as a field map suitable for storage
// and reconstruction. Window bounds are emitted as RFC3339 strings; a zero
// bound emits no key at all.
func (req StatisticsRequest) FieldMap() fieldmap.Map {
	m := fieldmap.Map{
		"modelClass":       req.ModelClass,
		"modelId":          req.ModelID,
		"columnName":       req.ColumnName,
		"includeDurations": req.IncludeDurations,
	}
	if !req.Since.IsZero() {
		m["since"] = req.Since.Format(time.RFC3339Nano)
	}
	if !req.Until.IsZero() {
		m["until"] = req.Until.Format(time.RFC3339Nano)
	}
	return m
}

// windowInstant formats one end of an examined window for display.
func windowInstant(t time.Time) string {
	if t.IsZero() {
		return "unbounded"
	}
	return t.Format(time.RFC3339)
}

// String returns the human-readable representation of the request. An
// unbounded window end prints as "unbounded".
func (req StatisticsRequest) String() string {
	return fmt.Sprintf("ReplayStatisticsRequest{ModelClass:%s, ModelID:%s, ColumnName:%s, Since:%s, Until:%s, IncludeDurations:%t}",
		req.ModelClass, req.ModelID, req.ColumnName, windowInstant(req.Since), windowInstant(req.Until), req.IncludeDurations)
}

// Redacted returns a safe representation of the request for production
// logs, masking the record identifier to its first character.
func (req StatisticsRequest) Redacted() string {
	return fmt.Sprintf("ReplayStatisticsRequest{ModelClass:%s, ModelID:%s, ColumnName:%s, Since:%s, Until:%s, IncludeDurations:%t}",
		req.ModelClass, redactIdentifier(req.ModelID), req.ColumnName, windowInstant(req.Since), windowInstant(req.Until), req.IncludeDurations)
}

// TypeName returns the name of this type for error messages and debugging.
func (req StatisticsRequest) TypeName() string {
	return "ReplayStatisticsRequest"
}

// IsZero reports whether this request is the zero value with no fields set.
func (req StatisticsRequest) IsZero() bool {
	return req.ModelClass == "" && req.ModelID == "" && req.ColumnName == "" &&
		req.Since.IsZero() && req.Until.IsZero() && !req.IncludeDurations
}

// Equal reports whether this request equals another StatisticsRequest.
// Window bounds compare as instants.
func (req StatisticsRequest) Equal(other StatisticsRequest) bool {
	return req.ModelClass == other.ModelClass &&
		req.ModelID == other.ModelID &&
		req.ColumnName == other.ColumnName &&
		req.Since.Equal(other.Since) &&
		req.Until.Equal(other.Until) &&
		req.IncludeDurations == other.IncludeDurations
}

// Validate checks whether this request satisfies all model contracts.
//
// ModelClass and ColumnName MUST be non-empty (whitespace-only counts as
// empty). When both window bounds are set, Until MUST NOT precede Since.
func (req StatisticsRequest) Validate() error {
	if strings.TrimSpace(req.ModelClass) == "" {
		return &errors.RequiredError{Type: req.TypeName(), Field: "modelClass", Stringly: true}
	}
	if strings.TrimSpace(req.ColumnName) == "" {
		return &errors.RequiredError{Type: req.TypeName(), Field: "columnName", Stringly: true}
	}
	if !req.Since.IsZero() && !req.Until.IsZero() && req.Until.Before(req.Since) {
		return &errors.ValidationError{
			Type:   req.TypeName(),
			Field:  "until",
			Reason: "window must not end before it starts",
			Value:  req.Until,
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler, refusing to serialize an invalid
// request.
func (req StatisticsRequest) MarshalJSON() ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", req.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type statisticsRequest StatisticsRequest
	return json.Marshal(statisticsRequest(req))
}

// UnmarshalJSON implements json.Unmarshaler, deserializing a JSON object
// into a StatisticsRequest and validating the result.
func (req *StatisticsRequest) UnmarshalJSON(data []byte) error {
	type statisticsRequest StatisticsRequest
	if err := json.Unmarshal(data, (*statisticsRequest)(req)); err != nil {
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
func (req StatisticsRequest) MarshalYAML() (any, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", req.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type statisticsRequest StatisticsRequest
	return statisticsRequest(req), nil
}

// UnmarshalYAML implements yaml.Unmarshaler, mirroring the JSON behavior.
func (req *StatisticsRequest) UnmarshalYAML(node *yaml.Node) error {
	type statisticsRequest StatisticsRequest
	if err := node.Decode((*statisticsRequest)(req)); err != nil {
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
