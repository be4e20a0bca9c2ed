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

var statisticsResponseSchema = schema.New("ReplayStatisticsResponse",
	schema.Field{Name: "modelClass", Kind: schema.KindString, Required: true},
	schema.Field{Name: "columnName", Kind: schema.KindString, Required: true},
	schema.Field{Name: "totalTransitions", Kind: schema.KindInt},
	schema.Field{Name: "stateCounts", Kind: schema.KindMap},
	schema.Field{Name: "averageSeconds", Kind: schema.KindMap},
)

// StatisticsResponseSchema returns the field schema shared by every
// StatisticsResponse construction path.
func StatisticsResponseSchema() *schema.Schema {
	return statisticsResponseSchema
}

// StatisticsResponse is the aggregation answer to a StatisticsRequest: how
// many transitions the examined window holds, how often each state was
// entered, and optionally how long records held each state on average.
//
// Constructed responses always carry non-nil maps. AverageSeconds is empty
// unless the request asked for durations.
type StatisticsResponse struct {
	// ModelClass echoes the aggregated model type.
	ModelClass string `json:"modelClass" yaml:"modelClass"`

	// ColumnName echoes the aggregated state column.
	ColumnName string `json:"columnName" yaml:"columnName"`

	// TotalTransitions counts every transition in the examined window.
	TotalTransitions int `json:"totalTransitions" yaml:"totalTransitions"`

	// StateCounts maps each state to how often it was entered.
	StateCounts map[string]int `json:"stateCounts" yaml:"stateCounts"`

	// AverageSeconds maps each state to the average holding time in
	// seconds. Empty when durations were not requested.
	AverageSeconds map[string]float64 `json:"averageSeconds" yaml:"averageSeconds"`
}

// Compile-time check that StatisticsResponse implements model.Model
var _ model.Model = (*StatisticsResponse)(nil)

// NewStatisticsResponse creates a StatisticsResponse from its typed
// components, validating the result before returning. Both maps are copied;
// nil maps materialize as empty ones.
func NewStatisticsResponse(modelClass, columnName string, totalTransitions int, stateCounts map[string]int, averageSeconds map[string]float64) (StatisticsResponse, error) {
	resp := StatisticsResponse{
		ModelClass:       modelClass,
		ColumnName:       columnName,
		TotalTransitions: totalTransitions,
		StateCounts:      copyCounts(stateCounts),
		AverageSeconds:   copyAverages(averageSeconds),
	}

	if err := resp.Validate(); err != nil {
		return StatisticsResponse{}, err
	}

	return resp, nil
}

// StatisticsResponseFromArgs constructs a StatisticsResponse from a single
// loosely-typed argument. StatisticsResponse is not callable-eligible, so
// the argument must be a field map; lists and bare scalars fail with the
// corresponding shape or type error.
func StatisticsResponseFromArgs(arg any) (StatisticsResponse, error) {
	res, err := statisticsResponseSchema.Resolve(arg)
	if err != nil {
		return StatisticsResponse{}, err
	}
	return statisticsResponseFromResolved(res.Fields)
}

// StatisticsResponseFromFieldMap constructs a StatisticsResponse from a
// field map. Count and average values tolerate JSON number decoding:
// whole-valued floats become ints, ints become floats.
func StatisticsResponseFromFieldMap(m fieldmap.Map) (StatisticsResponse, error) {
	r, err := statisticsResponseSchema.Apply(m)
	if err != nil {
		return StatisticsResponse{}, err
	}
	return statisticsResponseFromResolved(r)
}

func statisticsResponseFromResolved(r *schema.Resolved) (StatisticsResponse, error) {
	modelClass, err := r.String("modelClass")
	if err != nil {
		return StatisticsResponse{}, err
	}
	columnName, err := r.String("columnName")
	if err != nil {
		return StatisticsResponse{}, err
	}
	total, err := r.Int("totalTransitions")
	if err != nil {
		return StatisticsResponse{}, err
	}
	rawCounts, err := r.Map("stateCounts")
	if err != nil {
		return StatisticsResponse{}, err
	}
	counts, err := countsValue(rawCounts)
	if err != nil {
		return StatisticsResponse{}, err
	}
	rawAverages, err := r.Map("averageSeconds")
	if err != nil {
		return StatisticsResponse{}, err
	}
	averages, err := averagesValue(rawAverages)
	if err != nil {
		return StatisticsResponse{}, err
	}

	resp := StatisticsResponse{
		ModelClass:       modelClass,
		ColumnName:       columnName,
		TotalTransitions: total,
		StateCounts:      counts,
		AverageSeconds:   averages,
	}

	// A negative total is a contract the schema cannot see.
	if err := resp.Validate(); err != nil {
		return StatisticsResponse{}, err
	}

	return resp, nil
}

// countsValue converts a loose per-state map into integer counts,
// tolerating whole-valued floats from JSON number decoding.
func countsValue(raw fieldmap.Map) (map[string]int, error) {
	out := make(map[string]int, len(raw))
	for k, v := range raw {
		switch n := v.(type) {
		case int:
			out[k] = n
		case int64:
			out[k] = int(n)
		case float64:
			if n != float64(int(n)) {
				return nil, fmt.Errorf("stateCounts[%s]: %w", k, countTypeError(v))
			}
			out[k] = int(n)
		default:
			return nil, fmt.Errorf("stateCounts[%s]: %w", k, countTypeError(v))
		}
	}
	return out, nil
}

func countTypeError(v any) error {
	return &errors.TypeError{
		Type:  "ReplayStatisticsResponse",
		Field: "stateCounts",
		Want:  "integer",
		Got:   fmt.Sprintf("%T", v),
	}
}

// averagesValue converts a loose per-state map into float averages,
// accepting integer values as exact seconds.
func averagesValue(raw fieldmap.Map) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		switch n := v.(type) {
		case float64:
			out[k] = n
		case int:
			out[k] = float64(n)
		case int64:
			out[k] = float64(n)
		default:
			return nil, fmt.Errorf("averageSeconds[%s]: %w", k, &errors.TypeError{
				Type:  "ReplayStatisticsResponse",
				Field: "averageSeconds",
				Want:  "number",
				Got:   fmt.Sprintf("%T", v),
			})
		}
	}
	return out, nil
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyAverages(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FieldMap returns the response's fields as a field map suitable for
// storage and reconstruction.
func (resp StatisticsResponse) FieldMap() fieldmap.Map {
	counts := make(map[string]any, len(resp.StateCounts))
	for k, v := range resp.StateCounts {
		counts[k] = v
	}
	averages := make(map[string]any, len(resp.AverageSeconds))
	for k, v := range resp.AverageSeconds {
		averages[k] = v
	}
	return fieldmap.Map{
		"modelClass":       resp.ModelClass,
		"columnName":       resp.ColumnName,
		"totalTransitions": resp.TotalTransitions,
		"stateCounts":      counts,
		"averageSeconds":   averages,
	}
}

// String returns the human-readable representation of the response with the
// full per-state maps.
func (resp StatisticsResponse) String() string {
	return fmt.Sprintf("ReplayStatisticsResponse{ModelClass:%s, ColumnName:%s, TotalTransitions:%d, StateCounts:%v, AverageSeconds:%v}",
		resp.ModelClass, resp.ColumnName, resp.TotalTransitions, resp.StateCounts, resp.AverageSeconds)
}

// Redacted returns a compact representation of the response for production
// logs, reducing the per-state maps to their sizes.
func (resp StatisticsResponse) Redacted() string {
	return fmt.Sprintf("ReplayStatisticsResponse{ModelClass:%s, ColumnName:%s, TotalTransitions:%d, StateCounts:[%d], AverageSeconds:[%d]}",
		resp.ModelClass, resp.ColumnName, resp.TotalTransitions, len(resp.StateCounts), len(resp.AverageSeconds))
}

// TypeName returns the name of this type for error messages and debugging.
func (resp StatisticsResponse) TypeName() string {
	return "ReplayStatisticsResponse"
}

// IsZero reports whether this response is the zero value with no fields
// set.
func (resp StatisticsResponse) IsZero() bool {
	return resp.ModelClass == "" && resp.ColumnName == "" &&
		resp.TotalTransitions == 0 && len(resp.StateCounts) == 0 &&
		len(resp.AverageSeconds) == 0
}

// Equal reports whether this response equals another StatisticsResponse.
// Nil and empty maps compare equal.
func (resp StatisticsResponse) Equal(other StatisticsResponse) bool {
	if resp.ModelClass != other.ModelClass ||
		resp.ColumnName != other.ColumnName ||
		resp.TotalTransitions != other.TotalTransitions {
		return false
	}
	if len(resp.StateCounts) != len(other.StateCounts) ||
		len(resp.AverageSeconds) != len(other.AverageSeconds) {
		return false
	}
	for k, v := range resp.StateCounts {
		if ov, ok := other.StateCounts[k]; !ok || ov != v {
			return false
		}
	}
	for k, v := range resp.AverageSeconds {
		if ov, ok := other.AverageSeconds[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Validate checks whether this response satisfies all model contracts.
//
// ModelClass and ColumnName MUST be non-empty (whitespace-only counts as
// empty) and the total MUST NOT be negative. Per-state values are the
// aggregator's produce and stay unconstrained.
func (resp StatisticsResponse) Validate() error {
	if strings.TrimSpace(resp.ModelClass) == "" {
		return &errors.RequiredError{Type: resp.TypeName(), Field: "modelClass", Stringly: true}
	}
	if strings.TrimSpace(resp.ColumnName) == "" {
		return &errors.RequiredError{Type: resp.TypeName(), Field: "columnName", Stringly: true}
	}
	if resp.TotalTransitions < 0 {
		return &errors.ValidationError{
			Type:   resp.TypeName(),
			Field:  "totalTransitions",
			Reason: "must not be negative",
			Value:  resp.TotalTransitions,
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler, serializing the response with
// non-nil maps. An invalid response fails marshaling.
func (resp StatisticsResponse) MarshalJSON() ([]byte, error) {
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", resp.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type statisticsResponse StatisticsResponse
	rr := statisticsResponse(resp)
	if rr.StateCounts == nil {
		rr.StateCounts = map[string]int{}
	}
	if rr.AverageSeconds == nil {
		rr.AverageSeconds = map[string]float64{}
	}
	return json.Marshal(rr)
}

// UnmarshalJSON implements json.Unmarshaler, deserializing a JSON object
// into a StatisticsResponse with non-nil maps and validating the result.
func (resp *StatisticsResponse) UnmarshalJSON(data []byte) error {
	type statisticsResponse StatisticsResponse
	if err := json.Unmarshal(data, (*statisticsResponse)(resp)); err != nil {
		return &errors.UnmarshalError{
			Type:   resp.TypeName(),
			Data:   data,
			Reason: err.Error(),
		}
	}
	if resp.StateCounts == nil {
		resp.StateCounts = map[string]int{}
	}
	if resp.AverageSeconds == nil {
		resp.AverageSeconds = map[string]float64{}
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
func (resp StatisticsResponse) MarshalYAML() (any, error) {
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", resp.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type statisticsResponse StatisticsResponse
	rr := statisticsResponse(resp)
	if rr.StateCounts == nil {
		rr.StateCounts = map[string]int{}
	}
	if rr.AverageSeconds == nil {
		rr.AverageSeconds = map[string]float64{}
	}
	return rr, nil
}

// UnmarshalYAML implements yaml.Unmarshaler, mirroring the JSON behavior.
func (resp *StatisticsResponse) UnmarshalYAML(node *yaml.Node) error {
	type statisticsResponse StatisticsResponse
	if err := node.Decode((*statisticsResponse)(resp)); err != nil {
		return &errors.UnmarshalError{
			Type:   resp.TypeName(),
			Data:   []byte(node.Value),
			Reason: err.Error(),
		}
	}
	if resp.StateCounts == nil {
		resp.StateCounts = map[string]int{}
	}
	if resp.AverageSeconds == nil {
		resp.AverageSeconds = map[string]float64{}
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
