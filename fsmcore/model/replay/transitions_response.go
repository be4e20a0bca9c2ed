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
	"dirpx.dev/dxfsm/fsmcore/hydrate"
	"dirpx.dev/dxfsm/fsmcore/model"
	"dirpx.dev/dxfsm/fsmcore/model/histver"
	"dirpx.dev/dxfsm/fsmcore/schema"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

var transitionsResponseSchema = schema.New("ReplayTransitionsResponse",
	schema.Field{Name: "replayId", Kind: schema.KindString, Check: replayIDCheck},
	schema.Field{Name: "modelClass", Kind: schema.KindString, Required: true},
	schema.Field{Name: "modelId", Kind: schema.KindString, Required: true},
	schema.Field{Name: "columnName", Kind: schema.KindString, Required: true},
	schema.Field{Name: "entries", Kind: schema.KindList, Default: []any{}},
	schema.Field{Name: "formatVersion", Kind: schema.KindAny},
)

// TransitionsResponseSchema returns the field schema shared by every
// TransitionsResponse construction path.
func TransitionsResponseSchema() *schema.Schema {
	return transitionsResponseSchema
}

// NewReplayID returns a fresh replay identifier. Replay identifiers are
// UUIDs; they correlate a reconstructed timeline across log lines and
// follow-up requests.
func NewReplayID() string {
	return uuid.NewString()
}

// replayIDCheck rejects a non-empty replay identifier that is not a UUID.
// The empty identifier is permitted: it marks a response that has not been
// assigned one. Non-string values are left for the string getter to report.
func replayIDCheck(v any) error {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	if _, err := uuid.Parse(s); err != nil {
		return fmt.Errorf("must be a UUID")
	}
	return nil
}

// TransitionsResponse is the reconstruction answer to a HistoryRequest: the
// record's state timeline, oldest interval first, under a payload format
// version.
//
// The format version follows the history payload convention: responses are
// written under the current format, and a stored response whose major
// version differs from the current one fails validation instead of being
// quietly misread. Entries auto-wrap on the loose construction paths the
// same way Definition collections do, and additionally accept the
// descriptor form TimelineEntry registers with the hydrate registry.
type TransitionsResponse struct {
	// ReplayID correlates this reconstruction across log lines and
	// follow-up requests. Empty means not assigned; non-empty MUST be a
	// UUID.
	ReplayID string `json:"replayId" yaml:"replayId"`

	// ModelClass echoes the reconstructed model type.
	ModelClass string `json:"modelClass" yaml:"modelClass"`

	// ModelID echoes the reconstructed record.
	ModelID string `json:"modelId" yaml:"modelId"`

	// ColumnName echoes the reconstructed state column.
	ColumnName string `json:"columnName" yaml:"columnName"`

	// Entries is the reconstructed timeline, oldest interval first.
	// Constructed responses always carry a non-nil list.
	Entries []TimelineEntry `json:"entries" yaml:"entries"`

	// Format is the payload format version the response was written
	// under, stored under the same "formatVersion" key descriptors use.
	Format histver.Version `json:"formatVersion" yaml:"formatVersion"`
}

// Compile-time check that TransitionsResponse implements model.Model
var _ model.Model = (*TransitionsResponse)(nil)

// NewTransitionsResponse creates a freshly reconstructed response: the
// entries list is copied, a new replay identifier is assigned, and the
// format is stamped with the current payload format version. Stored
// responses with known identifiers reconstruct through
// TransitionsResponseFromFieldMap instead.
func NewTransitionsResponse(modelClass, modelID, columnName string, entries []TimelineEntry) (TransitionsResponse, error) {
	resp := TransitionsResponse{
		ReplayID:   NewReplayID(),
		ModelClass: modelClass,
		ModelID:    modelID,
		ColumnName: columnName,
		Entries:    append(make([]TimelineEntry, 0, len(entries)), entries...),
		Format:     histver.Current(),
	}

	if err := resp.Validate(); err != nil {
		return TransitionsResponse{}, err
	}

	return resp, nil
}

// TransitionsResponseFromArgs constructs a TransitionsResponse from a
// single loosely-typed argument. TransitionsResponse is not
// callable-eligible, so the argument must be a field map; lists and bare
// scalars fail with the corresponding shape or type error.
func TransitionsResponseFromArgs(arg any) (TransitionsResponse, error) {
	res, err := transitionsResponseSchema.Resolve(arg)
	if err != nil {
		return TransitionsResponse{}, err
	}
	return transitionsResponseFromResolved(res.Fields)
}

// TransitionsResponseFromFieldMap constructs a TransitionsResponse from a
// field map. Entries auto-wrap: each element MAY be a TimelineEntry value,
// a field map, or a stored descriptor. An absent format defaults to the
// current payload format version; a supplied one MAY be a histver.Version
// or a version string.
func TransitionsResponseFromFieldMap(m fieldmap.Map) (TransitionsResponse, error) {
	r, err := transitionsResponseSchema.Apply(m)
	if err != nil {
		return TransitionsResponse{}, err
	}
	return transitionsResponseFromResolved(r)
}

func transitionsResponseFromResolved(r *schema.Resolved) (TransitionsResponse, error) {
	replayID, err := r.String("replayId")
	if err != nil {
		return TransitionsResponse{}, err
	}
	modelClass, err := r.String("modelClass")
	if err != nil {
		return TransitionsResponse{}, err
	}
	modelID, err := r.String("modelId")
	if err != nil {
		return TransitionsResponse{}, err
	}
	columnName, err := r.String("columnName")
	if err != nil {
		return TransitionsResponse{}, err
	}
	entries, err := entriesValue(r.Value("entries"))
	if err != nil {
		return TransitionsResponse{}, err
	}
	format, err := formatValue(r.Value("formatVersion"))
	if err != nil {
		return TransitionsResponse{}, err
	}

	resp := TransitionsResponse{
		ReplayID:   replayID,
		ModelClass: modelClass,
		ModelID:    modelID,
		ColumnName: columnName,
		Entries:    entries,
		Format:     format,
	}

	// Format compatibility is a contract the schema cannot see.
	if err := resp.Validate(); err != nil {
		return TransitionsResponse{}, err
	}

	return resp, nil
}

// entriesValue interprets the raw entries collection, wrapping each loose
// element through entryItem. A typed slice is copied; a scalar is a kind
// mismatch.
func entriesValue(raw any) ([]TimelineEntry, error) {
	switch v := raw.(type) {
	case nil:
		return []TimelineEntry{}, nil
	case []TimelineEntry:
		return append(make([]TimelineEntry, 0, len(v)), v...), nil
	case []any:
		out := make([]TimelineEntry, 0, len(v))
		for i, item := range v {
			e, err := entryItem(item)
			if err != nil {
				return nil, fmt.Errorf("entries[%d]: %w", i, err)
			}
			out = append(out, e)
		}
		return out, nil
	default:
		return nil, &errors.TypeError{
			Type:  "ReplayTransitionsResponse",
			Field: "entries",
			Want:  "list",
			Got:   fmt.Sprintf("%T", raw),
		}
	}
}

// entryItem converts one loose timeline element. A stored descriptor form
// rehydrates through the registry first; everything else resolves as a
// TimelineEntry argument.
func entryItem(item any) (TimelineEntry, error) {
	if e, ok := item.(TimelineEntry); ok {
		return e, nil
	}
	v, err := hydrate.Hydrate(item)
	if err != nil {
		return TimelineEntry{}, err
	}
	if e, ok := v.(TimelineEntry); ok {
		return e, nil
	}
	return TimelineEntryFromArgs(v)
}

// formatValue interprets the raw format field: absent defaults to the
// current payload format version, a histver.Version is taken as-is, and a
// string is parsed.
func formatValue(raw any) (histver.Version, error) {
	switch v := raw.(type) {
	case nil:
		return histver.Current(), nil
	case histver.Version:
		return v, nil
	case string:
		return histver.Parse(v)
	default:
		return histver.Version{}, &errors.TypeError{
			Type:  "ReplayTransitionsResponse",
			Field: "formatVersion",
			Want:  "version string",
			Got:   fmt.Sprintf("%T", v),
		}
	}
}

// FieldMap returns the response's fields as a field map suitable for
// storage and reconstruction. Entries travel as nested field maps and the
// format as its canonical string.
func (resp TransitionsResponse) FieldMap() fieldmap.Map {
	entries := make([]any, 0, len(resp.Entries))
	for _, e := range resp.Entries {
		entries = append(entries, e.FieldMap())
	}

	return fieldmap.Map{
		"replayId":      resp.ReplayID,
		"modelClass":    resp.ModelClass,
		"modelId":       resp.ModelID,
		"columnName":    resp.ColumnName,
		"entries":       entries,
		"formatVersion": resp.Format.String(),
	}
}

// String returns the human-readable representation of the response with the
// full timeline.
func (resp TransitionsResponse) String() string {
	return fmt.Sprintf("ReplayTransitionsResponse{ReplayID:%s, ModelClass:%s, ModelID:%s, ColumnName:%s, Entries:%v, Format:%s}",
		resp.ReplayID, resp.ModelClass, resp.ModelID, resp.ColumnName, resp.Entries, resp.Format)
}

// Redacted returns a safe representation of the response for production
// logs: the record identifier is masked and the timeline reduced to its
// size. The replay identifier stays visible; it exists to correlate log
// lines.
func (resp TransitionsResponse) Redacted() string {
	return fmt.Sprintf("ReplayTransitionsResponse{ReplayID:%s, ModelClass:%s, ModelID:%s, ColumnName:%s, Entries:[%d], Format:%s}",
		resp.ReplayID, resp.ModelClass, redactIdentifier(resp.ModelID), resp.ColumnName, len(resp.Entries), resp.Format)
}

// TypeName returns the name of this type for error messages and debugging.
func (resp TransitionsResponse) TypeName() string {
	return "ReplayTransitionsResponse"
}

// IsZero reports whether this response is the zero value with no fields
// set.
func (resp TransitionsResponse) IsZero() bool {
	return resp.ReplayID == "" && resp.ModelClass == "" && resp.ModelID == "" &&
		resp.ColumnName == "" && len(resp.Entries) == 0 && resp.Format.IsZero()
}

// Equal reports whether this response equals another TransitionsResponse,
// comparing timelines entry by entry.
func (resp TransitionsResponse) Equal(other TransitionsResponse) bool {
	if resp.ReplayID != other.ReplayID ||
		resp.ModelClass != other.ModelClass ||
		resp.ModelID != other.ModelID ||
		resp.ColumnName != other.ColumnName ||
		!resp.Format.Equal(other.Format) {
		return false
	}
	if len(resp.Entries) != len(other.Entries) {
		return false
	}
	for i := range resp.Entries {
		if !resp.Entries[i].Equal(other.Entries[i]) {
			return false
		}
	}
	return true
}

// Validate checks whether this response satisfies all model contracts.
//
// A non-empty replay identifier MUST be a UUID. ModelClass, ModelID, and
// ColumnName MUST be non-empty (whitespace-only counts as empty). Every
// entry MUST validate, and the format MUST be readable by the current
// payload format version; an unversioned or majorly newer payload fails
// here instead of being quietly misread.
func (resp TransitionsResponse) Validate() error {
	if resp.ReplayID != "" {
		if _, err := uuid.Parse(resp.ReplayID); err != nil {
			return &errors.ValidationError{
				Type:   resp.TypeName(),
				Field:  "replayId",
				Reason: "must be a UUID",
				Value:  resp.ReplayID,
			}
		}
	}
	if strings.TrimSpace(resp.ModelClass) == "" {
		return &errors.RequiredError{Type: resp.TypeName(), Field: "modelClass", Stringly: true}
	}
	if strings.TrimSpace(resp.ModelID) == "" {
		return &errors.RequiredError{Type: resp.TypeName(), Field: "modelId", Stringly: true}
	}
	if strings.TrimSpace(resp.ColumnName) == "" {
		return &errors.RequiredError{Type: resp.TypeName(), Field: "columnName", Stringly: true}
	}
	for i, e := range resp.Entries {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("entries[%d]: %w", i, err)
		}
	}
	if !histver.Current().Compatible(resp.Format) {
		return &errors.ValidationError{
			Type:   resp.TypeName(),
			Field:  "formatVersion",
			Reason: fmt.Sprintf("payload format %s is not readable by format %s", resp.Format, histver.Current()),
			Value:  resp.Format,
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler, serializing the response with a
// non-nil timeline and the format as its canonical string. An invalid
// response fails marshaling.
func (resp TransitionsResponse) MarshalJSON() ([]byte, error) {
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", resp.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type transitionsResponse TransitionsResponse
	rr := transitionsResponse(resp)
	if rr.Entries == nil {
		rr.Entries = []TimelineEntry{}
	}
	return json.Marshal(rr)
}

// UnmarshalJSON implements json.Unmarshaler, deserializing a JSON object
// into a TransitionsResponse and validating the result. A stored payload
// without a format version carries the zero version and fails validation
// as incompatible.
func (resp *TransitionsResponse) UnmarshalJSON(data []byte) error {
	type transitionsResponse TransitionsResponse
	if err := json.Unmarshal(data, (*transitionsResponse)(resp)); err != nil {
		return &errors.UnmarshalError{
			Type:   resp.TypeName(),
			Data:   data,
			Reason: err.Error(),
		}
	}
	if resp.Entries == nil {
		resp.Entries = []TimelineEntry{}
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
func (resp TransitionsResponse) MarshalYAML() (any, error) {
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal invalid %s: %w", resp.TypeName(), err)
	}

	// Use type alias to avoid infinite recursion
	type transitionsResponse TransitionsResponse
	rr := transitionsResponse(resp)
	if rr.Entries == nil {
		rr.Entries = []TimelineEntry{}
	}
	return rr, nil
}

// UnmarshalYAML implements yaml.Unmarshaler, mirroring the JSON behavior.
func (resp *TransitionsResponse) UnmarshalYAML(node *yaml.Node) error {
	type transitionsResponse TransitionsResponse
	if err := node.Decode((*transitionsResponse)(resp)); err != nil {
		return &errors.UnmarshalError{
			Type:   resp.TypeName(),
			Data:   []byte(node.Value),
			Reason: err.Error(),
		}
	}
	if resp.Entries == nil {
		resp.Entries = []TimelineEntry{}
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
