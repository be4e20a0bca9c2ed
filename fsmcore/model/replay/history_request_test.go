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

package replay_test

import (
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"

	"dirpx.dev/dxfsm/fsmcore/errors"
	"dirpx.dev/dxfsm/fsmcore/fieldmap"
	"dirpx.dev/dxfsm/fsmcore/model/replay"
	"gopkg.in/yaml.v3"
)

func TestHistoryRequestFromFieldMap(t *testing.T) {
	req, err := replay.HistoryRequestFromFieldMap(fieldmap.Map{
		"modelClass": "Order",
		"modelId":    "42",
		"columnName": "status",
	})
	if err != nil {
		t.Fatalf("HistoryRequestFromFieldMap() error = %v", err)
	}

	if req.ModelClass != "Order" || req.ModelID != "42" || req.ColumnName != "status" {
		t.Errorf("unexpected request: %v", req)
	}
}

func TestHistoryRequestFromFieldMap_SnakeKeys(t *testing.T) {
	req, err := replay.HistoryRequestFromFieldMap(fieldmap.Map{
		"model_class": "Order",
		"model_id":    "42",
		"column_name": "status",
	})
	if err != nil {
		t.Fatalf("HistoryRequestFromFieldMap() error = %v", err)
	}

	if req.ModelClass != "Order" || req.ModelID != "42" || req.ColumnName != "status" {
		t.Errorf("unexpected request: %v", req)
	}
}

func TestHistoryRequestFromFieldMap_RequiredInOrder(t *testing.T) {
	tests := []struct {
		name      string
		m         fieldmap.Map
		wantField string
	}{
		{"empty map fails on first declared", fieldmap.Map{}, "modelClass"},
		{"modelId next", fieldmap.Map{"modelClass": "Order"}, "modelId"},
		{"columnName last", fieldmap.Map{"modelClass": "Order", "modelId": "42"}, "columnName"},
		{"whitespace counts as missing", fieldmap.Map{"modelClass": "  ", "modelId": "42", "columnName": "status"}, "modelClass"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := replay.HistoryRequestFromFieldMap(tt.m)
			var reqErr *errors.RequiredError
			if !stderrors.As(err, &reqErr) {
				t.Fatalf("error = %v, want RequiredError", err)
			}
			if reqErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", reqErr.Field, tt.wantField)
			}
		})
	}
}

func TestHistoryRequestFromFieldMap_RequiredMessage(t *testing.T) {
	_, err := replay.HistoryRequestFromFieldMap(fieldmap.Map{})
	want := "dxfsm: invalid ReplayHistoryRequest: The `modelClass` is required and cannot be an empty string."
	if err == nil || err.Error() != want {
		t.Errorf("error = %v, want %q", err, want)
	}
}

func TestHistoryRequestFromArgs(t *testing.T) {
	t.Run("field map", func(t *testing.T) {
		req, err := replay.HistoryRequestFromArgs(map[string]any{
			"model_class": "Order",
			"model_id":    "42",
			"column_name": "status",
		})
		if err != nil {
			t.Fatalf("HistoryRequestFromArgs() error = %v", err)
		}
		if req.ModelClass != "Order" {
			t.Errorf("ModelClass = %q, want Order", req.ModelClass)
		}
	})

	t.Run("two element list", func(t *testing.T) {
		_, err := replay.HistoryRequestFromArgs([]any{"Order", "42"})
		var shapeErr *errors.ShapeError
		if !stderrors.As(err, &shapeErr) {
			t.Fatalf("error = %v, want ShapeError", err)
		}
		if !strings.Contains(err.Error(), "cannot use callable arrays") {
			t.Errorf("error = %q, want callable-array clause", err)
		}
	})

	t.Run("three element list", func(t *testing.T) {
		_, err := replay.HistoryRequestFromArgs([]any{"Order", "42", "status"})
		var shapeErr *errors.ShapeError
		if !stderrors.As(err, &shapeErr) {
			t.Fatalf("error = %v, want ShapeError", err)
		}
		if !strings.Contains(err.Error(), "requires an associative array") {
			t.Errorf("error = %q, want associative clause", err)
		}
	})

	t.Run("nil", func(t *testing.T) {
		_, err := replay.HistoryRequestFromArgs(nil)
		var shapeErr *errors.ShapeError
		if !stderrors.As(err, &shapeErr) {
			t.Fatalf("error = %v, want ShapeError", err)
		}
		if !strings.Contains(err.Error(), "requires a non-empty array") {
			t.Errorf("error = %q, want non-empty clause", err)
		}
	})

	t.Run("undeclared keys enumerate the declared ones", func(t *testing.T) {
		_, err := replay.HistoryRequestFromArgs(map[string]any{"table": "orders"})
		var shapeErr *errors.ShapeError
		if !stderrors.As(err, &shapeErr) {
			t.Fatalf("error = %v, want ShapeError", err)
		}
		if !strings.Contains(err.Error(), "declared keys: modelClass, modelId, columnName") {
			t.Errorf("error = %q, want declared key enumeration", err)
		}
	})

	t.Run("scalar rejected", func(t *testing.T) {
		_, err := replay.HistoryRequestFromArgs(42)
		var typeErr *errors.TypeError
		if !stderrors.As(err, &typeErr) {
			t.Errorf("error = %v, want TypeError", err)
		}
	})
}

func TestNewHistoryRequest(t *testing.T) {
	req, err := replay.NewHistoryRequest("Order", "42", "status")
	if err != nil {
		t.Fatalf("NewHistoryRequest() error = %v", err)
	}
	if req.ModelClass != "Order" || req.ModelID != "42" || req.ColumnName != "status" {
		t.Errorf("unexpected request: %v", req)
	}

	if _, err := replay.NewHistoryRequest("", "42", "status"); err == nil {
		t.Error("NewHistoryRequest() with empty modelClass: expected error")
	}
	if _, err := replay.NewHistoryRequest("Order", "", "status"); err == nil {
		t.Error("NewHistoryRequest() with empty modelId: expected error")
	}
	if _, err := replay.NewHistoryRequest("Order", "42", ""); err == nil {
		t.Error("NewHistoryRequest() with empty columnName: expected error")
	}
}

func TestHistoryRequest_FieldMap_RoundTrip(t *testing.T) {
	original, err := replay.NewHistoryRequest("Order", "42", "status")
	if err != nil {
		t.Fatalf("NewHistoryRequest() error = %v", err)
	}

	got, err := replay.HistoryRequestFromFieldMap(original.FieldMap())
	if err != nil {
		t.Fatalf("HistoryRequestFromFieldMap() error = %v", err)
	}
	if !got.Equal(original) {
		t.Errorf("round-trip = %v, want %v", got, original)
	}
}

func TestHistoryRequest_String(t *testing.T) {
	req, err := replay.NewHistoryRequest("Order", "42", "status")
	if err != nil {
		t.Fatalf("NewHistoryRequest() error = %v", err)
	}

	want := "ReplayHistoryRequest{ModelClass:Order, ModelID:42, ColumnName:status}"
	if got := req.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestHistoryRequest_Redacted(t *testing.T) {
	req, err := replay.NewHistoryRequest("Order", "42", "status")
	if err != nil {
		t.Fatalf("NewHistoryRequest() error = %v", err)
	}

	want := "ReplayHistoryRequest{ModelClass:Order, ModelID:4***, ColumnName:status}"
	if got := req.Redacted(); got != want {
		t.Errorf("Redacted() = %q, want %q", got, want)
	}
}

func TestHistoryRequest_TypeName(t *testing.T) {
	var req replay.HistoryRequest
	if got := req.TypeName(); got != "ReplayHistoryRequest" {
		t.Errorf("TypeName() = %v, want ReplayHistoryRequest", got)
	}
}

func TestHistoryRequest_IsZero(t *testing.T) {
	var zero replay.HistoryRequest
	if !zero.IsZero() {
		t.Error("IsZero() = false for zero request")
	}
	if (replay.HistoryRequest{ModelClass: "Order"}).IsZero() {
		t.Error("IsZero() = true for request with modelClass")
	}
}

func TestHistoryRequest_Equal(t *testing.T) {
	a, err := replay.NewHistoryRequest("Order", "42", "status")
	if err != nil {
		t.Fatalf("NewHistoryRequest() error = %v", err)
	}
	b := a

	if !a.Equal(b) {
		t.Error("Equal() = false for identical requests")
	}

	b.ModelID = "43"
	if a.Equal(b) {
		t.Error("Equal() = true for different records")
	}
}

func TestHistoryRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     replay.HistoryRequest
		wantErr bool
	}{
		{"valid", replay.HistoryRequest{ModelClass: "Order", ModelID: "42", ColumnName: "status"}, false},
		{"missing modelClass", replay.HistoryRequest{ModelID: "42", ColumnName: "status"}, true},
		{"missing modelId", replay.HistoryRequest{ModelClass: "Order", ColumnName: "status"}, true},
		{"missing columnName", replay.HistoryRequest{ModelClass: "Order", ModelID: "42"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHistoryRequest_MarshalJSON(t *testing.T) {
	req, err := replay.NewHistoryRequest("Order", "42", "status")
	if err != nil {
		t.Fatalf("NewHistoryRequest() error = %v", err)
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	want := `{"modelClass":"Order","modelId":"42","columnName":"status"}`
	if string(data) != want {
		t.Errorf("json.Marshal() = %s, want %s", data, want)
	}
}

func TestHistoryRequest_MarshalJSON_Invalid(t *testing.T) {
	req := replay.HistoryRequest{ModelClass: "Order"}
	if _, err := json.Marshal(req); err == nil {
		t.Error("expected error marshaling incomplete request")
	}
}

func TestHistoryRequest_UnmarshalJSON_MissingRequired(t *testing.T) {
	var req replay.HistoryRequest
	err := json.Unmarshal([]byte(`{"modelClass":"Order"}`), &req)

	var umErr *errors.UnmarshalError
	if !stderrors.As(err, &umErr) {
		t.Fatalf("error = %v, want UnmarshalError", err)
	}
}

func TestHistoryRequest_JSON_RoundTrip(t *testing.T) {
	original, err := replay.NewHistoryRequest("Order", "42", "status")
	if err != nil {
		t.Fatalf("NewHistoryRequest() error = %v", err)
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var got replay.HistoryRequest
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if !got.Equal(original) {
		t.Errorf("round-trip = %v, want %v", got, original)
	}
}

func TestHistoryRequest_YAML_RoundTrip(t *testing.T) {
	original, err := replay.NewHistoryRequest("Order", "42", "status")
	if err != nil {
		t.Fatalf("NewHistoryRequest() error = %v", err)
	}

	data, err := yaml.Marshal(original)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	var got replay.HistoryRequest
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if !got.Equal(original) {
		t.Errorf("round-trip = %v, want %v", got, original)
	}
}

func TestHistoryRequestSchema_Declaration(t *testing.T) {
	s := replay.HistoryRequestSchema()

	if got := s.TypeName(); got != "ReplayHistoryRequest" {
		t.Errorf("TypeName() = %v, want ReplayHistoryRequest", got)
	}
	want := []string{"modelClass", "modelId", "columnName"}
	got := s.FieldNames()
	if len(got) != len(want) {
		t.Fatalf("FieldNames() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FieldNames()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if s.CallableEligible() {
		t.Error("CallableEligible() = true, want false")
	}
}
