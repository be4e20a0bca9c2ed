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

package transition_test

import (
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"

	"dirpx.dev/dxfsm/fsmcore/errors"
	"dirpx.dev/dxfsm/fsmcore/fieldmap"
	"dirpx.dev/dxfsm/fsmcore/model/callable"
	"dirpx.dev/dxfsm/fsmcore/model/transition"
	"gopkg.in/yaml.v3"
)

func TestDefinitionFromFieldMap_Minimal(t *testing.T) {
	d, err := transition.DefinitionFromFieldMap(fieldmap.Map{"from": "draft", "to": "review"})
	if err != nil {
		t.Fatalf("DefinitionFromFieldMap() error = %v", err)
	}

	if d.From != "draft" || d.To != "review" || d.Name != "" {
		t.Errorf("DefinitionFromFieldMap() = %v, want from=draft to=review name empty", d)
	}
	if d.Guards == nil || d.Actions == nil || d.Callbacks == nil {
		t.Error("collections must materialize non-nil")
	}
	if len(d.Guards) != 0 || len(d.Actions) != 0 || len(d.Callbacks) != 0 {
		t.Errorf("collections = %d/%d/%d entries, want empty", len(d.Guards), len(d.Actions), len(d.Callbacks))
	}
}

func TestDefinitionFromFieldMap_WrapsCollections(t *testing.T) {
	prebuilt := transition.NewGuard(callable.NewRef("ReviewPolicy@canSubmit"), nil)

	d, err := transition.DefinitionFromFieldMap(fieldmap.Map{
		"name": "submit",
		"from": "draft",
		"to":   "review",
		"guards": []any{
			[]any{"AuditService", "check"},
			"Quota@verify",
			prebuilt,
			map[string]any{"callable": "Policy@allows", "parameters": []any{"strict"}},
		},
		"actions": []any{
			map[string]any{"callable": "Notifier@send", "queued": true},
		},
		"callbacks": []any{
			map[string]any{"callable": "Logger@record", "stage": "before"},
			"Projector@project",
		},
	})
	if err != nil {
		t.Fatalf("DefinitionFromFieldMap() error = %v", err)
	}

	wantGuards := []transition.Guard{
		transition.NewGuard(callable.NewPair([]any{"AuditService", "check"}), nil),
		transition.NewGuard(callable.NewRef("Quota@verify"), nil),
		prebuilt,
		transition.NewGuard(callable.NewRef("Policy@allows"), []any{"strict"}),
	}
	if len(d.Guards) != len(wantGuards) {
		t.Fatalf("Guards = %d entries, want %d", len(d.Guards), len(wantGuards))
	}
	for i := range wantGuards {
		if !d.Guards[i].Equal(wantGuards[i]) {
			t.Errorf("Guards[%d] = %v, want %v", i, d.Guards[i], wantGuards[i])
		}
	}

	wantAction := transition.NewAction(callable.NewRef("Notifier@send"), nil, true)
	if len(d.Actions) != 1 || !d.Actions[0].Equal(wantAction) {
		t.Errorf("Actions = %v, want [%v]", d.Actions, wantAction)
	}

	wantCallbacks := []transition.Callback{
		transition.NewCallback(callable.NewRef("Logger@record"), nil, transition.StageBefore),
		transition.NewCallback(callable.NewRef("Projector@project"), nil, transition.StageAfter),
	}
	if len(d.Callbacks) != len(wantCallbacks) {
		t.Fatalf("Callbacks = %d entries, want %d", len(d.Callbacks), len(wantCallbacks))
	}
	for i := range wantCallbacks {
		if !d.Callbacks[i].Equal(wantCallbacks[i]) {
			t.Errorf("Callbacks[%d] = %v, want %v", i, d.Callbacks[i], wantCallbacks[i])
		}
	}
}

func TestDefinitionFromFieldMap_TypedSlicesCopied(t *testing.T) {
	guards := []transition.Guard{transition.NewGuard(callable.NewRef("A@b"), nil)}

	d, err := transition.DefinitionFromFieldMap(fieldmap.Map{
		"from":   "draft",
		"to":     "review",
		"guards": guards,
	})
	if err != nil {
		t.Fatalf("DefinitionFromFieldMap() error = %v", err)
	}

	guards[0] = transition.NewGuard(callable.NewRef("Mutated@x"), nil)
	want := transition.NewGuard(callable.NewRef("A@b"), nil)
	if len(d.Guards) != 1 || !d.Guards[0].Equal(want) {
		t.Errorf("Guards = %v, want [%v] unaffected by caller mutation", d.Guards, want)
	}
}

func TestDefinitionFromFieldMap_RequiredFields(t *testing.T) {
	tests := []struct {
		name      string
		m         fieldmap.Map
		wantField string
	}{
		{"empty map fails on the first required field", fieldmap.Map{}, "from"},
		{"from absent", fieldmap.Map{"to": "review"}, "from"},
		{"from nil", fieldmap.Map{"from": nil, "to": "review"}, "from"},
		{"from empty", fieldmap.Map{"from": "", "to": "review"}, "from"},
		{"from whitespace", fieldmap.Map{"from": "   ", "to": "review"}, "from"},
		{"to absent", fieldmap.Map{"from": "draft"}, "to"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := transition.DefinitionFromFieldMap(tt.m)
			if err == nil {
				t.Fatal("DefinitionFromFieldMap() error = nil, want required error")
			}
			var reqErr *errors.RequiredError
			if !stderrors.As(err, &reqErr) {
				t.Fatalf("error = %v, want *RequiredError", err)
			}
			if reqErr.Field != tt.wantField {
				t.Errorf("RequiredError.Field = %q, want %q", reqErr.Field, tt.wantField)
			}
		})
	}
}

func TestDefinitionFromFieldMap_RequiredMessage(t *testing.T) {
	_, err := transition.DefinitionFromFieldMap(fieldmap.Map{"to": "review"})
	if err == nil {
		t.Fatal("DefinitionFromFieldMap() error = nil, want required error")
	}
	want := "dxfsm: invalid TransitionDefinition: The `from` is required and cannot be an empty string."
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestDefinitionFromFieldMap_ScalarCollection(t *testing.T) {
	_, err := transition.DefinitionFromFieldMap(fieldmap.Map{
		"from":   "draft",
		"to":     "review",
		"guards": "AuditService@check",
	})
	if err == nil {
		t.Fatal("DefinitionFromFieldMap() error = nil, want type error")
	}
	want := "dxfsm: invalid TransitionDefinition.guards: must be list, got string"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestDefinitionFromFieldMap_ElementErrors(t *testing.T) {
	t.Run("guard element error carries the index", func(t *testing.T) {
		_, err := transition.DefinitionFromFieldMap(fieldmap.Map{
			"from":   "draft",
			"to":     "review",
			"guards": []any{"Fine@one", 42},
		})
		if err == nil {
			t.Fatal("DefinitionFromFieldMap() error = nil, want element error")
		}
		if !strings.HasPrefix(err.Error(), "guards[1]: ") {
			t.Errorf("error = %q, want guards[1] prefix", err.Error())
		}
		var typeErr *errors.TypeError
		if !stderrors.As(err, &typeErr) {
			t.Errorf("error = %v, want wrapped *TypeError", err)
		}
	})

	t.Run("callback stage error carries the index", func(t *testing.T) {
		_, err := transition.DefinitionFromFieldMap(fieldmap.Map{
			"from":      "draft",
			"to":        "review",
			"callbacks": []any{map[string]any{"callable": "Logger@record", "stage": "during"}},
		})
		if err == nil {
			t.Fatal("DefinitionFromFieldMap() error = nil, want element error")
		}
		if !strings.HasPrefix(err.Error(), "callbacks[0]: ") {
			t.Errorf("error = %q, want callbacks[0] prefix", err.Error())
		}
		var parseErr *errors.ParseError
		if !stderrors.As(err, &parseErr) {
			t.Errorf("error = %v, want wrapped *ParseError", err)
		}
	})
}

func TestDefinitionFromArgs(t *testing.T) {
	t.Run("field map accepted", func(t *testing.T) {
		d, err := transition.DefinitionFromArgs(map[string]any{"from": "draft", "to": "review"})
		if err != nil {
			t.Fatalf("DefinitionFromArgs() error = %v", err)
		}
		if d.From != "draft" || d.To != "review" {
			t.Errorf("DefinitionFromArgs() = %v, want from=draft to=review", d)
		}
	})

	t.Run("declared keys win over stray ones", func(t *testing.T) {
		d, err := transition.DefinitionFromArgs(map[string]any{"from": "draft", "to": "review", "0": "stray"})
		if err != nil {
			t.Fatalf("DefinitionFromArgs() error = %v", err)
		}
		if d.From != "draft" || d.To != "review" {
			t.Errorf("DefinitionFromArgs() = %v, want from=draft to=review", d)
		}
	})

	t.Run("two-element list is refused", func(t *testing.T) {
		_, err := transition.DefinitionFromArgs([]any{"draft", "review"})
		var shapeErr *errors.ShapeError
		if !stderrors.As(err, &shapeErr) {
			t.Fatalf("error = %v, want *ShapeError", err)
		}
		if !strings.Contains(err.Error(), "cannot use callable arrays") {
			t.Errorf("error = %q, want callable-array reason", err.Error())
		}
	})

	t.Run("longer list is refused", func(t *testing.T) {
		_, err := transition.DefinitionFromArgs([]any{"draft", "review", "published"})
		var shapeErr *errors.ShapeError
		if !stderrors.As(err, &shapeErr) {
			t.Fatalf("error = %v, want *ShapeError", err)
		}
		if !strings.Contains(err.Error(), "requires an associative array") {
			t.Errorf("error = %q, want associative-array reason", err.Error())
		}
	})

	t.Run("nil is refused", func(t *testing.T) {
		_, err := transition.DefinitionFromArgs(nil)
		var shapeErr *errors.ShapeError
		if !stderrors.As(err, &shapeErr) {
			t.Fatalf("error = %v, want *ShapeError", err)
		}
		if !strings.Contains(err.Error(), "non-empty array") {
			t.Errorf("error = %q, want non-empty-array reason", err.Error())
		}
	})

	t.Run("map without declared keys names them", func(t *testing.T) {
		_, err := transition.DefinitionFromArgs(map[string]any{"source": "draft", "target": "review"})
		var shapeErr *errors.ShapeError
		if !stderrors.As(err, &shapeErr) {
			t.Fatalf("error = %v, want *ShapeError", err)
		}
		if !strings.Contains(err.Error(), "declared keys: name, from, to, guards, actions, callbacks") {
			t.Errorf("error = %q, want the declared key list", err.Error())
		}
	})

	t.Run("scalar is refused", func(t *testing.T) {
		_, err := transition.DefinitionFromArgs("submit")
		var typeErr *errors.TypeError
		if !stderrors.As(err, &typeErr) {
			t.Fatalf("error = %v, want *TypeError", err)
		}
	})
}

func TestNewDefinition(t *testing.T) {
	guards := []transition.Guard{transition.NewGuard(callable.NewRef("A@b"), nil)}

	d, err := transition.NewDefinition("submit", "draft", "review", guards, nil, nil)
	if err != nil {
		t.Fatalf("NewDefinition() error = %v", err)
	}
	if d.Name != "submit" || d.From != "draft" || d.To != "review" {
		t.Errorf("NewDefinition() = %v", d)
	}
	if d.Actions == nil || d.Callbacks == nil {
		t.Error("nil collections must materialize non-nil")
	}

	guards[0] = transition.NewGuard(callable.NewRef("Mutated@x"), nil)
	if !d.Guards[0].Equal(transition.NewGuard(callable.NewRef("A@b"), nil)) {
		t.Error("NewDefinition() must copy the guard slice")
	}
}

func TestNewDefinition_RequiresStates(t *testing.T) {
	if _, err := transition.NewDefinition("x", "", "review", nil, nil, nil); err == nil {
		t.Error("NewDefinition() with empty from = nil error, want required error")
	}
	if _, err := transition.NewDefinition("x", "draft", "   ", nil, nil, nil); err == nil {
		t.Error("NewDefinition() with whitespace to = nil error, want required error")
	}
}

func TestDefinition_FieldMap_RoundTrip(t *testing.T) {
	original, err := transition.NewDefinition("submit", "draft", "review",
		[]transition.Guard{transition.NewGuard(callable.NewPair([]any{"AuditService", "check"}), []any{"strict"})},
		[]transition.Action{transition.NewAction(callable.NewRef("Notifier@send"), nil, true)},
		[]transition.Callback{transition.NewCallback(callable.NewRef("Logger@record"), nil, transition.StageBefore)},
	)
	if err != nil {
		t.Fatalf("NewDefinition() error = %v", err)
	}

	m := original.FieldMap()
	if _, ok := m["guards"].([]any); !ok {
		t.Errorf("FieldMap() guards = %T, want []any of element field maps", m["guards"])
	}

	got, err := transition.DefinitionFromFieldMap(m)
	if err != nil {
		t.Fatalf("DefinitionFromFieldMap(FieldMap()) error = %v", err)
	}
	if !got.Equal(original) {
		t.Errorf("round-trip = %v, want %v", got, original)
	}
}

func TestDefinition_Validate(t *testing.T) {
	valid, err := transition.NewDefinition("", "draft", "review", nil, nil, nil)
	if err != nil {
		t.Fatalf("NewDefinition() error = %v", err)
	}

	tests := []struct {
		name    string
		def     transition.Definition
		wantErr bool
	}{
		{"valid", valid, false},
		{"missing from", transition.Definition{To: "review"}, true},
		{"missing to", transition.Definition{From: "draft"}, true},
		{"whitespace from", transition.Definition{From: " ", To: "review"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefinition_Validate_NestedCallback(t *testing.T) {
	d := transition.Definition{
		From:      "draft",
		To:        "review",
		Callbacks: []transition.Callback{{Stage: transition.Stage(99)}},
	}

	err := d.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil, want nested callback error")
	}
	if !strings.HasPrefix(err.Error(), "callbacks[0]: ") {
		t.Errorf("error = %q, want callbacks[0] prefix", err.Error())
	}
}

func TestDefinition_Equal(t *testing.T) {
	base, _ := transition.NewDefinition("submit", "draft", "review",
		[]transition.Guard{transition.NewGuard(callable.NewRef("A@b"), nil)}, nil, nil)
	same, _ := transition.NewDefinition("submit", "draft", "review",
		[]transition.Guard{transition.NewGuard(callable.NewRef("A@b"), nil)}, nil, nil)
	differentGuard, _ := transition.NewDefinition("submit", "draft", "review",
		[]transition.Guard{transition.NewGuard(callable.NewRef("C@d"), nil)}, nil, nil)
	differentState, _ := transition.NewDefinition("submit", "draft", "published", nil, nil, nil)

	tests := []struct {
		name string
		a, b transition.Definition
		want bool
	}{
		{"equal", base, same, true},
		{"different guard", base, differentGuard, false},
		{"different target state", base, differentState, false},
		{"both zero", transition.Definition{}, transition.Definition{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefinition_IsZero(t *testing.T) {
	if !(transition.Definition{}).IsZero() {
		t.Error("IsZero() on zero value = false, want true")
	}
	d, _ := transition.NewDefinition("", "draft", "review", nil, nil, nil)
	if d.IsZero() {
		t.Error("IsZero() on populated definition = true, want false")
	}
}

func TestDefinition_TypeName(t *testing.T) {
	var d transition.Definition
	if got := d.TypeName(); got != "TransitionDefinition" {
		t.Errorf("TypeName() = %v, want TransitionDefinition", got)
	}
}

func TestDefinition_Redacted(t *testing.T) {
	d, _ := transition.NewDefinition("submit", "draft", "review",
		[]transition.Guard{transition.NewGuard(callable.NewRef("A@b"), []any{"secret"})},
		[]transition.Action{transition.NewAction(callable.NewRef("C@d"), nil, false)},
		nil)

	got := d.Redacted()
	want := "TransitionDefinition{Name:submit, From:draft, To:review, Guards:[1], Actions:[1], Callbacks:[0]}"
	if got != want {
		t.Errorf("Redacted() = %q, want %q", got, want)
	}
	if strings.Contains(got, "secret") {
		t.Errorf("Redacted() leaked a parameter value: %q", got)
	}
}

func TestDefinition_MarshalJSON(t *testing.T) {
	d, err := transition.NewDefinition("submit", "draft", "review", nil, nil, nil)
	if err != nil {
		t.Fatalf("NewDefinition() error = %v", err)
	}

	got, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	want := `{"name":"submit","from":"draft","to":"review","guards":[],"actions":[],"callbacks":[]}`
	if string(got) != want {
		t.Errorf("MarshalJSON() = %s, want %s", got, want)
	}
}

func TestDefinition_MarshalJSON_Invalid(t *testing.T) {
	d := transition.Definition{From: "draft"}
	if _, err := json.Marshal(d); err == nil {
		t.Error("Expected error marshaling definition without target state, got nil")
	}
}

func TestDefinition_JSON_RoundTrip(t *testing.T) {
	original, err := transition.NewDefinition("submit", "draft", "review",
		[]transition.Guard{transition.NewGuard(callable.NewPair([]any{"AuditService", "check"}), nil)},
		[]transition.Action{transition.NewAction(callable.NewRef("Notifier@send"), []any{"welcome"}, true)},
		[]transition.Callback{transition.NewCallback(callable.NewRef("Logger@record"), nil, transition.StageBefore)},
	)
	if err != nil {
		t.Fatalf("NewDefinition() error = %v", err)
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var got transition.Definition
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if !got.Equal(original) {
		t.Errorf("JSON round-trip = %v, want %v", got, original)
	}
}

func TestDefinition_UnmarshalJSON(t *testing.T) {
	t.Run("missing collections materialize empty", func(t *testing.T) {
		var d transition.Definition
		if err := json.Unmarshal([]byte(`{"from":"draft","to":"review"}`), &d); err != nil {
			t.Fatalf("UnmarshalJSON() error = %v", err)
		}
		if d.Guards == nil || d.Actions == nil || d.Callbacks == nil {
			t.Error("collections must materialize non-nil")
		}
	})

	t.Run("missing target state rejected", func(t *testing.T) {
		var d transition.Definition
		err := json.Unmarshal([]byte(`{"from":"draft"}`), &d)
		if err == nil {
			t.Fatal("UnmarshalJSON() error = nil, want validation failure")
		}
		var unmarshalErr *errors.UnmarshalError
		if !stderrors.As(err, &unmarshalErr) {
			t.Errorf("error = %v, want *UnmarshalError", err)
		}
	})
}

func TestDefinition_YAML_RoundTrip(t *testing.T) {
	original, err := transition.NewDefinition("submit", "draft", "review",
		[]transition.Guard{transition.NewGuard(callable.NewRef("AuditService@check"), nil)},
		nil,
		[]transition.Callback{transition.NewCallback(callable.NewRef("Logger@record"), nil, transition.StageBefore)},
	)
	if err != nil {
		t.Fatalf("NewDefinition() error = %v", err)
	}

	data, err := yaml.Marshal(original)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}

	var got transition.Definition
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if !got.Equal(original) {
		t.Errorf("YAML round-trip = %v, want %v", got, original)
	}
}

func TestDefinitionsFromYAML(t *testing.T) {
	doc := `
submit:
  from: draft
  to: review
  guards:
    - callable: ReviewPolicy@canSubmit
    - callable:
        - AuditService
        - check
      parameters:
        - strict
publish:
  name: publish-reviewed
  from: review
  to: published
  actions:
    - callable: Notifier@send
      queued: true
  callbacks:
    - callable: Logger@record
      stage: before
`

	defs, err := transition.DefinitionsFromYAML([]byte(doc))
	if err != nil {
		t.Fatalf("DefinitionsFromYAML() error = %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("DefinitionsFromYAML() = %d definitions, want 2", len(defs))
	}

	submit, ok := defs["submit"]
	if !ok {
		t.Fatal("missing definition for key submit")
	}
	if submit.Name != "submit" {
		t.Errorf("submit.Name = %q, want the document key filled in", submit.Name)
	}
	if submit.From != "draft" || submit.To != "review" {
		t.Errorf("submit = %v, want from=draft to=review", submit)
	}
	wantGuards := []transition.Guard{
		transition.NewGuard(callable.NewRef("ReviewPolicy@canSubmit"), nil),
		transition.NewGuard(callable.NewPair([]any{"AuditService", "check"}), []any{"strict"}),
	}
	if len(submit.Guards) != len(wantGuards) {
		t.Fatalf("submit.Guards = %d entries, want %d", len(submit.Guards), len(wantGuards))
	}
	for i := range wantGuards {
		if !submit.Guards[i].Equal(wantGuards[i]) {
			t.Errorf("submit.Guards[%d] = %v, want %v", i, submit.Guards[i], wantGuards[i])
		}
	}

	publish := defs["publish"]
	if publish.Name != "publish-reviewed" {
		t.Errorf("publish.Name = %q, want the explicit name preserved", publish.Name)
	}
	wantAction := transition.NewAction(callable.NewRef("Notifier@send"), nil, true)
	if len(publish.Actions) != 1 || !publish.Actions[0].Equal(wantAction) {
		t.Errorf("publish.Actions = %v, want [%v]", publish.Actions, wantAction)
	}
	wantCallback := transition.NewCallback(callable.NewRef("Logger@record"), nil, transition.StageBefore)
	if len(publish.Callbacks) != 1 || !publish.Callbacks[0].Equal(wantCallback) {
		t.Errorf("publish.Callbacks = %v, want [%v]", publish.Callbacks, wantCallback)
	}
}

func TestDefinitionsFromYAML_Invalid(t *testing.T) {
	t.Run("missing target state", func(t *testing.T) {
		_, err := transition.DefinitionsFromYAML([]byte("submit:\n  from: draft\n"))
		if err == nil {
			t.Error("DefinitionsFromYAML() error = nil, want validation failure")
		}
	})

	t.Run("malformed document", func(t *testing.T) {
		_, err := transition.DefinitionsFromYAML([]byte("submit: [unclosed"))
		if err == nil {
			t.Error("DefinitionsFromYAML() error = nil, want parse failure")
		}
	})
}

func TestDefinitionsFromYAML_Empty(t *testing.T) {
	defs, err := transition.DefinitionsFromYAML(nil)
	if err != nil {
		t.Fatalf("DefinitionsFromYAML() error = %v", err)
	}
	if defs == nil {
		t.Fatal("DefinitionsFromYAML() = nil map, want empty non-nil")
	}
	if len(defs) != 0 {
		t.Errorf("DefinitionsFromYAML() = %d definitions, want 0", len(defs))
	}
}
