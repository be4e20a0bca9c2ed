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
	"time"

	"dirpx.dev/dxfsm/fsmcore/errors"
	"dirpx.dev/dxfsm/fsmcore/fieldmap"
	"dirpx.dev/dxfsm/fsmcore/hydrate"
	"dirpx.dev/dxfsm/fsmcore/model"
	"dirpx.dev/dxfsm/fsmcore/model/replay"
	"gopkg.in/yaml.v3"
)

var (
	enteredMarch = time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	exitedMarch  = time.Date(2026, time.March, 3, 18, 30, 0, 0, time.UTC)
)

func TestTimelineEntryFromFieldMap(t *testing.T) {
	e, err := replay.TimelineEntryFromFieldMap(fieldmap.Map{
		"state":       "review",
		"enteredAt":   enteredMarch,
		"exitedAt":    exitedMarch,
		"responsible": "reviewer-7",
	})
	if err != nil {
		t.Fatalf("TimelineEntryFromFieldMap() error = %v", err)
	}

	if e.State != "review" {
		t.Errorf("State = %q, want review", e.State)
	}
	if !e.EnteredAt.Equal(enteredMarch) {
		t.Errorf("EnteredAt = %v, want %v", e.EnteredAt, enteredMarch)
	}
	if !e.ExitedAt.Equal(exitedMarch) {
		t.Errorf("ExitedAt = %v, want %v", e.ExitedAt, exitedMarch)
	}
	if e.Responsible != "reviewer-7" {
		t.Errorf("Responsible = %q, want reviewer-7", e.Responsible)
	}
}

func TestTimelineEntryFromFieldMap_SnakeKeys(t *testing.T) {
	e, err := replay.TimelineEntryFromFieldMap(fieldmap.Map{
		"state":      "draft",
		"entered_at": "2026-03-01T10:00:00Z",
		"exited_at":  "2026-03-03T18:30:00Z",
	})
	if err != nil {
		t.Fatalf("TimelineEntryFromFieldMap() error = %v", err)
	}

	if !e.EnteredAt.Equal(enteredMarch) {
		t.Errorf("EnteredAt = %v, want %v", e.EnteredAt, enteredMarch)
	}
	if !e.ExitedAt.Equal(exitedMarch) {
		t.Errorf("ExitedAt = %v, want %v", e.ExitedAt, exitedMarch)
	}
	if e.Responsible != "" {
		t.Errorf("Responsible = %q, want empty", e.Responsible)
	}
}

func TestTimelineEntryFromFieldMap_StillCurrent(t *testing.T) {
	e, err := replay.TimelineEntryFromFieldMap(fieldmap.Map{
		"state":     "published",
		"enteredAt": enteredMarch,
	})
	if err != nil {
		t.Fatalf("TimelineEntryFromFieldMap() error = %v", err)
	}

	if !e.ExitedAt.IsZero() {
		t.Errorf("ExitedAt = %v, want zero", e.ExitedAt)
	}
	if !e.Current() {
		t.Error("Current() = false, want true")
	}
}

func TestTimelineEntryFromFieldMap_RequiredFields(t *testing.T) {
	tests := []struct {
		name      string
		m         fieldmap.Map
		wantField string
	}{
		{"empty map", fieldmap.Map{}, "state"},
		{"state nil", fieldmap.Map{"state": nil, "enteredAt": enteredMarch}, "state"},
		{"state empty", fieldmap.Map{"state": "", "enteredAt": enteredMarch}, "state"},
		{"state whitespace", fieldmap.Map{"state": "   ", "enteredAt": enteredMarch}, "state"},
		{"enteredAt absent", fieldmap.Map{"state": "draft"}, "enteredAt"},
		{"enteredAt nil", fieldmap.Map{"state": "draft", "enteredAt": nil}, "enteredAt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := replay.TimelineEntryFromFieldMap(tt.m)
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

func TestTimelineEntryFromFieldMap_ZeroEnteredAt(t *testing.T) {
	// An explicitly supplied zero instant passes the schema presence check
	// but still fails the required contract.
	_, err := replay.TimelineEntryFromFieldMap(fieldmap.Map{
		"state":     "draft",
		"enteredAt": time.Time{},
	})

	var reqErr *errors.RequiredError
	if !stderrors.As(err, &reqErr) {
		t.Fatalf("error = %v, want RequiredError", err)
	}
	if reqErr.Field != "enteredAt" {
		t.Errorf("Field = %q, want enteredAt", reqErr.Field)
	}
	want := "dxfsm: invalid TimelineEntry: The `enteredAt` is required."
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestTimelineEntryFromFieldMap_BadTimestamp(t *testing.T) {
	_, err := replay.TimelineEntryFromFieldMap(fieldmap.Map{
		"state":     "draft",
		"enteredAt": "yesterday",
	})

	var typeErr *errors.TypeError
	if !stderrors.As(err, &typeErr) {
		t.Fatalf("error = %v, want TypeError", err)
	}
	if typeErr.Field != "enteredAt" {
		t.Errorf("Field = %q, want enteredAt", typeErr.Field)
	}
	if typeErr.Want != "RFC3339 timestamp" {
		t.Errorf("Want = %q, want RFC3339 timestamp", typeErr.Want)
	}
}

func TestTimelineEntryFromArgs(t *testing.T) {
	t.Run("field map", func(t *testing.T) {
		e, err := replay.TimelineEntryFromArgs(map[string]any{
			"state":      "draft",
			"entered_at": "2026-03-01T10:00:00Z",
		})
		if err != nil {
			t.Fatalf("TimelineEntryFromArgs() error = %v", err)
		}
		if e.State != "draft" {
			t.Errorf("State = %q, want draft", e.State)
		}
	})

	t.Run("scalar rejected", func(t *testing.T) {
		_, err := replay.TimelineEntryFromArgs("draft")
		var typeErr *errors.TypeError
		if !stderrors.As(err, &typeErr) {
			t.Errorf("error = %v, want TypeError", err)
		}
	})

	t.Run("nil rejected", func(t *testing.T) {
		_, err := replay.TimelineEntryFromArgs(nil)
		var shapeErr *errors.ShapeError
		if !stderrors.As(err, &shapeErr) {
			t.Errorf("error = %v, want ShapeError", err)
		}
	})
}

func TestNewTimelineEntry(t *testing.T) {
	e, err := replay.NewTimelineEntry("review", enteredMarch, exitedMarch, "reviewer-7")
	if err != nil {
		t.Fatalf("NewTimelineEntry() error = %v", err)
	}
	if e.State != "review" || !e.EnteredAt.Equal(enteredMarch) {
		t.Errorf("unexpected entry: %v", e)
	}

	if _, err := replay.NewTimelineEntry("", enteredMarch, time.Time{}, ""); err == nil {
		t.Error("NewTimelineEntry() with empty state: expected error")
	}
	if _, err := replay.NewTimelineEntry("draft", time.Time{}, time.Time{}, ""); err == nil {
		t.Error("NewTimelineEntry() with zero enteredAt: expected error")
	}
}

func TestTimelineEntry_Duration(t *testing.T) {
	closed, err := replay.NewTimelineEntry("review", enteredMarch, exitedMarch, "")
	if err != nil {
		t.Fatalf("NewTimelineEntry() error = %v", err)
	}
	if got, want := closed.Duration(), exitedMarch.Sub(enteredMarch); got != want {
		t.Errorf("Duration() = %v, want %v", got, want)
	}

	current, err := replay.NewTimelineEntry("published", enteredMarch, time.Time{}, "")
	if err != nil {
		t.Fatalf("NewTimelineEntry() error = %v", err)
	}
	if got := current.Duration(); got != 0 {
		t.Errorf("Duration() of current interval = %v, want 0", got)
	}
}

func TestTimelineEntry_FieldMap_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		entry replay.TimelineEntry
	}{
		{
			"closed interval",
			replay.TimelineEntry{State: "review", EnteredAt: enteredMarch, ExitedAt: exitedMarch, Responsible: "reviewer-7"},
		},
		{
			"current interval",
			replay.TimelineEntry{State: "published", EnteredAt: enteredMarch},
		},
		{
			"nanosecond precision",
			replay.TimelineEntry{State: "draft", EnteredAt: enteredMarch.Add(123456789 * time.Nanosecond)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.entry.FieldMap()
			got, err := replay.TimelineEntryFromFieldMap(m)
			if err != nil {
				t.Fatalf("TimelineEntryFromFieldMap() error = %v", err)
			}
			if !got.Equal(tt.entry) {
				t.Errorf("round-trip = %v, want %v", got, tt.entry)
			}
		})
	}
}

func TestTimelineEntry_FieldMap_OmitsAbsentFields(t *testing.T) {
	e := replay.TimelineEntry{State: "published", EnteredAt: enteredMarch}
	m := e.FieldMap()

	if _, ok := m["exitedAt"]; ok {
		t.Error("FieldMap() of current interval carries exitedAt")
	}
	if _, ok := m["responsible"]; ok {
		t.Error("FieldMap() without responsible carries the key")
	}
	if _, ok := m["enteredAt"].(string); !ok {
		t.Errorf("enteredAt = %T, want RFC3339 string", m["enteredAt"])
	}
}

func TestTimelineEntry_Dehydrate(t *testing.T) {
	e, err := replay.NewTimelineEntry("review", enteredMarch, exitedMarch, "reviewer-7")
	if err != nil {
		t.Fatalf("NewTimelineEntry() error = %v", err)
	}

	d := e.Dehydrate()
	if d.Class != replay.TimelineEntryClass {
		t.Errorf("Class = %q, want %q", d.Class, replay.TimelineEntryClass)
	}

	v, err := hydrate.Hydrate(map[string]any(d.FieldMap()))
	if err != nil {
		t.Fatalf("Hydrate() error = %v", err)
	}
	got, ok := v.(replay.TimelineEntry)
	if !ok {
		t.Fatalf("Hydrate() = %T, want replay.TimelineEntry", v)
	}
	if !got.Equal(e) {
		t.Errorf("hydrated entry = %v, want %v", got, e)
	}
}

func TestTimelineEntry_HydratesFromStoredDescriptor(t *testing.T) {
	v, err := hydrate.Hydrate(map[string]any{
		"class": "dxfsm.TimelineEntry",
		"payload": map[string]any{
			"state":      "draft",
			"entered_at": "2026-03-01T10:00:00Z",
		},
	})
	if err != nil {
		t.Fatalf("Hydrate() error = %v", err)
	}

	e, ok := v.(replay.TimelineEntry)
	if !ok {
		t.Fatalf("Hydrate() = %T, want replay.TimelineEntry", v)
	}
	if e.State != "draft" || !e.EnteredAt.Equal(enteredMarch) {
		t.Errorf("unexpected entry: %v", e)
	}
}

func TestTimelineEntry_String(t *testing.T) {
	closed := replay.TimelineEntry{State: "review", EnteredAt: enteredMarch, ExitedAt: exitedMarch, Responsible: "reviewer-7"}
	want := "TimelineEntry{State:review, EnteredAt:2026-03-01T10:00:00Z, ExitedAt:2026-03-03T18:30:00Z, Responsible:reviewer-7}"
	if got := closed.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	current := replay.TimelineEntry{State: "published", EnteredAt: enteredMarch}
	want = "TimelineEntry{State:published, EnteredAt:2026-03-01T10:00:00Z, ExitedAt:current, Responsible:}"
	if got := current.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestTimelineEntry_Redacted(t *testing.T) {
	e := replay.TimelineEntry{State: "review", EnteredAt: enteredMarch, ExitedAt: exitedMarch, Responsible: "reviewer-7"}

	want := "TimelineEntry{State:review, EnteredAt:2026-03-01T10:00:00Z, ExitedAt:2026-03-03T18:30:00Z, Responsible:r***}"
	if got := e.Redacted(); got != want {
		t.Errorf("Redacted() = %q, want %q", got, want)
	}
	if strings.Contains(e.Redacted(), "reviewer-7") {
		t.Error("Redacted() leaks the responsible identifier")
	}
}

func TestTimelineEntry_Equal(t *testing.T) {
	base := replay.TimelineEntry{State: "review", EnteredAt: enteredMarch, ExitedAt: exitedMarch, Responsible: "reviewer-7"}

	same := base
	if !base.Equal(same) {
		t.Error("Equal() = false for identical entries")
	}

	// The same instant in another location is still equal.
	cet := time.FixedZone("CET", 3600)
	shifted := base
	shifted.EnteredAt = enteredMarch.In(cet)
	if !base.Equal(shifted) {
		t.Error("Equal() = false for the same instant in another location")
	}

	differentState := base
	differentState.State = "draft"
	if base.Equal(differentState) {
		t.Error("Equal() = true for different states")
	}

	differentExit := base
	differentExit.ExitedAt = exitedMarch.Add(time.Hour)
	if base.Equal(differentExit) {
		t.Error("Equal() = true for different exit instants")
	}
}

func TestTimelineEntry_IsZero(t *testing.T) {
	var zero replay.TimelineEntry
	if !zero.IsZero() {
		t.Error("IsZero() = false for zero entry")
	}

	if (replay.TimelineEntry{State: "draft"}).IsZero() {
		t.Error("IsZero() = true for entry with state")
	}
	if (replay.TimelineEntry{EnteredAt: enteredMarch}).IsZero() {
		t.Error("IsZero() = true for entry with instant")
	}
}

func TestTimelineEntry_TypeName(t *testing.T) {
	var e replay.TimelineEntry
	if got := e.TypeName(); got != "TimelineEntry" {
		t.Errorf("TypeName() = %v, want TimelineEntry", got)
	}
}

func TestTimelineEntry_MarshalJSON(t *testing.T) {
	e := replay.TimelineEntry{State: "review", EnteredAt: enteredMarch, ExitedAt: exitedMarch, Responsible: "reviewer-7"}

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	want := `{"state":"review","enteredAt":"2026-03-01T10:00:00Z","exitedAt":"2026-03-03T18:30:00Z","responsible":"reviewer-7"}`
	if string(data) != want {
		t.Errorf("json.Marshal() = %s, want %s", data, want)
	}
}

func TestTimelineEntry_MarshalJSON_Invalid(t *testing.T) {
	e := replay.TimelineEntry{State: "review"}
	if _, err := json.Marshal(e); err == nil {
		t.Error("expected error marshaling entry without enteredAt")
	}
}

func TestTimelineEntry_UnmarshalJSON_MissingEnteredAt(t *testing.T) {
	var e replay.TimelineEntry
	err := json.Unmarshal([]byte(`{"state":"review"}`), &e)

	var umErr *errors.UnmarshalError
	if !stderrors.As(err, &umErr) {
		t.Fatalf("error = %v, want UnmarshalError", err)
	}
}

func TestTimelineEntry_JSON_RoundTrip(t *testing.T) {
	original := replay.TimelineEntry{State: "review", EnteredAt: enteredMarch, ExitedAt: exitedMarch, Responsible: "reviewer-7"}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var got replay.TimelineEntry
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if !got.Equal(original) {
		t.Errorf("round-trip = %v, want %v", got, original)
	}
}

func TestTimelineEntry_YAML_RoundTrip(t *testing.T) {
	original := replay.TimelineEntry{State: "review", EnteredAt: enteredMarch, ExitedAt: exitedMarch, Responsible: "reviewer-7"}

	data, err := yaml.Marshal(original)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	var got replay.TimelineEntry
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if !got.Equal(original) {
		t.Errorf("round-trip = %v, want %v", got, original)
	}
}

func TestTimelineEntrySchema_Declaration(t *testing.T) {
	s := replay.TimelineEntrySchema()

	if got := s.TypeName(); got != "TimelineEntry" {
		t.Errorf("TypeName() = %v, want TimelineEntry", got)
	}
	want := []string{"state", "enteredAt", "exitedAt", "responsible"}
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

func TestTimelineEntries_ValidateAll(t *testing.T) {
	good, err := replay.NewTimelineEntry("draft", enteredMarch, exitedMarch, "")
	if err != nil {
		t.Fatalf("NewTimelineEntry() error = %v", err)
	}
	bad := replay.TimelineEntry{State: "review"}

	err = model.ValidateAll([]*replay.TimelineEntry{&good, &bad})
	if err == nil {
		t.Fatal("ValidateAll() = nil, want error for invalid entry")
	}
	if !strings.Contains(err.Error(), "model[1] (TimelineEntry)") {
		t.Errorf("error = %q, want mention of model[1] (TimelineEntry)", err)
	}

	if err := model.ValidateAll([]*replay.TimelineEntry{&good}); err != nil {
		t.Errorf("ValidateAll() of valid entries = %v, want nil", err)
	}
}
