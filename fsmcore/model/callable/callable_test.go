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

package callable_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"reflect"
	"testing"

	"dirpx.dev/dxfsm/fsmcore/errors"
	"dirpx.dev/dxfsm/fsmcore/model/callable"
	"gopkg.in/yaml.v3"
)

func TestCallable_FromValue(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		wantKind callable.Kind
		wantErr  bool
	}{
		{
			name:     "nil_is_zero",
			value:    nil,
			wantKind: callable.CallableZero,
		},
		{
			name:     "empty_list_is_zero",
			value:    []any{},
			wantKind: callable.CallableZero,
		},
		{
			name:     "string_is_ref",
			value:    "PaymentService@authorize",
			wantKind: callable.CallableRef,
		},
		{
			name:     "two_element_list_is_pair",
			value:    []any{"PaymentService", "authorize"},
			wantKind: callable.CallablePair,
		},
		{
			name:     "longer_list_is_pair_verbatim",
			value:    []any{"a", "b", "c"},
			wantKind: callable.CallablePair,
		},
		{
			name:     "single_element_list_is_pair_verbatim",
			value:    []any{"only"},
			wantKind: callable.CallablePair,
		},
		{
			name:     "map_rejected",
			value:    map[string]any{"0": "Service", "1": "method"},
			wantErr:  true,
		},
		{
			name:     "int_rejected",
			value:    42,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := callable.FromValue(tt.value)
			if tt.wantErr {
				var typeErr *errors.TypeError
				if !stderrors.As(err, &typeErr) {
					t.Fatalf("FromValue() error = %v, want TypeError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromValue() error = %v, want nil", err)
			}
			if c.Kind() != tt.wantKind {
				t.Errorf("FromValue().Kind() = %v, want %v", c.Kind(), tt.wantKind)
			}
		})
	}

	t.Run("func_value", func(t *testing.T) {
		fn := callable.Func(func(ctx context.Context, args []any) (any, error) {
			return nil, nil
		})
		c, err := callable.FromValue(fn)
		if err != nil {
			t.Fatalf("FromValue() error = %v, want nil", err)
		}
		if c.Kind() != callable.CallableFunc {
			t.Errorf("FromValue().Kind() = %v, want CallableFunc", c.Kind())
		}
	})

	t.Run("raw_func_value", func(t *testing.T) {
		fn := func(ctx context.Context, args []any) (any, error) {
			return true, nil
		}
		c, err := callable.FromValue(fn)
		if err != nil {
			t.Fatalf("FromValue() error = %v, want nil", err)
		}
		if c.Kind() != callable.CallableFunc {
			t.Errorf("FromValue().Kind() = %v, want CallableFunc", c.Kind())
		}
	})

	t.Run("existing_callable_passes_through", func(t *testing.T) {
		orig := callable.NewRef("Service@method")
		c, err := callable.FromValue(orig)
		if err != nil {
			t.Fatalf("FromValue() error = %v, want nil", err)
		}
		if !c.Equal(orig) {
			t.Errorf("FromValue() = %v, want %v", c, orig)
		}
	})
}

// Every two-element list must survive construction with its raw pair intact,
// whatever its contents.
func TestCallable_Pair_Verbatim(t *testing.T) {
	pairs := [][]any{
		{"PaymentService", "authorize"},
		{"Service", 42},
		{nil, "method"},
		{[]any{"nested"}, "method"},
		{"a", "b", "c"},
	}

	for _, in := range pairs {
		c, err := callable.FromValue(in)
		if err != nil {
			t.Fatalf("FromValue(%v) error = %v, want nil", in, err)
		}
		if got := c.Pair(); !reflect.DeepEqual(got, in) {
			t.Errorf("Pair() = %v, want %v verbatim", got, in)
		}
	}
}

func TestCallable_Value_RoundTrip(t *testing.T) {
	forms := []callable.Callable{
		{},
		callable.NewRef("PaymentService@authorize"),
		callable.NewRef(""),
		callable.NewPair([]any{"PaymentService", "authorize"}),
		callable.NewPair([]any{"a", "b", "c"}),
	}

	for _, original := range forms {
		back, err := callable.FromValue(original.Value())
		if err != nil {
			t.Fatalf("FromValue(Value()) error = %v, want nil", err)
		}
		if !back.Equal(original) {
			t.Errorf("FromValue(Value()) = %v, want %v", back, original)
		}
	}

	if got := (callable.Callable{}).Value(); !reflect.DeepEqual(got, []any{}) {
		t.Errorf("zero Value() = %v, want empty list", got)
	}
}

func TestCallable_Split(t *testing.T) {
	tests := []struct {
		name        string
		c           callable.Callable
		wantService string
		wantMethod  string
	}{
		{
			name:        "service_at_method",
			c:           callable.NewRef("PaymentService@authorize"),
			wantService: "PaymentService",
			wantMethod:  "authorize",
		},
		{
			name:        "bare_invokable_service",
			c:           callable.NewRef("NotifyOwner"),
			wantService: "NotifyOwner",
			wantMethod:  "",
		},
		{
			name:        "splits_on_first_separator",
			c:           callable.NewRef("Svc@a@b"),
			wantService: "Svc",
			wantMethod:  "a@b",
		},
		{
			name:        "zero_form",
			c:           callable.Callable{},
			wantService: "",
			wantMethod:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, method := tt.c.Split()
			if service != tt.wantService || method != tt.wantMethod {
				t.Errorf("Split() = %q, %q, want %q, %q",
					service, method, tt.wantService, tt.wantMethod)
			}
		})
	}
}

func TestCallable_Invokable(t *testing.T) {
	fn := callable.Func(func(ctx context.Context, args []any) (any, error) {
		return nil, nil
	})

	tests := []struct {
		name string
		c    callable.Callable
		want bool
	}{
		{"zero", callable.Callable{}, false},
		{"ref", callable.NewRef("Service@method"), true},
		{"bare_service_ref", callable.NewRef("NotifyOwner"), true},
		{"empty_ref", callable.NewRef(""), false},
		{"func", callable.NewFunc(fn), true},
		{"good_pair", callable.NewPair([]any{"Service", "method"}), true},
		{"pair_wrong_length", callable.NewPair([]any{"a", "b", "c"}), false},
		{"pair_single_element", callable.NewPair([]any{"only"}), false},
		{"pair_non_string_method", callable.NewPair([]any{"Service", 42}), false},
		{"pair_nil_target", callable.NewPair([]any{nil, "method"}), false},
		{"pair_empty_method", callable.NewPair([]any{"Service", ""}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Invokable(); got != tt.want {
				t.Errorf("Invokable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCallable_String(t *testing.T) {
	tests := []struct {
		name string
		c    callable.Callable
		want string
	}{
		{
			name: "zero",
			c:    callable.Callable{},
			want: "Callable{}",
		},
		{
			name: "ref",
			c:    callable.NewRef("Service@method"),
			want: "Callable{Ref:Service@method}",
		},
		{
			name: "pair",
			c:    callable.NewPair([]any{"Service", "method"}),
			want: "Callable{Pair:[Service method]}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCallable_Redacted(t *testing.T) {
	t.Run("ref_shown_in_full", func(t *testing.T) {
		c := callable.NewRef("Service@method")
		if got := c.Redacted(); got != "Callable{Ref:Service@method}" {
			t.Errorf("Redacted() = %q, want full ref", got)
		}
	})

	t.Run("pair_object_target_reduced_to_type", func(t *testing.T) {
		type order struct{ Customer string }
		c := callable.NewPair([]any{order{Customer: "jo@example.com"}, "approve"})

		got := c.Redacted()
		if got != "Callable{Pair:[callable_test.order approve]}" {
			t.Errorf("Redacted() = %q, want type-reduced target", got)
		}
	})
}

func TestCallable_IsZero(t *testing.T) {
	if !(callable.Callable{}).IsZero() {
		t.Error("IsZero() = false for zero Callable")
	}
	if callable.NewRef("Service@method").IsZero() {
		t.Error("IsZero() = true for ref Callable")
	}
	if !callable.NewPair(nil).IsZero() {
		t.Error("IsZero() = false for NewPair(nil)")
	}
	if !callable.NewFunc(nil).IsZero() {
		t.Error("IsZero() = false for NewFunc(nil)")
	}
}

func TestCallable_TypeName(t *testing.T) {
	if got := (callable.Callable{}).TypeName(); got != "Callable" {
		t.Errorf("TypeName() = %q, want %q", got, "Callable")
	}
}

func TestCallable_Equal(t *testing.T) {
	fn1 := callable.Func(func(ctx context.Context, args []any) (any, error) { return 1, nil })
	fn2 := callable.Func(func(ctx context.Context, args []any) (any, error) { return 2, nil })

	tests := []struct {
		name string
		a, b callable.Callable
		want bool
	}{
		{"zero_equals_zero", callable.Callable{}, callable.Callable{}, true},
		{"same_ref", callable.NewRef("S@m"), callable.NewRef("S@m"), true},
		{"different_ref", callable.NewRef("S@m"), callable.NewRef("S@n"), false},
		{
			"same_pair",
			callable.NewPair([]any{"S", "m"}),
			callable.NewPair([]any{"S", "m"}),
			true,
		},
		{
			"different_pair",
			callable.NewPair([]any{"S", "m"}),
			callable.NewPair([]any{"S", "n"}),
			false,
		},
		{"same_func", callable.NewFunc(fn1), callable.NewFunc(fn1), true},
		{"different_func", callable.NewFunc(fn1), callable.NewFunc(fn2), false},
		{"ref_never_equals_pair", callable.NewRef("S@m"), callable.NewPair([]any{"S", "m"}), false},
		{"zero_never_equals_ref", callable.Callable{}, callable.NewRef("S@m"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Equal(tt.a); got != tt.want {
				t.Errorf("Equal() (reversed) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCallable_Validate(t *testing.T) {
	fn := callable.Func(func(ctx context.Context, args []any) (any, error) { return nil, nil })

	// Every form is a permitted holding state.
	forms := []callable.Callable{
		{},
		callable.NewRef("Service@method"),
		callable.NewPair([]any{"Service", "method"}),
		callable.NewPair([]any{"malformed"}),
		callable.NewFunc(fn),
	}

	for _, c := range forms {
		if err := c.Validate(); err != nil {
			t.Errorf("Validate() error = %v for %v, want nil", err, c)
		}
	}
}

func TestCallable_MarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		c       callable.Callable
		want    string
		wantErr bool
	}{
		{
			name: "zero_as_empty_sequence",
			c:    callable.Callable{},
			want: "[]",
		},
		{
			name: "ref_as_string",
			c:    callable.NewRef("PaymentService@authorize"),
			want: `"PaymentService@authorize"`,
		},
		{
			name: "pair_as_sequence",
			c:    callable.NewPair([]any{"PaymentService", "authorize"}),
			want: `["PaymentService","authorize"]`,
		},
		{
			name: "func_has_no_serialized_form",
			c: callable.NewFunc(func(ctx context.Context, args []any) (any, error) {
				return nil, nil
			}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.c)
			if tt.wantErr {
				if err == nil {
					t.Fatal("json.Marshal() error = nil, want MarshalError")
				}
				return
			}
			if err != nil {
				t.Fatalf("json.Marshal() error = %v, want nil", err)
			}
			if string(data) != tt.want {
				t.Errorf("json.Marshal() = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestCallable_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantKind callable.Kind
		wantErr  bool
	}{
		{"string_becomes_ref", `"Service@method"`, callable.CallableRef, false},
		{"sequence_becomes_pair", `["Service","method"]`, callable.CallablePair, false},
		{"empty_sequence_becomes_zero", `[]`, callable.CallableZero, false},
		{"null_becomes_zero", `null`, callable.CallableZero, false},
		{"object_rejected", `{"0":"Service"}`, 0, true},
		{"number_rejected", `42`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c callable.Callable
			err := json.Unmarshal([]byte(tt.data), &c)
			if (err != nil) != tt.wantErr {
				t.Fatalf("json.Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && c.Kind() != tt.wantKind {
				t.Errorf("Kind() = %v, want %v", c.Kind(), tt.wantKind)
			}
		})
	}
}

func TestCallable_MarshalYAML(t *testing.T) {
	t.Run("ref_as_scalar", func(t *testing.T) {
		data, err := yaml.Marshal(callable.NewRef("Service@method"))
		if err != nil {
			t.Fatalf("yaml.Marshal() error = %v", err)
		}
		if string(data) != "Service@method\n" {
			t.Errorf("yaml.Marshal() = %q, want scalar ref", data)
		}
	})

	t.Run("func_has_no_serialized_form", func(t *testing.T) {
		c := callable.NewFunc(func(ctx context.Context, args []any) (any, error) {
			return nil, nil
		})
		if _, err := yaml.Marshal(c); err == nil {
			t.Error("yaml.Marshal() error = nil, want MarshalError")
		}
	})
}

func TestCallable_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantKind callable.Kind
		wantErr  bool
	}{
		{"scalar_becomes_ref", "Service@method", callable.CallableRef, false},
		{"sequence_becomes_pair", "- Service\n- method", callable.CallablePair, false},
		{"empty_sequence_becomes_zero", "[]", callable.CallableZero, false},
		{"null_becomes_zero", "null", callable.CallableZero, false},
		{"mapping_rejected", "service: x", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c callable.Callable
			err := yaml.Unmarshal([]byte(tt.data), &c)
			if (err != nil) != tt.wantErr {
				t.Fatalf("yaml.Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && c.Kind() != tt.wantKind {
				t.Errorf("Kind() = %v, want %v", c.Kind(), tt.wantKind)
			}
		})
	}
}

func TestCallable_JSON_RoundTrip(t *testing.T) {
	forms := []callable.Callable{
		{},
		callable.NewRef("PaymentService@authorize"),
		callable.NewPair([]any{"PaymentService", "authorize"}),
	}

	for _, original := range forms {
		data, err := json.Marshal(original)
		if err != nil {
			t.Fatalf("json.Marshal(%v) error = %v", original, err)
		}

		var decoded callable.Callable
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("json.Unmarshal(%s) error = %v", data, err)
		}

		if !decoded.Equal(original) {
			t.Errorf("JSON round-trip: got %v, want %v", decoded, original)
		}
	}
}

func TestCallable_YAML_RoundTrip(t *testing.T) {
	forms := []callable.Callable{
		{},
		callable.NewRef("PaymentService@authorize"),
		callable.NewPair([]any{"PaymentService", "authorize"}),
	}

	for _, original := range forms {
		data, err := yaml.Marshal(original)
		if err != nil {
			t.Fatalf("yaml.Marshal(%v) error = %v", original, err)
		}

		var decoded callable.Callable
		if err := yaml.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("yaml.Unmarshal(%s) error = %v", data, err)
		}

		if !decoded.Equal(original) {
			t.Errorf("YAML round-trip: got %v, want %v", decoded, original)
		}
	}
}
