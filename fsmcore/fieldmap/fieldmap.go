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

// Package fieldmap defines the field map, the loosely typed key-value form in
// which transition models travel before construction.
//
// A field map is a mapping from field name to raw value, as produced by
// deserializers, request validators, and stored context descriptors. Field
// maps accept two spellings for every field: the canonical camelCase name
// ("modelClass") and its snake_case alias ("model_class"). All matching,
// defaulting and validation in dxfsm happens on canonical names, so field
// maps are normalized exactly once, at the construction boundary, before any
// field is examined.
//
// Normalization is deterministic. When a map supplies both spellings of the
// same field, the canonical camelCase key wins regardless of map iteration
// order; the alias value is discarded. This rule is part of the construction
// contract and is covered by regression tests.
package fieldmap

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Map is a field map: raw constructor input keyed by field name.
//
// Keys may be canonical camelCase names, snake_case aliases, or noise (stray
// numeric keys, unknown names) that construction silently ignores. Values are
// unconstrained at this layer; kind checking happens against the target
// model's schema during construction.
//
// A Map is an ordinary Go map and is not safe for concurrent mutation.
type Map map[string]any

// CamelKey converts a snake_case key to its canonical camelCase form.
//
// Keys without underscores are returned unchanged, so canonical names and
// purely numeric keys pass through as-is. For keys containing underscores,
// segments are joined with every segment after the first having its first
// rune upper-cased; empty segments produced by leading, trailing or doubled
// underscores are dropped. A key consisting only of underscores has no
// segments to join and is returned unchanged.
//
// Examples:
//
//	CamelKey("model_class")   // "modelClass"
//	CamelKey("modelClass")    // "modelClass"
//	CamelKey("entered_at")    // "enteredAt"
//	CamelKey("__model_id__")  // "modelId"
//	CamelKey("0")             // "0"
func CamelKey(k string) string {
	if !strings.Contains(k, "_") {
		return k
	}

	var b strings.Builder
	b.Grow(len(k))

	first := true
	for _, part := range strings.Split(k, "_") {
		if part == "" {
			continue
		}
		if first {
			b.WriteString(part)
			first = false
			continue
		}
		r, size := utf8.DecodeRuneInString(part)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(part[size:])
	}

	if first {
		return k
	}
	return b.String()
}

// Normalize returns a new Map with every key converted to its canonical
// camelCase form. The receiver is not modified.
//
// When the receiver supplies both an alias and its canonical key for the same
// field, the canonical key's value is kept and the alias value is dropped,
// independent of iteration order. Keys that are already canonical map to
// themselves.
func (m Map) Normalize() Map {
	out := make(Map, len(m))
	for k, v := range m {
		ck := CamelKey(k)
		if ck != k {
			if _, exists := m[ck]; exists {
				// Canonical key supplied alongside its alias: canonical wins.
				continue
			}
		}
		out[ck] = v
	}
	return out
}

// Clone returns a shallow copy of the Map. Values are shared; keys are not.
// A nil Map clones to an empty non-nil Map.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Has reports whether the Map contains the exact key. No normalization is
// applied; callers matching against canonical names SHOULD Normalize first.
func (m Map) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Keys returns the Map's keys in sorted order, for deterministic error
// rendering and logging.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
