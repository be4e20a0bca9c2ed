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

package schema

import "strings"

// Rules is the external constraint declaration of one field: the tag list a
// request-validation collaborator consumes ("required", "string", "array",
// "in:a,b", ...) plus the field's optional custom predicate.
//
// Tags describe; they do not execute. Running them is the collaborator's
// business, which is why Rules carries no evaluation logic of its own.
type Rules struct {
	Tags  []string
	Check func(any) error
}

// Rules derives the per-field constraint declarations from the schema, keyed
// by canonical field name.
//
// Required fields get a leading "required" tag. The field's kind contributes
// its validator vocabulary ("string", "boolean", "integer", "date", "array");
// kinds without one (any, callable) contribute nothing. Enum-kinded fields
// with declared Values additionally emit an "in:" tag enumerating them.
func (s *Schema) Rules() map[string]Rules {
	out := make(map[string]Rules, len(s.fields))

	for _, f := range s.fields {
		var tags []string
		if f.Required {
			tags = append(tags, "required")
		}
		if t := f.Kind.tag(); t != "" {
			tags = append(tags, t)
		}
		if f.Kind == KindEnum && len(f.Values) > 0 {
			tags = append(tags, "in:"+strings.Join(f.Values, ","))
		}
		out[f.Name] = Rules{Tags: tags, Check: f.Check}
	}

	return out
}
