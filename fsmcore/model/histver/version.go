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

// Package histver versions the serialized history payload format.
//
// Replay responses and rehydratable context descriptors carry the format
// version they were written under. When a payload written by one serializer
// generation is read by another, the version decides whether decoding may
// proceed: same-major versions are compatible, differing majors are not.
// Failing loudly on a major mismatch beats silently mis-decoding a payload
// whose field semantics have shifted.
//
// A history format version is a plain Major.Minor.Patch triple. Unlike
// release versions, prerelease identifiers and build metadata have no
// meaning here and are rejected at parse time.
package histver

import (
	"encoding/json"
	"fmt"
	"strings"

	dxerrors "dirpx.dev/dxfsm/fsmcore/errors"
	"dirpx.dev/dxfsm/fsmcore/model"
	bsemver "github.com/blang/semver/v4"

	"gopkg.in/yaml.v3"
)

// Version identifies a generation of the serialized history payload format.
//
// This implementation wraps github.com/blang/semver/v4 for parsing and
// comparison while exposing only the plain numeric triple that format
// versioning needs.
//
// The zero value of Version corresponds to 0.0.0 and means "no format
// version recorded"; payloads written before versioning was introduced
// deserialize to it. Callers SHOULD treat Major, Minor, and Patch as
// non-negative integers; negative values are invalid.
type Version struct {
	// Major is incremented when the payload format changes incompatibly:
	// fields renamed or removed, value semantics shifted. Readers MUST
	// refuse payloads whose Major differs from their own.
	Major int

	// Minor is incremented when the format gains backwards-compatible
	// additions, such as new optional fields. Readers of the same Major
	// can decode any Minor.
	Minor int

	// Patch is incremented for serializer fixes that leave the format
	// itself untouched.
	Patch int
}

// Compile-time check that Version implements model.Model
var _ model.Model = (*Version)(nil)

// current is the format version this package writes. Bump Major on
// incompatible payload changes, Minor on compatible additions.
var current = Version{Major: 1, Minor: 0, Patch: 0}

// Current returns the history payload format version written by this build.
func Current() Version {
	return current
}

// Parse parses a format version string into a Version value.
//
// The expected input is "Major.Minor.Patch" with non-negative integer
// components; an optional leading "v" is tolerated and stripped. Prerelease
// identifiers and build metadata are rejected: a stored format version is
// always a released triple, and anything fancier in a payload indicates
// corruption or hand-editing.
//
// Examples:
//
//	Parse("1.0.0")  -> Version{Major: 1}
//	Parse("v1.2.0") -> Version{Major: 1, Minor: 2}
//	Parse("1.0.0-rc.1") -> error
//
// On error, Parse returns a zero Version and a ParseError carrying the
// original input.
func Parse(s string) (Version, error) {
	trimmed := strings.TrimPrefix(s, "v")

	bv, err := bsemver.Parse(trimmed)
	if err != nil {
		return Version{}, &dxerrors.ParseError{Type: "FormatVersion", Value: s}
	}
	if len(bv.Pre) > 0 || len(bv.Build) > 0 {
		return Version{}, &dxerrors.ParseError{Type: "FormatVersion", Value: s}
	}

	return Version{
		Major: int(bv.Major),
		Minor: int(bv.Minor),
		Patch: int(bv.Patch),
	}, nil
}

// String returns the canonical "Major.Minor.Patch" representation.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Redacted returns the same representation as String. Format versions carry
// no sensitive data.
//
// This method implements the model.Loggable contract.
func (v Version) Redacted() string {
	return v.String()
}

// TypeName returns the name of this type for error messages and debugging.
//
// This method implements the model.Identifiable contract.
func (v Version) TypeName() string {
	return "FormatVersion"
}

// IsZero reports whether the Version is exactly 0.0.0, the "no format
// version recorded" sentinel.
//
// This method implements the model.ZeroCheckable contract.
func (v Version) IsZero() bool {
	return v.Major == 0 && v.Minor == 0 && v.Patch == 0
}

// Validate checks that all components are non-negative and that the triple
// survives a round trip through the underlying semver implementation.
//
// This method implements the model.Validatable contract. The zero value is
// valid: it is a meaningful sentinel, not a malformed version.
func (v Version) Validate() error {
	if v.Major < 0 || v.Minor < 0 || v.Patch < 0 {
		return &dxerrors.ValidationError{
			Type:   v.TypeName(),
			Reason: fmt.Sprintf("components must be non-negative, got %s", v.String()),
		}
	}
	if _, err := bsemver.Parse(v.String()); err != nil {
		return &dxerrors.ValidationError{
			Type:   v.TypeName(),
			Reason: err.Error(),
		}
	}
	return nil
}

// Compare reports the ordering of v against other: -1 when v is older, 0
// when equal, +1 when newer. Comparison is numeric per component, Major
// first, delegated to the underlying semver implementation.
func (v Version) Compare(other Version) int {
	bv, errV := bsemver.Parse(v.String())
	bo, errO := bsemver.Parse(other.String())
	if errV != nil || errO != nil {
		// Negative components cannot reach bsemver; compare numerically.
		if v.Major != other.Major {
			if v.Major < other.Major {
				return -1
			}
			return 1
		}
		if v.Minor != other.Minor {
			if v.Minor < other.Minor {
				return -1
			}
			return 1
		}
		if v.Patch != other.Patch {
			if v.Patch < other.Patch {
				return -1
			}
			return 1
		}
		return 0
	}
	return bv.Compare(bo)
}

// Less reports whether v is strictly older than other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// Equal reports whether v and other are the same format version.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// Compatible reports whether a payload written under other can be read by a
// consumer at v: true exactly when the Major components match. Minor and
// Patch differences never break decoding.
//
// Unversioned payloads carry the zero version, Major 0, and are therefore
// never compatible with a released format.
func (v Version) Compatible(other Version) bool {
	return v.Major == other.Major
}

// MarshalJSON implements json.Marshaler for Version.
//
// A valid Version is serialized as a JSON string in "Major.Minor.Patch"
// format. Before encoding, MarshalJSON calls Validate; if the Version is not
// well-formed, it returns the validation error and produces no JSON output.
func (v Version) MarshalJSON() ([]byte, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(v.String())
}

// UnmarshalJSON implements json.Unmarshaler for Version.
//
// The method expects the JSON value to be a string in "Major.Minor.Patch"
// form, optionally prefixed with "v". The string is parsed via Parse, and
// any parse error is returned directly to the caller.
func (v *Version) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &dxerrors.UnmarshalError{
			Type:   "FormatVersion",
			Data:   data,
			Reason: err.Error(),
		}
	}

	parsed, err := Parse(s)
	if err != nil {
		return err
	}

	*v = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler for Version.
//
// A valid Version is serialized as a scalar string in "Major.Minor.Patch"
// format. Validation is performed before encoding.
func (v Version) MarshalYAML() (interface{}, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler for Version.
//
// The YAML value is expected to be a scalar string in "Major.Minor.Patch"
// form, optionally prefixed with "v". The string is parsed via Parse. Any
// parse error is returned to the caller, and in that case the Version MUST
// NOT be used.
func (v *Version) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return &dxerrors.UnmarshalError{
			Type:   "FormatVersion",
			Data:   nil,
			Reason: err.Error(),
		}
	}

	parsed, err := Parse(s)
	if err != nil {
		return err
	}

	*v = parsed
	return nil
}
