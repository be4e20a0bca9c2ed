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

// Package errors provides reusable error types for dxfsm model construction
// and serialization code.
//
// This package defines the common error vocabulary used across the dxfsm
// surface when resolving constructor arguments, validating field maps,
// rehydrating context payloads, and parsing, marshaling and unmarshaling
// strongly typed enum-like values. By centralizing these types, the package
// eliminates duplication and gives every transition model the same error
// handling story.
//
// The errors in this package are intentionally simple value carriers with
// stable message formats. They are designed to be:
//
//   - easy to construct from resolver / validation / serialization code,
//   - easy to recognize via type assertions,
//   - and easy for users to understand when surfaced in logs or diagnostics.
//
// # Error Types
//
//   - ParseError
//     Returned when parsing a string into an enum-like type fails.
//     Use this when implementing ParseXxx helpers that accept textual input
//     (for example, from configuration files or serialized payloads).
//
//   - MarshalError
//     Returned when marshaling an invalid enum-like value fails.
//     Use this in MarshalJSON / MarshalText implementations to reject values
//     that do not correspond to known constants.
//
//   - UnmarshalError
//     Returned when unmarshaling data into a typed value fails due to
//     invalid input, parse errors or constraint violations.
//
//   - ValidationError
//     Returned when validation of a model type fails.
//     Use this in Validate() methods to report constraint violations or
//     invalid field values.
//
//   - RequiredError
//     Returned when a declared required field is absent, nil, or (for
//     string fields) empty or whitespace-only at construction time.
//
//   - ShapeError
//     Returned when a single array-shaped constructor argument matches no
//     recognized interpretation (neither a callable reference nor a field
//     map with at least one declared key).
//
//   - TypeError
//     Returned when a supplied field value's kind is incompatible with the
//     field's declared kind (for example, a scalar where a collection is
//     required).
//
//   - HydrationError
//     Returned when a stored context descriptor names a class that cannot
//     be resolved, or when the descriptor itself is unusable.
//
// # Usage
//
// Each package that constructs transition models can use these error types
// directly or create type aliases for better API clarity:
//
//	import "dirpx.dev/dxfsm/fsmcore/errors"
//
//	// Direct usage:
//	func ParseStage(s string) (Stage, error) {
//	    switch s {
//	    case "before":
//	        return StageBefore, nil
//	    case "after":
//	        return StageAfter, nil
//	    default:
//	        return 0, &errors.ParseError{Type: "Stage", Value: s}
//	    }
//	}
package errors

import (
	"strconv"
	"strings"
)

// ParseError is returned when parsing a string into a strongly typed enum-like
// value fails.
//
// Type identifies the logical type being parsed (for example, "Stage",
// "Severity"), and Value contains the exact string that could not be
// interpreted. Callers MAY pattern-match on Type to provide type-specific
// guidance to users or to translate errors into friendlier messages.
//
// # Example
//
//	func ParseSeverity(s string) (Severity, error) {
//	    switch s {
//	    case "warning":
//	        return SeverityWarning, nil
//	    case "error":
//	        return SeverityError, nil
//	    default:
//	        // Returned error will format as:
//	        // "dxfsm: invalid Severity value: <value>"
//	        return 0, &errors.ParseError{
//	            Type:  "Severity",
//	            Value: s,
//	        }
//	    }
//	}
type ParseError struct {
	// Type is the logical name of the type being parsed (for example, "Stage").
	Type string

	// Value is the invalid textual representation that was provided.
	Value string
}

// Error implements the error interface for ParseError.
//
// The error message format is:
//
//	"dxfsm: invalid {Type} value: {Value}"
//
// For example:
//
//	"dxfsm: invalid Stage value: during"
//
// The format is intentionally stable so that callers can rely on it for
// diagnostics, while still preferring type assertions where possible.
func (e *ParseError) Error() string {
	return "dxfsm: invalid " + e.Type + " value: " + e.Value
}

// MarshalError is returned when marshaling a typed value fails due to it being
// outside the set of valid constants or otherwise unrepresentable.
//
// Type identifies the logical type being marshaled (for example, "Stage"), and
// Value contains the underlying numeric value that was deemed invalid.
//
// This error is primarily used as a guardrail: it prevents invalid enum-like
// values from being silently emitted into JSON, YAML or other serialized
// forms. In most cases a MarshalError indicates a programming error (for
// example, a zero value that was never validated, or an in-process function
// value that has no serialized form).
//
// # Example
//
//	func (s Stage) MarshalJSON() ([]byte, error) {
//	    if !s.Valid() {
//	        // Returned error will format as:
//	        // "dxfsm: cannot marshal invalid Stage value: <int>"
//	        return nil, &errors.MarshalError{
//	            Type:  "Stage",
//	            Value: int(s),
//	        }
//	    }
//	    return []byte(`"` + s.String() + `"`), nil
//	}
type MarshalError struct {
	// Type is the logical name of the type being marshaled (for example, "Stage").
	Type string

	// Value is the underlying numeric representation that could not be
	// marshaled because it does not correspond to a known constant.
	Value int
}

// Error implements the error interface for MarshalError.
//
// The error message format is:
//
//	"dxfsm: cannot marshal invalid {Type} value: {Value}"
//
// where Value is rendered as a decimal integer.
//
// For example:
//
//	"dxfsm: cannot marshal invalid Stage value: 99"
func (e *MarshalError) Error() string {
	return "dxfsm: cannot marshal invalid " + e.Type + " value: " + strconv.Itoa(e.Value)
}

// UnmarshalError is returned when unmarshaling data into a typed value fails.
//
// Type identifies the logical type being populated (for example,
// "TransitionInput"), Data contains the original raw payload (typically a JSON
// fragment), and Reason provides a human-readable description of what went
// wrong (for example, parse errors, invalid numeric value or empty input).
//
// This struct is intended to be surfaced directly in diagnostics or logs so
// that users can understand why their configuration or payload could not be
// interpreted. Callers MAY wrap UnmarshalError with additional context when
// propagating it further up the stack.
//
// # Example
//
//	func (s *Stage) UnmarshalJSON(data []byte) error {
//	    if len(data) == 0 {
//	        return &errors.UnmarshalError{
//	            Type:   "Stage",
//	            Data:   data,
//	            Reason: "empty data",
//	        }
//	    }
//	    // ... parsing logic ...
//	}
type UnmarshalError struct {
	// Type is the logical name of the type being unmarshaled into.
	Type string

	// Data is the raw input that failed to unmarshal.
	//
	// Callers MAY choose to log or redact this field depending on privacy
	// and size considerations.
	Data []byte

	// Reason is a short, human-readable explanation of the failure.
	//
	// Reason SHOULD describe what went wrong (for example, "empty data" or
	// "unknown value 'foo'") rather than repeating the type name; the type
	// name is already available in the Type field and reflected in Error().
	Reason string
}

// Error implements the error interface for UnmarshalError.
//
// The error message format is:
//
//	"dxfsm: cannot unmarshal {Type}: {Reason}"
//
// For example:
//
//	"dxfsm: cannot unmarshal Stage: empty data"
//
// The Data field is intentionally not included in the formatted message to
// avoid excessively verbose or sensitive logs; callers can log it separately
// when appropriate.
func (e *UnmarshalError) Error() string {
	return "dxfsm: cannot unmarshal " + e.Type + ": " + e.Reason
}

// ValidationError is returned when validation of a model type fails.
//
// Type identifies the logical name of the type being validated (for example,
// "TransitionDefinition"), Field optionally identifies which field failed
// validation, Reason provides a human-readable explanation of the failure,
// and Value optionally contains the problematic value.
//
// This error is used by Validate() methods in model types to report
// constraint violations or invalid field values. Missing required fields at
// construction time use the dedicated RequiredError instead, so that callers
// can distinguish "never supplied" from "supplied but wrong".
//
// # Example
//
//	func (req StatisticsRequest) Validate() error {
//	    if !req.Since.IsZero() && !req.Until.IsZero() && req.Until.Before(req.Since) {
//	        return &errors.ValidationError{
//	            Type:   req.TypeName(),
//	            Field:  "until",
//	            Reason: "window must not end before it starts",
//	            Value:  req.Until,
//	        }
//	    }
//	    return nil
//	}
type ValidationError struct {
	// Type is the logical name of the type being validated.
	Type string

	// Field is the name of the field that failed validation.
	// May be empty if the error applies to the entire type.
	Field string

	// Reason is a short, human-readable explanation of why validation failed.
	Reason string

	// Value optionally contains the invalid value.
	// May be nil if not applicable or if the value should not be logged.
	Value any
}

// Error implements the error interface for ValidationError.
//
// The error message format is:
//
//	"dxfsm: invalid {Type}.{Field}: {Reason}" (when Field is specified)
//	"dxfsm: invalid {Type}: {Reason}" (when Field is empty)
//
// For example:
//
//	"dxfsm: invalid ReplayStatisticsRequest.until: window must not end before it starts"
//	"dxfsm: invalid Severity: invalid value"
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "dxfsm: invalid " + e.Type + "." + e.Field + ": " + e.Reason
	}
	return "dxfsm: invalid " + e.Type + ": " + e.Reason
}

// RequiredError is returned when a declared required field is missing at
// construction time.
//
// A field counts as missing when its key is absent from the (normalized)
// field map, when its value is nil, or, for string-kinded fields, when its
// value is an empty or whitespace-only string. Type identifies the model
// being constructed, Field the canonical camelCase field name, and Stringly
// whether the field is string-kinded, which selects the message variant.
//
// The message phrasing is part of the construction contract and MUST NOT be
// reworded: request-validation collaborators match on it when translating
// construction failures into user-facing responses.
//
// # Example
//
//	// Returned error will format as:
//	// "dxfsm: invalid ReplayHistoryRequest: The `modelClass` is required and
//	// cannot be an empty string."
//	return nil, &errors.RequiredError{
//	    Type:     "ReplayHistoryRequest",
//	    Field:    "modelClass",
//	    Stringly: true,
//	}
type RequiredError struct {
	// Type is the logical name of the model being constructed.
	Type string

	// Field is the canonical camelCase name of the missing field.
	Field string

	// Stringly reports whether the field is string-kinded. String-kinded
	// fields use the "and cannot be an empty string" message variant.
	Stringly bool
}

// Error implements the error interface for RequiredError.
//
// The error message format is:
//
//	"dxfsm: invalid {Type}: The `{Field}` is required and cannot be an empty string."
//
// for string-kinded fields, and
//
//	"dxfsm: invalid {Type}: The `{Field}` is required."
//
// for every other kind. The field name is wrapped in backticks exactly as
// shown; both sentence forms are stable.
func (e *RequiredError) Error() string {
	if e.Stringly {
		return "dxfsm: invalid " + e.Type + ": The `" + e.Field + "` is required and cannot be an empty string."
	}
	return "dxfsm: invalid " + e.Type + ": The `" + e.Field + "` is required."
}

// ShapeError is returned when a single array-shaped constructor argument does
// not match any recognized interpretation.
//
// Type identifies the model being constructed, Reason carries one of the
// stable shape-failure clauses produced by the argument resolver, and
// DeclaredKeys optionally enumerates the model's declared field names so that
// callers can see which keys would have been accepted.
//
// The four Reason clauses emitted by the resolver are:
//
//   - "array-based construction requires a non-empty array"
//   - "array-based construction cannot use callable arrays"
//   - "array-based construction requires an associative array"
//   - "array parameter must be either a callable array or an associative
//     array with declared field keys"
//
// Shape errors are always reported synchronously to the caller at
// construction time and are never recoverable internally.
type ShapeError struct {
	// Type is the logical name of the model being constructed.
	Type string

	// Reason is the stable shape-failure clause.
	Reason string

	// DeclaredKeys optionally lists the declared field names of the model,
	// in schema declaration order. When non-empty the keys are appended to
	// the formatted message.
	DeclaredKeys []string
}

// Error implements the error interface for ShapeError.
//
// The error message format is:
//
//	"dxfsm: invalid {Type}: {Reason}"
//
// with ", declared keys: k1, k2, ..." appended when DeclaredKeys is non-empty.
// For example:
//
//	"dxfsm: invalid TransitionInput: array parameter must be either a callable
//	array or an associative array with declared field keys, declared keys:
//	modelClass, modelId, columnName, from, to, context"
func (e *ShapeError) Error() string {
	msg := "dxfsm: invalid " + e.Type + ": " + e.Reason
	if len(e.DeclaredKeys) > 0 {
		msg += ", declared keys: " + strings.Join(e.DeclaredKeys, ", ")
	}
	return msg
}

// TypeError is returned when a supplied field value's kind is incompatible
// with the field's declared kind.
//
// Type identifies the model being constructed, Field the canonical field
// name, Want the declared kind, and Got a short description of what was
// actually supplied (typically the Go type of the value).
//
// Unlike ValidationError, which reports constraint violations on values of
// the right kind, TypeError reports that the value could not even be
// interpreted as the declared kind: a scalar supplied where a collection is
// required, or a map supplied as a callable reference.
type TypeError struct {
	// Type is the logical name of the model being constructed.
	Type string

	// Field is the canonical camelCase name of the mismatched field.
	Field string

	// Want is the declared kind (for example, "list", "string", "bool").
	Want string

	// Got describes the supplied value (for example, "string", "int",
	// "map[string]interface {}").
	Got string
}

// Error implements the error interface for TypeError.
//
// The error message format is:
//
//	"dxfsm: invalid {Type}.{Field}: must be {Want}, got {Got}" (when Field is specified)
//	"dxfsm: invalid {Type}: must be {Want}, got {Got}" (when Field is empty)
//
// For example:
//
//	"dxfsm: invalid TransitionDefinition.guards: must be list, got string"
func (e *TypeError) Error() string {
	if e.Field != "" {
		return "dxfsm: invalid " + e.Type + "." + e.Field + ": must be " + e.Want + ", got " + e.Got
	}
	return "dxfsm: invalid " + e.Type + ": must be " + e.Want + ", got " + e.Got
}

// HydrationError is returned when rehydrating a stored context descriptor
// fails before a construction path could run.
//
// Class is the type identifier taken verbatim from the descriptor's "class"
// key; Err optionally carries the underlying failure (an unregistered class,
// a malformed descriptor, or an incompatible payload format version).
//
// Errors raised by the chosen construction path itself (factory or default
// constructor) are NOT wrapped in HydrationError: per the rehydration
// contract they propagate unchanged to the caller. Only descriptor-level
// failures, which have no other type to attach to, use this error.
type HydrationError struct {
	// Class is the unresolved type identifier from the descriptor.
	Class string

	// Err optionally carries the underlying failure.
	Err error
}

// Error implements the error interface for HydrationError.
//
// The error message format is:
//
//	"dxfsm: context hydration failed for class `{Class}`"
//
// with ": {Err}" appended when Err is non-nil. The class identifier is
// embedded verbatim, wrapped in backticks, so callers and log scrapers can
// recover it from the message alone.
func (e *HydrationError) Error() string {
	msg := "dxfsm: context hydration failed for class `" + e.Class + "`"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying failure, if any, enabling errors.Is and
// errors.As to see through the hydration wrapper.
func (e *HydrationError) Unwrap() error {
	return e.Err
}
