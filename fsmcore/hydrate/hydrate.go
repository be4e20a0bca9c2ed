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

// Package hydrate rebuilds transition context objects from their stored
// descriptor form.
//
// A transition that carries context serializes it as a descriptor: a small
// map holding the context's registered class name under "class" and its
// constructor input under "payload". When the transition is later rebuilt
// from a queue message, an event store, or a configuration file, the
// descriptor must be turned back into a live value. This package owns that
// step.
//
// # Registration is the capability declaration
//
// Classes are not discovered; they are registered. A context type becomes
// rehydratable when its package registers a Spec for it, usually in init:
//
//	func init() {
//	    hydrate.Register("OrderContext", hydrate.Spec{
//	        New:     newOrderContext,
//	        Factory: orderContextFromMap,
//	    })
//	}
//
// Spec.New MUST be set; it is the default construction path. Spec.Factory is
// optional, and its presence is the declaration that the class supports the
// conventional single-map factory path: when a Factory is registered,
// Hydrate calls it instead of New, never both. Errors returned by the chosen
// path propagate to the caller unchanged; Hydrate MUST NOT wrap them or fall
// back to the other path.
//
// # Pass-through
//
// Hydrate accepts arbitrary context values, not only descriptors. Values
// that are not descriptor-shaped (nil, scalars, prebuilt objects, and maps
// without a usable "class" key) pass through untouched, so callers can feed
// it whatever a deserializer produced without pre-sorting.
//
// # Payload format versioning
//
// A descriptor MAY carry a "formatVersion" key naming the history payload
// format it was written under. When present, the version must share a major
// with the library's current format (histver.Current) and must not predate
// the minimum a Spec declares; otherwise hydration fails with a
// HydrationError instead of silently mis-decoding an old or future payload.
// Descriptors without the key predate versioning and are hydrated without a
// compatibility check.
//
// # Concurrency
//
// A Registry is safe for concurrent use. Register is expected to run from
// init functions; Hydrate may run from any goroutine afterwards.
package hydrate

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	dxerrors "dirpx.dev/dxfsm/fsmcore/errors"
	"dirpx.dev/dxfsm/fsmcore/fieldmap"
	"dirpx.dev/dxfsm/fsmcore/model/histver"
)

// Descriptor keys. Descriptor maps accept the snake_case alias spelling for
// these keys the same way constructor field maps do ("format_version" for
// "formatVersion"); DescriptorFrom normalizes before inspecting.
const (
	// KeyClass holds the registered class name of the context type.
	KeyClass = "class"

	// KeyPayload holds the constructor input for the context type.
	KeyPayload = "payload"

	// KeyFormatVersion optionally holds the history payload format version
	// the descriptor was serialized under.
	KeyFormatVersion = "formatVersion"
)

// Factory builds a context value from a normalized payload map.
//
// Implementations receive the payload with every key already in canonical
// camelCase form and MUST NOT normalize again. They return the constructed
// value or the construction error verbatim; Hydrate passes either straight
// to its caller.
type Factory func(payload fieldmap.Map) (any, error)

// Spec describes how a registered class is constructed.
//
// New MUST be non-nil; Register panics otherwise. Factory is optional:
// setting it declares that the class supports the single-map factory
// convention, and Hydrate will then use the Factory exclusively. MinFormat,
// when non-zero, is the oldest payload format version the class accepts;
// descriptors declaring an older version fail hydration. Descriptors that
// declare no version are accepted regardless of MinFormat.
type Spec struct {
	// New is the default construction path.
	New Factory

	// Factory, when set, replaces New as the construction path.
	Factory Factory

	// MinFormat is the oldest declared payload format version accepted.
	MinFormat histver.Version
}

// Descriptor is the stored form of a transition context: a class name, the
// payload to rebuild it from, and optionally the payload format version it
// was written under.
type Descriptor struct {
	// Class is the registered class name, taken verbatim from the "class"
	// key. It is never empty on a recognized descriptor.
	Class string

	// Payload is the constructor input. It may be nil when the descriptor
	// carried no payload; hydration then runs against an empty map.
	Payload fieldmap.Map

	// Format is the raw value of the optional "formatVersion" key, nil when
	// the key was absent. Hydrate accepts a version string or a
	// histver.Version here and rejects anything else.
	Format any
}

// NewDescriptor returns a Descriptor for class with a copy of payload,
// stamped with the current history payload format version. Use it when
// serializing a context for storage; DescriptorFrom recognizes the result
// of FieldMap on the way back in.
func NewDescriptor(class string, payload fieldmap.Map) Descriptor {
	return Descriptor{
		Class:   class,
		Payload: payload.Clone(),
		Format:  histver.Current(),
	}
}

// DescriptorFrom reports whether v is descriptor-shaped and, when it is,
// returns the parsed Descriptor.
//
// A value is descriptor-shaped when it is a map (fieldmap.Map or plain
// map[string]any) holding a non-empty string under "class", and its
// "payload" key, when present and non-nil, holds a map. Anything else is
// not a descriptor: Hydrate passes such values through untouched. The
// candidate's top-level keys are normalized before inspection, so a stored
// "format_version" alias is recognized; the payload map itself is left for
// Hydrate to normalize.
func DescriptorFrom(v any) (Descriptor, bool) {
	var m fieldmap.Map
	switch val := v.(type) {
	case fieldmap.Map:
		m = val
	case map[string]any:
		m = fieldmap.Map(val)
	default:
		return Descriptor{}, false
	}

	m = m.Normalize()

	class, ok := m[KeyClass].(string)
	if !ok || class == "" {
		return Descriptor{}, false
	}

	d := Descriptor{Class: class}
	if raw, present := m[KeyPayload]; present && raw != nil {
		switch p := raw.(type) {
		case fieldmap.Map:
			d.Payload = p
		case map[string]any:
			d.Payload = fieldmap.Map(p)
		default:
			return Descriptor{}, false
		}
	}
	d.Format = m[KeyFormatVersion]
	return d, true
}

// FieldMap returns the Descriptor's storable map form: "class", "payload"
// (a copy, present only when the Descriptor has one), and "formatVersion"
// as a version string when the Descriptor carries a version.
func (d Descriptor) FieldMap() fieldmap.Map {
	m := fieldmap.Map{KeyClass: d.Class}
	if d.Payload != nil {
		m[KeyPayload] = d.Payload.Clone()
	}
	switch f := d.Format.(type) {
	case nil:
	case histver.Version:
		if !f.IsZero() {
			m[KeyFormatVersion] = f.String()
		}
	default:
		m[KeyFormatVersion] = d.Format
	}
	return m
}

// formatVersion interprets the raw Format value. Absent means the zero
// version; a string is parsed; anything else is a descriptor-level failure.
func (d Descriptor) formatVersion() (histver.Version, error) {
	switch f := d.Format.(type) {
	case nil:
		return histver.Version{}, nil
	case histver.Version:
		return f, nil
	case string:
		return histver.Parse(f)
	default:
		return histver.Version{}, &dxerrors.TypeError{
			Type:  "ContextDescriptor",
			Field: KeyFormatVersion,
			Want:  "string",
			Got:   fmt.Sprintf("%T", f),
		}
	}
}

// Dehydratable is implemented by context types that can serialize
// themselves back into descriptor form. Transition serialization uses it to
// store live context values as {class, payload} maps that hydration will
// recognize on the way back in.
type Dehydratable interface {
	Dehydrate() Descriptor
}

// Registry maps class names to construction Specs. The zero value is ready
// to use; NewRegistry is provided for symmetry with the package-level
// default. All methods are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

// NewRegistry returns an empty Registry independent of the package default.
// Tests use private registries to avoid cross-test class collisions.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// Register records the Spec for class. It panics when class is empty, when
// spec.New is nil, or when class is already registered: all three are
// programmer errors in package initialization, not runtime conditions.
func (r *Registry) Register(class string, spec Spec) {
	if class == "" {
		panic("hydrate: Register called with an empty class")
	}
	if spec.New == nil {
		panic("hydrate: Register called with a nil Spec.New for class " + class)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.specs[class]; dup {
		panic("hydrate: Register called twice for class " + class)
	}
	if r.specs == nil {
		r.specs = make(map[string]Spec)
	}
	r.specs[class] = spec
}

// Registered reports whether class has a Spec in the Registry.
func (r *Registry) Registered(class string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.specs[class]
	return ok
}

// Classes returns the registered class names in sorted order.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.specs))
	for class := range r.specs {
		out = append(out, class)
	}
	sort.Strings(out)
	return out
}

// Hydrate turns a stored context value back into a live one.
//
// Values that are not descriptor-shaped, including nil, pass through
// untouched. For a descriptor, Hydrate resolves the class, checks the
// declared payload format version, normalizes the payload keys exactly
// once, and runs the registered Factory when one was declared or New
// otherwise. Errors from the chosen construction path are returned
// unchanged; descriptor-level failures (unregistered class, malformed or
// incompatible format version) are returned as a *HydrationError naming the
// class.
func (r *Registry) Hydrate(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	d, ok := DescriptorFrom(v)
	if !ok {
		return v, nil
	}

	r.mu.RLock()
	spec, registered := r.specs[d.Class]
	r.mu.RUnlock()
	if !registered {
		return nil, &dxerrors.HydrationError{Class: d.Class, Err: errors.New("class is not registered")}
	}

	format, err := d.formatVersion()
	if err != nil {
		return nil, &dxerrors.HydrationError{Class: d.Class, Err: err}
	}
	if !format.IsZero() {
		if current := histver.Current(); !current.Compatible(format) {
			return nil, &dxerrors.HydrationError{
				Class: d.Class,
				Err:   fmt.Errorf("payload format version %s is not compatible with current format %s", format, current),
			}
		}
		if !spec.MinFormat.IsZero() && format.Less(spec.MinFormat) {
			return nil, &dxerrors.HydrationError{
				Class: d.Class,
				Err:   fmt.Errorf("payload format version %s is older than the minimum %s the class accepts", format, spec.MinFormat),
			}
		}
	}

	payload := d.Payload.Normalize()
	if spec.Factory != nil {
		return spec.Factory(payload)
	}
	return spec.New(payload)
}

// defaultRegistry serves package-level registration, the path used by
// init-time class registration and by transition input construction.
var defaultRegistry = NewRegistry()

// Default returns the package-level Registry.
func Default() *Registry {
	return defaultRegistry
}

// Register records the Spec for class in the package-level Registry. Like
// (*Registry).Register it panics on an empty class, a nil Spec.New, or a
// duplicate registration.
func Register(class string, spec Spec) {
	defaultRegistry.Register(class, spec)
}

// Hydrate runs (*Registry).Hydrate against the package-level Registry.
func Hydrate(v any) (any, error) {
	return defaultRegistry.Hydrate(v)
}
