package lifecycle

import (
	"fmt"
	"reflect"
	"slices"
)

// Keyer is implemented by parameter types that provide a stable identity for
// registry lookups.
type Keyer interface {
	Key() string
}

// Definition describes how to obtain a resource. It is immutable.
type Definition[P any, R Running] struct {
	name     string
	factory  DriverFactory[P, R]
	params   P
	preStart []PreStartAction[R]
}

// NewDefinition builds a Definition. Pre-start actions run in the order given.
func NewDefinition[P any, R Running](name string, factory DriverFactory[P, R], params P, actions ...PreStartAction[R]) (Definition[P, R], error) {
	if isNil(factory) {
		return Definition[P, R]{}, ErrNilFactory
	}
	if isNil(params) {
		return Definition[P, R]{}, ErrNilParams
	}
	for i, a := range actions {
		if isNil(a) {
			return Definition[P, R]{}, fmt.Errorf("%w at index %d", ErrNilPreStartAction, i)
		}
	}
	return Definition[P, R]{
		name:     name,
		factory:  factory,
		params:   params,
		preStart: slices.Clone(actions),
	}, nil
}

// MustDefinition is like NewDefinition but panics on invalid input.
func MustDefinition[P any, R Running](name string, factory DriverFactory[P, R], params P, actions ...PreStartAction[R]) Definition[P, R] {
	d, err := NewDefinition(name, factory, params, actions...)
	if err != nil {
		panic(err)
	}
	return d
}

// Name returns the resource name used in events and errors.
func (d Definition[P, R]) Name() string {
	return d.name
}

// Params returns the resource parameters.
func (d Definition[P, R]) Params() P {
	return d.params
}

// Factory returns the driver factory.
func (d Definition[P, R]) Factory() DriverFactory[P, R] {
	return d.factory
}

// PreStartActions returns a copy of the pre-start actions.
func (d Definition[P, R]) PreStartActions() []PreStartAction[R] {
	return slices.Clone(d.preStart)
}

// Key returns the registry key: params.Key() when the parameters implement
// Keyer, otherwise the definition name.
func (d Definition[P, R]) Key() string {
	if k, ok := any(d.params).(Keyer); ok {
		return k.Key()
	}
	return d.name
}

// valid reports whether d was built by NewDefinition.
func (d Definition[P, R]) valid() bool {
	return d.factory != nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// actionName returns the display name of the i-th pre-start action.
func actionName(a any, i int) string {
	if n, ok := a.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return fmt.Sprintf("#%d", i+1)
}
