package loadingengine

import (
	"reflect"
)

// ValueCloner is an interface for cloning values.
// It is used to hand each waiter of a shared load, and each cache reader, its own copy.
// The CloneValue method should return a deep copy of the input value.
type ValueCloner[V ValueConstraint] interface {
	CloneValue(V) V
}

// ValueClonerFunc is a function type that implements the ValueCloner interface.
type ValueClonerFunc[V ValueConstraint] func(v V) V

// CloneValue calls the function.
func (f ValueClonerFunc[V]) CloneValue(v V) V {
	return f(v)
}

// NopValueCloner is a value cloner that does not clone values.
// It is used when values do not need to be cloned. (e.g. when the values are primitive types or immutable usage)
type NopValueCloner[V ValueConstraint] struct{}

// CloneValue returns the input value.
func (NopValueCloner[V]) CloneValue(v V) V {
	return v
}

type cloner[V ValueConstraint] interface {
	Clone() V
}

type deepCopier[V ValueConstraint] interface {
	DeepCopy() V
}

// DefaultValueCloner returns a default cloner for the given value type.
// Types with a Clone or DeepCopy method returning the same type are cloned with it,
// primitive types are returned as is.
// For interface types such as any the method is looked up on each dynamic value,
// and values without one are shared as is.
// It panics for other concrete types without Clone or DeepCopy method.
func DefaultValueCloner[V ValueConstraint]() ValueCloner[V] {
	var zero V
	var a any = zero
	switch a.(type) {
	case cloner[V]:
		return ValueClonerFunc[V](cloneWithMethod[V])
	case deepCopier[V]:
		return ValueClonerFunc[V](cloneWithMethod[V])
	case nil:
		// V is an interface type: dispatch on the dynamic value.
		return ValueClonerFunc[V](cloneWithMethod[V])
	}

	switch reflect.TypeOf(zero).Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr, reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String, reflect.UnsafePointer:
		return NopValueCloner[V]{}
	default:
		panic("value type does not have Clone or DeepCopy method")
	}
}

func cloneWithMethod[V ValueConstraint](v V) V {
	var a any = v
	switch c := a.(type) {
	case cloner[V]:
		return c.Clone()
	case deepCopier[V]:
		return c.DeepCopy()
	default:
		return v
	}
}
