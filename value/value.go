// Package value classifies and copies the plain-value domain that jsondoc
// documents are built from: null, bool, number, string, ordered sequences,
// and string-keyed mappings. Anything else — functions, channels, pointers,
// struct-typed values, non-string-keyed maps — is rejected at the boundary.
package value

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// Assignable reports whether v is a legal leaf or subtree of the plain-value
// domain: nil, bool, any numeric kind, string, a []interface{} whose every
// element is assignable, or a map[string]interface{} whose every value is
// assignable. These two concrete container types are the only ones
// recognized — a differently-typed map or slice (map[string]string,
// []string, a named type, …) is never assignable, even if its own elements
// would be, since nothing else in the package (DeepCopy, Entry.Apply, the
// View accessors) round-trips any other concrete container type without
// either panicking on a type assertion or silently losing interception.
func Assignable(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true

	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true

	case []interface{}:
		for _, elem := range t {
			if !Assignable(elem) {
				return false
			}
		}
		return true

	case map[string]interface{}:
		for _, elem := range t {
			if !Assignable(elem) {
				return false
			}
		}
		return true

	default:
		// any other concrete type — structs, funcs, chans, pointers, and
		// every map/slice type other than the two above — is rejected.
		return false
	}
}

// Manageable reports whether v can serve as the root of a managed Document:
// a non-nil map[string]interface{} whose values are all Assignable.
// Ordered sequences are rejected as roots so the document always has a
// named slot to install the Versioning Block into.
func Manageable(v interface{}) bool {
	m, ok := v.(map[string]interface{})
	if !ok || m == nil {
		return false
	}
	return Assignable(m)
}

// DeepCopy returns a recursive copy of v's plain-value shape. Maps and
// slices are copied element-by-element; scalars are returned as-is since
// Go's plain-value scalars (bool, numeric kinds, string) are themselves
// immutable. DeepCopy does not validate v is Assignable — callers that need
// that guarantee should check Assignable first.
func DeepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		if t == nil {
			return nil
		}
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = DeepCopy(val)
		}
		return out
	case []interface{}:
		if t == nil {
			return nil
		}
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = DeepCopy(val)
		}
		return out
	default:
		rv := reflect.ValueOf(v)
		if !rv.IsValid() {
			return nil
		}
		switch rv.Kind() {
		case reflect.Map:
			out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
			for _, k := range rv.MapKeys() {
				out.SetMapIndex(k, reflect.ValueOf(DeepCopy(rv.MapIndex(k).Interface())))
			}
			return out.Interface()
		case reflect.Slice:
			if rv.IsNil() {
				return v
			}
			out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
			for i := 0; i < rv.Len(); i++ {
				out.Index(i).Set(reflect.ValueOf(DeepCopy(rv.Index(i).Interface())))
			}
			return out.Interface()
		default:
			return v
		}
	}
}

// Equal reports whether a and b are structurally equal plain values.
func Equal(a, b interface{}) bool {
	return cmp.Equal(a, b)
}

// Diff returns a human-readable structural diff between a and b, or the
// empty string if they're equal. Used by integrity checks to produce
// actionable error messages on re-attach validation failures.
func Diff(a, b interface{}) string {
	return cmp.Diff(a, b)
}
