package opcall

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// converter carries the per-dispatcher collaborators the conversion
// strategies need: the injected decode capability and the struct validator.
type converter struct {
	codec    Codec
	validate *validator.Validate
}

// convertFunc turns the raw string supplied for one parameter into a value
// of the parameter's declared type. present is false when the caller did
// not supply the parameter at all, which is distinct from an empty string.
type convertFunc func(cv *converter, raw string, present bool) (reflect.Value, error)

// convertError reports a raw value that could not be coerced into the
// declared parameter type. The underlying cause (parse error, factory
// error, decode error, validation error) is preserved.
type convertError struct {
	typ   reflect.Type
	raw   string
	cause error
}

func (e *convertError) Error() string {
	return fmt.Sprintf("cannot convert %q to %s: %v", e.raw, e.typ, e.cause)
}

func (e *convertError) Unwrap() error {
	return e.cause
}

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// converterFor selects the conversion strategy for a parameter type. The
// strategies are tried in a fixed order: scalar parsing, string identity,
// the text-factory convention, and finally document decoding through the
// codec. Selection happens once per descriptor, never per call.
func converterFor(t reflect.Type) (convertFunc, error) {
	base := t
	ptr := t.Kind() == reflect.Pointer
	if ptr {
		base = t.Elem()
	}

	switch base.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return scalarConverter(t, base, ptr), nil
	case reflect.String:
		return stringConverter(t, base, ptr), nil
	}

	if t.Implements(textUnmarshalerType) || reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return textConverter(t, base, ptr), nil
	}

	switch base.Kind() {
	case reflect.Struct, reflect.Slice, reflect.Array, reflect.Map, reflect.Interface:
		return codecConverter(t, base, ptr), nil
	}

	return nil, fmt.Errorf("no conversion strategy for %s", t)
}

// scalarConverter parses the canonical textual representation of the
// primitive kind. Absent values become the type's zero value (nil for a
// pointer target).
func scalarConverter(t, base reflect.Type, ptr bool) convertFunc {
	return func(_ *converter, raw string, present bool) (reflect.Value, error) {
		if !present {
			return reflect.Zero(t), nil
		}

		v := reflect.New(base).Elem()
		if err := setScalar(v, base, raw); err != nil {
			return reflect.Value{}, &convertError{typ: t, raw: raw, cause: err}
		}
		if ptr {
			p := reflect.New(base)
			p.Elem().Set(v)
			return p, nil
		}
		return v, nil
	}
}

func setScalar(v reflect.Value, base reflect.Type, raw string) error {
	switch base.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, base.Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, base.Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	default:
		f, err := strconv.ParseFloat(raw, base.Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	}
	return nil
}

// stringConverter is the identity strategy. An empty string is a valid
// value, distinct from an absent parameter.
func stringConverter(t, base reflect.Type, ptr bool) convertFunc {
	return func(_ *converter, raw string, present bool) (reflect.Value, error) {
		if !present {
			return reflect.Zero(t), nil
		}
		v := reflect.New(base).Elem()
		v.SetString(raw)
		if ptr {
			p := reflect.New(base)
			p.Elem().Set(v)
			return p, nil
		}
		return v, nil
	}
}

// textConverter invokes the type's own string factory, the
// encoding.TextUnmarshaler convention. Factory errors surface with their
// cause preserved, never silently swallowed.
func textConverter(t, base reflect.Type, ptr bool) convertFunc {
	return func(_ *converter, raw string, present bool) (reflect.Value, error) {
		if !present {
			return reflect.Zero(t), nil
		}

		// *base satisfies the interface whether it is declared on the
		// value or on the pointer.
		p := reflect.New(base)
		u := p.Interface().(encoding.TextUnmarshaler)
		if err := u.UnmarshalText([]byte(raw)); err != nil {
			return reflect.Value{}, &convertError{typ: t, raw: raw, cause: err}
		}
		if ptr {
			return p, nil
		}
		return p.Elem(), nil
	}
}

// codecConverter treats the raw string as a document and decodes it into
// the declared shape through the injected codec, then validates the result.
func codecConverter(t, base reflect.Type, ptr bool) convertFunc {
	return func(cv *converter, raw string, present bool) (reflect.Value, error) {
		if !present {
			return reflect.Zero(t), nil
		}

		p := reflect.New(base)
		if err := cv.codec.Unmarshal([]byte(raw), p.Interface()); err != nil {
			return reflect.Value{}, &convertError{typ: t, raw: raw, cause: err}
		}
		if err := cv.check(p.Elem()); err != nil {
			return reflect.Value{}, &convertError{typ: t, raw: raw, cause: err}
		}
		if ptr {
			return p, nil
		}
		return p.Elem(), nil
	}
}

// check runs struct validation on decoded values: structs directly,
// elements of slices and arrays of structs individually. Non-struct shapes
// have nothing to validate.
func (cv *converter) check(v reflect.Value) error {
	if cv.validate == nil {
		return nil
	}

	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		return cv.validate.Struct(v.Interface())
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := cv.check(v.Index(i)); err != nil {
				return err
			}
		}
	}
	return nil
}
