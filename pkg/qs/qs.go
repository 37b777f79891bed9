// Package qs serializes request parameters into the query-string dialect the
// inventory backend expects.
//
// Slices repeat the key without indices (a=1&a=2), nested structs and maps use
// dot notation (filter.status=1), and values are written as-is. Callers that
// pass user input containing '&', '=' or '#' must escape it first.
//
// Struct fields are read in declaration order using the "qs" tag:
//
//	Limit  int       `qs:"limit"`
//	Status *bool     `qs:"status,omitempty"`
//	Since  time.Time `qs:"since,omitempty,date"`
//	Secret string    `qs:"-"`
//
// Untagged exported fields use the Go field name. Map keys are sorted, so
// equal inputs always produce identical output.
package qs

import (
	"encoding"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DateLayout is used for time.Time fields tagged with the date option.
const DateLayout = time.DateOnly

// UnsupportedTypeError is returned for values with no query-string form.
type UnsupportedTypeError struct {
	Key  string
	Type reflect.Type
}

func (e *UnsupportedTypeError) Error() string {
	if e.Key == "" {
		return "qs: unsupported type " + e.Type.String()
	}
	return fmt.Sprintf("qs: unsupported type %s for %q", e.Type, e.Key)
}

// Pair is one serialized key/value.
type Pair struct {
	Key   string
	Value string
}

// Marshal serializes a struct or map (or a pointer to either). A nil pointer
// gives the empty string.
func Marshal(v any) (string, error) {
	pairs, err := Pairs(v)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}
	return b.String(), nil
}

// Pairs returns the flattened key/value pairs in output order.
func Pairs(v any) ([]Pair, error) {
	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return nil, nil
	}
	if rv.Kind() != reflect.Struct && rv.Kind() != reflect.Map {
		return nil, &UnsupportedTypeError{Type: rv.Type()}
	}

	e := &encoder{}
	if err := e.encode("", rv, options{}); err != nil {
		return nil, err
	}
	return e.pairs, nil
}

type options struct {
	omitEmpty bool
	date      bool
}

func parseTag(tag string) (string, options) {
	name, rest, _ := strings.Cut(tag, ",")
	var o options
	for opt := range strings.SplitSeq(rest, ",") {
		switch opt {
		case "omitempty":
			o.omitEmpty = true
		case "date":
			o.date = true
		}
	}
	return name, o
}

type encoder struct {
	pairs []Pair
}

func (e *encoder) add(key, value string) {
	e.pairs = append(e.pairs, Pair{Key: key, Value: value})
}

var (
	timeType          = reflect.TypeFor[time.Time]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

func (e *encoder) encode(key string, v reflect.Value, o options) error {
	if o.omitEmpty && isEmpty(v) {
		return nil
	}
	v = indirect(v)
	if !v.IsValid() {
		return nil
	}

	if v.Type() == timeType {
		t := v.Interface().(time.Time)
		if o.date {
			e.add(key, t.Format(DateLayout))
		} else {
			e.add(key, t.Format(time.RFC3339))
		}
		return nil
	}
	if v.Type().Implements(textMarshalerType) {
		text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return fmt.Errorf("qs: marshal %q: %w", key, err)
		}
		e.add(key, string(text))
		return nil
	}

	switch v.Kind() {
	case reflect.Struct:
		return e.encodeStruct(key, v)
	case reflect.Map:
		return e.encodeMap(key, v)
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			// Elements inherit the date option but never omitempty, so
			// positions in a repeated key are preserved.
			if err := e.encode(key, v.Index(i), options{date: o.date}); err != nil {
				return err
			}
		}
		return nil
	}

	s, ok := scalar(v)
	if !ok {
		return &UnsupportedTypeError{Key: key, Type: v.Type()}
	}
	e.add(key, s)
	return nil
}

func (e *encoder) encodeStruct(prefix string, v reflect.Value) error {
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("qs")
		if tag == "-" {
			continue
		}
		name, o := parseTag(tag)
		if name == "" {
			name = f.Name
		}
		if err := e.encode(join(prefix, name), v.Field(i), o); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) encodeMap(prefix string, v reflect.Value) error {
	keys := make([]string, 0, v.Len())
	values := make(map[string]reflect.Value, v.Len())
	for it := v.MapRange(); it.Next(); {
		k, ok := scalar(it.Key())
		if !ok {
			return &UnsupportedTypeError{Key: prefix, Type: v.Type().Key()}
		}
		keys = append(keys, k)
		values[k] = it.Value()
	}
	slices.Sort(keys)

	for _, k := range keys {
		if err := e.encode(join(prefix, k), values[k], options{}); err != nil {
			return err
		}
	}
	return nil
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return v.Len() == 0
	}
	return v.IsZero()
}

func scalar(v reflect.Value) (string, bool) {
	switch v.Kind() {
	case reflect.String:
		return v.String(), true
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'f', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), true
	}
	return "", false
}
