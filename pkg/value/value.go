// Package value models the params/options literals of the flow language
// as a closed tagged union: string, number, bool, null, object, array.
// Consumers switch over the concrete types exhaustively instead of
// probing dynamic maps with ad hoc type assertions.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the concrete type of a Value.
type Kind int

// Kind constants for the closed set of value types.
const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindNull
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is the interface implemented by all params/options value types.
type Value interface {
	valueNode()
	Kind() Kind
}

// String is a text value. The underlying string is the unescaped content.
type String string

// Number is a numeric value. The underlying string keeps the original
// lexeme so 100 renders as 100, never 100.000000.
type Number string

// Bool is a boolean value.
type Bool bool

// Null is the null value.
type Null struct{}

// Field is one key/value pair of an Object.
type Field struct {
	Key   string
	Value Value
}

// Object is an ordered collection of fields. Field order follows the
// source text so rendering is deterministic.
type Object struct {
	Fields []Field
}

// Array is an ordered sequence of values.
type Array []Value

func (String) valueNode()  {}
func (Number) valueNode()  {}
func (Bool) valueNode()    {}
func (Null) valueNode()    {}
func (*Object) valueNode() {}
func (Array) valueNode()   {}

// Kind returns KindString.
func (String) Kind() Kind { return KindString }

// Kind returns KindNumber.
func (Number) Kind() Kind { return KindNumber }

// Kind returns KindBool.
func (Bool) Kind() Kind { return KindBool }

// Kind returns KindNull.
func (Null) Kind() Kind { return KindNull }

// Kind returns KindObject.
func (*Object) Kind() Kind { return KindObject }

// Kind returns KindArray.
func (Array) Kind() Kind { return KindArray }

// Float returns the number as a float64.
func (n Number) Float() (float64, error) {
	return strconv.ParseFloat(string(n), 64)
}

// Get returns the value for key and whether it was present.
func (o *Object) Get(key string) (Value, bool) {
	for _, f := range o.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces the value for key, appending a new field when absent.
func (o *Object) Set(key string, v Value) {
	for i, f := range o.Fields {
		if f.Key == key {
			o.Fields[i].Value = v
			return
		}
	}
	o.Fields = append(o.Fields, Field{Key: key, Value: v})
}

// Keys returns the field keys in declaration order.
func (o *Object) Keys() []string {
	keys := make([]string, len(o.Fields))
	for i, f := range o.Fields {
		keys[i] = f.Key
	}
	return keys
}

// JSON renders the value as compact JSON text.
func JSON(v Value) string {
	var b strings.Builder
	writeJSON(&b, v)
	return b.String()
}

func writeJSON(b *strings.Builder, v Value) {
	switch val := v.(type) {
	case String:
		b.WriteString(QuoteJSON(string(val)))
	case Number:
		b.WriteString(string(val))
	case Bool:
		if val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case Null:
		b.WriteString("null")
	case *Object:
		b.WriteByte('{')
		for i, f := range val.Fields {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(QuoteJSON(f.Key))
			b.WriteByte(':')
			writeJSON(b, f.Value)
		}
		b.WriteByte('}')
	case Array:
		b.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSON(b, elem)
		}
		b.WriteByte(']')
	}
}

// MarshalJSON implements json.Marshaler.
func (s String) MarshalJSON() ([]byte, error) { return []byte(JSON(s)), nil }

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) { return []byte(JSON(n)), nil }

// MarshalJSON implements json.Marshaler.
func (b Bool) MarshalJSON() ([]byte, error) { return []byte(JSON(b)), nil }

// MarshalJSON implements json.Marshaler.
func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// MarshalJSON implements json.Marshaler.
func (o *Object) MarshalJSON() ([]byte, error) { return []byte(JSON(o)), nil }

// MarshalJSON implements json.Marshaler.
func (a Array) MarshalJSON() ([]byte, error) { return []byte(JSON(a)), nil }

// QuoteJSON renders s as a double-quoted JSON string with standard
// escaping.
func QuoteJSON(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// FromAny converts a decoded configuration value (as produced by the
// yaml and koanf loaders) into a Value. Map keys are sorted so the
// result is deterministic regardless of map iteration order.
func FromAny(v any) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case string:
		return String(val)
	case bool:
		return Bool(val)
	case int:
		return Number(strconv.Itoa(val))
	case int64:
		return Number(strconv.FormatInt(val, 10))
	case uint64:
		return Number(strconv.FormatUint(val, 10))
	case float64:
		return Number(formatFloat(val))
	case float32:
		return Number(formatFloat(float64(val)))
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			arr[i] = FromAny(elem)
		}
		return arr
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := &Object{Fields: make([]Field, 0, len(val))}
		for _, k := range keys {
			obj.Fields = append(obj.Fields, Field{Key: k, Value: FromAny(val[k])})
		}
		return obj
	default:
		return String(fmt.Sprintf("%v", val))
	}
}

// ToAny converts a Value back into plain Go types, for decoding into
// typed configuration structs.
func ToAny(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Number:
		if f, err := val.Float(); err == nil {
			return f
		}
		return string(val)
	case Bool:
		return bool(val)
	case Null:
		return nil
	case *Object:
		m := make(map[string]any, len(val.Fields))
		for _, f := range val.Fields {
			m[f.Key] = ToAny(f.Value)
		}
		return m
	case Array:
		s := make([]any, len(val))
		for i, elem := range val {
			s[i] = ToAny(elem)
		}
		return s
	default:
		return nil
	}
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
