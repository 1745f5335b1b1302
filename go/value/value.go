// Package value defines the tagged scalar Value used as the payload of
// SetField, AddToSet, and RemoveFromSet operations.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Tag identifies which variant a Value holds.
type Tag int

const (
	String Tag = iota
	Int
	Float
	Bool
	Struct
)

func (t Tag) String() string {
	switch t {
	case String:
		return "String"
	case Int:
		return "Int"
	case Float:
		return "Float"
	case Bool:
		return "Bool"
	case Struct:
		return "Struct"
	default:
		return fmt.Sprintf("Tag(%d)", int(t))
	}
}

// Value is a tagged scalar. The zero Value is an empty String.
type Value struct {
	tag    Tag
	str    string
	i      int64
	f      float64
	b      bool
	strct  map[string]Value
}

func NewString(s string) Value { return Value{tag: String, str: s} }
func NewInt(i int64) Value     { return Value{tag: Int, i: i} }
func NewFloat(f float64) Value { return Value{tag: Float, f: f} }
func NewBool(b bool) Value     { return Value{tag: Bool, b: b} }

// NewStruct copies fields into a new Struct Value; later mutation of the
// input map does not affect the returned Value.
func NewStruct(fields map[string]Value) Value {
	var cp = make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{tag: Struct, strct: cp}
}

func (v Value) Tag() Tag { return v.tag }

func (v Value) AsString() (string, bool) {
	if v.tag != String {
		return "", false
	}
	return v.str, true
}

func (v Value) AsInt() (int64, bool) {
	if v.tag != Int {
		return 0, false
	}
	return v.i, true
}

func (v Value) AsFloat() (float64, bool) {
	if v.tag != Float {
		return 0, false
	}
	return v.f, true
}

func (v Value) AsBool() (bool, bool) {
	if v.tag != Bool {
		return false, false
	}
	return v.b, true
}

// AsStruct returns a copy of the underlying field map.
func (v Value) AsStruct() (map[string]Value, bool) {
	if v.tag != Struct {
		return nil, false
	}
	var cp = make(map[string]Value, len(v.strct))
	for k, val := range v.strct {
		cp[k] = val
	}
	return cp, true
}

// Equal reports structural equality.
func (v Value) Equal(other Value) bool {
	return bytes.Equal(v.CanonicalEncode(), other.CanonicalEncode())
}

// Compare orders two Values lexicographically over (tag-name,
// canonical-encoding), per spec.md §3.
func (v Value) Compare(other Value) int {
	if c := stringsCompare(v.tag.String(), other.tag.String()); c != 0 {
		return c
	}
	return bytes.Compare(v.CanonicalEncode(), other.CanonicalEncode())
}

func stringsCompare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// CanonicalEncode produces a deterministic byte encoding used for hashing,
// ordering, and equality. Struct fields are sorted by name.
func (v Value) CanonicalEncode() []byte {
	var buf bytes.Buffer
	v.encodeInto(&buf)
	return buf.Bytes()
}

func (v Value) encodeInto(buf *bytes.Buffer) {
	buf.WriteString(v.tag.String())
	buf.WriteByte(':')
	switch v.tag {
	case String:
		buf.WriteString(strconv.Quote(v.str))
	case Int:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case Float:
		buf.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case Bool:
		buf.WriteString(strconv.FormatBool(v.b))
	case Struct:
		var keys = make([]string, 0, len(v.strct))
		for k := range v.strct {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.Quote(k))
			buf.WriteByte('=')
			v.strct[k].encodeInto(buf)
		}
		buf.WriteByte('}')
	}
}

// taggedWire is the JSON wire representation: exactly one of these fields
// is present, matching §6 ("TaggedValue is {"String": "..."}, ...").
type taggedWire struct {
	String *string                    `json:"String,omitempty"`
	Int    *int64                     `json:"Int,omitempty"`
	Float  *float64                   `json:"Float,omitempty"`
	Bool   *bool                      `json:"Bool,omitempty"`
	Struct map[string]json.RawMessage `json:"Struct,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.tag {
	case String:
		return json.Marshal(taggedWire{String: &v.str})
	case Int:
		return json.Marshal(taggedWire{Int: &v.i})
	case Float:
		return json.Marshal(taggedWire{Float: &v.f})
	case Bool:
		return json.Marshal(taggedWire{Bool: &v.b})
	case Struct:
		var raw = make(map[string]json.RawMessage, len(v.strct))
		for k, fv := range v.strct {
			var encoded, err = json.Marshal(fv)
			if err != nil {
				return nil, fmt.Errorf("encoding struct field %q: %w", k, err)
			}
			raw[k] = encoded
		}
		if len(raw) == 0 {
			// omitempty would drop an empty map, leaving no tagged field.
			return []byte(`{"Struct":{}}`), nil
		}
		return json.Marshal(taggedWire{Struct: raw})
	default:
		return nil, fmt.Errorf("%w: unrecognized tag %v", ErrMalformedValue, v.tag)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var w taggedWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedValue, err)
	}

	var set int
	if w.String != nil {
		set++
		*v = NewString(*w.String)
	}
	if w.Int != nil {
		set++
		*v = NewInt(*w.Int)
	}
	if w.Float != nil {
		set++
		*v = NewFloat(*w.Float)
	}
	if w.Bool != nil {
		set++
		*v = NewBool(*w.Bool)
	}
	if w.Struct != nil {
		set++
		var fields = make(map[string]Value, len(w.Struct))
		for k, raw := range w.Struct {
			var fv Value
			if err := json.Unmarshal(raw, &fv); err != nil {
				return fmt.Errorf("%w: struct field %q: %v", ErrMalformedValue, k, err)
			}
			fields[k] = fv
		}
		*v = NewStruct(fields)
	}
	if set != 1 {
		return fmt.Errorf("%w: expected exactly one tagged field, found %d", ErrMalformedValue, set)
	}
	return nil
}
