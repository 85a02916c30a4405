// Package shape implements the field-table driven JSON body encoder used by
// the REST endpoint wrappers. Each endpoint publishes a Schema mapping field
// names to type descriptors; the encoder walks an input mapping and emits
// only the fields the schema names and the input carries.
package shape

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
)

// ErrSchema is returned when a schema carries an unknown descriptor or when
// the input does not match the descriptor's shape. It is a programmer error.
var ErrSchema = errors.New("shape: invalid schema descriptor")

// Type is a field type descriptor. The closed set of descriptors is String,
// Bare, Object and Array.
type Type interface {
	encode(buf *bytes.Buffer, v interface{}) error
}

// Schema maps field names to their type descriptors.
type Schema map[string]Type

type stringType struct{}

// String quotes the field value as a JSON string.
var String Type = stringType{}

func (stringType) encode(buf *bytes.Buffer, v interface{}) error {
	s, ok := v.(string)
	if !ok {
		return errors.Wrapf(ErrSchema, "string field has %T value", v)
	}

	b, err := json.Marshal(s)
	if err != nil {
		return err
	}

	buf.Write(b)
	return nil
}

type bareType struct{}

// Bare emits the field value literally: strings are written as pre-encoded
// JSON fragments, any other value is encoded with its natural JSON form.
var Bare Type = bareType{}

func (bareType) encode(buf *bytes.Buffer, v interface{}) error {
	switch v := v.(type) {
	case string:
		buf.WriteString(v)
		return nil
	case []byte:
		buf.Write(v)
		return nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	buf.Write(b)
	return nil
}

type objectType struct {
	schema Schema
}

// Object recurses into a nested mapping with the given schema.
func Object(schema Schema) Type {
	return objectType{schema: schema}
}

func (t objectType) encode(buf *bytes.Buffer, v interface{}) error {
	m, ok := v.(map[string]interface{})
	if !ok {
		return errors.Wrapf(ErrSchema, "object field has %T value", v)
	}

	return encodeObject(buf, m, t.schema)
}

type arrayType struct {
	elem Type
}

// Array encodes each element of a slice under the element descriptor.
func Array(elem Type) Type {
	return arrayType{elem: elem}
}

func (t arrayType) encode(buf *bytes.Buffer, v interface{}) error {
	var elems []interface{}

	switch v := v.(type) {
	case []interface{}:
		elems = v
	case []string:
		elems = make([]interface{}, len(v))
		for i, s := range v {
			elems[i] = s
		}
	default:
		return errors.Wrapf(ErrSchema, "array field has %T value", v)
	}

	buf.WriteByte('[')
	for i, e := range elems {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := t.elem.encode(buf, e); err != nil {
			return err
		}
	}
	buf.WriteByte(']')

	return nil
}

// Marshal encodes the input mapping under the schema. Fields absent from the
// input are omitted; input keys the schema doesn't name are ignored. Field
// order is the schema's key order, sorted, so output is deterministic.
func Marshal(input map[string]interface{}, schema Schema) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeObject(&buf, input, schema); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeObject(buf *bytes.Buffer, input map[string]interface{}, schema Schema) error {
	fields := make([]string, 0, len(schema))
	for name := range schema {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	buf.WriteByte('{')

	var n int
	for _, name := range fields {
		v, ok := input[name]
		if !ok {
			continue
		}

		t := schema[name]
		if t == nil {
			return errors.Wrapf(ErrSchema, "field %q has nil descriptor", name)
		}

		if n > 0 {
			buf.WriteByte(',')
		}
		n++

		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')

		if err := t.encode(buf, v); err != nil {
			return errors.Wrapf(err, "field %q", name)
		}
	}

	buf.WriteByte('}')
	return nil
}
