package shape

import (
	"testing"

	"github.com/pkg/errors"
)

func expect(t *testing.T, input map[string]interface{}, schema Schema, want string) {
	t.Helper()

	b, err := Marshal(input, schema)
	if err != nil {
		t.Fatal("failed to marshal:", err)
	}

	if string(b) != want {
		t.Errorf("unexpected encoding:\nexpected %s\ngot      %s", want, b)
	}
}

func TestMarshalEmptySchema(t *testing.T) {
	expect(t, map[string]interface{}{"id": "X"}, Schema{}, `{}`)
}

func TestMarshalString(t *testing.T) {
	expect(t,
		map[string]interface{}{"id": "X"},
		Schema{"id": String},
		`{"id":"X"}`)
}

func TestMarshalBare(t *testing.T) {
	expect(t,
		map[string]interface{}{"id": "42"},
		Schema{"id": Bare},
		`{"id":42}`)

	expect(t,
		map[string]interface{}{"limit": 50, "tts": true},
		Schema{"limit": Bare, "tts": Bare},
		`{"limit":50,"tts":true}`)
}

func TestMarshalOmitsAbsent(t *testing.T) {
	expect(t,
		map[string]interface{}{"name": "general"},
		Schema{"name": String, "topic": String},
		`{"name":"general"}`)
}

func TestMarshalStringArray(t *testing.T) {
	expect(t,
		map[string]interface{}{"messages": []string{"m1", "m2", "m3"}},
		Schema{"messages": Array(String)},
		`{"messages":["m1","m2","m3"]}`)
}

func TestMarshalNestedObject(t *testing.T) {
	expect(t,
		map[string]interface{}{
			"embed": map[string]interface{}{
				"title": "hi",
				"color": 0xFF0000,
			},
		},
		Schema{"embed": Object(Schema{
			"title": String,
			"color": Bare,
		})},
		`{"embed":{"color":16711680,"title":"hi"}}`)
}

func TestMarshalDeterministic(t *testing.T) {
	schema := Schema{"b": String, "a": String, "c": String}
	input := map[string]interface{}{"a": "1", "b": "2", "c": "3"}

	want := `{"a":"1","b":"2","c":"3"}`
	for i := 0; i < 16; i++ {
		expect(t, input, schema, want)
	}
}

func TestMarshalBadShape(t *testing.T) {
	_, err := Marshal(
		map[string]interface{}{"id": 42},
		Schema{"id": String})

	if !errors.Is(err, ErrSchema) {
		t.Fatal("expected ErrSchema, got:", err)
	}

	_, err = Marshal(
		map[string]interface{}{"id": "x"},
		Schema{"id": nil})

	if !errors.Is(err, ErrSchema) {
		t.Fatal("expected ErrSchema for nil descriptor, got:", err)
	}
}
