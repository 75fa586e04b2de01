package jsonpath

import (
	"errors"
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		expected []string
	}{
		{"empty object", `{}`, []string{}},
		{"nested empty object", `{"a":{}}`, []string{}},
		{"two leaves", `{"a":{"b":1,"c":2}}`, []string{"$.a.b", "$.a.c"}},
		{
			"document order kept",
			`{"z":1,"a":{"y":"x","b":null},"m":[1,2,{"k":1}]}`,
			[]string{"$.z", "$.a.y", "$.a.b", "$.m"},
		},
		{"empty branch skipped", `{"a":{},"b":{"c":true}}`, []string{"$.b.c"}},
		{"scalar root", `42`, []string{}},
		{"array root", `[{"a":1}]`, []string{}},
		{"deep", `{"a":{"b":{"c":{"d":"e"}}}}`, []string{"$.a.b.c.d"}},
		{"escaped key", `{"say \"hi\"":1}`, []string{`$.say "hi"`}},
		{"duplicate key", `{"a":1,"b":2,"a":3}`, []string{"$.a", "$.b"}},
		{"duplicate key last value wins", `{"a":1,"a":{"c":2}}`, []string{"$.a.c"}},
		{"duplicate nested key", `{"a":{"x":1,"x":2}}`, []string{"$.a.x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract([]byte(tt.doc))
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Extract(%s) = %v, want %v", tt.doc, got, tt.expected)
			}
		})
	}
}

func TestExtractDeterministic(t *testing.T) {
	doc := []byte(`{"sender":{"name":"Acme","phone":"1"},"package":{"weight_kg":10,"dims":"1x2"}}`)
	first, err := Extract(doc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for i := 0; i < 10; i++ {
		next, _ := Extract(doc)
		if !reflect.DeepEqual(first, next) {
			t.Fatalf("run %d: %v, want %v", i, next, first)
		}
	}
}

func TestExtractInvalid(t *testing.T) {
	for _, doc := range []string{``, `{"a":`, `{"a" 1}`} {
		_, err := Extract([]byte(doc))
		if !errors.Is(err, ErrInvalidDocument) {
			t.Errorf("Extract(%q) error = %v, want ErrInvalidDocument", doc, err)
		}
	}
}

func TestSegments(t *testing.T) {
	tests := []struct {
		path     string
		expected []string
	}{
		{"$.a.b", []string{"a", "b"}},
		{"a.b", []string{"a", "b"}},
		{"$.a", []string{"a"}},
		{"", nil},
		{"$.", nil},
	}
	for _, tt := range tests {
		if got := Segments(tt.path); !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("Segments(%q) = %v, want %v", tt.path, got, tt.expected)
		}
	}
}

func TestLookup(t *testing.T) {
	doc := []byte(`{"a":{"b":"x","n":10.5,"t":true,"z":null,"list":[1,"two"],"obj":{"k":"v"}}}`)

	tests := []struct {
		path      string
		expected  any
		wantFound bool
	}{
		{"$.a.b", "x", true},
		{"a.b", "x", true},
		{"$.a.n", 10.5, true},
		{"$.a.t", true, true},
		{"$.a.z", nil, true},
		{"$.a.list", []any{float64(1), "two"}, true},
		{"$.a.obj", map[string]any{"k": "v"}, true},
		{"$.a.missing", nil, false},
		{"$.a.b.deeper", nil, false},
		{"$.a.z.deeper", nil, false},
		{"", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, found := Lookup(doc, tt.path)
			if found != tt.wantFound {
				t.Fatalf("Lookup(%q) found = %v, want %v", tt.path, found, tt.wantFound)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Lookup(%q) = %#v, want %#v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestLookupDuplicateKeys(t *testing.T) {
	doc := []byte(`{"a":1,"s":{"n":"old"},"a":2,"s":{"n":"new"}}`)
	if got, _ := Lookup(doc, "$.a"); got != 2.0 {
		t.Errorf("Lookup($.a) = %v, want 2", got)
	}
	if got, _ := Lookup(doc, "$.s.n"); got != "new" {
		t.Errorf("Lookup($.s.n) = %v, want new", got)
	}
}

func TestLookupBrackets(t *testing.T) {
	doc := []byte(`{"items":[{"a":1}],"b[0]":"literal"}`)
	for _, path := range []string{"$.items[0].a", "$.items.[0].a", "$.items.[0]"} {
		if v, found := Lookup(doc, path); found {
			t.Errorf("Lookup(%q) = %v, want not found", path, v)
		}
	}
	if v, found := Lookup(doc, "$.b[0]"); !found || v != "literal" {
		t.Errorf("Lookup($.b[0]) = %v, %v, want literal key match", v, found)
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		v        any
		expected bool
	}{
		{nil, true},
		{"", true},
		{" ", false},
		{0.0, false},
		{false, false},
		{[]any{}, false},
	}
	for _, tt := range tests {
		if got := IsEmpty(tt.v); got != tt.expected {
			t.Errorf("IsEmpty(%#v) = %v, want %v", tt.v, got, tt.expected)
		}
	}
}
