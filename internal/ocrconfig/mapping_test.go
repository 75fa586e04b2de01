package ocrconfig

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/ziadkadry99/ocrstudio/internal/fields"
)

func TestParseMappingsForms(t *testing.T) {
	want := Mappings{
		{FieldID: "sender_name", JSONPath: "$.sender.name", Mandatory: true, Transform: TransformUppercase},
		{FieldID: "weight", JSONPath: "$.package.weight_kg", Transform: TransformNumber},
	}

	tests := []struct {
		name string
		data string
		want Mappings
	}{
		{
			"list with fieldKey",
			`[{"fieldKey":"sender_name","jsonPath":"$.sender.name","mandatory":true,"transform":"UPPERCASE"},
			  {"fieldKey":"weight","jsonPath":"$.package.weight_kg","transform":"NUMBER"}]`,
			want,
		},
		{
			"list with fieldId and lowercase transforms",
			`[{"fieldId":"sender_name","jsonPath":"$.sender.name","mandatory":true,"transform":"uppercase"},
			  {"fieldId":"weight","jsonPath":"$.package.weight_kg","transform":"number"}]`,
			want,
		},
		{
			"keyed object keeps document order",
			`{"sender_name":{"jsonPath":"$.sender.name","mandatory":true,"transform":"uppercase"},
			  "weight":{"jsonPath":"$.package.weight_kg","transform":"number"}}`,
			want,
		},
		{
			"keyed object of paths",
			`{"b":"$.x","a":"$.y"}`,
			Mappings{{FieldID: "b", JSONPath: "$.x"}, {FieldID: "a", JSONPath: "$.y"}},
		},
		{
			"string wrapped list",
			`"[{\"fieldKey\":\"a\",\"jsonPath\":\"$.a\"}]"`,
			Mappings{{FieldID: "a", JSONPath: "$.a"}},
		},
		{"empty string", `""`, Mappings{}},
		{"null", `null`, Mappings{}},
		{"empty object", `{}`, Mappings{}},
		{"unknown transform kept", `[{"fieldKey":"d","jsonPath":"$.d","transform":"date"}]`,
			Mappings{{FieldID: "d", JSONPath: "$.d", Transform: "date"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMappings([]byte(tt.data))
			if err != nil {
				t.Fatalf("ParseMappings: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseMappingsErrors(t *testing.T) {
	for _, data := range []string{`42`, `{"a":7}`, `[{"fieldKey":1}]`, `{"a":`} {
		if _, err := ParseMappings([]byte(data)); err == nil {
			t.Errorf("ParseMappings(%s): expected error", data)
		}
	}
}

func TestMappingsJSONRoundTrip(t *testing.T) {
	var cfg struct {
		Mappings Mappings `json:"fieldMappings"`
	}
	if err := json.Unmarshal([]byte(`{"fieldMappings":{"a":{"jsonPath":"$.a","mandatory":true}}}`), &cfg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	out, err := json.Marshal(cfg.Mappings)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `[{"fieldKey":"a","jsonPath":"$.a","mandatory":true}]` {
		t.Errorf("Marshal = %s", out)
	}

	var nilMappings Mappings
	out, _ = json.Marshal(nilMappings)
	if string(out) != "[]" {
		t.Errorf("nil mappings marshal to %s, want []", out)
	}
}

func TestDefaultMappings(t *testing.T) {
	got := DefaultMappings([]fields.Field{
		{ID: "shipment_id", Mandatory: true},
		{ID: "priority"},
	})
	want := Mappings{
		{FieldID: "shipment_id", Mandatory: true},
		{FieldID: "priority"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DefaultMappings = %+v, want %+v", got, want)
	}
}

func TestMergeSuggestions(t *testing.T) {
	current := Mappings{
		{FieldID: "sender_name", JSONPath: "$.shipper.name", Mandatory: true},
		{FieldID: "weight", Mandatory: true, Transform: TransformNumber},
	}
	suggestions := map[string]string{
		"sender_name":     "$.sender.name",
		"weight":          "$.package.weight_kg",
		"tracking_number": "$.tracking.id",
		"hazmat_code":     "$.package.hazmat",
	}

	got := MergeSuggestions(current, suggestions)
	want := Mappings{
		{FieldID: "sender_name", JSONPath: "$.shipper.name", Mandatory: true},
		{FieldID: "weight", JSONPath: "$.package.weight_kg", Mandatory: true, Transform: TransformNumber},
		{FieldID: "hazmat_code", JSONPath: "$.package.hazmat"},
		{FieldID: "tracking_number", JSONPath: "$.tracking.id"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeSuggestions = %+v, want %+v", got, want)
	}

	// The input slice is not modified.
	if current[1].JSONPath != "" {
		t.Error("MergeSuggestions modified its input")
	}
}

func TestMergeSuggestionsEmpty(t *testing.T) {
	got := MergeSuggestions(nil, nil)
	if len(got) != 0 {
		t.Errorf("expected no mappings, got %+v", got)
	}
}

func TestParseTransform(t *testing.T) {
	tests := map[string]Transform{
		"uppercase": TransformUppercase,
		" Trim ":    TransformTrim,
		"NUMBER":    TransformNumber,
		"":          TransformNone,
		"date":      Transform("date"),
	}
	for in, want := range tests {
		if got := ParseTransform(in); got != want {
			t.Errorf("ParseTransform(%q) = %q, want %q", in, got, want)
		}
	}
}
