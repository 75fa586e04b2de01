package suggest

import (
	"os"
	"reflect"
	"testing"

	"github.com/ziadkadry99/ocrstudio/internal/fields"
)

func TestSuggestEndToEnd(t *testing.T) {
	doc := []byte(`{"sender":{"name":"Acme"},"package":{"weight_kg":10}}`)
	list := []fields.Field{{ID: "sender_name"}, {ID: "weight"}}

	got, err := Suggest(list, doc)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}

	want := map[string]string{
		"sender_name": "$.sender.name",
		"weight":      "$.package.weight_kg",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Suggest = %v, want %v", got, want)
	}
}

func TestSuggestEmptyInputs(t *testing.T) {
	tests := []struct {
		name string
		list []fields.Field
		doc  string
	}{
		{"no fields", nil, `{"a":1}`},
		{"no leaves", []fields.Field{{ID: "sender_name"}}, `{}`},
		{"non-object root", []fields.Field{{ID: "sender_name"}}, `["x"]`},
		{"empty field id", []fields.Field{{ID: "", DisplayName: "Name"}}, `{"name":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Suggest(tt.list, []byte(tt.doc))
			if err != nil {
				t.Fatalf("Suggest: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("expected no suggestions, got %v", got)
			}
		})
	}
}

func TestSuggestMalformed(t *testing.T) {
	if _, err := Suggest([]fields.Field{{ID: "a"}}, []byte(`{"a":`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestSuggestStandardCatalog(t *testing.T) {
	doc, err := os.ReadFile("testdata/bill_of_lading.json")
	if err != nil {
		t.Fatal(err)
	}

	got, err := Suggest(fields.Standard(), doc)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}

	expected := map[string]string{
		"sender_name":     "$.sender.name",
		"receiver_name":   "$.receiver.name",
		"weight":          "$.package.weight_kg",
		"tracking_number": "$.tracking.id",
	}
	for field, path := range expected {
		if got[field] != path {
			t.Errorf("%s -> %q, want %q", field, got[field], path)
		}
	}

	// Injective: no path is used twice.
	seen := make(map[string]string)
	for field, path := range got {
		if other, dup := seen[path]; dup {
			t.Errorf("path %s assigned to both %s and %s", path, other, field)
		}
		seen[path] = field
	}

	again, _ := Suggest(fields.Standard(), doc)
	if !reflect.DeepEqual(got, again) {
		t.Error("Suggest is not deterministic")
	}
}

func TestAssignTieBreaks(t *testing.T) {
	t.Run("earlier field wins an equal score", func(t *testing.T) {
		list := []fields.Field{{ID: "sender_name"}, {ID: "senderName"}}
		got := Assign(list, []string{"$.sender_name"})
		if len(got) != 1 || got[0].FieldID != "sender_name" {
			t.Errorf("Assign = %+v, want sender_name only", got)
		}
	})

	t.Run("earlier path wins an equal score", func(t *testing.T) {
		list := []fields.Field{{ID: "name"}}
		got := Assign(list, []string{"$.a.name", "$.b.name"})
		if len(got) != 1 || got[0].Path != "$.a.name" {
			t.Errorf("Assign = %+v, want $.a.name", got)
		}
	})
}

func TestAssignThreshold(t *testing.T) {
	list := []fields.Field{{ID: "carrier_code"}, {ID: "hazmat_code"}}
	got := Assign(list, []string{"$.carriers", "$.dates.shipped"})

	if len(got) != 1 {
		t.Fatalf("Assign = %+v, want one suggestion", got)
	}
	if got[0].FieldID != "carrier_code" || got[0].Path != "$.carriers" {
		t.Errorf("Assign = %+v", got[0])
	}
	if got[0].Score < Threshold {
		t.Errorf("score %v below threshold", got[0].Score)
	}
}

func TestAssignUsesDisplayName(t *testing.T) {
	list := []fields.Field{{ID: "f1", DisplayName: "Weight (kg)"}}
	got := Assign(list, []string{"$.package.weight_kg"})
	if len(got) != 1 || got[0].Score != 1.0 {
		t.Errorf("Assign = %+v, want exact match through display name", got)
	}
}

func TestRankOrdered(t *testing.T) {
	doc := []byte(`{"sender":{"name":"Acme"},"package":{"weight_kg":10}}`)
	list := []fields.Field{{ID: "weight"}, {ID: "sender_name"}}

	ranked, err := Rank(list, doc)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("Rank = %+v", ranked)
	}
	if ranked[0].FieldID != "sender_name" || ranked[0].Score < ranked[1].Score {
		t.Errorf("expected best match first, got %+v", ranked)
	}
}
