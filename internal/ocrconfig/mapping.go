package ocrconfig

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/ziadkadry99/ocrstudio/internal/fields"
	"github.com/ziadkadry99/ocrstudio/internal/jsonpath"
)

// Transform is applied to a mapped value before it lands in the payload.
type Transform string

const (
	TransformNone      Transform = ""
	TransformUppercase Transform = "UPPERCASE"
	TransformTrim      Transform = "TRIM"
	TransformNumber    Transform = "NUMBER"
)

// ParseTransform normalises a transform name. Unknown names (for example
// "date") are kept as given and leave values untouched.
func ParseTransform(s string) Transform {
	upper := Transform(strings.ToUpper(strings.TrimSpace(s)))
	switch upper {
	case TransformUppercase, TransformTrim, TransformNumber:
		return upper
	}
	return Transform(strings.TrimSpace(s))
}

// Mapping binds a target field to a path in the OCR output.
type Mapping struct {
	FieldID   string    `json:"fieldKey"`
	JSONPath  string    `json:"jsonPath"`
	Mandatory bool      `json:"mandatory"`
	Transform Transform `json:"transform,omitempty"`
}

// Mappings is an ordered list of mappings. It decodes from either a list
// of mapping objects or an object keyed by field id, and from a JSON
// string holding either of those.
type Mappings []Mapping

type mappingWire struct {
	FieldKey  string `json:"fieldKey"`
	FieldID   string `json:"fieldId"`
	JSONPath  string `json:"jsonPath"`
	Mandatory bool   `json:"mandatory"`
	Transform string `json:"transform"`
}

func (w mappingWire) mapping(id string) Mapping {
	if id == "" {
		id = w.FieldKey
	}
	if id == "" {
		id = w.FieldID
	}
	return Mapping{
		FieldID:   id,
		JSONPath:  w.JSONPath,
		Mandatory: w.Mandatory,
		Transform: ParseTransform(w.Transform),
	}
}

// MarshalJSON always writes the list form.
func (m Mappings) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Mapping(m))
}

// UnmarshalJSON accepts the list form, the keyed object form and either
// of them wrapped in a JSON string.
func (m *Mappings) UnmarshalJSON(data []byte) error {
	parsed, err := ParseMappings(data)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMappings decodes mappings in any accepted form. Object keys keep
// their document order.
func ParseMappings(data []byte) (Mappings, error) {
	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("parsing field mappings: %w", err)
	}

	switch dataType {
	case jsonparser.Null:
		return Mappings{}, nil
	case jsonparser.String:
		inner, err := jsonparser.ParseString(value)
		if err != nil {
			return nil, fmt.Errorf("parsing field mappings: %w", err)
		}
		if strings.TrimSpace(inner) == "" {
			return Mappings{}, nil
		}
		return ParseMappings([]byte(inner))
	case jsonparser.Array:
		var wires []mappingWire
		if err := json.Unmarshal(value, &wires); err != nil {
			return nil, fmt.Errorf("parsing field mappings: %w", err)
		}
		out := make(Mappings, 0, len(wires))
		for _, w := range wires {
			out = append(out, w.mapping(""))
		}
		return out, nil
	case jsonparser.Object:
		out := Mappings{}
		err := jsonparser.ObjectEach(value, func(key, entry []byte, entryType jsonparser.ValueType, _ int) error {
			var w mappingWire
			switch entryType {
			case jsonparser.String:
				// {"sender_name": "$.sender.name"}
				path, err := jsonparser.ParseString(entry)
				if err != nil {
					return err
				}
				w.JSONPath = path
			case jsonparser.Object:
				if err := json.Unmarshal(entry, &w); err != nil {
					return err
				}
			default:
				return fmt.Errorf("mapping %q: unexpected %s", key, entryType)
			}
			out = append(out, w.mapping(string(key)))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("parsing field mappings: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("parsing field mappings: unexpected %s", dataType)
	}
}

// Find returns the mapping for a field.
func (m Mappings) Find(fieldID string) (Mapping, bool) {
	for _, mp := range m {
		if mp.FieldID == fieldID {
			return mp, true
		}
	}
	return Mapping{}, false
}

// DefaultMappings returns one unbound mapping per field, carrying the
// field's mandatory default. It seeds a new configuration.
func DefaultMappings(list []fields.Field) Mappings {
	out := make(Mappings, 0, len(list))
	for _, f := range list {
		out = append(out, Mapping{FieldID: f.ID, Mandatory: f.Mandatory})
	}
	return out
}

// MergeSuggestions fills suggested paths into mappings that have no path
// yet and appends mappings for suggested fields that are not present.
// Committed paths are never overwritten. Suggestions are visited in key
// order so the result is deterministic.
func MergeSuggestions(current Mappings, suggestions map[string]string) Mappings {
	out := make(Mappings, len(current), len(current)+len(suggestions))
	copy(out, current)

	index := make(map[string]int, len(out))
	for i, m := range out {
		if _, seen := index[m.FieldID]; !seen {
			index[m.FieldID] = i
		}
	}

	for _, fieldID := range slices.Sorted(maps.Keys(suggestions)) {
		path := suggestions[fieldID]
		if i, ok := index[fieldID]; ok {
			if jsonpath.IsEmpty(out[i].JSONPath) {
				out[i].JSONPath = path
			}
			continue
		}
		index[fieldID] = len(out)
		out = append(out, Mapping{FieldID: fieldID, JSONPath: path})
	}
	return out
}
