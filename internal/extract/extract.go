// Package extract applies field mappings to OCR output and reports which
// mandatory fields could not be filled.
package extract

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/ziadkadry99/ocrstudio/internal/jsonpath"
	"github.com/ziadkadry99/ocrstudio/internal/ocrconfig"
)

// Status summarises an extraction.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
)

// MappingUse records whether a mapping's path resolved in the document.
type MappingUse struct {
	FieldID  string `json:"fieldKey"`
	JSONPath string `json:"jsonPath"`
	Found    bool   `json:"found"`
}

// Result is the outcome of applying mappings to one document.
type Result struct {
	// StructuredPayload holds every found value keyed by field id. A NUMBER
	// transform that cannot parse its input stores math.NaN().
	StructuredPayload map[string]any `json:"structuredPayload"`

	MissingFields []string `json:"missingMandatoryFields"`

	// InvalidFields lists fields whose NUMBER transform produced NaN.
	InvalidFields []string `json:"invalidFields"`

	MappingUsed []MappingUse `json:"mappingUsed"`

	// Violations lists the validation rules the payload failed. It is
	// filled by Validate.
	Violations []Violation `json:"validationResults"`

	Status Status `json:"status"`
}

// Apply resolves every mapping against raw. It never fails: unparseable
// documents simply resolve nothing.
func Apply(raw []byte, mappings ocrconfig.Mappings) Result {
	res := Result{
		StructuredPayload: make(map[string]any),
		MissingFields:     []string{},
		InvalidFields:     []string{},
		MappingUsed:       make([]MappingUse, 0, len(mappings)),
		Violations:        []Violation{},
	}

	for _, m := range mappings {
		var (
			value any
			found bool
		)
		if m.JSONPath != "" {
			value, found = jsonpath.Lookup(raw, m.JSONPath)
		}

		if found && value != nil {
			value = transform(value, m.Transform)
			if f, ok := value.(float64); ok && math.IsNaN(f) {
				res.InvalidFields = append(res.InvalidFields, m.FieldID)
			}
		}

		if m.Mandatory && (!found || jsonpath.IsEmpty(value)) {
			res.MissingFields = append(res.MissingFields, m.FieldID)
		}
		if found {
			res.StructuredPayload[m.FieldID] = value
		}
		res.MappingUsed = append(res.MappingUsed, MappingUse{FieldID: m.FieldID, JSONPath: m.JSONPath, Found: found})
	}

	res.Status = StatusSuccess
	if len(res.MissingFields) > 0 {
		res.Status = StatusWarning
	}
	return res
}

func transform(value any, t ocrconfig.Transform) any {
	switch t {
	case ocrconfig.TransformUppercase:
		return strings.ToUpper(Stringify(value))
	case ocrconfig.TransformTrim:
		return strings.TrimSpace(Stringify(value))
	case ocrconfig.TransformNumber:
		return ParseNumber(Stringify(value))
	}
	return value
}

// MarshalJSON encodes NaN payload values as null, which JSON can carry.
func (r Result) MarshalJSON() ([]byte, error) {
	payload := make(map[string]any, len(r.StructuredPayload))
	for k, v := range r.StructuredPayload {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			v = nil
		}
		payload[k] = v
	}

	type plain Result
	out := plain(r)
	out.StructuredPayload = payload
	return json.Marshal(out)
}
