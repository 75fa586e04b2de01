package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ziadkadry99/ocrstudio/internal/jsonpath"
	"github.com/ziadkadry99/ocrstudio/internal/ocrconfig"
)

// StatusError marks a document that failed an error-level rule, or a run
// that failed before mappings could be applied.
const StatusError Status = "error"

// Violation is a validation rule that did not hold for a document.
type Violation struct {
	RuleID  string               `json:"ruleId"`
	FieldID string               `json:"field"`
	Action  ocrconfig.RuleAction `json:"action"`
	Message string               `json:"message"`
	Value   any                  `json:"value"`
}

// Validate evaluates rules against the structured payload and records
// every violation. A failed error rule sets the status to error, and a
// failed warning rule lowers success to warning.
//
// Only not_empty and is_empty look at fields that are absent or empty;
// every other operator skips them, leaving presence to mandatory mappings
// and not_empty rules.
func (r *Result) Validate(rules ocrconfig.Rules) {
	if r.Violations == nil {
		r.Violations = []Violation{}
	}
	for _, rule := range rules {
		value, found := r.StructuredPayload[rule.FieldID]
		ok, checked := holds(rule, value, found)
		if !checked || ok {
			continue
		}
		if f, isNum := value.(float64); isNum && (math.IsNaN(f) || math.IsInf(f, 0)) {
			value = nil
		}
		r.Violations = append(r.Violations, Violation{
			RuleID:  rule.ID,
			FieldID: rule.FieldID,
			Action:  rule.Action,
			Message: rule.Message,
			Value:   value,
		})
		switch {
		case rule.Action == ocrconfig.ActionError:
			r.Status = StatusError
		case r.Status == StatusSuccess:
			r.Status = StatusWarning
		}
	}
}

// holds reports whether rule is satisfied by value. checked is false when
// the rule does not apply to an absent value.
func holds(rule ocrconfig.ValidationRule, value any, found bool) (ok, checked bool) {
	empty := !found || jsonpath.IsEmpty(value)
	switch rule.Operator {
	case ocrconfig.OpNotEmpty:
		return !empty, true
	case ocrconfig.OpIsEmpty:
		return empty, true
	}
	if empty {
		return false, false
	}

	text := Stringify(value)
	switch rule.Operator {
	case ocrconfig.OpEquals:
		return equal(value, text, rule.Value), true
	case ocrconfig.OpNotEquals:
		return !equal(value, text, rule.Value), true
	case ocrconfig.OpContains:
		return strings.Contains(text, rule.Value), true
	case ocrconfig.OpMatches:
		re, err := regexp.Compile(rule.Value)
		if err != nil {
			return false, true
		}
		return re.MatchString(text), true
	case ocrconfig.OpGreaterThan, ocrconfig.OpLessThan:
		limit, err := strconv.ParseFloat(strings.TrimSpace(rule.Value), 64)
		if err != nil {
			return false, true
		}
		n := number(value, text)
		if math.IsNaN(n) {
			return false, true
		}
		if rule.Operator == ocrconfig.OpGreaterThan {
			return n > limit, true
		}
		return n < limit, true
	}
	return false, true
}

// equal compares numerically when both sides are numbers, so 245.5
// equals "245.50", and as text otherwise.
func equal(value any, text, want string) bool {
	if f, ok := value.(float64); ok {
		if w, err := strconv.ParseFloat(strings.TrimSpace(want), 64); err == nil {
			return f == w
		}
	}
	return text == want
}

func number(value any, text string) float64 {
	if f, ok := value.(float64); ok {
		return f
	}
	return ParseNumber(text)
}
