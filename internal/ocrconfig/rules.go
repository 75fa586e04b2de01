package ocrconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidRule is wrapped by every rule that cannot be evaluated.
var ErrInvalidRule = errors.New("invalid validation rule")

// Operator is the comparison a validation rule applies to a field value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
	OpNotEmpty    Operator = "not_empty"
	OpIsEmpty     Operator = "is_empty"
	OpMatches     Operator = "matches"
)

// RuleAction is how a failed rule is reported.
type RuleAction string

const (
	ActionError   RuleAction = "error"
	ActionWarning RuleAction = "warning"
)

// ValidationRule asserts something about one extracted field. When the
// assertion does not hold, Message is reported with the rule's Action.
type ValidationRule struct {
	ID       string     `json:"id"`
	FieldID  string     `json:"field"`
	Operator Operator   `json:"operator"`
	Value    string     `json:"value"`
	Action   RuleAction `json:"action"`
	Message  string     `json:"message"`
}

// NeedsValue reports whether the operator compares against Value.
func (r ValidationRule) NeedsValue() bool {
	return r.Operator != OpNotEmpty && r.Operator != OpIsEmpty
}

// Validate checks that the rule can be evaluated.
func (r ValidationRule) Validate() error {
	if r.FieldID == "" {
		return fmt.Errorf("%w %s: field is required", ErrInvalidRule, r.ID)
	}
	switch r.Operator {
	case OpEquals, OpNotEquals, OpContains, OpNotEmpty, OpIsEmpty:
	case OpGreaterThan, OpLessThan:
		if _, err := strconv.ParseFloat(strings.TrimSpace(r.Value), 64); err != nil {
			return fmt.Errorf("%w %s: %s needs a numeric value, got %q", ErrInvalidRule, r.ID, r.Operator, r.Value)
		}
	case OpMatches:
		if _, err := regexp.Compile(r.Value); err != nil {
			return fmt.Errorf("%w %s: bad pattern: %v", ErrInvalidRule, r.ID, err)
		}
	default:
		return fmt.Errorf("%w %s: unknown operator %q", ErrInvalidRule, r.ID, r.Operator)
	}
	switch r.Action {
	case ActionError, ActionWarning:
	default:
		return fmt.Errorf("%w %s: unknown action %q", ErrInvalidRule, r.ID, r.Action)
	}
	return nil
}

// String renders the rule for the audit trail, e.g. "weight greater_than 0 -> error".
func (r ValidationRule) String() string {
	parts := []string{r.FieldID, string(r.Operator)}
	if r.NeedsValue() {
		parts = append(parts, r.Value)
	}
	return strings.Join(parts, " ") + " -> " + string(r.Action)
}

// Rules is the ordered rule list of a configuration.
type Rules []ValidationRule

// MarshalJSON always writes a list.
func (rs Rules) MarshalJSON() ([]byte, error) {
	if rs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]ValidationRule(rs))
}

// Find returns the rule with the given id.
func (rs Rules) Find(id string) (ValidationRule, bool) {
	for _, r := range rs {
		if r.ID == id {
			return r, true
		}
	}
	return ValidationRule{}, false
}

// ParseRules decodes a JSON rule list, normalises names and checks every
// rule. Rules without an id are numbered "rule-1", "rule-2" and so on,
// skipping ids already taken. An empty action defaults to error.
func ParseRules(raw []byte) (Rules, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return Rules{}, nil
	}

	var rules Rules
	if err := json.Unmarshal([]byte(trimmed), (*[]ValidationRule)(&rules)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	taken := make(map[string]bool, len(rules))
	for i := range rules {
		r := &rules[i]
		r.ID = strings.TrimSpace(r.ID)
		r.FieldID = strings.TrimSpace(r.FieldID)
		r.Operator = Operator(strings.ToLower(strings.TrimSpace(string(r.Operator))))
		r.Action = RuleAction(strings.ToLower(strings.TrimSpace(string(r.Action))))
		if r.Action == "" {
			r.Action = ActionError
		}
		if r.ID != "" {
			if taken[r.ID] {
				return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidRule, r.ID)
			}
			taken[r.ID] = true
		}
	}

	next := 1
	for i := range rules {
		if rules[i].ID != "" {
			continue
		}
		for taken["rule-"+strconv.Itoa(next)] {
			next++
		}
		rules[i].ID = "rule-" + strconv.Itoa(next)
		taken[rules[i].ID] = true
	}

	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	if rules == nil {
		rules = Rules{}
	}
	return rules, nil
}
