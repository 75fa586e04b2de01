package audit

import "time"

// Action describes what was done.
type Action string

const (
	ActionConfigCreated     Action = "config_created"
	ActionConfigUpdated     Action = "config_updated"
	ActionConfigDeactivated Action = "config_deactivated"
	ActionConfigCloned      Action = "config_cloned"
	ActionPromptUpdated     Action = "prompt_updated"
	ActionMappingAdded      Action = "mapping_added"
	ActionMappingChanged    Action = "mapping_changed"
	ActionMappingRemoved    Action = "mapping_removed"
	ActionMandatoryChanged  Action = "mandatory_changed"
	ActionRuleCreated       Action = "validation_rule_created"
	ActionRuleChanged       Action = "validation_rule_changed"
	ActionRuleRemoved       Action = "validation_rule_removed"
)

// ChangeType groups actions the way the audit view filters them.
type ChangeType string

const (
	ChangePrompt     ChangeType = "prompt"
	ChangeMapping    ChangeType = "mapping"
	ChangeMandatory  ChangeType = "mandatory"
	ChangeValidation ChangeType = "validation"
	ChangeConfig     ChangeType = "config"
)

// Entry is a single audit trail record.
type Entry struct {
	ID              string     `json:"id"`
	Timestamp       time.Time  `json:"timestamp"`
	ActorID         string     `json:"user"`
	Action          Action     `json:"action"`
	ChangeType      ChangeType `json:"changeType"`
	Entity          string     `json:"entity"`
	ConfigID        string     `json:"configId,omitempty"`
	ModuleCode      string     `json:"moduleCode,omitempty"`
	ConsignorCode   string     `json:"consignorCode,omitempty"`
	TransporterCode string     `json:"transporterCode,omitempty"`
	Summary         string     `json:"summary,omitempty"`
	PreviousValue   string     `json:"before,omitempty"`
	NewValue        string     `json:"after,omitempty"`
}
