package ocrconfig

import (
	"strconv"

	"github.com/ziadkadry99/ocrstudio/internal/audit"
)

func entryFor(c *Configuration, actor string, action audit.Action, change audit.ChangeType, summary, before, after string) audit.Entry {
	return audit.Entry{
		ActorID:         actor,
		Action:          action,
		ChangeType:      change,
		Entity:          "Config: " + c.Key().String(),
		ConfigID:        c.ID,
		ModuleCode:      c.ModuleCode,
		ConsignorCode:   c.ConsignorCode,
		TransporterCode: c.TransporterCode,
		Summary:         summary,
		PreviousValue:   before,
		NewValue:        after,
	}
}

// changeEntries describes the difference between two versions of a
// configuration. before is nil for a newly created row.
func changeEntries(before, after *Configuration, actor string) []audit.Entry {
	if before == nil {
		return []audit.Entry{entryFor(after, actor, audit.ActionConfigCreated, audit.ChangeConfig,
			"Config created", "", "New config created")}
	}

	var entries []audit.Entry

	if !before.IsActive {
		entries = append(entries, entryFor(after, actor, audit.ActionConfigUpdated, audit.ChangeConfig,
			"Config reactivated", "Inactive", "Active"))
	}

	if before.Prompt != after.Prompt {
		entries = append(entries, entryFor(after, actor, audit.ActionPromptUpdated, audit.ChangePrompt,
			"Prompt updated", before.Prompt, after.Prompt))
	}

	for _, m := range after.Mappings {
		old, ok := before.Mappings.Find(m.FieldID)
		switch {
		case !ok || (old.JSONPath == "" && m.JSONPath != ""):
			if m.JSONPath == "" {
				break
			}
			e := entryFor(after, actor, audit.ActionMappingAdded, audit.ChangeMapping,
				"Field mapping added", "", m.JSONPath)
			e.Entity = "Mapping: " + m.FieldID
			entries = append(entries, e)
		case old.JSONPath != m.JSONPath || old.Transform != m.Transform:
			e := entryFor(after, actor, audit.ActionMappingChanged, audit.ChangeMapping,
				"Field mapping changed", describe(old), describe(m))
			e.Entity = "Mapping: " + m.FieldID
			entries = append(entries, e)
		}

		if ok && old.Mandatory != m.Mandatory {
			e := entryFor(after, actor, audit.ActionMandatoryChanged, audit.ChangeMandatory,
				"Mandatory field changed", mandatoryLabel(old.Mandatory), mandatoryLabel(m.Mandatory))
			e.Entity = "Field: " + m.FieldID
			entries = append(entries, e)
		}
	}

	for _, old := range before.Mappings {
		if _, ok := after.Mappings.Find(old.FieldID); ok || old.JSONPath == "" {
			continue
		}
		e := entryFor(after, actor, audit.ActionMappingRemoved, audit.ChangeMapping,
			"Field mapping removed", old.JSONPath, "")
		e.Entity = "Mapping: " + old.FieldID
		entries = append(entries, e)
	}

	entries = append(entries, ruleEntries(before, after, actor)...)

	if len(entries) == 0 {
		entries = append(entries, entryFor(after, actor, audit.ActionConfigUpdated, audit.ChangeConfig,
			"Config saved without changes", "", ""))
	}
	return entries
}

func ruleEntries(before, after *Configuration, actor string) []audit.Entry {
	var entries []audit.Entry
	add := func(r ValidationRule, action audit.Action, summary, prev, next string) {
		e := entryFor(after, actor, action, audit.ChangeValidation, summary, prev, next)
		e.Entity = "Rule: " + r.ID
		entries = append(entries, e)
	}

	for _, r := range after.Rules {
		old, ok := before.Rules.Find(r.ID)
		switch {
		case !ok:
			add(r, audit.ActionRuleCreated, "Validation rule created", "", r.String())
		case old != r:
			add(r, audit.ActionRuleChanged, "Validation rule changed", old.String(), r.String())
		}
	}
	for _, old := range before.Rules {
		if _, ok := after.Rules.Find(old.ID); !ok {
			add(old, audit.ActionRuleRemoved, "Validation rule removed", old.String(), "")
		}
	}
	return entries
}

func describe(m Mapping) string {
	if m.Transform == TransformNone {
		return m.JSONPath
	}
	return m.JSONPath + " (" + string(m.Transform) + ")"
}

func mandatoryLabel(mandatory bool) string {
	if mandatory {
		return "Mandatory"
	}
	return "Optional"
}

// Summary returns a short description of a configuration for listings.
func Summary(c *Configuration) string {
	mapped := 0
	for _, m := range c.Mappings {
		if m.JSONPath != "" {
			mapped++
		}
	}
	return c.Key().String() + " (" + string(c.Level) + ", " + strconv.Itoa(mapped) + " mapped fields)"
}
