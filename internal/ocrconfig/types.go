// Package ocrconfig stores OCR configurations per (module, consignor,
// transporter) and resolves the most specific active one for a document.
package ocrconfig

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when no active configuration matches a key.
var ErrNotFound = errors.New("no configuration found")

// ErrModuleRequired is returned when a key has no module code.
var ErrModuleRequired = errors.New("module code is required")

// Level is the specificity of a configuration.
type Level string

const (
	LevelModule      Level = "module"
	LevelConsignor   Level = "consignor"
	LevelTransporter Level = "transporter"
)

// Key identifies a configuration. Empty codes mean "not set".
type Key struct {
	Module      string `json:"moduleCode"`
	Consignor   string `json:"consignorCode,omitempty"`
	Transporter string `json:"transporterCode,omitempty"`
}

// NewKey builds a Key from raw request values, trimming whitespace so that
// blank inputs are treated as absent.
func NewKey(module, consignor, transporter string) Key {
	return Key{
		Module:      strings.TrimSpace(module),
		Consignor:   strings.TrimSpace(consignor),
		Transporter: strings.TrimSpace(transporter),
	}
}

// Level reports the level a row stored under k sits at.
func (k Key) Level() Level {
	switch {
	case k.Transporter != "":
		return LevelTransporter
	case k.Consignor != "":
		return LevelConsignor
	default:
		return LevelModule
	}
}

// String renders the key the way the audit trail names configurations.
func (k Key) String() string {
	parts := []string{k.Module}
	if k.Consignor != "" {
		parts = append(parts, k.Consignor)
	}
	if k.Transporter != "" {
		parts = append(parts, k.Transporter)
	}
	return strings.Join(parts, " > ")
}

// Validate checks the key can be stored.
func (k Key) Validate() error {
	if k.Module == "" {
		return ErrModuleRequired
	}
	return nil
}

// Configuration is a stored prompt, field mappings and validation rules
// for one key.
type Configuration struct {
	ID              string    `json:"id"`
	ModuleCode      string    `json:"moduleCode"`
	ConsignorCode   string    `json:"consignorCode,omitempty"`
	TransporterCode string    `json:"transporterCode,omitempty"`
	Level           Level     `json:"level"`
	Prompt          string    `json:"prompt,omitempty"`
	Mappings        Mappings  `json:"fieldMappings"`
	Rules           Rules     `json:"validationRules"`
	CreatedBy       string    `json:"createdBy,omitempty"`
	UpdatedBy       string    `json:"updatedBy,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	IsActive        bool      `json:"isActive"`
}

// Key returns the key the configuration is stored under.
func (c *Configuration) Key() Key {
	return Key{Module: c.ModuleCode, Consignor: c.ConsignorCode, Transporter: c.TransporterCode}
}
