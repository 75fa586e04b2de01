// Package pipeline runs uploaded documents through the vision model and
// the configured field mappings.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ziadkadry99/ocrstudio/internal/extract"
	"github.com/ziadkadry99/ocrstudio/internal/fields"
	"github.com/ziadkadry99/ocrstudio/internal/llm"
	"github.com/ziadkadry99/ocrstudio/internal/logger"
	"github.com/ziadkadry99/ocrstudio/internal/ocrconfig"
	"github.com/ziadkadry99/ocrstudio/internal/prompt"
	"github.com/ziadkadry99/ocrstudio/internal/suggest"
)

// ErrNoProvider is returned when no vision provider is configured.
var ErrNoProvider = errors.New("no OCR provider configured")

// Extractor reads a document into JSON.
type Extractor interface {
	Extract(ctx context.Context, doc llm.Document, instructions string) (*llm.Extraction, error)
}

// Stage names a step reported while a document is processed.
type Stage string

const (
	StageResolving  Stage = "resolving"
	StageExtracting Stage = "extracting"
	StageSuggesting Stage = "suggesting"
	StageApplying   Stage = "applying"
)

// Request is one document to run for a configuration key.
type Request struct {
	Key            ocrconfig.Key
	Document       llm.Document
	OverridePrompt *string

	// OverrideMappings replaces the stored mappings when non-nil.
	OverrideMappings ocrconfig.Mappings

	// Progress, when set, is called as each stage starts.
	Progress func(Stage)
}

func (r *Request) report(s Stage) {
	if r.Progress != nil {
		r.Progress(s)
	}
}

// TestResult is the sandbox outcome: raw OCR output plus suggested mappings.
type TestResult struct {
	RawOcrOutput json.RawMessage      `json:"rawOcrOutput"`
	Prompt       string               `json:"prompt"`
	ConfigID     string               `json:"configId,omitempty"`
	Level        ocrconfig.Level      `json:"level,omitempty"`
	Suggestions  map[string]string    `json:"suggestions"`
	Ranked       []suggest.Suggestion `json:"ranked"`
	Mappings     ocrconfig.Mappings   `json:"fieldMappings"`
	Model        string               `json:"model,omitempty"`
	Cost         float64              `json:"cost"`
}

// ProcessResult is the production outcome for one document.
type ProcessResult struct {
	extract.Result
	Module       string          `json:"module"`
	Consignor    string          `json:"consignor,omitempty"`
	Transporter  string          `json:"transporter,omitempty"`
	ConfigID     string          `json:"configId,omitempty"`
	RawOcrOutput json.RawMessage `json:"rawOcrOutput"`
	RunID        string          `json:"runId,omitempty"`
	Cost         float64         `json:"cost"`
}

// MarshalJSON flattens the embedded Result, whose own MarshalJSON would
// otherwise replace the whole object.
func (p ProcessResult) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(p.Result)
	if err != nil {
		return nil, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	extra := map[string]any{
		"module":       p.Module,
		"rawOcrOutput": p.RawOcrOutput,
		"cost":         p.Cost,
	}
	if p.Consignor != "" {
		extra["consignor"] = p.Consignor
	}
	if p.Transporter != "" {
		extra["transporter"] = p.Transporter
	}
	if p.ConfigID != "" {
		extra["configId"] = p.ConfigID
	}
	if p.RunID != "" {
		extra["runId"] = p.RunID
	}
	for k, v := range extra {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		merged[k] = b
	}
	return json.Marshal(merged)
}

// Service wires configuration lookup, extraction and mapping together.
type Service struct {
	configs   ocrconfig.Finder
	extractor Extractor
	catalog   []fields.Field
	runs      *RunStore

	// SandboxPrompt and ProcessPrompt are the last-resort prompts.
	SandboxPrompt string
	ProcessPrompt string
}

// NewService creates a Service. runs may be nil to skip run history.
func NewService(configs ocrconfig.Finder, extractor Extractor, catalog []fields.Field, runs *RunStore) *Service {
	return &Service{
		configs:       configs,
		extractor:     extractor,
		catalog:       catalog,
		runs:          runs,
		SandboxPrompt: prompt.DefaultSandbox,
		ProcessPrompt: prompt.DefaultProcess,
	}
}

// Catalog returns the standard fields suggestions are made for.
func (s *Service) Catalog() []fields.Field {
	return s.catalog
}

// Runs returns the run history store, which may be nil.
func (s *Service) Runs() *RunStore {
	return s.runs
}

// resolve returns the configuration for key, or nil when none exists.
func (s *Service) resolve(ctx context.Context, key ocrconfig.Key) (*ocrconfig.Configuration, error) {
	cfg, err := ocrconfig.Resolve(ctx, s.configs, key)
	if errors.Is(err, ocrconfig.ErrNotFound) {
		return nil, nil
	}
	return cfg, err
}

func (s *Service) extract(ctx context.Context, req *Request, cfg *ocrconfig.Configuration, fallback string) (*llm.Extraction, string, error) {
	var configured *string
	if cfg != nil {
		configured = &cfg.Prompt
	}
	instructions := prompt.Choose(fallback, req.OverridePrompt, configured)

	if s.extractor == nil {
		return nil, instructions, ErrNoProvider
	}
	req.report(StageExtracting)
	ex, err := s.extractor.Extract(ctx, req.Document, instructions)
	return ex, instructions, err
}

// RunTest extracts a sample document and suggests mappings for it
// without applying anything.
func (s *Service) RunTest(ctx context.Context, req Request) (*TestResult, error) {
	key := ocrconfig.NewKey(req.Key.Module, req.Key.Consignor, req.Key.Transporter)

	var cfg *ocrconfig.Configuration
	if key.Module != "" {
		req.report(StageResolving)
		var err error
		if cfg, err = s.resolve(ctx, key); err != nil {
			return nil, fmt.Errorf("resolving %s: %w", key, err)
		}
	}

	ex, instructions, err := s.extract(ctx, &req, cfg, s.SandboxPrompt)
	if err != nil {
		return nil, err
	}

	req.report(StageSuggesting)
	ranked, err := suggest.Rank(s.catalog, ex.Raw)
	if err != nil {
		return nil, fmt.Errorf("suggesting mappings: %w", err)
	}
	sugg := make(map[string]string, len(ranked))
	for _, sg := range ranked {
		sugg[sg.FieldID] = sg.Path
	}

	current := ocrconfig.DefaultMappings(s.catalog)
	res := &TestResult{
		RawOcrOutput: ex.Raw,
		Prompt:       instructions,
		Suggestions:  sugg,
		Ranked:       ranked,
		Model:        ex.Model,
		Cost:         ex.Cost,
	}
	if cfg != nil {
		res.ConfigID = cfg.ID
		res.Level = cfg.Level
		current = cfg.Mappings
	}
	res.Mappings = ocrconfig.MergeSuggestions(current, sugg)

	log := logger.FromContext(ctx)
	log.Debug().
		Str("key", key.String()).
		Int("suggestions", len(sugg)).
		Str("model", ex.Model).
		Msg("sandbox test complete")
	return res, nil
}

// ProcessDocument extracts a document and applies the resolved mappings.
// The key's module is required. Every attempt is recorded in run history.
func (s *Service) ProcessDocument(ctx context.Context, req Request) (*ProcessResult, error) {
	key := ocrconfig.NewKey(req.Key.Module, req.Key.Consignor, req.Key.Transporter)
	if err := key.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	run := &Run{
		ModuleCode:      key.Module,
		ConsignorCode:   key.Consignor,
		TransporterCode: key.Transporter,
		SourceName:      req.Document.Name,
	}

	res, err := s.process(ctx, &req, key, run)
	run.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		run.Status = StatusError
		run.Error = err.Error()
	} else {
		run.Status = res.Status
		run.MissingFields = res.MissingFields
	}
	s.record(ctx, run)
	if err != nil {
		return nil, err
	}
	res.RunID = run.ID
	return res, nil
}

func (s *Service) process(ctx context.Context, req *Request, key ocrconfig.Key, run *Run) (*ProcessResult, error) {
	req.report(StageResolving)
	cfg, err := s.resolve(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", key, err)
	}

	mappings := ocrconfig.Mappings{}
	var rules ocrconfig.Rules
	configID := ""
	if cfg != nil {
		mappings = cfg.Mappings
		rules = cfg.Rules
		configID = cfg.ID
		run.ConfigID = cfg.ID
	}
	if req.OverrideMappings != nil {
		mappings = req.OverrideMappings
	}

	ex, _, err := s.extract(ctx, req, cfg, s.ProcessPrompt)
	if err != nil {
		return nil, err
	}

	req.report(StageApplying)
	result := extract.Apply(ex.Raw, mappings)
	result.Validate(rules)

	log := logger.FromContext(ctx)
	if len(result.MissingFields) > 0 {
		log.Warn().Str("key", key.String()).Strs("missing", result.MissingFields).Msg("mandatory fields missing")
	}
	for _, v := range result.Violations {
		log.Warn().Str("key", key.String()).Str("rule", v.RuleID).Str("field", v.FieldID).
			Str("action", string(v.Action)).Msg("validation rule failed")
	}
	log.Info().Str("key", key.String()).Str("status", string(result.Status)).Msg("document processed")

	return &ProcessResult{
		Result:       result,
		Module:       key.Module,
		Consignor:    key.Consignor,
		Transporter:  key.Transporter,
		ConfigID:     configID,
		RawOcrOutput: ex.Raw,
		Cost:         ex.Cost,
	}, nil
}

func (s *Service) record(ctx context.Context, run *Run) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Record(ctx, run); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("recording extraction run")
	}
}
