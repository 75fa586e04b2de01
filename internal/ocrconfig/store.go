package ocrconfig

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/ocrstudio/internal/audit"
	"github.com/ziadkadry99/ocrstudio/internal/db"
	"github.com/ziadkadry99/ocrstudio/internal/logger"
)

// Finder looks up the active configuration stored under an exact key.
// It returns ErrNotFound when there is none.
type Finder interface {
	FindActive(ctx context.Context, key Key) (*Configuration, error)
}

// Store persists configurations in SQLite and records every change in the
// audit trail.
type Store struct {
	db    *db.DB
	audit *audit.Store
}

// NewStore creates a Store. auditStore may be nil to skip audit records.
func NewStore(database *db.DB, auditStore *audit.Store) *Store {
	return &Store{db: database, audit: auditStore}
}

// UpsertInput carries the values written by Upsert. A nil Prompt, nil
// Mappings or nil Rules leaves the stored value unchanged on update.
type UpsertInput struct {
	Key       Key
	Prompt    *string
	Mappings  Mappings
	Rules     Rules
	UpdatedBy string
}

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	Module          string
	Consignor       string
	Transporter     string
	IncludeInactive bool
}

const columns = `id, module_code, consignor_code, transporter_code, prompt, field_mappings,
	validation_rules, is_active, created_by, updated_by, created_at, updated_at`

const keyClause = `module_code = ? AND coalesce(consignor_code, '') = ? AND coalesce(transporter_code, '') = ?`

// queryer is implemented by both *db.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Get retrieves a configuration by id, active or not.
func (s *Store) Get(ctx context.Context, id string) (*Configuration, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM ocr_configs WHERE id = ?", id)
	return scanConfig(row)
}

// FindActive returns the active configuration stored under exactly key.
func (s *Store) FindActive(ctx context.Context, key Key) (*Configuration, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+columns+" FROM ocr_configs WHERE "+keyClause+" AND is_active = 1",
		key.Module, key.Consignor, key.Transporter)
	return scanConfig(row)
}

func findAny(ctx context.Context, q queryer, key Key) (*Configuration, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+columns+" FROM ocr_configs WHERE "+keyClause,
		key.Module, key.Consignor, key.Transporter)
	return scanConfig(row)
}

// List returns configurations matching the filter, most recently updated
// first. Inactive rows are skipped unless IncludeInactive is set.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Configuration, error) {
	var (
		clauses []string
		args    []any
	)

	if !filter.IncludeInactive {
		clauses = append(clauses, "is_active = 1")
	}
	if filter.Module != "" {
		clauses = append(clauses, "module_code = ?")
		args = append(args, filter.Module)
	}
	if filter.Consignor != "" {
		clauses = append(clauses, "consignor_code = ?")
		args = append(args, filter.Consignor)
	}
	if filter.Transporter != "" {
		clauses = append(clauses, "transporter_code = ?")
		args = append(args, filter.Transporter)
	}

	query := "SELECT " + columns + " FROM ocr_configs"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY updated_at DESC, rowid DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying configurations: %w", err)
	}
	defer rows.Close()

	configs := []Configuration{}
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *c)
	}
	return configs, rows.Err()
}

// Upsert creates the configuration for in.Key or updates the existing row
// in place. An update keeps the id, creator and creation time, and
// reactivates a deactivated row.
func (s *Store) Upsert(ctx context.Context, in UpsertInput) (*Configuration, error) {
	if err := in.Key.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := findAny(ctx, tx, in.Key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := db.FormatTime(time.Now())
	var id string

	if existing == nil {
		id = uuid.New().String()
		mappings := in.Mappings
		if mappings == nil {
			mappings = Mappings{}
		}
		encoded, err := json.Marshal(mappings)
		if err != nil {
			return nil, fmt.Errorf("encoding field mappings: %w", err)
		}
		rules, err := encodeRules(in.Rules)
		if err != nil {
			return nil, err
		}
		var prompt sql.NullString
		if in.Prompt != nil {
			prompt = nullString(*in.Prompt)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ocr_configs (
				id, module_code, consignor_code, transporter_code, prompt,
				field_mappings, validation_rules, is_active, created_by, updated_by, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)`,
			id, in.Key.Module, nullString(in.Key.Consignor), nullString(in.Key.Transporter), prompt,
			string(encoded), rules, in.UpdatedBy, in.UpdatedBy, now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting configuration: %w", err)
		}
	} else {
		id = existing.ID
		prompt := nullString(existing.Prompt)
		if in.Prompt != nil {
			prompt = nullString(*in.Prompt)
		}
		mappings := existing.Mappings
		if in.Mappings != nil {
			mappings = in.Mappings
		}
		encoded, err := json.Marshal(mappings)
		if err != nil {
			return nil, fmt.Errorf("encoding field mappings: %w", err)
		}
		ruleList := existing.Rules
		if in.Rules != nil {
			ruleList = in.Rules
		}
		rules, err := encodeRules(ruleList)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE ocr_configs SET prompt = ?, field_mappings = ?, validation_rules = ?,
				updated_by = ?, updated_at = ?, is_active = 1
			WHERE id = ?`,
			prompt, string(encoded), rules, in.UpdatedBy, now, id,
		)
		if err != nil {
			return nil, fmt.Errorf("updating configuration: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing configuration: %w", err)
	}

	saved, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, changeEntries(existing, saved, in.UpdatedBy))
	return saved, nil
}

// Deactivate soft-deletes the active configuration under key. The row is
// kept so the audit trail and ListAll still see it.
func (s *Store) Deactivate(ctx context.Context, key Key, actor string) error {
	existing, err := s.FindActive(ctx, key)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE ocr_configs SET is_active = 0, updated_by = ?, updated_at = ? WHERE id = ?",
		actor, db.FormatTime(time.Now()), existing.ID)
	if err != nil {
		return fmt.Errorf("deactivating configuration: %w", err)
	}

	s.record(ctx, []audit.Entry{entryFor(existing, actor, audit.ActionConfigDeactivated, audit.ChangeConfig,
		"Config deactivated", "Active", "Inactive")})
	return nil
}

// Clone copies the prompt, mappings and rules of the active configuration under
// source onto every target key.
func (s *Store) Clone(ctx context.Context, source Key, targets []Key, actor string) ([]Configuration, error) {
	from, err := s.FindActive(ctx, source)
	if err != nil {
		return nil, err
	}

	prompt := from.Prompt
	out := make([]Configuration, 0, len(targets))
	for _, target := range targets {
		if target == source {
			continue
		}
		saved, err := s.Upsert(ctx, UpsertInput{
			Key:       target,
			Prompt:    &prompt,
			Mappings:  from.Mappings,
			Rules:     from.Rules,
			UpdatedBy: actor,
		})
		if err != nil {
			return out, fmt.Errorf("cloning to %s: %w", target, err)
		}
		s.record(ctx, []audit.Entry{entryFor(saved, actor, audit.ActionConfigCloned, audit.ChangeConfig,
			"Config cloned", "Cloned from: "+source.String(), "Config: "+target.String())})
		out = append(out, *saved)
	}
	return out, nil
}

func (s *Store) record(ctx context.Context, entries []audit.Entry) {
	if s.audit == nil {
		return
	}
	log := logger.FromContext(ctx)
	for _, e := range entries {
		if err := s.audit.Log(ctx, e); err != nil {
			log.Warn().Err(err).Str("config_id", e.ConfigID).Str("action", string(e.Action)).
				Msg("recording audit entry")
		}
	}
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanConfig(sc scanner) (*Configuration, error) {
	var (
		c                              Configuration
		consignor, transporter, prompt sql.NullString
		mappingsJSON, rulesJSON        string
		created, updated               string
		active                         int
	)

	err := sc.Scan(&c.ID, &c.ModuleCode, &consignor, &transporter, &prompt, &mappingsJSON,
		&rulesJSON, &active, &c.CreatedBy, &c.UpdatedBy, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning configuration: %w", err)
	}

	c.ConsignorCode = consignor.String
	c.TransporterCode = transporter.String
	c.Prompt = prompt.String
	c.IsActive = active != 0
	c.CreatedAt = db.ParseTime(created)
	c.UpdatedAt = db.ParseTime(updated)
	c.Level = c.Key().Level()

	c.Mappings, err = ParseMappings([]byte(mappingsJSON))
	if err != nil {
		return nil, fmt.Errorf("configuration %s: %w", c.ID, err)
	}
	c.Rules, err = ParseRules([]byte(rulesJSON))
	if err != nil {
		return nil, fmt.Errorf("configuration %s: %w", c.ID, err)
	}
	return &c, nil
}

// encodeRules normalises rules through ParseRules so stored rows always
// carry ids and valid operators.
func encodeRules(rules Rules) (string, error) {
	raw, err := json.Marshal(rules)
	if err != nil {
		return "", fmt.Errorf("encoding validation rules: %w", err)
	}
	normalized, err := ParseRules(raw)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("encoding validation rules: %w", err)
	}
	return string(encoded), nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
