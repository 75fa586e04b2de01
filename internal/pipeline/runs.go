package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/ocrstudio/internal/db"
	"github.com/ziadkadry99/ocrstudio/internal/extract"
)

// StatusError marks a run that failed before mappings could be applied, or
// whose payload broke an error-level validation rule.
const StatusError = extract.StatusError

// Run is the history record of one processed document.
type Run struct {
	ID              string         `json:"id"`
	ConfigID        string         `json:"configId,omitempty"`
	ModuleCode      string         `json:"moduleCode"`
	ConsignorCode   string         `json:"consignorCode,omitempty"`
	TransporterCode string         `json:"transporterCode,omitempty"`
	SourceName      string         `json:"sourceName"`
	Status          extract.Status `json:"status"`
	MissingFields   []string       `json:"missingMandatoryFields"`
	Error           string         `json:"error,omitempty"`
	DurationMS      int64          `json:"durationMs"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// RunFilter narrows List. Empty fields match everything.
type RunFilter struct {
	Module string
	Status extract.Status
	Limit  int
}

// RunStore persists Run records.
type RunStore struct {
	db *db.DB
}

// NewRunStore creates a RunStore.
func NewRunStore(database *db.DB) *RunStore {
	return &RunStore{db: database}
}

// Record inserts run, filling ID and CreatedAt when unset.
func (s *RunStore) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.MissingFields == nil {
		run.MissingFields = []string{}
	}
	missing, err := json.Marshal(run.MissingFields)
	if err != nil {
		return fmt.Errorf("encoding missing fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO extraction_runs
		(id, config_id, module_code, consignor_code, transporter_code, source_name,
		 status, missing_fields, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, nullable(run.ConfigID), run.ModuleCode, run.ConsignorCode, run.TransporterCode,
		run.SourceName, string(run.Status), string(missing), run.Error, run.DurationMS,
		db.FormatTime(run.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// List returns runs newest first.
func (s *RunStore) List(ctx context.Context, filter RunFilter) ([]Run, error) {
	var clauses []string
	var args []any
	if filter.Module != "" {
		clauses = append(clauses, "module_code = ?")
		args = append(args, filter.Module)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT id, coalesce(config_id, ''), module_code, consignor_code, transporter_code,
		source_name, status, missing_fields, error, duration_ms, created_at FROM extraction_runs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			run       Run
			status    string
			missing   string
			createdAt string
		)
		if err := rows.Scan(&run.ID, &run.ConfigID, &run.ModuleCode, &run.ConsignorCode,
			&run.TransporterCode, &run.SourceName, &status, &missing, &run.Error,
			&run.DurationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.Status = extract.Status(status)
		if err := json.Unmarshal([]byte(missing), &run.MissingFields); err != nil {
			run.MissingFields = []string{}
		}
		run.CreatedAt = db.ParseTime(createdAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
