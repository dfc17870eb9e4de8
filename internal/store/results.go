package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"vestry/internal/event"
)

const resultColumns = "module, status, skip_reason, output_files_json, error_kind, error_detail, started_at, finished_at, attempts"

// SaveModuleResult upserts one module execution result. The previous result
// stays visible until this write completes; there is no interim empty state.
func (s *Store) SaveModuleResult(ctx context.Context, eventID string, res event.ModuleResult) error {
	ctx = ensureContext(ctx)
	outputsJSON, err := marshalInputs(res.OutputFiles)
	if err != nil {
		return fmt.Errorf("marshal output files: %w", err)
	}

	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO module_results (event_id, `+resultColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (event_id, module) DO UPDATE SET
            status = excluded.status,
            skip_reason = excluded.skip_reason,
            output_files_json = excluded.output_files_json,
            error_kind = excluded.error_kind,
            error_detail = excluded.error_detail,
            started_at = excluded.started_at,
            finished_at = excluded.finished_at,
            attempts = excluded.attempts`,
		eventID,
		res.Module,
		string(res.Status),
		nullableString(string(res.SkipReason)),
		outputsJSON,
		nullableString(res.ErrorKind),
		nullableString(res.ErrorDetail),
		formatTime(res.StartedAt),
		formatTime(res.FinishedAt),
		res.Attempts,
	)
	if err != nil {
		return fmt.Errorf("save module result: %w", err)
	}
	return nil
}

// ModuleResults loads all recorded results for an event, keyed by module name.
func (s *Store) ModuleResults(ctx context.Context, eventID string) (map[string]event.ModuleResult, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM module_results WHERE event_id = ?`, eventID)
	if err != nil {
		return nil, fmt.Errorf("load module results: %w", err)
	}
	defer rows.Close()

	results := make(map[string]event.ModuleResult)
	for rows.Next() {
		var (
			module      string
			status      string
			skipReason  sql.NullString
			outputsJSON sql.NullString
			errorKind   sql.NullString
			errorDetail sql.NullString
			startedRaw  string
			finishedRaw string
			attempts    int
		)
		if err := rows.Scan(&module, &status, &skipReason, &outputsJSON, &errorKind, &errorDetail, &startedRaw, &finishedRaw, &attempts); err != nil {
			return nil, fmt.Errorf("scan module result: %w", err)
		}

		var outputs []string
		if outputsJSON.Valid && outputsJSON.String != "" {
			if err := json.Unmarshal([]byte(outputsJSON.String), &outputs); err != nil {
				return nil, fmt.Errorf("parse output files for %s/%s: %w", eventID, module, err)
			}
		}

		results[module] = event.ModuleResult{
			Module:      module,
			Status:      event.ResultStatus(status),
			SkipReason:  event.SkipReason(skipReason.String),
			OutputFiles: outputs,
			ErrorKind:   errorKind.String,
			ErrorDetail: errorDetail.String,
			StartedAt:   parseTime(startedRaw),
			FinishedAt:  parseTime(finishedRaw),
			Attempts:    attempts,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate module results: %w", err)
	}
	return results, nil
}
