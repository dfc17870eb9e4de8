package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"vestry/internal/event"
)

const eventColumns = "event_id, title, speaker, series, scripture, language, notes, toggles_json, inputs_json, archived, created_at, updated_at"

// CreateEvent inserts a new event. The event id must be unique for the
// lifetime of the store.
func (s *Store) CreateEvent(ctx context.Context, ev *event.Event) error {
	ctx = ensureContext(ctx)
	togglesJSON, err := json.Marshal(ev.Toggles)
	if err != nil {
		return fmt.Errorf("marshal toggles: %w", err)
	}
	inputsJSON, err := marshalInputs(ev.Inputs)
	if err != nil {
		return err
	}

	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID,
		ev.Metadata.Title,
		nullableString(ev.Metadata.Speaker),
		nullableString(ev.Metadata.Series),
		nullableString(ev.Metadata.Scripture),
		nullableString(ev.Metadata.Language),
		nullableString(ev.Metadata.Notes),
		string(togglesJSON),
		inputsJSON,
		boolToInt(ev.Archived),
		formatTime(ev.CreatedAt),
		formatTime(ev.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrEventExists, ev.ID)
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetEvent loads one event with its module results.
func (s *Store) GetEvent(ctx context.Context, eventID string) (*event.Event, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE event_id = ?`, eventID)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
		}
		return nil, fmt.Errorf("load event: %w", err)
	}

	results, err := s.ModuleResults(ctx, eventID)
	if err != nil {
		return nil, err
	}
	ev.Results = results
	return ev, nil
}

// ListEvents returns all events newest-first, each with its module results.
func (s *Store) ListEvents(ctx context.Context) ([]*event.Event, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY created_at DESC, event_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*event.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	for _, ev := range events {
		results, err := s.ModuleResults(ctx, ev.ID)
		if err != nil {
			return nil, err
		}
		ev.Results = results
	}
	return events, nil
}

// UpdateEvent persists metadata, toggles, inputs, and the archived flag.
// Module results are written exclusively through SaveModuleResult.
func (s *Store) UpdateEvent(ctx context.Context, ev *event.Event) error {
	ctx = ensureContext(ctx)
	togglesJSON, err := json.Marshal(ev.Toggles)
	if err != nil {
		return fmt.Errorf("marshal toggles: %w", err)
	}
	inputsJSON, err := marshalInputs(ev.Inputs)
	if err != nil {
		return err
	}
	ev.UpdatedAt = time.Now().UTC()

	res, err := s.execWithRetry(
		ctx,
		`UPDATE events SET title = ?, speaker = ?, series = ?, scripture = ?, language = ?, notes = ?,
            toggles_json = ?, inputs_json = ?, archived = ?, updated_at = ?
         WHERE event_id = ?`,
		ev.Metadata.Title,
		nullableString(ev.Metadata.Speaker),
		nullableString(ev.Metadata.Series),
		nullableString(ev.Metadata.Scripture),
		nullableString(ev.Metadata.Language),
		nullableString(ev.Metadata.Notes),
		string(togglesJSON),
		inputsJSON,
		boolToInt(ev.Archived),
		formatTime(ev.UpdatedAt),
		ev.ID,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrEventNotFound, ev.ID)
	}
	return nil
}

// RemoveEvent deletes an event along with its results and any lock row.
func (s *Store) RemoveEvent(ctx context.Context, eventID string) (bool, error) {
	res, err := s.execWithRetry(ensureContext(ctx), `DELETE FROM events WHERE event_id = ?`, eventID)
	if err != nil {
		return false, fmt.Errorf("remove event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove event rows: %w", err)
	}
	return affected > 0, nil
}

func scanEvent(scanner interface{ Scan(dest ...any) error }) (*event.Event, error) {
	var (
		id          string
		title       string
		speaker     sql.NullString
		series      sql.NullString
		scripture   sql.NullString
		language    sql.NullString
		notes       sql.NullString
		togglesJSON string
		inputsJSON  sql.NullString
		archived    int64
		createdRaw  string
		updatedRaw  string
	)

	if err := scanner.Scan(
		&id,
		&title,
		&speaker,
		&series,
		&scripture,
		&language,
		&notes,
		&togglesJSON,
		&inputsJSON,
		&archived,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	toggles := map[string]bool{}
	if togglesJSON != "" {
		if err := json.Unmarshal([]byte(togglesJSON), &toggles); err != nil {
			return nil, fmt.Errorf("parse toggles for %s: %w", id, err)
		}
	}
	var inputs []string
	if inputsJSON.Valid && inputsJSON.String != "" {
		if err := json.Unmarshal([]byte(inputsJSON.String), &inputs); err != nil {
			return nil, fmt.Errorf("parse inputs for %s: %w", id, err)
		}
	}

	return &event.Event{
		ID: id,
		Metadata: event.Metadata{
			Title:     title,
			Speaker:   speaker.String,
			Series:    series.String,
			Scripture: scripture.String,
			Language:  language.String,
			Notes:     notes.String,
		},
		Toggles:   toggles,
		Inputs:    inputs,
		Archived:  archived != 0,
		CreatedAt: parseTime(createdRaw),
		UpdatedAt: parseTime(updatedRaw),
	}, nil
}

func marshalInputs(inputs []string) (any, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("marshal inputs: %w", err)
	}
	return string(data), nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
