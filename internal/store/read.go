package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/officeswitcher/officeswitcher/internal/engine"
)

// ErrPassNotFound is returned by ReadPass for an unknown pass id.
var ErrPassNotFound = errors.New("pass not found")

// PassSummary is one line of the journal listing.
type PassSummary struct {
	Seq         int64     `json:"seq"`
	ID          string    `json:"id"`
	RecordedAt  time.Time `json:"recorded_at"`
	Umbrella    bool      `json:"umbrella"`
	Registered  int       `json:"registered"`
	Suppressed  int       `json:"suppressed"`
	Diagnostics int       `json:"diagnostics"`
}

// HistoryEntry is one integration's outcome in one pass.
type HistoryEntry struct {
	PassID     string        `json:"pass_id"`
	RecordedAt time.Time     `json:"recorded_at"`
	Status     engine.Status `json:"status"`
	ActionID   string        `json:"action_id,omitempty"`
	Mimes      []string      `json:"mimes"`
}

// ListPasses returns the most recent passes, newest first. limit <= 0 returns all.
func (s *Store) ListPasses(ctx context.Context, limit int) ([]PassSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.seq, p.id, p.recorded_at, p.umbrella_id IS NOT NULL, p.suppressed,
			(SELECT COUNT(*) FROM outcomes o WHERE o.pass_id = p.id AND o.status = 'registered'),
			(SELECT COUNT(*) FROM diagnostics d WHERE d.pass_id = p.id)
		FROM passes p
		ORDER BY p.seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	passes := []PassSummary{}
	for rows.Next() {
		var (
			p          PassSummary
			recordedAt string
			suppressed string
		)
		if err := rows.Scan(&p.Seq, &p.ID, &recordedAt, &p.Umbrella, &suppressed, &p.Registered, &p.Diagnostics); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		if p.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		ids, err := unmarshalStrings(suppressed)
		if err != nil {
			return nil, err
		}
		p.Suppressed = len(ids)
		if p.Umbrella {
			p.Registered++
		}
		passes = append(passes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}
	return passes, nil
}

// ReadPass reconstructs the Report recorded under id.
func (s *Store) ReadPass(ctx context.Context, id string) (*engine.Report, error) {
	var (
		umbrellaID sql.NullString
		order      int
		children   string
		suppressed string
		missing    string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT umbrella_id, umbrella_order, umbrella_children, suppressed, missing_legacy
		FROM passes WHERE id = ?
	`, id).Scan(&umbrellaID, &order, &children, &suppressed, &missing)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read pass %s: %w", id, ErrPassNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read pass %s: %w", id, err)
	}

	r := &engine.Report{PassID: id, Diagnostics: []engine.Diagnostic{}}
	if r.Suppressed, err = unmarshalStrings(suppressed); err != nil {
		return nil, err
	}
	if r.Missing, err = unmarshalStrings(missing); err != nil {
		return nil, err
	}
	if umbrellaID.Valid {
		ids, err := unmarshalStrings(children)
		if err != nil {
			return nil, err
		}
		r.Umbrella = &engine.UmbrellaReport{ActionID: umbrellaID.String, Order: order, Children: ids}
	}

	if r.Integrations, err = s.readOutcomes(ctx, id); err != nil {
		return nil, err
	}
	if r.Diagnostics, err = s.readDiagnostics(ctx, id); err != nil {
		return nil, err
	}
	return r, nil
}

// readOutcomes returns a pass's outcomes in configured order, nil if there are none.
func (s *Store) readOutcomes(ctx context.Context, passID string) ([]engine.IntegrationReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT integration, source, status, action_id, exec, native_action, mimes, icon_fallback
		FROM outcomes
		WHERE pass_id = ?
		ORDER BY position ASC
	`, passID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []engine.IntegrationReport
	for rows.Next() {
		var (
			in     engine.IntegrationReport
			status string
			mimes  string
		)
		if err := rows.Scan(&in.Integration, &in.Source, &status, &in.ActionID, &in.Exec, &in.NativeAction, &mimes, &in.IconFallback); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		in.Status = engine.Status(status)
		if in.Mimes, err = unmarshalStrings(mimes); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return out, nil
}

func (s *Store) readDiagnostics(ctx context.Context, passID string) ([]engine.Diagnostic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, code, integration, message
		FROM diagnostics
		WHERE pass_id = ?
		ORDER BY seq ASC
	`, passID)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	out := []engine.Diagnostic{}
	for rows.Next() {
		var (
			d    engine.Diagnostic
			code string
		)
		if err := rows.Scan(&d.Seq, &code, &d.Integration, &d.Message); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		d.Code = engine.ErrorCode(code)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostics: %w", err)
	}
	return out, nil
}

// History returns integration's outcomes across passes, newest first. limit <= 0 returns all.
func (s *Store) History(ctx context.Context, integration string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.pass_id, p.recorded_at, o.status, o.action_id, o.mimes
		FROM outcomes o
		JOIN passes p ON p.id = o.pass_id
		WHERE o.integration = ?
		ORDER BY p.seq DESC
		LIMIT ?
	`, integration, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := []HistoryEntry{}
	for rows.Next() {
		var (
			h          HistoryEntry
			recordedAt string
			status     string
			mimes      string
		)
		if err := rows.Scan(&h.PassID, &recordedAt, &status, &h.ActionID, &mimes); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if h.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		h.Status = engine.Status(status)
		if h.Mimes, err = unmarshalStrings(mimes); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse recorded_at %q: %w", v, err)
	}
	return t, nil
}
