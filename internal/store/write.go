package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/officeswitcher/officeswitcher/internal/engine"
)

// WritePass records a completed pass with its outcomes and diagnostics in one
// transaction. Writing the same pass id twice is a no-op.
//
// Implements engine.Journal.
func (s *Store) WritePass(ctx context.Context, r *engine.Report) error {
	if r == nil || r.PassID == "" {
		return fmt.Errorf("write pass: pass id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write pass: begin: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	inserted, err := insertPass(ctx, tx, r, s.now().UTC())
	if err != nil {
		return fmt.Errorf("write pass %s: %w", r.PassID, err)
	}
	if !inserted {
		return nil
	}

	for i, in := range r.Integrations {
		if err := insertOutcome(ctx, tx, r.PassID, i, in); err != nil {
			return fmt.Errorf("write pass %s: %w", r.PassID, err)
		}
	}
	for _, d := range r.Diagnostics {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO diagnostics (pass_id, seq, code, integration, message)
			VALUES (?, ?, ?, ?, ?)
		`, r.PassID, d.Seq, string(d.Code), d.Integration, d.Message)
		if err != nil {
			return fmt.Errorf("write pass %s: diagnostic %d: %w", r.PassID, d.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write pass %s: commit: %w", r.PassID, err)
	}
	return nil
}

// insertPass writes the pass row. Returns false if the pass was already recorded.
func insertPass(ctx context.Context, tx *sql.Tx, r *engine.Report, at time.Time) (bool, error) {
	suppressed, err := marshalStrings(r.Suppressed)
	if err != nil {
		return false, err
	}
	missing, err := marshalStrings(r.Missing)
	if err != nil {
		return false, err
	}

	var (
		umbrellaID sql.NullString
		order      int
		children   []string
	)
	if r.Umbrella != nil {
		umbrellaID = sql.NullString{String: r.Umbrella.ActionID, Valid: true}
		order = r.Umbrella.Order
		children = r.Umbrella.Children
	}
	childJSON, err := marshalStrings(children)
	if err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO passes
		(id, recorded_at, umbrella_id, umbrella_order, umbrella_children, suppressed, missing_legacy)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.PassID,
		at.Format(time.RFC3339Nano),
		umbrellaID,
		order,
		childJSON,
		suppressed,
		missing,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func insertOutcome(ctx context.Context, tx *sql.Tx, passID string, position int, in engine.IntegrationReport) error {
	mimes, err := marshalStrings(in.Mimes)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO outcomes
		(pass_id, position, integration, source, status, action_id, exec, native_action, mimes, icon_fallback)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		passID,
		position,
		in.Integration,
		in.Source,
		string(in.Status),
		in.ActionID,
		in.Exec,
		in.NativeAction,
		mimes,
		in.IconFallback,
	)
	if err != nil {
		return fmt.Errorf("outcome %s: %w", in.Integration, err)
	}
	return nil
}
