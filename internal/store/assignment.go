package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/illia-shyn/thoughtcaptcha/internal/model"
)

const assignmentColumns = `id, prompt_text, is_current, created_at, updated_at`

// CreateAssignment inserts a new assignment. When isCurrent is set, every
// other assignment is demoted in the same transaction.
func (s *Store) CreateAssignment(ctx context.Context, promptText string, isCurrent bool) (model.Assignment, error) {
	var a model.Assignment
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		if isCurrent {
			if err := s.lockCurrent(ctx, tx); err != nil {
				return err
			}
			if err := demoteOthers(ctx, tx, 0, now); err != nil {
				return err
			}
		}

		var id int64
		err := tx.GetContext(ctx, &id, tx.Rebind(
			`INSERT INTO assignments (prompt_text, is_current, created_at, updated_at)
			 VALUES (?, ?, ?, ?) RETURNING id`),
			promptText, isCurrent, now, now,
		)
		if err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}

		a, err = getAssignment(ctx, tx, id)
		return err
	})
	if err != nil {
		slog.Error("failed to create assignment", "is_current", isCurrent, "error", err)
		return model.Assignment{}, err
	}
	slog.Info("created assignment", "id", a.ID, "is_current", a.IsCurrent)
	return a, nil
}

// GetAssignment returns an assignment by ID.
func (s *Store) GetAssignment(ctx context.Context, id int64) (model.Assignment, error) {
	var a model.Assignment
	err := s.db.GetContext(ctx, &a, s.db.Rebind(`SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("assignment %d: %w", id, ErrNotFound)
	}
	return a, err
}

// CurrentAssignment returns the assignment flagged as current.
func (s *Store) CurrentAssignment(ctx context.Context) (model.Assignment, error) {
	return currentAssignment(ctx, s.db)
}

// ListAssignments returns assignments newest first.
func (s *Store) ListAssignments(ctx context.Context, skip, limit int) ([]model.Assignment, error) {
	return listAssignments(ctx, s.db, skip, limit)
}

func currentAssignment(ctx context.Context, q queryer) (model.Assignment, error) {
	var a model.Assignment
	err := sqlx.GetContext(ctx, q, &a, q.Rebind(
		`SELECT `+assignmentColumns+` FROM assignments WHERE is_current = ? ORDER BY id DESC LIMIT 1`), true)
	if errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("current assignment: %w", ErrNotFound)
	}
	return a, err
}

func listAssignments(ctx context.Context, q queryer, skip, limit int) ([]model.Assignment, error) {
	skip, limit = normalizePage(skip, limit)
	assignments := []model.Assignment{}
	err := sqlx.SelectContext(ctx, q, &assignments, q.Rebind(
		`SELECT `+assignmentColumns+` FROM assignments
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`), limit, skip)
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// UpdateAssignment applies a partial update; only non-nil fields are
// written. Promoting the assignment to current demotes every other one in
// the same transaction.
func (s *Store) UpdateAssignment(ctx context.Context, id int64, upd model.AssignmentUpdate) (model.Assignment, error) {
	var a model.Assignment
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		// The lock spans the read and the write.
		if err := s.lockCurrent(ctx, tx); err != nil {
			return err
		}
		if _, err := getAssignment(ctx, tx, id); err != nil {
			return err
		}

		now := time.Now().UTC()
		sets := []string{"updated_at = ?"}
		args := []any{now}
		if upd.PromptText != nil {
			sets = append(sets, "prompt_text = ?")
			args = append(args, *upd.PromptText)
		}
		if upd.IsCurrent != nil {
			if *upd.IsCurrent {
				if err := demoteOthers(ctx, tx, id, now); err != nil {
					return err
				}
			}
			sets = append(sets, "is_current = ?")
			args = append(args, *upd.IsCurrent)
		}
		args = append(args, id)

		_, err := tx.ExecContext(ctx, tx.Rebind(
			`UPDATE assignments SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
		if err != nil {
			return fmt.Errorf("update assignment %d: %w", id, err)
		}

		a, err = getAssignment(ctx, tx, id)
		return err
	})
	if err != nil {
		return model.Assignment{}, err
	}
	slog.Info("updated assignment", "id", a.ID, "is_current", a.IsCurrent)
	return a, nil
}

// SetCurrentAssignment makes id the only current assignment. The existence
// check, the demotion and the promotion share one transaction, so an unknown
// id leaves the previous current assignment untouched.
func (s *Store) SetCurrentAssignment(ctx context.Context, id int64) (model.Assignment, error) {
	var a model.Assignment
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := getAssignment(ctx, tx, id); err != nil {
			return err
		}
		if err := s.lockCurrent(ctx, tx); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := demoteOthers(ctx, tx, id, now); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(
			`UPDATE assignments SET is_current = ?, updated_at = ? WHERE id = ?`), true, now, id)
		if err != nil {
			return fmt.Errorf("promote assignment %d: %w", id, err)
		}

		a, err = getAssignment(ctx, tx, id)
		return err
	})
	if err != nil {
		return model.Assignment{}, err
	}
	slog.Info("set current assignment", "id", a.ID)
	return a, nil
}

// AssignmentCount returns the number of stored assignments.
func (s *Store) AssignmentCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM assignments`)
	return count, err
}

func getAssignment(ctx context.Context, tx *sqlx.Tx, id int64) (model.Assignment, error) {
	var a model.Assignment
	err := tx.GetContext(ctx, &a, tx.Rebind(`SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("assignment %d: %w", id, ErrNotFound)
	}
	return a, err
}

// demoteOthers clears is_current on every assignment except keepID.
func demoteOthers(ctx context.Context, tx *sqlx.Tx, keepID int64, now time.Time) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(
		`UPDATE assignments SET is_current = ?, updated_at = ? WHERE is_current = ? AND id <> ?`),
		false, now, true, keepID,
	)
	if err != nil {
		return fmt.Errorf("demote assignments: %w", err)
	}
	return nil
}
