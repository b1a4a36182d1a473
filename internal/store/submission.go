package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/illia-shyn/thoughtcaptcha/internal/model"
)

const submissionColumns = `id, original_content, assignment_id, state, generated_question, student_response, created_at, updated_at`

// CreateSubmission stores a new submission in state new. A nil assignmentID
// links the submission to whichever assignment is current at that moment,
// or leaves it unlinked when there is none. An explicit assignmentID must
// exist.
func (s *Store) CreateSubmission(ctx context.Context, content string, assignmentID *int64) (model.Submission, error) {
	var sub model.Submission
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		link := assignmentID
		if link == nil {
			var current int64
			err := tx.GetContext(ctx, &current, tx.Rebind(
				`SELECT id FROM assignments WHERE is_current = ? ORDER BY id DESC LIMIT 1`), true)
			switch {
			case err == nil:
				link = &current
			case !errors.Is(err, sql.ErrNoRows):
				return fmt.Errorf("resolve current assignment: %w", err)
			}
		} else if _, err := getAssignment(ctx, tx, *link); err != nil {
			return err
		}

		now := time.Now().UTC()
		var id int64
		err := tx.GetContext(ctx, &id, tx.Rebind(
			`INSERT INTO submissions (original_content, assignment_id, state, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?) RETURNING id`),
			content, link, model.StateNew, now, now,
		)
		if err != nil {
			return fmt.Errorf("insert submission: %w", err)
		}

		sub, err = getSubmission(ctx, tx, id)
		return err
	})
	return sub, err
}

// GetSubmission returns a submission with its linked assignment.
func (s *Store) GetSubmission(ctx context.Context, id int64) (model.Submission, error) {
	var sub model.Submission
	err := s.db.GetContext(ctx, &sub, s.db.Rebind(`SELECT `+submissionColumns+` FROM submissions WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return sub, fmt.Errorf("submission %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return sub, err
	}
	if err := checkState(sub); err != nil {
		return sub, err
	}
	subs := []model.Submission{sub}
	if err := attachAssignments(ctx, s.db, subs); err != nil {
		return sub, err
	}
	return subs[0], nil
}

// ListSubmissions returns submissions newest first, each with its linked
// assignment.
func (s *Store) ListSubmissions(ctx context.Context, skip, limit int) ([]model.Submission, error) {
	return listSubmissions(ctx, s.db, skip, limit)
}

func listSubmissions(ctx context.Context, q queryer, skip, limit int) ([]model.Submission, error) {
	skip, limit = normalizePage(skip, limit)
	subs := []model.Submission{}
	err := sqlx.SelectContext(ctx, q, &subs, q.Rebind(
		`SELECT `+submissionColumns+` FROM submissions
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`), limit, skip)
	if err != nil {
		return nil, err
	}
	for _, sub := range subs {
		if err := checkState(sub); err != nil {
			return nil, err
		}
	}
	if err := attachAssignments(ctx, q, subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// SetGeneratedQuestion stores question unless the submission already has
// one; the first stored question wins. The returned submission carries the
// stored value either way.
func (s *Store) SetGeneratedQuestion(ctx context.Context, id int64, question string) (model.Submission, error) {
	var sub model.Submission
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(
			`UPDATE submissions
			 SET generated_question = ?,
			     state = CASE WHEN student_response IS NULL THEN ? ELSE state END,
			     updated_at = ?
			 WHERE id = ? AND generated_question IS NULL`),
			question, model.StateQuestioned, time.Now().UTC(), id,
		)
		if err != nil {
			return fmt.Errorf("store question for submission %d: %w", id, err)
		}
		sub, err = getSubmission(ctx, tx, id)
		return err
	})
	return sub, err
}

// RecordResponse overwrites the student's response and marks the
// submission answered.
func (s *Store) RecordResponse(ctx context.Context, id int64, response string) (model.Submission, error) {
	var sub model.Submission
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(
			`UPDATE submissions SET student_response = ?, state = ?, updated_at = ? WHERE id = ?`),
			response, model.StateAnswered, time.Now().UTC(), id,
		)
		if err != nil {
			return fmt.Errorf("store response for submission %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("submission %d: %w", id, ErrNotFound)
		}
		sub, err = getSubmission(ctx, tx, id)
		return err
	})
	return sub, err
}

// SubmissionCount returns the number of stored submissions.
func (s *Store) SubmissionCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM submissions`)
	return count, err
}

func getSubmission(ctx context.Context, tx *sqlx.Tx, id int64) (model.Submission, error) {
	var sub model.Submission
	err := tx.GetContext(ctx, &sub, tx.Rebind(`SELECT `+submissionColumns+` FROM submissions WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return sub, fmt.Errorf("submission %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return sub, err
	}
	return sub, checkState(sub)
}

// checkState rejects rows whose state column holds an unknown value.
func checkState(sub model.Submission) error {
	if !sub.State.Valid() {
		return fmt.Errorf("submission %d: unknown state %q", sub.ID, sub.State)
	}
	return nil
}

// attachAssignments loads the linked assignments of subs in one query.
func attachAssignments(ctx context.Context, q queryer, subs []model.Submission) error {
	seen := make(map[int64]bool)
	var ids []int64
	for _, sub := range subs {
		if sub.AssignmentID != nil && !seen[*sub.AssignmentID] {
			seen[*sub.AssignmentID] = true
			ids = append(ids, *sub.AssignmentID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`SELECT `+assignmentColumns+` FROM assignments WHERE id IN (?)`, ids)
	if err != nil {
		return err
	}
	var assignments []model.Assignment
	if err := sqlx.SelectContext(ctx, q, &assignments, q.Rebind(query), args...); err != nil {
		return fmt.Errorf("load assignments: %w", err)
	}

	byID := make(map[int64]*model.Assignment, len(assignments))
	for i := range assignments {
		byID[assignments[i].ID] = &assignments[i]
	}
	for i := range subs {
		if subs[i].AssignmentID != nil {
			subs[i].Assignment = byID[*subs[i].AssignmentID]
		}
	}
	return nil
}
