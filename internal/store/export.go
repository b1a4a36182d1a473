package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/illia-shyn/thoughtcaptcha/internal/model"
)

const exportPageSize = 500

// Export builds a full snapshot of assignments, submissions and the system
// prompt for offline review. All reads share one read transaction, so the
// lists, counts and current assignment agree with each other.
func (s *Store) Export(ctx context.Context) (model.Export, error) {
	out := model.Export{
		ExportedAt:  time.Now().UTC(),
		Assignments: []model.Assignment{},
		Submissions: []model.Submission{},
	}

	// The prompt row may not exist yet; create it before the read-only pass.
	if _, err := s.SystemPrompt(ctx); err != nil {
		return out, fmt.Errorf("system prompt: %w", err)
	}

	err := s.withReadTx(ctx, func(tx *sqlx.Tx) error {
		prompt, err := getSystemPrompt(ctx, tx)
		if err != nil {
			return fmt.Errorf("system prompt: %w", err)
		}
		out.SystemPrompt = prompt

		for skip := 0; ; skip += exportPageSize {
			page, err := listAssignments(ctx, tx, skip, exportPageSize)
			if err != nil {
				return fmt.Errorf("list assignments: %w", err)
			}
			out.Assignments = append(out.Assignments, page...)
			if len(page) < exportPageSize {
				break
			}
		}

		for skip := 0; ; skip += exportPageSize {
			page, err := listSubmissions(ctx, tx, skip, exportPageSize)
			if err != nil {
				return fmt.Errorf("list submissions: %w", err)
			}
			for _, sub := range page {
				out.StateBreakdown.Add(sub.State)
			}
			out.Submissions = append(out.Submissions, page...)
			if len(page) < exportPageSize {
				break
			}
		}

		current, err := currentAssignment(ctx, tx)
		switch {
		case err == nil:
			out.CurrentAssignID = &current.ID
		case !errors.Is(err, ErrNotFound):
			return fmt.Errorf("current assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return out, err
	}

	out.NumAssignments = len(out.Assignments)
	out.NumSubmissions = len(out.Submissions)
	return out, nil
}
