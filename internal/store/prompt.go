package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/illia-shyn/thoughtcaptcha/internal/llm/prompts"
	"github.com/illia-shyn/thoughtcaptcha/internal/model"
)

// SystemPrompt returns the singleton system prompt, creating it with the
// default text on first access. Concurrent first readers race on the
// primary key; the losing insert is a no-op and every caller reads the
// winning row.
func (s *Store) SystemPrompt(ctx context.Context) (model.SystemPrompt, error) {
	var p model.SystemPrompt
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO system_prompts (id, prompt_text, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT (id) DO NOTHING`),
			model.SystemPromptID, prompts.DefaultSystemPrompt, time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("ensure system prompt: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			slog.Info("created default system prompt")
		}
		p, err = getSystemPrompt(ctx, tx)
		return err
	})
	return p, err
}

// UpdateSystemPrompt replaces the system prompt text.
func (s *Store) UpdateSystemPrompt(ctx context.Context, text string) (model.SystemPrompt, error) {
	var p model.SystemPrompt
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO system_prompts (id, prompt_text, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET prompt_text = excluded.prompt_text, updated_at = excluded.updated_at`),
			model.SystemPromptID, text, time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("update system prompt: %w", err)
		}
		p, err = getSystemPrompt(ctx, tx)
		return err
	})
	if err != nil {
		return model.SystemPrompt{}, err
	}
	slog.Info("updated system prompt", "length", len(p.PromptText))
	return p, nil
}

// SystemPromptCount returns the number of stored system prompt rows.
func (s *Store) SystemPromptCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM system_prompts`)
	return count, err
}

func getSystemPrompt(ctx context.Context, tx *sqlx.Tx) (model.SystemPrompt, error) {
	var p model.SystemPrompt
	err := tx.GetContext(ctx, &p, tx.Rebind(
		`SELECT id, prompt_text, updated_at FROM system_prompts WHERE id = ?`), model.SystemPromptID)
	return p, err
}
