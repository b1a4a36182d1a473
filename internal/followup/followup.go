// Package followup drives the submission lifecycle: creation, one-time
// follow-up question generation and recording of the student's answer.
//
// A submission moves new -> questioned -> answered. Question generation is
// idempotent: once a question is stored it is returned as is and the
// generator is not called again.
package followup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/illia-shyn/thoughtcaptcha/internal/llm"
	"github.com/illia-shyn/thoughtcaptcha/internal/llm/prompts"
	"github.com/illia-shyn/thoughtcaptcha/internal/model"
)

// ErrQuestionNotSaved marks a generated question that could not be stored.
var ErrQuestionNotSaved = errors.New("generated question not saved")

// Store is the persistence the orchestrator needs.
type Store interface {
	CreateSubmission(ctx context.Context, content string, assignmentID *int64) (model.Submission, error)
	GetSubmission(ctx context.Context, id int64) (model.Submission, error)
	SetGeneratedQuestion(ctx context.Context, id int64, question string) (model.Submission, error)
	RecordResponse(ctx context.Context, id int64, response string) (model.Submission, error)
	SystemPrompt(ctx context.Context) (model.SystemPrompt, error)
}

// Generator produces follow-up questions. It must always return usable text.
type Generator interface {
	Generate(ctx context.Context, req llm.FollowUpRequest) llm.FollowUp
}

// Service orchestrates submissions.
type Service struct {
	store Store
	gen   Generator
}

// New creates a new Service.
func New(s Store, g Generator) *Service {
	return &Service{store: s, gen: g}
}

// CreateSubmission stores a new submission. Without an explicit
// assignmentID it is linked to the current assignment, if any.
func (s *Service) CreateSubmission(ctx context.Context, content string, assignmentID *int64) (model.Submission, error) {
	slog.Info("received new submission", "content", prompts.Snippet(content, 50))
	sub, err := s.store.CreateSubmission(ctx, content, assignmentID)
	if err != nil {
		return model.Submission{}, err
	}
	slog.Info("submission created", "submission_id", sub.ID, "assignment_id", sub.AssignmentID)
	return sub, nil
}

// GenerateQuestion returns the follow-up question for a submission,
// generating and storing it on the first call only.
func (s *Service) GenerateQuestion(ctx context.Context, submissionID int64) (model.QuestionGenerated, error) {
	slog.Info("generating question", "submission_id", submissionID)

	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return model.QuestionGenerated{}, err
	}
	if sub.HasQuestion() {
		slog.Info("question already exists, returning stored question", "submission_id", submissionID)
		return model.QuestionGenerated{SubmissionID: sub.ID, GeneratedQuestion: *sub.GeneratedQuestion}, nil
	}

	prompt, err := s.store.SystemPrompt(ctx)
	if err != nil {
		return model.QuestionGenerated{}, fmt.Errorf("load system prompt: %w", err)
	}

	assignmentPrompt := prompts.NoAssignmentPrompt
	if sub.Assignment != nil {
		assignmentPrompt = sub.Assignment.PromptText
	}

	out := s.gen.Generate(ctx, llm.FollowUpRequest{
		SystemPrompt:      prompt.PromptText,
		AssignmentPrompt:  assignmentPrompt,
		SubmissionContent: sub.OriginalContent,
	})

	// The submission was found above, so any failure here is a storage fault.
	stored, err := s.store.SetGeneratedQuestion(ctx, sub.ID, out.Text)
	if err != nil {
		slog.Error("failed to save generated question", "submission_id", sub.ID, "error", err)
		return model.QuestionGenerated{}, fmt.Errorf("%w: %w", ErrQuestionNotSaved, err)
	}
	if !stored.HasQuestion() {
		return model.QuestionGenerated{}, fmt.Errorf("submission %d: %w", sub.ID, ErrQuestionNotSaved)
	}

	slog.Info("saved generated question", "submission_id", sub.ID, "fallback", out.Fallback)
	return model.QuestionGenerated{SubmissionID: stored.ID, GeneratedQuestion: *stored.GeneratedQuestion}, nil
}

// RecordResponse stores the student's answer, replacing any earlier one.
// A question does not have to exist first.
func (s *Service) RecordResponse(ctx context.Context, submissionID int64, response string) (model.ResponseRecorded, error) {
	slog.Info("received response", "submission_id", submissionID)
	sub, err := s.store.RecordResponse(ctx, submissionID, response)
	if err != nil {
		return model.ResponseRecorded{}, err
	}
	slog.Info("stored response", "submission_id", sub.ID)
	return model.ResponseRecorded{SubmissionID: sub.ID}, nil
}
