package model

import (
	"time"
)

// SubmissionState is the lifecycle state of a submission.
type SubmissionState string

const (
	// StateNew is a freshly created submission without a follow-up question.
	StateNew SubmissionState = "new"
	// StateQuestioned means a follow-up question has been stored.
	StateQuestioned SubmissionState = "questioned"
	// StateAnswered means the student's response has been recorded.
	StateAnswered SubmissionState = "answered"
)

// Valid reports whether s is one of the known states.
func (s SubmissionState) Valid() bool {
	switch s {
	case StateNew, StateQuestioned, StateAnswered:
		return true
	}
	return false
}

// SystemPromptID is the fixed key of the singleton system prompt row.
const SystemPromptID int64 = 1

// Assignment is a prompt set by a teacher.
type Assignment struct {
	ID         int64     `json:"id" db:"id"`
	PromptText string    `json:"prompt_text" db:"prompt_text"`
	IsCurrent  bool      `json:"is_current" db:"is_current"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// AssignmentUpdate carries a partial update; nil fields are left unchanged.
type AssignmentUpdate struct {
	PromptText *string
	IsCurrent  *bool
}

// Submission is a student's written response to an assignment plus the
// follow-up exchange attached to it.
type Submission struct {
	ID                int64           `json:"id" db:"id"`
	OriginalContent   string          `json:"original_content" db:"original_content"`
	AssignmentID      *int64          `json:"assignment_id" db:"assignment_id"`
	State             SubmissionState `json:"state" db:"state"`
	GeneratedQuestion *string         `json:"generated_question" db:"generated_question"`
	StudentResponse   *string         `json:"student_response" db:"student_response"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`

	// Assignment is the linked assignment, loaded on reads.
	Assignment *Assignment `json:"assignment,omitempty" db:"-"`
}

// HasQuestion reports whether a follow-up question is already stored.
func (s Submission) HasQuestion() bool {
	return s.GeneratedQuestion != nil && *s.GeneratedQuestion != ""
}

// SystemPrompt is the singleton instruction used for question generation.
type SystemPrompt struct {
	ID         int64     `json:"id" db:"id"`
	PromptText string    `json:"prompt_text" db:"prompt_text"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// QuestionGenerated is the result of a question generation request.
type QuestionGenerated struct {
	SubmissionID      int64  `json:"submission_id"`
	GeneratedQuestion string `json:"generated_question"`
}

// ResponseRecorded acknowledges a stored student response.
type ResponseRecorded struct {
	SubmissionID int64  `json:"submission_id"`
	Message      string `json:"message,omitempty"`
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	Lang         string   // default UI language for client-visible messages
	CORSOrigins  []string // allowed origins; "*" allows any
	DefaultLimit int      // page size when the client omits limit
	MaxLimit     int
}
