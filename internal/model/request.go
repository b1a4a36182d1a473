package model

// AssignmentCreateRequest is the body of a create assignment call.
type AssignmentCreateRequest struct {
	PromptText string `json:"prompt_text" validate:"required,notblank,max=20000"`
	IsCurrent  bool   `json:"is_current"`
}

// AssignmentUpdateRequest is the body of a partial assignment update.
type AssignmentUpdateRequest struct {
	PromptText *string `json:"prompt_text" validate:"omitnil,notblank,max=20000"`
	IsCurrent  *bool   `json:"is_current"`
}

// ToUpdate converts the request into a store update.
func (r AssignmentUpdateRequest) ToUpdate() AssignmentUpdate {
	return AssignmentUpdate{PromptText: r.PromptText, IsCurrent: r.IsCurrent}
}

// SubmissionCreateRequest is the body of a submit-assignment call.
type SubmissionCreateRequest struct {
	OriginalContent string `json:"original_content" validate:"required,notblank,max=100000"`
	AssignmentID    *int64 `json:"assignment_id" validate:"omitnil,gt=0"`
}

// QuestionGenerateRequest asks for a follow-up question.
type QuestionGenerateRequest struct {
	SubmissionID int64 `json:"submission_id" validate:"required,gt=0"`
}

// ResponseVerifyRequest carries the student's answer to the follow-up question.
type ResponseVerifyRequest struct {
	SubmissionID    int64  `json:"submission_id" validate:"required,gt=0"`
	StudentResponse string `json:"student_response" validate:"required,notblank,max=100000"`
}

// PromptUpdateRequest replaces the system prompt text.
type PromptUpdateRequest struct {
	PromptText string `json:"prompt_text" validate:"required,notblank,max=20000"`
}

// HealthCheckResponse is returned by the health endpoint.
type HealthCheckResponse struct {
	Status string `json:"status"`
}
