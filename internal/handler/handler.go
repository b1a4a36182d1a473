package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/illia-shyn/thoughtcaptcha/internal/followup"
	"github.com/illia-shyn/thoughtcaptcha/internal/i18n"
	"github.com/illia-shyn/thoughtcaptcha/internal/model"
	"github.com/illia-shyn/thoughtcaptcha/internal/store"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	svc      *followup.Service
	config   model.ServerConfig
	validate *validator.Validate
	trans    ut.Translator
}

// New creates a new Handler.
func New(s *store.Store, svc *followup.Service, cfg model.ServerConfig) *Handler {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = maxLimit
	}
	validate, trans := newValidator()
	return &Handler{store: s, svc: svc, config: cfg, validate: validate, trans: trans}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.handleHealth)

		r.Post("/assignments", h.handleCreateAssignment)
		r.Get("/assignments", h.handleListAssignments)
		r.Get("/assignments/current", h.handleCurrentAssignment)
		r.Get("/assignments/{assignmentID}", h.handleGetAssignment)
		r.Put("/assignments/{assignmentID}", h.handleUpdateAssignment)
		r.Post("/assignments/{assignmentID}/set-current", h.handleSetCurrent)

		r.Post("/submit-assignment", h.handleSubmit)
		r.Get("/submissions", h.handleListSubmissions)
		r.Get("/submissions/{submissionID}", h.handleGetSubmission)
		r.Post("/generate-question", h.handleGenerateQuestion)
		r.Post("/verify-response", h.handleVerifyResponse)

		r.Get("/system-prompt", h.handleGetSystemPrompt)
		r.Put("/system-prompt", h.handleUpdateSystemPrompt)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HealthCheckResponse{Status: "OK"})
}

func (h *Handler) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req model.AssignmentCreateRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.store.CreateAssignment(r.Context(), req.PromptText, req.IsCurrent)
	if err != nil {
		writeStoreError(w, r, err, "AssignmentNotFound")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	skip, limit, ok := h.page(w, r)
	if !ok {
		return
	}
	list, err := h.store.ListAssignments(r.Context(), skip, limit)
	if err != nil {
		writeStoreError(w, r, err, "AssignmentNotFound")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCurrentAssignment(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.CurrentAssignment(r.Context())
	if err != nil {
		writeStoreError(w, r, err, "NoCurrentAssignment")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleGetAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "assignmentID")
	if !ok {
		return
	}
	a, err := h.store.GetAssignment(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "AssignmentNotFound")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleUpdateAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "assignmentID")
	if !ok {
		return
	}
	var req model.AssignmentUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.store.UpdateAssignment(r.Context(), id, req.ToUpdate())
	if err != nil {
		writeStoreError(w, r, err, "AssignmentNotFound")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleSetCurrent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "assignmentID")
	if !ok {
		return
	}
	a, err := h.store.SetCurrentAssignment(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "AssignmentNotFound")
		return
	}
	slog.Info("current assignment changed", "assignment_id", a.ID)
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req model.SubmissionCreateRequest
	if !h.decode(w, r, &req) {
		return
	}
	sub, err := h.svc.CreateSubmission(r.Context(), req.OriginalContent, req.AssignmentID)
	if err != nil {
		writeStoreError(w, r, err, "AssignmentNotFound")
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	skip, limit, ok := h.page(w, r)
	if !ok {
		return
	}
	list, err := h.store.ListSubmissions(r.Context(), skip, limit)
	if err != nil {
		writeStoreError(w, r, err, "SubmissionNotFound")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "submissionID")
	if !ok {
		return
	}
	sub, err := h.store.GetSubmission(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "SubmissionNotFound")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleGenerateQuestion(w http.ResponseWriter, r *http.Request) {
	var req model.QuestionGenerateRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.GenerateQuestion(r.Context(), req.SubmissionID)
	if errors.Is(err, followup.ErrQuestionNotSaved) {
		slog.Error("generate question failed", "submission_id", req.SubmissionID, "error", err)
		writeDetail(w, http.StatusInternalServerError, i18n.T(r.Context(), "SaveQuestionFailed"))
		return
	}
	if err != nil {
		writeStoreError(w, r, err, "SubmissionNotFound")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleVerifyResponse(w http.ResponseWriter, r *http.Request) {
	var req model.ResponseVerifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.RecordResponse(r.Context(), req.SubmissionID, req.StudentResponse)
	if err != nil {
		writeStoreError(w, r, err, "SubmissionNotFound")
		return
	}
	res.Message = i18n.T(r.Context(), "ResponseRecorded")
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleGetSystemPrompt(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.SystemPrompt(r.Context())
	if err != nil {
		writeStoreError(w, r, err, "InternalError")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdateSystemPrompt(w http.ResponseWriter, r *http.Request) {
	var req model.PromptUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.store.UpdateSystemPrompt(r.Context(), req.PromptText)
	if err != nil {
		writeStoreError(w, r, err, "InternalError")
		return
	}
	slog.Info("system prompt updated")
	writeJSON(w, http.StatusOK, p)
}
