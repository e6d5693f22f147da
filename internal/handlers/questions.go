package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"testwise-backend/internal/models"
	"testwise-backend/internal/repository"
)

type QuestionHandler struct {
	questionRepo *repository.QuestionRepo
}

func NewQuestionHandler(questionRepo *repository.QuestionRepo) *QuestionHandler {
	return &QuestionHandler{questionRepo: questionRepo}
}

func validQuestionType(t models.QuestionType) bool {
	switch t {
	case models.QuestionSingleChoice, models.QuestionMultipleChoice, models.QuestionOpenText:
		return true
	}
	return false
}

// correctAnswerError checks the answer key against the question type: single
// choice stores an option index, multiple choice a list of option indexes,
// open text the expected string. A mismatch here would make the question
// ungradable once an attempt snapshots it.
func correctAnswerError(t models.QuestionType, options []string, answer json.RawMessage) string {
	switch t {
	case models.QuestionSingleChoice:
		var idx int
		if err := json.Unmarshal(answer, &idx); err != nil {
			return "Single choice answer must be an option index"
		}
		if idx < 0 || idx >= len(options) {
			return "Correct answer index is out of range"
		}
	case models.QuestionMultipleChoice:
		var idxs []int
		if err := json.Unmarshal(answer, &idxs); err != nil {
			return "Multiple choice answer must be a list of option indexes"
		}
		if len(idxs) == 0 {
			return "Multiple choice needs at least one correct option"
		}
		for _, idx := range idxs {
			if idx < 0 || idx >= len(options) {
				return "Correct answer index is out of range"
			}
		}
	case models.QuestionOpenText:
		var text string
		if err := json.Unmarshal(answer, &text); err != nil || strings.TrimSpace(text) == "" {
			return "Open text answer must be a non-empty string"
		}
	}
	return ""
}

func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fieldErrors := make(map[string]string)
	if req.Text == "" {
		fieldErrors["question"] = "Question text is required"
	}
	if req.SectionID == uuid.Nil {
		fieldErrors["section_id"] = "section_id is required"
	}
	if !validQuestionType(req.Type) {
		fieldErrors["question_type"] = "Unknown question type"
	}
	if req.Type != models.QuestionOpenText && len(req.Options) < 2 {
		fieldErrors["options"] = "Choice questions need at least two options"
	}
	if len(req.CorrectAnswer) == 0 {
		fieldErrors["correct_answer"] = "Correct answer is required"
	} else if msg := correctAnswerError(req.Type, req.Options, req.CorrectAnswer); msg != "" {
		fieldErrors["correct_answer"] = msg
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fieldErrors, r))
		return
	}

	question := &models.Question{
		SectionID:     req.SectionID,
		TestID:        req.TestID,
		Text:          req.Text,
		Type:          req.Type,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Hint:          req.Hint,
		Image:         req.Image,
		IsFinal:       req.IsFinal,
	}
	if err := h.questionRepo.Create(r.Context(), question); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, question)
}

func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	sectionID, err := uuid.Parse(r.URL.Query().Get("section_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "section_id query parameter is required", r))
		return
	}
	isFinal := r.URL.Query().Get("is_final") == "true"

	questions, err := h.questionRepo.ListBySection(r.Context(), sectionID, isFinal)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, questions)
}

func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid question id", r))
		return
	}

	question, err := h.questionRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Question not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, question)
}

func (h *QuestionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid question id", r))
		return
	}

	question, err := h.questionRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Question not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	var req models.UpdateQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Text != nil {
		question.Text = *req.Text
	}
	if req.Type != nil {
		if !validQuestionType(*req.Type) {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", map[string]string{"question_type": "Unknown question type"}, r))
			return
		}
		question.Type = *req.Type
	}
	if req.Options != nil {
		question.Options = req.Options
	}
	if req.CorrectAnswer != nil {
		question.CorrectAnswer = req.CorrectAnswer
	}
	if req.Hint != nil {
		question.Hint = req.Hint
	}
	if req.Image != nil {
		question.Image = req.Image
	}
	if req.IsFinal != nil {
		question.IsFinal = *req.IsFinal
	}

	// Re-check the answer key against the patched type and options.
	if msg := correctAnswerError(question.Type, question.Options, question.CorrectAnswer); msg != "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", map[string]string{"correct_answer": msg}, r))
		return
	}

	now := time.Now()
	question.UpdatedAt = &now

	if err := h.questionRepo.Update(r.Context(), question); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, question)
}

func (h *QuestionHandler) Archive(w http.ResponseWriter, r *http.Request) {
	archiveOp(w, r, h.questionRepo.Archive, "question", "Question archived")
}

func (h *QuestionHandler) Restore(w http.ResponseWriter, r *http.Request) {
	archiveOp(w, r, h.questionRepo.Restore, "question", "Question restored")
}

func (h *QuestionHandler) DeletePermanently(w http.ResponseWriter, r *http.Request) {
	archiveOp(w, r, h.questionRepo.DeletePermanently, "question", "Question deleted")
}
