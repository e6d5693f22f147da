package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"testwise-backend/internal/middleware"
	"testwise-backend/internal/models"
	"testwise-backend/internal/repository"
	"testwise-backend/internal/services"
)

type TestHandler struct {
	testRepo         *repository.TestRepo
	progressService  *services.ProgressService
	attemptService   *services.AttemptService
	generatorService *services.GeneratorService
}

func NewTestHandler(testRepo *repository.TestRepo, progressService *services.ProgressService, attemptService *services.AttemptService, generatorService *services.GeneratorService) *TestHandler {
	return &TestHandler{
		testRepo:         testRepo,
		progressService:  progressService,
		attemptService:   attemptService,
		generatorService: generatorService,
	}
}

func validTestType(t models.TestType) bool {
	switch t {
	case models.TestHinted, models.TestSectionFinal, models.TestGlobalFinal:
		return true
	}
	return false
}

func (h *TestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fieldErrors := make(map[string]string)
	if req.Title == "" {
		fieldErrors["title"] = "Title is required"
	}
	if !validTestType(req.Type) {
		fieldErrors["type"] = "Unknown test type"
	}
	if (req.SectionID == nil) == (req.TopicID == nil) {
		fieldErrors["parent"] = "Exactly one of section_id or topic_id is required"
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fieldErrors, r))
		return
	}

	test := &models.Test{
		SectionID:   req.SectionID,
		TopicID:     req.TopicID,
		Title:       req.Title,
		Type:        req.Type,
		Duration:    req.Duration,
		MaxAttempts: req.MaxAttempts,
	}
	if err := h.testRepo.CreateTest(r.Context(), test); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, test)
}

func (h *TestHandler) List(w http.ResponseWriter, r *http.Request) {
	var sectionID, topicID *uuid.UUID
	if raw := r.URL.Query().Get("section_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid section_id", r))
			return
		}
		sectionID = &id
	}
	if raw := r.URL.Query().Get("topic_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid topic_id", r))
			return
		}
		topicID = &id
	}

	tests, err := h.testRepo.List(r.Context(), sectionID, topicID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tests)
}

func (h *TestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid test id", r))
		return
	}

	test, err := h.testRepo.GetTest(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Test not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, test)
}

func (h *TestHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid test id", r))
		return
	}

	test, err := h.testRepo.GetTest(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Test not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	var req models.UpdateTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Title != nil {
		test.Title = *req.Title
	}
	if req.Duration != nil {
		test.Duration = req.Duration
	}
	if req.MaxAttempts != nil {
		test.MaxAttempts = req.MaxAttempts
	}
	now := time.Now()
	test.UpdatedAt = &now

	if err := h.testRepo.Update(r.Context(), test); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, test)
}

func (h *TestHandler) Archive(w http.ResponseWriter, r *http.Request) {
	archiveOp(w, r, h.testRepo.Archive, "test", "Test archived")
}

func (h *TestHandler) Restore(w http.ResponseWriter, r *http.Request) {
	archiveOp(w, r, h.testRepo.Restore, "test", "Test restored")
}

func (h *TestHandler) DeletePermanently(w http.ResponseWriter, r *http.Request) {
	archiveOp(w, r, h.testRepo.DeletePermanently, "test", "Test deleted")
}

func (h *TestHandler) Availability(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid test id", r))
		return
	}

	principal := middleware.GetPrincipal(r.Context())
	available, err := h.progressService.CheckTestAvailability(r.Context(), principal.UserID, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"test_id":   id,
		"available": available,
	})
}

func (h *TestHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid test id", r))
		return
	}

	principal := middleware.GetPrincipal(r.Context())
	resp, err := h.attemptService.Start(r.Context(), principal.UserID, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *TestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid attempt id", r))
		return
	}

	var req models.SubmitTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	principal := middleware.GetPrincipal(r.Context())
	resp, err := h.attemptService.Submit(r.Context(), principal.UserID, id, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListAttempts returns attempt history. Students only ever see their own
// rows; teachers and admins may filter by user_id.
func (h *TestHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	userID, ok := resolveUserID(w, r, principal)
	if !ok {
		return
	}

	var testID *uuid.UUID
	if raw := r.URL.Query().Get("test_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid test_id", r))
			return
		}
		testID = &id
	}

	attempts, err := h.testRepo.ListAttempts(r.Context(), userID, testID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, attempts)
}

// Generators

func (h *TestHandler) GenerateHinted(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, h.generatorService.GenerateHintedTest)
}

func (h *TestHandler) GenerateSectionFinal(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, h.generatorService.GenerateSectionFinalTest)
}

func (h *TestHandler) GenerateGlobalFinal(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, h.generatorService.GenerateGlobalFinalTest)
}

func (h *TestHandler) generate(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, parentID uuid.UUID, req models.GenerateTestRequest) (*models.Test, error)) {
	parentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid id", r))
		return
	}

	var req models.GenerateTestRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
			return
		}
	}

	test, err := op(r.Context(), parentID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, test)
}

// resolveUserID applies student self-scoping: students are pinned to their
// own id, staff may pass ?user_id= to inspect a specific user or omit it to
// list everyone.
func resolveUserID(w http.ResponseWriter, r *http.Request, principal middleware.Principal) (*uuid.UUID, bool) {
	if principal.IsStudent() {
		id := principal.UserID
		return &id, true
	}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid user_id", r))
			return nil, false
		}
		return &id, true
	}
	return nil, true
}
