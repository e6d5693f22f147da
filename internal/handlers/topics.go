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

type TopicHandler struct {
	topicRepo       *repository.TopicRepo
	progressService *services.ProgressService
}

func NewTopicHandler(topicRepo *repository.TopicRepo, progressService *services.ProgressService) *TopicHandler {
	return &TopicHandler{topicRepo: topicRepo, progressService: progressService}
}

func (h *TopicHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", map[string]string{"title": "Title is required"}, r))
		return
	}

	topic := &models.Topic{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Image:       req.Image,
	}
	if err := h.topicRepo.Create(r.Context(), topic); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, topic)
}

func (h *TopicHandler) List(w http.ResponseWriter, r *http.Request) {
	var category *string
	if raw := r.URL.Query().Get("category"); raw != "" {
		category = &raw
	}

	topics, err := h.topicRepo.List(r.Context(), category)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, topics)
}

func (h *TopicHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid topic id", r))
		return
	}

	topic, err := h.topicRepo.GetTopic(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Topic not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, topic)
}

func (h *TopicHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid topic id", r))
		return
	}

	topic, err := h.topicRepo.GetTopic(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Topic not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	var req models.UpdateTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Title != nil {
		topic.Title = *req.Title
	}
	if req.Description != nil {
		topic.Description = req.Description
	}
	if req.Category != nil {
		topic.Category = req.Category
	}
	if req.Image != nil {
		topic.Image = req.Image
	}
	now := time.Now()
	topic.UpdatedAt = &now

	if err := h.topicRepo.Update(r.Context(), topic); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, topic)
}

func (h *TopicHandler) Archive(w http.ResponseWriter, r *http.Request) {
	archiveOp(w, r, h.topicRepo.Archive, "topic", "Topic archived")
}

func (h *TopicHandler) Restore(w http.ResponseWriter, r *http.Request) {
	archiveOp(w, r, h.topicRepo.Restore, "topic", "Topic restored")
}

func (h *TopicHandler) DeletePermanently(w http.ResponseWriter, r *http.Request) {
	archiveOp(w, r, h.topicRepo.DeletePermanently, "topic", "Topic deleted")
}

// Progress returns the caller's live completion percentage for the topic.
func (h *TopicHandler) Progress(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid topic id", r))
		return
	}

	principal := middleware.GetPrincipal(r.Context())
	pct, err := h.progressService.CalculateTopicProgress(r.Context(), principal.UserID, id, true)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"topic_id":              id,
		"completion_percentage": pct,
	})
}

// archiveOp handles the archive/restore/permanent-delete triple shared by
// the content handlers.
func archiveOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID) (bool, error), resource, message string) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid "+resource+" id", r))
		return
	}

	ok, err := op(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}
