package handlers

import (
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

type SectionHandler struct {
	sectionRepo     *repository.SectionRepo
	progressService *services.ProgressService
}

func NewSectionHandler(sectionRepo *repository.SectionRepo, progressService *services.ProgressService) *SectionHandler {
	return &SectionHandler{sectionRepo: sectionRepo, progressService: progressService}
}

func (h *SectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.Title == "" || req.TopicID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", map[string]string{"title": "Title and topic_id are required"}, r))
		return
	}

	section := &models.Section{
		TopicID:     req.TopicID,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Order:       req.Order,
	}
	if err := h.sectionRepo.Create(r.Context(), section); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, section)
}

func (h *SectionHandler) List(w http.ResponseWriter, r *http.Request) {
	topicID, err := uuid.Parse(r.URL.Query().Get("topic_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "topic_id query parameter is required", r))
		return
	}

	sections, err := h.sectionRepo.ListByTopic(r.Context(), topicID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sections)
}

func (h *SectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid section id", r))
		return
	}

	section, err := h.sectionRepo.GetSection(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Section not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, section)
}

func (h *SectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid section id", r))
		return
	}

	section, err := h.sectionRepo.GetSection(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Section not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	var req models.UpdateSectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Title != nil {
		section.Title = *req.Title
	}
	if req.Description != nil {
		section.Description = req.Description
	}
	if req.Content != nil {
		section.Content = req.Content
	}
	if req.Order != nil {
		section.Order = *req.Order
	}
	now := time.Now()
	section.UpdatedAt = &now

	if err := h.sectionRepo.Update(r.Context(), section); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, section)
}

func (h *SectionHandler) Archive(w http.ResponseWriter, r *http.Request) {
	archiveOp(w, r, h.sectionRepo.Archive, "section", "Section archived")
}

func (h *SectionHandler) Restore(w http.ResponseWriter, r *http.Request) {
	archiveOp(w, r, h.sectionRepo.Restore, "section", "Section restored")
}

func (h *SectionHandler) DeletePermanently(w http.ResponseWriter, r *http.Request) {
	archiveOp(w, r, h.sectionRepo.DeletePermanently, "section", "Section deleted")
}

func (h *SectionHandler) Progress(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid section id", r))
		return
	}

	principal := middleware.GetPrincipal(r.Context())
	pct, err := h.progressService.CalculateSectionProgress(r.Context(), principal.UserID, id, true)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"section_id":            id,
		"completion_percentage": pct,
	})
}
