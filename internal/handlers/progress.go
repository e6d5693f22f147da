package handlers

import (
	"net/http"

	"testwise-backend/internal/middleware"
	"testwise-backend/internal/repository"
	"testwise-backend/internal/services"
)

type ProgressHandler struct {
	progressRepo    *repository.ProgressRepo
	progressService *services.ProgressService
}

func NewProgressHandler(progressRepo *repository.ProgressRepo, progressService *services.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressRepo: progressRepo, progressService: progressService}
}

func (h *ProgressHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	userID, ok := resolveUserID(w, r, principal)
	if !ok {
		return
	}

	rows, err := h.progressRepo.ListTopicProgress(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *ProgressHandler) ListSections(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	userID, ok := resolveUserID(w, r, principal)
	if !ok {
		return
	}

	rows, err := h.progressRepo.ListSectionProgress(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *ProgressHandler) ListSubsections(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	userID, ok := resolveUserID(w, r, principal)
	if !ok {
		return
	}

	rows, err := h.progressRepo.ListSubsectionProgress(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// Profile returns the caller's aggregated learning profile.
func (h *ProgressHandler) Profile(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	profile, err := h.progressService.UserProfile(r.Context(), principal.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
