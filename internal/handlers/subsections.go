package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"testwise-backend/internal/middleware"
	"testwise-backend/internal/models"
	"testwise-backend/internal/repository"
	"testwise-backend/internal/services"
)

type SubsectionHandler struct {
	subsectionRepo  *repository.SubsectionRepo
	progressService *services.ProgressService
	fileService     *services.FileService
	redis           *redis.Client
}

func NewSubsectionHandler(subsectionRepo *repository.SubsectionRepo, progressService *services.ProgressService, fileService *services.FileService, redisClient *redis.Client) *SubsectionHandler {
	return &SubsectionHandler{
		subsectionRepo:  subsectionRepo,
		progressService: progressService,
		fileService:     fileService,
		redis:           redisClient,
	}
}

func (h *SubsectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSubsectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.Title == "" || req.SectionID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", map[string]string{"title": "Title and section_id are required"}, r))
		return
	}

	subType := req.Type
	if subType == "" {
		subType = models.SubsectionText
	}

	subsection := &models.Subsection{
		SectionID: req.SectionID,
		Title:     req.Title,
		Content:   req.Content,
		Type:      subType,
		Order:     req.Order,
	}
	if err := h.subsectionRepo.Create(r.Context(), subsection); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, subsection)
}

func (h *SubsectionHandler) List(w http.ResponseWriter, r *http.Request) {
	sectionID, err := uuid.Parse(r.URL.Query().Get("section_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "section_id query parameter is required", r))
		return
	}

	subsections, err := h.subsectionRepo.ListBySection(r.Context(), sectionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, subsections)
}

func (h *SubsectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid subsection id", r))
		return
	}

	subsection, err := h.subsectionRepo.GetSubsection(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Subsection not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, subsection)
}

func (h *SubsectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid subsection id", r))
		return
	}

	subsection, err := h.subsectionRepo.GetSubsection(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Subsection not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	var req models.UpdateSubsectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Title != nil {
		subsection.Title = *req.Title
	}
	if req.Content != nil {
		subsection.Content = req.Content
	}
	if req.Type != nil {
		subsection.Type = *req.Type
	}
	if req.Order != nil {
		subsection.Order = *req.Order
	}
	now := time.Now()
	subsection.UpdatedAt = &now

	if err := h.subsectionRepo.Update(r.Context(), subsection); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, subsection)
}

func (h *SubsectionHandler) Archive(w http.ResponseWriter, r *http.Request) {
	archiveOp(w, r, h.subsectionRepo.Archive, "subsection", "Subsection archived")
}

func (h *SubsectionHandler) Restore(w http.ResponseWriter, r *http.Request) {
	archiveOp(w, r, h.subsectionRepo.Restore, "subsection", "Subsection restored")
}

func (h *SubsectionHandler) DeletePermanently(w http.ResponseWriter, r *http.Request) {
	archiveOp(w, r, h.subsectionRepo.DeletePermanently, "subsection", "Subsection deleted")
}

// View marks the subsection as viewed for the calling student and returns
// the resulting progress row.
func (h *SubsectionHandler) View(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid subsection id", r))
		return
	}

	principal := middleware.GetPrincipal(r.Context())
	progress, err := h.progressService.MarkSubsectionViewed(r.Context(), principal.UserID, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

// Upload attaches a PDF to the subsection and queues text extraction.
func (h *SubsectionHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid subsection id", r))
		return
	}

	subsection, err := h.subsectionRepo.GetSubsection(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Subsection not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 21<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	path, err := h.fileService.SaveUpload(header.Filename, header.Size, file)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	subsection.Type = models.SubsectionPDF
	subsection.Content = &path
	now := time.Now()
	subsection.UpdatedAt = &now
	if err := h.subsectionRepo.Update(r.Context(), subsection); err != nil {
		handleServiceError(w, r, err)
		return
	}

	job := &models.Job{
		ID:           uuid.New(),
		Type:         models.JobPDFExtraction,
		SubsectionID: subsection.ID,
		FilePath:     path,
		CreatedAt:    time.Now(),
	}
	jobBytes, _ := json.Marshal(job)
	if err := h.redis.LPush(r.Context(), "queue:"+models.JobPDFExtraction, string(jobBytes)).Err(); err != nil {
		log.Printf("failed to enqueue pdf extraction for subsection %s: %v", subsection.ID, err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"subsection_id": subsection.ID,
		"filename":      header.Filename,
		"status":        "processing",
	})
}
