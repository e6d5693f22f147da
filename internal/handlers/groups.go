package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"testwise-backend/internal/models"
	"testwise-backend/internal/repository"
)

type GroupHandler struct {
	groupRepo *repository.GroupRepo
}

func NewGroupHandler(groupRepo *repository.GroupRepo) *GroupHandler {
	return &GroupHandler{groupRepo: groupRepo}
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", map[string]string{"name": "Name is required"}, r))
		return
	}
	if req.EndYear < req.StartYear {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", map[string]string{"end_year": "End year must not be before start year"}, r))
		return
	}

	group := &models.Group{
		Name:        req.Name,
		StartYear:   req.StartYear,
		EndYear:     req.EndYear,
		Description: req.Description,
	}
	if err := h.groupRepo.Create(r.Context(), group); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, group)
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groupRepo.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid group id", r))
		return
	}

	group, err := h.groupRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Group not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid group id", r))
		return
	}

	group, err := h.groupRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Group not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	var req models.CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Name != "" {
		group.Name = req.Name
	}
	if req.StartYear != 0 {
		group.StartYear = req.StartYear
	}
	if req.EndYear != 0 {
		group.EndYear = req.EndYear
	}
	if req.Description != nil {
		group.Description = req.Description
	}

	if err := h.groupRepo.Update(r.Context(), group); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) Archive(w http.ResponseWriter, r *http.Request) {
	archiveOp(w, r, h.groupRepo.Archive, "group", "Group archived")
}

func (h *GroupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	archiveOp(w, r, h.groupRepo.Restore, "group", "Group restored")
}

func (h *GroupHandler) DeletePermanently(w http.ResponseWriter, r *http.Request) {
	archiveOp(w, r, h.groupRepo.DeletePermanently, "group", "Group deleted")
}

// Membership

func (h *GroupHandler) AddStudent(w http.ResponseWriter, r *http.Request) {
	h.addMember(w, r, h.groupRepo.AddStudent, "Student added to group")
}

func (h *GroupHandler) RemoveStudent(w http.ResponseWriter, r *http.Request) {
	h.removeMember(w, r, h.groupRepo.RemoveStudent, "Student removed from group")
}

func (h *GroupHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	h.listMembers(w, r, h.groupRepo.ListStudents)
}

func (h *GroupHandler) AddTeacher(w http.ResponseWriter, r *http.Request) {
	h.addMember(w, r, h.groupRepo.AddTeacher, "Teacher added to group")
}

func (h *GroupHandler) RemoveTeacher(w http.ResponseWriter, r *http.Request) {
	h.removeMember(w, r, h.groupRepo.RemoveTeacher, "Teacher removed from group")
}

func (h *GroupHandler) ListTeachers(w http.ResponseWriter, r *http.Request) {
	h.listMembers(w, r, h.groupRepo.ListTeachers)
}

func (h *GroupHandler) addMember(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, groupID, userID uuid.UUID) error, message string) {
	groupID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid group id", r))
		return
	}

	var req models.GroupMembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "user_id is required", r))
		return
	}

	if err := op(r.Context(), groupID, req.UserID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (h *GroupHandler) removeMember(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, groupID, userID uuid.UUID) (bool, error), message string) {
	groupID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid group id", r))
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid user id", r))
		return
	}

	ok, err := op(r.Context(), groupID, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Membership not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (h *GroupHandler) listMembers(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, groupID uuid.UUID) ([]*models.GroupMember, error)) {
	groupID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid group id", r))
		return
	}

	members, err := op(r.Context(), groupID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, members)
}
