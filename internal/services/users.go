package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"testwise-backend/internal/models"
	"testwise-backend/internal/repository"
)

type UserService struct {
	userRepo *repository.UserRepo
}

func NewUserService(userRepo *repository.UserRepo) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) Create(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	fieldErrors := make(map[string]string)

	if req.Username == "" {
		fieldErrors["username"] = "Username is required"
	}
	if req.FullName == "" {
		fieldErrors["full_name"] = "Full name is required"
	}
	if err := validatePassword(req.Password); err != nil {
		fieldErrors["password"] = err.Error()
	}
	if !req.Role.Valid() {
		fieldErrors["role"] = "Role must be admin, teacher or student"
	}

	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	_, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err == nil {
		return nil, &ConflictError{Message: "Username already in use"}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		FullName:     req.FullName,
		PasswordHash: string(hash),
		Role:         req.Role,
		IsActive:     true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "User not found"}
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, role *models.Role) ([]*models.User, error) {
	return s.userRepo.List(ctx, role)
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, req models.UpdateUserRequest) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, &ValidationError{Fields: map[string]string{"role": "Role must be admin, teacher or student"}}
		}
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.Password != nil {
		if err := validatePassword(*req.Password); err != nil {
			return nil, &ValidationError{Fields: map[string]string{"password": err.Error()}}
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), 12)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Archive(ctx context.Context, id uuid.UUID) error {
	ok, err := s.userRepo.Archive(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Message: "User not found"}
	}
	return nil
}

func (s *UserService) Restore(ctx context.Context, id uuid.UUID) error {
	ok, err := s.userRepo.Restore(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Message: "User not found"}
	}
	return nil
}

func (s *UserService) DeletePermanently(ctx context.Context, id uuid.UUID) error {
	ok, err := s.userRepo.DeletePermanently(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Message: "User not found"}
	}
	return nil
}
