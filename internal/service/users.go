package service

import (
	"context"
	"crypto/sha256"
	"fmt"

	"evently/internal/apperrors"
	"evently/internal/models"
)

type UserService struct {
	users UserStore
}

func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

// Register creates a user account. Passwords are stored as sha256 hex,
// matching what the Basic Auth middleware compares against.
func (s *UserService) Register(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	hash := sha256.Sum256([]byte(req.Password))

	user := &models.User{
		Email:        req.Email,
		PasswordHash: fmt.Sprintf("%x", hash),
		FullName:     req.FullName,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}
	return user, nil
}
