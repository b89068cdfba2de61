package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Marga-Ghale/ora-tasks-api/internal/repository"
)

// ============================================
// User Service
// ============================================

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

type UserService interface {
	GetByID(ctx context.Context, id string) (*repository.User, error)
	Search(ctx context.Context, email string, limit int) ([]*repository.User, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetByID(ctx context.Context, id string) (*repository.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// Search matches users by email prefix.
func (s *userService) Search(ctx context.Context, email string, limit int) ([]*repository.User, error) {
	email = normalizeEmail(email)
	if len(email) < 2 {
		return nil, fmt.Errorf("%w: search needs at least 2 characters", ErrInvalidInput)
	}
	if strings.ContainsAny(email, "%_") {
		return nil, fmt.Errorf("%w: invalid search pattern", ErrInvalidInput)
	}

	switch {
	case limit <= 0:
		limit = defaultSearchLimit
	case limit > maxSearchLimit:
		limit = maxSearchLimit
	}
	return s.userRepo.SearchByEmail(ctx, email, limit)
}
