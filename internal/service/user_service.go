package service

import (
	"context"

	"tubequiz/internal/domain"
	"tubequiz/internal/dto"
)

// UserService defines the interface for user-related operations.
type UserService interface {
	GetUserProfile(ctx context.Context, userID string) (*dto.UserResponse, error)
}

type userServiceImpl struct {
	userRepo domain.UserRepository
}

// NewUserService creates a new instance of UserService.
func NewUserService(userRepo domain.UserRepository) UserService {
	return &userServiceImpl{userRepo: userRepo}
}

// GetUserProfile retrieves a user's public profile.
func (s *userServiceImpl) GetUserProfile(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, domain.NewInternalError("failed to get user by id", err)
	}
	if user == nil {
		return nil, domain.NewNotFoundError("User not found.")
	}
	return &dto.UserResponse{ID: user.ID, Username: user.Username, Email: user.Email}, nil
}
