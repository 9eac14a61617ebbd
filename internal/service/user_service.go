package service

import (
	"context"
	"errors"
	"strings"

	"leelaaverse/internal/auth"
	"leelaaverse/internal/entity"
	"leelaaverse/internal/entity/converter"
	"leelaaverse/internal/entity/db"
	"leelaaverse/internal/entity/dto"
	"leelaaverse/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UserService 账户注册、登录与资料维护
type UserService struct {
	repo   model.Repository
	tokens *auth.Manager
}

func NewUserService(repo model.Repository, tokens *auth.Manager) *UserService {
	return &UserService{repo: repo, tokens: tokens}
}

// Register creates an account and signs the caller in.
func (s *UserService) Register(ctx context.Context, req dto.AuthRegisterRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, entity.ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := s.repo.GetUserByUsername(ctx, username); err == nil {
		return nil, entity.ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = username
	}
	user := &db.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		DisplayName:  displayName,
		Role:         db.UserRoleUser,
		IsActive:     true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	logrus.WithField("user_id", user.ID).Info("user registered")
	return s.signIn(user)
}

// Login verifies the credentials and issues a token.
func (s *UserService) Login(ctx context.Context, req dto.AuthLoginRequest) (*dto.AuthResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		return nil, entity.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, entity.ErrUserDisabled
	}
	return s.signIn(user)
}

// Me returns the full profile of the caller.
func (s *UserService) Me(ctx context.Context, userID uint) (*dto.UserResponse, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.UserResponse{Success: true, User: converter.UserToSummary(user)}, nil
}

// GetUser returns a profile. Private fields are only shown to the owner.
func (s *UserService) GetUser(ctx context.Context, viewer Viewer, id uint) (*dto.UserResponse, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive && !viewer.IsAdmin {
		return nil, gorm.ErrRecordNotFound
	}
	summary := converter.UserToPublicSummary(user)
	if viewer.UserID == user.ID || viewer.IsAdmin {
		summary = converter.UserToSummary(user)
	}
	return &dto.UserResponse{Success: true, User: summary}, nil
}

// UpdateProfile applies the non-nil fields of req.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, req dto.ProfileUpdateRequest) (*dto.UserResponse, error) {
	updates := entity.UserUpdates{
		DisplayName: trimmed(req.DisplayName),
		Bio:         trimmed(req.Bio),
		AvatarURL:   trimmed(req.AvatarURL),
	}
	if err := s.repo.UpdateUser(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.Me(ctx, userID)
}

func (s *UserService) signIn(user *db.User) (*dto.AuthResponse, error) {
	token, expiresAt, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expiresAt,
		User:      converter.UserToSummary(user),
	}, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
