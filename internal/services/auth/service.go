// Package auth provides account registration and login for the API
// surface.
package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"streampay/internal/models"
	"streampay/internal/repositories"
	"streampay/internal/utils"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)

type Service interface {
	Register(ctx context.Context, email, password, displayName string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, string, string, error)
}

type service struct {
	users repositories.UserRepository
}

func NewService(users repositories.UserRepository) Service {
	return &service{users: users}
}

func (s *service) Register(ctx context.Context, email, password, displayName string) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:       email,
		Password:    string(hashed),
		DisplayName: displayName,
		Role:        "user",
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return user, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*models.User, string, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		log.Printf("login failed: incorrect password for user %d", user.ID)
		return nil, "", "", ErrInvalidCredentials
	}

	accessToken, refreshToken, err := utils.GenerateTokens(&models.UserClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, "", "", err
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		log.Printf("failed to record login time for user %d: %v", user.ID, err)
	}

	return user, accessToken, refreshToken, nil
}
