package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"seatwatch/internal/domain"
	"seatwatch/internal/repos"
)

type UserService struct {
	Users *repos.UserRepo
	Now   func() time.Time
}

func NewUserService(users *repos.UserRepo) *UserService {
	return &UserService{Users: users, Now: time.Now}
}

// Register creates a recipient with notifications enabled. Emails are
// unique case-insensitively.
func (s *UserService) Register(ctx context.Context, email, fullName string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if _, err := s.Users.ByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	u := domain.User{
		ID:                        uuid.NewString(),
		Email:                     email,
		FullName:                  strings.TrimSpace(fullName),
		EmailNotificationsEnabled: true,
		CreatedAt:                 s.Now().UTC(),
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.Users.ByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return u, err
}

func (s *UserService) SetNotifications(ctx context.Context, id string, enabled bool) (*domain.User, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.Users.SetNotifications(ctx, id, enabled); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}
