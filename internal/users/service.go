// Package users registers accounts and exchanges credentials for bearer
// tokens.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/joao-fontenele/storefront-api/internal/auth"
	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/store"
)

type RegisterInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
	IsAdmin   bool   `json:"isAdmin"`
	Street    string `json:"street"`
	Apartment string `json:"apartment"`
	Zip       string `json:"zip"`
	City      string `json:"city"`
	Country   string `json:"country"`
}

func (in RegisterInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("name is required: %w", domain.ErrValidation)
	case in.Password == "":
		return fmt.Errorf("password is required: %w", domain.ErrValidation)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return fmt.Errorf("invalid email %q: %w", in.Email, domain.ErrValidation)
	}
	return nil
}

// Session is what a successful login returns.
type Session struct {
	Email string `json:"user"`
	Token string `json:"token"`
}

type Service struct {
	store  *store.Store
	issuer *auth.Issuer
	logger *slog.Logger
}

func NewService(st *store.Store, issuer *auth.Issuer, logger *slog.Logger) *Service {
	return &Service{store: st, issuer: issuer, logger: logger}
}

// Register hashes the password and stores the user. A taken email is a
// validation failure.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Name:         in.Name,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		Phone:        in.Phone,
		IsAdmin:      in.IsAdmin,
		Street:       in.Street,
		Apartment:    in.Apartment,
		Zip:          in.Zip,
		City:         in.City,
		Country:      in.Country,
	}
	if err := s.store.Users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", u.ID, "is_admin", u.IsAdmin)
	return u, nil
}

// Login issues a token when the password matches. An unknown email keeps
// ErrNotFound, a wrong password is ErrInvalidCredential.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.store.Users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("the user is not found: %w", domain.ErrNotFound)
		}
		return nil, err
	}

	ok, err := auth.ComparePassword(u.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Info("login rejected", "user_id", u.ID)
		return nil, fmt.Errorf("password is wrong: %w", domain.ErrInvalidCredential)
	}

	token, err := s.issuer.Issue(u.ID, u.IsAdmin)
	if err != nil {
		return nil, err
	}
	return &Session{Email: u.Email, Token: token}, nil
}

func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	return s.store.Users.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.store.Users.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Users.Delete(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Users.Count(ctx)
}
