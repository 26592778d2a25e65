// Package accounts registers dashboard users and verifies their passwords.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/kozaktomas/spyhole/internal/constants"
	"github.com/kozaktomas/spyhole/internal/database"
)

var (
	ErrUsernameTooShort   = fmt.Errorf("username must be at least %d characters", constants.MinUsernameLength)
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters", constants.MinPasswordLength)
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// RegisterRequest holds the fields of a new account.
type RegisterRequest struct {
	Username     string
	Password     string
	Role         string
	FaceFilename string
}

// Service wraps an account repository with validation and password hashing.
type Service struct {
	repo database.AccountWriter
	cost int
}

// Option configures a Service.
type Option func(*Service)

// WithCost sets the bcrypt cost used for new password hashes.
func WithCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

// NewService creates an account service, by default using bcrypt's default cost.
func NewService(repo database.AccountWriter, opts ...Option) *Service {
	s := &Service{repo: repo, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate checks a registration without touching the store.
// The username is trimmed and an empty role becomes the default role.
func (s *Service) Validate(req *RegisterRequest) error {
	req.Username = strings.TrimSpace(req.Username)
	if req.Role == "" {
		req.Role = constants.DefaultRole
	}
	if utf8.RuneCountInString(req.Username) < constants.MinUsernameLength {
		return ErrUsernameTooShort
	}
	if utf8.RuneCountInString(req.Password) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}
	if !database.ValidRole(req.Role) {
		return ErrInvalidRole
	}
	return nil
}

// Exists reports whether username is taken.
func (s *Service) Exists(ctx context.Context, username string) (bool, error) {
	return s.repo.Exists(ctx, strings.TrimSpace(username))
}

// Register validates req, hashes the password and creates the account.
// A taken username returns database.ErrAccountExists.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*database.Account, error) {
	if err := s.Validate(&req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	acc := &database.Account{
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         req.Role,
		FaceFilename: req.FaceFilename,
	}
	if err := s.repo.Create(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// Authenticate returns the account when the password matches.
// Unknown usernames and wrong passwords both return ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*database.Account, error) {
	acc, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, database.ErrAccountNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

// List returns every account ordered by creation.
func (s *Service) List(ctx context.Context) ([]database.Account, error) {
	return s.repo.List(ctx)
}
