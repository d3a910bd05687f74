package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/alexedwards/argon2id"

	"github.com/theadityachoudhury/auth-service/internal/config"
	"github.com/theadityachoudhury/auth-service/internal/logging"
	"github.com/theadityachoudhury/auth-service/internal/model"
	"github.com/theadityachoudhury/auth-service/internal/repository"
)

var (
	ErrEmailTaken         = errors.New("email is already registered")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveAccount    = errors.New("account is inactive")
)

// PolicyError describes a password that fails the configured policy.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string { return "password policy: " + e.Reason }

// RegisterInput is the validated material for creating an account.
type RegisterInput struct {
	Email     string
	Username  *string
	FirstName string
	LastName  string
	Password  string
}

// UserService implements account registration and authentication.
type UserService struct {
	repo   *repository.UserRepository
	policy config.PasswordPolicy
	log    *logging.Logger
}

// NewUserService wires the service.
func NewUserService(repo *repository.UserRepository, policy config.PasswordPolicy, log *logging.Logger) *UserService {
	return &UserService{repo: repo, policy: policy, log: log}
}

// Register creates a new account. Uniqueness of email and username is
// checked first; the password must satisfy the configured policy and is
// stored as an argon2id hash.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if err := CheckPassword(s.policy, in.Password); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	if in.Username != nil && *in.Username != "" {
		taken, err := s.repo.GetByUsername(ctx, *in.Username)
		if err != nil {
			return nil, fmt.Errorf("check username: %w", err)
		}
		if taken != nil {
			return nil, ErrUsernameTaken
		}
	}

	hash, err := argon2id.CreateHash(in.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		IsActive:     true,
		Role:         model.RoleUser,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Ctx(ctx).Info().
		Dict("extra", logging.Extra(map[string]any{"email": u.Email, "user_id": u.ID})).
		Msg("user created")
	return u, nil
}

// Authenticate verifies credentials and stamps last_login on success.
// Lookup misses and hash mismatches both return ErrInvalidCredentials so
// callers cannot distinguish which field was wrong.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}

	match, err := argon2id.ComparePasswordAndHash(password, u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !match {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactiveAccount
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, u.ID, now); err != nil {
		// Login still succeeds; the stamp is best-effort.
		s.log.Ctx(ctx).Warn().Err(err).Msg("update last_login failed")
	} else {
		u.LastLogin = &now
	}
	return u, nil
}

// GetByID loads one account for authenticated reads.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// CheckPassword validates a candidate password against the policy.
func CheckPassword(p config.PasswordPolicy, password string) error {
	if len(password) < p.MinLength {
		return &PolicyError{Reason: fmt.Sprintf("must be at least %d characters", p.MinLength)}
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if p.RequireUppercase && !upper {
		return &PolicyError{Reason: "must contain an uppercase letter"}
	}
	if p.RequireLowercase && !lower {
		return &PolicyError{Reason: "must contain a lowercase letter"}
	}
	if p.RequireNumbers && !digit {
		return &PolicyError{Reason: "must contain a number"}
	}
	if p.RequireSpecialChars && !special {
		return &PolicyError{Reason: "must contain a special character"}
	}
	return nil
}
