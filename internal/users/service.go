package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/joao-fontenele/storefront-api/internal/auth"
	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/policy"
	"github.com/joao-fontenele/storefront-api/internal/validation"
)

var errInvalidCredentials = fmt.Errorf("invalid email or password: %w", domain.ErrUnauthenticated)

type Store interface {
	Create(ctx context.Context, u *domain.User) error
	AddRole(ctx context.Context, userID string, role domain.Role) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type Service struct {
	store      Store
	tokens     *auth.Tokens
	logger     *slog.Logger
	bcryptCost int
}

func NewService(store Store, tokens *auth.Tokens, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		tokens:     tokens,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
	}
}

type RegisterInput struct {
	Email           string     `json:"email" validate:"required,email"`
	Password        string     `json:"password" validate:"minbytes=6,maxbytes=72"`
	ConfirmPassword string     `json:"confirmPassword" validate:"eqfield=Password"`
	FirstName       string     `json:"firstName" validate:"notblank,max=100"`
	LastName        string     `json:"lastName" validate:"notblank,max=100"`
	DateOfBirth     *time.Time `json:"dateOfBirth" validate:"omitempty,lte"`
	// Avatar is a stored filename, empty when none was uploaded.
	Avatar string `json:"-"`
}

func (in RegisterInput) trimmed() RegisterInput {
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	return in
}

// Validate checks the form without touching storage, so callers can reject a request
// before uploading its avatar.
func (in RegisterInput) Validate() error {
	return validation.Struct(in.trimmed())
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	return s.create(ctx, in, domain.RoleUser)
}

func (s *Service) RegisterShipper(ctx context.Context, caller domain.Caller, in RegisterInput) (*domain.User, error) {
	if err := policy.Authorize(policy.UserRegisterShipper, caller, policy.Resource{}); err != nil {
		return nil, err
	}
	return s.create(ctx, in, domain.RoleShipper)
}

func (s *Service) create(ctx context.Context, in RegisterInput, role domain.Role) (*domain.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt.GenerateFromPassword: %w", err)
	}

	in = in.trimmed()
	user := &domain.User{
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		DateOfBirth:  in.DateOfBirth,
		AvatarURL:    in.Avatar,
		PasswordHash: string(hash),
		Roles:        []domain.Role{role},
	}

	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", role)
	return user, nil
}

type LoginResult struct {
	AccessToken string `json:"access_token"`
	Name        string `json:"name"`
}

// Login never says whether the email or the password was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.store.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &LoginResult{AccessToken: token, Name: user.FullName()}, nil
}

func (s *Service) Current(ctx context.Context, caller domain.Caller) (*domain.User, error) {
	if caller.ID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.store.GetByID(ctx, caller.ID)
}

// EnsureAdmin creates the bootstrap admin, or grants Admin to an existing account with the
// same email. The password of an existing account is left alone.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	existing, err := s.store.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if slices.Contains(existing.Roles, domain.RoleAdmin) {
			return nil
		}
		if err := s.store.AddRole(ctx, existing.ID, domain.RoleAdmin); err != nil {
			return err
		}
		s.logger.Info("granted admin role", "user_id", existing.ID)
		return nil
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	_, err = s.create(ctx, RegisterInput{
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
		FirstName:       "Admin",
		LastName:        "Admin",
	}, domain.RoleAdmin)
	return err
}
