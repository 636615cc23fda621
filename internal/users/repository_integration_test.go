//go:build integration

package users_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/testutil"
	"github.com/joao-fontenele/storefront-api/internal/users"
)

type userRepositorySuite struct {
	suite.Suite

	db   *sql.DB
	repo *users.Repository
}

func TestUserRepositorySuite(t *testing.T) {
	suite.Run(t, new(userRepositorySuite))
}

func (s *userRepositorySuite) SetupSuite() {
	s.db = testutil.StartPostgres(s.T())
	s.repo = users.NewRepository(s.db)
}

func (s *userRepositorySuite) SetupTest() {
	testutil.Truncate(s.T(), s.db)
}

func (s *userRepositorySuite) newUser(roles ...domain.Role) *domain.User {
	return &domain.User{
		Email:        gofakeit.Email(),
		PasswordHash: "hash",
		FirstName:    gofakeit.FirstName(),
		LastName:     gofakeit.LastName(),
		Roles:        roles,
	}
}

func (s *userRepositorySuite) TestCreateAndLookup() {
	t := s.T()
	ctx := context.Background()

	dob := time.Date(1991, 7, 3, 0, 0, 0, 0, time.UTC)
	u := s.newUser(domain.RoleUser)
	u.DateOfBirth = &dob
	u.AvatarURL = "a.png"
	require.NoError(t, s.repo.Create(ctx, u))
	require.NoError(t, uuid.Validate(u.ID))

	byEmail, err := s.repo.GetByEmail(ctx, strings.ToUpper(u.Email))
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, []domain.Role{domain.RoleUser}, byEmail.Roles)
	require.NotNil(t, byEmail.DateOfBirth)
	assert.True(t, byEmail.DateOfBirth.Equal(dob))
	assert.Equal(t, "a.png", byEmail.AvatarURL)

	byID, err := s.repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, byID.Email)

	require.NoError(t, s.repo.AddRole(ctx, u.ID, domain.RoleAdmin))
	require.NoError(t, s.repo.AddRole(ctx, u.ID, domain.RoleAdmin))

	roles, err := s.repo.Roles(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleAdmin, domain.RoleUser}, roles)
}

func (s *userRepositorySuite) TestDuplicateEmailRollsBack() {
	t := s.T()
	ctx := context.Background()

	first := s.newUser(domain.RoleUser)
	require.NoError(t, s.repo.Create(ctx, first))

	dup := s.newUser(domain.RoleShipper)
	dup.Email = strings.ToUpper(first.Email)
	err := s.repo.Create(ctx, dup)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Equal(t, 1, n)
}

func (s *userRepositorySuite) TestMissingUsers() {
	t := s.T()
	ctx := context.Background()

	_, err := s.repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.repo.Roles(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.repo.GetByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, s.repo.AddRole(ctx, uuid.NewString(), domain.RoleAdmin), domain.ErrNotFound)
}
