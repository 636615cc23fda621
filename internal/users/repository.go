// Package users owns accounts: registration, login and role lookup.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/postgres"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const selectUser = `
	SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.date_of_birth, u.avatar,
		COALESCE(ARRAY_AGG(r.role ORDER BY r.role) FILTER (WHERE r.role IS NOT NULL), '{}')
	FROM users u
	LEFT JOIN user_roles r ON r.user_id = u.id
`

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u     domain.User
		dob   sql.NullTime
		roles []string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &dob, &u.AvatarURL, pq.Array(&roles))
	if err != nil {
		return nil, err
	}

	if dob.Valid {
		u.DateOfBirth = &dob.Time
	}
	u.Roles = lo.Map(roles, func(r string, _ int) domain.Role { return domain.Role(r) })

	return &u, nil
}

// Create inserts the user and its roles in one transaction and fills in the generated id.
// A taken email is reported as invalid input.
func (r *Repository) Create(ctx context.Context, u *domain.User) error {
	return postgres.WithTx(ctx, r.db, func(tx postgres.DBTX) error {
		var dob any
		if u.DateOfBirth != nil {
			dob = *u.DateOfBirth
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO users (email, password_hash, first_name, last_name, date_of_birth, avatar)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, u.Email, u.PasswordHash, u.FirstName, u.LastName, dob, u.AvatarURL).Scan(&u.ID)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return domain.Invalidf("email %s is already registered", u.Email)
			}
			return fmt.Errorf("insert user: %w", err)
		}

		for _, role := range u.Roles {
			if _, err := tx.ExecContext(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, u.ID, role); err != nil {
				return fmt.Errorf("insert user role: %w", err)
			}
		}

		return nil
	})
}

// AddRole is a no-op when the user already holds role.
func (r *Repository) AddRole(ctx context.Context, userID string, role domain.Role) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, role)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		return fmt.Errorf("insert user role: %w", err)
	}
	return nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, selectUser+`
		WHERE LOWER(u.email) = LOWER($1)
		GROUP BY u.id
	`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("select user by email: %w", err)
	}
	return u, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if uuid.Validate(id) != nil {
		return nil, fmt.Errorf("user %q: %w", id, domain.ErrNotFound)
	}

	u, err := scanUser(r.db.QueryRowContext(ctx, selectUser+`
		WHERE u.id = $1
		GROUP BY u.id
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("select user by id: %w", err)
	}
	return u, nil
}

// Roles satisfies auth.RoleSource.
func (r *Repository) Roles(ctx context.Context, userID string) ([]domain.Role, error) {
	u, err := r.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Roles, nil
}
