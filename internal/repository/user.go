package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/theadityachoudhury/auth-service/internal/model"
)

const userColumns = `id, email, username, first_name, last_name, password_hash,
	is_active, is_verified, role, phone_number, bio, profile_picture_url,
	created_at, updated_at, last_login, deleted_at`

// UserRepository persists and reads user accounts.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository using the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user and fills ID, CreatedAt and UpdatedAt.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (email, username, first_name, last_name, password_hash,
			is_active, is_verified, role, phone_number, bio, profile_picture_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		u.Email,
		u.Username,
		u.FirstName,
		u.LastName,
		u.PasswordHash,
		u.IsActive,
		u.IsVerified,
		u.Role,
		u.PhoneNumber,
		u.Bio,
		u.ProfilePictureURL,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

// GetByEmail returns the live user with this email, or nil if none.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE lower(email) = lower($1) AND deleted_at IS NULL`, email)
}

// GetByUsername returns the live user with this username, or nil if none.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE lower(username) = lower($1) AND deleted_at IS NULL`, username)
}

// GetByID returns the live user with this id, or nil if none.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE id = $1 AND deleted_at IS NULL`, id)
}

// UpdateLastLogin stamps the user's last successful authentication.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET last_login = $2, updated_at = now() WHERE id = $1`, id, at)
	return err
}

// SoftDelete marks the account deleted without removing the row.
func (r *UserRepository) SoftDelete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET deleted_at = now(), is_active = false WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.PasswordHash,
		&u.IsActive,
		&u.IsVerified,
		&u.Role,
		&u.PhoneNumber,
		&u.Bio,
		&u.ProfilePictureURL,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.LastLogin,
		&u.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
