package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tubequiz/internal/domain"
	"tubequiz/internal/repository/models"
	"tubequiz/internal/util"

	"github.com/jmoiron/sqlx"
)

const (
	userColumns = `id, username, email, password_hash, google_id, created_at, updated_at`

	insertUserQuery           = `INSERT INTO users (` + userColumns + `) VALUES (:1, :2, :3, :4, :5, :6, :7)`
	selectUserByIDQuery       = `SELECT ` + userColumns + ` FROM users WHERE id = :1`
	selectUserByUsernameQuery = `SELECT ` + userColumns + ` FROM users WHERE username = :1`
	selectUserByEmailQuery    = `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER(:1)`
	selectUserByGoogleIDQuery = `SELECT ` + userColumns + ` FROM users WHERE google_id = :1`
	updateUserQuery           = `UPDATE users SET username = :1, email = :2, password_hash = :3, google_id = :4, updated_at = :5 WHERE id = :6`
)

// sqlxUserRepository implements domain.UserRepository using sqlx.
type sqlxUserRepository struct {
	db *sqlx.DB
}

// NewSQLXUserRepository creates a new instance of sqlxUserRepository.
func NewSQLXUserRepository(db *sqlx.DB) domain.UserRepository {
	return &sqlxUserRepository{db: db}
}

// CreateUser inserts a new user. An empty ID is filled with a new ULID.
func (r *sqlxUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = util.NewULID()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	m := fromDomainUser(user)
	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, insertUserQuery,
		m.ID, m.Username, m.Email, m.PasswordHash, m.GoogleID, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("User already exists.")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *sqlxUserRepository) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return r.getOne(ctx, selectUserByIDQuery, userID, "id")
}

func (r *sqlxUserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, selectUserByUsernameQuery, username, "username")
}

// GetUserByEmail matches the address case-insensitively.
func (r *sqlxUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, selectUserByEmailQuery, email, "email")
}

func (r *sqlxUserRepository) GetUserByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	return r.getOne(ctx, selectUserByGoogleIDQuery, googleID, "google_id")
}

func (r *sqlxUserRepository) getOne(ctx context.Context, query, arg, field string) (*domain.User, error) {
	var user models.User
	if err := GetExecutor(ctx, r.db).GetContext(ctx, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Return nil, nil for not found, services can handle this
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", field, err)
	}
	return toDomainUser(&user), nil
}

// UpdateUser updates an existing user's information.
func (r *sqlxUserRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now()
	m := fromDomainUser(user)

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, updateUserQuery,
		m.Username, m.Email, m.PasswordHash, m.GoogleID, m.UpdatedAt, m.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("User already exists.")
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return expectAffected(result, "User not found.")
}

func toDomainUser(m *models.User) *domain.User {
	if m == nil {
		return nil
	}
	return &domain.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: util.NullStringToString(m.PasswordHash),
		GoogleID:     util.NullStringToString(m.GoogleID),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func fromDomainUser(u *domain.User) *models.User {
	if u == nil {
		return nil
	}
	return &models.User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: util.StringToNullString(u.PasswordHash),
		GoogleID:     util.StringToNullString(u.GoogleID),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

var _ domain.UserRepository = (*sqlxUserRepository)(nil)
