package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/gatehouse/internal/database"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository is the user directory the login gate reads principals from
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, user_name, nick_name, phone, password_hash, otp_secret, status, login_ip, login_date, created_at, updated_at`

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var phone *string

	err := scanner.Scan(
		&user.ID, &user.UserName, &user.NickName, &phone,
		&user.PasswordHash, &user.OTPSecret, &user.Status,
		&user.LoginIP, &user.LoginDate,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if phone != nil {
		user.Phone = *phone
	}

	return &user, nil
}

// FindByUserName returns models.ErrNotFound when no account matches
func (r *UserRepository) FindByUserName(ctx context.Context, userName string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_name = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, userName))
}

// FindByPhone returns models.ErrNotFound when no account matches
func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, phone))
}

// UpdateLastLogin records the address and time of the latest accepted login
func (r *UserRepository) UpdateLastLogin(ctx context.Context, ip string, userID int64) error {
	query := `
		UPDATE users SET login_ip = $1, login_date = $2, updated_at = $2
		WHERE id = $3
	`

	tag, err := r.pool.Exec(ctx, query, ip, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Create inserts a principal. The directory itself is owned elsewhere;
// this exists for bootstrapping the operator account and for tests.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	var phone *string
	if user.Phone != "" {
		phone = &user.Phone
	}

	query := `
		INSERT INTO users (user_name, nick_name, phone, password_hash, otp_secret, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.UserName, user.NickName, phone, user.PasswordHash, user.OTPSecret, user.Status,
	))
}
