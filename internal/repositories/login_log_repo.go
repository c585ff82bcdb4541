package repositories

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/gatehouse/internal/database"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LoginLogRepository persists the login audit trail
type LoginLogRepository struct {
	pool *pgxpool.Pool
}

// NewLoginLogRepository creates a new LoginLogRepository
func NewLoginLogRepository(db *database.DB) *LoginLogRepository {
	return &LoginLogRepository{pool: db.Pool}
}

// LoginLogQuery is a resolved filter: the time window is already concrete
type LoginLogQuery struct {
	UserName  string
	IPAddress string
	Status    string
	Since     time.Time
	Until     *time.Time
	Limit     int
	Offset    int
}

const loginLogColumns = `id, user_name, status, msg, ip_address, login_location, browser, os, login_time`

func scanLoginAttemptRow(row rowScanner) (*models.LoginAttempt, error) {
	var a models.LoginAttempt

	err := row.Scan(
		&a.ID, &a.UserName, &a.Status, &a.Message,
		&a.IPAddress, &a.Location, &a.Browser, &a.OS, &a.LoginTime,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &a, nil
}

func scanLoginAttemptRows(rows pgx.Rows) ([]models.LoginAttempt, error) {
	defer rows.Close()

	attempts := make([]models.LoginAttempt, 0)

	for rows.Next() {
		a, err := scanLoginAttemptRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan login log: %w", err)
		}
		attempts = append(attempts, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating login log rows: %w", err)
	}

	return attempts, nil
}

// Insert appends one attempt and fills in its generated ID
func (r *LoginLogRepository) Insert(ctx context.Context, a *models.LoginAttempt) error {
	query := `
		INSERT INTO login_logs (user_name, status, msg, ip_address, login_location, browser, os, login_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		a.UserName, a.Status, a.Message, a.IPAddress, a.Location, a.Browser, a.OS, a.LoginTime,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to insert login log: %w", database.MapPostgresError(err))
	}

	return nil
}

// whereClause builds the shared filter of Query and Count
func (q LoginLogQuery) whereClause() (string, []any) {
	conds := []string{"login_time >= $1"}
	args := []any{q.Since}

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if q.Until != nil {
		add("login_time <= ?", *q.Until)
	}
	if q.UserName != "" {
		add("strpos(user_name, ?) > 0", q.UserName)
	}
	if q.IPAddress != "" {
		add("ip_address = ?", q.IPAddress)
	}
	if q.Status != "" {
		add("status = ?", q.Status)
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

// Query returns one page of matching attempts, newest identity first
func (r *LoginLogRepository) Query(ctx context.Context, q LoginLogQuery) ([]models.LoginAttempt, error) {
	where, args := q.whereClause()
	args = append(args, q.Limit, q.Offset)

	query := `SELECT ` + loginLogColumns + ` FROM login_logs` + where +
		fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query login logs: %w", err)
	}

	return scanLoginAttemptRows(rows)
}

// Count returns the number of attempts matching q, ignoring paging
func (r *LoginLogRepository) Count(ctx context.Context, q LoginLogQuery) (int64, error) {
	where, args := q.whereClause()

	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM login_logs`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count login logs: %w", err)
	}

	return count, nil
}

// DeleteByIDs removes the given attempts and returns how many existed
func (r *LoginLogRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM login_logs WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete login logs: %w", err)
	}

	return tag.RowsAffected(), nil
}

// Truncate irreversibly empties the login log
func (r *LoginLogRepository) Truncate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `TRUNCATE TABLE login_logs RESTART IDENTITY`); err != nil {
		return fmt.Errorf("failed to truncate login logs: %w", err)
	}
	return nil
}
