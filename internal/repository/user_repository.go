package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/mission-service/internal/domain"
)

// UserRepository defines persistence access for employee accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id, digest string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByEmployeeID(ctx context.Context, employeeID string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
}

// UserFilter defines query params for user listing.
type UserFilter struct {
	Role          *domain.Role
	DepartmentID  *string
	AccountStatus *domain.AccountStatus
	Limit         int
	Offset        int
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, employee_id, email, password_digest, first_name, last_name, role, department_id,
        account_status, availability_status, last_login, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (employee_id, email, password_digest, first_name, last_name, role, department_id,
            account_status, availability_status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`

	err := conn(ctx, r.pool).QueryRow(ctx, query,
		user.EmployeeID,
		user.Email,
		user.PasswordDigest,
		user.FirstName,
		user.LastName,
		user.Role,
		user.DepartmentID,
		user.AccountStatus,
		user.AvailabilityStatus,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return translateError(err)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	if !validID(user.ID) {
		return pgx.ErrNoRows
	}
	const query = `
        UPDATE users
        SET employee_id=$1, email=$2, password_digest=$3, first_name=$4, last_name=$5, role=$6,
            department_id=$7, account_status=$8, availability_status=$9, last_login=$10, updated_at=NOW()
        WHERE id=$11
        RETURNING updated_at`

	err := conn(ctx, r.pool).QueryRow(ctx, query,
		user.EmployeeID,
		user.Email,
		user.PasswordDigest,
		user.FirstName,
		user.LastName,
		user.Role,
		user.DepartmentID,
		user.AccountStatus,
		user.AvailabilityStatus,
		user.LastLogin,
		user.ID,
	).Scan(&user.UpdatedAt)
	return translateError(err)
}

// TouchLastLogin stamps last_login without rewriting any other column.
func (r *userRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx, `UPDATE users SET last_login=$1 WHERE id=$2`, at, id)
}

// UpdatePassword replaces the password digest only.
func (r *userRepository) UpdatePassword(ctx context.Context, id, digest string) error {
	return r.execOne(ctx, `UPDATE users SET password_digest=$1, updated_at=NOW() WHERE id=$2`, digest, id)
}

func (r *userRepository) execOne(ctx context.Context, query string, value any, id string) error {
	if !validID(id) {
		return pgx.ErrNoRows
	}
	tag, err := conn(ctx, r.pool).Exec(ctx, query, value, id)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (r *userRepository) GetByEmployeeID(ctx context.Context, employeeID string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE employee_id=$1`, employeeID)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUser(conn(ctx, r.pool).QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translateError(err)
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		if !validID(*filter.DepartmentID) {
			return nil, nil
		}
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if filter.AccountStatus != nil {
		args = append(args, *filter.AccountStatus)
		clauses = append(clauses, fmt.Sprintf("account_status=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, translateError(err)
		}
		result = append(result, *user)
	}
	return result, translateError(rows.Err())
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.EmployeeID,
		&user.Email,
		&user.PasswordDigest,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.DepartmentID,
		&user.AccountStatus,
		&user.AvailabilityStatus,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
