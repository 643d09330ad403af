package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/mission-service/internal/domain"
)

// DepartmentRepository manages department persistence.
type DepartmentRepository interface {
	Create(ctx context.Context, dept *domain.Department) error
	Update(ctx context.Context, dept *domain.Department) error
	GetByID(ctx context.Context, id string) (*domain.Department, error)
	GetByName(ctx context.Context, name string) (*domain.Department, error)
	GetByCode(ctx context.Context, code string) (*domain.Department, error)
	GetLedByUser(ctx context.Context, userID string) (*domain.Department, error)
	List(ctx context.Context, includeInactive bool) ([]domain.Department, error)
}

type departmentRepository struct {
	pool *pgxpool.Pool
}

// NewDepartmentRepository builds the repository.
func NewDepartmentRepository(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepository{pool: pool}
}

const departmentColumns = `id, name, code, description, head_id, status, created_at, updated_at`

func (r *departmentRepository) Create(ctx context.Context, dept *domain.Department) error {
	const query = `
        INSERT INTO departments (name, code, description, head_id, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		dept.Name,
		dept.Code,
		dept.Description,
		dept.HeadID,
		dept.Status,
	).Scan(&dept.ID, &dept.CreatedAt, &dept.UpdatedAt)
	return translateError(err)
}

func (r *departmentRepository) Update(ctx context.Context, dept *domain.Department) error {
	if !validID(dept.ID) {
		return pgx.ErrNoRows
	}
	const query = `
        UPDATE departments SET name=$1, code=$2, description=$3, head_id=$4, status=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		dept.Name,
		dept.Code,
		dept.Description,
		dept.HeadID,
		dept.Status,
		dept.ID,
	).Scan(&dept.UpdatedAt)
	return translateError(err)
}

func (r *departmentRepository) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	return r.getOne(ctx, `SELECT `+departmentColumns+` FROM departments WHERE id=$1`, id)
}

func (r *departmentRepository) GetByName(ctx context.Context, name string) (*domain.Department, error) {
	return r.getOne(ctx, `SELECT `+departmentColumns+` FROM departments WHERE name=$1`, name)
}

func (r *departmentRepository) GetByCode(ctx context.Context, code string) (*domain.Department, error) {
	return r.getOne(ctx, `SELECT `+departmentColumns+` FROM departments WHERE code=$1`, code)
}

func (r *departmentRepository) GetLedByUser(ctx context.Context, userID string) (*domain.Department, error) {
	if !validID(userID) {
		return nil, pgx.ErrNoRows
	}
	return r.getOne(ctx, `SELECT `+departmentColumns+` FROM departments WHERE head_id=$1`, userID)
}

func (r *departmentRepository) getOne(ctx context.Context, query string, arg any) (*domain.Department, error) {
	dept, err := scanDepartment(conn(ctx, r.pool).QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translateError(err)
	}
	return dept, nil
}

func (r *departmentRepository) List(ctx context.Context, includeInactive bool) ([]domain.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments`
	if !includeInactive {
		query += ` WHERE status = 'ACTIVE'`
	}
	query += ` ORDER BY name`

	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var result []domain.Department
	for rows.Next() {
		dept, err := scanDepartment(rows)
		if err != nil {
			return nil, translateError(err)
		}
		result = append(result, *dept)
	}
	return result, translateError(rows.Err())
}

func scanDepartment(row pgx.Row) (*domain.Department, error) {
	var dept domain.Department
	if err := row.Scan(
		&dept.ID,
		&dept.Name,
		&dept.Code,
		&dept.Description,
		&dept.HeadID,
		&dept.Status,
		&dept.CreatedAt,
		&dept.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &dept, nil
}
