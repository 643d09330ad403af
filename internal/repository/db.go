package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConstraintKind classifies a storage-level constraint failure.
type ConstraintKind string

const (
	ConstraintUnique        ConstraintKind = "unique"
	ConstraintCheck         ConstraintKind = "check"
	ConstraintSerialization ConstraintKind = "serialization"
)

// ConstraintError reports a write rejected by a database constraint.
// Field names the domain attribute guarded by the constraint when known.
type ConstraintError struct {
	Kind       ConstraintKind
	Constraint string
	Field      string
	Err        error
}

func (e *ConstraintError) Error() string {
	if e.Constraint != "" {
		return string(e.Kind) + " constraint " + e.Constraint + " violated"
	}
	return string(e.Kind) + " constraint violated"
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// Constraint names declared in migrations/001_init.sql.
const (
	ConstraintUserEmail        = "users_email_key"
	ConstraintUserEmployeeID   = "users_employee_id_key"
	ConstraintUserHeadNoMember = "users_head_not_member"
	ConstraintDepartmentName   = "departments_name_key"
	ConstraintDepartmentCode   = "departments_code_key"
	ConstraintDepartmentHead   = "departments_head_id_key"
)

var constraintFields = map[string]string{
	ConstraintUserEmail:        "email",
	ConstraintUserEmployeeID:   "employeeId",
	ConstraintUserHeadNoMember: "departmentId",
	ConstraintDepartmentName:   "name",
	ConstraintDepartmentCode:   "code",
	ConstraintDepartmentHead:   "headId",
}

// translateError converts Postgres constraint failures into ConstraintError
// and passes every other error through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return &ConstraintError{Kind: ConstraintUnique, Constraint: pgErr.ConstraintName, Field: constraintFields[pgErr.ConstraintName], Err: err}
	case "23514":
		return &ConstraintError{Kind: ConstraintCheck, Constraint: pgErr.ConstraintName, Field: constraintFields[pgErr.ConstraintName], Err: err}
	case "40001", "40P01":
		return &ConstraintError{Kind: ConstraintSerialization, Err: err}
	}
	return err
}

// IsSerializationFailure reports whether err carries a 40001/40P01 abort.
func IsSerializationFailure(err error) bool {
	var constraintErr *ConstraintError
	return errors.As(err, &constraintErr) && constraintErr.Kind == ConstraintSerialization
}

// validID reports whether id can name a row. Ids are uuid columns, and
// Postgres rejects a malformed literal with 22P02 instead of matching
// nothing.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

func withTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// conn returns the transaction bound to ctx, or the pool.
func conn(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return pool
}

// TxManager runs a unit of work atomically.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type pgTxManager struct {
	pool *pgxpool.Pool
}

// maxTxAttempts bounds how often a unit of work is replayed after a
// serialization failure.
const maxTxAttempts = 3

// NewTxManager returns a TxManager running serializable transactions.
func NewTxManager(pool *pgxpool.Pool) TxManager {
	return &pgTxManager{pool: pool}
}

// WithinTx runs fn inside a serializable transaction, replaying it from a
// fresh snapshot when Postgres aborts it with a serialization failure.
// Nested calls join the outer transaction.
func (m *pgTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}
	return RetrySerializable(ctx, maxTxAttempts, func() error {
		return m.runOnce(ctx, fn)
	})
}

func (m *pgTxManager) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return translateError(err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(withTx(ctx, tx)); err != nil {
		return err
	}
	return translateError(tx.Commit(ctx))
}

// RetrySerializable calls run until it returns anything other than a
// serialization failure, ctx is done, or attempts are spent. The last error
// is returned. A replay reads the state the winning transaction committed,
// so the pre-checks name the field that was lost.
func RetrySerializable(ctx context.Context, attempts int, run func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = run()
		if !IsSerializationFailure(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}
