package consistency

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/mission-service/internal/domain"
	"github.com/spec-kit/mission-service/internal/repository"
	"github.com/spec-kit/mission-service/internal/repository/memory"
	apperrors "github.com/spec-kit/mission-service/pkg/util"
)

type fixture struct {
	ctx    context.Context
	store  *memory.Store
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	return &fixture{
		ctx:    context.Background(),
		store:  store,
		engine: NewEngine(store.Users(), store.Departments()),
	}
}

func (f *fixture) user(t *testing.T, email string, role domain.Role, departmentID *string) *domain.User {
	t.Helper()
	u := &domain.User{
		EmployeeID:    "EMP-" + email,
		Email:         email,
		Role:          role,
		DepartmentID:  departmentID,
		AccountStatus: domain.AccountStatusActive,
	}
	require.NoError(t, f.store.Users().Create(f.ctx, u))
	return u
}

func (f *fixture) department(t *testing.T, name, code string, headID *string) *domain.Department {
	t.Helper()
	d := &domain.Department{Name: name, Code: code, HeadID: headID, Status: domain.DepartmentStatusActive}
	require.NoError(t, f.store.Departments().Create(f.ctx, d))
	return d
}

func TestValidateDepartmentHeadAssignment(t *testing.T) {
	f := newFixture(t)
	ops := f.department(t, "Operations", "OPS", nil)

	head := f.user(t, "head@x.com", domain.RoleHeadOfDepartment, nil)
	employee := f.user(t, "emp@x.com", domain.RoleEmployee, nil)
	memberHead := f.user(t, "member@x.com", domain.RoleHeadOfDepartment, nil)
	// Bypass the check constraint to model legacy data that breaks the invariant.
	memberHead.DepartmentID = &ops.ID

	busyHead := f.user(t, "busy@x.com", domain.RoleHeadOfDepartment, nil)
	finance := f.department(t, "Finance", "FIN", &busyHead.ID)

	t.Run("eligible head", func(t *testing.T) {
		v, err := f.engine.ValidateDepartmentHeadAssignment(f.ctx, head.ID, &ops.ID)
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("eligible head for a new department", func(t *testing.T) {
		v, err := f.engine.ValidateDepartmentHeadAssignment(f.ctx, head.ID, nil)
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("unknown candidate", func(t *testing.T) {
		v, err := f.engine.ValidateDepartmentHeadAssignment(f.ctx, "nobody", &ops.ID)
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, KindNotFound, v.Kind)
	})

	t.Run("wrong role", func(t *testing.T) {
		v, err := f.engine.ValidateDepartmentHeadAssignment(f.ctx, employee.ID, &ops.ID)
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, KindInvalidRole, v.Kind)
	})

	t.Run("regular member", func(t *testing.T) {
		engine := NewEngine(stubUsers{memberHead}, f.store.Departments())
		v, err := engine.ValidateDepartmentHeadAssignment(f.ctx, memberHead.ID, &ops.ID)
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, KindAlreadyMember, v.Kind)
	})

	t.Run("heads another department", func(t *testing.T) {
		v, err := f.engine.ValidateDepartmentHeadAssignment(f.ctx, busyHead.ID, &ops.ID)
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, KindAlreadyHeadsElsewhere, v.Kind)
		assert.Equal(t, "Finance", v.DepartmentName)
		assert.Contains(t, v.Message, "Finance")
	})

	t.Run("already heads the same department", func(t *testing.T) {
		v, err := f.engine.ValidateDepartmentHeadAssignment(f.ctx, busyHead.ID, &finance.ID)
		require.NoError(t, err)
		assert.Nil(t, v)
	})
}

func TestValidateUserRoleOrDepartmentChange(t *testing.T) {
	f := newFixture(t)
	ops := f.department(t, "Operations", "OPS", nil)
	head := f.user(t, "head@x.com", domain.RoleHeadOfDepartment, nil)
	f.department(t, "Finance", "FIN", &head.ID)
	freeHead := f.user(t, "free@x.com", domain.RoleHeadOfDepartment, nil)
	employee := f.user(t, "emp@x.com", domain.RoleEmployee, &ops.ID)

	omittedRole := domain.None[domain.Role]()
	omittedDept := domain.None[*string]()

	t.Run("sitting head demoted without detaching", func(t *testing.T) {
		v, err := f.engine.ValidateUserRoleOrDepartmentChange(f.ctx, head, domain.Some(domain.RoleEmployee), omittedDept)
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, KindMustDetachHeadshipFirst, v.Kind)
		assert.Equal(t, "Finance", v.DepartmentName)
	})

	t.Run("sitting head joins a department", func(t *testing.T) {
		v, err := f.engine.ValidateUserRoleOrDepartmentChange(f.ctx, head, omittedRole, domain.Some(&ops.ID))
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, KindHeadCannotBeMember, v.Kind)
	})

	t.Run("member promoted to head keeps department", func(t *testing.T) {
		v, err := f.engine.ValidateUserRoleOrDepartmentChange(f.ctx, employee, domain.Some(domain.RoleHeadOfDepartment), omittedDept)
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, KindHeadCannotBeMember, v.Kind)
	})

	t.Run("member promoted to head with explicit null department", func(t *testing.T) {
		v, err := f.engine.ValidateUserRoleOrDepartmentChange(f.ctx, employee, domain.Some(domain.RoleHeadOfDepartment), domain.Some[*string](nil))
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("head without department demoted", func(t *testing.T) {
		v, err := f.engine.ValidateUserRoleOrDepartmentChange(f.ctx, freeHead, domain.Some(domain.RoleEmployee), domain.Some(&ops.ID))
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("no changes", func(t *testing.T) {
		v, err := f.engine.ValidateUserRoleOrDepartmentChange(f.ctx, head, omittedRole, omittedDept)
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("unknown role", func(t *testing.T) {
		v, err := f.engine.ValidateUserRoleOrDepartmentChange(f.ctx, employee, domain.Some(domain.Role("CEO")), omittedDept)
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, KindValidationFailed, v.Kind)
	})
}

func TestCheckUnique(t *testing.T) {
	f := newFixture(t)
	existing := f.user(t, "taken@x.com", domain.RoleEmployee, nil)
	dept := f.department(t, "Operations", "OPS", nil)

	t.Run("combined conflict in given order", func(t *testing.T) {
		v, err := f.engine.CheckUnique(f.ctx, "",
			UniqueCheck{Field: FieldEmail, Value: existing.Email},
			UniqueCheck{Field: FieldEmployeeID, Value: existing.EmployeeID},
		)
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, KindConflict, v.Kind)
		require.Len(t, v.Conflicts, 2)
		assert.Equal(t, FieldEmail, v.Conflicts[0].Field)
		assert.Equal(t, FieldEmployeeID, v.Conflicts[1].Field)
	})

	t.Run("update excludes own row", func(t *testing.T) {
		v, err := f.engine.EnsureUniqueOnUpdate(f.ctx, FieldEmail, existing.Email, existing.ID)
		require.NoError(t, err)
		assert.Nil(t, v)

		v, err = f.engine.EnsureUniqueOnUpdate(f.ctx, FieldEmail, existing.Email, "someone-else")
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.True(t, v.ConflictsOn(FieldEmail))
	})

	t.Run("department code on create", func(t *testing.T) {
		v, err := f.engine.EnsureUniqueOnCreate(f.ctx, FieldDepartmentCode, dept.Code)
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.True(t, v.ConflictsOn(FieldDepartmentCode))

		v, err = f.engine.EnsureUniqueOnCreate(f.ctx, FieldDepartmentName, "Brand New")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("soft-deleted rows still count", func(t *testing.T) {
		dept.SoftDelete()
		require.NoError(t, f.store.Departments().Update(f.ctx, dept))

		v, err := f.engine.EnsureUniqueOnCreate(f.ctx, FieldDepartmentName, dept.Name)
		require.NoError(t, err)
		require.NotNil(t, v)
	})

	t.Run("collaborator failure is an error, not a violation", func(t *testing.T) {
		engine := NewEngine(failingUsers{}, f.store.Departments())
		v, err := engine.EnsureUniqueOnCreate(f.ctx, FieldEmail, "a@x.com")
		require.Error(t, err)
		assert.Nil(t, v)
	})
}

func TestFromStorageErrorMatchesPreCheck(t *testing.T) {
	v, ok := FromStorageError(&repository.ConstraintError{
		Kind:       repository.ConstraintUnique,
		Constraint: repository.ConstraintDepartmentCode,
		Field:      "code",
	})
	require.True(t, ok)
	assert.Equal(t, KindConflict, v.Kind)
	assert.True(t, v.ConflictsOn(FieldDepartmentCode))

	v, ok = FromStorageError(&repository.ConstraintError{Kind: repository.ConstraintUnique, Constraint: repository.ConstraintDepartmentHead})
	require.True(t, ok)
	assert.Equal(t, KindAlreadyHeadsElsewhere, v.Kind)

	v, ok = FromStorageError(&repository.ConstraintError{Kind: repository.ConstraintCheck, Constraint: repository.ConstraintUserHeadNoMember})
	require.True(t, ok)
	assert.Equal(t, KindHeadCannotBeMember, v.Kind)

	_, ok = FromStorageError(errors.New("boom"))
	assert.False(t, ok)
}

func TestViolationDomainError(t *testing.T) {
	v := conflict([]FieldConflict{{Field: FieldEmail, Value: "a@x.com"}, {Field: FieldEmployeeID, Value: "E1"}})

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(v.DomainError(), &domainErr))
	assert.Equal(t, http.StatusConflict, domainErr.HTTPStatus)
	require.Len(t, domainErr.Fields, 2)
	assert.Equal(t, "email", domainErr.Fields[0].Field)
	assert.Equal(t, "employeeId", domainErr.Fields[1].Field)

	require.True(t, errors.As((&Violation{Kind: KindNotFound, Message: "user not found"}).DomainError(), &domainErr))
	assert.Equal(t, http.StatusNotFound, domainErr.HTTPStatus)

	require.True(t, errors.As(headCannotBeMember().DomainError(), &domainErr))
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus)
}

type stubUsers struct {
	user *domain.User
}

func (s stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, pgx.ErrNoRows
}

func (s stubUsers) GetByEmail(context.Context, string) (*domain.User, error) { return nil, pgx.ErrNoRows }

func (s stubUsers) GetByEmployeeID(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

type failingUsers struct{}

var errStorage = errors.New("storage offline")

func (failingUsers) GetByID(context.Context, string) (*domain.User, error)    { return nil, errStorage }
func (failingUsers) GetByEmail(context.Context, string) (*domain.User, error) { return nil, errStorage }
func (failingUsers) GetByEmployeeID(context.Context, string) (*domain.User, error) {
	return nil, errStorage
}

func TestValidateNewUser(t *testing.T) {
	engine := NewEngine(nil, nil)
	dept := "d1"

	assert.Nil(t, engine.ValidateNewUser(domain.RoleHeadOfDepartment, nil))
	assert.Nil(t, engine.ValidateNewUser(domain.RoleEmployee, &dept))

	v := engine.ValidateNewUser(domain.RoleHeadOfDepartment, &dept)
	require.NotNil(t, v)
	assert.Equal(t, KindHeadCannotBeMember, v.Kind)

	v = engine.ValidateNewUser("", nil)
	require.NotNil(t, v)
	assert.Equal(t, KindValidationFailed, v.Kind)
}

func TestValidateDeactivation(t *testing.T) {
	f := newFixture(t)
	head := f.user(t, "head@x.com", domain.RoleHeadOfDepartment, nil)
	idle := f.user(t, "idle@x.com", domain.RoleHeadOfDepartment, nil)
	f.department(t, "Finance", "FIN", &head.ID)

	v, err := f.engine.ValidateDeactivation(f.ctx, head.ID)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, KindMustDetachHeadshipFirst, v.Kind)
	assert.Equal(t, "Finance", v.DepartmentName)

	v, err = f.engine.ValidateDeactivation(f.ctx, idle.ID)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestConflictFieldMessagesAgreeAcrossPaths(t *testing.T) {
	f := newFixture(t)
	f.department(t, "Finance", "FIN", nil)

	pre, err := f.engine.CheckUnique(f.ctx, "", UniqueCheck{Field: FieldDepartmentCode, Value: "FIN"})
	require.NoError(t, err)
	require.NotNil(t, pre)
	stored, ok := FromStorageError(&repository.ConstraintError{
		Kind:       repository.ConstraintUnique,
		Constraint: repository.ConstraintDepartmentCode,
		Field:      "code",
	})
	require.True(t, ok)

	var preErr, storedErr *apperrors.DomainError
	require.True(t, errors.As(pre.DomainError(), &preErr))
	require.True(t, errors.As(stored.DomainError(), &storedErr))
	assert.Equal(t, preErr.Message, storedErr.Message)
	assert.Equal(t, preErr.Fields, storedErr.Fields)
	assert.Equal(t, "code is already in use", preErr.Fields[0].Message)
}
