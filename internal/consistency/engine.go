// Package consistency guards the invariants tying users to departments:
// a head of department is never a department member, a user heads at most
// one department, a sitting head cannot drop the role without being
// detached first, and emails, employee ids, department names and codes are
// globally unique.
//
// Checks read committed state only. They are an early, descriptive answer;
// the database constraints remain authoritative and FromStorageError maps
// their failures onto the same violations.
package consistency

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/mission-service/internal/domain"
)

// UserReader is the user lookup surface the engine needs.
type UserReader interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByEmployeeID(ctx context.Context, employeeID string) (*domain.User, error)
}

// DepartmentReader is the department lookup surface the engine needs.
type DepartmentReader interface {
	GetByName(ctx context.Context, name string) (*domain.Department, error)
	GetByCode(ctx context.Context, code string) (*domain.Department, error)
	GetLedByUser(ctx context.Context, userID string) (*domain.Department, error)
}

// Engine validates user and department mutations before they are written.
type Engine struct {
	users       UserReader
	departments DepartmentReader
}

// NewEngine constructs the engine.
func NewEngine(users UserReader, departments DepartmentReader) *Engine {
	return &Engine{users: users, departments: departments}
}

// ValidateDepartmentHeadAssignment checks that candidateUserID may head the
// department currentDepartmentID (nil when the department is being created).
func (e *Engine) ValidateDepartmentHeadAssignment(ctx context.Context, candidateUserID string, currentDepartmentID *string) (*Violation, error) {
	candidate, err := e.users.GetByID(ctx, candidateUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound("head candidate"), nil
		}
		return nil, err
	}

	if candidate.Role != domain.RoleHeadOfDepartment {
		return &Violation{
			Kind:    KindInvalidRole,
			Message: fmt.Sprintf("user must hold the %s role to be assigned as head", domain.RoleHeadOfDepartment),
		}, nil
	}
	if candidate.DepartmentID != nil {
		return &Violation{
			Kind:    KindAlreadyMember,
			Message: "a regular department member cannot become a head",
		}, nil
	}

	led, err := e.ledBy(ctx, candidate.ID)
	if err != nil {
		return nil, err
	}
	if led != nil && (currentDepartmentID == nil || led.ID != *currentDepartmentID) {
		return &Violation{
			Kind:           KindAlreadyHeadsElsewhere,
			Message:        fmt.Sprintf("user is already head of department %s", led.Name),
			DepartmentName: led.Name,
		}, nil
	}
	return nil, nil
}

// ValidateUserRoleOrDepartmentChange checks a proposed role and department
// for existing. Omitted fields keep their current value; a present nil
// department id clears the membership.
func (e *Engine) ValidateUserRoleOrDepartmentChange(ctx context.Context, existing *domain.User, proposedRole domain.Optional[domain.Role], proposedDepartmentID domain.Optional[*string]) (*Violation, error) {
	if proposedRole.Present && !proposedRole.Value.Valid() {
		return &Violation{Kind: KindValidationFailed, Message: fmt.Sprintf("unknown role %q", proposedRole.Value)}, nil
	}

	effectiveRole := proposedRole.Or(existing.Role)
	effectiveDepartmentID := proposedDepartmentID.Or(existing.DepartmentID)

	if effectiveRole == domain.RoleHeadOfDepartment && effectiveDepartmentID != nil {
		return headCannotBeMember(), nil
	}

	if proposedRole.Present && proposedRole.Value != domain.RoleHeadOfDepartment {
		led, err := e.ledBy(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
		if led != nil {
			return &Violation{
				Kind:           KindMustDetachHeadshipFirst,
				Message:        fmt.Sprintf("user is head of department %s; remove them as head before changing their role", led.Name),
				DepartmentName: led.Name,
			}, nil
		}
	}
	return nil, nil
}

// ValidateDeactivation checks that userID may be deactivated or deleted.
// A sitting head must be detached from the department first.
func (e *Engine) ValidateDeactivation(ctx context.Context, userID string) (*Violation, error) {
	led, err := e.ledBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	if led == nil {
		return nil, nil
	}
	return &Violation{
		Kind:           KindMustDetachHeadshipFirst,
		Message:        fmt.Sprintf("user is head of department %s; remove them as head before deactivating the account", led.Name),
		DepartmentName: led.Name,
	}, nil
}

// ValidateNewUser checks the role and department of an account that does
// not exist yet.
func (e *Engine) ValidateNewUser(role domain.Role, departmentID *string) *Violation {
	if !role.Valid() {
		return &Violation{Kind: KindValidationFailed, Message: fmt.Sprintf("unknown role %q", role)}
	}
	if role == domain.RoleHeadOfDepartment && departmentID != nil {
		return headCannotBeMember()
	}
	return nil
}

// UniqueCheck pairs a unique field with a candidate value.
type UniqueCheck struct {
	Field UniqueField
	Value string
}

// EnsureUniqueOnCreate reports a Conflict when value is already taken.
func (e *Engine) EnsureUniqueOnCreate(ctx context.Context, field UniqueField, value string) (*Violation, error) {
	return e.CheckUnique(ctx, "", UniqueCheck{Field: field, Value: value})
}

// EnsureUniqueOnUpdate reports a Conflict when value is taken by any row
// other than excludingID.
func (e *Engine) EnsureUniqueOnUpdate(ctx context.Context, field UniqueField, value, excludingID string) (*Violation, error) {
	return e.CheckUnique(ctx, excludingID, UniqueCheck{Field: field, Value: value})
}

// CheckUnique evaluates every check and folds all clashes into a single
// Conflict, listed in the order the checks were given. Rows with id
// excludingID are ignored.
func (e *Engine) CheckUnique(ctx context.Context, excludingID string, checks ...UniqueCheck) (*Violation, error) {
	var conflicts []FieldConflict
	for _, check := range checks {
		ownerID, found, err := e.lookup(ctx, check.Field, check.Value)
		if err != nil {
			return nil, err
		}
		if found && (excludingID == "" || ownerID != excludingID) {
			conflicts = append(conflicts, FieldConflict{Field: check.Field, Value: check.Value})
		}
	}
	if len(conflicts) == 0 {
		return nil, nil
	}
	return conflict(conflicts), nil
}

func (e *Engine) lookup(ctx context.Context, field UniqueField, value string) (string, bool, error) {
	var (
		id  string
		err error
	)
	switch field {
	case FieldEmail:
		var user *domain.User
		if user, err = e.users.GetByEmail(ctx, value); err == nil {
			id = user.ID
		}
	case FieldEmployeeID:
		var user *domain.User
		if user, err = e.users.GetByEmployeeID(ctx, value); err == nil {
			id = user.ID
		}
	case FieldDepartmentName:
		var dept *domain.Department
		if dept, err = e.departments.GetByName(ctx, value); err == nil {
			id = dept.ID
		}
	case FieldDepartmentCode:
		var dept *domain.Department
		if dept, err = e.departments.GetByCode(ctx, value); err == nil {
			id = dept.ID
		}
	default:
		return "", false, fmt.Errorf("unsupported unique field %q", field)
	}

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return id, true, nil
}

func (e *Engine) ledBy(ctx context.Context, userID string) (*domain.Department, error) {
	dept, err := e.departments.GetLedByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return dept, nil
}
