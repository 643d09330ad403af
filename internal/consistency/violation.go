package consistency

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spec-kit/mission-service/internal/repository"
	apperrors "github.com/spec-kit/mission-service/pkg/util"
)

// Kind discriminates the outcome of a failed consistency check.
type Kind string

const (
	KindNotFound                Kind = "NOT_FOUND"
	KindInvalidRole             Kind = "INVALID_ROLE"
	KindAlreadyMember           Kind = "ALREADY_MEMBER"
	KindAlreadyHeadsElsewhere   Kind = "ALREADY_HEADS_ELSEWHERE"
	KindHeadCannotBeMember      Kind = "HEAD_CANNOT_BE_MEMBER"
	KindMustDetachHeadshipFirst Kind = "MUST_DETACH_HEADSHIP_FIRST"
	KindConflict                Kind = "CONFLICT"
	KindValidationFailed        Kind = "VALIDATION_FAILED"
)

// UniqueField names an attribute that must be globally unique.
type UniqueField string

const (
	FieldEmail          UniqueField = "email"
	FieldEmployeeID     UniqueField = "employeeId"
	FieldDepartmentName UniqueField = "name"
	FieldDepartmentCode UniqueField = "code"
)

// FieldConflict is one clashing unique value.
type FieldConflict struct {
	Field UniqueField
	Value string
}

// Violation is a rejected mutation. A nil *Violation means the check passed.
type Violation struct {
	Kind           Kind
	Message        string
	DepartmentName string
	Conflicts      []FieldConflict
}

func (v *Violation) Error() string {
	return v.Message
}

// ConflictsOn reports whether the violation lists field.
func (v *Violation) ConflictsOn(field UniqueField) bool {
	for _, c := range v.Conflicts {
		if c.Field == field {
			return true
		}
	}
	return false
}

// DomainError maps the violation onto the transport error taxonomy.
func (v *Violation) DomainError() error {
	var status int
	code := apperrors.CodeValidationFailed
	switch v.Kind {
	case KindNotFound:
		code, status = apperrors.CodeNotFound, http.StatusNotFound
	case KindAlreadyHeadsElsewhere, KindMustDetachHeadshipFirst, KindConflict:
		code, status = apperrors.CodeConflict, http.StatusConflict
	default:
		status = http.StatusBadRequest
	}

	err := apperrors.NewDomainError(code, v.Message, status, map[string]any{"violation": string(v.Kind)})
	if v.DepartmentName != "" {
		err.Details["department"] = v.DepartmentName
	}
	// Field messages omit the value so a pre-check and a storage rejection
	// of the same clash read the same.
	for _, c := range v.Conflicts {
		err.Fields = append(err.Fields, apperrors.FieldError{
			Field:   string(c.Field),
			Message: fmt.Sprintf("%s is already in use", c.Field),
		})
	}
	return err
}

func notFound(resource string) *Violation {
	return &Violation{Kind: KindNotFound, Message: resource + " not found"}
}

func conflict(conflicts []FieldConflict) *Violation {
	parts := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		parts = append(parts, string(c.Field)+" already in use")
	}
	return &Violation{
		Kind:      KindConflict,
		Message:   strings.Join(parts, "; "),
		Conflicts: conflicts,
	}
}

// FromStorageError translates a constraint rejected by the database into
// the violation the matching pre-check reports. ok is false for any other
// error.
func FromStorageError(err error) (*Violation, bool) {
	var constraintErr *repository.ConstraintError
	if !errors.As(err, &constraintErr) {
		return nil, false
	}

	switch constraintErr.Kind {
	case repository.ConstraintUnique:
		if constraintErr.Constraint == repository.ConstraintDepartmentHead {
			return &Violation{Kind: KindAlreadyHeadsElsewhere, Message: "user is already head of another department"}, true
		}
		field := UniqueField(constraintErr.Field)
		if field == "" {
			field = UniqueField(constraintErr.Constraint)
		}
		return conflict([]FieldConflict{{Field: field}}), true
	case repository.ConstraintCheck:
		if constraintErr.Constraint == repository.ConstraintUserHeadNoMember {
			return headCannotBeMember(), true
		}
		return &Violation{Kind: KindValidationFailed, Message: "value rejected by constraint " + constraintErr.Constraint}, true
	case repository.ConstraintSerialization:
		return &Violation{Kind: KindConflict, Message: "concurrent modification detected; retry the request"}, true
	}
	return nil, false
}

func headCannotBeMember() *Violation {
	return &Violation{Kind: KindHeadCannotBeMember, Message: "a head of department cannot be a member of a department"}
}
