package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/mission-service/internal/consistency"
	"github.com/spec-kit/mission-service/internal/domain"
	"github.com/spec-kit/mission-service/internal/events"
	"github.com/spec-kit/mission-service/internal/repository"
	apperrors "github.com/spec-kit/mission-service/pkg/util"
)

// DepartmentService manages departments and their heads.
type DepartmentService struct {
	departments repository.DepartmentRepository
	rules       *consistency.Engine
	tx          repository.TxManager
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// OrgDependencies encapsulates collaborators required for org management.
type OrgDependencies struct {
	DepartmentRepo repository.DepartmentRepository
	Rules          *consistency.Engine
	TxManager      repository.TxManager
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewDepartmentService constructs the service.
func NewDepartmentService(deps OrgDependencies) *DepartmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentService{
		departments: deps.DepartmentRepo,
		rules:       deps.Rules,
		tx:          deps.TxManager,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
	}
}

// CreateDepartmentInput describes a new department.
type CreateDepartmentInput struct {
	Name        string
	Code        string
	Description string
	HeadID      *string
}

// UpdateDepartmentInput carries a partial update. A present nil HeadID
// detaches the current head.
type UpdateDepartmentInput struct {
	Name        domain.Optional[string]
	Code        domain.Optional[string]
	Description domain.Optional[string]
	HeadID      domain.Optional[*string]
	Status      domain.Optional[domain.DepartmentStatus]
}

// CreateDepartment validates and stores a department, optionally with a head.
func (s *DepartmentService) CreateDepartment(ctx context.Context, actor domain.Identity, in CreateDepartmentInput) (*domain.Department, error) {
	dept := &domain.Department{
		Name:        strings.TrimSpace(in.Name),
		Code:        normalizeCode(in.Code),
		Description: strings.TrimSpace(in.Description),
		HeadID:      in.HeadID,
		Status:      domain.DepartmentStatusActive,
	}
	if err := validateDepartment(dept.Name, dept.Code); err != nil {
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := violationOrError(s.rules.CheckUnique(ctx, "",
			consistency.UniqueCheck{Field: consistency.FieldDepartmentName, Value: dept.Name},
			consistency.UniqueCheck{Field: consistency.FieldDepartmentCode, Value: dept.Code},
		)); err != nil {
			return err
		}
		if dept.HeadID != nil {
			if err := violationOrError(s.rules.ValidateDepartmentHeadAssignment(ctx, *dept.HeadID, nil)); err != nil {
				return err
			}
		}
		return storageError(s.departments.Create(ctx, dept))
	})
	if err != nil {
		return nil, finalError(err)
	}

	evts := []events.Event{events.NewEvent(events.EventDepartmentCreated, actor.ID, "department", dept.ID, map[string]any{
		"name": dept.Name,
		"code": dept.Code,
	})}
	if dept.HeadID != nil {
		evts = append(evts, headChangedEvent(actor.ID, dept, nil))
	}
	publish(ctx, s.dispatcher, s.logger, evts...)
	return dept, nil
}

// GetDepartment fetches a department.
func (s *DepartmentService) GetDepartment(ctx context.Context, id string) (*domain.Department, error) {
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, finalError(lookupError(err, "department", id))
	}
	return dept, nil
}

// ListDepartments returns departments (optionally inactive).
func (s *DepartmentService) ListDepartments(ctx context.Context, includeInactive bool) ([]domain.Department, error) {
	depts, err := s.departments.List(ctx, includeInactive)
	if err != nil {
		return nil, finalError(err)
	}
	return depts, nil
}

// UpdateDepartment applies a partial update, re-validating uniqueness and
// any new head.
func (s *DepartmentService) UpdateDepartment(ctx context.Context, actor domain.Identity, id string, in UpdateDepartmentInput) (*domain.Department, error) {
	if in.Name.Present {
		in.Name.Value = strings.TrimSpace(in.Name.Value)
	}
	if in.Code.Present {
		in.Code.Value = normalizeCode(in.Code.Value)
	}
	if in.Status.Present && !in.Status.Value.Valid() {
		return nil, apperrors.NewValidationError("invalid department payload", apperrors.FieldError{Field: "status", Message: "status is invalid"})
	}

	var (
		dept        *domain.Department
		previousHID *string
		headChanged bool
		changes     = map[string]any{}
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.departments.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, "department", id)
		}
		previousHID = existing.HeadID

		if err := validateDepartment(in.Name.Or(existing.Name), in.Code.Or(existing.Code)); err != nil {
			return err
		}

		var checks []consistency.UniqueCheck
		if in.Name.Present && in.Name.Value != existing.Name {
			checks = append(checks, consistency.UniqueCheck{Field: consistency.FieldDepartmentName, Value: in.Name.Value})
		}
		if in.Code.Present && in.Code.Value != existing.Code {
			checks = append(checks, consistency.UniqueCheck{Field: consistency.FieldDepartmentCode, Value: in.Code.Value})
		}
		if len(checks) > 0 {
			if err := violationOrError(s.rules.CheckUnique(ctx, existing.ID, checks...)); err != nil {
				return err
			}
		}

		if in.HeadID.Present && in.HeadID.Value != nil && !sameID(existing.HeadID, in.HeadID.Value) {
			if err := violationOrError(s.rules.ValidateDepartmentHeadAssignment(ctx, *in.HeadID.Value, &existing.ID)); err != nil {
				return err
			}
		}

		applyDepartmentUpdate(existing, in, changes)
		headChanged = !sameID(previousHID, existing.HeadID)
		if err := storageError(s.departments.Update(ctx, existing)); err != nil {
			return err
		}
		dept = existing
		return nil
	})
	if err != nil {
		return nil, finalError(err)
	}

	var evts []events.Event
	if len(changes) > 0 {
		evts = append(evts, events.NewEvent(events.EventDepartmentUpdated, actor.ID, "department", dept.ID, changes))
	}
	if headChanged {
		evts = append(evts, headChangedEvent(actor.ID, dept, previousHID))
	}
	publish(ctx, s.dispatcher, s.logger, evts...)
	return dept, nil
}

// AssignHead sets, replaces or (with nil) detaches the department head.
func (s *DepartmentService) AssignHead(ctx context.Context, actor domain.Identity, id string, headID *string) (*domain.Department, error) {
	return s.UpdateDepartment(ctx, actor, id, UpdateDepartmentInput{HeadID: domain.Some(headID)})
}

// DeleteDepartment soft-deletes the department and releases its head.
func (s *DepartmentService) DeleteDepartment(ctx context.Context, actor domain.Identity, id string) (*domain.Department, error) {
	var (
		dept        *domain.Department
		previousHID *string
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.departments.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, "department", id)
		}
		previousHID = existing.HeadID
		existing.SoftDelete()
		if err := storageError(s.departments.Update(ctx, existing)); err != nil {
			return err
		}
		dept = existing
		return nil
	})
	if err != nil {
		return nil, finalError(err)
	}

	evts := []events.Event{events.NewEvent(events.EventDepartmentDeleted, actor.ID, "department", dept.ID, nil)}
	if previousHID != nil {
		evts = append(evts, headChangedEvent(actor.ID, dept, previousHID))
	}
	publish(ctx, s.dispatcher, s.logger, evts...)
	return dept, nil
}

func applyDepartmentUpdate(dept *domain.Department, in UpdateDepartmentInput, changes map[string]any) {
	if in.Name.Present && in.Name.Value != dept.Name {
		dept.Name = in.Name.Value
		changes["name"] = dept.Name
	}
	if in.Code.Present && in.Code.Value != dept.Code {
		dept.Code = in.Code.Value
		changes["code"] = dept.Code
	}
	if in.Description.Present && in.Description.Value != dept.Description {
		dept.Description = in.Description.Value
		changes["description"] = dept.Description
	}
	if in.HeadID.Present && !sameID(dept.HeadID, in.HeadID.Value) {
		dept.HeadID = in.HeadID.Value
	}
	if in.Status.Present && in.Status.Value != dept.Status {
		dept.Status = in.Status.Value
		changes["status"] = string(dept.Status)
		if dept.Status == domain.DepartmentStatusInactive && dept.HeadID != nil {
			dept.HeadID = nil
		}
	}
}

func headChangedEvent(actorID string, dept *domain.Department, previous *string) events.Event {
	return events.NewEvent(events.EventDepartmentHeadChanged, actorID, "department", dept.ID, map[string]any{
		"previousHeadId": stringValue(previous),
		"headId":         stringValue(dept.HeadID),
	})
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validateDepartment(name, code string) error {
	var fields []apperrors.FieldError
	if name == "" {
		fields = append(fields, apperrors.FieldError{Field: "name", Message: "name is required"})
	}
	if code == "" {
		fields = append(fields, apperrors.FieldError{Field: "code", Message: "code is required"})
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError("invalid department payload", fields...)
	}
	return nil
}
