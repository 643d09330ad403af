package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/mission-service/internal/auth"
	"github.com/spec-kit/mission-service/internal/consistency"
	"github.com/spec-kit/mission-service/internal/domain"
	"github.com/spec-kit/mission-service/internal/events"
	"github.com/spec-kit/mission-service/internal/repository"
	apperrors "github.com/spec-kit/mission-service/pkg/util"
)

// privilegedUserEditors may change role, department, employee id and status.
var privilegedUserEditors = auth.NewRoleSet(domain.RoleAdmin, domain.RoleHR)

// UserService manages employee accounts.
type UserService struct {
	users       repository.UserRepository
	departments repository.DepartmentRepository
	rules       *consistency.Engine
	tx          repository.TxManager
	hasher      auth.PasswordHasher
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo       repository.UserRepository
	DepartmentRepo repository.DepartmentRepository
	Rules          *consistency.Engine
	TxManager      repository.TxManager
	Hasher         auth.PasswordHasher
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:       deps.UserRepo,
		departments: deps.DepartmentRepo,
		rules:       deps.Rules,
		tx:          deps.TxManager,
		hasher:      deps.Hasher,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
	}
}

// CreateUserInput describes a new account.
type CreateUserInput struct {
	EmployeeID         string
	Email              string
	Password           string
	FirstName          string
	LastName           string
	Role               domain.Role
	DepartmentID       *string
	AvailabilityStatus domain.AvailabilityStatus
}

// UpdateUserInput carries a partial update; omitted fields are unchanged.
type UpdateUserInput struct {
	EmployeeID         domain.Optional[string]
	Email              domain.Optional[string]
	FirstName          domain.Optional[string]
	LastName           domain.Optional[string]
	Role               domain.Optional[domain.Role]
	DepartmentID       domain.Optional[*string]
	AccountStatus      domain.Optional[domain.AccountStatus]
	AvailabilityStatus domain.Optional[domain.AvailabilityStatus]
}

func (in UpdateUserInput) privileged() bool {
	return in.EmployeeID.Present || in.Role.Present || in.DepartmentID.Present || in.AccountStatus.Present
}

// CreateUser validates and stores a new account.
func (s *UserService) CreateUser(ctx context.Context, actor domain.Identity, in CreateUserInput) (*domain.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.EmployeeID = strings.TrimSpace(in.EmployeeID)
	if err := validateCreateUser(in); err != nil {
		return nil, err
	}
	if v := s.rules.ValidateNewUser(in.Role, in.DepartmentID); v != nil {
		return nil, v.DomainError()
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	availability := in.AvailabilityStatus
	if availability == "" {
		availability = domain.AvailabilityAvailable
	}
	user := &domain.User{
		EmployeeID:         in.EmployeeID,
		Email:              in.Email,
		PasswordDigest:     digest,
		FirstName:          strings.TrimSpace(in.FirstName),
		LastName:           strings.TrimSpace(in.LastName),
		Role:               in.Role,
		DepartmentID:       in.DepartmentID,
		AccountStatus:      domain.AccountStatusActive,
		AvailabilityStatus: availability,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := violationOrError(s.rules.CheckUnique(ctx, "",
			consistency.UniqueCheck{Field: consistency.FieldEmail, Value: user.Email},
			consistency.UniqueCheck{Field: consistency.FieldEmployeeID, Value: user.EmployeeID},
		)); err != nil {
			return err
		}
		if err := s.requireActiveDepartment(ctx, user.DepartmentID); err != nil {
			return err
		}
		return storageError(s.users.Create(ctx, user))
	})
	if err != nil {
		return nil, finalError(err)
	}

	publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventUserCreated, actor.ID, "user", user.ID, map[string]any{
		"email":        user.Email,
		"employeeId":   user.EmployeeID,
		"role":         string(user.Role),
		"departmentId": stringValue(user.DepartmentID),
	}))
	return user, nil
}

// GetUser fetches an account.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, finalError(lookupError(err, "user", id))
	}
	return user, nil
}

// ListUsers lists accounts with filters.
func (s *UserService) ListUsers(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, finalError(err)
	}
	return users, nil
}

// UpdateUser applies a partial update. Callers may edit their own profile;
// role, department, employee id and status changes require ADMIN or HR.
func (s *UserService) UpdateUser(ctx context.Context, actor domain.Identity, id string, in UpdateUserInput) (*domain.User, error) {
	if !auth.SelfOrRoleAllows(actor, privilegedUserEditors, id) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if in.privileged() && !auth.RoleAllows(actor, privilegedUserEditors) {
		return nil, apperrors.NewForbidden("only ADMIN or HR may change role, department, employee id or status")
	}
	if err := validateUpdateUser(&in); err != nil {
		return nil, err
	}

	var (
		user    *domain.User
		changes = map[string]any{}
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.users.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, "user", id)
		}

		if err := violationOrError(s.rules.ValidateUserRoleOrDepartmentChange(ctx, existing, in.Role, in.DepartmentID)); err != nil {
			return err
		}
		if deactivates(existing, in.AccountStatus) {
			if err := violationOrError(s.rules.ValidateDeactivation(ctx, existing.ID)); err != nil {
				return err
			}
		}

		var checks []consistency.UniqueCheck
		if in.Email.Present && in.Email.Value != existing.Email {
			checks = append(checks, consistency.UniqueCheck{Field: consistency.FieldEmail, Value: in.Email.Value})
		}
		if in.EmployeeID.Present && in.EmployeeID.Value != existing.EmployeeID {
			checks = append(checks, consistency.UniqueCheck{Field: consistency.FieldEmployeeID, Value: in.EmployeeID.Value})
		}
		if len(checks) > 0 {
			if err := violationOrError(s.rules.CheckUnique(ctx, existing.ID, checks...)); err != nil {
				return err
			}
		}
		if in.DepartmentID.Present && in.DepartmentID.Value != nil && !sameID(existing.DepartmentID, in.DepartmentID.Value) {
			if err := s.requireActiveDepartment(ctx, in.DepartmentID.Value); err != nil {
				return err
			}
		}

		applyUserUpdate(existing, in, changes)
		if err := storageError(s.users.Update(ctx, existing)); err != nil {
			return err
		}
		user = existing
		return nil
	})
	if err != nil {
		return nil, finalError(err)
	}

	if len(changes) > 0 {
		publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventUserUpdated, actor.ID, "user", user.ID, changes))
	}
	return user, nil
}

// DeleteUser soft-deletes the account. A sitting department head must be
// detached first.
func (s *UserService) DeleteUser(ctx context.Context, actor domain.Identity, id string) (*domain.User, error) {
	if actor.ID == id {
		return nil, apperrors.NewForbidden("users cannot delete their own account")
	}

	var user *domain.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.users.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, "user", id)
		}
		if err := violationOrError(s.rules.ValidateDeactivation(ctx, existing.ID)); err != nil {
			return err
		}

		existing.SoftDelete()
		if err := storageError(s.users.Update(ctx, existing)); err != nil {
			return err
		}
		user = existing
		return nil
	})
	if err != nil {
		return nil, finalError(err)
	}

	publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventUserDeleted, actor.ID, "user", user.ID, nil))
	return user, nil
}

func (s *UserService) requireActiveDepartment(ctx context.Context, departmentID *string) error {
	if departmentID == nil {
		return nil
	}
	dept, err := s.departments.GetByID(ctx, *departmentID)
	if err != nil {
		return lookupError(err, "department", *departmentID)
	}
	if dept.Status != domain.DepartmentStatusActive {
		return apperrors.NewValidationError("department is not active", apperrors.FieldError{
			Field:   "departmentId",
			Message: "department " + dept.Code + " is not active",
		})
	}
	return nil
}

func applyUserUpdate(user *domain.User, in UpdateUserInput, changes map[string]any) {
	if in.EmployeeID.Present && in.EmployeeID.Value != user.EmployeeID {
		user.EmployeeID = in.EmployeeID.Value
		changes["employeeId"] = user.EmployeeID
	}
	if in.Email.Present && in.Email.Value != user.Email {
		user.Email = in.Email.Value
		changes["email"] = user.Email
	}
	if in.FirstName.Present && in.FirstName.Value != user.FirstName {
		user.FirstName = in.FirstName.Value
		changes["firstName"] = user.FirstName
	}
	if in.LastName.Present && in.LastName.Value != user.LastName {
		user.LastName = in.LastName.Value
		changes["lastName"] = user.LastName
	}
	if in.Role.Present && in.Role.Value != user.Role {
		user.Role = in.Role.Value
		changes["role"] = string(user.Role)
	}
	if in.DepartmentID.Present && !sameID(user.DepartmentID, in.DepartmentID.Value) {
		user.DepartmentID = in.DepartmentID.Value
		changes["departmentId"] = stringValue(user.DepartmentID)
	}
	if in.AccountStatus.Present && in.AccountStatus.Value != user.AccountStatus {
		user.AccountStatus = in.AccountStatus.Value
		changes["accountStatus"] = string(user.AccountStatus)
	}
	if in.AvailabilityStatus.Present && in.AvailabilityStatus.Value != user.AvailabilityStatus {
		user.AvailabilityStatus = in.AvailabilityStatus.Value
		changes["availabilityStatus"] = string(user.AvailabilityStatus)
	}
}

func validateCreateUser(in CreateUserInput) error {
	var fields []apperrors.FieldError
	if in.EmployeeID == "" {
		fields = append(fields, apperrors.FieldError{Field: "employeeId", Message: "employeeId is required"})
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		fields = append(fields, apperrors.FieldError{Field: "email", Message: "a valid email is required"})
	}
	if len(in.Password) < minPasswordLength {
		fields = append(fields, apperrors.FieldError{Field: "password", Message: "password must be at least 8 characters"})
	}
	if strings.TrimSpace(in.FirstName) == "" {
		fields = append(fields, apperrors.FieldError{Field: "firstName", Message: "firstName is required"})
	}
	if strings.TrimSpace(in.LastName) == "" {
		fields = append(fields, apperrors.FieldError{Field: "lastName", Message: "lastName is required"})
	}
	if !in.Role.Valid() {
		fields = append(fields, apperrors.FieldError{Field: "role", Message: "role is invalid"})
	}
	if in.AvailabilityStatus != "" && !in.AvailabilityStatus.Valid() {
		fields = append(fields, apperrors.FieldError{Field: "availabilityStatus", Message: "availabilityStatus is invalid"})
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError("invalid user payload", fields...)
	}
	return nil
}

func validateUpdateUser(in *UpdateUserInput) error {
	var fields []apperrors.FieldError
	if in.Email.Present {
		in.Email.Value = normalizeEmail(in.Email.Value)
		if !strings.Contains(in.Email.Value, "@") {
			fields = append(fields, apperrors.FieldError{Field: "email", Message: "a valid email is required"})
		}
	}
	if in.EmployeeID.Present {
		in.EmployeeID.Value = strings.TrimSpace(in.EmployeeID.Value)
		if in.EmployeeID.Value == "" {
			fields = append(fields, apperrors.FieldError{Field: "employeeId", Message: "employeeId cannot be empty"})
		}
	}
	if in.FirstName.Present && strings.TrimSpace(in.FirstName.Value) == "" {
		fields = append(fields, apperrors.FieldError{Field: "firstName", Message: "firstName cannot be empty"})
	}
	if in.LastName.Present && strings.TrimSpace(in.LastName.Value) == "" {
		fields = append(fields, apperrors.FieldError{Field: "lastName", Message: "lastName cannot be empty"})
	}
	if in.Role.Present && !in.Role.Value.Valid() {
		fields = append(fields, apperrors.FieldError{Field: "role", Message: "role is invalid"})
	}
	if in.AccountStatus.Present && !in.AccountStatus.Value.Valid() {
		fields = append(fields, apperrors.FieldError{Field: "accountStatus", Message: "accountStatus is invalid"})
	}
	if in.AvailabilityStatus.Present && !in.AvailabilityStatus.Value.Valid() {
		fields = append(fields, apperrors.FieldError{Field: "availabilityStatus", Message: "availabilityStatus is invalid"})
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError("invalid user payload", fields...)
	}
	return nil
}

func deactivates(user *domain.User, status domain.Optional[domain.AccountStatus]) bool {
	return status.Present && status.Value != domain.AccountStatusActive && status.Value != user.AccountStatus
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
