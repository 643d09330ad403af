package dto

import (
	"time"

	"github.com/spec-kit/mission-service/internal/domain"
)

// CreateUserRequest payload for POST /api/users.
type CreateUserRequest struct {
	EmployeeID         string                    `json:"employeeId"`
	Email              string                    `json:"email"`
	Password           string                    `json:"password"`
	FirstName          string                    `json:"firstName"`
	LastName           string                    `json:"lastName"`
	Role               domain.Role               `json:"role"`
	DepartmentID       *string                   `json:"departmentId"`
	AvailabilityStatus domain.AvailabilityStatus `json:"availabilityStatus"`
}

// UpdateUserRequest payload for PUT /api/users/:id. Omitted fields are left
// unchanged; "departmentId": null removes the department.
type UpdateUserRequest struct {
	EmployeeID         domain.Optional[string]                    `json:"employeeId"`
	Email              domain.Optional[string]                    `json:"email"`
	FirstName          domain.Optional[string]                    `json:"firstName"`
	LastName           domain.Optional[string]                    `json:"lastName"`
	Role               domain.Optional[domain.Role]               `json:"role"`
	DepartmentID       domain.Optional[*string]                   `json:"departmentId"`
	AccountStatus      domain.Optional[domain.AccountStatus]      `json:"accountStatus"`
	AvailabilityStatus domain.Optional[domain.AvailabilityStatus] `json:"availabilityStatus"`
}

// UserResponse is the public view of an account. The password digest is
// never serialized.
type UserResponse struct {
	ID                 string                    `json:"id"`
	EmployeeID         string                    `json:"employeeId"`
	Email              string                    `json:"email"`
	FirstName          string                    `json:"firstName"`
	LastName           string                    `json:"lastName"`
	Role               domain.Role               `json:"role"`
	DepartmentID       *string                   `json:"departmentId"`
	AccountStatus      domain.AccountStatus      `json:"accountStatus"`
	AvailabilityStatus domain.AvailabilityStatus `json:"availabilityStatus"`
	LastLogin          *time.Time                `json:"lastLogin,omitempty"`
	CreatedAt          time.Time                 `json:"createdAt"`
	UpdatedAt          time.Time                 `json:"updatedAt"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:                 u.ID,
		EmployeeID:         u.EmployeeID,
		Email:              u.Email,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		Role:               u.Role,
		DepartmentID:       u.DepartmentID,
		AccountStatus:      u.AccountStatus,
		AvailabilityStatus: u.AvailabilityStatus,
		LastLogin:          u.LastLogin,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}
