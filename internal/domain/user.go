package domain

import "time"

// Role enumerates the organizational roles a user can hold.
type Role string

const (
	RoleAdmin            Role = "ADMIN"
	RoleDirector         Role = "DIRECTOR"
	RoleHR               Role = "HR"
	RoleFinance          Role = "FINANCE"
	RoleHeadOfDepartment Role = "HEAD_OF_DEPARTMENT"
	RoleEmployee         Role = "EMPLOYEE"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDirector, RoleHR, RoleFinance, RoleHeadOfDepartment, RoleEmployee:
		return true
	}
	return false
}

// AccountStatus represents lifecycle states for a user account.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusInactive  AccountStatus = "INACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
)

// Valid reports whether s is a known account status.
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusActive, AccountStatusInactive, AccountStatusSuspended:
		return true
	}
	return false
}

// AvailabilityStatus tells whether an employee can be sent on a mission.
type AvailabilityStatus string

const (
	AvailabilityAvailable   AvailabilityStatus = "AVAILABLE"
	AvailabilityOnLeave     AvailabilityStatus = "ON_LEAVE"
	AvailabilityOnMission   AvailabilityStatus = "ON_MISSION"
	AvailabilityUnavailable AvailabilityStatus = "UNAVAILABLE"
)

// Valid reports whether s is a known availability status.
func (s AvailabilityStatus) Valid() bool {
	switch s {
	case AvailabilityAvailable, AvailabilityOnLeave, AvailabilityOnMission, AvailabilityUnavailable:
		return true
	}
	return false
}

// User is an employee account. Users are never hard-deleted.
type User struct {
	ID                 string
	EmployeeID         string
	Email              string
	PasswordDigest     string
	FirstName          string
	LastName           string
	Role               Role
	DepartmentID       *string
	AccountStatus      AccountStatus
	AvailabilityStatus AvailabilityStatus
	LastLogin          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Identity returns the claim set carried in tokens issued for u.
func (u *User) Identity() Identity {
	return Identity{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// SoftDelete moves the user into the terminal deleted state.
func (u *User) SoftDelete() {
	u.AccountStatus = AccountStatusInactive
	u.AvailabilityStatus = AvailabilityUnavailable
}
