package domain

import "time"

// DepartmentStatus represents the lifecycle of a department.
type DepartmentStatus string

const (
	DepartmentStatusActive   DepartmentStatus = "ACTIVE"
	DepartmentStatusInactive DepartmentStatus = "INACTIVE"
)

// Valid reports whether s is a known department status.
func (s DepartmentStatus) Valid() bool {
	return s == DepartmentStatusActive || s == DepartmentStatusInactive
}

// Department represents an organizational unit with an optional head.
type Department struct {
	ID          string
	Name        string
	Code        string
	Description string
	HeadID      *string
	Status      DepartmentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SoftDelete deactivates the department and releases its head.
func (d *Department) SoftDelete() {
	d.Status = DepartmentStatusInactive
	d.HeadID = nil
}
