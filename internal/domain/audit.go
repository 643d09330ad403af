package domain

import "time"

// AuditAction names a recorded event.
type AuditAction string

const (
	AuditLogin                 AuditAction = "login"
	AuditLogout                AuditAction = "logout"
	AuditUserCreated           AuditAction = "user.created"
	AuditUserUpdated           AuditAction = "user.updated"
	AuditUserDeleted           AuditAction = "user.deleted"
	AuditDepartmentCreated     AuditAction = "department.created"
	AuditDepartmentUpdated     AuditAction = "department.updated"
	AuditDepartmentDeleted     AuditAction = "department.deleted"
	AuditDepartmentHeadChanged AuditAction = "department.head_assigned"
)

// AuditEntry is an immutable, append-only record.
type AuditEntry struct {
	ID         string
	Action     AuditAction
	ActorID    string
	TargetID   string
	TargetType string
	IPAddress  *string
	UserAgent  *string
	Metadata   map[string]any
	Timestamp  time.Time
}
