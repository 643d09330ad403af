package dto

import (
	"time"

	"github.com/spec-kit/mission-service/internal/domain"
)

// CreateDepartmentRequest payload for POST /api/departments.
type CreateDepartmentRequest struct {
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Description string  `json:"description"`
	HeadID      *string `json:"headId"`
}

// UpdateDepartmentRequest payload for PUT /api/departments/:id.
type UpdateDepartmentRequest struct {
	Name        domain.Optional[string]                  `json:"name"`
	Code        domain.Optional[string]                  `json:"code"`
	Description domain.Optional[string]                  `json:"description"`
	HeadID      domain.Optional[*string]                 `json:"headId"`
	Status      domain.Optional[domain.DepartmentStatus] `json:"status"`
}

// AssignHeadRequest payload for PUT /api/departments/:id/head. headId must
// be present; null detaches the current head.
type AssignHeadRequest struct {
	HeadID domain.Optional[*string] `json:"headId"`
}

// DepartmentResponse is the public view of a department.
type DepartmentResponse struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Code        string                  `json:"code"`
	Description string                  `json:"description"`
	HeadID      *string                 `json:"headId"`
	Status      domain.DepartmentStatus `json:"status"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

// NewDepartmentResponse maps a domain department.
func NewDepartmentResponse(d *domain.Department) DepartmentResponse {
	return DepartmentResponse{
		ID:          d.ID,
		Name:        d.Name,
		Code:        d.Code,
		Description: d.Description,
		HeadID:      d.HeadID,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
