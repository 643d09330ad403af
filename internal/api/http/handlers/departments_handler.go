package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mission-service/internal/api/dto"
	"github.com/spec-kit/mission-service/internal/service"
	apperrors "github.com/spec-kit/mission-service/pkg/util"
)

// DepartmentsHandler exposes department endpoints.
type DepartmentsHandler struct {
	departments *service.DepartmentService
}

// NewDepartmentsHandler constructs handler.
func NewDepartmentsHandler(departmentService *service.DepartmentService) *DepartmentsHandler {
	return &DepartmentsHandler{departments: departmentService}
}

// List handles GET /api/departments.
func (h *DepartmentsHandler) List(c *fiber.Ctx) error {
	depts, err := h.departments.ListDepartments(c.UserContext(), parseBoolQuery(c, "includeInactive", false))
	if err != nil {
		return err
	}
	resp := make([]dto.DepartmentResponse, 0, len(depts))
	for i := range depts {
		resp = append(resp, dto.NewDepartmentResponse(&depts[i]))
	}
	return ok(c, "", resp)
}

// Get handles GET /api/departments/:id.
func (h *DepartmentsHandler) Get(c *fiber.Ctx) error {
	dept, err := h.departments.GetDepartment(c.UserContext(), pathID(c))
	if err != nil {
		return err
	}
	return ok(c, "", dto.NewDepartmentResponse(dept))
}

// Create handles POST /api/departments.
func (h *DepartmentsHandler) Create(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	var req dto.CreateDepartmentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	dept, err := h.departments.CreateDepartment(c.UserContext(), identity, service.CreateDepartmentInput{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		HeadID:      req.HeadID,
	})
	if err != nil {
		return err
	}
	return created(c, "department created", dto.NewDepartmentResponse(dept))
}

// Update handles PUT /api/departments/:id.
func (h *DepartmentsHandler) Update(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	var req dto.UpdateDepartmentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	dept, err := h.departments.UpdateDepartment(c.UserContext(), identity, pathID(c), service.UpdateDepartmentInput{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		HeadID:      req.HeadID,
		Status:      req.Status,
	})
	if err != nil {
		return err
	}
	return ok(c, "department updated", dto.NewDepartmentResponse(dept))
}

// AssignHead handles PUT /api/departments/:id/head.
func (h *DepartmentsHandler) AssignHead(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	var req dto.AssignHeadRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if !req.HeadID.Present {
		return apperrors.NewValidationError("headId is required", apperrors.FieldError{
			Field:   "headId",
			Message: "headId must be a user id or null",
		})
	}

	dept, err := h.departments.AssignHead(c.UserContext(), identity, pathID(c), req.HeadID.Value)
	if err != nil {
		return err
	}
	return ok(c, "department head updated", dto.NewDepartmentResponse(dept))
}

// Delete handles DELETE /api/departments/:id.
func (h *DepartmentsHandler) Delete(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	dept, err := h.departments.DeleteDepartment(c.UserContext(), identity, pathID(c))
	if err != nil {
		return err
	}
	return ok(c, "department deactivated", dto.NewDepartmentResponse(dept))
}
