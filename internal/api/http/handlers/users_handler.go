package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mission-service/internal/api/dto"
	"github.com/spec-kit/mission-service/internal/domain"
	"github.com/spec-kit/mission-service/internal/repository"
	"github.com/spec-kit/mission-service/internal/service"
)

// UsersHandler exposes employee account endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// List handles GET /api/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.users.ListUsers(c.UserContext(), parseUserFilter(c))
	if err != nil {
		return err
	}
	resp := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, dto.NewUserResponse(&users[i]))
	}
	return ok(c, "", resp)
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.users.CreateUser(c.UserContext(), identity, service.CreateUserInput{
		EmployeeID:         req.EmployeeID,
		Email:              req.Email,
		Password:           req.Password,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Role:               req.Role,
		DepartmentID:       req.DepartmentID,
		AvailabilityStatus: req.AvailabilityStatus,
	})
	if err != nil {
		return err
	}
	return created(c, "user created", dto.NewUserResponse(user))
}

// Get handles GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.GetUser(c.UserContext(), pathID(c))
	if err != nil {
		return err
	}
	return ok(c, "", dto.NewUserResponse(user))
}

// Update handles PUT /api/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.users.UpdateUser(c.UserContext(), identity, pathID(c), service.UpdateUserInput{
		EmployeeID:         req.EmployeeID,
		Email:              req.Email,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Role:               req.Role,
		DepartmentID:       req.DepartmentID,
		AccountStatus:      req.AccountStatus,
		AvailabilityStatus: req.AvailabilityStatus,
	})
	if err != nil {
		return err
	}
	return ok(c, "user updated", dto.NewUserResponse(user))
}

// Delete handles DELETE /api/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	user, err := h.users.DeleteUser(c.UserContext(), identity, pathID(c))
	if err != nil {
		return err
	}
	return ok(c, "user deactivated", dto.NewUserResponse(user))
}

func parseUserFilter(c *fiber.Ctx) repository.UserFilter {
	var filter repository.UserFilter
	if role := c.Query("role"); role != "" {
		r := domain.Role(role)
		filter.Role = &r
	}
	if deptID := c.Query("departmentId"); deptID != "" {
		filter.DepartmentID = &deptID
	}
	if status := c.Query("accountStatus"); status != "" {
		s := domain.AccountStatus(status)
		filter.AccountStatus = &s
	}
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "pageSize", 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}
