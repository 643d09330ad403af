package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/spec-kit/mission-service/internal/api/dto"
	"github.com/spec-kit/mission-service/internal/auth"
	"github.com/spec-kit/mission-service/internal/domain"
	apperrors "github.com/spec-kit/mission-service/pkg/util"
)

// caller returns the identity attached by the authentication gate.
func caller(c *fiber.Ctx) (domain.Identity, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return domain.Identity{}, apperrors.NewAuthenticationRequired()
	}
	return identity, nil
}

// clientMeta copies the caller's address and agent. Fiber reuses the
// request buffers once the handler returns, and audit entries outlive it.
func clientMeta(c *fiber.Ctx) domain.ClientMeta {
	return domain.ClientMeta{
		IPAddress: utils.CopyString(c.IP()),
		UserAgent: utils.CopyString(c.Get(fiber.HeaderUserAgent)),
	}
}

// pathID returns a copy of the :id route parameter.
func pathID(c *fiber.Ctx) string {
	return utils.CopyString(c.Params("id"))
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}
	return nil
}

func ok(c *fiber.Ctx, message string, data any) error {
	return c.JSON(dto.Response{Success: true, Message: message, Data: data})
}

func created(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusCreated).JSON(dto.Response{Success: true, Message: message, Data: data})
}

func parseBoolQuery(c *fiber.Ctx, key string, defaultVal bool) bool {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultVal
}
