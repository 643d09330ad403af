package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mission-service/internal/domain"
	apperrors "github.com/spec-kit/mission-service/pkg/util"
)

const identityKey = "auth_identity"

// TokenVerifier is the part of the codec the gate depends on.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// Gate validates bearer tokens and attaches the caller identity.
// It holds no per-request state.
type Gate struct {
	tokens TokenVerifier
}

// NewGate constructs the authentication gate.
func NewGate(tokens TokenVerifier) *Gate {
	return &Gate{tokens: tokens}
}

// Authenticate resolves an Authorization header value to an Identity.
func (g *Gate) Authenticate(authHeader string) (domain.Identity, error) {
	if authHeader == "" {
		return domain.Identity{}, apperrors.NewAuthenticationRequired()
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return domain.Identity{}, apperrors.NewAuthenticationRequired()
	}

	claims, err := g.tokens.Verify(strings.TrimSpace(parts[1]))
	if err != nil {
		return domain.Identity{}, apperrors.NewInvalidOrExpiredToken()
	}
	return claims.Identity(), nil
}

// Handle enforces authentication for protected routes.
func (g *Gate) Handle(c *fiber.Ctx) error {
	identity, err := g.Authenticate(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}
	c.Locals(identityKey, identity)
	return c.Next()
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(domain.Identity)
	return identity, ok
}
