package auth

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/mission-service/internal/domain"
	apperrors "github.com/spec-kit/mission-service/pkg/util"
)

func TestAuthenticate(t *testing.T) {
	codec := NewTokenCodec("secret", time.Hour)
	gate := NewGate(codec)
	token, _, err := codec.Issue(testIdentity)
	require.NoError(t, err)

	t.Run("valid bearer token", func(t *testing.T) {
		identity, err := gate.Authenticate("Bearer " + token)
		require.NoError(t, err)
		assert.Equal(t, testIdentity, identity)
	})

	t.Run("scheme is case insensitive", func(t *testing.T) {
		_, err := gate.Authenticate("bearer " + token)
		require.NoError(t, err)
	})

	for _, header := range []string{"", "Bearer", "Bearer    ", "Basic dXNlcjpwYXNz", token} {
		t.Run("missing or malformed: "+header, func(t *testing.T) {
			_, err := gate.Authenticate(header)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeAuthenticationRequired), "got %v", err)
		})
	}

	t.Run("rejected token", func(t *testing.T) {
		_, err := gate.Authenticate("Bearer " + token + "x")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidOrExpiredToken), "got %v", err)
	})
}

// recordingVerifier counts verification calls to show the gate never
// caches a previous outcome.
type recordingVerifier struct {
	calls int
	inner TokenVerifier
}

func (r *recordingVerifier) Verify(token string) (*Claims, error) {
	r.calls++
	return r.inner.Verify(token)
}

func TestAuthenticateIsSingleShot(t *testing.T) {
	codec := NewTokenCodec("secret", time.Hour)
	verifier := &recordingVerifier{inner: codec}
	gate := NewGate(verifier)
	token, _, err := codec.Issue(testIdentity)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := gate.Authenticate("Bearer " + token)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, verifier.calls)

	_, err = gate.Authenticate("")
	require.Error(t, err)
	assert.Equal(t, 3, verifier.calls, "no verify without a bearer token")
}

func newProtectedApp(gate *Gate, guards ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
		},
	})
	handlers := append([]fiber.Handler{gate.Handle}, guards...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(identity.ID)
	})
	app.Get("/users/:id", handlers...)
	return app
}

func doRequest(t *testing.T, app *fiber.App, path, authHeader string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set(fiber.HeaderAuthorization, authHeader)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestGateHandleAttachesIdentity(t *testing.T) {
	codec := NewTokenCodec("secret", time.Hour)
	app := newProtectedApp(NewGate(codec))
	token, _, err := codec.Issue(testIdentity)
	require.NoError(t, err)

	status, body := doRequest(t, app, "/users/anything", "Bearer "+token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, testIdentity.ID, body)

	status, body = doRequest(t, app, "/users/anything", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeAuthenticationRequired, body)

	status, body = doRequest(t, app, "/users/anything", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeInvalidOrExpiredToken, body)
}

func TestMissingHeaderRejectedForEveryPolicy(t *testing.T) {
	gate := NewGate(NewTokenCodec("secret", time.Hour))
	policies := map[string][]fiber.Handler{
		"none":             nil,
		"any role":         {RequireRoles()},
		"admin only":       {RequireRoles(domain.RoleAdmin)},
		"self or hr":       {RequireSelfOrRoles("id", domain.RoleHR)},
		"self or anything": {RequireSelfOrRoles("id")},
	}
	for name, guards := range policies {
		t.Run(name, func(t *testing.T) {
			status, body := doRequest(t, newProtectedApp(gate, guards...), "/users/u1", "")
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, apperrors.CodeAuthenticationRequired, body)
		})
	}
}

func TestRouteGuards(t *testing.T) {
	codec := NewTokenCodec("secret", time.Hour)
	gate := NewGate(codec)
	token, _, err := codec.Issue(testIdentity) // role FINANCE
	require.NoError(t, err)
	bearer := "Bearer " + token

	status, body := doRequest(t, newProtectedApp(gate, RequireRoles(domain.RoleAdmin)), "/users/x", bearer)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeForbidden, body)

	status, _ = doRequest(t, newProtectedApp(gate, RequireRoles(domain.RoleAdmin, domain.RoleFinance)), "/users/x", bearer)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doRequest(t, newProtectedApp(gate, RequireSelfOrRoles("id", domain.RoleAdmin)), "/users/"+testIdentity.ID, bearer)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doRequest(t, newProtectedApp(gate, RequireSelfOrRoles("id", domain.RoleAdmin)), "/users/someone-else", bearer)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestGuardsWithoutGate(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(apperrors.ToDomainError(err).HTTPStatus).SendString(apperrors.ToDomainError(err).Code)
		},
	})
	app.Get("/x", RequireRoles(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// TestDecodeUnsafeIsUnreachable asserts that decodeUnsafe is declared once
// and never referenced by non-test code. Only tests may reach it.
func TestDecodeUnsafeIsUnreachable(t *testing.T) {
	entries, err := os.ReadDir(".")
	require.NoError(t, err)

	fset := token.NewFileSet()
	var declared, referenced int
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".go" || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, name, nil, 0)
		require.NoError(t, err)

		ast.Inspect(file, func(n ast.Node) bool {
			switch node := n.(type) {
			case *ast.FuncDecl:
				if node.Name.Name == "decodeUnsafe" {
					declared++
					ast.Inspect(node.Type, countRefs(&referenced))
					if node.Body != nil {
						ast.Inspect(node.Body, countRefs(&referenced))
					}
					return false
				}
			case *ast.Ident:
				if node.Name == "decodeUnsafe" {
					referenced++
					t.Errorf("%s references decodeUnsafe", fset.Position(node.Pos()))
				}
			}
			return true
		})
	}
	assert.Equal(t, 1, declared)
	assert.Zero(t, referenced)
}

func countRefs(count *int) func(ast.Node) bool {
	return func(n ast.Node) bool {
		if ident, ok := n.(*ast.Ident); ok && ident.Name == "decodeUnsafe" {
			*count++
		}
		return true
	}
}
