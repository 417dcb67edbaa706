package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func jwtApp() *fiber.App {
	app := fiber.New()
	app.Use(JWTProtected(testSecret))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": UserID(c), "role": c.Locals(LocalUserRole)})
	})
	return app
}

func TestJWTProtectedAcceptsStringSubject(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":  "5b0c6a1e-1111-4c7a-9d58-0d1f5a3e2b10",
		"role": "Admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := jwtApp().Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	require.Equal(t, "5b0c6a1e-1111-4c7a-9d58-0d1f5a3e2b10", body["user_id"])
	require.Equal(t, "admin", body["role"])
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"wrong secret":   "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": "u-1"}),
		"expired":        "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "u-1", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no subject":     "Bearer " + signToken(t, testSecret, jwt.MapClaims{"role": "admin"}),
	}

	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := jwtApp().Test(req)
		require.NoError(t, err, name)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, name)
	}
}
