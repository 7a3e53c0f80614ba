package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bizengo/internal/models"
	"github.com/example/bizengo/internal/utils"
)

const secret = "middleware-secret"

func protectedApp() *fiber.App {
	app := fiber.New()
	app.Get("/vendor", AuthMiddleware(secret), RequireRole(models.RoleVendor), func(c *fiber.Ctx) error {
		id, _ := GetIdentity(c)
		return c.SendString(id.SubjectID.String())
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	app := protectedApp()
	vendorID := uuid.New()

	vendorToken, err := utils.GenerateToken(secret, utils.Identity{SubjectID: vendorID, Role: models.RoleVendor}, time.Hour)
	require.NoError(t, err)
	buyerToken, err := utils.GenerateToken(secret, utils.Identity{SubjectID: uuid.New(), Role: models.RoleBuyer}, time.Hour)
	require.NoError(t, err)
	forged, err := utils.GenerateToken("other", utils.Identity{SubjectID: vendorID, Role: models.RoleVendor}, time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token abc", http.StatusUnauthorized},
		{"forged", "Bearer " + forged, http.StatusUnauthorized},
		{"wrong role", "Bearer " + buyerToken, http.StatusForbidden},
		{"vendor", "Bearer " + vendorToken, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/vendor", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	app := fiber.New()
	app.Get("/", NewRateLimiter(2).Middleware(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}
