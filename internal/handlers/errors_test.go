package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bizengo/internal/services"
)

func errorApp(err error) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zerolog.Nop())})
	app.Get("/", func(c *fiber.Ctx) error { return fail(err) })
	return app
}

func TestErrorHandlerStatuses(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", &services.Error{Kind: services.KindValidation, Message: "Invalid quantity"}, http.StatusBadRequest, "Invalid quantity"},
		{"conflict", &services.Error{Kind: services.KindConflict, Message: "Email already in use"}, http.StatusConflict, "Email already in use"},
		{"not found", &services.Error{Kind: services.KindNotFound, Message: "Order not found"}, http.StatusNotFound, "Order not found"},
		{"stock", &services.Error{Kind: services.KindInsufficientStock, Message: "Only 1 of 'Lamp' available"}, http.StatusBadRequest, "Only 1 of 'Lamp' available"},
		{"signature", &services.Error{Kind: services.KindInvalidSignature, Message: "Invalid signature"}, http.StatusBadRequest, "Invalid signature"},
		{"upstream", &services.Error{Kind: services.KindUpstream, Message: "Upload failed"}, http.StatusBadGateway, "Upload failed"},
		{"transaction", &services.Error{Kind: services.KindTransactionFailed, Message: "Error creating order", Err: errors.New("deadlock")}, http.StatusInternalServerError, "An internal error occurred"},
		{"plain", errors.New("connection refused"), http.StatusInternalServerError, "An internal error occurred"},
		{"fiber", fiber.NewError(fiber.StatusBadRequest, "invalid request body"), http.StatusBadRequest, "invalid request body"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := errorApp(tc.err).Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.message, body["message"])
		})
	}
}
