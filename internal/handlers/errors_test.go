package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codeschool/accounts/internal/dto"
	"github.com/codeschool/accounts/internal/services"
	"github.com/codeschool/accounts/internal/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusFor(t *testing.T, err error) (int, dto.ErrorResponse) {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return respondError(c, err) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return resp.StatusCode, out
}

func TestRespondErrorStatuses(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: email is required", services.ErrValidation), http.StatusUnprocessableEntity},
		{services.ErrEmailTaken, http.StatusConflict},
		{services.ErrSchoolIDTaken, http.StatusConflict},
		{services.ErrUserNotFound, http.StatusNotFound},
		{services.ErrProfileNotFound, http.StatusNotFound},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrInvalidToken, http.StatusUnauthorized},
		{services.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("change email: %w", services.ErrNotImplemented), http.StatusNotImplemented},
	}
	for _, tc := range cases {
		got, body := statusFor(t, tc.err)
		assert.Equal(t, tc.want, got, tc.err.Error())
		assert.True(t, body.Error)
		assert.Equal(t, tc.err.Error(), body.Message)
	}
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	got, body := statusFor(t, errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, got)
	assert.Equal(t, "Internal server error", body.Message)
}

func TestRespondErrorValidationDetails(t *testing.T) {
	err := validator.ValidationErrors{{Field: "email", Message: "must be a valid email", Rule: "email"}}
	got, body := statusFor(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, got)
	assert.NotNil(t, body.Details)
}
