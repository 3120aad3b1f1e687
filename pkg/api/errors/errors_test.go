package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jordanlanch/leadsync/pkg/domain"
	"github.com/jordanlanch/leadsync/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newContext creates an echo.Context backed by an httptest.NewRecorder for the
// given HTTP method and path.
func newContext(method, path string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// captureLog redirects the standard logger to a buffer for the duration of fn
func captureLog(fn func()) string {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)
	fn()
	return buf.String()
}

func TestValidationError_NoInternalDetails(t *testing.T) {
	internalMsg := "sqlite3: UNIQUE constraint failed: leads.id"
	c, rec := newContext(http.MethodPut, "/api/v1/admin/leads/1")
	_ = ValidationError(c, errors.New(internalMsg))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), internalMsg)
}

func TestDatabaseError_LogsInternalError(t *testing.T) {
	internalMsg := "connection refused on port 5432"
	logged := captureLog(func() {
		c, _ := newContext(http.MethodGet, "/api/v1/admin/integration-logs")
		_ = DatabaseError(c, errors.New(internalMsg))
	})

	assert.Contains(t, logged, "[DATABASE ERROR]")
	assert.Contains(t, logged, internalMsg)
	assert.Contains(t, logged, "/api/v1/admin/integration-logs")
}

func TestAllErrors_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		call       func(echo.Context) error
		wantStatus int
		wantError  string
	}{
		{"ValidationError → 400", func(c echo.Context) error { return ValidationError(c, errors.New("bad")) }, http.StatusBadRequest, "validation_error"},
		{"DatabaseError → 500", func(c echo.Context) error { return DatabaseError(c, errors.New("db")) }, http.StatusInternalServerError, "database_error"},
		{"InternalError → 500", func(c echo.Context) error { return InternalError(c, errors.New("oops")) }, http.StatusInternalServerError, "internal_error"},
		{"ExternalServiceError → 502", func(c echo.Context) error { return ExternalServiceError(c, errors.New("crm")) }, http.StatusBadGateway, "external_service_error"},
		{"UnauthorizedError → 401", func(c echo.Context) error { return UnauthorizedError(c, "reason") }, http.StatusUnauthorized, "unauthorized"},
		{"ForbiddenError → 403", func(c echo.Context) error { return ForbiddenError(c, "reason") }, http.StatusForbidden, "forbidden"},
		{"NotFoundError → 404", func(c echo.Context) error { return NotFoundError(c, "lead") }, http.StatusNotFound, "not_found"},
		{"ConflictError → 409", func(c echo.Context) error { return ConflictError(c, "exists") }, http.StatusConflict, "conflict"},
		{"BadRequestError → 400", func(c echo.Context) error { return BadRequestError(c, "no code") }, http.StatusBadRequest, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/test")
			err := tt.call(c)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, rec.Code)

			resp := parseBody(t, rec)
			assert.Equal(t, tt.wantError, resp.Error)
			assert.NotEmpty(t, resp.Message)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
		})
	}
}

func TestFromDomain(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantError   string
		wantMessage string
	}{
		{"not found", domain.NewNotFoundError("lead L-1"), http.StatusNotFound, "not_found", ""},
		{"validation passes message", domain.NewValidationError("User bob does not exist"), http.StatusBadRequest, "validation_error", "User bob does not exist"},
		{"bad request passes message", domain.NewBadRequestError("No authorization code received"), http.StatusBadRequest, "bad_request", "No authorization code received"},
		{"conflict passes message", domain.NewConflictError("already succeeded"), http.StatusConflict, "conflict", "already succeeded"},
		{"wrapped external", fmt.Errorf("refresh: %w", domain.NewExternalServiceError("crm", errors.New("401"))), http.StatusBadGateway, "external_service_error", ""},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal_error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/test")
			require.NoError(t, FromDomain(c, tt.err))
			assert.Equal(t, tt.wantStatus, rec.Code)

			resp := parseBody(t, rec)
			assert.Equal(t, tt.wantError, resp.Error)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, resp.Message)
			}
		})
	}
}
