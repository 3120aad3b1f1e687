package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jordanlanch/leadsync/pkg/database/dbtest"
	"github.com/jordanlanch/leadsync/pkg/models"
	"github.com/jordanlanch/leadsync/pkg/store"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const alice = "alice@example.com"

// newTestStore returns a migrated store holding one user, alice
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(dbtest.Open(t))
	require.NoError(t, st.UpsertUser(context.Background(), &models.User{ID: alice, FullName: "Alice Smith", Enabled: true}))
	return st
}

// serve runs one request through e and returns the recorder
func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, code int) {
	t.Helper()
	require.Equal(t, code, rec.Code, rec.Body.String())
}
