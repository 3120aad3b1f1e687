package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/jordanlanch/leadsync/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserHandler(t *testing.T) {
	st := newTestStore(t)
	h := NewUserHandler(st)
	e := echo.New()
	e.GET("/api/v1/admin/users", h.ListUsers)
	e.PUT("/api/v1/admin/users", h.UpsertUser)

	t.Run("Success - list", func(t *testing.T) {
		rec := serve(e, http.MethodGet, "/api/v1/admin/users", "")
		requireStatus(t, rec, http.StatusOK)

		var got struct {
			Data  []models.User `json:"data"`
			Total int           `json:"total"`
		}
		decode(t, rec, &got)
		require.Equal(t, 1, got.Total)
		assert.Equal(t, "Alice Smith", got.Data[0].FullName)
	})

	t.Run("Success - create defaults to enabled", func(t *testing.T) {
		rec := serve(e, http.MethodPut, "/api/v1/admin/users", `{"id":"bob@example.com","full_name":"Bob Jones"}`)
		requireStatus(t, rec, http.StatusOK)

		var got models.User
		decode(t, rec, &got)
		assert.True(t, got.Enabled)
		assert.Equal(t, "Bob Jones", got.FullName)
	})

	t.Run("Success - partial update keeps name", func(t *testing.T) {
		rec := serve(e, http.MethodPut, "/api/v1/admin/users", `{"id":"alice@example.com","enabled":false}`)
		requireStatus(t, rec, http.StatusOK)

		u, err := st.GetUser(context.Background(), alice)
		require.NoError(t, err)
		assert.False(t, u.Enabled)
		assert.Equal(t, "Alice Smith", u.FullName)
	})

	t.Run("Error - missing id", func(t *testing.T) {
		rec := serve(e, http.MethodPut, "/api/v1/admin/users", `{"full_name":"Nobody"}`)
		requireStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("Error - Administrator is built in", func(t *testing.T) {
		rec := serve(e, http.MethodPut, "/api/v1/admin/users", `{"id":"Administrator"}`)
		requireStatus(t, rec, http.StatusBadRequest)
	})
}
