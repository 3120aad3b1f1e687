package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/leadsync/pkg/api/errors"
	"github.com/jordanlanch/leadsync/pkg/domain"
	"github.com/jordanlanch/leadsync/pkg/models"
	"github.com/labstack/echo/v4"
)

// UserStore manages the user directory
type UserStore interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpsertUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// UserHandler handles user directory endpoints
type UserHandler struct {
	users     UserStore
	validator *validator.Validate
}

// NewUserHandler creates a new user handler
func NewUserHandler(users UserStore) *UserHandler {
	return &UserHandler{users: users, validator: validator.New()}
}

// ListUsers godoc
// @Summary List users who may own leads
// @Tags Admin Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.users.ListUsers(ctx)
	if err != nil {
		return errors.DatabaseError(c, err)
	}
	if users == nil {
		users = []*models.User{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  users,
		"total": len(users),
	})
}

// UpsertUser godoc
// @Summary Create or update a user
// @Description Enabled defaults to true for new users and is kept for existing ones when omitted
// @Tags Admin Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.UpsertUserRequest true "User"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/users [put]
func (h *UserHandler) UpsertUser(c echo.Context) error {
	var req models.UpsertUserRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}
	if req.ID == models.AdministratorUser {
		return errors.BadRequestError(c, "Administrator is built in and cannot be edited")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u := &models.User{ID: req.ID, FullName: req.FullName, Enabled: true}
	existing, err := h.users.GetUser(ctx, req.ID)
	switch {
	case err == nil:
		u.Enabled = existing.Enabled
		if u.FullName == "" {
			u.FullName = existing.FullName
		}
	case !domain.IsNotFound(err):
		return errors.DatabaseError(c, err)
	}
	if req.Enabled != nil {
		u.Enabled = *req.Enabled
	}

	if err := h.users.UpsertUser(ctx, u); err != nil {
		return errors.DatabaseError(c, err)
	}
	saved, err := h.users.GetUser(ctx, u.ID)
	if err != nil {
		return errors.DatabaseError(c, err)
	}
	return c.JSON(http.StatusOK, saved)
}
