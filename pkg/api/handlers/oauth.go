package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jordanlanch/leadsync/pkg/api/errors"
	"github.com/jordanlanch/leadsync/pkg/models"
	"github.com/labstack/echo/v4"
)

// TokenExchanger runs the CRM authorization-code flow
type TokenExchanger interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) error
}

// OAuthHandler handles the CRM OAuth consent round trip
type OAuthHandler struct {
	tokens TokenExchanger
}

// NewOAuthHandler creates a new OAuth handler. tokens is nil when the CRM
// credentials are not configured.
func NewOAuthHandler(tokens TokenExchanger) *OAuthHandler {
	return &OAuthHandler{tokens: tokens}
}

func (h *OAuthHandler) notConfigured(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
		Error:   "crm_not_configured",
		Message: "CRM client credentials are not configured",
	})
}

// Authorize godoc
// @Summary Start the CRM OAuth flow
// @Tags CRM
// @Success 302
// @Failure 503 {object} models.ErrorResponse
// @Router /crm/oauth/authorize [get]
func (h *OAuthHandler) Authorize(c echo.Context) error {
	if h.tokens == nil {
		return h.notConfigured(c)
	}
	return c.Redirect(http.StatusFound, h.tokens.AuthURL(uuid.NewString()))
}

// Callback godoc
// @Summary CRM OAuth redirect target
// @Description Exchanges the authorization code and stores the tokens
// @Tags CRM
// @Produce json
// @Param code query string true "Authorization code"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /crm/oauth/callback [get]
func (h *OAuthHandler) Callback(c echo.Context) error {
	if h.tokens == nil {
		return h.notConfigured(c)
	}

	code := c.QueryParam("code")
	if code == "" {
		return errors.BadRequestError(c, "No authorization code received")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	if err := h.tokens.Exchange(ctx, code); err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, models.SuccessResponse{Message: "Tokens saved successfully"})
}
