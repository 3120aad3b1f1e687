package middleware

import (
	"net/http"
	"strings"

	"github.com/jordanlanch/leadsync/pkg/auth"
	"github.com/jordanlanch/leadsync/pkg/models"
	"github.com/labstack/echo/v4"
)

// JWTMiddleware authenticates admin API callers from the Authorization header
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return jwtMiddleware(secret, false)
}

// JWTFromQueryOrHeader also accepts the token as a token query parameter.
// Used for export download links where headers cannot be set.
func JWTFromQueryOrHeader(secret string) echo.MiddlewareFunc {
	return jwtMiddleware(secret, true)
}

func jwtMiddleware(secret string, allowQuery bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, errResp := bearerToken(c.Request().Header.Get("Authorization"))
			if token == "" && allowQuery {
				token = c.QueryParam("token")
			}
			if token == "" {
				if errResp == nil || allowQuery {
					errResp = &models.ErrorResponse{
						Error:   "missing_token",
						Message: "Authorization header is required",
					}
				}
				return c.JSON(http.StatusUnauthorized, errResp)
			}

			claims, err := auth.ValidateJWT(token, secret)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token",
					Message: err.Error(),
				})
			}
			if claims.UserID == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token",
					Message: "token has no user",
				})
			}

			c.Set("token", token)
			c.Set("user_id", claims.UserID)
			c.Set("user_role", claims.Role)

			// services read the acting user from the request context
			req := c.Request()
			c.SetRequest(req.WithContext(auth.WithUser(req.Context(), claims.UserID)))

			return next(c)
		}
	}
}

// bearerToken extracts the token from an Authorization header. A present
// but malformed header yields an error response.
func bearerToken(header string) (string, *models.ErrorResponse) {
	if header == "" {
		return "", nil
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", &models.ErrorResponse{
			Error:   "invalid_token_format",
			Message: "Authorization header must be 'Bearer {token}'",
		}
	}
	return parts[1], nil
}
