package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jordanlanch/leadsync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT("ops@example.com", RoleAdmin, "secret", 1)
	require.NoError(t, err)

	claims, err := ValidateJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.UserID)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "ops@example.com", claims.Subject)
}

func TestValidateJWT_WrongSecret(t *testing.T) {
	token, err := GenerateJWT("ops@example.com", RoleAdmin, "secret", 1)
	require.NoError(t, err)

	_, err = ValidateJWT(token, "other")
	assert.Error(t, err)
}

func TestValidateJWT_Expired(t *testing.T) {
	token, err := GenerateJWT("ops@example.com", RoleAdmin, "secret", -1)
	require.NoError(t, err)

	_, err = ValidateJWT(token, "secret")
	assert.Error(t, err)
}

func TestUserFromContext_DefaultsToAdministrator(t *testing.T) {
	assert.Equal(t, models.AdministratorUser, UserFromContext(context.Background()))

	ctx := WithUser(context.Background(), "alice@example.com")
	assert.Equal(t, "alice@example.com", UserFromContext(ctx))
}

func TestValidateJWT_RejectsForeignTokens(t *testing.T) {
	t.Run("Error - other signing method", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
			UserID:           "ops@example.com",
			Role:             RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer},
		}).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = ValidateJWT(token, "secret")
		assert.Error(t, err)
	})

	t.Run("Error - other issuer", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			UserID:           "ops@example.com",
			Role:             RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
		}).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = ValidateJWT(token, "secret")
		assert.Error(t, err)
	})
}
