package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoachCheck/config"
	"CoachCheck/pkg/errors"
)

func setupTokens(t *testing.T) {
	t.Helper()
	config.Cfg.JWTSecret = "test-secret"
	config.Cfg.JWTExpireMinutes = 30
	config.Cfg.JWTRefreshDays = 7
	require.NoError(t, Init())
}

func TestTokenPairRoundTrip(t *testing.T) {
	setupTokens(t)

	access, refresh, expiresIn, err := GenerateTokenPair(Identity{PublicID: "c-1", Role: RoleCoach})
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.Greater(t, expiresIn, 0)

	id, err := ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, Identity{PublicID: "c-1", Role: RoleCoach}, id)

	_, err = ValidateRefreshToken(access)
	assert.ErrorIs(t, err, errors.ErrInvalidTokenType)
}

func TestIdentityFromClaims(t *testing.T) {
	id, err := IdentityFromClaims(map[string]interface{}{IdentityKey: float64(42), RoleKey: "client"})
	require.NoError(t, err)
	assert.Equal(t, "42", id.PublicID)
	assert.Equal(t, RoleClient, id.Role)

	_, err = IdentityFromClaims(map[string]interface{}{IdentityKey: "x", RoleKey: "admin"})
	assert.ErrorIs(t, err, errors.ErrInvalidTokenClaims)

	_, err = IdentityFromClaims(map[string]interface{}{RoleKey: "coach"})
	assert.ErrorIs(t, err, errors.ErrUserIDNotFound)
}
