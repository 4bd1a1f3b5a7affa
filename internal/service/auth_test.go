package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoachCheck/config"
	"CoachCheck/pkg/errors"
	"CoachCheck/pkg/token"
)

type memTokens struct {
	stored map[string]string
}

func (m *memTokens) SetRefreshToken(_ context.Context, role, publicID, refreshToken string, _ time.Duration) error {
	if m.stored == nil {
		m.stored = map[string]string{}
	}
	m.stored[role+":"+publicID] = refreshToken
	return nil
}

func (m *memTokens) GetRefreshToken(_ context.Context, role, publicID string) (string, error) {
	return m.stored[role+":"+publicID], nil
}

func setupAuth(t *testing.T) (*memTokens, *AuthService) {
	t.Helper()
	config.Cfg.JWTSecret = "test-secret"
	config.Cfg.JWTExpireMinutes = 30
	config.Cfg.JWTRefreshDays = 7
	require.NoError(t, token.Init())

	store := newMemStore()
	store.addCoach(1, "coach-1")
	store.addClient(11, 1, "client-1", "UTC")

	tokens := &memTokens{}
	return tokens, NewAuthService(store.repository(), tokens, nopLogger())
}

func TestRefreshToken(t *testing.T) {
	tokens, svc := setupAuth(t)

	_, refresh, _, err := token.GenerateTokenPair(token.Identity{PublicID: "client-1", Role: token.RoleClient})
	require.NoError(t, err)

	resp, err := svc.RefreshToken(ctx(), refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Greater(t, resp.ExpiresIn, 0)
	assert.Equal(t, resp.RefreshToken, tokens.stored["client:client-1"])
}

func TestRefreshToken_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		id     token.Identity
		stored string
	}{
		{name: "rotated away", id: token.Identity{PublicID: "coach-1", Role: token.RoleCoach}, stored: "newer-token"},
		{name: "unknown coach", id: token.Identity{PublicID: "ghost", Role: token.RoleCoach}},
		{name: "unknown client", id: token.Identity{PublicID: "ghost", Role: token.RoleClient}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, svc := setupAuth(t)
			if tt.stored != "" {
				require.NoError(t, tokens.SetRefreshToken(ctx(), string(tt.id.Role), tt.id.PublicID, tt.stored, time.Hour))
			}

			_, refresh, _, err := token.GenerateTokenPair(tt.id)
			require.NoError(t, err)

			_, err = svc.RefreshToken(ctx(), refresh)
			assert.ErrorIs(t, err, errors.Unauthorized)
		})
	}
}

func TestRefreshToken_AccessTokenNotAccepted(t *testing.T) {
	_, svc := setupAuth(t)

	access, _, _, err := token.GenerateTokenPair(token.Identity{PublicID: "coach-1", Role: token.RoleCoach})
	require.NoError(t, err)

	_, err = svc.RefreshToken(ctx(), access)
	assert.ErrorIs(t, err, errors.Unauthorized)
}
