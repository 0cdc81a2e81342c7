package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_UsesConfiguredTTL(t *testing.T) {
	ttl := 2 * time.Hour
	tm := NewTokenManager("test-secret", ttl)

	start := time.Now()

	token, err := tm.GenerateToken(Claims{UserID: "user-1", ScopeID: "guild-1"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)

	expectedExpiry := start.Add(ttl)
	assert.WithinDuration(t, expectedExpiry, claims.ExpiresAt.Time, 2*time.Second)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestTokenManager_RoundTripsPermissions(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	token, err := tm.GenerateToken(Claims{
		UserID:      "owner-1",
		ScopeID:     "guild-1",
		DisplayName: "Owner",
		IsOwner:     true,
	})
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)

	caller := claims.Caller()
	assert.Equal(t, "guild-1", caller.ScopeID)
	assert.Equal(t, "Owner", caller.DisplayName)
	assert.True(t, caller.IsScopeOwner())
	assert.True(t, caller.CanManageTickets())
}

func TestTokenManager_RejectsInvalidTokens(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	other := NewTokenManager("other-secret", time.Hour)
	foreign, err := other.GenerateToken(Claims{UserID: "user-1", ScopeID: "guild-1"})
	require.NoError(t, err)
	_, err = tm.ValidateToken(foreign)
	assert.Error(t, err)

	noScope, err := tm.GenerateToken(Claims{UserID: "user-1"})
	require.NoError(t, err)
	_, err = tm.ValidateToken(noScope)
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:  "user-1",
		ScopeID: "guild-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = tm.ValidateToken(signed)
	assert.Error(t, err)

	_, err = tm.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestClaims_Caller(t *testing.T) {
	c := &Claims{UserID: "mod-1", ScopeID: "guild-1", CanManage: true}
	caller := c.Caller()

	assert.True(t, caller.CanManageChannels)
	assert.False(t, caller.IsAdministrator)
	assert.Empty(t, caller.ScopeOwnerID)
}
