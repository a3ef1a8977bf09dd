package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"gstmate/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// fakeCache is an in-memory CacheService stand-in. TTLs are recorded but not
// enforced; expiry behavior is encoded in the stored value.
type fakeCache struct {
	data map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (c *fakeCache) SetString(_ context.Context, key, value string, _ time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *fakeCache) GetString(_ context.Context, key string) (string, error) {
	value, ok := c.data[key]
	if !ok {
		return "", errors.New("key not found")
	}
	return value, nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *fakeCache) Ping(_ context.Context) error { return nil }

func testUser() *models.User {
	return &models.User{
		ID:    uuid.New(),
		Email: "owner@firm.example",
		Role:  models.RoleAdmin,
	}
}

func TestGenerateTokens_ClaimsCarryTenantRoot(t *testing.T) {
	cache := newFakeCache()
	svc := NewTokenService(cache, "test-secret", 900, 3600)

	adminID := uuid.New()
	staff := &models.User{
		ID:        uuid.New(),
		Role:      models.RoleStaff,
		CreatedBy: &adminID,
	}

	resp, err := svc.GenerateTokens(context.Background(), staff)
	assert.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 900, resp.ExpiresIn)
	assert.NotEmpty(t, resp.RefreshToken)

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(resp.AccessToken, claims, func(t *jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	assert.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, staff.ID.String(), claims.UserID)
	assert.Equal(t, models.RoleStaff, claims.Role)
	assert.Equal(t, adminID.String(), claims.AdminID)
}

func TestConsumeRefreshToken_RotatesOnUse(t *testing.T) {
	cache := newFakeCache()
	svc := NewTokenService(cache, "test-secret", 900, 3600)
	user := testUser()

	resp, err := svc.GenerateTokens(context.Background(), user)
	assert.NoError(t, err)

	userID, err := svc.ConsumeRefreshToken(context.Background(), resp.RefreshToken)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	// Single use: the same token cannot be consumed twice
	_, err = svc.ConsumeRefreshToken(context.Background(), resp.RefreshToken)
	assert.Error(t, err)
}

func TestConsumeRefreshToken_UnknownToken(t *testing.T) {
	svc := NewTokenService(newFakeCache(), "test-secret", 900, 3600)

	_, err := svc.ConsumeRefreshToken(context.Background(), "never-issued")
	assert.Error(t, err)
}

func TestConsumeRefreshToken_Expired(t *testing.T) {
	cache := newFakeCache()
	svc := NewTokenService(cache, "test-secret", 900, 3600)
	user := testUser()

	refreshToken := "stale-token"
	cacheKey := fmt.Sprintf("refresh_token:%s", hashToken(refreshToken))
	cache.data[cacheKey] = fmt.Sprintf("%s:%d", user.ID, time.Now().Unix()-10)

	_, err := svc.ConsumeRefreshToken(context.Background(), refreshToken)
	assert.Error(t, err)
	_, exists := cache.data[cacheKey]
	assert.False(t, exists, "expired token should be deleted")
}

func TestRevokeRefreshToken(t *testing.T) {
	cache := newFakeCache()
	svc := NewTokenService(cache, "test-secret", 900, 3600)

	resp, err := svc.GenerateTokens(context.Background(), testUser())
	assert.NoError(t, err)

	assert.NoError(t, svc.RevokeRefreshToken(context.Background(), resp.RefreshToken))

	_, err = svc.ConsumeRefreshToken(context.Background(), resp.RefreshToken)
	assert.Error(t, err)
}

func TestGenerateSecureToken_FullEntropy(t *testing.T) {
	a := generateSecureToken()
	b := generateSecureToken()
	assert.NotEqual(t, a, b)

	raw, err := base64.URLEncoding.DecodeString(a)
	assert.NoError(t, err)
	assert.Len(t, raw, 32)
	assert.NotEqual(t, make([]byte, 32), raw, "token bytes must come from the CSPRNG")
}
