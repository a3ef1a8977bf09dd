package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"gstmate/internal/caching"
	"gstmate/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenService handles JWT access tokens and Redis-backed refresh tokens.
type TokenService interface {
	GenerateTokens(ctx context.Context, user *models.User) (*models.TokenResponse, error)
	ConsumeRefreshToken(ctx context.Context, refreshToken string) (uuid.UUID, error)
	RevokeRefreshToken(ctx context.Context, refreshToken string) error
}

// TokenClaims are the JWT claims carried by every access token. AdminID is
// the tenant root: the user's own ID for admins, their creator's for staff.
type TokenClaims struct {
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
	AdminID string `json:"admin_id"`
	jwt.RegisteredClaims
}

type tokenService struct {
	cacheSvc   caching.CacheService
	jwtSecret  []byte
	tokenTTL   int // Access token TTL in seconds
	refreshTTL int // Refresh token TTL in seconds
}

func NewTokenService(cacheSvc caching.CacheService, jwtSecret string, tokenTTLSeconds, refreshTTLSeconds int) TokenService {
	return &tokenService{
		cacheSvc:   cacheSvc,
		jwtSecret:  []byte(jwtSecret),
		tokenTTL:   tokenTTLSeconds,
		refreshTTL: refreshTTLSeconds,
	}
}

// GenerateTokens signs a fresh access token and stores a new refresh token
// keyed by its SHA-256 hash.
func (s *tokenService) GenerateTokens(ctx context.Context, user *models.User) (*models.TokenResponse, error) {
	now := time.Now()
	tokenID := uuid.NewString()

	claims := TokenClaims{
		UserID:  user.ID.String(),
		Role:    user.Role,
		AdminID: user.AdminID().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "gstmate-auth",
			Subject:   user.ID.String(),
			Audience:  jwt.ClaimStrings{"gstmate-api"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.tokenTTL) * time.Second)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        tokenID,
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessTokenString, err := accessToken.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign JWT: %v", err)
	}

	refreshToken := generateSecureToken()
	refreshTokenHash := hashToken(refreshToken)

	tokenData := fmt.Sprintf("%s:%d", user.ID.String(), now.Unix()+int64(s.refreshTTL))
	cacheKey := fmt.Sprintf("refresh_token:%s", refreshTokenHash)
	if err := s.cacheSvc.SetString(ctx, cacheKey, tokenData, time.Duration(s.refreshTTL)*time.Second); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %v", err)
	}

	return &models.TokenResponse{
		AccessToken:  accessTokenString,
		TokenType:    "Bearer",
		ExpiresIn:    s.tokenTTL,
		RefreshToken: refreshToken,
		IssuedAt:     now,
	}, nil
}

// ConsumeRefreshToken validates and rotates the refresh token, returning
// the owning user's ID so the caller can reload the user row and mint a
// fresh token pair.
func (s *tokenService) ConsumeRefreshToken(ctx context.Context, refreshToken string) (uuid.UUID, error) {
	refreshTokenHash := hashToken(refreshToken)
	cacheKey := fmt.Sprintf("refresh_token:%s", refreshTokenHash)

	tokenData, err := s.cacheSvc.GetString(ctx, cacheKey)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid refresh token")
	}

	parts := strings.Split(tokenData, ":")
	if len(parts) != 2 {
		return uuid.Nil, fmt.Errorf("invalid token data")
	}

	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token expiry")
	}
	if time.Now().Unix() > expiry {
		if delErr := s.cacheSvc.Delete(ctx, cacheKey); delErr != nil {
			log.Printf("Failed to delete expired refresh token: %v", delErr)
		}
		return uuid.Nil, fmt.Errorf("refresh token expired")
	}

	userID, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user ID in token")
	}

	// Rotate: old token is single-use
	if err := s.cacheSvc.Delete(ctx, cacheKey); err != nil {
		log.Printf("Failed to rotate refresh token: %v", err)
	}

	return userID, nil
}

// RevokeRefreshToken deletes the stored refresh token, ending the session.
func (s *tokenService) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	cacheKey := fmt.Sprintf("refresh_token:%s", hashToken(refreshToken))
	return s.cacheSvc.Delete(ctx, cacheKey)
}

// generateSecureToken generates a cryptographically secure random token.
// Panics when the system CSPRNG is unavailable rather than ever handing
// out a predictable token.
func generateSecureToken() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		panic(fmt.Sprintf("system random source unavailable: %v", err))
	}
	return base64.URLEncoding.EncodeToString(bytes)
}

// hashToken creates a SHA-256 hash of the token for secure storage
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
