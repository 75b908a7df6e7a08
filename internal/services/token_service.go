package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tourism-analytics/internal/config"
	"tourism-analytics/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrExpiredToken      = errors.New("token is expired")
	ErrInvalidIssuer     = errors.New("invalid issuer")
	ErrInvalidRole       = errors.New("invalid role claim")
	ErrEmptyToken        = errors.New("empty token")
	ErrInvalidAuthHeader = errors.New("invalid authorization header format")
	ErrSigningDisabled   = errors.New("token signing key not configured")
)

// TokenService validates viewer tokens. Signing is only possible when a
// private key is configured, which is the case outside production.
type TokenService struct {
	config.JWTConfig
}

func NewTokenService(jwtConfig *config.JWTConfig) TokenServiceInterface {
	return &TokenService{
		JWTConfig: *jwtConfig,
	}
}

// GenerateViewerToken signs a token for a viewer with the given role
func (ts *TokenService) GenerateViewerToken(viewerID uuid.UUID, role models.Role) (string, time.Time, error) {
	if viewerID == uuid.Nil {
		return "", time.Time{}, errors.New("viewer ID cannot be nil")
	}
	if !validRole(role) {
		return "", time.Time{}, ErrInvalidRole
	}
	if ts.PrivateKey == nil {
		return "", time.Time{}, ErrSigningDisabled
	}

	now := time.Now()
	expiresAt := now.Add(ts.AccessTokenDuration)

	claims := models.ViewerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.Issuer,
			Subject:   viewerID.String(),
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
		},
		ViewerID: viewerID.String(),
		Role:     role,
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(ts.PrivateKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign viewer token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateViewerToken verifies signature, expiry, issuer and role
func (ts *TokenService) ValidateViewerToken(tokenString string) (*models.ViewerClaims, error) {
	if tokenString == "" {
		return nil, ErrEmptyToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.ViewerClaims{}, ts.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*models.ViewerClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Issuer != ts.Issuer {
		return nil, ErrInvalidIssuer
	}
	if !validRole(claims.Role) {
		return nil, ErrInvalidRole
	}
	if claims.ViewerID == "" {
		claims.ViewerID = claims.Subject
	}

	return claims, nil
}

// ExtractTokenFromHeader extracts the JWT token from the Authorization header
func (ts *TokenService) ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrInvalidAuthHeader
	}

	const bearerPrefix = "bearer "
	if !strings.HasPrefix(strings.ToLower(authHeader), bearerPrefix) {
		return "", ErrInvalidAuthHeader
	}

	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if token == "" {
		return "", ErrInvalidAuthHeader
	}

	return token, nil
}

func (ts *TokenService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return ts.PublicKey, nil
}

func validRole(role models.Role) bool {
	return role == models.RoleAuthority || role == models.RoleOwner
}
