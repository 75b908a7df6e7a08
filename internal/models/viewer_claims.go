package models

import "github.com/golang-jwt/jwt/v5"

// ViewerClaims are the claims carried by a dashboard viewer's token.
type ViewerClaims struct {
	jwt.RegisteredClaims
	ViewerID string `json:"viewer_id"`
	Role     Role   `json:"role"`
}
