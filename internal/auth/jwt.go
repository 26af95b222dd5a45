package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTTL is how long a terminal credential stays valid. Terminals re-login
// at shift start.
const TokenTTL = 12 * time.Hour

type Claims struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Terminal string    `json:"terminal"`
	Role     string    `json:"role"`
	Station  string    `json:"station,omitempty"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, tenantID uuid.UUID, terminal, role, station string) (string, error) {
	claims := Claims{
		TenantID: tenantID,
		Terminal: terminal,
		Role:     role,
		Station:  station,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   terminal,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.TenantID == uuid.Nil {
		return nil, fmt.Errorf("token has no tenant")
	}
	return claims, nil
}
