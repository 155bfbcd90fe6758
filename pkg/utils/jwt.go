package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a dashboard session token
type Claims struct {
	AdminID string           `json:"id"`
	Email   string           `json:"email"`
	Role    models.AdminRole `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 session token for admin valid for ttl
func GenerateToken(admin *models.Admin, secret string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret not configured")
	}
	claims := Claims{
		AdminID: admin.ID,
		Email:   admin.Email,
		Role:    admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken parses tokenString and checks its signature and expiry
func ValidateToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.AdminID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
