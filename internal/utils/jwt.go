// internal/utils/jwt.go
package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const jwtIssuer = "swapmart"

var ErrInvalidToken = errors.New("invalid token")

// JWTClaims identify the caller of an access token. Refresh tokens carry
// only registered claims and are never accepted in their place.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	UserType string `json:"user_type"`
	jwt.RegisteredClaims
}

var jwtSecret = []byte("your-secret-key-change-in-production")

func SetJWTSecret(secret string) {
	jwtSecret = []byte(secret)
}

func registeredClaims(userID uuid.UUID, ttlHours int) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Issuer:    jwtIssuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlHours) * time.Hour)),
	}
}

func sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
}

func GenerateJWT(userID uuid.UUID, username, userType string, ttlHours int) (string, error) {
	return sign(JWTClaims{
		UserID:           userID.String(),
		Username:         username,
		UserType:         userType,
		RegisteredClaims: registeredClaims(userID, ttlHours),
	})
}

// GenerateRefreshToken carries a random token ID so two refresh tokens
// issued in the same second still differ.
func GenerateRefreshToken(userID uuid.UUID, ttlHours int) (string, error) {
	tokenID, err := GenerateRandomString(24)
	if err != nil {
		return "", err
	}

	claims := registeredClaims(userID, ttlHours)
	claims.ID = tokenID
	return sign(claims)
}

// ValidateJWT verifies an access token. All failures wrap ErrInvalidToken.
func ValidateJWT(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, hmacKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	switch {
	case !token.Valid:
		return nil, ErrInvalidToken
	case !claims.VerifyIssuer(jwtIssuer, true):
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	case claims.UserID == "" || claims.UserID != claims.Subject:
		return nil, fmt.Errorf("%w: not an access token", ErrInvalidToken)
	}
	return claims, nil
}

func hmacKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return jwtSecret, nil
}
