package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a development bearer token. It carries the same
// custom claims the Auth0 tenant adds to access tokens.
type Claims struct {
	Nickname string `json:"nickname,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// CreateToken signs an HS256 token for subject. Used by the token command
// and by tests; production tokens come from Auth0.
func CreateToken(secret, issuer, audience, subject, nickname, email string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("auth: JWT secret key not set")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Nickname: nickname,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// VerifyToken parses an HS256 token and returns its claims.
func VerifyToken(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth: JWT secret key not set")
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return &claims, nil
}
