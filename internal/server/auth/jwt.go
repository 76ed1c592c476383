package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/diarykeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims plus the caller's email.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// GenerateToken signs an HS256 token for subject valid for validityDuration.
func GenerateToken(subject, email string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Email: email,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// JWTVerifier accepts HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secretKey []byte
}

func NewJWTVerifier(secretKey []byte) *JWTVerifier {
	return &JWTVerifier{secretKey: secretKey}
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{Subject: claims.Subject, Email: claims.Email}, nil
}
