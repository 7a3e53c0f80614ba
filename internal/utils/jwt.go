package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/example/bizengo/internal/models"
)

type jwtCustomClaims struct {
	SubjectID string      `json:"sub_id"`
	Role      models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the authenticated principal carried by an access token.
type Identity struct {
	SubjectID uuid.UUID
	Role      models.Role
}

// GenerateToken creates a signed JWT for the provided principal.
func GenerateToken(secret string, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &jwtCustomClaims{
		SubjectID: id.SubjectID.String(),
		Role:      id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.SubjectID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the token and returns the embedded identity.
func ParseToken(secret, tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, err
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid {
		return Identity{}, jwt.ErrTokenInvalidClaims
	}

	id, err := uuid.Parse(claims.SubjectID)
	if err != nil {
		return Identity{}, err
	}
	if !claims.Role.Valid() {
		return Identity{}, errors.New("token carries unknown role")
	}

	return Identity{SubjectID: id, Role: claims.Role}, nil
}
