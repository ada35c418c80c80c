package jwt

import (
	"time"

	"github.com/Miraines/gentlemale/backend/internal/domain/auth/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims carries sub, role and, for session-bound tokens, jti = session id.
type AccessClaims struct {
	jwt.RegisteredClaims
	Role model.Role `json:"role"`
}

type JWTUtil interface {
	GenerateAccessToken(userID uuid.UUID, role model.Role, sessionID string) (token string, exp time.Time, err error)
	ValidateAccessToken(token string) (claims AccessClaims, err error)
}
