package middleware

import (
	"context"
	"strings"

	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/http/errmap"
	customErrors "github.com/Miraines/gentlemale/backend/internal/domain/auth/errors"
	"github.com/Miraines/gentlemale/backend/internal/domain/auth/jwt"
	"github.com/Miraines/gentlemale/backend/internal/domain/auth/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const identityKey = "identity"

type SessionChecker interface {
	Check(ctx context.Context, sessionID string, userID uuid.UUID) error
}

// Authenticator builds the two bearer-token middlewares. Stateless trusts
// the signature alone; SessionChecked also requires the token's session to
// still exist, so it honours logout immediately.
type Authenticator struct {
	jwt      jwt.JWTUtil
	sessions SessionChecker
}

func NewAuthenticator(j jwt.JWTUtil, s SessionChecker) *Authenticator {
	return &Authenticator{jwt: j, sessions: s}
}

func (a *Authenticator) Stateless() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := a.identify(c)
		if err != nil {
			errmap.Abort(c, err)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func (a *Authenticator) SessionChecked() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := a.identify(c)
		if err != nil {
			errmap.Abort(c, err)
			return
		}
		if id.SessionID == "" {
			errmap.Abort(c, customErrors.ErrSessionNotFound)
			return
		}
		if err := a.sessions.Check(c.Request.Context(), id.SessionID, id.ID); err != nil {
			errmap.Abort(c, err)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func (a *Authenticator) identify(c *gin.Context) (model.Identity, error) {
	raw, ok := bearer(c.GetHeader("Authorization"))
	if !ok {
		return model.Identity{}, customErrors.ErrMissingToken
	}
	claims, err := a.jwt.ValidateAccessToken(raw)
	if err != nil {
		if customErrors.IsInternal(err) {
			return model.Identity{}, err
		}
		return model.Identity{}, customErrors.ErrInvalidToken
	}
	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.Identity{}, customErrors.ErrInvalidToken
	}
	return model.Identity{ID: uid, Role: claims.Role, SessionID: claims.ID}, nil
}

func bearer(h string) (string, bool) {
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}

// RequireRole must run after one of the Authenticator middlewares.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			errmap.Abort(c, customErrors.ErrMissingToken)
			return
		}
		for _, r := range roles {
			if id.Role == r {
				c.Next()
				return
			}
		}
		errmap.Abort(c, customErrors.ErrForbidden)
	}
}

func IdentityFrom(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return model.Identity{}, false
	}
	id, ok := v.(model.Identity)
	return id, ok
}
