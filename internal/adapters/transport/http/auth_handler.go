package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/http/dto"
	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/http/errmap"
	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/http/middleware"
	authsvc "github.com/Miraines/gentlemale/backend/internal/app/auth/service"
	customErrors "github.com/Miraines/gentlemale/backend/internal/domain/auth/errors"
	"github.com/Miraines/gentlemale/backend/internal/domain/auth/model"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc authsvc.Service
}

func NewAuthHandler(svc authsvc.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	SessionID    string `json:"sessionId"`
}

func tokens(p model.TokenPair) tokenResponse {
	return tokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, SessionID: p.SessionID}
}

type userResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          *string   `json:"name,omitempty"`
	Phone         *string   `json:"phone,omitempty"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	IP        *string   `json:"ip,omitempty"`
	UserAgent *string   `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Current   bool      `json:"current"`
}

func bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		errmap.Abort(c, customErrors.NewInvalidArgument("malformed request body"))
		return false
	}
	return true
}

func meta(c *gin.Context) model.ClientMeta {
	return model.ClientMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// identity is only called behind an Authenticator middleware.
func identity(c *gin.Context) (model.Identity, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		errmap.Abort(c, customErrors.ErrMissingToken)
	}
	return id, ok
}

func (h *AuthHandler) Register(c *gin.Context) {
	var body dto.RegisterDTO
	if !bind(c, &body) {
		return
	}
	res, err := h.svc.Register(c.Request.Context(), body)
	if err != nil {
		errmap.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": res.ID.String(), "email": res.Email})
}

func (h *AuthHandler) Verify(c *gin.Context) {
	var body dto.VerifyDTO
	if !bind(c, &body) {
		return
	}
	if err := h.svc.Verify(c.Request.Context(), body); err != nil {
		errmap.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var body dto.LoginDTO
	if !bind(c, &body) {
		return
	}
	pair, err := h.svc.Login(c.Request.Context(), body, meta(c))
	if err != nil {
		errmap.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens(pair))
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var body dto.RefreshDTO
	if !bind(c, &body) {
		return
	}
	pair, err := h.svc.Refresh(c.Request.Context(), body)
	if err != nil {
		errmap.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens(pair))
}

// Logout ends the caller's current session, or another one of theirs when
// the body names it.
func (h *AuthHandler) Logout(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var body dto.LogoutDTO
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		errmap.Abort(c, customErrors.NewInvalidArgument("malformed request body"))
		return
	}

	var err error
	if body.SessionID != "" && body.SessionID != id.SessionID {
		err = h.svc.RevokeSession(c.Request.Context(), id, body.SessionID)
	} else {
		err = h.svc.Logout(c.Request.Context(), id.SessionID)
	}
	if err != nil {
		errmap.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	u, err := h.svc.Me(c.Request.Context(), id)
	if err != nil {
		errmap.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{
		ID:            u.ID.String(),
		Email:         u.Email,
		Name:          u.Name,
		Phone:         u.Phone,
		Role:          string(u.Role),
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	})
}

func (h *AuthHandler) Sessions(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	list, err := h.svc.ListSessions(c.Request.Context(), id)
	if err != nil {
		errmap.Abort(c, err)
		return
	}
	out := make([]sessionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, sessionResponse{
			ID:        s.ID.String(),
			IP:        s.IP,
			UserAgent: s.UserAgent,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			Current:   s.ID.String() == id.SessionID,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) RevokeSession(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if err := h.svc.RevokeSession(c.Request.Context(), id, c.Param("id")); err != nil {
		errmap.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Google(c *gin.Context) {
	url, err := h.svc.GoogleAuthURL(c.Request.Context())
	if err != nil {
		errmap.Abort(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if c.Query("error") != "" {
		errmap.Abort(c, customErrors.ErrBadCredentials)
		return
	}
	pair, err := h.svc.GoogleLogin(c.Request.Context(), c.Query("code"), c.Query("state"), meta(c))
	if err != nil {
		errmap.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens(pair))
}
