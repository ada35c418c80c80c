package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/http/dto"
	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/http/middleware"
	appjwt "github.com/Miraines/gentlemale/backend/internal/app/auth/jwt"
	"github.com/Miraines/gentlemale/backend/internal/domain/appointment"
	customErrors "github.com/Miraines/gentlemale/backend/internal/domain/auth/errors"
	"github.com/Miraines/gentlemale/backend/internal/domain/auth/model"
	"github.com/Miraines/gentlemale/backend/internal/infra/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

/* ──────────────────────────────── stubs ──────────────────────────────── */

type authStub struct {
	registerErr error
	loginErr    error
	loginMeta   model.ClientMeta
	loggedOut   string
	revoked     string
	sessions    []model.Session
	googleCode  string
}

func (s *authStub) Register(_ context.Context, in dto.RegisterDTO) (model.RegisteredUser, error) {
	if s.registerErr != nil {
		return model.RegisteredUser{}, s.registerErr
	}
	return model.RegisteredUser{ID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Email: in.Email}, nil
}

func (s *authStub) Verify(context.Context, dto.VerifyDTO) error { return nil }

func (s *authStub) Login(_ context.Context, _ dto.LoginDTO, meta model.ClientMeta) (model.TokenPair, error) {
	s.loginMeta = meta
	if s.loginErr != nil {
		return model.TokenPair{}, s.loginErr
	}
	return model.TokenPair{AccessToken: "at", RefreshToken: "rt", SessionID: "sid"}, nil
}

func (s *authStub) Refresh(context.Context, dto.RefreshDTO) (model.TokenPair, error) {
	return model.TokenPair{}, customErrors.ErrInvalidSession
}

func (s *authStub) Logout(_ context.Context, sessionID string) error {
	s.loggedOut = sessionID
	return nil
}

func (s *authStub) Me(_ context.Context, id model.Identity) (model.User, error) {
	return model.User{ID: id.ID, Email: "a@b.co", Role: id.Role, EmailVerified: true}, nil
}

func (s *authStub) ListSessions(context.Context, model.Identity) ([]model.Session, error) {
	return s.sessions, nil
}

func (s *authStub) RevokeSession(_ context.Context, _ model.Identity, sessionID string) error {
	s.revoked = sessionID
	return nil
}

func (s *authStub) GoogleAuthURL(context.Context) (string, error) {
	return "https://accounts.example/auth?state=xyz", nil
}

func (s *authStub) GoogleLogin(_ context.Context, code, _ string, _ model.ClientMeta) (model.TokenPair, error) {
	s.googleCode = code
	return model.TokenPair{AccessToken: "g-at", RefreshToken: "g-rt", SessionID: "g-sid"}, nil
}

type apptStub struct {
	lastStatus string
}

func (s *apptStub) Book(_ context.Context, id model.Identity, in dto.CreateAppointmentDTO) (appointment.Appointment, error) {
	return appointment.Appointment{ID: uuid.New(), CustomerID: id.ID, Service: in.Service, Date: in.Date, Status: appointment.StatusPending}, nil
}

func (s *apptStub) ListMine(_ context.Context, id model.Identity) ([]appointment.Appointment, error) {
	return []appointment.Appointment{{ID: uuid.New(), CustomerID: id.ID, Status: appointment.StatusPending}}, nil
}

func (s *apptStub) ListAll(_ context.Context, _ model.Identity, status string) ([]appointment.Appointment, error) {
	s.lastStatus = status
	return nil, nil
}

func (s *apptStub) Get(context.Context, model.Identity, string) (appointment.Appointment, error) {
	return appointment.Appointment{}, customErrors.ErrNotFound
}

func (s *apptStub) Confirm(_ context.Context, id model.Identity, raw string) (appointment.Appointment, error) {
	stylist := id.ID
	return appointment.Appointment{ID: uuid.MustParse(raw), StylistID: &stylist, Status: appointment.StatusConfirmed}, nil
}

func (s *apptStub) Cancel(_ context.Context, _ model.Identity, raw string) (appointment.Appointment, error) {
	return appointment.Appointment{ID: uuid.MustParse(raw), Status: appointment.StatusCancelled}, nil
}

// liveSessions answers for the session-checked middleware.
type liveSessions map[string]bool

func (l liveSessions) Check(_ context.Context, sessionID string, _ uuid.UUID) error {
	if !l[sessionID] {
		return customErrors.ErrSessionNotFound
	}
	return nil
}

type healthStub struct{ err error }

func (h healthStub) Check(context.Context) error { return h.err }

/* ───────────────────────────── helpers ───────────────────────────── */

type env struct {
	router *gin.Engine
	auth   *authStub
	appts  *apptStub
	live   liveSessions
	jwt    *appjwt.JwtUtilImpl
}

func newEnv(t *testing.T, health HealthChecker) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	util, err := appjwt.NewJWTUtil(&config.Config{
		JWTPrivateKey:  "router-test-secret-router-test-secret",
		Issuer:         "gentlemale",
		Audience:       "gentlemale-web",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)

	e := &env{auth: &authStub{}, appts: &apptStub{}, live: liveSessions{}, jwt: util}
	e.router = NewRouter(RouterDeps{
		Auth:          e.auth,
		Appointments:  e.appts,
		Authenticator: middleware.NewAuthenticator(util, e.live),
		Health:        health,
		Gatherer:      prometheus.NewRegistry(),
		Log:           zap.NewNop(),
	})
	return e
}

// token issues an access token for a fresh user with a live session.
func (e *env) token(t *testing.T, role model.Role) (uuid.UUID, string, string) {
	t.Helper()
	uid, sid := uuid.New(), uuid.NewString()
	e.live[sid] = true
	tok, _, err := e.jwt.GenerateAccessToken(uid, role, sid)
	require.NoError(t, err)
	return uid, sid, tok
}

func (e *env) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.10:4321"
	req.Header.Set("User-Agent", "router-test")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

/* ─────────────────────────────── auth ─────────────────────────────── */

func TestRegister_Created(t *testing.T) {
	e := newEnv(t, nil)
	w := e.do(http.MethodPost, "/v1/auth/register", "", map[string]string{"email": "a@b.co", "password": "12345678"})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	require.Equal(t, "11111111-1111-1111-1111-111111111111", body["id"])
	require.Equal(t, "a@b.co", body["email"])
}

func TestRegister_MalformedBody(t *testing.T) {
	e := newEnv(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "VALIDATION_ERROR", decode(t, w)["error"])
}

func TestRegister_ErrorKindMapped(t *testing.T) {
	e := newEnv(t, nil)
	e.auth.registerErr = customErrors.ErrUserExists
	w := e.do(http.MethodPost, "/v1/auth/register", "", map[string]string{"email": "a@b.co", "password": "12345678"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "USER_EXISTS", decode(t, w)["error"])
}

func TestLogin_PassesClientMeta(t *testing.T) {
	e := newEnv(t, nil)
	w := e.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "a@b.co", "password": "12345678"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	require.Equal(t, "at", body["accessToken"])
	require.Equal(t, "rt", body["refreshToken"])
	require.Equal(t, "sid", body["sessionId"])
	require.Equal(t, model.ClientMeta{IP: "192.0.2.10", UserAgent: "router-test"}, e.auth.loginMeta)
}

func TestLogin_InternalErrorHidden(t *testing.T) {
	e := newEnv(t, nil)
	e.auth.loginErr = customErrors.WrapInternal(errors.New("pq: connection refused"), "get user")
	w := e.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "a@b.co", "password": "12345678"})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "connection refused")
	require.Equal(t, "INTERNAL", decode(t, w)["error"])
}

func TestRefresh_Unauthorized(t *testing.T) {
	e := newEnv(t, nil)
	w := e.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refreshToken": "x", "sessionId": "y"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "INVALID_SESSION", decode(t, w)["error"])
}

func TestLogout_CurrentSession(t *testing.T) {
	e := newEnv(t, nil)
	_, sid, tok := e.token(t, model.RoleCustomer)

	w := e.do(http.MethodPost, "/v1/auth/logout", tok, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, sid, e.auth.loggedOut)
	require.Empty(t, e.auth.revoked)
}

func TestLogout_OtherSession(t *testing.T) {
	e := newEnv(t, nil)
	_, _, tok := e.token(t, model.RoleCustomer)
	other := uuid.NewString()

	w := e.do(http.MethodPost, "/v1/auth/logout", tok, map[string]string{"sessionId": other})
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, other, e.auth.revoked)
	require.Empty(t, e.auth.loggedOut)
}

func TestMe_RequiresToken(t *testing.T) {
	e := newEnv(t, nil)
	w := e.do(http.MethodGet, "/v1/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Missing token", decode(t, w)["message"])

	uid, _, tok := e.token(t, model.RoleStylist)
	w = e.do(http.MethodGet, "/v1/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Equal(t, uid.String(), body["id"])
	require.Equal(t, "STYLIST", body["role"])
}

func TestSessions_MarksCurrent(t *testing.T) {
	e := newEnv(t, nil)
	uid, sid, tok := e.token(t, model.RoleCustomer)
	e.auth.sessions = []model.Session{
		{ID: uuid.MustParse(sid), UserID: uid},
		{ID: uuid.New(), UserID: uid},
	}

	w := e.do(http.MethodGet, "/v1/auth/sessions", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 2)
	require.Equal(t, true, out[0]["current"])
	require.Equal(t, false, out[1]["current"])
	require.NotContains(t, w.Body.String(), "RefreshTokenHash")
}

func TestRevokeSession_NoContent(t *testing.T) {
	e := newEnv(t, nil)
	_, _, tok := e.token(t, model.RoleCustomer)
	target := uuid.NewString()

	w := e.do(http.MethodDelete, "/v1/auth/sessions/"+target, tok, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, target, e.auth.revoked)
}

func TestGoogle_RedirectAndCallback(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(http.MethodGet, "/v1/auth/google", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "https://accounts.example/auth?state=xyz", w.Header().Get("Location"))

	w = e.do(http.MethodGet, "/v1/auth/google/callback?code=abc&state=xyz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "abc", e.auth.googleCode)
	require.Equal(t, "g-at", decode(t, w)["accessToken"])

	w = e.do(http.MethodGet, "/v1/auth/google/callback?error=access_denied", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "BAD_CREDENTIALS", decode(t, w)["error"])
}

/* ──────────────────────────── appointments ──────────────────────────── */

func TestBook_CustomerOnly(t *testing.T) {
	e := newEnv(t, nil)
	in := map[string]string{"service": "haircut", "date": "2026-11-01T10:00:00Z"}

	uid, _, tok := e.token(t, model.RoleCustomer)
	w := e.do(http.MethodPost, "/v1/appointments", tok, in)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	require.Equal(t, uid.String(), body["customerId"])
	require.Equal(t, "PENDING", body["status"])

	_, _, stylist := e.token(t, model.RoleStylist)
	w = e.do(http.MethodPost, "/v1/appointments", stylist, in)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "Forbidden", decode(t, w)["message"])
}

func TestListAll_StaffOnly(t *testing.T) {
	e := newEnv(t, nil)

	_, _, cust := e.token(t, model.RoleCustomer)
	w := e.do(http.MethodGet, "/v1/appointments/all", cust, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	_, _, admin := e.token(t, model.RoleAdmin)
	w = e.do(http.MethodGet, "/v1/appointments/all?status=PENDING", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "PENDING", e.appts.lastStatus)
	require.JSONEq(t, "[]", w.Body.String())
}

func TestReadsAreStateless_MutationsAreNot(t *testing.T) {
	e := newEnv(t, nil)
	_, sid, tok := e.token(t, model.RoleCustomer)
	delete(e.live, sid)

	w := e.do(http.MethodGet, "/v1/appointments", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodPost, "/v1/appointments/"+uuid.NewString()+"/cancel", tok, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Session not found", decode(t, w)["message"])
}

func TestGetAppointment_NotFound(t *testing.T) {
	e := newEnv(t, nil)
	_, _, tok := e.token(t, model.RoleCustomer)
	w := e.do(http.MethodGet, "/v1/appointments/"+uuid.NewString(), tok, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "NOT_FOUND", decode(t, w)["error"])
}

func TestConfirm_Stylist(t *testing.T) {
	e := newEnv(t, nil)
	uid, _, tok := e.token(t, model.RoleStylist)
	id := uuid.NewString()

	w := e.do(http.MethodPost, "/v1/appointments/"+id+"/confirm", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Equal(t, "CONFIRMED", body["status"])
	require.Equal(t, uid.String(), body["stylistId"])

	_, _, cust := e.token(t, model.RoleCustomer)
	w = e.do(http.MethodPost, "/v1/appointments/"+id+"/confirm", cust, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

/* ─────────────────────────────── infra ─────────────────────────────── */

func TestHealthz(t *testing.T) {
	w := newEnv(t, healthStub{}).do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", decode(t, w)["status"])

	w = newEnv(t, healthStub{err: errors.New("redis down")}).do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NotContains(t, w.Body.String(), "redis down")
}

func TestMetricsEndpoint(t *testing.T) {
	w := newEnv(t, nil).do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}
