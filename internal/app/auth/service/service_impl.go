package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/http/dto"
	"github.com/Miraines/gentlemale/backend/internal/app/auth/otp"
	"github.com/Miraines/gentlemale/backend/internal/app/auth/session"
	customErrors "github.com/Miraines/gentlemale/backend/internal/domain/auth/errors"
	"github.com/Miraines/gentlemale/backend/internal/domain/auth/jwt"
	"github.com/Miraines/gentlemale/backend/internal/domain/auth/model"
	repo "github.com/Miraines/gentlemale/backend/internal/domain/auth/repo"
	"github.com/Miraines/gentlemale/backend/internal/domain/notify"
	"github.com/Miraines/gentlemale/backend/internal/infra/config"
	logx "github.com/Miraines/gentlemale/backend/internal/infra/log"
	"github.com/Miraines/gentlemale/backend/internal/infra/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	scopeLogin  = "login"
	scopeVerify = "verify"
	stateTTL    = 10 * time.Minute

	defaultPasswordMinLength = 6
)

type Hasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) (bool, error)
}

type OTPGenerator interface {
	Generate(email string) (code string, expiresAt time.Time, err error)
}

type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (model.OAuthProfile, error)
}

type Service interface {
	Register(context.Context, dto.RegisterDTO) (model.RegisteredUser, error)
	Verify(context.Context, dto.VerifyDTO) error
	Login(context.Context, dto.LoginDTO, model.ClientMeta) (model.TokenPair, error)
	Refresh(context.Context, dto.RefreshDTO) (model.TokenPair, error)
	Logout(ctx context.Context, sessionID string) error
	Me(context.Context, model.Identity) (model.User, error)
	ListSessions(context.Context, model.Identity) ([]model.Session, error)
	RevokeSession(ctx context.Context, id model.Identity, sessionID string) error
	GoogleAuthURL(context.Context) (string, error)
	GoogleLogin(ctx context.Context, code, state string, meta model.ClientMeta) (model.TokenPair, error)
}

// Deps groups the collaborators of the auth service. Limiter, States,
// Google and Metrics may be nil.
type Deps struct {
	Users    repo.UserRepo
	Sessions *session.Manager
	JWT      jwt.JWTUtil
	Hasher   Hasher
	OTP      OTPGenerator
	Mailer   notify.Sender
	Limiter  repo.AttemptLimiter
	States   repo.StateStore
	Google   OAuthProvider
	Config   *config.Config
	Validate *validator.Validate
	Log      *zap.Logger
	Metrics  *metrics.Auth
}

type authService struct {
	Deps
	now func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func New(d Deps) Service {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &authService{Deps: d, now: time.Now}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (a *authService) Register(ctx context.Context, in dto.RegisterDTO) (res model.RegisteredUser, err error) {
	defer func() { a.Metrics.Observe("register", err) }()

	in.Email = normalizeEmail(in.Email)
	if err := a.Validate.Struct(in); err != nil {
		return model.RegisteredUser{}, customErrors.NewInvalidArgument(err.Error())
	}
	if n := a.passwordMinLength(); utf8.RuneCountInString(in.Password) < n {
		return model.RegisteredUser{}, customErrors.NewInvalidArgument(
			fmt.Sprintf("password must be at least %d characters", n))
	}

	existing, err := a.Users.GetUserByEmail(ctx, in.Email)
	found := true
	switch {
	case customErrors.IsNotFound(err):
		found = false
	case err != nil:
		return model.RegisteredUser{}, customErrors.WrapInternal(err, "Register")
	case existing.EmailVerified:
		return model.RegisteredUser{}, customErrors.ErrUserExists
	}

	passwordHash, err := a.Hasher.Hash(in.Password)
	if err != nil {
		return model.RegisteredUser{}, customErrors.WrapInternal(err, "Register")
	}
	code, expiresAt, err := a.OTP.Generate(in.Email)
	if err != nil {
		return model.RegisteredUser{}, customErrors.WrapInternal(err, "Register")
	}

	user := existing
	if found {
		user.Name = in.Name
		user.Phone = in.Phone
		user.OTP = &code
		user.OTPExpiresAt = &expiresAt
		cred := model.Credential{UserID: user.ID, PasswordHash: passwordHash}
		if err := a.Users.UpdateUser(ctx, user, &cred); err != nil {
			return model.RegisteredUser{}, customErrors.WrapInternal(err, "Register")
		}
	} else {
		user = model.User{
			ID:           uuid.New(),
			Email:        in.Email,
			Name:         in.Name,
			Phone:        in.Phone,
			OTP:          &code,
			OTPExpiresAt: &expiresAt,
			Role:         model.RoleCustomer,
		}
		cred := model.Credential{UserID: user.ID, PasswordHash: passwordHash}
		if _, err := a.Users.CreateUser(ctx, user, &cred); err != nil {
			if customErrors.IsUserExists(err) {
				return model.RegisteredUser{}, customErrors.ErrUserExists
			}
			return model.RegisteredUser{}, customErrors.WrapInternal(err, "Register")
		}
	}

	a.sendOTP(ctx, user.Email, code)
	a.Log.Info("registration pending verification", logx.Email(user.Email), zap.Bool("resend", found))

	return model.RegisteredUser{ID: user.ID, Email: user.Email}, nil
}

// sendOTP never fails registration; the user can register again to resend.
func (a *authService) sendOTP(ctx context.Context, email, code string) {
	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
		code, int(a.Config.OTPTTL.Minutes()))
	if err := a.Mailer.SendEmail(ctx, body, email, "Verify your email"); err != nil {
		a.Log.Warn("otp email not sent", logx.Email(email), zap.Error(err))
	}
}

func (a *authService) Verify(ctx context.Context, in dto.VerifyDTO) (err error) {
	defer func() { a.Metrics.Observe("verify", err) }()

	in.Email = normalizeEmail(in.Email)
	if err := a.Validate.Struct(in); err != nil {
		return customErrors.NewInvalidArgument(err.Error())
	}
	if err := a.guard(ctx, scopeVerify, in.Email); err != nil {
		return err
	}

	user, err := a.Users.GetUserByEmail(ctx, in.Email)
	switch {
	case customErrors.IsNotFound(err):
		return customErrors.ErrUserNotFound
	case err != nil:
		return customErrors.WrapInternal(err, "Verify")
	}

	if err := otp.Check(user.OTP, user.OTPExpiresAt, in.OTP, a.now()); err != nil {
		return err
	}

	user.EmailVerified = true
	user.OTP = nil
	user.OTPExpiresAt = nil
	if err := a.Users.UpdateUser(ctx, user, nil); err != nil {
		return customErrors.WrapInternal(err, "Verify")
	}
	a.release(ctx, scopeVerify, in.Email)
	a.Log.Info("email verified", logx.Email(in.Email))
	return nil
}

func (a *authService) Login(ctx context.Context, in dto.LoginDTO, meta model.ClientMeta) (pair model.TokenPair, err error) {
	defer func() { a.Metrics.Observe("login", err) }()

	in.Email = normalizeEmail(in.Email)
	if err := a.Validate.Struct(in); err != nil {
		return model.TokenPair{}, customErrors.NewInvalidArgument(err.Error())
	}
	if err := a.guard(ctx, scopeLogin, in.Email); err != nil {
		return model.TokenPair{}, err
	}

	hash := a.dummy()
	usable := false

	user, err := a.Users.GetUserByEmail(ctx, in.Email)
	switch {
	case customErrors.IsNotFound(err):
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "Login")
	default:
		cred, err := a.Users.GetCredential(ctx, user.ID)
		switch {
		case customErrors.IsNotFound(err):
		case err != nil:
			return model.TokenPair{}, customErrors.WrapInternal(err, "Login")
		default:
			hash = cred.PasswordHash
			usable = true
		}
	}

	// One argon2 run on every path keeps response times alike.
	ok, verr := a.Hasher.Verify(hash, in.Password)

	switch {
	case !usable:
		return model.TokenPair{}, customErrors.ErrBadCredentials
	case !user.EmailVerified:
		return model.TokenPair{}, customErrors.ErrEmailNotVerified
	case verr != nil:
		return model.TokenPair{}, customErrors.WrapInternal(verr, "Login")
	case !ok:
		return model.TokenPair{}, customErrors.ErrBadCredentials
	}

	a.release(ctx, scopeLogin, in.Email)
	return a.issue(ctx, user, meta)
}

func (a *authService) issue(ctx context.Context, user model.User, meta model.ClientMeta) (model.TokenPair, error) {
	s, secret, err := a.Sessions.Issue(ctx, user.ID, meta)
	if err != nil {
		return model.TokenPair{}, err
	}
	return a.pair(user, s, secret)
}

func (a *authService) pair(user model.User, s model.Session, secret string) (model.TokenPair, error) {
	at, atExp, err := a.JWT.GenerateAccessToken(user.ID, user.Role, s.ID.String())
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "GenerateAccessToken")
	}
	return model.TokenPair{
		AccessToken:  at,
		RefreshToken: secret,
		SessionID:    s.ID.String(),
		AccessTTL:    atExp.Sub(a.now()),
		UserID:       user.ID,
	}, nil
}

func (a *authService) Refresh(ctx context.Context, in dto.RefreshDTO) (pair model.TokenPair, err error) {
	defer func() { a.Metrics.Observe("refresh", err) }()

	if err := a.Validate.Struct(in); err != nil {
		return model.TokenPair{}, customErrors.NewInvalidArgument(err.Error())
	}

	s, secret, err := a.Sessions.Exchange(ctx, in.SessionID, in.RefreshToken)
	if err != nil {
		return model.TokenPair{}, err
	}

	user, err := a.Users.GetUserByID(ctx, s.UserID)
	switch {
	case customErrors.IsNotFound(err):
		return model.TokenPair{}, customErrors.ErrInvalidSession
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "Refresh")
	}
	return a.pair(user, s, secret)
}

func (a *authService) Logout(ctx context.Context, sessionID string) (err error) {
	defer func() { a.Metrics.Observe("logout", err) }()
	return a.Sessions.Delete(ctx, sessionID)
}

func (a *authService) Me(ctx context.Context, id model.Identity) (model.User, error) {
	user, err := a.Users.GetUserByID(ctx, id.ID)
	switch {
	case customErrors.IsNotFound(err):
		return model.User{}, customErrors.ErrUserNotFound
	case err != nil:
		return model.User{}, customErrors.WrapInternal(err, "Me")
	}
	return user, nil
}

func (a *authService) ListSessions(ctx context.Context, id model.Identity) ([]model.Session, error) {
	return a.Sessions.ListForUser(ctx, id.ID)
}

func (a *authService) RevokeSession(ctx context.Context, id model.Identity, sessionID string) error {
	return a.Sessions.DeleteForUser(ctx, id.ID, sessionID)
}

func (a *authService) GoogleAuthURL(ctx context.Context) (string, error) {
	if a.Google == nil || a.States == nil {
		return "", customErrors.ErrNotFound
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", customErrors.WrapInternal(err, "oauth state")
	}
	state := hex.EncodeToString(b)
	if err := a.States.Save(ctx, state, stateTTL); err != nil {
		return "", customErrors.WrapInternal(err, "oauth state")
	}
	return a.Google.AuthURL(state), nil
}

func (a *authService) GoogleLogin(ctx context.Context, code, state string, meta model.ClientMeta) (pair model.TokenPair, err error) {
	defer func() { a.Metrics.Observe("google_login", err) }()

	if a.Google == nil || a.States == nil {
		return model.TokenPair{}, customErrors.ErrNotFound
	}
	if code == "" || state == "" {
		return model.TokenPair{}, customErrors.NewInvalidArgument("code and state are required")
	}
	ok, err := a.States.Consume(ctx, state)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "oauth state")
	}
	if !ok {
		return model.TokenPair{}, customErrors.NewInvalidArgument("unknown or reused oauth state")
	}

	profile, err := a.Google.Exchange(ctx, code)
	if err != nil {
		return model.TokenPair{}, customErrors.ErrBadCredentials
	}
	email := normalizeEmail(profile.Email)
	if email == "" {
		return model.TokenPair{}, customErrors.ErrBadCredentials
	}
	// An address Google has not verified proves nothing about who owns it.
	if !profile.EmailVerified {
		a.Log.Warn("google login with unverified email", logx.Email(email))
		return model.TokenPair{}, customErrors.ErrBadCredentials
	}

	user, err := a.Users.GetUserByEmail(ctx, email)
	switch {
	case customErrors.IsNotFound(err):
		user = model.User{
			ID:            uuid.New(),
			Email:         email,
			EmailVerified: true,
			Role:          model.RoleCustomer,
		}
		if profile.Name != "" {
			user.Name = &profile.Name
		}
		if _, err := a.Users.CreateUser(ctx, user, nil); err != nil {
			if !customErrors.IsUserExists(err) {
				return model.TokenPair{}, customErrors.WrapInternal(err, "GoogleLogin")
			}
			// Lost a race with a concurrent first login; use the winner's row.
			if user, err = a.Users.GetUserByEmail(ctx, email); err != nil {
				return model.TokenPair{}, customErrors.WrapInternal(err, "GoogleLogin")
			}
		}
		a.Log.Info("user created from google", logx.Email(email))
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "GoogleLogin")
	case !user.EmailVerified:
		user.EmailVerified = true
		user.OTP = nil
		user.OTPExpiresAt = nil
		if err := a.Users.UpdateUser(ctx, user, nil); err != nil {
			return model.TokenPair{}, customErrors.WrapInternal(err, "GoogleLogin")
		}
	}

	return a.issue(ctx, user, meta)
}

// guard counts an attempt. A limiter outage lets the request through.
func (a *authService) guard(ctx context.Context, scope, email string) error {
	if a.Limiter == nil {
		return nil
	}
	err := a.Limiter.Hit(ctx, scope, email)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, customErrors.ErrRateLimited):
		a.Log.Warn("attempt limit reached", zap.String("scope", scope), logx.Email(email))
		return customErrors.ErrRateLimited
	default:
		a.Log.Warn("attempt limiter unavailable", zap.String("scope", scope), zap.Error(err))
		return nil
	}
}

func (a *authService) release(ctx context.Context, scope, email string) {
	if a.Limiter == nil {
		return
	}
	if err := a.Limiter.Reset(ctx, scope, email); err != nil {
		a.Log.Warn("attempt limiter reset failed", zap.String("scope", scope), zap.Error(err))
	}
}

func (a *authService) passwordMinLength() int {
	if a.Config == nil || a.Config.PasswordMinLength < 1 {
		return defaultPasswordMinLength
	}
	return a.Config.PasswordMinLength
}

func (a *authService) dummy() string {
	a.dummyOnce.Do(func() {
		h, err := a.Hasher.Hash("not-a-real-password")
		if err != nil {
			a.Log.Error("dummy hash", zap.Error(err))
			return
		}
		a.dummyHash = h
	})
	return a.dummyHash
}
