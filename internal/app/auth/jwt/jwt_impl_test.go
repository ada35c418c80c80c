package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	customErrors "github.com/Miraines/gentlemale/backend/internal/domain/auth/errors"
	jwt2 "github.com/Miraines/gentlemale/backend/internal/domain/auth/jwt"
	"github.com/Miraines/gentlemale/backend/internal/domain/auth/model"
	"github.com/Miraines/gentlemale/backend/internal/infra/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func hmacConfig() *config.Config {
	return &config.Config{
		JWTPrivateKey:  "a-long-enough-test-secret-for-hs512",
		Issuer:         "gentlemale",
		Audience:       "gentlemale-web",
		AccessTokenTTL: 15 * time.Minute,
	}
}

func edConfig(t *testing.T) *config.Config {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)

	cfg := hmacConfig()
	cfg.JWTPrivateKey = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}))
	cfg.JWTPublicKey = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
	return cfg
}

func TestRoundTrip(t *testing.T) {
	for name, cfg := range map[string]*config.Config{"hs512": hmacConfig(), "eddsa": edConfig(t)} {
		t.Run(name, func(t *testing.T) {
			util, err := NewJWTUtil(cfg)
			require.NoError(t, err)

			uid := uuid.New()
			sid := uuid.NewString()
			tok, exp, err := util.GenerateAccessToken(uid, model.RoleStylist, sid)
			require.NoError(t, err)
			require.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)

			claims, err := util.ValidateAccessToken(tok)
			require.NoError(t, err)
			require.Equal(t, uid.String(), claims.Subject)
			require.Equal(t, model.RoleStylist, claims.Role)
			require.Equal(t, sid, claims.ID)
			require.NotNil(t, claims.NotBefore)
		})
	}
}

func TestRoundTrip_NoSession(t *testing.T) {
	util, err := NewJWTUtil(hmacConfig())
	require.NoError(t, err)

	tok, _, err := util.GenerateAccessToken(uuid.New(), model.RoleCustomer, "")
	require.NoError(t, err)

	claims, err := util.ValidateAccessToken(tok)
	require.NoError(t, err)
	require.Empty(t, claims.ID)
}

func TestValidate_WrongIssuerOrAudience(t *testing.T) {
	signer, err := NewJWTUtil(hmacConfig())
	require.NoError(t, err)
	tok, _, err := signer.GenerateAccessToken(uuid.New(), model.RoleCustomer, "")
	require.NoError(t, err)

	otherIss := hmacConfig()
	otherIss.Issuer = "someone-else"
	v1, err := NewJWTUtil(otherIss)
	require.NoError(t, err)
	_, err = v1.ValidateAccessToken(tok)
	require.ErrorIs(t, err, customErrors.ErrInvalidToken)

	otherAud := hmacConfig()
	otherAud.Audience = "mobile"
	v2, err := NewJWTUtil(otherAud)
	require.NoError(t, err)
	_, err = v2.ValidateAccessToken(tok)
	require.ErrorIs(t, err, customErrors.ErrInvalidToken)
}

func TestValidate_Expired(t *testing.T) {
	util, err := NewJWTUtil(hmacConfig())
	require.NoError(t, err)
	util.now = func() time.Time { return time.Now().Add(-time.Hour) }

	tok, _, err := util.GenerateAccessToken(uuid.New(), model.RoleCustomer, "")
	require.NoError(t, err)

	util.now = time.Now
	_, err = util.ValidateAccessToken(tok)
	require.ErrorIs(t, err, customErrors.ErrInvalidToken)
}

func TestValidate_AlgorithmMismatch(t *testing.T) {
	cfg := hmacConfig()
	util, err := NewJWTUtil(cfg)
	require.NoError(t, err)

	now := time.Now()
	claims := jwt2.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
		Role: model.RoleAdmin,
	}
	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTPrivateKey))
	require.NoError(t, err)
	_, err = util.ValidateAccessToken(hs256)
	require.ErrorIs(t, err, customErrors.ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = util.ValidateAccessToken(none)
	require.ErrorIs(t, err, customErrors.ErrInvalidToken)
}

func TestValidate_Garbage(t *testing.T) {
	util, err := NewJWTUtil(hmacConfig())
	require.NoError(t, err)
	_, err = util.ValidateAccessToken("not.a.jwt")
	require.ErrorIs(t, err, customErrors.ErrInvalidToken)
}

func TestNewJWTUtil_BadPEM(t *testing.T) {
	cfg := hmacConfig()
	cfg.JWTPublicKey = "garbage"
	_, err := NewJWTUtil(cfg)
	require.Error(t, err)
}
