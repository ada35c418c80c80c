package jwt

import (
	"errors"
	"time"

	customErrors "github.com/Miraines/gentlemale/backend/internal/domain/auth/errors"
	jwt2 "github.com/Miraines/gentlemale/backend/internal/domain/auth/jwt"
	"github.com/Miraines/gentlemale/backend/internal/domain/auth/model"
	"github.com/Miraines/gentlemale/backend/internal/infra/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const leeway = 30 * time.Second

type JwtUtilImpl struct {
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	accessTTL time.Duration
	issuer    string
	audience  string
	now       func() time.Time
}

// NewJWTUtil signs with HS512 over JWT_PRIVATE_KEY, or with EdDSA when a
// public key is configured as well (both PEM encoded).
func NewJWTUtil(cfg *config.Config) (*JwtUtilImpl, error) {
	j := &JwtUtilImpl{
		accessTTL: cfg.AccessTokenTTL,
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		now:       time.Now,
	}

	if cfg.JWTPublicKey == "" {
		if cfg.JWTPrivateKey == "" {
			return nil, customErrors.WrapInternal(errors.New("empty secret"), "jwt key")
		}
		j.method = jwt.SigningMethodHS512
		j.signKey = []byte(cfg.JWTPrivateKey)
		j.verifyKey = j.signKey
		return j, nil
	}

	privKey, err := jwt.ParseEdPrivateKeyFromPEM([]byte(cfg.JWTPrivateKey))
	if err != nil {
		return nil, customErrors.WrapInternal(err, "parse private key")
	}
	pubKey, err := jwt.ParseEdPublicKeyFromPEM([]byte(cfg.JWTPublicKey))
	if err != nil {
		return nil, customErrors.WrapInternal(err, "parse public key")
	}
	j.method = jwt.SigningMethodEdDSA
	j.signKey = privKey
	j.verifyKey = pubKey
	return j, nil
}

func (j *JwtUtilImpl) GenerateAccessToken(userID uuid.UUID, role model.Role, sessionID string) (string, time.Time, error) {
	now := j.now()

	claims := jwt2.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    j.issuer,
			Audience:  jwt.ClaimStrings{j.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTTL)),
			ID:        sessionID,
		},
		Role: role,
	}

	signed, err := jwt.NewWithClaims(j.method, claims).SignedString(j.signKey)
	if err != nil {
		return "", time.Time{}, customErrors.WrapInternal(err, "sign access token")
	}

	return signed, claims.ExpiresAt.Time, nil
}

func (j *JwtUtilImpl) ValidateAccessToken(raw string) (jwt2.AccessClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt2.AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		return j.verifyKey, nil
	},
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(j.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil || !token.Valid {
		return jwt2.AccessClaims{}, customErrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt2.AccessClaims)
	if !ok {
		return jwt2.AccessClaims{}, customErrors.WrapInternal(
			errors.New("claims not AccessClaims"), "ValidateAccessToken",
		)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil || !claims.Role.Valid() {
		return jwt2.AccessClaims{}, customErrors.ErrInvalidToken
	}

	return *claims, nil
}
