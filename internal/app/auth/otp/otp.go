package otp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"time"

	customErrors "github.com/Miraines/gentlemale/backend/internal/domain/auth/errors"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	Period = 300
	Digits = otp.DigitsSix
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Generator issues six digit one-time codes for email verification. Each call
// derives a fresh TOTP key from the shared secret, the address and a random
// nonce, so two registrations in the same step never share a code.
type Generator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewGenerator(secret string, ttl time.Duration) *Generator {
	return &Generator{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns the code and the moment it stops being accepted.
func (g *Generator) Generate(email string) (string, time.Time, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", time.Time{}, customErrors.WrapInternal(err, "otp nonce")
	}

	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(email))
	mac.Write(nonce)
	key := b32.EncodeToString(mac.Sum(nil))

	now := g.now()
	code, err := totp.GenerateCodeCustom(key, now, totp.ValidateOpts{
		Period:    Period,
		Digits:    Digits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", time.Time{}, customErrors.WrapInternal(err, "otp generate")
	}
	return code, now.Add(g.ttl), nil
}

// Check validates a submitted code against the stored one. Expiry wins over
// a matching code.
func Check(stored *string, expiresAt *time.Time, submitted string, now time.Time) error {
	if stored == nil || *stored == "" {
		return customErrors.ErrInvalidOTP
	}
	if expiresAt == nil || now.After(*expiresAt) {
		return customErrors.ErrOTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(*stored), []byte(submitted)) != 1 {
		return customErrors.ErrInvalidOTP
	}
	return nil
}
