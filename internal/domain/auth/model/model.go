package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleStylist  Role = "STYLIST"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleStylist, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email         string     `gorm:"size:320;uniqueIndex;not null"`
	Name          *string    `gorm:"size:100"`
	Phone         *string    `gorm:"size:20"`
	EmailVerified bool       `gorm:"not null;default:false"`
	OTP           *string    `gorm:"column:otp;size:16"`
	OTPExpiresAt  *time.Time `gorm:"column:otp_expires_at"`
	Role          Role       `gorm:"size:16;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Credential holds the password hash of exactly one user.
type Credential struct {
	UserID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session backs one refresh token. Its ID doubles as the access token jti.
type Session struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID           uuid.UUID `gorm:"type:uuid;index;not null"`
	RefreshTokenHash string    `gorm:"not null"`
	IP               *string   `gorm:"size:64"`
	UserAgent        *string   `gorm:"size:512"`
	CreatedAt        time.Time `gorm:"index"`
	ExpiresAt        time.Time `gorm:"not null"`
}

func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Identity is what the authorization middleware attaches to a request.
// It is only ever built from verified access-token claims.
type Identity struct {
	ID        uuid.UUID
	Role      Role
	SessionID string
}

// ClientMeta describes where a login came from.
type ClientMeta struct {
	IP        string
	UserAgent string
}

type RegisteredUser struct {
	ID    uuid.UUID
	Email string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
	AccessTTL    time.Duration
	UserID       uuid.UUID
}

// OAuthProfile is what an identity provider tells us about the user.
type OAuthProfile struct {
	Email         string
	Name          string
	EmailVerified bool
}
