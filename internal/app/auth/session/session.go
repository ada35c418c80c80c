package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	customErrors "github.com/Miraines/gentlemale/backend/internal/domain/auth/errors"
	"github.com/Miraines/gentlemale/backend/internal/domain/auth/model"
	repo "github.com/Miraines/gentlemale/backend/internal/domain/auth/repo"
	"github.com/google/uuid"
)

const secretBytes = 64

type Hasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) (bool, error)
}

// Manager owns the lifecycle of refresh sessions: issue, exchange, check and
// revoke. The raw refresh secret only ever leaves through Issue and Exchange.
type Manager struct {
	repo   repo.SessionRepo
	hasher Hasher
	ttl    time.Duration
	max    int
	now    func() time.Time
}

func NewManager(r repo.SessionRepo, h Hasher, ttl time.Duration, maxPerUser int) *Manager {
	return &Manager{repo: r, hasher: h, ttl: ttl, max: maxPerUser, now: time.Now}
}

// Issue creates a session for userID, evicting the oldest ones past the cap,
// and returns it together with the raw refresh secret.
func (m *Manager) Issue(ctx context.Context, userID uuid.UUID, meta model.ClientMeta) (model.Session, string, error) {
	secret, err := newSecret()
	if err != nil {
		return model.Session{}, "", err
	}
	hash, err := m.hasher.Hash(secret)
	if err != nil {
		return model.Session{}, "", customErrors.WrapInternal(err, "hash refresh")
	}

	now := m.now()
	s := model.Session{
		ID:               uuid.New(),
		UserID:           userID,
		RefreshTokenHash: hash,
		IP:               optional(meta.IP),
		UserAgent:        optional(meta.UserAgent),
		CreatedAt:        now,
		ExpiresAt:        now.Add(m.ttl),
	}
	if err := m.repo.CreateCapped(ctx, s, m.max); err != nil {
		return model.Session{}, "", customErrors.WrapInternal(err, "create session")
	}
	return s, secret, nil
}

// Exchange checks a presented refresh secret and rotates it. The session
// keeps its absolute expiry.
func (m *Manager) Exchange(ctx context.Context, rawID, secret string) (model.Session, string, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return model.Session{}, "", customErrors.ErrInvalidSession
	}

	s, err := m.repo.GetSession(ctx, id)
	switch {
	case customErrors.IsNotFound(err):
		return model.Session{}, "", customErrors.ErrInvalidSession
	case err != nil:
		return model.Session{}, "", customErrors.WrapInternal(err, "get session")
	}
	if s.RefreshTokenHash == "" {
		return model.Session{}, "", customErrors.ErrInvalidSession
	}

	ok, err := m.hasher.Verify(s.RefreshTokenHash, secret)
	if err != nil {
		return model.Session{}, "", customErrors.WrapInternal(err, "verify refresh")
	}
	if !ok || s.Expired(m.now()) {
		return model.Session{}, "", customErrors.ErrRefreshExpired
	}

	next, err := newSecret()
	if err != nil {
		return model.Session{}, "", err
	}
	nextHash, err := m.hasher.Hash(next)
	if err != nil {
		return model.Session{}, "", customErrors.WrapInternal(err, "hash refresh")
	}
	if err := m.repo.SwapRefreshHash(ctx, s.ID, s.RefreshTokenHash, nextHash); err != nil {
		if errors.Is(err, customErrors.ErrInvalidSession) {
			return model.Session{}, "", customErrors.ErrInvalidSession
		}
		return model.Session{}, "", customErrors.WrapInternal(err, "rotate refresh")
	}
	s.RefreshTokenHash = nextHash
	return s, next, nil
}

// Check is what the session-checked middleware runs for every request.
func (m *Manager) Check(ctx context.Context, rawID string, userID uuid.UUID) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return customErrors.ErrSessionNotFound
	}
	s, err := m.repo.GetSession(ctx, id)
	switch {
	case customErrors.IsNotFound(err):
		return customErrors.ErrSessionNotFound
	case err != nil:
		return customErrors.WrapInternal(err, "get session")
	}
	if s.UserID != userID {
		return customErrors.ErrSessionNotFound
	}
	if s.Expired(m.now()) {
		return customErrors.ErrSessionExpired
	}
	return nil
}

// Delete removes a session whether or not it exists.
func (m *Manager) Delete(ctx context.Context, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil
	}
	if err := m.repo.DeleteSession(ctx, id); err != nil {
		return customErrors.WrapInternal(err, "delete session")
	}
	return nil
}

func (m *Manager) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Session, error) {
	list, err := m.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, customErrors.WrapInternal(err, "list sessions")
	}
	return list, nil
}

// DeleteForUser revokes a session only when userID owns it.
func (m *Manager) DeleteForUser(ctx context.Context, userID uuid.UUID, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return customErrors.ErrInvalidSession
	}
	ok, err := m.repo.DeleteUserSession(ctx, userID, id)
	if err != nil {
		return customErrors.WrapInternal(err, "delete session")
	}
	if !ok {
		return customErrors.ErrInvalidSession
	}
	return nil
}

func newSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", customErrors.WrapInternal(err, "refresh secret")
	}
	return hex.EncodeToString(b), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
