package repo

import (
	"context"
	"time"

	"github.com/Miraines/gentlemale/backend/internal/domain/auth/model"
	"github.com/google/uuid"
)

type UserRepo interface {
	// CreateUser inserts u and, when cred is non-nil, its credential in one transaction.
	CreateUser(ctx context.Context, u model.User, cred *model.Credential) (uuid.UUID, error)

	GetUserByEmail(ctx context.Context, email string) (model.User, error)

	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)

	// UpdateUser saves u and, when cred is non-nil, upserts its credential.
	UpdateUser(ctx context.Context, u model.User, cred *model.Credential) error

	GetCredential(ctx context.Context, userID uuid.UUID) (model.Credential, error)
}

type SessionRepo interface {
	// CreateCapped inserts s after deleting the owner's oldest sessions so that
	// at most max remain, atomically.
	CreateCapped(ctx context.Context, s model.Session, max int) error

	GetSession(ctx context.Context, id uuid.UUID) (model.Session, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Session, error)

	// SwapRefreshHash replaces oldHash with newHash; ErrInvalidSession when
	// the stored hash is no longer oldHash.
	SwapRefreshHash(ctx context.Context, id uuid.UUID, oldHash, newHash string) error

	DeleteSession(ctx context.Context, id uuid.UUID) error

	DeleteUserSession(ctx context.Context, userID, id uuid.UUID) (bool, error)
}

// AttemptLimiter counts attempts per key within a fixed window.
type AttemptLimiter interface {
	Hit(ctx context.Context, scope, key string) error
	Reset(ctx context.Context, scope, key string) error
}

// StateStore keeps single-use OAuth state values.
type StateStore interface {
	Save(ctx context.Context, state string, ttl time.Duration) error
	Consume(ctx context.Context, state string) (bool, error)
}
