package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// Appointment stores what the customer asked for. Date is kept as the
// RFC 3339 string the client sent; there is no slot allocation.
type Appointment struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CustomerID uuid.UUID  `gorm:"type:uuid;index;not null"`
	StylistID  *uuid.UUID `gorm:"type:uuid;index"`
	Service    string     `gorm:"size:100;not null"`
	Date       string     `gorm:"size:40;not null"`
	Notes      *string    `gorm:"size:500"`
	Status     Status     `gorm:"size:16;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Repo interface {
	Create(ctx context.Context, a Appointment) error
	Get(ctx context.Context, id uuid.UUID) (Appointment, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]Appointment, error)
	ListAll(ctx context.Context, status Status) ([]Appointment, error)
	// UpdateStatus moves id from one of the from statuses to to; ErrConflict
	// when the row is in any other status.
	UpdateStatus(ctx context.Context, id uuid.UUID, to Status, stylistID *uuid.UUID, from ...Status) (Appointment, error)
}
