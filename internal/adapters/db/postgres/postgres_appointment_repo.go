package postgres

import (
	"context"
	"errors"

	"github.com/Miraines/gentlemale/backend/internal/domain/appointment"
	customErrors "github.com/Miraines/gentlemale/backend/internal/domain/auth/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresAppointmentRepo struct {
	db *gorm.DB
}

func NewPostgresAppointmentRepo(db *gorm.DB) *PostgresAppointmentRepo {
	return &PostgresAppointmentRepo{db: db}
}

func (p *PostgresAppointmentRepo) Create(ctx context.Context, a appointment.Appointment) error {
	if err := p.db.WithContext(ctx).Create(&a).Error; err != nil {
		return customErrors.WrapInternal(err, "CreateAppointment")
	}
	return nil
}

func (p *PostgresAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (appointment.Appointment, error) {
	return get(p.db.WithContext(ctx), id)
}

func get(db *gorm.DB, id uuid.UUID) (appointment.Appointment, error) {
	var a appointment.Appointment
	res := db.Where("id = ?", id).First(&a)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return appointment.Appointment{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return appointment.Appointment{}, customErrors.WrapInternal(err, "GetAppointment")
	}
	return a, nil
}

func (p *PostgresAppointmentRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]appointment.Appointment, error) {
	var out []appointment.Appointment
	if err := p.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("date ASC").
		Find(&out).Error; err != nil {
		return nil, customErrors.WrapInternal(err, "ListByCustomer")
	}
	return out, nil
}

func (p *PostgresAppointmentRepo) ListAll(ctx context.Context, status appointment.Status) ([]appointment.Appointment, error) {
	q := p.db.WithContext(ctx).Order("date ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []appointment.Appointment
	if err := q.Find(&out).Error; err != nil {
		return nil, customErrors.WrapInternal(err, "ListAll")
	}
	return out, nil
}

// UpdateStatus is a guarded transition: the row only changes while its status
// is one of from.
func (p *PostgresAppointmentRepo) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	to appointment.Status,
	stylistID *uuid.UUID,
	from ...appointment.Status,
) (appointment.Appointment, error) {
	var out appointment.Appointment
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := get(tx, id); err != nil {
			return err
		}

		updates := map[string]interface{}{"status": to}
		if stylistID != nil {
			updates["stylist_id"] = *stylistID
		}
		res := tx.Model(&appointment.Appointment{}).
			Where("id = ? AND status IN ?", id, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return customErrors.ErrConflict
		}

		var err error
		out, err = get(tx, id)
		return err
	})
	if err != nil {
		switch customErrors.KindOf(err) {
		case customErrors.KindNotFound, customErrors.KindConflict:
			return appointment.Appointment{}, err
		}
		return appointment.Appointment{}, customErrors.WrapInternal(err, "UpdateStatus")
	}
	return out, nil
}
