package service

import (
	"context"
	"time"

	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/http/dto"
	"github.com/Miraines/gentlemale/backend/internal/domain/appointment"
	customErrors "github.com/Miraines/gentlemale/backend/internal/domain/auth/errors"
	"github.com/Miraines/gentlemale/backend/internal/domain/auth/model"
	repo "github.com/Miraines/gentlemale/backend/internal/domain/auth/repo"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	Book(context.Context, model.Identity, dto.CreateAppointmentDTO) (appointment.Appointment, error)
	ListMine(context.Context, model.Identity) ([]appointment.Appointment, error)
	ListAll(ctx context.Context, id model.Identity, status string) ([]appointment.Appointment, error)
	Get(ctx context.Context, id model.Identity, appointmentID string) (appointment.Appointment, error)
	Confirm(ctx context.Context, id model.Identity, appointmentID string) (appointment.Appointment, error)
	Cancel(ctx context.Context, id model.Identity, appointmentID string) (appointment.Appointment, error)
}

type appointmentService struct {
	repo  appointment.Repo
	users repo.UserRepo
	v     *validator.Validate
	log   *zap.Logger
}

func New(r appointment.Repo, users repo.UserRepo, v *validator.Validate, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &appointmentService{repo: r, users: users, v: v, log: log}
}

func isStaff(r model.Role) bool {
	return r == model.RoleStylist || r == model.RoleAdmin
}

func (s *appointmentService) Book(ctx context.Context, id model.Identity, in dto.CreateAppointmentDTO) (appointment.Appointment, error) {
	if id.Role != model.RoleCustomer {
		return appointment.Appointment{}, customErrors.ErrForbidden
	}
	if err := s.v.Struct(in); err != nil {
		return appointment.Appointment{}, customErrors.NewInvalidArgument(err.Error())
	}

	a := appointment.Appointment{
		ID:         uuid.New(),
		CustomerID: id.ID,
		Service:    in.Service,
		Date:       in.Date,
		Notes:      in.Notes,
		Status:     appointment.StatusPending,
	}
	if in.StylistID != nil {
		stylistID := uuid.MustParse(*in.StylistID)
		u, err := s.users.GetUserByID(ctx, stylistID)
		switch {
		case customErrors.IsNotFound(err):
			return appointment.Appointment{}, customErrors.NewInvalidArgument("unknown stylist")
		case err != nil:
			return appointment.Appointment{}, customErrors.WrapInternal(err, "Book")
		case u.Role != model.RoleStylist:
			return appointment.Appointment{}, customErrors.NewInvalidArgument("not a stylist")
		}
		a.StylistID = &stylistID
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return appointment.Appointment{}, customErrors.WrapInternal(err, "Book")
	}
	s.log.Info("appointment booked", zap.String("appointment_id", a.ID.String()), zap.String("service", a.Service))
	return a, nil
}

func (s *appointmentService) ListMine(ctx context.Context, id model.Identity) ([]appointment.Appointment, error) {
	list, err := s.repo.ListByCustomer(ctx, id.ID)
	if err != nil {
		return nil, customErrors.WrapInternal(err, "ListMine")
	}
	return list, nil
}

func (s *appointmentService) ListAll(ctx context.Context, id model.Identity, status string) ([]appointment.Appointment, error) {
	if !isStaff(id.Role) {
		return nil, customErrors.ErrForbidden
	}
	st := appointment.Status(status)
	switch st {
	case "", appointment.StatusPending, appointment.StatusConfirmed, appointment.StatusCancelled:
	default:
		return nil, customErrors.NewInvalidArgument("unknown status " + status)
	}
	list, err := s.repo.ListAll(ctx, st)
	if err != nil {
		return nil, customErrors.WrapInternal(err, "ListAll")
	}
	return list, nil
}

// Get hides appointments a customer does not own behind NOT_FOUND.
func (s *appointmentService) Get(ctx context.Context, id model.Identity, appointmentID string) (appointment.Appointment, error) {
	a, err := s.load(ctx, appointmentID)
	if err != nil {
		return appointment.Appointment{}, err
	}
	if !isStaff(id.Role) && a.CustomerID != id.ID {
		return appointment.Appointment{}, customErrors.ErrNotFound
	}
	return a, nil
}

func (s *appointmentService) Confirm(ctx context.Context, id model.Identity, appointmentID string) (appointment.Appointment, error) {
	if !isStaff(id.Role) {
		return appointment.Appointment{}, customErrors.ErrForbidden
	}
	a, err := s.load(ctx, appointmentID)
	if err != nil {
		return appointment.Appointment{}, err
	}

	var assign *uuid.UUID
	if id.Role == model.RoleStylist {
		if a.StylistID != nil && *a.StylistID != id.ID {
			return appointment.Appointment{}, customErrors.ErrForbidden
		}
		assign = &id.ID
	}

	out, err := s.repo.UpdateStatus(ctx, a.ID, appointment.StatusConfirmed, assign, appointment.StatusPending)
	if err != nil {
		return appointment.Appointment{}, mapRepoErr(err, "Confirm")
	}
	s.log.Info("appointment confirmed", zap.String("appointment_id", a.ID.String()))
	return out, nil
}

func (s *appointmentService) Cancel(ctx context.Context, id model.Identity, appointmentID string) (appointment.Appointment, error) {
	a, err := s.load(ctx, appointmentID)
	if err != nil {
		return appointment.Appointment{}, err
	}
	if id.Role != model.RoleAdmin && a.CustomerID != id.ID {
		return appointment.Appointment{}, customErrors.ErrForbidden
	}

	out, err := s.repo.UpdateStatus(ctx, a.ID, appointment.StatusCancelled, nil,
		appointment.StatusPending, appointment.StatusConfirmed)
	if err != nil {
		return appointment.Appointment{}, mapRepoErr(err, "Cancel")
	}
	s.log.Info("appointment cancelled",
		zap.String("appointment_id", a.ID.String()),
		zap.Duration("age", time.Since(a.CreatedAt)),
	)
	return out, nil
}

func (s *appointmentService) load(ctx context.Context, raw string) (appointment.Appointment, error) {
	aid, err := uuid.Parse(raw)
	if err != nil {
		return appointment.Appointment{}, customErrors.ErrNotFound
	}
	a, err := s.repo.Get(ctx, aid)
	if err != nil {
		return appointment.Appointment{}, mapRepoErr(err, "Get")
	}
	return a, nil
}

func mapRepoErr(err error, op string) error {
	switch customErrors.KindOf(err) {
	case customErrors.KindNotFound, customErrors.KindConflict:
		return err
	}
	return customErrors.WrapInternal(err, op)
}
