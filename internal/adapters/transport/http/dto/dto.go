package dto

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type RegisterDTO struct {
	Email    string  `json:"email"    validate:"required,email,max=320"`
	// Password's lower bound is PASSWORD_MIN_LENGTH, checked by the service.
	Password string  `json:"password" validate:"required,max=128"`
	Name     *string `json:"name"     validate:"omitnil,min=1,max=100"`
	Phone    *string `json:"phone"    validate:"omitnil,min=10,max=15"`
}

type VerifyDTO struct {
	Email string `json:"email" validate:"required,email,max=320"`
	OTP   string `json:"otp"   validate:"required,len=6,numeric"`
}

type LoginDTO struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshDTO struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
	SessionID    string `json:"sessionId"    validate:"required"`
}

// LogoutDTO may name a session other than the caller's current one.
type LogoutDTO struct {
	SessionID string `json:"sessionId"`
}

type CreateAppointmentDTO struct {
	StylistID *string `json:"stylistId" validate:"omitempty,uuid"`
	Service   string  `json:"service"   validate:"required,min=1,max=100"`
	Date      string  `json:"date"      validate:"required,rfc3339"`
	Notes     *string `json:"notes"     validate:"omitempty,max=500"`
}

// NewValidator returns a validator with the project's custom rules registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("rfc3339", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.RFC3339, fl.Field().String())
		return err == nil
	})
	return v
}
