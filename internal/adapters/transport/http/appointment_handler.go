package http

import (
	"net/http"
	"time"

	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/http/dto"
	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/http/errmap"
	apptsvc "github.com/Miraines/gentlemale/backend/internal/app/appointment/service"
	"github.com/Miraines/gentlemale/backend/internal/domain/appointment"
	"github.com/gin-gonic/gin"
)

type AppointmentHandler struct {
	svc apptsvc.Service
}

func NewAppointmentHandler(svc apptsvc.Service) *AppointmentHandler {
	return &AppointmentHandler{svc: svc}
}

type appointmentResponse struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	StylistID  *string   `json:"stylistId,omitempty"`
	Service    string    `json:"service"`
	Date       string    `json:"date"`
	Notes      *string   `json:"notes,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toResponse(a appointment.Appointment) appointmentResponse {
	r := appointmentResponse{
		ID:         a.ID.String(),
		CustomerID: a.CustomerID.String(),
		Service:    a.Service,
		Date:       a.Date,
		Notes:      a.Notes,
		Status:     string(a.Status),
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
	if a.StylistID != nil {
		s := a.StylistID.String()
		r.StylistID = &s
	}
	return r
}

func toList(list []appointment.Appointment) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toResponse(a))
	}
	return out
}

func (h *AppointmentHandler) Book(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var body dto.CreateAppointmentDTO
	if !bind(c, &body) {
		return
	}
	a, err := h.svc.Book(c.Request.Context(), id, body)
	if err != nil {
		errmap.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(a))
}

func (h *AppointmentHandler) ListMine(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	list, err := h.svc.ListMine(c.Request.Context(), id)
	if err != nil {
		errmap.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toList(list))
}

func (h *AppointmentHandler) ListAll(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	list, err := h.svc.ListAll(c.Request.Context(), id, c.Query("status"))
	if err != nil {
		errmap.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toList(list))
}

func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	a, err := h.svc.Get(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		errmap.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(a))
}

func (h *AppointmentHandler) Confirm(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	a, err := h.svc.Confirm(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		errmap.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(a))
}

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	a, err := h.svc.Cancel(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		errmap.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(a))
}
