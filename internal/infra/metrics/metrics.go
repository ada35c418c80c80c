package metrics

import (
	"strings"

	customErrors "github.com/Miraines/gentlemale/backend/internal/domain/auth/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Auth counts auth operations by outcome. A nil *Auth records nothing.
type Auth struct {
	events *prometheus.CounterVec
}

func NewAuth(reg prometheus.Registerer) *Auth {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gentlemale",
		Subsystem: "auth",
		Name:      "operations_total",
		Help:      "Auth operations by name and outcome.",
	}, []string{"op", "outcome"})
	reg.MustRegister(events)
	return &Auth{events: events}
}

// Observe records err's kind, or "ok" for nil.
func (a *Auth) Observe(op string, err error) {
	if a == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(string(customErrors.KindOf(err)))
	}
	a.events.WithLabelValues(op, outcome).Inc()
}
