package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/http/middleware"
	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/ratelimit"
	apptsvc "github.com/Miraines/gentlemale/backend/internal/app/appointment/service"
	authsvc "github.com/Miraines/gentlemale/backend/internal/app/auth/service"
	"github.com/Miraines/gentlemale/backend/internal/domain/auth/model"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type HealthChecker interface {
	Check(ctx context.Context) error
}

type RouterDeps struct {
	Auth           authsvc.Service
	Appointments   apptsvc.Service
	Authenticator  *middleware.Authenticator
	Limiter        *ratelimit.PerIP
	Health         HealthChecker
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	AllowCreds     bool
	Log            *zap.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(d.Log))
	if d.Limiter != nil {
		router.Use(middleware.RateLimitPerIP(d.Limiter))
	}
	if len(d.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: d.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders: []string{
				"Origin", "Content-Type", "Accept",
				"Authorization",
				"X-Requested-With",
			},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: d.AllowCreds,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", func(c *gin.Context) {
		if d.Health != nil {
			if err := d.Health.Check(c.Request.Context()); err != nil {
				d.Log.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
	})
	if d.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	authn := d.Authenticator
	v1 := router.Group("/v1")

	ah := NewAuthHandler(d.Auth)
	auth := v1.Group("/auth")
	auth.POST("/register", ah.Register)
	auth.POST("/verify", ah.Verify)
	auth.POST("/login", ah.Login)
	auth.POST("/refresh", ah.Refresh)
	auth.POST("/logout", authn.SessionChecked(), ah.Logout)
	auth.GET("/me", authn.SessionChecked(), ah.Me)
	auth.GET("/sessions", authn.SessionChecked(), ah.Sessions)
	auth.DELETE("/sessions/:id", authn.SessionChecked(), ah.RevokeSession)
	auth.GET("/google", ah.Google)
	auth.GET("/google/callback", ah.GoogleCallback)

	ph := NewAppointmentHandler(d.Appointments)
	appts := v1.Group("/appointments")
	appts.POST("", authn.SessionChecked(), middleware.RequireRole(model.RoleCustomer), ph.Book)
	appts.GET("", authn.Stateless(), ph.ListMine)
	appts.GET("/all", authn.Stateless(), middleware.RequireRole(model.RoleStylist, model.RoleAdmin), ph.ListAll)
	appts.GET("/:id", authn.Stateless(), ph.Get)
	appts.POST("/:id/confirm", authn.SessionChecked(), middleware.RequireRole(model.RoleStylist, model.RoleAdmin), ph.Confirm)
	appts.POST("/:id/cancel", authn.SessionChecked(), ph.Cancel)

	return router
}
