package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	myPostgresRepo "github.com/Miraines/gentlemale/backend/internal/adapters/db/postgres"
	myRedisRepo "github.com/Miraines/gentlemale/backend/internal/adapters/db/redis"
	"github.com/Miraines/gentlemale/backend/internal/adapters/notify"
	mailqueue "github.com/Miraines/gentlemale/backend/internal/adapters/notify/amqp"
	"github.com/Miraines/gentlemale/backend/internal/adapters/notify/smtp"
	"github.com/Miraines/gentlemale/backend/internal/adapters/oauth/google"
	myGrpc "github.com/Miraines/gentlemale/backend/internal/adapters/transport/grpc"
	myHttp "github.com/Miraines/gentlemale/backend/internal/adapters/transport/http"
	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/http/dto"
	httpmw "github.com/Miraines/gentlemale/backend/internal/adapters/transport/http/middleware"
	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/ratelimit"
	apptsvc "github.com/Miraines/gentlemale/backend/internal/app/appointment/service"
	"github.com/Miraines/gentlemale/backend/internal/app/auth/jwt"
	"github.com/Miraines/gentlemale/backend/internal/app/auth/otp"
	"github.com/Miraines/gentlemale/backend/internal/app/auth/password"
	authsvc "github.com/Miraines/gentlemale/backend/internal/app/auth/service"
	"github.com/Miraines/gentlemale/backend/internal/app/auth/session"
	notifyDomain "github.com/Miraines/gentlemale/backend/internal/domain/notify"
	"github.com/Miraines/gentlemale/backend/internal/infra/config"
	"github.com/Miraines/gentlemale/backend/internal/infra/health"
	lg "github.com/Miraines/gentlemale/backend/internal/infra/log"
	"github.com/Miraines/gentlemale/backend/internal/infra/metrics"
	"github.com/Miraines/gentlemale/backend/internal/infra/migrate"
	"github.com/Miraines/gentlemale/backend/internal/infra/server"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	shutdownTimeout = 5 * time.Second
	rateLimitCache  = 10_000
	rateLimitTTL    = time.Hour
	healthInterval  = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		lg.Must("info").Fatal("failed to load config", zap.Error(err))
	}
	zapLog := lg.Must(cfg.LogLevel)
	defer zapLog.Sync()
	gin.SetMode(gin.ReleaseMode)

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		zapLog.Fatal("failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		zapLog.Fatal("db handle", zap.Error(err))
	}
	defer sqlDB.Close()
	if err := migrate.Up(sqlDB); err != nil {
		zapLog.Fatal("run migrations", zap.Error(err))
	}

	redisCli := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisCli.Close()

	jwtUtil, err := jwt.NewJWTUtil(cfg)
	if err != nil {
		zapLog.Fatal("failed to init JWT util", zap.Error(err))
	}

	mailer, consumer, closeMailer, err := buildMailer(cfg, zapLog)
	if err != nil {
		zapLog.Fatal("failed to init mailer", zap.Error(err))
	}
	defer closeMailer()

	validate := dto.NewValidator()
	hasher := password.New(cfg.PasswordPepper)
	userRepo := myPostgresRepo.NewPostgresUserRepo(db)
	sessions := session.NewManager(myPostgresRepo.NewPostgresSessionRepo(db), hasher, cfg.RefreshTokenTTL, cfg.MaxSessionsPerUser)
	authMetrics := metrics.NewAuth(prometheus.DefaultRegisterer)

	deps := authsvc.Deps{
		Users:    userRepo,
		Sessions: sessions,
		JWT:      jwtUtil,
		Hasher:   hasher,
		OTP:      otp.NewGenerator(cfg.OTPSecret, cfg.OTPTTL),
		Mailer:   mailer,
		Limiter:  myRedisRepo.NewRedisAttemptLimiter(redisCli, cfg.AuthMaxAttempts, cfg.AuthAttemptWindow),
		States:   myRedisRepo.NewRedisStateStore(redisCli),
		Config:   cfg,
		Validate: validate,
		Log:      zapLog,
		Metrics:  authMetrics,
	}
	if cfg.GoogleEnabled() {
		deps.Google = google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)
	}
	svc := authsvc.New(deps)
	appts := apptsvc.New(myPostgresRepo.NewPostgresAppointmentRepo(db), userRepo, validate, zapLog)

	checker := health.NewChecker(2*time.Second).
		Add("postgres", health.Database(db)).
		Add("redis", health.Redis(redisCli))
	limiter := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst, rateLimitCache, rateLimitTTL)

	router := myHttp.NewRouter(myHttp.RouterDeps{
		Auth:           svc,
		Appointments:   appts,
		Authenticator:  httpmw.NewAuthenticator(jwtUtil, sessions),
		Limiter:        limiter,
		Health:         checker,
		Gatherer:       prometheus.DefaultGatherer,
		AllowedOrigins: cfg.AllowedOrigins,
		AllowCreds:     cfg.AllowCredentials,
		Log:            zapLog,
	})

	reporter := myGrpc.NewHealthReporter(checker, healthInterval, zapLog)
	grpcServer, err := server.NewGRPCServer(cfg, reporter.Server(), limiter, zapLog)
	if err != nil {
		zapLog.Fatal("failed to init gRPC server", zap.Error(err))
	}

	srv := &http.Server{Addr: cfg.HTTPAddress, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		return server.ServeGRPC(ctx, grpcServer, cfg.GRPCAddress, zapLog)
	})
	g.Go(func() error {
		return reporter.Run(ctx)
	})
	if consumer != nil {
		g.Go(func() error {
			return consumer.Run(ctx)
		})
	}
	g.Go(func() error {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddress), zap.Bool("tls", cfg.TLSEnabled()))
		var err error
		if cfg.TLSEnabled() {
			err = srv.ListenAndServeTLS(cfg.HTTPSCertFile, cfg.HTTPSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		zapLog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("server terminated", zap.Error(err))
	}
}

// buildMailer picks the notification driver. With amqp the same process
// also runs the consumer that delivers queued mail over SMTP.
func buildMailer(cfg *config.Config, log *zap.Logger) (notifyDomain.Sender, *mailqueue.Consumer, func(), error) {
	noop := func() {}
	switch cfg.NotifyDriver {
	case config.NotifyLog:
		return notify.NewLogSender(log), nil, noop, nil
	case config.NotifyAMQP:
		direct, err := smtp.New(smtpConfig(cfg))
		if err != nil {
			return nil, nil, noop, err
		}
		pub := mailqueue.NewPublisher(cfg.AMQPURL, cfg.MailQueue)
		closer := func() {
			if err := pub.Close(); err != nil {
				log.Warn("close amqp publisher", zap.Error(err))
			}
		}
		return pub, mailqueue.NewConsumer(cfg.AMQPURL, cfg.MailQueue, direct, log), closer, nil
	default:
		direct, err := smtp.New(smtpConfig(cfg))
		if err != nil {
			return nil, nil, noop, err
		}
		return direct, nil, noop, nil
	}
}

func smtpConfig(cfg *config.Config) smtp.Config {
	return smtp.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}
}
