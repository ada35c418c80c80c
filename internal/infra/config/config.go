package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	NotifySMTP = "smtp"
	NotifyAMQP = "amqp"
	NotifyLog  = "log"
)

// Config is built once at startup and handed to constructors. Nothing reads
// the environment after Load returns.
type Config struct {
	LogLevel string

	HTTPAddress      string
	GRPCAddress      string
	HTTPSCertFile    string
	HTTPSKeyFile     string
	AllowedOrigins   []string
	AllowCredentials bool
	RateLimitRPS     int
	RateLimitBurst   int

	DatabaseURL string

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	// JWTPrivateKey is an HMAC secret, or a PKCS#8 Ed25519 PEM when
	// JWTPublicKey is set too.
	JWTPrivateKey   string
	JWTPublicKey    string
	Issuer          string
	Audience        string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	PasswordPepper     string
	PasswordMinLength  int
	MaxSessionsPerUser int

	OTPSecret string
	OTPTTL    time.Duration

	AuthMaxAttempts   int
	AuthAttemptWindow time.Duration

	NotifyDriver string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	AMQPURL      string
	MailQueue    string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
}

func (c *Config) GoogleEnabled() bool { return c.GoogleClientID != "" }

func (c *Config) TLSEnabled() bool { return c.HTTPSCertFile != "" && c.HTTPSKeyFile != "" }

func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDRESS", ":8080")
	v.SetDefault("GRPC_ADDRESS", ":50051")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "720h")
	v.SetDefault("PASSWORD_MIN_LENGTH", 6)
	v.SetDefault("MAX_SESSIONS_PER_USER", 5)
	v.SetDefault("OTP_TTL", "5m")
	v.SetDefault("AUTH_MAX_ATTEMPTS", 5)
	v.SetDefault("AUTH_ATTEMPT_WINDOW", "15m")
	v.SetDefault("NOTIFY_DRIVER", NotifySMTP)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("MAIL_QUEUE", "mail.outbound")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file, %w", err)
		}
	}

	cfg := &Config{
		LogLevel:         v.GetString("LOG_LEVEL"),
		HTTPAddress:      v.GetString("HTTP_ADDRESS"),
		GRPCAddress:      v.GetString("GRPC_ADDRESS"),
		HTTPSCertFile:    v.GetString("HTTPS_CERT_FILE"),
		HTTPSKeyFile:     v.GetString("HTTPS_KEY_FILE"),
		AllowCredentials: v.GetBool("ALLOW_CREDENTIALS"),
		RateLimitRPS:     v.GetInt("RATE_LIMIT_RPS"),
		RateLimitBurst:   v.GetInt("RATE_LIMIT_BURST"),

		DatabaseURL: v.GetString("DATABASE_URL"),

		RedisAddress:  v.GetString("REDIS_ADDRESS"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		JWTPrivateKey:   v.GetString("JWT_PRIVATE_KEY"),
		JWTPublicKey:    v.GetString("JWT_PUBLIC_KEY"),
		Issuer:          v.GetString("JWT_ISSUER"),
		Audience:        v.GetString("JWT_AUDIENCE"),
		AccessTokenTTL:  v.GetDuration("ACCESS_TOKEN_TTL"),
		RefreshTokenTTL: v.GetDuration("REFRESH_TOKEN_TTL"),

		PasswordPepper:     v.GetString("PASSWORD_PEPPER"),
		PasswordMinLength:  v.GetInt("PASSWORD_MIN_LENGTH"),
		MaxSessionsPerUser: v.GetInt("MAX_SESSIONS_PER_USER"),

		OTPSecret: v.GetString("OTP_SECRET"),
		OTPTTL:    v.GetDuration("OTP_TTL"),

		AuthMaxAttempts:   v.GetInt("AUTH_MAX_ATTEMPTS"),
		AuthAttemptWindow: v.GetDuration("AUTH_ATTEMPT_WINDOW"),

		NotifyDriver: strings.ToLower(v.GetString("NOTIFY_DRIVER")),
		SMTPHost:     v.GetString("SMTP_HOST"),
		SMTPPort:     v.GetInt("SMTP_PORT"),
		SMTPUsername: v.GetString("SMTP_USERNAME"),
		SMTPPassword: v.GetString("SMTP_PASSWORD"),
		SMTPFrom:     v.GetString("SMTP_FROM"),
		AMQPURL:      v.GetString("AMQP_URL"),
		MailQueue:    v.GetString("MAIL_QUEUE"),

		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  v.GetString("GOOGLE_REDIRECT_URI"),
	}

	origins, err := parseList(v.GetString("ALLOWED_ORIGINS"))
	if err != nil {
		return nil, fmt.Errorf("ALLOWED_ORIGINS: %w", err)
	}
	cfg.AllowedOrigins = origins

	if cfg.JWTPrivateKey == "" {
		if cfg.JWTPrivateKey, err = readKeyFile(v.GetString("JWT_PRIVATE_KEY_PATH")); err != nil {
			return nil, err
		}
	}
	if cfg.JWTPublicKey == "" {
		if cfg.JWTPublicKey, err = readKeyFile(v.GetString("JWT_PUBLIC_KEY_PATH")); err != nil {
			return nil, err
		}
	}
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUsername
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	required := []struct {
		key, val string
	}{
		{"DATABASE_URL", c.DatabaseURL},
		{"JWT_PRIVATE_KEY", c.JWTPrivateKey},
		{"JWT_ISSUER", c.Issuer},
		{"JWT_AUDIENCE", c.Audience},
		{"OTP_SECRET", c.OTPSecret},
		{"REDIS_ADDRESS", c.RedisAddress},
	}
	switch c.NotifyDriver {
	case NotifySMTP, NotifyAMQP:
		required = append(required,
			struct{ key, val string }{"SMTP_HOST", c.SMTPHost},
			struct{ key, val string }{"SMTP_USERNAME", c.SMTPUsername},
			struct{ key, val string }{"SMTP_PASSWORD", c.SMTPPassword},
		)
		if c.NotifyDriver == NotifyAMQP {
			required = append(required, struct{ key, val string }{"AMQP_URL", c.AMQPURL})
		}
	case NotifyLog:
	default:
		return fmt.Errorf("NOTIFY_DRIVER %q is not one of smtp, amqp, log", c.NotifyDriver)
	}
	if c.GoogleEnabled() {
		required = append(required,
			struct{ key, val string }{"GOOGLE_CLIENT_SECRET", c.GoogleClientSecret},
			struct{ key, val string }{"GOOGLE_REDIRECT_URI", c.GoogleRedirectURI},
		)
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return fmt.Errorf("%s is required", r.key)
		}
	}

	positive := []struct {
		key string
		val time.Duration
	}{
		{"ACCESS_TOKEN_TTL", c.AccessTokenTTL},
		{"REFRESH_TOKEN_TTL", c.RefreshTokenTTL},
		{"OTP_TTL", c.OTPTTL},
		{"AUTH_ATTEMPT_WINDOW", c.AuthAttemptWindow},
	}
	for _, p := range positive {
		if p.val <= 0 {
			return fmt.Errorf("%s must be a positive duration", p.key)
		}
	}
	if c.PasswordMinLength < 1 || c.PasswordMinLength > 128 {
		return fmt.Errorf("PASSWORD_MIN_LENGTH must be between 1 and 128")
	}
	if c.MaxSessionsPerUser < 1 {
		return fmt.Errorf("MAX_SESSIONS_PER_USER must be at least 1")
	}
	if c.AuthMaxAttempts < 1 {
		return fmt.Errorf("AUTH_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// parseList accepts a JSON array or a comma separated list.
func parseList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		var out []string
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

func readKeyFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read key %s: %w", path, err)
	}
	return string(b), nil
}
