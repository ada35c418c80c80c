package log

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func New(level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)

	if level != "" {
		if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
			fmt.Printf("bad LOG_LEVEL=%s, fallback to info\n", level)
		}
	}
	return cfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

func Must(level string) *zap.Logger {
	l, err := New(level)
	if err != nil {
		panic(err)
	}
	return l
}

// Email logs an address as a digest so that logs can be correlated without
// holding personal data.
func Email(addr string) zap.Field {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(addr))))
	return zap.String("user", hex.EncodeToString(sum[:8]))
}
