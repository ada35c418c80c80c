package notify

import (
	"context"

	logx "github.com/Miraines/gentlemale/backend/internal/infra/log"
	"go.uber.org/zap"
)

// LogSender is the development mail driver. It logs the body, which for OTP
// mails contains the code, so it must not be used in production.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) SendEmail(_ context.Context, body, to, subject string) error {
	s.log.Info("email (log driver)", logx.Email(to), zap.String("subject", subject), zap.String("body", body))
	return nil
}
