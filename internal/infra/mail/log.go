package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/Sampath5633/Medica-Backend/internal/core/port"
)

// LogSender writes messages to the log instead of delivering them. The body carries the
// one-time code, so it is meant for local development only.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg port.MailMessage) error {
	s.logger.Info("mail not delivered (log driver)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

var _ port.Mailer = (*LogSender)(nil)
