package mail

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Sampath5633/Medica-Backend/internal/core/port"
	"github.com/Sampath5633/Medica-Backend/internal/infra/config"
)

// Mail drivers accepted in mail.driver.
const (
	DriverSMTP     = "smtp"
	DriverPostmark = "postmark"
	DriverLog      = "log"
)

// New returns the sender selected by cfg.Driver.
func New(cfg config.MailSettings, logger *zap.Logger) (port.Mailer, error) {
	switch cfg.Driver {
	case DriverSMTP, "":
		return NewSMTPSender(cfg)
	case DriverPostmark:
		return NewPostmarkSender(nil, cfg)
	case DriverLog:
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}
