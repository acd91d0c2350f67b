// Package mail sends transactional emails to customers.
package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/clarotec/orders-api/internal/config"
	"go.uber.org/zap"
)

// Message is a rendered email ready to send
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers a Message
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer creates the transport selected by cfg.Provider
func NewMailer(cfg *config.MailConfig, logger *zap.Logger) (Mailer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("sendgrid api key is empty")
		}
		if cfg.FromAddress == "" {
			return nil, fmt.Errorf("mail from address is empty")
		}
		logger.Info("Using SendGrid mail transport", zap.String("from", cfg.FromAddress))
		return NewSendGridMailer(cfg.SendGridAPIKey, cfg.FromAddress, cfg.FromName, logger), nil
	case "", "log":
		logger.Info("Using log mail transport")
		return NewLogMailer(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider: %s", cfg.Provider)
	}
}
