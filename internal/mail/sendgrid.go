package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// SendGridMailer implements Mailer using the SendGrid v3 API
type SendGridMailer struct {
	client   *sendgrid.Client
	from     string
	fromName string
	logger   *zap.Logger
}

func NewSendGridMailer(apiKey, from, fromName string, logger *zap.Logger) *SendGridMailer {
	return &SendGridMailer{
		client:   sendgrid.NewSendClient(apiKey),
		from:     from,
		fromName: fromName,
		logger:   logger,
	}
}

// Send delivers msg; any response status of 400 or above is an error
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("to address is empty")
	}

	message := sgmail.NewSingleEmail(
		sgmail.NewEmail(m.fromName, m.from),
		msg.Subject,
		sgmail.NewEmail(msg.ToName, msg.To),
		msg.Text,
		msg.HTML,
	)

	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 400 {
		m.logger.Error("sendgrid rejected message",
			zap.Int("status", response.StatusCode),
			zap.String("body", response.Body),
			zap.String("to", msg.To))
		return fmt.Errorf("sendgrid send failed: status=%d", response.StatusCode)
	}

	m.logger.Info("mail sent",
		zap.Int("status", response.StatusCode),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}
