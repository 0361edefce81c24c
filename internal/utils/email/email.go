package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/Dan9191/bank-account/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// buildSyncFailureEmail formats the alert for a failed balance synchronization
func (s *Sender) buildSyncFailureEmail(accountID string, balance float64, cause error, at time.Time) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.AlertEmail}
	e.Subject = fmt.Sprintf("Balance synchronization failed for account %s", accountID)

	body := fmt.Sprintf(
		"Balance synchronization for account %s failed at %s.\n"+
			"Reason: %v\n"+
			"The local balance was kept at %.2f.\n",
		accountID, at.Format("2006-01-02 15:04:05"), cause, balance,
	)
	body += "\nBank Service"
	e.Text = []byte(body)
	return e
}

// SendSyncFailureAlert mails the operators about a failed synchronization
func (s *Sender) SendSyncFailureAlert(accountID string, balance float64, cause error) error {
	e := s.buildSyncFailureEmail(accountID, balance, cause, time.Now())

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send synchronization alert for account %s: %v", accountID, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", s.cfg.AlertEmail, e.Subject)
	return nil
}
