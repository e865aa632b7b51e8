package mail

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// AlertSender delivers operator alerts over SMTP. Used for the one condition
// that must never be silently retried: a revoked refresh token.
type AlertSender struct {
	Host     string
	Port     int
	User     string
	Password string
	To       string
}

func NewAlertSender(host string, port int, user, password, to string) *AlertSender {
	return &AlertSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		To:       to,
	}
}

func (s *AlertSender) SendCredentialAlert(accountEmail string, cause error) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.User)
	m.SetHeader("To", s.To)
	m.SetHeader("Subject", fmt.Sprintf("🚨 leadgate: credentials revoked for %s", accountEmail))
	m.SetBody("text/plain", fmt.Sprintf(
		"Watch registration for %s failed because the refresh token was rejected.\n\n"+
			"Cause: %v\n\n"+
			"Automatic renewal is halted for this account. Re-authorize it and restart the service.\n",
		accountEmail, cause,
	))

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	return nil
}
