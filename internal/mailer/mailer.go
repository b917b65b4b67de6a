package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

type Sender interface {
	SendOTP(ctx context.Context, to, name, otp string) error
}

type otpData struct {
	Name          string
	OTP           string
	ExpiryMinutes int
}

var otpTemplate = template.Must(template.New("otp").Parse(`<html><body>
<p>Hi {{.Name}},</p>
<p>Your verification code is <strong>{{.OTP}}</strong>.</p>
<p>It expires in {{.ExpiryMinutes}} minutes. If you did not request it, ignore this email.</p>
</body></html>`))

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPSender struct {
	host          string
	port          int
	user          string
	password      string
	from          string
	expiryMinutes int
	send          sendFunc
}

func NewSMTPSender(host string, port int, user, password, from string, expiryMinutes int) *SMTPSender {
	return &SMTPSender{
		host:          host,
		port:          port,
		user:          user,
		password:      password,
		from:          from,
		expiryMinutes: expiryMinutes,
		send:          smtp.SendMail,
	}
}

func (s *SMTPSender) SendOTP(ctx context.Context, to, name, otp string) error {
	var body bytes.Buffer
	if err := otpTemplate.Execute(&body, otpData{Name: name, OTP: otp, ExpiryMinutes: s.expiryMinutes}); err != nil {
		return fmt.Errorf("template execution error: %w", err)
	}

	message := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n%s",
		s.from,
		to,
		"Your verification code",
		body.String(),
	)

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	if err := s.send(addr, auth, s.from, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	logger.FromCtx(ctx).Info("otp email sent",
		zap.String("layer", "mailer"),
		zap.String("to", to),
	)
	return nil
}

// LogSender writes codes to the log instead of mailing them. Only used
// outside production when no SMTP relay is configured.
type LogSender struct{}

func (LogSender) SendOTP(ctx context.Context, to, name, otp string) error {
	logger.FromCtx(ctx).Warn("mail disabled, otp not delivered",
		zap.String("layer", "mailer"),
		zap.String("to", to),
		zap.String("otp", otp),
	)
	return nil
}
