package services

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

// OTPPurpose selects the wording of an OTP email.
type OTPPurpose string

const (
	PurposeSignup        OTPPurpose = "signup"
	PurposePasswordReset OTPPurpose = "password_reset"
)

// Mailer delivers one-time codes out of band.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string, purpose OTPPurpose) error
}

// SMTPMailer sends plain-text mail through an authenticated SMTP relay.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, username: username, password: password, from: from}
}

func (m *SMTPMailer) SendOTP(ctx context.Context, to, code string, purpose OTPPurpose) error {
	subject, body := otpMessage(code, purpose)
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- smtp.SendMail(net.JoinHostPort(m.host, m.port), auth, m.from, []string{to}, []byte(msg))
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func otpMessage(code string, purpose OTPPurpose) (string, string) {
	if purpose == PurposePasswordReset {
		return "Your password reset code",
			fmt.Sprintf("Use %s to reset your password. If you did not request a reset you can ignore this email.", code)
	}
	return "Verify your email",
		fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code)
}

// LogMailer is used when no SMTP relay is configured. Codes are never logged.
type LogMailer struct {
	Log zerolog.Logger
}

func (m LogMailer) SendOTP(_ context.Context, to, _ string, purpose OTPPurpose) error {
	m.Log.Warn().Str("to", to).Str("purpose", string(purpose)).Msg("mail delivery disabled, otp not sent")
	return nil
}
