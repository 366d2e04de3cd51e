package mailer

import (
	"bytes"
	"fmt"
	"net/smtp"
	"strings"
)

type SMTPMailer struct {
	Host string
	Port int
	From string
	User string
	Pass string
}

func NewSMTPMailer(host string, port int, from, user, pass string) *SMTPMailer {
	return &SMTPMailer{
		Host: strings.TrimSpace(host),
		Port: port,
		From: strings.TrimSpace(from),
		User: strings.TrimSpace(user),
		Pass: strings.TrimSpace(pass),
	}
}

func (s *SMTPMailer) SendGuestRegistered(toEmail, guestName, guarantorName, building string) error {
	subject := "Guest registered at " + building
	text := fmt.Sprintf(
		"Guest %s was registered at %s under guarantor %s.\n\nThis is an automated notification from the building access desk.",
		guestName, building, guarantorName,
	)
	return s.sendEmail(toEmail, subject, text)
}

func (s *SMTPMailer) SendBannedAttempt(toEmail, personName, building, operator string) error {
	subject := "Banned person at " + building
	text := fmt.Sprintf(
		"Operator %s attempted to admit %s at %s, but the person is banned.\n\nThis is an automated notification from the building access desk.",
		operator, personName, building,
	)
	return s.sendEmail(toEmail, subject, text)
}

func (s *SMTPMailer) sendEmail(toEmail, subject, text string) error {
	toEmail = strings.TrimSpace(toEmail)
	if toEmail == "" {
		return fmt.Errorf("empty recipient email")
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", s.From)
	fmt.Fprintf(&buf, "To: %s\r\n", toEmail)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&buf, "%s\r\n", text)

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)

	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Pass, s.Host)
	}

	return smtp.SendMail(addr, auth, s.From, []string{toEmail}, buf.Bytes())
}
