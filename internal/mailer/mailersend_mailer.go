package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendGuestRegistered(toEmail, guestName, guarantorName, building string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Guest registered at " + building
	text := fmt.Sprintf(
		"Guest %s was registered at %s under guarantor %s.",
		guestName, building, guarantorName,
	)
	html := fmt.Sprintf(`
		<h2>Guest registered</h2>
		<p>Guest <strong>%s</strong> was registered at <strong>%s</strong> under guarantor %s.</p>
		<p>This is an automated notification from the building access desk.</p>
	`, guestName, building, guarantorName)

	return m.sendEmail(toEmail, subject, text, html)
}

func (m *MailerSendClient) SendBannedAttempt(toEmail, personName, building, operator string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Banned person at " + building
	text := fmt.Sprintf(
		"Operator %s attempted to admit %s at %s, but the person is banned.",
		operator, personName, building,
	)
	html := fmt.Sprintf(`
		<h2>Banned person attempt</h2>
		<p>Operator %s attempted to admit <strong>%s</strong> at <strong>%s</strong>, but the person is banned.</p>
	`, operator, personName, building)

	return m.sendEmail(toEmail, subject, text, html)
}

func (m *MailerSendClient) sendEmail(toEmail, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Email: toEmail}})
	msg.SetSubject(subject)
	msg.SetText(text)
	msg.SetHTML(html)

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
