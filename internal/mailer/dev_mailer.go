package mailer

import (
	"github.com/veletic/gatehouse/pkg/logger"
)

// DevMailer logs instead of sending, for local runs without an SMTP relay.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendGuestRegistered(toEmail, guestName, guarantorName, building string) error {
	logger.Info("[DEV MAIL] Guest registered",
		"to", toEmail,
		"guest", guestName,
		"guarantor", guarantorName,
		"building", building,
	)
	return nil
}

func (d *DevMailer) SendBannedAttempt(toEmail, personName, building, operator string) error {
	logger.Info("[DEV MAIL] Banned person attempt",
		"to", toEmail,
		"person", personName,
		"building", building,
		"operator", operator,
	)
	return nil
}
