package mailer

// Service sends the notifications the gate desk generates. Guarantor mail
// goes to the department contact responsible for the guest's sponsor.
type Service interface {
	SendGuestRegistered(toEmail, guestName, guarantorName, building string) error
	SendBannedAttempt(toEmail, personName, building, operator string) error
}
