package domain

import "time"

// Session is one authenticated staff login. ID is the SHA-256 hex digest of
// the opaque bearer token; the raw token lives only in the client's cookie.
// Building is the building the operator logged in at, and scopes every
// presence operation made under this session.
type Session struct {
	ID        string    `json:"-"`
	UserID    int64     `json:"user_id"`
	Building  string    `json:"building"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AdminSession authenticates the admin panel. There is no associated user:
// one shared secret guards all admin actions.
type AdminSession struct {
	ID        string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
